package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/prep-piper/interviewer/internal/evaluation"
	"github.com/prep-piper/interviewer/internal/interview"
)

const (
	backendMemory = "memory"
	backendSQLite = "sqlite"

	providerGemini = "gemini"
	providerNone   = "none"

	// fallback questions usually contain commas, so env values are split on |
	listSeparator = "|"
)

type Config struct {
	Interview      InterviewConfig  `mapstructure:"interview"`
	Sessions       SessionsConfig   `mapstructure:"sessions"`
	TranscriptsDir string           `mapstructure:"transcripts-dir"`
	AI             AIConfig         `mapstructure:"ai"`
	Evaluation     EvaluationConfig `mapstructure:"evaluation"`
	Server         ServerConfig     `mapstructure:"server"`
}

type InterviewConfig struct {
	MaxQuestions      int              `mapstructure:"max-questions"`
	MinAnswerLength   int              `mapstructure:"min-answer-length"`
	ContextTurns      int              `mapstructure:"context-turns"`
	PersonaFile       string           `mapstructure:"persona-file"`
	FallbackQuestions []string         `mapstructure:"fallback-questions"`
	Difficulty        DifficultyConfig `mapstructure:"difficulty"`
}

type DifficultyConfig struct {
	Policy               string `mapstructure:"policy"`
	AdvanceAfter         int    `mapstructure:"advance-after"`
	CompetentAnswerWords int    `mapstructure:"competent-answer-words"`
}

type SessionsConfig struct {
	Backend    string        `mapstructure:"backend"`
	Capacity   int           `mapstructure:"capacity"`
	TTL        time.Duration `mapstructure:"ttl"`
	SQLitePath string        `mapstructure:"sqlite-path"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Gemini   GeminiConfig  `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	APIKey       string `mapstructure:"api-key"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type EvaluationConfig struct {
	DefaultPosition string `mapstructure:"default-position"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interview.max-questions", interview.DefaultMaxQuestions)
	v.SetDefault("interview.min-answer-length", interview.DefaultMinAnswerLength)
	v.SetDefault("interview.context-turns", interview.DefaultContextTurns)
	v.SetDefault("interview.persona-file", "")
	v.SetDefault("interview.fallback-questions", []string{})
	v.SetDefault("interview.difficulty.policy", interview.PolicyStatic)
	v.SetDefault("interview.difficulty.advance-after", 2)
	v.SetDefault("interview.difficulty.competent-answer-words", 25)

	v.SetDefault("sessions.backend", backendMemory)
	v.SetDefault("sessions.capacity", 1000)
	v.SetDefault("sessions.ttl", "24h")
	v.SetDefault("sessions.sqlite-path", "data/sessions.db")

	v.SetDefault("transcripts-dir", "interviews")

	v.SetDefault("ai.provider", providerGemini)
	v.SetDefault("ai.timeout", interview.DefaultTimeout.String())
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.max-retries", 0)
	v.SetDefault("ai.gemini.max-log-length", 0)

	v.SetDefault("evaluation.default-position", evaluation.DefaultPosition)

	v.SetDefault("server.listen", ":8080")
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.AllSettings())
}

// decodeConfig turns raw settings into a validated Config. Durations may be
// given as strings and lists as |-separated strings.
func decodeConfig(settings map[string]any) (*Config, error) {
	config := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(listSeparator),
		),
		WeaklyTypedInput: true,
		Result:           config,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	c.Sessions.Backend = strings.ToLower(strings.TrimSpace(c.Sessions.Backend))
	switch c.Sessions.Backend {
	case "", backendMemory:
		c.Sessions.Backend = backendMemory
	case backendSQLite:
		if strings.TrimSpace(c.Sessions.SQLitePath) == "" {
			return fmt.Errorf("sessions.sqlite-path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unsupported sessions backend: %s", c.Sessions.Backend)
	}

	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	switch c.AI.Provider {
	case "", providerGemini:
		c.AI.Provider = providerGemini
	case providerNone:
	default:
		return fmt.Errorf("unsupported ai provider: %s", c.AI.Provider)
	}

	if c.Interview.MaxQuestions < 0 || c.Interview.MinAnswerLength < 0 || c.Interview.ContextTurns < 0 {
		return fmt.Errorf("interview limits must not be negative")
	}
	if c.Sessions.Capacity < 0 || c.Sessions.TTL < 0 {
		return fmt.Errorf("sessions capacity and ttl must not be negative")
	}

	var fallback []string
	for _, q := range c.Interview.FallbackQuestions {
		if q = strings.TrimSpace(q); q != "" {
			fallback = append(fallback, q)
		}
	}
	c.Interview.FallbackQuestions = fallback

	return nil
}

// interviewConfig converts the file settings into interview.Config, reading
// the persona file when one is set.
func (c *Config) interviewConfig() (interview.Config, error) {
	cfg := interview.Config{
		MaxQuestions:    c.Interview.MaxQuestions,
		MinAnswerLength: c.Interview.MinAnswerLength,
		ContextTurns:    c.Interview.ContextTurns,
		Fallback:        c.Interview.FallbackQuestions,
		Timeout:         c.AI.Timeout,
		MaxLogLength:    c.AI.Gemini.MaxLogLength,
	}

	if path := strings.TrimSpace(c.Interview.PersonaFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading persona file %q: %w", path, err)
		}
		cfg.Persona = strings.TrimSpace(string(data))
	}

	return cfg, nil
}
