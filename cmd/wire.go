package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/prep-piper/interviewer/internal/ai"
	"github.com/prep-piper/interviewer/internal/ai/gemini"
	"github.com/prep-piper/interviewer/internal/evaluation"
	"github.com/prep-piper/interviewer/internal/interview"
	"github.com/prep-piper/interviewer/internal/logger"
	"github.com/prep-piper/interviewer/internal/secrets"
	"github.com/prep-piper/interviewer/internal/session"
)

const geminiKeyEnv = "GEMINI_API_KEY"

// application holds everything a command needs. close releases the session store.
type application struct {
	config       *Config
	logger       *zap.Logger
	orchestrator *interview.Orchestrator
	pipeline     *evaluation.Pipeline
	close        func()
}

// bootstrap builds the logger and config the way every command needs them.
func bootstrap() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting with config",
		zap.String("sessions_backend", config.Sessions.Backend),
		zap.String("ai_provider", config.AI.Provider),
		zap.String("transcripts_dir", config.TranscriptsDir),
	)

	return logger, config
}

func newApplication(ctx context.Context) *application {
	log, config := bootstrap()

	generator := newGenerator(ctx, config, log)

	repo, closeRepo, err := newRepository(ctx, config.Sessions, log)
	if err != nil {
		log.Fatal("opening session store", zap.Error(err))
	}

	policy, err := interview.NewPolicy(
		config.Interview.Difficulty.Policy,
		config.Interview.Difficulty.AdvanceAfter,
		config.Interview.Difficulty.CompetentAnswerWords,
	)
	if err != nil {
		log.Fatal("building difficulty policy", zap.Error(err))
	}

	icfg, err := config.interviewConfig()
	if err != nil {
		log.Fatal("building interview config", zap.Error(err))
	}

	questions := interview.NewQuestionGenerator(generator, icfg, log.With(zap.String("component", "questions")))
	orchestrator := interview.New(repo, questions, policy, icfg, log.With(zap.String("component", "orchestrator")))

	extractor := evaluation.NewLLMExtractor(generator, config.AI.Gemini.MaxLogLength, log.With(zap.String("component", "extractor")))
	pipeline := evaluation.NewPipeline(extractor, config.Evaluation.DefaultPosition, log.With(zap.String("component", "evaluation")))

	return &application{
		config:       config,
		logger:       log,
		orchestrator: orchestrator,
		pipeline:     pipeline,
		close:        closeRepo,
	}
}

// newGenerator returns the configured text generator. Without credentials it
// returns ai.Unavailable so interviews still run on fallback questions.
func newGenerator(ctx context.Context, config *Config, log *zap.Logger) ai.Generator {
	if config.AI.Provider == providerNone {
		log.Info("ai provider disabled, using fallback questions only")
		return ai.Unavailable{}
	}

	gc := config.AI.Gemini
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  gc.APIKeyFile,
		Value: gc.APIKey,
		Env:   geminiKeyEnv,
	})
	if err != nil {
		log.Warn("gemini is not configured, using fallback questions only",
			zap.Error(err),
			zap.String("hint", "set "+geminiKeyEnv+", GEMINI_API_KEY_FILE or ai.gemini.api-key-file"),
		)
		return ai.Unavailable{}
	}

	genLogger := logger.WithCommonFields(log, providerGemini, gc.Model).With(
		zap.Int("ai_retry_attempts", gc.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, gc.Model, gc.MaxRetries, gc.MaxLogLength, genLogger)
	if err != nil {
		log.Warn("creating gemini client, using fallback questions only", zap.Error(err))
		return ai.Unavailable{}
	}

	log.Info("ai provider ready", logger.CommonFields(providerGemini, generator.Model())...)
	return generator
}

func newRepository(ctx context.Context, cfg SessionsConfig, log *zap.Logger) (session.Repository, func(), error) {
	switch cfg.Backend {
	case backendSQLite:
		repo, err := session.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using sqlite session store", zap.String("path", cfg.SQLitePath))
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Warn("closing session store", zap.Error(err))
			}
		}, nil
	case backendMemory:
		repo := session.NewMemory(session.MemoryConfig{Capacity: cfg.Capacity, TTL: cfg.TTL}, log.With(zap.String("component", "sessions")))
		return repo, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported sessions backend: %s", cfg.Backend)
	}
}
