// Package interview runs the question/answer state machine of a technical interview.
package interview

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prep-piper/interviewer/internal/ai"
	"github.com/prep-piper/interviewer/internal/session"
	"github.com/prep-piper/interviewer/internal/utils"
)

const (
	DefaultMaxQuestions    = 5
	DefaultMinAnswerLength = 3
	DefaultContextTurns    = 4
	DefaultTimeout         = 30 * time.Second

	techPlaceholder = "{tech}"

	nextQuestionInstruction = "Generate the next interview question. Return exactly one question and nothing else."
)

//go:embed persona.md
var defaultPersona string

// DefaultFallbackQuestions are asked when the generator cannot produce a question.
// {tech} is replaced with the first technology of the session.
var DefaultFallbackQuestions = []string{
	"Can you explain a key concept in {tech}?",
	"How would you approach debugging a performance issue?",
	"Describe a challenging problem you solved recently.",
	"What best practices do you follow in your development process?",
	"How do you stay updated with new technologies?",
}

// Config holds the interview policy knobs.
type Config struct {
	MaxQuestions    int
	MinAnswerLength int
	// ContextTurns is how many trailing turns are shown to the generator.
	ContextTurns int
	Persona      string
	Fallback     []string
	// Timeout bounds a single NextQuestion call, retries included.
	Timeout time.Duration
	// MaxLogLength truncates prompts and answers in debug logs.
	MaxLogLength int
}

func (c Config) withDefaults() Config {
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = DefaultMaxQuestions
	}
	if c.MinAnswerLength <= 0 {
		c.MinAnswerLength = DefaultMinAnswerLength
	}
	if c.ContextTurns <= 0 {
		c.ContextTurns = DefaultContextTurns
	}
	if strings.TrimSpace(c.Persona) == "" {
		c.Persona = defaultPersona
	}
	if len(c.Fallback) == 0 {
		c.Fallback = DefaultFallbackQuestions
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxLogLength <= 0 {
		c.MaxLogLength = 200
	}
	return c
}

// QuestionGenerator produces the next interviewer question for a session.
type QuestionGenerator struct {
	gen    ai.Generator
	cfg    Config
	logger *zap.Logger
}

// NewQuestionGenerator creates a generator. A nil gen always falls back.
func NewQuestionGenerator(gen ai.Generator, cfg Config, logger *zap.Logger) *QuestionGenerator {
	if gen == nil {
		gen = ai.Unavailable{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionGenerator{gen: gen, cfg: cfg.withDefaults(), logger: logger}
}

// NextQuestion returns the next question for s. It never fails: any
// generation error yields the fallback question for the current progress.
// s is not modified.
func (q *QuestionGenerator) NextQuestion(ctx context.Context, s *session.Session) string {
	ctx, cancel := context.WithTimeout(ctx, q.cfg.Timeout)
	defer cancel()

	system := q.systemPrompt(s)

	q.logger.Debug("generating next question",
		zap.String("session_id", s.ID),
		zap.Int("question_count", s.QuestionCount),
		zap.String("context_preview", utils.TruncateForLog(system, q.cfg.MaxLogLength)),
	)

	raw, err := q.gen.Generate(ctx, system, nextQuestionInstruction)
	if err != nil {
		q.logger.Warn("question generation failed, using fallback question",
			zap.String("session_id", s.ID),
			zap.Int("question_count", s.QuestionCount),
			zap.Error(err),
		)
		return q.Fallback(s)
	}

	question := normalizeQuestion(raw)
	if question == "" {
		q.logger.Warn("question generation returned empty text, using fallback question",
			zap.String("session_id", s.ID),
			zap.String("raw", utils.TruncateForLog(raw, q.cfg.MaxLogLength)),
		)
		return q.Fallback(s)
	}

	return question
}

// Fallback returns the pre-authored question for the session's progress,
// clamped to the last entry.
func (q *QuestionGenerator) Fallback(s *session.Session) string {
	list := q.cfg.Fallback
	idx := min(max(s.QuestionCount, 0), len(list)-1)

	tech := s.PrimaryTech()
	if tech == "" {
		tech = "your primary technology"
	}
	return strings.ReplaceAll(list[idx], techPlaceholder, tech)
}

func (q *QuestionGenerator) systemPrompt(s *session.Session) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(q.cfg.Persona))
	b.WriteString("\n\nINTERVIEW CONTEXT:\n")
	fmt.Fprintf(&b, "- Position: %s\n", s.Position)
	fmt.Fprintf(&b, "- Tech Stack: %s\n", s.TechStackString())
	fmt.Fprintf(&b, "- Question Number: %d of %d\n", s.QuestionCount+1, q.cfg.MaxQuestions)
	fmt.Fprintf(&b, "- Current Level: %s\n", s.Difficulty)

	b.WriteString("\nRECENT CONVERSATION:\n")
	b.WriteString(recentConversation(s.History, q.cfg.ContextTurns))

	return b.String()
}

// recentConversation renders the last n turns as role-labeled blocks.
func recentConversation(history []session.Turn, n int) string {
	start := max(len(history)-n, 0)

	var b strings.Builder
	for _, turn := range history[start:] {
		b.WriteString(turn.Role.Label())
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(turn.Content))
		b.WriteString("\n\n")
	}
	return b.String()
}

var questionLabels = []string{"next question:", "question:", "interviewer:"}

func normalizeQuestion(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.Trim(text, "*")
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	for _, label := range questionLabels {
		if strings.HasPrefix(lower, label) {
			text = strings.TrimSpace(text[len(label):])
			break
		}
	}

	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}
	return text
}
