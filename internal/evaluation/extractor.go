package evaluation

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/prep-piper/interviewer/internal/ai"
	"github.com/prep-piper/interviewer/internal/transcript"
	"github.com/prep-piper/interviewer/internal/utils"
)

//go:embed prompts/problem_solving.md
var problemSolvingPrompt string

//go:embed prompts/technical_skills.md
var technicalSkillsPrompt string

const defaultMaxLogLength = 200

// Extractor derives structured records from a transcript.
type Extractor interface {
	ProblemSolving(ctx context.Context, t *transcript.Transcript) (*ProblemSolvingReport, error)
	TechnicalSkills(ctx context.Context, t *transcript.Transcript) (*TechnicalReport, error)
}

// LLMExtractor asks a text generator for JSON reports.
type LLMExtractor struct {
	gen       ai.Generator
	maxLogLen int
	logger    *zap.Logger
}

func NewLLMExtractor(gen ai.Generator, maxLogLength int, logger *zap.Logger) *LLMExtractor {
	if gen == nil {
		gen = ai.Unavailable{}
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMExtractor{gen: gen, maxLogLen: maxLogLength, logger: logger}
}

func (e *LLMExtractor) ProblemSolving(ctx context.Context, t *transcript.Transcript) (*ProblemSolvingReport, error) {
	raw, err := e.generate(ctx, StepProblemSolving, problemSolvingPrompt,
		"Analyze this interview conversation for problem-solving and implementation abilities.", t)
	if err != nil {
		return nil, err
	}
	return parseProblemSolving(raw)
}

func (e *LLMExtractor) TechnicalSkills(ctx context.Context, t *transcript.Transcript) (*TechnicalReport, error) {
	raw, err := e.generate(ctx, StepTechnical, technicalSkillsPrompt,
		"Analyze this interview conversation for technical skills.", t)
	if err != nil {
		return nil, err
	}
	return parseTechnical(raw)
}

func (e *LLMExtractor) generate(ctx context.Context, step, system, task string, t *transcript.Transcript) (string, error) {
	if t == nil {
		return "", errors.New("transcript is required")
	}

	payload, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	message := fmt.Sprintf("%s\n\nInterview Data:\n%s\n\nConversation:\n%s\n\nReturn only valid JSON following the specified structure.",
		task, payload, t.Conversation())

	e.logger.Debug("evaluation request",
		zap.String("evaluation_step", step),
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", utils.TruncateForLog(message, e.maxLogLen)),
	)

	raw, err := e.gen.Generate(ctx, system, message)
	if err != nil {
		return "", err
	}

	e.logger.Debug("evaluation response",
		zap.String("evaluation_step", step),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)
	return raw, nil
}
