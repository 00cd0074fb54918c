package evaluation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prep-piper/interviewer/internal/transcript"
)

const unknownCandidate = "unknown"

// Pipeline evaluates persisted transcripts.
type Pipeline struct {
	extractor       Extractor
	defaultPosition string
	logger          *zap.Logger
	now             func() time.Time
}

// NewPipeline creates a pipeline. An empty defaultPosition uses DefaultPosition.
func NewPipeline(extractor Extractor, defaultPosition string, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractor == nil {
		extractor = NewLLMExtractor(nil, 0, logger)
	}
	if defaultPosition = strings.TrimSpace(defaultPosition); defaultPosition == "" {
		defaultPosition = DefaultPosition
	}
	return &Pipeline{
		extractor:       extractor,
		defaultPosition: defaultPosition,
		logger:          logger,
		now:             time.Now,
	}
}

// Load reads the transcript at path. Errors wrap transcript.ErrNotFound or
// transcript.ErrMalformed.
func (p *Pipeline) Load(path string) (*transcript.Transcript, error) {
	t, err := transcript.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading transcript: %w", err)
	}
	return t, nil
}

// Evaluate runs every extraction step and aggregates the results. A failed
// step is recorded in the state and does not stop the others. t is not modified.
func (p *Pipeline) Evaluate(ctx context.Context, t *transcript.Transcript) *State {
	state := newState(t)
	state.CandidateID = unknownCandidate
	if t.ID != "" {
		state.CandidateID = t.ID
	}
	if pos := strings.TrimSpace(t.Position); pos != "" {
		state.PositionEvaluatedFor = pos
	} else {
		state.PositionEvaluatedFor = p.defaultPosition
	}

	log := p.logger.With(zap.String("candidate_id", state.CandidateID))
	answers := t.CandidateAnswers()
	log.Info("evaluation started",
		zap.Int("turns", len(t.History)),
		zap.Int("candidate_answers", len(answers)),
	)
	if len(answers) == 0 {
		log.Warn("transcript has no candidate answers")
	}

	state.CurrentStep = StepExtraction

	var (
		problems    *ProblemSolvingReport
		problemsErr error
		skills      *TechnicalReport
		skillsErr   error
	)

	// each step keeps its own error so one failure never cancels the other
	var g errgroup.Group
	g.Go(func() error {
		problems, problemsErr = p.extractor.ProblemSolving(ctx, t)
		return nil
	})
	g.Go(func() error {
		skills, skillsErr = p.extractor.TechnicalSkills(ctx, t)
		return nil
	})
	_ = g.Wait()

	if problems == nil {
		problems = &ProblemSolvingReport{}
	}
	if skills == nil {
		skills = &TechnicalReport{}
	}

	if problemsErr != nil {
		state.StepStatus[StepProblemSolving] = StepFailed
		state.Errors = append(state.Errors, fmt.Sprintf("Problem solving evaluation failed: %v", problemsErr))
		log.Warn("problem solving evaluation failed", zap.Error(problemsErr))
	} else {
		state.StepStatus[StepProblemSolving] = StepCompleted
		state.ProblemSolvingInstances = append(state.ProblemSolvingInstances, problems.Instances...)
		state.ProblemSolvingApproach = problems.Approach
		state.Errors = append(state.Errors, problems.Rejected...)
	}

	if skillsErr != nil {
		state.StepStatus[StepTechnical] = StepFailed
		state.Errors = append(state.Errors, fmt.Sprintf("Technical evaluation failed: %v", skillsErr))
		log.Warn("technical evaluation failed", zap.Error(skillsErr))
	} else {
		state.StepStatus[StepTechnical] = StepCompleted
		state.TechnicalSkills = append(state.TechnicalSkills, skills.Skills...)
		state.TechnicalKnowledgeGaps = append(state.TechnicalKnowledgeGaps, skills.KnowledgeGaps...)
		state.TechnicalStrengths = append(state.TechnicalStrengths, skills.Strengths...)
		state.Errors = append(state.Errors, skills.Rejected...)
	}

	state.CurrentStep = StepAggregation
	aggregate(state)
	state.StepStatus[StepAggregation] = StepCompleted
	state.EvaluationTimestamp = p.now().UTC().Format(time.RFC3339)

	if err := state.Validate(); err != nil {
		state.StepStatus[StepAggregation] = StepFailed
		state.Errors = append(state.Errors, fmt.Sprintf("Validation failed: %v", err))
	}

	state.CurrentStep = CurrentCompleted
	if len(state.Errors) > 0 {
		state.CurrentStep = CurrentCompletedWithErrors
	}

	log.Info("evaluation finished",
		zap.String("current_step", state.CurrentStep),
		zap.Float64("overall_score", state.OverallScore),
		zap.String("recommendation", string(state.Recommendation)),
		zap.Int("errors", len(state.Errors)),
	)

	return state
}
