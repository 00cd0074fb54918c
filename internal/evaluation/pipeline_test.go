package evaluation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/prep-piper/interviewer/internal/session"
	"github.com/prep-piper/interviewer/internal/transcript"
)

type fakeExtractor struct {
	problems    *ProblemSolvingReport
	problemsErr error
	skills      *TechnicalReport
	skillsErr   error
}

func (f fakeExtractor) ProblemSolving(context.Context, *transcript.Transcript) (*ProblemSolvingReport, error) {
	return f.problems, f.problemsErr
}

func (f fakeExtractor) TechnicalSkills(context.Context, *transcript.Transcript) (*TechnicalReport, error) {
	return f.skills, f.skillsErr
}

func mustInstance(t *testing.T, approach, effectiveness, clarity int) ProblemSolvingInstance {
	t.Helper()
	p, err := NewProblemSolvingInstance("problem", "solution", approach, effectiveness, clarity)
	require.NoError(t, err)
	return p
}

func mustSkill(t *testing.T, name string, level Proficiency, confidence Confidence) TechnicalSkill {
	t.Helper()
	s, err := NewTechnicalSkill(name, level, []string{"said something"}, confidence, "")
	require.NoError(t, err)
	return s
}

func sampleTranscript() *transcript.Transcript {
	return &transcript.Transcript{
		ID:            "c0ffee01",
		TechStack:     "Go, PostgreSQL",
		Position:      "Backend Engineer",
		QuestionCount: 1,
		Difficulty:    session.DifficultyBeginner,
		History: []transcript.Turn{
			{Role: session.RoleInterviewer, Content: "How would you find a slow query?"},
			{Role: session.RoleCandidate, Content: "EXPLAIN ANALYZE, then add the missing index."},
		},
	}
}

func newTestPipeline(e Extractor) *Pipeline {
	p := NewPipeline(e, "", zap.NewNop())
	p.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestEvaluateAggregatesScores(t *testing.T) {
	p := newTestPipeline(fakeExtractor{
		problems: &ProblemSolvingReport{
			Instances: []ProblemSolvingInstance{mustInstance(t, 9, 9, 9), mustInstance(t, 10, 8, 9)},
			Approach:  "Methodical",
		},
		skills: &TechnicalReport{
			Skills: []TechnicalSkill{
				mustSkill(t, "Go", ProficiencyExpert, ConfidenceVeryHigh),
				mustSkill(t, "PostgreSQL", ProficiencyAdvanced, ConfidenceHigh),
			},
			Strengths:     []string{"Query tuning"},
			KnowledgeGaps: []string{"Observability"},
		},
	})

	tr := sampleTranscript()
	before := *tr
	state := p.Evaluate(context.Background(), tr)

	assert.Equal(t, before, *tr, "transcript must not be modified")
	assert.Equal(t, CurrentCompleted, state.CurrentStep)
	assert.Empty(t, state.Errors)
	assert.Equal(t, map[string]StepStatus{
		StepProblemSolving: StepCompleted,
		StepTechnical:      StepCompleted,
		StepAggregation:    StepCompleted,
	}, state.StepStatus)

	assert.Equal(t, 9, state.ProblemSolvingScore)
	assert.Equal(t, 9, state.AnalyticalThinkingScore)
	assert.Equal(t, 9, state.DebuggingPotentialScore)
	assert.Equal(t, 9, state.TechnicalDepthScore)
	assert.Equal(t, 9, state.TechnicalConsistencyScore)
	assert.Equal(t, 9.0, state.OverallScore)
	assert.Equal(t, StrongHire, state.Recommendation)
	assert.Equal(t, ScoringVersion, state.ScoringVersion)
	assert.Equal(t, "Methodical", state.ProblemSolvingApproach)

	assert.Equal(t, []string{
		"Query tuning",
		"Expert proficiency in Go",
		"Advanced proficiency in PostgreSQL",
		"Strong problem-solving approach",
	}, state.KeyStrengths)
	assert.Equal(t, []string{"Observability"}, state.CriticalWeaknesses)
	assert.Equal(t, []string{"Observability"}, state.DevelopmentAreas)

	assert.Equal(t, "c0ffee01", state.CandidateID)
	assert.Equal(t, "Backend Engineer", state.PositionEvaluatedFor)
	assert.Equal(t, "2025-05-01T12:00:00Z", state.EvaluationTimestamp)
	assert.Same(t, tr, state.InterviewData)
}

func TestEvaluateIsolatesFailedStep(t *testing.T) {
	p := newTestPipeline(fakeExtractor{
		problems: &ProblemSolvingReport{
			Instances: []ProblemSolvingInstance{mustInstance(t, 8, 6, 5)},
		},
		skillsErr: errors.New("model overloaded"),
	})

	state := p.Evaluate(context.Background(), sampleTranscript())

	assert.Equal(t, CurrentCompletedWithErrors, state.CurrentStep)
	assert.Equal(t, StepFailed, state.StepStatus[StepTechnical])
	assert.Equal(t, StepCompleted, state.StepStatus[StepProblemSolving])
	assert.Equal(t, StepCompleted, state.StepStatus[StepAggregation])
	require.Len(t, state.Errors, 1)
	assert.Equal(t, "Technical evaluation failed: model overloaded", state.Errors[0])

	assert.Equal(t, 7, state.ProblemSolvingScore)
	assert.Equal(t, 5, state.AnalyticalThinkingScore)
	assert.Equal(t, 6, state.DebuggingPotentialScore)
	assert.Zero(t, state.TechnicalDepthScore)
	// (6*0.35 + 5*0.25) / 0.6
	assert.Equal(t, 5.6, state.OverallScore)
	assert.Equal(t, NoHire, state.Recommendation)
}

func TestEvaluateTechnicalOnly(t *testing.T) {
	p := newTestPipeline(fakeExtractor{
		problemsErr: errors.New("bad json"),
		skills: &TechnicalReport{
			Skills: []TechnicalSkill{mustSkill(t, "React", ProficiencyBeginner, ConfidenceLow)},
		},
	})

	state := p.Evaluate(context.Background(), sampleTranscript())

	assert.Equal(t, 3, state.TechnicalDepthScore)
	assert.Equal(t, 3, state.TechnicalConsistencyScore)
	assert.Equal(t, 3.0, state.OverallScore)
	assert.Equal(t, StrongNoHire, state.Recommendation)
	assert.Equal(t, []string{"Beginner-level React"}, state.CriticalWeaknesses)
	assert.Equal(t, []string{"Strengthen React"}, state.DevelopmentAreas)
}

func TestEvaluateAllStepsFailed(t *testing.T) {
	p := newTestPipeline(NewLLMExtractor(nil, 0, nil))

	tr := sampleTranscript()
	tr.ID = ""
	tr.Position = " "
	state := p.Evaluate(context.Background(), tr)

	assert.Equal(t, CurrentCompletedWithErrors, state.CurrentStep)
	assert.Len(t, state.Errors, 2)
	assert.Zero(t, state.OverallScore)
	assert.Empty(t, state.Recommendation)
	assert.Equal(t, "unknown", state.CandidateID)
	assert.Equal(t, DefaultPosition, state.PositionEvaluatedFor)
	assert.NoError(t, state.Validate())
}

func TestEvaluateCollectsRejectedRecords(t *testing.T) {
	p := newTestPipeline(fakeExtractor{
		problems: &ProblemSolvingReport{Rejected: []string{"problem_solving_instances[0]: bad"}},
		skills:   &TechnicalReport{Rejected: []string{"technical_skills[2]: bad"}},
	})

	state := p.Evaluate(context.Background(), sampleTranscript())

	assert.Equal(t, []string{"problem_solving_instances[0]: bad", "technical_skills[2]: bad"}, state.Errors)
	assert.Equal(t, StepCompleted, state.StepStatus[StepProblemSolving])
	assert.Equal(t, CurrentCompletedWithErrors, state.CurrentStep)
	assert.Zero(t, state.OverallScore)
}

func TestLoadErrorsAreDistinguishable(t *testing.T) {
	p := newTestPipeline(fakeExtractor{})
	dir := t.TempDir()

	_, err := p.Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, transcript.ErrNotFound)
	assert.NotErrorIs(t, err, transcript.ErrMalformed)

	path := filepath.Join(dir, "bad.json")
	doc := `{"tech_stack":"Go","position":"Dev","question_count":1,"difficulty":"beginner","conversation_history":"not a list","is_complete":false}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err = p.Load(path)
	assert.ErrorIs(t, err, transcript.ErrMalformed)
	assert.NotErrorIs(t, err, transcript.ErrNotFound)
}

// randomGenerator answers extraction prompts with random, mostly valid JSON.
type randomGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (g *randomGenerator) Generate(_ context.Context, system, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rnd.Intn(10) == 0 {
		return "", errors.New("transient failure")
	}

	var b strings.Builder
	if system == problemSolvingPrompt {
		b.WriteString(`{"problem_solving_instances": [`)
		for i, n := 0, g.rnd.Intn(5); i < n; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `{"problem_statement":"p%d","solution":"s","approach_quality":%d,"solution_effectiveness":%d,"reasoning_clarity":%d}`,
				i, g.rating(), g.rating(), g.rating())
		}
		b.WriteString(`]}`)
		return b.String(), nil
	}

	levels := []string{"beginner", "intermediate", "advanced", "expert", "guru"}
	confidences := []string{"low", "medium", "high", "very_high", "unsure"}
	b.WriteString(`{"technical_skills": [`)
	for i, n := 0, g.rnd.Intn(5); i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"skill_name":"skill%d","proficiency_level":%q,"evidence":["e"],"confidence":%q}`,
			i, levels[g.rnd.Intn(len(levels))], confidences[g.rnd.Intn(len(confidences))])
	}
	b.WriteString(`], "technical_knowledge_gaps": ["gap"]}`)
	return b.String(), nil
}

// rating is usually within [1,10] and sometimes out of range.
func (g *randomGenerator) rating() int {
	return g.rnd.Intn(13) - 1
}

func randomTranscript(rnd *rand.Rand, i int) *transcript.Transcript {
	tr := &transcript.Transcript{
		ID:         fmt.Sprintf("r%07d", i),
		TechStack:  "Go",
		Position:   "Engineer",
		Difficulty: session.DifficultyBeginner,
	}
	for j, n := 0, rnd.Intn(6); j < n; j++ {
		tr.History = append(tr.History,
			transcript.Turn{Role: session.RoleInterviewer, Content: "q"},
			transcript.Turn{Role: session.RoleCandidate, Content: strings.Repeat("word ", rnd.Intn(40))},
		)
		tr.QuestionCount++
	}
	return tr
}

func TestEvaluateScoresStayInBounds(t *testing.T) {
	gen := &randomGenerator{rnd: rand.New(rand.NewSource(42))}
	p := newTestPipeline(NewLLMExtractor(gen, 0, nil))
	rnd := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		state := p.Evaluate(context.Background(), randomTranscript(rnd, i))

		require.NoError(t, state.Validate(), "transcript %d", i)
		require.GreaterOrEqual(t, state.OverallScore, 0.0)
		require.LessOrEqual(t, state.OverallScore, 10.0)
		for _, score := range []int{
			state.ProblemSolvingScore,
			state.AnalyticalThinkingScore,
			state.DebuggingPotentialScore,
			state.TechnicalConsistencyScore,
			state.TechnicalDepthScore,
		} {
			require.GreaterOrEqual(t, score, 0)
			require.LessOrEqual(t, score, 10)
		}
		for _, inst := range state.ProblemSolvingInstances {
			require.NoError(t, inst.Validate())
		}
		require.NotEqual(t, StepFailed, state.StepStatus[StepAggregation])
	}
}

type recordingGenerator struct {
	mu       sync.Mutex
	messages []string
}

func (g *recordingGenerator) Generate(_ context.Context, _, message string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = append(g.messages, message)
	return `{}`, nil
}

func TestExtractorSendsConversation(t *testing.T) {
	gen := &recordingGenerator{}
	e := NewLLMExtractor(gen, 0, nil)
	tr := sampleTranscript()

	_, err := e.ProblemSolving(context.Background(), tr)
	require.NoError(t, err)
	_, err = e.TechnicalSkills(context.Background(), tr)
	require.NoError(t, err)

	require.Len(t, gen.messages, 2)
	for _, msg := range gen.messages {
		assert.Contains(t, msg, "Conversation:\n"+tr.Conversation())
		assert.Contains(t, msg, "Candidate: EXPLAIN ANALYZE, then add the missing index.")
		assert.Contains(t, msg, `"position": "Backend Engineer"`)
	}
}

func TestEvaluateWarnsWithoutCandidateAnswers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := NewPipeline(fakeExtractor{problems: &ProblemSolvingReport{}, skills: &TechnicalReport{}}, "", zap.New(core))

	tr := sampleTranscript()
	p.Evaluate(context.Background(), tr)
	assert.Zero(t, logs.FilterMessage("transcript has no candidate answers").Len())

	tr.History = tr.History[:1]
	p.Evaluate(context.Background(), tr)
	assert.Equal(t, 1, logs.FilterMessage("transcript has no candidate answers").Len())
}
