// Package evaluation turns an interview transcript into a scored assessment.
package evaluation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/prep-piper/interviewer/internal/transcript"
)

const (
	MinRating = 1
	MaxRating = 10
	MinScore  = 0
	MaxScore  = 10

	DefaultPosition = "Frontend Developer"
	defaultComments = "No additional comments"
	noEvidence      = "No evidence found"
)

// Proficiency is the assessed level of a technical skill.
type Proficiency string

const (
	ProficiencyBeginner     Proficiency = "beginner"
	ProficiencyIntermediate Proficiency = "intermediate"
	ProficiencyAdvanced     Proficiency = "advanced"
	ProficiencyExpert       Proficiency = "expert"
)

// ParseProficiency normalizes s ("Expert", " advanced ") into a Proficiency.
func ParseProficiency(s string) (Proficiency, error) {
	p := Proficiency(normalizeEnum(s))
	switch p {
	case ProficiencyBeginner, ProficiencyIntermediate, ProficiencyAdvanced, ProficiencyExpert:
		return p, nil
	}
	return "", fmt.Errorf("unknown proficiency level %q", s)
}

// Points maps the level onto the 0-10 score scale.
func (p Proficiency) Points() float64 {
	switch p {
	case ProficiencyBeginner:
		return 2.5
	case ProficiencyIntermediate:
		return 5
	case ProficiencyAdvanced:
		return 7.5
	case ProficiencyExpert:
		return 10
	default:
		return 0
	}
}

// Confidence is how sure the assessment of a skill is.
type Confidence string

const (
	ConfidenceLow      Confidence = "low"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceHigh     Confidence = "high"
	ConfidenceVeryHigh Confidence = "very_high"
)

// ParseConfidence accepts "very high", "Very-High" and "very_high" alike.
func ParseConfidence(s string) (Confidence, error) {
	c := Confidence(normalizeEnum(s))
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh, ConfidenceVeryHigh:
		return c, nil
	}
	return "", fmt.Errorf("unknown confidence level %q", s)
}

func (c Confidence) Points() float64 {
	switch c {
	case ConfidenceLow:
		return 2.5
	case ConfidenceMedium:
		return 5
	case ConfidenceHigh:
		return 7.5
	case ConfidenceVeryHigh:
		return 10
	default:
		return 0
	}
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// Recommendation is the hiring verdict derived from the overall score.
type Recommendation string

const (
	StrongHire   Recommendation = "Strong Hire"
	Hire         Recommendation = "Hire"
	NoHire       Recommendation = "No Hire"
	StrongNoHire Recommendation = "Strong No Hire"
)

func (r Recommendation) valid() bool {
	switch r {
	case StrongHire, Hire, NoHire, StrongNoHire:
		return true
	}
	return false
}

// ProblemSolvingInstance is one problem the candidate worked through.
type ProblemSolvingInstance struct {
	ProblemStatement      string `json:"problem_statement" yaml:"problem_statement"`
	Solution              string `json:"solution" yaml:"solution"`
	ApproachQuality       int    `json:"approach_quality" yaml:"approach_quality"`
	SolutionEffectiveness int    `json:"solution_effectiveness" yaml:"solution_effectiveness"`
	ReasoningClarity      int    `json:"reasoning_clarity" yaml:"reasoning_clarity"`
}

// NewProblemSolvingInstance returns a validated instance.
func NewProblemSolvingInstance(statement, solution string, approach, effectiveness, clarity int) (ProblemSolvingInstance, error) {
	p := ProblemSolvingInstance{
		ProblemStatement:      strings.TrimSpace(statement),
		Solution:              strings.TrimSpace(solution),
		ApproachQuality:       approach,
		SolutionEffectiveness: effectiveness,
		ReasoningClarity:      clarity,
	}
	if err := p.Validate(); err != nil {
		return ProblemSolvingInstance{}, err
	}
	return p, nil
}

func (p ProblemSolvingInstance) Validate() error {
	if p.ProblemStatement == "" {
		return errors.New("problem_statement is required")
	}
	return errors.Join(
		checkRange("approach_quality", p.ApproachQuality, MinRating, MaxRating),
		checkRange("solution_effectiveness", p.SolutionEffectiveness, MinRating, MaxRating),
		checkRange("reasoning_clarity", p.ReasoningClarity, MinRating, MaxRating),
	)
}

// TechnicalSkill is the assessment of one skill.
type TechnicalSkill struct {
	SkillName   string      `json:"skill_name" yaml:"skill_name"`
	Proficiency Proficiency `json:"proficiency_level" yaml:"proficiency_level"`
	Evidence    []string    `json:"evidence" yaml:"evidence"`
	Confidence  Confidence  `json:"confidence" yaml:"confidence"`
	Comments    string      `json:"comments" yaml:"comments"`
}

// NewTechnicalSkill returns a validated skill. Empty evidence and comments get placeholders.
func NewTechnicalSkill(name string, level Proficiency, evidence []string, confidence Confidence, comments string) (TechnicalSkill, error) {
	s := TechnicalSkill{
		SkillName:   strings.TrimSpace(name),
		Proficiency: level,
		Evidence:    compact(evidence),
		Confidence:  confidence,
		Comments:    strings.TrimSpace(comments),
	}
	if len(s.Evidence) == 0 {
		s.Evidence = []string{noEvidence}
	}
	if s.Comments == "" {
		s.Comments = defaultComments
	}
	if err := s.Validate(); err != nil {
		return TechnicalSkill{}, err
	}
	return s, nil
}

func (s TechnicalSkill) Validate() error {
	if s.SkillName == "" {
		return errors.New("skill_name is required")
	}
	if s.Proficiency.Points() == 0 {
		return fmt.Errorf("invalid proficiency_level %q", s.Proficiency)
	}
	if s.Confidence.Points() == 0 {
		return fmt.Errorf("invalid confidence %q", s.Confidence)
	}
	return nil
}

// StepStatus tracks one pipeline step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Pipeline steps and the values current_step moves through.
const (
	StepInitialization = "initialization"
	StepProblemSolving = "problem_solving"
	StepTechnical      = "technical_skills"
	StepExtraction     = "extraction"
	StepAggregation    = "aggregation"

	CurrentCompleted           = "completed"
	CurrentCompletedWithErrors = "completed_with_errors"
)

// State is the result of evaluating one transcript.
type State struct {
	InterviewData *transcript.Transcript `json:"interview_data" yaml:"interview_data"`
	CurrentStep   string                 `json:"current_step" yaml:"current_step"`
	Errors        []string               `json:"errors" yaml:"errors"`
	StepStatus    map[string]StepStatus  `json:"step_status" yaml:"step_status"`

	ProblemSolvingInstances []ProblemSolvingInstance `json:"problem_solving_instances" yaml:"problem_solving_instances"`
	ProblemSolvingScore     int                      `json:"problem_solving_score" yaml:"problem_solving_score"`
	AnalyticalThinkingScore int                      `json:"analytical_thinking_score" yaml:"analytical_thinking_score"`
	DebuggingPotentialScore int                      `json:"debugging_potential_score" yaml:"debugging_potential_score"`
	ProblemSolvingApproach  string                   `json:"problem_solving_approach" yaml:"problem_solving_approach"`

	TechnicalSkills           []TechnicalSkill `json:"technical_skills" yaml:"technical_skills"`
	TechnicalConsistencyScore int              `json:"technical_consistency_score" yaml:"technical_consistency_score"`
	TechnicalDepthScore       int              `json:"technical_depth_score" yaml:"technical_depth_score"`
	TechnicalKnowledgeGaps    []string         `json:"technical_knowledge_gaps" yaml:"technical_knowledge_gaps"`
	TechnicalStrengths        []string         `json:"technical_strengths" yaml:"technical_strengths"`

	OverallScore       float64        `json:"overall_score" yaml:"overall_score"`
	KeyStrengths       []string       `json:"key_strengths" yaml:"key_strengths"`
	CriticalWeaknesses []string       `json:"critical_weaknesses" yaml:"critical_weaknesses"`
	DevelopmentAreas   []string       `json:"development_areas" yaml:"development_areas"`
	Recommendation     Recommendation `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	ScoringVersion     string         `json:"scoring_version" yaml:"scoring_version"`

	EvaluationTimestamp  string `json:"evaluation_timestamp,omitempty" yaml:"evaluation_timestamp,omitempty"`
	CandidateID          string `json:"candidate_id,omitempty" yaml:"candidate_id,omitempty"`
	PositionEvaluatedFor string `json:"position_evaluated_for" yaml:"position_evaluated_for"`
}

func newState(t *transcript.Transcript) *State {
	return &State{
		InterviewData: t,
		CurrentStep:   StepInitialization,
		Errors:        []string{},
		StepStatus: map[string]StepStatus{
			StepProblemSolving: StepPending,
			StepTechnical:      StepPending,
			StepAggregation:    StepPending,
		},
		ProblemSolvingInstances: []ProblemSolvingInstance{},
		TechnicalSkills:         []TechnicalSkill{},
		TechnicalKnowledgeGaps:  []string{},
		TechnicalStrengths:      []string{},
		KeyStrengths:            []string{},
		CriticalWeaknesses:      []string{},
		DevelopmentAreas:        []string{},
		PositionEvaluatedFor:    DefaultPosition,
	}
}

// Validate checks every bounded field of the state.
func (s *State) Validate() error {
	var errs []error
	for i, p := range s.ProblemSolvingInstances {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("problem_solving_instances[%d]: %w", i, err))
		}
	}
	for i, skill := range s.TechnicalSkills {
		if err := skill.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("technical_skills[%d]: %w", i, err))
		}
	}

	errs = append(errs,
		checkRange("problem_solving_score", s.ProblemSolvingScore, MinScore, MaxScore),
		checkRange("analytical_thinking_score", s.AnalyticalThinkingScore, MinScore, MaxScore),
		checkRange("debugging_potential_score", s.DebuggingPotentialScore, MinScore, MaxScore),
		checkRange("technical_consistency_score", s.TechnicalConsistencyScore, MinScore, MaxScore),
		checkRange("technical_depth_score", s.TechnicalDepthScore, MinScore, MaxScore),
	)

	if math.IsNaN(s.OverallScore) || s.OverallScore < MinScore || s.OverallScore > MaxScore {
		errs = append(errs, fmt.Errorf("overall_score must be in [%d,%d], got %v", MinScore, MaxScore, s.OverallScore))
	}
	if s.Recommendation != "" && !s.Recommendation.valid() {
		errs = append(errs, fmt.Errorf("unknown recommendation %q", s.Recommendation))
	}
	if strings.TrimSpace(s.PositionEvaluatedFor) == "" {
		errs = append(errs, errors.New("position_evaluated_for is required"))
	}

	return errors.Join(errs...)
}

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be in [%d,%d], got %d", name, lo, hi, v)
	}
	return nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
