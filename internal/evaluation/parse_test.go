package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around", in: "Here is the result:\n{\"a\":1}\nThanks!", want: `{"a":1}`},
		{name: "empty", in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int
		wantErr bool
	}{
		{name: "float", in: 7.0, want: 7},
		{name: "string", in: " 8 ", want: 8},
		{name: "int", in: 3, want: 3},
		{name: "fraction", in: 7.5, wantErr: true},
		{name: "word", in: "high", wantErr: true},
		{name: "missing", in: nil, wantErr: true},
		{name: "bool", in: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceInt(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseProblemSolvingRejectsInvalidRecords(t *testing.T) {
	raw := "```json\n" + `{
  "problem_solving_instances": [
    {"problem_statement": "Slow query", "solution": "Added an index", "approach_quality": 8, "solution_effectiveness": "7", "reasoning_clarity": 9},
    {"problem_statement": "Memory leak", "solution": "Restarted", "approach_quality": 11, "solution_effectiveness": 3, "reasoning_clarity": 4},
    {"problem_statement": "", "solution": "x", "approach_quality": 5, "solution_effectiveness": 5, "reasoning_clarity": 5},
    {"problem_statement": "Race", "solution": "Mutex", "approach_quality": 6.5, "solution_effectiveness": 6, "reasoning_clarity": 6},
    "not an object"
  ],
  "problem_solving_score": 42,
  "problem_solving_approach": "Measures first"
}` + "\n```"

	report, err := parseProblemSolving(raw)
	require.NoError(t, err)

	require.Len(t, report.Instances, 1)
	assert.Equal(t, ProblemSolvingInstance{
		ProblemStatement:      "Slow query",
		Solution:              "Added an index",
		ApproachQuality:       8,
		SolutionEffectiveness: 7,
		ReasoningClarity:      9,
	}, report.Instances[0])
	assert.Equal(t, "Measures first", report.Approach)

	require.Len(t, report.Rejected, 4)
	assert.Contains(t, report.Rejected[0], "problem_solving_instances[1]")
	assert.Contains(t, report.Rejected[0], "approach_quality must be in [1,10], got 11")
	assert.Contains(t, report.Rejected[1], "problem_statement is required")
	assert.Contains(t, report.Rejected[2], "not a whole number")
	assert.Contains(t, report.Rejected[3], "expected an object")
}

func TestParseProblemSolvingErrors(t *testing.T) {
	_, err := parseProblemSolving("I cannot evaluate this interview.")
	assert.Error(t, err)

	_, err = parseProblemSolving(`{"problem_solving_instances": "none"}`)
	assert.Error(t, err)

	report, err := parseProblemSolving(`{}`)
	require.NoError(t, err)
	assert.Empty(t, report.Instances)
}

func TestParseTechnical(t *testing.T) {
	raw := `{
  "technical_skills": [
    {"skill_name": "Go", "proficiency_level": "Advanced", "evidence": ["Explained channels", ""], "confidence": "very high", "comments": "Solid"},
    {"skill_name": "SQL", "evidence": "Wrote a join"},
    {"skill_name": "Kubernetes", "proficiency_level": "guru", "confidence": "high"},
    {"proficiency_level": "beginner"}
  ],
  "technical_knowledge_gaps": ["Testing", ""],
  "technical_strengths": "Concurrency"
}`

	report, err := parseTechnical(raw)
	require.NoError(t, err)

	require.Len(t, report.Skills, 2)
	assert.Equal(t, TechnicalSkill{
		SkillName:   "Go",
		Proficiency: ProficiencyAdvanced,
		Evidence:    []string{"Explained channels"},
		Confidence:  ConfidenceVeryHigh,
		Comments:    "Solid",
	}, report.Skills[0])
	assert.Equal(t, TechnicalSkill{
		SkillName:   "SQL",
		Proficiency: ProficiencyBeginner,
		Evidence:    []string{"Wrote a join"},
		Confidence:  ConfidenceLow,
		Comments:    defaultComments,
	}, report.Skills[1])

	assert.Equal(t, []string{"Testing"}, report.KnowledgeGaps)
	assert.Equal(t, []string{"Concurrency"}, report.Strengths)

	require.Len(t, report.Rejected, 2)
	assert.Contains(t, report.Rejected[0], `unknown proficiency level "guru"`)
	assert.Contains(t, report.Rejected[1], "skill_name is required")
}

func TestConstructorsValidateRanges(t *testing.T) {
	_, err := NewProblemSolvingInstance("p", "s", 0, 5, 5)
	assert.Error(t, err)
	_, err = NewProblemSolvingInstance("p", "s", 5, 5, 10)
	assert.NoError(t, err)

	_, err = NewTechnicalSkill("Go", Proficiency("guru"), nil, ConfidenceLow, "")
	assert.Error(t, err)
	_, err = NewTechnicalSkill("Go", ProficiencyExpert, nil, Confidence("sure"), "")
	assert.Error(t, err)

	skill, err := NewTechnicalSkill(" Go ", ProficiencyExpert, nil, ConfidenceHigh, "")
	require.NoError(t, err)
	assert.Equal(t, "Go", skill.SkillName)
	assert.Equal(t, []string{noEvidence}, skill.Evidence)
}
