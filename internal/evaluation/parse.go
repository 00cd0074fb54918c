package evaluation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ProblemSolvingReport is the parsed output of the problem-solving extractor.
type ProblemSolvingReport struct {
	Instances []ProblemSolvingInstance
	Approach  string
	// Rejected lists records dropped because they failed validation.
	Rejected []string
}

// TechnicalReport is the parsed output of the technical-skills extractor.
type TechnicalReport struct {
	Skills        []TechnicalSkill
	KnowledgeGaps []string
	Strengths     []string
	Rejected      []string
}

func parseProblemSolving(raw string) (*ProblemSolvingReport, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	items, err := coerceList(data["problem_solving_instances"])
	if err != nil {
		return nil, fmt.Errorf("problem_solving_instances: %w", err)
	}

	report := &ProblemSolvingReport{
		Instances: make([]ProblemSolvingInstance, 0, len(items)),
		Approach:  coerceString(data["problem_solving_approach"]),
	}
	for i, item := range items {
		instance, err := problemSolvingFromMap(item)
		if err != nil {
			report.Rejected = append(report.Rejected, fmt.Sprintf("problem_solving_instances[%d]: %v", i, err))
			continue
		}
		report.Instances = append(report.Instances, instance)
	}
	return report, nil
}

func problemSolvingFromMap(v any) (ProblemSolvingInstance, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return ProblemSolvingInstance{}, fmt.Errorf("expected an object, got %T", v)
	}

	approach, err1 := coerceInt(m["approach_quality"])
	effectiveness, err2 := coerceInt(m["solution_effectiveness"])
	clarity, err3 := coerceInt(m["reasoning_clarity"])
	if err := errors.Join(
		wrapField("approach_quality", err1),
		wrapField("solution_effectiveness", err2),
		wrapField("reasoning_clarity", err3),
	); err != nil {
		return ProblemSolvingInstance{}, err
	}

	return NewProblemSolvingInstance(
		coerceString(m["problem_statement"]),
		coerceString(m["solution"]),
		approach, effectiveness, clarity,
	)
}

func parseTechnical(raw string) (*TechnicalReport, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	items, err := coerceList(data["technical_skills"])
	if err != nil {
		return nil, fmt.Errorf("technical_skills: %w", err)
	}

	report := &TechnicalReport{
		Skills:        make([]TechnicalSkill, 0, len(items)),
		KnowledgeGaps: coerceStrings(data["technical_knowledge_gaps"]),
		Strengths:     coerceStrings(data["technical_strengths"]),
	}
	for i, item := range items {
		skill, err := technicalSkillFromMap(item)
		if err != nil {
			report.Rejected = append(report.Rejected, fmt.Sprintf("technical_skills[%d]: %v", i, err))
			continue
		}
		report.Skills = append(report.Skills, skill)
	}
	return report, nil
}

func technicalSkillFromMap(v any) (TechnicalSkill, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return TechnicalSkill{}, fmt.Errorf("expected an object, got %T", v)
	}

	level := ProficiencyBeginner
	if raw := coerceString(m["proficiency_level"]); raw != "" {
		parsed, err := ParseProficiency(raw)
		if err != nil {
			return TechnicalSkill{}, err
		}
		level = parsed
	}

	confidence := ConfidenceLow
	if raw := coerceString(m["confidence"]); raw != "" {
		parsed, err := ParseConfidence(raw)
		if err != nil {
			return TechnicalSkill{}, err
		}
		confidence = parsed
	}

	return NewTechnicalSkill(
		coerceString(m["skill_name"]),
		level,
		coerceStrings(m["evidence"]),
		confidence,
		coerceString(m["comments"]),
	)
}

func decodeObject(raw string) (map[string]any, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, errors.New("empty model response")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	if data == nil {
		return nil, errors.New("model response is not a JSON object")
	}
	return data, nil
}

func wrapField(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// extractJSON strips markdown fences and any prose around the outermost object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	if !strings.HasPrefix(raw, "{") {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start != -1 && end > start {
			raw = raw[start : end+1]
		}
	}
	return raw
}

func coerceList(v any) ([]any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return val, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// coerceInt accepts whole numbers in any JSON form; fractions are rejected.
func coerceInt(v any) (int, error) {
	if v == nil {
		return 0, errors.New("value is missing")
	}
	f := coerceFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a number", v)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", v)
	}
	return int(f), nil
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStrings(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := coerceString(val); s != "" {
			return []string{s}
		}
		return nil
	}
}
