package evaluation

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// ScoringVersion identifies the combination rule below. Bump it whenever a
// weight, a point table or a threshold changes.
const ScoringVersion = "v1"

const (
	weightTechnical      = 0.40
	weightProblemSolving = 0.35
	weightCommunication  = 0.25

	strongHireThreshold = 8.0
	hireThreshold       = 6.5
	noHireThreshold     = 4.0
)

// aggregate fills every derived score of s from its records. Components whose
// step failed or produced no records do not count towards the overall score.
func aggregate(s *State) {
	s.ScoringVersion = ScoringVersion

	problemsOK := s.StepStatus[StepProblemSolving] == StepCompleted && len(s.ProblemSolvingInstances) > 0
	skillsOK := s.StepStatus[StepTechnical] == StepCompleted && len(s.TechnicalSkills) > 0

	var components, weights []float64

	if problemsOK {
		var combined, clarity, weakest []float64
		for _, p := range s.ProblemSolvingInstances {
			combined = append(combined, float64(p.ApproachQuality+p.SolutionEffectiveness)/2)
			clarity = append(clarity, float64(p.ReasoningClarity))
			weakest = append(weakest, float64(min(p.ApproachQuality, p.SolutionEffectiveness)))
		}
		s.ProblemSolvingScore = roundScore(mean(combined))
		s.AnalyticalThinkingScore = roundScore(mean(clarity))
		s.DebuggingPotentialScore = roundScore(mean(weakest))

		components = append(components,
			float64(s.ProblemSolvingScore+s.AnalyticalThinkingScore)/2,
			mean(clarity),
		)
		weights = append(weights, weightProblemSolving, weightCommunication)
	}

	if skillsOK {
		var depth, consistency []float64
		for _, skill := range s.TechnicalSkills {
			depth = append(depth, skill.Proficiency.Points())
			consistency = append(consistency, skill.Confidence.Points())
		}
		s.TechnicalDepthScore = roundScore(mean(depth))
		s.TechnicalConsistencyScore = roundScore(mean(consistency))

		components = append(components, float64(s.TechnicalDepthScore+s.TechnicalConsistencyScore)/2)
		weights = append(weights, weightTechnical)
	}

	if len(components) == 0 {
		s.OverallScore = 0
		s.Recommendation = ""
	} else {
		var total, weightSum float64
		for i, c := range components {
			total += c * weights[i]
			weightSum += weights[i]
		}
		s.OverallScore = math.Round(total/weightSum*10) / 10
		s.Recommendation = recommend(s.OverallScore)
	}

	s.KeyStrengths = keyStrengths(s)
	s.CriticalWeaknesses = criticalWeaknesses(s)
	s.DevelopmentAreas = developmentAreas(s)
}

func recommend(overall float64) Recommendation {
	switch {
	case overall >= strongHireThreshold:
		return StrongHire
	case overall >= hireThreshold:
		return Hire
	case overall >= noHireThreshold:
		return NoHire
	default:
		return StrongNoHire
	}
}

func keyStrengths(s *State) []string {
	out := slices.Clone(s.TechnicalStrengths)
	for _, skill := range s.TechnicalSkills {
		if skill.Proficiency == ProficiencyAdvanced || skill.Proficiency == ProficiencyExpert {
			out = append(out, fmt.Sprintf("%s proficiency in %s", titleCase(string(skill.Proficiency)), skill.SkillName))
		}
	}
	if s.ProblemSolvingScore >= 8 {
		out = append(out, "Strong problem-solving approach")
	}
	return dedupe(out)
}

func criticalWeaknesses(s *State) []string {
	var out []string
	for _, skill := range s.TechnicalSkills {
		if skill.Proficiency == ProficiencyBeginner {
			out = append(out, fmt.Sprintf("Beginner-level %s", skill.SkillName))
		}
	}
	out = append(out, s.TechnicalKnowledgeGaps...)
	if len(s.ProblemSolvingInstances) > 0 && s.ProblemSolvingScore < 5 {
		out = append(out, "Weak problem-solving approach")
	}
	return dedupe(out)
}

func developmentAreas(s *State) []string {
	out := slices.Clone(s.TechnicalKnowledgeGaps)
	for _, skill := range s.TechnicalSkills {
		if skill.Proficiency == ProficiencyBeginner {
			out = append(out, "Strengthen "+skill.SkillName)
		}
	}
	if len(s.ProblemSolvingInstances) > 0 && s.DebuggingPotentialScore < 5 {
		out = append(out, "Practice systematic debugging")
	}
	return dedupe(out)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func roundScore(v float64) int {
	return int(math.Round(v))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// dedupe drops blanks and case-insensitive duplicates, keeping order.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
