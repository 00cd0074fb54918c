package interview

import (
	"fmt"
	"strings"

	"github.com/prep-piper/interviewer/internal/session"
)

const (
	PolicyStatic      = "static"
	PolicyProgressive = "progressive"

	DefaultAdvanceAfter   = 2
	DefaultCompetentWords = 25
)

// DifficultyPolicy decides the session difficulty after an answer was recorded.
// Implementations must be pure and never lower the level.
type DifficultyPolicy interface {
	Next(current session.Difficulty, history []session.Turn) session.Difficulty
}

// StaticPolicy keeps the level the session started with.
type StaticPolicy struct{}

func (StaticPolicy) Next(current session.Difficulty, _ []session.Turn) session.Difficulty {
	return current
}

// ProgressivePolicy advances one level for every AdvanceAfter consecutive
// competent answers at the end of the history. An answer is competent when it
// has at least CompetentWords words.
type ProgressivePolicy struct {
	AdvanceAfter   int
	CompetentWords int
}

func (p ProgressivePolicy) Next(current session.Difficulty, history []session.Turn) session.Difficulty {
	advanceAfter := p.AdvanceAfter
	if advanceAfter <= 0 {
		advanceAfter = DefaultAdvanceAfter
	}
	words := p.CompetentWords
	if words <= 0 {
		words = DefaultCompetentWords
	}

	streak := 0
	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		if turn.Role != session.RoleCandidate {
			continue
		}
		if len(strings.Fields(turn.Content)) < words {
			break
		}
		streak++
	}

	// only advance on the answer that completes a streak block
	if streak == 0 || streak%advanceAfter != 0 {
		return current
	}
	return current.Next()
}

// NewPolicy builds a policy by name. An empty name selects the static policy.
func NewPolicy(name string, advanceAfter, competentWords int) (DifficultyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyStatic:
		return StaticPolicy{}, nil
	case PolicyProgressive:
		return ProgressivePolicy{AdvanceAfter: advanceAfter, CompetentWords: competentWords}, nil
	default:
		return nil, fmt.Errorf("unknown difficulty policy %q", name)
	}
}
