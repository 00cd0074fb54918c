package interview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prep-piper/interviewer/internal/session"
)

func answers(contents ...string) []session.Turn {
	var history []session.Turn
	for _, c := range contents {
		history = append(history,
			session.Turn{Role: session.RoleInterviewer, Content: "question"},
			session.Turn{Role: session.RoleCandidate, Content: c},
		)
	}
	return history
}

func TestStaticPolicyKeepsLevel(t *testing.T) {
	long := strings.Repeat("word ", 50)
	for _, d := range []session.Difficulty{session.DifficultyBeginner, session.DifficultyAdvanced} {
		assert.Equal(t, d, StaticPolicy{}.Next(d, answers(long, long, long, long)))
	}
}

func TestProgressivePolicy(t *testing.T) {
	policy := ProgressivePolicy{AdvanceAfter: 2, CompetentWords: 3}
	good := "a detailed enough answer"
	weak := "dunno"

	tests := []struct {
		name    string
		current session.Difficulty
		history []session.Turn
		want    session.Difficulty
	}{
		{name: "no answers", current: session.DifficultyBeginner, history: nil, want: session.DifficultyBeginner},
		{name: "one competent", current: session.DifficultyBeginner, history: answers(good), want: session.DifficultyBeginner},
		{name: "two competent", current: session.DifficultyBeginner, history: answers(good, good), want: session.DifficultyIntermediate},
		{name: "streak broken", current: session.DifficultyBeginner, history: answers(good, weak, good), want: session.DifficultyBeginner},
		{name: "weak last", current: session.DifficultyIntermediate, history: answers(good, good, weak), want: session.DifficultyIntermediate},
		{name: "third in a row does not advance", current: session.DifficultyIntermediate, history: answers(good, good, good), want: session.DifficultyIntermediate},
		{name: "fourth in a row advances again", current: session.DifficultyIntermediate, history: answers(good, good, good, good), want: session.DifficultyAdvanced},
		{name: "capped", current: session.DifficultyAdvanced, history: answers(good, good), want: session.DifficultyAdvanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Next(tt.current, tt.history))
		})
	}
}

func TestProgressivePolicyNeverLowersLevel(t *testing.T) {
	policy := ProgressivePolicy{AdvanceAfter: 1, CompetentWords: 2}
	level := session.DifficultyBeginner
	var history []session.Turn

	for i, c := range []string{"ok then", "no", "good answer here", "x", "fine answer", "more words here"} {
		history = append(history, answers(c)...)
		next := policy.Next(level, history)
		require.GreaterOrEqual(t, next.Rank(), level.Rank(), "answer %d", i)
		level = next
	}
	assert.Equal(t, session.DifficultyAdvanced, level)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("", 0, 0)
	require.NoError(t, err)
	assert.IsType(t, StaticPolicy{}, p)

	p, err = NewPolicy(" Progressive ", 3, 10)
	require.NoError(t, err)
	assert.Equal(t, ProgressivePolicy{AdvanceAfter: 3, CompetentWords: 10}, p)

	_, err = NewPolicy("adaptive", 0, 0)
	assert.Error(t, err)
}
