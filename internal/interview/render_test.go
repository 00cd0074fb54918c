package interview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/prep-piper/interviewer/internal/session"
)

func renderSession(count int) *session.Session {
	return &session.Session{
		ID:            "abcd1234",
		TechStack:     []string{"Go", "Kafka"},
		Position:      "Platform Engineer",
		QuestionCount: count,
		Difficulty:    session.DifficultyIntermediate,
	}
}

func TestRenderEarlyTermination(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{count: 0, want: "before we could get started"},
		{count: 1, want: "we only got through one question"},
		{count: 2, want: "Thank you for the 2 questions we covered regarding Go, Kafka"},
		{count: 3, want: "We made good progress covering 3 out of 5 questions about Go, Kafka"},
		{count: 4, want: "We made good progress covering 4 out of 5"},
	}

	for _, tt := range tests {
		got := RenderEarlyTermination(renderSession(tt.count), 5)
		assert.Contains(t, got, tt.want, "count %d", tt.count)
		assert.Contains(t, got, "Platform Engineer")
	}
}

func TestRenderCompletion(t *testing.T) {
	got := RenderCompletion(renderSession(5), 5)

	assert.True(t, strings.HasPrefix(got, "Interview Complete!"))
	assert.Contains(t, got, "Questions Answered: 5/5")
	assert.Contains(t, got, "Tech Stack Covered: Go, Kafka")
	assert.Contains(t, got, "Final Difficulty: Intermediate")
}

func TestRenderSummary(t *testing.T) {
	s := renderSession(1)
	now := time.Now()
	s.Append(session.RoleInterviewer, "What is a consumer group?", now)
	s.Append(session.RoleCandidate, "Consumers sharing partitions.", now)

	got := RenderSummary(s, 5)

	assert.Contains(t, got, "Session ID: abcd1234")
	assert.Contains(t, got, "Questions: 1/5")
	assert.Contains(t, got, "Status: In Progress")
	assert.Contains(t, got, "1. Interviewer:\nWhat is a consumer group?")
	assert.Contains(t, got, "2. Candidate:\nConsumers sharing partitions.")

	s.EndedEarly = true
	assert.Contains(t, RenderSummary(s, 5), "Status: Ended Early")
	s.IsComplete = true
	assert.Contains(t, RenderSummary(s, 5), "Status: Complete")
}

func TestRenderOpening(t *testing.T) {
	got := RenderOpening(renderSession(0))
	assert.Contains(t, got, "today's Platform Engineer interview")
	assert.Contains(t, got, "Can you explain what Go is")
}
