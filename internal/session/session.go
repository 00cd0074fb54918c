// Package session holds the interview session model and its repositories.
package session

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleInterviewer || r == RoleCandidate
}

// Label returns the role name used in rendered transcripts.
func (r Role) Label() string {
	switch r {
	case RoleInterviewer:
		return "Interviewer"
	case RoleCandidate:
		return "Candidate"
	default:
		return string(r)
	}
}

// Difficulty is the coarse question difficulty level. Levels are ordered.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

var difficultyOrder = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// ParseDifficulty converts s into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(difficultyOrder, d) {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// Rank returns the position of d in the progression, or -1 for unknown values.
func (d Difficulty) Rank() int {
	return slices.Index(difficultyOrder, d)
}

// Next returns the following level, staying at the last one.
func (d Difficulty) Next() Difficulty {
	rank := d.Rank()
	if rank < 0 {
		return DifficultyBeginner
	}
	return difficultyOrder[min(rank+1, len(difficultyOrder)-1)]
}

// Title returns the level with a capitalized first letter.
func (d Difficulty) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// Turn is one message exchanged in the interview.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one candidate's interview run.
type Session struct {
	ID            string     `json:"id"`
	TechStack     []string   `json:"tech_stack"`
	Position      string     `json:"position"`
	QuestionCount int        `json:"question_count"`
	Difficulty    Difficulty `json:"difficulty"`
	IsComplete    bool       `json:"is_complete"`
	EndedEarly    bool       `json:"ended_early"`
	History       []Turn     `json:"conversation_history"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ParseTechStack splits a comma-separated technology list, dropping empty entries.
func ParseTechStack(raw string) []string {
	parts := strings.Split(raw, ",")
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			stack = append(stack, part)
		}
	}
	return stack
}

// TechStackString joins the stack back into its comma-separated form.
func (s *Session) TechStackString() string {
	return strings.Join(s.TechStack, ", ")
}

// PrimaryTech returns the first declared technology.
func (s *Session) PrimaryTech() string {
	if len(s.TechStack) == 0 {
		return ""
	}
	return s.TechStack[0]
}

// Append adds a turn stamped with now.
func (s *Session) Append(role Role, content string, now time.Time) {
	s.History = append(s.History, Turn{Role: role, Content: content, Timestamp: now})
	s.UpdatedAt = now
}

// CandidateTurns counts the answers given so far.
func (s *Session) CandidateTurns() int {
	count := 0
	for _, turn := range s.History {
		if turn.Role == RoleCandidate {
			count++
		}
	}
	return count
}

// Active reports whether the session still accepts answers.
func (s *Session) Active() bool {
	return !s.IsComplete && !s.EndedEarly
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.TechStack = slices.Clone(s.TechStack)
	c.History = slices.Clone(s.History)
	return &c
}
