package interview

import (
	"fmt"
	"strings"

	"github.com/prep-piper/interviewer/internal/session"
)

const summaryRule = "==================================================================="

// RenderCompletion returns the message shown when the last answer was recorded.
func RenderCompletion(s *session.Session, maxQuestions int) string {
	var b strings.Builder
	b.WriteString("Interview Complete!\n\n")
	fmt.Fprintf(&b, "Thank you for participating in this %s interview!\n\n", s.Position)
	b.WriteString("Session Summary:\n")
	fmt.Fprintf(&b, "- Questions Answered: %d/%d\n", s.QuestionCount, maxQuestions)
	fmt.Fprintf(&b, "- Tech Stack Covered: %s\n", s.TechStackString())
	fmt.Fprintf(&b, "- Final Difficulty: %s\n\n", s.Difficulty.Title())
	b.WriteString("Type 'summary' for detailed conversation history.")
	return b.String()
}

// RenderSummary renders the session metadata and its full transcript.
func RenderSummary(s *session.Session, maxQuestions int) string {
	var b strings.Builder
	b.WriteString("DETAILED INTERVIEW SUMMARY\n")
	b.WriteString(summaryRule)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Session ID: %s\n", s.ID)
	fmt.Fprintf(&b, "Position: %s\n", s.Position)
	fmt.Fprintf(&b, "Tech Stack: %s\n", s.TechStackString())
	fmt.Fprintf(&b, "Questions: %d/%d\n", s.QuestionCount, maxQuestions)
	fmt.Fprintf(&b, "Difficulty: %s\n", s.Difficulty.Title())
	fmt.Fprintf(&b, "Status: %s\n", status(s))
	b.WriteString("\nFULL CONVERSATION:\n")

	for i, turn := range s.History {
		fmt.Fprintf(&b, "\n%d. %s:\n%s\n%s\n", i+1, turn.Role.Label(), turn.Content, strings.Repeat("-", 40))
	}
	return b.String()
}

func status(s *session.Session) string {
	switch {
	case s.IsComplete:
		return "Complete"
	case s.EndedEarly:
		return "Ended Early"
	default:
		return "In Progress"
	}
}

// RenderEarlyTermination returns the farewell for an interview ended before completion.
// The wording depends on how many questions were answered.
func RenderEarlyTermination(s *session.Session, maxQuestions int) string {
	stack := s.TechStackString()
	switch {
	case s.QuestionCount == 0:
		return fmt.Sprintf("I understand you need to end the interview before we could get started. "+
			"Thank you for your time, and best of luck with your %s role search!", s.Position)
	case s.QuestionCount == 1:
		return fmt.Sprintf("Thank you for the question we covered about %s. "+
			"While we only got through one question, I appreciate the time you spent with me. "+
			"Best wishes for your %s career journey!", stack, s.Position)
	case s.QuestionCount*2 < maxQuestions:
		return fmt.Sprintf("Thank you for the %d questions we covered regarding %s. "+
			"While we didn't complete the full interview, I got some good insights into your technical background. "+
			"I wish you success in your %s role search!", s.QuestionCount, stack, s.Position)
	default:
		return fmt.Sprintf("We made good progress covering %d out of %d questions about %s. "+
			"That gave me valuable insight into your technical expertise and problem-solving approach. "+
			"Thank you for your time, and I wish you continued success in your %s career journey!",
			s.QuestionCount, maxQuestions, stack, s.Position)
	}
}

// RenderOpening returns the first interviewer message of a session.
func RenderOpening(s *session.Session) string {
	return fmt.Sprintf("Hello! I'm your interviewer for today's %s interview.\n\n"+
		"I see your tech stack includes: %s\n\n"+
		"Let's start with something fundamental. Can you explain what %s is and describe one project where you've used it effectively?",
		s.Position, s.TechStackString(), s.PrimaryTech())
}
