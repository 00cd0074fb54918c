// Package transcript reads and writes the persisted interview transcript.
package transcript

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/prep-piper/interviewer/internal/session"
)

var (
	// ErrNotFound is returned when the transcript file does not exist.
	ErrNotFound = errors.New("transcript not found")
	// ErrMalformed is returned when the file is not a well-formed transcript.
	ErrMalformed = errors.New("malformed transcript")
)

const fileExt = ".json"

var requiredFields = []string{
	"tech_stack",
	"position",
	"question_count",
	"difficulty",
	"conversation_history",
	"is_complete",
}

var (
	requiredTurnFields = []string{"role", "content"}
	optionalTurnFields = []string{"timestamp"}
)

// Turn is one persisted message. Timestamp is optional on load.
type Turn struct {
	Role      session.Role `json:"role" yaml:"role"`
	Content   string       `json:"content" yaml:"content"`
	Timestamp *time.Time   `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Transcript is the persisted form of a session.
type Transcript struct {
	// ID is derived from the file name and is not stored in the document.
	ID            string             `json:"-" yaml:"-"`
	TechStack     string             `json:"tech_stack" yaml:"tech_stack"`
	Position      string             `json:"position" yaml:"position"`
	QuestionCount int                `json:"question_count" yaml:"question_count"`
	Difficulty    session.Difficulty `json:"difficulty" yaml:"difficulty"`
	History       []Turn             `json:"conversation_history" yaml:"conversation_history"`
	IsComplete    bool               `json:"is_complete" yaml:"is_complete"`
}

// FromSession converts a session into its transcript.
func FromSession(s *session.Session) *Transcript {
	t := &Transcript{
		ID:            s.ID,
		TechStack:     s.TechStackString(),
		Position:      s.Position,
		QuestionCount: s.QuestionCount,
		Difficulty:    s.Difficulty,
		History:       make([]Turn, 0, len(s.History)),
		IsComplete:    s.IsComplete,
	}
	for _, turn := range s.History {
		item := Turn{Role: turn.Role, Content: turn.Content}
		if !turn.Timestamp.IsZero() {
			ts := turn.Timestamp.UTC()
			item.Timestamp = &ts
		}
		t.History = append(t.History, item)
	}
	return t
}

// Conversation renders the history as role-labeled blocks.
func (t *Transcript) Conversation() string {
	var b strings.Builder
	for i, turn := range t.History {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(turn.Role.Label())
		b.WriteString(": ")
		b.WriteString(turn.Content)
	}
	return b.String()
}

// CandidateAnswers returns the candidate turns' content in order.
func (t *Transcript) CandidateAnswers() []string {
	var answers []string
	for _, turn := range t.History {
		if turn.Role == session.RoleCandidate {
			answers = append(answers, turn.Content)
		}
	}
	return answers
}

// Path returns the file a transcript with id is stored at under dir.
func Path(dir, id string) string {
	return filepath.Join(dir, id+fileExt)
}

// Load reads and strictly validates the transcript at path.
func Load(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading transcript %s: %w", path, err)
	}

	t, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return t, nil
}

// Decode parses a transcript document. Every failure wraps ErrMalformed.
func Decode(data []byte) (*Transcript, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrMalformed)
	}

	if err := checkFields("", fields, requiredFields, nil); err != nil {
		return nil, err
	}

	var turns []json.RawMessage
	if err := json.Unmarshal(fields["conversation_history"], &turns); err != nil {
		return nil, fmt.Errorf("%w: conversation_history: %v", ErrMalformed, err)
	}
	for i, raw := range turns {
		var turn map[string]json.RawMessage
		if err := json.Unmarshal(raw, &turn); err != nil || turn == nil {
			return nil, fmt.Errorf("%w: conversation_history[%d] is not an object", ErrMalformed, i)
		}
		if err := checkFields(fmt.Sprintf("conversation_history[%d].", i), turn, requiredTurnFields, optionalTurnFields); err != nil {
			return nil, err
		}
	}

	var t Transcript
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &t, nil
}

// checkFields requires every name in required to be present and non-null and
// rejects keys outside required and optional. Keys match exactly.
func checkFields(prefix string, fields map[string]json.RawMessage, required, optional []string) error {
	for _, name := range required {
		raw, ok := fields[name]
		if !ok {
			return fmt.Errorf("%w: missing field %q", ErrMalformed, prefix+name)
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return fmt.Errorf("%w: field %q is null", ErrMalformed, prefix+name)
		}
	}
	for name := range fields {
		if !slices.Contains(required, name) && !slices.Contains(optional, name) {
			return fmt.Errorf("%w: unknown field %q", ErrMalformed, prefix+name)
		}
	}
	return nil
}

func (t *Transcript) validate() error {
	if t.QuestionCount < 0 {
		return fmt.Errorf("question_count must not be negative, got %d", t.QuestionCount)
	}
	if t.Difficulty.Rank() < 0 {
		return fmt.Errorf("unknown difficulty %q", t.Difficulty)
	}
	for i, turn := range t.History {
		if !turn.Role.Valid() {
			return fmt.Errorf("conversation_history[%d]: unknown role %q", i, turn.Role)
		}
	}
	return nil
}

// Save writes t to <dir>/<id>.json. The file is replaced atomically.
func Save(dir string, t *Transcript) (string, error) {
	if t == nil || t.ID == "" {
		return "", errors.New("transcript id is required")
	}

	doc := *t
	if doc.History == nil {
		doc.History = []Turn{}
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding transcript: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating transcripts dir: %w", err)
	}

	path := Path(dir, t.ID)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting transcript permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
