package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prep-piper/interviewer/internal/logger"
	"github.com/prep-piper/interviewer/internal/session"
)

// Messages returned instead of errors.
const (
	MsgSessionNotFound = "Session not found! Please start a new interview."
	MsgSummaryNotFound = "Session not found!"
	MsgAlreadyComplete = "Interview already completed! Type 'summary' for recap."
	MsgAlreadyEnded    = "Interview already ended. Type 'summary' for recap."
	MsgElaborate       = "I'd like to hear more from you. Please share your thoughts or ask for clarification if needed."
	MsgInternalError   = "Something went wrong while recording your answer. Please try again."
)

const (
	DefaultTechStack = "Python, JavaScript, React"
	DefaultPosition  = "Software Developer"

	idLength     = 8
	idMaxRetries = 5
)

// Orchestrator owns the interview lifecycle: created, active, then completed
// or ended early. It is the only writer of sessions in its repository.
type Orchestrator struct {
	repo      session.Repository
	questions *QuestionGenerator
	policy    DifficultyPolicy
	cfg       Config
	logger    *zap.Logger
	locks     *keyedMutex

	now   func() time.Time
	newID func() string
}

// New creates an Orchestrator. A nil policy keeps difficulty static.
func New(repo session.Repository, questions *QuestionGenerator, policy DifficultyPolicy, cfg Config, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if policy == nil {
		policy = StaticPolicy{}
	}
	if questions == nil {
		questions = NewQuestionGenerator(nil, cfg, log)
	}

	return &Orchestrator{
		repo:      repo,
		questions: questions,
		policy:    policy,
		cfg:       cfg.withDefaults(),
		logger:    log,
		locks:     newKeyedMutex(),
		now:       time.Now,
		newID:     newSessionID,
	}
}

func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}

// MaxQuestions returns the configured interview length.
func (o *Orchestrator) MaxQuestions() int {
	return o.cfg.MaxQuestions
}

// StartInterview creates a session and returns its id with the opening question.
func (o *Orchestrator) StartInterview(ctx context.Context, techStack, position string) (string, string, error) {
	stack := session.ParseTechStack(techStack)
	if len(stack) == 0 {
		stack = session.ParseTechStack(DefaultTechStack)
	}
	if position = strings.TrimSpace(position); position == "" {
		position = DefaultPosition
	}

	now := o.now()
	s := &session.Session{
		TechStack:  stack,
		Position:   position,
		Difficulty: session.DifficultyBeginner,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	opening := RenderOpening(s)
	s.Append(session.RoleInterviewer, opening, now)

	for attempt := 1; ; attempt++ {
		s.ID = o.newID()
		err := o.repo.Create(ctx, s)
		if err == nil {
			break
		}
		if !errors.Is(err, session.ErrExists) || attempt == idMaxRetries {
			return "", "", fmt.Errorf("creating session: %w", err)
		}
	}

	o.logger.Info("interview started",
		logger.SessionFields(s.ID, s.Position)...,
	)

	return s.ID, opening, nil
}

// ProcessAnswer records an answer and returns the next interviewer message.
// All failures are reported as user-facing messages.
func (o *Orchestrator) ProcessAnswer(ctx context.Context, id, answer string) string {
	reply, _ := o.Answer(ctx, id, answer)
	return reply
}

// Answer is ProcessAnswer that also returns the session as left by this call,
// read under the same per-session lock. The session is nil when it could not
// be loaded or the answer could not be committed.
func (o *Orchestrator) Answer(ctx context.Context, id, answer string) (string, *session.Session) {
	unlock := o.locks.Lock(id)
	defer unlock()

	s, err := o.repo.Get(ctx, id)
	if err != nil {
		return o.lookupFailure(id, err, MsgSessionNotFound), nil
	}

	switch {
	case s.IsComplete:
		return MsgAlreadyComplete, s
	case s.EndedEarly:
		return MsgAlreadyEnded, s
	}

	answer = strings.TrimSpace(answer)
	if len([]rune(answer)) < o.cfg.MinAnswerLength {
		return MsgElaborate, s
	}

	if turns := s.CandidateTurns(); turns != s.QuestionCount {
		o.logger.Warn("question count does not match recorded answers",
			append(logger.SessionFields(id, s.Position),
				zap.Int("question_count", s.QuestionCount),
				zap.Int("candidate_turns", turns),
			)...,
		)
	}

	now := o.now()
	s.Append(session.RoleCandidate, answer, now)
	s.QuestionCount++
	s.Difficulty = o.applyPolicy(s)

	var reply string
	if s.QuestionCount >= o.cfg.MaxQuestions {
		s.IsComplete = true
		reply = RenderCompletion(s, o.cfg.MaxQuestions)
	} else {
		reply = o.questions.NextQuestion(ctx, s)
		s.Append(session.RoleInterviewer, reply, o.now())
	}

	if err := o.repo.Update(ctx, s); err != nil {
		o.logger.Error("committing answer",
			append(logger.SessionFields(id, s.Position), zap.Error(err))...,
		)
		return MsgInternalError, nil
	}

	o.logger.Info("answer recorded",
		append(logger.SessionFields(id, s.Position),
			zap.Int("question_count", s.QuestionCount),
			zap.String("difficulty", string(s.Difficulty)),
			zap.Bool("is_complete", s.IsComplete),
		)...,
	)

	return reply, s
}

func (o *Orchestrator) applyPolicy(s *session.Session) session.Difficulty {
	next := o.policy.Next(s.Difficulty, s.History)
	// levels never go down
	if next.Rank() < s.Difficulty.Rank() {
		return s.Difficulty
	}
	return next
}

// EndInterview ends an active interview before all questions were answered.
func (o *Orchestrator) EndInterview(ctx context.Context, id string) string {
	unlock := o.locks.Lock(id)
	defer unlock()

	s, err := o.repo.Get(ctx, id)
	if err != nil {
		return o.lookupFailure(id, err, MsgSessionNotFound)
	}

	switch {
	case s.IsComplete:
		return MsgAlreadyComplete
	case s.EndedEarly:
		return MsgAlreadyEnded
	}

	s.EndedEarly = true
	farewell := RenderEarlyTermination(s, o.cfg.MaxQuestions)
	s.Append(session.RoleInterviewer, farewell, o.now())

	if err := o.repo.Update(ctx, s); err != nil {
		o.logger.Error("ending interview",
			append(logger.SessionFields(id, s.Position), zap.Error(err))...,
		)
		return MsgInternalError
	}

	o.logger.Info("interview ended early",
		append(logger.SessionFields(id, s.Position),
			zap.Int("question_count", s.QuestionCount),
			zap.Int("max_questions", o.cfg.MaxQuestions),
		)...,
	)

	return farewell
}

// Summary renders the session. It does not change it.
func (o *Orchestrator) Summary(ctx context.Context, id string) string {
	s, err := o.repo.Get(ctx, id)
	if err != nil {
		return o.lookupFailure(id, err, MsgSummaryNotFound)
	}
	return RenderSummary(s, o.cfg.MaxQuestions)
}

// Session returns a copy of the session with id.
func (o *Orchestrator) Session(ctx context.Context, id string) (*session.Session, error) {
	return o.repo.Get(ctx, id)
}

func (o *Orchestrator) lookupFailure(id string, err error, notFound string) string {
	if errors.Is(err, session.ErrNotFound) {
		return notFound
	}
	o.logger.Error("loading session", zap.String(logger.FieldSessionID, id), zap.Error(err))
	return MsgInternalError
}

// keyedMutex serializes work per key. Entries are dropped when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
