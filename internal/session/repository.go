package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no session has the requested id.
	ErrNotFound = errors.New("session not found")
	// ErrExists is returned by Create when the id is already taken.
	ErrExists = errors.New("session already exists")
)

// Repository stores sessions. Implementations must be safe for concurrent use
// and must store and return copies, never shared pointers.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	List(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, id string) error
}
