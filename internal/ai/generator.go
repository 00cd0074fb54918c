package ai

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by generators that have no backing provider.
var ErrUnavailable = errors.New("text generation is not configured")

// Generator produces text from a system instruction and a user message.
// Implementations may fail; callers decide how to degrade.
type Generator interface {
	Generate(ctx context.Context, system, message string) (string, error)
}

// Unavailable is a Generator that always fails with ErrUnavailable.
// It lets the interview run on fallback questions when no provider is configured.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}
