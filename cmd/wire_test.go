package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/prep-piper/interviewer/internal/ai"
)

func TestNewGeneratorFallsBackWithoutKey(t *testing.T) {
	t.Setenv(geminiKeyEnv, "")

	config := &Config{}
	config.AI.Provider = providerGemini
	assert.IsType(t, ai.Unavailable{}, newGenerator(context.Background(), config, zap.NewNop()))

	config.AI.Provider = providerNone
	assert.IsType(t, ai.Unavailable{}, newGenerator(context.Background(), config, zap.NewNop()))
}
