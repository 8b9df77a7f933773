package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/echowrite/echowrite/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator returns canned outputs and records the history it
// was handed on each generation call.
type scriptedGenerator struct {
	genCalls     int
	critCalls    int
	failGenAt    int
	seenInputs   []string
	seenHistory  [][]Turn
	seenLanguage string
}

func (g *scriptedGenerator) GeneratePost(input, language string, history []Turn) (string, error) {
	g.genCalls++
	if g.failGenAt > 0 && g.genCalls == g.failGenAt {
		return "", errors.New("upstream unavailable")
	}
	g.seenInputs = append(g.seenInputs, input)
	g.seenHistory = append(g.seenHistory, append([]Turn(nil), history...))
	g.seenLanguage = language
	return fmt.Sprintf("post v%d", g.genCalls), nil
}

func (g *scriptedGenerator) Critique(post, language string) (string, error) {
	g.critCalls++
	return fmt.Sprintf("critique %d of %q", g.critCalls, post), nil
}

func TestRunCycleProducesThreeIterations(t *testing.T) {
	gen := &scriptedGenerator{}
	svc := NewGenerationService(gen, 0)

	result, err := svc.RunCycle("write a post about coffee", "en")
	require.NoError(t, err)

	require.Len(t, result.Iterations, 3)
	assert.Equal(t, "post v3", result.FinalPost)
	assert.Equal(t, result.Iterations[2].Generation, result.FinalPost)
	assert.Equal(t, 3, gen.genCalls)
	assert.Equal(t, 3, gen.critCalls)
}

func TestRunCycleCarriesHistoryForward(t *testing.T) {
	gen := &scriptedGenerator{}
	svc := NewGenerationService(gen, 0)

	_, err := svc.RunCycle("original input", "en")
	require.NoError(t, err)

	// Round 1 starts from the raw input with no history; later rounds
	// ask for an improvement over the accumulated exchange.
	assert.Equal(t, "original input", gen.seenInputs[0])
	assert.Empty(t, gen.seenHistory[0])

	assert.Equal(t, "Improve based on the feedback", gen.seenInputs[1])
	require.Len(t, gen.seenHistory[1], 2)
	assert.Equal(t, models.RoleAssistant, gen.seenHistory[1][0].Role)
	assert.Equal(t, "post v1", gen.seenHistory[1][0].Content)
	assert.Equal(t, models.RoleUser, gen.seenHistory[1][1].Role)

	assert.Equal(t, "Improve based on the feedback", gen.seenInputs[2])
	assert.Len(t, gen.seenHistory[2], 4)
}

func TestRunCycleTokenEstimate(t *testing.T) {
	gen := &scriptedGenerator{}
	svc := NewGenerationService(gen, 0)

	input := "write a post about coffee"
	result, err := svc.RunCycle(input, "en")
	require.NoError(t, err)

	expected := EstimateTokens(input)
	for _, iter := range result.Iterations {
		expected += EstimateTokens(iter.Generation)
		expected += EstimateTokens(iter.Reflection)
	}
	assert.Equal(t, expected, result.Tokens)
}

func TestRunCycleFailurePropagates(t *testing.T) {
	gen := &scriptedGenerator{failGenAt: 2}
	svc := NewGenerationService(gen, 0)

	result, err := svc.RunCycle("input", "en")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "round 2")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}
