package services

import (
	"fmt"
	"time"

	"github.com/echowrite/echowrite/internal/models"
)

// Turn is one prior exchange carried into a generation call.
type Turn struct {
	Role    string
	Content string
}

// TextGenerator is the external text-generation capability. Any error
// is fatal to the whole cycle; there is no retry or partial result.
type TextGenerator interface {
	GeneratePost(input, language string, history []Turn) (string, error)
	Critique(post, language string) (string, error)
}

// GenerationResult is the outcome of one full generation cycle.
type GenerationResult struct {
	FinalPost  string
	Iterations []models.Iteration
	Tokens     int
}

const generationRounds = 3

const improveInstruction = "Improve based on the feedback"

// GenerationService runs the fixed generate/critique loop that produces
// one social-media post plus a reviewable trace of the attempts.
type GenerationService struct {
	gen   TextGenerator
	delay time.Duration
}

func NewGenerationService(gen TextGenerator, delay time.Duration) *GenerationService {
	return &GenerationService{gen: gen, delay: delay}
}

// RunCycle executes exactly three generate/critique rounds. Round 1
// works from the raw user input; later rounds ask for an improvement
// with the full generation/critique history carried forward. The loop
// never terminates early, even if the output converges.
func (s *GenerationService) RunCycle(userInput, language string) (*GenerationResult, error) {
	iterations := make([]models.Iteration, 0, generationRounds)
	history := make([]Turn, 0, generationRounds*2)
	var current string

	for i := 0; i < generationRounds; i++ {
		input := userInput
		if i > 0 {
			input = improveInstruction
		}

		s.pause()
		generation, err := s.gen.GeneratePost(input, language, history)
		if err != nil {
			return nil, fmt.Errorf("generation round %d failed: %w", i+1, err)
		}
		current = generation

		s.pause()
		reflection, err := s.gen.Critique(generation, language)
		if err != nil {
			return nil, fmt.Errorf("critique round %d failed: %w", i+1, err)
		}

		iterations = append(iterations, models.Iteration{
			Generation: generation,
			Reflection: reflection,
		})

		history = append(history,
			Turn{Role: models.RoleAssistant, Content: generation},
			Turn{Role: models.RoleUser, Content: reflection},
		)
	}

	tokens := EstimateTokens(userInput)
	for _, iter := range iterations {
		tokens += EstimateTokens(iter.Generation)
		tokens += EstimateTokens(iter.Reflection)
	}

	return &GenerationResult{
		FinalPost:  current,
		Iterations: iterations,
		Tokens:     tokens,
	}, nil
}

// pause models the rate limiting applied in front of the external API.
func (s *GenerationService) pause() {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
}

// EstimateTokens is a cheap length-based proxy, not a real tokenizer.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
