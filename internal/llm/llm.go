package llm

import (
	"context"
	"fmt"
)

// Generation is the outcome of a single text-generation call.
type Generation struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Duration         float64 // seconds
}

// Generator is the language-generation collaborator consumed by command
// plugins. One request, one response - no streaming.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, stop []string) (Generation, error)
}

// Config holds generator configuration
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float32
}

func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
	}
}

// NewGenerator creates a generator for the configured provider.
func NewGenerator(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAIGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
