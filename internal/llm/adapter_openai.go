package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator implements Generator using OpenAI's chat completions API.
type OpenAIGenerator struct {
	client *openai.Client
	config Config
}

func NewOpenAIGenerator(cfg Config) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(cfg.APIKey),
		config: cfg,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, maxTokens int, stop []string) (Generation, error) {
	if prompt == "" {
		return Generation{}, nil
	}

	model := g.config.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Stop:        stop,
		Temperature: g.config.Temperature,
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("openai-llm: API call failed after %v: %v", elapsed, err)
		return Generation{}, fmt.Errorf("openai generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Generation{}, fmt.Errorf("openai generation: empty response")
	}

	log.Printf("openai-llm: generated %d tokens in %v", resp.Usage.CompletionTokens, elapsed)

	return Generation{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Duration:         elapsed.Seconds(),
	}, nil
}
