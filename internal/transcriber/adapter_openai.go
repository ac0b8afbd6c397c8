package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hushtype/hushtype/internal/audio"
)

// OpenAIAdapter implements Transcriber against the OpenAI Whisper API.
type OpenAIAdapter struct {
	client *openai.Client
	config Config
}

func NewOpenAIAdapter(config Config) *OpenAIAdapter {
	return &OpenAIAdapter{
		client: openai.NewClient(config.APIKey),
		config: config,
	}
}

func (a *OpenAIAdapter) Transcribe(ctx context.Context, samples []float32) (Result, error) {
	if len(samples) == 0 {
		return Result{}, nil
	}

	wavData := audio.EncodeWAV(samples)

	// verbose_json carries the detected language and audio duration.
	req := openai.AudioRequest{
		Model:    a.config.Model,
		Reader:   bytes.NewReader(wavData),
		FilePath: "audio.wav",
		Language: a.config.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	start := time.Now()
	resp, err := a.client.CreateTranscription(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("openai-adapter: API call failed after %v: %v", elapsed, err)
		return Result{}, fmt.Errorf("%w: openai: %v", ErrTranscriptionFailed, err)
	}

	log.Printf("openai-adapter: transcribed %.2fs of audio in %v: %q",
		audio.Duration(samples), elapsed, resp.Text)

	return Result{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resultDuration(resp.Duration, samples),
	}, nil
}
