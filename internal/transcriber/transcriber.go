package transcriber

import (
	"context"
	"fmt"

	"github.com/hushtype/hushtype/internal/audio"
)

// Result is the outcome of a single batch transcription.
type Result struct {
	Text     string
	Language string  // ISO 639-1 code reported by the engine, may be empty
	Duration float64 // audio duration in seconds
}

// Transcriber converts 16 kHz mono float32 audio to text. One call per
// dictation session; there is no streaming in the batch pipeline.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32) (Result, error)
}

// Configuration for the transcriber
type Config struct {
	Provider  string // "openai" or "whisper-cli"
	APIKey    string
	Language  string // forced language, empty = auto-detect
	Model     string // API model name or whisper-cli model file path
	Threads   int    // CPU threads for local transcription (0 = auto)
	Translate bool   // translate to English instead of transcribing
}

func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Model:    "whisper-1",
	}
}

// New creates a transcriber for the configured provider.
func New(config Config) (Transcriber, error) {
	switch config.Provider {
	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		if config.Model == "" {
			config.Model = "whisper-1"
		}
		return NewOpenAIAdapter(config), nil

	case "whisper-cli":
		return NewWhisperCliAdapter(config), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}

// resultDuration fills in the duration from the sample count when the
// engine did not report one.
func resultDuration(reported float64, samples []float32) float64 {
	if reported > 0 {
		return reported
	}
	return audio.Duration(samples)
}
