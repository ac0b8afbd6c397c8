package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hushtype/hushtype/internal/audio"
)

// WhisperCliAdapter implements Transcriber with a local whisper.cpp
// installation (the whisper-cli binary). Model is the full path to a ggml
// model file.
type WhisperCliAdapter struct {
	config Config
}

func NewWhisperCliAdapter(config Config) *WhisperCliAdapter {
	return &WhisperCliAdapter{config: config}
}

func (a *WhisperCliAdapter) Transcribe(ctx context.Context, samples []float32) (Result, error) {
	if len(samples) == 0 {
		return Result{}, nil
	}

	if _, err := os.Stat(a.config.Model); err != nil {
		return Result{}, fmt.Errorf("%w: model file %s: %v", ErrModelNotLoaded, a.config.Model, err)
	}
	whisperPath, err := exec.LookPath("whisper-cli")
	if err != nil {
		return Result{}, fmt.Errorf("%w: whisper-cli not found (install whisper.cpp)", ErrModelNotLoaded)
	}

	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("hushtype-%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(tmpFile, audio.EncodeWAV(samples), 0600); err != nil {
		return Result{}, fmt.Errorf("%w: write temp file: %v", ErrTranscriptionFailed, err)
	}
	defer os.Remove(tmpFile)

	lang := a.config.Language
	if lang == "" {
		lang = "auto"
	}

	args := []string{
		"-m", a.config.Model,
		"-l", lang,
		"-nt", // no timestamps
		"-np", // no progress
		"-f", tmpFile,
	}
	if a.config.Threads > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", a.config.Threads))
	}
	if a.config.Translate {
		args = append(args, "-tr")
	}

	cmd := exec.CommandContext(ctx, whisperPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Printf("whisper-cli: command failed after %v: %v\nstderr: %s", elapsed, err, stderr.String())
		return Result{}, fmt.Errorf("%w: whisper-cli: %v", ErrTranscriptionFailed, err)
	}

	text := strings.TrimSpace(stdout.String())
	log.Printf("whisper-cli: transcribed %.2fs of audio in %v: %q", audio.Duration(samples), elapsed, text)

	return Result{
		Text:     text,
		Language: detectedLanguage(stderr.String(), a.config.Language),
		Duration: audio.Duration(samples),
	}, nil
}

// detectedLanguage pulls the auto-detected language out of whisper-cli's
// stderr ("auto-detected language: en ..."); falls back to the forced one.
func detectedLanguage(stderr, forced string) string {
	if forced != "" {
		return forced
	}
	const marker = "auto-detected language: "
	idx := strings.Index(stderr, marker)
	if idx == -1 {
		return ""
	}
	rest := stderr[idx+len(marker):]
	if end := strings.IndexAny(rest, " \n\t("); end > 0 {
		return rest[:end]
	}
	return strings.TrimSpace(rest)
}
