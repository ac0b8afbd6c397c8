package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hushtype/hushtype/internal/audio"
)

// Capturer is the capture collaborator the pipeline depends on. Start
// begins accumulating microphone samples; Stop ends the session and returns
// everything captured since Start, oldest first.
type Capturer interface {
	Start(ctx context.Context) error
	Stop() []float32
	IsRecording() bool
}

type Config struct {
	Device       string // PipeWire target node, empty = default source
	BufferSize   int    // read chunk size in bytes
	RingCapacity int    // ring buffer capacity in samples
}

func DefaultConfig() Config {
	return Config{
		BufferSize:   4096,
		RingCapacity: audio.DefaultRingCapacity,
	}
}

// Recorder captures microphone audio with pw-record and accumulates the
// decoded samples in a ring buffer. The capture goroutine only ever blocks
// on the ring's lock; the overflow policy (overwrite oldest) lives in the
// ring itself.
type Recorder struct {
	config    Config
	ring      *audio.Ring
	recording atomic.Bool

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func NewRecorder(config Config) *Recorder {
	if config.RingCapacity <= 0 {
		config.RingCapacity = audio.DefaultRingCapacity
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 4096
	}
	return &Recorder{
		config: config,
		ring:   audio.NewRing(config.RingCapacity),
	}
}

func NewDefaultRecorder() *Recorder { return NewRecorder(DefaultConfig()) }

func (r *Recorder) IsRecording() bool {
	return r.recording.Load()
}

// Start launches the capture subprocess. Fails if a capture session is
// already running or PipeWire is unavailable.
func (r *Recorder) Start(ctx context.Context) error {
	if r.recording.Load() {
		return fmt.Errorf("already recording")
	}

	if err := CheckPipeWireAvailable(ctx); err != nil {
		return fmt.Errorf("PipeWire not available: %w", err)
	}

	captureCtx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(captureCtx, "pw-record", r.buildArgs()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start pw-record: %w", err)
	}

	r.mu.Lock()
	r.cmd = cmd
	r.cancel = cancel
	r.mu.Unlock()

	r.ring.Reset()
	r.recording.Store(true)

	// Log stderr lines to aid diagnostics.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("recording: pw-record: %s", scanner.Text())
		}
	}()

	r.wg.Add(1)
	go r.captureLoop(captureCtx, stdout)

	return nil
}

// Stop terminates the capture subprocess and drains the ring. Returns nil
// when nothing was captured. Safe to call when not recording.
func (r *Recorder) Stop() []float32 {
	if !r.recording.Load() {
		return nil
	}

	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()

	return r.ring.ReadAll()
}

func (r *Recorder) captureLoop(ctx context.Context, stdout io.Reader) {
	defer func() {
		r.recording.Store(false)

		// Ensure the child process is reaped.
		r.mu.Lock()
		if r.cmd != nil {
			_ = r.cmd.Wait()
			r.cmd = nil
		}
		r.mu.Unlock()

		r.wg.Done()
	}()

	buffer := make([]byte, r.config.BufferSize)
	var leftover byte
	haveLeftover := false

	for {
		n, readErr := stdout.Read(buffer)
		if n > 0 {
			chunk := buffer[:n]
			// s16le frames are 2 bytes; carry a split byte into the next read.
			if haveLeftover {
				chunk = append([]byte{leftover}, chunk...)
				haveLeftover = false
			}
			if len(chunk)%2 == 1 {
				leftover = chunk[len(chunk)-1]
				haveLeftover = true
				chunk = chunk[:len(chunk)-1]
			}
			r.ring.Write(audio.DecodeS16LE(chunk))
		}

		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && ctx.Err() == nil {
				log.Printf("recording: read audio: %v", readErr)
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (r *Recorder) buildArgs() []string {
	args := []string{
		"--format", "s16",
		"--rate", strconv.Itoa(audio.SampleRate),
		"--channels", "1",
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	// The positional stdout marker must come after every flag.
	return append(args, "-")
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// Use a short timeout to avoid hangs on misconfigured systems.
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}
