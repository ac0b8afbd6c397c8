package pipeline

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hushtype/hushtype/internal/activewindow"
	"github.com/hushtype/hushtype/internal/audio"
	"github.com/hushtype/hushtype/internal/command"
	"github.com/hushtype/hushtype/internal/history"
	"github.com/hushtype/hushtype/internal/injection"
	"github.com/hushtype/hushtype/internal/notify"
	"github.com/hushtype/hushtype/internal/plugin"
	"github.com/hushtype/hushtype/internal/recording"
	"github.com/hushtype/hushtype/internal/transcriber"
)

type Status string

const (
	Idle         Status = "idle"
	Recording    Status = "recording"
	Transcribing Status = "transcribing"
	Injecting    Status = "injecting"
	Error        Status = "error"
)

// State is the presentation-observable snapshot, updated synchronously
// with every transition.
type State struct {
	Status                   Status
	IsRecording              bool
	IsProcessing             bool
	CurrentError             string // empty = none
	LastTranscriptionPreview string
}

// Injector is the slice of the injection strategy the pipeline needs.
type Injector interface {
	Inject(ctx context.Context, text string, method injection.Method) error
}

// TrimFunc is the external silence-trim collaborator.
type TrimFunc func(samples []float32, sensitivity float64) []float32

type Config struct {
	Mode            string // session processing mode, carried into plugins
	TrimSensitivity float64
	InjectionMethod injection.Method
	SessionTimeout  time.Duration // cap on transcribe+inject+persist
}

func DefaultConfig() Config {
	return Config{
		Mode:            "dictation",
		TrimSensitivity: 0.3,
		InjectionMethod: injection.MethodAuto,
		SessionTimeout:  5 * time.Minute,
	}
}

// Deps are the pipeline's collaborators. Capturer, Transcriber and
// Injector are required; the rest default to inert implementations.
type Deps struct {
	Capturer    recording.Capturer
	Trim        TrimFunc
	Transcriber transcriber.Transcriber
	Injector    Injector
	Plugins     *plugin.Registry
	Recognizer  *command.Recognizer
	History     history.Store // nil disables persistence
	Windows     activewindow.Resolver
	Notifier    notify.Notifier
}

// Pipeline is the dictation state machine. It sequences capture ->
// silence-trim -> transcription -> plugin fold -> injection -> persistence,
// one session at a time, and always returns to idle.
type Pipeline struct {
	config Config
	deps   Deps

	mu         sync.Mutex
	state      State
	sessionApp activewindow.App
	starting   bool // session claimed, capture start still in flight
	stopping   bool // stop accepted, drain/trim still in flight

	wg sync.WaitGroup
}

func New(config Config, deps Deps) *Pipeline {
	if deps.Trim == nil {
		deps.Trim = audio.TrimSilence
	}
	if deps.Plugins == nil {
		deps.Plugins = plugin.NewRegistry()
	}
	if deps.Recognizer == nil {
		deps.Recognizer = command.NewRecognizer()
	}
	if deps.Windows == nil {
		deps.Windows = activewindow.Nop{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if config.Mode == "" {
		config.Mode = "dictation"
	}
	if config.SessionTimeout <= 0 {
		config.SessionTimeout = 5 * time.Minute
	}
	return &Pipeline{
		config: config,
		deps:   deps,
		state:  State{Status: Idle},
	}
}

// Snapshot returns the current observable state.
func (p *Pipeline) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) Status() Status {
	return p.Snapshot().Status
}

// Toggle maps the hotkey onto the state machine: start when idle, stop
// when recording, drop anything else. A press during transcription or
// injection is deliberately ignored - at most one session is in flight.
func (p *Pipeline) Toggle(ctx context.Context) {
	switch p.Status() {
	case Idle, Error:
		p.StartRecording(ctx)
	case Recording:
		p.StopAndProcess(ctx)
	default:
		log.Printf("pipeline: hotkey ignored while %s", p.Status())
	}
}

// StartRecording begins a capture session. Rejected (logged no-op) unless
// the pipeline is idle.
func (p *Pipeline) StartRecording(ctx context.Context) {
	p.mu.Lock()
	if p.state.Status != Idle && p.state.Status != Error {
		log.Printf("pipeline: startRecording ignored while %s", p.state.Status)
		p.mu.Unlock()
		return
	}
	// Claim the session inside the same critical section as the guard:
	// concurrent starts must not both pass. The claim is the transition
	// itself, before any slow collaborator call.
	p.state.CurrentError = ""
	p.setStatusLocked(Recording)
	p.starting = true
	p.mu.Unlock()

	// The receiving application is whatever has focus when recording
	// starts, not when injection happens seconds later.
	app := p.deps.Windows.Current(ctx)

	if err := p.deps.Capturer.Start(ctx); err != nil {
		log.Printf("pipeline: capture start failed: %v", err)
		p.setError("recording failed: " + err.Error())
		p.setStatus(Idle)
		return
	}

	p.mu.Lock()
	p.sessionApp = app
	p.starting = false
	p.mu.Unlock()

	p.deps.Notifier.RecordingChanged(true)
	log.Printf("pipeline: recording started (focus %s)", app.Class)
}

// StopAndProcess ends capture and runs the rest of the session. Rejected
// (logged no-op) unless recording. The trim happens synchronously; the
// slow transcribe/inject/persist stages run on a background goroutine so
// the control socket stays responsive.
func (p *Pipeline) StopAndProcess(ctx context.Context) {
	p.mu.Lock()
	if p.state.Status != Recording || p.starting || p.stopping {
		log.Printf("pipeline: stopRecording ignored while %s", p.state.Status)
		p.mu.Unlock()
		return
	}
	// Claimed: the drain below runs exactly once per session even under
	// concurrent stop calls.
	p.stopping = true
	p.mu.Unlock()

	p.deps.Notifier.RecordingChanged(false)

	samples := p.deps.Capturer.Stop()
	if len(samples) == 0 {
		log.Printf("pipeline: no audio captured")
		p.setStatus(Idle)
		return
	}

	trimmed := p.deps.Trim(samples, p.config.TrimSensitivity)
	if len(trimmed) == 0 {
		log.Printf("pipeline: no voice activity after trim")
		p.setStatus(Idle)
		return
	}
	trimmed = audio.PadToMinDuration(trimmed, audio.MinSamples)

	p.setStatus(Transcribing)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		sessionCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.SessionTimeout)
		defer cancel()
		p.process(sessionCtx, trimmed)
	}()
}

// Wait blocks until any in-flight session goroutine finishes.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Stop aborts capture if in progress and forces the pipeline to idle.
// There is no mid-transcription cancellation; a session past the recording
// stage runs to completion or failure first.
func (p *Pipeline) Stop() {
	if p.Status() == Recording {
		_ = p.deps.Capturer.Stop()
		p.deps.Notifier.RecordingChanged(false)
	}
	p.wg.Wait()
	p.setStatus(Idle)
}

// process runs transcription, command recognition, the plugin fold,
// injection and persistence. Whatever happens, the pipeline resolves back
// to idle so the hotkey stays usable.
func (p *Pipeline) process(ctx context.Context, samples []float32) {
	defer p.setStatus(Idle)

	result, err := p.deps.Transcriber.Transcribe(ctx, samples)
	if err != nil {
		log.Printf("pipeline: transcription failed: %v", err)
		p.setError("transcription failed: " + err.Error())
		return
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		// Soft failure: the engine heard nothing intelligible.
		log.Printf("pipeline: empty transcription, nothing to inject")
		return
	}

	p.mu.Lock()
	app := p.sessionApp
	p.state.LastTranscriptionPreview = preview(text)
	p.mu.Unlock()

	session := plugin.Session{
		Mode:     p.config.Mode,
		Language: result.Language,
		AppClass: app.Class,
		AppTitle: app.Title,
		Duration: result.Duration,
	}

	// Voice commands run before the processing fold and may consume the
	// transcript entirely.
	inject := true
	p.deps.Recognizer.SetCommands(p.deps.Plugins.Commands())
	if m, ok := p.deps.Recognizer.Recognize(text); ok {
		out, doInject, cmdErr := m.Run(ctx, session)
		if cmdErr != nil {
			log.Printf("pipeline: command %q failed, injecting transcript as-is: %v", m.Name, cmdErr)
		} else {
			log.Printf("pipeline: command %q handled the transcript", m.Name)
			inject = doInject
			if out != "" {
				text = out
			}
		}
	}

	if inject {
		p.setStatus(Injecting)

		text = p.deps.Plugins.ProcessText(ctx, text, session)
		if err := p.deps.Injector.Inject(ctx, text, p.config.InjectionMethod); err != nil {
			log.Printf("pipeline: injection failed: %v", err)
			p.setError("injection failed: " + err.Error())
			return
		}
	}

	p.persist(text, result, session)
}

// persist appends the session's history record. Failures are logged only;
// the text is already delivered and must not be affected.
func (p *Pipeline) persist(text string, result transcriber.Result, session plugin.Session) {
	if p.deps.History == nil {
		return
	}
	rec := history.Record{
		Text:      text,
		Language:  result.Language,
		Duration:  result.Duration,
		WordCount: len(strings.Fields(text)),
		Mode:      session.Mode,
		AppClass:  session.AppClass,
		AppTitle:  session.AppTitle,
	}
	if err := p.deps.History.Save(rec); err != nil {
		log.Printf("pipeline: history save failed: %v", err)
	}
}

// setStatus transitions the state machine and refreshes the derived flags
// in the same critical section, so observers never see them stale.
func (p *Pipeline) setStatus(s Status) {
	p.mu.Lock()
	p.setStatusLocked(s)
	p.mu.Unlock()
}

// setStatusLocked is the single place state changes. Any transition ends
// the start/stop claims taken by the guards.
func (p *Pipeline) setStatusLocked(s Status) {
	p.state.Status = s
	p.state.IsRecording = s == Recording
	p.state.IsProcessing = s == Transcribing || s == Injecting
	p.starting = false
	p.stopping = false
}

// setError records a visible session error. The status still resolves to
// idle afterwards; the message survives until the next session starts.
func (p *Pipeline) setError(msg string) {
	p.mu.Lock()
	p.setStatusLocked(Error)
	p.state.CurrentError = msg
	p.mu.Unlock()
	p.deps.Notifier.Error(msg)
}

// preview cuts on rune boundaries so multi-byte text stays valid UTF-8.
func preview(text string) string {
	const max = 80
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "…"
}
