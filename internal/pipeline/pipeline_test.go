package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/hushtype/hushtype/internal/activewindow"
	"github.com/hushtype/hushtype/internal/audio"
	"github.com/hushtype/hushtype/internal/plugin"
	"github.com/hushtype/hushtype/internal/testutil"
	"github.com/hushtype/hushtype/internal/transcriber"
)

func voiced(n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.5
	}
	return samples
}

func newTestPipeline(t *testing.T, deps Deps) *Pipeline {
	t.Helper()
	if deps.Capturer == nil {
		deps.Capturer = &testutil.MockCapturer{Samples: voiced(audio.SampleRate)}
	}
	if deps.Transcriber == nil {
		deps.Transcriber = &testutil.MockTranscriber{Result: transcriber.Result{Text: "hello world"}}
	}
	if deps.Injector == nil {
		deps.Injector = &testutil.MockInjector{}
	}
	return New(DefaultConfig(), deps)
}

func TestFullSessionRunsToIdle(t *testing.T) {
	injector := &testutil.MockInjector{}
	store := &testutil.MockStore{}
	tr := &testutil.MockTranscriber{Result: transcriber.Result{
		Text:     "  hello world  ",
		Language: "en",
		Duration: 2.0,
	}}
	p := newTestPipeline(t, Deps{
		Transcriber: tr,
		Injector:    injector,
		History:     store,
		Windows:     &testutil.MockResolver{App: activewindow.App{Class: "firefox", Title: "Inbox"}},
	})

	ctx := context.Background()
	p.StartRecording(ctx)
	if got := p.Status(); got != Recording {
		t.Fatalf("status after start = %s, want %s", got, Recording)
	}
	if !p.Snapshot().IsRecording {
		t.Fatal("IsRecording should be true while recording")
	}

	p.StopAndProcess(ctx)
	p.Wait()

	state := p.Snapshot()
	if state.Status != Idle {
		t.Fatalf("final status = %s, want %s", state.Status, Idle)
	}
	if state.CurrentError != "" {
		t.Fatalf("unexpected error: %q", state.CurrentError)
	}
	if calls, text := injector.Injected(); calls != 1 || text != "hello world" {
		t.Fatalf("injected %d time(s) with %q, want once with %q", calls, text, "hello world")
	}

	records := store.Saved()
	if len(records) != 1 {
		t.Fatalf("history records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Text != "hello world" || rec.WordCount != 2 || rec.Language != "en" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.AppClass != "firefox" || rec.AppTitle != "Inbox" {
		t.Fatalf("record should carry the focused app, got %+v", rec)
	}
	if !strings.Contains(p.Snapshot().LastTranscriptionPreview, "hello world") {
		t.Fatalf("preview = %q", p.Snapshot().LastTranscriptionPreview)
	}
}

func TestSilentCaptureSkipsTranscription(t *testing.T) {
	tr := &testutil.MockTranscriber{Result: transcriber.Result{Text: "should not run"}}
	injector := &testutil.MockInjector{}
	store := &testutil.MockStore{}
	p := newTestPipeline(t, Deps{
		Capturer:    &testutil.MockCapturer{Samples: make([]float32, audio.SampleRate)}, // all zeros
		Transcriber: tr,
		Injector:    injector,
		History:     store,
	})

	ctx := context.Background()
	p.StartRecording(ctx)
	p.StopAndProcess(ctx)
	p.Wait()

	if p.Status() != Idle {
		t.Fatalf("status = %s, want %s", p.Status(), Idle)
	}
	if tr.Calls != 0 {
		t.Fatal("transcriber should not run on silence")
	}
	if injector.Calls != 0 {
		t.Fatal("injector should not run on silence")
	}
	if len(store.Saved()) != 0 {
		t.Fatal("nothing should be persisted for a silent session")
	}
}

func TestEmptyTranscriptionIsSoftFailure(t *testing.T) {
	injector := &testutil.MockInjector{}
	store := &testutil.MockStore{}
	p := newTestPipeline(t, Deps{
		Transcriber: &testutil.MockTranscriber{Result: transcriber.Result{Text: "   "}},
		Injector:    injector,
		History:     store,
	})

	ctx := context.Background()
	p.StartRecording(ctx)
	p.StopAndProcess(ctx)
	p.Wait()

	state := p.Snapshot()
	if state.Status != Idle || state.CurrentError != "" {
		t.Fatalf("empty transcription should resolve cleanly, got %+v", state)
	}
	if injector.Calls != 0 || len(store.Saved()) != 0 {
		t.Fatal("no injection or persistence for empty transcription")
	}
}

func TestGuardsRejectWrongStateCalls(t *testing.T) {
	capturer := &testutil.MockCapturer{Samples: voiced(audio.SampleRate)}
	p := newTestPipeline(t, Deps{Capturer: capturer})

	ctx := context.Background()

	// Stop while idle is a no-op.
	p.StopAndProcess(ctx)
	if capturer.StopCalls != 0 {
		t.Fatal("stop while idle must not drain the capturer")
	}

	p.StartRecording(ctx)
	// Second start while recording is a no-op.
	p.StartRecording(ctx)
	if capturer.StartCalls != 1 {
		t.Fatalf("capturer started %d times, want 1", capturer.StartCalls)
	}

	p.StopAndProcess(ctx)
	p.Wait()
	if p.Status() != Idle {
		t.Fatalf("status = %s, want %s", p.Status(), Idle)
	}
}

func TestTranscriptionErrorSurfacesThenIdles(t *testing.T) {
	notifier := &testutil.MockNotifier{}
	injector := &testutil.MockInjector{}
	p := newTestPipeline(t, Deps{
		Transcriber: &testutil.MockTranscriber{Err: errors.New("engine exploded")},
		Injector:    injector,
		Notifier:    notifier,
	})

	ctx := context.Background()
	p.StartRecording(ctx)
	p.StopAndProcess(ctx)
	p.Wait()

	state := p.Snapshot()
	if state.Status != Idle {
		t.Fatalf("status = %s, want %s (the hotkey must stay usable)", state.Status, Idle)
	}
	if !strings.Contains(state.CurrentError, "engine exploded") {
		t.Fatalf("CurrentError = %q", state.CurrentError)
	}
	if injector.Calls != 0 {
		t.Fatal("injection must not run after a transcription failure")
	}
	if !strings.Contains(notifier.LastError(), "transcription failed") {
		t.Fatalf("notifier error = %q", notifier.LastError())
	}

	// The retained error clears when the next session starts.
	p.StartRecording(ctx)
	if got := p.Snapshot().CurrentError; got != "" {
		t.Fatalf("CurrentError = %q after restart, want empty", got)
	}
}

func TestInjectionErrorSkipsPersistence(t *testing.T) {
	store := &testutil.MockStore{}
	p := newTestPipeline(t, Deps{
		Injector: &testutil.MockInjector{Err: errors.New("no typing tool")},
		History:  store,
	})

	ctx := context.Background()
	p.StartRecording(ctx)
	p.StopAndProcess(ctx)
	p.Wait()

	state := p.Snapshot()
	if state.Status != Idle {
		t.Fatalf("status = %s, want %s", state.Status, Idle)
	}
	if !strings.Contains(state.CurrentError, "injection failed") {
		t.Fatalf("CurrentError = %q", state.CurrentError)
	}
	if len(store.Saved()) != 0 {
		t.Fatal("undelivered text must not be persisted")
	}
}

func TestPersistenceFailureIsSoft(t *testing.T) {
	injector := &testutil.MockInjector{}
	p := newTestPipeline(t, Deps{
		Injector: injector,
		History:  &testutil.MockStore{SaveErr: errors.New("disk full")},
	})

	ctx := context.Background()
	p.StartRecording(ctx)
	p.StopAndProcess(ctx)
	p.Wait()

	state := p.Snapshot()
	if state.Status != Idle || state.CurrentError != "" {
		t.Fatalf("history failure must stay invisible, got %+v", state)
	}
	if injector.Calls != 1 {
		t.Fatal("text should still have been injected")
	}
}

func TestCaptureStartFailure(t *testing.T) {
	p := newTestPipeline(t, Deps{
		Capturer: &testutil.MockCapturer{StartErr: errors.New("pw-record missing")},
	})

	p.StartRecording(context.Background())

	state := p.Snapshot()
	if state.Status != Idle {
		t.Fatalf("status = %s, want %s", state.Status, Idle)
	}
	if !strings.Contains(state.CurrentError, "recording failed") {
		t.Fatalf("CurrentError = %q", state.CurrentError)
	}
}

func TestPluginFoldRunsBeforeInjection(t *testing.T) {
	reg := plugin.NewRegistry()
	if err := reg.LoadPlugin(upcasePlugin{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := reg.Activate("upcase"); err != nil {
		t.Fatalf("activate: %v", err)
	}

	injector := &testutil.MockInjector{}
	p := newTestPipeline(t, Deps{
		Transcriber: &testutil.MockTranscriber{Result: transcriber.Result{Text: "hello"}},
		Injector:    injector,
		Plugins:     reg,
	})

	ctx := context.Background()
	p.StartRecording(ctx)
	p.StopAndProcess(ctx)
	p.Wait()

	if _, text := injector.Injected(); text != "HELLO" {
		t.Fatalf("injected %q, want %q", text, "HELLO")
	}
}

func TestCommandConsumesTranscript(t *testing.T) {
	reg := plugin.NewRegistry()
	if err := reg.LoadPlugin(swallowCommandPlugin{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := reg.Activate("swallow"); err != nil {
		t.Fatalf("activate: %v", err)
	}

	injector := &testutil.MockInjector{}
	store := &testutil.MockStore{}
	p := newTestPipeline(t, Deps{
		Transcriber: &testutil.MockTranscriber{Result: transcriber.Result{Text: "scratch that"}},
		Injector:    injector,
		Plugins:     reg,
		History:     store,
	})

	ctx := context.Background()
	p.StartRecording(ctx)
	p.StopAndProcess(ctx)
	p.Wait()

	if injector.Calls != 0 {
		t.Fatal("a consuming command must suppress injection")
	}
	if len(store.Saved()) != 1 {
		t.Fatalf("handled commands still persist, got %d records", len(store.Saved()))
	}
	if p.Status() != Idle {
		t.Fatalf("status = %s, want %s", p.Status(), Idle)
	}
}

func TestConcurrentStartsClaimOneSession(t *testing.T) {
	capturer := &testutil.MockCapturer{Samples: voiced(audio.SampleRate)}
	p := newTestPipeline(t, Deps{
		Capturer: capturer,
		Windows:  slowResolver{delay: 20 * time.Millisecond},
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.StartRecording(ctx)
		}()
	}
	wg.Wait()

	// The guard and the transition share one critical section, so only
	// one caller may claim the session.
	if capturer.StartCalls != 1 {
		t.Fatalf("capturer started %d times from concurrent starts, want 1", capturer.StartCalls)
	}
	if got := p.Status(); got != Recording {
		t.Fatalf("status = %s, want %s", got, Recording)
	}

	// The claimed session still runs out normally.
	p.StopAndProcess(ctx)
	p.Wait()
	if got := p.Status(); got != Idle {
		t.Fatalf("final status = %s, want %s", got, Idle)
	}
}

func TestConcurrentStopsDrainOnce(t *testing.T) {
	capturer := &testutil.MockCapturer{Samples: voiced(audio.SampleRate)}
	p := newTestPipeline(t, Deps{Capturer: capturer})

	ctx := context.Background()
	p.StartRecording(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.StopAndProcess(ctx)
		}()
	}
	wg.Wait()
	p.Wait()

	if capturer.StopCalls != 1 {
		t.Fatalf("capturer drained %d times from concurrent stops, want 1", capturer.StopCalls)
	}
	if got := p.Status(); got != Idle {
		t.Fatalf("final status = %s, want %s", got, Idle)
	}
}

func TestToggleIgnoredWhileProcessing(t *testing.T) {
	release := make(chan struct{})
	tr := &blockingTranscriber{entered: make(chan struct{}), release: release}
	capturer := &testutil.MockCapturer{Samples: voiced(audio.SampleRate)}
	p := newTestPipeline(t, Deps{Capturer: capturer, Transcriber: tr})

	ctx := context.Background()
	p.Toggle(ctx) // start
	p.Toggle(ctx) // stop, begins processing

	tr.waitEntered(t)
	if got := p.Status(); got != Transcribing {
		t.Fatalf("status = %s, want %s", got, Transcribing)
	}
	if !p.Snapshot().IsProcessing {
		t.Fatal("IsProcessing should be true during transcription")
	}

	p.Toggle(ctx) // must be dropped, not queued
	if capturer.StartCalls != 1 {
		t.Fatal("toggle during processing must not start a new capture")
	}

	close(release)
	p.Wait()
	if p.Status() != Idle {
		t.Fatalf("status = %s, want %s", p.Status(), Idle)
	}
}

// upcasePlugin is a minimal processor plugin for fold tests.
type upcasePlugin struct{}

func (upcasePlugin) Info() plugin.Info {
	return plugin.Info{ID: "upcase", Name: "Upcase", Version: "1.0.0", APIVersion: plugin.HostAPIVersion}
}
func (upcasePlugin) Activate() error   { return nil }
func (upcasePlugin) Deactivate() error { return nil }
func (upcasePlugin) Priority() int     { return 0 }
func (upcasePlugin) Modes() []string   { return nil }
func (upcasePlugin) Process(ctx context.Context, text string, session plugin.Session) (string, error) {
	return strings.ToUpper(text), nil
}

// swallowCommandPlugin handles "scratch that" and consumes the transcript.
type swallowCommandPlugin struct{}

func (swallowCommandPlugin) Info() plugin.Info {
	return plugin.Info{ID: "swallow", Name: "Swallow", Version: "1.0.0", APIVersion: plugin.HostAPIVersion}
}
func (swallowCommandPlugin) Activate() error   { return nil }
func (swallowCommandPlugin) Deactivate() error { return nil }
func (swallowCommandPlugin) Commands() []plugin.Command {
	return []plugin.Command{{
		Name:    "scratch",
		Pattern: `(?i)^scratch that$`,
		Handler: func(ctx context.Context, arg string, session plugin.Session) (string, bool, error) {
			return "", false, nil
		},
	}}
}

// slowResolver stalls inside Current, widening the window between a
// state-machine guard and its transition.
type slowResolver struct {
	delay time.Duration
}

func (s slowResolver) Current(ctx context.Context) activewindow.App {
	time.Sleep(s.delay)
	return activewindow.App{Class: "slow"}
}

// blockingTranscriber parks inside Transcribe until released, so tests can
// observe the mid-processing state.
type blockingTranscriber struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingTranscriber) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-b.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("transcriber never entered")
	}
}

func (b *blockingTranscriber) Transcribe(ctx context.Context, samples []float32) (transcriber.Result, error) {
	close(b.entered)
	select {
	case <-b.release:
	case <-ctx.Done():
		return transcriber.Result{}, ctx.Err()
	}
	return transcriber.Result{Text: "late result"}, nil
}

func TestPreviewKeepsValidUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short passes through", in: "hello", want: "hello"},
		{name: "long ascii", in: strings.Repeat("a", 100), want: strings.Repeat("a", 80) + "…"},
		{name: "multi-byte cut on rune boundary", in: strings.Repeat("ü", 100), want: strings.Repeat("ü", 80) + "…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preview(tt.in)
			if got != tt.want {
				t.Errorf("preview() = %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("preview() produced invalid UTF-8: %q", got)
			}
		})
	}
}
