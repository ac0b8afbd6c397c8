// Package testutil provides shared mock collaborators for pipeline and
// daemon tests. Each mock records its calls and delegates to an optional
// function field, defaulting to a benign success.
package testutil

import (
	"context"
	"sync"

	"github.com/hushtype/hushtype/internal/activewindow"
	"github.com/hushtype/hushtype/internal/history"
	"github.com/hushtype/hushtype/internal/injection"
	"github.com/hushtype/hushtype/internal/transcriber"
)

// MockCapturer implements recording.Capturer.
type MockCapturer struct {
	mu        sync.Mutex
	recording bool

	StartErr error
	Samples  []float32 // returned by Stop

	StartCalls int
	StopCalls  int
}

func (m *MockCapturer) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls++
	if m.StartErr != nil {
		return m.StartErr
	}
	m.recording = true
	return nil
}

func (m *MockCapturer) Stop() []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StopCalls++
	m.recording = false
	return m.Samples
}

func (m *MockCapturer) IsRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

// MockTranscriber implements transcriber.Transcriber.
type MockTranscriber struct {
	mu sync.Mutex

	Result transcriber.Result
	Err    error

	Calls   int
	LastLen int
}

func (m *MockTranscriber) Transcribe(ctx context.Context, samples []float32) (transcriber.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastLen = len(samples)
	if m.Err != nil {
		return transcriber.Result{}, m.Err
	}
	return m.Result, nil
}

// MockInjector implements pipeline.Injector.
type MockInjector struct {
	mu sync.Mutex

	Err error

	Calls      int
	LastText   string
	LastMethod injection.Method
}

func (m *MockInjector) Inject(ctx context.Context, text string, method injection.Method) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastText = text
	m.LastMethod = method
	return m.Err
}

func (m *MockInjector) Injected() (int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls, m.LastText
}

// MockStore implements history.Store in memory.
type MockStore struct {
	mu sync.Mutex

	SaveErr error
	Records []history.Record
}

func (m *MockStore) Save(rec history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MockStore) Recent(n int) ([]history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]history.Record, 0, n)
	for i := len(m.Records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.Records[i])
	}
	return out, nil
}

func (m *MockStore) Close() error { return nil }

func (m *MockStore) Saved() []history.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]history.Record, len(m.Records))
	copy(out, m.Records)
	return out
}

// MockResolver implements activewindow.Resolver.
type MockResolver struct {
	App activewindow.App
}

func (m *MockResolver) Current(ctx context.Context) activewindow.App { return m.App }

// MockNotifier implements notify.Notifier and records what it was told.
type MockNotifier struct {
	mu sync.Mutex

	RecordingStates []bool
	Errors          []string
	Infos           []string
}

func (m *MockNotifier) RecordingChanged(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordingStates = append(m.RecordingStates, on)
}

func (m *MockNotifier) Error(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, msg)
}

func (m *MockNotifier) Info(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Infos = append(m.Infos, msg)
}

func (m *MockNotifier) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Errors) == 0 {
		return ""
	}
	return m.Errors[len(m.Errors)-1]
}
