package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// stubPlugin implements the bare Plugin surface.
type stubPlugin struct {
	info          Info
	activateErr   error
	deactivateErr error
	activations   int
	deactivations int
}

func (s *stubPlugin) Info() Info { return s.info }

func (s *stubPlugin) Activate() error {
	s.activations++
	return s.activateErr
}

func (s *stubPlugin) Deactivate() error {
	s.deactivations++
	return s.deactivateErr
}

func info(id string) Info {
	return Info{ID: id, Name: id, Version: "0.1.0", APIVersion: HostAPIVersion}
}

// stubProcessor adds the processing capability.
type stubProcessor struct {
	stubPlugin
	priority int
	modes    []string
	process  func(text string) (string, error)
}

func (s *stubProcessor) Priority() int   { return s.priority }
func (s *stubProcessor) Modes() []string { return s.modes }

func (s *stubProcessor) Process(ctx context.Context, text string, session Session) (string, error) {
	if s.process != nil {
		return s.process(text)
	}
	return text, nil
}

// stubCommander adds the command capability.
type stubCommander struct {
	stubPlugin
	cmds []Command
}

func (s *stubCommander) Commands() []Command { return s.cmds }

// stubBoth holds both capabilities at once.
type stubBoth struct {
	stubProcessor
	cmds []Command
}

func (s *stubBoth) Commands() []Command { return s.cmds }

func TestRegistry_LoadChecks(t *testing.T) {
	tests := []struct {
		name    string
		plugin  Plugin
		wantErr error
	}{
		{
			name:   "valid plugin",
			plugin: &stubPlugin{info: info("ok")},
		},
		{
			name:    "missing identifier",
			plugin:  &stubPlugin{info: Info{Name: "x", Version: "1", APIVersion: HostAPIVersion}},
			wantErr: ErrLoadFailed,
		},
		{
			name:    "missing api version",
			plugin:  &stubPlugin{info: Info{ID: "x", Name: "x", Version: "1"}},
			wantErr: ErrLoadFailed,
		},
		{
			name:    "wrong api major",
			plugin:  &stubPlugin{info: Info{ID: "x", Name: "x", Version: "1", APIVersion: "2.0.0"}},
			wantErr: ErrIncompatibleVersion,
		},
		{
			name:    "garbage api version",
			plugin:  &stubPlugin{info: Info{ID: "x", Name: "x", Version: "1", APIVersion: "not-a-version"}},
			wantErr: ErrIncompatibleVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.LoadPlugin(tt.plugin)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("LoadPlugin() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("LoadPlugin() error = %v, want %v", err, tt.wantErr)
			}
			if len(r.List()) != 0 {
				t.Errorf("rejected plugin ended up in the registry")
			}
		})
	}
}

func TestRegistry_DuplicateIdentifier(t *testing.T) {
	r := NewRegistry()

	first := &stubPlugin{info: info("dup")}
	second := &stubPlugin{info: info("dup")}

	if err := r.LoadPlugin(first); err != nil {
		t.Fatalf("first load: %v", err)
	}
	err := r.LoadPlugin(second)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("second load error = %v, want ErrDuplicateID", err)
	}

	list := r.List()
	if len(list) != 1 {
		t.Fatalf("registry holds %d plugins, want 1", len(list))
	}
	// The first load must be the one retained.
	if err := r.Activate("dup"); err != nil {
		t.Fatalf("activate retained plugin: %v", err)
	}
	if first.activations != 1 || second.activations != 0 {
		t.Errorf("activation hit the wrong instance: first=%d second=%d", first.activations, second.activations)
	}
}

func TestRegistry_IncompatibleNeverActivated(t *testing.T) {
	r := NewRegistry()

	p := &stubProcessor{stubPlugin: stubPlugin{info: Info{ID: "old", Name: "old", Version: "1", APIVersion: "0.9.0"}}}
	if err := r.LoadPlugin(p); !errors.Is(err, ErrIncompatibleVersion) {
		t.Fatalf("LoadPlugin() error = %v, want ErrIncompatibleVersion", err)
	}

	if got := r.ProcessText(context.Background(), "text", Session{}); got != "text" {
		t.Errorf("rejected plugin participated in the fold")
	}
	if cmds := r.Commands(); len(cmds) != 0 {
		t.Errorf("rejected plugin contributed %d commands", len(cmds))
	}
}

func TestRegistry_LifecycleNotFound(t *testing.T) {
	r := NewRegistry()
	p := &stubPlugin{info: info("p")}
	if err := r.LoadPlugin(p); err != nil {
		t.Fatal(err)
	}

	if err := r.Activate("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Activate(ghost) error = %v, want ErrNotFound", err)
	}
	// Deactivating a plugin that was never activated is not-found too.
	if err := r.Deactivate("p"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deactivate(inactive) error = %v, want ErrNotFound", err)
	}
	if err := r.Remove("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_RemoveDropsFromEverything(t *testing.T) {
	r := NewRegistry()
	p := &stubProcessor{stubPlugin: stubPlugin{info: info("p")}, process: func(s string) (string, error) {
		return s + "!", nil
	}}
	if err := r.LoadPlugin(p); err != nil {
		t.Fatal(err)
	}
	if err := r.Activate("p"); err != nil {
		t.Fatal(err)
	}

	if err := r.Remove("p"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if p.deactivations != 1 {
		t.Errorf("deactivation hook ran %d times, want 1", p.deactivations)
	}
	if got := r.ProcessText(context.Background(), "x", Session{}); got != "x" {
		t.Errorf("removed plugin still processes text")
	}
	if len(r.List()) != 0 {
		t.Errorf("removed plugin still listed")
	}
}

func TestRegistry_FoldPriorityOrder(t *testing.T) {
	r := NewRegistry()

	mk := func(id string, prio int) *stubProcessor {
		return &stubProcessor{
			stubPlugin: stubPlugin{info: info(id)},
			priority:   prio,
			process: func(s string) (string, error) {
				return s + "," + id, nil
			},
		}
	}

	// Activation order: c (prio 200), a (default=100), b (prio 5), d (default).
	for _, p := range []*stubProcessor{mk("c", 200), mk("a", 0), mk("b", 5), mk("d", 0)} {
		if err := r.LoadPlugin(p); err != nil {
			t.Fatal(err)
		}
		if err := r.Activate(p.info.ID); err != nil {
			t.Fatal(err)
		}
	}

	got := r.ProcessText(context.Background(), "start", Session{Mode: "dictation"})
	// b(5) first, then the two defaults in activation order (a before d),
	// then c(200).
	want := "start,b,a,d,c"
	if got != want {
		t.Errorf("fold output = %q, want %q", got, want)
	}
}

func TestRegistry_FoldModeFilter(t *testing.T) {
	r := NewRegistry()

	all := &stubProcessor{stubPlugin: stubPlugin{info: info("all")}, process: func(s string) (string, error) {
		return s + ",all", nil
	}}
	codeOnly := &stubProcessor{
		stubPlugin: stubPlugin{info: info("code")},
		modes:      []string{"code"},
		process: func(s string) (string, error) {
			return s + ",code", nil
		},
	}

	for _, p := range []Plugin{all, codeOnly} {
		if err := r.LoadPlugin(p); err != nil {
			t.Fatal(err)
		}
		if err := r.Activate(p.Info().ID); err != nil {
			t.Fatal(err)
		}
	}

	if got := r.ProcessText(context.Background(), "t", Session{Mode: "dictation"}); got != "t,all" {
		t.Errorf("dictation fold = %q, want %q", got, "t,all")
	}
	if got := r.ProcessText(context.Background(), "t", Session{Mode: "code"}); got != "t,all,code" {
		t.Errorf("code fold = %q, want %q", got, "t,all,code")
	}
}

func TestRegistry_FoldIsolatesFailures(t *testing.T) {
	r := NewRegistry()

	upper := &stubProcessor{
		stubPlugin: stubPlugin{info: info("upper")},
		priority:   1,
		process: func(s string) (string, error) {
			return strings.ToUpper(s), nil
		},
	}
	failing := &stubProcessor{
		stubPlugin: stubPlugin{info: info("failing")},
		priority:   2,
		process: func(s string) (string, error) {
			return "poisoned", fmt.Errorf("boom")
		},
	}
	panicking := &stubProcessor{
		stubPlugin: stubPlugin{info: info("panicking")},
		priority:   3,
		process: func(s string) (string, error) {
			panic("very boom")
		},
	}
	suffix := &stubProcessor{
		stubPlugin: stubPlugin{info: info("suffix")},
		priority:   4,
		process: func(s string) (string, error) {
			return s + "!", nil
		},
	}

	for _, p := range []Plugin{upper, failing, panicking, suffix} {
		if err := r.LoadPlugin(p); err != nil {
			t.Fatal(err)
		}
		if err := r.Activate(p.Info().ID); err != nil {
			t.Fatal(err)
		}
	}

	// The failing and panicking steps must pass their input through
	// untouched while later plugins still run.
	got := r.ProcessText(context.Background(), "hello", Session{})
	if got != "HELLO!" {
		t.Errorf("fold output = %q, want %q", got, "HELLO!")
	}
}

func TestRegistry_DualCapability(t *testing.T) {
	r := NewRegistry()

	both := &stubBoth{
		stubProcessor: stubProcessor{
			stubPlugin: stubPlugin{info: info("both")},
			process: func(s string) (string, error) {
				return s + ",both", nil
			},
		},
		cmds: []Command{{Name: "noop", Pattern: "^noop$"}},
	}
	if err := r.LoadPlugin(both); err != nil {
		t.Fatal(err)
	}
	if err := r.Activate("both"); err != nil {
		t.Fatal(err)
	}

	if got := r.ProcessText(context.Background(), "t", Session{}); got != "t,both" {
		t.Errorf("fold = %q, processor capability missing", got)
	}
	if cmds := r.Commands(); len(cmds) != 1 || cmds[0].Name != "noop" {
		t.Errorf("Commands() = %v, commander capability missing", cmds)
	}

	st := r.List()
	if len(st) != 1 || !st[0].Processor || !st[0].Commander {
		t.Errorf("List() = %+v, want both capability flags", st)
	}
}

func TestRegistry_ShutdownToleratesHookFailures(t *testing.T) {
	r := NewRegistry()

	good := &stubPlugin{info: info("good")}
	bad := &stubPlugin{info: info("bad"), deactivateErr: fmt.Errorf("hook broke")}

	for _, p := range []*stubPlugin{good, bad} {
		if err := r.LoadPlugin(p); err != nil {
			t.Fatal(err)
		}
		if err := r.Activate(p.info.ID); err != nil {
			t.Fatal(err)
		}
	}

	r.Shutdown()

	if good.deactivations != 1 || bad.deactivations != 1 {
		t.Errorf("deactivations good=%d bad=%d, want 1 each", good.deactivations, bad.deactivations)
	}
	if len(r.List()) != 0 {
		t.Errorf("registry not cleared after Shutdown")
	}
}

func TestRegisterFactory_LoadByID(t *testing.T) {
	RegisterFactory("test-factory-load", func() Plugin {
		return &stubPlugin{info: info("test-factory-load")}
	})

	r := NewRegistry()
	if err := r.Load("test-factory-load"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := r.Load("no-such-factory"); !errors.Is(err, ErrLoadFailed) {
		t.Errorf("Load(no-such-factory) error = %v, want ErrLoadFailed", err)
	}
}
