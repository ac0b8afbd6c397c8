package plugin

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// Factory constructs a plugin instance with no arguments. Plugin packages
// register their factory from init; the host enumerates registered
// factories instead of introspecting loaded binaries.
type Factory func() Plugin

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// RegisterFactory makes a plugin constructor available to every registry
// under the given factory id. Later registrations overwrite earlier ones.
func RegisterFactory(id string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[id] = f
}

func lookupFactory(id string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[id]
	return f, ok
}

type loadedPlugin struct {
	plugin    Plugin
	info      Info
	processor Processor // nil when the capability is absent
	commander Commander
	active    bool
	order     int // activation sequence, breaks priority ties
}

// Registry owns the plugin lifecycle: load, version/duplicate checks,
// activation collections, the text-processing fold and bulk teardown.
// It is mutated only from the orchestration goroutine; the mutex guards the
// occasional status read from the control socket.
type Registry struct {
	mu      sync.Mutex
	plugins map[string]*loadedPlugin
	seq     int
}

func NewRegistry() *Registry {
	return &Registry{plugins: map[string]*loadedPlugin{}}
}

// Load instantiates the registered factory and admits the plugin into the
// registry after surface, version and duplicate checks.
func (r *Registry) Load(factoryID string) error {
	f, ok := lookupFactory(factoryID)
	if !ok {
		return fmt.Errorf("%w: no factory registered for %q", ErrLoadFailed, factoryID)
	}
	return r.LoadPlugin(f())
}

// LoadPlugin admits an already-constructed plugin instance.
func (r *Registry) LoadPlugin(p Plugin) error {
	if p == nil {
		return fmt.Errorf("%w: factory returned nil", ErrLoadFailed)
	}
	info := p.Info()
	if info.ID == "" || info.Name == "" || info.Version == "" || info.APIVersion == "" {
		return fmt.Errorf("%w: plugin %q lacks required metadata", ErrLoadFailed, info.ID)
	}
	if err := checkAPIVersion(info.APIVersion); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[info.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, info.ID)
	}

	entry := &loadedPlugin{plugin: p, info: info}
	// Capabilities are optional and independent; a plugin may hold both.
	if proc, ok := p.(Processor); ok {
		entry.processor = proc
	}
	if cmd, ok := p.(Commander); ok {
		entry.commander = cmd
	}
	r.plugins[info.ID] = entry

	log.Printf("plugin: loaded %s %s (api %s)", info.ID, info.Version, info.APIVersion)
	return nil
}

// Activate runs the plugin's activation hook and adds it to the active
// collections.
func (r *Registry) Activate(id string) error {
	r.mu.Lock()
	entry, ok := r.plugins[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if entry.active {
		return nil
	}

	if err := entry.plugin.Activate(); err != nil {
		return fmt.Errorf("activate %q: %w", id, err)
	}

	r.mu.Lock()
	r.seq++
	entry.order = r.seq
	entry.active = true
	r.mu.Unlock()

	log.Printf("plugin: activated %s", id)
	return nil
}

// Deactivate runs the deactivation hook and drops the plugin from the
// active collections; it stays loaded.
func (r *Registry) Deactivate(id string) error {
	r.mu.Lock()
	entry, ok := r.plugins[id]
	active := ok && entry.active
	r.mu.Unlock()
	if !ok || !active {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	err := entry.plugin.Deactivate()

	r.mu.Lock()
	entry.active = false
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("deactivate %q: %w", id, err)
	}
	log.Printf("plugin: deactivated %s", id)
	return nil
}

// Remove deactivates (when active) and unloads the plugin entirely.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	entry, ok := r.plugins[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	if entry.active {
		if err := r.Deactivate(id); err != nil {
			return err
		}
	}

	r.mu.Lock()
	delete(r.plugins, id)
	r.mu.Unlock()

	log.Printf("plugin: removed %s", id)
	return nil
}

// Shutdown deactivates every loaded plugin, tolerating individual hook
// failures, then clears all registry state. Used at process shutdown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if err := r.Deactivate(id); err != nil {
			log.Printf("plugin: shutdown: %v", err)
		}
	}

	r.mu.Lock()
	r.plugins = map[string]*loadedPlugin{}
	r.seq = 0
	r.mu.Unlock()
}

// activeProcessors returns the active processing plugins sorted ascending
// by effective priority, activation order breaking ties.
func (r *Registry) activeProcessors() []*loadedPlugin {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*loadedPlugin, 0, len(r.plugins))
	for _, entry := range r.plugins {
		if entry.active && entry.processor != nil {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		pa, pb := effectivePriority(out[a].processor), effectivePriority(out[b].processor)
		if pa != pb {
			return pa < pb
		}
		return out[a].order < out[b].order
	})
	return out
}

// ProcessText folds text through every active processing plugin in priority
// order. A failing (or panicking) plugin contributes nothing: the fold
// continues from the pre-plugin text, so one misbehaving extension degrades
// gracefully instead of aborting the injection.
func (r *Registry) ProcessText(ctx context.Context, text string, session Session) string {
	for _, entry := range r.activeProcessors() {
		if !appliesToMode(entry.processor, session.Mode) {
			continue
		}
		out, err := safeProcess(ctx, entry, text, session)
		if err != nil {
			log.Printf("plugin: %s process failed, keeping previous text: %v", entry.info.ID, err)
			continue
		}
		text = out
	}
	return text
}

// Commands collects the pattern/handler pairs of every active command
// plugin, in activation order.
func (r *Registry) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*loadedPlugin, 0, len(r.plugins))
	for _, entry := range r.plugins {
		if entry.active && entry.commander != nil {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].order < entries[b].order })

	var out []Command
	for _, entry := range entries {
		out = append(out, entry.commander.Commands()...)
	}
	return out
}

// Status describes one loaded plugin for the control surface.
type Status struct {
	Info      Info
	Active    bool
	Processor bool
	Commander bool
}

// List returns load state for every plugin, sorted by id.
func (r *Registry) List() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Status, 0, len(r.plugins))
	for _, entry := range r.plugins {
		out = append(out, Status{
			Info:      entry.info,
			Active:    entry.active,
			Processor: entry.processor != nil,
			Commander: entry.commander != nil,
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Info.ID < out[b].Info.ID })
	return out
}

func effectivePriority(p Processor) int {
	if prio := p.Priority(); prio != 0 {
		return prio
	}
	return DefaultPriority
}

func appliesToMode(p Processor, mode string) bool {
	modes := p.Modes()
	if len(modes) == 0 {
		return true
	}
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}

func safeProcess(ctx context.Context, entry *loadedPlugin, text string, session Session) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return entry.processor.Process(ctx, text, session)
}
