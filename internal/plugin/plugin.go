package plugin

import "context"

// HostAPIVersion is the plugin API version this build exposes. Plugins must
// declare the same major version; minor and patch may differ.
const HostAPIVersion = "1.0.0"

// DefaultPriority is assumed when a processor does not declare one.
// Lower priorities run earlier in the fold.
const DefaultPriority = 100

// Info identifies a plugin. Every field is required at load time.
type Info struct {
	ID         string // globally unique across the registry
	Name       string // human-readable display name
	Version    string // plugin's own semantic version
	APIVersion string // plugin API semantic version it was built against
}

// Session carries per-dictation context into plugin hooks.
type Session struct {
	Mode     string
	Language string
	AppClass string
	AppTitle string
	Duration float64 // recording duration in seconds
}

// Plugin is the required capability surface of every loadable module.
type Plugin interface {
	Info() Info
	Activate() error
	Deactivate() error
}

// Processor is the optional text-transform capability. Process receives the
// folded text so far and returns the replacement; an error (or panic) makes
// the fold continue with the pre-plugin text.
type Processor interface {
	// Priority orders the fold ascending; 0 means DefaultPriority.
	Priority() int
	// Modes limits the processor to the listed session modes; empty = all.
	Modes() []string
	Process(ctx context.Context, text string, session Session) (string, error)
}

// Handler runs a recognized voice command. It returns the replacement text,
// whether that text should still be injected, and an error.
type Handler func(ctx context.Context, arg string, session Session) (string, bool, error)

// Command couples a spoken-trigger pattern with its handler. Pattern is a
// regular expression matched against the whole transcript; the first capture
// group (if any) becomes the handler argument.
type Command struct {
	Name    string
	Pattern string
	Handler Handler
}

// Commander is the optional voice-command capability. A plugin may be both
// a Processor and a Commander.
type Commander interface {
	Commands() []Command
}
