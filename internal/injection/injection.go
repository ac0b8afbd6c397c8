package injection

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Method selects how text is delivered to the focused window.
type Method string

const (
	// MethodAuto picks keystrokes for short ASCII text when a typing tool
	// is available, clipboard paste otherwise.
	MethodAuto Method = "auto"
	// MethodKeystrokes synthesizes per-character key events.
	MethodKeystrokes Method = "keystrokes"
	// MethodClipboard pastes via the system clipboard.
	MethodClipboard Method = "clipboard"
)

// autoKeystrokeLimit is the auto-mode length cutoff: typing anything longer
// character by character is slower than a paste and keeps the target app's
// event queue busy.
const autoKeystrokeLimit = 64

// Config for text injection
type Config struct {
	Method           Method
	KeystrokeDelay   time.Duration // pause between synthesized characters
	SettleDelay      time.Duration // wait after the paste chord before restore
	RestoreClipboard bool
	TypingTimeout    time.Duration
	ClipboardTimeout time.Duration
}

// DefaultConfig returns sensible defaults for injection
func DefaultConfig() Config {
	return Config{
		Method:           MethodAuto,
		KeystrokeDelay:   2 * time.Millisecond,
		SettleDelay:      150 * time.Millisecond,
		RestoreClipboard: true,
		TypingTimeout:    5 * time.Second,
		ClipboardTimeout: 3 * time.Second,
	}
}

// Injector resolves an effective delivery mechanism per injection and
// executes it, preserving any clobbered clipboard content.
type Injector struct {
	config    Config
	clipboard Clipboard
	typer     Typer
}

// NewInjector creates an injector around explicit collaborators; tests pass
// in-memory fakes.
func NewInjector(config Config, clipboard Clipboard, typer Typer) *Injector {
	return &Injector{config: config, clipboard: clipboard, typer: typer}
}

// NewDefaultInjector wires the Wayland tool backends.
func NewDefaultInjector(config Config) *Injector {
	return NewInjector(config, NewWlClipboard(config.ClipboardTimeout), FirstAvailableTyper())
}

// Inject delivers text using the given method, falling back to the
// configured one when method is empty.
func (i *Injector) Inject(ctx context.Context, text string, method Method) error {
	if text == "" {
		return fmt.Errorf("cannot inject empty text")
	}
	if method == "" {
		method = i.config.Method
	}

	switch i.resolve(text, method) {
	case MethodKeystrokes:
		return i.injectViaKeystrokes(ctx, text)
	case MethodClipboard:
		return i.injectViaClipboard(ctx, text)
	default:
		return fmt.Errorf("unsupported injection method: %s", method)
	}
}

// resolve maps auto onto a concrete method. Keystrokes win only for short,
// pure-ASCII text with a typing tool currently available; everything else
// takes the broadly compatible clipboard path.
func (i *Injector) resolve(text string, method Method) Method {
	if method != MethodAuto {
		return method
	}
	if i.typer.Available() == nil && len(text) < autoKeystrokeLimit && isASCII(text) {
		return MethodKeystrokes
	}
	return MethodClipboard
}

func (i *Injector) injectViaKeystrokes(ctx context.Context, text string) error {
	// Cached availability may be stale; re-check right before dispatching.
	if err := i.typer.Available(); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionNotGranted, err)
	}

	ctx, cancel := context.WithTimeout(ctx, i.config.TypingTimeout)
	defer cancel()

	if err := i.typer.Type(ctx, text, i.config.KeystrokeDelay); err != nil {
		return fmt.Errorf("%w: %v", ErrEventConstruction, err)
	}
	return nil
}

// injectViaClipboard saves the clipboard, overwrites it with text,
// synthesizes a paste when a typing tool is available, and restores the
// snapshot afterwards - unless something else claimed the clipboard during
// the settle window. The restore also runs on the failure path so an error
// mid-paste never leaves the user's clipboard corrupted.
func (i *Injector) injectViaClipboard(ctx context.Context, text string) (err error) {
	snapshot, readErr := i.clipboard.Read(ctx)
	if readErr != nil {
		log.Printf("injection: clipboard snapshot failed, restore disabled: %v", readErr)
	}

	if werr := i.clipboard.Write(ctx, text); werr != nil {
		return fmt.Errorf("%w: %v", ErrClipboard, werr)
	}
	afterWrite := i.clipboard.ChangeCount(ctx)

	if i.typer.Available() != nil {
		// No way to synthesize the paste chord: leave the text on the
		// clipboard for a manual paste. Designed degradation, not an error.
		log.Printf("injection: typing tool unavailable, text left on clipboard")
		return nil
	}

	defer func() {
		i.restoreClipboard(snapshot, readErr == nil, afterWrite)
	}()

	if perr := i.typer.Paste(ctx); perr != nil {
		return fmt.Errorf("%w: paste keystroke: %v", ErrEventConstruction, perr)
	}

	select {
	case <-time.After(i.config.SettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (i *Injector) restoreClipboard(snapshot string, haveSnapshot bool, afterWrite int64) {
	if !i.config.RestoreClipboard || !haveSnapshot {
		return
	}

	restoreCtx, cancel := context.WithTimeout(context.Background(), i.config.ClipboardTimeout)
	defer cancel()

	// If the change counter moved past our own overwrite, someone else
	// claimed the clipboard in the interim; the restore is cancelled.
	if i.clipboard.ChangeCount(restoreCtx) != afterWrite {
		log.Printf("injection: clipboard changed externally, skipping restore")
		return
	}
	if err := i.clipboard.Write(restoreCtx, snapshot); err != nil {
		log.Printf("injection: clipboard restore failed: %v", err)
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
