package injection

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"time"
)

// Typer synthesizes keyboard input. Type dispatches a key-down/key-up pair
// per character carrying its Unicode code point (wtype and ydotool both do
// this rather than virtual key codes, which is what makes emoji and
// multi-byte text work). Paste sends the ctrl+v chord.
type Typer interface {
	Name() string
	Available() error
	Type(ctx context.Context, text string, delay time.Duration) error
	Paste(ctx context.Context) error
}

// FirstAvailableTyper prefers wtype and falls back to ydotool; when neither
// is usable it returns the wtype backend so Available() reports the primary
// tool's error.
func FirstAvailableTyper() Typer {
	backends := []Typer{&WtypeTyper{}, NewYdotoolTyper()}
	for _, b := range backends {
		err := b.Available()
		if err == nil {
			return b
		}
		log.Printf("injection: typing backend %s unavailable: %v", b.Name(), err)
	}
	return backends[0]
}

// WtypeTyper drives the wtype Wayland virtual-keyboard tool.
type WtypeTyper struct{}

func (w *WtypeTyper) Name() string { return "wtype" }

func (w *WtypeTyper) Available() error {
	if _, err := exec.LookPath("wtype"); err != nil {
		return fmt.Errorf("wtype not found: %w (install wtype package)", err)
	}
	return nil
}

func (w *WtypeTyper) Type(ctx context.Context, text string, delay time.Duration) error {
	args := []string{}
	if delay > 0 {
		args = append(args, "-d", strconv.Itoa(int(delay.Milliseconds())))
	}
	args = append(args, "--", text)

	if err := exec.CommandContext(ctx, "wtype", args...).Run(); err != nil {
		return fmt.Errorf("wtype failed: %w", err)
	}
	return nil
}

func (w *WtypeTyper) Paste(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "wtype", "-M", "ctrl", "-k", "v", "-m", "ctrl")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wtype paste chord failed: %w", err)
	}
	return nil
}
