// Package activewindow resolves the identity of the focused window, the
// application that will receive the injected text. Best-effort: on any
// failure the app identity is simply empty.
package activewindow

import (
	"context"
	"encoding/json"
	"log"
	"os/exec"
	"time"
)

// App identifies the focused application at recording start.
type App struct {
	Class string // compositor window class, e.g. "org.mozilla.firefox"
	Title string
}

// Resolver returns the currently focused application.
type Resolver interface {
	Current(ctx context.Context) App
}

// Hyprctl resolves the focused window with `hyprctl activewindow -j`.
type Hyprctl struct{}

func (Hyprctl) Current(ctx context.Context) App {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "hyprctl", "activewindow", "-j")
	output, err := cmd.Output()
	if err != nil {
		log.Printf("activewindow: hyprctl failed: %v", err)
		return App{}
	}

	var win struct {
		Class string `json:"class"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(output, &win); err != nil {
		log.Printf("activewindow: parse hyprctl output: %v", err)
		return App{}
	}
	return App{Class: win.Class, Title: win.Title}
}

// Nop always reports an unknown application. Useful in tests and on
// compositors without hyprctl.
type Nop struct{}

func (Nop) Current(ctx context.Context) App { return App{} }
