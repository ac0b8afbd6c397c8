// Package notify delivers desktop notifications through notify-send.
package notify

import (
	"context"
	"log"
	"os/exec"
	"time"
)

const sendTimeout = 2 * time.Second

// Notifier receives user-visible pipeline events.
type Notifier interface {
	RecordingChanged(on bool)
	Error(msg string)
	Info(msg string)
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) RecordingChanged(bool) {}
func (Nop) Error(string)          {}
func (Nop) Info(string)           {}

// Desktop shells out to notify-send. Failures are logged and swallowed;
// notifications are best-effort.
type Desktop struct {
	Enabled bool
}

func NewDesktop(enabled bool) *Desktop {
	return &Desktop{Enabled: enabled}
}

func (d *Desktop) RecordingChanged(on bool) {
	if on {
		d.send("normal", "Recording started", "Speak now, press the hotkey again to finish")
		return
	}
	d.send("normal", "Recording stopped", "Transcribing…")
}

func (d *Desktop) Error(msg string) {
	d.send("critical", "Dictation error", msg)
}

func (d *Desktop) Info(msg string) {
	d.send("low", "hushtype", msg)
}

func (d *Desktop) send(urgency, summary, body string) {
	if !d.Enabled {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "notify-send",
		"--app-name=hushtype",
		"--urgency="+urgency,
		"--expire-time=3000",
		summary, body)
	if err := cmd.Run(); err != nil {
		log.Printf("notify: notify-send failed: %v", err)
	}
}

// Available reports whether notify-send is on PATH.
func Available() bool {
	_, err := exec.LookPath("notify-send")
	return err == nil
}
