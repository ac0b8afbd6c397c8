package injection

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// YdotoolTyper drives ydotool, the uinput-based fallback for compositors
// without the wtype virtual-keyboard protocol.
type YdotoolTyper struct{}

func NewYdotoolTyper() *YdotoolTyper { return &YdotoolTyper{} }

func (y *YdotoolTyper) Name() string { return "ydotool" }

func (y *YdotoolTyper) Available() error {
	if _, err := exec.LookPath("ydotool"); err != nil {
		return fmt.Errorf("ydotool not found: %w (install ydotool package)", err)
	}

	// Only check socket if ydotoold exists
	if _, err := exec.LookPath("ydotoold"); err == nil {
		socketPath := y.getSocketPath()
		if socketPath == "" {
			return fmt.Errorf("ydotoold socket not found - ensure ydotoold is running")
		}

		// ydotoold v1.0.4+ uses SOCK_DGRAM (unixgram) sockets.
		// Try unixgram first, then fall back to stream for older versions.
		conn, err := net.Dial("unixgram", socketPath)
		if err != nil {
			conn, err = net.DialTimeout("unix", socketPath, 500*time.Millisecond)
		}
		if err != nil {
			return fmt.Errorf("ydotoold not responding at %s: %w", socketPath, err)
		}
		conn.Close()
	}

	return nil
}

func (y *YdotoolTyper) getSocketPath() string {
	// Check YDOTOOL_SOCKET env var first
	if sock := os.Getenv("YDOTOOL_SOCKET"); sock != "" {
		if _, err := os.Stat(sock); err == nil {
			return sock
		}
	}

	// Check common locations
	paths := []string{
		"/run/user/" + fmt.Sprint(os.Getuid()) + "/.ydotool_socket",
		"/tmp/.ydotool_socket",
	}

	// Also check XDG_RUNTIME_DIR
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		paths = append([]string{filepath.Join(xdg, ".ydotool_socket")}, paths...)
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

func (y *YdotoolTyper) Type(ctx context.Context, text string, delay time.Duration) error {
	args := []string{"type"}
	if delay > 0 {
		args = append(args, "--key-delay", strconv.Itoa(int(delay.Milliseconds())))
	}
	args = append(args, "--", text)

	if err := exec.CommandContext(ctx, "ydotool", args...).Run(); err != nil {
		return fmt.Errorf("ydotool failed: %w", err)
	}
	return nil
}

func (y *YdotoolTyper) Paste(ctx context.Context) error {
	// Linux input event codes: 29 = LEFTCTRL, 47 = V.
	cmd := exec.CommandContext(ctx, "ydotool", "key", "29:1", "47:1", "47:0", "29:0")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ydotool paste chord failed: %w", err)
	}
	return nil
}
