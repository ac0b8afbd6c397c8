package injection

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Clipboard abstracts the system clipboard. Wayland has no native change
// counter, so implementations emulate one: the counter advances whenever a
// write goes through this process or an external content change is observed.
type Clipboard interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, text string) error
	ChangeCount(ctx context.Context) int64
}

// WlClipboard drives wl-copy/wl-paste from the wl-clipboard package.
type WlClipboard struct {
	timeout time.Duration

	mu       sync.Mutex
	lastSeen string
	known    bool
	count    int64
}

func NewWlClipboard(timeout time.Duration) *WlClipboard {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &WlClipboard{timeout: timeout}
}

func (c *WlClipboard) Read(ctx context.Context) (string, error) {
	if err := checkClipboardAvailable(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// wl-paste exits non-zero on an empty clipboard; treat that as empty.
	cmd := exec.CommandContext(ctx, "wl-paste", "--no-newline")
	output, err := cmd.Output()
	if err != nil {
		c.observe("")
		return "", nil
	}

	content := string(output)
	c.observe(content)
	return content, nil
}

func (c *WlClipboard) Write(ctx context.Context, text string) error {
	if err := checkClipboardAvailable(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "wl-copy")
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wl-copy failed: %w", err)
	}

	c.mu.Lock()
	c.lastSeen = text
	c.known = true
	c.count++
	c.mu.Unlock()
	return nil
}

// ChangeCount polls the clipboard and returns the emulated counter.
func (c *WlClipboard) ChangeCount(ctx context.Context) int64 {
	_, _ = c.Read(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// observe bumps the counter when the content differs from what we last saw.
func (c *WlClipboard) observe(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.known {
		c.lastSeen = content
		c.known = true
		return
	}
	if content != c.lastSeen {
		c.lastSeen = content
		c.count++
	}
}

func checkClipboardAvailable() error {
	if _, err := exec.LookPath("wl-copy"); err != nil {
		return fmt.Errorf("wl-copy not found: %w (install wl-clipboard)", err)
	}
	if _, err := exec.LookPath("wl-paste"); err != nil {
		return fmt.Errorf("wl-paste not found: %w (install wl-clipboard)", err)
	}
	return nil
}

// MemoryClipboard is an in-process clipboard with real change-counter
// semantics, used by tests and headless builds.
type MemoryClipboard struct {
	mu      sync.Mutex
	content string
	count   int64
}

func NewMemoryClipboard() *MemoryClipboard { return &MemoryClipboard{} }

func (c *MemoryClipboard) Read(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, nil
}

func (c *MemoryClipboard) Write(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = text
	c.count++
	return nil
}

func (c *MemoryClipboard) ChangeCount(ctx context.Context) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
