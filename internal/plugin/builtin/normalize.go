// Package builtin ships the plugins bundled with the daemon. Each one
// registers its factory at init and is enabled through a manifest in the
// plugin directory like any third-party module.
package builtin

import (
	"context"
	"strings"

	"github.com/hushtype/hushtype/internal/plugin"
)

func init() {
	plugin.RegisterFactory("normalize", func() plugin.Plugin { return &Normalize{} })
}

// Normalize is a processing plugin that cleans up raw transcripts:
// collapses whitespace and drops immediately repeated words (the "I I
// think" stutter pattern speech engines tend to emit).
type Normalize struct{}

func (n *Normalize) Info() plugin.Info {
	return plugin.Info{
		ID:         "normalize",
		Name:       "Transcript Normalizer",
		Version:    "1.0.0",
		APIVersion: plugin.HostAPIVersion,
	}
}

func (n *Normalize) Activate() error   { return nil }
func (n *Normalize) Deactivate() error { return nil }

// Priority 10: normalization runs before every other processor.
func (n *Normalize) Priority() int   { return 10 }
func (n *Normalize) Modes() []string { return nil }

func (n *Normalize) Process(ctx context.Context, text string, session plugin.Session) (string, error) {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len(out) > 0 && strings.EqualFold(out[len(out)-1], w) {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " "), nil
}
