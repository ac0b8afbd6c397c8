package builtin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hushtype/hushtype/internal/llm"
	"github.com/hushtype/hushtype/internal/plugin"
)

func init() {
	plugin.RegisterFactory("rewrite", func() plugin.Plugin { return &Rewrite{} })
}

// defaultMaxTokens caps generation when the config leaves max_tokens unset.
const defaultMaxTokens = 512

var (
	generatorMu sync.RWMutex
	generator   llm.Generator
	maxTokens   = defaultMaxTokens
)

// SetGenerator wires the language-generation collaborator into the rewrite
// plugin. Factories take no arguments, so the daemon injects the generator
// before discovery runs; without one the command reports a clear error.
// tokens caps each generation; values <= 0 fall back to the default.
func SetGenerator(g llm.Generator, tokens int) {
	generatorMu.Lock()
	defer generatorMu.Unlock()
	generator = g
	if tokens > 0 {
		maxTokens = tokens
	} else {
		maxTokens = defaultMaxTokens
	}
}

func currentGenerator() (llm.Generator, int) {
	generatorMu.RLock()
	defer generatorMu.RUnlock()
	return generator, maxTokens
}

// Rewrite is a command plugin: saying "rewrite formally <text>" (or
// "rephrase ...") sends the spoken text through the LLM and injects the
// rewritten result instead.
type Rewrite struct{}

func (r *Rewrite) Info() plugin.Info {
	return plugin.Info{
		ID:         "rewrite",
		Name:       "LLM Rewrite Command",
		Version:    "1.0.0",
		APIVersion: plugin.HostAPIVersion,
	}
}

func (r *Rewrite) Activate() error   { return nil }
func (r *Rewrite) Deactivate() error { return nil }

func (r *Rewrite) Commands() []plugin.Command {
	return []plugin.Command{
		{
			Name:    "rewrite",
			Pattern: `(?i)^(?:rewrite|rephrase)(?: this)?[,:]?\s+(.+)$`,
			Handler: r.handle,
		},
	}
}

func (r *Rewrite) handle(ctx context.Context, arg string, session plugin.Session) (string, bool, error) {
	g, tokens := currentGenerator()
	if g == nil {
		return "", false, fmt.Errorf("rewrite: no generator configured")
	}

	prompt := fmt.Sprintf(
		"Rewrite the following dictated text so it reads cleanly and formally. "+
			"Reply with the rewritten text only.\n\n%s", arg)

	gen, err := g.Generate(ctx, prompt, tokens, nil)
	if err != nil {
		return "", false, fmt.Errorf("rewrite: %w", err)
	}
	return strings.TrimSpace(gen.Text), true, nil
}
