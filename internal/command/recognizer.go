// Package command matches transcripts against the voice-command patterns
// contributed by active command plugins. Recognition runs once per session,
// before the text-processing fold, and is separate from it: a matched
// command's handler decides what (if anything) still gets injected.
package command

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/hushtype/hushtype/internal/plugin"
)

type entry struct {
	cmd plugin.Command
	re  *regexp.Regexp
}

// Recognizer holds the compiled pattern table.
type Recognizer struct {
	entries []entry
}

func NewRecognizer() *Recognizer { return &Recognizer{} }

// SetCommands replaces the pattern table. Commands with invalid patterns
// are logged and skipped; one bad plugin never disables the rest.
func (r *Recognizer) SetCommands(cmds []plugin.Command) {
	entries := make([]entry, 0, len(cmds))
	for _, c := range cmds {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			log.Printf("command: invalid pattern for %q: %v", c.Name, err)
			continue
		}
		entries = append(entries, entry{cmd: c, re: re})
	}
	r.entries = entries
}

// Len returns the number of usable patterns.
func (r *Recognizer) Len() int { return len(r.entries) }

// Match is a recognized command ready to run.
type Match struct {
	Name    string
	Arg     string
	handler plugin.Handler
}

// Recognize returns the first command whose pattern matches the transcript.
// The first capture group (when present) becomes the handler argument;
// otherwise the whole transcript does.
func (r *Recognizer) Recognize(text string) (Match, bool) {
	trimmed := strings.TrimSpace(text)
	for _, e := range r.entries {
		groups := e.re.FindStringSubmatch(trimmed)
		if groups == nil {
			continue
		}
		arg := trimmed
		if len(groups) > 1 {
			arg = groups[1]
		}
		return Match{Name: e.cmd.Name, Arg: arg, handler: e.cmd.Handler}, true
	}
	return Match{}, false
}

// Run executes the matched handler. Returns the replacement text and
// whether it should still be injected.
func (m Match) Run(ctx context.Context, session plugin.Session) (string, bool, error) {
	if m.handler == nil {
		return "", false, nil
	}
	return m.handler(ctx, m.Arg, session)
}
