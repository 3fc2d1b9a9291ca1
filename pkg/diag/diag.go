// Package diag is the ambient diagnostic sink for the *Local,
// recoverable* error classes of spec.md §7: unrecognised mnemonics and
// malformed operands never abort the pipeline, they are logged (an
// unknown mnemonic once per name, a malformed operand at every
// occurrence) and handled conservatively by the analyses. No
// third-party logging library appears anywhere in the retrieved corpus
// for a project this size, so this follows the teacher's own pattern of
// plain fmt.Fprintf(os.Stderr, ...) calls (see DESIGN.md).
package diag

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Sink collects diagnostics emitted during a single pipeline run,
// de-duplicating unknown-mnemonic warnings (§7: "log once") while
// writing every message to an underlying writer as it is logged.
type Sink struct {
	w      io.Writer
	prefix string

	mu   sync.Mutex
	seen map[string]bool
}

// NewSink returns a Sink writing to w, every line prefixed with
// "<prefix>: ".
func NewSink(w io.Writer, prefix string) *Sink {
	return &Sink{w: w, prefix: prefix, seen: map[string]bool{}}
}

// Stderr is the default sink used by the CLI entrypoint.
func Stderr(prefix string) *Sink { return NewSink(os.Stderr, prefix) }

// Warnf logs a diagnostic unconditionally.
func (s *Sink) Warnf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s: %s\n", s.prefix, fmt.Sprintf(format, args...))
}

// UnknownMnemonic logs an unrecognised mnemonic exactly once per
// distinct name, per §7's "log once" directive for that error class.
func (s *Sink) UnknownMnemonic(mnemonic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[mnemonic] {
		return
	}
	s.seen[mnemonic] = true
	fmt.Fprintf(s.w, "%s: unknown mnemonic %q, treating as empty IO\n", s.prefix, mnemonic)
}

// GarbageOperand logs a recoverable operand parse failure.
func (s *Sink) GarbageOperand(token, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s: garbage operand %q: %s\n", s.prefix, token, reason)
}
