package funcs

import (
	"testing"

	"github.com/oisee/asm86lift/pkg/lex"
	"github.com/oisee/asm86lift/pkg/parse"
	"github.com/oisee/asm86lift/pkg/program"
	"github.com/oisee/asm86lift/pkg/writes"
)

func discover(t *testing.T, src string) (Result, *program.Program) {
	t.Helper()
	p := program.Build(parse.Lines(lex.Tokenize([]byte(src))))
	ws := writes.Analyze(p)
	return Discover(p, ws), p
}

// S5 — function discovery by call. CALL F ; RET ; F: RET.
func TestS5FunctionDiscoveryByCall(t *testing.T) {
	r, p := discover(t, "CALL F\nRET\nF:\nRET\n")
	fIdx := p.Labels["f"]
	if !r.IsEntry(fIdx) {
		t.Fatalf("entries = %v, want %d (F) among them", r.Sorted(), fIdx)
	}
}

func TestNonCallTargetIsNotAnEntry(t *testing.T) {
	r, p := discover(t, "JMP L\nL:\nRET\n")
	lIdx := p.Labels["l"]
	if r.IsEntry(lIdx) {
		t.Errorf("a plain jump target must not become an entry by itself")
	}
}
