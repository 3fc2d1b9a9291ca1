package live

import (
	"testing"

	"github.com/oisee/asm86lift/pkg/funcs"
	"github.com/oisee/asm86lift/pkg/lex"
	"github.com/oisee/asm86lift/pkg/parse"
	"github.com/oisee/asm86lift/pkg/program"
	"github.com/oisee/asm86lift/pkg/reg"
	"github.com/oisee/asm86lift/pkg/writes"
)

func run(t *testing.T, src string) (Result, *program.Program) {
	t.Helper()
	p := program.Build(parse.Lines(lex.Tokenize([]byte(src))))
	ws := writes.Analyze(p)
	fr := funcs.Discover(p, ws)
	return Analyze(p, ws, fr), p
}

// S4 — flag liveness through conditional.
// CMP AX, BX ; JZ L ; MOV CX, DX ; L: RET
func TestS4FlagLivenessThroughConditional(t *testing.T) {
	r, _ := run(t, "CMP AX, BX\nJZ L\nMOV CX, DX\nL:\nRET\n")

	cmpLive := r.LiveBefore[0]
	if !cmpLive.Has(reg.AX) || !cmpLive.Has(reg.BX) {
		t.Errorf("liveBefore(cmp) = %v, want ax and bx", cmpLive.Sorted())
	}
	if cmpLive.Has(reg.ZF) {
		t.Errorf("liveBefore(cmp) must not include zf (cmp defines it), got %v", cmpLive.Sorted())
	}

	jzLive := r.LiveBefore[1]
	if !jzLive.Has(reg.ZF) {
		t.Errorf("liveBefore(jz) = %v, want zf", jzLive.Sorted())
	}
}

// S6 — inter-procedural return.
// CALL F ; MOV BX, AX ; RET ; F: MOV AX, 1 ; RET
func TestS6InterProceduralReturn(t *testing.T) {
	r, p := run(t, "CALL F\nMOV BX, AX\nRET\nF:\nMOV AX, 1\nRET\n")

	fIdx := p.Labels["f"]
	fr := r.FunctionReturns[fIdx]
	if !fr.Has(reg.AX) {
		t.Fatalf("functionReturns[F] = %v, want ax", fr.Sorted())
	}

	retInF := fIdx + 1
	if !r.LiveBefore[retInF].Has(reg.AX) {
		t.Errorf("liveBefore at F's ret = %v, want ax live on return", r.LiveBefore[retInF].Sorted())
	}
}

func TestS5CallSiteLivenessIsEmptyWhenCalleeUnused(t *testing.T) {
	r, _ := run(t, "CALL F\nRET\nF:\nRET\n")
	if len(r.LiveBefore[0]) != 0 {
		t.Errorf("liveBefore at CALL F = %v, want empty", r.LiveBefore[0].Sorted())
	}
}

// §4.5's special case: a conditional jump whose target is the bare literal
// "ret" (not a resolvable label) acts as an extra return edge out of the
// function that owns it.
func TestConditionalJumpToLiteralRetContributesFunctionReturns(t *testing.T) {
	r, p := run(t, "CALL F\nMOV BX, AX\nRET\nF:\nMOV AX, 1\nCMP AX, AX\nJZ RET\nMOV AX, 2\nRET\n")

	fIdx := p.Labels["f"]
	fret := r.FunctionReturns[fIdx]
	if !fret.Has(reg.AX) {
		t.Fatalf("functionReturns[F] = %v, want ax", fret.Sorted())
	}

	jzIdx := fIdx + 2 // F: mov ax,1 ; cmp ax,ax ; jz ret
	if !r.LiveBefore[jzIdx].Has(reg.AX) {
		t.Errorf("liveBefore(jz ret) = %v, want ax via functionReturns[F]", r.LiveBefore[jzIdx].Sorted())
	}
}
