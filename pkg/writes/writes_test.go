package writes

import (
	"testing"

	"github.com/oisee/asm86lift/pkg/lex"
	"github.com/oisee/asm86lift/pkg/parse"
	"github.com/oisee/asm86lift/pkg/program"
	"github.com/oisee/asm86lift/pkg/reg"
)

func analyze(t *testing.T, src string) ([]Summary, *program.Program) {
	t.Helper()
	p := program.Build(parse.Lines(lex.Tokenize([]byte(src))))
	return Analyze(p), p
}

// S1 — register copy. MOV AX, BX alone.
func TestS1RegisterCopy(t *testing.T) {
	ws, _ := analyze(t, "MOV AX, BX\n")
	s := ws[0]
	if !isNoReturn(s) {
		t.Fatalf("expected no-return suffix, got returnsAt=%v", s.ReturnsAt)
	}
}

// S2 — push/pop round-trip. PUSH BX ; POP AX ; RET.
func TestS2PushPopRoundTrip(t *testing.T) {
	ws, _ := analyze(t, "PUSH BX\nPOP AX\nRET\n")
	s := ws[0]
	if _, ok := s.ReturnsAt[2]; !ok || len(s.ReturnsAt) != 1 {
		t.Fatalf("ReturnsAt = %v, want {2}", s.ReturnsAt)
	}
	if s.SP != (SP{Delta: 0}) {
		t.Fatalf("SP = %v, want 0", s.SP)
	}
	ax, ok := s.Writes[reg.AX]
	if !ok || ax.Kind != Reg || ax.Reg != reg.BX {
		t.Errorf("writes[ax] = %+v, want Reg(bx)", ax)
	}
	ah, ok := s.Writes[reg.AH]
	if !ok || ah.Kind != Reg || ah.Reg != reg.BH {
		t.Errorf("writes[ah] = %+v, want Reg(bh)", ah)
	}
	al, ok := s.Writes[reg.AL]
	if !ok || al.Kind != Reg || al.Reg != reg.BL {
		t.Errorf("writes[al] = %+v, want Reg(bl)", al)
	}
}

// S3 — stack clobber. PUSH AX ; MOV SP, BX ; POP AX ; RET.
func TestS3StackClobber(t *testing.T) {
	ws, _ := analyze(t, "PUSH AX\nMOV SP, BX\nPOP AX\nRET\n")
	s := ws[0]
	if s.SP.Any != true {
		t.Fatalf("SP = %v, want Any", s.SP)
	}
	ax, ok := s.Writes[reg.AX]
	if !ok || ax.Kind != Any {
		t.Errorf("writes[ax] = %+v, want Any", ax)
	}
}

func TestInvariantReturnsAtEmptyImpliesWritesEmpty(t *testing.T) {
	ws, _ := analyze(t, "MOV AX, BX\nMOV CX, DX\n")
	for i, s := range ws {
		if len(s.ReturnsAt) == 0 && len(s.Writes) != 0 {
			t.Errorf("index %d: no-return but writes=%v", i, s.Writes)
		}
	}
}

func TestInvariantNoSelfMapping(t *testing.T) {
	ws, _ := analyze(t, "MOV AX, BX\nMOV BX, AX\nRET\n")
	for i, s := range ws {
		for k, v := range s.Writes {
			if v.Kind == Reg && v.Reg == k {
				t.Errorf("index %d: key %s maps to itself", i, k)
			}
		}
	}
}
