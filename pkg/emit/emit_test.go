package emit

import (
	"strings"
	"testing"

	"github.com/oisee/asm86lift/pkg/funcs"
	"github.com/oisee/asm86lift/pkg/lex"
	"github.com/oisee/asm86lift/pkg/live"
	"github.com/oisee/asm86lift/pkg/parse"
	"github.com/oisee/asm86lift/pkg/program"
	"github.com/oisee/asm86lift/pkg/writes"
)

func render(t *testing.T, src string) string {
	t.Helper()
	p := program.Build(parse.Lines(lex.Tokenize([]byte(src))))
	ws := writes.Analyze(p)
	fr := funcs.Discover(p, ws)
	lv := live.Analyze(p, ws, fr)
	return Render(p, ws, fr, lv)
}

func TestRenderEmitsMainFunction(t *testing.T) {
	out := render(t, "MOV AX, BX\n")
	if !strings.Contains(out, "int main(){") {
		t.Fatalf("output missing main() body:\n%s", out)
	}
	if !strings.Contains(out, `asm("mov ax, bx");`) {
		t.Errorf("output missing instruction escape:\n%s", out)
	}
}

func TestRenderEmitsConstant(t *testing.T) {
	out := render(t, "FOO EQU 14H\nMOV AX, FOO\n")
	if !strings.Contains(out, "const int FOO = 20;") {
		t.Errorf("output missing constant declaration:\n%s", out)
	}
}

func TestRenderNoReturnWritesComment(t *testing.T) {
	out := render(t, "MOV AX, BX\n")
	if !strings.Contains(out, "// writes: no return") {
		t.Errorf("output missing no-return writes comment:\n%s", out)
	}
}

func TestRenderWritesCommentShowsRegisterAlias(t *testing.T) {
	out := render(t, "PUSH BX\nPOP AX\nRET\n")
	if !strings.Contains(out, "ax=bx") {
		t.Errorf("output missing ax=bx write binding:\n%s", out)
	}
}

func TestRenderMarksDiscoveredFunction(t *testing.T) {
	out := render(t, "CALL F\nRET\nF:\nRET\n")
	idx := strings.Index(out, "// function")
	labelIdx := strings.Index(out, "F:")
	if idx == -1 || labelIdx == -1 || idx > labelIdx {
		t.Fatalf("want // function before F: label, got:\n%s", out)
	}
}

func TestRenderReturnsCommentListsRegisters(t *testing.T) {
	out := render(t, "CALL F\nMOV BX, AX\nRET\nF:\nMOV AX, 1\nRET\n")
	if !strings.Contains(out, "// returns: ax") {
		t.Errorf("output missing returns comment with ax:\n%s", out)
	}
}

func TestRenderPreservesTrailingComment(t *testing.T) {
	out := render(t, "MOV AX, BX ; copy bx into ax\n")
	if !strings.Contains(out, "// copy bx into ax") {
		t.Errorf("output missing preserved trailing comment:\n%s", out)
	}
}

func TestRenderGarbageOperandSurfacesDiagnostic(t *testing.T) {
	out := render(t, "MOV AX, )\n")
	if !strings.Contains(out, "<garbage:") {
		t.Errorf("output missing garbage operand marker:\n%s", out)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	src := "CALL F\nMOV BX, AX\nRET\nF:\nMOV AX, 1\nRET\n"
	first := render(t, src)
	second := render(t, src)
	if first != second {
		t.Fatalf("render is not idempotent:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}
