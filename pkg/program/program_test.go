package program

import (
	"testing"

	"github.com/oisee/asm86lift/pkg/lex"
	"github.com/oisee/asm86lift/pkg/parse"
)

func build(t *testing.T, src string) *Program {
	t.Helper()
	return Build(parse.Lines(lex.Tokenize([]byte(src))))
}

func TestEquIsExtractedAsConstant(t *testing.T) {
	p := build(t, "FOO EQU 14H\nMOV AX, FOO\n")
	if len(p.Constants) != 1 || p.Constants[0].Name != "FOO" {
		t.Fatalf("Constants = %+v", p.Constants)
	}
	if p.Len() != 1 {
		t.Fatalf("equ line must not appear in the instruction stream, got %d instructions", p.Len())
	}
}

func TestColonLabelImmediatelyFollowedByEqu(t *testing.T) {
	p := build(t, "FOO:\nEQU 14H\nRET\n")
	if len(p.Constants) != 1 || p.Constants[0].Name != "FOO" {
		t.Fatalf("Constants = %+v, want FOO hoisted from the preceding label", p.Constants)
	}
	if p.Len() != 1 {
		t.Fatalf("want exactly the ret instruction left, got %d", p.Len())
	}
}

func TestLabelAttachesToNextInstruction(t *testing.T) {
	p := build(t, "START:\nMOV AX, BX\nRET\n")
	idx, ok := p.Labels["start"]
	if !ok || idx != 0 {
		t.Fatalf("Labels[start] = (%d,%v), want (0,true)", idx, ok)
	}
}

func TestMultipleLabelsOnSameInstruction(t *testing.T) {
	p := build(t, "A:\nB:\nRET\n")
	if p.Labels["a"] != 0 || p.Labels["b"] != 0 {
		t.Fatalf("both labels should attach to index 0: %+v", p.Labels)
	}
	if len(p.LabelsAt[0]) != 2 {
		t.Fatalf("LabelsAt[0] = %v, want 2 names", p.LabelsAt[0])
	}
}

func TestLabelLineCommentsSurviveToLabelComments(t *testing.T) {
	p := build(t, "START: ; entry point\nRET\n")
	lcs := p.LabelComments[0]
	if len(lcs) != 1 || lcs[0].Name != "START" || lcs[0].Trailing != " entry point" {
		t.Fatalf("LabelComments[0] = %+v, want START with trailing ' entry point'", lcs)
	}
}
