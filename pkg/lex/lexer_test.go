package lex

import "testing"

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeInstructionLine(t *testing.T) {
	toks := Tokenize([]byte("MOV AX, BX\n"))
	got := kinds(toks)
	want := []Kind{Ident, Ident, Comma, Ident, Newline, EOF}
	if len(got) != len(want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kind[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTruncatesAtControlZ(t *testing.T) {
	toks := Tokenize([]byte("MOV AX, BX\n\x1aGARBAGE THAT SHOULD NOT APPEAR"))
	for _, tok := range toks {
		if tok.Kind == Ident && tok.Text == "GARBAGE" {
			t.Fatalf("tokens after control-Z should be discarded, got %v", tok)
		}
	}
}

func TestTrailingCommentAttachesToPriorToken(t *testing.T) {
	toks := Tokenize([]byte("MOV AX, BX ; copy bx into ax\n"))
	var movTok Token
	for _, tok := range toks {
		if tok.Kind == Ident && tok.Text == "BX" {
			movTok = tok
		}
	}
	if movTok.Trailing != " copy bx into ax" {
		t.Errorf("Trailing = %q, want %q", movTok.Trailing, " copy bx into ax")
	}
}

func TestLeadingCommentAttachesToNextToken(t *testing.T) {
	toks := Tokenize([]byte("; sets up the accumulator\nMOV AX, 1\n"))
	var movTok Token
	for _, tok := range toks {
		if tok.Kind == Ident && tok.Text == "MOV" {
			movTok = tok
		}
	}
	if len(movTok.Leading) != 1 || movTok.Leading[0] != " sets up the accumulator" {
		t.Errorf("Leading = %v, want one comment", movTok.Leading)
	}
}

func TestHexNumberSuffix(t *testing.T) {
	toks := Tokenize([]byte("14H\n"))
	if toks[0].Kind != Number || toks[0].Text != "14" || !toks[0].Hex {
		t.Errorf("token = %+v, want Number 14 hex", toks[0])
	}
}

func TestUnknownByteBecomesUnknownToken(t *testing.T) {
	toks := Tokenize([]byte("MOV AX, @\n"))
	found := false
	for _, tok := range toks {
		if tok.Kind == Unknown && tok.Text == "@" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an Unknown token for '@', got %v", kinds(toks))
	}
}
