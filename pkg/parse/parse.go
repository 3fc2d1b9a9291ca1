// Package parse turns a token stream into a line stream: labels,
// label-with-directive lines, and mnemonic instruction lines (§6).
// Operand parsing never fails a line outright — a malformed operand
// becomes a garbage placeholder and parsing continues (§7).
package parse

import (
	"strconv"
	"strings"

	"github.com/oisee/asm86lift/pkg/inst"
	"github.com/oisee/asm86lift/pkg/lex"
	"github.com/oisee/asm86lift/pkg/reg"
)

// RawLine is one parsed source line, before constant extraction and
// structured-instruction recognition (§4.6, done by pkg/program).
type RawLine struct {
	Label string // "" if this line declares no label
	Instr *inst.Instruction

	Leading  []string
	Trailing string
}

var registerNames = map[string]reg.Name{
	"al": reg.AL, "cl": reg.CL, "dl": reg.DL, "bl": reg.BL,
	"ah": reg.AH, "ch": reg.CH, "dh": reg.DH, "bh": reg.BH,
	"ax": reg.AX, "cx": reg.CX, "dx": reg.DX, "bx": reg.BX,
	"sp": reg.SP, "bp": reg.BP, "si": reg.SI, "di": reg.DI,
}

var labelDirectives = map[string]bool{
	"equ": true, "db": true, "dw": true, "ds": true, "dm": true,
}

// Lines parses a full token stream into its constituent lines.
func Lines(toks []lex.Token) []RawLine {
	p := &parser{toks: toks}
	var lines []RawLine
	for {
		p.skipNewlines()
		if p.atEOF() {
			break
		}
		lines = append(lines, p.parseLine())
	}
	return lines
}

type parser struct {
	toks []lex.Token
	pos  int
}

func (p *parser) peek() lex.Token  { return p.peekAt(0) }
func (p *parser) peekAt(n int) lex.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return lex.Token{Kind: lex.EOF}
	}
	return p.toks[i]
}

func (p *parser) consume() lex.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) atEOF() bool { return p.peek().Kind == lex.EOF }

func (p *parser) skipNewlines() {
	for p.peek().Kind == lex.Newline {
		p.consume()
	}
}

// parseLine dispatches on the first one or two tokens to pick one of
// the three line shapes of §6.
func (p *parser) parseLine() RawLine {
	first := p.peek()
	leading := first.Leading

	if first.Kind == lex.Ident && p.peekAt(1).Kind == lex.Colon {
		p.consume() // identifier
		colon := p.consume()
		trailing := colon.Trailing
		p.skipToLineEnd(&trailing)
		return RawLine{Label: first.Text, Leading: leading, Trailing: trailing}
	}

	if first.Kind == lex.Ident && p.peekAt(1).Kind == lex.Ident &&
		labelDirectives[strings.ToLower(p.peekAt(1).Text)] {
		p.consume() // label identifier
		mnemTok := p.consume()
		instr := p.parseInstructionBody(mnemTok)
		instr.LeadingComments = leading
		return RawLine{Label: first.Text, Instr: &instr, Leading: leading, Trailing: instr.TrailingComment}
	}

	mnemTok := p.consume()
	instr := p.parseInstructionBody(mnemTok)
	instr.LeadingComments = leading
	return RawLine{Instr: &instr, Leading: leading, Trailing: instr.TrailingComment}
}

// parseInstructionBody parses the comma-separated operand list
// following mnemTok, up to the terminating newline sentinel or EOF.
func (p *parser) parseInstructionBody(mnemTok lex.Token) inst.Instruction {
	in := inst.Instruction{Mnemonic: strings.ToLower(mnemTok.Text)}
	trailing := mnemTok.Trailing

	for {
		k := p.peek().Kind
		if k == lex.Newline || k == lex.EOF {
			break
		}
		op := p.parseExpr(&trailing)
		in.Operands = append(in.Operands, op)

		if p.peek().Kind == lex.Comma {
			t := p.consume()
			if t.Trailing != "" {
				trailing = t.Trailing
			}
			continue
		}
		break
	}

	p.skipToLineEnd(&trailing)
	in.TrailingComment = trailing
	in = inst.Classify(in)
	return in
}

// skipToLineEnd consumes any stray tokens up to the next newline/EOF,
// folding the last trailing comment seen into *trailing, then consumes
// the newline itself if present.
func (p *parser) skipToLineEnd(trailing *string) {
	for {
		k := p.peek().Kind
		if k == lex.Newline || k == lex.EOF {
			break
		}
		t := p.consume()
		if t.Trailing != "" {
			*trailing = t.Trailing
		}
	}
	if p.peek().Kind == lex.Newline {
		t := p.consume()
		if t.Trailing != "" {
			*trailing = t.Trailing
		}
	}
}

// parseExpr parses a left-associative +/- chain of primaries.
func (p *parser) parseExpr(trailing *string) inst.Operand {
	left := p.parsePrimary(trailing)
	for {
		k := p.peek().Kind
		if k != lex.Plus && k != lex.Minus {
			break
		}
		opTok := p.consume()
		op := byte('+')
		if k == lex.Minus {
			op = '-'
		}
		right := p.parsePrimary(trailing)
		l, r := left, right
		left = inst.Operand{Kind: inst.OpBinary, BinOp: op, Left: &l, Right: &r}
		_ = opTok
	}
	return left
}

// parsePrimary parses one operand primary: `[expr]`, a unary +/-, an
// identifier (register or symbol), a number, a string, or `$`.
// Anything else degrades to a garbage operand carrying the offending
// token (§7).
func (p *parser) parsePrimary(trailing *string) inst.Operand {
	tok := p.peek()
	if tok.Trailing != "" {
		*trailing = tok.Trailing
	}

	switch tok.Kind {
	case lex.LBracket:
		p.consume()
		inner := p.parseExpr(trailing)
		if p.peek().Kind == lex.RBracket {
			p.consume()
		} else {
			return inst.Garbage("[", "unterminated memory operand")
		}
		mem := &inst.MemOperand{Expr: &inner}
		inst.ClassifyAddress(mem)
		return inst.Operand{Kind: inst.OpMemory, Mem: mem}

	case lex.Plus, lex.Minus:
		p.consume()
		op := byte('+')
		if tok.Kind == lex.Minus {
			op = '-'
		}
		inner := p.parsePrimary(trailing)
		return inst.Operand{Kind: inst.OpUnary, UnOp: op, Inner: &inner}

	case lex.Ident:
		p.consume()
		if r, ok := registerNames[strings.ToLower(tok.Text)]; ok {
			return inst.Operand{Kind: inst.OpRegister, Reg: r}
		}
		return inst.Operand{Kind: inst.OpSymbol, Text: tok.Text}

	case lex.Number:
		p.consume()
		base := 10
		if tok.Hex {
			base = 16
		}
		v, err := strconv.ParseInt(tok.Text, base, 64)
		if err != nil {
			return inst.Garbage(tok.Text, "invalid numeric literal")
		}
		return inst.Operand{Kind: inst.OpNumber, Value: v}

	case lex.String:
		p.consume()
		return inst.Operand{Kind: inst.OpString, Text: tok.Text}

	case lex.Dollar:
		p.consume()
		return inst.Operand{Kind: inst.OpDollar}

	default:
		p.consume()
		return inst.Garbage(tok.Text, "unexpected token in operand")
	}
}
