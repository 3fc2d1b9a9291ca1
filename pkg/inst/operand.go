// Package inst models the parsed instruction stream: operands,
// instructions (generic and the three recognised structured shapes), and
// the per-mnemonic IO model (§4.2) the analyses query.
package inst

import "github.com/oisee/asm86lift/pkg/reg"

// OperandKind discriminates the recursive operand expression grammar of
// §3. Kept as a small closed enum with an exhaustive switch at every
// consumer, per the tagged-variant design note: adding a kind should
// force every switch to be revisited.
type OperandKind int

const (
	OpRegister OperandKind = iota
	OpNumber
	OpString
	OpSymbol
	OpDollar
	OpMemory
	OpBinary
	OpUnary
	OpGarbage
)

// Operand is the recursive expression node of §3. Only the fields that
// apply to Kind are meaningful; the others are zero.
type Operand struct {
	Kind OperandKind

	Reg   reg.Name // OpRegister
	Value int64    // OpNumber
	Text  string   // OpString, OpSymbol, OpGarbage (raw token text)

	Mem *MemOperand // OpMemory

	BinOp       byte     // OpBinary: '+' or '-'
	Left, Right *Operand // OpBinary

	UnOp  byte     // OpUnary: '+' or '-'
	Inner *Operand // OpUnary

	Reason string // OpGarbage: diagnostic describing the parse failure
}

// MemOperand is the bracketed indirection `[addr-expr]`. Expr holds the
// raw parsed expression; BaseReg/IndexReg/Disp are filled in by
// ClassifyAddress, which the parser runs on every memory operand.
type MemOperand struct {
	Expr *Operand

	BaseReg  *reg.Name
	IndexReg *reg.Name
	Disp     *Operand
}

// Garbage builds a garbage operand carrying the offending token text and
// a diagnostic, per §7's "local, recoverable" error class.
func Garbage(token, reason string) Operand {
	return Operand{Kind: OpGarbage, Text: token, Reason: reason}
}

// IsGarbage reports whether o failed to parse.
func (o Operand) IsGarbage() bool { return o.Kind == OpGarbage }

// ClassifyAddress restricts a memory operand's inner expression to the
// (base-reg?, index-reg?, displacement?) shape structured instructions
// use, with base limited to bx|bp and index to si|di (§3). Each '+' term
// is classified on its own: a bx/bp term sets BaseReg and an si/di term
// sets IndexReg (a later one replaces an earlier one), other register
// terms are ignored, and the first non-register term becomes Disp while
// further ones are not recorded. The expression is not checked against
// the shape as a whole, so an out-of-shape expression can still be
// partly classified. The raw Expr is always preserved.
func ClassifyAddress(m *MemOperand) {
	var terms []*Operand
	flatten(m.Expr, &terms)

	for _, t := range terms {
		switch t.Kind {
		case OpRegister:
			switch t.Reg {
			case reg.BX, reg.BP:
				r := t.Reg
				m.BaseReg = &r
			case reg.SI, reg.DI:
				r := t.Reg
				m.IndexReg = &r
			}
		default:
			if m.Disp == nil {
				m.Disp = t
			}
		}
	}
}

// WalkGarbage visits every OpGarbage node reachable from o, depth-first,
// calling fn with its offending token and diagnostic reason. Used by the
// pipeline to surface §7's "local, recoverable" operand failures to the
// diagnostic sink.
func WalkGarbage(o *Operand, fn func(token, reason string)) {
	if o == nil {
		return
	}
	switch o.Kind {
	case OpGarbage:
		fn(o.Text, o.Reason)
	case OpMemory:
		if o.Mem != nil {
			WalkGarbage(o.Mem.Expr, fn)
		}
	case OpBinary:
		WalkGarbage(o.Left, fn)
		WalkGarbage(o.Right, fn)
	case OpUnary:
		WalkGarbage(o.Inner, fn)
	}
}

// flatten walks a left-associative chain of OpBinary('+') nodes into its
// additive terms; subtraction and unary negation are kept as single
// terms since they are not base/index candidates.
func flatten(o *Operand, out *[]*Operand) {
	if o == nil {
		return
	}
	if o.Kind == OpBinary && o.BinOp == '+' {
		flatten(o.Left, out)
		flatten(o.Right, out)
		return
	}
	*out = append(*out, o)
}
