package inst

// Kind discriminates the three structured instruction families
// recognised by the §6 post-pass from the generic fallback form.
type Kind int

const (
	KindGeneric Kind = iota
	KindDataMove
	KindJump
	KindCondJump
)

// Instruction is one entry of the instruction stream (§3). Mnemonic is
// always stored lowercased. Operands holds the full operand list
// regardless of Kind; Dst/Src/Target/Cond are populated only for
// the matching structured Kind so that a generic consumer can always
// fall back to Operands.
type Instruction struct {
	Kind     Kind
	Mnemonic string
	Operands []Operand

	Dst, Src *Operand // KindDataMove

	Target *Operand // KindJump, KindCondJump
	Cond   string   // KindCondJump: condition mnemonic suffix, e.g. "z", "le"

	// Leading/trailing source comments attached by the lexer (§6),
	// preserved through to emission.
	LeadingComments []string
	TrailingComment string
}

// dataMoveMnemonics are the instructions recognised as KindDataMove by
// the structured post-pass (§6: "mov ... to their typed variants").
var dataMoveMnemonics = map[string]bool{"mov": true}

// jumpConditions maps a conditional jump mnemonic suffix to its
// canonical condition code, matching the naming used by §4.2's flag-use
// table (je/jz share a condition, etc).
var jumpConditions = map[string]string{
	"jz": "z", "je": "z",
	"jnz": "nz", "jne": "nz",
	"jl": "l", "jnge": "l",
	"jge": "ge", "jnl": "ge",
	"jle": "le", "jng": "le",
	"jg": "g", "jnle": "g",
	"jb": "b", "jnae": "b", "jc": "b",
	"jae": "ae", "jnb": "ae", "jnc": "ae",
	"jbe": "be", "jna": "be",
	"ja": "a", "jnbe": "a",
	"js": "s", "jns": "ns",
	"jo": "o", "jno": "no",
	"jp": "p", "jpe": "p",
	"jnp": "np", "jpo": "np",
	"jcxz": "cxz",
}

// unconditionalJump is the one unconditional jump mnemonic the post-pass
// recognises; "jmp" variants such as a far jump are treated generically
// since the spec restricts structured jumps to a single target operand.
const unconditionalJump = "jmp"

// Classify runs the §6 structured-instruction recognition post-pass over
// a generic instruction, converting mov and j* forms to their typed
// Kind. On any shape mismatch the instruction is returned unchanged as
// KindGeneric (§7's "silent" error class: fall back to the generic
// form).
func Classify(in Instruction) Instruction {
	switch {
	case dataMoveMnemonics[in.Mnemonic] && len(in.Operands) == 2:
		dst, src := in.Operands[0], in.Operands[1]
		in.Kind = KindDataMove
		in.Dst, in.Src = &dst, &src
		return in

	case in.Mnemonic == unconditionalJump && len(in.Operands) == 1:
		tgt := in.Operands[0]
		in.Kind = KindJump
		in.Target = &tgt
		return in

	default:
		if cond, ok := jumpConditions[in.Mnemonic]; ok && len(in.Operands) == 1 {
			tgt := in.Operands[0]
			in.Kind = KindCondJump
			in.Target = &tgt
			in.Cond = cond
			return in
		}
	}
	return in
}

// TargetLabel returns the label name a jump/call target resolves to, and
// whether the target operand was a plain symbol (as opposed to a
// computed or garbage expression the analyses must treat as unresolved).
func TargetLabel(o *Operand) (string, bool) {
	if o == nil || o.Kind != OpSymbol {
		return "", false
	}
	return o.Text, true
}
