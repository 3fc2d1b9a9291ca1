// Package emit renders the converged analyses (§4.3-4.5) and the parsed
// program (§4.6) into the annotated pseudo-C transcription of §6: every
// original instruction preserved inside an `asm("...")` escape, with
// write-summary, function-entry, and liveness-derived returned-register
// comments surrounding it.
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oisee/asm86lift/pkg/funcs"
	"github.com/oisee/asm86lift/pkg/inst"
	"github.com/oisee/asm86lift/pkg/live"
	"github.com/oisee/asm86lift/pkg/program"
	"github.com/oisee/asm86lift/pkg/reg"
	"github.com/oisee/asm86lift/pkg/writes"
)

// Render produces the full pseudo-C output: one const declaration per
// extracted constant (§4.6), then a main() body carrying the annotated
// instruction stream in source order (§6).
func Render(p *program.Program, ws []writes.Summary, fr funcs.Result, lv live.Result) string {
	var b strings.Builder

	for _, c := range p.Constants {
		for _, com := range c.Comments {
			fmt.Fprintf(&b, "//%s\n", com)
		}
		fmt.Fprintf(&b, "const int %s = %s;\n", c.Name, renderOperand(&c.Value))
	}
	if len(p.Constants) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("int main(){\n")
	for i, in := range p.Instructions {
		emitLabels(&b, p, fr, lv, i)
		emitWrites(&b, ws[i])
		emitComments(&b, in.LeadingComments, "")
		fmt.Fprintf(&b, "asm(\"%s\");", renderInstructionText(in))
		if in.TrailingComment != "" {
			fmt.Fprintf(&b, " //%s", in.TrailingComment)
		}
		b.WriteString("\n")
	}
	emitLabels(&b, p, fr, lv, p.Len())
	b.WriteString("}\n")

	return b.String()
}

func emitLabels(b *strings.Builder, p *program.Program, fr funcs.Result, lv live.Result, idx int) {
	for _, lc := range p.LabelComments[idx] {
		emitComments(b, lc.Leading, "")
		if fr.IsEntry(idx) {
			b.WriteString("// function\n")
			if retRegs, ok := ReturnedRegisters(fr, lv, idx); ok {
				fmt.Fprintf(b, "// returns: %s\n", retRegs)
			}
		}
		fmt.Fprintf(b, "%s:", lc.Name)
		if lc.Trailing != "" {
			fmt.Fprintf(b, " //%s", lc.Trailing)
		}
		b.WriteString("\n")
	}
}

func emitComments(b *strings.Builder, comments []string, prefix string) {
	for _, c := range comments {
		fmt.Fprintf(b, "%s//%s\n", prefix, c)
	}
}

// emitWrites renders the `// writes: ...` comment preceding an
// instruction, per §6: sorted key order, `reg`/`reg=otherReg`/
// `reg=[sp+idx]` per binding, or the literal `no return`.
func emitWrites(b *strings.Builder, s writes.Summary) {
	if s.IsNoReturn() {
		b.WriteString("// writes: no return\n")
		return
	}

	keys := make([]reg.Name, 0, len(s.Writes))
	for k := range s.Writes {
		keys = append(keys, k)
	}
	sortNames(keys)

	if len(keys) == 0 {
		b.WriteString("// writes: (none)\n")
		return
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, formatBinding(k, s.Writes[k]))
	}
	fmt.Fprintf(b, "// writes: %s\n", strings.Join(parts, ", "))
}

func formatBinding(k reg.Name, v writes.Value) string {
	switch v.Kind {
	case writes.Reg:
		return fmt.Sprintf("%s=%s", k, v.Reg)
	case writes.Stack:
		return fmt.Sprintf("%s=[sp+%d]", k, v.StackIdx)
	default:
		return string(k)
	}
}

// ReturnedRegisters renders an entry's `// returns: ...` comment body,
// the registers functionReturns[e] records as visible to callers. A
// 16-bit register listed there stands in for its two byte halves, which
// are not listed separately.
func ReturnedRegisters(fr funcs.Result, lv live.Result, idx int) (string, bool) {
	if !fr.IsEntry(idx) {
		return "", false
	}
	shown := lv.FunctionReturns[idx].Clone()
	for r := range lv.FunctionReturns[idx] {
		if high, low, ok := reg.Halves(r); ok {
			shown.Remove(high)
			shown.Remove(low)
		}
	}
	regs := shown.Sorted()
	if len(regs) == 0 {
		return "(none)", true
	}
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = string(r)
	}
	return strings.Join(names, " "), true
}

func sortNames(names []reg.Name) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
}

// renderInstructionText renders an instruction's mnemonic and operand
// list as the text that belongs inside the asm("...") escape, with
// double quotes escaped since the result is embedded in a C string
// literal.
func renderInstructionText(in inst.Instruction) string {
	var parts []string
	for _, o := range in.Operands {
		parts = append(parts, renderOperand(&o))
	}
	text := in.Mnemonic
	if len(parts) > 0 {
		text += " " + strings.Join(parts, ", ")
	}
	return strings.ReplaceAll(text, `"`, `\"`)
}

// renderOperand pretty-prints the recursive operand expression of §3.
func renderOperand(o *inst.Operand) string {
	if o == nil {
		return ""
	}
	switch o.Kind {
	case inst.OpRegister:
		return string(o.Reg)
	case inst.OpNumber:
		return strconv.FormatInt(o.Value, 10)
	case inst.OpString:
		return "'" + o.Text + "'"
	case inst.OpSymbol:
		return o.Text
	case inst.OpDollar:
		return "$"
	case inst.OpMemory:
		if o.Mem == nil {
			return "[]"
		}
		return "[" + renderOperand(o.Mem.Expr) + "]"
	case inst.OpBinary:
		return renderOperand(o.Left) + string(o.BinOp) + renderOperand(o.Right)
	case inst.OpUnary:
		return string(o.UnOp) + renderOperand(o.Inner)
	case inst.OpGarbage:
		return fmt.Sprintf("<garbage:%s:%s>", o.Text, o.Reason)
	default:
		return ""
	}
}
