// Package program assembles the parsed line stream into the flat
// instruction array plus label tables the three analyses operate over,
// performing the §4.6 constant-extraction pass along the way.
package program

import (
	"strings"

	"github.com/oisee/asm86lift/pkg/inst"
	"github.com/oisee/asm86lift/pkg/parse"
)

// Constant is a `NAME EQU value` pair hoisted out of the instruction
// stream before the analyses run (§4.6).
type Constant struct {
	Name     string
	Value    inst.Operand
	Comments []string
}

// LabelComment carries the source comments of one bare `NAME:` line
// through to emission, since that line itself never becomes an
// Instruction for LeadingComments/TrailingComment to live on.
type LabelComment struct {
	Name     string
	Leading  []string
	Trailing string
}

// pendingLabel is a label seen but not yet attached to an instruction
// index, carrying the comments from its own source line.
type pendingLabel struct {
	Name     string
	Leading  []string
	Trailing string
}

// Program is the frozen input every analysis pass reads.
type Program struct {
	Instructions []inst.Instruction

	// Labels maps a lowercased label name to the index of the
	// instruction it precedes. LabelNames records the first-seen
	// original spelling of each name; emission takes label spellings
	// from LabelComments instead.
	Labels     map[string]int
	LabelNames map[string]string

	// LabelsAt is the inverse multi-mapping: instruction index to the
	// (possibly several) label spellings attached there, in source
	// order.
	LabelsAt map[int][]string

	// LabelComments holds, for each index in LabelsAt, the matching
	// label's own source-line comments, parallel to LabelsAt.
	LabelComments map[int][]LabelComment

	Constants []Constant
}

// Build consumes the raw line stream, performing constant extraction
// and label-index bookkeeping. All other label/instruction ordering is
// preserved exactly, per §4.6.
func Build(lines []parse.RawLine) *Program {
	p := &Program{
		Labels:        map[string]int{},
		LabelNames:    map[string]string{},
		LabelsAt:      map[int][]string{},
		LabelComments: map[int][]LabelComment{},
	}

	var pending []pendingLabel

	for _, line := range lines {
		if line.Instr == nil {
			pending = append(pending, pendingLabel{Name: line.Label, Leading: line.Leading, Trailing: line.Trailing})
			continue
		}

		if line.Instr.Mnemonic == "equ" {
			var lbl pendingLabel
			if line.Label != "" {
				lbl = pendingLabel{Name: line.Label}
			} else if len(pending) > 0 {
				lbl = pending[len(pending)-1]
				pending = pending[:len(pending)-1]
			}
			p.Constants = append(p.Constants, buildConstant(lbl, *line.Instr))
			continue
		}

		if line.Label != "" {
			pending = append(pending, pendingLabel{Name: line.Label})
		}
		idx := len(p.Instructions)
		p.attachLabels(idx, pending)
		pending = nil

		p.Instructions = append(p.Instructions, *line.Instr)
	}

	if len(pending) > 0 {
		p.attachLabels(len(p.Instructions), pending)
	}

	return p
}

func buildConstant(lbl pendingLabel, eq inst.Instruction) Constant {
	var val inst.Operand
	if len(eq.Operands) > 0 {
		val = eq.Operands[0]
	} else {
		val = inst.Garbage("", "equ directive has no value operand")
	}
	var comments []string
	comments = append(comments, lbl.Leading...)
	if lbl.Trailing != "" {
		comments = append(comments, lbl.Trailing)
	}
	comments = append(comments, eq.LeadingComments...)
	if eq.TrailingComment != "" {
		comments = append(comments, eq.TrailingComment)
	}
	return Constant{Name: lbl.Name, Value: val, Comments: comments}
}

func (p *Program) attachLabels(idx int, labels []pendingLabel) {
	for _, lbl := range labels {
		key := strings.ToLower(lbl.Name)
		if _, exists := p.Labels[key]; !exists {
			p.Labels[key] = idx
			p.LabelNames[key] = lbl.Name
		}
		p.LabelsAt[idx] = append(p.LabelsAt[idx], lbl.Name)
		p.LabelComments[idx] = append(p.LabelComments[idx], LabelComment{Name: lbl.Name, Leading: lbl.Leading, Trailing: lbl.Trailing})
	}
}

// Resolve looks up a symbol operand's label index.
func (p *Program) Resolve(o *inst.Operand) (int, bool) {
	name, ok := inst.TargetLabel(o)
	if !ok {
		return 0, false
	}
	idx, ok := p.Labels[strings.ToLower(name)]
	return idx, ok
}

// Len returns the number of instructions in the stream.
func (p *Program) Len() int { return len(p.Instructions) }
