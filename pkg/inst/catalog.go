package inst

import "github.com/oisee/asm86lift/pkg/reg"

// IO reports the (uses, defines) register sets for in, per the per-mnemonic
// platform table of §4.2. The table is normative: every flag effect below
// must be reproduced exactly, not approximated. unknown reports whether
// the mnemonic was not recognised at all, so a caller can log it once and
// otherwise treat it as empty IO (§7).
func IO(in Instruction) (uses, defines reg.Set, unknown bool) {
	uses, defines = reg.Set{}, reg.Set{}
	m := in.Mnemonic

	switch {
	case in.Kind == KindCondJump:
		for _, bit := range condFlagUses(in.Cond) {
			uses.Add(bit)
		}
		if in.Cond == "cxz" {
			uses.Add(reg.CX)
		}
		return uses, defines, false

	case in.Kind == KindJump:
		// Unconditional jumps report empty IO; control is handled by
		// the write/liveness passes directly, not via uses/defines.
		return uses, defines, false
	}

	switch m {
	case "mov":
		if len(in.Operands) == 2 {
			addOperandRegs(defines, in.Operands[:1])
			addOperandRegs(uses, in.Operands[1:])
		}
		return uses, defines, false

	case "add", "sub", "and", "or", "xor", "adc", "sbb", "neg":
		uses, defines = arithmeticIO(m, in.Operands)
		return uses, defines, false

	case "cmp", "test":
		addOperandRegs(uses, in.Operands)
		defines.Add(reg.Flags)
		return uses, defines, false

	case "not":
		addOperandRegs(uses, in.Operands)
		addOperandRegs(defines, in.Operands)
		return uses, defines, false

	case "inc", "dec":
		addOperandRegs(uses, in.Operands)
		addOperandRegs(defines, in.Operands)
		for _, bit := range []reg.Name{reg.OF, reg.SF, reg.ZF, reg.AF, reg.PF} {
			defines.Add(bit)
		}
		return uses, defines, false

	case "mul", "div":
		return mulDivIO(m, in.Operands)

	case "aam":
		uses.Add(reg.AL)
		defines.Add(reg.AL)
		defines.Add(reg.AH)
		defines.Add(reg.Flags)
		return uses, defines, false

	case "lahf":
		uses.Add(reg.HFlags)
		defines.Add(reg.AH)
		return uses, defines, false

	case "sahf":
		uses.Add(reg.AH)
		defines.Add(reg.HFlags)
		return uses, defines, false

	case "lodb":
		uses.Add(reg.SI)
		defines.Add(reg.AL)
		return uses, defines, false
	case "lodw":
		uses.Add(reg.SI)
		defines.Add(reg.AX)
		return uses, defines, false
	case "stob":
		uses.Add(reg.AL)
		uses.Add(reg.DI)
		return uses, defines, false
	case "stow":
		uses.Add(reg.AX)
		uses.Add(reg.DI)
		return uses, defines, false
	case "movb", "movw":
		uses.Add(reg.SI)
		uses.Add(reg.DI)
		return uses, defines, false
	case "cmpb", "scab":
		uses.Add(reg.SI)
		uses.Add(reg.DI)
		uses.Add(reg.AL)
		defines.Add(reg.Flags)
		return uses, defines, false

	case "rcl", "rcr":
		addOperandRegs(uses, in.Operands)
		uses.Add(reg.CF)
		addOperandRegs(defines, in.Operands)
		defines.Add(reg.CF)
		defines.Add(reg.OF)
		return uses, defines, false

	case "rol", "ror":
		addOperandRegs(uses, in.Operands)
		addOperandRegs(defines, in.Operands)
		defines.Add(reg.CF)
		defines.Add(reg.OF)
		return uses, defines, false

	case "shl", "shr":
		addOperandRegs(uses, in.Operands)
		addOperandRegs(defines, in.Operands)
		defines.Add(reg.Flags)
		return uses, defines, false

	case "push":
		uses.Add(reg.SP)
		addOperandRegs(uses, in.Operands)
		defines.Add(reg.SP)
		return uses, defines, false

	case "pop":
		uses.Add(reg.SP)
		defines.Add(reg.SP)
		addOperandRegs(defines, in.Operands)
		return uses, defines, false

	case "ret", "retf":
		uses.Add(reg.SP)
		defines.Add(reg.SP)
		return uses, defines, false

	case "call", "int", "jmp", "jmpf":
		return uses, defines, false

	case "db", "dw", "ds", "dm", "equ", "org", "align", "put":
		return uses, defines, false
	}

	return uses, defines, true
}

// arithmeticIO implements the add/sub/and/or/xor/adc/sbb/neg row,
// including the self-operand special cases for and/or/xor.
func arithmeticIO(m string, ops []Operand) (uses, defines reg.Set) {
	uses, defines = reg.Set{}, reg.Set{}

	if m == "neg" {
		addOperandRegs(uses, ops)
		addOperandRegs(defines, ops)
		defines.Add(reg.Flags)
		return uses, defines
	}

	selfOperand := len(ops) == 2 && sameRegisterOperand(ops[0], ops[1])

	switch {
	case (m == "and" || m == "or") && selfOperand:
		// and r,r / or r,r only probes the existing value: flags only.
		defines.Add(reg.Flags)
		return uses, defines

	case m == "xor" && selfOperand:
		// xor r,r zeroes the destination without reading it.
		addOperandRegs(defines, ops[:1])
		defines.Add(reg.Flags)
		return uses, defines
	}

	addOperandRegs(uses, ops)
	if len(ops) > 0 {
		addOperandRegs(defines, ops[:1])
	}
	if m == "adc" || m == "sbb" {
		uses.Add(reg.CF)
	}
	defines.Add(reg.Flags)
	return uses, defines
}

// mulDivIO implements the mul/div row, picking the 8-bit or 16-bit shape
// from the single explicit operand's width.
func mulDivIO(m string, ops []Operand) (uses, defines reg.Set, unknown bool) {
	uses, defines = reg.Set{}, reg.Set{}
	wide := true
	if len(ops) == 1 && ops[0].Kind == OpRegister && is8Bit(ops[0].Reg) {
		wide = false
	}
	addOperandRegs(uses, ops)

	if m == "mul" {
		if wide {
			uses.Add(reg.AX)
			defines.Add(reg.AX)
			defines.Add(reg.DX)
		} else {
			uses.Add(reg.AL)
			defines.Add(reg.AX)
		}
		defines.Add(reg.Flags)
		return uses, defines, false
	}

	// div
	if wide {
		uses.Add(reg.DX)
		uses.Add(reg.AX)
		defines.Add(reg.AX)
		defines.Add(reg.DX)
	} else {
		uses.Add(reg.AX)
		defines.Add(reg.AL)
		defines.Add(reg.AH)
	}
	defines.Add(reg.Flags)
	return uses, defines, false
}

func is8Bit(r reg.Name) bool {
	switch r {
	case reg.AL, reg.CL, reg.DL, reg.BL, reg.AH, reg.CH, reg.DH, reg.BH:
		return true
	}
	return false
}

func sameRegisterOperand(a, b Operand) bool {
	return a.Kind == OpRegister && b.Kind == OpRegister && a.Reg == b.Reg
}

// addOperandRegs adds the register named by every register or memory
// operand in ops to s. Memory operands contribute their classified
// base/index registers, if any; non-register operands (immediates,
// symbols, garbage) contribute nothing.
func addOperandRegs(s reg.Set, ops []Operand) {
	for _, o := range ops {
		switch o.Kind {
		case OpRegister:
			s.Add(o.Reg)
		case OpMemory:
			if o.Mem == nil {
				continue
			}
			if o.Mem.BaseReg != nil {
				s.Add(*o.Mem.BaseReg)
			}
			if o.Mem.IndexReg != nil {
				s.Add(*o.Mem.IndexReg)
			}
		}
	}
}

// condFlagUses is the condition-code → flag-bits table the conditional
// jump row of §4.2 is built from.
func condFlagUses(cond string) []reg.Name {
	switch cond {
	case "z", "nz":
		return []reg.Name{reg.ZF}
	case "l", "ge":
		return []reg.Name{reg.SF, reg.OF}
	case "le", "g":
		return []reg.Name{reg.SF, reg.OF, reg.ZF}
	case "b", "ae":
		return []reg.Name{reg.CF}
	case "be", "a":
		return []reg.Name{reg.CF, reg.ZF}
	case "s", "ns":
		return []reg.Name{reg.SF}
	case "o", "no":
		return []reg.Name{reg.OF}
	case "p", "np":
		return []reg.Name{reg.PF}
	case "cxz":
		return nil
	}
	return nil
}
