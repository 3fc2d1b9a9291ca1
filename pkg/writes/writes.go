// Package writes implements the §4.3 backward fixpoint producing, for
// every instruction index, a write summary of the suffix starting
// there: which registers end up holding which entry-time values if the
// suffix is reached, and whether it ever returns.
package writes

import (
	"github.com/oisee/asm86lift/pkg/inst"
	"github.com/oisee/asm86lift/pkg/program"
	"github.com/oisee/asm86lift/pkg/reg"
)

// ValueKind discriminates a write-summary binding's abstract value.
type ValueKind int

const (
	// Any means the destination is clobbered to an unknown value.
	Any ValueKind = iota
	// Reg means the destination ends up holding whatever Reg held on
	// entry to the suffix.
	Reg
	// Stack means the destination ends up holding the bytes at the
	// given stack offset (relative to entry), as they were on entry.
	Stack
)

// Value is one binding's abstract value (§3).
type Value struct {
	Kind      ValueKind
	Reg       reg.Name // Kind == Reg
	StackIdx  int      // Kind == Stack
	StackSize int      // Kind == Stack
}

func identity(r reg.Name) Value { return Value{Kind: Reg, Reg: r} }

func sameValue(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Reg:
		return a.Reg == b.Reg
	case Stack:
		return a.StackIdx == b.StackIdx && a.StackSize == b.StackSize
	default:
		return true
	}
}

// SP is the abstract stack-pointer delta from suffix entry: either a
// known constant or Any when non-constant across merged paths.
type SP struct {
	Any   bool
	Delta int
}

func spShift(s SP, delta int) SP {
	if s.Any {
		return SP{Any: true}
	}
	return SP{Delta: s.Delta + delta}
}

// Summary is the write summary W of §3 associated with one instruction
// index.
type Summary struct {
	Writes    map[reg.Name]Value
	ReturnsAt map[int]struct{}
	SP        SP
}

// noReturn is the initial/bottom value: the suffix never reaches a ret.
func noReturn() Summary {
	return Summary{Writes: map[reg.Name]Value{}, ReturnsAt: map[int]struct{}{}}
}

func isNoReturn(s Summary) bool { return len(s.ReturnsAt) == 0 }

// IsNoReturn reports whether the suffix never reaches a ret (§3's
// "no-return" summary).
func (s Summary) IsNoReturn() bool { return isNoReturn(s) }

func cloneReturnsAt(m map[int]struct{}) map[int]struct{} {
	c := make(map[int]struct{}, len(m))
	for k := range m {
		c[k] = struct{}{}
	}
	return c
}

func cloneSummary(s Summary) Summary {
	w := make(map[reg.Name]Value, len(s.Writes))
	for k, v := range s.Writes {
		w[k] = v
	}
	return Summary{Writes: w, ReturnsAt: cloneReturnsAt(s.ReturnsAt), SP: s.SP}
}

func equal(a, b Summary) bool {
	if len(a.ReturnsAt) != len(b.ReturnsAt) || len(a.Writes) != len(b.Writes) {
		return false
	}
	for k := range a.ReturnsAt {
		if _, ok := b.ReturnsAt[k]; !ok {
			return false
		}
	}
	for k, v := range a.Writes {
		bv, ok := b.Writes[k]
		if !ok || !sameValue(v, bv) {
			return false
		}
	}
	return a.SP == b.SP
}

// setIfNotSelf records k→v unless v is the identity binding Reg(k), in
// which case the entry is omitted (§3 invariant 2: a key never maps to
// itself).
func setIfNotSelf(m map[reg.Name]Value, k reg.Name, v Value) {
	if v.Kind == Reg && v.Reg == k {
		delete(m, k)
		return
	}
	m[k] = v
}

// merge combines two successor suffixes reaching the same instruction
// (conditional-jump join points). If either side never returns, the
// other wins outright.
func merge(a, b Summary) Summary {
	if isNoReturn(a) {
		return cloneSummary(b)
	}
	if isNoReturn(b) {
		return cloneSummary(a)
	}

	out := Summary{Writes: map[reg.Name]Value{}, ReturnsAt: map[int]struct{}{}}
	for k := range a.ReturnsAt {
		out.ReturnsAt[k] = struct{}{}
	}
	for k := range b.ReturnsAt {
		out.ReturnsAt[k] = struct{}{}
	}

	keys := map[reg.Name]struct{}{}
	for k := range a.Writes {
		keys[k] = struct{}{}
	}
	for k := range b.Writes {
		keys[k] = struct{}{}
	}
	for k := range keys {
		va, vb := get(a.Writes, k), get(b.Writes, k)
		if sameValue(va, vb) {
			setIfNotSelf(out.Writes, k, va)
		} else {
			setIfNotSelf(out.Writes, k, Value{Kind: Any})
		}
	}

	if a.SP == b.SP {
		out.SP = a.SP
	} else {
		out.SP = SP{Any: true}
	}
	return out
}

func get(w map[reg.Name]Value, k reg.Name) Value {
	if v, ok := w[k]; ok {
		return v
	}
	return identity(k)
}

// pushThrough models executing an instruction that subtracts delta from
// sp, then next. Used by the "pop reg" transfer rule.
func pushThrough(next Summary, delta int) Summary {
	if isNoReturn(next) {
		return noReturn()
	}
	out := Summary{Writes: map[reg.Name]Value{}, ReturnsAt: cloneReturnsAt(next.ReturnsAt), SP: spShift(next.SP, delta)}
	for k, v := range next.Writes {
		if v.Kind == Stack {
			v = Value{Kind: Stack, StackIdx: v.StackIdx + delta, StackSize: v.StackSize}
		}
		setIfNotSelf(out.Writes, k, v)
	}
	return out
}

// popThrough models a read-from-top-of-stack of delta bytes. Used by the
// "push reg" transfer rule, where resultReg is the pushed register: a
// Stack(0,size) binding in next is restored to the matching half (or
// whole) of resultReg, since it now names a byte that was the pushed
// register's entry-time value. A whole-register (Stack(0,2)) restore also
// reintroduces the sub-register aliases: if k has halves, kHigh/kLow are
// bound to resultReg's halves too.
func popThrough(next Summary, delta int, resultReg *reg.Name) Summary {
	if isNoReturn(next) {
		return noReturn()
	}
	out := Summary{Writes: map[reg.Name]Value{}, ReturnsAt: cloneReturnsAt(next.ReturnsAt), SP: spShift(next.SP, -delta)}

	var high, low reg.Name
	haveHalves := false
	if resultReg != nil {
		if h, l, ok := reg.Halves(*resultReg); ok {
			high, low, haveHalves = h, l, true
		}
	}

	for k, v := range next.Writes {
		if v.Kind != Stack {
			setIfNotSelf(out.Writes, k, v)
			continue
		}
		switch {
		case resultReg != nil && v.StackIdx == 0 && v.StackSize == 2:
			setIfNotSelf(out.Writes, k, identity(*resultReg))
			if haveHalves {
				if kh, kl, ok := reg.Halves(k); ok {
					setIfNotSelf(out.Writes, kh, identity(high))
					setIfNotSelf(out.Writes, kl, identity(low))
				}
			}
		case haveHalves && v.StackIdx == 0 && v.StackSize == 1:
			setIfNotSelf(out.Writes, k, identity(low))
		case haveHalves && v.StackIdx == 1 && v.StackSize == 1:
			setIfNotSelf(out.Writes, k, identity(high))
		case v.StackIdx < delta:
			setIfNotSelf(out.Writes, k, Value{Kind: Any})
		default:
			setIfNotSelf(out.Writes, k, Value{Kind: Stack, StackIdx: v.StackIdx - delta, StackSize: v.StackSize})
		}
	}
	return out
}

// invalidateStackAliasing models "mov sp, src": the stack pointer becomes
// unknown, so every Stack-relative binding in next (which was expressed as
// an offset from the suffix's own entry stack pointer) can no longer be
// translated back across the reset and is raised to Any. Reg and Any
// bindings are untouched since they do not depend on sp. ReturnsAt still
// propagates — the suffix after the reset may well still return (§4.3:
// "successor suffix is discarded" refers to the stack aliasing, not to
// return reachability).
func invalidateStackAliasing(next Summary) Summary {
	if isNoReturn(next) {
		return noReturn()
	}
	out := Summary{Writes: map[reg.Name]Value{}, ReturnsAt: cloneReturnsAt(next.ReturnsAt), SP: SP{Any: true}}
	for k, v := range next.Writes {
		if v.Kind == Stack {
			v = Value{Kind: Any}
		}
		setIfNotSelf(out.Writes, k, v)
	}
	return out
}

// seq sequences a single-instruction binding delta before next.
func seq(next Summary, delta map[reg.Name]Value) Summary {
	if isNoReturn(next) {
		return noReturn()
	}
	out := Summary{Writes: map[reg.Name]Value{}, ReturnsAt: cloneReturnsAt(next.ReturnsAt), SP: next.SP}
	for k, v := range next.Writes {
		if v.Kind == Reg {
			if dv, ok := delta[v.Reg]; ok {
				v = dv
			}
		}
		setIfNotSelf(out.Writes, k, v)
	}
	for k, v := range delta {
		if _, covered := next.Writes[k]; !covered {
			setIfNotSelf(out.Writes, k, v)
		}
	}
	return out
}

// anyDelta builds a Δmap clobbering every alias of every member of defs
// to Any, per the catch-all transfer rule.
func anyDelta(defs reg.Set) map[reg.Name]Value {
	delta := map[reg.Name]Value{}
	for _, r := range reg.ExpandAliases(defs).Sorted() {
		delta[r] = Value{Kind: Any}
	}
	return delta
}

// Analyze runs the backward fixpoint to completion and returns the write
// summary for every instruction index (§4.3, §5: termination is bounded
// by |instructions|×|registers|×3).
func Analyze(p *program.Program) []Summary {
	n := p.Len()
	ws := make([]Summary, n+1)
	for i := range ws {
		ws[i] = noReturn()
	}

	for changed := true; changed; {
		changed = false
		for i := n - 1; i >= 0; i-- {
			next := transfer(p, ws, i)
			if !equal(ws[i], next) {
				ws[i] = next
				changed = true
			}
		}
	}
	return ws[:n]
}

func transfer(p *program.Program, ws []Summary, i int) Summary {
	in := p.Instructions[i]
	next := ws[i+1]

	switch {
	case in.Mnemonic == "ret" || in.Mnemonic == "retf":
		return Summary{Writes: map[reg.Name]Value{}, ReturnsAt: map[int]struct{}{i: {}}, SP: SP{Delta: 0}}

	case in.Kind == inst.KindDataMove:
		return transferMov(in, next)

	case in.Mnemonic == "push" && singleRegOperand(in):
		r := in.Operands[0].Reg
		return popThrough(next, 2, &r)

	case in.Mnemonic == "pop" && singleRegOperand(in):
		r := in.Operands[0].Reg
		out := pushThrough(next, 2)
		setIfNotSelf(out.Writes, r, Value{Kind: Stack, StackIdx: 0, StackSize: reg.Size(r)})
		return out

	case in.Kind == inst.KindJump:
		if idx, ok := p.Resolve(in.Target); ok {
			return ws[idx]
		}
		// Unresolved indirect jump target: conservative pass-through,
		// matching call/int's "fully unknown, defines nothing".
		return next

	case in.Kind == inst.KindCondJump:
		target := next
		if idx, ok := p.Resolve(in.Target); ok {
			target = ws[idx]
		}
		return merge(target, next)

	case in.Mnemonic == "call" || in.Mnemonic == "int":
		return next

	default:
		_, defines, _ := inst.IO(in)
		return seq(next, anyDelta(defines))
	}
}

func transferMov(in inst.Instruction, next Summary) Summary {
	dst, src := in.Dst, in.Src
	if dst.Kind == inst.OpRegister && dst.Reg == reg.SP {
		return invalidateStackAliasing(next)
	}
	if dst.Kind == inst.OpRegister && src.Kind == inst.OpRegister {
		delta := anyDelta(reg.NewSet(dst.Reg))
		delta[dst.Reg] = identity(src.Reg)
		if dh, dl, ok := reg.Halves(dst.Reg); ok {
			if sh, sl, ok2 := reg.Halves(src.Reg); ok2 {
				delta[dh] = identity(sh)
				delta[dl] = identity(sl)
			}
		}
		return seq(next, delta)
	}
	_, defines, _ := inst.IO(in)
	return seq(next, anyDelta(defines))
}

func singleRegOperand(in inst.Instruction) bool {
	return len(in.Operands) == 1 && in.Operands[0].Kind == inst.OpRegister
}
