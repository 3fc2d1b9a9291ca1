// Package live implements the §4.5 backward liveness fixpoint, including
// the inter-procedural call/return wiring that lets a function's
// returned registers propagate back to every call site.
package live

import (
	"sort"
	"strings"

	"github.com/oisee/asm86lift/pkg/funcs"
	"github.com/oisee/asm86lift/pkg/inst"
	"github.com/oisee/asm86lift/pkg/program"
	"github.com/oisee/asm86lift/pkg/reg"
	"github.com/oisee/asm86lift/pkg/writes"
)

// Result bundles the two outputs of the liveness pass: the live-before
// set for every instruction, and each discovered entry's returned
// registers. Both are reported with coverings expanded (a live ah and al
// also show ax), although the fixpoint itself works on decomposed sets.
type Result struct {
	LiveBefore      []reg.Set
	FunctionReturns map[int]reg.Set
}

// Analyze runs §4.5 to completion. ws and fr must already reflect a
// converged write-analysis and function-discovery pass.
func Analyze(p *program.Program, ws []writes.Summary, fr funcs.Result) Result {
	n := p.Len()

	liveBefore := make([]reg.Set, n+1)
	for i := range liveBefore {
		liveBefore[i] = reg.Set{}
	}

	callOrigins := callOriginsByEntry(p, fr)
	retToEntries := retToEntriesMap(ws, fr)
	owners := ownerByIndex(p, fr)
	functionReturns := map[int]reg.Set{}
	for e := range fr.Entries {
		functionReturns[e] = reg.Set{}
	}

	for changed := true; changed; {
		recomputeFunctionReturns(ws, fr, callOrigins, liveBefore, functionReturns)

		changed = false
		for i := n - 1; i >= 0; i-- {
			next := reg.DecomposeCoverings(transfer(p, ws, fr, functionReturns, retToEntries, owners, liveBefore, i))
			if !next.Equal(liveBefore[i]) {
				liveBefore[i] = next
				changed = true
			}
		}
	}

	out := Result{LiveBefore: make([]reg.Set, n), FunctionReturns: map[int]reg.Set{}}
	for i := 0; i < n; i++ {
		out.LiveBefore[i] = reg.ExpandCoverings(liveBefore[i])
	}
	for e, s := range functionReturns {
		out.FunctionReturns[e] = reg.ExpandCoverings(s)
	}
	return out
}

// callOriginsByEntry maps each entry to the indices of call instructions
// that target it, computed once since it does not depend on liveness.
func callOriginsByEntry(p *program.Program, fr funcs.Result) map[int][]int {
	origins := map[int][]int{}
	for i, in := range p.Instructions {
		if in.Mnemonic != "call" || len(in.Operands) != 1 {
			continue
		}
		idx, ok := p.Resolve(&in.Operands[0])
		if !ok || !fr.IsEntry(idx) {
			continue
		}
		origins[idx] = append(origins[idx], i)
	}
	return origins
}

// retToEntriesMap inverts writesFrom[e].ReturnsAt: for each ret index,
// which entries reach it.
func retToEntriesMap(ws []writes.Summary, fr funcs.Result) map[int][]int {
	out := map[int][]int{}
	for _, e := range fr.Sorted() {
		for retIdx := range ws[e].ReturnsAt {
			out[retIdx] = append(out[retIdx], e)
		}
	}
	for k := range out {
		sort.Ints(out[k])
	}
	return out
}

// ownerByIndex extends fr.Owner (defined only at labelled indices) to every
// instruction index: the owner of i is the owner of the nearest owned
// labelled index at or before i (labelled indices with no owner are
// skipped), or -1 before any owned label has been seen.
func ownerByIndex(p *program.Program, fr funcs.Result) []int {
	n := p.Len()
	owners := make([]int, n)
	current := -1
	for i := 0; i < n; i++ {
		if len(p.LabelsAt[i]) > 0 {
			if e, ok := fr.Owner[i]; ok {
				current = e
			}
		}
		owners[i] = current
	}
	return owners
}

// isLiteralRetTarget reports whether a jump's target operand is the bare
// symbol "ret" rather than a label that happens to resolve — §4.5's special
// case for assemblies that write a conditional jump straight to "ret" instead
// of through a labelled return instruction.
func isLiteralRetTarget(p *program.Program, target *inst.Operand) bool {
	if target == nil || target.Kind != inst.OpSymbol {
		return false
	}
	if _, ok := p.Resolve(target); ok {
		return false
	}
	return strings.EqualFold(target.Text, "ret")
}

func recomputeFunctionReturns(ws []writes.Summary, fr funcs.Result, callOrigins map[int][]int, liveBefore []reg.Set, functionReturns map[int]reg.Set) {
	for _, e := range fr.Sorted() {
		domain := domainOf(ws[e].Writes)
		result := reg.Set{}
		for _, c := range callOrigins[e] {
			result = result.Union(liveBefore[c+1].Intersect(domain))
		}
		functionReturns[e] = result
	}
}

func domainOf(w map[reg.Name]writes.Value) reg.Set {
	s := make(reg.Set, len(w))
	for k := range w {
		s.Add(k)
	}
	return s
}

func transfer(p *program.Program, ws []writes.Summary, fr funcs.Result, functionReturns map[int]reg.Set, retToEntries map[int][]int, owners []int, liveBefore []reg.Set, i int) reg.Set {
	in := p.Instructions[i]
	next := liveBefore[i+1]

	switch {
	case in.Mnemonic == "ret" || in.Mnemonic == "retf":
		s := reg.Set{}
		for _, e := range retToEntries[i] {
			s = s.Union(functionReturns[e])
		}
		return s

	case in.Mnemonic == "call" && len(in.Operands) == 1:
		if idx, ok := p.Resolve(&in.Operands[0]); ok && fr.IsEntry(idx) {
			domain := domainOf(ws[idx].Writes)
			passthrough := next.Clone()
			for r := range domain {
				passthrough.Remove(r)
			}
			return liveBefore[idx].Union(passthrough)
		}
		return next.Clone()

	case in.Kind == inst.KindJump:
		if idx, ok := p.Resolve(in.Target); ok {
			return liveBefore[idx].Clone()
		}
		return next.Clone()

	case in.Kind == inst.KindCondJump:
		uses, _, _ := inst.IO(in)
		s := next.Union(uses)
		if idx, ok := p.Resolve(in.Target); ok {
			s = s.Union(liveBefore[idx])
		} else if isLiteralRetTarget(p, in.Target) {
			if e := owners[i]; e >= 0 {
				s = s.Union(functionReturns[e])
			}
		}
		return s

	default:
		uses, defines, _ := inst.IO(in)
		s := reg.DecomposeCoverings(next)
		for _, r := range reg.ExpandAliases(defines).Sorted() {
			s.Remove(r)
		}
		return s.Union(uses)
	}
}
