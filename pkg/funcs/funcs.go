// Package funcs implements the §4.4 function-discovery fixpoint: finding
// the instruction indices that behave as function entries by growing an
// ownership partition over the label-adjacency graph.
package funcs

import (
	"sort"

	"github.com/oisee/asm86lift/pkg/inst"
	"github.com/oisee/asm86lift/pkg/program"
	"github.com/oisee/asm86lift/pkg/writes"
)

// Result is the outcome of discovery: the entry set and, for every
// labelled index reached during discovery, which entry claimed it.
type Result struct {
	Entries map[int]struct{}
	Owner   map[int]int
}

// IsEntry reports whether idx was discovered as a function entry.
func (r Result) IsEntry(idx int) bool {
	_, ok := r.Entries[idx]
	return ok
}

// Sorted returns the discovered entries in ascending index order.
func (r Result) Sorted() []int {
	out := make([]int, 0, len(r.Entries))
	for e := range r.Entries {
		out = append(out, e)
	}
	sort.Ints(out)
	return out
}

// Discover runs §4.4: seed from call targets, then grow by iterating the
// label-adjacency graph, promoting an sp-eligible node claimed by a
// second entry into a new entry, until no new entry appears.
func Discover(p *program.Program, ws []writes.Summary) Result {
	adj := buildGraph(p)

	entries := map[int]struct{}{}
	for _, in := range p.Instructions {
		if in.Mnemonic != "call" || len(in.Operands) != 1 {
			continue
		}
		if idx, ok := p.Resolve(&in.Operands[0]); ok {
			entries[idx] = struct{}{}
		}
	}

	owner := map[int]int{}

	for changed := true; changed; {
		changed = false
		for _, e := range sortedKeys(entries) {
			if _, ok := owner[e]; !ok {
				owner[e] = e
			}
			stack := []int{e}
			seen := map[int]bool{e: true}
			for len(stack) > 0 {
				n := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, m := range adj[n] {
					if seen[m] {
						continue
					}
					seen[m] = true
					switch ownerOf, has := owner[m]; {
					case !has:
						owner[m] = e
						stack = append(stack, m)
					case ownerOf != e:
						if _, already := entries[m]; !already && eligible(ws, m) {
							entries[m] = struct{}{}
							changed = true
						}
					}
				}
			}
		}
	}

	return Result{Entries: entries, Owner: owner}
}

func eligible(ws []writes.Summary, idx int) bool {
	sp := ws[idx].SP
	return sp.Any || sp.Delta == 0
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// buildGraph constructs the label-adjacency graph of §4.4: nodes are
// indices carrying at least one label, edges follow fall-through to the
// next labelled index and explicit (un)conditional jumps to a resolved
// target label.
func buildGraph(p *program.Program) map[int][]int {
	adj := map[int][]int{}
	for idx := range p.LabelsAt {
		if idx < p.Len() {
			adj[idx] = walk(p, idx)
		}
	}
	return adj
}

func walk(p *program.Program, start int) []int {
	var edges []int
	for i := start; i < p.Len(); i++ {
		in := p.Instructions[i]

		switch in.Kind {
		case inst.KindJump:
			if idx, ok := p.Resolve(in.Target); ok {
				edges = append(edges, idx)
			}
			return edges
		case inst.KindCondJump:
			if idx, ok := p.Resolve(in.Target); ok {
				edges = append(edges, idx)
			}
		default:
			if in.Mnemonic == "ret" || in.Mnemonic == "retf" {
				return edges
			}
		}

		if i+1 < p.Len() && len(p.LabelsAt[i+1]) > 0 {
			edges = append(edges, i+1)
			return edges
		}
	}
	return edges
}
