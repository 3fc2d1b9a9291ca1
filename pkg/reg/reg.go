// Package reg implements the 8086 register aliasing algebra: the fixed
// sub-register decomposition, the "covering" relation used by liveness,
// and the three set-expansion operations the write and liveness analyses
// share.
package reg

// Name identifies a register, a pseudo-register (flags, hflags), or one
// of the named condition bits that decompose from them.
type Name string

// General-purpose and pointer/index registers.
const (
	AL Name = "al"
	CL Name = "cl"
	DL Name = "dl"
	BL Name = "bl"
	AH Name = "ah"
	CH Name = "ch"
	DH Name = "dh"
	BH Name = "bh"
	AX Name = "ax"
	CX Name = "cx"
	DX Name = "dx"
	BX Name = "bx"
	SP Name = "sp"
	BP Name = "bp"
	SI Name = "si"
	DI Name = "di"
)

// Flag pseudo-registers and their bits.
const (
	Flags  Name = "flags"
	HFlags Name = "hflags"

	SF Name = "sf"
	ZF Name = "zf"
	AF Name = "af"
	PF Name = "pf"
	CF Name = "cf"
	OF Name = "of"
	DF Name = "df"
	IF Name = "if"
	TF Name = "tf"
)

// subRegisters is the fixed decomposition: a register maps to the parts
// it is built from. hflags and flags both claim the arithmetic bits
// (sf zf af pf cf of) and are therefore never "coverings" of each other's
// namesake set even though each is individually a covering of its own
// listed parts — §4.1 restricts coverings to exactly the four GPR pairs,
// so flags/hflags are excluded by fiat in the coverings table below
// rather than derived from this map.
var subRegisters = map[Name][]Name{
	AX:     {AH, AL},
	CX:     {CH, CL},
	DX:     {DH, DL},
	BX:     {BH, BL},
	Flags:  {SF, ZF, AF, PF, CF, OF, DF, IF, TF},
	HFlags: {SF, ZF, AF, PF, CF, OF},
}

// coverings lists the registers whose declared parts are treated as an
// exact decomposition for liveness purposes. Restricted to the four
// general-purpose pairs per §4.1/§3: flags and hflags are excluded since
// their sub-fields overlap rather than partition cleanly.
var coverings = map[Name][]Name{
	AX: {AH, AL},
	CX: {CH, CL},
	DX: {DH, DL},
	BX: {BH, BL},
}

// superRegisters is the reverse of subRegisters, computed once at
// package init so alias expansion does not re-derive it per call.
var superRegisters map[Name][]Name

func init() {
	superRegisters = make(map[Name][]Name)
	for super, parts := range subRegisters {
		for _, p := range parts {
			superRegisters[p] = append(superRegisters[p], super)
		}
	}
}

// Set is an unordered collection of register names.
type Set map[Name]struct{}

// NewSet builds a Set from the given names.
func NewSet(names ...Name) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether r is a member.
func (s Set) Has(r Name) bool {
	_, ok := s[r]
	return ok
}

// Add inserts r, returning the receiver for chaining.
func (s Set) Add(r Name) Set {
	s[r] = struct{}{}
	return s
}

// Remove deletes r if present.
func (s Set) Remove(r Name) {
	delete(s, r)
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// Union returns a new set containing every member of s and other.
func (s Set) Union(other Set) Set {
	c := s.Clone()
	for k := range other {
		c[k] = struct{}{}
	}
	return c
}

// Intersect returns a new set containing members present in both.
func (s Set) Intersect(other Set) Set {
	c := make(Set)
	for k := range s {
		if other.Has(k) {
			c[k] = struct{}{}
		}
	}
	return c
}

// Equal reports whether the two sets contain the same names.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// Sorted returns the set's members as a sorted slice, for deterministic
// emission and test comparisons.
func (s Set) Sorted() []Name {
	out := make([]Name, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ExpandSubRegisters returns S ∪ {every sub-field of every member},
// expanded to a fixpoint (flags/hflags bits have no further children, so
// in practice this is a single pass, but nested pairs are handled too).
func ExpandSubRegisters(s Set) Set {
	out := s.Clone()
	worklist := s.Sorted()
	for len(worklist) > 0 {
		n := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, sub := range subRegisters[n] {
			if !out.Has(sub) {
				out.Add(sub)
				worklist = append(worklist, sub)
			}
		}
	}
	return out
}

// ExpandAliases first expands sub-registers, then adds every
// super-register of any member: writing ah invalidates ax; writing ax
// invalidates ah and al.
func ExpandAliases(s Set) Set {
	out := ExpandSubRegisters(s)
	for _, n := range out.Sorted() {
		for _, super := range superRegisters[n] {
			out.Add(super)
		}
	}
	return out
}

// ExpandCoverings expands sub-registers, then adds a super-register
// whenever its entire covering is present. Used only by liveness, so
// that live {ah,al} is recognised as live ax.
func ExpandCoverings(s Set) Set {
	out := ExpandSubRegisters(s)
	for super, parts := range coverings {
		if out.Has(super) {
			continue
		}
		all := true
		for _, p := range parts {
			if !out.Has(p) {
				all = false
				break
			}
		}
		if all {
			out.Add(super)
		}
	}
	return out
}

// DecomposeCoverings replaces any whole-covering super-register in the
// set by its parts: the canonical storage form for liveness (§3, §4.1).
func DecomposeCoverings(s Set) Set {
	out := s.Clone()
	for super, parts := range coverings {
		if out.Has(super) {
			out.Remove(super)
			for _, p := range parts {
				out.Add(p)
			}
		}
	}
	return out
}

// IsFlagBit reports whether n is one of the condition bits that decompose
// from flags or hflags.
func IsFlagBit(n Name) bool {
	switch n {
	case SF, ZF, AF, PF, CF, OF, DF, IF, TF:
		return true
	}
	return false
}

// Halves returns the high and low byte sub-registers of a 16-bit
// general-purpose register, if r is one of the four GPR pairs.
func Halves(r Name) (high, low Name, ok bool) {
	parts, ok := coverings[r]
	if !ok {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Size returns the register's width in bytes: 1 for the eight-bit
// halves, 2 for everything else named in GPRegisters.
func Size(r Name) int {
	switch r {
	case AL, CL, DL, BL, AH, CH, DH, BH:
		return 1
	}
	return 2
}

// GPRegisters lists the sixteen named general/pointer/index registers,
// excluding the flag pseudo-registers, in the order spec'd in §3.
var GPRegisters = []Name{AL, CL, DL, BL, AH, CH, DH, BH, AX, CX, DX, BX, SP, BP, SI, DI}
