// Package dln implements the Dewey-like hierarchical node identifier
// described in spec.md S4.2: a sequence of per-level integer ids whose
// lexicographic order on an underlying bit-tape matches document order,
// and whose prefix relation matches ancestry.
//
// Grounded on the teacher's xutils.NodeRef (xpath/xutils/node_ref.go),
// which is the same idea at a coarser grain (a slice of named path
// elements rather than bit-packed integers): construction by appending
// elements, equality by elementwise comparison, and a dedicated "root has
// zero elements" convention. DLN generalizes that to a total order.
package dln

import (
	"strconv"
	"strings"

	"github.com/oss-xquery/xq31/xqerr"
)

// DLN is an immutable hierarchical id. The zero value is the Document
// id (spec.md: "document() (id 0)"), the virtual wrapper above the root
// element.
type DLN struct {
	levels []uint64
}

// Document returns the id of the document-wrapper node, the ancestor of
// everything else in a tree.
func Document() DLN { return DLN{} }

// Root returns the id of the document element (level id 1 under the
// document wrapper).
func Root() DLN { return DLN{levels: []uint64{1}} }

// LevelID builds a single-component DLN directly at level id n, used by
// the tree builder when it needs to address a specific child slot (e.g.
// attributes, which are not map entries and never get their own DLN, use
// this only for round-trip tests).
func LevelID(n uint64) DLN { return DLN{levels: []uint64{n}} }

func (d DLN) clone() []uint64 {
	out := make([]uint64, len(d.levels))
	copy(out, d.levels)
	return out
}

// Parent strips the last level component. Undefined (ok=false) on the
// document DLN, which has no parent.
func (d DLN) Parent() (DLN, bool) {
	if len(d.levels) == 0 {
		return DLN{}, false
	}
	return DLN{levels: d.clone()[:len(d.levels)-1]}, true
}

// FirstChild appends a new level-1 component.
func (d DLN) FirstChild() DLN {
	return DLN{levels: append(d.clone(), 1)}
}

// ZeroChild appends a new level-0 component, used only for the document
// wrapper's implicit child slot per spec.md S4.2.
func (d DLN) ZeroChild() DLN {
	return DLN{levels: append(d.clone(), 0)}
}

// NextSibling increments the last component.
func (d DLN) NextSibling() DLN {
	if len(d.levels) == 0 {
		return d
	}
	out := d.clone()
	out[len(out)-1]++
	return DLN{levels: out}
}

// PrecedingSibling decrements the last component, clamping at 0 (spec.md
// S9 open question: preserve clamping rather than erroring).
func (d DLN) PrecedingSibling() DLN {
	if len(d.levels) == 0 {
		return d
	}
	out := d.clone()
	if out[len(out)-1] > 0 {
		out[len(out)-1]--
	}
	return DLN{levels: out}
}

// CountLevels returns the depth, excluding the document wrapper.
func (d DLN) CountLevels() int { return len(d.levels) }

// LevelIDAt returns the i'th (0-based) component. Used by tests to check
// the level_id round trip from spec.md S8.
func (d DLN) LevelIDAt(i int) uint64 { return d.levels[i] }

// StartWith reports whether other is a level-boundary-aligned prefix of
// d - i.e. other is an ancestor of (or equal to) d.
func (d DLN) StartWith(other DLN) bool {
	if len(other.levels) > len(d.levels) {
		return false
	}
	for i, v := range other.levels {
		if d.levels[i] != v {
			return false
		}
	}
	return true
}

// Equal reports identical bit-tapes, i.e. identical component slices.
func (d DLN) Equal(o DLN) bool {
	if len(d.levels) != len(o.levels) {
		return false
	}
	for i, v := range d.levels {
		if o.levels[i] != v {
			return false
		}
	}
	return true
}

// Compare gives the total order induced by the bit-tape: <0 if d precedes
// o in document order, 0 if equal, >0 if d follows o. A DLN that is a
// proper prefix of another (i.e. its ancestor) always compares less,
// matching "a parent sorts before any descendant".
func (d DLN) Compare(o DLN) int {
	n := len(d.levels)
	if len(o.levels) < n {
		n = len(o.levels)
	}
	for i := 0; i < n; i++ {
		if d.levels[i] != o.levels[i] {
			if d.levels[i] < o.levels[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(d.levels) < len(o.levels):
		return -1
	case len(d.levels) > len(o.levels):
		return 1
	default:
		return 0
	}
}

// Less is a convenience wrapper around Compare for use with sort.Slice.
func Less(a, b DLN) bool { return a.Compare(b) < 0 }

// String renders the textual form of spec.md S4.2 with a leading slash:
// "/l1/l2/l3…". The document DLN renders as "/".
func (d DLN) String() string {
	if len(d.levels) == 0 {
		return "/"
	}
	parts := make([]string, len(d.levels))
	for i, v := range d.levels {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return "/" + strings.Join(parts, "/")
}

// Parse is the inverse of String; it additionally accepts '.' as an
// equivalent separator to '/' so both textual forms in the grammar
// "l1(./|/)l2(./|/)…" round-trip.
func Parse(s string) (DLN, *xqerr.Error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "/" {
		return Document(), nil
	}
	s = strings.Trim(s, "/")
	if s == "" {
		return Document(), nil
	}
	raw := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '.' })
	levels := make([]uint64, 0, len(raw))
	for _, tok := range raw {
		n, err := strconv.ParseUint(tok, 10, 64)
		if err != nil {
			return DLN{}, xqerr.New(xqerr.XPST0003, "malformed DLN component %q", tok)
		}
		levels = append(levels, n)
	}
	return DLN{levels: levels}, nil
}

// unitsForLevel returns how many 4-bit units the bit-tape encoding of n
// spends: each unit carries 3 payload bits plus a magnitude marker bit,
// so u units address ids 0..8^u-1 - "increasing level IDs spend more
// units" from spec.md S4.2.
func unitsForLevel(n uint64) int {
	units := 1
	max := uint64(7)
	for n > max {
		units++
		max = max*8 + 7
	}
	return units
}

// MaxForUnits is the mapping table spec.md S4.2 calls for: the largest
// level id representable in exactly u 4-bit units.
func MaxForUnits(u int) uint64 {
	max := uint64(0)
	for i := 0; i < u; i++ {
		max = max*8 + 7
	}
	return max
}

// Bits renders the true bit-tape: for each level, a unary magnitude
// prefix of (units-1) set bits terminated by a clear bit, then the
// 3*units payload bits (MSB first), guaranteeing that lexicographic
// comparison of Bits() agrees with Compare() and that an ancestor's tape
// is always a bit-prefix of its descendants' tapes.
func (d DLN) Bits() string {
	var b strings.Builder
	for _, n := range d.levels {
		units := unitsForLevel(n)
		b.WriteString(strings.Repeat("1", units-1))
		b.WriteByte('0')
		for i := units*3 - 1; i >= 0; i-- {
			if n&(1<<uint(i)) != 0 {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String()
}

// Sort orders a slice of DLNs into document order in place.
func Sort(ds []DLN) {
	// insertion sort keeps this package free of a sort.Interface type
	// for what are typically small per-step result sets; evaluator
	// callers with large sequences use sort.Slice directly against Less.
	for i := 1; i < len(ds); i++ {
		for j := i; j > 0 && ds[j].Compare(ds[j-1]) < 0; j-- {
			ds[j], ds[j-1] = ds[j-1], ds[j]
		}
	}
}

// Dedup removes adjacent duplicates from a document-ordered slice,
// returning the deduplicated prefix of the backing array.
func Dedup(ds []DLN) []DLN {
	if len(ds) == 0 {
		return ds
	}
	out := ds[:1]
	for _, d := range ds[1:] {
		if !d.Equal(out[len(out)-1]) {
			out = append(out, d)
		}
	}
	return out
}
