// Package xtree implements the in-memory XML tree store of spec.md S4.3:
// a DLN-keyed ordered map of node payloads, written through a
// state-machine builder and read through a small reader contract.
//
// Grounded on the teacher's schema.Tree/data/datanode.DataNode pair
// (schema/tree.go, data/datanode/datanode.go): a plain struct holding
// name/children/values reached through accessor methods, generalized
// from YANG's name+children+leaf-values shape to XML's five node kinds
// (document, element, text, comment, PI) plus an insertion-ordered
// attribute list on elements.
package xtree

import (
	"sort"
	"sync"

	"github.com/oss-xquery/xq31/dln"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xdm"
)

// Kind tags a node payload.
type Kind int

const (
	KindDocument Kind = iota
	KindElement
	KindText
	KindComment
	KindPI
)

// Attribute is one entry of an element's insertion-ordered attribute
// list - attributes are never separate map entries, per spec.md S3.
type Attribute struct {
	Name  qname.Resolved
	Value string
}

// node is one payload in the tree's DLN-keyed map.
type node struct {
	kind     Kind
	dln      dln.DLN
	parent   dln.DLN
	hasParent bool
	name     qname.Resolved // element / PI-target(as Local only)
	text     string         // text / comment / PI content
	attrs    []Attribute    // element only, insertion order
	children []dln.DLN      // document order
	// namespaces holds the prefix->URI bindings a computed namespace
	// constructor added to this element (spec.md S4.4's `namespace`
	// computed form); element only, nil when none were declared.
	namespaces map[string]string
	// linked is set when this node is a reference into a foreign tree
	// rather than owned content (node construction's copy-by-reference
	// rule, spec.md S4.5).
	linked *Ref
}

// Tree is a single XML document's node store. Tree-ids are assigned by
// Set at construction, monotonically, per spec.md S3.
type Tree struct {
	id    uint64
	mu    sync.RWMutex
	nodes map[string]*node
}

func newTree(id uint64) *Tree {
	t := &Tree{id: id, nodes: make(map[string]*node)}
	t.nodes[dln.Document().String()] = &node{kind: KindDocument, dln: dln.Document()}
	return t
}

// ID returns this tree's monotonic identifier.
func (t *Tree) ID() uint64 { return t.id }

func (t *Tree) get(d dln.DLN) *node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[d.String()]
}

func (t *Tree) put(n *node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[n.dln.String()] = n
}

// Ref is the opaque node-reference handle of spec.md S3: (tree-id, DLN,
// optional attribute name). Equality and document order are defined
// purely in terms of these three fields.
type Ref struct {
	TreeID  uint64
	DLN     dln.DLN
	AttrIdx int // -1 unless this ref addresses one attribute of an element
}

func NodeRef(treeID uint64, d dln.DLN) Ref      { return Ref{TreeID: treeID, DLN: d, AttrIdx: -1} }
func AttrRef(treeID uint64, d dln.DLN, i int) Ref { return Ref{TreeID: treeID, DLN: d, AttrIdx: i} }

func (Ref) ItemKind() xdm.Kind { return xdm.KindNode }

func (r Ref) Str() string {
	return "" // overridden by eval.Atomize, which has the tree registry
}

// Equal is reference identity: (tree-id, DLN, attribute-index).
func (r Ref) Equal(o Ref) bool {
	return r.TreeID == o.TreeID && r.AttrIdx == o.AttrIdx && r.DLN.Equal(o.DLN)
}

// Compare gives document order: distinct trees order by tree-id, then by
// DLN within a tree, per spec.md S3.
func (r Ref) Compare(o Ref) int {
	if r.TreeID != o.TreeID {
		if r.TreeID < o.TreeID {
			return -1
		}
		return 1
	}
	if c := r.DLN.Compare(o.DLN); c != 0 {
		return c
	}
	if r.AttrIdx != o.AttrIdx {
		if r.AttrIdx < o.AttrIdx {
			return -1
		}
		return 1
	}
	return 0
}

// SortRefs orders refs into document order and removes duplicates, the
// "sorted and de-duplicated in document order" step every path step
// performs per spec.md S4.5.
func SortRefs(refs []Ref) []Ref {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Compare(refs[j]) < 0 })
	if len(refs) == 0 {
		return refs
	}
	out := refs[:1]
	for _, r := range refs[1:] {
		if !r.Equal(out[len(out)-1]) {
			out = append(out, r)
		}
	}
	return out
}

// Set owns every Tree in one evaluation and hands out monotonic
// tree-ids, generalizing the teacher's ProgStack/Machine ownership
// pattern (xpath/program.go) from a program stack to a tree arena.
type Set struct {
	mu    sync.Mutex
	next  uint64
	trees map[uint64]*Tree
}

func NewSet() *Set { return &Set{next: 1, trees: make(map[uint64]*Tree)} }

// NewTree allocates a fresh tree with the next monotonic id.
func (s *Set) NewTree() *Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	t := newTree(id)
	s.trees[id] = t
	return t
}

func (s *Set) Tree(id uint64) *Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trees[id]
}
