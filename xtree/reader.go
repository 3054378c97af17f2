package xtree

import (
	"strings"

	"github.com/oss-xquery/xq31/dln"
	"github.com/oss-xquery/xq31/qname"
)

// Reader is the node-reference read contract of spec.md S4.3: name,
// typed-value, children, attributes, string form, and document-order
// comparison, all addressed off a Ref rather than a raw node pointer so
// that foreign-tree links (LinkForeign) are transparent to callers.
//
// Grounded on the teacher's data/datanode.DataNode accessor surface
// (Name/Children/Values), generalized to the five XML node kinds and to
// attributes-as-list rather than leaf-values.
type Reader struct {
	set *Set
}

func NewReader(set *Set) *Reader { return &Reader{set: set} }

func (r *Reader) resolve(ref Ref) (*Tree, *node) {
	t := r.set.Tree(ref.TreeID)
	if t == nil {
		return nil, nil
	}
	n := t.get(ref.DLN)
	if n == nil {
		return t, nil
	}
	if n.linked != nil && ref.AttrIdx < 0 {
		return r.resolve(*n.linked)
	}
	return t, n
}

// Kind reports the node kind addressed by ref (attribute refs report
// KindElement's owner kind is irrelevant; callers check AttrIdx first).
func (r *Reader) Kind(ref Ref) Kind {
	_, n := r.resolve(ref)
	if n == nil {
		return KindDocument
	}
	return n.kind
}

// Name returns the element/PI name, or the attribute name when ref
// addresses an attribute.
func (r *Reader) Name(ref Ref) qname.Resolved {
	_, n := r.resolve(ref)
	if n == nil {
		return qname.Resolved{}
	}
	if ref.AttrIdx >= 0 {
		if ref.AttrIdx < len(n.attrs) {
			return n.attrs[ref.AttrIdx].Name
		}
		return qname.Resolved{}
	}
	return n.name
}

// TypedValue is the node's atomized string content: an attribute's
// value, a text/comment/PI node's content, or an element's concatenated
// descendant text (untyped, since schema validation is out of scope).
func (r *Reader) TypedValue(ref Ref) string {
	_, n := r.resolve(ref)
	if n == nil {
		return ""
	}
	if ref.AttrIdx >= 0 {
		if ref.AttrIdx < len(n.attrs) {
			return n.attrs[ref.AttrIdx].Value
		}
		return ""
	}
	switch n.kind {
	case KindText, KindComment, KindPI:
		return n.text
	case KindElement, KindDocument:
		var b strings.Builder
		r.collectText(ref, &b)
		return b.String()
	}
	return ""
}

func (r *Reader) collectText(ref Ref, b *strings.Builder) {
	t, n := r.resolve(ref)
	if n == nil {
		return
	}
	switch n.kind {
	case KindText:
		b.WriteString(n.text)
	case KindElement, KindDocument:
		for _, c := range n.children {
			r.collectText(NodeRef(t.ID(), c), b)
		}
	}
}

// Attributes returns the element's attributes in insertion order.
func (r *Reader) Attributes(ref Ref) []Attribute {
	_, n := r.resolve(ref)
	if n == nil || n.kind != KindElement {
		return nil
	}
	return n.attrs
}

// Namespaces returns the prefix->URI bindings a computed `namespace`
// constructor added directly to ref, or nil if ref is not an element or
// declared none.
func (r *Reader) Namespaces(ref Ref) map[string]string {
	_, n := r.resolve(ref)
	if n == nil || n.kind != KindElement {
		return nil
	}
	return n.namespaces
}

// Children returns the node-refs of ref's children, in document order.
func (r *Reader) Children(ref Ref) []Ref {
	t, n := r.resolve(ref)
	if n == nil {
		return nil
	}
	out := make([]Ref, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, NodeRef(t.ID(), c))
	}
	return out
}

// Parent returns ref's parent, if any.
func (r *Reader) Parent(ref Ref) (Ref, bool) {
	t, n := r.resolve(ref)
	if n == nil || !n.hasParent {
		return Ref{}, false
	}
	return NodeRef(t.ID(), n.parent), true
}

// ToString renders the node's serialized string form: the typed value
// for attributes/text/comment/PI, and full descendant text for elements
// and the document - the same rule TypedValue uses, since schema
// validation (and therefore a distinct typed value) is out of scope.
func (r *Reader) ToString(ref Ref) string { return r.TypedValue(ref) }

// Cmp gives document order between two refs, possibly in different
// trees (Ref.Compare orders by tree-id first).
func (r *Reader) Cmp(a, b Ref) int { return a.Compare(b) }

// Root returns the document root of ref's owning tree.
func (r *Reader) Root(ref Ref) Ref { return NodeRef(ref.TreeID, dln.Document()) }
