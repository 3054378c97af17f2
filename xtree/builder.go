package xtree

import (
	"github.com/oss-xquery/xq31/dln"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xqerr"
)

// state is the builder's position in the Idle -> InDoc -> InElem* event
// grammar of spec.md S4.3.
type state int

const (
	stateIdle state = iota
	stateInDoc
	stateDone
)

type frame struct {
	d            dln.DLN
	nextOrdinal  uint64
	name         qname.Resolved
	attrs        []Attribute
	attrSeen     map[string]bool
	namespaces   map[string]string
	sawContent   bool // true once any non-attribute child has been pushed
}

// Builder drives one Tree through the construction event grammar:
// start_document, start_element, attribute*, (text|comment|pi|start_element)*,
// end_element, ..., end_document. Grounded on the teacher's
// schema/tree_builder.go push/pop accumulator, generalized from YANG's
// single leaf-or-container shape to XML's element/text/comment/PI mix
// plus an explicit attribute sub-state.
type Builder struct {
	tree  *Tree
	state state
	stack []*frame
}

// NewBuilder begins building a fresh tree owned by set.
func NewBuilder(set *Set) *Builder {
	return &Builder{tree: set.NewTree(), state: stateIdle}
}

// Tree returns the tree under construction (usable once StartDocument has
// been called; content keeps accumulating until EndDocument).
func (b *Builder) Tree() *Tree { return b.tree }

// CurrentDLN returns the DLN of the element or document most recently
// opened by StartElement/StartDocument and not yet closed.
func (b *Builder) CurrentDLN() dln.DLN { return b.top().d }

// LastChildDLN returns the DLN of the most recently appended child of
// the currently open frame - the ref a leaf-producing call (Text,
// Comment, PI, LinkForeign) just created, which childDLN's bookkeeping
// alone does not expose.
func (b *Builder) LastChildDLN() dln.DLN {
	f := b.top()
	n := b.tree.get(f.d)
	return n.children[len(n.children)-1]
}

func (b *Builder) top() *frame {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

// StartDocument opens the document root.
func (b *Builder) StartDocument() *xqerr.Error {
	if b.state != stateIdle {
		return xqerr.New(xqerr.FOER0000, "start_document called out of sequence")
	}
	b.state = stateInDoc
	b.stack = []*frame{{d: dln.Document(), nextOrdinal: 1}}
	return nil
}

// childDLN allocates the next child DLN under the current frame.
func (f *frame) childDLN() dln.DLN {
	d := f.d.FirstChild()
	for i := uint64(1); i < f.nextOrdinal; i++ {
		d = d.NextSibling()
	}
	f.nextOrdinal++
	return d
}

// StartElement opens a new element as a child of the current node.
func (b *Builder) StartElement(name qname.Resolved) *xqerr.Error {
	if b.state != stateInDoc || len(b.stack) == 0 {
		return xqerr.New(xqerr.FOER0000, "start_element called out of sequence")
	}
	parent := b.top()
	d := parent.childDLN()
	parent.sawContent = true

	n := &node{kind: KindElement, dln: d, parent: parent.d, hasParent: true, name: name}
	b.tree.put(n)
	parent2 := b.tree.get(parent.d)
	if parent2 != nil {
		parent2.children = append(parent2.children, d)
	}

	b.stack = append(b.stack, &frame{d: d, nextOrdinal: 1, name: name, attrSeen: map[string]bool{}})
	return nil
}

// Attribute adds an attribute to the element most recently opened by
// StartElement. Must precede any other content of that element.
func (b *Builder) Attribute(name qname.Resolved, value string) *xqerr.Error {
	f := b.top()
	if f == nil || f.d.Equal(dln.Document()) || f.sawContent {
		return xqerr.New(xqerr.FOER0000, "attribute called out of sequence")
	}
	key := name.String()
	if f.attrSeen[key] {
		return xqerr.New(xqerr.XQST0040, "duplicate attribute %s", key)
	}
	f.attrSeen[key] = true
	f.attrs = append(f.attrs, Attribute{Name: name, Value: value})
	n := b.tree.get(f.d)
	n.attrs = f.attrs
	return nil
}

// Namespace binds prefix to uri in the in-scope namespaces of the
// element most recently opened by StartElement - the computed
// `namespace` constructor's effect (spec.md S4.4), added to the
// element the same way Attribute is: must precede any other content.
func (b *Builder) Namespace(prefix, uri string) *xqerr.Error {
	f := b.top()
	if f == nil || f.d.Equal(dln.Document()) || f.sawContent {
		return xqerr.New(xqerr.FOER0000, "namespace binding called out of sequence")
	}
	if f.namespaces == nil {
		f.namespaces = map[string]string{}
	}
	f.namespaces[prefix] = uri
	n := b.tree.get(f.d)
	n.namespaces = f.namespaces
	return nil
}

func (b *Builder) addLeaf(kind Kind, text string, name qname.Resolved) *xqerr.Error {
	f := b.top()
	if f == nil {
		return xqerr.New(xqerr.FOER0000, "content event called out of sequence")
	}
	f.sawContent = true
	d := f.childDLN()
	n := &node{kind: kind, dln: d, parent: f.d, hasParent: true, text: text, name: name}
	b.tree.put(n)
	parent := b.tree.get(f.d)
	parent.children = append(parent.children, d)
	return nil
}

// Text appends a text node.
func (b *Builder) Text(s string) *xqerr.Error { return b.addLeaf(KindText, s, qname.Resolved{}) }

// Comment appends a comment node.
func (b *Builder) Comment(s string) *xqerr.Error { return b.addLeaf(KindComment, s, qname.Resolved{}) }

// PI appends a processing-instruction node; target is stored as the
// node's Local name with an empty URI.
func (b *Builder) PI(target, content string) *xqerr.Error {
	return b.addLeaf(KindPI, content, qname.Resolved{Local: target})
}

// LinkForeign appends a node-reference child that points into another
// tree rather than owning new content - node construction's
// copy-by-reference rule (spec.md S4.5: constructors copy subtrees from
// other documents by reference, not by re-parsing).
func (b *Builder) LinkForeign(ref Ref) *xqerr.Error {
	f := b.top()
	if f == nil {
		return xqerr.New(xqerr.FOER0000, "link called out of sequence")
	}
	f.sawContent = true
	d := f.childDLN()
	n := &node{kind: KindElement, dln: d, parent: f.d, hasParent: true, linked: &ref}
	b.tree.put(n)
	parent := b.tree.get(f.d)
	parent.children = append(parent.children, d)
	return nil
}

// EndElement closes the most recently opened element. name must match
// the element's start tag, per XML well-formedness (spec.md's
// XQST0118-equivalent: "element constructor end tag must match start tag").
func (b *Builder) EndElement(name qname.Resolved) *xqerr.Error {
	f := b.top()
	if f == nil || f.d.Equal(dln.Document()) {
		return xqerr.New(xqerr.FOER0000, "end_element called out of sequence")
	}
	if !f.name.Equal(name) {
		return xqerr.New(xqerr.XQST0118, "end tag %s does not match start tag %s", name.String(), f.name.String())
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

// EndDocument closes the document root and freezes the tree.
func (b *Builder) EndDocument() *xqerr.Error {
	if b.state != stateInDoc || len(b.stack) != 1 {
		return xqerr.New(xqerr.FOER0000, "end_document called out of sequence")
	}
	b.stack = nil
	b.state = stateDone
	return nil
}
