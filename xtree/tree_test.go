package xtree

import (
	"testing"

	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xqerr"
)

func assertNil(t *testing.T, err *xqerr.Error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func buildSimpleDoc(t *testing.T) (*Set, *Tree) {
	t.Helper()
	set := NewSet()
	b := NewBuilder(set)
	assertNil(t, b.StartDocument())
	root := qname.Resolved{Local: "root"}
	assertNil(t, b.StartElement(root))
	assertNil(t, b.Attribute(qname.Resolved{Local: "id"}, "7"))
	child := qname.Resolved{Local: "child"}
	assertNil(t, b.StartElement(child))
	assertNil(t, b.Text("hello"))
	assertNil(t, b.EndElement(child))
	assertNil(t, b.Comment("note"))
	assertNil(t, b.EndElement(root))
	assertNil(t, b.EndDocument())
	return set, b.Tree()
}

func TestBuilderProducesDocumentOrderedChildren(t *testing.T) {
	set, tree := buildSimpleDoc(t)
	r := NewReader(set)

	docRef := NodeRef(tree.ID(), tree.nodes["/"].dln)
	children := r.Children(docRef)
	if len(children) != 1 {
		t.Fatalf("expected 1 root child, got %d", len(children))
	}
	rootRef := children[0]
	if r.Name(rootRef).Local != "root" {
		t.Fatalf("expected root element, got %v", r.Name(rootRef))
	}
	attrs := r.Attributes(rootRef)
	if len(attrs) != 1 || attrs[0].Value != "7" {
		t.Fatalf("unexpected attributes: %+v", attrs)
	}

	kids := r.Children(rootRef)
	if len(kids) != 2 {
		t.Fatalf("expected 2 children (child element, comment), got %d", len(kids))
	}
	if r.Name(kids[0]).Local != "child" {
		t.Fatalf("expected first child to be <child>, got %v", r.Name(kids[0]))
	}
	if r.TypedValue(kids[0]) != "hello" {
		t.Fatalf("expected text content 'hello', got %q", r.TypedValue(kids[0]))
	}
	if r.Kind(kids[1]) != KindComment {
		t.Fatalf("expected second child to be a comment")
	}
}

func TestDuplicateAttributeIsRejected(t *testing.T) {
	set := NewSet()
	b := NewBuilder(set)
	assertNil(t, b.StartDocument())
	el := qname.Resolved{Local: "e"}
	assertNil(t, b.StartElement(el))
	assertNil(t, b.Attribute(qname.Resolved{Local: "a"}, "1"))
	err := b.Attribute(qname.Resolved{Local: "a"}, "2")
	if err == nil || err.Code != xqerr.XQST0040 {
		t.Fatalf("expected XQST0040, got %v", err)
	}
}

func TestMismatchedEndTagIsRejected(t *testing.T) {
	set := NewSet()
	b := NewBuilder(set)
	assertNil(t, b.StartDocument())
	assertNil(t, b.StartElement(qname.Resolved{Local: "a"}))
	err := b.EndElement(qname.Resolved{Local: "b"})
	if err == nil || err.Code != xqerr.XQST0118 {
		t.Fatalf("expected XQST0118, got %v", err)
	}
}

func TestRefDocumentOrderAcrossTrees(t *testing.T) {
	set, tree := buildSimpleDoc(t)
	other := set.NewTree()
	r1 := NodeRef(tree.ID(), tree.nodes["/"].dln)
	r2 := NodeRef(other.ID(), other.nodes["/"].dln)
	if tree.ID() < other.ID() && r1.Compare(r2) >= 0 {
		t.Fatalf("expected tree with lower id to sort first")
	}
}

func TestSortRefsDedupes(t *testing.T) {
	_, tree := buildSimpleDoc(t)
	root := tree.nodes["/"].children[0]
	rootRef := NodeRef(tree.ID(), root)
	refs := SortRefs([]Ref{rootRef, rootRef, NodeRef(tree.ID(), tree.nodes["/"].dln)})
	if len(refs) != 2 {
		t.Fatalf("expected dedup to 2 refs, got %d", len(refs))
	}
	if refs[0].Compare(refs[1]) >= 0 {
		t.Fatalf("expected document order, got %+v", refs)
	}
}
