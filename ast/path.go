package ast

import "github.com/oss-xquery/xq31/qname"

// Axis enumerates the forward and reverse axes of spec.md S4.5.
type Axis int

const (
	AxisChild Axis = iota
	AxisDescendant
	AxisDescendantOrSelf
	AxisSelf
	AxisAttribute
	AxisFollowingSibling
	AxisFollowing
	AxisParent
	AxisAncestor
	AxisAncestorOrSelf
	AxisPrecedingSibling
	AxisPreceding
)

// Forward reports whether the axis is in the forward set (needed to
// pick the document-order vs. reverse-document-order sort direction
// before the final "sorted and de-duplicated in document order" step).
func (a Axis) Forward() bool {
	switch a {
	case AxisParent, AxisAncestor, AxisAncestorOrSelf, AxisPrecedingSibling, AxisPreceding:
		return false
	default:
		return true
	}
}

// NodeTestKind distinguishes the three node-test families of spec.md
// S4.5: name tests, kind tests, and (in atomic contexts) type tests.
type NodeTestKind int

const (
	TestName NodeTestKind = iota
	TestKind
	TestAtomicType
)

// KindTestKind enumerates the kind-test alternatives named in spec.md
// S4.4's ItemType grammar.
type KindTestKind int

const (
	KindAnyKind KindTestKind = iota
	KindDocumentNode
	KindElementNode
	KindAttributeNode
	KindSchemaElement
	KindSchemaAttribute
	KindPINode
	KindCommentNode
	KindTextNode
	KindNamespaceNode
)

// NodeTest is one step's test, carrying only the fields relevant to its
// Kind field (others are zero).
type NodeTest struct {
	Kind NodeTestKind

	// TestName: a QName test; Prefix=="*" denotes a prefix wildcard and
	// Local=="*" a local wildcard (both together match any name, per
	// spec.md "by name (QName or wildcard in prefix, local-part, or
	// both)").
	Name qname.QName

	// TestKind
	KindTest KindTestKind
	PIName   string // optional literal target for KindPINode, "" = any

	// TestAtomicType
	AtomicType qname.QName
}

// Step is one `(axis, test, predicates*)` triple.
type Step struct {
	Axis       Axis
	Test       NodeTest
	Predicates []Expr
}

// InitialKind selects the starting node set of a path expression.
type InitialKind int

const (
	InitialContext  InitialKind = iota // relative path, starts at context item
	InitialRoot                        // leading "/"
	InitialRootDescendantOrSelf        // leading "//"
)

// PathExpr is a sequence of steps off an initial node set, per spec.md
// S4.5 "Path and step evaluation". When StartExpr is non-nil, the path
// is relative to an arbitrary expression's result (e.g. `$x/a`) rather
// than to one of the three well-known initial sets Initial names.
type PathExpr struct {
	Initial   InitialKind
	StartExpr Expr
	Steps     []Step
}

func (*PathExpr) exprNode() {}

// FilterExpr applies predicates directly to an arbitrary expression's
// result (e.g. `(1, 2, 3)[2]`), distinct from a path Step's predicates
// which always follow an axis.
type FilterExpr struct {
	Base       Expr
	Predicates []Expr
}

func (*FilterExpr) exprNode() {}
