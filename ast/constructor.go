package ast

import "github.com/oss-xquery/xq31/qname"

// DirectElementConstructor is `<name attrs>content</name>` or
// `<name attrs/>`, per spec.md S4.4 "Direct XML constructors".
type DirectElementConstructor struct {
	Name     qname.QName
	Attrs    []DirectAttribute
	Content  []Expr // DirectText / DirectElementConstructor / EnclosedExpr / comment / PI
	SelfClosing bool
}

func (*DirectElementConstructor) exprNode() {}

// DirectAttribute is one attribute of a direct element constructor; the
// value is a sequence of literal text and enclosed expressions (common
// content), matching the grammar's AttValue production.
type DirectAttribute struct {
	Name  qname.QName
	Value []Expr // DirectText / EnclosedExpr
}

// DirectText is literal character content inside a direct constructor,
// already resolved for predefined entities, numeric char refs, and
// doubled `{{`/`}}` (spec.md S4.4 "common content").
type DirectText struct {
	Text        string
	IsCDATA     bool
	IsBoundarySpace bool // whitespace-only text subject to boundary-space stripping
}

func (*DirectText) exprNode() {}

// EnclosedExpr is a `{ expr }` hole inside constructor content.
type EnclosedExpr struct {
	Body Expr
}

func (*EnclosedExpr) exprNode() {}

// DirectCommentConstructor is `<!-- ... -->` used as content or as a
// standalone expression.
type DirectCommentConstructor struct {
	Text string
}

func (*DirectCommentConstructor) exprNode() {}

// DirectPIConstructor is `<?target content?>`.
type DirectPIConstructor struct {
	Target  string
	Content string
}

func (*DirectPIConstructor) exprNode() {}

// ComputedConstructorKind enumerates the seven computed-constructor forms
// of spec.md S4.4.
type ComputedConstructorKind int

const (
	ComputedDocument ComputedConstructorKind = iota
	ComputedElement
	ComputedAttribute
	ComputedNamespace
	ComputedText
	ComputedComment
	ComputedPI
)

// ComputedConstructor covers all seven forms; Name/NameExpr select
// between a literal QName/NCName and a `{expr}`-computed name. For every
// form, Content holds the braced body as a single expression in
// Content[0] (a comma list arrives as one *SequenceExpr), and is nil
// when the body is empty.
type ComputedConstructor struct {
	Kind     ComputedConstructorKind
	Name     *qname.QName // literal name, nil if NameExpr is used
	NameExpr Expr         // computed name, nil if Name is used
	Content  []Expr
}

func (*ComputedConstructor) exprNode() {}
