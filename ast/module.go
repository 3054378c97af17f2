package ast

import "github.com/oss-xquery/xq31/qname"

// Module is `VersionDecl? MainModule`, the parse result's root, per
// spec.md S4.4 "Productions of note: Module".
type Module struct {
	Version  *VersionDecl
	Prolog   Prolog
	Body     Expr
}

// VersionDecl validates version and encoding against the fixed
// allowlists named in spec.md S4.4.
type VersionDecl struct {
	Version  string // "1.0" | "3.0" | "3.1"
	Encoding string // "" if unspecified
}

// Prolog is the two-phase preamble of spec.md S4.4/S4.5: setters,
// namespace declarations and imports interleave freely in phase 1;
// variable, function, and option declarations follow in phase 2.
type Prolog struct {
	Setters    Setters
	Namespaces []NamespaceDecl
	DefaultElementNamespace *string
	DefaultFunctionNamespace *string
	Variables  []VarDecl
	Functions  []FunctionDecl
	Options    []OptionDecl
}

// Setters holds the at-most-once prolog setters; a nil pointer means
// "not declared, use the implementation default" and a non-nil pointer
// records that the setter fired exactly once (a second occurrence is
// rejected by the parser with the setter's dedicated XQST code before
// ast.Prolog is ever populated a second time).
type Setters struct {
	BoundarySpace   *BoundarySpaceMode
	Collation       *string
	BaseURI         *string
	Construction    *ConstructionMode
	Ordering        *OrderingMode
	EmptyOrder      *EmptyOrderMode
	CopyNamespaces  *CopyNamespacesMode
}

type BoundarySpaceMode int

const (
	BoundarySpaceStrip BoundarySpaceMode = iota
	BoundarySpacePreserve
)

type ConstructionMode int

const (
	ConstructionStrip ConstructionMode = iota
	ConstructionPreserve
)

type OrderingMode int

const (
	OrderingOrdered OrderingMode = iota
	OrderingUnordered
)

type EmptyOrderMode int

const (
	EmptyOrderGreatest EmptyOrderMode = iota
	EmptyOrderLeast
)

// CopyNamespacesMode carries both of the comma-separated sub-modes the
// grammar actually declares (preserve/no-preserve, inherit/no-inherit).
type CopyNamespacesMode struct {
	Preserve bool
	Inherit  bool
}

// NamespaceDecl is `declare namespace prefix = "uri";`.
type NamespaceDecl struct {
	Prefix string
	URI    string
}

// VarDecl is `declare variable $name [as Type] := expr;` (or `external`
// with no initializer, which this core treats as unsupported/absent).
type VarDecl struct {
	Name     qname.QName
	Type     *SequenceType
	Init     Expr
	External bool
}

// FunctionDecl is a user-declared function from the prolog.
type FunctionDecl struct {
	Name       qname.QName
	Params     []Param
	ReturnType *SequenceType
	Body       Expr
}

// OptionDecl is `declare option name "value";`, carried opaquely since
// option processing is engine-specific and out of this core's scope.
type OptionDecl struct {
	Name  qname.QName
	Value string
}
