package ast

import "github.com/oss-xquery/xq31/qname"

// OccurrenceIndicator is the `? * +` suffix of spec.md S4.4's
// SequenceType grammar; absence means exactly-one.
type OccurrenceIndicator int

const (
	OccurrenceExactlyOne OccurrenceIndicator = iota
	OccurrenceZeroOrOne
	OccurrenceZeroOrMore
	OccurrenceOneOrMore
)

// ItemType is the item-level type test embedded in a SequenceType:
// either a kind test, an atomic-or-union type name, a function test,
// an array test, or the bare `item()` wildcard.
type ItemType struct {
	Kind ItemTypeKind

	// ItemKindTest
	KindTest NodeTest

	// ItemAtomicType
	AtomicName qname.QName

	// ItemFunctionTest / ItemArrayTest: nil ParamTypes/ElementType means
	// the wildcard form (`function(*)`, `array(*)`).
	ParamTypes []SequenceType
	ReturnType *SequenceType
	ElementType *SequenceType
}

type ItemTypeKind int

const (
	ItemAny ItemTypeKind = iota // item()
	ItemKindTest
	ItemAtomicType
	ItemFunctionTest
	ItemArrayTest
	ItemMapTest
)

// SequenceType is `"empty-sequence()" | ItemType OccurrenceIndicator?`.
type SequenceType struct {
	EmptySequence bool
	Item          ItemType
	Occurrence    OccurrenceIndicator
}

// SingleType is the restricted type used by `castable`/`cast`: an
// atomic type name with an optional `?`.
type SingleType struct {
	Name     qname.QName
	Optional bool
}
