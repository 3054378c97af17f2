// Package xdm implements the XDM (XQuery/XPath Data Model) value domain
// described in spec.md S3: atomic values, the numeric promotion lattice,
// and the uniform Item/Sequence abstraction that node references, maps,
// arrays and function items all participate in.
//
// Grounded on the teacher's Datum interface (xpath/datum.go): a small
// closed set of concrete value kinds behind one interface, each able to
// report its own kind and convert itself to the other "basic" forms. XDM
// has a much larger kind lattice than XPath 1.0's four Datum kinds, so
// Item only commits to identifying its own Kind(); conversions between
// kinds live in numeric.go/atomize rather than on every concrete type, as
// the full coercion matrix is evaluator policy (arithmetic vs. general
// comparison coerce differently), not a value-level concern.
package xdm

// Kind tags every concrete Item implementation.
type Kind int

const (
	KindString Kind = iota
	KindBoolean
	KindDecimal
	KindInteger
	KindFloat
	KindDouble
	KindDuration
	KindYearMonthDuration
	KindDayTimeDuration
	KindDate
	KindTime
	KindDateTime
	KindHexBinary
	KindBase64Binary
	KindQName
	KindAnyURI
	KindNOTATION
	KindUntypedAtomic

	KindNode
	KindMap
	KindArray
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "xs:string"
	case KindBoolean:
		return "xs:boolean"
	case KindDecimal:
		return "xs:decimal"
	case KindInteger:
		return "xs:integer"
	case KindFloat:
		return "xs:float"
	case KindDouble:
		return "xs:double"
	case KindDuration:
		return "xs:duration"
	case KindYearMonthDuration:
		return "xs:yearMonthDuration"
	case KindDayTimeDuration:
		return "xs:dayTimeDuration"
	case KindDate:
		return "xs:date"
	case KindTime:
		return "xs:time"
	case KindDateTime:
		return "xs:dateTime"
	case KindHexBinary:
		return "xs:hexBinary"
	case KindBase64Binary:
		return "xs:base64Binary"
	case KindQName:
		return "xs:QName"
	case KindAnyURI:
		return "xs:anyURI"
	case KindNOTATION:
		return "xs:NOTATION"
	case KindUntypedAtomic:
		return "xs:untypedAtomic"
	case KindNode:
		return "node()"
	case KindMap:
		return "map(*)"
	case KindArray:
		return "array(*)"
	case KindFunction:
		return "function(*)"
	}
	return "unknown"
}

// Item is any single value in an XDM sequence: an atomic, a node
// reference, a map, an array, or a function item.
type Item interface {
	ItemKind() Kind
	// Str renders the item's string value the way fn:string would,
	// used by EBV-for-strings and by general comparison's atomization.
	Str() string
}

// Atomic is the subset of Items with a position in the numeric/string/
// duration comparison-category lattice of spec.md S3.
type Atomic interface {
	Item
	atomicMarker()
}

// IsAtomic reports whether it implements Atomic.
func IsAtomic(it Item) bool {
	_, ok := it.(Atomic)
	return ok
}
