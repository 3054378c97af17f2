package xdm

import "github.com/oss-xquery/xq31/qname"

// StringValue is xs:string.
type StringValue struct{ V string }

func NewString(v string) StringValue { return StringValue{V: v} }

func (StringValue) ItemKind() Kind  { return KindString }
func (StringValue) atomicMarker()   {}
func (s StringValue) Str() string   { return s.V }

// UntypedAtomic is xs:untypedAtomic, the type the typed-value of an
// element assumes before any schema validation (which is out of scope
// per spec.md S1 non-goals).
type UntypedAtomic struct{ V string }

func NewUntypedAtomic(v string) UntypedAtomic { return UntypedAtomic{V: v} }

func (UntypedAtomic) ItemKind() Kind { return KindUntypedAtomic }
func (UntypedAtomic) atomicMarker()  {}
func (u UntypedAtomic) Str() string  { return u.V }

// BooleanValue is xs:boolean.
type BooleanValue struct{ V bool }

func NewBoolean(v bool) BooleanValue { return BooleanValue{V: v} }

func (BooleanValue) ItemKind() Kind { return KindBoolean }
func (BooleanValue) atomicMarker()  {}
func (b BooleanValue) Str() string {
	if b.V {
		return "true"
	}
	return "false"
}

// AnyURI is xs:anyURI, lexically a string but a distinct type for
// instance-of/castable purposes.
type AnyURI struct{ V string }

func NewAnyURI(v string) AnyURI { return AnyURI{V: v} }

func (AnyURI) ItemKind() Kind { return KindAnyURI }
func (AnyURI) atomicMarker()  {}
func (a AnyURI) Str() string { return a.V }

// NOTATIONValue is xs:NOTATION. XQuery forbids constructing one directly
// (XPST0080 on cast), so this type exists only so instance-of/kind
// matching over it type-checks; no constructor is exposed.
type NOTATIONValue struct{ V qname.Resolved }

func (NOTATIONValue) ItemKind() Kind { return KindNOTATION }
func (NOTATIONValue) atomicMarker()  {}
func (n NOTATIONValue) Str() string  { return n.V.String() }

// QNameValue is xs:QName, a resolved (namespace, local) pair - spec.md
// S3 "resolved QName" as a concrete representation.
type QNameValue struct{ V qname.Resolved }

func NewQName(v qname.Resolved) QNameValue { return QNameValue{V: v} }

func (QNameValue) ItemKind() Kind { return KindQName }
func (QNameValue) atomicMarker()  {}
func (q QNameValue) Str() string  { return q.V.String() }
