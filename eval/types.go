package eval

import (
	"math"
	"math/big"
	"strconv"

	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/namespace"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xdm"
	"github.com/oss-xquery/xq31/xqenv"
	"github.com/oss-xquery/xq31/xqerr"
	"github.com/oss-xquery/xq31/xtree"
)

// MatchesSequenceType implements the InstanceOf/Treat occurrence and
// item-type check of spec.md S4.4's SequenceType grammar: cardinality
// first (the occurrence indicator), then every remaining item against
// the ItemType.
func MatchesSequenceType(env *xqenv.Env, seq xdm.Sequence, st ast.SequenceType) bool {
	if st.EmptySequence {
		return len(seq) == 0
	}
	switch st.Occurrence {
	case ast.OccurrenceExactlyOne:
		if len(seq) != 1 {
			return false
		}
	case ast.OccurrenceZeroOrOne:
		if len(seq) > 1 {
			return false
		}
	case ast.OccurrenceOneOrMore:
		if len(seq) == 0 {
			return false
		}
	case ast.OccurrenceZeroOrMore:
		// any length
	}
	for _, it := range seq {
		if !matchesItemType(env, it, st.Item) {
			return false
		}
	}
	return true
}

func matchesItemType(env *xqenv.Env, it xdm.Item, t ast.ItemType) bool {
	switch t.Kind {
	case ast.ItemAny:
		return true
	case ast.ItemKindTest:
		return matchesKindTest(env, it, t.KindTest)
	case ast.ItemAtomicType:
		a, ok := it.(xdm.Atomic)
		if !ok {
			return false
		}
		target, err := qname.ResolveNoDefault(t.AtomicName, env.NS())
		if err != nil {
			return false
		}
		return matchesAtomicType(a, target)
	case ast.ItemFunctionTest, ast.ItemArrayTest, ast.ItemMapTest:
		// Map/array/function constructors are out of this core's scope
		// (see SPEC_FULL.md's function registry note); nothing ever
		// produces an item of these kinds, so these tests never match.
		return false
	}
	return false
}

func matchesKindTest(env *xqenv.Env, it xdm.Item, nt ast.NodeTest) bool {
	ref, ok := it.(xtree.Ref)
	if !ok {
		return false
	}
	if ref.AttrIdx >= 0 {
		switch nt.KindTest {
		case ast.KindAnyKind, ast.KindAttributeNode:
			return true
		}
		return false
	}
	reader := Reader(env)
	kind := reader.Kind(ref)
	switch nt.KindTest {
	case ast.KindAnyKind:
		return true
	case ast.KindDocumentNode:
		return kind == xtree.KindDocument
	case ast.KindElementNode:
		return kind == xtree.KindElement
	case ast.KindTextNode:
		return kind == xtree.KindText
	case ast.KindCommentNode:
		return kind == xtree.KindComment
	case ast.KindPINode:
		return kind == xtree.KindPI
	case ast.KindSchemaElement, ast.KindSchemaAttribute, ast.KindNamespaceNode:
		// Schema validation is out of scope (spec.md S1 Non-goals);
		// namespace nodes are not modeled by xtree. Neither ever matches.
		return false
	}
	return false
}

// matchesAtomicType reports whether a's dynamic type is target or a
// subtype of it. The lattice this core models is flat (no derived user
// types, since schema validation is a non-goal), so this is exact-kind
// matching plus the two XDM-defined generalizations every F&O
// implementation needs: xs:anyAtomicType matches everything, and
// xs:decimal matches xs:integer (integer is a decimal subtype in the
// XML Schema type hierarchy).
func matchesAtomicType(a xdm.Atomic, target qname.Resolved) bool {
	if target.URI == namespace.XS && target.Local == "anyAtomicType" {
		return true
	}
	if target.URI != namespace.XS {
		return false
	}
	switch target.Local {
	case "string":
		_, ok := a.(xdm.StringValue)
		return ok
	case "boolean":
		_, ok := a.(xdm.BooleanValue)
		return ok
	case "decimal":
		switch a.(type) {
		case xdm.Decimal, xdm.Integer:
			return true
		}
		return false
	case "integer":
		_, ok := a.(xdm.Integer)
		return ok
	case "float":
		_, ok := a.(xdm.Float)
		return ok
	case "double":
		_, ok := a.(xdm.Double)
		return ok
	case "duration":
		switch a.(type) {
		case xdm.DurationValue, xdm.YearMonthDuration, xdm.DayTimeDuration:
			return true
		}
		return false
	case "yearMonthDuration":
		_, ok := a.(xdm.YearMonthDuration)
		return ok
	case "dayTimeDuration":
		_, ok := a.(xdm.DayTimeDuration)
		return ok
	case "date":
		_, ok := a.(xdm.DateValue)
		return ok
	case "time":
		_, ok := a.(xdm.TimeValue)
		return ok
	case "dateTime":
		_, ok := a.(xdm.DateTimeValue)
		return ok
	case "hexBinary":
		_, ok := a.(xdm.HexBinaryValue)
		return ok
	case "base64Binary":
		_, ok := a.(xdm.Base64BinaryValue)
		return ok
	case "QName":
		_, ok := a.(xdm.QNameValue)
		return ok
	case "anyURI":
		_, ok := a.(xdm.AnyURI)
		return ok
	case "untypedAtomic":
		_, ok := a.(xdm.UntypedAtomic)
		return ok
	}
	return false
}

// CastSingleType implements the Cast/Castable dynamic semantics of
// spec.md S4.4's precedence chain entry "castable > cast": cast to a
// SingleType (an atomic type name with an optional '?'). An empty
// operand is only legal when Optional is set; a non-atomic operand is
// FOTY0013 by way of the caller having atomized first.
func CastSingleType(env *xqenv.Env, a xdm.Atomic, st ast.SingleType) (xdm.Atomic, *xqerr.Error) {
	target, err := qname.ResolveNoDefault(st.Name, env.NS())
	if err != nil {
		return nil, err
	}
	return castAtomic(a, target)
}

func castAtomic(a xdm.Atomic, target qname.Resolved) (xdm.Atomic, *xqerr.Error) {
	if target.URI != namespace.XS {
		return nil, xqerr.New(xqerr.XPST0051, "unknown cast target type %s", target.String())
	}
	s := a.Str()
	switch target.Local {
	case "string", "untypedAtomic", "anyURI":
		switch target.Local {
		case "untypedAtomic":
			return xdm.NewUntypedAtomic(s), nil
		case "anyURI":
			return xdm.NewAnyURI(s), nil
		default:
			return xdm.NewString(s), nil
		}
	case "boolean":
		if bv, ok := a.(xdm.BooleanValue); ok {
			return bv, nil
		}
		switch s {
		case "true", "1":
			return xdm.NewBoolean(true), nil
		case "false", "0":
			return xdm.NewBoolean(false), nil
		}
		return nil, xqerr.New(xqerr.FORG0001, "invalid xs:boolean lexical form %q", s)
	case "decimal":
		return castToDecimal(a, s)
	case "integer":
		return castToInteger(a, s)
	case "float":
		d, err := castToDoubleLike(a, s)
		if err != nil {
			return nil, err
		}
		return xdm.NewFloat(float32(d.V)), nil
	case "double":
		return castToDoubleLike(a, s)
	case "yearMonthDuration":
		return xdm.ParseYearMonthDuration(s)
	case "dayTimeDuration":
		return xdm.ParseDayTimeDuration(s)
	case "date":
		return xdm.ParseDate(s)
	case "time":
		return xdm.ParseTime(s)
	case "dateTime":
		return xdm.ParseDateTime(s)
	case "hexBinary":
		return xdm.ParseHexBinary(s)
	case "base64Binary":
		return xdm.ParseBase64Binary(s)
	}
	return nil, xqerr.New(xqerr.XPST0051, "unsupported cast target type %s", target.String())
}

func castToDecimal(a xdm.Atomic, s string) (xdm.Atomic, *xqerr.Error) {
	switch v := a.(type) {
	case xdm.Integer:
		return v.Decimal(), nil
	case xdm.Decimal:
		return v, nil
	}
	return xdm.ParseDecimal(s)
}

func castToInteger(a xdm.Atomic, s string) (xdm.Atomic, *xqerr.Error) {
	if iv, ok := a.(xdm.Integer); ok {
		return iv, nil
	}
	if dv, ok := a.(xdm.Decimal); ok {
		return xdm.NewIntegerBig(dv.V.Truncate(0).BigInt()), nil
	}
	if fv, ok := a.(xdm.BooleanValue); ok {
		if fv.V {
			return xdm.NewInteger(1), nil
		}
		return xdm.NewInteger(0), nil
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, xqerr.New(xqerr.FORG0001, "invalid xs:integer lexical form %q", s)
	}
	return xdm.NewIntegerBig(i), nil
}

// parseDoubleLexical accepts XDM's special lexical forms (INF, -INF,
// NaN) in addition to the plain decimal/exponential forms strconv
// already understands.
func parseDoubleLexical(s string) (float64, *xqerr.Error) {
	switch s {
	case "INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	case "NaN":
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, xqerr.New(xqerr.FORG0001, "invalid numeric lexical form %q", s)
	}
	return f, nil
}

func castToDoubleLike(a xdm.Atomic, s string) (xdm.Double, *xqerr.Error) {
	switch v := a.(type) {
	case xdm.Integer:
		return v.Double(), nil
	case xdm.Decimal:
		return v.Double(), nil
	case xdm.Float:
		return xdm.Double{V: float64(v.V)}, nil
	case xdm.Double:
		return v, nil
	case xdm.BooleanValue:
		if v.V {
			return xdm.NewDouble(1), nil
		}
		return xdm.NewDouble(0), nil
	}
	f, err := parseDoubleLexical(s)
	if err != nil {
		return xdm.Double{}, err
	}
	return xdm.NewDouble(f), nil
}
