package xdm

import (
	"math"
	"strings"
	"time"

	"github.com/oss-xquery/xq31/xqerr"
)

// Category implements spec.md S3's "comparison category": two atomics
// can only be value-compared if they share a category (or one promotes
// into the other's, which PromoteNumericPair/Category callers already
// handle for the numeric family).
func Category(a Atomic) string {
	switch a.(type) {
	case Integer, Decimal, Float, Double:
		return "numeric"
	case StringValue, UntypedAtomic, AnyURI:
		return "string"
	case BooleanValue:
		return "boolean"
	case YearMonthDuration:
		return "duration:yearMonth"
	case DayTimeDuration:
		return "duration:dayTime"
	case DurationValue:
		return "duration:general"
	case DateValue:
		return "date"
	case TimeValue:
		return "time"
	case DateTimeValue:
		return "dateTime"
	case HexBinaryValue:
		return "hexBinary"
	case Base64BinaryValue:
		return "base64Binary"
	case QNameValue:
		return "QName"
	}
	return "unknown"
}

// ValueCompare implements the "eq ne lt le gt ge" operators of spec.md
// S4.5: operands must share a comparison category (numerics are
// promoted to a common type first, exactly as for arithmetic), and NaN
// compares unequal to everything including itself.
func ValueCompare(op string, a, b Atomic) (bool, *xqerr.Error) {
	ca, cb := Category(a), Category(b)
	if ca != cb {
		return false, xqerr.New(xqerr.XPTY0004, "cannot compare %s to %s (incompatible categories %s/%s)", a.ItemKind(), b.ItemKind(), ca, cb)
	}

	switch ca {
	case "numeric":
		pa, pb, err := PromoteNumericPair(a.(Item), b.(Item))
		if err != nil {
			return false, err
		}
		return compareNumeric(op, pa, pb)
	case "string":
		return compareOrdered(op, a.Str(), b.Str(), strLess), nil
	case "boolean":
		av, bv := a.(BooleanValue).V, b.(BooleanValue).V
		return compareOrdered(op, boolRank(av), boolRank(bv), intLess), nil
	case "duration:yearMonth":
		av, bv := a.(YearMonthDuration).Months, b.(YearMonthDuration).Months
		return compareOrdered(op, av, bv, int64Less), nil
	case "duration:dayTime":
		av, bv := a.(DayTimeDuration).Seconds, b.(DayTimeDuration).Seconds
		switch op {
		case "eq":
			return av.Equal(bv), nil
		case "ne":
			return !av.Equal(bv), nil
		case "lt":
			return av.LessThan(bv), nil
		case "le":
			return av.LessThanOrEqual(bv), nil
		case "gt":
			return av.GreaterThan(bv), nil
		case "ge":
			return av.GreaterThanOrEqual(bv), nil
		}
	case "duration:general":
		if op != "eq" && op != "ne" {
			return false, xqerr.New(xqerr.XPTY0004, "xs:duration only supports eq/ne comparison")
		}
		av, bv := a.(DurationValue), b.(DurationValue)
		eq := av.YM.Months == bv.YM.Months && av.DT.Seconds.Equal(bv.DT.Seconds)
		if op == "eq" {
			return eq, nil
		}
		return !eq, nil
	case "date", "time", "dateTime":
		return compareTemporal(op, a, b)
	case "hexBinary":
		return compareBytesEq(op, a.(HexBinaryValue).V, b.(HexBinaryValue).V)
	case "base64Binary":
		return compareBytesEq(op, a.(Base64BinaryValue).V, b.(Base64BinaryValue).V)
	case "QName":
		if op != "eq" && op != "ne" {
			return false, xqerr.New(xqerr.XPTY0004, "xs:QName only supports eq/ne comparison")
		}
		eq := a.(QNameValue).V.Equal(b.(QNameValue).V)
		if op == "eq" {
			return eq, nil
		}
		return !eq, nil
	}
	return false, xqerr.New(xqerr.XPTY0004, "unsupported comparison category %s", ca)
}

func compareNumeric(op string, a, b Item) (bool, *xqerr.Error) {
	// NaN compares unequal to everything, including itself (spec.md S4.5).
	if af, ok := asFloat64(a); ok {
		if math.IsNaN(af) {
			return op == "ne", nil
		}
	}
	if bf, ok := asFloat64(b); ok {
		if math.IsNaN(bf) {
			return op == "ne", nil
		}
	}
	switch av := a.(type) {
	case Integer:
		bv := b.(Integer)
		c := av.V.Cmp(bv.V)
		return compareFromInt(op, c), nil
	case Decimal:
		bv := b.(Decimal)
		c := av.V.Cmp(bv.V)
		return compareFromInt(op, c), nil
	case Float:
		bv := b.(Float)
		return compareOrdered(op, float64(av.V), float64(bv.V), float64Less), nil
	case Double:
		bv := b.(Double)
		return compareOrdered(op, av.V, bv.V, float64Less), nil
	}
	return false, xqerr.New(xqerr.XPTY0004, "unsupported numeric operand")
}

func asFloat64(it Item) (float64, bool) {
	switch v := it.(type) {
	case Float:
		return float64(v.V), true
	case Double:
		return v.V, true
	}
	return 0, false
}

func compareFromInt(op string, c int) bool {
	switch op {
	case "eq":
		return c == 0
	case "ne":
		return c != 0
	case "lt":
		return c < 0
	case "le":
		return c <= 0
	case "gt":
		return c > 0
	case "ge":
		return c >= 0
	}
	return false
}

func compareOrdered[T any](op string, a, b T, less func(T, T) bool) bool {
	switch op {
	case "eq":
		return !less(a, b) && !less(b, a)
	case "ne":
		return less(a, b) || less(b, a)
	case "lt":
		return less(a, b)
	case "le":
		return less(a, b) || (!less(a, b) && !less(b, a))
	case "gt":
		return less(b, a)
	case "ge":
		return less(b, a) || (!less(a, b) && !less(b, a))
	}
	return false
}

func strLess(a, b string) bool       { return strings.Compare(a, b) < 0 }
func intLess(a, b int) bool          { return a < b }
func int64Less(a, b int64) bool      { return a < b }
func float64Less(a, b float64) bool  { return a < b }
func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareBytesEq(op string, a, b []byte) (bool, *xqerr.Error) {
	if op != "eq" && op != "ne" {
		return false, xqerr.New(xqerr.XPTY0004, "binary types only support eq/ne comparison")
	}
	eq := len(a) == len(b)
	if eq {
		for i := range a {
			if a[i] != b[i] {
				eq = false
				break
			}
		}
	}
	if op == "eq" {
		return eq, nil
	}
	return !eq, nil
}

func compareTemporal(op string, a, b Atomic) (bool, *xqerr.Error) {
	ta, offa := temporalParts(a)
	tb, offb := temporalParts(b)
	// Values with an explicit timezone are normalized to UTC already by
	// the parser (datetime.go); absent-timezone values compare at face
	// value, matching the common (non-implicit-timezone) case.
	_ = offa
	_ = offb
	c := ta.Compare(tb)
	return compareFromInt(op, c), nil
}

func temporalParts(a Atomic) (time.Time, *int) {
	switch v := a.(type) {
	case DateValue:
		return v.T, v.Offset
	case TimeValue:
		return v.T, v.Offset
	case DateTimeValue:
		return v.T, v.Offset
	}
	return time.Time{}, nil
}
