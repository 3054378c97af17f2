package eval

import (
	"math"

	"github.com/oss-xquery/xq31/xdm"
	"github.com/oss-xquery/xq31/xqerr"
	"github.com/oss-xquery/xq31/xtree"
)

// EffectiveBooleanValue implements spec.md S4.5's If/predicate EBV rule:
// "empty -> false; single boolean -> its value; single numeric -> != 0
// and not NaN; single string -> non-empty; single node -> true;
// otherwise error."
func EffectiveBooleanValue(seq xdm.Sequence) (bool, *xqerr.Error) {
	if len(seq) == 0 {
		return false, nil
	}
	if _, isNode := seq[0].(xtree.Ref); isNode {
		return true, nil
	}
	if len(seq) > 1 {
		return false, xqerr.New(xqerr.XPTY0004, "effective boolean value of a sequence of more than one item requires the first item to be a node")
	}
	switch v := seq[0].(type) {
	case xdm.BooleanValue:
		return v.V, nil
	case xdm.StringValue:
		return v.V != "", nil
	case xdm.UntypedAtomic:
		return v.V != "", nil
	case xdm.AnyURI:
		return v.V != "", nil
	case xdm.Integer:
		return v.V.Sign() != 0, nil
	case xdm.Decimal:
		return !v.V.IsZero(), nil
	case xdm.Float:
		return v.V != 0 && !math.IsNaN(float64(v.V)), nil
	case xdm.Double:
		return v.V != 0 && !math.IsNaN(v.V), nil
	}
	return false, xqerr.New(xqerr.FORG0006, "effective boolean value is not defined for %s", seq[0].ItemKind())
}
