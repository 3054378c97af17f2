package eval

import (
	"github.com/oss-xquery/xq31/xdm"
	"github.com/oss-xquery/xq31/xqerr"
	"github.com/oss-xquery/xq31/xtree"
)

// ValueCompareOne implements spec.md S4.5's `eq ne lt le gt ge` for one
// pair of atomics. Its caller, evalValueCompare, atomizes both operands,
// raises XPTY0004 when either holds more than one item, and yields an
// empty result when either is empty before calling this, since the
// cardinality rules are a sequence-level concern, not a comparison one.
func ValueCompareOne(op string, lhs, rhs xdm.Atomic) (bool, *xqerr.Error) {
	pl, err := promoteArithOperand(lhs)
	if err != nil {
		return false, err
	}
	pr, err := promoteArithOperand(rhs)
	if err != nil {
		return false, err
	}
	la, lok := pl.(xdm.Atomic)
	ra, rok := pr.(xdm.Atomic)
	if !lok || !rok {
		return false, xqerr.New(xqerr.XPTY0004, "value comparison requires atomic operands")
	}
	return xdm.ValueCompare(op, la, ra)
}

// GeneralCompare implements spec.md S4.5's `= != < <= > >=`: existential
// over the Cartesian product of both atomized operand sequences, using
// value-comparison semantics (with the same untypedAtomic-to-double
// caveat general comparison carries: two untypedAtomic operands compare
// as strings, since neither side gives the other a numeric context -
// matching F&O's "both operands untyped -> string comparison" rule).
func GeneralCompare(op string, lhs, rhs xdm.Sequence) (bool, *xqerr.Error) {
	for _, l := range lhs {
		la, ok := l.(xdm.Atomic)
		if !ok {
			return false, xqerr.New(xqerr.XPTY0004, "general comparison requires atomized operands")
		}
		for _, r := range rhs {
			ra, ok := r.(xdm.Atomic)
			if !ok {
				return false, xqerr.New(xqerr.XPTY0004, "general comparison requires atomized operands")
			}
			ok2, err := generalCompareOne(op, la, ra)
			if err != nil {
				return false, err
			}
			if ok2 {
				return true, nil
			}
		}
	}
	return false, nil
}

func generalCompareOne(op string, la, ra xdm.Atomic) (bool, *xqerr.Error) {
	_, lu := la.(xdm.UntypedAtomic)
	_, ru := ra.(xdm.UntypedAtomic)
	valOp := generalToValueOp(op)
	if lu && ru {
		return xdm.ValueCompare(valOp, xdm.NewString(la.Str()), xdm.NewString(ra.Str()))
	}
	if lu && xdm.NumericRank(ra) >= 0 {
		f, err := parseDoubleLexical(la.(xdm.UntypedAtomic).V)
		if err != nil {
			return false, err
		}
		return xdm.ValueCompare(valOp, xdm.NewDouble(f), ra)
	}
	if ru && xdm.NumericRank(la) >= 0 {
		f, err := parseDoubleLexical(ra.(xdm.UntypedAtomic).V)
		if err != nil {
			return false, err
		}
		return xdm.ValueCompare(valOp, la, xdm.NewDouble(f))
	}
	if lu {
		return xdm.ValueCompare(valOp, xdm.NewString(la.Str()), ra)
	}
	if ru {
		return xdm.ValueCompare(valOp, la, xdm.NewString(ra.Str()))
	}
	return xdm.ValueCompare(valOp, la, ra)
}

func generalToValueOp(op string) string {
	switch op {
	case "=":
		return "eq"
	case "!=":
		return "ne"
	case "<":
		return "lt"
	case "<=":
		return "le"
	case ">":
		return "gt"
	case ">=":
		return "ge"
	}
	return op
}

// NodeCompare implements spec.md S4.5's `is`, `<<`, `>>`: both operands
// must be exactly one node (XPTY0004 otherwise); `is` is reference
// identity, `<<`/`>>` are strict document order.
func NodeCompare(op string, lhs, rhs xdm.Item) (bool, *xqerr.Error) {
	lr, lok := lhs.(xtree.Ref)
	rr, rok := rhs.(xtree.Ref)
	if !lok || !rok {
		return false, xqerr.New(xqerr.XPTY0004, "%q requires node operands", op)
	}
	switch op {
	case "is":
		return lr.Equal(rr), nil
	case "<<":
		return lr.Compare(rr) < 0, nil
	case ">>":
		return lr.Compare(rr) > 0, nil
	}
	return false, xqerr.New(xqerr.XPTY0004, "unknown node comparison operator %q", op)
}
