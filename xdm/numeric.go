package xdm

import (
	"math"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/oss-xquery/xq31/xqerr"
)

// Integer is xs:integer, arbitrary precision per spec.md S3. Grounded on
// the pack's chosen arbitrary-precision number library: math/big is the
// one deliberate stdlib choice in the domain stack (see DESIGN.md) since
// no ecosystem arbitrary-precision INTEGER type appears anywhere in the
// retrieval pack - shopspring/decimal (used below for xs:decimal) is
// fixed-point, not a substitute.
type Integer struct{ V *big.Int }

func NewInteger(v int64) Integer       { return Integer{V: big.NewInt(v)} }
func NewIntegerBig(v *big.Int) Integer { return Integer{V: new(big.Int).Set(v)} }

func (Integer) ItemKind() Kind   { return KindInteger }
func (Integer) atomicMarker()    {}
func (i Integer) Str() string    { return i.V.String() }
func (i Integer) Decimal() Decimal {
	return Decimal{V: decimal.NewFromBigInt(i.V, 0)}
}
func (i Integer) Float() Float   { f, _ := strconv.ParseFloat(i.V.String(), 32); return Float{V: float32(f)} }
func (i Integer) Double() Double { f, _, _ := big.ParseFloat(i.V.String(), 10, 64, big.ToNearestEven); v, _ := f.Float64(); return Double{V: v} }

// Decimal is xs:decimal, grounded on shopspring/decimal - the domain
// dependency from the retrieval pack's companion query engine
// (dolthub-go-mysql-server), carried into the core XDM numeric types per
// SPEC_FULL.md's "wire it or delete it" rule.
type Decimal struct{ V decimal.Decimal }

func NewDecimal(v decimal.Decimal) Decimal { return Decimal{V: v} }

func ParseDecimal(s string) (Decimal, *xqerr.Error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, xqerr.New(xqerr.FOCA0002, "invalid xs:decimal lexical form %q", s)
	}
	return Decimal{V: d}, nil
}

func (Decimal) ItemKind() Kind { return KindDecimal }
func (Decimal) atomicMarker()  {}
func (d Decimal) Str() string  { return d.V.String() }
func (d Decimal) Float() Float {
	f, _ := d.V.Float64()
	return Float{V: float32(f)}
}
func (d Decimal) Double() Double { f, _ := d.V.Float64(); return Double{V: f} }

// Float is xs:float (IEEE-754 single precision).
type Float struct{ V float32 }

func NewFloat(v float32) Float { return Float{V: v} }

func (Float) ItemKind() Kind { return KindFloat }
func (Float) atomicMarker()  {}
func (f Float) Str() string  { return formatIEEE(float64(f.V), 32) }
func (f Float) Double() Double { return Double{V: float64(f.V)} }

// Double is xs:double (IEEE-754 double precision). NaN, +INF and -INF
// are first-class lexical forms per spec.md S3.
type Double struct{ V float64 }

func NewDouble(v float64) Double { return Double{V: v} }

func (Double) ItemKind() Kind { return KindDouble }
func (Double) atomicMarker()  {}
func (d Double) Str() string  { return formatIEEE(d.V, 64) }

// formatIEEE renders a float using XDM's lexical rules: NaN -> "NaN",
// +INF -> "INF", -INF -> "-INF", per spec.md S6.
func formatIEEE(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "INF"
	case math.IsInf(v, -1):
		return "-INF"
	}
	return strconv.FormatFloat(v, 'g', -1, bitSize)
}

// NumericRank gives the position of an atomic's numeric type in the
// promotion lattice Integer < Decimal < Float < Double from spec.md S3,
// or -1 if it is not a numeric type at all.
func NumericRank(it Item) int {
	switch it.(type) {
	case Integer:
		return 0
	case Decimal:
		return 1
	case Float:
		return 2
	case Double:
		return 3
	}
	return -1
}

// PromoteNumericPair promotes a and b to a common numeric type: the
// stronger of the two per the lattice, per spec.md S3 "numeric promotion
// is commutative... uses the stronger type max(T1, T2)". An untypedAtomic
// operand must already have been promoted to Double by the caller
// (spec.md S4.5 "untypedAtomic is promoted to double") before reaching
// here.
func PromoteNumericPair(a, b Item) (Item, Item, *xqerr.Error) {
	ra, rb := NumericRank(a), NumericRank(b)
	if ra < 0 || rb < 0 {
		return nil, nil, xqerr.New(xqerr.XPTY0004, "arithmetic requires numeric operands, got %s and %s", a.ItemKind(), b.ItemKind())
	}
	target := ra
	if rb > target {
		target = rb
	}
	pa, err := promoteTo(a, target)
	if err != nil {
		return nil, nil, err
	}
	pb, err := promoteTo(b, target)
	if err != nil {
		return nil, nil, err
	}
	return pa, pb, nil
}

func promoteTo(it Item, rank int) (Item, *xqerr.Error) {
	cur := NumericRank(it)
	for cur < rank {
		switch v := it.(type) {
		case Integer:
			it = v.Decimal()
		case Decimal:
			it = v.Float()
		case Float:
			it = v.Double()
		default:
			return nil, xqerr.New(xqerr.XPTY0004, "cannot promote %s", it.ItemKind())
		}
		cur++
	}
	return it, nil
}

// Add, Sub, Mul, Div, IDiv and Mod implement spec.md S4.5's arithmetic
// semantics: operands are first promoted to a common type by the caller
// (PromoteNumericPair), then dispatched here per concrete type.

func Add(a, b Item) (Item, *xqerr.Error) { return numericOp(a, b, "+") }
func Sub(a, b Item) (Item, *xqerr.Error) { return numericOp(a, b, "-") }
func Mul(a, b Item) (Item, *xqerr.Error) { return numericOp(a, b, "*") }
func Div(a, b Item) (Item, *xqerr.Error) { return numericOp(a, b, "div") }
func IDiv(a, b Item) (Item, *xqerr.Error) { return numericOp(a, b, "idiv") }
func Mod(a, b Item) (Item, *xqerr.Error) { return numericOp(a, b, "mod") }

func numericOp(a, b Item, op string) (Item, *xqerr.Error) {
	switch av := a.(type) {
	case Integer:
		bv := b.(Integer)
		return integerOp(av, bv, op)
	case Decimal:
		bv := b.(Decimal)
		return decimalOp(av, bv, op)
	case Float:
		bv := b.(Float)
		r, e := doubleOp(Double{V: float64(av.V)}, Double{V: float64(bv.V)}, op)
		if e != nil {
			return nil, e
		}
		if rd, ok := r.(Double); ok {
			return Float{V: float32(rd.V)}, nil
		}
		return r, nil
	case Double:
		bv := b.(Double)
		return doubleOp(av, bv, op)
	}
	return nil, xqerr.New(xqerr.XPTY0004, "unsupported arithmetic operand %s", a.ItemKind())
}

func integerOp(a, b Integer, op string) (Item, *xqerr.Error) {
	switch op {
	case "+":
		return NewIntegerBig(new(big.Int).Add(a.V, b.V)), nil
	case "-":
		return NewIntegerBig(new(big.Int).Sub(a.V, b.V)), nil
	case "*":
		return NewIntegerBig(new(big.Int).Mul(a.V, b.V)), nil
	case "div":
		if b.V.Sign() == 0 {
			return nil, xqerr.New(xqerr.FOAR0001, "xs:integer division by zero")
		}
		return Decimal{V: decimal.NewFromBigInt(a.V, 0).DivRound(decimal.NewFromBigInt(b.V, 0), 18)}, nil
	case "idiv":
		if b.V.Sign() == 0 {
			return nil, xqerr.New(xqerr.FOAR0001, "xs:integer idiv by zero")
		}
		// idiv rounds toward zero; big.Int.Quo already truncates toward zero.
		return NewIntegerBig(new(big.Int).Quo(a.V, b.V)), nil
	case "mod":
		if b.V.Sign() == 0 {
			return nil, xqerr.New(xqerr.FOAR0001, "xs:integer mod by zero")
		}
		return NewIntegerBig(new(big.Int).Rem(a.V, b.V)), nil
	}
	return nil, xqerr.New(xqerr.XPTY0004, "unknown integer op %q", op)
}

func decimalOp(a, b Decimal, op string) (Item, *xqerr.Error) {
	switch op {
	case "+":
		return Decimal{V: a.V.Add(b.V)}, nil
	case "-":
		return Decimal{V: a.V.Sub(b.V)}, nil
	case "*":
		return Decimal{V: a.V.Mul(b.V)}, nil
	case "div":
		if b.V.IsZero() {
			return nil, xqerr.New(xqerr.FOAR0001, "xs:decimal division by zero")
		}
		return Decimal{V: a.V.DivRound(b.V, 18)}, nil
	case "idiv":
		if b.V.IsZero() {
			return nil, xqerr.New(xqerr.FOAR0001, "xs:decimal idiv by zero")
		}
		q := a.V.Div(b.V).Truncate(0)
		return NewIntegerBig(q.BigInt()), nil
	case "mod":
		if b.V.IsZero() {
			return nil, xqerr.New(xqerr.FOAR0001, "xs:decimal mod by zero")
		}
		q := a.V.Div(b.V).Truncate(0)
		return Decimal{V: a.V.Sub(q.Mul(b.V))}, nil
	}
	return nil, xqerr.New(xqerr.XPTY0004, "unknown decimal op %q", op)
}

// doubleOp implements float/double arithmetic per IEEE-754, matching
// spec.md S4.5 "float/double -> IEEE (+-Infinity or NaN)" for +, -, *,
// div and mod; only idiv raises FOAR0001, for a zero divisor, a NaN
// operand or an infinite dividend.
func doubleOp(a, b Double, op string) (Item, *xqerr.Error) {
	switch op {
	case "+":
		return Double{V: a.V + b.V}, nil
	case "-":
		return Double{V: a.V - b.V}, nil
	case "*":
		return Double{V: a.V * b.V}, nil
	case "div":
		return Double{V: a.V / b.V}, nil
	case "idiv":
		if b.V == 0 || math.IsNaN(a.V) || math.IsNaN(b.V) || math.IsInf(a.V, 0) {
			return nil, xqerr.New(xqerr.FOAR0001, "xs:double idiv by zero or non-finite dividend")
		}
		q := math.Trunc(a.V / b.V)
		bi, _ := big.NewFloat(q).Int(nil)
		return NewIntegerBig(bi), nil
	case "mod":
		return Double{V: math.Mod(a.V, b.V)}, nil
	}
	return nil, xqerr.New(xqerr.XPTY0004, "unknown double op %q", op)
}
