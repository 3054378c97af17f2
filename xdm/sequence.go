package xdm

// Sequence is an ordered list of Items. spec.md S4.5 "sequence
// flattening": nested sequences flatten one level, empty sequences
// vanish, and a length-1 sequence is indistinguishable from its sole
// item - Sequence itself is never nested (it does not implement Item),
// so flattening is a property of how the evaluator builds one, not of
// the type; Flatten below exists for building a Sequence out of mixed
// Item/Sequence producers (e.g. the comma operator, FLWOR return).
type Sequence []Item

// Flatten concatenates operands, expanding any Sequence-typed operand by
// one level and dropping empties, satisfying the idempotence law from
// spec.md S8: flatten(flatten(xs)) == flatten(xs).
func Flatten(parts ...interface{}) Sequence {
	out := make(Sequence, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case nil:
			continue
		case Sequence:
			out = append(out, v...)
		case Item:
			out = append(out, v)
		}
	}
	return out
}

// Singleton wraps a single item whose sequence is obviously non-empty,
// so call sites that produce exactly one value don't need to go through
// Flatten.
func Singleton(it Item) Sequence { return Sequence{it} }

// Empty is the empty sequence.
func Empty() Sequence { return Sequence{} }

// AtomizeAtomic is the identity on an already-atomic value, matching
// spec.md S8's "atomize(a) == a when a is atomic". Atomizing nodes,
// maps, arrays and function items requires tree/typed-value access that
// only the evaluator has, so that general case lives in
// eval.Atomize, not here.
func AtomizeAtomic(a Atomic) Atomic { return a }
