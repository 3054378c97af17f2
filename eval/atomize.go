package eval

import (
	"github.com/oss-xquery/xq31/xdm"
	"github.com/oss-xquery/xq31/xqenv"
	"github.com/oss-xquery/xq31/xqerr"
	"github.com/oss-xquery/xq31/xtree"
)

// Atomize atomizes a sequence item by item (see AtomizeItem): an atomic
// maps to itself, a node to its typed value as xs:untypedAtomic, and any
// other item fails with FOTY0013; this core has no array items to
// flatten. xdm.AtomizeAtomic only covers the
// already-atomic identity case (spec.md S8's idempotence law); the node
// case needs the tree reader, which only the evaluator carries, so the
// general rule lives here rather than in package xdm.
func Atomize(env *xqenv.Env, seq xdm.Sequence) (xdm.Sequence, *xqerr.Error) {
	out := make(xdm.Sequence, 0, len(seq))
	for _, it := range seq {
		a, err := AtomizeItem(env, it)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// AtomizeItem atomizes one item to exactly one atomic value.
func AtomizeItem(env *xqenv.Env, it xdm.Item) (xdm.Atomic, *xqerr.Error) {
	if a, ok := it.(xdm.Atomic); ok {
		return xdm.AtomizeAtomic(a), nil
	}
	if ref, ok := it.(xtree.Ref); ok {
		reader := Reader(env)
		return xdm.NewUntypedAtomic(reader.TypedValue(ref)), nil
	}
	return nil, xqerr.New(xqerr.FOTY0013, "cannot atomize %s", it.ItemKind())
}

// Reader returns the tree reader bound to env's tree arena. Every
// evaluator file that needs to read node content goes through this one
// constructor rather than building its own xtree.Reader, since a
// Reader is a thin, stateless wrapper over the Set - cheap to build
// fresh per call.
func Reader(env *xqenv.Env) *xtree.Reader {
	return xtree.NewReader(env.Trees())
}
