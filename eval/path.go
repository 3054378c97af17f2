package eval

import (
	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xdm"
	"github.com/oss-xquery/xq31/xqenv"
	"github.com/oss-xquery/xq31/xqerr"
	"github.com/oss-xquery/xq31/xtree"
)

// axisStep implements spec.md S4.5's "Path and step evaluation": apply
// one axis+test to a single context node, producing the raw (unsorted,
// possibly duplicate) candidate set before predicates filter it.
func axisStep(env *xqenv.Env, ref xtree.Ref, axis ast.Axis) []xtree.Ref {
	r := Reader(env)
	switch axis {
	case ast.AxisSelf:
		return []xtree.Ref{ref}
	case ast.AxisChild:
		if ref.AttrIdx >= 0 {
			return nil
		}
		return r.Children(ref)
	case ast.AxisDescendant:
		return descendants(r, ref, false)
	case ast.AxisDescendantOrSelf:
		return descendants(r, ref, true)
	case ast.AxisAttribute:
		if ref.AttrIdx >= 0 {
			return nil
		}
		attrs := r.Attributes(ref)
		out := make([]xtree.Ref, len(attrs))
		for i := range attrs {
			out[i] = xtree.AttrRef(ref.TreeID, ref.DLN, i)
		}
		return out
	case ast.AxisParent:
		if p, ok := r.Parent(ref); ok {
			return []xtree.Ref{p}
		}
		return nil
	case ast.AxisAncestor:
		return ancestors(r, ref, false)
	case ast.AxisAncestorOrSelf:
		return ancestors(r, ref, true)
	case ast.AxisFollowingSibling:
		return siblings(r, ref, true)
	case ast.AxisPrecedingSibling:
		return siblings(r, ref, false)
	case ast.AxisFollowing:
		return followingOrPreceding(r, ref, true)
	case ast.AxisPreceding:
		return followingOrPreceding(r, ref, false)
	}
	return nil
}

func descendants(r *xtree.Reader, ref xtree.Ref, self bool) []xtree.Ref {
	if ref.AttrIdx >= 0 {
		return nil
	}
	var out []xtree.Ref
	if self {
		out = append(out, ref)
	}
	for _, c := range r.Children(ref) {
		out = append(out, descendants(r, c, true)...)
	}
	return out
}

func ancestors(r *xtree.Reader, ref xtree.Ref, self bool) []xtree.Ref {
	var out []xtree.Ref
	if self {
		out = append(out, ref)
	}
	cur := ref
	if cur.AttrIdx >= 0 {
		cur = xtree.NodeRef(cur.TreeID, cur.DLN)
		out = append(out, cur)
	}
	for {
		p, ok := r.Parent(cur)
		if !ok {
			break
		}
		out = append(out, p)
		cur = p
	}
	return out
}

func siblings(r *xtree.Reader, ref xtree.Ref, following bool) []xtree.Ref {
	if ref.AttrIdx >= 0 {
		return nil
	}
	p, ok := r.Parent(ref)
	if !ok {
		return nil
	}
	children := r.Children(p)
	var out []xtree.Ref
	seenSelf := false
	for _, c := range children {
		if c.Equal(ref) {
			seenSelf = true
			continue
		}
		if following && seenSelf {
			out = append(out, c)
		}
		if !following && !seenSelf {
			out = append(out, c)
		}
	}
	return out
}

// followingOrPreceding walks the whole tree in document order and keeps
// nodes strictly after/before ref, excluding ref's own descendants
// (following) or ancestors (preceding) per spec.md S4.5's axis
// definitions - attributes are never included in either axis.
func followingOrPreceding(r *xtree.Reader, ref xtree.Ref, following bool) []xtree.Ref {
	if ref.AttrIdx >= 0 {
		ref = xtree.NodeRef(ref.TreeID, ref.DLN)
	}
	root := r.Root(ref)
	all := descendants(r, root, true)
	anc := map[string]bool{}
	for _, a := range ancestors(r, ref, false) {
		anc[a.DLN.String()] = true
	}
	var out []xtree.Ref
	for _, n := range all {
		c := n.Compare(ref)
		if following {
			if c > 0 && !n.DLN.StartWith(ref.DLN) {
				out = append(out, n)
			}
		} else {
			if c < 0 && !anc[n.DLN.String()] {
				out = append(out, n)
			}
		}
	}
	return out
}

// MatchesNodeTest implements spec.md S4.5's node-test matching: name
// tests (with wildcard prefix/local), kind tests, and the axis-implied
// principal-node-kind restriction (an attribute axis only ever produces
// attribute refs, so the kind check there is vacuous).
func MatchesNodeTest(env *xqenv.Env, ref xtree.Ref, test ast.NodeTest) bool {
	switch test.Kind {
	case ast.TestName:
		return matchesNameTest(env, ref, test.Name)
	case ast.TestKind:
		return matchesKindTest(env, ref, test)
	case ast.TestAtomicType:
		return false
	}
	return false
}

func matchesNameTest(env *xqenv.Env, ref xtree.Ref, q qname.QName) bool {
	if ref.AttrIdx < 0 {
		r := Reader(env)
		if r.Kind(ref) != xtree.KindElement {
			return false
		}
	}
	name := Reader(env).Name(ref)
	if q.Prefix == "*" {
		return q.Local == "*" || name.Local == q.Local
	}
	if q.Local == "*" {
		target, err := qname.Resolve(qname.QName{Prefix: q.Prefix, Local: ""}, env.NS())
		if err != nil {
			return false
		}
		return name.URI == target.URI
	}
	target, err := qname.Resolve(q, env.NS())
	if err != nil {
		return false
	}
	return name.Equal(target)
}

// EvalStep applies one (axis, test, predicates) Step to a single input
// node, returning the matching node set with predicates already applied
// (each predicate evaluated with the candidate's axis-relative position
// and size, per spec.md S4.5's "predicate truth test").
func EvalStep(env *xqenv.Env, ref xtree.Ref, step ast.Step) (xdm.Sequence, *xqerr.Error) {
	raw := axisStep(env, ref, step.Axis)
	matched := make([]xtree.Ref, 0, len(raw))
	for _, c := range raw {
		if MatchesNodeTest(env, c, step.Test) {
			matched = append(matched, c)
		}
	}
	if !step.Axis.Forward() {
		// Reverse axes number their candidates nearest-first.
		matched = xtree.SortRefs(matched)
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	seq := make(xdm.Sequence, len(matched))
	for i, m := range matched {
		seq[i] = m
	}
	for _, pred := range step.Predicates {
		filtered, err := applyPredicate(env, seq, pred)
		if err != nil {
			return nil, err
		}
		seq = filtered
	}
	return seq, nil
}

// applyPredicate implements spec.md S4.5's predicate semantics: a
// numeric predicate result selects by position, any other result uses
// effective boolean value.
func applyPredicate(env *xqenv.Env, seq xdm.Sequence, pred ast.Expr) (xdm.Sequence, *xqerr.Error) {
	out := make(xdm.Sequence, 0, len(seq))
	last := len(seq)
	for i, it := range seq {
		dctx := DynamicContext{}.WithItem(it, i+1, last)
		res := Eval(env, dctx, pred)
		if res.Failed() {
			return nil, res.Err
		}
		keep, err := predicateKeeps(res.Value, i+1)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, it)
		}
	}
	return out, nil
}

func predicateKeeps(res xdm.Sequence, pos int) (bool, *xqerr.Error) {
	if len(res) == 1 {
		if a, ok := res[0].(xdm.Atomic); ok {
			if xdm.NumericRank(a) >= 0 {
				ok2, err := xdm.ValueCompare("eq", a, xdm.NewInteger(int64(pos)))
				return ok2, err
			}
		}
	}
	return EffectiveBooleanValue(res)
}

// EvalPath implements spec.md S4.5's full path expression: resolve the
// initial node set, thread each step's output into the next step's
// input, and sort+dedup into document order after the final step (per
// spec.md S4.5 "sorted and de-duplicated in document order").
func EvalPath(env *xqenv.Env, dctx DynamicContext, p *ast.PathExpr) Outcome {
	var current xdm.Sequence
	switch p.Initial {
	case ast.InitialRoot, ast.InitialRootDescendantOrSelf:
		if !dctx.HasItem {
			return Fail(xqerr.New(xqerr.XPDY0002, "context item required to resolve the document root"))
		}
		ref, ok := dctx.Item.(xtree.Ref)
		if !ok {
			return Fail(xqerr.New(xqerr.XPTY0004, "context item is not a node"))
		}
		root := Reader(env).Root(ref)
		current = xdm.Singleton(root)
	case ast.InitialContext:
		if p.StartExpr != nil {
			res := Eval(env, dctx, p.StartExpr)
			if res.Failed() {
				return res
			}
			current = res.Value
		} else {
			if !dctx.HasItem {
				return Fail(xqerr.New(xqerr.XPDY0002, "context item is absent"))
			}
			current = xdm.Singleton(dctx.Item)
		}
	}

	for _, step := range p.Steps {
		var next []xtree.Ref
		for _, it := range current {
			ref, ok := it.(xtree.Ref)
			if !ok {
				return Fail(xqerr.New(xqerr.XPTY0019, "path step applied to a non-node item"))
			}
			out, err := EvalStep(env, ref, step)
			if err != nil {
				return Fail(err)
			}
			for _, o := range out {
				next = append(next, o.(xtree.Ref))
			}
		}
		next = xtree.SortRefs(next)
		current = make(xdm.Sequence, len(next))
		for i, n := range next {
			current[i] = n
		}
	}
	return Ok(current)
}
