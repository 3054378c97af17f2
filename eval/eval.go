package eval

import (
	"fmt"

	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xdm"
	"github.com/oss-xquery/xq31/xqenv"
	"github.com/oss-xquery/xq31/xqerr"
	"github.com/oss-xquery/xq31/xtree"
)

// Eval is the single entry point spec.md S3/S4.5 describe: every
// ast.Expr node evaluates under (env, dynamic_context) to an Outcome.
// It is an exhaustive type switch over ast.Expr's closed sum (per
// ast's own doc comment), matching the teacher's xpath/machine.go
// instruction dispatch loop but walking a tree instead of a flat tape.
//
// Every dispatch logs a Debug trace of the node kind being entered,
// the same place the teacher's machine.go run loop calls
// ctx.addDebugInstrAndStack(instr.fnName) before executing each
// instruction - env.Log() is xqlog.Discard by default, so this costs
// nothing when no logger was supplied.
func Eval(env *xqenv.Env, dctx DynamicContext, expr ast.Expr) Outcome {
	env.Log().WithField("node", fmt.Sprintf("%T", expr)).Debug("eval dispatch")
	switch e := expr.(type) {
	case *ast.Literal:
		return evalLiteral(e)
	case *ast.VarRef:
		return evalVarRef(env, e)
	case *ast.ContextItemExpr:
		return evalContextItem(dctx)
	case *ast.FunctionCall:
		return CallFunction(env, dctx, e)
	case *ast.NamedFunctionRef:
		return Fail(xqerr.New(xqerr.XPST0017, "named function references are not supported by this core (%s#%d)", e.Name.Local, e.Arity))
	case *ast.DynamicCall:
		return Fail(xqerr.New(xqerr.XPTY0004, "dynamic function calls require a function item, which this core does not construct"))
	case *ast.InlineFunctionExpr:
		return Fail(xqerr.New(xqerr.XPTY0004, "inline function expressions require function items, which this core does not construct"))
	case *ast.SequenceExpr:
		return evalSequence(env, dctx, e)
	case *ast.IfExpr:
		return evalIf(env, dctx, e)
	case *ast.RangeExpr:
		return evalRange(env, dctx, e)
	case *ast.UnaryOp:
		return evalUnary(env, dctx, e)
	case *ast.ArithOp:
		return evalArithOp(env, dctx, e)
	case *ast.ValueCompareExpr:
		return evalValueCompare(env, dctx, e)
	case *ast.GeneralCompareExpr:
		return evalGeneralCompare(env, dctx, e)
	case *ast.NodeCompareExpr:
		return evalNodeCompare(env, dctx, e)
	case *ast.LogicalOp:
		return evalLogical(env, dctx, e)
	case *ast.StringConcatExpr:
		return evalStringConcat(env, dctx, e)
	case *ast.SetOp:
		return evalSetOp(env, dctx, e)
	case *ast.InstanceOfExpr:
		return evalInstanceOf(env, dctx, e)
	case *ast.TreatExpr:
		return evalTreat(env, dctx, e)
	case *ast.CastableExpr:
		return evalCastable(env, dctx, e)
	case *ast.CastExpr:
		return evalCast(env, dctx, e)
	case *ast.ArrowExpr:
		return evalArrow(env, dctx, e)
	case *ast.SimpleMapExpr:
		return evalSimpleMap(env, dctx, e)
	case *ast.QuantifiedExpr:
		return evalQuantified(env, dctx, e)
	case *ast.PathExpr:
		return EvalPath(env, dctx, e)
	case *ast.FilterExpr:
		return evalFilter(env, dctx, e)
	case *ast.FlworExpr:
		return EvalFlwor(env, e)
	case *ast.DirectElementConstructor:
		return EvalDirectElementConstructor(env, dctx, e)
	case *ast.DirectCommentConstructor:
		return evalDirectComment(env, e)
	case *ast.DirectPIConstructor:
		return evalDirectPI(env, dctx, e)
	case *ast.EnclosedExpr:
		return Eval(env, dctx, e.Body)
	case *ast.ComputedConstructor:
		return EvalComputedConstructor(env, dctx, e)
	case *preEvaluated:
		return Ok(e.value)
	default:
		return Fail(xqerr.New(xqerr.FOER0000, "internal error: unhandled expression node %T", expr))
	}
}

func evalLiteral(lit *ast.Literal) Outcome {
	switch lit.Kind {
	case ast.LiteralString:
		return One(xdm.NewString(lit.Text))
	case ast.LiteralInteger:
		a, err := castToInteger(xdm.NewUntypedAtomic(lit.Text), lit.Text)
		if err != nil {
			return Fail(err)
		}
		return One(a)
	case ast.LiteralDecimal:
		a, err := castToDecimal(xdm.NewUntypedAtomic(lit.Text), lit.Text)
		if err != nil {
			return Fail(err)
		}
		return One(a)
	case ast.LiteralDouble:
		f, err := parseDoubleLexical(lit.Text)
		if err != nil {
			return Fail(err)
		}
		return One(xdm.NewDouble(f))
	}
	return Fail(xqerr.New(xqerr.FOER0000, "internal error: unknown literal kind %d", lit.Kind))
}

func evalVarRef(env *xqenv.Env, ref *ast.VarRef) Outcome {
	name, err := qname.ResolveNoDefault(ref.Name, env.NS())
	if err != nil {
		return Fail(err)
	}
	val, ok := env.LookupVar(name)
	if !ok {
		return Fail(xqerr.New(xqerr.XPST0008, "undeclared variable $%s", name.String()))
	}
	return Ok(val)
}

func evalContextItem(dctx DynamicContext) Outcome {
	if !dctx.HasItem {
		return Fail(xqerr.New(xqerr.XPDY0002, "context item is absent"))
	}
	return One(dctx.Item)
}

func evalSequence(env *xqenv.Env, dctx DynamicContext, e *ast.SequenceExpr) Outcome {
	var parts []xdm.Sequence
	for _, item := range e.Items {
		res := Eval(env, dctx, item)
		if res.Failed() {
			return res
		}
		parts = append(parts, res.Value)
	}
	return Ok(xdm.Flatten(parts...))
}

func evalIf(env *xqenv.Env, dctx DynamicContext, e *ast.IfExpr) Outcome {
	cond := Eval(env, dctx, e.Cond)
	if cond.Failed() {
		return cond
	}
	v, err := EffectiveBooleanValue(cond.Value)
	if err != nil {
		return Fail(err)
	}
	if v {
		return Eval(env, dctx, e.Then)
	}
	return Eval(env, dctx, e.Else)
}

func evalRange(env *xqenv.Env, dctx DynamicContext, e *ast.RangeExpr) Outcome {
	minRes := Eval(env, dctx, e.Min)
	if minRes.Failed() {
		return minRes
	}
	maxRes := Eval(env, dctx, e.Max)
	if maxRes.Failed() {
		return maxRes
	}
	if len(minRes.Value) == 0 || len(maxRes.Value) == 0 {
		return Ok(xdm.Empty())
	}
	lo, err := toIndex(env, minRes.Value)
	if err != nil {
		return Fail(err)
	}
	hi, err := toIndex(env, maxRes.Value)
	if err != nil {
		return Fail(err)
	}
	if hi < lo {
		return Ok(xdm.Empty())
	}
	out := make(xdm.Sequence, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, xdm.NewInteger(int64(i)))
	}
	return Ok(out)
}

func evalUnary(env *xqenv.Env, dctx DynamicContext, e *ast.UnaryOp) Outcome {
	res := Eval(env, dctx, e.Operand)
	if res.Failed() {
		return res
	}
	a, ok, err := atomizeOneOrEmpty(env, res.Value)
	if err != nil {
		return Fail(err)
	}
	if !ok {
		return Ok(xdm.Empty())
	}
	out, err := Negate(a, e.Negative)
	if err != nil {
		return Fail(err)
	}
	return One(out)
}

func evalArithOp(env *xqenv.Env, dctx DynamicContext, e *ast.ArithOp) Outcome {
	lres := Eval(env, dctx, e.Left)
	if lres.Failed() {
		return lres
	}
	rres := Eval(env, dctx, e.Right)
	if rres.Failed() {
		return rres
	}
	if len(lres.Value) > 1 || len(rres.Value) > 1 {
		return Fail(xqerr.New(xqerr.XPTY0004, "arithmetic operand is a sequence of more than one item"))
	}
	la, lok, err := atomizeOneOrEmpty(env, lres.Value)
	if err != nil {
		return Fail(err)
	}
	ra, rok, err := atomizeOneOrEmpty(env, rres.Value)
	if err != nil {
		return Fail(err)
	}
	if !lok || !rok {
		return Ok(xdm.Empty())
	}
	seq, err := Arith(e.Op, la, ra)
	if err != nil {
		return Fail(err)
	}
	return Ok(seq)
}

func evalValueCompare(env *xqenv.Env, dctx DynamicContext, e *ast.ValueCompareExpr) Outcome {
	lres := Eval(env, dctx, e.Left)
	if lres.Failed() {
		return lres
	}
	rres := Eval(env, dctx, e.Right)
	if rres.Failed() {
		return rres
	}
	if len(lres.Value) > 1 || len(rres.Value) > 1 {
		return Fail(xqerr.New(xqerr.XPTY0004, "value comparison operand is a sequence of more than one item"))
	}
	la, lok, err := atomizeOneOrEmpty(env, lres.Value)
	if err != nil {
		return Fail(err)
	}
	ra, rok, err := atomizeOneOrEmpty(env, rres.Value)
	if err != nil {
		return Fail(err)
	}
	if !lok || !rok {
		return Ok(xdm.Empty())
	}
	v, err := ValueCompareOne(e.Op, la, ra)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewBoolean(v))
}

func evalGeneralCompare(env *xqenv.Env, dctx DynamicContext, e *ast.GeneralCompareExpr) Outcome {
	lres := Eval(env, dctx, e.Left)
	if lres.Failed() {
		return lres
	}
	rres := Eval(env, dctx, e.Right)
	if rres.Failed() {
		return rres
	}
	la, err := Atomize(env, lres.Value)
	if err != nil {
		return Fail(err)
	}
	ra, err := Atomize(env, rres.Value)
	if err != nil {
		return Fail(err)
	}
	v, err := GeneralCompare(e.Op, la, ra)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewBoolean(v))
}

func evalNodeCompare(env *xqenv.Env, dctx DynamicContext, e *ast.NodeCompareExpr) Outcome {
	lres := Eval(env, dctx, e.Left)
	if lres.Failed() {
		return lres
	}
	rres := Eval(env, dctx, e.Right)
	if rres.Failed() {
		return rres
	}
	if len(lres.Value) == 0 || len(rres.Value) == 0 {
		return Ok(xdm.Empty())
	}
	if len(lres.Value) != 1 || len(rres.Value) != 1 {
		return Fail(xqerr.New(xqerr.XPTY0004, "operand of %s is not a single node", e.Op))
	}
	v, err := NodeCompare(e.Op, lres.Value[0], rres.Value[0])
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewBoolean(v))
}

func evalLogical(env *xqenv.Env, dctx DynamicContext, e *ast.LogicalOp) Outcome {
	lres := Eval(env, dctx, e.Left)
	if lres.Failed() {
		return lres
	}
	lv, err := EffectiveBooleanValue(lres.Value)
	if err != nil {
		return Fail(err)
	}
	if e.Op == "and" && !lv {
		return One(xdm.NewBoolean(false))
	}
	if e.Op == "or" && lv {
		return One(xdm.NewBoolean(true))
	}
	rres := Eval(env, dctx, e.Right)
	if rres.Failed() {
		return rres
	}
	rv, err := EffectiveBooleanValue(rres.Value)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewBoolean(rv))
}

func evalStringConcat(env *xqenv.Env, dctx DynamicContext, e *ast.StringConcatExpr) Outcome {
	lres := Eval(env, dctx, e.Left)
	if lres.Failed() {
		return lres
	}
	rres := Eval(env, dctx, e.Right)
	if rres.Failed() {
		return rres
	}
	la, lok, err := atomizeOneOrEmpty(env, lres.Value)
	if err != nil {
		return Fail(err)
	}
	ra, rok, err := atomizeOneOrEmpty(env, rres.Value)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewString(asString(la, lok) + asString(ra, rok)))
}

func evalSetOp(env *xqenv.Env, dctx DynamicContext, e *ast.SetOp) Outcome {
	lres := Eval(env, dctx, e.Left)
	if lres.Failed() {
		return lres
	}
	rres := Eval(env, dctx, e.Right)
	if rres.Failed() {
		return rres
	}
	lrefs, err := asNodeRefs(lres.Value)
	if err != nil {
		return Fail(err)
	}
	rrefs, err := asNodeRefs(rres.Value)
	if err != nil {
		return Fail(err)
	}
	var out []xtree.Ref
	switch e.Op {
	case "union":
		out = append(out, lrefs...)
		out = append(out, rrefs...)
	case "intersect":
		for _, l := range lrefs {
			for _, r := range rrefs {
				if l.Equal(r) {
					out = append(out, l)
					break
				}
			}
		}
	case "except":
		for _, l := range lrefs {
			found := false
			for _, r := range rrefs {
				if l.Equal(r) {
					found = true
					break
				}
			}
			if !found {
				out = append(out, l)
			}
		}
	default:
		return Fail(xqerr.New(xqerr.FOER0000, "internal error: unknown set operator %q", e.Op))
	}
	sorted := xtree.SortRefs(out)
	seq := make(xdm.Sequence, len(sorted))
	for i, r := range sorted {
		seq[i] = r
	}
	return Ok(seq)
}

func asNodeRefs(seq xdm.Sequence) ([]xtree.Ref, *xqerr.Error) {
	out := make([]xtree.Ref, len(seq))
	for i, it := range seq {
		ref, ok := it.(xtree.Ref)
		if !ok {
			return nil, xqerr.New(xqerr.XPTY0004, "union/intersect/except operands must be node sequences")
		}
		out[i] = ref
	}
	return out, nil
}

func evalInstanceOf(env *xqenv.Env, dctx DynamicContext, e *ast.InstanceOfExpr) Outcome {
	res := Eval(env, dctx, e.Operand)
	if res.Failed() {
		return res
	}
	return One(xdm.NewBoolean(MatchesSequenceType(env, res.Value, e.Type)))
}

func evalTreat(env *xqenv.Env, dctx DynamicContext, e *ast.TreatExpr) Outcome {
	res := Eval(env, dctx, e.Operand)
	if res.Failed() {
		return res
	}
	if !MatchesSequenceType(env, res.Value, e.Type) {
		return Fail(xqerr.New(xqerr.XPDY0050, "treat as: sequence does not match the required type"))
	}
	return res
}

func evalCastable(env *xqenv.Env, dctx DynamicContext, e *ast.CastableExpr) Outcome {
	res := Eval(env, dctx, e.Operand)
	if res.Failed() {
		return res
	}
	a, ok, err := atomizeOneOrEmpty(env, res.Value)
	if err != nil {
		return Fail(err)
	}
	if !ok {
		return One(xdm.NewBoolean(e.Type.Optional))
	}
	_, castErr := CastSingleType(env, a, e.Type)
	return One(xdm.NewBoolean(castErr == nil))
}

func evalCast(env *xqenv.Env, dctx DynamicContext, e *ast.CastExpr) Outcome {
	res := Eval(env, dctx, e.Operand)
	if res.Failed() {
		return res
	}
	a, ok, err := atomizeOneOrEmpty(env, res.Value)
	if err != nil {
		return Fail(err)
	}
	if !ok {
		if e.Type.Optional {
			return Ok(xdm.Empty())
		}
		return Fail(xqerr.New(xqerr.XPTY0004, "cast of empty sequence requires an optional target type"))
	}
	out, err := CastSingleType(env, a, e.Type)
	if err != nil {
		return Fail(err)
	}
	return One(out)
}

func evalArrow(env *xqenv.Env, dctx DynamicContext, e *ast.ArrowExpr) Outcome {
	baseRes := Eval(env, dctx, e.Base)
	if baseRes.Failed() {
		return baseRes
	}
	if e.TargetName == nil {
		return Fail(xqerr.New(xqerr.XPTY0004, "arrow target must be a function name in this core"))
	}
	args := append([]ast.Expr{&preEvaluated{value: baseRes.Value}}, e.Args...)
	return CallFunction(env, dctx, &ast.FunctionCall{Name: *e.TargetName, Args: args})
}

// preEvaluated wraps an already-computed sequence as an ast.Expr so
// evalArrow can splice it into the target call's argument list without
// re-evaluating the base expression - arrow's "base becomes the first
// argument" rule (spec.md S4.5) applied against the same CallFunction
// path every ordinary call uses. The embedded, data-free
// ast.ContextItemExpr supplies ast.Expr's unexported marker method; Eval
// matches *preEvaluated by its own case and never evaluates the embedded
// value.
type preEvaluated struct {
	ast.ContextItemExpr
	value xdm.Sequence
}

func evalSimpleMap(env *xqenv.Env, dctx DynamicContext, e *ast.SimpleMapExpr) Outcome {
	lres := Eval(env, dctx, e.Left)
	if lres.Failed() {
		return lres
	}
	var out xdm.Sequence
	for i, it := range lres.Value {
		itemDctx := dctx.WithItem(it, i+1, len(lres.Value))
		res := Eval(env, itemDctx, e.Right)
		if res.Failed() {
			return res
		}
		out = append(out, res.Value...)
	}
	return Ok(out)
}

func evalQuantified(env *xqenv.Env, dctx DynamicContext, e *ast.QuantifiedExpr) Outcome {
	envs := []*xqenv.Env{env}
	for _, b := range e.Bindings {
		var next []*xqenv.Env
		name, err := qname.ResolveNoDefault(b.Var, env.NS())
		if err != nil {
			return Fail(err)
		}
		for _, cur := range envs {
			res := Eval(cur, dctx, b.In)
			if res.Failed() {
				return res
			}
			for _, it := range res.Value {
				next = append(next, cur.WithVar(name, xdm.Singleton(it)))
			}
		}
		envs = next
	}
	for _, cur := range envs {
		res := Eval(cur, dctx, e.Satisfies)
		if res.Failed() {
			return res
		}
		v, err := EffectiveBooleanValue(res.Value)
		if err != nil {
			return Fail(err)
		}
		if e.Every && !v {
			return One(xdm.NewBoolean(false))
		}
		if !e.Every && v {
			return One(xdm.NewBoolean(true))
		}
	}
	return One(xdm.NewBoolean(e.Every))
}

func evalFilter(env *xqenv.Env, dctx DynamicContext, e *ast.FilterExpr) Outcome {
	res := Eval(env, dctx, e.Base)
	if res.Failed() {
		return res
	}
	seq := res.Value
	for _, pred := range e.Predicates {
		filtered, err := applyPredicate(env, seq, pred)
		if err != nil {
			return Fail(err)
		}
		seq = filtered
	}
	return Ok(seq)
}

func evalDirectComment(env *xqenv.Env, c *ast.DirectCommentConstructor) Outcome {
	ref, err := withBuilder(env, func(b *xtree.Builder) (xtree.Ref, *xqerr.Error) {
		if cerr := b.Comment(c.Text); cerr != nil {
			return xtree.Ref{}, cerr
		}
		return xtree.NodeRef(b.Tree().ID(), b.LastChildDLN()), nil
	})
	if err != nil {
		return Fail(err)
	}
	return One(ref)
}

func evalDirectPI(env *xqenv.Env, dctx DynamicContext, c *ast.DirectPIConstructor) Outcome {
	ref, err := withBuilder(env, func(b *xtree.Builder) (xtree.Ref, *xqerr.Error) {
		if perr := b.PI(c.Target, c.Content); perr != nil {
			return xtree.Ref{}, perr
		}
		return xtree.NodeRef(b.Tree().ID(), b.LastChildDLN()), nil
	})
	if err != nil {
		return Fail(err)
	}
	return One(ref)
}
