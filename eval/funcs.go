package eval

import (
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/funcreg"
	"github.com/oss-xquery/xq31/namespace"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xdm"
	"github.com/oss-xquery/xq31/xqenv"
	"github.com/oss-xquery/xq31/xqerr"
	"github.com/oss-xquery/xq31/xtree"
)

// builtins is the signature table spec.md S4.6 calls for, seeded once at
// package init and shared by every evaluation (built-ins never vary per
// environment; only user-declared functions do, and those live on
// xqenv.Env itself). Grounded on the teacher's package-level symbol
// table in xpath/symbol.go.
var builtins = funcreg.Builtins()

// builtinImpl is one built-in function body: arguments arrive
// unevaluated (so a function like fn:boolean, which only ever needs its
// operand's effective boolean value, never atomizes more than it has
// to) alongside the dynamic context a context-dependent zero-arg form
// (fn:string(), fn:node-name()) needs to default to the context item.
type builtinImpl func(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome

// builtinImpls maps every signature funcreg.Builtins registers to its
// body. A signature present in the registry but absent here is a
// programming error that CallFunction reports as XPST0017 ("registered
// but has no implementation"), not a silent no-op.
var builtinImpls = map[funcreg.Signature]builtinImpl{}

func reg(uri, local string, arity int, fn builtinImpl) {
	builtinImpls[funcreg.Signature{Name: qname.Resolved{URI: uri, Local: local}, Arity: arity}] = fn
}

func init() {
	fn := namespace.FN
	mth := namespace.MATH
	mp := namespace.MAP
	ar := namespace.ARRAY

	reg(fn, "empty", 1, biEmpty)
	reg(fn, "exists", 1, biExists)
	reg(fn, "count", 1, biCount)
	reg(fn, "boolean", 1, biBoolean)
	reg(fn, "not", 1, biNot)
	reg(fn, "true", 0, func(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
		return One(xdm.NewBoolean(true))
	})
	reg(fn, "false", 0, func(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
		return One(xdm.NewBoolean(false))
	})
	reg(fn, "string", 0, biStringCtx)
	reg(fn, "string", 1, biString)
	reg(fn, "data", 1, biData)
	reg(fn, "head", 1, biHead)
	reg(fn, "tail", 1, biTail)
	reg(fn, "reverse", 1, biReverse)
	reg(fn, "distinct-values", 1, biDistinctValues)
	reg(fn, "insert-before", 3, biInsertBefore)
	reg(fn, "remove", 2, biRemove)
	reg(fn, "subsequence", 2, biSubsequence)
	reg(fn, "subsequence", 3, biSubsequence)
	reg(fn, "index-of", 2, biIndexOf)
	reg(fn, "string-length", 0, biStringLengthCtx)
	reg(fn, "string-length", 1, biStringLength)
	reg(fn, "normalize-space", 0, biNormalizeSpaceCtx)
	reg(fn, "normalize-space", 1, biNormalizeSpace)
	reg(fn, "upper-case", 1, unaryString(strings.ToUpper))
	reg(fn, "lower-case", 1, unaryString(strings.ToLower))
	reg(fn, "starts-with", 2, biStartsWith)
	reg(fn, "ends-with", 2, biEndsWith)
	reg(fn, "contains", 2, biContains)
	reg(fn, "substring", 2, biSubstring)
	reg(fn, "substring", 3, biSubstring)
	reg(fn, "substring-before", 2, biSubstringBefore)
	reg(fn, "substring-after", 2, biSubstringAfter)
	reg(fn, "string-join", 1, biStringJoin)
	reg(fn, "string-join", 2, biStringJoin)
	reg(fn, "concat", 2, biConcat)
	reg(fn, "concat", 3, biConcat)
	reg(fn, "concat", 4, biConcat)
	reg(fn, "concat", 5, biConcat)
	reg(fn, "abs", 1, biAbs)
	reg(fn, "ceiling", 1, biCeiling)
	reg(fn, "floor", 1, biFloor)
	reg(fn, "round", 1, biRound)
	reg(fn, "number", 0, biNumberCtx)
	reg(fn, "number", 1, biNumber)
	reg(fn, "sum", 1, biSum)
	reg(fn, "sum", 2, biSum)
	reg(fn, "avg", 1, biAvg)
	reg(fn, "min", 1, biMin)
	reg(fn, "max", 1, biMax)
	reg(fn, "error", 0, biError)
	reg(fn, "error", 1, biError)
	reg(fn, "error", 2, biError)
	reg(fn, "error", 3, biError)
	reg(fn, "node-name", 0, biNodeNameCtx)
	reg(fn, "node-name", 1, biNodeName)
	reg(fn, "name", 0, biNameCtx)
	reg(fn, "name", 1, biName)
	reg(fn, "local-name", 0, biLocalNameCtx)
	reg(fn, "local-name", 1, biLocalName)
	reg(fn, "namespace-uri", 0, biNamespaceURICtx)
	reg(fn, "namespace-uri", 1, biNamespaceURI)
	reg(fn, "root", 0, biRootCtx)
	reg(fn, "root", 1, biRoot)
	reg(fn, "deep-equal", 2, biDeepEqual)

	notImpl := func(name string) builtinImpl {
		return func(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
			return Fail(xqerr.New(xqerr.FOER0000, "%s is not implemented by this core (spec.md S9 open question: treated as external)", name))
		}
	}
	reg(fn, "normalize-unicode", 1, notImpl("fn:normalize-unicode"))
	reg(fn, "normalize-unicode", 2, notImpl("fn:normalize-unicode"))
	reg(fn, "matches", 2, notImpl("fn:matches"))
	reg(fn, "matches", 3, notImpl("fn:matches"))
	reg(fn, "replace", 3, notImpl("fn:replace"))
	reg(fn, "replace", 4, notImpl("fn:replace"))
	reg(fn, "tokenize", 1, notImpl("fn:tokenize"))
	reg(fn, "tokenize", 2, notImpl("fn:tokenize"))
	reg(fn, "analyze-string", 2, notImpl("fn:analyze-string"))

	reg(mth, "pi", 0, func(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
		return One(xdm.NewDouble(math.Pi))
	})
	reg(mth, "exp", 1, unaryDouble(math.Exp))
	reg(mth, "log", 1, unaryDouble(math.Log))
	reg(mth, "log10", 1, unaryDouble(math.Log10))
	reg(mth, "sqrt", 1, unaryDouble(math.Sqrt))
	reg(mth, "sin", 1, unaryDouble(math.Sin))
	reg(mth, "cos", 1, unaryDouble(math.Cos))
	reg(mth, "tan", 1, unaryDouble(math.Tan))
	reg(mth, "pow", 2, biMathPow)

	mapUnsupported := notImpl
	reg(mp, "merge", 1, mapUnsupported("map:merge"))
	reg(mp, "get", 2, mapUnsupported("map:get"))
	reg(mp, "contains", 2, mapUnsupported("map:contains"))
	reg(mp, "size", 1, mapUnsupported("map:size"))
	reg(ar, "size", 1, mapUnsupported("array:size"))
	reg(ar, "get", 2, mapUnsupported("array:get"))
	reg(ar, "join", 1, mapUnsupported("array:join"))
}

// CallFunction implements spec.md S4.5's "Variables and functions" call
// resolution: user-declared functions (from the prolog, via
// xqenv.Env.LookupFunction) are tried before the built-in table, and
// arity must match exactly either way.
func CallFunction(env *xqenv.Env, dctx DynamicContext, call *ast.FunctionCall) Outcome {
	name, err := qname.ResolveFunction(call.Name, env.NS())
	if err != nil {
		return Fail(err)
	}
	arity := len(call.Args)
	if decl, ok := env.LookupFunction(name, arity); ok {
		return callUserFunction(env, dctx, decl, call.Args)
	}
	if !builtins.Has(name, arity) {
		return Fail(xqerr.New(xqerr.XPST0017, "no function found matching %s#%d", name.String(), arity))
	}
	impl, ok := builtinImpls[funcreg.Signature{Name: name, Arity: arity}]
	if !ok {
		return Fail(xqerr.New(xqerr.XPST0017, "%s#%d is registered but has no implementation", name.String(), arity))
	}
	return impl(env, dctx, call.Args)
}

// callUserFunction implements the prolog-declared-function call path:
// each argument evaluates in the CALLER's environment and dynamic
// context (arguments are ordinary expressions, not deferred), then the
// body runs in the caller's environment extended with the parameter
// bindings (see DESIGN.md's user function call scoping note) under a
// fresh empty dynamic context, since a function body never inherits the
// caller's context item (spec.md S4.5 "user-declared functions are
// stored as (parameters, sequence-type, body)").
func callUserFunction(env *xqenv.Env, dctx DynamicContext, decl *ast.FunctionDecl, argExprs []ast.Expr) Outcome {
	fnEnv := env
	for i, param := range decl.Params {
		res := Eval(env, dctx, argExprs[i])
		if res.Failed() {
			return res
		}
		pname, err := qname.ResolveNoDefault(param.Name, env.NS())
		if err != nil {
			return Fail(err)
		}
		fnEnv = fnEnv.WithVar(pname, res.Value)
	}
	return Eval(fnEnv, RootContext(), decl.Body)
}

// --- argument helpers ---

func evalArg(env *xqenv.Env, dctx DynamicContext, args []ast.Expr, i int) (xdm.Sequence, *xqerr.Error) {
	res := Eval(env, dctx, args[i])
	if res.Failed() {
		return nil, res.Err
	}
	return res.Value, nil
}

// contextOrArg evaluates args[0] if present, else falls back to the
// dynamic context item - the pattern every zero/one-arg "or context
// item" built-in (fn:string, fn:string-length, fn:node-name, ...) shares.
func contextOrArg(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) (xdm.Sequence, *xqerr.Error) {
	if len(args) == 0 {
		if !dctx.HasItem {
			return nil, xqerr.New(xqerr.XPDY0002, "context item is absent")
		}
		return xdm.Singleton(dctx.Item), nil
	}
	return evalArg(env, dctx, args, 0)
}

func atomizeOneOrEmpty(env *xqenv.Env, seq xdm.Sequence) (xdm.Atomic, bool, *xqerr.Error) {
	if len(seq) == 0 {
		return nil, false, nil
	}
	a, err := AtomizeItem(env, seq[0])
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

func asString(a xdm.Atomic, ok bool) string {
	if !ok {
		return ""
	}
	return a.Str()
}

// --- fn: boolean/sequence builtins ---

func biEmpty(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewBoolean(len(seq) == 0))
}

func biExists(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewBoolean(len(seq) != 0))
}

func biCount(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewInteger(int64(len(seq))))
}

func biBoolean(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	v, err := EffectiveBooleanValue(seq)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewBoolean(v))
}

func biNot(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	v, err := EffectiveBooleanValue(seq)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewBoolean(!v))
}

func biStringCtx(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return stringOf(env, dctx, nil)
}

func biString(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return stringOf(env, dctx, args)
}

func stringOf(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := contextOrArg(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	a, ok, err := atomizeOneOrEmpty(env, seq)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewString(asString(a, ok)))
}

func biData(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	atoms, err := Atomize(env, seq)
	if err != nil {
		return Fail(err)
	}
	return Ok(atoms)
}

func biHead(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	if len(seq) == 0 {
		return Ok(xdm.Empty())
	}
	return One(seq[0])
}

func biTail(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	if len(seq) <= 1 {
		return Ok(xdm.Empty())
	}
	return Ok(append(xdm.Sequence{}, seq[1:]...))
}

func biReverse(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	out := make(xdm.Sequence, len(seq))
	for i, it := range seq {
		out[len(seq)-1-i] = it
	}
	return Ok(out)
}

func biDistinctValues(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	atoms, err := Atomize(env, seq)
	if err != nil {
		return Fail(err)
	}
	var out xdm.Sequence
	for _, a := range atoms {
		dup := false
		for _, o := range out {
			if sameValue(a, o.(xdm.Atomic)) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, a)
		}
	}
	return Ok(out)
}

func biInsertBefore(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	posSeq, err := evalArg(env, dctx, args, 1)
	if err != nil {
		return Fail(err)
	}
	pos, err := toIndex(env, posSeq)
	if err != nil {
		return Fail(err)
	}
	inserts, err := evalArg(env, dctx, args, 2)
	if err != nil {
		return Fail(err)
	}
	if pos < 1 {
		pos = 1
	}
	if pos > len(seq)+1 {
		pos = len(seq) + 1
	}
	out := make(xdm.Sequence, 0, len(seq)+len(inserts))
	out = append(out, seq[:pos-1]...)
	out = append(out, inserts...)
	out = append(out, seq[pos-1:]...)
	return Ok(out)
}

func biRemove(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	posSeq, err := evalArg(env, dctx, args, 1)
	if err != nil {
		return Fail(err)
	}
	pos, err := toIndex(env, posSeq)
	if err != nil {
		return Fail(err)
	}
	if pos < 1 || pos > len(seq) {
		return Ok(append(xdm.Sequence{}, seq...))
	}
	out := make(xdm.Sequence, 0, len(seq)-1)
	out = append(out, seq[:pos-1]...)
	out = append(out, seq[pos:]...)
	return Ok(out)
}

func biSubsequence(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	startSeq, err := evalArg(env, dctx, args, 1)
	if err != nil {
		return Fail(err)
	}
	startF, err := toDouble(env, startSeq)
	if err != nil {
		return Fail(err)
	}
	start := int(math.Round(startF))
	length := len(seq) - start + 1
	if len(args) == 3 {
		lenSeq, err := evalArg(env, dctx, args, 2)
		if err != nil {
			return Fail(err)
		}
		lenF, err := toDouble(env, lenSeq)
		if err != nil {
			return Fail(err)
		}
		length = int(math.Round(lenF))
	}
	lo := start
	if lo < 1 {
		lo = 1
	}
	hi := start + length
	if hi > len(seq)+1 {
		hi = len(seq) + 1
	}
	if hi <= lo {
		return Ok(xdm.Empty())
	}
	return Ok(append(xdm.Sequence{}, seq[lo-1:hi-1]...))
}

func biIndexOf(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	searchSeq, err := evalArg(env, dctx, args, 1)
	if err != nil {
		return Fail(err)
	}
	search, ok, err := atomizeOneOrEmpty(env, searchSeq)
	if err != nil {
		return Fail(err)
	}
	if !ok {
		return Ok(xdm.Empty())
	}
	var out xdm.Sequence
	for i, it := range seq {
		a, err := AtomizeItem(env, it)
		if err != nil {
			return Fail(err)
		}
		if sameValue(a, search) {
			out = append(out, xdm.NewInteger(int64(i+1)))
		}
	}
	return Ok(out)
}

// --- string builtins ---

func biStringLengthCtx(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return stringLength(env, dctx, nil)
}

func biStringLength(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return stringLength(env, dctx, args)
}

func stringLength(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := contextOrArg(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	a, ok, err := atomizeOneOrEmpty(env, seq)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewInteger(int64(len([]rune(asString(a, ok))))))
}

func biNormalizeSpaceCtx(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return normalizeSpace(env, dctx, nil)
}

func biNormalizeSpace(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return normalizeSpace(env, dctx, args)
}

func normalizeSpace(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := contextOrArg(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	a, ok, err := atomizeOneOrEmpty(env, seq)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewString(strings.Join(strings.Fields(asString(a, ok)), " ")))
}

func unaryString(f func(string) string) builtinImpl {
	return func(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
		seq, err := evalArg(env, dctx, args, 0)
		if err != nil {
			return Fail(err)
		}
		a, ok, err := atomizeOneOrEmpty(env, seq)
		if err != nil {
			return Fail(err)
		}
		return One(xdm.NewString(f(asString(a, ok))))
	}
}

func twoStringArgs(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) (string, string, *xqerr.Error) {
	s1, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return "", "", err
	}
	s2, err := evalArg(env, dctx, args, 1)
	if err != nil {
		return "", "", err
	}
	a1, ok1, err := atomizeOneOrEmpty(env, s1)
	if err != nil {
		return "", "", err
	}
	a2, ok2, err := atomizeOneOrEmpty(env, s2)
	if err != nil {
		return "", "", err
	}
	return asString(a1, ok1), asString(a2, ok2), nil
}

func biStartsWith(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	a, b, err := twoStringArgs(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewBoolean(strings.HasPrefix(a, b)))
}

func biEndsWith(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	a, b, err := twoStringArgs(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewBoolean(strings.HasSuffix(a, b)))
}

func biContains(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	a, b, err := twoStringArgs(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewBoolean(strings.Contains(a, b)))
}

func biSubstringBefore(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	a, b, err := twoStringArgs(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	i := strings.Index(a, b)
	if i < 0 || b == "" {
		return One(xdm.NewString(""))
	}
	return One(xdm.NewString(a[:i]))
}

func biSubstringAfter(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	a, b, err := twoStringArgs(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	if b == "" {
		return One(xdm.NewString(a))
	}
	i := strings.Index(a, b)
	if i < 0 {
		return One(xdm.NewString(""))
	}
	return One(xdm.NewString(a[i+len(b):]))
}

// biSubstring implements fn:substring's 1-based, round-half-to-even-free
// (plain round) position arithmetic over runes, per F&O's definition in
// terms of codepoint positions rather than bytes.
func biSubstring(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	sSeq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	a, ok, err := atomizeOneOrEmpty(env, sSeq)
	if err != nil {
		return Fail(err)
	}
	s := []rune(asString(a, ok))
	startSeq, err := evalArg(env, dctx, args, 1)
	if err != nil {
		return Fail(err)
	}
	startF, err := toDouble(env, startSeq)
	if err != nil {
		return Fail(err)
	}
	start := int(math.Round(startF))
	length := len(s) - start + 1
	if len(args) == 3 {
		lenSeq, err := evalArg(env, dctx, args, 2)
		if err != nil {
			return Fail(err)
		}
		lenF, err := toDouble(env, lenSeq)
		if err != nil {
			return Fail(err)
		}
		length = int(math.Round(lenF))
	}
	lo := start
	if lo < 1 {
		lo = 1
	}
	hi := start + length
	if hi > len(s)+1 {
		hi = len(s) + 1
	}
	if hi <= lo {
		return One(xdm.NewString(""))
	}
	return One(xdm.NewString(string(s[lo-1 : hi-1])))
}

func biStringJoin(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	sep := ""
	if len(args) == 2 {
		sepSeq, err := evalArg(env, dctx, args, 1)
		if err != nil {
			return Fail(err)
		}
		a, ok, err := atomizeOneOrEmpty(env, sepSeq)
		if err != nil {
			return Fail(err)
		}
		sep = asString(a, ok)
	}
	parts := make([]string, len(seq))
	for i, it := range seq {
		a, err := AtomizeItem(env, it)
		if err != nil {
			return Fail(err)
		}
		parts[i] = a.Str()
	}
	return One(xdm.NewString(strings.Join(parts, sep)))
}

func biConcat(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	var b strings.Builder
	for i := range args {
		seq, err := evalArg(env, dctx, args, i)
		if err != nil {
			return Fail(err)
		}
		a, ok, err := atomizeOneOrEmpty(env, seq)
		if err != nil {
			return Fail(err)
		}
		b.WriteString(asString(a, ok))
	}
	return One(xdm.NewString(b.String()))
}

// --- numeric builtins ---

func toDouble(env *xqenv.Env, seq xdm.Sequence) (float64, *xqerr.Error) {
	a, ok, err := atomizeOneOrEmpty(env, seq)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, xqerr.New(xqerr.XPTY0004, "empty sequence where a numeric value is required")
	}
	p, err := promoteArithOperand(a)
	if err != nil {
		return 0, err
	}
	switch v := p.(type) {
	case xdm.Integer:
		f, _ := strconv.ParseFloat(v.V.String(), 64)
		return f, nil
	case xdm.Decimal:
		f, _ := v.V.Float64()
		return f, nil
	case xdm.Float:
		return float64(v.V), nil
	case xdm.Double:
		return v.V, nil
	}
	return 0, xqerr.New(xqerr.XPTY0004, "expected a numeric value, got %s", a.ItemKind())
}

func toIndex(env *xqenv.Env, seq xdm.Sequence) (int, *xqerr.Error) {
	f, err := toDouble(env, seq)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

func unaryDouble(f func(float64) float64) builtinImpl {
	return func(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
		seq, err := evalArg(env, dctx, args, 0)
		if err != nil {
			return Fail(err)
		}
		v, err := toDouble(env, seq)
		if err != nil {
			return Fail(err)
		}
		return One(xdm.NewDouble(f(v)))
	}
}

func biMathPow(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	baseSeq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	expSeq, err := evalArg(env, dctx, args, 1)
	if err != nil {
		return Fail(err)
	}
	base, err := toDouble(env, baseSeq)
	if err != nil {
		return Fail(err)
	}
	exp, err := toDouble(env, expSeq)
	if err != nil {
		return Fail(err)
	}
	return One(xdm.NewDouble(math.Pow(base, exp)))
}

// numericUnary applies f to a single numeric operand, preserving its
// concrete type (abs/ceiling/floor/round are type-preserving per F&O,
// unlike math:* which always widens to xs:double).
func numericUnary(env *xqenv.Env, seq xdm.Sequence, f func(xdm.Atomic) (xdm.Atomic, *xqerr.Error)) Outcome {
	a, ok, err := atomizeOneOrEmpty(env, seq)
	if err != nil {
		return Fail(err)
	}
	if !ok {
		return Ok(xdm.Empty())
	}
	p, err := promoteArithOperand(a)
	if err != nil {
		return Fail(err)
	}
	pa, ok2 := p.(xdm.Atomic)
	if !ok2 || xdm.NumericRank(p) < 0 {
		return Fail(xqerr.New(xqerr.XPTY0004, "expected a numeric operand, got %s", a.ItemKind()))
	}
	out, err := f(pa)
	if err != nil {
		return Fail(err)
	}
	return One(out)
}

func biAbs(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	return numericUnary(env, seq, func(a xdm.Atomic) (xdm.Atomic, *xqerr.Error) {
		switch v := a.(type) {
		case xdm.Integer:
			return xdm.NewIntegerBig(new(big.Int).Abs(v.V)), nil
		case xdm.Decimal:
			return xdm.NewDecimal(v.V.Abs()), nil
		case xdm.Float:
			return xdm.NewFloat(float32(math.Abs(float64(v.V)))), nil
		case xdm.Double:
			return xdm.NewDouble(math.Abs(v.V)), nil
		}
		return nil, xqerr.New(xqerr.XPTY0004, "unsupported operand for fn:abs")
	})
}

func biCeiling(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	return numericUnary(env, seq, func(a xdm.Atomic) (xdm.Atomic, *xqerr.Error) {
		switch v := a.(type) {
		case xdm.Integer:
			return v, nil
		case xdm.Decimal:
			return xdm.NewDecimal(v.V.Ceil()), nil
		case xdm.Float:
			return xdm.NewFloat(float32(math.Ceil(float64(v.V)))), nil
		case xdm.Double:
			return xdm.NewDouble(math.Ceil(v.V)), nil
		}
		return nil, xqerr.New(xqerr.XPTY0004, "unsupported operand for fn:ceiling")
	})
}

func biFloor(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	return numericUnary(env, seq, func(a xdm.Atomic) (xdm.Atomic, *xqerr.Error) {
		switch v := a.(type) {
		case xdm.Integer:
			return v, nil
		case xdm.Decimal:
			return xdm.NewDecimal(v.V.Floor()), nil
		case xdm.Float:
			return xdm.NewFloat(float32(math.Floor(float64(v.V)))), nil
		case xdm.Double:
			return xdm.NewDouble(math.Floor(v.V)), nil
		}
		return nil, xqerr.New(xqerr.XPTY0004, "unsupported operand for fn:floor")
	})
}

func biRound(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	return numericUnary(env, seq, func(a xdm.Atomic) (xdm.Atomic, *xqerr.Error) {
		switch v := a.(type) {
		case xdm.Integer:
			return v, nil
		case xdm.Decimal:
			return xdm.NewDecimal(v.V.Round(0)), nil
		case xdm.Float:
			return xdm.NewFloat(float32(math.Round(float64(v.V)))), nil
		case xdm.Double:
			return xdm.NewDouble(math.Round(v.V)), nil
		}
		return nil, xqerr.New(xqerr.XPTY0004, "unsupported operand for fn:round")
	})
}

func biNumberCtx(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return numberOf(env, dctx, nil)
}

func biNumber(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return numberOf(env, dctx, args)
}

func numberOf(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := contextOrArg(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	f, err := toDouble(env, seq)
	if err != nil {
		return One(xdm.NewDouble(math.NaN()))
	}
	return One(xdm.NewDouble(f))
}

func biSum(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	atoms, err := Atomize(env, seq)
	if err != nil {
		return Fail(err)
	}
	if len(atoms) == 0 {
		if len(args) == 2 {
			zero, err := evalArg(env, dctx, args, 1)
			if err != nil {
				return Fail(err)
			}
			return Ok(zero)
		}
		return One(xdm.NewInteger(0))
	}
	acc := atoms[0]
	for _, a := range atoms[1:] {
		pa, err := promoteArithOperand(acc)
		if err != nil {
			return Fail(err)
		}
		pb, err := promoteArithOperand(a)
		if err != nil {
			return Fail(err)
		}
		cl, cr, err := xdm.PromoteNumericPair(pa, pb)
		if err != nil {
			return Fail(err)
		}
		res, err := xdm.Add(cl, cr)
		if err != nil {
			return Fail(err)
		}
		acc = res.(xdm.Atomic)
	}
	return One(acc)
}

func biAvg(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	atoms, err := Atomize(env, seq)
	if err != nil {
		return Fail(err)
	}
	if len(atoms) == 0 {
		return Ok(xdm.Empty())
	}
	sumRes := biSum(env, dctx, args)
	if sumRes.Failed() {
		return sumRes
	}
	total := sumRes.Value[0].(xdm.Atomic)
	pt, err := promoteArithOperand(total)
	if err != nil {
		return Fail(err)
	}
	cl, cr, err := xdm.PromoteNumericPair(pt, xdm.NewInteger(int64(len(atoms))))
	if err != nil {
		return Fail(err)
	}
	res, err := xdm.Div(cl, cr)
	if err != nil {
		return Fail(err)
	}
	return One(res.(xdm.Atomic))
}

func biMin(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return minMax(env, dctx, args, "lt")
}

func biMax(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return minMax(env, dctx, args, "gt")
}

func minMax(env *xqenv.Env, dctx DynamicContext, args []ast.Expr, better string) Outcome {
	seq, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	atoms, err := Atomize(env, seq)
	if err != nil {
		return Fail(err)
	}
	if len(atoms) == 0 {
		return Ok(xdm.Empty())
	}
	best := atoms[0]
	for _, a := range atoms[1:] {
		win, err := ValueCompareOne(better, a, best)
		if err != nil {
			return Fail(err)
		}
		if win {
			best = a
		}
	}
	return One(best)
}

func biError(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	code := xqerr.FOER0000
	desc := "fn:error"
	if len(args) >= 1 {
		codeSeq, err := evalArg(env, dctx, args, 0)
		if err != nil {
			return Fail(err)
		}
		if len(codeSeq) > 0 {
			if q, ok := codeSeq[0].(xdm.QNameValue); ok {
				desc = q.V.String()
			}
		}
	}
	if len(args) >= 2 {
		descSeq, err := evalArg(env, dctx, args, 1)
		if err != nil {
			return Fail(err)
		}
		a, ok, err := atomizeOneOrEmpty(env, descSeq)
		if err != nil {
			return Fail(err)
		}
		if ok {
			desc = a.Str()
		}
	}
	return Fail(xqerr.New(code, "%s", desc))
}

// --- node builtins ---

func biNodeNameCtx(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return nodeNameOf(env, dctx, nil)
}

func biNodeName(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return nodeNameOf(env, dctx, args)
}

func nodeNameOf(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := contextOrArg(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	if len(seq) == 0 {
		return Ok(xdm.Empty())
	}
	ref, ok := seq[0].(xtree.Ref)
	if !ok {
		return Fail(xqerr.New(xqerr.XPTY0004, "fn:node-name requires a node argument"))
	}
	name := Reader(env).Name(ref)
	if name.Local == "" {
		return Ok(xdm.Empty())
	}
	return One(xdm.NewQName(name))
}

func biNameCtx(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return nameOf(env, dctx, nil)
}

func biName(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return nameOf(env, dctx, args)
}

func nameOf(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := contextOrArg(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	if len(seq) == 0 {
		return One(xdm.NewString(""))
	}
	ref, ok := seq[0].(xtree.Ref)
	if !ok {
		return Fail(xqerr.New(xqerr.XPTY0004, "fn:name requires a node argument"))
	}
	return One(xdm.NewString(Reader(env).Name(ref).String()))
}

func biLocalNameCtx(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return localNameOf(env, dctx, nil)
}

func biLocalName(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return localNameOf(env, dctx, args)
}

func localNameOf(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := contextOrArg(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	if len(seq) == 0 {
		return One(xdm.NewString(""))
	}
	ref, ok := seq[0].(xtree.Ref)
	if !ok {
		return Fail(xqerr.New(xqerr.XPTY0004, "fn:local-name requires a node argument"))
	}
	return One(xdm.NewString(Reader(env).Name(ref).Local))
}

func biNamespaceURICtx(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return namespaceURIOf(env, dctx, nil)
}

func biNamespaceURI(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return namespaceURIOf(env, dctx, args)
}

func namespaceURIOf(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := contextOrArg(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	if len(seq) == 0 {
		return One(xdm.NewAnyURI(""))
	}
	ref, ok := seq[0].(xtree.Ref)
	if !ok {
		return Fail(xqerr.New(xqerr.XPTY0004, "fn:namespace-uri requires a node argument"))
	}
	return One(xdm.NewAnyURI(Reader(env).Name(ref).URI))
}

func biRootCtx(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return rootOf(env, dctx, nil)
}

func biRoot(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	return rootOf(env, dctx, args)
}

func rootOf(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	seq, err := contextOrArg(env, dctx, args)
	if err != nil {
		return Fail(err)
	}
	if len(seq) == 0 {
		return Ok(xdm.Empty())
	}
	ref, ok := seq[0].(xtree.Ref)
	if !ok {
		return Fail(xqerr.New(xqerr.XPTY0004, "fn:root requires a node argument"))
	}
	return One(Reader(env).Root(ref))
}

func biDeepEqual(env *xqenv.Env, dctx DynamicContext, args []ast.Expr) Outcome {
	s1, err := evalArg(env, dctx, args, 0)
	if err != nil {
		return Fail(err)
	}
	s2, err := evalArg(env, dctx, args, 1)
	if err != nil {
		return Fail(err)
	}
	if len(s1) != len(s2) {
		return One(xdm.NewBoolean(false))
	}
	for i := range s1 {
		if !deepEqualItem(env, s1[i], s2[i]) {
			return One(xdm.NewBoolean(false))
		}
	}
	return One(xdm.NewBoolean(true))
}

func deepEqualItem(env *xqenv.Env, a, b xdm.Item) bool {
	ra, aok := a.(xtree.Ref)
	rb, bok := b.(xtree.Ref)
	if aok != bok {
		return false
	}
	if !aok {
		av, ok1 := a.(xdm.Atomic)
		bv, ok2 := b.(xdm.Atomic)
		if !ok1 || !ok2 {
			return false
		}
		return sameValue(av, bv)
	}
	r := Reader(env)
	if r.Kind(ra) != r.Kind(rb) {
		return false
	}
	if r.Kind(ra) == xtree.KindElement {
		if !r.Name(ra).Equal(r.Name(rb)) {
			return false
		}
		aAttrs, bAttrs := append([]xtree.Attribute{}, r.Attributes(ra)...), append([]xtree.Attribute{}, r.Attributes(rb)...)
		if len(aAttrs) != len(bAttrs) {
			return false
		}
		sort.Slice(aAttrs, func(i, j int) bool { return aAttrs[i].Name.String() < aAttrs[j].Name.String() })
		sort.Slice(bAttrs, func(i, j int) bool { return bAttrs[i].Name.String() < bAttrs[j].Name.String() })
		for i := range aAttrs {
			if !aAttrs[i].Name.Equal(bAttrs[i].Name) || aAttrs[i].Value != bAttrs[i].Value {
				return false
			}
		}
		aCh, bCh := r.Children(ra), r.Children(rb)
		if len(aCh) != len(bCh) {
			return false
		}
		for i := range aCh {
			if !deepEqualItem(env, aCh[i], bCh[i]) {
				return false
			}
		}
		return true
	}
	return r.TypedValue(ra) == r.TypedValue(rb)
}

// sameValue implements the value-equality spec.md S8's distinct-values/
// index-of idempotence expectations rely on: same-category atomics
// compare with xdm.ValueCompare directly; cross-category (numeric vs.
// untypedAtomic, most commonly) reuse the same untypedAtomic-coercion
// rule general comparison applies, via generalCompareOne.
func sameValue(a, b xdm.Atomic) bool {
	if xdm.Category(a) == xdm.Category(b) {
		eq, err := xdm.ValueCompare("eq", a, b)
		return err == nil && eq
	}
	eq, err := generalCompareOne("eq", a, b)
	return err == nil && eq
}
