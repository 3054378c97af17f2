package parse

import (
	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/xqerr"
)

// expr parses a top-level Expr: one or more ExprSingle separated by
// commas, flattened into a SequenceExpr when there is more than one
// (spec.md S3 "Sequence flattening").
func (s *state) expr() (ast.Expr, *xqerr.Error) {
	first, err := s.exprSingle()
	if err != nil {
		return nil, err
	}
	items := []ast.Expr{first}
	for {
		mark := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		if !s.lit(",") {
			s.reset(mark)
			break
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		next, err := s.exprSingle()
		if err != nil {
			return nil, err
		}
		items = append(items, next)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return &ast.SequenceExpr{Items: items}, nil
}

// exprSingle dispatches the non-operator-chain alternatives (FLWOR,
// quantified, if) before falling into the OrExpr precedence chain.
func (s *state) exprSingle() (ast.Expr, *xqerr.Error) {
	if err := s.ws(); err != nil {
		return nil, err
	}
	if e, err, ok := s.tryFlwor(); ok {
		return e, err
	}
	if e, err, ok := s.tryQuantified(); ok {
		return e, err
	}
	if e, err, ok := s.tryIf(); ok {
		return e, err
	}
	return s.orExpr()
}

func (s *state) tryIf() (ast.Expr, *xqerr.Error, bool) {
	mark := s.mark()
	if !s.litKeyword("if") {
		return nil, nil, false
	}
	if err := s.ws(); err != nil {
		return nil, err, true
	}
	if !s.lit("(") {
		s.reset(mark)
		return nil, nil, false
	}
	if err := s.ws(); err != nil {
		return nil, err, true
	}
	cond, err := s.expr()
	if err != nil {
		return nil, err, true
	}
	if err := s.ws(); err != nil {
		return nil, err, true
	}
	if !s.lit(")") {
		return nil, xqerr.New(xqerr.XPST0003, "expected ')' closing if-condition at offset %d", s.pos), true
	}
	if err := s.ws1(); err != nil {
		return nil, err, true
	}
	if !s.litKeyword("then") {
		return nil, xqerr.New(xqerr.XPST0003, "expected 'then' at offset %d", s.pos), true
	}
	if err := s.ws1(); err != nil {
		return nil, err, true
	}
	then, err := s.exprSingle()
	if err != nil {
		return nil, err, true
	}
	if err := s.ws1(); err != nil {
		return nil, err, true
	}
	if !s.litKeyword("else") {
		return nil, xqerr.New(xqerr.XPST0003, "expected 'else' at offset %d", s.pos), true
	}
	if err := s.ws1(); err != nil {
		return nil, err, true
	}
	elseE, err := s.exprSingle()
	if err != nil {
		return nil, err, true
	}
	return &ast.IfExpr{Cond: cond, Then: then, Else: elseE}, nil, true
}

func (s *state) tryQuantified() (ast.Expr, *xqerr.Error, bool) {
	mark := s.mark()
	var every bool
	switch {
	case s.litKeyword("some"):
		every = false
	case s.litKeyword("every"):
		every = true
	default:
		return nil, nil, false
	}
	if err := s.ws1(); err != nil {
		s.reset(mark)
		return nil, nil, false
	}
	if r0(s) != '$' {
		s.reset(mark)
		return nil, nil, false
	}
	var bindings []ast.QuantifiedBinding
	for {
		s.nextRune() // '$'
		name, ok := s.eqName()
		if !ok {
			return nil, xqerr.New(xqerr.XPST0003, "expected variable name at offset %d", s.pos), true
		}
		if err := s.ws1(); err != nil {
			return nil, err, true
		}
		if !s.litKeyword("in") {
			return nil, xqerr.New(xqerr.XPST0003, "expected 'in' at offset %d", s.pos), true
		}
		if err := s.ws1(); err != nil {
			return nil, err, true
		}
		in, err := s.exprSingleNoFlwor()
		if err != nil {
			return nil, err, true
		}
		bindings = append(bindings, ast.QuantifiedBinding{Var: name, In: in})
		m2 := s.mark()
		if err := s.ws(); err != nil {
			return nil, err, true
		}
		if s.lit(",") {
			if err := s.ws(); err != nil {
				return nil, err, true
			}
			if r0(s) == '$' {
				continue
			}
		}
		s.reset(m2)
		break
	}
	if err := s.ws1(); err != nil {
		return nil, err, true
	}
	if !s.litKeyword("satisfies") {
		return nil, xqerr.New(xqerr.XPST0003, "expected 'satisfies' at offset %d", s.pos), true
	}
	if err := s.ws1(); err != nil {
		return nil, err, true
	}
	body, err := s.exprSingle()
	if err != nil {
		return nil, err, true
	}
	return &ast.QuantifiedExpr{Every: every, Bindings: bindings, Satisfies: body}, nil, true
}

// exprSingleNoFlwor is used inside binding clauses ("for"/"let"/"in")
// where a bare comma must end the binding expression rather than being
// absorbed into a sequence the way a top-level Expr would.
func (s *state) exprSingleNoFlwor() (ast.Expr, *xqerr.Error) {
	return s.exprSingle()
}

// binaryLevel describes one precedence level as a set of candidate
// keyword/symbol operators tried left-to-right, each building an AST
// node via build.
type binaryLevel struct {
	ops   []string
	build func(op string, l, r ast.Expr) ast.Expr
}

func (s *state) orExpr() (ast.Expr, *xqerr.Error) {
	return s.leftAssoc([]string{"or"}, func(op string, l, r ast.Expr) ast.Expr {
		return &ast.LogicalOp{Op: op, Left: l, Right: r}
	}, s.andExpr)
}

func (s *state) andExpr() (ast.Expr, *xqerr.Error) {
	return s.leftAssoc([]string{"and"}, func(op string, l, r ast.Expr) ast.Expr {
		return &ast.LogicalOp{Op: op, Left: l, Right: r}
	}, s.comparisonExpr)
}

// comparisonExpr is non-associative in the grammar (at most one
// comparison per expression level), so it is handled directly rather
// than through leftAssoc.
func (s *state) comparisonExpr() (ast.Expr, *xqerr.Error) {
	left, err := s.stringConcatExpr()
	if err != nil {
		return nil, err
	}
	mark := s.mark()
	if err := s.ws(); err != nil {
		return nil, err
	}
	op, kind, ok := s.tryComparisonOp()
	if !ok {
		s.reset(mark)
		return left, nil
	}
	if err := s.ws(); err != nil {
		return nil, err
	}
	right, err := s.stringConcatExpr()
	if err != nil {
		return nil, err
	}
	switch kind {
	case "value":
		return &ast.ValueCompareExpr{Op: op, Left: left, Right: right}, nil
	case "general":
		return &ast.GeneralCompareExpr{Op: op, Left: left, Right: right}, nil
	default:
		return &ast.NodeCompareExpr{Op: op, Left: left, Right: right}, nil
	}
}

func (s *state) tryComparisonOp() (op string, kind string, ok bool) {
	valueOps := map[string]string{"eq": "eq", "ne": "ne", "lt": "lt", "le": "le", "gt": "gt", "ge": "ge"}
	for lit, name := range valueOps {
		if s.litKeyword(lit) {
			return name, "value", true
		}
	}
	nodeOps := []string{"<<", ">>"}
	for _, lit := range nodeOps {
		if s.lit(lit) {
			return lit, "node", true
		}
	}
	if s.litKeyword("is") {
		return "is", "node", true
	}
	generalOps := []string{"<=", ">=", "!=", "<", ">", "="}
	for _, lit := range generalOps {
		if s.lit(lit) {
			return lit, "general", true
		}
	}
	return "", "", false
}

func (s *state) stringConcatExpr() (ast.Expr, *xqerr.Error) {
	left, err := s.rangeExpr()
	if err != nil {
		return nil, err
	}
	for {
		mark := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		if !s.lit("||") {
			s.reset(mark)
			return left, nil
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		right, err := s.rangeExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.StringConcatExpr{Left: left, Right: right}
	}
}

func (s *state) rangeExpr() (ast.Expr, *xqerr.Error) {
	left, err := s.additiveExpr()
	if err != nil {
		return nil, err
	}
	mark := s.mark()
	if err := s.ws(); err != nil {
		return nil, err
	}
	if !s.litKeyword("to") {
		s.reset(mark)
		return left, nil
	}
	if err := s.ws1(); err != nil {
		return nil, err
	}
	right, err := s.additiveExpr()
	if err != nil {
		return nil, err
	}
	return &ast.RangeExpr{Min: left, Max: right}, nil
}

func (s *state) additiveExpr() (ast.Expr, *xqerr.Error) {
	return s.leftAssoc([]string{"+", "-"}, func(op string, l, r ast.Expr) ast.Expr {
		return &ast.ArithOp{Op: op, Left: l, Right: r}
	}, s.multiplicativeExpr)
}

func (s *state) multiplicativeExpr() (ast.Expr, *xqerr.Error) {
	return s.leftAssoc([]string{"*", "div", "idiv", "mod"}, func(op string, l, r ast.Expr) ast.Expr {
		return &ast.ArithOp{Op: op, Left: l, Right: r}
	}, s.unionExpr)
}

func (s *state) unionExpr() (ast.Expr, *xqerr.Error) {
	return s.leftAssoc([]string{"union", "|"}, func(op string, l, r ast.Expr) ast.Expr {
		return &ast.SetOp{Op: "union", Left: l, Right: r}
	}, s.intersectExceptExpr)
}

func (s *state) intersectExceptExpr() (ast.Expr, *xqerr.Error) {
	return s.leftAssoc([]string{"intersect", "except"}, func(op string, l, r ast.Expr) ast.Expr {
		return &ast.SetOp{Op: op, Left: l, Right: r}
	}, s.instanceOfExpr)
}

// matchOp tries one operator token: alphabetic operators ("or", "div",
// "union", ...) require a word boundary (litKeyword); symbolic ones
// ("+", "|", ...) don't.
func (s *state) matchOp(op string) bool {
	if isNameStartChar(rune(op[0])) {
		return s.litKeyword(op)
	}
	return s.lit(op)
}

// leftAssoc is the shared precedence-level combinator: parse one `next`
// then zero-or-more `(op next)` pairs, left-associating.
func (s *state) leftAssoc(ops []string, build func(op string, l, r ast.Expr) ast.Expr, next func() (ast.Expr, *xqerr.Error)) (ast.Expr, *xqerr.Error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		mark := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		matched := ""
		for _, op := range ops {
			if s.matchOp(op) {
				matched = op
				break
			}
		}
		if matched == "" {
			s.reset(mark)
			return left, nil
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = build(matched, left, right)
	}
}
