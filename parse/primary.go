package parse

import (
	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/xqerr"
)

// postfixExpr parses a PrimaryExpr followed by zero or more predicates
// or argument lists (spec.md S4.4 precedence chain's innermost level
// besides PathExpr/primary itself).
func (s *state) postfixExpr() (ast.Expr, *xqerr.Error) {
	base, err := s.primaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		mark := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		if r0(s) == '[' {
			preds, err := s.predicateList()
			if err != nil {
				return nil, err
			}
			base = &ast.FilterExpr{Base: base, Predicates: preds}
			continue
		}
		if r0(s) == '(' {
			args, err := s.argumentList()
			if err != nil {
				return nil, err
			}
			base = &ast.DynamicCall{Base: base, Args: args}
			continue
		}
		s.reset(mark)
		return base, nil
	}
}

// argumentList parses `"(" (ExprSingle ("," ExprSingle)*)? ")"`.
func (s *state) argumentList() ([]ast.Expr, *xqerr.Error) {
	if !s.lit("(") {
		return nil, xqerr.New(xqerr.XPST0003, "expected '(' at offset %d", s.pos)
	}
	if err := s.ws(); err != nil {
		return nil, err
	}
	if s.lit(")") {
		return nil, nil
	}
	var args []ast.Expr
	for {
		if err := s.ws(); err != nil {
			return nil, err
		}
		if r0(s) == '?' {
			s.nextRune()
			args = append(args, nil) // argument placeholder, function-item currying
		} else {
			a, err := s.exprSingle()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		if s.lit(",") {
			continue
		}
		if s.lit(")") {
			return args, nil
		}
		return nil, xqerr.New(xqerr.XPST0003, "expected ',' or ')' in argument list at offset %d", s.pos)
	}
}

// primaryExpr parses Literal | VarRef | ParenthesizedExpr |
// ContextItemExpr | FunctionCall | FunctionItemExpr | node constructors.
func (s *state) primaryExpr() (ast.Expr, *xqerr.Error) {
	if err := s.ws(); err != nil {
		return nil, err
	}
	if lit, err, ok := s.numericLiteral(); ok {
		return lit, err
	}
	if lit, err, ok := s.stringLiteral(); ok {
		return lit, err
	}
	if r0(s) == '$' {
		s.nextRune()
		name, ok := s.eqName()
		if !ok {
			return nil, xqerr.New(xqerr.XPST0003, "expected variable name at offset %d", s.pos)
		}
		return &ast.VarRef{Name: name}, nil
	}
	if r0(s) == '(' {
		mark := s.mark()
		s.nextRune()
		if err := s.ws(); err != nil {
			return nil, err
		}
		if s.lit(")") {
			return &ast.SequenceExpr{}, nil
		}
		e, err := s.expr()
		if err != nil {
			return nil, err
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		if !s.lit(")") {
			return nil, xqerr.New(xqerr.XPST0003, "expected ')' at offset %d", s.pos)
		}
		_ = mark
		return e, nil
	}
	if r0(s) == '.' && !hasKeywordPrefix(s.rest(), "..") {
		// lone "." in primary position is the context item, distinct
		// from the axis-step "." abbreviation handled in path.go.
		save := s.pos
		s.nextRune()
		if !isDigit(r0(s)) {
			return &ast.ContextItemExpr{}, nil
		}
		s.pos = save
	}
	if r0(s) == '<' {
		return s.directConstructor()
	}
	if e, err, ok := s.tryComputedConstructor(); ok {
		return e, err
	}
	if e, err, ok := s.tryInlineFunction(); ok {
		return e, err
	}
	if e, err, ok := s.tryNamedFunctionRef(); ok {
		return e, err
	}
	name, ok := s.eqName()
	if !ok {
		return nil, xqerr.New(xqerr.XPST0003, "expected an expression at offset %d", s.pos)
	}
	mark := s.mark()
	if err := s.ws(); err != nil {
		return nil, err
	}
	if r0(s) != '(' {
		s.reset(mark)
		return nil, xqerr.New(xqerr.XPST0003, "unexpected name %q at offset %d", name.String(), s.pos)
	}
	if err := reservedFunctionCheck(name); err != nil {
		return nil, err
	}
	args, err := s.argumentList()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionCall{Name: name, Args: args}, nil
}

func (s *state) tryNamedFunctionRef() (ast.Expr, *xqerr.Error, bool) {
	mark := s.mark()
	name, ok := s.eqName()
	if !ok {
		return nil, nil, false
	}
	if !s.lit("#") {
		s.reset(mark)
		return nil, nil, false
	}
	start := s.pos
	for isDigit(r0(s)) {
		s.nextRune()
	}
	if s.pos == start {
		return nil, xqerr.New(xqerr.XPST0003, "expected arity after '#' at offset %d", s.pos), true
	}
	arity := 0
	for _, r := range s.src[start:s.pos] {
		arity = arity*10 + int(r-'0')
	}
	return &ast.NamedFunctionRef{Name: name, Arity: arity}, nil, true
}

func (s *state) tryInlineFunction() (ast.Expr, *xqerr.Error, bool) {
	mark := s.mark()
	if !s.litKeyword("function") {
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
	var params []ast.Param
	if r0(s) != ')' {
		for {
			if r0(s) != '$' {
				return nil, xqerr.New(xqerr.XPST0003, "expected parameter at offset %d", s.pos), true
			}
			s.nextRune()
			name, ok := s.eqName()
			if !ok {
				return nil, xqerr.New(xqerr.XPST0003, "expected parameter name at offset %d", s.pos), true
			}
			p := ast.Param{Name: name}
			m2 := s.mark()
			if err := s.ws(); err != nil {
				return nil, err, true
			}
			if s.litKeyword("as") {
				if err := s.ws1(); err != nil {
					return nil, err, true
				}
				st, err := s.sequenceType()
				if err != nil {
					return nil, err, true
				}
				p.Type = &st
			} else {
				s.reset(m2)
			}
			params = append(params, p)
			if err := s.ws(); err != nil {
				return nil, err, true
			}
			if s.lit(",") {
				if err := s.ws(); err != nil {
					return nil, err, true
				}
				continue
			}
			break
		}
	}
	if err := s.ws(); err != nil {
		return nil, err, true
	}
	if !s.lit(")") {
		return nil, xqerr.New(xqerr.XPST0003, "expected ')' closing parameter list at offset %d", s.pos), true
	}
	var retType *ast.SequenceType
	m3 := s.mark()
	if err := s.ws(); err != nil {
		return nil, err, true
	}
	if s.litKeyword("as") {
		if err := s.ws1(); err != nil {
			return nil, err, true
		}
		st, err := s.sequenceType()
		if err != nil {
			return nil, err, true
		}
		retType = &st
	} else {
		s.reset(m3)
	}
	if err := s.ws(); err != nil {
		return nil, err, true
	}
	if !s.lit("{") {
		return nil, xqerr.New(xqerr.XPST0003, "expected '{' opening function body at offset %d", s.pos), true
	}
	if err := s.ws(); err != nil {
		return nil, err, true
	}
	body, err := s.expr()
	if err != nil {
		return nil, err, true
	}
	if err := s.ws(); err != nil {
		return nil, err, true
	}
	if !s.lit("}") {
		return nil, xqerr.New(xqerr.XPST0003, "expected '}' closing function body at offset %d", s.pos), true
	}
	return &ast.InlineFunctionExpr{Params: params, ReturnType: retType, Body: body}, nil, true
}
