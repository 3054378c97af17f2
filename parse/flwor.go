package parse

import (
	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/xqerr"
)

// tryFlwor parses the FLWOR pipe of spec.md S4.5: one or more For/Let
// clauses (in any order, each possibly repeated), optional Where,
// optional OrderBy (supplemented from original_source), terminal
// "return".
func (s *state) tryFlwor() (ast.Expr, *xqerr.Error, bool) {
	mark := s.mark()
	var clauses []ast.Clause
	sawBinding := false
	for {
		m2 := s.mark()
		if err := s.ws(); err != nil {
			return nil, err, true
		}
		switch {
		case s.litKeyword("for"):
			cl, err := s.forClause()
			if err != nil {
				return nil, err, true
			}
			clauses = append(clauses, cl...)
			sawBinding = true
			continue
		case s.litKeyword("let"):
			cl, err := s.letClause()
			if err != nil {
				return nil, err, true
			}
			clauses = append(clauses, cl...)
			sawBinding = true
			continue
		}
		s.reset(m2)
		break
	}
	if !sawBinding {
		s.reset(mark)
		return nil, nil, false
	}
	if err := s.ws(); err != nil {
		return nil, err, true
	}
	if s.litKeyword("where") {
		if err := s.ws1(); err != nil {
			return nil, err, true
		}
		cond, err := s.exprSingle()
		if err != nil {
			return nil, err, true
		}
		clauses = append(clauses, &ast.WhereClause{Cond: cond})
		if err := s.ws(); err != nil {
			return nil, err, true
		}
	}
	if s.litKeyword("order") {
		if err := s.ws1(); err != nil {
			return nil, err, true
		}
		if !s.litKeyword("by") {
			return nil, xqerr.New(xqerr.XPST0003, "expected 'by' after 'order' at offset %d", s.pos), true
		}
		if err := s.ws1(); err != nil {
			return nil, err, true
		}
		ob, err := s.orderByClause()
		if err != nil {
			return nil, err, true
		}
		clauses = append(clauses, ob)
		if err := s.ws(); err != nil {
			return nil, err, true
		}
	}
	if !s.litKeyword("return") {
		return nil, xqerr.New(xqerr.XPST0003, "expected 'return' at offset %d", s.pos), true
	}
	if err := s.ws1(); err != nil {
		return nil, err, true
	}
	ret, err := s.exprSingle()
	if err != nil {
		return nil, err, true
	}
	return &ast.FlworExpr{Clauses: clauses, Return: ret}, nil, true
}

// forClause parses `for $v ["at" $p]? "in" Expr ("," $v2 ... )*`, one
// ForClause per comma-separated binding (spec.md S4.5 "For-binding
// iterates ... each pipe node owns its next link").
func (s *state) forClause() ([]ast.Clause, *xqerr.Error) {
	if err := s.ws1(); err != nil {
		return nil, err
	}
	var out []ast.Clause
	for {
		if r0(s) != '$' {
			return nil, xqerr.New(xqerr.XPST0003, "expected '$' in for-clause at offset %d", s.pos)
		}
		s.nextRune()
		name, ok := s.eqName()
		if !ok {
			return nil, xqerr.New(xqerr.XPST0003, "expected variable name at offset %d", s.pos)
		}
		fc := ast.ForClause{Var: name}
		m := s.mark()
		if err := s.ws1(); err != nil {
			return nil, err
		}
		if s.litKeyword("allowing") {
			if err := s.ws1(); err != nil {
				return nil, err
			}
			if !s.litKeyword("empty") {
				return nil, xqerr.New(xqerr.XPST0003, "expected 'empty' after 'allowing' at offset %d", s.pos)
			}
			fc.AllowEmpty = true
			if err := s.ws1(); err != nil {
				return nil, err
			}
		} else {
			s.reset(m)
			if err := s.ws(); err != nil {
				return nil, err
			}
		}
		if s.litKeyword("at") {
			if err := s.ws1(); err != nil {
				return nil, err
			}
			if r0(s) != '$' {
				return nil, xqerr.New(xqerr.XPST0003, "expected '$' after 'at' at offset %d", s.pos)
			}
			s.nextRune()
			pname, ok := s.eqName()
			if !ok {
				return nil, xqerr.New(xqerr.XPST0003, "expected position variable name at offset %d", s.pos)
			}
			fc.PositionVar = &pname
			if err := s.ws1(); err != nil {
				return nil, err
			}
		}
		if !s.litKeyword("in") {
			return nil, xqerr.New(xqerr.XPST0003, "expected 'in' in for-clause at offset %d", s.pos)
		}
		if err := s.ws1(); err != nil {
			return nil, err
		}
		in, err := s.exprSingle()
		if err != nil {
			return nil, err
		}
		fc.In = in
		out = append(out, &fc)

		m2 := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		if s.lit(",") {
			if err := s.ws(); err != nil {
				return nil, err
			}
			if r0(s) == '$' {
				continue
			}
		}
		s.reset(m2)
		return out, nil
	}
}

// letClause parses `let $v := Expr ("," $v2 := Expr)*`.
func (s *state) letClause() ([]ast.Clause, *xqerr.Error) {
	if err := s.ws1(); err != nil {
		return nil, err
	}
	var out []ast.Clause
	for {
		if r0(s) != '$' {
			return nil, xqerr.New(xqerr.XPST0003, "expected '$' in let-clause at offset %d", s.pos)
		}
		s.nextRune()
		name, ok := s.eqName()
		if !ok {
			return nil, xqerr.New(xqerr.XPST0003, "expected variable name at offset %d", s.pos)
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		if !s.lit(":=") {
			return nil, xqerr.New(xqerr.XPST0003, "expected ':=' in let-clause at offset %d", s.pos)
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		in, err := s.exprSingle()
		if err != nil {
			return nil, err
		}
		out = append(out, &ast.LetClause{Var: name, In: in})

		m2 := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		if s.lit(",") {
			if err := s.ws(); err != nil {
				return nil, err
			}
			if r0(s) == '$' {
				continue
			}
		}
		s.reset(m2)
		return out, nil
	}
}

func (s *state) orderByClause() (*ast.OrderByClause, *xqerr.Error) {
	var keys []ast.OrderKey
	for {
		e, err := s.exprSingle()
		if err != nil {
			return nil, err
		}
		key := ast.OrderKey{Expr: e}
		m := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		switch {
		case s.litKeyword("descending"):
			key.Descending = true
		case s.litKeyword("ascending"):
		default:
			s.reset(m)
		}
		m2 := s.mark()
		if err := s.ws1(); err == nil {
			switch {
			case s.litKeyword("empty"):
				if err := s.ws1(); err != nil {
					return nil, err
				}
				if s.litKeyword("least") {
					key.EmptyLeast = true
				} else if !s.litKeyword("greatest") {
					return nil, xqerr.New(xqerr.XPST0003, "expected 'least' or 'greatest' at offset %d", s.pos)
				}
			default:
				s.reset(m2)
			}
		} else {
			s.reset(m2)
		}
		keys = append(keys, key)
		m3 := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		if s.lit(",") {
			if err := s.ws(); err != nil {
				return nil, err
			}
			continue
		}
		s.reset(m3)
		return &ast.OrderByClause{Keys: keys}, nil
	}
}
