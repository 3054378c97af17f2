package parse

import (
	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/xqerr"
)

func (s *state) instanceOfExpr() (ast.Expr, *xqerr.Error) {
	left, err := s.treatExpr()
	if err != nil {
		return nil, err
	}
	mark := s.mark()
	if err := s.ws1(); err != nil {
		return nil, err
	}
	if !s.litKeyword("instance") {
		s.reset(mark)
		return left, nil
	}
	if err := s.ws1(); err != nil {
		return nil, err
	}
	if !s.litKeyword("of") {
		return nil, xqerr.New(xqerr.XPST0003, "expected 'of' after 'instance' at offset %d", s.pos)
	}
	if err := s.ws1(); err != nil {
		return nil, err
	}
	st, err := s.sequenceType()
	if err != nil {
		return nil, err
	}
	return &ast.InstanceOfExpr{Operand: left, Type: st}, nil
}

func (s *state) treatExpr() (ast.Expr, *xqerr.Error) {
	left, err := s.castableExpr()
	if err != nil {
		return nil, err
	}
	mark := s.mark()
	if err := s.ws1(); err != nil {
		return nil, err
	}
	if !s.litKeyword("treat") {
		s.reset(mark)
		return left, nil
	}
	if err := s.ws1(); err != nil {
		return nil, err
	}
	if !s.litKeyword("as") {
		return nil, xqerr.New(xqerr.XPST0003, "expected 'as' after 'treat' at offset %d", s.pos)
	}
	if err := s.ws1(); err != nil {
		return nil, err
	}
	st, err := s.sequenceType()
	if err != nil {
		return nil, err
	}
	return &ast.TreatExpr{Operand: left, Type: st}, nil
}

func (s *state) castableExpr() (ast.Expr, *xqerr.Error) {
	left, err := s.castExpr()
	if err != nil {
		return nil, err
	}
	mark := s.mark()
	if err := s.ws1(); err != nil {
		return nil, err
	}
	if !s.litKeyword("castable") {
		s.reset(mark)
		return left, nil
	}
	if err := s.ws1(); err != nil {
		return nil, err
	}
	if !s.litKeyword("as") {
		return nil, xqerr.New(xqerr.XPST0003, "expected 'as' after 'castable' at offset %d", s.pos)
	}
	if err := s.ws1(); err != nil {
		return nil, err
	}
	st, err := s.singleType()
	if err != nil {
		return nil, err
	}
	return &ast.CastableExpr{Operand: left, Type: st}, nil
}

func (s *state) castExpr() (ast.Expr, *xqerr.Error) {
	left, err := s.arrowExpr()
	if err != nil {
		return nil, err
	}
	mark := s.mark()
	if err := s.ws1(); err != nil {
		return nil, err
	}
	if !s.litKeyword("cast") {
		s.reset(mark)
		return left, nil
	}
	if err := s.ws1(); err != nil {
		return nil, err
	}
	if !s.litKeyword("as") {
		return nil, xqerr.New(xqerr.XPST0003, "expected 'as' after 'cast' at offset %d", s.pos)
	}
	if err := s.ws1(); err != nil {
		return nil, err
	}
	st, err := s.singleType()
	if err != nil {
		return nil, err
	}
	return &ast.CastExpr{Operand: left, Type: st}, nil
}

func (s *state) arrowExpr() (ast.Expr, *xqerr.Error) {
	left, err := s.unaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		mark := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		if !s.lit("=>") {
			s.reset(mark)
			return left, nil
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		ae := &ast.ArrowExpr{Base: left}
		if name, ok := s.eqName(); ok {
			n := name
			ae.TargetName = &n
		} else if s.lit("(") {
			if err := s.ws(); err != nil {
				return nil, err
			}
			te, err := s.expr()
			if err != nil {
				return nil, err
			}
			if err := s.ws(); err != nil {
				return nil, err
			}
			if !s.lit(")") {
				return nil, xqerr.New(xqerr.XPST0003, "expected ')' closing arrow target at offset %d", s.pos)
			}
			ae.TargetExpr = te
		} else {
			return nil, xqerr.New(xqerr.XPST0003, "expected arrow target at offset %d", s.pos)
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		args, err := s.argumentList()
		if err != nil {
			return nil, err
		}
		ae.Args = args
		left = ae
	}
}

func (s *state) unaryExpr() (ast.Expr, *xqerr.Error) {
	neg := false
	sawSign := false
	for {
		if err := s.ws(); err != nil {
			return nil, err
		}
		mark := s.mark()
		if s.lit("-") {
			neg = !neg
			sawSign = true
			continue
		}
		if s.lit("+") {
			sawSign = true
			continue
		}
		s.reset(mark)
		break
	}
	operand, err := s.simpleMapExpr()
	if err != nil {
		return nil, err
	}
	if !sawSign {
		return operand, nil
	}
	return &ast.UnaryOp{Negative: neg, Operand: operand}, nil
}

func (s *state) simpleMapExpr() (ast.Expr, *xqerr.Error) {
	left, err := s.pathExprTop()
	if err != nil {
		return nil, err
	}
	for {
		mark := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		if !s.lit("!") {
			s.reset(mark)
			return left, nil
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		right, err := s.pathExprTop()
		if err != nil {
			return nil, err
		}
		left = &ast.SimpleMapExpr{Left: left, Right: right}
	}
}
