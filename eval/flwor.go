package eval

import (
	"sort"

	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xdm"
	"github.com/oss-xquery/xq31/xqenv"
	"github.com/oss-xquery/xq31/xqerr"
)

// EvalFlwor implements spec.md S4.5's "FLWOR is compiled into a linear
// pipe of clauses": each clause transforms a list of tuples (one Env per
// row, each row's bindings layered as child frames), and Return emits
// once per surviving tuple, concatenated in pipe order.
func EvalFlwor(env *xqenv.Env, f *ast.FlworExpr) Outcome {
	tuples := []*xqenv.Env{env}
	for _, clause := range f.Clauses {
		var err *xqerr.Error
		switch c := clause.(type) {
		case *ast.ForClause:
			tuples, err = runFor(tuples, c)
		case *ast.LetClause:
			tuples, err = runLet(tuples, c)
		case *ast.WhereClause:
			tuples, err = runWhere(tuples, c)
		case *ast.OrderByClause:
			tuples, err = runOrderBy(tuples, c)
		default:
			return Fail(xqerr.New(xqerr.XPST0003, "unknown FLWOR clause type"))
		}
		if err != nil {
			return Fail(err)
		}
	}
	out := make(xdm.Sequence, 0, len(tuples))
	for _, t := range tuples {
		res := Eval(t, RootContext(), f.Return)
		if res.Failed() {
			return res
		}
		out = append(out, res.Value...)
	}
	return Ok(out)
}

func runFor(tuples []*xqenv.Env, c *ast.ForClause) ([]*xqenv.Env, *xqerr.Error) {
	var out []*xqenv.Env
	for _, t := range tuples {
		res := Eval(t, RootContext(), c.In)
		if res.Failed() {
			return nil, res.Err
		}
		varName, err := qname.ResolveNoDefault(c.Var, t.NS())
		if err != nil {
			return nil, err
		}
		if len(res.Value) == 0 {
			if c.AllowEmpty {
				child := t.WithVar(varName, xdm.Empty())
				if c.PositionVar != nil {
					posName, perr := qname.ResolveNoDefault(*c.PositionVar, t.NS())
					if perr != nil {
						return nil, perr
					}
					child = child.WithVar(posName, xdm.Singleton(xdm.NewInteger(0)))
				}
				out = append(out, child)
			}
			continue
		}
		for i, item := range res.Value {
			child := t.WithVar(varName, xdm.Singleton(item))
			if c.PositionVar != nil {
				posName, perr := qname.ResolveNoDefault(*c.PositionVar, t.NS())
				if perr != nil {
					return nil, perr
				}
				child = child.WithVar(posName, xdm.Singleton(xdm.NewInteger(int64(i+1))))
			}
			out = append(out, child)
		}
	}
	return out, nil
}

func runLet(tuples []*xqenv.Env, c *ast.LetClause) ([]*xqenv.Env, *xqerr.Error) {
	out := make([]*xqenv.Env, 0, len(tuples))
	for _, t := range tuples {
		res := Eval(t, RootContext(), c.In)
		if res.Failed() {
			return nil, res.Err
		}
		varName, err := qname.ResolveNoDefault(c.Var, t.NS())
		if err != nil {
			return nil, err
		}
		out = append(out, t.WithVar(varName, res.Value))
	}
	return out, nil
}

func runWhere(tuples []*xqenv.Env, c *ast.WhereClause) ([]*xqenv.Env, *xqerr.Error) {
	out := make([]*xqenv.Env, 0, len(tuples))
	for _, t := range tuples {
		res := Eval(t, RootContext(), c.Cond)
		if res.Failed() {
			return nil, res.Err
		}
		keep, err := EffectiveBooleanValue(res.Value)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, t)
		}
	}
	return out, nil
}

func runOrderBy(tuples []*xqenv.Env, c *ast.OrderByClause) ([]*xqenv.Env, *xqerr.Error) {
	type row struct {
		env  *xqenv.Env
		keys []xdm.Atomic
		abs  []bool // true when a key is the empty sequence
	}
	rows := make([]row, len(tuples))
	for i, t := range tuples {
		r := row{env: t, keys: make([]xdm.Atomic, len(c.Keys)), abs: make([]bool, len(c.Keys))}
		for k, key := range c.Keys {
			res := Eval(t, RootContext(), key.Expr)
			if res.Failed() {
				return nil, res.Err
			}
			if len(res.Value) == 0 {
				r.abs[k] = true
				continue
			}
			a, err := AtomizeItem(t, res.Value[0])
			if err != nil {
				return nil, err
			}
			r.keys[k] = a
		}
		rows[i] = r
	}
	var sortErr *xqerr.Error
	sort.SliceStable(rows, func(i, j int) bool {
		for k, key := range c.Keys {
			if rows[i].abs[k] || rows[j].abs[k] {
				if rows[i].abs[k] == rows[j].abs[k] {
					continue
				}
				if key.EmptyLeast {
					return rows[i].abs[k]
				}
				return rows[j].abs[k]
			}
			lt, err := xdm.ValueCompare("lt", rows[i].keys[k], rows[j].keys[k])
			if err != nil {
				sortErr = err
				return false
			}
			if lt {
				return !key.Descending
			}
			gt, err := xdm.ValueCompare("gt", rows[i].keys[k], rows[j].keys[k])
			if err != nil {
				sortErr = err
				return false
			}
			if gt {
				return key.Descending
			}
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	out := make([]*xqenv.Env, len(rows))
	for i, r := range rows {
		out[i] = r.env
	}
	return out, nil
}
