package xqenv

import (
	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/namespace"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xqerr"
)

// BuildProlog applies a parsed Prolog to a root environment, enforcing
// the duplicate-declaration codes of spec.md S4.4/S4.6 (the at-most-once
// setter rule is enforced earlier, by the parser). It does not evaluate variable initializers or
// function bodies - that is the evaluator's job once the static
// environment exists; this only establishes bindings and checks
// static-error conditions.
func BuildProlog(root *Env, p ast.Prolog) (*Env, *xqerr.Error) {
	env := root

	seenNS := map[string]bool{}
	for _, nd := range p.Namespaces {
		if seenNS[nd.Prefix] {
			return nil, xqerr.New(xqerr.XQST0033, "duplicate namespace declaration for prefix %q", nd.Prefix)
		}
		seenNS[nd.Prefix] = true
		if _, reserved := namespace.Reserved(nd.Prefix); reserved {
			return nil, xqerr.New(xqerr.XQST0045, "cannot redeclare reserved namespace prefix %q", nd.Prefix)
		}
		env = env.WithNamespace(nd.Prefix, nd.URI)
	}
	if p.DefaultElementNamespace != nil {
		env = env.WithDefaultElementNamespace(*p.DefaultElementNamespace)
	}
	if p.DefaultFunctionNamespace != nil {
		env = env.WithDefaultFunctionNamespace(*p.DefaultFunctionNamespace)
	}

	env = env.WithSetters(p.Setters)

	seenVar := map[qname.Resolved]bool{}
	for _, vd := range p.Variables {
		rv, err := qname.Resolve(vd.Name, env.NS())
		if err != nil {
			return nil, err
		}
		if seenVar[rv] {
			return nil, xqerr.New(xqerr.XQST0049, "duplicate variable declaration %s", rv.String())
		}
		seenVar[rv] = true
		// Initializers are evaluated by the caller after BuildProlog
		// returns (engine.run, in declaration order); record an empty
		// sequence placeholder bound to the resolved name so lookups
		// succeed structurally during static checks.
		env = env.WithVar(rv, nil)
	}

	seenFn := map[qname.Resolved]map[int]bool{}
	for _, fd := range p.Functions {
		rv, err := qname.ResolveFunction(fd.Name, env.NS())
		if err != nil {
			return nil, err
		}
		if _, ok := namespace.Reserved(fd.Name.Prefix); ok && fd.Name.Prefix != "" && fd.Name.Prefix != "local" {
			return nil, xqerr.New(xqerr.XQST0045, "cannot declare a function in reserved namespace %q", fd.Name.Prefix)
		}
		if seenFn[rv] == nil {
			seenFn[rv] = map[int]bool{}
		}
		if seenFn[rv][len(fd.Params)] {
			return nil, xqerr.New(xqerr.XQST0034, "duplicate function declaration %s#%d", rv.String(), len(fd.Params))
		}
		seenFn[rv][len(fd.Params)] = true

		seenParam := map[string]bool{}
		for _, param := range fd.Params {
			if seenParam[param.Name.Local] {
				return nil, xqerr.New(xqerr.XQST0039, "duplicate parameter name %s in function %s", param.Name.Local, rv.String())
			}
			seenParam[param.Name.Local] = true
		}

		decl := fd
		env = env.WithFunction(rv, &decl)
	}

	return env, nil
}
