package eval

import (
	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/dln"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xdm"
	"github.com/oss-xquery/xq31/xqenv"
	"github.com/oss-xquery/xq31/xqerr"
	"github.com/oss-xquery/xq31/xtree"
)

// EvalDirectElementConstructor and EvalComputedConstructor implement
// spec.md S4.5's "Node construction": the outermost constructor in a
// nested chain owns the tree-builder handle for the whole expression
// (xqenv.BuilderHandle), so a textually-nested constructor
// (`<a>{<b/>}</a>`) builds directly into the same tree as its parent
// rather than allocating a second tree and copying across - that
// copy-by-reference path (Builder.LinkForeign) is reserved for
// genuinely foreign content, e.g. a variable already bound to a node
// built by an earlier, independent construction.

// withBuilder runs fn against the builder currently open on env, or (if
// none is open) acquires a fresh one, brackets it with
// StartDocument/EndDocument, and releases it afterward - the "exclusive
// borrow" for the outermost call in a nested construction chain.
func withBuilder(env *xqenv.Env, fn func(b *xtree.Builder) (xtree.Ref, *xqerr.Error)) (xtree.Ref, *xqerr.Error) {
	if cur := env.Builder().Current(); cur != nil {
		return fn(cur)
	}
	b := xtree.NewBuilder(env.Trees())
	_, release := env.Builder().Acquire(b)
	defer release()
	if err := b.StartDocument(); err != nil {
		return xtree.Ref{}, err
	}
	ref, err := fn(b)
	if err != nil {
		return xtree.Ref{}, err
	}
	if err := b.EndDocument(); err != nil {
		return xtree.Ref{}, err
	}
	return ref, nil
}

// EvalDirectElementConstructor implements `<name attrs>content</name>`.
func EvalDirectElementConstructor(env *xqenv.Env, dctx DynamicContext, c *ast.DirectElementConstructor) Outcome {
	ref, err := withBuilder(env, func(b *xtree.Builder) (xtree.Ref, *xqerr.Error) {
		return buildDirectElement(env, dctx, b, c)
	})
	if err != nil {
		return Fail(err)
	}
	return One(ref)
}

func buildDirectElement(env *xqenv.Env, dctx DynamicContext, b *xtree.Builder, c *ast.DirectElementConstructor) (xtree.Ref, *xqerr.Error) {
	name, rerr := qname.Resolve(c.Name, env.NS())
	if rerr != nil {
		return xtree.Ref{}, rerr
	}
	if err := b.StartElement(name); err != nil {
		return xtree.Ref{}, err
	}
	treeID := b.Tree().ID()
	selfDLN := b.CurrentDLN()

	for _, a := range c.Attrs {
		aname, aerr := qname.Resolve(a.Name, env.NS())
		if aerr != nil {
			return xtree.Ref{}, aerr
		}
		val, verr := evalDirectValue(env, dctx, a.Value)
		if verr != nil {
			return xtree.Ref{}, verr
		}
		if err := b.Attribute(aname, val); err != nil {
			return xtree.Ref{}, err
		}
	}

	var pending string
	flush := func() *xqerr.Error {
		if pending == "" {
			return nil
		}
		err := b.Text(pending)
		pending = ""
		return err
	}
	for _, item := range c.Content {
		switch v := item.(type) {
		case *ast.DirectText:
			pending += v.Text
		case *ast.DirectCommentConstructor:
			if err := flush(); err != nil {
				return xtree.Ref{}, err
			}
			if err := b.Comment(v.Text); err != nil {
				return xtree.Ref{}, err
			}
		case *ast.DirectPIConstructor:
			if err := flush(); err != nil {
				return xtree.Ref{}, err
			}
			if err := b.PI(v.Target, v.Content); err != nil {
				return xtree.Ref{}, err
			}
		case *ast.DirectElementConstructor:
			if err := flush(); err != nil {
				return xtree.Ref{}, err
			}
			if _, err := buildDirectElement(env, dctx, b, v); err != nil {
				return xtree.Ref{}, err
			}
		case *ast.EnclosedExpr:
			res := Eval(env, dctx, v.Body)
			if res.Failed() {
				return xtree.Ref{}, res.Err
			}
			for _, it := range res.Value {
				if err := appendContentItem(b, treeID, it, &pending, flush); err != nil {
					return xtree.Ref{}, err
				}
			}
		default:
			return xtree.Ref{}, xqerr.New(xqerr.XPST0003, "unexpected direct constructor content node")
		}
	}
	if err := flush(); err != nil {
		return xtree.Ref{}, err
	}
	if err := b.EndElement(name); err != nil {
		return xtree.Ref{}, err
	}
	return xtree.NodeRef(treeID, selfDLN), nil
}

// evalDirectValue concatenates an attribute value's literal text and
// enclosed-expression parts into the attribute's string value, per
// spec.md S4.4's AttValue production: enclosed expressions atomize and
// space-join like ordinary content, but never contribute a node (an
// attribute value is always a string).
func evalDirectValue(env *xqenv.Env, dctx DynamicContext, parts []ast.Expr) (string, *xqerr.Error) {
	var out string
	for _, p := range parts {
		switch v := p.(type) {
		case *ast.DirectText:
			out += v.Text
		case *ast.EnclosedExpr:
			res := Eval(env, dctx, v.Body)
			if res.Failed() {
				return "", res.Err
			}
			atoms, err := Atomize(env, res.Value)
			if err != nil {
				return "", err
			}
			for i, a := range atoms {
				if i > 0 || out != "" {
					out += " "
				}
				out += a.Str()
			}
		}
	}
	return out, nil
}

// appendContentItem implements the content-sequence normalization rule
// for node construction: atomic values accumulate into a pending text
// run (space-joined) flushed as one text node whenever a node interrupts
// the run; a node already built into the tree under construction (same
// tree id) is left in place since the nested constructor call already
// linked it as a structural child; a node from any other tree is copied
// by reference via LinkForeign.
func appendContentItem(b *xtree.Builder, treeID uint64, it xdm.Item, pending *string, flush func() *xqerr.Error) *xqerr.Error {
	if ref, ok := it.(xtree.Ref); ok {
		if err := flush(); err != nil {
			return err
		}
		if ref.TreeID == treeID {
			return nil
		}
		return b.LinkForeign(ref)
	}
	a, ok := it.(xdm.Atomic)
	if !ok {
		return xqerr.New(xqerr.XPTY0004, "content sequence item is neither a node nor atomic")
	}
	if *pending != "" {
		*pending += " "
	}
	*pending += a.Str()
	return nil
}

// EvalComputedConstructor implements spec.md S4.4's seven computed forms:
// document, element, attribute, namespace, text, comment, processing-
// instruction.
func EvalComputedConstructor(env *xqenv.Env, dctx DynamicContext, c *ast.ComputedConstructor) Outcome {
	if c.Kind == ast.ComputedAttribute {
		return Fail(xqerr.New(xqerr.XPTY0004, "computed attribute constructor used outside of an element constructor"))
	}
	ref, err := withBuilder(env, func(b *xtree.Builder) (xtree.Ref, *xqerr.Error) {
		return buildComputed(env, dctx, b, c)
	})
	if err != nil {
		return Fail(err)
	}
	return One(ref)
}

func resolveComputedName(env *xqenv.Env, dctx DynamicContext, c *ast.ComputedConstructor, defaultElem bool) (qname.Resolved, *xqerr.Error) {
	if c.Name != nil {
		if defaultElem {
			return qname.Resolve(*c.Name, env.NS())
		}
		return qname.ResolveNoDefault(*c.Name, env.NS())
	}
	res := Eval(env, dctx, c.NameExpr)
	if res.Failed() {
		return qname.Resolved{}, res.Err
	}
	if len(res.Value) != 1 {
		return qname.Resolved{}, xqerr.New(xqerr.XPTY0004, "computed constructor name must be a single xs:QName or xs:string")
	}
	a, err := AtomizeItem(env, res.Value[0])
	if err != nil {
		return qname.Resolved{}, err
	}
	switch v := a.(type) {
	case xdm.QNameValue:
		return v.V, nil
	case xdm.StringValue:
		return qname.Resolved{Local: v.V}, nil
	}
	return qname.Resolved{}, xqerr.New(xqerr.XPTY0004, "computed constructor name must be an xs:QName or xs:string")
}

// resolveNamespaceBinding evaluates a `namespace (NCName|{expr}) { uriExpr }`
// computed constructor's prefix and URI, the namespace counterpart of
// resolveComputedName - the prefix is an NCName or an xs:string, never a
// QName, so it does not go through qname.Resolve.
func resolveNamespaceBinding(env *xqenv.Env, dctx DynamicContext, c *ast.ComputedConstructor) (prefix, uri string, err *xqerr.Error) {
	if c.Name != nil {
		prefix = c.Name.Local
	} else {
		res := Eval(env, dctx, c.NameExpr)
		if res.Failed() {
			return "", "", res.Err
		}
		if len(res.Value) != 1 {
			return "", "", xqerr.New(xqerr.XPTY0004, "computed namespace constructor prefix must be a single xs:string")
		}
		a, aerr := AtomizeItem(env, res.Value[0])
		if aerr != nil {
			return "", "", aerr
		}
		s, ok := a.(xdm.StringValue)
		if !ok {
			return "", "", xqerr.New(xqerr.XPTY0004, "computed namespace constructor prefix must be an xs:string")
		}
		prefix = s.V
	}
	uri, uerr := computedContentString(env, dctx, c.Content)
	if uerr != nil {
		return "", "", uerr
	}
	return prefix, uri, nil
}

func computedContentString(env *xqenv.Env, dctx DynamicContext, content []ast.Expr) (string, *xqerr.Error) {
	if len(content) == 0 {
		return "", nil
	}
	res := Eval(env, dctx, content[0])
	if res.Failed() {
		return "", res.Err
	}
	atoms, err := Atomize(env, res.Value)
	if err != nil {
		return "", err
	}
	var out string
	for i, a := range atoms {
		if i > 0 {
			out += " "
		}
		out += a.Str()
	}
	return out, nil
}

// flattenContent undoes the parser's single-slot convention (cc.Content
// is always length <= 1, with a multi-item comma expression collapsed
// into one *ast.SequenceExpr) so a content loop can inspect each
// top-level item directly, e.g. to recognize a nested attribute or
// namespace computed constructor among several comma-separated items.
func flattenContent(content []ast.Expr) []ast.Expr {
	if len(content) == 1 {
		if seq, ok := content[0].(*ast.SequenceExpr); ok {
			return seq.Items
		}
	}
	return content
}

func buildComputed(env *xqenv.Env, dctx DynamicContext, b *xtree.Builder, c *ast.ComputedConstructor) (xtree.Ref, *xqerr.Error) {
	switch c.Kind {
	case ast.ComputedDocument:
		treeID := b.Tree().ID()
		var pending string
		flush := func() *xqerr.Error {
			if pending == "" {
				return nil
			}
			err := b.Text(pending)
			pending = ""
			return err
		}
		for _, ce := range c.Content {
			res := Eval(env, dctx, ce)
			if res.Failed() {
				return xtree.Ref{}, res.Err
			}
			for _, it := range res.Value {
				if err := appendContentItem(b, treeID, it, &pending, flush); err != nil {
					return xtree.Ref{}, err
				}
			}
		}
		if err := flush(); err != nil {
			return xtree.Ref{}, err
		}
		return xtree.NodeRef(treeID, dln.Document()), nil

	case ast.ComputedElement:
		name, err := resolveComputedName(env, dctx, c, true)
		if err != nil {
			return xtree.Ref{}, err
		}
		if err := b.StartElement(name); err != nil {
			return xtree.Ref{}, err
		}
		treeID := b.Tree().ID()
		selfDLN := b.CurrentDLN()
		var pending string
		flush := func() *xqerr.Error {
			if pending == "" {
				return nil
			}
			e := b.Text(pending)
			pending = ""
			return e
		}
		for _, ce := range flattenContent(c.Content) {
			if attr, ok := ce.(*ast.ComputedConstructor); ok && attr.Kind == ast.ComputedAttribute {
				aname, aerr := resolveComputedName(env, dctx, attr, false)
				if aerr != nil {
					return xtree.Ref{}, aerr
				}
				val, verr := computedContentString(env, dctx, attr.Content)
				if verr != nil {
					return xtree.Ref{}, verr
				}
				if err := b.Attribute(aname, val); err != nil {
					return xtree.Ref{}, err
				}
				continue
			}
			if ns, ok := ce.(*ast.ComputedConstructor); ok && ns.Kind == ast.ComputedNamespace {
				prefix, uri, nerr := resolveNamespaceBinding(env, dctx, ns)
				if nerr != nil {
					return xtree.Ref{}, nerr
				}
				if err := b.Namespace(prefix, uri); err != nil {
					return xtree.Ref{}, err
				}
				continue
			}
			res := Eval(env, dctx, ce)
			if res.Failed() {
				return xtree.Ref{}, res.Err
			}
			for _, it := range res.Value {
				if err := appendContentItem(b, treeID, it, &pending, flush); err != nil {
					return xtree.Ref{}, err
				}
			}
		}
		if err := flush(); err != nil {
			return xtree.Ref{}, err
		}
		if err := b.EndElement(name); err != nil {
			return xtree.Ref{}, err
		}
		return xtree.NodeRef(treeID, selfDLN), nil

	case ast.ComputedAttribute:
		return xtree.Ref{}, xqerr.New(xqerr.XPTY0004, "computed attribute constructor used outside of an element constructor")

	case ast.ComputedNamespace:
		return xtree.Ref{}, xqerr.New(xqerr.XPTY0004, "computed namespace constructor used outside of an element constructor")

	case ast.ComputedText:
		s, err := computedContentString(env, dctx, c.Content)
		if err != nil {
			return xtree.Ref{}, err
		}
		if err := b.Text(s); err != nil {
			return xtree.Ref{}, err
		}
		return xtree.NodeRef(b.Tree().ID(), b.LastChildDLN()), nil

	case ast.ComputedComment:
		s, err := computedContentString(env, dctx, c.Content)
		if err != nil {
			return xtree.Ref{}, err
		}
		if err := b.Comment(s); err != nil {
			return xtree.Ref{}, err
		}
		return xtree.NodeRef(b.Tree().ID(), b.LastChildDLN()), nil

	case ast.ComputedPI:
		name, err := resolveComputedName(env, dctx, c, false)
		if err != nil {
			return xtree.Ref{}, err
		}
		s, cerr := computedContentString(env, dctx, c.Content)
		if cerr != nil {
			return xtree.Ref{}, cerr
		}
		if err := b.PI(name.Local, s); err != nil {
			return xtree.Ref{}, err
		}
		return xtree.NodeRef(b.Tree().ID(), b.LastChildDLN()), nil
	}
	return xtree.Ref{}, xqerr.New(xqerr.XPST0003, "unknown computed constructor kind")
}
