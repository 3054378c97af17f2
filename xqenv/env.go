// Package xqenv implements the evaluator's static/lexical context:
// spec.md S3's "immutable-linked chain of scopes. Each frame holds:
// prolog options ..., namespace bindings, variable bindings
// (resolved-name -> value), function declarations, and a handle to the
// current tree-builder."
//
// Grounded on the teacher's symtab-style parent-pointer scope chain
// (referenced throughout `xpath/context.go`), generalized from a single
// variable table to the five-part frame spec.md names. Extension always
// returns a new child frame; no frame is ever mutated after its sibling
// scopes can see it, satisfying spec.md S3's "may be extended but not
// mutated in place by child expressions".
package xqenv

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/namespace"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xdm"
	"github.com/oss-xquery/xq31/xqlog"
	"github.com/oss-xquery/xq31/xtree"
)

// funcKey is the function registry key named in spec.md S4.6:
// (resolved-name, arity).
type funcKey struct {
	name  qname.Resolved
	arity int
}

// BuilderHandle is the environment's shared mutable "current
// tree-builder" slot (spec.md S3). It is shared by pointer across every
// frame descending from the Env that created it, and guarded by a mutex
// so nested construction's "exclusive borrow" rule (spec.md S5) has
// somewhere to live; between constructions it is nil and readable
// without contention.
type BuilderHandle struct {
	mu  sync.Mutex
	cur *xtree.Builder
}

// Acquire takes exclusive ownership of the handle for the duration of
// one construction step, installs b as the current builder, and
// returns a release function that restores the previous builder -
// modeling nested construction's push/pop of tree scope (spec.md S4.5
// "Node construction").
func (h *BuilderHandle) Acquire(b *xtree.Builder) (current *xtree.Builder, release func()) {
	h.mu.Lock()
	prev := h.cur
	h.cur = b
	return b, func() {
		h.cur = prev
		h.mu.Unlock()
	}
}

// Current returns the builder presently under construction, if any. It
// reads the slot without taking the mutex: during a construction the
// mutex is held by the Acquire that installed the builder, and the
// nested constructors that call Current run inside that same borrow.
func (h *BuilderHandle) Current() *xtree.Builder {
	return h.cur
}

// Env is one frame of the scope chain. The zero value is not usable;
// construct with NewRoot.
type Env struct {
	parent *Env

	ns      *namespace.Scope
	setters ast.Setters

	varName  qname.Resolved
	varVal   xdm.Sequence
	hasVar   bool

	funcs map[funcKey]*ast.FunctionDecl

	trees   *xtree.Set
	builder *BuilderHandle
	log     *logrus.Logger
}

// NewRoot creates the outermost frame: the reserved namespace seed, all
// default setters, no variables, no user functions, and a fresh tree
// arena. log is the trace sink every evaluation dispatched from this
// frame (or any of its children) logs to - a nil log is replaced with
// xqlog.Discard, matching xqlog.Or's nil-safe convention.
func NewRoot(log *logrus.Logger) *Env {
	return &Env{
		ns:      namespace.NewRoot(),
		trees:   xtree.NewSet(),
		builder: &BuilderHandle{},
		log:     xqlog.Or(log),
	}
}

// Child returns a new frame extending e, sharing e's namespace scope,
// setters, tree arena, builder handle and logger until overridden.
func (e *Env) Child() *Env {
	return &Env{parent: e, ns: e.ns, setters: e.setters, trees: e.trees, builder: e.builder, log: e.log}
}

// Log returns the frame's trace logger, matching the teacher's
// ctx.debug-gated trace sink (xpath/context.go) but always safe to call
// unconditionally - a frame never has a nil logger once built through
// NewRoot.
func (e *Env) Log() *logrus.Logger { return e.log }

// NS returns the current namespace scope.
func (e *Env) NS() *namespace.Scope { return e.ns }

// WithNamespace returns a child frame with prefix bound to uri.
func (e *Env) WithNamespace(prefix, uri string) *Env {
	c := e.Child()
	c.ns = e.ns.Add(prefix, uri)
	return c
}

// WithDefaultElementNamespace / WithDefaultFunctionNamespace override
// the unprefixed-name defaults, per spec.md S3 "absent prefix resolves
// against a context-dependent default".
func (e *Env) WithDefaultElementNamespace(uri string) *Env {
	c := e.Child()
	c.ns = e.ns.WithDefaultElement(uri)
	return c
}

func (e *Env) WithDefaultFunctionNamespace(uri string) *Env {
	c := e.Child()
	c.ns = e.ns.WithDefaultFunction(uri)
	return c
}

// Setters returns the effective prolog setters (as last declared;
// duplicate-setter rejection happens earlier, in the parser - see
// parse/prolog.go).
func (e *Env) Setters() ast.Setters { return e.setters }

// WithSetters returns a child frame with s merged over the current
// setters (non-nil fields in s win).
func (e *Env) WithSetters(s ast.Setters) *Env {
	c := e.Child()
	merged := e.setters
	if s.BoundarySpace != nil {
		merged.BoundarySpace = s.BoundarySpace
	}
	if s.Collation != nil {
		merged.Collation = s.Collation
	}
	if s.BaseURI != nil {
		merged.BaseURI = s.BaseURI
	}
	if s.Construction != nil {
		merged.Construction = s.Construction
	}
	if s.Ordering != nil {
		merged.Ordering = s.Ordering
	}
	if s.EmptyOrder != nil {
		merged.EmptyOrder = s.EmptyOrder
	}
	if s.CopyNamespaces != nil {
		merged.CopyNamespaces = s.CopyNamespaces
	}
	c.setters = merged
	return c
}

// BoundarySpace, Construction, Ordering, EmptyOrder are the four typed
// accessors SPEC_FULL.md's Environment module calls for, each resolving
// to its XQuery-defined default when unset.
func (e *Env) BoundarySpace() ast.BoundarySpaceMode {
	if e.setters.BoundarySpace != nil {
		return *e.setters.BoundarySpace
	}
	return ast.BoundarySpaceStrip
}

func (e *Env) Construction() ast.ConstructionMode {
	if e.setters.Construction != nil {
		return *e.setters.Construction
	}
	return ast.ConstructionPreserve
}

func (e *Env) Ordering() ast.OrderingMode {
	if e.setters.Ordering != nil {
		return *e.setters.Ordering
	}
	return ast.OrderingOrdered
}

func (e *Env) EmptyOrder() ast.EmptyOrderMode {
	if e.setters.EmptyOrder != nil {
		return *e.setters.EmptyOrder
	}
	return ast.EmptyOrderGreatest
}

func (e *Env) CopyNamespaces() ast.CopyNamespacesMode {
	if e.setters.CopyNamespaces != nil {
		return *e.setters.CopyNamespaces
	}
	return ast.CopyNamespacesMode{Preserve: true, Inherit: true}
}

func (e *Env) BaseURI() string {
	if e.setters.BaseURI != nil {
		return *e.setters.BaseURI
	}
	return ""
}

// WithVar returns a child frame binding name to val.
func (e *Env) WithVar(name qname.Resolved, val xdm.Sequence) *Env {
	c := e.Child()
	c.varName, c.varVal, c.hasVar = name, val, true
	return c
}

// LookupVar walks the chain from e upward for the nearest binding of
// name.
func (e *Env) LookupVar(name qname.Resolved) (xdm.Sequence, bool) {
	for f := e; f != nil; f = f.parent {
		if f.hasVar && f.varName.Equal(name) {
			return f.varVal, true
		}
	}
	return nil, false
}

// WithFunction returns a child frame additionally declaring decl, keyed
// by its resolved name and parameter count.
func (e *Env) WithFunction(name qname.Resolved, decl *ast.FunctionDecl) *Env {
	c := e.Child()
	c.funcs = map[funcKey]*ast.FunctionDecl{{name: name, arity: len(decl.Params)}: decl}
	return c
}

// LookupFunction walks the chain from e upward for a user-declared
// function matching (name, arity) exactly (spec.md S4.5 "arity must
// match the signature exactly").
func (e *Env) LookupFunction(name qname.Resolved, arity int) (*ast.FunctionDecl, bool) {
	for f := e; f != nil; f = f.parent {
		if f.funcs != nil {
			if decl, ok := f.funcs[funcKey{name: name, arity: arity}]; ok {
				return decl, true
			}
		}
	}
	return nil, false
}

// Trees returns the environment's shared tree arena.
func (e *Env) Trees() *xtree.Set { return e.trees }

// Builder returns the shared tree-builder handle.
func (e *Env) Builder() *BuilderHandle { return e.builder }
