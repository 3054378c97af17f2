// Package namespace implements the prefix<->URI registry described in
// spec.md S4.1. Resolution never silently succeeds on an unbound
// prefix: callers get xqerr.XPST0081.
//
// The Scope type is a persistent, copy-on-add map layered the way the
// teacher's parse/symtab.go layers declaration scopes: adding a binding
// never mutates the parent, so a child query body can shadow a
// prolog-declared prefix without the declaring scope seeing the change.
package namespace

import "github.com/oss-xquery/xq31/xqerr"

// Reserved namespace URIs, fixed for the life of the engine.
const (
	XML   = "http://www.w3.org/XML/1998/namespace"
	XS    = "http://www.w3.org/2001/XMLSchema"
	XSI   = "http://www.w3.org/2001/XMLSchema-instance"
	FN    = "http://www.w3.org/2005/xpath-functions"
	MAP   = "http://www.w3.org/2005/xpath-functions/map"
	ARRAY = "http://www.w3.org/2005/xpath-functions/array"
	MATH  = "http://www.w3.org/2005/xpath-functions/math"
	LOCAL = "http://www.w3.org/2005/xquery-local-functions"
	ERR   = "http://www.w3.org/2005/xqt-errors"
)

var reservedSeed = map[string]string{
	"xml":   XML,
	"xs":    XS,
	"xsi":   XSI,
	"fn":    FN,
	"map":   MAP,
	"array": ARRAY,
	"math":  MATH,
	"local": LOCAL,
	"err":   ERR,
}

// Reserved reports whether prefix is one of the nine seed bindings that
// XQST0070 forbids redeclaring to a different URI.
func Reserved(prefix string) (uri string, ok bool) {
	uri, ok = reservedSeed[prefix]
	return
}

// Scope binds prefixes to URIs and tracks the two context-dependent
// defaults (element and function namespace).
type Scope struct {
	parent      *Scope
	bindings    map[string]string // only this frame's own additions
	defaultElem *string           // nil means "inherit from parent"
	defaultFn   *string
}

// NewRoot builds the outermost scope, seeded with the nine reserved
// prefixes and the fn: default function namespace spec.md S4.1 requires.
func NewRoot() *Scope {
	fn := FN
	elem := ""
	bindings := make(map[string]string, len(reservedSeed))
	for k, v := range reservedSeed {
		bindings[k] = v
	}
	return &Scope{bindings: bindings, defaultElem: &elem, defaultFn: &fn}
}

// Child returns a new scope layered on top of s; additions made to the
// child are invisible to s.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, bindings: make(map[string]string)}
}

// Add binds prefix to uri in a NEW child scope and returns it, leaving s
// untouched - this is how prolog namespace declarations thread forward
// without mutating sibling declarations evaluated earlier in the phase.
func (s *Scope) Add(prefix, uri string) *Scope {
	child := s.Child()
	child.bindings[prefix] = uri
	return child
}

// WithDefaultElement returns a child scope with the default element
// namespace set to uri.
func (s *Scope) WithDefaultElement(uri string) *Scope {
	child := s.Child()
	child.defaultElem = &uri
	return child
}

// WithDefaultFunction returns a child scope with the default function
// namespace set to uri.
func (s *Scope) WithDefaultFunction(uri string) *Scope {
	child := s.Child()
	child.defaultFn = &uri
	return child
}

// ByPrefix walks the scope chain looking for prefix, innermost first.
func (s *Scope) ByPrefix(prefix string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if uri, ok := cur.bindings[prefix]; ok {
			return uri, true
		}
	}
	return "", false
}

// DefaultElement returns the nearest-enclosing default element namespace.
func (s *Scope) DefaultElement() string {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.defaultElem != nil {
			return *cur.defaultElem
		}
	}
	return ""
}

// DefaultFunction returns the nearest-enclosing default function namespace.
func (s *Scope) DefaultFunction() string {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.defaultFn != nil {
			return *cur.defaultFn
		}
	}
	return FN
}

// Resolve turns (prefix, local) into a URI, applying forKind to select
// which default applies when prefix is empty. forKind should be either
// ElementDefault or FunctionDefault.
func (s *Scope) Resolve(prefix, local string, forKind DefaultKind) (uri string, err *xqerr.Error) {
	if prefix == "" {
		switch forKind {
		case ElementDefault:
			return s.DefaultElement(), nil
		case FunctionDefault:
			return s.DefaultFunction(), nil
		default:
			return "", nil
		}
	}
	uri, ok := s.ByPrefix(prefix)
	if !ok {
		return "", xqerr.New(xqerr.XPST0081, "unbound namespace prefix %q", prefix)
	}
	return uri, nil
}

// DefaultKind selects which context-dependent default Resolve falls back
// to for an unprefixed name.
type DefaultKind int

const (
	ElementDefault DefaultKind = iota
	FunctionDefault
	NoDefault
)
