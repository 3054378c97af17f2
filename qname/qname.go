// Package qname implements XQuery QNames and their resolution against a
// namespace scope, per spec.md S3 "QName".
package qname

import (
	"github.com/oss-xquery/xq31/namespace"
	"github.com/oss-xquery/xq31/xqerr"
)

// QName is the lexical form as the parser sees it: an optional prefix
// plus a local part. It carries no namespace information until resolved.
type QName struct {
	Prefix string // "" if unprefixed
	Local  string
}

func (q QName) String() string {
	if q.Prefix == "" {
		return q.Local
	}
	return q.Prefix + ":" + q.Local
}

// Resolved is a QName after prefix resolution: a namespace URI (possibly
// empty) plus the local part. Two Resolved values are the "same name" by
// value equality, which is exactly what function-registry and variable
// lookup keys use.
type Resolved struct {
	URI   string
	Local string
}

func (r Resolved) String() string {
	if r.URI == "" {
		return r.Local
	}
	return "{" + r.URI + "}" + r.Local
}

// Equal reports whether two resolved names denote the same QName.
func (r Resolved) Equal(o Resolved) bool {
	return r.URI == o.URI && r.Local == o.Local
}

// Resolve resolves q against scope, applying the element-name default
// when q is unprefixed. Used for element/attribute/type names.
func Resolve(q QName, scope *namespace.Scope) (Resolved, *xqerr.Error) {
	uri, err := scope.Resolve(q.Prefix, q.Local, namespace.ElementDefault)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{URI: uri, Local: q.Local}, nil
}

// ResolveFunction resolves q against scope using the function-name
// default namespace for unprefixed names, per spec.md S3 "resolution ...
// absent prefix resolves against a context-dependent default (element vs
// function differ)".
func ResolveFunction(q QName, scope *namespace.Scope) (Resolved, *xqerr.Error) {
	uri, err := scope.Resolve(q.Prefix, q.Local, namespace.FunctionDefault)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{URI: uri, Local: q.Local}, nil
}

// ResolveNoDefault resolves q against scope without applying any default
// for unprefixed names (used for type names in SequenceType, where an
// unprefixed name is a syntax error rather than defaulted).
func ResolveNoDefault(q QName, scope *namespace.Scope) (Resolved, *xqerr.Error) {
	if q.Prefix == "" {
		return Resolved{URI: "", Local: q.Local}, nil
	}
	uri, err := scope.Resolve(q.Prefix, q.Local, namespace.NoDefault)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{URI: uri, Local: q.Local}, nil
}
