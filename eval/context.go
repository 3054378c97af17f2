// Package eval implements the expression-tree walker of spec.md S4.5:
// every ast.Expr node evaluates under (env, dynamic_context) and returns
// (env', value), exactly as spec.md S3 describes the eval contract.
// Kept separate from package ast per ast's own doc comment, so the data
// definitions stay free of the evaluator's xqenv/xdm/xtree dependencies.
//
// Grounded on the teacher's xpath/context.go (the "context" object a
// machine runs against: context node, position, size, stacked
// nodesets) and xpath/machine.go (the Result wrapper around a run's
// outcome), generalized from XPath 1.0's single context-node model to
// XDM's full dynamic context plus the typed Outcome{Value,Err} result
// spec.md S7 calls for ("every operation returns a typed result").
package eval

import (
	"github.com/oss-xquery/xq31/xdm"
	"github.com/oss-xquery/xq31/xqenv"
	"github.com/oss-xquery/xq31/xqerr"
)

// DynamicContext is spec.md S3's "(context_item, position?, last?,
// initial_node_sequence?)": created per step, ephemeral, never shared
// across expression siblings except as explicitly threaded by the
// evaluator.
type DynamicContext struct {
	HasItem  bool
	Item     xdm.Item
	Position int // 1-based; meaningful only when HasItem
	Last     int
}

// WithItem returns a dynamic context with Item/Position/Last set,
// leaving the receiver (and any other sibling context) untouched -
// matching spec.md S3's "ephemeral; never shared ... except as
// explicitly threaded by the evaluator".
func (d DynamicContext) WithItem(it xdm.Item, pos, last int) DynamicContext {
	return DynamicContext{HasItem: true, Item: it, Position: pos, Last: last}
}

// RootContext is the dynamic context of a module's top-level query
// body: no context item, matching spec.md S4.5's XPDY0002 ("context
// item absent") for any expression that dereferences "." before one has
// been established by a path step or predicate.
func RootContext() DynamicContext { return DynamicContext{} }

// Outcome is the typed result every operation returns, per spec.md S7:
// "any operation returns a typed result {ok, value} | {err, (code,
// message)}". Err nil means ok.
type Outcome struct {
	Value xdm.Sequence
	Err   *xqerr.Error
}

func Ok(v xdm.Sequence) Outcome       { return Outcome{Value: v} }
func Fail(err *xqerr.Error) Outcome   { return Outcome{Err: err} }
func One(it xdm.Item) Outcome         { return Outcome{Value: xdm.Singleton(it)} }
func EmptyOutcome() Outcome           { return Outcome{Value: xdm.Empty()} }

func (o Outcome) Failed() bool { return o.Err != nil }

// evalCtx holds the environment (for variable/function/namespace lookups
// and the tree-builder handle); it carries no other state. The tree
// reader is built on demand by Reader(env).
type evalCtx struct {
	env *xqenv.Env
}
