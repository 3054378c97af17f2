package ast

import "github.com/oss-xquery/xq31/qname"

// FlworExpr is the compiled pipe of clauses from spec.md S4.5: "FLWOR is
// compiled into a linear pipe of clauses (For | Let | Where | return)".
// Clauses is evaluated left-to-right; Return is the terminal emission.
//
// Grounded on the teacher's xpath/program.go instruction-list shape: a
// flat slice walked in order is simpler to reason about than a nested
// closure chain, and matches the "one pipe node owns its next link"
// phrasing by owning the *position*, not a literal linked pointer.
type FlworExpr struct {
	Clauses []Clause
	Return  Expr
}

func (*FlworExpr) exprNode() {}

// Clause is one FLWOR pipe element.
type Clause interface {
	clauseNode()
}

// ForClause binds Var to each item of In in turn; PositionVar, if set,
// receives the 1-based position independently per spec.md S4.5
// ("Positional variables count 1-based per For binding independently").
type ForClause struct {
	Var         qname.QName
	PositionVar *qname.QName
	In          Expr
	AllowEmpty  bool // `for $x allowing empty in ...`
}

func (*ForClause) clauseNode() {}

// LetClause binds Var once to the (unexpanded) value of In.
type LetClause struct {
	Var qname.QName
	In  Expr
}

func (*LetClause) clauseNode() {}

// WhereClause filters the current binding tuple by Cond's EBV.
type WhereClause struct {
	Cond Expr
}

func (*WhereClause) clauseNode() {}

// OrderByClause is supported as a pipe element though spec.md's FLWOR
// description names only For/Let/Where/return; XQuery 3.1 grammar
// includes it and original_source's evaluator implements it, so it is
// carried as a supplemental clause per SPEC_FULL.md's "supplement
// dropped features" rule.
type OrderByClause struct {
	Keys []OrderKey
}

func (*OrderByClause) clauseNode() {}

type OrderKey struct {
	Expr       Expr
	Descending bool
	EmptyLeast bool
}
