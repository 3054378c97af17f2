package parse

import (
	"strings"

	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xqerr"
)

var forwardAxisNames = map[string]ast.Axis{
	"child":              ast.AxisChild,
	"descendant":         ast.AxisDescendant,
	"descendant-or-self": ast.AxisDescendantOrSelf,
	"self":               ast.AxisSelf,
	"attribute":          ast.AxisAttribute,
	"following-sibling":  ast.AxisFollowingSibling,
	"following":          ast.AxisFollowing,
}

var reverseAxisNames = map[string]ast.Axis{
	"parent":             ast.AxisParent,
	"ancestor":           ast.AxisAncestor,
	"ancestor-or-self":   ast.AxisAncestorOrSelf,
	"preceding-sibling":  ast.AxisPrecedingSibling,
	"preceding":          ast.AxisPreceding,
}

// pathExprTop parses spec.md S4.4's PathExpr: a leading "/" or "//", or
// a bare RelativePathExpr starting from the context item or, in the
// (supplemented) enhanced-path case, from an arbitrary PostfixExpr
// result.
func (s *state) pathExprTop() (ast.Expr, *xqerr.Error) {
	if s.lit("//") {
		steps, err := s.relativeSteps(true)
		if err != nil {
			return nil, err
		}
		return &ast.PathExpr{Initial: ast.InitialRootDescendantOrSelf, Steps: steps}, nil
	}
	if r0(s) == '/' {
		save := s.pos
		s.nextRune()
		mark := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		if !s.canStartStep() {
			s.reset(mark)
			return &ast.PathExpr{Initial: ast.InitialRoot}, nil
		}
		s.reset(save + 1)
		steps, err := s.relativeSteps(false)
		if err != nil {
			return nil, err
		}
		return &ast.PathExpr{Initial: ast.InitialRoot, Steps: steps}, nil
	}
	return s.relativePathExpr()
}

// relativePathExpr parses a path not anchored by a leading slash: the
// first component may be a full axis step, or (the enhanced-path case)
// an arbitrary postfix expression such as a variable reference or
// function call that subsequent "/"-separated axis steps apply to.
func (s *state) relativePathExpr() (ast.Expr, *xqerr.Error) {
	mark := s.mark()
	if s.canStartAxisStep() {
		steps, err := s.relativeSteps(false)
		if err != nil {
			return nil, err
		}
		if len(steps) == 1 {
			return &ast.PathExpr{Initial: ast.InitialContext, Steps: steps}, nil
		}
		return &ast.PathExpr{Initial: ast.InitialContext, Steps: steps}, nil
	}
	s.reset(mark)
	base, err := s.postfixExpr()
	if err != nil {
		return nil, err
	}
	m2 := s.mark()
	if err := s.ws(); err != nil {
		return nil, err
	}
	descendant := false
	switch {
	case s.lit("//"):
		descendant = true
	case r0(s) == '/':
		s.nextRune()
	default:
		s.reset(m2)
		return base, nil
	}
	steps, err := s.relativeSteps(descendant)
	if err != nil {
		return nil, err
	}
	return &ast.PathExpr{StartExpr: base, Steps: steps}, nil
}

// relativeSteps parses one or more axis steps separated by "/" or "//".
// leadingDoubleSlash indicates the first step is reached via "//" (an
// implicit descendant-or-self::node() step), matching the XQuery
// grammar's desugaring of "//" to "/descendant-or-self::node()/".
func (s *state) relativeSteps(leadingDoubleSlash bool) ([]ast.Step, *xqerr.Error) {
	var steps []ast.Step
	if leadingDoubleSlash {
		steps = append(steps, ast.Step{Axis: ast.AxisDescendantOrSelf, Test: ast.NodeTest{Kind: ast.TestKind, KindTest: ast.KindAnyKind}})
	}
	first, err := s.axisStep()
	if err != nil {
		return nil, err
	}
	steps = append(steps, first)
	for {
		mark := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		dbl := false
		switch {
		case s.lit("//"):
			dbl = true
		case r0(s) == '/':
			s.nextRune()
		default:
			s.reset(mark)
			return steps, nil
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		if dbl {
			steps = append(steps, ast.Step{Axis: ast.AxisDescendantOrSelf, Test: ast.NodeTest{Kind: ast.TestKind, KindTest: ast.KindAnyKind}})
		}
		st, err := s.axisStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
}

// canStartStep reports whether the upcoming input can begin a
// RelativePathExpr, used to disambiguate a lone "/" (root) from "/"
// followed by a path.
func (s *state) canStartStep() bool {
	return s.canStartAxisStep() || s.canStartPrimary()
}

func (s *state) canStartAxisStep() bool {
	rest := s.rest()
	if len(rest) == 0 {
		return false
	}
	switch r0(s) {
	case '@', '*':
		return true
	case '.':
		// A lone "." is the context item, parsed by primaryExpr; only ".."
		// is an abbreviated step.
		return strings.HasPrefix(rest, "..")
	}
	for name := range forwardAxisNames {
		if hasKeywordPrefix(rest, name+"::") {
			return true
		}
	}
	for name := range reverseAxisNames {
		if hasKeywordPrefix(rest, name+"::") {
			return true
		}
	}
	name, ok := s.ncNamePeek()
	if !ok {
		return false
	}
	// A bare name immediately followed by "(" is a function call, not a
	// name test - unless it's a reserved kind-test name, which is still
	// an axis step (e.g. `element(...)`, `text()`). A computed-constructor
	// keyword whose name part is followed by "{" (`text {`,
	// `element(a) {`) starts a computed constructor, not a step.
	after := strings.TrimLeft(rest[len(name):], " \t\r\n")
	if _, isCC := computedConstructorKeywords[name]; isCC {
		if strings.HasPrefix(after, "{") {
			return false
		}
		if closeAt := strings.IndexByte(after, ')'); strings.HasPrefix(after, "(") && closeAt >= 0 &&
			strings.HasPrefix(strings.TrimLeft(after[closeAt+1:], " \t\r\n"), "{") {
			return false
		}
	}
	if strings.HasPrefix(after, "(") {
		_, isKind := kindTestNames[name]
		return isKind
	}
	return true
}

func (s *state) canStartPrimary() bool {
	r := r0(s)
	switch {
	case r == '$', r == '(', r == '"', r == '\'', r == '<', isDigit(r):
		return true
	}
	_, ok := s.ncNamePeek()
	return ok
}

func hasKeywordPrefix(s, kw string) bool {
	if len(s) < len(kw) {
		return false
	}
	return s[:len(kw)] == kw
}

// ncNamePeek reports whether the input starts with an NCName without
// consuming it.
func (s *state) ncNamePeek() (string, bool) {
	save := s.pos
	name, ok := s.ncName()
	s.pos = save
	return name, ok
}

// axisStep parses one `(axis, test, predicates*)` triple: an explicit
// "axis::" form, an abbreviation ("@", ".", ".."), or a bare node test
// defaulting to the child axis.
func (s *state) axisStep() (ast.Step, *xqerr.Error) {
	// Bare "." (not part of "..") is the self::node() abbreviation and
	// fully determines both axis and test.
	if r0(s) == '.' {
		save := s.pos
		s.nextRune()
		if r0(s) != '.' {
			preds, err := s.predicateList()
			if err != nil {
				return ast.Step{}, err
			}
			return ast.Step{Axis: ast.AxisSelf, Test: ast.NodeTest{Kind: ast.TestKind, KindTest: ast.KindAnyKind}, Predicates: preds}, nil
		}
		s.pos = save
	}
	axis, ok := s.tryExplicitAxis()
	if !ok {
		axis, ok = s.tryAbbreviatedAxis()
		if !ok {
			axis = ast.AxisChild
		}
	}
	test, err := s.nodeTest(axis)
	if err != nil {
		return ast.Step{}, err
	}
	preds, err := s.predicateList()
	if err != nil {
		return ast.Step{}, err
	}
	return ast.Step{Axis: axis, Test: test, Predicates: preds}, nil
}

func (s *state) tryExplicitAxis() (ast.Axis, bool) {
	mark := s.mark()
	for name, axis := range forwardAxisNames {
		if s.lit(name + "::") {
			return axis, true
		}
	}
	for name, axis := range reverseAxisNames {
		if s.lit(name + "::") {
			return axis, true
		}
	}
	s.reset(mark)
	return 0, false
}

func (s *state) tryAbbreviatedAxis() (ast.Axis, bool) {
	if s.lit("..") {
		return ast.AxisParent, true
	}
	if s.lit("@") {
		return ast.AxisAttribute, true
	}
	return 0, false
}

// nodeTest parses a NameTest or KindTest. The bare "." self-axis
// abbreviation is handled directly by axisStep, before this is reached.
func (s *state) nodeTest(axis ast.Axis) (ast.NodeTest, *xqerr.Error) {
	if s.lit("*") {
		if s.lit(":") {
			local, ok := s.ncName()
			if !ok {
				return ast.NodeTest{}, xqerr.New(xqerr.XPST0003, "expected local name after '*:' at offset %d", s.pos)
			}
			return ast.NodeTest{Kind: ast.TestName, Name: qname.QName{Prefix: "*", Local: local}}, nil
		}
		return ast.NodeTest{Kind: ast.TestName, Name: qname.QName{Prefix: "*", Local: "*"}}, nil
	}
	if kt, ok, err := s.tryKindTest(); ok || err != nil {
		return kt, err
	}
	name, ok := s.eqName()
	if !ok {
		return ast.NodeTest{}, xqerr.New(xqerr.XPST0003, "expected node test at offset %d", s.pos)
	}
	if name.Local == "*" {
		return ast.NodeTest{Kind: ast.TestName, Name: qname.QName{Prefix: name.Prefix, Local: "*"}}, nil
	}
	return ast.NodeTest{Kind: ast.TestName, Name: name}, nil
}

var kindTestNames = map[string]ast.KindTestKind{
	"document-node":          ast.KindDocumentNode,
	"element":                ast.KindElementNode,
	"attribute":               ast.KindAttributeNode,
	"schema-element":          ast.KindSchemaElement,
	"schema-attribute":        ast.KindSchemaAttribute,
	"processing-instruction":  ast.KindPINode,
	"comment":                 ast.KindCommentNode,
	"text":                    ast.KindTextNode,
	"namespace-node":          ast.KindNamespaceNode,
	"node":                    ast.KindAnyKind,
}

// tryKindTest parses one of the KindTest alternatives from spec.md
// S4.4's ItemType grammar, e.g. `element()`, `text()`, `node()`,
// `processing-instruction("target")`.
func (s *state) tryKindTest() (ast.NodeTest, bool, *xqerr.Error) {
	mark := s.mark()
	name, ok := s.ncNamePeek()
	if !ok {
		return ast.NodeTest{}, false, nil
	}
	kind, known := kindTestNames[name]
	if !known {
		return ast.NodeTest{}, false, nil
	}
	save := s.pos
	s.ncName()
	if err := s.ws(); err != nil {
		return ast.NodeTest{}, true, err
	}
	if !s.lit("(") {
		s.reset(mark)
		return ast.NodeTest{}, false, nil
	}
	if err := s.ws(); err != nil {
		return ast.NodeTest{}, true, err
	}
	piName := ""
	if kind == ast.KindPINode {
		if lit, err, hadLit := s.stringLiteral(); hadLit {
			if err != nil {
				return ast.NodeTest{}, true, err
			}
			piName = lit.Text
		} else if nm, ok := s.ncNamePeek(); ok {
			s.ncName()
			piName = nm
		}
	}
	if err := s.ws(); err != nil {
		return ast.NodeTest{}, true, err
	}
	if !s.lit(")") {
		return ast.NodeTest{}, true, xqerr.New(xqerr.XPST0003, "expected ')' closing kind test at offset %d", s.pos)
	}
	_ = save
	return ast.NodeTest{Kind: ast.TestKind, KindTest: kind, PIName: piName}, true, nil
}

// predicateList parses zero or more `[Expr]` predicates.
func (s *state) predicateList() ([]ast.Expr, *xqerr.Error) {
	var preds []ast.Expr
	for {
		mark := s.mark()
		if err := s.ws(); err != nil {
			return nil, err
		}
		if !s.lit("[") {
			s.reset(mark)
			return preds, nil
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		e, err := s.expr()
		if err != nil {
			return nil, err
		}
		if err := s.ws(); err != nil {
			return nil, err
		}
		if !s.lit("]") {
			return nil, xqerr.New(xqerr.XPST0003, "expected ']' closing predicate at offset %d", s.pos)
		}
		preds = append(preds, e)
	}
}
