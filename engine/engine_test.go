package engine_test

import (
	"testing"

	"github.com/oss-xquery/xq31/engine"
	"github.com/oss-xquery/xq31/testutils/assert"
	"github.com/oss-xquery/xq31/xqerr"
)

func run(t *testing.T, sources map[string]string, script string) string {
	t.Helper()
	r := engine.New(nil).Eval(sources, script)
	if r.Err != nil {
		t.Fatalf("unexpected error %s: %s", r.Err.Code, r.Err.Message)
	}
	out, serr := r.Serialize()
	if serr != nil {
		t.Fatalf("serialize: %s: %s", serr.Code, serr.Message)
	}
	return out
}

func TestArithmetic(t *testing.T) {
	assert.CheckStringDivergence(t, "7", run(t, nil, "3 + 4"))
}

func TestStringConcat(t *testing.T) {
	assert.CheckStringDivergence(t, "abcdef", run(t, nil, `"abc" || "def"`))
}

func TestFlworBinding(t *testing.T) {
	out := run(t, nil, `for $x in (1, 2, 3) return $x * $x`)
	assert.CheckStringDivergence(t, "1 4 9", out)
}

func TestPathOverSource(t *testing.T) {
	sources := map[string]string{"doc": `<root><a>1</a><a>2</a></root>`}
	out := run(t, sources, "for $a in $doc/root/a return data($a)")
	assert.CheckStringDivergence(t, "1 2", out)
}

func TestEvalOnSpecRejectsUnsupported(t *testing.T) {
	r := engine.New(nil).EvalOnSpec("XQ10+", nil, "1")
	if r.Err == nil {
		t.Fatalf("expected rejection of unsupported spec string")
	}
	if r.Err.Code != xqerr.XPST0003 {
		t.Fatalf("expected XPST0003, got %s", r.Err.Code)
	}
}

func TestEvalOnSpecAcceptsXQ31(t *testing.T) {
	r := engine.New(nil).EvalOnSpec("XQ31+", nil, "1 + 1")
	if r.Err != nil {
		t.Fatalf("unexpected error %s: %s", r.Err.Code, r.Err.Message)
	}
}

func TestDivisionByZeroError(t *testing.T) {
	r := engine.New(nil).Eval(nil, "1 div 0")
	if r.Err == nil {
		t.Fatalf("expected an error from division by zero")
	}
}

func TestInstanceOfAndCastable(t *testing.T) {
	assert.CheckStringDivergence(t, "true", run(t, nil, `3 instance of xs:integer`))
	assert.CheckStringDivergence(t, "true", run(t, nil, `"42" castable as xs:integer`))
	assert.CheckStringDivergence(t, "false", run(t, nil, `"abc" castable as xs:integer`))
}

func TestQuantifiedExpressions(t *testing.T) {
	assert.CheckStringDivergence(t, "true", run(t, nil, `some $x in (1, 2, 3) satisfies $x = 2`))
	assert.CheckStringDivergence(t, "false", run(t, nil, `every $x in (1, 2, 3) satisfies $x = 2`))
}

func TestSimpleMapAndArrow(t *testing.T) {
	assert.CheckStringDivergence(t, "2 4 6", run(t, nil, `(1, 2, 3) ! (. * 2)`))
	assert.CheckStringDivergence(t, "ABC", run(t, nil, `"abc" => upper-case()`))
}

func TestNestedDirectElementConstructor(t *testing.T) {
	out := run(t, nil, `<wrapper><item>{1 + 1}</item></wrapper>`)
	assert.CheckStringDivergence(t, "<wrapper><item>2</item></wrapper>", out)
}

func TestComputedAttributeWithSiblingContent(t *testing.T) {
	out := run(t, nil, `element(wrapper) { attribute(id) { "7" }, "body" }`)
	assert.CheckStringDivergence(t, `<wrapper id="7">body</wrapper>`, out)
}

func TestComputedNamespaceConstructor(t *testing.T) {
	out := run(t, nil, `element(wrapper) { namespace(p) { "http://example.com/p" }, element(child) {} }`)
	assert.CheckStringDivergence(t, `<wrapper xmlns:p="http://example.com/p"><child></child></wrapper>`, out)
}

func TestComputedNamespaceConstructorOutsideElementIsError(t *testing.T) {
	r := engine.New(nil).Eval(nil, `namespace(p) { "http://example.com/p" }`)
	if r.Err == nil {
		t.Fatalf("expected an error for a standalone namespace constructor")
	}
}

func TestUserDefinedFunction(t *testing.T) {
	out := run(t, nil, `
declare function local:square($n as xs:integer) as xs:integer { $n * $n };
local:square(5)`)
	assert.CheckStringDivergence(t, "25", out)
}
