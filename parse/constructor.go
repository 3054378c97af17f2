package parse

import (
	"strings"

	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xqerr"
)

// directConstructor parses a direct XML constructor starting at a `<`:
// an element `<name attrs>content</name>` / `<name attrs/>`, a comment
// `<!--...-->`, or a PI `<?target content?>` (spec.md S4.4 "Direct XML
// constructors").
func (s *state) directConstructor() (ast.Expr, *xqerr.Error) {
	if strings.HasPrefix(s.rest(), "<!--") {
		return s.directComment()
	}
	if strings.HasPrefix(s.rest(), "<?") {
		return s.directPI()
	}
	if strings.HasPrefix(s.rest(), "<![CDATA[") {
		return nil, xqerr.New(xqerr.XPST0003, "CDATA section not allowed outside element content at offset %d", s.pos)
	}
	return s.directElement()
}

func (s *state) directComment() (ast.Expr, *xqerr.Error) {
	start := s.pos
	s.pos += len("<!--")
	idx := strings.Index(s.rest(), "-->")
	if idx < 0 {
		return nil, xqerr.New(xqerr.XPST0003, "unterminated comment starting at offset %d", start)
	}
	text := s.rest()[:idx]
	s.pos += idx + len("-->")
	return &ast.DirectCommentConstructor{Text: text}, nil
}

func (s *state) directPI() (ast.Expr, *xqerr.Error) {
	start := s.pos
	s.pos += len("<?")
	target, ok := s.ncName()
	if !ok {
		return nil, xqerr.New(xqerr.XPST0003, "expected PI target at offset %d", start)
	}
	var content string
	if isSpace(r0(s)) {
		s.nextRune()
		idx := strings.Index(s.rest(), "?>")
		if idx < 0 {
			return nil, xqerr.New(xqerr.XPST0003, "unterminated processing instruction starting at offset %d", start)
		}
		content = s.rest()[:idx]
		s.pos += idx
	}
	if !s.lit("?>") {
		return nil, xqerr.New(xqerr.XPST0003, "unterminated processing instruction starting at offset %d", start)
	}
	return &ast.DirectPIConstructor{Target: target, Content: content}, nil
}

func (s *state) directElement() (ast.Expr, *xqerr.Error) {
	start := s.pos
	s.nextRune() // '<'
	name, ok := s.eqName()
	if !ok {
		return nil, xqerr.New(xqerr.XPST0003, "expected element name at offset %d", start)
	}
	elem := &ast.DirectElementConstructor{Name: name}
	for {
		skipXMLSpace(s)
		if strings.HasPrefix(s.rest(), "/>") {
			s.pos += 2
			elem.SelfClosing = true
			return elem, nil
		}
		if strings.HasPrefix(s.rest(), ">") {
			s.nextRune()
			break
		}
		attrName, ok := s.eqName()
		if !ok {
			return nil, xqerr.New(xqerr.XPST0003, "expected attribute name or '>' at offset %d", s.pos)
		}
		skipXMLSpace(s)
		if !s.lit("=") {
			return nil, xqerr.New(xqerr.XPST0003, "expected '=' after attribute name at offset %d", s.pos)
		}
		skipXMLSpace(s)
		val, err := s.attributeValue()
		if err != nil {
			return nil, err
		}
		elem.Attrs = append(elem.Attrs, ast.DirectAttribute{Name: attrName, Value: val})
	}
	content, err := s.directContent(name)
	if err != nil {
		return nil, err
	}
	elem.Content = content
	return elem, nil
}

// skipXMLSpace consumes raw XML whitespace without comment awareness;
// direct-constructor tag syntax has no `(: :)` comments of its own.
func skipXMLSpace(s *state) {
	for isSpace(r0(s)) {
		s.nextRune()
	}
}

func (s *state) attributeValue() ([]ast.Expr, *xqerr.Error) {
	quote := r0(s)
	if quote != '"' && quote != '\'' {
		return nil, xqerr.New(xqerr.XPST0003, "expected quoted attribute value at offset %d", s.pos)
	}
	s.nextRune()
	var out []ast.Expr
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			out = append(out, &ast.DirectText{Text: text.String()})
			text.Reset()
		}
	}
	for {
		if s.eof() {
			return nil, xqerr.New(xqerr.XPST0003, "unterminated attribute value at offset %d", s.pos)
		}
		r := r0(s)
		switch {
		case r == quote:
			s.nextRune()
			if r0(s) == quote {
				text.WriteRune(quote)
				s.nextRune()
				continue
			}
			flush()
			return out, nil
		case r == '{':
			s.nextRune()
			if r0(s) == '{' {
				text.WriteRune('{')
				s.nextRune()
				continue
			}
			flush()
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
			if !s.lit("}") {
				return nil, xqerr.New(xqerr.XPST0003, "expected '}' at offset %d", s.pos)
			}
			out = append(out, &ast.EnclosedExpr{Body: e})
		case r == '}':
			s.nextRune()
			if r0(s) != '}' {
				return nil, xqerr.New(xqerr.XPST0003, "unmatched '}' at offset %d", s.pos)
			}
			text.WriteRune('}')
			s.nextRune()
		case r == '&':
			decoded, err := s.charReference()
			if err != nil {
				return nil, err
			}
			text.WriteString(decoded)
		default:
			text.WriteRune(r)
			s.nextRune()
		}
	}
}

// directContent parses element content up to the matching end tag:
// text runs, nested elements, enclosed expressions, comments, PIs, and
// CDATA sections (spec.md S4.4 "common content"). name is used to
// validate the closing tag (XQST0118 on mismatch).
func (s *state) directContent(name qname.QName) ([]ast.Expr, *xqerr.Error) {
	var out []ast.Expr
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			out = append(out, &ast.DirectText{Text: text.String()})
			text.Reset()
		}
	}
	for {
		if s.eof() {
			return nil, xqerr.New(xqerr.XPST0003, "unterminated element content for <%s>", name.String())
		}
		switch {
		case strings.HasPrefix(s.rest(), "</"):
			flush()
			s.pos += 2
			closeName, ok := s.eqName()
			if !ok {
				return nil, xqerr.New(xqerr.XPST0003, "expected end-tag name at offset %d", s.pos)
			}
			skipXMLSpace(s)
			if !s.lit(">") {
				return nil, xqerr.New(xqerr.XPST0003, "expected '>' closing end tag at offset %d", s.pos)
			}
			if closeName != name {
				return nil, xqerr.New(xqerr.XQST0118, "mismatched end tag </%s> for <%s>", closeName.String(), name.String())
			}
			return out, nil
		case strings.HasPrefix(s.rest(), "<![CDATA["):
			flush()
			s.pos += len("<![CDATA[")
			idx := strings.Index(s.rest(), "]]>")
			if idx < 0 {
				return nil, xqerr.New(xqerr.XPST0003, "unterminated CDATA section at offset %d", s.pos)
			}
			out = append(out, &ast.DirectText{Text: s.rest()[:idx], IsCDATA: true})
			s.pos += idx + len("]]>")
		case strings.HasPrefix(s.rest(), "<!--"):
			flush()
			c, err := s.directComment()
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		case strings.HasPrefix(s.rest(), "<?"):
			flush()
			pi, err := s.directPI()
			if err != nil {
				return nil, err
			}
			out = append(out, pi)
		case r0(s) == '<':
			flush()
			child, err := s.directElement()
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		case r0(s) == '{':
			s.nextRune()
			if r0(s) == '{' {
				text.WriteRune('{')
				s.nextRune()
				continue
			}
			flush()
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
			if !s.lit("}") {
				return nil, xqerr.New(xqerr.XPST0003, "expected '}' at offset %d", s.pos)
			}
			out = append(out, &ast.EnclosedExpr{Body: e})
		case r0(s) == '}':
			s.nextRune()
			if r0(s) != '}' {
				return nil, xqerr.New(xqerr.XPST0003, "unmatched '}' at offset %d", s.pos)
			}
			text.WriteRune('}')
			s.nextRune()
		case r0(s) == '&':
			decoded, err := s.charReference()
			if err != nil {
				return nil, err
			}
			text.WriteString(decoded)
		default:
			text.WriteRune(r0(s))
			s.nextRune()
		}
	}
}

var computedConstructorKeywords = map[string]ast.ComputedConstructorKind{
	"document":               ast.ComputedDocument,
	"element":                ast.ComputedElement,
	"attribute":               ast.ComputedAttribute,
	"namespace":              ast.ComputedNamespace,
	"text":                   ast.ComputedText,
	"comment":                ast.ComputedComment,
	"processing-instruction": ast.ComputedPI,
}

// tryComputedConstructor parses the seven computed-constructor forms of
// spec.md S4.4: `document{}`, `element(Name){}`, `attribute(Name){}`,
// `namespace(Name){}`, `text{}`, `comment{}`, `processing-instruction(Name){}`.
func (s *state) tryComputedConstructor() (ast.Expr, *xqerr.Error, bool) {
	mark := s.mark()
	name, ok := s.ncNamePeek()
	if !ok {
		return nil, nil, false
	}
	kind, ok := computedConstructorKeywords[name]
	if !ok {
		return nil, nil, false
	}
	s.ncName()
	if err := s.ws(); err != nil {
		return nil, err, true
	}
	cc := &ast.ComputedConstructor{Kind: kind}
	needsName := kind == ast.ComputedElement || kind == ast.ComputedAttribute ||
		kind == ast.ComputedNamespace || kind == ast.ComputedPI
	if needsName {
		if !s.lit("(") {
			s.reset(mark)
			return nil, nil, false
		}
		if err := s.ws(); err != nil {
			return nil, err, true
		}
		if n, ok := s.eqName(); ok {
			m2 := s.mark()
			if err := s.ws(); err != nil {
				return nil, err, true
			}
			if r0(s) == ')' {
				cc.Name = &n
			} else {
				s.reset(m2)
			}
		}
		if cc.Name == nil {
			e, err := s.expr()
			if err != nil {
				return nil, err, true
			}
			cc.NameExpr = e
			if err := s.ws(); err != nil {
				return nil, err, true
			}
		}
		if !s.lit(")") {
			return nil, xqerr.New(xqerr.XPST0003, "expected ')' at offset %d", s.pos), true
		}
		if err := s.ws(); err != nil {
			return nil, err, true
		}
	} else if r0(s) != '{' {
		s.reset(mark)
		return nil, nil, false
	}
	if !s.lit("{") {
		s.reset(mark)
		return nil, nil, false
	}
	if err := s.ws(); err != nil {
		return nil, err, true
	}
	if r0(s) != '}' {
		e, err := s.expr()
		if err != nil {
			return nil, err, true
		}
		cc.Content = []ast.Expr{e}
		if err := s.ws(); err != nil {
			return nil, err, true
		}
	}
	if !s.lit("}") {
		return nil, xqerr.New(xqerr.XPST0003, "expected '}' closing constructor at offset %d", s.pos), true
	}
	return cc, nil, true
}
