package parse

import (
	"strings"

	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/xqerr"
)

// numericLiteral parses spec.md S4.4's three numeric forms: integer,
// decimal-with-dot, and double with an e/E exponent. A scientific form
// with no mantissa digits after 'e'/'E' is XPST0003.
func (s *state) numericLiteral() (*ast.Literal, *xqerr.Error, bool) {
	start := s.pos
	sawDigits := false
	for isDigit(r0(s)) {
		s.nextRune()
		sawDigits = true
	}
	isDecimal := false
	if r0(s) == '.' {
		save := s.pos
		s.nextRune()
		fracStart := s.pos
		for isDigit(r0(s)) {
			s.nextRune()
			sawDigits = true
		}
		if s.pos == fracStart && !sawDigits {
			s.pos = save
		} else {
			isDecimal = true
		}
	}
	if !sawDigits {
		s.pos = start
		return nil, nil, false
	}
	isDouble := false
	if r0(s) == 'e' || r0(s) == 'E' {
		save := s.pos
		s.nextRune()
		if r0(s) == '+' || r0(s) == '-' {
			s.nextRune()
		}
		expStart := s.pos
		for isDigit(r0(s)) {
			s.nextRune()
		}
		if s.pos == expStart {
			return nil, xqerr.New(xqerr.XPST0003, "malformed exponent at offset %d", save), true
		}
		isDouble = true
	}
	text := s.src[start:s.pos]
	kind := ast.LiteralInteger
	switch {
	case isDouble:
		kind = ast.LiteralDouble
	case isDecimal:
		kind = ast.LiteralDecimal
	}
	return &ast.Literal{Kind: kind, Text: text}, nil, true
}

func r0(s *state) rune {
	r, _ := s.peekRune()
	return r
}

// stringLiteral parses a quoted string with either delimiter, doubled
// same-quote escapes, predefined entity references, and numeric char
// references validated against the XML 1.0 Char production
// (spec.md S4.4 "String literals").
func (s *state) stringLiteral() (*ast.Literal, *xqerr.Error, bool) {
	if s.eof() {
		return nil, nil, false
	}
	quote := r0(s)
	if quote != '"' && quote != '\'' {
		return nil, nil, false
	}
	start := s.pos
	s.nextRune()
	var b strings.Builder
	for {
		if s.eof() {
			return nil, xqerr.New(xqerr.XPST0003, "unterminated string literal starting at offset %d", start), true
		}
		r := r0(s)
		if r == quote {
			s.nextRune()
			if r0(s) == quote {
				b.WriteRune(quote)
				s.nextRune()
				continue
			}
			break
		}
		if r == '&' {
			decoded, err := s.charReference()
			if err != nil {
				return nil, err, true
			}
			b.WriteString(decoded)
			continue
		}
		b.WriteRune(r)
		s.nextRune()
	}
	return &ast.Literal{Kind: ast.LiteralString, Text: b.String()}, nil, true
}

var predefinedEntities = map[string]string{
	"lt": "<", "gt": ">", "amp": "&", "quot": "\"", "apos": "'",
}

// charReference decodes `&name;`, `&#nnn;`, or `&#xHHH;`, validating
// numeric forms against the XML 1.0 Char production (XQST0090 on
// violation), per spec.md S4.4.
func (s *state) charReference() (string, *xqerr.Error) {
	start := s.pos
	s.nextRune() // consume '&'
	if r0(s) == '#' {
		s.nextRune()
		hex := false
		if r0(s) == 'x' || r0(s) == 'X' {
			hex = true
			s.nextRune()
		}
		digStart := s.pos
		for {
			r := r0(s)
			if r == ';' {
				break
			}
			if hex && isHexDigit(r) {
				s.nextRune()
				continue
			}
			if !hex && isDigit(r) {
				s.nextRune()
				continue
			}
			return "", xqerr.New(xqerr.XPST0003, "malformed character reference at offset %d", start)
		}
		digits := s.src[digStart:s.pos]
		if r0(s) != ';' {
			return "", xqerr.New(xqerr.XPST0003, "unterminated character reference at offset %d", start)
		}
		s.nextRune()
		cp, err := parseCodepoint(digits, hex)
		if err != nil {
			return "", xqerr.New(xqerr.XQST0090, "invalid character reference &#%s;: %v", digits, err)
		}
		if !isValidXMLChar(cp) {
			return "", xqerr.New(xqerr.XQST0090, "character reference &#%s; is not a valid XML character", digits)
		}
		return string(rune(cp)), nil
	}
	nameStart := s.pos
	for r0(s) != ';' && !s.eof() {
		s.nextRune()
	}
	if s.eof() {
		return "", xqerr.New(xqerr.XPST0003, "unterminated entity reference at offset %d", start)
	}
	name := s.src[nameStart:s.pos]
	s.nextRune() // consume ';'
	val, ok := predefinedEntities[name]
	if !ok {
		return "", xqerr.New(xqerr.XPST0003, "unknown entity reference &%s; at offset %d", name, start)
	}
	return val, nil
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func parseCodepoint(digits string, hex bool) (int64, error) {
	base := int64(10)
	if hex {
		base = 16
	}
	var v int64
	for _, r := range digits {
		var d int64
		switch {
		case r >= '0' && r <= '9':
			d = int64(r - '0')
		case hex && r >= 'a' && r <= 'f':
			d = int64(r-'a') + 10
		case hex && r >= 'A' && r <= 'F':
			d = int64(r-'A') + 10
		}
		v = v*base + d
	}
	return v, nil
}

// isValidXMLChar implements the XML 1.0 Char production:
// #x9 | #xA | #xD | [#x20-#xD7FF] | [#xE000-#xFFFD] | [#x10000-#x10FFFF].
func isValidXMLChar(cp int64) bool {
	switch {
	case cp == 0x9 || cp == 0xA || cp == 0xD:
		return true
	case cp >= 0x20 && cp <= 0xD7FF:
		return true
	case cp >= 0xE000 && cp <= 0xFFFD:
		return true
	case cp >= 0x10000 && cp <= 0x10FFFF:
		return true
	}
	return false
}
