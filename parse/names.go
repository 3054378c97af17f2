package parse

import (
	"strings"

	"github.com/oss-xquery/xq31/qname"
	"github.com/oss-xquery/xq31/xqerr"
)

// reservedFunctionNames is the set from spec.md S4.4 "Reserved function
// names" that MUST NOT appear as an unprefixed function-call EQName.
// Supplemented from original_source/src/parser/parse_names.rs, which
// carries the same set plus the kind-test names this core also treats
// as reserved in a call position.
var reservedFunctionNames = map[string]bool{
	"array": true, "attribute": true, "comment": true, "document-node": true,
	"element": true, "empty-sequence": true, "function": true, "if": true,
	"item": true, "map": true, "namespace-node": true, "node": true,
	"processing-instruction": true, "schema-attribute": true,
	"schema-element": true, "switch": true, "text": true, "typeswitch": true,
}

// ncName parses an XML NCName: NameStartChar NameChar*, excluding ':'.
func (s *state) ncName() (string, bool) {
	start := s.pos
	r, w := s.peekRune()
	if w == 0 || !isNameStartChar(r) {
		return "", false
	}
	s.pos += w
	for {
		r, w := s.peekRune()
		if w == 0 || !isNameChar(r) {
			break
		}
		s.pos += w
	}
	return s.src[start:s.pos], true
}

// eqName parses an EQName: either `prefix:local` or a bare NCName
// (resolved against defaults by the caller), or the `Q{uri}local`
// URIQualifiedName form.
func (s *state) eqName() (qname.QName, bool) {
	mark := s.mark()
	if strings.HasPrefix(s.rest(), "Q{") {
		end := strings.IndexByte(s.rest(), '}')
		if end < 0 {
			s.reset(mark)
			return qname.QName{}, false
		}
		uri := s.rest()[2:end]
		s.pos += end + 1
		local, ok := s.ncName()
		if !ok {
			s.reset(mark)
			return qname.QName{}, false
		}
		// URIQualifiedNames carry a fully resolved URI already; encode it
		// as a synthetic prefix the resolver special-cases.
		return qname.QName{Prefix: "Q{" + uri + "}", Local: local}, true
	}
	first, ok := s.ncName()
	if !ok {
		s.reset(mark)
		return qname.QName{}, false
	}
	if strings.HasPrefix(s.rest(), ":") && !strings.HasPrefix(s.rest(), "::") {
		save := s.pos
		s.pos++ // consume ':'
		local, ok := s.ncName()
		if !ok {
			s.pos = save
			return qname.QName{Local: first}, true
		}
		return qname.QName{Prefix: first, Local: local}, true
	}
	return qname.QName{Local: first}, true
}

// reservedFunctionCheck enforces spec.md's reserved-name rule: an
// unprefixed call to one of reservedFunctionNames is a syntax error
// unless immediately followed by "(" with the kind-test-like shape the
// grammar permits it to disambiguate (kind tests themselves are parsed
// separately, before call parsing ever sees these names).
func reservedFunctionCheck(n qname.QName) *xqerr.Error {
	if n.Prefix == "" && reservedFunctionNames[n.Local] {
		return xqerr.New(xqerr.XPST0003, "%q is a reserved function name and cannot be called without a prefix", n.Local)
	}
	return nil
}
