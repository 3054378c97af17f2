// Package parse implements the recursive-descent XQuery 3.1 / XPath 3.1
// parser of spec.md S4.4: "Input is a `&str`; state is the remaining
// suffix. Every production returns either the parsed expression or a
// typed error."
//
// Grounded on the teacher's parse/lex.go rune scanner (next/peek/backup
// over byte positions) for the low-level character primitives, but
// restructured from a channel-fed token stream into direct
// remaining-suffix recursion: each production is a method on *state
// that either advances state.pos and returns a value, or leaves pos
// unchanged and returns an error the caller can use to decide
// "soft backtrack" vs. "hard failure" (spec.md S4.4 "Error policy").
package parse

import (
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/oss-xquery/xq31/xqerr"
	"github.com/oss-xquery/xq31/xqlog"
)

// state is the parser's cursor over the source string.
type state struct {
	src string
	pos int
	log *logrus.Logger
}

func newStateWithLog(log *logrus.Logger, src string) *state {
	return &state{src: src, log: xqlog.Or(log)}
}

// trace logs a Debug-level production boundary, the parse-time
// counterpart of eval.Eval's per-node dispatch trace and the teacher's
// addDebugInstrAndStack - a nil-safe no-op when no logger was supplied.
func (s *state) trace(production string) {
	s.log.WithField("offset", s.pos).WithField("production", production).Debug("parse production")
}

// mark/reset implement the soft-backtrack half of spec.md's error
// policy: a production tries an alternative, and on failure rewinds to
// exactly where it started.
func (s *state) mark() int        { return s.pos }
func (s *state) reset(mark int)   { s.pos = mark }

func (s *state) eof() bool { return s.pos >= len(s.src) }

func (s *state) rest() string { return s.src[s.pos:] }

// peekRune returns the next rune without consuming it.
func (s *state) peekRune() (rune, int) {
	if s.eof() {
		return 0, 0
	}
	r, w := utf8.DecodeRuneInString(s.src[s.pos:])
	return r, w
}

// nextRune consumes and returns the next rune.
func (s *state) nextRune() rune {
	r, w := s.peekRune()
	s.pos += w
	return r
}

// lit consumes literal exactly, case-sensitively, returning whether it
// matched; on failure state is unchanged (soft).
func (s *state) lit(literal string) bool {
	if strings.HasPrefix(s.rest(), literal) {
		s.pos += len(literal)
		return true
	}
	return false
}

// litKeyword consumes literal only if it is not immediately followed by
// a name-continuation character, so e.g. "if" does not match a prefix
// of "ifx". Used for reserved keywords in contexts where a following
// NCName would otherwise be ambiguous.
func (s *state) litKeyword(literal string) bool {
	if !strings.HasPrefix(s.rest(), literal) {
		return false
	}
	after := s.src[s.pos+len(literal):]
	if after != "" {
		r, _ := utf8.DecodeRuneInString(after)
		if isNameChar(r) {
			return false
		}
	}
	s.pos += len(literal)
	return true
}

// ws skips zero or more whitespace characters and nested `(: ... :)`
// comments, per spec.md S4.4 "Whitespace discipline". Returns a hard
// error (XPST0003) only if a comment opens and never closes.
func (s *state) ws() *xqerr.Error {
	for {
		r, w := s.peekRune()
		if w == 0 {
			return nil
		}
		if isSpace(r) {
			s.pos += w
			continue
		}
		if strings.HasPrefix(s.rest(), "(:") {
			if err := s.skipComment(); err != nil {
				return err
			}
			continue
		}
		return nil
	}
}

// ws1 requires at least one whitespace unit (space or comment).
func (s *state) ws1() *xqerr.Error {
	before := s.pos
	if err := s.ws(); err != nil {
		return err
	}
	if s.pos == before {
		return xqerr.New(xqerr.XPST0003, "expected whitespace at offset %d", s.pos)
	}
	return nil
}

// skipComment consumes one `(: ... :)` comment, which nests.
func (s *state) skipComment() *xqerr.Error {
	if !s.lit("(:") {
		return xqerr.New(xqerr.XPST0003, "expected comment open at offset %d", s.pos)
	}
	depth := 1
	for depth > 0 {
		if s.eof() {
			return xqerr.New(xqerr.XPST0003, "unbalanced comment starting before offset %d", s.pos)
		}
		switch {
		case s.lit("(:"):
			depth++
		case s.lit(":)"):
			depth--
		default:
			s.nextRune()
		}
	}
	return nil
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

func isNameStartChar(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r >= 0x80
}

func isNameChar(r rune) bool {
	return isNameStartChar(r) || (r >= '0' && r <= '9') || r == '-' || r == '.'
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
