package parse

import (
	"github.com/sirupsen/logrus"

	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/xqerr"
	"github.com/oss-xquery/xq31/xqlog"
)

// Module parses a complete XQuery 3.1 Module: an optional VersionDecl,
// the Prolog, and the MainModule's QueryBody, per spec.md S4.4
// "Module - VersionDecl? MainModule". Library modules (a leading
// `module namespace ...;`) are out of scope per spec.md S1.
//
// log receives a Debug trace at each of the three production
// boundaries below, the parse-time counterpart of the teacher's
// ctx.addDebugInstrAndStack instruction trace in xpath/context.go; a
// nil log is replaced with xqlog.Discard.
func Module(log *logrus.Logger, src string) (*ast.Module, *xqerr.Error) {
	log = xqlog.Or(log)
	s := newStateWithLog(log, src)

	if err := s.ws(); err != nil {
		return nil, err
	}

	s.trace("VersionDecl")
	vd, err := s.versionDecl()
	if err != nil {
		return nil, err
	}

	if err := s.ws(); err != nil {
		return nil, err
	}
	if s.litKeyword("module") {
		return nil, xqerr.New(xqerr.XPST0003, "library modules are not supported at offset %d", s.pos)
	}

	s.trace("Prolog")
	prolog, err := s.prolog()
	if err != nil {
		return nil, err
	}

	if err := s.ws(); err != nil {
		return nil, err
	}
	s.trace("QueryBody")
	body, err := s.expr()
	if err != nil {
		return nil, err
	}

	if err := s.ws(); err != nil {
		return nil, err
	}
	if !s.eof() {
		return nil, xqerr.New(xqerr.XPST0003, "unexpected trailing input at offset %d", s.pos)
	}

	log.WithField("prolog_vars", len(prolog.Variables)).Debug("module parsed")
	return &ast.Module{Version: vd, Prolog: prolog, Body: body}, nil
}
