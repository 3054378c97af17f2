package parse

import (
	"github.com/oss-xquery/xq31/ast"
	"github.com/oss-xquery/xq31/xqerr"
)

var supportedVersions = map[string]bool{"1.0": true, "3.0": true, "3.1": true}
var supportedEncodings = map[string]bool{"utf-8": true, "UTF-8": true}

// versionDecl parses the optional leading `xquery version "1.0" [encoding
// "..."];` declaration (spec.md S4.4 "VersionDecl").
func (s *state) versionDecl() (*ast.VersionDecl, *xqerr.Error) {
	mark := s.mark()
	if !s.litKeyword("xquery") {
		return nil, nil
	}
	if err := s.ws1(); err != nil {
		return nil, err
	}
	if !s.litKeyword("version") {
		s.reset(mark)
		return nil, nil
	}
	if err := s.ws1(); err != nil {
		return nil, err
	}
	lit, err, ok := s.stringLiteral()
	if !ok {
		return nil, xqerr.New(xqerr.XPST0003, "expected version string at offset %d", s.pos)
	}
	if err != nil {
		return nil, err
	}
	if !supportedVersions[lit.Text] {
		return nil, xqerr.New(xqerr.XQST0031, "unsupported XQuery version %q", lit.Text)
	}
	vd := &ast.VersionDecl{Version: lit.Text}
	m2 := s.mark()
	if err := s.ws1(); err != nil {
		return nil, err
	}
	if s.litKeyword("encoding") {
		if err := s.ws1(); err != nil {
			return nil, err
		}
		elit, err, ok := s.stringLiteral()
		if !ok {
			return nil, xqerr.New(xqerr.XPST0003, "expected encoding string at offset %d", s.pos)
		}
		if err != nil {
			return nil, err
		}
		if !supportedEncodings[elit.Text] {
			return nil, xqerr.New(xqerr.XQST0087, "unsupported encoding %q", elit.Text)
		}
		vd.Encoding = elit.Text
	} else {
		s.reset(m2)
	}
	if err := s.ws(); err != nil {
		return nil, err
	}
	if !s.lit(";") {
		return nil, xqerr.New(xqerr.XPST0003, "expected ';' after version declaration at offset %d", s.pos)
	}
	return vd, nil
}

// prolog parses the full sequence of `declare ...;`/`import ...;`
// statements preceding the query body, enforcing the phase ordering of
// spec.md S4.4: setters and namespace/schema/module imports form phase
// 1, variable/function/option declarations form phase 2, and a setter
// appearing after the first phase-2 declaration is XQST0079.
func (s *state) prolog() (ast.Prolog, *xqerr.Error) {
	var p ast.Prolog
	phase2 := false
	for {
		mark := s.mark()
		if err := s.ws(); err != nil {
			return p, err
		}
		if !s.litKeyword("declare") {
			s.reset(mark)
			break
		}
		if err := s.ws1(); err != nil {
			return p, err
		}
		switch {
		case s.litKeyword("namespace"):
			if phase2 {
				return p, xqerr.New(xqerr.XQST0079, "namespace declaration after phase-2 boundary at offset %d", s.pos)
			}
			nd, err := s.namespaceDecl()
			if err != nil {
				return p, err
			}
			p.Namespaces = append(p.Namespaces, nd)
		case s.litKeyword("default"):
			if err := s.ws1(); err != nil {
				return p, err
			}
			switch {
			case s.litKeyword("element"):
				if phase2 {
					return p, xqerr.New(xqerr.XQST0079, "default element namespace after phase-2 boundary")
				}
				if err := s.ws1(); err != nil {
					return p, err
				}
				if !s.litKeyword("namespace") {
					return p, xqerr.New(xqerr.XPST0003, "expected 'namespace' at offset %d", s.pos)
				}
				if err := s.ws1(); err != nil {
					return p, err
				}
				uri, err := s.uriLiteral()
				if err != nil {
					return p, err
				}
				if p.DefaultElementNamespace != nil {
					return p, xqerr.New(xqerr.XQST0066, "duplicate default element namespace declaration")
				}
				p.DefaultElementNamespace = &uri
			case s.litKeyword("function"):
				if phase2 {
					return p, xqerr.New(xqerr.XQST0079, "default function namespace after phase-2 boundary")
				}
				if err := s.ws1(); err != nil {
					return p, err
				}
				if !s.litKeyword("namespace") {
					return p, xqerr.New(xqerr.XPST0003, "expected 'namespace' at offset %d", s.pos)
				}
				if err := s.ws1(); err != nil {
					return p, err
				}
				uri, err := s.uriLiteral()
				if err != nil {
					return p, err
				}
				if p.DefaultFunctionNamespace != nil {
					return p, xqerr.New(xqerr.XQST0066, "duplicate default function namespace declaration")
				}
				p.DefaultFunctionNamespace = &uri
			case s.litKeyword("collation"):
				if phase2 {
					return p, xqerr.New(xqerr.XQST0079, "default collation after phase-2 boundary")
				}
				if err := s.ws1(); err != nil {
					return p, err
				}
				uri, err := s.uriLiteral()
				if err != nil {
					return p, err
				}
				if p.Setters.Collation != nil {
					return p, xqerr.New(xqerr.XQST0038, "duplicate default collation declaration")
				}
				p.Setters.Collation = &uri
			case s.litKeyword("order"):
				if phase2 {
					return p, xqerr.New(xqerr.XQST0079, "default order after phase-2 boundary")
				}
				if err := s.ws1(); err != nil {
					return p, err
				}
				if !s.litKeyword("empty") {
					return p, xqerr.New(xqerr.XPST0003, "expected 'empty' at offset %d", s.pos)
				}
				if err := s.ws1(); err != nil {
					return p, err
				}
				var mode ast.EmptyOrderMode
				switch {
				case s.litKeyword("greatest"):
					mode = ast.EmptyOrderGreatest
				case s.litKeyword("least"):
					mode = ast.EmptyOrderLeast
				default:
					return p, xqerr.New(xqerr.XPST0003, "expected 'greatest' or 'least' at offset %d", s.pos)
				}
				if p.Setters.EmptyOrder != nil {
					return p, xqerr.New(xqerr.XQST0069, "duplicate empty-order declaration")
				}
				p.Setters.EmptyOrder = &mode
			default:
				return p, xqerr.New(xqerr.XPST0003, "unexpected 'default' clause at offset %d", s.pos)
			}
		case s.litKeyword("boundary-space"):
			if phase2 {
				return p, xqerr.New(xqerr.XQST0079, "boundary-space declaration after phase-2 boundary")
			}
			if err := s.ws1(); err != nil {
				return p, err
			}
			var mode ast.BoundarySpaceMode
			switch {
			case s.litKeyword("preserve"):
				mode = ast.BoundarySpacePreserve
			case s.litKeyword("strip"):
				mode = ast.BoundarySpaceStrip
			default:
				return p, xqerr.New(xqerr.XPST0003, "expected 'preserve' or 'strip' at offset %d", s.pos)
			}
			if p.Setters.BoundarySpace != nil {
				return p, xqerr.New(xqerr.XQST0068, "duplicate boundary-space declaration")
			}
			p.Setters.BoundarySpace = &mode
		case s.litKeyword("construction"):
			if phase2 {
				return p, xqerr.New(xqerr.XQST0079, "construction declaration after phase-2 boundary")
			}
			if err := s.ws1(); err != nil {
				return p, err
			}
			var mode ast.ConstructionMode
			switch {
			case s.litKeyword("preserve"):
				mode = ast.ConstructionPreserve
			case s.litKeyword("strip"):
				mode = ast.ConstructionStrip
			default:
				return p, xqerr.New(xqerr.XPST0003, "expected 'preserve' or 'strip' at offset %d", s.pos)
			}
			if p.Setters.Construction != nil {
				return p, xqerr.New(xqerr.XQST0067, "duplicate construction declaration")
			}
			p.Setters.Construction = &mode
		case s.litKeyword("ordering"):
			if phase2 {
				return p, xqerr.New(xqerr.XQST0079, "ordering declaration after phase-2 boundary")
			}
			if err := s.ws1(); err != nil {
				return p, err
			}
			var mode ast.OrderingMode
			switch {
			case s.litKeyword("ordered"):
				mode = ast.OrderingOrdered
			case s.litKeyword("unordered"):
				mode = ast.OrderingUnordered
			default:
				return p, xqerr.New(xqerr.XPST0003, "expected 'ordered' or 'unordered' at offset %d", s.pos)
			}
			if p.Setters.Ordering != nil {
				return p, xqerr.New(xqerr.XQST0065, "duplicate ordering declaration")
			}
			p.Setters.Ordering = &mode
		case s.litKeyword("base-uri"):
			if phase2 {
				return p, xqerr.New(xqerr.XQST0079, "base-uri declaration after phase-2 boundary")
			}
			if err := s.ws1(); err != nil {
				return p, err
			}
			uri, err := s.uriLiteral()
			if err != nil {
				return p, err
			}
			if p.Setters.BaseURI != nil {
				return p, xqerr.New(xqerr.XQST0032, "duplicate base-uri declaration")
			}
			p.Setters.BaseURI = &uri
		case s.litKeyword("copy-namespaces"):
			if phase2 {
				return p, xqerr.New(xqerr.XQST0079, "copy-namespaces declaration after phase-2 boundary")
			}
			if err := s.ws1(); err != nil {
				return p, err
			}
			var mode ast.CopyNamespacesMode
			switch {
			case s.litKeyword("preserve"):
				mode.Preserve = true
			case s.litKeyword("no-preserve"):
			default:
				return p, xqerr.New(xqerr.XPST0003, "expected 'preserve' or 'no-preserve' at offset %d", s.pos)
			}
			if err := s.ws(); err != nil {
				return p, err
			}
			if !s.lit(",") {
				return p, xqerr.New(xqerr.XPST0003, "expected ',' in copy-namespaces declaration at offset %d", s.pos)
			}
			if err := s.ws(); err != nil {
				return p, err
			}
			switch {
			case s.litKeyword("inherit"):
				mode.Inherit = true
			case s.litKeyword("no-inherit"):
			default:
				return p, xqerr.New(xqerr.XPST0003, "expected 'inherit' or 'no-inherit' at offset %d", s.pos)
			}
			if p.Setters.CopyNamespaces != nil {
				return p, xqerr.New(xqerr.XQST0055, "duplicate copy-namespaces declaration")
			}
			p.Setters.CopyNamespaces = &mode
		case s.litKeyword("variable"):
			phase2 = true
			vd, err := s.varDecl()
			if err != nil {
				return p, err
			}
			p.Variables = append(p.Variables, vd)
		case s.litKeyword("function"):
			phase2 = true
			fd, err := s.functionDecl()
			if err != nil {
				return p, err
			}
			p.Functions = append(p.Functions, fd)
		case s.litKeyword("option"):
			phase2 = true
			od, err := s.optionDecl()
			if err != nil {
				return p, err
			}
			p.Options = append(p.Options, od)
		default:
			return p, xqerr.New(xqerr.XPST0003, "unrecognized 'declare' clause at offset %d", s.pos)
		}
		if err := s.ws(); err != nil {
			return p, err
		}
		if !s.lit(";") {
			return p, xqerr.New(xqerr.XPST0003, "expected ';' terminating declaration at offset %d", s.pos)
		}
	}
	return p, nil
}

// uriLiteral parses a quoted string used as a namespace/base URI.
func (s *state) uriLiteral() (string, *xqerr.Error) {
	lit, err, ok := s.stringLiteral()
	if !ok {
		return "", xqerr.New(xqerr.XPST0003, "expected a URI string at offset %d", s.pos)
	}
	if err != nil {
		return "", err
	}
	return lit.Text, nil
}

func (s *state) namespaceDecl() (ast.NamespaceDecl, *xqerr.Error) {
	if err := s.ws1(); err != nil {
		return ast.NamespaceDecl{}, err
	}
	prefix, ok := s.ncName()
	if !ok {
		return ast.NamespaceDecl{}, xqerr.New(xqerr.XPST0003, "expected namespace prefix at offset %d", s.pos)
	}
	if err := s.ws(); err != nil {
		return ast.NamespaceDecl{}, err
	}
	if !s.lit("=") {
		return ast.NamespaceDecl{}, xqerr.New(xqerr.XPST0003, "expected '=' in namespace declaration at offset %d", s.pos)
	}
	if err := s.ws(); err != nil {
		return ast.NamespaceDecl{}, err
	}
	uri, err := s.uriLiteral()
	if err != nil {
		return ast.NamespaceDecl{}, err
	}
	if uri == "" {
		return ast.NamespaceDecl{}, xqerr.New(xqerr.XQST0088, "namespace declaration for prefix %q has an empty URI", prefix)
	}
	return ast.NamespaceDecl{Prefix: prefix, URI: uri}, nil
}

func (s *state) varDecl() (ast.VarDecl, *xqerr.Error) {
	if err := s.ws1(); err != nil {
		return ast.VarDecl{}, err
	}
	if r0(s) != '$' {
		return ast.VarDecl{}, xqerr.New(xqerr.XPST0003, "expected '$' in variable declaration at offset %d", s.pos)
	}
	s.nextRune()
	name, ok := s.eqName()
	if !ok {
		return ast.VarDecl{}, xqerr.New(xqerr.XPST0003, "expected variable name at offset %d", s.pos)
	}
	vd := ast.VarDecl{Name: name}
	m := s.mark()
	if err := s.ws1(); err != nil {
		return ast.VarDecl{}, err
	}
	if s.litKeyword("as") {
		if err := s.ws1(); err != nil {
			return ast.VarDecl{}, err
		}
		st, err := s.sequenceType()
		if err != nil {
			return ast.VarDecl{}, err
		}
		vd.Type = &st
	} else {
		s.reset(m)
	}
	if err := s.ws(); err != nil {
		return ast.VarDecl{}, err
	}
	if s.litKeyword("external") {
		vd.External = true
		return vd, nil
	}
	if !s.lit(":=") {
		return ast.VarDecl{}, xqerr.New(xqerr.XPST0003, "expected ':=' or 'external' in variable declaration at offset %d", s.pos)
	}
	if err := s.ws(); err != nil {
		return ast.VarDecl{}, err
	}
	init, err := s.exprSingle()
	if err != nil {
		return ast.VarDecl{}, err
	}
	vd.Init = init
	return vd, nil
}

func (s *state) functionDecl() (ast.FunctionDecl, *xqerr.Error) {
	if err := s.ws1(); err != nil {
		return ast.FunctionDecl{}, err
	}
	name, ok := s.eqName()
	if !ok {
		return ast.FunctionDecl{}, xqerr.New(xqerr.XPST0003, "expected function name at offset %d", s.pos)
	}
	if err := s.ws(); err != nil {
		return ast.FunctionDecl{}, err
	}
	if !s.lit("(") {
		return ast.FunctionDecl{}, xqerr.New(xqerr.XPST0003, "expected '(' in function declaration at offset %d", s.pos)
	}
	if err := s.ws(); err != nil {
		return ast.FunctionDecl{}, err
	}
	var params []ast.Param
	if r0(s) != ')' {
		for {
			if r0(s) != '$' {
				return ast.FunctionDecl{}, xqerr.New(xqerr.XPST0003, "expected parameter at offset %d", s.pos)
			}
			s.nextRune()
			pname, ok := s.eqName()
			if !ok {
				return ast.FunctionDecl{}, xqerr.New(xqerr.XPST0003, "expected parameter name at offset %d", s.pos)
			}
			p := ast.Param{Name: pname}
			m2 := s.mark()
			if err := s.ws(); err != nil {
				return ast.FunctionDecl{}, err
			}
			if s.litKeyword("as") {
				if err := s.ws1(); err != nil {
					return ast.FunctionDecl{}, err
				}
				st, err := s.sequenceType()
				if err != nil {
					return ast.FunctionDecl{}, err
				}
				p.Type = &st
			} else {
				s.reset(m2)
			}
			params = append(params, p)
			if err := s.ws(); err != nil {
				return ast.FunctionDecl{}, err
			}
			if s.lit(",") {
				if err := s.ws(); err != nil {
					return ast.FunctionDecl{}, err
				}
				continue
			}
			break
		}
	}
	if err := s.ws(); err != nil {
		return ast.FunctionDecl{}, err
	}
	if !s.lit(")") {
		return ast.FunctionDecl{}, xqerr.New(xqerr.XPST0003, "expected ')' closing parameter list at offset %d", s.pos)
	}
	fd := ast.FunctionDecl{Name: name, Params: params}
	m3 := s.mark()
	if err := s.ws(); err != nil {
		return ast.FunctionDecl{}, err
	}
	if s.litKeyword("as") {
		if err := s.ws1(); err != nil {
			return ast.FunctionDecl{}, err
		}
		st, err := s.sequenceType()
		if err != nil {
			return ast.FunctionDecl{}, err
		}
		fd.ReturnType = &st
	} else {
		s.reset(m3)
	}
	if err := s.ws(); err != nil {
		return ast.FunctionDecl{}, err
	}
	if s.litKeyword("external") {
		return fd, nil
	}
	if !s.lit("{") {
		return ast.FunctionDecl{}, xqerr.New(xqerr.XPST0003, "expected '{' opening function body at offset %d", s.pos)
	}
	if err := s.ws(); err != nil {
		return ast.FunctionDecl{}, err
	}
	if r0(s) == '}' {
		s.nextRune()
		fd.Body = &ast.SequenceExpr{}
		return fd, nil
	}
	body, err := s.expr()
	if err != nil {
		return ast.FunctionDecl{}, err
	}
	if err := s.ws(); err != nil {
		return ast.FunctionDecl{}, err
	}
	if !s.lit("}") {
		return ast.FunctionDecl{}, xqerr.New(xqerr.XPST0003, "expected '}' closing function body at offset %d", s.pos)
	}
	fd.Body = body
	return fd, nil
}

func (s *state) optionDecl() (ast.OptionDecl, *xqerr.Error) {
	if err := s.ws1(); err != nil {
		return ast.OptionDecl{}, err
	}
	name, ok := s.eqName()
	if !ok {
		return ast.OptionDecl{}, xqerr.New(xqerr.XPST0003, "expected option name at offset %d", s.pos)
	}
	if err := s.ws1(); err != nil {
		return ast.OptionDecl{}, err
	}
	lit, err, ok := s.stringLiteral()
	if !ok {
		return ast.OptionDecl{}, xqerr.New(xqerr.XPST0003, "expected option value string at offset %d", s.pos)
	}
	if err != nil {
		return ast.OptionDecl{}, err
	}
	return ast.OptionDecl{Name: name, Value: lit.Text}, nil
}
