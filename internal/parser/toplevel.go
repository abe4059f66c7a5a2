package parser

import (
	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/token"
	"github.com/yohashinoio/twkl/internal/types"
)

// parseFile parses the top-level declarations of a translation unit.
func (p *Parser) parseFile() (*ast.File, bool) {
	f := &ast.File{}
	for !p.got(token.EOF) {
		d, ok := p.parseTopLevel()
		if !ok {
			p.sync(token.FUNC, token.CLASS, token.UNION, token.TYPEDEF,
				token.NAMESPACE, token.IMPORT, token.EOF)
			continue
		}
		f.Decls = append(f.Decls, d)
	}
	return f, true
}

func (p *Parser) parseAttrs() []ast.Attribute {
	var attrs []ast.Attribute
	for p.got(token.LBRACKET2) {
		if !p.next() {
			return attrs
		}
		for !p.got(token.RBRACKET2) && !p.got(token.EOF) {
			if !p.assert(token.IDENT) {
				return attrs
			}
			a := ast.Attribute{Name: p.tok.Value}
			if !p.next() {
				return attrs
			}
			if p.got(token.LPAREN) {
				if !p.next() {
					return attrs
				}
				for !p.got(token.RPAREN) && !p.got(token.EOF) {
					a.Args = append(a.Args, p.tok.Value)
					if !p.next() {
						return attrs
					}
					if p.got(token.COMMA) {
						if !p.next() {
							return attrs
						}
					}
				}
				if !p.assertAndNext(token.RPAREN) {
					return attrs
				}
			}
			attrs = append(attrs, a)
			if p.got(token.COMMA) {
				if !p.next() {
					return attrs
				}
			}
		}
		if !p.assertAndNext(token.RBRACKET2) {
			return attrs
		}
	}
	return attrs
}

func (p *Parser) parseVisibility() ast.Visibility {
	switch p.tok.Kind {
	case token.PUBLIC:
		p.next()
		return ast.Public
	case token.PRIVATE:
		p.next()
		return ast.Private
	}
	return ast.Private
}

func (p *Parser) parseTopLevel() (ast.TopLevel, bool) {
	attrs := p.parseAttrs()
	isExtern := false
	if p.got(token.EXTERN) {
		isExtern = true
		if !p.next() {
			return nil, false
		}
	}
	vis := p.parseVisibility()

	switch p.tok.Kind {
	case token.FUNC:
		return p.parseFunc(attrs, vis, isExtern, "")
	case token.CLASS:
		return p.parseClass(attrs)
	case token.UNION:
		return p.parseUnion()
	case token.TYPEDEF:
		return p.parseTypedef()
	case token.NAMESPACE:
		return p.parseNamespace()
	case token.IMPORT:
		return p.parseImport()
	}

	p.rejectf("expected a top-level declaration, got %s", p.tok.Kind)
	return nil, false
}

func (p *Parser) parseTypeParams() ([]string, bool) {
	if !p.got(token.LT) {
		return nil, true
	}
	if !p.next() {
		return nil, false
	}
	var params []string
	for {
		if !p.assert(token.IDENT) {
			return nil, false
		}
		params = append(params, p.tok.Value)
		if !p.next() {
			return nil, false
		}
		if p.got(token.COMMA) {
			if !p.next() {
				return nil, false
			}
			continue
		}
		break
	}
	if !p.assertAndNext(token.GT) {
		return nil, false
	}
	return params, true
}

func (p *Parser) parseParams() ([]ast.Param, bool, bool) {
	if !p.assertAndNext(token.LPAREN) {
		return nil, false, false
	}
	var params []ast.Param
	variadic := false
	for !p.got(token.RPAREN) {
		if p.got(token.ELLIPSIS) {
			if !p.next() {
				return nil, false, false
			}
			variadic = true
			break
		}
		if !p.assert(token.IDENT) {
			return nil, false, false
		}
		name := p.tok.Value
		if !p.next() || !p.assertAndNext(token.COLON) {
			return nil, false, false
		}
		t, ok := p.parseType()
		if !ok {
			return nil, false, false
		}
		params = append(params, ast.Param{Name: name, Type: t})
		if p.got(token.COMMA) {
			if !p.next() {
				return nil, false, false
			}
		}
	}
	if !p.assertAndNext(token.RPAREN) {
		return nil, false, false
	}
	return params, variadic, true
}

func (p *Parser) parseFunc(attrs []ast.Attribute, vis ast.Visibility, isExtern bool, receiver string) (ast.TopLevel, bool) {
	if !p.next() { // consume 'func'
		return nil, false
	}
	if isExtern {
		// an extern function names a foreign symbol, so it keeps its
		// source name (mangle.IsNoMangle honours this attribute)
		attrs = append(attrs, ast.Attribute{Name: "extern"})
	}
	// inside a class, the method spelled with the `new` keyword is the
	// class's constructor
	if !(receiver != "" && p.got(token.NEW)) && !p.assert(token.IDENT) {
		return nil, false
	}
	name := p.tok.Value
	if !p.next() {
		return nil, false
	}

	typeParams, ok := p.parseTypeParams()
	if !ok {
		return nil, false
	}

	params, variadic, ok := p.parseParams()
	if !ok {
		return nil, false
	}

	retType, ok := p.parseReturnType()
	if !ok {
		return nil, false
	}

	if isExtern && p.got(token.SEMI) {
		if !p.next() {
			return nil, false
		}
		return &ast.FuncDecl{Name: name, Params: params, Variadic: variadic,
			Return: retType, Vis: vis, Attrs: attrs, TypeParams: typeParams}, true
	}

	body, ok := p.parseCompound()
	if !ok {
		return nil, false
	}

	return &ast.FuncDef{Name: name, Receiver: receiver, Params: params, Variadic: variadic,
		Return: retType, Body: body, Vis: vis, Attrs: attrs, TypeParams: typeParams}, true
}

// parseReturnType parses an optional `-> T` clause, defaulting to void.
func (p *Parser) parseReturnType() (types.Type, bool) {
	if p.got(token.ARROW) {
		if !p.next() {
			return nil, false
		}
		return p.parseType()
	}
	return types.Void, true
}

func (p *Parser) parseClass(attrs []ast.Attribute) (ast.TopLevel, bool) {
	if !p.next() { // consume 'class'
		return nil, false
	}
	if !p.assert(token.IDENT) {
		return nil, false
	}
	name := p.tok.Value
	if !p.next() {
		return nil, false
	}

	typeParams, ok := p.parseTypeParams()
	if !ok {
		return nil, false
	}

	if p.got(token.SEMI) {
		if !p.next() {
			return nil, false
		}
		return &ast.ClassDecl{Name: name, TypeParams: typeParams}, true
	}

	if !p.assertAndNext(token.LBRACE) {
		return nil, false
	}

	def := &ast.ClassDef{Name: name, TypeParams: typeParams, Attrs: attrs}
	for !p.got(token.RBRACE) && !p.got(token.EOF) {
		memberAttrs := p.parseAttrs()
		vis := p.parseVisibility()

		if p.got(token.FUNC) {
			fn, ok := p.parseFunc(memberAttrs, vis, false, name)
			if !ok {
				return nil, false
			}
			fd, ok := fn.(*ast.FuncDef)
			if !ok {
				p.rejectf("method %s must have a body", name)
				return nil, false
			}
			def.Methods = append(def.Methods, fd)
			continue
		}

		if !p.assert(token.IDENT) {
			return nil, false
		}
		fname := p.tok.Value
		if !p.next() || !p.assertAndNext(token.COLON) {
			return nil, false
		}
		ftype, ok := p.parseType()
		if !ok {
			return nil, false
		}
		if !p.assertAndNext(token.SEMI) {
			return nil, false
		}
		def.Fields = append(def.Fields, ast.Field{Name: fname, Type: ftype, Vis: vis})
	}

	if !p.assertAndNext(token.RBRACE) {
		return nil, false
	}
	return def, true
}

func (p *Parser) parseUnion() (ast.TopLevel, bool) {
	if !p.next() { // consume 'union'
		return nil, false
	}
	if !p.assert(token.IDENT) {
		return nil, false
	}
	name := p.tok.Value
	if !p.next() {
		return nil, false
	}

	typeParams, ok := p.parseTypeParams()
	if !ok {
		return nil, false
	}

	if !p.assertAndNext(token.LBRACE) {
		return nil, false
	}

	def := &ast.UnionDef{Name: name, TypeParams: typeParams}
	for !p.got(token.RBRACE) && !p.got(token.EOF) {
		if !p.assert(token.IDENT) {
			return nil, false
		}
		vname := p.tok.Value
		if !p.next() {
			return nil, false
		}
		var vtype types.Type
		if p.got(token.LPAREN) {
			if !p.next() {
				return nil, false
			}
			t, ok := p.parseType()
			if !ok {
				return nil, false
			}
			vtype = t
			if !p.assertAndNext(token.RPAREN) {
				return nil, false
			}
		}
		def.Variants = append(def.Variants, ast.UnionVariant{Name: vname, Type: vtype})
		if p.got(token.COMMA) {
			if !p.next() {
				return nil, false
			}
		}
	}

	if !p.assertAndNext(token.RBRACE) {
		return nil, false
	}
	return def, true
}

func (p *Parser) parseTypedef() (ast.TopLevel, bool) {
	if !p.next() { // consume 'typedef'
		return nil, false
	}
	if !p.assert(token.IDENT) {
		return nil, false
	}
	name := p.tok.Value
	if !p.next() || !p.assertAndNext(token.ASSIGN) {
		return nil, false
	}
	t, ok := p.parseType()
	if !ok {
		return nil, false
	}
	if !p.assertAndNext(token.SEMI) {
		return nil, false
	}
	return &ast.Typedef{Name: name, Target: t}, true
}

func (p *Parser) parseNamespace() (ast.TopLevel, bool) {
	if !p.next() { // consume 'namespace'
		return nil, false
	}
	if !p.assert(token.IDENT) {
		return nil, false
	}
	name := p.tok.Value
	if !p.next() || !p.assertAndNext(token.LBRACE) {
		return nil, false
	}

	ns := &ast.NamespaceDecl{Name: name}
	for !p.got(token.RBRACE) && !p.got(token.EOF) {
		d, ok := p.parseTopLevel()
		if !ok {
			p.sync(token.FUNC, token.CLASS, token.UNION, token.TYPEDEF, token.RBRACE)
			continue
		}
		ns.Decls = append(ns.Decls, d)
	}

	if !p.assertAndNext(token.RBRACE) {
		return nil, false
	}
	return ns, true
}

func (p *Parser) parseImport() (ast.TopLevel, bool) {
	if !p.next() { // consume 'import'
		return nil, false
	}
	if !p.assert(token.STRINGLIT) {
		return nil, false
	}
	path := p.tok.Value
	if !p.next() {
		return nil, false
	}

	imp := &ast.Import{Path: path}
	if p.got(token.AS) {
		if !p.next() || !p.assert(token.IDENT) {
			return nil, false
		}
		imp.Alias = p.tok.Value
		if !p.next() {
			return nil, false
		}
	}

	if !p.assertAndNext(token.SEMI) {
		return nil, false
	}
	return imp, true
}
