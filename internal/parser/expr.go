package parser

import (
	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/report"
	"github.com/yohashinoio/twkl/internal/token"
	"github.com/yohashinoio/twkl/internal/types"
)

// precTable holds binary operator kinds grouped by precedence,
// lowest first, following the teacher's precedenceParse table. opText
// below maps each kind to the node-level operator text used by the
// lowering pass, rather than re-deriving it from the token kind there.
var precTable = [][]token.Kind{
	{token.LOR},
	{token.LAND},
	{token.PIPE},
	{token.CARET},
	{token.AMP},
	{token.EQ, token.NEQ},
	{token.LT, token.GT, token.LTEQ, token.GTEQ},
	{token.SHL, token.SHR},
	{token.PLUS, token.MINUS},
	{token.STAR, token.SLASH, token.PERCENT},
}

var opText = map[token.Kind]string{
	token.LOR: "||", token.LAND: "&&", token.PIPE: "|", token.CARET: "^",
	token.AMP: "&", token.EQ: "==", token.NEQ: "!=", token.LT: "<",
	token.GT: ">", token.LTEQ: "<=", token.GTEQ: ">=", token.SHL: "<<",
	token.SHR: ">>", token.PLUS: "+", token.MINUS: "-", token.STAR: "*",
	token.SLASH: "/", token.PERCENT: "%",
}

// parseExpr parses a full expression, including the `|>` pipeline
// operator, which binds more loosely than every binary operator: each
// of its operands is a whole binary expression. Assignment is handled
// separately by statement-level parsing.
func (p *Parser) parseExpr() (ast.Expr, bool) {
	lhs, ok := p.parseBinExpr(0)
	if !ok {
		return nil, false
	}

	for p.got(token.PIPELINE) {
		start := p.here()
		if !p.next() {
			return nil, false
		}
		rhs, ok := p.parseBinExpr(0)
		if !ok {
			return nil, false
		}
		id := p.span(start)
		lhs = &ast.Pipeline{ExprBase: ast.NewExprBase(id, ast.RValue), Lhs: lhs, Rhs: rhs}
	}

	return lhs, true
}

// parseBinExpr implements precedence-climbing over precTable[minLevel:].
func (p *Parser) parseBinExpr(minLevel int) (ast.Expr, bool) {
	lhs, ok := p.parseUnary()
	if !ok {
		return nil, false
	}
	return p.climb(lhs, minLevel)
}

func (p *Parser) climb(lhs ast.Expr, minLevel int) (ast.Expr, bool) {
	for {
		level := -1
		for i := minLevel; i < len(precTable); i++ {
			if p.gotOneOf(precTable[i]...) {
				level = i
				break
			}
		}
		if level == -1 {
			return lhs, true
		}

		start := p.here()
		opKind := p.tok.Kind
		if !p.next() {
			return nil, false
		}

		rhs, ok := p.parseUnary()
		if !ok {
			return nil, false
		}

		for {
			nextLevel := -1
			for i := level + 1; i < len(precTable); i++ {
				if p.gotOneOf(precTable[i]...) {
					nextLevel = i
					break
				}
			}
			if nextLevel == -1 {
				break
			}
			rhs, ok = p.climb(rhs, nextLevel)
			if !ok {
				return nil, false
			}
		}

		id := p.span(start)
		lhs = &ast.BinaryOp{ExprBase: ast.NewExprBase(id, ast.RValue), Op: opText[opKind], Lhs: lhs, Rhs: rhs}
	}
}

var unaryOps = map[token.Kind]string{
	token.MINUS: "-", token.BANG: "!", token.TILDE: "~",
	token.STAR: "*", token.AMP: "&",
}

// parseUnary parses a prefix unary operator chain, `sizeof(T)`, `new`,
// `delete`, or falls through to a postfix expression.
func (p *Parser) parseUnary() (ast.Expr, bool) {
	if op, ok := unaryOps[p.tok.Kind]; ok {
		start := p.here()
		if !p.next() {
			return nil, false
		}
		operand, ok := p.parseUnary()
		if !ok {
			return nil, false
		}
		id := p.span(start)
		cat := ast.RValue
		if op == "*" {
			cat = ast.LValue
		}
		return &ast.UnaryOp{ExprBase: ast.NewExprBase(id, cat), Op: op, Operand: operand}, true
	}

	switch p.tok.Kind {
	case token.SIZEOF:
		start := p.here()
		if !p.next() || !p.assertAndNext(token.LPAREN) {
			return nil, false
		}
		t, ok := p.parseType()
		if !ok {
			return nil, false
		}
		if !p.assertAndNext(token.RPAREN) {
			return nil, false
		}
		id := p.span(start)
		return &ast.SizeofType{ExprBase: ast.NewExprBase(id, ast.RValue), Target: t}, true

	case token.NEW:
		start := p.here()
		if !p.next() {
			return nil, false
		}
		t, ok := p.parseType()
		if !ok {
			return nil, false
		}
		var args []ast.Expr
		if p.got(token.LPAREN) {
			if !p.next() {
				return nil, false
			}
			if !p.got(token.RPAREN) {
				args, ok = p.parseArgList()
				if !ok {
					return nil, false
				}
			}
			if !p.assertAndNext(token.RPAREN) {
				return nil, false
			}
		}
		id := p.span(start)
		return &ast.New{ExprBase: ast.NewExprBase(id, ast.RValue), Target: t, Args: args}, true

	case token.DELETE:
		start := p.here()
		if !p.next() {
			return nil, false
		}
		target, ok := p.parseUnary()
		if !ok {
			return nil, false
		}
		id := p.span(start)
		return &ast.Delete{ExprBase: ast.NewExprBase(id, ast.RValue), Target: target}, true

	}

	// Prefix ++/-- is a statement-level construct (ast.IncDec), parsed by
	// parseStmt, not here.
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any chain of
// `.name`, `[index]`, `(args)`, and `as T` postfix operators. `a::b`
// paths are parsed by parsePrimary, not here.
func (p *Parser) parsePostfix() (ast.Expr, bool) {
	e, ok := p.parsePrimary()
	if !ok {
		return nil, false
	}

	// `name<T, U>(...)` is a template call: only attempted right after a
	// bare identifier primary, and only once the bounded lookahead below
	// confirms the `<...>` closes with `>(` rather than being a
	// less-than comparison -- this language has no other construct that
	// opens with `ident <`.
	var typeArgs []types.Type
	if _, isIdent := e.(*ast.Identifier); isIdent && p.got(token.LT) && p.looksLikeTemplateArgs() {
		args, ok2 := p.parseTemplateArgs()
		if !ok2 {
			return nil, false
		}
		typeArgs = args
	}

	for {
		switch p.tok.Kind {
		case token.DOT:
			start := p.here()
			if !p.next() || !p.assert(token.IDENT) {
				return nil, false
			}
			name := p.tok.Value
			if !p.next() {
				return nil, false
			}
			id := p.span(start)
			e = &ast.MemberAccess{ExprBase: ast.NewExprBase(id, ast.LValue), Object: e, Name: name}

		case token.LBRACKET:
			start := p.here()
			if !p.next() {
				return nil, false
			}
			idx, ok := p.parseExpr()
			if !ok {
				return nil, false
			}
			if !p.assertAndNext(token.RBRACKET) {
				return nil, false
			}
			id := p.span(start)
			e = &ast.Subscript{ExprBase: ast.NewExprBase(id, ast.LValue), Object: e, Index: idx}

		case token.LPAREN:
			start := p.here()
			if !p.next() {
				return nil, false
			}
			var args []ast.Expr
			if !p.got(token.RPAREN) {
				var ok bool
				args, ok = p.parseArgList()
				if !ok {
					return nil, false
				}
			}
			if !p.assertAndNext(token.RPAREN) {
				return nil, false
			}
			id := p.span(start)
			e = &ast.Call{ExprBase: ast.NewExprBase(id, ast.RValue), Callee: e, Args: args, TypeArgs: typeArgs}
			typeArgs = nil

		case token.AS:
			start := p.here()
			if !p.next() {
				return nil, false
			}
			t, ok := p.parseType()
			if !ok {
				return nil, false
			}
			id := p.span(start)
			e = &ast.Cast{ExprBase: ast.NewExprBase(id, ast.RValue), Src: e, Dst: t}

		default:
			return e, true
		}
	}
}

// templateArgTokens are the token kinds that can appear inside a
// `<...>` template argument list as parsed by parseType: identifiers,
// builtin type keywords, pointer/reference/array/const markers, commas,
// and array-length integer literals.
var templateArgTokens = map[token.Kind]bool{
	token.IDENT: true, token.COMMA: true, token.STAR: true, token.AMP: true,
	token.CONST: true, token.VOID: true, token.BOOL: true, token.I8: true,
	token.U8: true, token.I16: true, token.U16: true, token.I32: true,
	token.U32: true, token.I64: true, token.U64: true, token.F32: true,
	token.F64: true, token.CHAR: true, token.LBRACKET: true, token.RBRACKET: true,
	token.INTLIT: true,
}

// looksLikeTemplateArgs peeks past the current `<` token to decide
// whether it opens a template-call argument list (closing `>` directly
// followed by `(`) rather than a less-than comparison. It does not
// handle nested template arguments (e.g. `Vec<Box<i32>>`) since the
// lexer tokenizes `>>` as a single right-shift token; a nested generic
// type argument falls back to being parsed as a comparison.
func (p *Parser) looksLikeTemplateArgs() bool {
	for i := 1; i <= 64; i++ {
		t := p.peek(i)
		if t.Kind == token.GT {
			return p.peek(i + 1).Kind == token.LPAREN
		}
		if !templateArgTokens[t.Kind] {
			return false
		}
	}
	return false
}

// looksLikeTypeTemplateArgs is looksLikeTemplateArgs' counterpart for a
// generic type reference such as `Box<i32>` parsed by parseType: it
// only requires the `<...>` to close with a matching `>`, without the
// trailing `(` a template call requires.
func (p *Parser) looksLikeTypeTemplateArgs() bool {
	for i := 1; i <= 64; i++ {
		t := p.peek(i)
		if t.Kind == token.GT {
			return true
		}
		if !templateArgTokens[t.Kind] {
			return false
		}
	}
	return false
}

// parseTemplateArgs parses `<T, U, ...>` assuming the current token is
// the opening `<` and looksLikeTemplateArgs has already confirmed the
// shape.
func (p *Parser) parseTemplateArgs() ([]types.Type, bool) {
	if !p.next() { // consume '<'
		return nil, false
	}
	var args []types.Type
	for {
		t, ok := p.parseType()
		if !ok {
			return nil, false
		}
		args = append(args, t)
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
	return args, true
}

func (p *Parser) parseArgList() ([]ast.Expr, bool) {
	var args []ast.Expr
	for {
		e, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		args = append(args, e)
		if p.got(token.COMMA) {
			if !p.next() {
				return nil, false
			}
			continue
		}
		return args, true
	}
}

// parsePrimary parses a literal, identifier, scope resolution,
// parenthesized expression, or array/class literal.
func (p *Parser) parsePrimary() (ast.Expr, bool) {
	start := p.here()

	switch p.tok.Kind {
	case token.INTLIT:
		v := p.tok.Value
		if !p.next() {
			return nil, false
		}
		id := p.span(start)
		return &ast.IntLit{ExprBase: ast.NewExprBase(id, ast.RValue), Text: v}, true

	case token.FLOATLIT:
		v := p.tok.Value
		if !p.next() {
			return nil, false
		}
		id := p.span(start)
		return &ast.FloatLit{ExprBase: ast.NewExprBase(id, ast.RValue), Text: v}, true

	case token.TRUE, token.FALSE:
		v := p.tok.Kind == token.TRUE
		if !p.next() {
			return nil, false
		}
		id := p.span(start)
		return &ast.BoolLit{ExprBase: ast.NewExprBase(id, ast.RValue), Value: v}, true

	case token.STRINGLIT:
		v := p.tok.Value
		if !p.next() {
			return nil, false
		}
		id := p.span(start)
		return &ast.StringLit{ExprBase: ast.NewExprBase(id, ast.RValue), Value: v}, true

	case token.CHARLIT:
		v := []rune(p.tok.Value)[0]
		if !p.next() {
			return nil, false
		}
		id := p.span(start)
		return &ast.CharLit{ExprBase: ast.NewExprBase(id, ast.RValue), Value: v}, true

	case token.NULL:
		if !p.next() {
			return nil, false
		}
		id := p.span(start)
		return &ast.NullLit{ExprBase: ast.NewExprBase(id, ast.RValue)}, true

	case token.IDENT, token.THIS:
		name := p.tok.Value
		if !p.next() {
			return nil, false
		}
		if p.got(token.COLONCOLON) {
			path := []string{name}
			for p.got(token.COLONCOLON) {
				if !p.next() || !p.assert(token.IDENT) {
					return nil, false
				}
				path = append(path, p.tok.Value)
				if !p.next() {
					return nil, false
				}
			}
			id := p.span(start)
			return &ast.ScopeResolution{ExprBase: ast.NewExprBase(id, ast.RValue), Path: path}, true
		}
		if p.got(token.LBRACE) && startsClassLit(name) {
			return p.parseClassLit(start, name)
		}
		id := p.span(start)
		return &ast.Identifier{ExprBase: ast.NewExprBase(id, ast.LValue), Name: name}, true

	case token.LPAREN:
		if !p.next() {
			return nil, false
		}
		e, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		if !p.assertAndNext(token.RPAREN) {
			return nil, false
		}
		return e, true

	case token.LBRACKET:
		if !p.next() {
			return nil, false
		}
		var elems []ast.Expr
		if !p.got(token.RBRACKET) {
			var ok bool
			elems, ok = p.parseArgList()
			if !ok {
				return nil, false
			}
		}
		if !p.assertAndNext(token.RBRACKET) {
			return nil, false
		}
		id := p.span(start)
		return &ast.ArrayLit{ExprBase: ast.NewExprBase(id, ast.RValue), Elems: elems}, true
	}

	p.rejectf("unexpected token %s in expression", p.tok.Kind)
	return nil, false
}

// startsClassLit disambiguates `Name{` class literals from a
// following block (e.g. `if Name {`) -- the grammar reserves this
// form to identifiers that are capitalized type names by convention.
func startsClassLit(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

func (p *Parser) parseClassLit(start report.Span, name string) (ast.Expr, bool) {
	if !p.next() { // consume '{'
		return nil, false
	}
	var fields []ast.FieldInit
	for !p.got(token.RBRACE) {
		if !p.assert(token.IDENT) {
			return nil, false
		}
		fname := p.tok.Value
		if !p.next() || !p.assertAndNext(token.COLON) {
			return nil, false
		}
		v, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		fields = append(fields, ast.FieldInit{Name: fname, Value: v})
		if p.got(token.COMMA) {
			if !p.next() {
				return nil, false
			}
		}
	}
	if !p.assertAndNext(token.RBRACE) {
		return nil, false
	}
	id := p.span(start)
	return &ast.ClassLit{ExprBase: ast.NewExprBase(id, ast.RValue), ClassName: name, Fields: fields}, true
}
