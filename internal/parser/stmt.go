package parser

import (
	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/token"
)

// parseCompound parses a `{ stmt* }` block.
func (p *Parser) parseCompound() (*ast.Compound, bool) {
	if !p.assertAndNext(token.LBRACE) {
		return nil, false
	}

	c := &ast.Compound{}
	for !p.got(token.RBRACE) && !p.got(token.EOF) {
		s, ok := p.parseStmt()
		if !ok {
			p.sync(token.SEMI, token.RBRACE)
			if p.got(token.SEMI) {
				p.next()
			}
			continue
		}
		c.Stmts = append(c.Stmts, s)
	}

	if !p.assertAndNext(token.RBRACE) {
		return nil, false
	}
	return c, true
}

// parseStmt parses one statement, including the trailing `;` where
// the grammar requires one.
func (p *Parser) parseStmt() (ast.Stmt, bool) {
	switch p.tok.Kind {
	case token.SEMI:
		if !p.next() {
			return nil, false
		}
		return &ast.Empty{}, true

	case token.LBRACE:
		return p.parseCompound()

	case token.RETURN:
		if !p.next() {
			return nil, false
		}
		var v ast.Expr
		if !p.got(token.SEMI) {
			var ok bool
			v, ok = p.parseExpr()
			if !ok {
				return nil, false
			}
		}
		if !p.assertAndNext(token.SEMI) {
			return nil, false
		}
		return &ast.Return{Value: v}, true

	case token.VAR:
		return p.parseVarDef()

	case token.IF:
		return p.parseIf()

	case token.LOOP:
		if !p.next() {
			return nil, false
		}
		body, ok := p.parseCompound()
		if !ok {
			return nil, false
		}
		return &ast.Loop{Body: body}, true

	case token.WHILE:
		if !p.next() {
			return nil, false
		}
		cond, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		body, ok := p.parseCompound()
		if !ok {
			return nil, false
		}
		return &ast.While{Cond: cond, Body: body}, true

	case token.FOR:
		return p.parseFor()

	case token.MATCH:
		return p.parseMatch()

	case token.BREAK:
		if !p.next() || !p.assertAndNext(token.SEMI) {
			return nil, false
		}
		return &ast.Break{}, true

	case token.CONTINUE:
		if !p.next() || !p.assertAndNext(token.SEMI) {
			return nil, false
		}
		return &ast.Continue{}, true

	case token.INC, token.DEC:
		op := ast.Increment
		if p.tok.Kind == token.DEC {
			op = ast.Decrement
		}
		if !p.next() {
			return nil, false
		}
		operand, ok := p.parseUnary()
		if !ok {
			return nil, false
		}
		if !p.assertAndNext(token.SEMI) {
			return nil, false
		}
		return &ast.IncDec{Op: op, Operand: operand}, true

	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *Parser) parseVarDef() (ast.Stmt, bool) {
	if !p.next() { // consume 'var'
		return nil, false
	}
	mutable := false
	if p.got(token.MUTABLE) {
		mutable = true
		if !p.next() {
			return nil, false
		}
	}
	if !p.assert(token.IDENT) {
		return nil, false
	}
	name := p.tok.Value
	if !p.next() {
		return nil, false
	}

	var declared ast.VarDef
	declared.Name = name
	declared.Mutable = mutable

	if p.got(token.COLON) {
		if !p.next() {
			return nil, false
		}
		t, ok := p.parseType()
		if !ok {
			return nil, false
		}
		declared.Explicit = t
	}

	if !p.assertAndNext(token.ASSIGN) {
		return nil, false
	}

	v, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	declared.Value = v

	if !p.assertAndNext(token.SEMI) {
		return nil, false
	}
	return &declared, true
}

func (p *Parser) parseIf() (ast.Stmt, bool) {
	if !p.next() { // consume 'if'
		return nil, false
	}
	cond, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	then, ok := p.parseCompound()
	if !ok {
		return nil, false
	}

	stmt := &ast.If{Cond: cond, Then: then}

	for p.got(token.ELSE) {
		if !p.next() {
			return nil, false
		}
		if p.got(token.IF) {
			if !p.next() {
				return nil, false
			}
			elifCond, ok := p.parseExpr()
			if !ok {
				return nil, false
			}
			elifBody, ok := p.parseCompound()
			if !ok {
				return nil, false
			}
			stmt.Elifs = append(stmt.Elifs, ast.ElifClause{Cond: elifCond, Body: elifBody})
			continue
		}
		elseBody, ok := p.parseCompound()
		if !ok {
			return nil, false
		}
		stmt.Else = elseBody
		break
	}

	return stmt, true
}

func (p *Parser) parseFor() (ast.Stmt, bool) {
	if !p.next() { // consume 'for'
		return nil, false
	}

	var init ast.Stmt
	if !p.got(token.SEMI) {
		var ok bool
		init, ok = p.parseStmt() // consumes its own ';'
		if !ok {
			return nil, false
		}
	} else if !p.next() {
		return nil, false
	}

	var cond ast.Expr
	if !p.got(token.SEMI) {
		var ok bool
		cond, ok = p.parseExpr()
		if !ok {
			return nil, false
		}
	}
	if !p.assertAndNext(token.SEMI) {
		return nil, false
	}

	var post ast.Stmt
	if !p.got(token.LBRACE) {
		expr, ok := p.parseAssignTarget()
		if !ok {
			return nil, false
		}
		post = expr
	}

	body, ok := p.parseCompound()
	if !ok {
		return nil, false
	}

	return &ast.For{Init: init, Cond: cond, Post: post, Body: body}, true
}

// parseAssignTarget parses an assignment or bare expression without
// requiring a trailing semicolon, used for a for-loop's post-clause.
func (p *Parser) parseAssignTarget() (ast.Stmt, bool) {
	e, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	if op, isAssign := assignOps[p.tok.Kind]; isAssign {
		if !p.next() {
			return nil, false
		}
		rhs, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		return &ast.Assignment{Op: op, Lhs: e, Rhs: rhs}, true
	}
	return &ast.ExprStmt{X: e}, true
}

var assignOps = map[token.Kind]ast.AssignOp{
	token.ASSIGN: ast.Assign, token.PLUSEQ: ast.AddAssign,
	token.MINUSEQ: ast.SubAssign, token.STAREQ: ast.MulAssign,
	token.SLASHEQ: ast.DivAssign, token.PERCENTEQ: ast.ModAssign,
}

func (p *Parser) parseExprOrAssignStmt() (ast.Stmt, bool) {
	e, ok := p.parseExpr()
	if !ok {
		return nil, false
	}

	if op, isAssign := assignOps[p.tok.Kind]; isAssign {
		if !p.next() {
			return nil, false
		}
		rhs, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		if !p.assertAndNext(token.SEMI) {
			return nil, false
		}
		return &ast.Assignment{Op: op, Lhs: e, Rhs: rhs}, true
	}

	if !p.assertAndNext(token.SEMI) {
		return nil, false
	}
	return &ast.ExprStmt{X: e}, true
}

func (p *Parser) parseMatch() (ast.Stmt, bool) {
	if !p.next() { // consume 'match'
		return nil, false
	}
	subject, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	if !p.assertAndNext(token.LBRACE) {
		return nil, false
	}

	m := &ast.Match{Subject: subject}
	for !p.got(token.RBRACE) && !p.got(token.EOF) {
		var pattern ast.Expr
		if p.got(token.IDENT) && p.tok.Value == "_" {
			if !p.next() {
				return nil, false
			}
		} else {
			var ok bool
			pattern, ok = p.parseExpr()
			if !ok {
				return nil, false
			}
		}
		if !p.assertAndNext(token.FATARROW) {
			return nil, false
		}
		body, ok := p.parseCompound()
		if !ok {
			return nil, false
		}
		m.Arms = append(m.Arms, ast.MatchArm{Pattern: pattern, Body: body})
		if p.got(token.COMMA) {
			if !p.next() {
				return nil, false
			}
		}
	}

	if !p.assertAndNext(token.RBRACE) {
		return nil, false
	}
	return m, true
}
