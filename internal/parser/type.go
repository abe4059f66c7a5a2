package parser

import (
	"strconv"

	"github.com/yohashinoio/twkl/internal/token"
	"github.com/yohashinoio/twkl/internal/types"
)

var builtinKinds = map[token.Kind]types.Builtin{
	token.VOID: types.Void, token.BOOL: types.Bool,
	token.I8: types.I8, token.U8: types.U8,
	token.I16: types.I16, token.U16: types.U16,
	token.I32: types.I32, token.U32: types.U32,
	token.I64: types.I64, token.U64: types.U64,
	token.F32: types.F32, token.F64: types.F64,
	token.CHAR: types.Char,
}

// parseType parses a type label: builtin | named | *T | &T | [N]T.
func (p *Parser) parseType() (types.Type, bool) {
	switch {
	case p.got(token.STAR):
		if !p.next() {
			return nil, false
		}
		constP := p.consumeConst()
		elem, ok := p.parseType()
		if !ok {
			return nil, false
		}
		return &types.Pointer{Elem: elem, Const: constP}, true

	case p.got(token.AMP):
		if !p.next() {
			return nil, false
		}
		constR := p.consumeConst()
		elem, ok := p.parseType()
		if !ok {
			return nil, false
		}
		return &types.Reference{Elem: elem, Const: constR}, true

	case p.got(token.LBRACKET):
		if !p.next() {
			return nil, false
		}
		if !p.assert(token.INTLIT) {
			return nil, false
		}
		n, err := strconv.Atoi(p.tok.Value)
		if err != nil {
			p.rejectf("invalid array length %q", p.tok.Value)
			return nil, false
		}
		if !p.next() || !p.assertAndNext(token.RBRACKET) {
			return nil, false
		}
		elem, ok := p.parseType()
		if !ok {
			return nil, false
		}
		return &types.Array{Elem: elem, Len: n}, true

	case p.got(token.IDENT):
		name := p.tok.Value
		if !p.next() {
			return nil, false
		}
		if p.got(token.LT) && p.looksLikeTypeTemplateArgs() {
			args, ok := p.parseTemplateArgs()
			if !ok {
				return nil, false
			}
			return &types.UserDefinedTemplate{Base: types.Named{QualName: name}, Args: args}, true
		}
		return &types.Named{QualName: name}, true

	default:
		if bk, ok := builtinKinds[p.tok.Kind]; ok {
			if !p.next() {
				return nil, false
			}
			return bk, true
		}
	}

	p.rejectf("expected type, got %s", p.tok.Kind)
	return nil, false
}

// consumeConst consumes an optional `const` qualifier and reports
// whether it was present.
func (p *Parser) consumeConst() bool {
	if p.got(token.CONST) {
		p.next()
		return true
	}
	return false
}
