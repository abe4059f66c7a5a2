// Package parser implements the recursive-descent parser producing
// internal/ast values from an internal/lexer token stream.
package parser

import (
	"bufio"
	"fmt"

	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/lexer"
	"github.com/yohashinoio/twkl/internal/report"
	"github.com/yohashinoio/twkl/internal/token"
)

// Parser is a recursive-descent parser over one translation unit. Each
// parse method assumes the parser sits on the first token of its
// production and leaves it on the first token past it; methods signal
// failure by returning ok=false after recording a diagnostic in sink,
// following the teacher's own assert/next/reject idiom.
type Parser struct {
	file  string
	lex   *lexer.Lexer
	tok   *token.Token
	queue []*token.Token // tokens already lexed ahead of tok, for peek
	pos   *report.PositionCache
	sink  *report.Sink
}

// New creates a parser for one file. file is used only for diagnostic
// messages and the position cache handed back in the result.
func New(file string, r *bufio.Reader, sink *report.Sink) *Parser {
	return &Parser{
		file: file,
		lex:  lexer.New(r),
		pos:  report.NewPositionCache(),
		sink: sink,
	}
}

// Result is everything a successful parse produces.
type Result struct {
	File  *ast.File
	Spans *report.PositionCache
}

// Parse parses the whole file. It returns ok=false if any syntax error
// was recorded, in which case the caller should not attempt lowering.
func (p *Parser) Parse() (*Result, bool) {
	if !p.next() {
		return nil, false
	}

	f, ok := p.parseFile()
	if !ok || p.sink.HasErrors() {
		return nil, false
	}

	return &Result{File: f, Spans: p.pos}, true
}

// next advances to the next token, either from the lookahead queue
// filled by peek or freshly lexed from the underlying stream. It
// reports a ParseError and returns false on a lex error.
func (p *Parser) next() bool {
	if len(p.queue) > 0 {
		p.tok = p.queue[0]
		p.queue = p.queue[1:]
		return true
	}
	tok, err := p.lex.Next()
	if err != nil {
		p.sink.Error(&report.ParseError{File: p.file, Span: p.here(), Msg: err.Error()})
		return false
	}
	p.tok = tok
	return true
}

// peek returns the token n positions past the current one (peek(1) is
// the token right after tok) without consuming it, buffering any
// tokens lexed along the way so next() still sees them in order. Used
// only for the bounded `<...>` template-argument lookahead in
// parsePostfix and parseType; a lex error during peek is reported as an EOF token so
// the caller's lookahead simply fails to match rather than panicking.
func (p *Parser) peek(n int) *token.Token {
	for len(p.queue) < n {
		tok, err := p.lex.Next()
		if err != nil {
			return &token.Token{Kind: token.EOF}
		}
		p.queue = append(p.queue, tok)
	}
	return p.queue[n-1]
}

// here returns the current token's span.
func (p *Parser) here() report.Span {
	return report.Span{StartLine: p.tok.Line, StartCol: p.tok.Col, EndLine: p.tok.EndLine, EndCol: p.tok.EndCol}
}

// span records a span in the position cache and returns its handle.
func (p *Parser) span(s report.Span) report.NodeID {
	return p.pos.Add(s)
}

// got reports whether the current token is of kind k.
func (p *Parser) got(k token.Kind) bool {
	return p.tok.Kind == k
}

// gotOneOf reports whether the current token is one of ks.
func (p *Parser) gotOneOf(ks ...token.Kind) bool {
	for _, k := range ks {
		if p.tok.Kind == k {
			return true
		}
	}
	return false
}

// assert reports an error if the current token is not of kind k.
func (p *Parser) assert(k token.Kind) bool {
	if p.got(k) {
		return true
	}
	p.reject(k)
	return false
}

// assertAndNext asserts kind k then advances past it.
func (p *Parser) assertAndNext(k token.Kind) bool {
	return p.assert(k) && p.next()
}

// reject records a syntax error at the current token, naming want as
// the expected token kind when it is not token.EOF (the zero Kind is
// never passed here intentionally -- callers always supply a real
// expectation).
func (p *Parser) reject(want token.Kind) {
	p.sink.Error(&report.ParseError{
		File: p.file,
		Span: p.here(),
		Msg:  "expected " + want.String() + ", got " + p.tok.Kind.String(),
	})
}

// rejectf records a syntax error with a custom message.
func (p *Parser) rejectf(format string, args ...interface{}) {
	p.sink.Error(&report.ParseError{File: p.file, Span: p.here(), Msg: fmt.Sprintf(format, args...)})
}

// sync recovers from a syntax error by advancing until it sees one of
// the given synchronization tokens (typically SEMI or RBRACE), so a
// single malformed statement does not abort the whole parse.
func (p *Parser) sync(stopAt ...token.Kind) {
	for {
		if p.got(token.EOF) {
			return
		}
		if p.gotOneOf(stopAt...) {
			return
		}
		if !p.next() {
			return
		}
	}
}
