package report

import "fmt"

// ParseError is an expectation failure at a source span. The parser
// recovers from these by synchronizing and continues, so a single parse
// can accumulate many.
type ParseError struct {
	File string
	Span Span
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error: %s", e.File, e.Span.StartLine+1, e.Span.StartCol+1, e.Msg)
}

// CodegenError is a semantic or lowering failure: type mismatch, unknown
// name, redefinition, invalid cast, non-assignable target, arity mismatch,
// unknown operator, incomplete type, or template instantiation failure.
// Codegen records one in the sink and returns; lowering of the current
// translation unit goes on past it rather than stopping at the first.
type CodegenError struct {
	File string
	Span Span
	Msg  string
}

func (e *CodegenError) Error() string {
	return fmt.Sprintf("%s:%d:%d: error: %s", e.File, e.Span.StartLine+1, e.Span.StartCol+1, e.Msg)
}

// BackendError is a failure reported by the back-end collaborator: IR
// verification, object/assembly emission, or JIT symbol lookup. It is
// non-recoverable for the current translation unit.
type BackendError struct {
	Stage string // "verify", "emit", "jit"
	Msg   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s error: %s", e.Stage, e.Msg)
}

// IOError wraps a file open/read/write failure encountered by the driver.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Newf builds a CodegenError with a formatted message. Codegen's
// Generator.errorf records the result in the sink as an accumulated,
// reported diagnostic; nothing panics with it.
func Newf(file string, span Span, format string, args ...interface{}) *CodegenError {
	return &CodegenError{File: file, Span: span, Msg: fmt.Sprintf(format, args...)}
}
