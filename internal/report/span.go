// Package report implements positional diagnostics: source spans, the
// position cache that maps AST nodes to source ranges, and the error
// taxonomy (parse/codegen/backend/IO) raised while compiling a translation
// unit.
package report

// Span is a range of source text: the start is inclusive and EndCol is the
// column just past the last character. Lines and columns are zero-indexed
// internally and displayed as 1-indexed.
type Span struct {
	StartLine, StartCol int
	EndLine, EndCol     int
}

// Over returns the span that starts where a begins and ends where b ends.
func Over(a, b Span) Span {
	return Span{
		StartLine: a.StartLine,
		StartCol:  a.StartCol,
		EndLine:   b.EndLine,
		EndCol:    b.EndCol,
	}
}

// NodeID identifies an AST node for lookup in a PositionCache. Integer IDs
// assigned at parse time are used instead of inlining a span in every node,
// per the side-table approach.
type NodeID int

// PositionCache maps AST node identities to their source span. It is owned
// by the parser's result for one translation unit and consulted by semantic
// analysis and codegen when they need to report an error.
type PositionCache struct {
	spans []Span
}

// NewPositionCache creates an empty position cache.
func NewPositionCache() *PositionCache {
	return &PositionCache{}
}

// Add records a span and returns the NodeID that refers to it.
func (pc *PositionCache) Add(s Span) NodeID {
	pc.spans = append(pc.spans, s)
	return NodeID(len(pc.spans) - 1)
}

// Span returns the span for the given node ID.
func (pc *PositionCache) Span(id NodeID) Span {
	return pc.spans[id]
}
