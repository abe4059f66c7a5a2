// Package ast defines the variant node types produced by internal/parser
// and consumed by internal/codegen.
package ast

import "github.com/yohashinoio/twkl/internal/report"

// Node is the interface implemented by every AST node. Position
// information lives in the shared position cache rather than inline in
// each node, so a node only needs to carry its cache handle.
type Node interface {
	NodeID() report.NodeID
}

// Base is embedded by every concrete node and supplies the NodeID.
type Base struct {
	ID report.NodeID
}

func (b Base) NodeID() report.NodeID { return b.ID }

// ValueCategory distinguishes lvalues from rvalues for assignment and
// address-of validation.
type ValueCategory int

const (
	RValue ValueCategory = iota
	LValue
)

// Attribute is one entry of a `[[...]]` attribute list attached to a
// top-level declaration.
type Attribute struct {
	Name string
	Args []string
}

// HasAttr reports whether attrs contains one named name.
func HasAttr(attrs []Attribute, name string) bool {
	for _, a := range attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}
