package ast

import "github.com/yohashinoio/twkl/internal/types"

// TopLevel is implemented by every top-level declaration.
type TopLevel interface {
	Node
}

// Visibility controls cross-namespace symbol visibility; it does not
// by itself determine back-end linkage (see DESIGN.md Open Question 2).
type Visibility int

const (
	Private Visibility = iota
	Public
)

// Param is one parameter of a FuncDecl/FuncDef.
type Param struct {
	Name string
	Type types.Type
}

// FuncDecl is a function prototype with no body: `extern func name(...) -> T;`
type FuncDecl struct {
	Base
	Name       string
	Params     []Param
	Variadic   bool
	Return     types.Type
	Vis        Visibility
	Attrs      []Attribute
	TypeParams []string
}

// FuncDef is a function definition with a body. A non-empty Receiver
// names the enclosing class for a method.
type FuncDef struct {
	Base
	Name       string
	Receiver   string
	Params     []Param
	Variadic   bool
	Return     types.Type
	Body       *Compound
	Vis        Visibility
	Attrs      []Attribute
	TypeParams []string
}

// Field is one field of a ClassDef.
type Field struct {
	Name string
	Type types.Type
	Vis  Visibility
}

// ClassDecl forward-declares a class without defining its body, used
// to break definition-order cycles between mutually referencing
// classes.
type ClassDecl struct {
	Base
	Name       string
	TypeParams []string
}

// ClassDef defines a class's fields and methods. Methods are parsed as
// FuncDef nodes with Receiver set to Name and collected here.
type ClassDef struct {
	Base
	Name       string
	Fields     []Field
	Methods    []*FuncDef
	TypeParams []string
	Attrs      []Attribute
}

// UnionVariant is one tagged alternative of a UnionDef.
type UnionVariant struct {
	Name string
	Type types.Type // nil for a unit (tag-only) variant
}

// UnionDef defines a tagged union type.
type UnionDef struct {
	Base
	Name       string
	Variants   []UnionVariant
	TypeParams []string
}

// Typedef is `typedef Alias = T;`.
type Typedef struct {
	Base
	Name   string
	Target types.Type
}

// Import brings another translation unit's public symbols into scope,
// optionally under a local alias.
type Import struct {
	Base
	Path  string
	Alias string
}

// NamespaceDecl opens `namespace name { ... }`, scoping the contained
// top-level declarations under name.
type NamespaceDecl struct {
	Base
	Name  string
	Decls []TopLevel
}

// File is the root node of one parsed translation unit.
type File struct {
	Base
	Path  string
	Decls []TopLevel
}
