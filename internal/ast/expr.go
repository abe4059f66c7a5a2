package ast

import (
	"github.com/yohashinoio/twkl/internal/report"
	"github.com/yohashinoio/twkl/internal/types"
)

// Expr is implemented by every expression node. Type/SetType let the
// checker annotate a node in place once its type has been resolved,
// following the same deferred-annotation shape as the teacher's own
// Expr interface.
type Expr interface {
	Node
	Type() types.Type
	SetType(types.Type)
	Category() ValueCategory
}

// ExprBase is embedded by every expression variant.
type ExprBase struct {
	Base
	typ types.Type
	cat ValueCategory
}

func NewExprBase(id report.NodeID, cat ValueCategory) ExprBase {
	return ExprBase{Base: Base{ID: id}, cat: cat}
}

func (e *ExprBase) Type() types.Type        { return e.typ }
func (e *ExprBase) SetType(t types.Type)    { e.typ = t }
func (e *ExprBase) Category() ValueCategory { return e.cat }

// IntLit is an integer literal. Literals carry no width suffix; every
// IntLit is typed i32.
type IntLit struct {
	ExprBase
	Text string
}

// FloatLit is a floating point literal.
type FloatLit struct {
	ExprBase
	Text string
}

// BoolLit is `true` or `false`.
type BoolLit struct {
	ExprBase
	Value bool
}

// StringLit is a double-quoted string literal.
type StringLit struct {
	ExprBase
	Value string
}

// CharLit is a single-codepoint character literal.
type CharLit struct {
	ExprBase
	Value rune
}

// NullLit is the null pointer literal.
type NullLit struct {
	ExprBase
}

// Identifier is a name reference, resolved against the symbol table
// during lowering.
type Identifier struct {
	ExprBase
	Name string
}

// ScopeResolution is `Namespace::Name` or `Class::member`.
type ScopeResolution struct {
	ExprBase
	Path []string
}

// UnaryOp is a prefix unary operator application: `-x`, `!x`, `~x`,
// `*x` (dereference), `&x` (address-of).
type UnaryOp struct {
	ExprBase
	Op      string
	Operand Expr
}

// BinaryOp is an infix binary operator application.
type BinaryOp struct {
	ExprBase
	Op       string
	Lhs, Rhs Expr
}

// Cast is an explicit `expr as T` conversion.
type Cast struct {
	ExprBase
	Src Expr
	Dst types.Type
}

// Pipeline is `lhs |> rhs`, sugar for calling rhs with lhs prepended
// to its argument list.
type Pipeline struct {
	ExprBase
	Lhs, Rhs Expr
}

// Call is a function or method call.
type Call struct {
	ExprBase
	Callee   Expr
	Args     []Expr
	TypeArgs []types.Type // explicit template arguments, if any
}

// New is a `new T(args...)` heap allocation expression.
type New struct {
	ExprBase
	Target types.Type
	Args   []Expr
}

// Delete is a `delete expr` deallocation statement-expression.
type Delete struct {
	ExprBase
	Target Expr
}

// MemberAccess is `expr.name`.
type MemberAccess struct {
	ExprBase
	Object Expr
	Name   string
}

// Subscript is `expr[index]`.
type Subscript struct {
	ExprBase
	Object Expr
	Index  Expr
}

// ArrayLit is `[e1, e2, ...]`.
type ArrayLit struct {
	ExprBase
	Elems []Expr
}

// ClassLit is `ClassName{field: value, ...}`.
type ClassLit struct {
	ExprBase
	ClassName string
	Fields    []FieldInit
}

// FieldInit is one `name: value` entry of a ClassLit.
type FieldInit struct {
	Name  string
	Value Expr
}

// SizeofType is `sizeof(T)`.
type SizeofType struct {
	ExprBase
	Target types.Type
}

// BuiltinCall is a compiler intrinsic invoked by reserved name, such
// as `__strlen`, mirroring the teacher's IntrinsicName
// dispatch in generate/gen_expr.go.
type BuiltinCall struct {
	ExprBase
	Name string
	Args []Expr
}
