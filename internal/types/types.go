// Package types implements the type sum of internal/ast's data model:
// builtin primitives, pointers, references, arrays, and user-defined
// class/union types, plus the injective mapping onto llir/llvm IR types.
package types

import (
	"fmt"
	"strings"

	lltypes "github.com/llir/llvm/ir/types"
)

// Type is implemented by every type variant. equals compares two types
// structurally without unwrapping named references; the package-level
// Equal helper is its nil-safe entry point and unwraps nothing either.
type Type interface {
	equals(other Type) bool
	Repr() string
}

// Equal reports whether a and b denote the same type.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.equals(b)
}

// Builtin enumerates the primitive types. Integral builtins are listed
// in order of bit width; Promote compares widths through BitWidth.
type Builtin int

const (
	Void Builtin = iota
	Bool
	I8
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
	Char
)

func (b Builtin) equals(other Type) bool {
	ob, ok := other.(Builtin)
	return ok && b == ob
}

func (b Builtin) Repr() string {
	switch b {
	case Void:
		return "void"
	case Bool:
		return "bool"
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Char:
		return "char"
	}
	return "<unknown builtin>"
}

// IsIntegral reports whether b is a signed or unsigned integer kind.
func (b Builtin) IsIntegral() bool { return b >= I8 && b <= U64 }

// IsUnsigned reports whether b is an unsigned integer kind.
func (b Builtin) IsUnsigned() bool {
	switch b {
	case U8, U16, U32, U64:
		return true
	}
	return false
}

// IsFloating reports whether b is a floating-point kind.
func (b Builtin) IsFloating() bool { return b == F32 || b == F64 }

// BitWidth returns the storage width in bits of an integral or
// floating-point builtin. Bool is stored as 8 bits (see DESIGN.md Open
// Question 3).
func (b Builtin) BitWidth() int {
	switch b {
	case Bool, I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32:
		return 32
	case I64, U64, F64:
		return 64
	case F32:
		return 32
	}
	return 0
}

// Pointer is a raw pointer to Elem.
type Pointer struct {
	Elem  Type
	Const bool
}

func (p *Pointer) equals(other Type) bool {
	op, ok := other.(*Pointer)
	return ok && p.Const == op.Const && Equal(p.Elem, op.Elem)
}

func (p *Pointer) Repr() string {
	if p.Const {
		return "*const " + p.Elem.Repr()
	}
	return "*" + p.Elem.Repr()
}

// Reference is a bound reference to Elem, distinct from Pointer for
// overload resolution and implicit-dereference purposes.
type Reference struct {
	Elem  Type
	Const bool
}

func (r *Reference) equals(other Type) bool {
	or, ok := other.(*Reference)
	return ok && r.Const == or.Const && Equal(r.Elem, or.Elem)
}

func (r *Reference) Repr() string {
	if r.Const {
		return "&const " + r.Elem.Repr()
	}
	return "&" + r.Elem.Repr()
}

// Array is a fixed-length array of Elem.
type Array struct {
	Elem Type
	Len  int
}

func (a *Array) equals(other Type) bool {
	oa, ok := other.(*Array)
	return ok && a.Len == oa.Len && Equal(a.Elem, oa.Elem)
}

func (a *Array) Repr() string {
	return fmt.Sprintf("[%d]%s", a.Len, a.Elem.Repr())
}

// Func is a function signature, used for first-class function values
// and as the shape consulted by the mangler and call type-checking.
type Func struct {
	Params   []Type
	Return   Type
	Variadic bool
}

func (f *Func) equals(other Type) bool {
	of, ok := other.(*Func)
	if !ok || len(f.Params) != len(of.Params) || f.Variadic != of.Variadic {
		return false
	}
	for i, p := range f.Params {
		if !Equal(p, of.Params[i]) {
			return false
		}
	}
	return Equal(f.Return, of.Return)
}

func (f *Func) Repr() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range f.Params {
		if i != 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Repr())
	}
	sb.WriteString(") -> ")
	sb.WriteString(f.Return.Repr())
	return sb.String()
}

// Named identifies a user-defined class or union type by its
// namespace-qualified name (e.g. "ns::Box"). The registries in internal/sym own the
// full Class/Union definitions; Named is the lightweight handle stored
// inside other Type values to avoid a cyclic reference to internal/sym.
type Named struct {
	QualName string
}

func (n *Named) equals(other Type) bool {
	on, ok := other.(*Named)
	return ok && n.QualName == on.QualName
}

func (n *Named) Repr() string { return n.QualName }

// UserDefinedTemplate identifies a not-yet-instantiated reference to a
// generic class, e.g. `Box<i32>`: Base names the class template and
// Args the concrete type arguments applied at this use site.
// internal/codegen does not instantiate class templates: nothing
// records an entry in sym.Registries.CreatedClassTmpls or registers a
// class layout under the type's MangledName.
type UserDefinedTemplate struct {
	Base Named
	Args []Type
}

func (u *UserDefinedTemplate) equals(other Type) bool {
	ou, ok := other.(*UserDefinedTemplate)
	if !ok || u.Base.QualName != ou.Base.QualName || len(u.Args) != len(ou.Args) {
		return false
	}
	for i, a := range u.Args {
		if !Equal(a, ou.Args[i]) {
			return false
		}
	}
	return true
}

// MangledName renders a UserDefinedTemplate into a flat qualified name:
// the base name followed by `$` and each argument's Repr (e.g.
// "Box$i32"), the suffix scheme function template instantiations are
// named with, so each concrete instantiation of a class template gets
// its own distinct class/struct identity.
func (u *UserDefinedTemplate) MangledName() string {
	var sb strings.Builder
	sb.WriteString(u.Base.QualName)
	for _, a := range u.Args {
		sb.WriteByte('$')
		sb.WriteString(a.Repr())
	}
	return sb.String()
}

func (u *UserDefinedTemplate) Repr() string {
	var sb strings.Builder
	sb.WriteString(u.Base.QualName)
	sb.WriteByte('<')
	for i, a := range u.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Repr())
	}
	sb.WriteByte('>')
	return sb.String()
}

// ToLLVM maps a Type onto its llir/llvm IR representation. classLayout
// resolves a Named type to its already-built llir struct type; it is
// supplied by internal/codegen, which owns the registry of lowered
// class layouts.
func ToLLVM(t Type, classLayout func(qualName string) lltypes.Type) lltypes.Type {
	switch v := t.(type) {
	case Builtin:
		return builtinToLLVM(v)
	case *Pointer:
		return lltypes.NewPointer(ToLLVM(v.Elem, classLayout))
	case *Reference:
		return lltypes.NewPointer(ToLLVM(v.Elem, classLayout))
	case *Array:
		return lltypes.NewArray(uint64(v.Len), ToLLVM(v.Elem, classLayout))
	case *Func:
		params := make([]lltypes.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = ToLLVM(p, classLayout)
		}
		return lltypes.NewPointer(lltypes.NewFunc(ToLLVM(v.Return, classLayout), params...))
	case *Named:
		if lt := classLayout(v.QualName); lt != nil {
			return lltypes.NewPointer(lt)
		}
		return lltypes.NewPointer(lltypes.NewStruct())
	case *UserDefinedTemplate:
		qn := v.MangledName()
		if lt := classLayout(qn); lt != nil {
			return lltypes.NewPointer(lt)
		}
		return lltypes.NewPointer(lltypes.NewStruct())
	}
	return lltypes.Void
}

func builtinToLLVM(b Builtin) lltypes.Type {
	switch b {
	case Void:
		return lltypes.Void
	case Bool, I8, U8:
		return lltypes.I8
	case I16, U16:
		return lltypes.I16
	case I32, U32:
		return lltypes.I32
	case I64, U64:
		return lltypes.I64
	case F32:
		return lltypes.Float
	case F64:
		return lltypes.Double
	case Char:
		return lltypes.I32
	}
	return lltypes.Void
}

// Promote computes the result type of a binary arithmetic operation
// between two builtin operand types: the wider type wins, and on a tie
// the unsigned type wins, mirroring integer promotion familiar from C
// and adopted by the teacher's own cast rules in generate/gen_expr.go.
func Promote(a, b Builtin) Builtin {
	if a.IsFloating() || b.IsFloating() {
		if a == F64 || b == F64 {
			return F64
		}
		return F32
	}
	if a.BitWidth() != b.BitWidth() {
		if a.BitWidth() > b.BitWidth() {
			return a
		}
		return b
	}
	if a.IsUnsigned() {
		return a
	}
	return b
}

// CastAllowed reports whether an explicit `as` cast from src to dst is
// permitted: integer-to-integer conversions and pointer-to-pointer
// reinterpretation only, matching the component design's explicit-cast
// rule set. Any other combination -- including a float on either side
// -- is rejected; implicit widening (see genCast) is unaffected by
// this gate.
func CastAllowed(src, dst Type) bool {
	sb, sok := src.(Builtin)
	db, dok := dst.(Builtin)
	if sok && dok {
		return sb.IsIntegral() && db.IsIntegral()
	}
	_, sp := src.(*Pointer)
	_, dp := dst.(*Pointer)
	return sp && dp
}
