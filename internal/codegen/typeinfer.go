package codegen

import (
	"strings"

	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/types"
)

// typeOf returns e's checked type, computing and caching it via
// SetType on first use. This generator implements type checking as
// part of the same tree-walking pass that lowers to IR -- there is no
// separate checking pass -- so every expression's type is derived
// purely from static information (declared types, the symbol table,
// the registries) the first time it is asked for, regardless of
// whether genExpr has lowered that node yet.
func (g *Generator) typeOf(e ast.Expr) types.Type {
	if t := e.Type(); t != nil {
		return t
	}
	t := g.inferType(e)
	if t == nil {
		t = types.Void
	}
	e.SetType(t)
	return t
}

// inferType computes e's type without consulting the cache; typeOf is
// the entry point every other file should call.
func (g *Generator) inferType(e ast.Expr) types.Type {
	switch v := e.(type) {
	case *ast.IntLit:
		// the lexer does not capture a literal's integer-suffix width
		// (see internal/lexer's lexNumber); every integer literal is
		// i32 unless folded into a wider context by an explicit cast.
		return types.I32
	case *ast.FloatLit:
		return types.F64
	case *ast.BoolLit:
		return types.Bool
	case *ast.StringLit:
		return &types.Pointer{Elem: types.I8}
	case *ast.CharLit:
		return types.Char
	case *ast.NullLit:
		return &types.Pointer{Elem: types.Void}
	case *ast.Identifier:
		if variable, ok := g.vars.Lookup(v.Name); ok {
			return variable.Type
		}
		if qn, ok := g.resolveClass(v.Name); ok {
			return &types.Named{QualName: qn}
		}
		g.errorf(g.spanOf(v), "undefined name %q", v.Name)
		return types.Void
	case *ast.ScopeResolution:
		name := strings.Join(v.Path, "::")
		if ret, ok := g.resolveReturnType(name); ok {
			return ret
		}
		return types.Void
	case *ast.UnaryOp:
		return g.inferUnaryOp(v)
	case *ast.BinaryOp:
		return g.inferBinaryOp(v)
	case *ast.Cast:
		srcT := g.typeOf(v.Src)
		if !types.CastAllowed(srcT, v.Dst) {
			g.errorf(g.spanOf(v), "invalid cast from %s to %s", srcT.Repr(), v.Dst.Repr())
		}
		return v.Dst
	case *ast.Pipeline:
		return g.inferPipeline(v)
	case *ast.Call:
		return g.inferCall(v)
	case *ast.New:
		return &types.Pointer{Elem: v.Target}
	case *ast.Delete:
		return types.Void
	case *ast.MemberAccess:
		return g.inferMemberAccess(v)
	case *ast.Subscript:
		return g.inferSubscript(v)
	case *ast.ArrayLit:
		if len(v.Elems) == 0 {
			return &types.Array{Elem: types.Void, Len: 0}
		}
		return &types.Array{Elem: g.typeOf(v.Elems[0]), Len: len(v.Elems)}
	case *ast.ClassLit:
		if qn, ok := g.resolveClass(v.ClassName); ok {
			return &types.Named{QualName: qn}
		}
		return types.Void
	case *ast.SizeofType:
		return types.U64
	case *ast.BuiltinCall:
		return g.inferBuiltinCall(v)
	}

	g.errorf(g.spanOf(e), "type inference not implemented for %T", e)
	return types.Void
}

func (g *Generator) inferUnaryOp(v *ast.UnaryOp) types.Type {
	switch v.Op {
	case "&":
		return &types.Pointer{Elem: g.typeOf(v.Operand)}
	case "*":
		t := g.typeOf(v.Operand)
		switch elem := t.(type) {
		case *types.Pointer:
			return elem.Elem
		case *types.Reference:
			return elem.Elem
		}
		g.errorf(g.spanOf(v), "cannot dereference non-pointer type %s", t.Repr())
		return types.Void
	case "!":
		return types.Bool
	default: // "-", "~"
		return g.typeOf(v.Operand)
	}
}

func (g *Generator) inferBinaryOp(v *ast.BinaryOp) types.Type {
	switch v.Op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return types.Bool
	}
	lt, rt := g.typeOf(v.Lhs), g.typeOf(v.Rhs)
	lb, lok := lt.(types.Builtin)
	rb, rok := rt.(types.Builtin)
	if lok && rok {
		return types.Promote(lb, rb)
	}
	if lok {
		return lb
	}
	return rt
}

// inferPipeline types `lhs |> rhs` as whatever rhs's call would
// produce once lhs is prepended to its argument list, mirroring
// genExpr's Pipeline desugaring.
func (g *Generator) inferPipeline(v *ast.Pipeline) types.Type {
	return g.typeOf(g.desugarPipeline(v))
}

func (g *Generator) inferCall(v *ast.Call) types.Type {
	var name string
	switch callee := v.Callee.(type) {
	case *ast.Identifier:
		name = callee.Name
	case *ast.ScopeResolution:
		name = strings.Join(callee.Path, "::")
	default:
		return types.Void
	}

	if len(v.TypeArgs) > 0 {
		if tmpl := g.resolveFuncTemplate(name); tmpl != nil {
			if def, ok := tmpl.Decl.(*ast.FuncDef); ok {
				argMap := make(map[string]types.Type, len(tmpl.TypeParams))
				for i, p := range tmpl.TypeParams {
					if i < len(v.TypeArgs) {
						argMap[p] = v.TypeArgs[i]
					}
				}
				return substituteType(def.Return, argMap)
			}
		}
		return types.Void
	}

	if qualName, ok := g.resolveClass(name); ok {
		return &types.Named{QualName: qualName}
	}
	if ret, ok := g.resolveReturnType(name); ok {
		return ret
	}
	return types.Void
}

// resolveReturnType looks up a resolved call target's declared return
// type, preferring the namespace-qualified name the same way
// resolveFunc prefers it when resolving the callable itself.
func (g *Generator) resolveReturnType(name string) (types.Type, bool) {
	if ret, ok := g.regs.ReturnTypes[g.ns.Qualify(name)]; ok {
		return ret, true
	}
	if ret, ok := g.regs.ReturnTypes[name]; ok {
		return ret, true
	}
	return nil, false
}

func (g *Generator) inferMemberAccess(v *ast.MemberAccess) types.Type {
	objT := g.typeOf(v.Object)
	named, ok := objT.(*types.Named)
	if !ok {
		g.errorf(g.spanOf(v), "member access on a non-class type")
		return types.Void
	}
	c, ok := g.regs.Classes[named.QualName]
	if !ok {
		return types.Void
	}
	idx := c.FieldIndex(v.Name)
	if idx < 0 {
		g.errorf(g.spanOf(v), "class %q has no field %q", named.QualName, v.Name)
		return types.Void
	}
	return c.Fields[idx]
}

func (g *Generator) inferSubscript(v *ast.Subscript) types.Type {
	objT := g.typeOf(v.Object)
	switch t := objT.(type) {
	case *types.Array:
		return t.Elem
	case *types.Pointer:
		return t.Elem
	case *types.Reference:
		return t.Elem
	}
	g.errorf(g.spanOf(v), "cannot index non-array/pointer type %s", objT.Repr())
	return types.Void
}

func (g *Generator) inferBuiltinCall(v *ast.BuiltinCall) types.Type {
	switch v.Name {
	case "__strlen":
		return types.U64
	}
	return types.Void
}
