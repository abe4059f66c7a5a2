package codegen

import (
	"strconv"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/sym"
	"github.com/yohashinoio/twkl/internal/types"
)

// genExpr lowers an expression onto the current block, returning the
// llir value it yields. It follows the teacher's genExpr type-switch
// shape in generate/gen_expr.go, generalized to this language's wider
// Expr variant set.
func (g *Generator) genExpr(e ast.Expr) value.Value {
	switch v := e.(type) {
	case *ast.IntLit:
		return g.genIntLit(v)
	case *ast.FloatLit:
		return g.genFloatLit(v)
	case *ast.BoolLit:
		if v.Value {
			return constant.NewInt(lltypes.I8, 1)
		}
		return constant.NewInt(lltypes.I8, 0)
	case *ast.StringLit:
		return g.genStringLit(v.Value)
	case *ast.CharLit:
		return constant.NewInt(lltypes.I32, int64(v.Value))
	case *ast.NullLit:
		elemT := g.convType(g.typeOf(v))
		return constant.NewNull(elemT.(*lltypes.PointerType))
	case *ast.Identifier:
		return g.genIdentifier(v)
	case *ast.UnaryOp:
		return g.genUnaryOp(v)
	case *ast.BinaryOp:
		return g.genBinaryOp(v)
	case *ast.Cast:
		return g.genCast(g.genExpr(v.Src), g.typeOf(v.Src), v.Dst)
	case *ast.Pipeline:
		return g.genExpr(g.desugarPipeline(v))
	case *ast.Call:
		return g.genCall(v)
	case *ast.MemberAccess:
		ptr := g.genMemberAddr(v)
		return g.curBlk.NewLoad(g.convType(g.typeOf(v)), ptr)
	case *ast.Subscript:
		ptr := g.genSubscriptAddr(v)
		return g.curBlk.NewLoad(g.convType(g.typeOf(v)), ptr)
	case *ast.SizeofType:
		return constant.NewInt(lltypes.I64, int64(sizeofGuess(v.Target)))
	case *ast.New:
		return g.genNew(v)
	case *ast.BuiltinCall:
		return g.genBuiltinCall(v)
	case *ast.ClassLit:
		return g.genClassLit(v)
	case *ast.Delete:
		return g.genDelete(v)
	}

	g.errorf(g.spanOf(e), "expression lowering not implemented for %T", e)
	return constant.NewInt(lltypes.I32, 0)
}

// desugarPipeline turns `lhs |> rhs` into the equivalent call: rhs
// invoked with lhs prepended to whatever argument list it already
// carries, or as its sole argument if rhs isn't itself a call
// expression (`x |> f` is sugar for `f(x)`).
func (g *Generator) desugarPipeline(v *ast.Pipeline) *ast.Call {
	if call, ok := v.Rhs.(*ast.Call); ok {
		args := make([]ast.Expr, 0, len(call.Args)+1)
		args = append(args, v.Lhs)
		args = append(args, call.Args...)
		return &ast.Call{ExprBase: ast.NewExprBase(v.NodeID(), ast.RValue), Callee: call.Callee, Args: args, TypeArgs: call.TypeArgs}
	}
	return &ast.Call{ExprBase: ast.NewExprBase(v.NodeID(), ast.RValue), Callee: v.Rhs, Args: []ast.Expr{v.Lhs}}
}

func (g *Generator) genIntLit(v *ast.IntLit) value.Value {
	n, err := strconv.ParseInt(v.Text, 0, 64)
	if err != nil {
		un, uerr := strconv.ParseUint(v.Text, 0, 64)
		if uerr != nil {
			g.errorf(g.spanOf(v), "invalid integer literal %q", v.Text)
			return constant.NewInt(lltypes.I32, 0)
		}
		n = int64(un)
	}
	return constant.NewInt(g.convType(g.typeOf(v)).(*lltypes.IntType), n)
}

func (g *Generator) genFloatLit(v *ast.FloatLit) value.Value {
	f, err := strconv.ParseFloat(v.Text, 64)
	if err != nil {
		g.errorf(g.spanOf(v), "invalid float literal %q", v.Text)
		f = 0
	}
	t := g.convType(g.typeOf(v))
	return constant.NewFloat(t.(*lltypes.FloatType), f)
}

// genStringLit allocates an anonymous global char array holding the
// string's UTF-8 bytes plus a NUL terminator and returns a pointer to
// its first element, following the teacher's string literal handling
// in generate/gen_expr.go.
func (g *Generator) genStringLit(s string) value.Value {
	data := constant.NewCharArrayFromString(s + "\x00")
	name := g.newGlobalName("str")
	global := g.mod.NewGlobalDef(name, data)
	global.Immutable = true
	zero := constant.NewInt(lltypes.I64, 0)
	return constant.NewGetElementPtr(data.Typ, global, zero, zero)
}

func (g *Generator) genIdentifier(v *ast.Identifier) value.Value {
	variable, ok := g.vars.Lookup(v.Name)
	if !ok {
		g.errorf(g.spanOf(v), "undefined name %q", v.Name)
		return constant.NewInt(lltypes.I32, 0)
	}
	if variable.Mutable {
		return g.curBlk.NewLoad(g.convType(variable.Type), variable.LLValue)
	}
	return variable.LLValue
}

func (g *Generator) genUnaryOp(v *ast.UnaryOp) value.Value {
	switch v.Op {
	case "&":
		return g.genAddrOf(v.Operand)
	case "*":
		ptr := g.genExpr(v.Operand)
		return g.curBlk.NewLoad(g.convType(g.typeOf(v)), ptr)
	case "-":
		operand := g.genExpr(v.Operand)
		if bt, ok := g.typeOf(v).(types.Builtin); ok && bt.IsFloating() {
			return g.curBlk.NewFNeg(operand)
		}
		return g.curBlk.NewSub(constant.NewInt(operand.Type().(*lltypes.IntType), 0), operand)
	case "!":
		operand := g.genExpr(v.Operand)
		return g.curBlk.NewXor(operand, constant.NewInt(lltypes.I8, 1))
	case "~":
		operand := g.genExpr(v.Operand)
		return g.curBlk.NewXor(operand, constant.NewInt(operand.Type().(*lltypes.IntType), -1))
	}
	g.errorf(g.spanOf(v), "unsupported unary operator %q", v.Op)
	return constant.NewInt(lltypes.I32, 0)
}

// genAddrOf returns the address of an lvalue operand without loading
// it, used by both `&x` and by assignment targets.
func (g *Generator) genAddrOf(e ast.Expr) value.Value {
	switch v := e.(type) {
	case *ast.Identifier:
		variable, ok := g.vars.Lookup(v.Name)
		if !ok {
			g.errorf(g.spanOf(v), "undefined name %q", v.Name)
			return constant.NewInt(lltypes.I32, 0)
		}
		return variable.LLValue
	case *ast.MemberAccess:
		return g.genMemberAddr(v)
	case *ast.Subscript:
		return g.genSubscriptAddr(v)
	case *ast.UnaryOp:
		if v.Op == "*" {
			// the address `*p` names is the pointer value p itself
			return g.genExpr(v.Operand)
		}
	}
	g.errorf(g.spanOf(e), "expression is not addressable")
	return constant.NewInt(lltypes.I32, 0)
}

// genObjectPtr evaluates e as a class-typed expression and returns its
// runtime pointer value. Class types always lower to a pointer (see
// types.ToLLVM's *Named case), so the object's *value* -- not the
// address of whatever variable happens to hold it -- is the correct
// GEP base for a member access.
func (g *Generator) genObjectPtr(e ast.Expr) value.Value {
	return g.genExpr(e)
}

func (g *Generator) genMemberAddr(v *ast.MemberAccess) value.Value {
	objPtr := g.genObjectPtr(v.Object)
	named, ok := g.typeOf(v.Object).(*types.Named)
	if !ok {
		g.errorf(g.spanOf(v), "member access on a non-class type")
		return objPtr
	}
	c, ok := g.regs.Classes[named.QualName]
	if !ok {
		g.errorf(g.spanOf(v), "unknown class %q", named.QualName)
		return objPtr
	}
	idx := c.FieldIndex(v.Name)
	if idx < 0 {
		g.errorf(g.spanOf(v), "class %q has no field %q", named.QualName, v.Name)
		return objPtr
	}
	zero := constant.NewInt(lltypes.I32, 0)
	fieldIdx := constant.NewInt(lltypes.I32, int64(idx))
	return g.curBlk.NewGetElementPtr(g.classLayouts[named.QualName].llType, objPtr, zero, fieldIdx)
}

func (g *Generator) genSubscriptAddr(v *ast.Subscript) value.Value {
	objPtr := g.genAddrOf(v.Object)
	idx := g.genExpr(v.Index)
	zero := constant.NewInt(lltypes.I32, 0)
	elemT := g.convType(g.typeOf(v))
	return g.curBlk.NewGetElementPtr(lltypes.NewArray(0, elemT), objPtr, zero, idx)
}

func (g *Generator) genCall(v *ast.Call) value.Value {
	var name string
	switch callee := v.Callee.(type) {
	case *ast.Identifier:
		name = callee.Name
	case *ast.ScopeResolution:
		name = strings.Join(callee.Path, "::")
	default:
		g.errorf(g.spanOf(v), "indirect calls are not yet supported")
		return constant.NewInt(lltypes.I32, 0)
	}

	if len(v.TypeArgs) > 0 {
		tmpl := g.resolveFuncTemplate(name)
		if tmpl == nil {
			g.errorf(g.spanOf(v), "%q is not a generic function", name)
			return constant.NewInt(lltypes.I32, 0)
		}
		fn := g.instantiateFuncTemplate(tmpl, v.TypeArgs)
		if fn == nil {
			return constant.NewInt(lltypes.I32, 0)
		}
		args := g.genArgs(v.Args, templateParamTypes(tmpl, v.TypeArgs), false)
		return g.curBlk.NewCall(fn, args...)
	}

	if qualName, ok := g.resolveClass(name); ok {
		return g.genConstructorCall(qualName, v.Args)
	}

	fn := g.resolveFunc(name)
	if fn == nil {
		g.errorf(g.spanOf(v), "call to undeclared function %q", name)
		return constant.NewInt(lltypes.I32, 0)
	}
	paramTypes, variadic := g.resolveParamTypes(name, fn)
	args := g.genArgs(v.Args, paramTypes, variadic)
	return g.curBlk.NewCall(fn, args...)
}

// resolveParamTypes looks up a resolved callee's declared parameter
// types for argument-widening purposes, preferring the same
// namespace-qualified lookup order resolveFunc itself used.
func (g *Generator) resolveParamTypes(name string, fn *ir.Func) ([]types.Type, bool) {
	if pt, ok := g.regs.ParamTypes[g.ns.Qualify(name)]; ok {
		return pt, fn.Sig.Variadic
	}
	if pt, ok := g.regs.ParamTypes[name]; ok {
		return pt, fn.Sig.Variadic
	}
	return nil, fn.Sig.Variadic
}

// genArgs lowers a call's argument list, inserting an implicit integer
// widening cast wherever an argument's inferred type is narrower than
// its declared parameter type (spec's "implicit integer widening where
// permitted" rule). Extra variadic arguments, or a callee whose
// parameter types are unknown, are lowered with no cast.
func (g *Generator) genArgs(argExprs []ast.Expr, paramTypes []types.Type, variadic bool) []value.Value {
	args := make([]value.Value, len(argExprs))
	for i, a := range argExprs {
		val := g.genExpr(a)
		if i < len(paramTypes) {
			srcT := g.typeOf(a)
			dstT := paramTypes[i]
			if !types.Equal(srcT, dstT) {
				if sb, sok := srcT.(types.Builtin); sok {
					if db, dok := dstT.(types.Builtin); dok && sb.IsIntegral() && db.IsIntegral() && sb.BitWidth() <= db.BitWidth() {
						val = g.genCast(val, srcT, dstT)
					}
				}
			}
		}
		args[i] = val
	}
	return args
}

// resolveClass resolves a bare name to a registered class's qualified
// name, the same namespace-then-bare order resolveFunc uses, so
// `Box(42)` inside or outside Box's namespace resolves consistently.
func (g *Generator) resolveClass(name string) (string, bool) {
	qual := g.ns.Qualify(name)
	if _, ok := g.regs.Classes[qual]; ok {
		return qual, true
	}
	if _, ok := g.regs.Classes[name]; ok {
		return name, true
	}
	return "", false
}

// genConstructorCall allocates a class instance on the heap and invokes
// its `new`-named constructor (if one is defined) with the given
// arguments, following the `Constructors are looked up as a function
// named new in the class scope` rule.
func (g *Generator) genConstructorCall(qualName string, argExprs []ast.Expr) value.Value {
	cl := g.classLayouts[qualName]
	mallocFn := g.externDecl("malloc", lltypes.I8Ptr, lltypes.I64)
	size := constant.NewInt(lltypes.I64, int64(classSizeGuess(cl.class)))
	raw := g.curBlk.NewCall(mallocFn, size)
	instance := g.curBlk.NewBitCast(raw, lltypes.NewPointer(cl.llType))

	if fn := g.lookupFunc(qualName + "::new"); fn != nil {
		args := make([]value.Value, 0, len(argExprs)+1)
		args = append(args, instance)
		for _, a := range argExprs {
			args = append(args, g.genExpr(a))
		}
		g.curBlk.NewCall(fn, args...)
	}
	return instance
}

// genClassLit lowers an aggregate `ClassName{field: value, ...}`
// literal by allocating the instance and storing each given field
// directly, bypassing any constructor.
func (g *Generator) genClassLit(v *ast.ClassLit) value.Value {
	qualName, ok := g.resolveClass(v.ClassName)
	if !ok {
		g.errorf(g.spanOf(v), "unknown class %q", v.ClassName)
		return constant.NewInt(lltypes.I32, 0)
	}
	cl := g.classLayouts[qualName]
	mallocFn := g.externDecl("malloc", lltypes.I8Ptr, lltypes.I64)
	size := constant.NewInt(lltypes.I64, int64(classSizeGuess(cl.class)))
	raw := g.curBlk.NewCall(mallocFn, size)
	instance := g.curBlk.NewBitCast(raw, lltypes.NewPointer(cl.llType))

	for _, fi := range v.Fields {
		idx := cl.class.FieldIndex(fi.Name)
		if idx < 0 {
			g.errorf(g.spanOf(v), "class %q has no field %q", qualName, fi.Name)
			continue
		}
		zero := constant.NewInt(lltypes.I32, 0)
		fieldIdx := constant.NewInt(lltypes.I32, int64(idx))
		addr := g.curBlk.NewGetElementPtr(cl.llType, instance, zero, fieldIdx)
		g.curBlk.NewStore(g.genExpr(fi.Value), addr)
	}
	return instance
}

// genDelete invokes the operand's destructor (if its class defines
// one) and frees its heap storage.
func (g *Generator) genDelete(v *ast.Delete) value.Value {
	ptr := g.genExpr(v.Target)
	if named, ok := g.typeOf(v.Target).(*types.Named); ok {
		if c, ok := g.regs.Classes[named.QualName]; ok && c.HasDtor {
			if fn := g.lookupFunc(named.QualName + "::drop"); fn != nil {
				g.curBlk.NewCall(fn, ptr)
			}
		}
	}
	freeFn := g.externDecl("free", lltypes.Void, lltypes.I8Ptr)
	raw := g.curBlk.NewBitCast(ptr, lltypes.I8Ptr)
	g.curBlk.NewCall(freeFn, raw)
	return constant.NewInt(lltypes.I8, 0)
}

// classSizeGuess returns a best-effort byte size for a class layout,
// used to size its heap allocation.
func classSizeGuess(c *sym.Class) int {
	total := 0
	for _, f := range c.Fields {
		total += sizeofGuess(f)
	}
	if total == 0 {
		return 1
	}
	return total
}

func (g *Generator) genNew(v *ast.New) value.Value {
	elemT := g.convType(v.Target)
	mallocFn := g.externDecl("malloc", lltypes.I8Ptr, lltypes.I64)
	size := constant.NewInt(lltypes.I64, int64(sizeofGuess(v.Target)))
	raw := g.curBlk.NewCall(mallocFn, size)
	return g.curBlk.NewBitCast(raw, lltypes.NewPointer(elemT))
}

func (g *Generator) genBuiltinCall(v *ast.BuiltinCall) value.Value {
	switch v.Name {
	case "__strlen":
		strlenFn := g.externDecl("strlen", lltypes.I64, lltypes.I8Ptr)
		return g.curBlk.NewCall(strlenFn, g.genExpr(v.Args[0]))
	}
	g.errorf(g.spanOf(v), "unknown builtin %q", v.Name)
	return constant.NewInt(lltypes.I32, 0)
}

// externDecl declares (or reuses an existing declaration of) an
// external function with a fixed signature, used for the handful of
// libc entry points new/delete and string builtins lower onto.
func (g *Generator) externDecl(name string, ret lltypes.Type, params ...lltypes.Type) *ir.Func {
	if fn := g.lookupFunc(name); fn != nil {
		return fn
	}
	llParams := make([]*ir.Param, len(params))
	for i, p := range params {
		llParams[i] = ir.NewParam("", p)
	}
	fn := g.mod.NewFunc(name, ret, llParams...)
	fn.Linkage = enum.LinkageExternal
	g.declareFunc(name, fn)
	return fn
}

// sizeofGuess returns a best-effort byte size for a checked type,
// consistent with the width rules in internal/types, used where the
// back end does not need an exact struct layout (sizeof expressions,
// malloc call sizing).
func sizeofGuess(t types.Type) int {
	switch v := t.(type) {
	case types.Builtin:
		return v.BitWidth() / 8
	case *types.Pointer, *types.Reference:
		return 8
	case *types.Array:
		return v.Len * sizeofGuess(v.Elem)
	}
	return 8
}
