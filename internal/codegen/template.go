package codegen

import (
	"github.com/llir/llvm/ir"

	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/report"
	"github.com/yohashinoio/twkl/internal/sym"
	"github.com/yohashinoio/twkl/internal/types"
)

// substituteType replaces every bare reference to one of a template's
// type parameters (parsed as a plain *types.Named, since the parser
// cannot tell a type parameter from an ordinary class name) with its
// bound concrete type, recursing through the compound type shapes.
func substituteType(t types.Type, args map[string]types.Type) types.Type {
	switch v := t.(type) {
	case *types.Named:
		if sub, ok := args[v.QualName]; ok {
			return sub
		}
		return v
	case *types.Pointer:
		return &types.Pointer{Elem: substituteType(v.Elem, args), Const: v.Const}
	case *types.Reference:
		return &types.Reference{Elem: substituteType(v.Elem, args), Const: v.Const}
	case *types.Array:
		return &types.Array{Elem: substituteType(v.Elem, args), Len: v.Len}
	case *types.Func:
		params := make([]types.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = substituteType(p, args)
		}
		return &types.Func{Params: params, Return: substituteType(v.Return, args), Variadic: v.Variadic}
	case *types.UserDefinedTemplate:
		newArgs := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			newArgs[i] = substituteType(a, args)
		}
		return &types.UserDefinedTemplate{Base: v.Base, Args: newArgs}
	}
	return t
}

// instantiateFuncTemplate resolves (lowering on first use, looking up
// the memoized result thereafter) the concrete function a template
// call `name<Args>(...)` denotes, following the same
// name/arguments/namespace memoization key the original compiler's
// template cache uses for monomorphized instantiations.
func (g *Generator) instantiateFuncTemplate(tmpl *sym.FuncTemplate, typeArgs []types.Type) *ir.Func {
	key := sym.NewTemplateKey(tmpl.QualName, typeArgs, g.ns)
	if instName, ok := g.regs.CreatedFuncTmpls[key]; ok {
		return g.lookupFunc(instName)
	}

	def, ok := tmpl.Decl.(*ast.FuncDef)
	if !ok {
		g.errorf(report.Span{}, "malformed function template %q", tmpl.QualName)
		return nil
	}

	argMap := make(map[string]types.Type, len(tmpl.TypeParams))
	for i, p := range tmpl.TypeParams {
		if i < len(typeArgs) {
			argMap[p] = typeArgs[i]
		}
	}

	suffix := ""
	for _, a := range typeArgs {
		suffix += "$" + a.Repr()
	}
	instName := tmpl.QualName + suffix

	params := make([]ast.Param, len(def.Params))
	for i, p := range def.Params {
		params[i] = ast.Param{Name: p.Name, Type: substituteType(p.Type, argMap)}
	}
	retType := substituteType(def.Return, argMap)
	paramTypes := make([]types.Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}

	savedNS := g.ns
	g.ns = &sym.NamespaceStack{}
	// CreatedFuncTmpls is keyed to instName, the same qualified-name
	// string g.funcs is keyed by elsewhere in this generator -- the
	// mangled LLVM symbol itself is only ever consulted by the linker,
	// never used as a lookup key back into this generator's own state.
	g.regs.CreatedFuncTmpls[key] = instName
	g.regs.ReturnTypes[instName] = retType
	g.regs.ParamTypes[instName] = paramTypes

	savedFunc, savedBlk, savedRet := g.curFunc, g.curBlk, g.curRetType
	savedSlot, savedRetBB, savedStack := g.returnSlot, g.returnBB, g.destructStack

	// lowerFunc truncates g.destructStack to reuse it as the new
	// function's frame stack; starting it from nil rather than handing
	// it the outer call's slice (which instantiation can run nested
	// inside, unlike every other lowerFunc call site) avoids the new
	// frames aliasing and clobbering the outer call's backing array.
	g.destructStack = nil
	g.regs.PushTemplateArgs(argMap)
	g.lowerFunc(instName, "", params, false, retType, def.Body, ast.Public, def.Attrs)
	g.regs.PopTemplateArgs()

	g.curFunc, g.curBlk, g.curRetType = savedFunc, savedBlk, savedRet
	g.returnSlot, g.returnBB, g.destructStack = savedSlot, savedRetBB, savedStack
	g.ns = savedNS

	return g.lookupFunc(instName)
}

// templateParamTypes computes the concrete parameter types a template
// call site's argument-widening logic needs, without re-lowering
// anything -- used by genCall's call site once the instantiation
// exists (instantiateFuncTemplate computes its own parameter types).
func templateParamTypes(tmpl *sym.FuncTemplate, typeArgs []types.Type) []types.Type {
	def, ok := tmpl.Decl.(*ast.FuncDef)
	if !ok {
		return nil
	}
	argMap := make(map[string]types.Type, len(tmpl.TypeParams))
	for i, p := range tmpl.TypeParams {
		if i < len(typeArgs) {
			argMap[p] = typeArgs[i]
		}
	}
	paramTypes := make([]types.Type, len(def.Params))
	for i, p := range def.Params {
		paramTypes[i] = substituteType(p.Type, argMap)
	}
	return paramTypes
}

// resolveFuncTemplate looks up a generic function's template by name,
// preferring the namespace-qualified name the same way resolveFunc
// prefers it for ordinary functions.
func (g *Generator) resolveFuncTemplate(name string) *sym.FuncTemplate {
	if t, ok := g.regs.FuncTemplates[g.ns.Qualify(name)]; ok {
		return t
	}
	if t, ok := g.regs.FuncTemplates[name]; ok {
		return t
	}
	return nil
}
