package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"

	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/mangle"
	"github.com/yohashinoio/twkl/internal/report"
	"github.com/yohashinoio/twkl/internal/sym"
	"github.com/yohashinoio/twkl/internal/types"
)

// lowerTopLevel lowers one already-registered top-level declaration's
// body (if any) onto the module, the second of Generate's two passes.
func (g *Generator) lowerTopLevel(d ast.TopLevel) {
	switch v := d.(type) {
	case *ast.FuncDecl:
		g.lowerFuncDecl(v)
	case *ast.FuncDef:
		if len(v.TypeParams) > 0 {
			// a generic function has no direct lowering of its own; each
			// concrete instantiation is lowered lazily from its first call
			// site (see instantiateFuncTemplate)
			return
		}
		g.lowerFunc(v.Name, v.Receiver, v.Params, v.Variadic, v.Return, v.Body, v.Vis, v.Attrs)
	case *ast.ClassDecl:
		// shape only; nothing to lower until a ClassDef supplies a body
	case *ast.ClassDef:
		if len(v.TypeParams) > 0 {
			return
		}
		g.lowerClassDef(v)
	case *ast.UnionDef:
		// layout already registered in registerSignature; unions have no
		// lowered body of their own, only the variant-carrying values
		// constructed at use sites (not yet implemented: tagged union
		// literal lowering)
	case *ast.Typedef:
		// already registered as an alias in registerSignature
	case *ast.Import:
		// an import lowers nothing here, and internal/driver compiles
		// each file against its own fresh *sym.Registries, so the
		// imported file's symbols are not merged into this one
	case *ast.NamespaceDecl:
		g.ns.Push(sym.Namespace{Name: v.Name, Kind: sym.NSNamespace})
		for _, inner := range v.Decls {
			g.lowerTopLevel(inner)
		}
		g.ns.Pop()
	default:
		g.errorf(report.Span{}, "top-level lowering not implemented for %T", d)
	}
}

// lowerFuncDecl declares an external prototype with no body, such as
// `extern func puts(s: *i8) -> i32;`.
func (g *Generator) lowerFuncDecl(v *ast.FuncDecl) {
	qualName := g.ns.Qualify(v.Name)
	linkName := g.linkName(qualName, v.Name, v.Vis, v.Params, v.Attrs)

	params := make([]*ir.Param, len(v.Params))
	for i, p := range v.Params {
		params[i] = ir.NewParam(p.Name, g.convType(p.Type))
	}

	fn := g.mod.NewFunc(linkName, g.convType(v.Return), params...)
	fn.Linkage = enum.LinkageExternal
	if v.Variadic {
		fn.Sig.Variadic = true
	}
	g.declareFunc(qualName, fn)
}

// linkName computes the actual LLVM symbol for a function: the source
// name verbatim for anything tagged nomangle/extern/entry/dllexport/
// dllimport, the deterministic mangled encoding otherwise.
func (g *Generator) linkName(qualName, simpleName string, vis ast.Visibility, params []ast.Param, attrs []ast.Attribute) string {
	if mangle.IsNoMangle(attrs) {
		return simpleName
	}
	// The process entry point keeps its bare name unmangled so the
	// driver's JIT/link step can find it by the symbol "main" the way
	// lli and a native linker both expect, regardless of namespace.
	if qualName == "main" && simpleName == "main" {
		return simpleName
	}
	paramTypes := make([]types.Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}
	return mangle.Func(g.ns, simpleName, vis, paramTypes)
}

// lowerFunc lowers one function or method body: a fresh entry block,
// parameter bindings (by value; mutation requires a `var` local copy),
// an implicit `this` binding for methods, a single return block the
// function's value flows through after the destructor drain, and the
// compound body itself.
func (g *Generator) lowerFunc(name, receiver string, params []ast.Param, variadic bool, ret types.Type, body *ast.Compound, vis ast.Visibility, attrs []ast.Attribute) {
	// lowerFunc owns pushing the receiver's class onto the namespace
	// stack (below, before genCompound) for the duration of the body
	// lowering; qualName and thisType are therefore computed against
	// the *caller's* namespace, matching registerFuncSig's "Box::new"
	// keying. The caller must not also push the receiver namespace, or
	// this would double-qualify to "Box::Box::new".
	qualName := g.ns.Qualify(name)
	if receiver != "" {
		qualName = g.ns.Qualify(receiver) + "::" + name
	}
	isMain := receiver == "" && qualName == "main"

	llParams := make([]*ir.Param, 0, len(params)+1)
	if receiver != "" {
		thisType := &types.Named{QualName: g.ns.Qualify(receiver)}
		llParams = append(llParams, ir.NewParam("this", g.convType(thisType)))
	}
	for _, p := range params {
		llParams = append(llParams, ir.NewParam(p.Name, g.convType(p.Type)))
	}

	linkParams := params
	linkVis := vis
	linkName := qualName
	if receiver == "" {
		linkName = g.linkName(qualName, name, linkVis, linkParams, attrs)
	} else {
		linkName = g.methodLinkName(receiver, name, params)
	}

	fn := g.mod.NewFunc(linkName, g.convType(ret), llParams...)
	switch {
	case isMain:
		// left at the default (external) linkage, printed bare as
		// `define i32 @main()`, so the JIT/link step can find it
	case receiver != "" || vis == ast.Public || mangle.IsNoMangle(attrs):
		fn.Linkage = enum.LinkageExternal
	default:
		fn.Linkage = enum.LinkageInternal
	}
	if variadic {
		fn.Sig.Variadic = true
	}
	g.declareFunc(qualName, fn)

	g.vars.PushScope()
	g.curFunc = fn
	g.curRetType = ret
	g.curBlk = fn.NewBlock(g.freshBlockName("entry"))
	g.entryBlk = g.curBlk
	g.returnBB = fn.NewBlock(g.freshBlockName("return"))

	if b, ok := ret.(types.Builtin); !ok || b != types.Void {
		g.returnSlot = g.curBlk.NewAlloca(g.convType(ret))
	} else {
		g.returnSlot = nil
	}

	paramIdx := 0
	if receiver != "" {
		g.vars.Define(&sym.Variable{
			Name:    "this",
			Type:    &types.Named{QualName: g.ns.Qualify(receiver)},
			Mutable: false,
			LLValue: llParams[0],
		})
		paramIdx = 1
	}
	for _, p := range params {
		g.vars.Define(&sym.Variable{Name: p.Name, Type: p.Type, Mutable: false, LLValue: llParams[paramIdx]})
		paramIdx++
	}

	if receiver != "" {
		g.ns.Push(sym.Namespace{Name: receiver, Kind: sym.NSClass})
	}
	g.destructStack = g.destructStack[:0]
	g.genCompound(body)
	if receiver != "" {
		g.ns.Pop()
	}

	if g.curBlk.Term == nil {
		// A fall-through exit from main (no explicit `ret`) reports
		// success rather than loading whatever garbage sits in the
		// return slot's uninitialized stack memory.
		if isMain && g.returnSlot != nil {
			g.curBlk.NewStore(constant.NewInt(lltypes.I32, 0), g.returnSlot)
		}
		g.drainAllFrames()
		g.curBlk.NewBr(g.returnBB)
	}

	g.curBlk = g.returnBB
	if g.returnSlot != nil {
		retVal := g.curBlk.NewLoad(g.convType(ret), g.returnSlot)
		g.curBlk.NewRet(retVal)
	} else {
		g.curBlk.NewRet(nil)
	}

	g.vars.PopScope()
}

// methodLinkName mangles a method's link name with the class pushed
// onto the namespace path as a class-kind segment, so a method and a
// same-named free function never collide.
func (g *Generator) methodLinkName(receiver, name string, params []ast.Param) string {
	g.ns.Push(sym.Namespace{Name: receiver, Kind: sym.NSClass})
	defer g.ns.Pop()

	paramTypes := make([]types.Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}
	return mangle.Func(g.ns, name, ast.Public, paramTypes)
}

// lowerClassDef lowers every method of a class, then synthesizes a
// default destructor (one that only destroys its fields) if the class owns a class-typed
// field whose own class has a destructor but defines no destructor of
// its own -- the "needed" default destructor spec.md's class-def rule
// calls for.
func (g *Generator) lowerClassDef(v *ast.ClassDef) {
	qualName := g.ns.Qualify(v.Name)
	c := g.regs.Classes[qualName]

	var userDtor *ast.FuncDef
	for _, m := range v.Methods {
		if m.Name == "drop" {
			userDtor = m
		}
	}
	if userDtor != nil {
		c.HasDtor = true
	}

	// lowerFunc pushes the receiver's class namespace itself (for the
	// duration of each method body); pushing it again here would
	// double-qualify every method's name.
	for _, m := range v.Methods {
		g.lowerFunc(m.Name, v.Name, m.Params, m.Variadic, m.Return, m.Body, m.Vis, m.Attrs)
	}

	if userDtor == nil && classNeedsDestructor(g.regs, c) {
		c.HasDtor = true
		g.synthesizeDefaultDtor(qualName, c)
	}
}

// classNeedsDestructor reports whether a class owns at least one
// field whose class defines a destructor, requiring this class to
// have one too so that field gets cleaned up transitively.
func classNeedsDestructor(regs *sym.Registries, c *sym.Class) bool {
	for _, f := range c.Fields {
		named, ok := f.(*types.Named)
		if !ok {
			continue
		}
		if fc, ok := regs.Classes[named.QualName]; ok && fc.HasDtor {
			return true
		}
	}
	return false
}

// synthesizeDefaultDtor emits a destructor that does nothing but
// invoke the destructors of this class's own class-typed fields, in
// declaration order, mirroring the field-draining half of
// drainFrame/invokeDestructor applied to a class's fields instead of
// a scope's locals.
func (g *Generator) synthesizeDefaultDtor(qualName string, c *sym.Class) {
	g.ns.Push(sym.Namespace{Name: c.QualName, Kind: sym.NSClass})
	defer g.ns.Pop()

	linkName := mangle.DtorOf(qualName)
	thisType := &types.Named{QualName: qualName}
	thisParam := ir.NewParam("this", g.convType(thisType))

	fn := g.mod.NewFunc(linkName, lltypes.Void, thisParam)
	fn.Linkage = enum.LinkageExternal
	g.declareFunc(qualName+"::drop", fn)

	g.curFunc = fn
	g.curBlk = fn.NewBlock(g.freshBlockName("entry"))
	g.entryBlk = g.curBlk

	cl := g.classLayouts[qualName]
	for i, f := range c.Fields {
		named, ok := f.(*types.Named)
		if !ok {
			continue
		}
		fc, ok := g.regs.Classes[named.QualName]
		if !ok || !fc.HasDtor {
			continue
		}
		dtorFn := g.lookupFunc(named.QualName + "::drop")
		if dtorFn == nil {
			continue
		}
		zero := constant.NewInt(lltypes.I32, 0)
		fieldIdx := constant.NewInt(lltypes.I32, int64(i))
		fieldPtr := g.curBlk.NewGetElementPtr(cl.llType, thisParam, zero, fieldIdx)
		g.curBlk.NewCall(dtorFn, g.curBlk.NewLoad(g.convType(f), fieldPtr))
	}
	g.curBlk.NewRet(nil)
}
