// Package codegen lowers a type-checked internal/ast.File onto an
// llir/llvm module, one Generator per translation unit.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"

	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/report"
	"github.com/yohashinoio/twkl/internal/sym"
	"github.com/yohashinoio/twkl/internal/types"
)

// classLayout is the lowered llir struct type and field order of one
// user-defined class, recorded as each ClassDef is visited so later
// references (including self-references through a pointer field) can
// resolve without re-lowering.
type classLayout struct {
	llType *lltypes.StructType
	class  *sym.Class
}

// Generator lowers one translation unit into one llir/llvm module. It
// owns the scope stack, the namespace stack, and the registries the
// file's declarations populate as they are visited, following the
// teacher's Generator in shape: one struct holding the in-progress
// module plus every piece of state genExpr/genStmt/genDef need.
type Generator struct {
	file string
	mod  *ir.Module
	sink *report.Sink
	pos  *report.PositionCache

	regs *sym.Registries
	ns   *sym.NamespaceStack
	vars *sym.Table

	classLayouts map[string]*classLayout
	funcs        map[string]*ir.Func

	curFunc    *ir.Func
	curBlk     *ir.Block
	entryBlk   *ir.Block
	curRetType types.Type
	returnSlot *ir.InstAlloca
	returnBB   *ir.Block

	// destructStack holds one frame per open lexical scope, listing the
	// class-typed locals that scope owns; Return/Break/Continue emit
	// those locals' destructor calls inline before branching to their
	// target, so enclosing scopes drain first (see DESIGN.md Open
	// Question 1).
	destructStack []destructFrame

	globalCounter int
}

type destructFrame struct {
	bb      *ir.Block
	breakBB *ir.Block // nil unless this frame is a loop body
	contBB  *ir.Block
	vars    []*sym.Variable
}

// New creates a generator for one file. Class and function lookups
// resolve only against regs; internal/driver passes each file its own
// fresh registry set, so lookups do not reach other files.
func New(file string, sink *report.Sink, pos *report.PositionCache, regs *sym.Registries) *Generator {
	return &Generator{
		file:         file,
		mod:          ir.NewModule(),
		sink:         sink,
		pos:          pos,
		regs:         regs,
		ns:           &sym.NamespaceStack{},
		vars:         sym.NewTable(),
		classLayouts: make(map[string]*classLayout),
		funcs:        make(map[string]*ir.Func),
	}
}

// declareFunc registers an llir function under its namespace-qualified
// source name (such as "Box::new" or "id$i32"), for later lookup by
// genCall. Declaring a name that is already registered replaces the
// earlier entry; no error is reported.
func (g *Generator) declareFunc(qualName string, fn *ir.Func) {
	g.funcs[qualName] = fn
}

// lookupFunc returns the llir function previously declared under
// qualName, or nil.
func (g *Generator) lookupFunc(qualName string) *ir.Func {
	return g.funcs[qualName]
}

// resolveFunc resolves a call-site name to its declared function,
// preferring the name qualified by the current namespace (so a call
// from inside a namespace reaches its own members first) and falling
// back to the bare name for free functions, externs, and names the
// parser already fully qualified via `::`.
func (g *Generator) resolveFunc(name string) *ir.Func {
	if fn := g.lookupFunc(g.ns.Qualify(name)); fn != nil {
		return fn
	}
	return g.lookupFunc(name)
}

// Module returns the llir module built so far.
func (g *Generator) Module() *ir.Module { return g.mod }

// Generate lowers every top-level declaration of f in two passes: a
// forward pass registering every class/function signature (so mutual
// references resolve regardless of declaration order), then a second
// pass lowering bodies, mirroring the teacher's defDepGraph-based
// two-phase visitDef in generate/gen_defs.go, simplified here since
// this generator resolves names against already-built registries
// rather than a lazy dependency graph.
func (g *Generator) Generate(f *ast.File) {
	for _, d := range f.Decls {
		g.registerSignature(d)
	}
	for _, d := range f.Decls {
		g.lowerTopLevel(d)
	}
}

func (g *Generator) registerSignature(d ast.TopLevel) {
	switch v := d.(type) {
	case *ast.FuncDecl:
		g.registerFuncSig(v.Name, v.Params, v.Return, "")
	case *ast.FuncDef:
		if len(v.TypeParams) > 0 {
			qualName := g.ns.Qualify(v.Name)
			g.regs.FuncTemplates[qualName] = &sym.FuncTemplate{QualName: qualName, TypeParams: v.TypeParams, Decl: v}
			return
		}
		g.registerFuncSig(v.Name, v.Params, v.Return, v.Receiver)
	case *ast.ClassDecl:
		g.registerClassShape(v.Name, nil)
	case *ast.ClassDef:
		if len(v.TypeParams) > 0 {
			qualName := g.ns.Qualify(v.Name)
			g.regs.ClassTemplates[qualName] = &sym.ClassTemplate{QualName: qualName, TypeParams: v.TypeParams, Decl: v}
			return
		}
		g.registerClassShape(v.Name, v.Fields)
		for _, m := range v.Methods {
			g.registerFuncSig(m.Name, m.Params, m.Return, v.Name)
		}
	case *ast.UnionDef:
		g.registerUnion(v)
	case *ast.Typedef:
		g.regs.Aliases[g.ns.Qualify(v.Name)] = v.Target
	case *ast.NamespaceDecl:
		g.ns.Push(sym.Namespace{Name: v.Name, Kind: sym.NSNamespace})
		for _, inner := range v.Decls {
			g.registerSignature(inner)
		}
		g.ns.Pop()
	}
}

func (g *Generator) registerFuncSig(name string, params []ast.Param, ret types.Type, receiver string) {
	qualName := g.ns.Qualify(name)
	if receiver != "" {
		qualName = g.ns.Qualify(receiver) + "::" + name
	}
	paramTypes := make([]types.Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}
	g.regs.ReturnTypes[qualName] = ret
	g.regs.ParamTypes[qualName] = paramTypes
}

func (g *Generator) registerClassShape(name string, fields []ast.Field) {
	qualName := g.ns.Qualify(name)
	c := &sym.Class{QualName: qualName, Methods: make(map[string]*types.Func)}
	for _, f := range fields {
		c.Fields = append(c.Fields, f.Type)
		c.FieldNames = append(c.FieldNames, f.Name)
	}
	g.regs.Classes[qualName] = c
}

func (g *Generator) registerUnion(u *ast.UnionDef) {
	qualName := g.ns.Qualify(u.Name)
	su := &sym.Union{QualName: qualName}
	for _, v := range u.Variants {
		su.Names = append(su.Names, v.Name)
		su.Variants = append(su.Variants, v.Type)
	}
	g.regs.Unions[qualName] = su
}

// resolveClassLayout lazily builds (and memoizes) the llir struct type
// for a registered class, used as the classLayout callback passed to
// types.ToLLVM.
func (g *Generator) resolveClassLayout(qualName string) lltypes.Type {
	if cl, ok := g.classLayouts[qualName]; ok {
		return cl.llType
	}
	c, ok := g.regs.Classes[qualName]
	if !ok {
		return nil
	}

	st := lltypes.NewStruct()
	cl := &classLayout{llType: st, class: c}
	g.classLayouts[qualName] = cl // memoize before recursing, for self-referential pointer fields

	for _, f := range c.Fields {
		st.Fields = append(st.Fields, g.convType(f))
	}

	g.mod.NewTypeDef(qualName, st)
	return st
}

// convType maps a checked type onto its llir representation,
// resolving class layouts through this generator's registry.
func (g *Generator) convType(t types.Type) lltypes.Type {
	return types.ToLLVM(t, g.resolveClassLayout)
}

// newGlobalName returns a fresh compiler-generated global symbol name,
// used for interned string constants, mirroring the teacher's
// globalCounter in generate/generator.go.
func (g *Generator) newGlobalName(prefix string) string {
	g.globalCounter++
	return fmt.Sprintf("%s.%d", prefix, g.globalCounter)
}

func (g *Generator) errorf(span report.Span, format string, args ...interface{}) {
	g.sink.Error(report.Newf(g.file, span, format, args...))
}

// spanOf looks up the source span for a node's NodeID, used when
// reporting a codegen error anchored on an AST node.
func (g *Generator) spanOf(n ast.Node) report.Span {
	return g.pos.Span(n.NodeID())
}
