package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/report"
	"github.com/yohashinoio/twkl/internal/sym"
	"github.com/yohashinoio/twkl/internal/types"
)

// genCompound lowers a `{ ... }` block as its own lexical scope: it
// pushes a symbol table scope and a destructFrame, lowers each
// statement, and -- if control reaches the end of the block without
// already branching away via return/break/continue -- drains the
// scope's class-typed locals before falling through, following the
// original compiler's per-scope destruct-block bookkeeping in
// codegen/stmt.cpp, simplified here to drain in place rather than
// through a dedicated basic block per scope.
func (g *Generator) genCompound(c *ast.Compound) {
	g.vars.PushScope()
	g.pushDestructFrame()

	for _, s := range c.Stmts {
		if g.curBlk.Term != nil {
			break
		}
		g.genStmt(s)
	}

	if g.curBlk.Term == nil {
		g.drainFrame(g.topFrame())
	}

	g.popDestructFrame()
	g.vars.PopScope()
}

func (g *Generator) pushDestructFrame() {
	g.destructStack = append(g.destructStack, destructFrame{bb: g.curBlk})
}

func (g *Generator) popDestructFrame() {
	g.destructStack = g.destructStack[:len(g.destructStack)-1]
}

func (g *Generator) topFrame() *destructFrame {
	return &g.destructStack[len(g.destructStack)-1]
}

// drainFrame emits destructor calls for a scope's class-typed locals,
// innermost-declared-last, mirroring the original compiler's
// findDestructor/invokeDestructor pass over a scope about to close.
func (g *Generator) drainFrame(f *destructFrame) {
	for i := len(f.vars) - 1; i >= 0; i-- {
		g.invokeDestructor(f.vars[i])
	}
}

// invokeDestructor calls a class-typed local's destructor if its class
// defines one; a class with no user-defined destructor is a no-op,
// matching findDestructor in the original compiler.
func (g *Generator) invokeDestructor(v *sym.Variable) {
	named, ok := v.Type.(*types.Named)
	if !ok {
		return
	}
	c, ok := g.regs.Classes[named.QualName]
	if !ok || !c.HasDtor {
		return
	}
	fn := g.lookupFunc(named.QualName + "::drop")
	if fn == nil {
		return
	}
	this := v.LLValue
	if v.Mutable {
		this = g.curBlk.NewLoad(g.convType(v.Type), v.LLValue)
	}
	g.curBlk.NewCall(fn, this)
}

// genStmt lowers one statement onto the current block.
func (g *Generator) genStmt(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.Empty:
	case *ast.Compound:
		g.genCompound(v)
	case *ast.ExprStmt:
		g.genExpr(v.X)
	case *ast.Return:
		g.genReturn(v)
	case *ast.VarDef:
		g.genVarDef(v)
	case *ast.Assignment:
		g.genAssignment(v)
	case *ast.IncDec:
		g.genIncDec(v)
	case *ast.If:
		g.genIf(v)
	case *ast.Loop:
		g.genLoop(v)
	case *ast.While:
		g.genWhile(v)
	case *ast.For:
		g.genFor(v)
	case *ast.Match:
		g.genMatch(v)
	case *ast.Break:
		g.genBreak()
	case *ast.Continue:
		g.genContinue()
	case *ast.ClassMemberInit:
		g.genClassMemberInit(v)
	default:
		g.errorf(report.Span{}, "statement lowering not implemented for %T", s)
	}
}

// genReturn stores the return value (if any) into the function's
// return slot, drains every open scope's destructors -- including
// loop scopes, which is what distinguishes a return's unwind from a
// break/continue's -- and branches to the function's single return
// block.
func (g *Generator) genReturn(v *ast.Return) {
	if v.Value != nil {
		valType := g.typeOf(v.Value)
		retVal := g.genExpr(v.Value)
		if !types.Equal(valType, g.curRetType) {
			retVal = g.genCast(retVal, valType, g.curRetType)
		}
		g.curBlk.NewStore(retVal, g.returnSlot)
	}
	g.drainAllFrames()
	g.curBlk.NewBr(g.returnBB)
}

// drainAllFrames drains every open destructFrame from innermost to
// outermost.
func (g *Generator) drainAllFrames() {
	for i := len(g.destructStack) - 1; i >= 0; i-- {
		g.drainFrame(&g.destructStack[i])
	}
}

// genVarDef lowers a local variable declaration. A mutable binding
// gets an alloca and is loaded on every reference (so it can be
// reassigned in place); an immutable binding holds its initializer's
// SSA value directly, with no alloca, following the teacher's
// distinction between `var` and plain `let`-style bindings.
func (g *Generator) genVarDef(v *ast.VarDef) {
	valType := g.typeOf(v.Value)
	declType := v.Explicit
	if declType == nil {
		declType = valType
	}

	initVal := g.genExpr(v.Value)
	if !types.Equal(declType, valType) {
		initVal = g.genCast(initVal, valType, declType)
	}

	var variable *sym.Variable
	if v.Mutable {
		// Hoisted into the function's entry block (not g.curBlk) so a
		// declaration inside a loop body doesn't allocate fresh stack
		// space on every iteration and so mem2reg can promote it.
		alloca := g.entryBlk.NewAlloca(g.convType(declType))
		g.curBlk.NewStore(initVal, alloca)
		variable = &sym.Variable{Name: v.Name, Type: declType, Mutable: true, LLValue: alloca}
	} else {
		variable = &sym.Variable{Name: v.Name, Type: declType, Mutable: false, LLValue: initVal}
	}
	g.vars.Define(variable)

	if _, isClass := declType.(*types.Named); isClass {
		g.topFrame().vars = append(g.topFrame().vars, variable)
	}
}

func (g *Generator) genAssignment(v *ast.Assignment) {
	lhsType := g.typeOf(v.Lhs)
	rhsType := g.typeOf(v.Rhs)
	addr := g.genAddrOf(v.Lhs)
	rhs := g.genExpr(v.Rhs)

	if !types.Equal(lhsType, rhsType) {
		rhs = g.genCast(rhs, rhsType, lhsType)
	}

	if v.Op != ast.Assign {
		cur := g.curBlk.NewLoad(g.convType(lhsType), addr)
		rhs = g.genCompoundOp(v.Op, cur, rhs, lhsType)
	}

	g.curBlk.NewStore(rhs, addr)
}

func (g *Generator) genCompoundOp(op ast.AssignOp, lhs, rhs value.Value, t types.Type) value.Value {
	floating := false
	if b, ok := t.(types.Builtin); ok {
		floating = b.IsFloating()
	}
	switch op {
	case ast.AddAssign:
		if floating {
			return g.curBlk.NewFAdd(lhs, rhs)
		}
		return g.curBlk.NewAdd(lhs, rhs)
	case ast.SubAssign:
		if floating {
			return g.curBlk.NewFSub(lhs, rhs)
		}
		return g.curBlk.NewSub(lhs, rhs)
	case ast.MulAssign:
		if floating {
			return g.curBlk.NewFMul(lhs, rhs)
		}
		return g.curBlk.NewMul(lhs, rhs)
	case ast.DivAssign:
		if floating {
			return g.curBlk.NewFDiv(lhs, rhs)
		}
		return g.curBlk.NewSDiv(lhs, rhs)
	case ast.ModAssign:
		if floating {
			return g.curBlk.NewFRem(lhs, rhs)
		}
		return g.curBlk.NewSRem(lhs, rhs)
	}
	return rhs
}

func (g *Generator) genIncDec(v *ast.IncDec) {
	addr := g.genAddrOf(v.Operand)
	t := g.typeOf(v.Operand)
	llType := g.convType(t)
	cur := g.curBlk.NewLoad(llType, addr)
	one := constant.NewInt(llType.(*lltypes.IntType), 1)

	var result value.Value
	if v.Op == ast.Increment {
		result = g.curBlk.NewAdd(cur, one)
	} else {
		result = g.curBlk.NewSub(cur, one)
	}
	g.curBlk.NewStore(result, addr)
}

func (g *Generator) genClassMemberInit(v *ast.ClassMemberInit) {
	thisVar, ok := g.vars.Lookup("this")
	if !ok {
		g.errorf(report.Span{}, "class member init outside a constructor")
		return
	}
	named := thisVar.Type.(*types.Named)
	c := g.regs.Classes[named.QualName]
	idx := c.FieldIndex(v.Field)
	if idx < 0 {
		g.errorf(report.Span{}, "class %q has no field %q", named.QualName, v.Field)
		return
	}
	zero := constant.NewInt(lltypes.I32, 0)
	fieldIdx := constant.NewInt(lltypes.I32, int64(idx))
	addr := g.curBlk.NewGetElementPtr(g.classLayouts[named.QualName].llType, thisVar.LLValue, zero, fieldIdx)
	g.curBlk.NewStore(g.genExpr(v.Value), addr)
}

// genCond lowers an expression used as a branch condition. Booleans
// (represented as i8; see DESIGN.md) compare not-equal to zero; a
// pointer condition compares not-equal to null, mirroring the
// original compiler's `CreateICmp(ICMP_NE, ..., getNullValue(...))`.
func (g *Generator) genCond(e ast.Expr) value.Value {
	val := g.genExpr(e)
	if b, ok := g.typeOf(e).(types.Builtin); ok && b == types.Bool {
		return g.curBlk.NewICmp(enum.IPredNE, val, constant.NewInt(lltypes.I8, 0))
	}
	if ptrT, ok := val.Type().(*lltypes.PointerType); ok {
		return g.curBlk.NewICmp(enum.IPredNE, val, constant.NewNull(ptrT))
	}
	return g.curBlk.NewICmp(enum.IPredNE, val, constant.NewInt(val.Type().(*lltypes.IntType), 0))
}

func (g *Generator) genIf(v *ast.If) {
	thenBB := g.curFunc.NewBlock(g.freshBlockName("if.then"))
	mergeBB := g.curFunc.NewBlock(g.freshBlockName("if.merge"))

	elseBB := mergeBB
	if v.Else != nil || len(v.Elifs) > 0 {
		elseBB = g.curFunc.NewBlock(g.freshBlockName("if.else"))
	}

	cond := g.genCond(v.Cond)
	g.curBlk.NewCondBr(cond, thenBB, elseBB)

	g.curBlk = thenBB
	g.genCompound(v.Then)
	if g.curBlk.Term == nil {
		g.curBlk.NewBr(mergeBB)
	}

	if elseBB != mergeBB {
		g.curBlk = elseBB
		g.genIfRest(v.Elifs, v.Else, mergeBB)
	}

	g.curBlk = mergeBB
}

// genIfRest lowers the elif chain and trailing else of an If, reusing
// the current block as the first elif's condition block.
func (g *Generator) genIfRest(elifs []ast.ElifClause, els *ast.Compound, mergeBB *ir.Block) {
	if len(elifs) == 0 {
		if els != nil {
			g.genCompound(els)
		}
		if g.curBlk.Term == nil {
			g.curBlk.NewBr(mergeBB)
		}
		return
	}

	clause := elifs[0]
	thenBB := g.curFunc.NewBlock(g.freshBlockName("elif.then"))
	nextBB := g.curFunc.NewBlock(g.freshBlockName("elif.next"))

	cond := g.genCond(clause.Cond)
	g.curBlk.NewCondBr(cond, thenBB, nextBB)

	g.curBlk = thenBB
	g.genCompound(clause.Body)
	if g.curBlk.Term == nil {
		g.curBlk.NewBr(mergeBB)
	}

	g.curBlk = nextBB
	g.genIfRest(elifs[1:], els, mergeBB)
}

func (g *Generator) genLoop(v *ast.Loop) {
	bodyBB := g.curFunc.NewBlock(g.freshBlockName("loop.body"))
	endBB := g.curFunc.NewBlock(g.freshBlockName("loop.end"))

	g.curBlk.NewBr(bodyBB)
	g.curBlk = bodyBB

	frameIdx := len(g.destructStack)
	g.pushLoopFrame(bodyBB, endBB)
	g.genCompound(v.Body)
	if g.curBlk.Term == nil {
		g.curBlk.NewBr(bodyBB)
	}
	g.popLoopFrame(frameIdx)

	g.curBlk = endBB
}

func (g *Generator) genWhile(v *ast.While) {
	condBB := g.curFunc.NewBlock(g.freshBlockName("while.cond"))
	bodyBB := g.curFunc.NewBlock(g.freshBlockName("while.body"))
	endBB := g.curFunc.NewBlock(g.freshBlockName("while.end"))

	g.curBlk.NewBr(condBB)
	g.curBlk = condBB
	cond := g.genCond(v.Cond)
	g.curBlk.NewCondBr(cond, bodyBB, endBB)

	g.curBlk = bodyBB
	frameIdx := len(g.destructStack)
	g.pushLoopFrame(condBB, endBB)
	g.genCompound(v.Body)
	if g.curBlk.Term == nil {
		g.curBlk.NewBr(condBB)
	}
	g.popLoopFrame(frameIdx)

	g.curBlk = endBB
}

func (g *Generator) genFor(v *ast.For) {
	g.vars.PushScope()
	if v.Init != nil {
		g.genStmt(v.Init)
	}

	condBB := g.curFunc.NewBlock(g.freshBlockName("for.cond"))
	bodyBB := g.curFunc.NewBlock(g.freshBlockName("for.body"))
	endBB := g.curFunc.NewBlock(g.freshBlockName("for.end"))

	g.curBlk.NewBr(condBB)
	g.curBlk = condBB
	if v.Cond != nil {
		cond := g.genCond(v.Cond)
		g.curBlk.NewCondBr(cond, bodyBB, endBB)
	} else {
		g.curBlk.NewBr(bodyBB)
	}

	g.curBlk = bodyBB
	frameIdx := len(g.destructStack)
	g.pushLoopFrame(condBB, endBB)
	g.genCompound(v.Body)
	if g.curBlk.Term == nil {
		if v.Post != nil {
			g.genStmt(v.Post)
		}
		g.curBlk.NewBr(condBB)
	}
	g.popLoopFrame(frameIdx)

	g.curBlk = endBB
	g.vars.PopScope()
}

func (g *Generator) pushLoopFrame(contBB, breakBB *ir.Block) {
	g.destructStack = append(g.destructStack, destructFrame{bb: g.curBlk, breakBB: breakBB, contBB: contBB})
}

func (g *Generator) popLoopFrame(frameIdx int) {
	g.destructStack = g.destructStack[:frameIdx]
}

// genBreak drains every scope opened since the target loop, then
// branches to the loop's exit block. Unlike the original compiler,
// which emits a raw, non-draining branch here, a break in this
// language runs the destructors of every scope it exits -- see
// DESIGN.md Open Question 1.
func (g *Generator) genBreak() {
	idx := g.findLoopFrame()
	if idx < 0 {
		g.errorf(report.Span{}, "break outside a loop")
		return
	}
	for i := len(g.destructStack) - 1; i >= idx; i-- {
		g.drainFrame(&g.destructStack[i])
	}
	g.curBlk.NewBr(g.destructStack[idx].breakBB)
}

// genContinue drains every scope opened since the target loop body,
// then branches to the loop's condition/post block. The loop frame
// itself is not drained: its locals live on into the next iteration.
func (g *Generator) genContinue() {
	idx := g.findLoopFrame()
	if idx < 0 {
		g.errorf(report.Span{}, "continue outside a loop")
		return
	}
	for i := len(g.destructStack) - 1; i > idx; i-- {
		g.drainFrame(&g.destructStack[i])
	}
	g.curBlk.NewBr(g.destructStack[idx].contBB)
}

func (g *Generator) findLoopFrame() int {
	for i := len(g.destructStack) - 1; i >= 0; i-- {
		if g.destructStack[i].breakBB != nil {
			return i
		}
	}
	return -1
}

func (g *Generator) genMatch(v *ast.Match) {
	subject := g.genExpr(v.Subject)
	mergeBB := g.curFunc.NewBlock(g.freshBlockName("match.merge"))

	for _, arm := range v.Arms {
		armBB := g.curFunc.NewBlock(g.freshBlockName("match.arm"))
		nextBB := g.curFunc.NewBlock(g.freshBlockName("match.next"))

		if arm.Pattern != nil {
			patVal := g.genExpr(arm.Pattern)
			cond := g.curBlk.NewICmp(enum.IPredEQ, subject, patVal)
			g.curBlk.NewCondBr(cond, armBB, nextBB)
		} else {
			g.curBlk.NewBr(armBB)
		}

		g.curBlk = armBB
		g.genCompound(arm.Body)
		if g.curBlk.Term == nil {
			g.curBlk.NewBr(mergeBB)
		}

		g.curBlk = nextBB
	}

	if g.curBlk.Term == nil {
		g.curBlk.NewBr(mergeBB)
	}
	g.curBlk = mergeBB
}

func (g *Generator) freshBlockName(prefix string) string {
	g.globalCounter++
	return fmt.Sprintf("%s.%d", prefix, g.globalCounter)
}
