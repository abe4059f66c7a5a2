package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/types"
)

// genBinaryOp lowers a binary operator application, promoting operands
// to a common type first via genCast, then dispatching to the integer
// or floating-point instruction family, following the operand-width
// handling the teacher performs in genOpCall/genIntrinsic. `&&`/`||`
// are dispatched to genShortCircuit before any operand is coerced,
// since their right-hand side must not be evaluated unconditionally.
func (g *Generator) genBinaryOp(v *ast.BinaryOp) value.Value {
	if v.Op == "&&" || v.Op == "||" {
		return g.genShortCircuit(v)
	}

	resultBuiltin, isBuiltin := g.typeOf(v).(types.Builtin)

	lhsType := g.typeOf(v.Lhs)
	rhsType := g.typeOf(v.Rhs)

	lhs := g.genExpr(v.Lhs)
	rhs := g.genExpr(v.Rhs)

	// The result type of a comparison is always Bool, not the operand
	// type, so it must not drive operand coercion here -- the cmpBuiltin
	// promotion below already brings the operands to a common type.
	switch v.Op {
	case "==", "!=", "<", ">", "<=", ">=":
		isBuiltin = false
	}

	if isBuiltin {
		if lb, ok := lhsType.(types.Builtin); ok && lb != resultBuiltin {
			lhs = g.genCast(lhs, lhsType, resultBuiltin)
		}
		if rb, ok := rhsType.(types.Builtin); ok && rb != resultBuiltin {
			rhs = g.genCast(rhs, rhsType, resultBuiltin)
		}
	}

	// Comparisons yield bool regardless of the operand type's width, so
	// promote for the comparison itself using the wider operand type.
	var cmpBuiltin types.Builtin
	if lb, ok := lhsType.(types.Builtin); ok {
		if rb, ok := rhsType.(types.Builtin); ok {
			cmpBuiltin = types.Promote(lb, rb)
			if lb != cmpBuiltin {
				lhs = g.genCast(lhs, lb, cmpBuiltin)
			}
			if rb != cmpBuiltin {
				rhs = g.genCast(rhs, rb, cmpBuiltin)
			}
		}
	}

	floating := cmpBuiltin.IsFloating()
	unsigned := cmpBuiltin.IsUnsigned()

	switch v.Op {
	case "+":
		if floating {
			return g.curBlk.NewFAdd(lhs, rhs)
		}
		return g.curBlk.NewAdd(lhs, rhs)
	case "-":
		if floating {
			return g.curBlk.NewFSub(lhs, rhs)
		}
		return g.curBlk.NewSub(lhs, rhs)
	case "*":
		if floating {
			return g.curBlk.NewFMul(lhs, rhs)
		}
		return g.curBlk.NewMul(lhs, rhs)
	case "/":
		if floating {
			return g.curBlk.NewFDiv(lhs, rhs)
		}
		if unsigned {
			return g.curBlk.NewUDiv(lhs, rhs)
		}
		return g.curBlk.NewSDiv(lhs, rhs)
	case "%":
		if floating {
			return g.curBlk.NewFRem(lhs, rhs)
		}
		if unsigned {
			return g.curBlk.NewURem(lhs, rhs)
		}
		return g.curBlk.NewSRem(lhs, rhs)
	case "&":
		return g.curBlk.NewAnd(lhs, rhs)
	case "|":
		return g.curBlk.NewOr(lhs, rhs)
	case "^":
		return g.curBlk.NewXor(lhs, rhs)
	case "<<":
		return g.curBlk.NewShl(lhs, rhs)
	case ">>":
		if unsigned {
			return g.curBlk.NewLShr(lhs, rhs)
		}
		return g.curBlk.NewAShr(lhs, rhs)
	case "==", "!=", "<", ">", "<=", ">=":
		return g.genComparison(v.Op, lhs, rhs, floating, unsigned)
	}

	g.errorf(g.spanOf(v), "unsupported binary operator %q", v.Op)
	return constant.NewInt(lltypes.I8, 0)
}

var fcmpPreds = map[string]enum.FPred{
	"==": enum.FPredOEQ, "!=": enum.FPredONE,
	"<": enum.FPredOLT, ">": enum.FPredOGT,
	"<=": enum.FPredOLE, ">=": enum.FPredOGE,
}

var icmpSignedPreds = map[string]enum.IPred{
	"==": enum.IPredEQ, "!=": enum.IPredNE,
	"<": enum.IPredSLT, ">": enum.IPredSGT,
	"<=": enum.IPredSLE, ">=": enum.IPredSGE,
}

var icmpUnsignedPreds = map[string]enum.IPred{
	"==": enum.IPredEQ, "!=": enum.IPredNE,
	"<": enum.IPredULT, ">": enum.IPredUGT,
	"<=": enum.IPredULE, ">=": enum.IPredUGE,
}

// genComparison lowers a comparison to icmp/fcmp and immediately zero-
// extends the i1 result to i8, twkl's storage width for Bool (see
// DESIGN.md Open Question 3), so the value can be stored, returned, or
// branched on like any other Bool without a further widening cast.
func (g *Generator) genComparison(op string, lhs, rhs value.Value, floating, unsigned bool) value.Value {
	var cmp value.Value
	switch {
	case floating:
		cmp = g.curBlk.NewFCmp(fcmpPreds[op], lhs, rhs)
	case unsigned:
		cmp = g.curBlk.NewICmp(icmpUnsignedPreds[op], lhs, rhs)
	default:
		cmp = g.curBlk.NewICmp(icmpSignedPreds[op], lhs, rhs)
	}
	return g.curBlk.NewZExt(cmp, lltypes.I8)
}

// genShortCircuit lowers `&&`/`||` through a branch and a merge block
// so the right-hand operand is only evaluated when it can still change
// the outcome, per the component design's short-circuit requirement.
func (g *Generator) genShortCircuit(v *ast.BinaryOp) value.Value {
	lhs := g.genCond(v.Lhs)
	startBB := g.curBlk

	rhsBB := g.curFunc.NewBlock(g.freshBlockName("logic.rhs"))
	mergeBB := g.curFunc.NewBlock(g.freshBlockName("logic.merge"))

	shortVal := int64(0)
	if v.Op == "&&" {
		g.curBlk.NewCondBr(lhs, rhsBB, mergeBB)
	} else {
		shortVal = 1
		g.curBlk.NewCondBr(lhs, mergeBB, rhsBB)
	}

	g.curBlk = rhsBB
	rhs := g.genExpr(v.Rhs)
	rhsEndBB := g.curBlk
	g.curBlk.NewBr(mergeBB)

	g.curBlk = mergeBB
	return g.curBlk.NewPhi(
		ir.NewIncoming(constant.NewInt(lltypes.I8, shortVal), startBB),
		ir.NewIncoming(rhs, rhsEndBB),
	)
}
