package codegen

import (
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/yohashinoio/twkl/internal/report"
	"github.com/yohashinoio/twkl/internal/types"
)

// genCast lowers an explicit `as` conversion between checked types.
// It follows the per-primitive-kind dispatch of the teacher's genCast
// in generate/gen_expr.go: float widen/narrow, int<->float via the
// signed/unsigned instruction pair, bool->int via zero extension, and
// same-width signed<->unsigned reinterpretation as a no-op.
func (g *Generator) genCast(srcVal value.Value, srcType, dstType types.Type) value.Value {
	if types.Equal(srcType, dstType) {
		return srcVal
	}

	sb, sok := srcType.(types.Builtin)
	db, dok := dstType.(types.Builtin)
	if !sok || !dok {
		// pointer-to-pointer reinterpretation
		return g.curBlk.NewBitCast(srcVal, g.convType(dstType))
	}

	dstLL := g.convType(dstType)

	switch {
	case sb == types.F32 && db == types.F64:
		return g.curBlk.NewFPExt(srcVal, dstLL)
	case sb == types.F64 && db == types.F32:
		return g.curBlk.NewFPTrunc(srcVal, dstLL)
	case sb.IsIntegral() && db.IsFloating():
		if sb.IsUnsigned() {
			return g.curBlk.NewUIToFP(srcVal, dstLL)
		}
		return g.curBlk.NewSIToFP(srcVal, dstLL)
	case sb.IsFloating() && db.IsIntegral():
		if db.IsUnsigned() {
			return g.curBlk.NewFPToUI(srcVal, dstLL)
		}
		return g.curBlk.NewFPToSI(srcVal, dstLL)
	case sb == types.Bool && db.IsIntegral():
		if sb.BitWidth() == db.BitWidth() {
			return srcVal // Bool is already stored as i8; nothing to extend
		}
		return g.curBlk.NewZExt(srcVal, dstLL)
	case sb.IsIntegral() && db.IsIntegral():
		if sb.BitWidth() == db.BitWidth() {
			return srcVal // signed<->unsigned reinterpretation is a no-op
		}
		if sb.BitWidth() < db.BitWidth() {
			if sb.IsUnsigned() {
				return g.curBlk.NewZExt(srcVal, dstLL)
			}
			return g.curBlk.NewSExt(srcVal, dstLL)
		}
		return g.curBlk.NewTrunc(srcVal, dstLL)
	}

	g.errorf(report.Span{}, "unsupported cast from %s to %s", srcType.Repr(), dstType.Repr())
	return constant.NewInt(dstLL.(*lltypes.IntType), 0)
}
