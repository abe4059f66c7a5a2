package mangle

import (
	"testing"

	"github.com/yohashinoio/twkl/internal/ast"
	"github.com/yohashinoio/twkl/internal/sym"
	"github.com/yohashinoio/twkl/internal/types"
)

func TestFuncMangleIsDeterministic(t *testing.T) {
	ns := &sym.NamespaceStack{}
	params := []types.Type{types.I32, types.Bool}

	a := Func(ns, "compute", ast.Public, params)
	b := Func(ns, "compute", ast.Public, params)
	if a != b {
		t.Errorf("Func is not deterministic: %q != %q", a, b)
	}
}

func TestFuncMangleDistinguishesOverloadsByParamType(t *testing.T) {
	ns := &sym.NamespaceStack{}

	byI32 := Func(ns, "f", ast.Public, []types.Type{types.I32})
	byBool := Func(ns, "f", ast.Public, []types.Type{types.Bool})
	if byI32 == byBool {
		t.Errorf("overloads with different parameter types mangled identically: %q", byI32)
	}
}

func TestUserDefinedTemplateInstancesMangleDistinctly(t *testing.T) {
	boxI32 := &types.UserDefinedTemplate{
		Base: types.Named{QualName: "Box"},
		Args: []types.Type{types.I32},
	}
	boxBool := &types.UserDefinedTemplate{
		Base: types.Named{QualName: "Box"},
		Args: []types.Type{types.Bool},
	}

	ns := &sym.NamespaceStack{}
	a := Func(ns, "take", ast.Public, []types.Type{boxI32})
	b := Func(ns, "take", ast.Public, []types.Type{boxBool})
	if a == b {
		t.Errorf("distinct generic-class instantiations collided in the mangled name: %q", a)
	}
}

func TestIsNoMangle(t *testing.T) {
	if !IsNoMangle([]ast.Attribute{{Name: "extern"}}) {
		t.Errorf("expected `extern` to suppress mangling")
	}
	if IsNoMangle([]ast.Attribute{{Name: "inline"}}) {
		t.Errorf("did not expect `inline` to suppress mangling")
	}
}
