package codegen

import (
	"bufio"
	"strings"
	"testing"

	"github.com/yohashinoio/twkl/internal/parser"
	"github.com/yohashinoio/twkl/internal/report"
	"github.com/yohashinoio/twkl/internal/sym"
)

// compile parses and lowers src as a single translation unit, failing
// the test immediately on any parse or lowering diagnostic -- every
// test in this file exercises a scenario expected to compile cleanly.
func compile(t *testing.T, src string) string {
	t.Helper()

	sink := report.NewSink()
	p := parser.New("test.twkl", bufio.NewReader(strings.NewReader(src)), sink)
	res, ok := p.Parse()
	if !ok {
		t.Fatalf("parse failed: %v", sink.Errors())
	}

	g := New("test.twkl", sink, res.Spans, sym.NewRegistries())
	g.Generate(res.File)

	if sink.HasErrors() {
		t.Fatalf("lowering failed: %v", sink.Errors())
	}

	return g.Module().String()
}

// TestMainReturnsConstant covers spec scenario 1: a bare constant
// return from main lowers to a function named exactly "main" (kept
// unmangled so the driver's JIT/link step finds it) that stores the
// literal value into its return slot.
func TestMainReturnsConstant(t *testing.T) {
	ir := compile(t, `func main() -> i32 { ret 42; }`)

	if !strings.Contains(ir, "define i32 @main()") {
		t.Errorf("expected an unmangled @main definition, got:\n%s", ir)
	}
	if !strings.Contains(ir, "store i32 42") {
		t.Errorf("expected `store i32 42` into the return slot, got:\n%s", ir)
	}
}

// TestFunctionCallWithAdd covers spec scenario 2: a free function
// call whose arguments and return type both typecheck without any
// explicit annotation, relying entirely on typeOf's static inference.
func TestFunctionCallWithAdd(t *testing.T) {
	ir := compile(t, `
func add(a: i32, b: i32) -> i32 { ret a + b; }
func main() -> i32 { ret add(20, 22); }
`)

	if !strings.Contains(ir, "call i32") {
		t.Errorf("expected a lowered call instruction, got:\n%s", ir)
	}
	if !strings.Contains(ir, "add") {
		t.Errorf("expected the mangled `add` symbol to appear, got:\n%s", ir)
	}
}

// TestForLoopCounter covers spec scenario 3: a mutable local counted
// up by a C-style for loop with no body statements.
func TestForLoopCounter(t *testing.T) {
	ir := compile(t, `
func main() -> i32 {
	var mutable i = 0;
	for ; i < 10; i += 1 {}
	ret i;
}
`)

	if !strings.Contains(ir, "define i32 @main()") {
		t.Errorf("expected an unmangled @main definition, got:\n%s", ir)
	}
	if !strings.Contains(ir, "icmp") {
		t.Errorf("expected the loop condition to lower to icmp, got:\n%s", ir)
	}
}

// TestClassConstructorAndFieldAccess covers spec scenario 4: a class
// with a `new`-named constructor assigning a field through `this`,
// constructed and read back from main.
func TestClassConstructorAndFieldAccess(t *testing.T) {
	ir := compile(t, `
class Box {
	x: i32;
	public func new(v: i32) { this.x = v; }
}
func main() -> i32 {
	var b = Box(42);
	ret b.x;
}
`)

	if !strings.Contains(ir, "Box") {
		t.Errorf("expected the Box struct type to appear, got:\n%s", ir)
	}
	if !strings.Contains(ir, "C3BoxF3new") {
		t.Errorf("expected the constructor's mangled symbol (class Box, method new) to appear, got:\n%s", ir)
	}
}

// TestGenericFunctionInstantiation covers spec scenario 5: a template
// call site instantiates the generic function over the concrete type
// argument exactly once, and the call dispatches to that instantiation.
func TestGenericFunctionInstantiation(t *testing.T) {
	ir := compile(t, `
func id<T>(x: T) -> T { ret x; }
func main() -> i32 { ret id<i32>(7); }
`)

	if !strings.Contains(ir, "id$i32") {
		t.Errorf("expected the monomorphized symbol `id$i32`, got:\n%s", ir)
	}
	if strings.Count(ir, "define") != 2 {
		t.Errorf("expected exactly one instantiation of `id` plus `main`, got:\n%s", ir)
	}
}

// TestPipelineDesugarsToCall exercises the `|>` operator, verifying it
// lowers identically to an equivalent direct call.
func TestPipelineDesugarsToCall(t *testing.T) {
	withPipeline := compile(t, `
func square(x: i32) -> i32 { ret x * x; }
func main() -> i32 { ret 6 |> square(); }
`)
	withCall := compile(t, `
func square(x: i32) -> i32 { ret x * x; }
func main() -> i32 { ret square(6); }
`)

	if withPipeline != withCall {
		t.Errorf("pipeline lowering diverged from direct call lowering:\npipeline:\n%s\ncall:\n%s", withPipeline, withCall)
	}
}

// TestComparisonStoresAsBool guards against the icmp/zext regression:
// a comparison's `i1` result must be widened to `i8` before it can be
// stored into a `Bool`-typed local or returned from a `Bool`-returning
// function.
func TestComparisonStoresAsBool(t *testing.T) {
	ir := compile(t, `
func lessThan(a: i32, b: i32) -> bool { ret a < b; }
func main() -> i32 {
	var mutable b = lessThan(1, 2);
	for ; b; b = false {}
	ret 0;
}
`)

	if !strings.Contains(ir, "zext") {
		t.Errorf("expected the icmp result to be zero-extended to i8, got:\n%s", ir)
	}
}

// TestLogicalAndShortCircuits covers the `&&` operator: the right-hand
// side must only run inside a branch reached when the left-hand side
// is true, not unconditionally, so a call used as the right operand
// only appears reachable from a branch block, never from a bitwise
// `and` of the two raw operands.
func TestLogicalAndShortCircuits(t *testing.T) {
	ir := compile(t, `
func sideEffect() -> bool { ret true; }
func main() -> i32 {
	var b = false && sideEffect();
	if b { ret 1; }
	ret 0;
}
`)

	if !strings.Contains(ir, "logic.rhs") || !strings.Contains(ir, "logic.merge") {
		t.Errorf("expected && to lower through logic.rhs/logic.merge blocks, got:\n%s", ir)
	}
	if rhs, call := strings.Index(ir, "\nlogic.rhs."), strings.Index(ir, "call i8 @_TF10sideEffect"); rhs < 0 || call < rhs {
		t.Errorf("expected the call to sideEffect to live inside the rhs branch, got:\n%s", ir)
	}
}

// TestCallArgumentWidening covers the implicit integer-widening rule:
// an i8 argument passed to an i32 parameter is widened at the call
// site rather than left mismatched.
func TestCallArgumentWidening(t *testing.T) {
	ir := compile(t, `
func takesWide(x: i32) -> i32 { ret x; }
func main() -> i32 {
	var c: i8 = 5;
	ret takesWide(c);
}
`)

	if !strings.Contains(ir, "sext") && !strings.Contains(ir, "zext") {
		t.Errorf("expected a widening cast instruction, got:\n%s", ir)
	}
}
