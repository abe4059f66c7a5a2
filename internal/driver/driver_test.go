package driver

import "testing"

func TestParseEmitMode(t *testing.T) {
	cases := map[string]EmitMode{"ir": EmitIR, "asm": EmitAsm, "obj": EmitObj, "jit": EmitJIT}
	for s, want := range cases {
		got, ok := ParseEmitMode(s)
		if !ok || got != want {
			t.Errorf("ParseEmitMode(%q) = %v, %v; want %v, true", s, got, ok, want)
		}
	}

	if _, ok := ParseEmitMode("bogus"); ok {
		t.Errorf("ParseEmitMode(%q) unexpectedly succeeded", "bogus")
	}
}

func TestOutputPathSingleFileDefaultsToBasename(t *testing.T) {
	d := New(Options{Emit: EmitObj})
	got := d.outputPath("/tmp/prog.twkl", false)
	if got != "prog.o" {
		t.Errorf("outputPath = %q, want %q", got, "prog.o")
	}
}

func TestOutputPathHonorsExplicitOutputForSingleFile(t *testing.T) {
	d := New(Options{Emit: EmitAsm, Output: "custom.s"})
	got := d.outputPath("/tmp/prog.twkl", false)
	if got != "custom.s" {
		t.Errorf("outputPath = %q, want %q", got, "custom.s")
	}
}

func TestOutputPathJoinsDirectoryForMultiFile(t *testing.T) {
	d := New(Options{Emit: EmitIR, Output: "build"})
	got := d.outputPath("/tmp/prog.twkl", true)
	want := "build/prog.ll"
	if got != want {
		t.Errorf("outputPath = %q, want %q", got, want)
	}
}

func TestBuildRejectsJITEmitMode(t *testing.T) {
	d := New(Options{Emit: EmitJIT})
	if _, err := d.Build([]string{"a.twkl"}); err == nil {
		t.Errorf("Build with EmitJIT should have failed")
	}
}

func TestRunRejectsMultipleFiles(t *testing.T) {
	d := New(Options{Emit: EmitJIT})
	if _, err := d.Run([]string{"a.twkl", "b.twkl"}); err == nil {
		t.Errorf("Run with multiple files should have failed")
	}
}

func TestLLCAndLLIPathDefaults(t *testing.T) {
	d := New(Options{})
	if got := d.llcPath(); got != "llc" {
		t.Errorf("llcPath() = %q, want %q", got, "llc")
	}
	if got := d.lliPath(); got != "lli" {
		t.Errorf("lliPath() = %q, want %q", got, "lli")
	}

	d2 := New(Options{LLCPath: "/opt/llvm/bin/llc", LLIPath: "/opt/llvm/bin/lli"})
	if got := d2.llcPath(); got != "/opt/llvm/bin/llc" {
		t.Errorf("llcPath() = %q, want %q", got, "/opt/llvm/bin/llc")
	}
	if got := d2.lliPath(); got != "/opt/llvm/bin/lli" {
		t.Errorf("lliPath() = %q, want %q", got, "/opt/llvm/bin/lli")
	}
}

func TestCompileAllReportsMissingFile(t *testing.T) {
	d := New(Options{Emit: EmitIR})
	if _, err := d.Build([]string{"/nonexistent/does-not-exist.twkl"}); err == nil {
		t.Errorf("Build over a missing file should have failed")
	}
	if !d.Sink().HasErrors() {
		t.Errorf("expected the sink to record the I/O failure")
	}
}
