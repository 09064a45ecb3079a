package lint

import (
	"testing"

	"allot/internal/diag"
	"allot/internal/parser"
)

func lintSource(t *testing.T, src string) []diag.Diagnostic {
	t.Helper()
	unit, diags := parser.Parse(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected assembler diagnostics: %v", diags)
	}
	return Run(unit)
}

func codes(ds []diag.Diagnostic) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Code)
	}
	return out
}

func TestLint_Clean(t *testing.T) {
	ds := lintSource(t, `
	mov r9 str("hi")
	call println
	jmp _ @done
	nop
done:
	exit i32(0)
`)
	// nop after the jump is dead
	if len(ds) != 1 || ds[0].Code != CodeUnreachable || ds[0].Range.Line != 5 {
		t.Fatalf("got %v", ds)
	}
}

func TestLint_UnknownFunction(t *testing.T) {
	ds := lintSource(t, "call println\ncall no::such\n")
	if len(ds) != 1 || ds[0].Code != CodeUnknownFunction || ds[0].Range.Line != 2 {
		t.Fatalf("got %v", ds)
	}
	if ds[0].Severity != diag.SeverityWarning {
		t.Fatalf("severity = %s", ds[0].Severity)
	}
}

func TestLint_UnusedLabel(t *testing.T) {
	ds := lintSource(t, "unused:\nnop\nused:\njmp _ @used\n")
	if len(ds) != 1 || ds[0].Code != CodeUnusedLabel {
		t.Fatalf("got %v", codes(ds))
	}
}

func TestLint_UnreachableOncePerRun(t *testing.T) {
	ds := lintSource(t, `
	ret
	nop
	nop
	exit i32(1)
	nop
`)
	if len(ds) != 1 || ds[0].Code != CodeUnreachable || ds[0].Range.Line != 3 {
		t.Fatalf("got %v", ds)
	}
}

func TestLint_AddressTargetsAreReachable(t *testing.T) {
	ds := lintSource(t, `
	threadcreate addr(2)
	ret
	nop
	ret
`)
	if len(ds) != 0 {
		t.Fatalf("got %v", ds)
	}
}

func TestLint_ConditionalJumpFallsThrough(t *testing.T) {
	ds := lintSource(t, "start:\njmp r1 @start\nnop\n")
	if len(ds) != 0 {
		t.Fatalf("got %v", ds)
	}
}

func TestLint_Debug(t *testing.T) {
	src := "dbg r1\ndump 3\n"
	ds := lintSource(t, src)
	if got := codes(ds); len(got) != 2 || got[0] != CodeDebugLeft || got[1] != CodeDebugLeft {
		t.Fatalf("got %v", got)
	}
	unit, _ := parser.Parse(src)
	if ds := RunWithOptions(unit, Options{CheckDebug: false}); len(ds) != 0 {
		t.Fatalf("got %v", ds)
	}
}
