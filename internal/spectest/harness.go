package spectest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"allot/internal/code"
	"allot/internal/parser"
	"allot/internal/runtimeio"
	"allot/internal/vm"
)

type Mode string

const (
	// ModeAssembly runs the assembled program directly.
	ModeAssembly Mode = "asm"
	// ModeBytecode round-trips the program through an .allot file first.
	ModeBytecode Mode = "bytecode"
)

type Options struct {
	Mode     Mode
	Source   string
	Stdin    string
	MaxSteps int64
	MaxHeap  int64
	Debug    bool
}

type Expectation struct {
	Stdout      string
	StdoutMode  StdoutMode
	Exit        int32
	ErrIs       error
	ErrContains string
	// Aborted expects a spawned thread to have faulted.
	Aborted bool
	// DebugContains is matched against dbg and dump output.
	DebugContains string
}

type Result struct {
	Stdout  string
	Debug   string
	Exit    int32
	Err     error
	Aborted []error
}

func Run(t *testing.T, opts Options) Result {
	t.Helper()

	prog, err := parser.Assemble(opts.Source)
	if err != nil {
		return Result{Err: err}
	}
	if opts.Mode == ModeBytecode {
		prog = roundTrip(t, prog)
	}

	var stdout, debug bytes.Buffer
	var mu sync.Mutex
	res := Result{}

	e := vm.New(prog)
	e.SetStreams(runtimeio.New(strings.NewReader(opts.Stdin), &stdout))
	e.SetMaxSteps(opts.MaxSteps)
	if opts.MaxHeap > 0 {
		e.SetMaxHeap(opts.MaxHeap)
	}
	if opts.Debug {
		e.SetDebug(&debug)
	}
	e.SetAbort(func(err error) {
		mu.Lock()
		res.Aborted = append(res.Aborted, err)
		mu.Unlock()
	})

	res.Exit, res.Err = e.Run()
	e.Wait()
	res.Stdout = stdout.String()
	res.Debug = debug.String()
	return res
}

func roundTrip(t *testing.T, prog code.Program) code.Program {
	t.Helper()

	data, err := code.Encode(prog)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "main.allot")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write bytecode: %v", err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read bytecode: %v", err)
	}
	out, err := code.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return out
}

func Assert(t *testing.T, res Result, exp Expectation) {
	t.Helper()

	mode := exp.StdoutMode
	if mode == StdoutNone {
		mode = StdoutExact
	}
	ok, reason, err := MatchStdout(res.Stdout, StdoutExpectation{
		Mode:  mode,
		Value: exp.Stdout,
	}, "")
	if err != nil {
		t.Fatalf("stdout check failed: %v", err)
	}
	if !ok {
		t.Fatal(reason)
	}

	wantErr := exp.ErrIs != nil || exp.ErrContains != ""
	if wantErr && res.Err == nil {
		t.Fatalf("expected error %v/%q, got none", exp.ErrIs, exp.ErrContains)
	}
	if !wantErr && res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if exp.ErrIs != nil && !errors.Is(res.Err, exp.ErrIs) {
		t.Fatalf("error mismatch: expected %v, got %v", exp.ErrIs, res.Err)
	}
	if exp.ErrContains != "" && !strings.Contains(res.Err.Error(), exp.ErrContains) {
		t.Fatalf("error message mismatch: expected to contain %q, got %q", exp.ErrContains, res.Err.Error())
	}
	if !wantErr && res.Exit != exp.Exit {
		t.Fatalf("exit code mismatch: expected %d, got %d", exp.Exit, res.Exit)
	}

	if exp.Aborted != (len(res.Aborted) > 0) {
		t.Fatalf("thread abort mismatch: expected %v, got %v", exp.Aborted, res.Aborted)
	}
	if exp.DebugContains != "" && !strings.Contains(res.Debug, exp.DebugContains) {
		t.Fatalf("debug output mismatch: expected to contain %q, got %q", exp.DebugContains, res.Debug)
	}
}

// Modes lists every way a case is run.
func Modes() []Mode {
	return []Mode{ModeAssembly, ModeBytecode}
}

func FormatResult(res Result) string {
	if res.Err != nil {
		return fmt.Sprintf("error: %v", res.Err)
	}
	return fmt.Sprintf("exit %d, stdout %q", res.Exit, res.Stdout)
}
