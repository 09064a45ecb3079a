package vm

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"allot/internal/code"
	"allot/internal/memory"
	"allot/internal/ops"
	"allot/internal/value"
)

func TestThreadCreateJoin(t *testing.T) {
	prog := code.Program{
		/* 0 */ code.PushFrame(false),
		/* 1 */ code.Mov(value.R1, value.Int32(20)),
		/* 2 */ code.Push(value.R1),
		/* 3 */ code.ThreadCreate(value.Address(9)),
		/* 4 */ code.Cpy(value.R20, value.R5),
		/* 5 */ code.ThreadJoin(value.R20),
		/* 6 */ code.Pop(value.R2),
		/* 7 */ code.Assert(value.R2, value.Int32(22)),
		/* 8 */ code.Exit(value.Reg(value.R5)),
		// thread body: add 2 to the value it was handed and exit 7
		/* 9 */ code.Pop(value.R1),
		/* 10 */ code.Mov(value.R2, value.Int32(2)),
		/* 11 */ code.Binary(ops.Add, value.R1, value.R2),
		/* 12 */ code.Push(value.R1),
		/* 13 */ code.Exit(value.Int32(7)),
	}
	status, e, _ := run(t, prog)
	if status != 7 {
		t.Fatalf("exit code = %d, want the thread's 7", status)
	}
	if e.Frames().Depth() != 2 {
		t.Fatalf("joined frame should be pushed, depth %d", e.Frames().Depth())
	}
	if e.Heap().Len() != 0 {
		t.Fatalf("join should remove the handle, heap has %d", e.Heap().Len())
	}
}

func TestThreadDoesNotShareRegisters(t *testing.T) {
	prog := code.Program{
		/* 0 */ code.Mov(value.R1, value.Int32(1)),
		/* 1 */ code.PushFrame(false),
		/* 2 */ code.ThreadCreate(value.Address(7)),
		/* 3 */ code.ThreadJoin(value.R5),
		/* 4 */ code.Assert(value.R5, value.Int32(0)),
		/* 5 */ code.Assert(value.R1, value.Int32(1)),
		/* 6 */ code.Exit(value.Int32(0)),
		/* 7 */ code.Assert(value.R1, value.None()),
		/* 8 */ code.Mov(value.R1, value.Int32(99)),
		/* 9 */ code.Exit(value.Int32(0)),
	}
	status, _, _ := run(t, prog)
	if status != 0 {
		t.Fatalf("exit code = %d", status)
	}
}

func TestThreadSharesHeap(t *testing.T) {
	prog := code.Program{
		/* 0 */ code.Mov(value.R5, value.Int64(1)),
		/* 1 */ code.Call("heap::box"),
		/* 2 */ code.PushFrame(false),
		/* 3 */ code.PushCpy(value.R5),
		/* 4 */ code.ThreadCreate(value.Address(11)),
		/* 5 */ code.ThreadJoin(value.R5),
		/* 6 */ code.Pop(value.R5),
		/* 7 */ code.Call("heap::take"),
		/* 8 */ code.Assert(value.R6, value.Int64(41)),
		/* 9 */ code.Exit(value.Int32(0)),
		/* 10 */ code.Nop(),
		// thread: overwrite the shared box, hand the pointer back
		/* 11 */ code.StackCpy(value.R5, value.UInt(0)),
		/* 12 */ code.Mov(value.R6, value.Int64(41)),
		/* 13 */ code.Call("heap::set"),
		/* 14 */ code.Exit(value.Int32(0)),
	}
	status, _, _ := run(t, prog)
	if status != 0 {
		t.Fatalf("exit code = %d", status)
	}
}

func TestThreadCreateNeedsFrame(t *testing.T) {
	runFault(t, code.Program{code.ThreadCreate(value.Address(0))}, memory.ErrRootFrame)
}

func TestThreadCreateBadTargetKeepsFrame(t *testing.T) {
	e, _ := newEngine(code.Program{
		code.PushFrame(false),
		code.ThreadCreate(value.Int32(0)),
	})
	_, err := e.Run()
	if !errors.Is(err, ErrOperandKind) {
		t.Fatalf("expected operand kind fault, got %v", err)
	}
	if e.Frames().Depth() != 2 {
		t.Fatalf("frame should not be handed off on a bad target")
	}
}

func TestThreadJoinChecks(t *testing.T) {
	runFault(t, code.Program{
		code.Mov(value.R1, value.UInt(1)),
		code.ThreadJoin(value.R1),
	}, ErrOperandKind)
	runFault(t, code.Program{
		code.Mov(value.R1, value.Pointer(77)),
		code.ThreadJoin(value.R1),
	}, memory.ErrHeapMissing)
	runFault(t, code.Program{
		code.Mov(value.R5, value.Bool(true)),
		code.Call("heap::box"),
		code.ThreadJoin(value.R5),
	}, memory.ErrHeapKind)
}

func TestThreadJoinTwiceFaults(t *testing.T) {
	runFault(t, code.Program{
		/* 0 */ code.PushFrame(false),
		/* 1 */ code.ThreadCreate(value.Address(5)),
		/* 2 */ code.Cpy(value.R1, value.R5),
		/* 3 */ code.ThreadJoin(value.R1),
		/* 4 */ code.ThreadJoin(value.R1),
		/* 5 */ code.Exit(value.Int32(0)),
	}, memory.ErrHeapMissing)
}

func TestThreadFaultPropagates(t *testing.T) {
	e, _ := newEngine(code.Program{
		/* 0 */ code.PushFrame(false),
		/* 1 */ code.ThreadCreate(value.Address(4)),
		/* 2 */ code.ThreadJoin(value.R5),
		/* 3 */ code.Exit(value.Int32(0)),
		/* 4 */ code.Pop(value.RegNone),
	})
	var mu sync.Mutex
	var aborted error
	e.SetAbort(func(err error) {
		mu.Lock()
		aborted = err
		mu.Unlock()
	})
	_, err := e.Run()
	if !errors.Is(err, ErrThreadFault) {
		t.Fatalf("expected joined thread fault, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(aborted, memory.ErrEmptyFrame) {
		t.Fatalf("abort hook should see the thread's fault, got %v", aborted)
	}
}

func TestManyThreadsPrint(t *testing.T) {
	var prog code.Program
	const n = 8
	for i := 0; i < n; i++ {
		prog = append(prog,
			code.PushFrame(false),
			code.ThreadCreate(value.Address(0)),
			code.Push(value.R5),
		)
	}
	for i := 0; i < n; i++ {
		prog = append(prog,
			code.Pop(value.R1),
			code.ThreadJoin(value.R1),
			code.PopFrame(),
		)
	}
	body := len(prog) + 1
	prog = append(prog, code.Exit(value.Int32(0)))
	for i := 0; i < n*3; i += 3 {
		prog[i+1] = code.ThreadCreate(value.Address(body))
	}
	prog = append(prog,
		code.Mov(value.R9, value.String("x")),
		code.Call("println"),
		code.Exit(value.Int32(0)),
	)
	status, _, out := run(t, prog)
	if status != 0 || strings.Count(out, "x\n") != n {
		t.Fatalf("status %d, stdout %q", status, out)
	}
}

func TestWaitCoversDetachedThreads(t *testing.T) {
	e, out := newEngine(code.Program{
		/* 0 */ code.PushFrame(false),
		/* 1 */ code.ThreadCreate(value.Address(5)),
		/* 2 */ code.PushFrame(false),
		/* 3 */ code.ThreadCreate(value.Address(8)),
		/* 4 */ code.Exit(value.Int32(0)),
		// printer
		/* 5 */ code.Mov(value.R9, value.String("late")),
		/* 6 */ code.Call("println"),
		/* 7 */ code.Exit(value.Int32(0)),
		// faulter
		/* 8 */ code.Pop(value.RegNone),
	})
	var mu sync.Mutex
	var aborted []error
	e.SetAbort(func(err error) {
		mu.Lock()
		aborted = append(aborted, err)
		mu.Unlock()
	})
	status, err := e.Run()
	if err != nil || status != 0 {
		t.Fatalf("Run = %d, %v", status, err)
	}
	e.Wait()
	if out.String() != "late\n" {
		t.Fatalf("stdout after Wait = %q", out.String())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(aborted) != 1 || !errors.Is(aborted[0], memory.ErrEmptyFrame) {
		t.Fatalf("aborted = %v", aborted)
	}
}
