package vm

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"allot/internal/code"
	"allot/internal/limits"
	"allot/internal/memory"
	"allot/internal/runtimeio"
	"allot/internal/value"
)

var log = commonlog.GetLogger("allot.vm")

// AssertFailureCode is the exit code of an engine stopped by a failed assert.
const AssertFailureCode int32 = -1

// FaultExitCode is the process status used by the binaries for any fault.
const FaultExitCode = 101

var (
	ErrInstructionPointer = errors.New("instruction pointer out of bounds")
	ErrOperandKind        = errors.New("operand has the wrong kind")
	ErrStepLimit          = errors.New("step limit exceeded")
	ErrUnimplemented      = errors.New("instruction not implemented")
	ErrThreadFault        = errors.New("joined thread faulted")
)

type Fault struct {
	Engine string
	IP     int
	Op     code.Opcode
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault at %04d (%s): %v", f.IP, f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// options are shared by an engine and every thread it spawns.
type options struct {
	streams     *runtimeio.Streams
	exit        func(code int32)
	abort       func(err error)
	debug       io.Writer
	snapshotDir string
	maxSteps    int64
	threads     sync.WaitGroup
}

type Engine struct {
	id      uuid.UUID
	program code.Program
	current int

	regs   *memory.Registers
	frames *memory.Frames
	heap   *memory.Heap

	opts  *options
	steps int64
}

func New(prog code.Program) *Engine {
	return &Engine{
		id:      uuid.New(),
		program: prog,
		regs:    memory.NewRegisters(),
		frames:  memory.NewFrames(nil),
		heap:    memory.NewHeap(nil),
		opts:    &options{streams: runtimeio.Std()},
	}
}

func (e *Engine) SetMaxSteps(n int64) {
	if n < 0 {
		n = 0
	}
	e.opts.maxSteps = n
}

// SetMaxHeap replaces the heap with an empty one capped at n bytes.
func (e *Engine) SetMaxHeap(n int64) {
	e.heap = memory.NewHeap(limits.NewBudget(n))
}

func (e *Engine) SetStreams(s *runtimeio.Streams) { e.opts.streams = s }

// SetExit installs the process exit used by the exit library function. When
// the hook returns, the calling engine stops with the requested code.
func (e *Engine) SetExit(fn func(code int32)) { e.opts.exit = fn }

// SetAbort installs the handler for faults raised inside spawned threads.
func (e *Engine) SetAbort(fn func(err error)) { e.opts.abort = fn }

// SetDebug enables Dbg and Dump output. A nil writer silences them.
func (e *Engine) SetDebug(w io.Writer) { e.opts.debug = w }

func (e *Engine) SetSnapshotDir(dir string) { e.opts.snapshotDir = dir }

func (e *Engine) ID() string                   { return e.id.String() }
func (e *Engine) Current() int                 { return e.current }
func (e *Engine) Program() code.Program        { return e.program }
func (e *Engine) Registers() *memory.Registers { return e.regs }
func (e *Engine) Frames() *memory.Frames       { return e.frames }
func (e *Engine) Heap() *memory.Heap           { return e.heap }

func (e *Engine) Register(r value.Register) value.Value {
	v, _ := e.regs.Get(r)
	return v
}

// Extend appends instructions without touching the sequence that running
// threads already hold.
func (e *Engine) Extend(ins ...code.Instruction) {
	next := make(code.Program, len(e.program), len(e.program)+len(ins))
	copy(next, e.program)
	e.program = append(next, ins...)
}

// Reset clears registers and frames and rewinds to the first instruction.
// The heap is kept.
func (e *Engine) Reset() {
	e.regs.Reset()
	e.frames = memory.NewFrames(nil)
	e.current = 0
	e.steps = 0
}

// Wait blocks until every thread spawned from e, directly or not, has
// finished. Joined and detached threads are both counted.
func (e *Engine) Wait() { e.opts.threads.Wait() }

// Seek moves the instruction pointer, e.g. past a line that faulted in the REPL.
func (e *Engine) Seek(ip int) { e.current = ip }

func (e *Engine) fault(ins code.Opcode, err error) *Fault {
	return &Fault{Engine: e.ID(), IP: e.current, Op: ins, Err: err}
}

// Tick executes one instruction. done reports that the engine terminated
// with status.
func (e *Engine) Tick() (status int32, done bool, err error) {
	if e.current < 0 || e.current >= len(e.program) {
		return 0, false, &Fault{Engine: e.ID(), IP: e.current, Op: code.OpNop,
			Err: fmt.Errorf("%w: %d of %d", ErrInstructionPointer, e.current, len(e.program))}
	}
	ins := e.program[e.current]
	if e.opts.maxSteps > 0 {
		e.steps++
		if e.steps > e.opts.maxSteps {
			return 0, false, e.fault(ins.Op, fmt.Errorf("%w (%d)", ErrStepLimit, e.opts.maxSteps))
		}
	}
	next, status, done, err := e.exec(ins)
	if err != nil {
		return 0, false, e.fault(ins.Op, err)
	}
	if done {
		return status, true, nil
	}
	e.current = next
	return 0, false, nil
}

func (e *Engine) Run() (int32, error) {
	for {
		status, done, err := e.Tick()
		if err != nil {
			return 0, err
		}
		if done {
			return status, nil
		}
	}
}

// Resume runs until the engine terminates or the pointer reaches the end of
// the program, which is where Extend appends.
func (e *Engine) Resume() (status int32, done bool, err error) {
	for e.current < len(e.program) {
		status, done, err = e.Tick()
		if err != nil || done {
			return status, done, err
		}
	}
	return 0, false, nil
}
