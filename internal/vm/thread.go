package vm

import (
	"fmt"

	"github.com/google/uuid"

	"allot/internal/memory"
	"allot/internal/value"
)

// ThreadResult is the register that receives thread handles and join codes.
const ThreadResult = value.R5

// spawn builds an engine that shares the program, heap, and options of e and
// owns root as its only frame.
func (e *Engine) spawn(start int, root *memory.Frame) *Engine {
	return &Engine{
		id:      uuid.New(),
		program: e.program,
		current: start,
		regs:    memory.NewRegisters(),
		frames:  memory.NewFrames(root),
		heap:    e.heap,
		opts:    e.opts,
	}
}

func (e *Engine) threadCreate(target value.Value) error {
	start, err := e.address(target)
	if err != nil {
		return err
	}
	frame, err := e.frames.Pop()
	if err != nil {
		return err
	}
	child := e.spawn(start, frame)
	handle := memory.NewThread(child.ID())
	ptr, err := e.heap.Push(handle)
	if err != nil {
		e.frames.Push(frame)
		return err
	}
	log.Debugf("engine %s: spawned thread %s at %04d", e.ID(), child.ID(), start)
	e.opts.threads.Add(1)
	go child.runThread(handle)
	return e.regs.Set(ThreadResult, ptr)
}

func (e *Engine) runThread(handle *memory.Thread) {
	defer e.opts.threads.Done()
	status, err := e.Run()
	if err != nil {
		log.Errorf("thread %s: %s", e.ID(), err)
		if e.opts.abort != nil {
			e.opts.abort(err)
		}
	}
	handle.Finish(status, e.frames.Current(), err)
}

func (e *Engine) threadJoin(r value.Register) error {
	ptr, err := e.regs.Get(r)
	if err != nil {
		return err
	}
	if ptr.Kind() != value.KindPointer {
		return kindError("ptr thread handle", ptr)
	}
	handle, err := e.heap.TakeThread(ptr.Pointer())
	if err != nil {
		return err
	}
	status, frame, err := handle.Join()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrThreadFault, handle.ID, err)
	}
	log.Debugf("engine %s: joined thread %s with code %d", e.ID(), handle.ID, status)
	if err := e.regs.Set(ThreadResult, value.Int32(status)); err != nil {
		return err
	}
	e.frames.Push(frame)
	return nil
}
