package vm

import (
	"errors"
	"fmt"

	"allot/internal/code"
	"allot/internal/library"
	"allot/internal/memory"
	"allot/internal/ops"
	"allot/internal/value"
)

func kindError(want string, got value.Value) error {
	return fmt.Errorf("%w: want %s, got %s", ErrOperandKind, want, got.Kind())
}

// operand resolves a register reference to a copy of that register's value.
func (e *Engine) operand(v value.Value) (value.Value, error) {
	if v.Kind() == value.KindRegister {
		return e.regs.Get(v.Register())
	}
	return v, nil
}

func (e *Engine) address(v value.Value) (int, error) {
	v, err := e.operand(v)
	if err != nil {
		return 0, err
	}
	if v.Kind() != value.KindAddress {
		return 0, kindError("addr", v)
	}
	return v.Address(), nil
}

// count reads a stack count or depth.
func (e *Engine) count(v value.Value) (uint64, error) {
	v, err := e.operand(v)
	if err != nil {
		return 0, err
	}
	if v.Kind() != value.KindUInt {
		return 0, kindError("usize", v)
	}
	return v.Uint(), nil
}

func (e *Engine) exec(ins code.Instruction) (next int, status int32, done bool, err error) {
	next = e.current + 1
	frame := e.frames.Current()

	switch ins.Op {
	case code.OpNop:

	case code.OpOp:
		var dst, src, res value.Value
		if dst, err = e.regs.Get(ins.A); err != nil {
			return
		}
		if ins.Oper.IsBinary() {
			if src, err = e.regs.Get(ins.B); err != nil {
				return
			}
		}
		if res, err = ops.Apply(ins.Oper, dst, src); err != nil {
			return
		}
		err = e.regs.Set(ins.A, res)

	case code.OpMov:
		v := ins.Val
		if v.Kind() == value.KindRegister {
			if v, err = e.regs.Take(v.Register()); err != nil {
				return
			}
		}
		err = e.regs.Set(ins.A, v)

	case code.OpCpy:
		var v value.Value
		if v, err = e.regs.Get(ins.B); err != nil {
			return
		}
		err = e.regs.Set(ins.A, v)

	case code.OpCast:
		var v value.Value
		if v, err = e.regs.Get(ins.A); err != nil {
			return
		}
		if v, err = ops.Cast(v, ins.Kind); err != nil {
			return
		}
		err = e.regs.Set(ins.A, v)

	case code.OpLea:
		err = e.regs.Set(ins.A, value.Address(int(ins.Offset)))

	case code.OpJmp:
		var target int
		if target, err = e.address(ins.Val); err != nil {
			return
		}
		if ins.A == value.RegNone {
			next = target
			break
		}
		var cond value.Value
		if cond, err = e.regs.Get(ins.A); err != nil {
			return
		}
		if cond.Kind() != value.KindBool {
			err = kindError("bool condition", cond)
			return
		}
		if cond.Bool() {
			next = target
		}

	case code.OpRet:
		var v value.Value
		if v, err = frame.Pop(); err != nil {
			return
		}
		if v.Kind() != value.KindAddress {
			err = kindError("addr return target", v)
			return
		}
		next = v.Address()

	case code.OpCall:
		return e.call(ins.Name, next)

	case code.OpExit:
		var v value.Value
		if v, err = e.operand(ins.Val); err != nil {
			return
		}
		if v.Kind() != value.KindInt32 {
			err = kindError("i32 exit code", v)
			return
		}
		return next, int32(v.Int()), true, nil

	case code.OpPush, code.OpPushCpy:
		var v value.Value
		if ins.Op == code.OpPush {
			v, err = e.regs.Take(ins.A)
		} else {
			v, err = e.regs.Get(ins.A)
		}
		if err != nil {
			return
		}
		frame.Push(v)

	case code.OpPop:
		var v value.Value
		if v, err = frame.Pop(); err != nil {
			return
		}
		if ins.A != value.RegNone {
			err = e.regs.Set(ins.A, v)
		}

	case code.OpPopMany:
		var n uint64
		if n, err = e.count(ins.Val); err != nil {
			return
		}
		for i := uint64(0); i < n; i++ {
			if _, err = frame.Pop(); err != nil {
				return
			}
		}

	case code.OpStackCpy:
		var depth uint64
		if depth, err = e.count(ins.Val); err != nil {
			return
		}
		var v value.Value
		if v, err = frame.Peek(depth); err != nil {
			return
		}
		err = e.regs.Set(ins.A, v)

	case code.OpPushFrame:
		e.frames.Push(memory.NewFrame(ins.Flag))

	case code.OpPopFrame:
		_, err = e.frames.Pop()

	case code.OpTakeFrom, code.OpGiveTo:
		err = fmt.Errorf("%w: %s", ErrUnimplemented, ins.Op)

	case code.OpThreadCreate:
		err = e.threadCreate(ins.Val)

	case code.OpThreadJoin:
		err = e.threadJoin(ins.A)

	case code.OpAssert:
		var got, want value.Value
		if got, err = e.regs.Get(ins.A); err != nil {
			return
		}
		if want, err = e.operand(ins.Val); err != nil {
			return
		}
		if !value.Equal(got, want) {
			log.Debugf("engine %s: assert failed at %04d: %s != %s", e.ID(), e.current, got, want)
			return next, AssertFailureCode, true, nil
		}

	case code.OpDbg:
		err = e.dbg(ins.A)

	case code.OpDump:
		err = e.dump(ins.Bits)

	default:
		err = fmt.Errorf("%w %d", code.ErrOpcode, ins.Op)
	}
	return
}

func (e *Engine) call(name string, next int) (int, int32, bool, error) {
	var args library.Args
	for i := range args {
		v, err := e.regs.Get(library.First + value.Register(i))
		if err != nil {
			return next, 0, false, err
		}
		args[i] = v
	}
	ctx := &library.Context{
		Frame:   e.frames.Current(),
		Heap:    e.heap,
		Streams: e.opts.streams,
	}
	ret, err := library.Call(name, ctx, &args)
	var exited library.Exited
	if errors.As(err, &exited) {
		if e.opts.exit != nil {
			e.opts.exit(exited.Code)
		}
		return next, exited.Code, true, nil
	}
	if err != nil {
		return next, 0, false, err
	}
	for i, v := range ret {
		if v == nil {
			continue
		}
		if err := e.regs.Set(library.First+value.Register(i), *v); err != nil {
			return next, 0, false, err
		}
	}
	return next, 0, false, nil
}
