package memory

import (
	"errors"
	"fmt"

	"allot/internal/value"
)

var (
	ErrEmptyFrame  = errors.New("pop from empty stack frame")
	ErrStackOffset = errors.New("stack offset out of range")
	ErrRootFrame   = errors.New("cannot remove the root stack frame")
)

type Frame struct {
	values   []value.Value
	isolated bool
}

func NewFrame(isolated bool) *Frame {
	return &Frame{isolated: isolated}
}

func (f *Frame) Isolated() bool { return f.isolated }
func (f *Frame) Len() int       { return len(f.values) }

func (f *Frame) Push(v value.Value) {
	f.values = append(f.values, v)
}

func (f *Frame) Pop() (value.Value, error) {
	n := len(f.values)
	if n == 0 {
		return value.None(), ErrEmptyFrame
	}
	v := f.values[n-1]
	f.values[n-1] = value.None()
	f.values = f.values[:n-1]
	return v, nil
}

// Peek reads the value depth entries below the top; depth 0 is the top.
func (f *Frame) Peek(depth uint64) (value.Value, error) {
	n := uint64(len(f.values))
	if depth >= n {
		return value.None(), fmt.Errorf("%w: depth %d in frame of %d", ErrStackOffset, depth, n)
	}
	return f.values[n-1-depth], nil
}

// Values returns a copy, bottom first.
func (f *Frame) Values() []value.Value {
	out := make([]value.Value, len(f.values))
	copy(out, f.values)
	return out
}

// Frames is one engine's call stack. The root frame is never removed.
type Frames struct {
	stack []*Frame
}

func NewFrames(root *Frame) *Frames {
	if root == nil {
		root = NewFrame(false)
	}
	return &Frames{stack: []*Frame{root}}
}

func (fs *Frames) Current() *Frame { return fs.stack[len(fs.stack)-1] }
func (fs *Frames) Depth() int      { return len(fs.stack) }

func (fs *Frames) Push(f *Frame) {
	fs.stack = append(fs.stack, f)
}

// Pop detaches the top frame and hands ownership to the caller.
func (fs *Frames) Pop() (*Frame, error) {
	n := len(fs.stack)
	if n <= 1 {
		return nil, ErrRootFrame
	}
	f := fs.stack[n-1]
	fs.stack[n-1] = nil
	fs.stack = fs.stack[:n-1]
	return f, nil
}

// Root returns the bottom frame, which a finished thread hands back on join.
func (fs *Frames) Root() *Frame { return fs.stack[0] }

func (fs *Frames) All() []*Frame {
	out := make([]*Frame, len(fs.stack))
	copy(out, fs.stack)
	return out
}
