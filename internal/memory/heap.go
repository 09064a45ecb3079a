package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"allot/internal/limits"
	"allot/internal/value"
)

var (
	ErrHeapMissing = errors.New("no heap object")
	ErrHeapKind    = errors.New("heap object has the wrong kind")
)

// Object is the closed set of things the heap owns: *Box and *Thread.
type Object interface {
	heapObject()
	Inspect() string
	cost() int64
}

type Box struct {
	Value value.Value
}

func (*Box) heapObject()       {}
func (b *Box) Inspect() string { return "box " + b.Value.String() }
func (b *Box) cost() int64     { return b.Value.Cost() }

// Thread is the join handle of a spawned engine. Finish is called exactly
// once by the thread itself; Join blocks until then.
type Thread struct {
	ID    string
	done  chan struct{}
	code  int32
	frame *Frame
	err   error
}

func NewThread(id string) *Thread {
	return &Thread{ID: id, done: make(chan struct{})}
}

func (*Thread) heapObject()       {}
func (t *Thread) Inspect() string { return "thread " + t.ID }
func (t *Thread) cost() int64     { return value.CostThread(0) }

func (t *Thread) Finish(code int32, frame *Frame, err error) {
	t.code, t.frame, t.err = code, frame, err
	close(t.done)
}

func (t *Thread) Join() (int32, *Frame, error) {
	<-t.done
	return t.code, t.frame, t.err
}

func (t *Thread) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Heap is shared by every engine of one program. A single RWMutex guards the
// whole table; there is no per-entry locking.
type Heap struct {
	mu      sync.RWMutex
	objects map[uint64]Object
	next    uint64
	budget  *limits.Budget
}

func NewHeap(budget *limits.Budget) *Heap {
	return &Heap{objects: map[uint64]Object{}, next: 1, budget: budget}
}

func missing(h uint64) error {
	return fmt.Errorf("%w at %X", ErrHeapMissing, h)
}

// Push stores obj and returns a fresh Pointer to it.
func (hp *Heap) Push(obj Object) (value.Value, error) {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	if err := hp.budget.Charge(obj.cost()); err != nil {
		return value.None(), err
	}
	h := hp.next
	hp.next++
	hp.objects[h] = obj
	return value.Pointer(h), nil
}

func (hp *Heap) Box(v value.Value) (value.Value, error) {
	return hp.Push(&Box{Value: v})
}

// Get copies a boxed value without removing it.
func (hp *Heap) Get(h uint64) (value.Value, error) {
	hp.mu.RLock()
	defer hp.mu.RUnlock()
	obj, ok := hp.objects[h]
	if !ok {
		return value.None(), missing(h)
	}
	b, ok := obj.(*Box)
	if !ok {
		return value.None(), fmt.Errorf("%w: %X holds a %s", ErrHeapKind, h, kindOf(obj))
	}
	return b.Value, nil
}

// Set replaces the value held by an existing box.
func (hp *Heap) Set(h uint64, v value.Value) error {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	obj, ok := hp.objects[h]
	if !ok {
		return missing(h)
	}
	b, ok := obj.(*Box)
	if !ok {
		return fmt.Errorf("%w: %X holds a %s", ErrHeapKind, h, kindOf(obj))
	}
	next := &Box{Value: v}
	if delta := next.cost() - b.cost(); delta > 0 {
		if err := hp.budget.Charge(delta); err != nil {
			return err
		}
	} else {
		hp.budget.Release(-delta)
	}
	hp.objects[h] = next
	return nil
}

// Take removes a boxed value and transfers it to the caller.
func (hp *Heap) Take(h uint64) (value.Value, error) {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	obj, ok := hp.objects[h]
	if !ok {
		return value.None(), missing(h)
	}
	b, ok := obj.(*Box)
	if !ok {
		return value.None(), fmt.Errorf("%w: %X holds a %s", ErrHeapKind, h, kindOf(obj))
	}
	hp.remove(h, obj)
	return b.Value, nil
}

// TakeThread removes a join handle. The entry is left untouched when it is
// not a thread.
func (hp *Heap) TakeThread(h uint64) (*Thread, error) {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	obj, ok := hp.objects[h]
	if !ok {
		return nil, missing(h)
	}
	t, ok := obj.(*Thread)
	if !ok {
		return nil, fmt.Errorf("%w: %X holds a %s", ErrHeapKind, h, kindOf(obj))
	}
	hp.remove(h, obj)
	return t, nil
}

// Free discards any object. A freed thread handle detaches the thread.
func (hp *Heap) Free(h uint64) error {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	obj, ok := hp.objects[h]
	if !ok {
		return missing(h)
	}
	hp.remove(h, obj)
	return nil
}

func (hp *Heap) remove(h uint64, obj Object) {
	delete(hp.objects, h)
	hp.budget.Release(obj.cost())
}

func (hp *Heap) Len() int {
	hp.mu.RLock()
	defer hp.mu.RUnlock()
	return len(hp.objects)
}

type Entry struct {
	Handle  uint64
	Kind    string
	Summary string
}

// Entries lists live objects in handle order.
func (hp *Heap) Entries() []Entry {
	hp.mu.RLock()
	defer hp.mu.RUnlock()
	out := make([]Entry, 0, len(hp.objects))
	for h, obj := range hp.objects {
		out = append(out, Entry{Handle: h, Kind: kindOf(obj), Summary: obj.Inspect()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func kindOf(obj Object) string {
	switch obj.(type) {
	case *Box:
		return "box"
	case *Thread:
		return "thread"
	}
	return "unknown"
}
