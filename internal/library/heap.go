package library

import "allot/internal/value"

func init() {
	register("heap::free", "heap::free(R5 ptr)", "Releases the heap object behind R5.", heapFree)
	register("heap::box", "heap::box(R5 any) -> R5 ptr", "Moves R5 into a new heap box and leaves its pointer in R5.", heapBox)
	register("heap::get", "heap::get(R5 ptr) -> R6 any", "Copies the boxed value behind R5 into R6.", heapGet)
	register("heap::take", "heap::take(R5 ptr) -> R6 any", "Removes the box behind R5 and moves its value into R6.", heapTake)
	register("heap::set", "heap::set(R5 ptr, R6 any)", "Replaces the boxed value behind R5 with R6.", heapSet)
}

func heapFree(ctx *Context, args *Args) (Returns, error) {
	p, err := expect("heap::free", args, value.R5, value.KindPointer)
	if err != nil {
		return Returns{}, err
	}
	return Returns{}, ctx.Heap.Free(p.Pointer())
}

func heapBox(ctx *Context, args *Args) (Returns, error) {
	var r Returns
	p, err := ctx.Heap.Box(arg(args, value.R5))
	if err != nil {
		return r, err
	}
	r.Set(value.R5, p)
	return r, nil
}

func heapGet(ctx *Context, args *Args) (Returns, error) {
	var r Returns
	p, err := expect("heap::get", args, value.R5, value.KindPointer)
	if err != nil {
		return r, err
	}
	v, err := ctx.Heap.Get(p.Pointer())
	if err != nil {
		return r, err
	}
	r.Set(value.R6, v)
	return r, nil
}

func heapTake(ctx *Context, args *Args) (Returns, error) {
	var r Returns
	p, err := expect("heap::take", args, value.R5, value.KindPointer)
	if err != nil {
		return r, err
	}
	v, err := ctx.Heap.Take(p.Pointer())
	if err != nil {
		return r, err
	}
	r.Set(value.R6, v)
	return r, nil
}

func heapSet(ctx *Context, args *Args) (Returns, error) {
	p, err := expect("heap::set", args, value.R5, value.KindPointer)
	if err != nil {
		return Returns{}, err
	}
	return Returns{}, ctx.Heap.Set(p.Pointer(), arg(args, value.R6))
}
