package library

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"allot/internal/memory"
	"allot/internal/runtimeio"
	"allot/internal/value"
)

var log = commonlog.GetLogger("allot.library")

var (
	ErrUnknownFunction = errors.New("unknown library function")
	ErrArgument        = errors.New("bad library argument")
)

// First is the register that receives Args[0]; calls see R5 through R9.
const First = value.R5

type Args [5]value.Value

// Returns holds optional replacements for R5 through R9.
type Returns [5]*value.Value

func (r *Returns) Set(reg value.Register, v value.Value) {
	r[reg-First] = &v
}

// Exited is returned by the exit function. The engine stops with Code.
type Exited struct {
	Code int32
}

func (e Exited) Error() string { return fmt.Sprintf("exit %d", e.Code) }

// Context is everything a library function may touch besides its arguments.
type Context struct {
	Frame   *memory.Frame
	Heap    *memory.Heap
	Streams *runtimeio.Streams
}

type Func func(ctx *Context, args *Args) (Returns, error)

type Function struct {
	Name      string
	Signature string
	Doc       string
	Fn        Func
}

var table = map[string]*Function{}

func register(name, signature, doc string, fn Func) {
	table[name] = &Function{Name: name, Signature: signature, Doc: doc, Fn: fn}
}

func Lookup(name string) (*Function, bool) {
	f, ok := table[name]
	return f, ok
}

func Call(name string, ctx *Context, args *Args) (Returns, error) {
	f, ok := table[name]
	if !ok {
		return Returns{}, fmt.Errorf("%w %q", ErrUnknownFunction, name)
	}
	return f.Fn(ctx, args)
}

func Names() []string {
	out := make([]string, 0, len(table))
	for name := range table {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func arg(args *Args, reg value.Register) value.Value {
	return args[reg-First]
}

func expect(name string, args *Args, reg value.Register, kinds ...value.Kind) (value.Value, error) {
	v := arg(args, reg)
	for _, k := range kinds {
		if v.Kind() == k {
			return v, nil
		}
	}
	return v, fmt.Errorf("%w: %s expects %s in %s, got %s", ErrArgument, name, kindList(kinds), reg, v.Kind())
}

func kindList(kinds []value.Kind) string {
	if len(kinds) == 1 {
		return kinds[0].String()
	}
	s := ""
	for i, k := range kinds {
		if i > 0 {
			s += " or "
		}
		s += k.String()
	}
	return s
}
