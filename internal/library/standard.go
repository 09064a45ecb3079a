package library

import (
	"strings"
	"time"

	"allot/internal/value"
)

func init() {
	register("print", "print(R9 any)", "Writes R9 to standard output.", stdPrint)
	register("println", "println(R9 any)", "Writes R9 and a newline to standard output.", stdPrintln)
	register("std::print_amt", "std::print_amt(R5 usize)", "Prints the top R5 values of the current stack frame, top first, one per line.", stdPrintAmount)
	register("read", "read() -> R9 u8", "Reads one byte from standard input into R9. R9 is none at end of input.", stdRead)
	register("read_line", "read_line() -> R9 str", "Reads one line, including its newline, into R9.", stdReadLine)
	register("std::read_all", "std::read_all() -> R9 str", "Reads every remaining line into R9 with line breaks removed.", stdReadAll)
	register("exit", "exit(R5 i32)", "Terminates the process with code R5.", stdExit)
	register("string::trim", "string::trim(R5 str) -> R5 str", "Removes leading and trailing whitespace.", stringTrim)
	register("string::len", "string::len(R5 str) -> R6 usize", "Stores the byte length of R5 in R6.", stringLen)
	register("thread::sleep", "thread::sleep(R5 u64)", "Blocks the calling thread for R5 milliseconds.", threadSleep)
}

func stdPrint(ctx *Context, args *Args) (Returns, error) {
	return Returns{}, ctx.Streams.Write(arg(args, value.R9).Inspect())
}

func stdPrintln(ctx *Context, args *Args) (Returns, error) {
	return Returns{}, ctx.Streams.Write(arg(args, value.R9).Inspect() + "\n")
}

func stdPrintAmount(ctx *Context, args *Args) (Returns, error) {
	n, err := expect("std::print_amt", args, value.R5, value.KindUInt)
	if err != nil {
		return Returns{}, err
	}
	var out strings.Builder
	for i := uint64(0); i < n.Uint(); i++ {
		v, err := ctx.Frame.Peek(i)
		if err != nil {
			return Returns{}, err
		}
		out.WriteString(v.Inspect())
		out.WriteByte('\n')
	}
	return Returns{}, ctx.Streams.Write(out.String())
}

func stdRead(ctx *Context, args *Args) (Returns, error) {
	var r Returns
	b, ok, err := ctx.Streams.NextByte()
	if err != nil {
		return r, err
	}
	if ok {
		r.Set(value.R9, value.UInt8(b))
	} else {
		r.Set(value.R9, value.None())
	}
	return r, nil
}

func stdReadLine(ctx *Context, args *Args) (Returns, error) {
	var r Returns
	line, err := ctx.Streams.ReadLine()
	if err != nil {
		return r, err
	}
	r.Set(value.R9, value.String(line))
	return r, nil
}

func stdReadAll(ctx *Context, args *Args) (Returns, error) {
	var r Returns
	all, err := ctx.Streams.ReadAll()
	if err != nil {
		return r, err
	}
	r.Set(value.R9, value.String(all))
	return r, nil
}

func stdExit(ctx *Context, args *Args) (Returns, error) {
	code, err := expect("exit", args, value.R5, value.KindInt32)
	if err != nil {
		return Returns{}, err
	}
	log.Debugf("exit requested with code %d", code.Int())
	return Returns{}, Exited{Code: int32(code.Int())}
}

func stringTrim(ctx *Context, args *Args) (Returns, error) {
	var r Returns
	s, err := expect("string::trim", args, value.R5, value.KindString)
	if err != nil {
		return r, err
	}
	r.Set(value.R5, value.String(strings.TrimSpace(s.Str())))
	return r, nil
}

func stringLen(ctx *Context, args *Args) (Returns, error) {
	var r Returns
	s, err := expect("string::len", args, value.R5, value.KindString)
	if err != nil {
		return r, err
	}
	r.Set(value.R6, value.UInt(uint64(len(s.Str()))))
	return r, nil
}

func threadSleep(ctx *Context, args *Args) (Returns, error) {
	ms, err := expect("thread::sleep", args, value.R5, value.KindUInt64)
	if err != nil {
		return Returns{}, err
	}
	log.Debugf("sleeping %d ms", ms.Uint())
	time.Sleep(time.Duration(ms.Uint()) * time.Millisecond)
	return Returns{}, nil
}
