package lint

import (
	"allot/internal/diag"
	"allot/internal/parser"
)

// Warning codes.
const (
	CodeUnknownFunction = "AL0001"
	CodeUnusedLabel     = "AL0002"
	CodeUnreachable     = "AL0003"
	CodeDebugLeft       = "AL0004"
)

type Options struct {
	CheckDebug bool
}

func DefaultOptions() Options {
	return Options{CheckDebug: true}
}

type Linter struct {
	opts Options
}

func New() *Linter {
	return &Linter{opts: DefaultOptions()}
}

func NewWithOptions(opts Options) *Linter {
	return &Linter{opts: opts}
}

func Run(unit *parser.Unit) []diag.Diagnostic {
	return New().Run(unit)
}

func RunWithOptions(unit *parser.Unit, opts Options) []diag.Diagnostic {
	return NewWithOptions(opts).Run(unit)
}

func (l *Linter) Run(unit *parser.Unit) []diag.Diagnostic {
	if unit == nil {
		return nil
	}
	r := &Runner{unit: unit, opts: l.opts}
	r.checkCalls()
	r.checkLabels()
	r.checkReachability()
	if l.opts.CheckDebug {
		r.checkDebug()
	}
	return r.diags
}
