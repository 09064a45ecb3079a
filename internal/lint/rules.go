package lint

import (
	"fmt"
	"sort"

	"allot/internal/code"
	"allot/internal/diag"
	"allot/internal/library"
	"allot/internal/parser"
	"allot/internal/value"
)

type Runner struct {
	diags []diag.Diagnostic
	unit  *parser.Unit
	opts  Options
}

func (r *Runner) warn(rng diag.Range, code string, msg string) {
	r.diags = append(r.diags, diag.Diagnostic{
		Code:     code,
		Message:  msg,
		Severity: diag.SeverityWarning,
		Range:    rng,
	})
}

func (r *Runner) position(i int) diag.Range {
	if i < len(r.unit.Positions) {
		return r.unit.Positions[i]
	}
	return diag.Range{Line: 1, Col: 1, Length: 1}
}

func (r *Runner) checkCalls() {
	for _, c := range r.unit.Calls {
		if _, ok := library.Lookup(c.Name); !ok {
			r.warn(c.Range, CodeUnknownFunction, fmt.Sprintf("unknown library function %q", c.Name))
		}
	}
}

func (r *Runner) checkLabels() {
	used := map[string]bool{}
	for _, ref := range r.unit.Refs {
		used[ref.Name] = true
	}
	names := make([]string, 0, len(r.unit.Labels))
	for name := range r.unit.Labels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !used[name] {
			r.warn(r.unit.Labels[name].Range, CodeUnusedLabel, fmt.Sprintf("label %q is never used", name))
		}
	}
}

// targets collects every instruction index that control can reach by address.
func (r *Runner) targets() map[int]bool {
	out := map[int]bool{}
	for _, l := range r.unit.Labels {
		out[l.Index] = true
	}
	for _, ins := range r.unit.Program {
		if ins.Val.Kind() == value.KindAddress {
			out[ins.Val.Address()] = true
		}
		if ins.Op == code.OpLea {
			out[int(ins.Offset)] = true
		}
	}
	return out
}

func terminates(ins code.Instruction) bool {
	switch ins.Op {
	case code.OpExit, code.OpRet:
		return true
	case code.OpJmp:
		return ins.A == value.RegNone
	}
	return false
}

// checkReachability reports the first instruction of each run that follows
// an unconditional transfer and is never targeted.
func (r *Runner) checkReachability() {
	prog := r.unit.Program
	targets := r.targets()
	for i := 1; i < len(prog); i++ {
		if targets[i] || !terminates(prog[i-1]) {
			continue
		}
		r.warn(r.position(i), CodeUnreachable, fmt.Sprintf("unreachable instruction %s", prog[i].Op))
		for i+1 < len(prog) && !targets[i+1] {
			i++
		}
	}
}

func (r *Runner) checkDebug() {
	for i, ins := range r.unit.Program {
		if ins.Op == code.OpDbg || ins.Op == code.OpDump {
			r.warn(r.position(i), CodeDebugLeft, fmt.Sprintf("%s left in code", ins.Op))
		}
	}
}
