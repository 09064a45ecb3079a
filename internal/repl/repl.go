package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"allot/internal/diag"
	"allot/internal/parser"
	"allot/internal/runtimeio"
	"allot/internal/vm"
)

var log = commonlog.GetLogger("allot.repl")

const (
	prompt      = "allot> "
	historyFile = ".allot_history"
)

const helpText = `commands:
  :regs    registers holding a value
  :frames  frame stack, root first
  :heap    live heap entries
  :dis     program so far
  :reset   start over with a fresh engine
  :quit    leave
`

type Options struct {
	MaxSteps int64
	MaxHeap  int64
	// Debug receives dbg and dump output; nil silences it.
	Debug io.Writer
	// Streams backs the library I/O functions of the session's programs.
	Streams *runtimeio.Streams
}

// Session assembles and runs one line at a time on a persistent engine.
// Accepted lines accumulate so labels may be referenced across lines.
type Session struct {
	out    io.Writer
	opts   Options
	engine *vm.Engine
	src    strings.Builder
}

func NewSession(out io.Writer, opts Options) *Session {
	if opts.Streams == nil {
		opts.Streams = runtimeio.New(strings.NewReader(""), out)
	}
	s := &Session{out: out, opts: opts}
	s.reset()
	return s
}

func (s *Session) Engine() *vm.Engine { return s.engine }

func (s *Session) reset() {
	e := vm.New(nil)
	e.SetMaxSteps(s.opts.MaxSteps)
	if s.opts.MaxHeap > 0 {
		e.SetMaxHeap(s.opts.MaxHeap)
	}
	e.SetStreams(s.opts.Streams)
	e.SetDebug(s.opts.Debug)
	e.SetAbort(func(err error) {
		fmt.Fprintf(s.out, "thread fault: %v\n", err)
	})
	s.engine = e
	s.src.Reset()
	log.Debugf("session engine %s", e.ID())
}

// Eval handles one line of input and reports whether the session should end.
func (s *Session) Eval(line string) bool {
	trim := strings.TrimSpace(line)
	switch {
	case trim == "":
		return false
	case strings.HasPrefix(trim, ":"):
		return s.command(trim)
	}

	candidate := s.src.String() + line + "\n"
	unit, diags := parser.Parse(candidate)
	if diag.HasErrors(diags) {
		for _, d := range diags {
			fmt.Fprintf(s.out, "%s %s: %s\n", d.Severity, d.Code, d.Message)
		}
		return false
	}

	start := len(s.engine.Program())
	s.engine.Extend(unit.Program[start:]...)
	s.src.WriteString(line + "\n")

	status, done, err := s.engine.Resume()
	switch {
	case err != nil:
		fmt.Fprintf(s.out, "fault: %v\n", err)
		s.engine.Seek(len(s.engine.Program()))
	case done:
		fmt.Fprintf(s.out, "exit status %d\n", status)
		s.reset()
	}
	return false
}

func (s *Session) command(cmd string) bool {
	st := s.engine.State(false)
	switch cmd {
	case ":quit", ":q":
		return true
	case ":regs":
		fmt.Fprint(s.out, st.FormatRegisters())
	case ":frames":
		fmt.Fprint(s.out, st.FormatFrames())
	case ":heap":
		fmt.Fprint(s.out, st.FormatHeap())
	case ":dis":
		fmt.Fprint(s.out, s.engine.Program().Listing(s.engine.Current()))
	case ":reset":
		s.reset()
	case ":help":
		fmt.Fprint(s.out, helpText)
	default:
		fmt.Fprintf(s.out, "unknown command %s (try :help)\n", cmd)
	}
	return false
}

// Start runs the REPL. Terminals get line editing and history; anything else
// is read line by line.
func Start(in io.Reader, out io.Writer, opts Options) {
	fmt.Fprint(out, "allot REPL (:help for commands, Ctrl+D to exit)\n")

	if f, ok := in.(*os.File); ok && f == os.Stdin && runtimeio.IsInteractive() {
		startLiner(out, opts)
		return
	}

	s := NewSession(out, opts)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprint(out, "\n")
			return
		}
		if s.Eval(scanner.Text()) {
			return
		}
	}
}

func startLiner(out io.Writer, opts Options) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	s := NewSession(out, opts)
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprint(out, "\n")
			return
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if s.Eval(line) {
			return
		}
	}
}
