package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"allot/internal/code"
	"allot/internal/config"
	"allot/internal/diag"
	"allot/internal/format"
	"allot/internal/lint"
	"allot/internal/parser"
	"allot/internal/repl"
	"allot/internal/snapshot"
	"allot/internal/vm"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const (
	sourceExt   = ".ala"
	bytecodeExt = ".allot"
)

// settings are the runtime knobs shared by every subcommand that runs code.
type settings struct {
	maxSteps    int64
	maxHeap     int64
	debug       bool
	snapshotDir string
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			runInit(os.Args[2:])
			return
		case "fmt":
			runFmt(os.Args[2:])
			return
		case "lint":
			runLint(os.Args[2:])
			return
		case "dis":
			runDis(os.Args[2:])
			return
		case "inspect":
			runInspect(os.Args[2:])
			return
		case "repl":
			runRepl(os.Args[2:])
			return
		case "test":
			runTest(os.Args[2:])
			return
		}
	}

	asmMode := flag.Bool("asm", false, "assemble .ala source into .allot bytecode")
	runMode := flag.Bool("run", false, "assemble .ala source and run it")
	output := flag.String("o", "", "output path for -asm")
	cfg, s := runtimeFlags(flag.CommandLine)
	flag.Parse()

	args := flag.Args()
	target := ""
	switch {
	case len(args) == 1:
		target = args[0]
	case len(args) == 0 && cfg != nil && cfg.Project.Entry != "":
		target = cfg.EntryPath()
	default:
		fmt.Println("usage: allot [-asm [-o out] | -run] [flags] <file>")
		os.Exit(1)
	}

	if *asmMode {
		prog, err := assembleFile(target)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		out := *output
		if out == "" {
			out = strings.TrimSuffix(target, filepath.Ext(target)) + bytecodeExt
		}
		data, err := code.Encode(prog)
		if err != nil {
			fmt.Println("encode error:", err)
			os.Exit(1)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			fmt.Println("write error:", err)
			os.Exit(1)
		}
		return
	}

	var prog code.Program
	var err error
	if *runMode || strings.HasSuffix(target, sourceExt) {
		prog, err = assembleFile(target)
	} else {
		prog, err = decodeFile(target)
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	os.Exit(execute(prog, *s))
}

// runtimeFlags loads allot.toml from the working directory upwards, configures
// logging from it, and registers flags that override its runtime section.
func runtimeFlags(fs *flag.FlagSet) (*config.Config, *settings) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := config.FindAndLoad(cwd)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	base := config.Default()
	if cfg != nil {
		base = cfg
	}
	commonlog.Configure(base.Log.Verbosity, base.LogFile())

	s := &settings{snapshotDir: base.SnapshotDir()}
	fs.Int64Var(&s.maxSteps, "max-steps", base.Runtime.MaxSteps, "instruction budget per engine (0 = unlimited)")
	fs.Int64Var(&s.maxHeap, "max-heap", base.Runtime.MaxHeapBytes, "heap budget in bytes (0 = unlimited)")
	fs.BoolVar(&s.debug, "debug", base.Runtime.Debug, "print dbg and dump output to stderr")
	return cfg, s
}

func assembleFile(path string) (code.Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	prog, err := parser.Assemble(string(b))
	var de *diag.Error
	if errors.As(err, &de) {
		de.Path = path
	}
	return prog, err
}

func decodeFile(path string) (code.Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	prog, err := code.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

func loadFile(path string) (code.Program, error) {
	if strings.HasSuffix(path, sourceExt) {
		return assembleFile(path)
	}
	return decodeFile(path)
}

// execute runs prog to completion and returns the process status. Faults in
// any thread abort the process.
func execute(prog code.Program, s settings) int {
	e := vm.New(prog)
	e.SetMaxSteps(s.maxSteps)
	if s.maxHeap > 0 {
		e.SetMaxHeap(s.maxHeap)
	}
	if s.debug {
		e.SetDebug(os.Stderr)
	}
	if s.snapshotDir != "" {
		e.SetSnapshotDir(s.snapshotDir)
	}
	e.SetExit(func(status int32) { os.Exit(int(status)) })
	e.SetAbort(func(err error) {
		fmt.Fprintln(os.Stderr, "fault:", err)
		os.Exit(vm.FaultExitCode)
	})

	status, err := e.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fault:", err)
		return vm.FaultExitCode
	}
	return int(status)
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "project name")
	if err := fs.Parse(args); err != nil || fs.NArg() > 1 {
		fmt.Println("usage: allot init [--name <name>] [dir]")
		os.Exit(1)
	}
	dir := "."
	if fs.NArg() == 1 {
		dir = fs.Arg(0)
	}
	if err := config.Init(dir, *name); err != nil {
		fmt.Println("init error:", err)
		os.Exit(1)
	}
}

func runDis(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: allot dis <file>")
		os.Exit(1)
	}
	prog, err := loadFile(args[0])
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Print(prog.String())
}

func runInspect(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: allot inspect <snapshot.cbor>")
		os.Exit(1)
	}
	state, err := snapshot.Read(args[0])
	if err != nil {
		fmt.Println("inspect error:", err)
		os.Exit(1)
	}
	fmt.Print(state.Format())
}

func runRepl(args []string) {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	_, s := runtimeFlags(fs)
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		fmt.Println("usage: allot repl [--max-steps n] [--max-heap n] [--debug]")
		os.Exit(1)
	}
	opts := repl.Options{MaxSteps: s.maxSteps, MaxHeap: s.maxHeap}
	if s.debug {
		opts.Debug = os.Stderr
	}
	repl.Start(os.Stdin, os.Stdout, opts)
}

func runFmt(args []string) {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	writeBack := fs.Bool("w", false, "write result to (source) file")
	indent := fs.String("i", "\t", "indent string")
	if err := fs.Parse(args); err != nil {
		fmt.Println("usage: allot fmt [-w] [-i <indent>] <path>")
		os.Exit(1)
	}

	targets := fs.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}
	files, err := collectFiles(targets, sourceExt)
	if err != nil {
		fmt.Println("fmt error:", err)
		os.Exit(1)
	}
	sort.Strings(files)

	for _, path := range files {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Println("fmt error:", err)
			os.Exit(1)
		}
		formatted, err := format.Format(string(b), format.Options{Indent: *indent})
		if err != nil {
			fmt.Printf("fmt error: %s: %v\n", path, err)
			os.Exit(1)
		}
		if !*writeBack {
			fmt.Print(formatted)
			continue
		}
		if string(b) != formatted {
			if err := writeFileAtomic(path, []byte(formatted)); err != nil {
				fmt.Println("fmt error:", err)
				os.Exit(1)
			}
			fmt.Printf("formatted %s\n", path)
		}
	}
}

func writeFileAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".allotfmt-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func runLint(args []string) {
	fs := flag.NewFlagSet("lint", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	allowDebug := fs.Bool("allow-debug", false, "do not report dbg and dump")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		fmt.Println("usage: allot lint [--allow-debug] <file|dir> [more...]")
		os.Exit(2)
	}

	files, err := collectFiles(fs.Args(), sourceExt)
	if err != nil {
		fmt.Println("lint error:", err)
		os.Exit(1)
	}
	sort.Strings(files)

	opts := lint.DefaultOptions()
	opts.CheckDebug = !*allowDebug

	hadErrors := false
	for _, path := range files {
		diags, err := lintFile(path, opts)
		if err != nil {
			fmt.Println("lint error:", err)
			hadErrors = true
			continue
		}
		fmt.Print(parser.Format(path, diags))
		if diag.HasErrors(diags) {
			hadErrors = true
		}
	}
	if hadErrors {
		os.Exit(1)
	}
}

func lintFile(path string, opts lint.Options) ([]diag.Diagnostic, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	unit, diags := parser.Parse(string(b))
	return append(diags, lint.RunWithOptions(unit, opts)...), nil
}

// collectFiles expands directories into the files below them ending in ext.
func collectFiles(targets []string, ext string) ([]string, error) {
	var files []string
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if strings.HasSuffix(target, ext) {
				files = append(files, target)
			}
			continue
		}

		err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == ".git" && path != target {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(path, ext) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
