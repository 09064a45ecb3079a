package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"allot/internal/code"
	"allot/internal/runtimeio"
	"allot/internal/spectest"
	"allot/internal/vm"
)

type expectMode int

const (
	expectOK expectMode = iota
	expectExit
	expectError
	expectErrorContains
)

type expectation struct {
	mode        expectMode
	exit        int32
	substring   string
	stdin       string
	hasExplicit bool
	stdout      spectest.StdoutExpectation
	hasStdout   bool
}

type outcome struct {
	stdout string
	exit   int32
	err    error
}

func runTest(args []string) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	viaBytecode := fs.Bool("bytecode", false, "encode and decode each program before running it")
	maxSteps := fs.Int64("max-steps", 1_000_000, "instruction budget per engine (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		fmt.Println("usage: allot test [--bytecode] [--max-steps n] [path|dir]...")
		os.Exit(1)
	}

	targets := fs.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}

	files, err := collectTestFiles(targets)
	if err != nil {
		fmt.Println("test error:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("no tests found")
		return
	}
	sort.Strings(files)

	passed := 0
	failed := 0
	for _, path := range files {
		ok, reason := runTestFile(path, *viaBytecode, *maxSteps)
		if ok {
			passed++
			continue
		}
		failed++
		fmt.Printf("FAIL %s: %s\n", path, reason)
	}
	fmt.Printf("passed %d, failed %d\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func runTestFile(path string, viaBytecode bool, maxSteps int64) (bool, string) {
	exp, err := parseExpectation(path)
	if err != nil {
		return false, err.Error()
	}

	got := outcome{}
	prog, err := assembleFile(path)
	if err == nil && viaBytecode {
		prog, err = roundTrip(prog)
	}
	if err != nil {
		got.err = err
	} else {
		got = runCaptured(prog, exp.stdin, maxSteps)
	}

	switch exp.mode {
	case expectOK, expectExit:
		if got.err != nil {
			return false, "expected exit, got error: " + got.err.Error()
		}
		if got.exit != exp.exit {
			return false, fmt.Sprintf("exit mismatch: expected %d, got %d", exp.exit, got.exit)
		}
	case expectError:
		if got.err == nil {
			return false, fmt.Sprintf("expected error, got exit %d", got.exit)
		}
	case expectErrorContains:
		if got.err == nil {
			return false, fmt.Sprintf("expected error, got exit %d", got.exit)
		}
		if !strings.Contains(got.err.Error(), exp.substring) {
			return false, fmt.Sprintf("error mismatch: expected to contain %q, got %q", exp.substring, got.err.Error())
		}
	default:
		return false, "unknown expectation"
	}

	if exp.stdout.Mode != spectest.StdoutNone {
		ok, reason, err := spectest.MatchStdout(got.stdout, exp.stdout, filepath.Dir(path))
		if err != nil {
			return false, err.Error()
		}
		if !ok {
			return false, reason
		}
	}
	return true, ""
}

func roundTrip(prog code.Program) (code.Program, error) {
	data, err := code.Encode(prog)
	if err != nil {
		return nil, err
	}
	return code.Decode(data)
}

// runCaptured runs prog with stdin and stdout redirected to memory and waits
// for detached threads. The exit library function stops the engine instead of
// the process, and a faulting thread turns into the test's error.
func runCaptured(prog code.Program, stdin string, maxSteps int64) outcome {
	var stdout bytes.Buffer
	var mu sync.Mutex
	var aborted []error

	e := vm.New(prog)
	e.SetStreams(runtimeio.New(strings.NewReader(stdin), &stdout))
	e.SetMaxSteps(maxSteps)
	e.SetExit(func(int32) {})
	e.SetAbort(func(err error) {
		mu.Lock()
		aborted = append(aborted, err)
		mu.Unlock()
	})

	status, err := e.Run()
	e.Wait()
	mu.Lock()
	defer mu.Unlock()
	if err == nil && len(aborted) > 0 {
		err = errors.Join(aborted...)
	}
	return outcome{stdout: stdout.String(), exit: status, err: err}
}

func parseExpectation(path string) (*expectation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	exp := &expectation{
		mode:   expectOK,
		stdout: spectest.StdoutExpectation{Mode: spectest.StdoutNone},
	}
	outcomeSet := func(lineNo int) error {
		if exp.hasExplicit {
			return fmt.Errorf("%s:%d: multiple outcome expect directives", path, lineNo)
		}
		exp.hasExplicit = true
		return nil
	}
	stdoutSet := func(lineNo int, mode spectest.StdoutMode, rest string) error {
		if exp.hasStdout {
			return fmt.Errorf("%s:%d: multiple stdout expect directives", path, lineNo)
		}
		exp.hasStdout = true
		val, err := parseQuoted(rest)
		if err != nil {
			return fmt.Errorf("%s:%d: %v", path, lineNo, err)
		}
		exp.stdout = spectest.StdoutExpectation{Mode: mode, Value: val}
		return nil
	}

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ";") {
			break
		}
		comment := strings.TrimSpace(strings.TrimLeft(line, ";"))
		if !strings.HasPrefix(strings.ToLower(comment), "expect:") {
			continue
		}
		body := strings.TrimSpace(comment[len("expect:"):])
		bodyLower := strings.ToLower(body)
		switch {
		case bodyLower == "ok":
			if err := outcomeSet(lineNo); err != nil {
				return nil, err
			}
			exp.mode = expectOK
		case strings.HasPrefix(bodyLower, "exit"):
			if err := outcomeSet(lineNo); err != nil {
				return nil, err
			}
			n, err := strconv.ParseInt(strings.TrimSpace(body[len("exit"):]), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: invalid exit code", path, lineNo)
			}
			exp.mode = expectExit
			exp.exit = int32(n)
		case bodyLower == "error":
			if err := outcomeSet(lineNo); err != nil {
				return nil, err
			}
			exp.mode = expectError
		case strings.HasPrefix(bodyLower, "error contains"):
			if err := outcomeSet(lineNo); err != nil {
				return nil, err
			}
			sub, err := parseQuoted(body[len("error contains"):])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %v", path, lineNo, err)
			}
			exp.mode = expectErrorContains
			exp.substring = sub
		case strings.HasPrefix(bodyLower, "stdin"):
			in, err := parseQuoted(body[len("stdin"):])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %v", path, lineNo, err)
			}
			exp.stdin = in
		case strings.HasPrefix(bodyLower, "stdout file"):
			if err := stdoutSet(lineNo, spectest.StdoutFile, body[len("stdout file"):]); err != nil {
				return nil, err
			}
		case strings.HasPrefix(bodyLower, "stdout contains"):
			if err := stdoutSet(lineNo, spectest.StdoutContains, body[len("stdout contains"):]); err != nil {
				return nil, err
			}
		case strings.HasPrefix(bodyLower, "stdout lines"):
			if err := stdoutSet(lineNo, spectest.StdoutLines, body[len("stdout lines"):]); err != nil {
				return nil, err
			}
		case strings.HasPrefix(bodyLower, "stdout"):
			if err := stdoutSet(lineNo, spectest.StdoutExact, body[len("stdout"):]); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%s:%d: invalid expect directive", path, lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return exp, nil
}

func parseQuoted(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw[0] != '"' {
		return "", fmt.Errorf("expected quoted string")
	}
	return strconv.Unquote(raw)
}

func collectTestFiles(targets []string) ([]string, error) {
	files, err := collectFiles(targets, ".test"+sourceExt)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := files[:0]
	for _, path := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}
	return out, nil
}
