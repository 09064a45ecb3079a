package spectest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type StdoutMode int

const (
	StdoutNone StdoutMode = iota
	StdoutExact
	StdoutContains
	// StdoutLines compares lines ignoring order, for output written by
	// concurrent threads.
	StdoutLines
	StdoutFile
)

type StdoutExpectation struct {
	Mode  StdoutMode
	Value string
}

func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func sortedLines(s string) []string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	sort.Strings(lines)
	return lines
}

func MatchStdout(got string, exp StdoutExpectation, baseDir string) (bool, string, error) {
	got = NormalizeNewlines(got)
	want := NormalizeNewlines(exp.Value)

	switch exp.Mode {
	case StdoutNone:
		return true, "", nil
	case StdoutContains:
		if !strings.Contains(got, want) {
			return false, fmt.Sprintf("stdout mismatch: expected to contain %q, got %q", want, got), nil
		}
		return true, "", nil
	case StdoutLines:
		g, w := sortedLines(got), sortedLines(want)
		if strings.Join(g, "\n") != strings.Join(w, "\n") {
			return false, fmt.Sprintf("stdout mismatch: expected lines %q in any order, got %q", w, g), nil
		}
		return true, "", nil
	case StdoutFile:
		if exp.Value == "" {
			return false, "stdout file path is empty", nil
		}
		path := exp.Value
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return false, "", err
		}
		want = NormalizeNewlines(string(b))
		fallthrough
	case StdoutExact:
		if got != want {
			return false, fmt.Sprintf("stdout mismatch: expected %q, got %q", want, got), nil
		}
		return true, "", nil
	}
	return false, "unknown stdout expectation", nil
}
