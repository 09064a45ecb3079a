package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Project.Entry != "main.ala" || !c.Runtime.Debug || c.Runtime.MaxSteps != 0 {
		t.Fatalf("defaults = %+v", c)
	}
}

func TestParseFull(t *testing.T) {
	c, err := Parse(`
[project]
name = "demo"
entry = "prog.allot"

[runtime]
max_steps = 1000
max_heap_bytes = 4096
debug = false

[log]
verbosity = 2
file = "allot.log"

[debug]
snapshot_dir = "snaps"
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Project.Name != "demo" || c.Project.Entry != "prog.allot" {
		t.Fatalf("project = %+v", c.Project)
	}
	if c.Runtime.MaxSteps != 1000 || c.Runtime.MaxHeapBytes != 4096 || c.Runtime.Debug {
		t.Fatalf("runtime = %+v", c.Runtime)
	}
	if c.Log.Verbosity != 2 || c.Debug.SnapshotDir != "snaps" {
		t.Fatalf("log/debug = %+v %+v", c.Log, c.Debug)
	}
}

func TestParseUnknownKey(t *testing.T) {
	_, err := Parse("[runtime]\nmax_stepz = 3\n")
	if err == nil || !strings.Contains(err.Error(), "runtime.max_stepz") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestParseNegativeLimit(t *testing.T) {
	if _, err := Parse("[runtime]\nmax_steps = -1\n"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "[project]\nname = \"up\"\n[log]\nfile = \"x.log\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c == nil || c.Project.Name != "up" {
		t.Fatalf("config = %+v", c)
	}
	if c.EntryPath() != filepath.Join(c.Dir, "main.ala") {
		t.Fatalf("entry = %s", c.EntryPath())
	}
	if lf := c.LogFile(); lf == nil || *lf != filepath.Join(c.Dir, "x.log") {
		t.Fatalf("log file = %v", lf)
	}
	if c.SnapshotDir() != "" {
		t.Fatalf("snapshot dir = %q", c.SnapshotDir())
	}
}

func TestFindAndLoadMissing(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	// A config further up the real filesystem is possible but not expected in temp dirs.
	if c != nil && c.Dir == "" {
		t.Fatalf("config without dir: %+v", c)
	}
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proj")
	if err := Init(dir, ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Project.Name != "proj" || !c.Runtime.Debug {
		t.Fatalf("config = %+v", c)
	}
	src, err := os.ReadFile(c.EntryPath())
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if !strings.Contains(string(src), "call println") {
		t.Fatalf("entry = %s", src)
	}
	if err := Init(dir, "again"); err == nil {
		t.Fatalf("expected error on existing files")
	}
}
