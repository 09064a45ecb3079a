// Package config handles allot.toml project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const FileName = "allot.toml"

type Config struct {
	Project Project `toml:"project"`
	Runtime Runtime `toml:"runtime"`
	Log     Log     `toml:"log"`
	Debug   Debug   `toml:"debug"`

	// Dir is the directory containing allot.toml (set at load time).
	Dir string `toml:"-"`
}

type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

type Runtime struct {
	MaxSteps     int64 `toml:"max_steps"`
	MaxHeapBytes int64 `toml:"max_heap_bytes"`
	Debug        bool  `toml:"debug"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

type Debug struct {
	SnapshotDir string `toml:"snapshot_dir"`
}

func Default() *Config {
	return &Config{
		Project: Project{Entry: "main.ala"},
		Runtime: Runtime{Debug: true},
	}
}

// Load parses allot.toml from dir. Keys the config does not know are errors.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

func Parse(data string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(data, c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if c.Runtime.MaxSteps < 0 || c.Runtime.MaxHeapBytes < 0 {
		return nil, errors.New("runtime limits must not be negative")
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find allot.toml. Returns nil if no
// file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

func (c *Config) EntryPath() string { return c.resolve(c.Project.Entry) }

func (c *Config) SnapshotDir() string { return c.resolve(c.Debug.SnapshotDir) }

// LogFile returns the configured log path, or nil to log to stderr.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	path := c.resolve(c.Log.File)
	return &path
}

const mainTemplate = `; %s
	mov r9 str("hello from allot")
	call println
	exit i32(0)
`

// Init writes a default allot.toml and main.ala into dir. Existing files are
// left alone and reported as an error.
func Init(dir, name string) error {
	if name == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		name = filepath.Base(abs)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	c := Default()
	c.Project.Name = name
	files := []struct {
		name string
		body func(*os.File) error
	}{
		{FileName, func(f *os.File) error { return toml.NewEncoder(f).Encode(c) }},
		{c.Project.Entry, func(f *os.File) error {
			_, err := fmt.Fprintf(f, mainTemplate, name)
			return err
		}},
	}
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("%s already exists", path)
			}
			return err
		}
		err = file.body(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	return nil
}
