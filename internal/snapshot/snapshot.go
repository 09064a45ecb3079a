package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

type Slot struct {
	Index int    `cbor:"1,keyasint"`
	Kind  string `cbor:"2,keyasint"`
	Text  string `cbor:"3,keyasint"`
}

type Frame struct {
	Isolated bool   `cbor:"1,keyasint"`
	Values   []Slot `cbor:"2,keyasint"`
}

type HeapEntry struct {
	Handle  uint64 `cbor:"1,keyasint"`
	Kind    string `cbor:"2,keyasint"`
	Summary string `cbor:"3,keyasint"`
}

// State is a point-in-time picture of one engine.
type State struct {
	Engine    string      `cbor:"1,keyasint"`
	Taken     time.Time   `cbor:"2,keyasint"`
	IP        int         `cbor:"3,keyasint"`
	Program   []string    `cbor:"4,keyasint"`
	Registers []Slot      `cbor:"5,keyasint"`
	Frames    []Frame     `cbor:"6,keyasint"`
	Heap      []HeapEntry `cbor:"7,keyasint"`
}

func Marshal(s *State) ([]byte, error) {
	return encMode.Marshal(s)
}

func Unmarshal(data []byte) (*State, error) {
	var s State
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal state: %w", err)
	}
	return &s, nil
}

// Write stores s in dir as <engine>-<ip>-<unix nanos>.cbor and returns the path.
func Write(dir string, s *State) (string, error) {
	data, err := Marshal(s)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%04d-%d.cbor", s.Engine, s.IP, s.Taken.UnixNano())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func Read(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// Format renders s the way the dump instruction prints engine state.
func (s *State) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "engine %s at %04d\n", s.Engine, s.IP)
	if len(s.Program) > 0 {
		b.WriteString("instructions:\n")
		for i, line := range s.Program {
			marker := "  "
			if i == s.IP {
				marker = "> "
			}
			fmt.Fprintf(&b, "%s%04d %s\n", marker, i, line)
		}
	}
	b.WriteString("registers:\n")
	b.WriteString(s.FormatRegisters())
	b.WriteString("frames:\n")
	b.WriteString(s.FormatFrames())
	b.WriteString("heap:\n")
	b.WriteString(s.FormatHeap())
	return b.String()
}

func (s *State) FormatRegisters() string {
	var b strings.Builder
	for _, r := range s.Registers {
		fmt.Fprintf(&b, "  R%d = %s(%s)\n", r.Index, r.Kind, r.Text)
	}
	return b.String()
}

func (s *State) FormatFrames() string {
	var b strings.Builder
	for i, f := range s.Frames {
		iso := ""
		if f.Isolated {
			iso = " isolated"
		}
		fmt.Fprintf(&b, "  #%d%s [", i, iso)
		for j, v := range f.Values {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s(%s)", v.Kind, v.Text)
		}
		b.WriteString("]\n")
	}
	return b.String()
}

func (s *State) FormatHeap() string {
	var b strings.Builder
	for _, h := range s.Heap {
		fmt.Fprintf(&b, "  %X %s\n", h.Handle, h.Summary)
	}
	return b.String()
}
