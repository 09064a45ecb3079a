package snapshot

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func sample() *State {
	return &State{
		Engine:    "e1",
		Taken:     time.Unix(1700000000, 0).UTC(),
		IP:        1,
		Program:   []string{"nop", "exit i32(0)"},
		Registers: []Slot{{Index: 5, Kind: "usize", Text: "50"}},
		Frames:    []Frame{{Values: []Slot{{Kind: "i32", Text: "1"}}}, {Isolated: true}},
		Heap:      []HeapEntry{{Handle: 1, Kind: "box", Summary: "box str(\"x\")"}},
	}
}

func TestRoundTrip(t *testing.T) {
	data, err := Marshal(sample())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Engine != "e1" || got.IP != 1 || len(got.Frames) != 2 || !got.Frames[1].Isolated {
		t.Fatalf("decoded state mismatch: %+v", got)
	}
	if !got.Taken.Equal(sample().Taken) {
		t.Fatalf("time mismatch: %v", got.Taken)
	}
}

func TestCanonicalEncoding(t *testing.T) {
	a, _ := Marshal(sample())
	b, _ := Marshal(sample())
	if !bytes.Equal(a, b) {
		t.Fatalf("encoding should be deterministic")
	}
}

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, sample())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasSuffix(path, ".cbor") {
		t.Fatalf("unexpected path %q", path)
	}
	got, err := Read(path)
	if err != nil || got.Engine != "e1" {
		t.Fatalf("Read = %+v, %v", got, err)
	}
}

func TestFormat(t *testing.T) {
	out := sample().Format()
	for _, want := range []string{"> 0001 exit i32(0)", "R5 = usize(50)", "#1 isolated []", "1 box str(\"x\")"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Format missing %q:\n%s", want, out)
		}
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}
