package vm

import (
	"fmt"
	"time"

	"allot/internal/code"
	"allot/internal/snapshot"
	"allot/internal/value"
)

// State captures the engine for Dump and the snapshot tooling. Registers
// holding none are left out.
func (e *Engine) State(withProgram bool) *snapshot.State {
	s := &snapshot.State{Engine: e.ID(), Taken: time.Now().UTC(), IP: e.current}
	if withProgram {
		for _, ins := range e.program {
			s.Program = append(s.Program, ins.String())
		}
	}
	for i, v := range e.regs.Snapshot() {
		if v.IsNone() {
			continue
		}
		s.Registers = append(s.Registers, snapshot.Slot{Index: i, Kind: v.Kind().String(), Text: v.Inspect()})
	}
	for _, f := range e.frames.All() {
		sf := snapshot.Frame{Isolated: f.Isolated()}
		for i, v := range f.Values() {
			sf.Values = append(sf.Values, snapshot.Slot{Index: i, Kind: v.Kind().String(), Text: v.Inspect()})
		}
		s.Frames = append(s.Frames, sf)
	}
	for _, h := range e.heap.Entries() {
		s.Heap = append(s.Heap, snapshot.HeapEntry{Handle: h.Handle, Kind: h.Kind, Summary: h.Summary})
	}
	return s
}

func (e *Engine) dbg(r value.Register) error {
	v, err := e.regs.Get(r)
	if err != nil {
		return err
	}
	if !debugBuild || e.opts.debug == nil {
		return nil
	}
	_, err = fmt.Fprintf(e.opts.debug, "[%04d] %s = %s\n", e.current, r, v)
	return err
}

func (e *Engine) dump(bits uint8) error {
	if !debugBuild {
		return nil
	}
	if bits&code.DumpSnapshot != 0 && e.opts.snapshotDir != "" {
		path, err := snapshot.Write(e.opts.snapshotDir, e.State(true))
		if err != nil {
			return err
		}
		log.Infof("engine %s: snapshot written to %s", e.ID(), path)
	}
	w := e.opts.debug
	if w == nil {
		return nil
	}
	s := e.State(bits&code.DumpInstructions != 0)
	if bits&code.DumpRegisters == 0 {
		s.Registers = nil
	}
	if bits&code.DumpFrames == 0 {
		s.Frames = nil
	}
	if bits&code.DumpHeap == 0 {
		s.Heap = nil
	}
	_, err := fmt.Fprint(w, s.Format())
	return err
}
