package runtimeio

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Streams are the standard streams seen by library calls. Every engine of a
// program shares one Streams, so reads and writes are serialized.
type Streams struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Streams {
	if in == nil {
		in = strings.NewReader("")
	}
	if out == nil {
		out = io.Discard
	}
	return &Streams{in: bufio.NewReader(in), out: out}
}

func Std() *Streams {
	return New(os.Stdin, os.Stdout)
}

func (s *Streams) Write(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, text)
	return err
}

// NextByte returns ok=false at end of input.
func (s *Streams) NextByte() (b byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err = s.in.ReadByte()
	if errors.Is(err, io.EOF) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return b, true, nil
}

// ReadLine returns the next line including its terminator, or "" at end of
// input.
func (s *Streams) ReadLine() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, err := s.in.ReadString('\n')
	if errors.Is(err, io.EOF) {
		return line, nil
	}
	return line, err
}

// ReadAll joins every remaining line with its terminator removed.
func (s *Streams) ReadAll() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out strings.Builder
	for {
		line, err := s.in.ReadString('\n')
		out.WriteString(strings.TrimRight(line, "\r\n"))
		if errors.Is(err, io.EOF) {
			return out.String(), nil
		}
		if err != nil {
			return out.String(), err
		}
	}
}
