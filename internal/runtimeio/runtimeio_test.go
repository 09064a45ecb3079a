package runtimeio

import (
	"bytes"
	"testing"
)

func TestReadLineKeepsTerminator(t *testing.T) {
	s := New(bytes.NewBufferString("one\ntwo"), nil)
	line, err := s.ReadLine()
	if err != nil || line != "one\n" {
		t.Fatalf("first line = %q, %v", line, err)
	}
	line, err = s.ReadLine()
	if err != nil || line != "two" {
		t.Fatalf("last line = %q, %v", line, err)
	}
	line, err = s.ReadLine()
	if err != nil || line != "" {
		t.Fatalf("after EOF = %q, %v", line, err)
	}
}

func TestNextByte(t *testing.T) {
	s := New(bytes.NewBufferString("A"), nil)
	b, ok, err := s.NextByte()
	if err != nil || !ok || b != 'A' {
		t.Fatalf("NextByte = %q, %v, %v", b, ok, err)
	}
	if _, ok, err := s.NextByte(); ok || err != nil {
		t.Fatalf("EOF should report ok=false, got %v, %v", ok, err)
	}
}

func TestReadAllDropsTerminators(t *testing.T) {
	s := New(bytes.NewBufferString("a\r\nb\nc\n"), nil)
	all, err := s.ReadAll()
	if err != nil || all != "abc" {
		t.Fatalf("ReadAll = %q, %v", all, err)
	}
}

func TestWrite(t *testing.T) {
	var out bytes.Buffer
	s := New(nil, &out)
	if err := s.Write("hi\n"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.String() != "hi\n" {
		t.Fatalf("out = %q", out.String())
	}
}
