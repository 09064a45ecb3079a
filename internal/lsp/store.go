package lsp

import (
	"sync"

	"allot/internal/diag"
	"allot/internal/lint"
	"allot/internal/parser"
)

// Document is an open source file together with its assembly.
type Document struct {
	URI   string
	Text  string
	Unit  *parser.Unit
	Diags []diag.Diagnostic
}

func Analyze(uri, text string) *Document {
	unit, diags := parser.Parse(text)
	diags = append(diags, lint.Run(unit)...)
	return &Document{URI: uri, Text: text, Unit: unit, Diags: diags}
}

type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document // uri -> document
}

func NewStore() *Store {
	return &Store{docs: map[string]*Document{}}
}

func (s *Store) Set(uri, text string) *Document {
	doc := Analyze(uri, text)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = doc
	return doc
}

func (s *Store) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[uri]
	return d, ok
}

func (s *Store) Delete(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}
