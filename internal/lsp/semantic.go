package lsp

import (
	"sort"
	"strings"

	"allot/internal/code"
	"allot/internal/lexer"
	"allot/internal/library"
	"allot/internal/token"
	"allot/internal/value"
)

// semantic token type indices (must match legend order in server)
const (
	ttKeyword   = 0
	ttString    = 1
	ttNumber    = 2
	ttOperator  = 3
	ttFunction  = 4
	ttVariable  = 5
	ttNamespace = 6
	ttType      = 7
	ttComment   = 8
	ttLabel     = 9
)

const (
	modDecl     = 1 << 0
	modReadonly = 1 << 1
)

// TokenTypes and TokenModifiers form the legend advertised by the server.
var (
	TokenTypes     = []string{"keyword", "string", "number", "operator", "function", "variable", "namespace", "type", "comment", "label"}
	TokenModifiers = []string{"declaration", "readonly"}
)

type SemTok struct {
	Line   int
	Col    int
	Length int
	Type   int
	Mods   int
}

// Classify picks a token type; mnemonic is the instruction name already seen
// on the line, empty before it.
func Classify(tok token.Token, mnemonic string) (int, int, bool) {
	switch tok.Type {
	case token.LABEL:
		return ttLabel, modDecl, true
	case token.LABELREF:
		return ttLabel, 0, true
	case token.STRING:
		return ttFunction, 0, true
	case token.INT:
		return ttNumber, 0, true
	case token.OPERATOR:
		return ttOperator, 0, true
	case token.TYPED:
		if tok.Literal == value.KindString.String() || tok.Literal == value.KindChar.String() {
			return ttString, modReadonly, true
		}
		return ttNumber, modReadonly, true
	case token.IDENT:
		if mnemonic == "" {
			if _, ok := code.LookupMnemonic(tok.Literal); ok {
				return ttKeyword, 0, true
			}
			return 0, 0, false
		}
		if _, ok := value.ParseRegister(tok.Literal); ok {
			return ttVariable, 0, true
		}
		if mnemonic == "call" {
			if _, ok := library.Lookup(tok.Literal); ok || strings.Contains(tok.Literal, "::") {
				return ttFunction, 0, true
			}
		}
		if _, ok := value.ParseKind(tok.Literal); ok {
			return ttType, 0, true
		}
		if tok.Literal == "true" || tok.Literal == "false" {
			return ttKeyword, 0, true
		}
	}
	return 0, 0, false
}

// SemanticTokensForText returns unencoded semantic tokens for the given source text.
func SemanticTokensForText(text string) []SemTok {
	sem := make([]SemTok, 0, 256)
	for i, line := range splitLines(text) {
		if idx := commentStart(line); idx >= 0 {
			sem = append(sem, SemTok{Line: i + 1, Col: idx + 1, Length: len(line) - idx, Type: ttComment})
		}
	}

	lx := lexer.New(text)
	mnemonic := ""
	for {
		tok := lx.NextToken()
		if tok.Type == token.EOF {
			break
		}
		if tok.Type == token.NEWLINE {
			mnemonic = ""
			continue
		}

		tt, mods, ok := Classify(tok, mnemonic)
		if tok.Type == token.IDENT && mnemonic == "" {
			mnemonic = tok.Literal
		}
		if !ok {
			continue
		}
		sem = append(sem, SemTok{
			Line:   tok.Line,
			Col:    tok.Col,
			Length: tok.Len(),
			Type:   tt,
			Mods:   mods,
		})
	}
	return sem
}

// commentStart finds the first ';' outside quotes.
func commentStart(line string) int {
	var quote byte
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0 && ch == '\\':
			i++
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
		case quote == 0 && ch == ';':
			return i
		}
	}
	return -1
}

func EncodeSemanticTokens(toks []SemTok) []uint32 {
	sort.Slice(toks, func(i, j int) bool {
		if toks[i].Line != toks[j].Line {
			return toks[i].Line < toks[j].Line
		}
		return toks[i].Col < toks[j].Col
	})

	var data []uint32
	prevLine := 1
	prevCol := 1

	for _, t := range toks {
		if t.Length <= 0 {
			continue
		}
		// stored 1-based, encoded as 0-based deltas
		deltaLine := t.Line - prevLine
		deltaStart := t.Col - 1
		if deltaLine == 0 {
			deltaStart = t.Col - prevCol
		}

		data = append(data,
			uint32(deltaLine),
			uint32(deltaStart),
			uint32(t.Length),
			uint32(t.Type),
			uint32(t.Mods),
		)

		prevLine = t.Line
		prevCol = t.Col
	}

	return data
}
