package lexer

import (
	"strconv"
	"strings"

	"allot/internal/token"
)

type Lexer struct {
	input string

	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination

	line int // 1-based
	col  int // 1-based column of current char
}

func New(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0, // readChar() will advance to col=1 for first char
	}
	l.readChar()
	return l
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()
	if l.ch == ';' {
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
	}

	// NEWLINE separates instructions
	if l.ch == '\n' {
		tok := l.newToken(token.NEWLINE, "\n", l.line, l.col)
		l.readChar()
		return tok
	}

	if l.ch == 0 {
		return l.newToken(token.EOF, "", l.line, l.col)
	}

	startLine, startCol := l.line, l.col
	startIdx := l.position

	switch {
	case l.ch == '"':
		return l.readStringToken(startLine, startCol, startIdx)
	case l.ch == '@':
		l.readChar()
		name := l.readIdentifier()
		tok := l.newToken(token.LABELREF, name, startLine, startCol)
		tok.Raw = l.input[startIdx:l.position]
		if name == "" {
			tok.Type = token.ILLEGAL
			tok.Literal = "@"
		}
		return tok
	case isIdentStart(l.ch):
		lit := l.readIdentifier()
		switch l.ch {
		case ':':
			l.readChar()
			tok := l.newToken(token.LABEL, lit, startLine, startCol)
			tok.Raw = l.input[startIdx:l.position]
			return tok
		case '(':
			return l.readTypedLiteral(lit, startLine, startCol, startIdx)
		}
		return l.newToken(token.IDENT, lit, startLine, startCol)
	case isDigit(l.ch):
		start := l.position
		for isIdentPart(l.ch) {
			l.readChar()
		}
		return l.newToken(token.INT, l.input[start:l.position], startLine, startCol)
	case isOperatorChar(l.ch):
		start := l.position
		for isOperatorChar(l.ch) {
			l.readChar()
		}
		return l.newToken(token.OPERATOR, l.input[start:l.position], startLine, startCol)
	}

	illegal := string(l.ch)
	tok := l.newToken(token.ILLEGAL, illegal, startLine, startCol)
	l.readChar()
	return tok
}

// All lexes the whole input, EOF included.
func (l *Lexer) All() []token.Token {
	var out []token.Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}

func (l *Lexer) newToken(t token.Type, lit string, line, col int) token.Token {
	return token.Token{
		Type:    t,
		Literal: lit,
		Line:    line,
		Col:     col,
	}
}

func (l *Lexer) readChar() {
	// Track line/col for the next char; a newline belongs to the line it ends.
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.col++

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}

	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == ',' {
		l.readChar()
	}
}

// readIdentifier accepts "::" inside names so library paths such as
// thread::sleep lex as one identifier.
func (l *Lexer) readIdentifier() string {
	start := l.position
	for {
		for isIdentPart(l.ch) {
			l.readChar()
		}
		if l.ch == ':' && l.peekChar() == ':' && l.position > start {
			l.readChar()
			l.readChar()
			continue
		}
		return l.input[start:l.position]
	}
}

// readTypedLiteral reads kind(data). Data runs to the closing parenthesis
// unless it is a quoted string.
func (l *Lexer) readTypedLiteral(kind string, startLine, startCol, startIdx int) token.Token {
	l.readChar() // consume '('
	for l.ch == ' ' || l.ch == '\t' {
		l.readChar()
	}
	tok := l.newToken(token.TYPED, kind, startLine, startCol)
	if l.ch == '"' || l.ch == '\'' {
		data, ok := l.readQuoted(l.ch)
		if !ok {
			return l.newToken(token.ILLEGAL, "invalid or unterminated string", startLine, startCol)
		}
		for l.ch == ' ' || l.ch == '\t' {
			l.readChar()
		}
		tok.Data = data
		tok.Quoted = true
	} else {
		start := l.position
		for l.ch != ')' && l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
		tok.Data = strings.TrimSpace(l.input[start:l.position])
	}
	if l.ch != ')' {
		return l.newToken(token.ILLEGAL, "unterminated literal", startLine, startCol)
	}
	l.readChar() // consume ')'
	tok.Raw = l.input[startIdx:l.position]
	return tok
}

func (l *Lexer) readStringToken(startLine, startCol, startIdx int) token.Token {
	data, ok := l.readQuoted('"')
	if !ok {
		return l.newToken(token.ILLEGAL, "invalid or unterminated string", startLine, startCol)
	}
	tok := l.newToken(token.STRING, data, startLine, startCol)
	tok.Raw = l.input[startIdx:l.position]
	return tok
}

// readQuoted decodes a Go-style quoted string starting at the opening quote
// and leaves the lexer after the closing quote.
func (l *Lexer) readQuoted(quote byte) (string, bool) {
	start := l.position
	l.readChar() // move past opening quote
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return "", false
		}
		if l.ch == '\\' {
			l.readChar()
			if l.ch == 0 || l.ch == '\n' {
				return "", false
			}
		}
		l.readChar()
	}
	l.readChar() // consume closing quote
	s, err := strconv.Unquote(l.input[start:l.position])
	if err != nil {
		return "", false
	}
	return s, true
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isOperatorChar(ch byte) bool {
	return strings.IndexByte("+-*/%&|^=!<>~", ch) >= 0
}
