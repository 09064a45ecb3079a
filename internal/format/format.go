// Package format rewrites assembly source into its canonical layout.
package format

import (
	"fmt"
	"strings"

	"allot/internal/lexer"
	"allot/internal/token"
)

type Options struct {
	Indent string // "\t" or spaces
}

// Format puts every label on its own line at column zero and every
// instruction on one indented line with operands separated by single spaces.
// Comments are kept and runs of blank lines collapse to one.
func Format(src string, opt Options) (string, error) {
	if opt.Indent == "" {
		opt.Indent = "\t"
	}

	var out []string
	blank := false
	emit := func(line string) {
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}

	src = strings.ReplaceAll(src, "\r\n", "\n")
	for i, line := range strings.Split(src, "\n") {
		code, comment := splitComment(line)
		if strings.TrimSpace(code) == "" {
			switch {
			case comment == "":
				blank = true
			case strings.HasPrefix(line, ";"):
				emit(comment)
			default:
				emit(opt.Indent + comment)
			}
			continue
		}

		toks, err := lineTokens(code)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}

		for len(toks) > 0 && toks[0].Type == token.LABEL {
			label := toks[0].Raw
			toks = toks[1:]
			if len(toks) == 0 && comment != "" {
				label += " " + comment
				comment = ""
			}
			emit(label)
		}
		if len(toks) == 0 {
			continue
		}

		text := opt.Indent + strings.Join(words(toks), " ")
		if comment != "" {
			text += " " + comment
		}
		emit(text)
	}

	if len(out) == 0 {
		return "", nil
	}
	return strings.Join(out, "\n") + "\n", nil
}

func lineTokens(code string) ([]token.Token, error) {
	var toks []token.Token
	for _, tok := range lexer.New(code).All() {
		switch tok.Type {
		case token.EOF, token.NEWLINE:
			continue
		case token.ILLEGAL:
			return nil, fmt.Errorf("col %d: %s", tok.Col, tok.Literal)
		}
		toks = append(toks, tok)
	}
	return toks, nil
}

// words joins tokens that touch in the source, so "-5" keeps its shape.
func words(toks []token.Token) []string {
	var out []string
	end := -1
	for _, tok := range toks {
		text := tok.Raw
		if text == "" {
			text = tok.Literal
		}
		if tok.Col == end {
			out[len(out)-1] += text
		} else {
			out = append(out, text)
		}
		end = tok.Col + tok.Len()
	}
	return out
}

// splitComment separates code from a trailing ';' comment outside quotes.
func splitComment(line string) (string, string) {
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
			return line[:i], strings.TrimRight(line[i:], " \t\r")
		}
	}
	return line, ""
}
