package lsp

import (
	"fmt"
	"sort"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"allot/internal/code"
	"allot/internal/lexer"
	"allot/internal/library"
	"allot/internal/ops"
	"allot/internal/token"
	"allot/internal/value"
)

// lineTokens lexes one source line, fixing token lines to line (1-based).
func lineTokens(text string, line int) []token.Token {
	lines := splitLines(text)
	if line <= 0 || line > len(lines) {
		return nil
	}
	var out []token.Token
	for _, tok := range lexer.New(lines[line-1]).All() {
		if tok.Type == token.EOF || tok.Type == token.NEWLINE {
			continue
		}
		tok.Line = line
		out = append(out, tok)
	}
	return out
}

// TokenAt returns the token under pos along with the line's mnemonic.
func TokenAt(text string, pos protocol.Position) (token.Token, string, bool) {
	p, ok := positionToByte(text, pos)
	if !ok {
		return token.Token{}, "", false
	}
	mnemonic := ""
	for _, tok := range lineTokens(text, p.Line) {
		if tok.Type == token.IDENT && mnemonic == "" {
			mnemonic = tok.Literal
		}
		if p.Col >= tok.Col && p.Col <= tok.Col+tok.Len() {
			return tok, mnemonic, true
		}
	}
	return token.Token{}, "", false
}

func item(label string, kind protocol.CompletionItemKind, detail string) protocol.CompletionItem {
	k := kind
	it := protocol.CompletionItem{Label: label, Kind: &k}
	if detail != "" {
		it.Detail = ptrString(detail)
	}
	return it
}

func mnemonicItems() []protocol.CompletionItem {
	out := []protocol.CompletionItem{}
	for _, op := range code.Opcodes() {
		it := item(op.String(), protocol.CompletionItemKindKeyword, mnemonicSignature(op))
		it.Documentation = mnemonicDocs[op]
		out = append(out, it)
	}
	return out
}

func registerItems(optional bool) []protocol.CompletionItem {
	out := []protocol.CompletionItem{}
	for r := 0; r < value.RegisterCount; r++ {
		out = append(out, item(fmt.Sprintf("r%d", r), protocol.CompletionItemKindVariable, ""))
	}
	if optional {
		out = append(out, item("_", protocol.CompletionItemKindVariable, "no register"))
	}
	return out
}

func kindItems(literal bool) []protocol.CompletionItem {
	out := []protocol.CompletionItem{}
	for _, name := range value.KindNames() {
		if literal {
			it := item(name+"()", protocol.CompletionItemKindValue, name+" literal")
			it.InsertText = ptrString(name + "(")
			out = append(out, it)
			continue
		}
		out = append(out, item(name, protocol.CompletionItemKindTypeParameter, ""))
	}
	return out
}

func libraryItems() []protocol.CompletionItem {
	out := []protocol.CompletionItem{}
	for _, name := range library.Names() {
		fn, _ := library.Lookup(name)
		it := item(name, protocol.CompletionItemKindFunction, fn.Signature)
		it.Documentation = fn.Doc
		out = append(out, it)
	}
	return out
}

func labelItems(doc *Document, withAt bool) []protocol.CompletionItem {
	names := make([]string, 0, len(doc.Unit.Labels))
	for name := range doc.Unit.Labels {
		names = append(names, name)
	}
	sort.Strings(names)
	out := []protocol.CompletionItem{}
	for _, name := range names {
		label := name
		if withAt {
			label = "@" + name
		}
		detail := fmt.Sprintf("instruction %04d", doc.Unit.Labels[name].Index)
		out = append(out, item(label, protocol.CompletionItemKindReference, detail))
	}
	return out
}

func operatorItems() []protocol.CompletionItem {
	out := []protocol.CompletionItem{}
	for _, sym := range ops.Symbols() {
		out = append(out, item(sym, protocol.CompletionItemKindOperator, ""))
	}
	return out
}

// CompletionItems suggests what fits the operand slot under the cursor.
func CompletionItems(doc *Document, pos protocol.Position) []protocol.CompletionItem {
	p, ok := positionToByte(doc.Text, pos)
	if !ok {
		return nil
	}

	var args []token.Token
	partial := false
	for _, tok := range lineTokens(doc.Text, p.Line) {
		if tok.Col >= p.Col {
			break
		}
		if tok.Type == token.LABEL {
			continue
		}
		args = append(args, tok)
		partial = tok.Col+tok.Len() >= p.Col
	}

	if len(args) == 0 || (len(args) == 1 && partial) {
		return mnemonicItems()
	}
	if partial && strings.HasPrefix(args[len(args)-1].Raw, "@") {
		return labelItems(doc, true)
	}

	op, ok := code.LookupMnemonic(args[0].Literal)
	if !ok {
		return nil
	}
	def, _ := code.Lookup(op)
	slot := len(args) - 1
	if partial {
		slot--
	}
	if slot < 0 || slot >= len(def.Operands) {
		return nil
	}

	switch def.Operands[slot] {
	case code.OperandOp:
		return operatorItems()
	case code.OperandReg:
		return registerItems(false)
	case code.OperandOptReg:
		return registerItems(true)
	case code.OperandValue:
		out := kindItems(true)
		out = append(out, labelItems(doc, true)...)
		return append(out, registerItems(false)...)
	case code.OperandKind:
		return kindItems(false)
	case code.OperandOffset:
		return labelItems(doc, true)
	case code.OperandName:
		return libraryItems()
	case code.OperandFlag:
		return []protocol.CompletionItem{
			item("true", protocol.CompletionItemKindKeyword, "isolated frame"),
			item("false", protocol.CompletionItemKindKeyword, "shared frame"),
		}
	}
	return nil
}

func markdown(text string) *protocol.Hover {
	return &protocol.Hover{Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: text}}
}

func HoverAt(doc *Document, pos protocol.Position) (*protocol.Hover, error) {
	tok, mnemonic, ok := TokenAt(doc.Text, pos)
	if !ok {
		return nil, nil
	}

	switch tok.Type {
	case token.LABEL, token.LABELREF:
		l, ok := doc.Unit.Labels[tok.Literal]
		if !ok {
			return nil, nil
		}
		return markdown(fmt.Sprintf("label `%s` at instruction %04d", l.Name, l.Index)), nil
	case token.TYPED:
		return markdown(fmt.Sprintf("`%s` literal", tok.Literal)), nil
	case token.STRING:
		return libraryHover(tok.Literal), nil
	case token.IDENT:
	default:
		return nil, nil
	}

	if mnemonic == tok.Literal && tok.Col == firstIdentCol(doc.Text, tok.Line) {
		if op, ok := code.LookupMnemonic(tok.Literal); ok {
			return markdown(fmt.Sprintf("```\n%s\n```\n%s", mnemonicSignature(op), mnemonicDocs[op])), nil
		}
	}
	if mnemonic == "call" {
		return libraryHover(tok.Literal), nil
	}
	if r, ok := value.ParseRegister(tok.Literal); ok && r != value.RegNone {
		text := fmt.Sprintf("register `%s`", r)
		if r >= library.First && r < library.First+5 {
			text += " (library argument and result register)"
		}
		return markdown(text), nil
	}
	if k, ok := value.ParseKind(tok.Literal); ok {
		return markdown(fmt.Sprintf("kind `%s`", k)), nil
	}
	return nil, nil
}

func firstIdentCol(text string, line int) int {
	for _, tok := range lineTokens(text, line) {
		if tok.Type == token.IDENT {
			return tok.Col
		}
	}
	return 0
}

func libraryHover(name string) *protocol.Hover {
	fn, ok := library.Lookup(name)
	if !ok {
		return markdown(fmt.Sprintf("unknown library function `%s`", name))
	}
	return markdown(fmt.Sprintf("```\n%s\n```\n%s", fn.Signature, fn.Doc))
}

func location(doc *Document, r protocol.Range) protocol.Location {
	return protocol.Location{URI: protocol.DocumentUri(doc.URI), Range: r}
}

// DefinitionAt resolves a label under the cursor to its definition.
func DefinitionAt(doc *Document, pos protocol.Position) []protocol.Location {
	tok, _, ok := TokenAt(doc.Text, pos)
	if !ok || (tok.Type != token.LABELREF && tok.Type != token.LABEL) {
		return nil
	}
	l, ok := doc.Unit.Labels[tok.Literal]
	if !ok {
		return nil
	}
	return []protocol.Location{location(doc, toLspRange(doc.Text, l.Range))}
}

func ReferencesAt(doc *Document, pos protocol.Position, includeDecl bool) []protocol.Location {
	tok, _, ok := TokenAt(doc.Text, pos)
	if !ok || (tok.Type != token.LABELREF && tok.Type != token.LABEL) {
		return nil
	}
	out := []protocol.Location{}
	if l, ok := doc.Unit.Labels[tok.Literal]; ok && includeDecl {
		out = append(out, location(doc, toLspRange(doc.Text, l.Range)))
	}
	for _, ref := range doc.Unit.Refs {
		if ref.Name == tok.Literal {
			out = append(out, location(doc, toLspRange(doc.Text, ref.Range)))
		}
	}
	return out
}

func DocumentSymbols(doc *Document) []protocol.DocumentSymbol {
	labels := make([]string, 0, len(doc.Unit.Labels))
	for name := range doc.Unit.Labels {
		labels = append(labels, name)
	}
	sort.Slice(labels, func(i, j int) bool {
		return doc.Unit.Labels[labels[i]].Index < doc.Unit.Labels[labels[j]].Index
	})
	out := []protocol.DocumentSymbol{}
	for _, name := range labels {
		l := doc.Unit.Labels[name]
		r := toLspRange(doc.Text, l.Range)
		out = append(out, protocol.DocumentSymbol{
			Name:           name,
			Detail:         ptrString(fmt.Sprintf("%04d", l.Index)),
			Kind:           protocol.SymbolKindFunction,
			Range:          r,
			SelectionRange: r,
		})
	}
	return out
}
