package lsp

import (
	"strings"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"allot/internal/diag"
)

type Pos struct {
	Line int
	Col  int
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

func runeLen16(r rune) int {
	n := utf16.RuneLen(r)
	if n < 0 {
		n = 1
	}
	return n
}

func byteColToUTF16(lineText string, byteCol int) uint32 {
	if byteCol <= 1 {
		return 0
	}
	limit := byteCol - 1
	if limit > len(lineText) {
		limit = len(lineText)
	}
	var count uint32
	for _, r := range lineText[:limit] {
		count += uint32(runeLen16(r))
	}
	return count
}

func utf16ColToByte(lineText string, utf16Col int) int {
	if utf16Col <= 0 {
		return 1
	}
	count := 0
	for idx, r := range lineText {
		n := runeLen16(r)
		if count+n > utf16Col {
			return idx + 1
		}
		count += n
	}
	return len(lineText) + 1
}

// positionToByte converts a 0-based UTF-16 LSP position into a 1-based byte
// position.
func positionToByte(text string, pos protocol.Position) (Pos, bool) {
	lines := splitLines(text)
	lineIdx := int(pos.Line)
	if lineIdx < 0 || lineIdx >= len(lines) {
		return Pos{}, false
	}
	byteCol := utf16ColToByte(lines[lineIdx], int(pos.Character))
	return Pos{Line: lineIdx + 1, Col: byteCol}, true
}

// toLspRange converts a 1-based byte range on one line into LSP coordinates.
func toLspRange(text string, r diag.Range) protocol.Range {
	lines := splitLines(text)
	if r.Line <= 0 || r.Line > len(lines) {
		return protocol.Range{}
	}
	lineText := lines[r.Line-1]
	length := r.Length
	if length <= 0 {
		length = 1
	}
	start := protocol.Position{Line: uint32(r.Line - 1), Character: byteColToUTF16(lineText, r.Col)}
	end := protocol.Position{Line: start.Line, Character: byteColToUTF16(lineText, r.Col+length)}
	if end.Character <= start.Character {
		end.Character = start.Character + 1
	}
	return protocol.Range{Start: start, End: end}
}

// EndPositionUTF16 returns the LSP position at the end of text, using UTF-16 code units.
func EndPositionUTF16(text string) protocol.Position {
	var line uint32
	var col uint32
	for _, r := range text {
		if r == '\n' {
			line++
			col = 0
			continue
		}
		col += uint32(runeLen16(r))
	}
	return protocol.Position{Line: line, Character: col}
}

// FullDocumentRange returns an LSP range covering the entire document.
func FullDocumentRange(text string) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   EndPositionUTF16(text),
	}
}
