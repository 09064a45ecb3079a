package main

import (
	"strings"

	"allot/internal/format"
	"allot/internal/lsp"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func textDocumentFormatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	uri := string(params.TextDocument.URI)
	if !strings.HasSuffix(strings.ToLower(uri), ".ala") {
		return []protocol.TextEdit{}, nil
	}

	doc, ok := store.Get(uri)
	if !ok {
		return []protocol.TextEdit{}, nil
	}

	indent := formatIndentFromOptions(params.Options)
	formatted, err := format.Format(doc.Text, format.Options{Indent: indent})
	if err != nil || formatted == doc.Text {
		return []protocol.TextEdit{}, nil
	}

	edit := protocol.TextEdit{
		Range:   lsp.FullDocumentRange(doc.Text),
		NewText: formatted,
	}
	return []protocol.TextEdit{edit}, nil
}

// formatIndentFromOptions honors the client's spaces setting; assembly keeps
// tabs otherwise.
func formatIndentFromOptions(opts protocol.FormattingOptions) string {
	insertSpaces := false
	if v, ok := opts[protocol.FormattingOptionInsertSpaces]; ok {
		if b, ok := v.(bool); ok {
			insertSpaces = b
		}
	}
	if !insertSpaces {
		return "\t"
	}

	tabSize := 4
	if v, ok := opts[protocol.FormattingOptionTabSize]; ok {
		switch n := v.(type) {
		case int:
			tabSize = n
		case int32:
			tabSize = int(n)
		case int64:
			tabSize = int(n)
		case uint32:
			tabSize = int(n)
		case float64:
			tabSize = int(n)
		}
	}
	if tabSize <= 0 {
		tabSize = 4
	}
	return strings.Repeat(" ", tabSize)
}
