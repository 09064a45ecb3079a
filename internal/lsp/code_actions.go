package lsp

import (
	"fmt"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"allot/internal/lint"
)

func lineLengths(text string) []int {
	lines := splitLines(text)
	lengths := make([]int, 0, len(lines))
	for _, line := range lines {
		lengths = append(lengths, len(line))
	}
	return lengths
}

func MakeRemoveLineAction(uri string, text string, r protocol.Range, title string) (protocol.CodeAction, bool) {
	startLine := int(r.Start.Line)
	lengths := lineLengths(text)
	if startLine < 0 || startLine >= len(lengths) {
		return protocol.CodeAction{}, false
	}

	endLine := startLine
	endChar := uint32(lengths[startLine])
	if startLine+1 < len(lengths) {
		endLine = startLine + 1
		endChar = 0
	}

	edit := protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			protocol.DocumentUri(uri): {
				{
					Range: protocol.Range{
						Start: protocol.Position{Line: uint32(startLine), Character: 0},
						End:   protocol.Position{Line: uint32(endLine), Character: endChar},
					},
					NewText: "",
				},
			},
		},
	}

	kind := protocol.CodeActionKindQuickFix
	return protocol.CodeAction{
		Title: title,
		Kind:  &kind,
		Edit:  &edit,
	}, true
}

// MakeRemoveLabelAction deletes a label definition but keeps any instruction
// sharing its line.
func MakeRemoveLabelAction(uri string, text string, r protocol.Range) (protocol.CodeAction, bool) {
	lines := splitLines(text)
	line := int(r.Start.Line)
	if line < 0 || line >= len(lines) {
		return protocol.CodeAction{}, false
	}
	rest := lines[line][utf16ColToByte(lines[line], int(r.End.Character))-1:]
	if strings.TrimSpace(rest) == "" {
		return MakeRemoveLineAction(uri, text, r, "Remove unused label")
	}

	end := r.End
	for _, ch := range rest {
		if ch != ' ' && ch != '\t' {
			break
		}
		end.Character++
	}
	edit := protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			protocol.DocumentUri(uri): {{Range: protocol.Range{Start: r.Start, End: end}, NewText: ""}},
		},
	}
	kind := protocol.CodeActionKindQuickFix
	return protocol.CodeAction{Title: "Remove unused label", Kind: &kind, Edit: &edit}, true
}

func diagnosticCode(d protocol.Diagnostic) string {
	if d.Code == nil {
		return ""
	}
	switch v := d.Code.Value.(type) {
	case string:
		return v
	case protocol.Integer:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

// CodeActions offers quick fixes for lint warnings.
func CodeActions(uri string, text string, diags []protocol.Diagnostic) []protocol.CodeAction {
	actions := make([]protocol.CodeAction, 0)
	for _, d := range diags {
		var action protocol.CodeAction
		ok := false
		switch diagnosticCode(d) {
		case lint.CodeUnreachable:
			action, ok = MakeRemoveLineAction(uri, text, d.Range, "Remove unreachable instruction")
		case lint.CodeDebugLeft:
			action, ok = MakeRemoveLineAction(uri, text, d.Range, "Remove debug instruction")
		case lint.CodeUnusedLabel:
			action, ok = MakeRemoveLabelAction(uri, text, d.Range)
		}
		if ok {
			action.Diagnostics = []protocol.Diagnostic{d}
			actions = append(actions, action)
		}
	}
	return actions
}
