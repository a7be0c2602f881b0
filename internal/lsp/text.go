package lsp

import "sarifnav/internal/source"

// applyChanges applies incremental edits in order. Each ranged edit is
// positioned against the text produced by the edits before it.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		file := source.NewFile("", []byte(text), source.FileVirtual)
		start := int(file.Offset(toSourcePosition(change.Range.Start)))
		end := int(file.Offset(toSourcePosition(change.Range.End)))
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

func toSourcePosition(p position) source.Position {
	return source.Position{Line: p.Line, Character: p.Character}
}
