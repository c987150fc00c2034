package input

import "strings"

// Cursor is a position in buffer content. Offset is a byte offset in
// [0, len(content)]; Line and Column are zero-based, with Column
// counted in bytes from the start of the line.
type Cursor struct {
	Offset int
	Line   int
	Column int
}

// locate computes the cursor at offset within content, clamping the
// offset into range and deriving line and column from the line
// breaks before it.
func locate(content string, offset int) Cursor {
	if offset < 0 {
		offset = 0
	}
	if offset > len(content) {
		offset = len(content)
	}
	before := content[:offset]
	return Cursor{
		Offset: offset,
		Line:   strings.Count(before, "\n"),
		Column: offset - (strings.LastIndexByte(before, '\n') + 1),
	}
}
