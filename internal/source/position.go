package source

import (
	"fmt"
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"fortio.org/safecast"
)

// Position converts a byte offset into an editor position (UTF-16 columns).
// Offsets past the end clamp to the end of the text.
func (f *File) Position(offset uint32) Position {
	lenContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}
	if offset > lenContent {
		offset = lenContent
	}
	line := sort.Search(len(f.LineIdx), func(i int) bool { return f.LineIdx[i] >= offset })
	var lineStart uint32
	if line > 0 {
		lineStart = f.LineIdx[line-1] + 1
	}
	return Position{Line: line, Character: UTF16Len(f.Content[lineStart:offset])}
}

// Offset converts an editor position back into a byte offset.
// A character past the end of the line clamps to the line end.
func (f *File) Offset(pos Position) uint32 {
	if pos.Line < 0 {
		return 0
	}
	var lineStart int
	if pos.Line > 0 {
		if pos.Line-1 >= len(f.LineIdx) {
			return uint32(len(f.Content)) // #nosec G115 -- bounded by Conv in Position
		}
		lineStart = int(f.LineIdx[pos.Line-1]) + 1
	}
	lineEnd := len(f.Content)
	if pos.Line < len(f.LineIdx) {
		lineEnd = int(f.LineIdx[pos.Line])
	}

	units := 0
	i := lineStart
	for i < lineEnd && units < pos.Character {
		r, size := utf8.DecodeRune(f.Content[i:lineEnd])
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
		i += size
	}
	out, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(fmt.Errorf("offset overflow: %w", err))
	}
	return out
}

// UTF16Len returns the number of UTF-16 code units needed to encode b.
// Invalid bytes count as one unit each (U+FFFD).
func UTF16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		n += utf16.RuneLen(r)
		b = b[size:]
	}
	return n
}

// UTF16LenString is UTF16Len for strings.
func UTF16LenString(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
