package source

import "testing"

func TestFilePosition(t *testing.T) {
	fs := NewFileSet()
	// "é" is 2 bytes / 1 unit, "😀" is 4 bytes / 2 units
	file := fs.Get(fs.AddVirtual("p.sarif", []byte("{\"é😀\":1,\n\"x\":2}")))

	tests := []struct {
		offset uint32
		want   Position
	}{
		{0, Position{0, 0}},
		{1, Position{0, 1}},
		{2, Position{0, 2}},
		{4, Position{0, 3}},  // after é
		{8, Position{0, 5}},  // after 😀
		{12, Position{0, 9}}, // the newline
		{13, Position{1, 0}},
		{100, Position{1, 6}}, // clamped
	}
	for _, tt := range tests {
		if got := file.Position(tt.offset); got != tt.want {
			t.Errorf("Position(%d) = %+v, want %+v", tt.offset, got, tt.want)
		}
	}
}

func TestFileOffsetRoundTrip(t *testing.T) {
	fs := NewFileSet()
	file := fs.Get(fs.AddVirtual("p.sarif", []byte("ab😀c\nαβ\n")))
	for off := range uint32(len(file.Content)) {
		// skip offsets inside multi-byte runes
		if b := file.Content[off]; b&0xC0 == 0x80 {
			continue
		}
		pos := file.Position(off)
		if back := file.Offset(pos); back != off {
			t.Errorf("Offset(Position(%d)=%+v) = %d", off, pos, back)
		}
	}
}

func TestOffsetClamps(t *testing.T) {
	fs := NewFileSet()
	file := fs.Get(fs.AddVirtual("p.sarif", []byte("ab\ncd")))
	if got := file.Offset(Position{Line: 0, Character: 99}); got != 2 {
		t.Errorf("past line end = %d, want 2", got)
	}
	if got := file.Offset(Position{Line: 9}); got != 5 {
		t.Errorf("past last line = %d, want 5", got)
	}
	if got := file.Offset(Position{Line: -1}); got != 0 {
		t.Errorf("negative line = %d, want 0", got)
	}
}

func TestUTF16Len(t *testing.T) {
	cases := map[string]int{"": 0, "abc": 3, "é": 1, "😀": 2, "a😀b": 4, "\xff": 1}
	for s, want := range cases {
		if got := UTF16Len([]byte(s)); got != want {
			t.Errorf("UTF16Len(%q) = %d, want %d", s, got, want)
		}
		if got := UTF16LenString(s); got != want {
			t.Errorf("UTF16LenString(%q) = %d, want %d", s, got, want)
		}
	}
}
