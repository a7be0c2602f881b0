package diag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sarifnav/internal/sarif"
)

func TestFormatShort(t *testing.T) {
	a := mkDiag("d", 0, 0, 0, "file:///work/src/b.go", 4)
	a.Message = sarif.RichText{Plain: "second\r\nline"}
	b := mkDiag("d", 0, 0, 1, "file:///work/src/a.go", 0)
	b.Severity = SevError
	b.RuleID = ""
	c := mkDiag("d", 0, 0, 2, "https://example.com/r.sarif", 2)

	got := FormatShort([]Diagnostic{a, b, c}, "/work")
	want := "warning R1 https://example.com/r.sarif:3:1 m\n" +
		"error - src/a.go:1:1 m\n" +
		"warning R1 src/b.go:5:1 second line"
	require.Equal(t, want, got)
	require.Equal(t, "", FormatShort(nil, ""))
}

func TestDisplayPath(t *testing.T) {
	require.Equal(t, "<unknown>", DisplayPath("", ""))
	require.Equal(t, "/elsewhere/x.go", DisplayPath("file:///elsewhere/x.go", "/work"))
	require.Equal(t, "x.go", DisplayPath("file:///work/x.go", "/work"))
}
