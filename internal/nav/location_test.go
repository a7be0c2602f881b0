package nav

import (
	"testing"

	"sarifnav/internal/region"
	"sarifnav/internal/sarif"
)

func TestDefault(t *testing.T) {
	l := Default()
	if l.Range != (region.Range{EndCol: 1}) {
		t.Fatalf("unexpected default range %+v", l.Range)
	}
	if l.Mapped || l.EndOfLine || l.URI != "" {
		t.Fatalf("unexpected default %+v", l)
	}
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"":                              "",
		"file:///src/app/main.go":       "main.go",
		"src/lib.c":                     "lib.c",
		`C:\work\proj\a.cs`:             "a.cs",
		"https://host/x/y.js?raw=1#L10": "y.js",
		"dir/":                          "dir",
		"plain":                         "plain",
	}
	for uri, want := range cases {
		if got := FileName(uri); got != want {
			t.Errorf("FileName(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Default()
	orig.ID = sarif.Int(3)
	orig.LogicalLocations = []string{"ns.Type.Method"}
	orig.Message = &sarif.RichText{Plain: "p"}

	c := orig.Clone()
	*c.ID = 9
	c.LogicalLocations[0] = "changed"
	c.Message.Plain = "changed"

	if *orig.ID != 3 || orig.LogicalLocations[0] != "ns.Type.Method" || orig.Message.Plain != "p" {
		t.Fatalf("clone shares state with original: %+v", orig)
	}
}

func TestSetURI(t *testing.T) {
	var l Location
	l.SetURI("file:///tmp/report/x.py")
	if l.FileName != "x.py" {
		t.Fatalf("FileName = %q", l.FileName)
	}
}
