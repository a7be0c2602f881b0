package region

import (
	"encoding/base64"
	"errors"
	"testing"

	"sarifnav/internal/sarif"
)

var (
	i   = sarif.Int
	str = sarif.String
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		region    *sarif.Region
		want      Range
		endOfLine bool
	}{
		{"absent", nil, Range{0, 0, 0, 1}, false},
		{"no addressing fields", &sarif.Region{}, Range{0, 0, 0, 1}, false},
		{"start line only", &sarif.Region{StartLine: i(5)}, Range{4, 0, 5, 0}, true},
		{"full", &sarif.Region{StartLine: i(5), StartColumn: i(10), EndLine: i(5), EndColumn: i(20)}, Range{4, 9, 4, 19}, false},
		{"multi line", &sarif.Region{StartLine: i(2), StartColumn: i(3), EndLine: i(7), EndColumn: i(1)}, Range{1, 2, 6, 0}, false},
		{"end column without end line", &sarif.Region{StartLine: i(3), StartColumn: i(2), EndColumn: i(8)}, Range{2, 1, 2, 7}, false},
		{"end line without end column", &sarif.Region{StartLine: i(3), EndLine: i(4)}, Range{2, 0, 4, 0}, true},
		{"char offset with length", &sarif.Region{CharOffset: i(100), CharLength: i(50)}, Range{0, 100, 0, 150}, false},
		{"char offset only", &sarif.Region{CharOffset: i(7)}, Range{0, 7, 0, 7}, false},
		{"start line wins over char offset", &sarif.Region{StartLine: i(1), EndColumn: i(4), CharOffset: i(99)}, Range{0, 0, 0, 3}, false},
		{"snippet text trims two", &sarif.Region{StartLine: i(1), StartColumn: i(1), Snippet: &sarif.ArtifactContent{Text: str("abcdef")}}, Range{0, 0, 0, 4}, false},
		{"snippet text utf16", &sarif.Region{StartLine: i(1), Snippet: &sarif.ArtifactContent{Text: str("a😀b")}}, Range{0, 0, 0, 2}, false},
		{"short snippet keeps quirk", &sarif.Region{StartLine: i(1), StartColumn: i(5), Snippet: &sarif.ArtifactContent{Text: str("x")}}, Range{0, 4, 0, -1}, false},
		{"binary snippet", &sarif.Region{StartLine: i(2), Snippet: &sarif.ArtifactContent{Binary: str(base64.StdEncoding.EncodeToString([]byte("hello")))}}, Range{1, 0, 1, 5}, false},
		{"text wins over binary", &sarif.Region{StartLine: i(1), Snippet: &sarif.ArtifactContent{Text: str("abcd"), Binary: str("aGVsbG8=")}}, Range{0, 0, 0, 2}, false},
		{"undecodable binary falls through", &sarif.Region{StartLine: i(2), Snippet: &sarif.ArtifactContent{Binary: str("%%%")}}, Range{1, 0, 2, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, eol := Normalize(tt.region)
			if got != tt.want {
				t.Errorf("Normalize() range = %+v, want %+v", got, tt.want)
			}
			if eol != tt.endOfLine {
				t.Errorf("Normalize() endOfLine = %v, want %v", eol, tt.endOfLine)
			}
		})
	}
}

func TestNormalizeStartLineOnlyAlwaysEndOfLine(t *testing.T) {
	for line := 1; line <= 50; line++ {
		got, eol := Normalize(&sarif.Region{StartLine: i(line)})
		if !eol || got.EndLine != got.StartLine+1 || got.EndCol != 0 || got.StartLine != line-1 {
			t.Fatalf("startLine %d: got %+v eol=%v", line, got, eol)
		}
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		region  *sarif.Region
		invalid bool
	}{
		{"nil", nil, false},
		{"empty", &sarif.Region{}, false},
		{"valid lines", &sarif.Region{StartLine: i(1), StartColumn: i(1), EndLine: i(2), EndColumn: i(1)}, false},
		{"zero start line", &sarif.Region{StartLine: i(0)}, true},
		{"zero start column", &sarif.Region{StartLine: i(1), StartColumn: i(0)}, true},
		{"negative end column", &sarif.Region{StartLine: i(1), EndColumn: i(-3)}, true},
		{"end before start", &sarif.Region{StartLine: i(5), EndLine: i(4)}, true},
		{"end column before start on one line", &sarif.Region{StartLine: i(5), StartColumn: i(9), EndLine: i(5), EndColumn: i(2)}, true},
		{"negative char offset", &sarif.Region{CharOffset: i(-1)}, true},
		{"negative char length", &sarif.Region{CharOffset: i(0), CharLength: i(-1)}, true},
		{"zero char offset", &sarif.Region{CharOffset: i(0), CharLength: i(0)}, false},
		{"bad binary", &sarif.Region{StartLine: i(1), Snippet: &sarif.ArtifactContent{Binary: str("%%%")}}, true},
		{"good binary", &sarif.Region{StartLine: i(1), Snippet: &sarif.ArtifactContent{Binary: str("aGk=")}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.region)
			if tt.invalid {
				if !errors.Is(err, ErrInvalidRegion) {
					t.Fatalf("Check() = %v, want ErrInvalidRegion", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check() = %v, want nil", err)
			}
		})
	}
}

func TestRange(t *testing.T) {
	if !Point(3, 4).Empty() {
		t.Error("Point must be empty")
	}
	if Default().Empty() {
		t.Error("Default must be one column wide")
	}
	if (Range{0, 4, 0, -1}).Valid() {
		t.Error("end before start must be reported as not valid")
	}
	if !(Range{1, 9, 2, 0}).Valid() {
		t.Error("multi-line range must be valid")
	}
	if got := (Range{4, 9, 4, 19}).String(); got != "5:10-5:20" {
		t.Errorf("String() = %q", got)
	}
}
