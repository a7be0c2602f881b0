package artifact

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPromptChooser(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"number", "2\n", "/b.c", nil},
		{"path", "/typed/path.c\n", "/typed/path.c", nil},
		{"no newline at eof", "1", "/a.c", nil},
		{"empty", "\n", "", ErrNoChoice},
		{"eof", "", "", ErrNoChoice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := &PromptChooser{In: strings.NewReader(tt.input), Out: &out}
			got, err := p.Choose(context.Background(), "file:///x/a.c", "file:///x/", []string{"/a.c", "/b.c"})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Contains(t, out.String(), "[2] /b.c")
		})
	}

	p := &PromptChooser{In: strings.NewReader("9\n"), Out: &bytes.Buffer{}}
	_, err := p.Choose(context.Background(), "u", "", []string{"/a.c"})
	require.Error(t, err)
}
