package lsp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWorkspaceRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "scan.sarif")
	if err := os.WriteFile(file, []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cases := []struct {
		name   string
		params initializeParams
		want   string
	}{
		{"root uri", initializeParams{RootURI: pathToURI(dir)}, dir},
		{"root path", initializeParams{RootPath: dir}, dir},
		{"folder", initializeParams{WorkspaceFolders: []workspaceFolder{{URI: pathToURI(dir)}}}, dir},
		{"file root falls back to its dir", initializeParams{RootURI: pathToURI(file)}, dir},
		{"non-file uri", initializeParams{RootURI: "untitled:x"}, ""},
		{"nothing", initializeParams{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := workspaceRoot(tc.params); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
