package source

import (
	"path/filepath"
	"strings"
)

func removeBOM(content []byte) ([]byte, bool) {
	if len(content) < 3 {
		return content, false
	}

	if content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}

	return content, false
}

// StripBOM drops a leading UTF-8 byte order mark.
func StripBOM(content []byte) ([]byte, bool) {
	return removeBOM(content)
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, len(content)/32+1)
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i))
		}
	}
	return out
}

func normalizePath(p string) string {
	// URI документов редактора храним как есть
	if strings.Contains(p, "://") {
		return p
	}
	return filepath.ToSlash(filepath.Clean(p))
}
