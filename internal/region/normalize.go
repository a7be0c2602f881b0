package region

import (
	"encoding/base64"
	"errors"
	"fmt"

	"sarifnav/internal/sarif"
	"sarifnav/internal/source"
)

var ErrInvalidRegion = errors.New("invalid region")

// snippetTrim is subtracted from the UTF-16 length of snippet text when it is
// the only end signal. Consumers rely on the exact value.
const snippetTrim = 2

// Normalize converts r into a range. endOfLine reports that the end is a
// synthesized "through the end of the start line" marker rather than a column.
func Normalize(r *sarif.Region) (rng Range, endOfLine bool) {
	if r == nil {
		return Default(), false
	}

	switch {
	case r.StartLine != nil:
		rng.StartLine = *r.StartLine - 1
		if r.StartColumn != nil {
			rng.StartCol = *r.StartColumn - 1
		}
		rng.EndLine = rng.StartLine
		if r.EndLine != nil {
			rng.EndLine = *r.EndLine - 1
		}

		if r.EndColumn != nil {
			rng.EndCol = *r.EndColumn - 1
			return rng, false
		}
		if r.Snippet != nil && r.Snippet.Text != nil {
			rng.EndCol = source.UTF16LenString(*r.Snippet.Text) - snippetTrim
			return rng, false
		}
		if r.Snippet != nil && r.Snippet.Binary != nil {
			if decoded, err := base64.StdEncoding.DecodeString(*r.Snippet.Binary); err == nil {
				rng.EndCol = source.UTF16Len(decoded)
				return rng, false
			}
		}
		rng.EndLine++
		rng.EndCol = 0
		return rng, true

	case r.CharOffset != nil:
		rng.StartCol = *r.CharOffset
		rng.EndCol = *r.CharOffset
		if r.CharLength != nil {
			rng.EndCol += *r.CharLength
		}
		return rng, false
	}

	return Default(), false
}

// Check reports present-but-invalid fields of r. Absent fields are never an error.
func Check(r *sarif.Region) error {
	if r == nil {
		return nil
	}
	positive := []struct {
		name string
		v    *int
	}{
		{"startLine", r.StartLine},
		{"startColumn", r.StartColumn},
		{"endLine", r.EndLine},
		{"endColumn", r.EndColumn},
	}
	for _, f := range positive {
		if f.v != nil && *f.v < 1 {
			return fmt.Errorf("%w: %s %d < 1", ErrInvalidRegion, f.name, *f.v)
		}
	}
	if r.StartLine != nil && r.EndLine != nil && *r.EndLine < *r.StartLine {
		return fmt.Errorf("%w: endLine %d before startLine %d", ErrInvalidRegion, *r.EndLine, *r.StartLine)
	}
	if r.StartLine != nil && r.EndLine != nil && *r.EndLine == *r.StartLine &&
		r.StartColumn != nil && r.EndColumn != nil && *r.EndColumn < *r.StartColumn {
		return fmt.Errorf("%w: endColumn %d before startColumn %d", ErrInvalidRegion, *r.EndColumn, *r.StartColumn)
	}
	if r.CharOffset != nil && *r.CharOffset < 0 {
		return fmt.Errorf("%w: charOffset %d < 0", ErrInvalidRegion, *r.CharOffset)
	}
	if r.CharLength != nil && *r.CharLength < 0 {
		return fmt.Errorf("%w: charLength %d < 0", ErrInvalidRegion, *r.CharLength)
	}
	if r.Snippet != nil && r.Snippet.Binary != nil {
		if _, err := base64.StdEncoding.DecodeString(*r.Snippet.Binary); err != nil {
			return fmt.Errorf("%w: snippet.binary: %w", ErrInvalidRegion, err)
		}
	}
	return nil
}
