package sourcemap

import (
	"errors"
	"fmt"
)

var (
	ErrParse        = errors.New("malformed log")
	ErrPathNotFound = errors.New("path not found in source map")
)

// ParseError reports where the raw text stopped making sense.
// Line and Column are 1-based; Column counts UTF-16 units.
type ParseError struct {
	URI    string
	Offset int64
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %v: %v", e.URI, e.Line, e.Column, ErrParse, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}
