package region

import "fmt"

// Range is a zero-based range; the end is exclusive.
type Range struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Default is the range used when no region is available: one column at the
// very start of the artifact.
func Default() Range {
	return Range{EndCol: 1}
}

// Point returns a zero-width range at (line, col).
func Point(line, col int) Range {
	return Range{StartLine: line, StartCol: col, EndLine: line, EndCol: col}
}

// Empty reports whether the range is zero-width.
func (r Range) Empty() bool {
	return r.StartLine == r.EndLine && r.StartCol == r.EndCol
}

// Valid reports whether the end does not precede the start.
func (r Range) Valid() bool {
	if r.EndLine != r.StartLine {
		return r.EndLine > r.StartLine
	}
	return r.EndCol >= r.StartCol
}

// String renders the range 1-based, the way users read positions.
func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.StartLine+1, r.StartCol+1, r.EndLine+1, r.EndCol+1)
}
