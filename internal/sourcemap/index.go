package sourcemap

import (
	"fmt"
	"sort"
	"strconv"

	"sarifnav/internal/nav"
	"sarifnav/internal/region"
	"sarifnav/internal/sarif"
	"sarifnav/internal/source"
)

// Pointer is a zero-based coordinate in the raw log text.
// Column counts UTF-16 code units; TextOffset counts bytes.
type Pointer struct {
	Line       int `json:"line"`
	Column     int `json:"column"`
	TextOffset int `json:"textOffset"`
}

// Entry is the span of one JSON value.
type Entry struct {
	Value    Pointer `json:"value"`
	ValueEnd Pointer `json:"valueEnd"`
}

// Index maps structural paths of one parsed log to their text spans.
type Index struct {
	uri     string
	file    *source.File
	tree    *sarif.Log
	entries map[string]Entry
}

func (ix *Index) URI() string { return ix.uri }

// Tree returns the typed log decoded from the same text.
func (ix *Index) Tree() *sarif.Log { return ix.tree }

// File returns the raw text the index was built from (BOM stripped).
func (ix *Index) File() *source.File { return ix.file }

func (ix *Index) Len() int { return len(ix.entries) }

// Lookup returns the entry for path.
func (ix *Index) Lookup(path string) (Entry, error) {
	e, ok := ix.entries[path]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q in %s", ErrPathNotFound, path, ix.uri)
	}
	return e, nil
}

// Has reports whether path was produced by parsing this text.
func (ix *Index) Has(path string) bool {
	_, ok := ix.entries[path]
	return ok
}

// Paths returns every indexed path in sorted order.
func (ix *Index) Paths() []string {
	out := make([]string, 0, len(ix.entries))
	for p := range ix.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Text returns the raw JSON of the value at path.
func (ix *Index) Text(path string) ([]byte, error) {
	e, err := ix.Lookup(path)
	if err != nil {
		return nil, err
	}
	return ix.file.Content[e.Value.TextOffset:e.ValueEnd.TextOffset], nil
}

// LocationOf builds a Location pointing into the log itself. With
// asInsertionPoint the range collapses to the start of the value.
func (ix *Index) LocationOf(path string, asInsertionPoint bool) (nav.Location, error) {
	e, err := ix.Lookup(path)
	if err != nil {
		return nav.Location{}, err
	}
	end := e.ValueEnd
	if asInsertionPoint {
		end = e.Value
	}
	loc := nav.Location{
		Range: region.Range{
			StartLine: e.Value.Line,
			StartCol:  e.Value.Column,
			EndLine:   end.Line,
			EndCol:    end.Column,
		},
		Mapped: true,
	}
	loc.SetURI(ix.uri)
	return loc, nil
}

// ResultPath picks the most specific node describing result j of run i:
// the first location carrying a physical location, else the analysis
// target, else the result itself.
func ResultPath(runIndex, resultIndex int, tree *sarif.Log) string {
	node := ResultNodePath(runIndex, resultIndex)
	if tree == nil || runIndex < 0 || runIndex >= len(tree.Runs) {
		return node
	}
	results := tree.Runs[runIndex].Results
	if resultIndex < 0 || resultIndex >= len(results) {
		return node
	}
	res := &results[resultIndex]
	for k := range res.Locations {
		if res.Locations[k].PhysicalLocation != nil {
			return Join(node, "locations", strconv.Itoa(k), "physicalLocation")
		}
	}
	if res.AnalysisTarget != nil {
		return Join(node, "analysisTarget")
	}
	return node
}
