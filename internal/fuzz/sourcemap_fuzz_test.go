package fuzztests

import (
	"context"
	"testing"
	"time"

	"sarifnav/internal/region"
	"sarifnav/internal/sourcemap"
)

// parseTimeout is the maximum time allowed for indexing a single input.
const parseTimeout = 5 * time.Second

func FuzzSourceMapOffsets(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		ix, err := sourcemap.Parse("file:///fuzz.sarif", input)
		if err != nil {
			return
		}
		size := len(ix.File().Content)
		for _, p := range ix.Paths() {
			e, err := ix.Lookup(p)
			if err != nil {
				t.Fatalf("path %q listed but not found: %v", p, err)
			}
			if e.Value.TextOffset < 0 || e.ValueEnd.TextOffset > size || e.Value.TextOffset > e.ValueEnd.TextOffset {
				t.Fatalf("entry %q out of bounds: %+v (size %d)", p, e, size)
			}
			if e.Value.Line > e.ValueEnd.Line {
				t.Fatalf("entry %q ends before it starts: %+v", p, e)
			}
		}
		if !ix.Has("") {
			t.Fatalf("root value not indexed for %q", truncateForLog(input, 200))
		}
	})
}

// FuzzRegionsNeverPanic normalizes every region of every decoded result.
func FuzzRegionsNeverPanic(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		ix, err := sourcemap.Parse("file:///fuzz.sarif", input)
		if err != nil || ix.Tree() == nil {
			return
		}
		for i, run := range ix.Tree().Runs {
			for j, res := range run.Results {
				_ = sourcemap.ResultPath(i, j, ix.Tree())
				for _, loc := range res.Locations {
					if loc.PhysicalLocation == nil {
						continue
					}
					r := loc.PhysicalLocation.Region
					if region.Check(r) != nil {
						continue
					}
					rng, _ := region.Normalize(r)
					if rng.StartLine < 0 || rng.StartCol < 0 {
						t.Fatalf("valid region normalized to negative start: %+v", rng)
					}
				}
			}
		}
	})
}

// FuzzSourceMapNoHang tests that indexing never hangs on any input.
func FuzzSourceMapNoHang(f *testing.F) {
	addCorpusSeeds(f)
	f.Add([]byte(`{"a":[[[[[[[[[[[[[[[[[[[[]]]]]]]]]]]]]]]]]]]}`))
	f.Add([]byte(`{"a":"\u`))
	f.Add([]byte(`{"a" 1}`))
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = sourcemap.Parse("file:///fuzz.sarif", input)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			t.Fatalf("source map hang detected: indexing took longer than %v\ninput (%d bytes): %q",
				parseTimeout, len(input), truncateForLog(input, 200))
		}
	})
}
