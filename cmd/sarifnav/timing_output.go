package main

import (
	"fmt"
	"io"
	"strings"

	"sarifnav/internal/ingest"
)

func printTimings(out io.Writer, reports []*ingest.Report, names map[string]string) {
	for _, rep := range reports {
		if rep == nil || len(rep.Timings.Phases) == 0 {
			continue
		}
		name := names[rep.URI]
		if name == "" {
			name = rep.URI
		}
		fmt.Fprintf(out, "== %s ==\n", name)
		fmt.Fprint(out, strings.TrimPrefix(rep.Timings.String(), "timings:\n"))
	}
}
