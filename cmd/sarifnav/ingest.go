package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sarifnav/internal/diag"
	"sarifnav/internal/diagfmt"
	"sarifnav/internal/ingest"
	"sarifnav/internal/source"
	"sarifnav/internal/trace"
	"sarifnav/internal/ui"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [flags] <log.sarif>...",
	Short: "Ingest SARIF logs and print their results",
	Long: `Ingest SARIF logs, map every result onto the analyzed files and print
the results. Exits with status 1 when a log fails or any result is an error`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("format", "pretty", "output format (pretty|json|short)")
	ingestCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	ingestCmd.Flags().Int("jobs", 0, "max logs ingested in parallel (0=auto)")
	ingestCmd.Flags().Int("max-diagnostics", 0, "maximum number of results to print (0=all)")
	ingestCmd.Flags().Int("context", 2, "lines of source context in pretty output")
	ingestCmd.Flags().Bool("with-notes", false, "include related locations and code flow counts")
	ingestCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	ingestCmd.Flags().Bool("strict", false, "fail a log on the first invalid region")
}

type ingestFlags struct {
	format         string
	ui             uiMode
	jobs           int
	maxDiagnostics int
	context        int
	withNotes      bool
	fullPath       bool
	strict         bool
	quiet          bool
	timings        bool
}

func readIngestFlags(cmd *cobra.Command) (ingestFlags, error) {
	var f ingestFlags
	var err error
	if f.format, err = cmd.Flags().GetString("format"); err != nil {
		return f, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch f.format {
	case "pretty", "json", "short":
	default:
		return f, fmt.Errorf("unknown format: %s", f.format)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return f, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if f.ui, err = readUIMode(uiValue); err != nil {
		return f, err
	}
	if f.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return f, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if f.maxDiagnostics, err = cmd.Flags().GetInt("max-diagnostics"); err != nil {
		return f, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if f.context, err = cmd.Flags().GetInt("context"); err != nil {
		return f, fmt.Errorf("failed to get context flag: %w", err)
	}
	if f.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return f, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if f.fullPath, err = cmd.Flags().GetBool("fullpath"); err != nil {
		return f, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if f.strict, err = cmd.Flags().GetBool("strict"); err != nil {
		return f, fmt.Errorf("failed to get strict flag: %w", err)
	}
	if f.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return f, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if f.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return f, fmt.Errorf("failed to get timings flag: %w", err)
	}
	return f, nil
}

// runIngest executes the "ingest" command: every log is read by one engine,
// failures stay isolated to their log, and the merged results are printed
// in the chosen format.
func runIngest(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic(cmd)

	flags, err := readIngestFlags(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if flags.strict {
		cfg.Ingest.Strict = true
	}

	uris := make([]string, len(args))
	names := make(map[string]string, len(args))
	for i, arg := range args {
		uri, err := logURI(arg)
		if err != nil {
			return err
		}
		uris[i] = uri
		names[uri] = arg
	}

	useUI := shouldUseTUI(flags.ui, flags.quiet)
	var events chan ui.Event
	if useUI {
		events = make(chan ui.Event, 256)
	}
	notifier := newCLINotifier(names, events)
	engine, err := newEngine(cmd, cfg, notifier, nil)
	if err != nil {
		return err
	}
	defer engine.Shutdown()

	ctx := cmd.Context()
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeSession, "ingest", 0).WithExtra("logs", fmt.Sprint(len(uris)))
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

	reports := make([]*ingest.Report, len(uris))
	run := func() error {
		return ingestAll(ctx, engine, notifier, uris, flags.jobs, reports)
	}
	if useUI {
		err = runWithUI("ingesting", args, events, run)
	} else {
		err = run()
	}
	span.End("")
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	failed := notifier.flush(stderr)
	for _, rep := range reports {
		switch {
		case rep == nil:
		case rep.State == ingest.StateFailed:
			dumpDocumentTrace(cmd, stderr, rep.URI, names[rep.URI])
		case rep.State == ingest.StateUpgrading && !flags.quiet:
			fmt.Fprintf(stderr, "skipped %s: %v\n", names[rep.URI], rep.Reason)
		}
	}

	items := engine.Diagnostics().Items()
	diag.Sort(items)
	if err := printDiagnostics(cmd, items, flags); err != nil {
		return err
	}
	if flags.timings {
		printTimings(stderr, reports, names)
	}
	if !flags.quiet {
		printSummary(stderr, reports)
	}

	if failed > 0 || engine.Diagnostics().HasErrors() {
		return exitError{code: 1}
	}
	return nil
}

// ingestAll reads every log with at most jobs attempts in flight. Errors
// of one log never cancel the others; they reach the notifier.
func ingestAll(ctx context.Context, engine *ingest.Engine, notifier *cliNotifier, uris []string, jobs int, reports []*ingest.Report) error {
	ingestProgress.done.Store(0)
	ingestProgress.total.Store(int64(len(uris)))
	g, gctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, uri := range uris {
		g.Go(func() error {
			notifier.status(uri, ui.StatusParsing, nil)
			rep, err := engine.Read(gctx, uri)
			reports[i] = rep
			ingestProgress.done.Add(1)
			switch {
			case err != nil:
				notifier.status(uri, ui.StatusError, err)
			case rep != nil && rep.State == ingest.StateUpgrading:
				notifier.status(uri, ui.StatusError, rep.Reason)
			default:
				notifier.status(uri, ui.StatusDone, nil)
			}
			return gctx.Err()
		})
	}
	return g.Wait()
}

func printDiagnostics(cmd *cobra.Command, items []diag.Diagnostic, flags ingestFlags) error {
	out := cmd.OutOrStdout()
	if flags.maxDiagnostics > 0 && len(items) > flags.maxDiagnostics {
		items = items[:flags.maxDiagnostics]
	}
	wd, _ := os.Getwd()
	pathMode := diagfmt.PathModeAuto
	if flags.fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	switch flags.format {
	case "short":
		base := wd
		if flags.fullPath {
			base = ""
		}
		if output := diag.FormatShort(items, base); output != "" {
			fmt.Fprintln(out, output)
		}
	case "json":
		if err := diagfmt.JSON(out, items, diagfmt.JSONOpts{
			PathMode:       pathMode,
			BaseDir:        wd,
			IncludeRelated: flags.withNotes,
			IncludeLog:     true,
		}); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	default:
		useColor, err := colorEnabled(cmd)
		if err != nil {
			return err
		}
		diagfmt.Pretty(out, items, source.NewFileSet(), diagfmt.PrettyOpts{
			Color:     useColor,
			Context:   flags.context,
			PathMode:  pathMode,
			BaseDir:   wd,
			ShowNotes: flags.withNotes,
		})
	}
	return nil
}

func printSummary(w io.Writer, reports []*ingest.Report) {
	var logs, runs, results, unmapped, invalid int
	for _, rep := range reports {
		if rep == nil || rep.State != ingest.StateDone {
			continue
		}
		logs++
		runs += rep.Runs
		results += rep.Results
		unmapped += rep.Unmapped
		invalid += rep.InvalidRegions
	}
	parts := []string{
		fmt.Sprintf("%d results", results),
		fmt.Sprintf("%d runs", runs),
		fmt.Sprintf("%d of %d logs", logs, len(reports)),
	}
	if unmapped > 0 {
		parts = append(parts, fmt.Sprintf("%d not mapped", unmapped))
	}
	if invalid > 0 {
		parts = append(parts, fmt.Sprintf("%d invalid regions", invalid))
	}
	fmt.Fprintln(w, strings.Join(parts, ", "))
}
