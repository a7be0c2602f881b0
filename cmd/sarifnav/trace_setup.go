package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"sarifnav/internal/prof"
	"sarifnav/internal/trace"
)

var (
	sessionMu      sync.Mutex
	sessionCleanup []func() error
)

// setupSession starts tracing and profiling for the command about to run.
func setupSession(cmd *cobra.Command, _ []string) error {
	cleanupTrace, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	stopProf, err := setupProfiling(cmd)
	if err != nil {
		_ = cleanupTrace()
		return err
	}
	sessionMu.Lock()
	sessionCleanup = append(sessionCleanup, stopProf, cleanupTrace)
	sessionMu.Unlock()
	return nil
}

// teardownSession runs the cleanups registered by setupSession once.
// PersistentPostRun is skipped when RunE fails, so main calls it too.
func teardownSession(_ *cobra.Command, _ []string) error {
	sessionMu.Lock()
	cleanups := sessionCleanup
	sessionCleanup = nil
	sessionMu.Unlock()
	var errs []error
	for _, fn := range cleanups {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// setupTracing inspects trace-related flags and initializes the tracer.
// It returns a cleanup function and an error if initialization fails.
func setupTracing(cmd *cobra.Command) (func() error, error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}

	// --trace без уровня включает фазы
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() error { return nil }, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	if traceOutput != "" && mode == trace.ModeRing {
		mode = trace.ModeBoth
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval, ingestStatus)
	}

	return func() error {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
		return nil
	}, nil
}

// setupProfiling starts the profilers requested by the persistent flags.
func setupProfiling(cmd *cobra.Command) (func() error, error) {
	root := cmd.Root()
	var opts prof.Options
	var err error
	if opts.CPU, err = root.PersistentFlags().GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if opts.Mem, err = root.PersistentFlags().GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if opts.Trace, err = root.PersistentFlags().GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !opts.Enabled() {
		return func() error { return nil }, nil
	}
	session, err := prof.Start(opts)
	if err != nil {
		return nil, err
	}
	return session.Stop, nil
}

type ringHolder interface {
	Ring() *trace.RingTracer
}

func ringOf(cmd *cobra.Command) *trace.RingTracer {
	switch t := trace.FromContext(cmd.Context()).(type) {
	case *trace.RingTracer:
		return t
	case ringHolder:
		return t.Ring()
	}
	return nil
}

// dumpDocumentTrace writes the buffered events of one log to w. Nothing is
// written without a ring buffer.
func dumpDocumentTrace(cmd *cobra.Command, w io.Writer, uri, name string) {
	ring := ringOf(cmd)
	if ring == nil {
		return
	}
	events := ring.ForDocument(uri)
	if len(events) == 0 {
		return
	}
	fmt.Fprintf(w, "== trace of %s ==\n", name)
	for _, ev := range events {
		_, _ = w.Write(trace.FormatEvent(ev, trace.FormatText))
	}
}

// dumpTraceOnPanic writes the ring buffer to stderr before re-panicking, so
// the events leading to the crash are not lost.
func dumpTraceOnPanic(cmd *cobra.Command) {
	r := recover()
	if r == nil {
		return
	}
	if ring := ringOf(cmd); ring != nil {
		fmt.Fprintln(os.Stderr, "== trace (most recent last) ==")
		if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
			fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
		}
	}
	panic(r)
}
