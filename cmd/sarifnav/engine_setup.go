package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sarifnav/internal/artifact"
	"sarifnav/internal/config"
	"sarifnav/internal/ingest"
	"sarifnav/internal/trace"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Load(".", path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// newEngine builds an engine from the configuration. The working directory
// is always searched for artifacts after the configured roots.
func newEngine(cmd *cobra.Command, cfg *config.Config, notifier ingest.Notifier, chooser artifact.Chooser) (*ingest.Engine, error) {
	opts, err := cfg.EngineOptions(chooser, traceFromCmd(cmd))
	if err != nil {
		return nil, err
	}
	opts.Notifier = notifier
	if fsr, ok := opts.Artifacts.(*artifact.FSResolver); ok {
		if wd, err := os.Getwd(); err == nil {
			fsr.AddSearchRoot(wd)
		}
	}
	return ingest.New(opts)
}

// logURI checks that path is a readable file and returns its file URI.
func logURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("failed to stat log: %w", err)
	}
	if st.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return artifact.CanonicalURI(artifact.FileURI(abs)), nil
}

func traceFromCmd(cmd *cobra.Command) trace.Tracer {
	return trace.FromContext(cmd.Context())
}
