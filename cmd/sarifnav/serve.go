package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sarifnav/internal/lsp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve SARIF logs to an editor over stdio (LSP)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("max-diagnostics", 500, "maximum diagnostics published per file")
	serveCmd.Flags().Duration("debounce", 0, "delay before re-ingesting an edited log (0=default)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	defer dumpTraceOnPanic(cmd)

	maxDiagnostics, err := cmd.Flags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return fmt.Errorf("failed to get debounce flag: %w", err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Клиент выбирает файлы сам через sarif/remember: интерактивного выбора нет
	opts, err := cfg.EngineOptions(nil, traceFromCmd(cmd))
	if err != nil {
		return err
	}

	server, err := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Ingest:         opts,
		Debounce:       debounce,
		MaxDiagnostics: maxDiagnostics,
	})
	if err != nil {
		return err
	}
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return exitError{code: 1}
		}
		return err
	}
	return nil
}
