package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sarifnav/internal/artifact"
	"sarifnav/internal/diag"
	"sarifnav/internal/ingest"
	"sarifnav/internal/nav"
)

var locateCmd = &cobra.Command{
	Use:   "locate [flags] <log.sarif>",
	Short: "Show where one result lives in its artifact and in the log",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocate,
}

func init() {
	locateCmd.Flags().Int("run", 0, "run index")
	locateCmd.Flags().Int("result", 0, "result index within the run")
	locateCmd.Flags().Bool("prompt", false, "ask for the artifact when it cannot be found")
	locateCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type locationOutput struct {
	URI       string `json:"uri"`
	Path      string `json:"path,omitempty"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
	Mapped    bool   `json:"mapped"`
}

type locateOutput struct {
	Rule     string         `json:"rule,omitempty"`
	Severity string         `json:"severity"`
	Message  string         `json:"message"`
	Artifact locationOutput `json:"artifact"`
	Log      locationOutput `json:"log"`
}

func runLocate(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic(cmd)

	runIndex, err := cmd.Flags().GetInt("run")
	if err != nil {
		return fmt.Errorf("failed to get run flag: %w", err)
	}
	resultIndex, err := cmd.Flags().GetInt("result")
	if err != nil {
		return fmt.Errorf("failed to get result flag: %w", err)
	}
	prompt, err := cmd.Flags().GetBool("prompt")
	if err != nil {
		return fmt.Errorf("failed to get prompt flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	uri, err := logURI(args[0])
	if err != nil {
		return err
	}

	var chooser artifact.Chooser
	if prompt {
		if !isTerminal(os.Stdin) {
			return errors.New("--prompt needs an interactive terminal")
		}
		chooser = &artifact.PromptChooser{In: os.Stdin, Out: cmd.ErrOrStderr()}
	}
	notifier := newCLINotifier(nil, nil)
	engine, err := newEngine(cmd, cfg, notifier, chooser)
	if err != nil {
		return err
	}
	defer engine.Shutdown()

	rep, err := engine.Read(cmd.Context(), uri)
	if err != nil {
		return err
	}
	if rep.State == ingest.StateUpgrading {
		return fmt.Errorf("%s: %w", args[0], rep.Reason)
	}

	located, err := engine.Locate(cmd.Context(), diag.Key{Document: rep.URI, RunIndex: runIndex, ResultIndex: resultIndex}, prompt)
	if err != nil {
		return err
	}

	wd, _ := os.Getwd()
	d := located.Diagnostic
	out := locateOutput{
		Rule:     d.RuleID,
		Severity: d.Severity.Label(),
		Message:  d.Message.Plain,
		Artifact: toLocationOutput(located.Artifact, wd),
		Log:      toLocationOutput(located.Log, wd),
	}
	out.Log.Path = diag.DisplayPath(located.Log.URI, wd)
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	renderLocate(cmd.OutOrStdout(), out)
	return nil
}

func toLocationOutput(loc nav.Location, wd string) locationOutput {
	out := locationOutput{
		URI:       loc.URI,
		Line:      loc.Range.StartLine + 1,
		Column:    loc.Range.StartCol + 1,
		EndLine:   loc.Range.EndLine + 1,
		EndColumn: loc.Range.EndCol + 1,
		Mapped:    loc.Mapped,
	}
	if loc.Mapped {
		out.Path = diag.DisplayPath(loc.URI, wd)
	}
	return out
}

func renderLocate(w io.Writer, out locateOutput) {
	rule := out.Rule
	if rule == "" {
		rule = "-"
	}
	fmt.Fprintf(w, "%s %s: %s\n", out.Severity, rule, out.Message)
	if out.Artifact.Mapped {
		fmt.Fprintf(w, "artifact: %s:%d:%d\n", out.Artifact.Path, out.Artifact.Line, out.Artifact.Column)
	} else {
		uri := out.Artifact.URI
		if uri == "" {
			uri = "<none>"
		}
		fmt.Fprintf(w, "artifact: %s (not found)\n", uri)
	}
	fmt.Fprintf(w, "log:      %s:%d:%d\n", out.Log.Path, out.Log.Line, out.Log.Column)
}
