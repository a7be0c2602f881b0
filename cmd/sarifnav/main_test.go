package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"sarifnav/internal/artifact"
	"sarifnav/internal/diagfmt"
)

const cliLog = `{"version": "2.1.0", "runs": [{
  "tool": {"driver": {"name": "lint", "rules": [{"id": "R1", "defaultConfiguration": {"level": "error"}}]}},
  "results": [
    {"ruleId": "R1", "message": {"text": "boom"},
     "locations": [{"physicalLocation": {"artifactLocation": {"uri": %q}, "region": {"startLine": 2, "startColumn": 1, "endColumn": 5}}}]},
    {"ruleId": "R2", "level": "note", "message": {"text": "lost"},
     "locations": [{"physicalLocation": {"artifactLocation": {"uri": "nowhere/lost.go"}}}]}
  ]
}]}`

type cliFixture struct {
	dir    string
	main   string
	log    string
	config string
}

func newCLIFixture(t *testing.T) cliFixture {
	t.Helper()
	dir := t.TempDir()
	f := cliFixture{
		dir:    dir,
		main:   filepath.Join(dir, "src", "main.go"),
		log:    filepath.Join(dir, "scan.sarif"),
		config: filepath.Join(dir, "sarifnav.toml"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(f.main), 0o755))
	require.NoError(t, os.WriteFile(f.main, []byte("package main\nfunc main() {}\n"), 0o600))
	require.NoError(t, os.WriteFile(f.log, []byte(fmt.Sprintf(cliLog, artifact.FileURI(f.main))), 0o600))
	require.NoError(t, os.WriteFile(f.config, []byte("[artifacts]\ncache_dir = \"cache\"\n"), 0o600))
	return f
}

func resetFlags(cmd *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	require.NoError(t, teardownSession(rootCmd, nil))
	return out.String(), errOut.String(), err
}

func exitCode(err error) int {
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestIngestShortFormat(t *testing.T) {
	f := newCLIFixture(t)
	stdout, stderr, err := execute(t, "--config", f.config, "--color", "off",
		"ingest", "--ui", "off", "--format", "short", f.log)
	require.Equal(t, 1, exitCode(err), "errors in the log set the exit status")

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2, stdout)
	require.Contains(t, stdout, "error R1 "+filepath.ToSlash(f.main)+":2:1 boom")
	require.Contains(t, stdout, "info R2 "+filepath.ToSlash(f.log)+":")
	require.Contains(t, stderr, "2 results, 1 runs, 1 of 1 logs, 1 not mapped")
}

func TestIngestJSONAndQuiet(t *testing.T) {
	f := newCLIFixture(t)
	stdout, stderr, err := execute(t, "--config", f.config, "--quiet",
		"ingest", "--ui", "off", "--format", "json", "--with-notes", f.log)
	require.Equal(t, 1, exitCode(err))
	require.Empty(t, stderr)

	var out diagfmt.DiagnosticsOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Equal(t, 2, out.Count)
	byRule := map[string]diagfmt.DiagnosticJSON{}
	for _, d := range out.Diagnostics {
		byRule[d.Rule] = d
	}
	require.True(t, byRule["R1"].Location.Mapped)
	require.Equal(t, 2, byRule["R1"].Location.StartLine)
	require.NotNil(t, byRule["R2"].Log)
}

func TestIngestIsolatesBrokenLogs(t *testing.T) {
	f := newCLIFixture(t)
	broken := filepath.Join(f.dir, "broken.sarif")
	require.NoError(t, os.WriteFile(broken, []byte(`{"version": "2.1.0", "runs": [`), 0o600))

	stdout, stderr, err := execute(t, "--config", f.config, "--color", "off",
		"ingest", "--ui", "off", "--format", "short", "--jobs", "1", broken, f.log)
	require.Equal(t, 1, exitCode(err))
	require.Contains(t, stderr, "error: ")
	require.Contains(t, stderr, "1 of 2 logs")
	require.Contains(t, stdout, "boom")
}

func TestIngestRejectsBadFlags(t *testing.T) {
	f := newCLIFixture(t)
	_, _, err := execute(t, "--config", f.config, "ingest", "--format", "xml", f.log)
	require.ErrorContains(t, err, "unknown format: xml")

	_, _, err = execute(t, "--config", f.config, "ingest", "--ui", "maybe", f.log)
	require.ErrorContains(t, err, "invalid --ui value")

	_, _, err = execute(t, "--config", f.config, "ingest", filepath.Join(f.dir, "missing.sarif"))
	require.ErrorContains(t, err, "failed to stat log")
}

func TestLocateJSON(t *testing.T) {
	f := newCLIFixture(t)
	stdout, _, err := execute(t, "--config", f.config,
		"locate", "--run", "0", "--result", "1", "--format", "json", f.log)
	require.NoError(t, err)

	var out locateOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Equal(t, "R2", out.Rule)
	require.False(t, out.Artifact.Mapped)
	require.Equal(t, 7, out.Log.Line)
	require.Equal(t, filepath.ToSlash(f.log), out.Log.Path)

	stdout, _, err = execute(t, "--config", f.config, "locate", "--result", "0", f.log)
	require.NoError(t, err)
	require.Contains(t, stdout, "error R1: boom")
	require.Contains(t, stdout, "artifact: "+filepath.ToSlash(f.main)+":2:1")

	_, _, err = execute(t, "--config", f.config, "locate", "--result", "9", f.log)
	require.Error(t, err)
}

func TestVersionJSON(t *testing.T) {
	stdout, _, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	require.Contains(t, info, "version")
	require.Contains(t, info, "go_version")
}
