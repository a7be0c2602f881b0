package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"sarifnav/internal/artifact"
	"sarifnav/internal/diag"
	"sarifnav/internal/region"
	"sarifnav/internal/sourcemap"
)

type recorder struct {
	mu       sync.Mutex
	errs     []error
	progress []int
}

func (r *recorder) Error(_ string, err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) Progress(_ string, _, processed, _ int) {
	r.mu.Lock()
	r.progress = append(r.progress, processed)
	r.mu.Unlock()
}

// fixture writes src/main.go under a temp dir and returns a log that
// references it through a uriBaseId, plus one result with a missing file.
func fixture(t *testing.T) (dir string, log []byte) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.go"), []byte("package main\n"), 0o600))

	text := `{
  "version": "2.1.0",
  "runs": [{
    "tool": {"driver": {"name": "lint", "version": "1.2", "rules": [
      {"id": "R1", "name": "NoFoo", "defaultConfiguration": {"level": "error"}, "shortDescription": {"text": "foo is bad"}}
    ]}},
    "originalUriBaseIds": {
      "ROOT": {"uri": "%s/"},
      "SRC": {"uri": "src/", "uriBaseId": "ROOT"}
    },
    "results": [
      {"ruleId": "R1", "message": {"text": "found {0}", "arguments": ["foo"]},
       "locations": [{"physicalLocation": {"artifactLocation": {"uri": "main.go", "uriBaseId": "SRC"},
         "region": {"startLine": 3, "startColumn": 2, "endColumn": 5}}}]},
      {"ruleIndex": 0, "level": "note", "message": {"text": ""},
       "locations": [{"physicalLocation": {"artifactLocation": {"uri": "missing/gone.go"}}}]}
    ]
  }]
}`
	return dir, []byte(fmt.Sprintf(text, artifact.FileURI(dir)))
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(e.Shutdown)
	return e
}

func TestOpenBuildsDiagnostics(t *testing.T) {
	dir, log := fixture(t)
	e := newEngine(t, Options{})

	report, err := e.Open(context.Background(), "mem://a.sarif", log)
	require.NoError(t, err)
	require.Equal(t, StateDone, report.State)
	require.Equal(t, StateDone, e.State("mem://a.sarif"))
	require.Equal(t, 1, report.Runs)
	require.Equal(t, 2, report.Results)
	require.Equal(t, 1, report.Unmapped)
	require.Equal(t, "2.1.0", report.Version)
	require.NotEmpty(t, report.Timings.Phases)

	items := e.Diagnostics().Items()
	require.Len(t, items, 2)

	first := items[0]
	require.Equal(t, diag.Key{Document: "mem://a.sarif", RunIndex: 0, ResultIndex: 0}, first.Key)
	require.Equal(t, diag.SevError, first.Severity, "level comes from the rule default")
	require.Equal(t, "found foo", first.Message.Plain)
	require.Equal(t, "lint", first.Tool)
	require.True(t, first.Location.Mapped)
	require.Equal(t, artifact.FileURI(filepath.Join(dir, "src", "main.go")), first.Location.URI)
	require.Equal(t, region.Range{StartLine: 2, StartCol: 1, EndLine: 2, EndCol: 4}, first.Location.Range)
	require.Equal(t, "runs/0/results/0", first.Node)

	inLog := first.LocationInSarifFile
	require.Equal(t, "mem://a.sarif", inLog.URI)
	require.Equal(t, inLog.Range.StartLine, inLog.Range.EndLine)
	require.Equal(t, inLog.Range.StartCol, inLog.Range.EndCol)

	second := items[1]
	require.Equal(t, "R1", second.RuleID, "rule id from ruleIndex")
	require.Equal(t, "NoFoo", second.RuleName)
	require.Equal(t, diag.SevInfo, second.Severity)
	require.Equal(t, "foo is bad", second.Message.Plain)
	require.True(t, second.InLog(), "unmapped artifact falls back to the log")
	ix, ok := e.SourceMaps().Get("mem://a.sarif")
	require.True(t, ok)
	want, err := ix.LocationOf("runs/0/results/1/locations/0/physicalLocation", false)
	require.NoError(t, err)
	require.Equal(t, want.Range, second.Location.Range)
	require.False(t, second.Locations[0].Mapped)

	runs := e.Runs("mem://a.sarif")
	require.Len(t, runs, 1)
	require.Equal(t, "lint", runs[0].ToolName)
	require.Equal(t, artifact.FileURI(dir)+"/src/", runs[0].URIBases["SRC"])
}

func TestParseFailureIsIsolated(t *testing.T) {
	_, log := fixture(t)
	rec := &recorder{}
	e := newEngine(t, Options{Notifier: rec})

	_, err := e.Open(context.Background(), "a.sarif", log)
	require.NoError(t, err)

	report, err := e.Open(context.Background(), "b.sarif", []byte(`{"version": "2.1.0", "runs": [`))
	require.Error(t, err)
	require.ErrorIs(t, err, sourcemap.ErrParse)
	require.Equal(t, StateFailed, report.State)
	require.Equal(t, StateFailed, e.State("b.sarif"))
	require.Len(t, rec.errs, 1)

	require.Len(t, e.Diagnostics().ForDocument("a.sarif"), 2)
	require.Empty(t, e.Diagnostics().ForDocument("b.sarif"))
	_, ok := e.SourceMaps().Get("b.sarif")
	require.False(t, ok, "nothing is committed for a failed attempt")

	// повторное открытие с битым текстом не трогает старые результаты
	_, err = e.Open(context.Background(), "a.sarif", []byte(`{`))
	require.Error(t, err)
	require.Len(t, e.Diagnostics().ForDocument("a.sarif"), 2)
	require.Equal(t, StateFailed, e.State("a.sarif"))
}

func TestMiscasedKeysFailOnlyThatDocument(t *testing.T) {
	_, log := fixture(t)
	rec := &recorder{}
	e := newEngine(t, Options{Notifier: rec})

	_, err := e.Open(context.Background(), "a.sarif", log)
	require.NoError(t, err)

	for i, raw := range []string{
		`{"version":"2.1.0","Runs":[{"tool":{"driver":{"name":"x"}},"results":[{"message":{"text":"m"}}]}]}`,
		`{"version":"2.1.0","runs":[{"tool":{"driver":{"name":"x"}},"results":[{"message":{"text":"m"},
		  "locations":[{"PhysicalLocation":{"artifactLocation":{"uri":"x.go"}}}]}]}]}`,
	} {
		uri := fmt.Sprintf("case%d.sarif", i)
		require.NotPanics(t, func() {
			report, err := e.Open(context.Background(), uri, []byte(raw))
			require.ErrorIs(t, err, sourcemap.ErrParse)
			require.Equal(t, StateFailed, report.State)
		})
		require.Empty(t, e.Diagnostics().ForDocument(uri))
	}
	require.Len(t, rec.errs, 2)
	require.Len(t, e.Diagnostics().ForDocument("a.sarif"), 2)
}

func TestUnsupportedVersionGoesToUpgrader(t *testing.T) {
	up := &NopUpgrader{}
	rec := &recorder{}
	e := newEngine(t, Options{Upgrader: up, Notifier: rec})

	old := `{"version": "2.1.0", "$schema": "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.4.json",
	  "runs": [{"tool": {"driver": {"name": "t"}}, "results": [{"message": {"text": "m"}}]}]}`
	report, err := e.Open(context.Background(), "old.sarif", []byte(old))
	require.NoError(t, err)
	require.Equal(t, StateUpgrading, report.State)
	require.ErrorIs(t, report.Reason, ErrUnsupportedSchema)
	require.Equal(t, []UpgradeRequest{{URI: "old.sarif", Version: "2.1.0-rtm.4"}}, up.Requests())
	require.Zero(t, e.Diagnostics().Len())
	require.Empty(t, rec.errs)
	require.True(t, report.State.Terminal())
}

func TestCloseRemovesOnlyThatDocument(t *testing.T) {
	_, log := fixture(t)
	e := newEngine(t, Options{})
	ctx := context.Background()

	_, err := e.Open(ctx, "a.sarif", log)
	require.NoError(t, err)
	_, err = e.Open(ctx, "b.sarif", log)
	require.NoError(t, err)
	require.Equal(t, 4, e.Diagnostics().Len())
	require.Equal(t, []string{"a.sarif", "b.sarif"}, e.Documents())

	var syncs int
	e.Diagnostics().Subscribe(func(diag.Snapshot) { syncs++ })

	removed, ok := e.Close("a.sarif")
	require.True(t, ok)
	require.Equal(t, 2, removed)
	require.Equal(t, 1, syncs)
	require.Empty(t, e.Diagnostics().ForDocument("a.sarif"))
	require.Len(t, e.Diagnostics().ForDocument("b.sarif"), 2)
	require.Equal(t, StateIdle, e.State("a.sarif"))
	require.Nil(t, e.Runs("a.sarif"))

	// source maps are retained after close by default
	_, ok = e.SourceMaps().Get("a.sarif")
	require.True(t, ok)

	_, ok = e.Close("never-opened.sarif")
	require.False(t, ok)
}

func TestCloseReleasesSourceMapWhenNotRetained(t *testing.T) {
	_, log := fixture(t)
	maps, err := sourcemap.NewStore(sourcemap.StoreOptions{RetainOnClose: false})
	require.NoError(t, err)
	e := newEngine(t, Options{SourceMaps: maps})

	_, err = e.Open(context.Background(), "a.sarif", log)
	require.NoError(t, err)
	e.Close("a.sarif")
	_, ok := maps.Get("a.sarif")
	require.False(t, ok)
}

func TestReopenReplacesDiagnostics(t *testing.T) {
	_, log := fixture(t)
	e := newEngine(t, Options{})
	ctx := context.Background()

	_, err := e.Open(ctx, "a.sarif", log)
	require.NoError(t, err)
	firstRun := e.Runs("a.sarif")[0].RunID

	single := `{"version": "2.1.0", "runs": [{"tool": {"driver": {"name": "t"}}, "results": [{"message": {"text": "only"}}]}]}`
	_, err = e.Open(ctx, "a.sarif", []byte(single))
	require.NoError(t, err)

	items := e.Diagnostics().ForDocument("a.sarif")
	require.Len(t, items, 1)
	require.Equal(t, "only", items[0].Message.Plain)
	require.NotEqual(t, firstRun, items[0].RunID)
	require.Len(t, e.Runs("a.sarif"), 1)
}

func TestStrictModeFailsOnInvalidRegion(t *testing.T) {
	bad := `{"version": "2.1.0", "runs": [{"tool": {"driver": {"name": "t"}}, "results": [
	  {"message": {"text": "m"}, "locations": [{"physicalLocation": {"artifactLocation": {"uri": "x.go"}, "region": {"startLine": 0}}}]}
	]}]}`

	lenient := newEngine(t, Options{})
	report, err := lenient.Open(context.Background(), "bad.sarif", []byte(bad))
	require.NoError(t, err)
	require.Equal(t, StateDone, report.State)
	require.Equal(t, 1, report.InvalidRegions)

	rec := &recorder{}
	strict := newEngine(t, Options{Strict: true, Notifier: rec})
	report, err = strict.Open(context.Background(), "bad.sarif", []byte(bad))
	require.ErrorIs(t, err, region.ErrInvalidRegion)
	require.Equal(t, StateFailed, report.State)
	require.Zero(t, strict.Diagnostics().Len())
	require.Len(t, rec.errs, 1)
}

func TestProgressNotifications(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"version": "2.1.0", "runs": [{"tool": {"driver": {"name": "t"}}, "results": [`)
	for i := 0; i < 1001; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"message": {"text": "r%d"}}`, i)
	}
	b.WriteString(`]}]}`)

	rec := &recorder{}
	e := newEngine(t, Options{Notifier: rec})
	report, err := e.Open(context.Background(), "big.sarif", []byte(b.String()))
	require.NoError(t, err)
	require.Equal(t, 1001, report.Results)
	require.Equal(t, []int{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000}, rec.progress)
}

func TestReadFromDisk(t *testing.T) {
	dir, log := fixture(t)
	path := filepath.Join(dir, "scan.sarif")
	require.NoError(t, os.WriteFile(path, log, 0o600))

	e := newEngine(t, Options{})
	report, err := e.Read(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, StateDone, report.State)
	require.Len(t, e.Diagnostics().ForDocument(path), 2)

	_, err = e.Read(context.Background(), filepath.Join(dir, "nope.sarif"))
	require.ErrorIs(t, err, ErrUnknownDocument)
}

func TestReadReusesOpenedText(t *testing.T) {
	_, log := fixture(t)
	e := newEngine(t, Options{})
	_, err := e.Open(context.Background(), "untitled:scan", log)
	require.NoError(t, err)

	report, err := e.Read(context.Background(), "untitled:scan")
	require.NoError(t, err)
	require.Equal(t, 2, report.Results)
}

func TestLocatePromptsAndRefreshes(t *testing.T) {
	dir, log := fixture(t)
	found := filepath.Join(dir, "found.go")
	require.NoError(t, os.WriteFile(found, []byte("package found\n"), 0o600))

	var asked []string
	arts := artifact.NewFSResolver(artifact.FSOptions{
		Chooser: artifact.ChooserFunc(func(_ context.Context, uri, _ string, _ []string) (string, error) {
			asked = append(asked, uri)
			return found, nil
		}),
	})
	e := newEngine(t, Options{Artifacts: arts})
	ctx := context.Background()
	_, err := e.Open(ctx, "a.sarif", log)
	require.NoError(t, err)

	key := diag.Key{Document: "a.sarif", RunIndex: 0, ResultIndex: 1}
	before, err := e.Locate(ctx, key, false)
	require.NoError(t, err)
	require.False(t, before.Artifact.Mapped)
	require.Equal(t, "a.sarif", before.Log.URI)
	require.Empty(t, asked)

	after, err := e.Locate(ctx, key, true)
	require.NoError(t, err)
	require.Equal(t, []string{"missing/gone.go"}, asked)
	require.True(t, after.Artifact.Mapped)
	require.Equal(t, artifact.FileURI(found), after.Artifact.URI)
	require.Equal(t, artifact.FileURI(found), after.Diagnostic.Location.URI, "store refreshed on mapping change")

	_, err = e.Locate(ctx, diag.Key{Document: "a.sarif", ResultIndex: 9}, false)
	require.True(t, errors.Is(err, ErrUnknownResult))
}

func TestThreadFlowsAreResolved(t *testing.T) {
	text := `{"version": "2.1.0", "runs": [{"tool": {"driver": {"name": "t"}},
	  "threadFlowLocations": [{"location": {"physicalLocation": {"artifactLocation": {"uri": "shared.go"}, "region": {"startLine": 9}}}}],
	  "results": [{"message": {"text": "flow"}, "codeFlows": [{"threadFlows": [{"locations": [
	    {"location": {"physicalLocation": {"artifactLocation": {"uri": "a.go"}, "region": {"startLine": 1}}}},
	    {"index": 0}
	  ]}]}]}]}]}`
	flows := &DefaultThreadFlows{}
	e := newEngine(t, Options{ThreadFlows: flows})
	flows.Resolver = e.Resolver()

	_, err := e.Open(context.Background(), "flow.sarif", []byte(text))
	require.NoError(t, err)

	d := e.Diagnostics().Items()[0]
	require.Equal(t, 2, d.CodeFlowSteps)
	steps := flows.Steps(d.RunID, 0)
	require.Len(t, steps, 2)
	require.Equal(t, "a.go", steps[0].Location.URI)
	require.Equal(t, "shared.go", steps[1].Location.URI)
	require.Equal(t, 8, steps[1].Location.Range.StartLine)
	require.Len(t, flows.Steps(d.RunID, -1), 1)

	e.Close("flow.sarif")
	require.Empty(t, flows.Steps(d.RunID, 0))
}

func TestConcurrentDocuments(t *testing.T) {
	_, log := fixture(t)
	e := newEngine(t, Options{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := e.Open(context.Background(), fmt.Sprintf("doc%d.sarif", i), log); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 16, e.Diagnostics().Len())
	require.Len(t, e.Documents(), 8)
}
