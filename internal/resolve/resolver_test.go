package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"sarifnav/internal/artifact"
	"sarifnav/internal/nav"
	"sarifnav/internal/region"
	"sarifnav/internal/sarif"
)

type fakeArtifacts struct {
	mapped   map[string]string
	prompted []string
	promptFn func(uri string) error
}

func (f *fakeArtifacts) Resolve(_ context.Context, ref sarif.ArtifactLocation, _ int, uriBase string) artifact.Mapping {
	combined := artifact.Combine(uriBase, ref.URI)
	if target, ok := f.mapped[combined]; ok {
		return artifact.Mapping{URI: target, Mapped: true}
	}
	return artifact.Mapping{URI: combined}
}

func (f *fakeArtifacts) PromptUserToChoose(_ context.Context, uri, _ string) error {
	f.prompted = append(f.prompted, uri)
	if f.promptFn != nil {
		return f.promptFn(uri)
	}
	return nil
}

func (f *fakeArtifacts) OnMappingChanged(func(artifact.MappingChange)) func() { return func() {} }

func (f *fakeArtifacts) ResolveRunArtifacts(context.Context, int, []sarif.Artifact, map[string]string) {
}

func physical(uri, base string, reg *sarif.Region) *sarif.Location {
	return &sarif.Location{PhysicalLocation: &sarif.PhysicalLocation{
		ArtifactLocation: &sarif.ArtifactLocation{URI: uri, URIBaseID: base},
		Region:           reg,
	}}
}

func TestResolveMapped(t *testing.T) {
	arts := &fakeArtifacts{mapped: map[string]string{"file:///src/app/main.go": "file:///work/app/main.go"}}
	r := &Resolver{
		Artifacts: arts,
		Bases:     Bases{7: {"SRCROOT": "file:///src/"}},
	}
	node := physical("app/main.go", "SRCROOT", &sarif.Region{
		StartLine: sarif.Int(3), StartColumn: sarif.Int(2), EndColumn: sarif.Int(5),
		Message: &sarif.Message{Text: "here"},
	})
	node.ID = sarif.Int(4)
	node.LogicalLocations = []sarif.LogicalLocation{
		{Name: "main", FullyQualifiedName: "app.main"},
		{Kind: "namespace"},
		{Name: "helper"},
	}

	loc, err := r.Resolve(context.Background(), node, 7)
	require.NoError(t, err)
	require.True(t, loc.Mapped)
	require.Equal(t, "file:///work/app/main.go", loc.URI)
	require.Equal(t, "main.go", loc.FileName)
	require.Equal(t, "file:///src/", loc.URIBase)
	require.Equal(t, region.Range{StartLine: 2, StartCol: 1, EndLine: 2, EndCol: 4}, loc.Range)
	require.False(t, loc.EndOfLine)
	require.Equal(t, 4, *loc.ID)
	require.Equal(t, []string{"app.main", "helper"}, loc.LogicalLocations)
	require.NotNil(t, loc.Message)
	require.Equal(t, "here", loc.Message.Plain)
}

func TestResolveUnmappedKeepsDefaults(t *testing.T) {
	r := &Resolver{Artifacts: &fakeArtifacts{}}
	loc, err := r.Resolve(context.Background(), physical("lib/x.c", "", nil), 0)
	require.NoError(t, err)
	require.False(t, loc.Mapped)
	require.Equal(t, "lib/x.c", loc.URI)
	require.Equal(t, region.Default(), loc.Range)

	loc, err = r.Resolve(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Equal(t, nav.Default(), loc)
}

func TestResolveEndOfLine(t *testing.T) {
	r := &Resolver{Artifacts: &fakeArtifacts{}}
	loc, err := r.Resolve(context.Background(), physical("a.go", "", &sarif.Region{StartLine: sarif.Int(10)}), 0)
	require.NoError(t, err)
	require.True(t, loc.EndOfLine)
	require.Equal(t, region.Range{StartLine: 9, EndLine: 10}, loc.Range)
}

func TestResolveInvalidRegion(t *testing.T) {
	bad := &sarif.Region{StartLine: sarif.Int(0)}

	lenient := &Resolver{Artifacts: &fakeArtifacts{}}
	_, err := lenient.Resolve(context.Background(), physical("a.go", "", bad), 0)
	require.NoError(t, err)

	strict := &Resolver{Artifacts: &fakeArtifacts{}, Strict: true}
	_, err = strict.Resolve(context.Background(), physical("a.go", "", bad), 0)
	require.ErrorIs(t, err, region.ErrInvalidRegion)
}

func TestResolveUsesCanonicalizer(t *testing.T) {
	arts := artifact.NewFSResolver(artifact.FSOptions{CaseInsensitive: true})
	r := &Resolver{Artifacts: arts}
	loc, err := r.Resolve(context.Background(), physical("FILE:///Tmp/Missing.GO", "", nil), 0)
	require.NoError(t, err)
	require.False(t, loc.Mapped)
	require.Equal(t, arts.Canonical("FILE:///Tmp/Missing.GO"), loc.URI)
}

func TestReresolve(t *testing.T) {
	arts := &fakeArtifacts{mapped: map[string]string{}}
	arts.promptFn = func(uri string) error {
		arts.mapped[uri] = "file:///picked/x.go"
		return nil
	}
	r := &Resolver{Artifacts: arts, Bases: Bases{1: {"B": "file:///base/"}}}
	node := physical("x.go", "B", nil)

	first, err := r.Resolve(context.Background(), node, 1)
	require.NoError(t, err)
	require.False(t, first.Mapped)

	again, err := r.Reresolve(context.Background(), &first, node, 1)
	require.NoError(t, err)
	require.True(t, again.Mapped)
	require.Equal(t, "file:///picked/x.go", again.URI)
	require.Equal(t, []string{"file:///base/x.go"}, arts.prompted)

	// уже сопоставленную локацию не трогаем
	same, err := r.Reresolve(context.Background(), &again, node, 1)
	require.NoError(t, err)
	require.Equal(t, again, same)
	require.Len(t, arts.prompted, 1)
}

func TestReresolveSwallowsPromptErrors(t *testing.T) {
	arts := &fakeArtifacts{promptFn: func(string) error { return errors.New("cancelled") }}
	r := &Resolver{Artifacts: arts}
	loc, err := r.Reresolve(context.Background(), nil, physical("y.go", "", nil), 0)
	require.NoError(t, err)
	require.False(t, loc.Mapped)
	require.Equal(t, "y.go", loc.URI)
}

func TestLocationsOf(t *testing.T) {
	r := &Resolver{Artifacts: &fakeArtifacts{}}
	nodes := []sarif.Location{*physical("a.go", "", nil), *physical("b.go", "", nil)}
	locs, err := r.LocationsOf(context.Background(), nodes, 0)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	require.Equal(t, "a.go", locs[0].URI)
	require.Equal(t, "b.go", locs[1].URI)

	locs, err = r.LocationsOf(context.Background(), nil, 0)
	require.NoError(t, err)
	require.Nil(t, locs)

	strict := &Resolver{Artifacts: &fakeArtifacts{}, Strict: true}
	nodes = append(nodes, *physical("c.go", "", &sarif.Region{EndLine: sarif.Int(-1)}))
	locs, err = strict.LocationsOf(context.Background(), nodes, 0)
	require.Error(t, err)
	require.Len(t, locs, 2)
}

func TestResolveReportsInvalidRegions(t *testing.T) {
	var got []int
	r := &Resolver{
		Artifacts: &fakeArtifacts{},
		OnInvalid: func(runID int, err error) {
			require.ErrorIs(t, err, region.ErrInvalidRegion)
			got = append(got, runID)
		},
	}
	_, err := r.Resolve(context.Background(), physical("a.go", "", &sarif.Region{CharLength: sarif.Int(-3)}), 5)
	require.NoError(t, err)
	require.Equal(t, []int{5}, got)
}
