// Package resolve turns SARIF location nodes into navigable locations.
package resolve

import (
	"context"
	"fmt"
	"strconv"

	"sarifnav/internal/artifact"
	"sarifnav/internal/nav"
	"sarifnav/internal/region"
	"sarifnav/internal/sarif"
	"sarifnav/internal/trace"
)

// BaseLookup maps a uriBaseId of a run to its absolute base URI.
type BaseLookup interface {
	URIBase(runID int, id string) string
}

// Bases is a BaseLookup backed by a map per run.
type Bases map[int]map[string]string

func (b Bases) URIBase(runID int, id string) string {
	if id == "" {
		return ""
	}
	return b[runID][id]
}

// Resolver resolves location nodes against an artifact resolver.
type Resolver struct {
	Artifacts artifact.Resolver
	Bases     BaseLookup
	// Strict turns invalid regions into errors instead of trace events.
	Strict bool
	Tracer trace.Tracer
	// OnInvalid, when set, is told about every invalid region tolerated
	// outside strict mode.
	OnInvalid func(runID int, err error)
}

// Resolve builds a Location for node. Outside strict mode it never fails:
// anything that cannot be resolved is left at its default.
func (r *Resolver) Resolve(ctx context.Context, node *sarif.Location, runID int) (nav.Location, error) {
	loc := nav.Default()
	if node == nil {
		return loc, nil
	}
	if node.ID != nil {
		id := *node.ID
		loc.ID = &id
	}

	if phys := node.PhysicalLocation; phys != nil {
		if ref := phys.ArtifactLocation; ref != nil && r.Artifacts != nil {
			loc.URIBase = r.uriBase(runID, ref.URIBaseID)
			m := r.Artifacts.Resolve(ctx, *ref, runID, loc.URIBase)
			loc.SetURI(r.canonical(m.URI))
			loc.Mapped = m.Mapped
		}
		if reg := phys.Region; reg != nil {
			if err := region.Check(reg); err != nil {
				if r.Strict {
					return loc, fmt.Errorf("run %d: %w", runID, err)
				}
				r.point(ctx, "region.invalid", err.Error(), "run", strconv.Itoa(runID), "uri", loc.URI)
				if r.OnInvalid != nil {
					r.OnInvalid(runID, err)
				}
			}
			loc.Range, loc.EndOfLine = region.Normalize(reg)
			if reg.Message != nil {
				msg := reg.Message.Rich()
				loc.Message = &msg
			}
		}
	}

	for _, ll := range node.LogicalLocations {
		switch {
		case ll.FullyQualifiedName != "":
			loc.LogicalLocations = append(loc.LogicalLocations, ll.FullyQualifiedName)
		case ll.Name != "":
			loc.LogicalLocations = append(loc.LogicalLocations, ll.Name)
		}
	}
	return loc, nil
}

// Reresolve asks the user for a replacement when existing is not mapped and
// resolves node again. A mapped location is returned unchanged.
func (r *Resolver) Reresolve(ctx context.Context, existing *nav.Location, node *sarif.Location, runID int) (nav.Location, error) {
	if existing != nil && existing.Mapped {
		return *existing, nil
	}
	if node != nil && node.PhysicalLocation != nil && node.PhysicalLocation.ArtifactLocation != nil && r.Artifacts != nil {
		ref := node.PhysicalLocation.ArtifactLocation
		base := r.uriBase(runID, ref.URIBaseID)
		combined := artifact.Combine(base, ref.URI)
		if err := r.Artifacts.PromptUserToChoose(ctx, combined, base); err != nil {
			// пользователь отказался или выбор не удался, остаёмся на старом
			r.point(ctx, "artifact.prompt", err.Error(), "uri", combined)
		}
	}
	return r.Resolve(ctx, node, runID)
}

// LocationsOf resolves nodes in order. In strict mode the first error stops it.
func (r *Resolver) LocationsOf(ctx context.Context, nodes []sarif.Location, runID int) ([]nav.Location, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	out := make([]nav.Location, 0, len(nodes))
	for i := range nodes {
		loc, err := r.Resolve(ctx, &nodes[i], runID)
		if err != nil {
			return out, err
		}
		out = append(out, loc)
	}
	return out, nil
}

func (r *Resolver) uriBase(runID int, id string) string {
	if r.Bases == nil || id == "" {
		return ""
	}
	return r.Bases.URIBase(runID, id)
}

func (r *Resolver) canonical(uri string) string {
	if c, ok := r.Artifacts.(artifact.Canonicalizer); ok {
		return c.Canonical(uri)
	}
	return artifact.CanonicalURI(uri)
}

func (r *Resolver) point(ctx context.Context, name, detail string, kv ...string) {
	trace.PointFrom(ctx, r.Tracer, trace.ScopeResult, name, detail, kv...)
}
