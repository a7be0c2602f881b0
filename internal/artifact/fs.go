package artifact

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"sarifnav/internal/sarif"
)

// DefaultExcludes are skipped while searching roots.
var DefaultExcludes = []string{"**/.git/**", "**/node_modules/**", "**/.cache/**"}

// FSOptions configures an FSResolver.
type FSOptions struct {
	// SearchRoots are directories searched for a file with the same base name
	// when a reference cannot be found as given.
	SearchRoots []string
	// Excludes are doublestar patterns, relative to a root, that are not searched.
	Excludes []string
	// CaseInsensitive folds case when comparing URIs.
	CaseInsensitive bool
	// Cache holds user choices; nil keeps nothing.
	Cache *ChoiceCache
	// Chooser answers PromptUserToChoose; nil makes prompting a no-op.
	Chooser Chooser
}

// FSResolver resolves artifact references against the local file system.
type FSResolver struct {
	opts FSOptions

	mu        sync.RWMutex
	runs      map[int][]sarif.Artifact
	bases     map[int]map[string]string
	memo      map[memoKey]Mapping // mapped and unmapped outcomes per run
	listeners map[int]func(MappingChange)
	nextSub   int
}

type memoKey struct {
	run int
	key string
}

// NewFSResolver creates a resolver.
func NewFSResolver(opts FSOptions) *FSResolver {
	if opts.Excludes == nil {
		opts.Excludes = DefaultExcludes
	}
	if opts.Cache == nil {
		opts.Cache = NewMemoryChoiceCache()
	}
	return &FSResolver{
		opts:      opts,
		runs:      make(map[int][]sarif.Artifact),
		bases:     make(map[int]map[string]string),
		memo:      make(map[memoKey]Mapping),
		listeners: make(map[int]func(MappingChange)),
	}
}

// AddSearchRoot appends dir to the search roots unless it is already there.
func (r *FSResolver) AddSearchRoot(dir string) {
	if dir == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, root := range r.opts.SearchRoots {
		if root == dir {
			return
		}
	}
	roots := make([]string, 0, len(r.opts.SearchRoots)+1)
	roots = append(roots, r.opts.SearchRoots...)
	r.opts.SearchRoots = append(roots, dir)
	// новый корень может найти то, что раньше не нашлось
	for k, m := range r.memo {
		if !m.Mapped {
			delete(r.memo, k)
		}
	}
}

func (r *FSResolver) searchRoots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.opts.SearchRoots
}

// Canonical normalizes uri, folding case when configured to.
func (r *FSResolver) Canonical(uri string) string {
	if r.opts.CaseInsensitive {
		return FoldURI(uri)
	}
	return CanonicalURI(uri)
}

func (r *FSResolver) key(uri string) string {
	return FoldURI(uri)
}

// Resolve implements Resolver.
func (r *FSResolver) Resolve(ctx context.Context, ref sarif.ArtifactLocation, runID int, uriBase string) Mapping {
	uri := ref.URI
	if uri == "" && ref.Index != nil {
		uri, uriBase = r.declared(runID, *ref.Index, uriBase)
	}
	combined := Combine(uriBase, uri)
	if combined == "" {
		return Mapping{}
	}
	key := r.key(combined)

	if ch, ok := r.opts.Cache.Get(key); ok {
		if m, ok := r.existing(ch.Target); ok {
			return m
		}
	}

	r.mu.RLock()
	m, ok := r.memo[memoKey{runID, key}]
	r.mu.RUnlock()
	if ok {
		return m
	}

	m = r.lookup(ctx, combined)
	// прерванный поиск неполон, его не запоминаем
	if ctx.Err() == nil {
		r.mu.Lock()
		r.memo[memoKey{runID, key}] = m
		r.mu.Unlock()
	}
	return m
}

func (r *FSResolver) declared(runID, index int, uriBase string) (string, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	arts := r.runs[runID]
	if index < 0 || index >= len(arts) || arts[index].Location == nil {
		return "", uriBase
	}
	loc := arts[index].Location
	if uriBase == "" && loc.URIBaseID != "" {
		uriBase = r.bases[runID][loc.URIBaseID]
	}
	return loc.URI, uriBase
}

func (r *FSResolver) lookup(ctx context.Context, combined string) Mapping {
	if m, ok := r.existing(combined); ok {
		return m
	}
	if p, ok := LocalPath(combined); ok && !filepath.IsAbs(p) {
		for _, root := range r.searchRoots() {
			if m, ok := r.existing(filepath.Join(root, p)); ok {
				return m
			}
		}
	}
	matches, overlap := r.search(ctx, combined)
	if len(matches) == 1 && overlap >= requiredOverlap(combined) {
		return Mapping{URI: FileURI(matches[0]), Mapped: true}
	}
	return Mapping{URI: combined}
}

func (r *FSResolver) existing(uri string) (Mapping, bool) {
	p, ok := LocalPath(uri)
	if !ok {
		return Mapping{}, false
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return Mapping{}, false
	}
	return Mapping{URI: FileURI(p), Mapped: true}, true
}

func searchPath(uri string) string {
	p, ok := LocalPath(uri)
	if !ok {
		// не file://, ищем по пути из URI
		p = uri
	}
	return filepath.ToSlash(p)
}

// requiredOverlap is how many trailing path segments a lone search match
// must share with uri to be mapped without asking: the base name plus one
// directory, or just the base name when uri has no directory.
func requiredOverlap(uri string) int {
	return min(2, len(segments(searchPath(uri))))
}

func segments(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

// search returns the files under the search roots whose base name matches
// uri, narrowed to those sharing the longest path suffix with it, and the
// number of segments they share.
func (r *FSResolver) search(ctx context.Context, uri string) ([]string, int) {
	p := searchPath(uri)
	base := path.Base(p)
	if base == "" || base == "." || base == "/" {
		return nil, 0
	}
	pattern := "**/" + base
	if r.opts.CaseInsensitive {
		pattern = "**/" + strings.ToLower(base)
	}

	var found []string
	for _, root := range r.searchRoots() {
		_ = filepath.WalkDir(root, func(full string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			rel, relErr := filepath.Rel(root, full)
			if relErr != nil || rel == "." {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if r.excluded(rel) || r.excluded(rel+"/") {
					return fs.SkipDir
				}
				return nil
			}
			cmp := rel
			if r.opts.CaseInsensitive {
				cmp = strings.ToLower(rel)
			}
			if matched, err := doublestar.Match(pattern, cmp); err == nil && matched && !r.excluded(rel) {
				found = append(found, full)
			}
			return nil
		})
	}
	return bestSuffix(found, p, r.opts.CaseInsensitive)
}

func (r *FSResolver) excluded(rel string) bool {
	for _, pattern := range r.opts.Excludes {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func bestSuffix(found []string, want string, fold bool) ([]string, int) {
	wantSegs := segments(want)
	best := -1
	var out []string
	for _, f := range found {
		segs := segments(filepath.ToSlash(f))
		n := 0
		for n < len(segs) && n < len(wantSegs) {
			a, b := segs[len(segs)-1-n], wantSegs[len(wantSegs)-1-n]
			if a != b && !(fold && strings.EqualFold(a, b)) {
				break
			}
			n++
		}
		switch {
		case n > best:
			best = n
			out = []string{f}
		case n == best:
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out, max(best, 0)
}

// PromptUserToChoose asks the configured Chooser for a replacement of uri,
// remembers the answer and notifies subscribers.
func (r *FSResolver) PromptUserToChoose(ctx context.Context, uri, uriBase string) error {
	if r.opts.Chooser == nil {
		return nil
	}
	combined := Combine(uriBase, uri)
	candidates, _ := r.search(ctx, combined)
	target, err := r.opts.Chooser.Choose(ctx, combined, uriBase, candidates)
	if err != nil {
		return fmt.Errorf("choose %s: %w", combined, err)
	}
	m, ok := r.existing(target)
	if !ok {
		return fmt.Errorf("choose %s: %q is not a file", combined, target)
	}
	return r.Remember(combined, uriBase, m.URI)
}

// Remember stores target as the answer for combined and notifies subscribers.
func (r *FSResolver) Remember(combined, uriBase, target string) error {
	key := r.key(combined)
	if err := r.opts.Cache.Put(key, Choice{Target: target, URIBase: uriBase, Chosen: time.Now()}); err != nil {
		return fmt.Errorf("remember %s: %w", combined, err)
	}

	r.mu.Lock()
	for k := range r.memo {
		if k.key == key {
			delete(r.memo, k)
		}
	}
	subs := make([]func(MappingChange), 0, len(r.listeners))
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		subs = append(subs, r.listeners[id])
	}
	r.mu.Unlock()

	change := MappingChange{Key: combined, URIBase: uriBase, Target: target}
	for _, fn := range subs {
		fn(change)
	}
	return nil
}

// OnMappingChanged implements Resolver.
func (r *FSResolver) OnMappingChanged(fn func(MappingChange)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.listeners[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// ResolveRunArtifacts remembers the artifacts of a run (for index-only
// references) and resolves every declared location once.
func (r *FSResolver) ResolveRunArtifacts(ctx context.Context, runID int, artifacts []sarif.Artifact, bases map[string]string) {
	r.mu.Lock()
	r.runs[runID] = artifacts
	r.bases[runID] = bases
	r.mu.Unlock()

	for _, a := range artifacts {
		if a.Location == nil || a.Location.URI == "" {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		r.Resolve(ctx, *a.Location, runID, bases[a.Location.URIBaseID])
	}
}

// ForgetRun drops what was memoized for runID.
func (r *FSResolver) ForgetRun(runID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, runID)
	delete(r.bases, runID)
	for k := range r.memo {
		if k.run == runID {
			delete(r.memo, k)
		}
	}
}

var _ Resolver = (*FSResolver)(nil)
var _ Canonicalizer = (*FSResolver)(nil)
