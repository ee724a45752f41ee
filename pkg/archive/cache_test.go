package archive

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/debstat/debstat/pkg/depgraph"
	"github.com/debstat/debstat/pkg/resolve"
)

// countingOracle records how many upstream lookups each key triggers.
type countingOracle struct {
	mu     sync.Mutex
	calls  map[string]int
	delay  time.Duration
	status Status
}

func (o *countingOracle) Lookup(_ context.Context, name, version string) Status {
	o.mu.Lock()
	if o.calls == nil {
		o.calls = make(map[string]int)
	}
	o.calls[name+" "+version]++
	o.mu.Unlock()
	if o.delay > 0 {
		time.Sleep(o.delay)
	}
	return o.status
}

func (o *countingOracle) count(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[key]
}

func TestCacheConcurrentLookupsSingleCall(t *testing.T) {
	oracle := &countingOracle{delay: 20 * time.Millisecond, status: Status{Kind: InArchive}}
	c := NewCache(oracle)

	var wg sync.WaitGroup
	var hits atomic.Int32
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := c.Lookup(t.Context(), "serde", "1.0.200")
			if st.Kind == InArchive {
				hits.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := oracle.count("serde 1.0.200"); got != 1 {
		t.Errorf("upstream calls = %d, want exactly 1", got)
	}
	if hits.Load() != 50 {
		t.Errorf("only %d of 50 callers saw the result", hits.Load())
	}
}

func TestCacheMemoizesAcrossSequentialLookups(t *testing.T) {
	oracle := &countingOracle{status: Status{Kind: Outdated, ArchiveVersion: "2.1.0"}}
	c := NewCache(oracle)

	first := c.Lookup(t.Context(), "bar", "2.3.0")
	second := c.Lookup(t.Context(), "bar", "2.3.0")
	if first != second {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}
	if got := oracle.count("bar 2.3.0"); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
	if c.Len() != 1 {
		t.Errorf("cache holds %d keys, want 1", c.Len())
	}
}

func TestCacheDistinctVersionsAreDistinctKeys(t *testing.T) {
	oracle := &countingOracle{status: Status{Kind: InArchive}}
	c := NewCache(oracle)

	c.Lookup(t.Context(), "shared", "1.0.0")
	c.Lookup(t.Context(), "shared", "2.0.0")
	if got := oracle.count("shared 1.0.0"); got != 1 {
		t.Errorf("shared 1.0.0 calls = %d, want 1", got)
	}
	if got := oracle.count("shared 2.0.0"); got != 1 {
		t.Errorf("shared 2.0.0 calls = %d, want 1", got)
	}
}

func TestCachePrefetchCoversRegistryPackages(t *testing.T) {
	snap := prefetchSnapshot()
	g, err := depgraph.Build(snap, depgraph.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	oracle := &countingOracle{delay: 5 * time.Millisecond, status: Status{Kind: InArchive}}
	c := NewCache(oracle)
	if err := c.Prefetch(t.Context(), g, 4); err != nil {
		t.Fatalf("Prefetch: %v", err)
	}

	want := len(g.RegistryIDs())
	if c.Len() != want {
		t.Errorf("cache holds %d keys, want %d", c.Len(), want)
	}
	// Traversal after prefetch must be pure cache reads.
	for _, id := range g.RegistryIDs() {
		c.Lookup(t.Context(), id.Name, id.Version)
		if got := oracle.count(id.Name + " " + id.Version); got != 1 {
			t.Errorf("%s: upstream calls = %d, want 1", id, got)
		}
	}
}

func TestOfflineOracle(t *testing.T) {
	st := Offline{}.Lookup(t.Context(), "anything", "1.0.0")
	if st.Kind != LookupFailed || st.Reason != "offline" {
		t.Errorf("got %+v, want LookupFailed(offline)", st)
	}
}

func prefetchSnapshot() *resolve.Snapshot {
	const registry = "registry+https://github.com/rust-lang/crates.io-index"
	pkg := func(name, version string, deps ...resolve.Dependency) resolve.Package {
		src := registry
		if name == "app" {
			src = ""
		}
		return resolve.Package{
			ID: name + " " + version, Name: name, Version: version, Source: src,
			ManifestPath: "/src/" + name + "/Cargo.toml",
			Dependencies: deps,
		}
	}
	dep := func(name string) resolve.Dependency {
		return resolve.Dependency{Name: name, Req: "^1", UsesDefault: true}
	}
	snap := &resolve.Snapshot{
		Version: 1,
		Packages: []resolve.Package{
			pkg("app", "0.1.0", dep("alpha"), dep("beta")),
			pkg("alpha", "1.0.0", dep("gamma")),
			pkg("beta", "1.1.0"),
			pkg("gamma", "1.2.0"),
		},
		WorkspaceMembers: []string{"app 0.1.0"},
		Resolve: &resolve.Resolve{
			Root: "app 0.1.0",
			Nodes: []resolve.Node{
				{ID: "app 0.1.0", Deps: []resolve.NodeDep{
					{Name: "alpha", Pkg: "alpha 1.0.0", DepKinds: []resolve.DepKind{{}}},
					{Name: "beta", Pkg: "beta 1.1.0", DepKinds: []resolve.DepKind{{}}},
				}},
				{ID: "alpha 1.0.0", Deps: []resolve.NodeDep{
					{Name: "gamma", Pkg: "gamma 1.2.0", DepKinds: []resolve.DepKind{{}}},
				}},
				{ID: "beta 1.1.0"},
				{ID: "gamma 1.2.0"},
			},
		},
	}
	return snap
}
