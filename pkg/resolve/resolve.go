// Package resolve reads the snapshot produced by the package manager's
// dependency resolver.
//
// The snapshot is the JSON document emitted by `cargo metadata
// --format-version 1`: a flat list of packages plus a resolve section whose
// nodes carry the version-pinned dependency edges, per-edge kinds and
// platform conditionals, and the feature sets the resolver enabled. The
// document is treated as an immutable input; this package only decodes and
// validates it.
package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrNoResolve is returned when the snapshot has no resolve section.
	// Without it there is no pinned graph to report on.
	ErrNoResolve = errors.New("snapshot has no resolve graph (resolver must be run with dependencies)")

	// ErrStaleResolver is returned when resolve nodes lack per-edge kind
	// metadata, which older resolvers did not emit.
	ErrStaleResolver = errors.New("resolve nodes lack dependency kinds (resolver too old)")
)

// Dependency is a declared requirement from a package's manifest.
type Dependency struct {
	Name            string   `json:"name"`
	Req             string   `json:"req"`
	Kind            string   `json:"kind"` // "", "build" or "dev"
	Optional        bool     `json:"optional"`
	Target          string   `json:"target"` // platform cfg expression, empty if unconditional
	Features        []string `json:"features"`
	UsesDefault     bool     `json:"uses_default_features"`
	RenamedAs       string   `json:"rename"`
	RegistryInstead string   `json:"registry"`
}

// Package is one resolved package instance.
type Package struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Source       string              `json:"source"` // empty for path packages
	ManifestPath string              `json:"manifest_path"`
	License      string              `json:"license"`
	Repository   string              `json:"repository"`
	Dependencies []Dependency        `json:"dependencies"`
	Features     map[string][]string `json:"features"`
}

// DepKind describes one reason an edge exists: its dependency kind and an
// optional platform conditional.
type DepKind struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// NodeDep is one resolved edge from a resolve node.
type NodeDep struct {
	Name     string    `json:"name"`
	Pkg      string    `json:"pkg"` // package ID of the target
	DepKinds []DepKind `json:"dep_kinds"`
}

// Node is one vertex of the resolved graph.
type Node struct {
	ID       string    `json:"id"`
	Deps     []NodeDep `json:"deps"`
	Features []string  `json:"features"` // features the resolver enabled
}

// Snapshot is the full resolver output for one invocation.
type Snapshot struct {
	Packages         []Package `json:"packages"`
	WorkspaceMembers []string  `json:"workspace_members"`
	Resolve          *Resolve  `json:"resolve"`
	Version          int       `json:"version"`
}

// Resolve is the pinned dependency graph.
type Resolve struct {
	Root  string `json:"root"` // empty for virtual workspaces
	Nodes []Node `json:"nodes"`
}

// Load decodes and validates a snapshot from r.
func Load(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode resolver snapshot: %w", err)
	}
	if err := snap.validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// LoadFile reads a snapshot from path, or from stdin when path is "-".
func LoadFile(path string) (*Snapshot, error) {
	if path == "-" {
		return Load(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

func (s *Snapshot) validate() error {
	if s.Resolve == nil {
		return ErrNoResolve
	}
	for _, n := range s.Resolve.Nodes {
		for _, d := range n.Deps {
			if len(d.DepKinds) == 0 {
				return ErrStaleResolver
			}
		}
	}
	return nil
}

// PackageByID returns the package with the given resolver ID.
func (s *Snapshot) PackageByID(id string) (*Package, bool) {
	for i := range s.Packages {
		if s.Packages[i].ID == id {
			return &s.Packages[i], true
		}
	}
	return nil, false
}
