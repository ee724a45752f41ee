package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSnapshot = `{
  "packages": [
    {
      "id": "app 0.1.0 (path+file:///work/app)",
      "name": "app",
      "version": "0.1.0",
      "source": "",
      "manifest_path": "/work/app/Cargo.toml",
      "dependencies": [
        {"name": "serde", "req": "^1.0", "kind": "", "optional": false, "uses_default_features": true}
      ],
      "features": {}
    },
    {
      "id": "serde 1.0.200 (registry+https://github.com/rust-lang/crates.io-index)",
      "name": "serde",
      "version": "1.0.200",
      "source": "registry+https://github.com/rust-lang/crates.io-index",
      "license": "MIT OR Apache-2.0",
      "dependencies": [],
      "features": {"default": [], "derive": []}
    }
  ],
  "workspace_members": ["app 0.1.0 (path+file:///work/app)"],
  "resolve": {
    "root": "app 0.1.0 (path+file:///work/app)",
    "nodes": [
      {
        "id": "app 0.1.0 (path+file:///work/app)",
        "deps": [
          {
            "name": "serde",
            "pkg": "serde 1.0.200 (registry+https://github.com/rust-lang/crates.io-index)",
            "dep_kinds": [{"kind": null, "target": null}]
          }
        ],
        "features": []
      },
      {
        "id": "serde 1.0.200 (registry+https://github.com/rust-lang/crates.io-index)",
        "deps": [],
        "features": ["default"]
      }
    ]
  },
  "version": 1
}`

func TestLoad(t *testing.T) {
	snap, err := Load(strings.NewReader(sampleSnapshot))
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Packages) != 2 {
		t.Fatalf("packages = %d, want 2", len(snap.Packages))
	}
	if snap.Resolve == nil || snap.Resolve.Root == "" {
		t.Fatal("resolve section not decoded")
	}
	if len(snap.Resolve.Nodes[0].Deps) != 1 {
		t.Fatalf("root deps = %d, want 1", len(snap.Resolve.Nodes[0].Deps))
	}
	dep := snap.Packages[0].Dependencies[0]
	if dep.Req != "^1.0" || !dep.UsesDefault {
		t.Errorf("dependency fields not decoded: %+v", dep)
	}
}

func TestLoadRejectsMissingResolve(t *testing.T) {
	_, err := Load(strings.NewReader(`{"packages": [], "version": 1}`))
	if !errors.Is(err, ErrNoResolve) {
		t.Fatalf("err = %v, want ErrNoResolve", err)
	}
}

func TestLoadRejectsStaleResolver(t *testing.T) {
	doc := `{
  "packages": [],
  "resolve": {
    "nodes": [
      {"id": "a 1.0.0 (x)", "deps": [{"name": "b", "pkg": "b 1.0.0 (x)", "dep_kinds": []}]}
    ]
  },
  "version": 1
}`
	_, err := Load(strings.NewReader(doc))
	if !errors.Is(err, ErrStaleResolver) {
		t.Fatalf("err = %v, want ErrStaleResolver", err)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load(strings.NewReader("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	if err := os.WriteFile(path, []byte(sampleSnapshot), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.WorkspaceMembers) != 1 {
		t.Fatalf("workspace members = %d, want 1", len(snap.WorkspaceMembers))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPackageByID(t *testing.T) {
	snap, err := Load(strings.NewReader(sampleSnapshot))
	if err != nil {
		t.Fatal(err)
	}
	pkg, ok := snap.PackageByID("serde 1.0.200 (registry+https://github.com/rust-lang/crates.io-index)")
	if !ok {
		t.Fatal("PackageByID returned no match")
	}
	if pkg.Name != "serde" {
		t.Errorf("Name = %q, want serde", pkg.Name)
	}
	if _, ok := snap.PackageByID("nope 0.0.0 (x)"); ok {
		t.Error("PackageByID matched a nonexistent ID")
	}
}
