package depgraph

import (
	"slices"
	"strings"

	"github.com/debstat/debstat/pkg/resolve"
)

// unifyFeatures computes the union of enabled features per resolved package
// and the set of optional dependencies those features activate.
//
// The computation is a worklist fixed point seeded from the workspace
// members. Enabling a feature walks its specifier list: plain names enable
// sibling features, "dep:name" and bare optional-dependency names activate
// the optional dependency, "name/feat" activates the dependency and forwards
// the feature, and "name?/feat" forwards only if the dependency is already
// active. Activating a package enables its defaults as requested by each
// live incoming declaration plus the declaration's explicit feature list.
//
// Weak specifiers ("name?/feat") are evaluated against the activation state
// at the time the enclosing feature is processed. An optional dependency
// activated later by an unrelated feature does not re-trigger earlier weak
// forwards, which can under-enable features on deep optional chains.
func (b *builder) unifyFeatures() {
	b.enabled = make(map[string]map[string]bool)
	b.liveDep = make(map[string]map[string]bool)
	b.active = make(map[string]bool)

	members := slices.Clone(b.snap.WorkspaceMembers)
	slices.Sort(members)
	for _, m := range members {
		if _, ok := b.pkgs[m]; !ok {
			continue
		}
		b.activate(m)
		rn := b.rnodes[m]
		if rn == nil {
			continue
		}
		feats := slices.Clone(rn.Features)
		slices.Sort(feats)
		for _, f := range feats {
			b.enable(m, f)
		}
	}
}

// activate marks a package reachable and processes its non-optional edges
// and default features.
func (b *builder) activate(id string) {
	if b.active[id] {
		return
	}
	b.active[id] = true
	pkg := b.pkgs[id]

	for _, dep := range b.sortedDeps(id) {
		toPkg, ok := b.pkgs[dep.Pkg]
		if !ok {
			continue
		}
		for _, dk := range dep.DepKinds {
			if parseKind(dk.Kind) == KindDev && b.opts.NoDev {
				continue
			}
			if ok, err := b.applies(dk.Target); err != nil || !ok {
				continue
			}
			decl := findDecl(pkg, toPkg.Name, dep.Name, dk.Kind)
			if decl != nil && decl.Optional {
				continue
			}
			b.followDecl(id, dep.Pkg, toPkg, decl)
		}
	}
}

// followDecl activates a dependency target and enables the features its
// declaration requests.
func (b *builder) followDecl(fromID, toID string, toPkg *resolve.Package, decl *resolve.Dependency) {
	b.activate(toID)
	useDefault := true
	var feats []string
	if decl != nil {
		useDefault = decl.UsesDefault
		feats = decl.Features
	}
	if useDefault {
		if _, ok := toPkg.Features["default"]; ok {
			b.enable(toID, "default")
		}
	}
	for _, f := range feats {
		b.enable(toID, f)
	}
}

// enable turns on one feature of one resolved package and chases its
// specifier list.
func (b *builder) enable(id, feature string) {
	set := b.enabled[id]
	if set == nil {
		set = make(map[string]bool)
		b.enabled[id] = set
	}
	if set[feature] {
		return
	}
	set[feature] = true

	pkg := b.pkgs[id]
	specs, ok := pkg.Features[feature]
	if !ok {
		return
	}
	for _, spec := range specs {
		switch {
		case strings.HasPrefix(spec, "dep:"):
			b.activateDep(id, spec[len("dep:"):])
		case strings.Contains(spec, "/"):
			name, feat, _ := strings.Cut(spec, "/")
			weak := strings.HasSuffix(name, "?")
			name = strings.TrimSuffix(name, "?")
			depID, depLive := b.depState(id, name)
			if weak {
				if depLive {
					b.enable(depID, feat)
				}
				continue
			}
			b.activateDep(id, name)
			if depID != "" {
				b.enable(depID, feat)
			}
		default:
			if _, sibling := pkg.Features[spec]; sibling {
				b.enable(id, spec)
				continue
			}
			b.activateDep(id, spec)
		}
	}
}

// activateDep marks an optional dependency live and follows its declaration.
func (b *builder) activateDep(id, name string) {
	norm := normalizeName(name)
	live := b.liveDep[id]
	if live == nil {
		live = make(map[string]bool)
		b.liveDep[id] = live
	}
	if live[norm] {
		return
	}

	pkg := b.pkgs[id]
	for _, dep := range b.sortedDeps(id) {
		toPkg, ok := b.pkgs[dep.Pkg]
		if !ok || normalizeName(toPkg.Name) != norm {
			continue
		}
		for _, dk := range dep.DepKinds {
			if parseKind(dk.Kind) == KindDev && b.opts.NoDev {
				continue
			}
			if ok, err := b.applies(dk.Target); err != nil || !ok {
				continue
			}
			live[norm] = true
			decl := findDecl(pkg, toPkg.Name, dep.Name, dk.Kind)
			b.followDecl(id, dep.Pkg, toPkg, decl)
		}
	}
}

// depState reports the resolver ID of a named dependency and whether it is
// already activated as an optional dependency of id.
func (b *builder) depState(id, name string) (string, bool) {
	norm := normalizeName(name)
	rn := b.rnodes[id]
	if rn == nil {
		return "", false
	}
	for _, dep := range rn.Deps {
		toPkg, ok := b.pkgs[dep.Pkg]
		if ok && normalizeName(toPkg.Name) == norm {
			return dep.Pkg, b.liveDep[id][norm]
		}
	}
	return "", false
}

func (b *builder) sortedDeps(id string) []resolve.NodeDep {
	rn := b.rnodes[id]
	if rn == nil {
		return nil
	}
	deps := slices.Clone(rn.Deps)
	slices.SortFunc(deps, func(a, c resolve.NodeDep) int {
		return strings.Compare(a.Pkg, c.Pkg)
	})
	return deps
}
