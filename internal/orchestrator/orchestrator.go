// Package orchestrator runs the five-step closure-generation pipeline for
// one matrix entry: exclusion detection, per-architecture closure, the
// exclusion filter, the override filter, and the final deterministic sort.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mkowalski/repochecker/internal/dnfoutput"
	"github.com/mkowalski/repochecker/internal/model"
)

// OverrideTree is the subset of *overrides.Tree the orchestrator needs,
// kept narrow so it can be faked in tests without pulling in the override
// file format.
type OverrideTree interface {
	IsOverridden(release, arch, pkg, broken string) bool
}

// Driver is the subset of *driver.Driver the orchestrator needs.
type Driver interface {
	RefreshCache(ctx context.Context, release, arch string, repos []string) error
	EnumerateContents(ctx context.Context, release, arch string, repos []string) ([]dnfoutput.Package, error)
	ClosureCheck(ctx context.Context, release, arch string, repos, multiArch, check []string) ([]dnfoutput.BrokenDep, error)
}

// Run executes the pipeline for entry and returns the sorted, filtered,
// published BrokenItem records (without continuity: `since` is left nil —
// the caller fills it in via the continuity join against the previous
// snapshot).
func Run(ctx context.Context, d Driver, entry model.MatrixEntry, overrideTree OverrideTree, admins map[string]string, maintainers map[string][]string) ([]model.BrokenItem, error) {
	contentsByArch := make(map[string][]dnfoutput.Package, len(entry.Arches))
	builtOnArch := make(map[string]map[string]struct{}, len(entry.Arches))
	union := make(map[string]struct{})

	for _, arch := range entry.Arches {
		contents, err := d.EnumerateContents(ctx, entry.Release, arch.Name, entry.Repos)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: enumerating contents for %s/%s: %w", entry.Release, arch.Name, err)
		}
		contentsByArch[arch.Name] = contents

		built := make(map[string]struct{})
		for _, pkg := range contents {
			built[pkg.SourceName] = struct{}{}
			union[pkg.SourceName] = struct{}{}
		}
		builtOnArch[arch.Name] = built
	}

	excludedByArch := make(map[string]map[string]struct{}, len(entry.Arches))
	for _, arch := range entry.Arches {
		excluded := make(map[string]struct{})
		for name := range union {
			if _, ok := builtOnArch[arch.Name][name]; !ok {
				excluded[name] = struct{}{}
			}
		}
		excludedByArch[arch.Name] = excluded
	}

	var items []model.BrokenItem

	for _, arch := range entry.Arches {
		if err := d.RefreshCache(ctx, entry.Release, arch.Name, entry.Repos); err != nil {
			return nil, fmt.Errorf("orchestrator: refreshing cache for %s/%s: %w", entry.Release, arch.Name, err)
		}

		broken, err := d.ClosureCheck(ctx, entry.Release, arch.Name, entry.Repos, arch.MultiArch, entry.Check)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: closure check for %s/%s: %w", entry.Release, arch.Name, err)
		}

		binaryToSource := buildBinaryToSourceMap(contentsByArch[arch.Name])
		excluded := excludedByArch[arch.Name]

		for _, dep := range broken {
			source, ok := binaryToSource[dep.Package]
			if !ok {
				source, ok = binaryToSourceForSrc(dep)
			}
			if !ok {
				if orphanIsFatal(entry) {
					return nil, fmt.Errorf("orchestrator: closure record %q/%s has no matching content-listing entry", dep.Package, dep.Arch)
				}
				slog.Warn("treating orphan closure record as warning: multiple repos in check set",
					"release", entry.Release, "arch", arch.Name, "package", dep.Package, "repo_arch", arch.Name)
				continue
			}

			if dep.Arch == "src" {
				if _, isExcluded := excluded[source]; isExcluded {
					continue
				}
			}

			admin, ok := admins[source]
			if !ok {
				admin = model.UnknownAdmin
				slog.Info("no known administrator for source package", "source", source)
			}

			sourceMaintainers := maintainers[source]
			if sourceMaintainers == nil {
				sourceMaintainers = []string{}
			}

			items = append(items, model.BrokenItem{
				Source:      source,
				Package:     dep.Package,
				Epoch:       dep.Epoch,
				Version:     dep.Version,
				Release:     dep.Release,
				Arch:        dep.Arch,
				Admin:       admin,
				Maintainers: sourceMaintainers,
				Repo:        dep.Repo,
				RepoArch:    arch.Name,
				Broken:      dep.Broken,
			})
		}
	}

	items = filterOverrides(items, entry.Release, overrideTree)

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Package != b.Package {
			return a.Package < b.Package
		}
		return a.Arch < b.Arch
	})

	return items, nil
}

// orphanIsFatal implements the resolved open question: an orphaned closure
// record (a package named by repoclosure but absent from the content
// listing, non-"src" arch) is fatal only when exactly one repository was
// checked; with more than one repository in the check set it is logged and
// dropped instead, since cross-repo timing skew between repoquery and
// repoclosure becomes far more likely.
func orphanIsFatal(entry model.MatrixEntry) bool {
	return len(entry.Check) <= 1
}

func buildBinaryToSourceMap(contents []dnfoutput.Package) map[string]string {
	m := make(map[string]string, len(contents))
	for _, pkg := range contents {
		if pkg.Arch == "src" {
			m[pkg.Name] = pkg.Name
			continue
		}
		m[pkg.Name] = pkg.SourceName
	}
	return m
}

// binaryToSourceForSrc handles the case where the broken record itself names
// a source artifact not present in any arch's binary content listing (e.g. a
// closure record reported directly against arch "src"): its own name is its
// source name.
func binaryToSourceForSrc(dep dnfoutput.BrokenDep) (string, bool) {
	if dep.Arch == "src" {
		return dep.Package, true
	}
	return "", false
}

func filterOverrides(items []model.BrokenItem, release string, tree OverrideTree) []model.BrokenItem {
	filtered := make([]model.BrokenItem, 0, len(items))
	for _, item := range items {
		kept := item.Broken[:0:0]
		for _, capability := range item.Broken {
			if tree.IsOverridden(release, item.RepoArch, item.Package, capability) {
				continue
			}
			kept = append(kept, capability)
		}
		if len(kept) == 0 {
			continue
		}
		item.Broken = kept
		filtered = append(filtered, item)
	}
	return filtered
}
