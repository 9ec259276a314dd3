// Package overrides loads the hierarchical override file and answers
// whether a broken dependency on a given (release, arch, package) is a known-
// acceptable breakage.
package overrides

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

const filename = "overrides.json"

// SearchPath is tried in order; the first existing file wins. Mirrors the
// configuration file's search path (§6).
var SearchPath = []string{
	".",
	"/etc/repochecker",
	"/usr/share/repochecker",
}

// entry is one leaf of the override tree: either the sentinel "all packages"
// (any JSON string) or an explicit set of affected package names (a JSON
// array of strings).
type entry struct {
	all      bool
	packages map[string]struct{}
}

func (e *entry) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		e.all = true
		return nil
	}

	var asList []string
	if err := json.Unmarshal(data, &asList); err != nil {
		return fmt.Errorf("overrides: leaf is neither a string nor an array of strings: %s", data)
	}

	e.packages = make(map[string]struct{}, len(asList))
	for _, p := range asList {
		e.packages[p] = struct{}{}
	}
	return nil
}

func (e *entry) matches(pkg string) bool {
	if e.all {
		return true
	}
	_, ok := e.packages[pkg]
	return ok
}

// MarshalJSON round-trips a leaf back to its on-disk shape: the sentinel
// "all" string, or the sorted package list.
func (e *entry) MarshalJSON() ([]byte, error) {
	if e.all {
		return json.Marshal("all")
	}

	list := make([]string, 0, len(e.packages))
	for p := range e.packages {
		list = append(list, p)
	}
	sort.Strings(list)
	return json.Marshal(list)
}

// packageOverrides maps broken-capability string to its override entry.
type packageOverrides map[string]*entry

// releaseOverrides maps arch (including "all") to its package overrides.
type releaseOverrides map[string]packageOverrides

// raw is the on-disk shape: release (including "all") -> arch -> broken -> entry.
type raw map[string]releaseOverrides

// Tree is the loaded, queryable override hierarchy with per-leaf hit counts.
type Tree struct {
	data  raw
	stats *counterStore
}

// Load reads and parses the overrides file found on SearchPath, seeding a
// zero-valued hit counter for every structural leaf path.
func Load() (*Tree, error) {
	path, err := findFile()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile parses the overrides file at path directly, bypassing the search
// path. Load calls it once the file is found; tests call it directly.
func LoadFile(path string) (*Tree, error) {
	slog.Info("loading overrides file", "path", path)

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("overrides: %w", err)
	}

	var data raw
	if err := json.Unmarshal(contents, &data); err != nil {
		return nil, fmt.Errorf("overrides: malformed overrides file: %w", err)
	}

	t := &Tree{data: data, stats: newCounterStore()}
	t.seedStats()
	return t, nil
}

func findFile() (string, error) {
	for _, dir := range SearchPath {
		p := filepath.Join(dir, filename)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("overrides: no overrides file found on search path %v", SearchPath)
}

func (t *Tree) seedStats() {
	for release, byArch := range t.data {
		for arch, byBroken := range byArch {
			for broken, e := range byBroken {
				pkg := "all"
				if !e.all {
					for p := range e.packages {
						t.stats.seed(leafPath(release, arch, broken, p))
					}
					if len(e.packages) == 0 {
						t.stats.seed(leafPath(release, arch, broken, pkg))
					}
					continue
				}
				t.stats.seed(leafPath(release, arch, broken, pkg))
			}
		}
	}
}

func leafPath(release, arch, broken, pkg string) string {
	return release + "/" + arch + "/" + broken + "/" + pkg
}

// IsOverridden reports whether the broken capability dependency of package
// on (release, arch) is suppressed by the override tree. It consults four
// tables in strict most-specific-first order: release/arch, release/all,
// all/arch, all/all. The first match increments that leaf's hit counter and
// returns true. A missing release or arch branch is a misconfiguration: it
// is logged and treated as no suppression, never aborts the caller. A nil
// Tree (no overrides loaded) suppresses nothing.
func (t *Tree) IsOverridden(release, arch, pkg, broken string) bool {
	if t == nil {
		return false
	}

	type candidate struct {
		release, arch string
	}

	for _, c := range []candidate{
		{release, arch},
		{release, "all"},
		{"all", arch},
		{"all", "all"},
	} {
		byArch, ok := t.data[c.release]
		if !ok {
			slog.Debug("overrides: no branch for release", "release", c.release)
			continue
		}
		byBroken, ok := byArch[c.arch]
		if !ok {
			slog.Debug("overrides: no branch for arch", "release", c.release, "arch", c.arch)
			continue
		}
		e, ok := byBroken[broken]
		if !ok {
			continue
		}
		if !e.matches(pkg) {
			continue
		}

		matchedPkg := pkg
		if e.all {
			matchedPkg = "all"
		}
		t.stats.increment(leafPath(c.release, c.arch, broken, matchedPkg))
		return true
	}

	return false
}

// Stats returns a snapshot of every structural leaf path and its hit count.
func (t *Tree) Stats() map[string]int64 {
	return t.stats.snapshot()
}

// MarshalJSON serializes the loaded tree back to its on-disk shape, for the
// `/overrides` HTTP endpoint.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.data)
}
