// Package model holds the data types shared across the closure-generation
// pipeline: the internal Package representation, the published BrokenItem
// shape, and the matrix entry produced by configuration expansion.
package model

import "time"

// Package is the internal representation of one artifact in a content
// listing. Arch "src" designates a source artifact and is excluded from the
// binary-to-source map built from a content listing.
type Package struct {
	Name       string
	SourceName string
	Epoch      int
	Version    string
	Release    string
	Arch       string
}

// BrokenItem is the published shape of one package whose runtime
// dependencies cannot be satisfied from its declared repository set.
//
// Invariant: Broken is never empty in a published item — an item losing all
// of its capabilities to override suppression is dropped by the caller
// before publication.
type BrokenItem struct {
	Source      string     `json:"source"`
	Package     string     `json:"package"`
	Epoch       string     `json:"epoch"`
	Version     string     `json:"version"`
	Release     string     `json:"release"`
	Arch        string     `json:"arch"`
	Admin       string     `json:"admin"`
	Maintainers []string   `json:"maintainers"`
	Repo        string     `json:"repo"`
	RepoArch    string     `json:"repo_arch"`
	Broken      []string   `json:"broken"`
	Since       *time.Time `json:"since,omitempty"`
}

// UnknownAdmin is the sentinel used when a package has no known administrator.
const UnknownAdmin = "(N/A)"

// Arch is one architecture entry of a MatrixEntry, with its resolved
// multi-arch list (secondary architectures whose binaries are considered
// installable alongside the primary one).
type Arch struct {
	Name      string
	MultiArch []string
}

// MatrixEntry is one unit of work for one refresh cycle: a release, the
// architectures to check it on, the full repository set installed while
// querying, the subset of that set subject to closure checking, and whether
// this is the "-testing" variant.
type MatrixEntry struct {
	Release     string
	Arches      []Arch
	Repos       []string
	Check       []string
	WithTesting bool
	Archived    bool
}

// Key returns the snapshot key for this entry: "<release>" or
// "<release>-testing".
func (e MatrixEntry) Key() string {
	if e.WithTesting {
		return e.Release + "-testing"
	}
	return e.Release
}
