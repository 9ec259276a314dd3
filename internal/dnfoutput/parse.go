// Package dnfoutput converts the textual output of the external dependency
// resolution tool's repoquery and repoclosure subcommands into typed
// records.
package dnfoutput

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mkowalski/repochecker/internal/nevra"
)

// Package is one line of a content listing: an installed artifact and the
// source package that produced it.
type Package struct {
	Name       string
	SourceName string
	Epoch      int
	Version    string
	Release    string
	Arch       string
}

// BrokenDep is one record of repoclosure output: an artifact with at least
// one unresolved dependency capability.
type BrokenDep struct {
	Package string
	Epoch   string
	Version string
	Release string
	Arch    string
	Repo    string
	Broken  []string
}

// ParseContentListing parses the output of `repoquery --queryformat "%{name}
// %{source_name} %{epoch} %{version} %{release} %{arch}"`: one record per
// line, six whitespace-separated fields. The whole buffer is trimmed first
// so a trailing blank line never produces a spurious error.
func ParseContentListing(s string) ([]Package, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	lines := strings.Split(s, "\n")
	packages := make([]Package, 0, len(lines))

	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 6 {
			return nil, fmt.Errorf("dnfoutput: expected 6 fields, got %d: %q", len(fields), line)
		}

		epoch, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("dnfoutput: failed to parse epoch in %q: %w", line, err)
		}

		packages = append(packages, Package{
			Name:       fields[0],
			SourceName: fields[1],
			Epoch:      epoch,
			Version:    fields[3],
			Release:    fields[4],
			Arch:       fields[5],
		})
	}

	return packages, nil
}

// ParseClosureOutput parses the output of `repoclosure`: a line-oriented
// state machine with three line shapes — "package: <NEVRA> from <repo>"
// opens a record (committing any previous one), "  unresolved deps:" is
// skipped, and a four-leading-space line appends a capability to the open
// record. Any other line is ignored. The last open record is committed at
// EOF. A four-space line with no open record is a fatal parse error.
func ParseClosureOutput(s string) ([]BrokenDep, error) {
	lines := strings.Split(s, "\n")

	var deps []BrokenDep
	var current *BrokenDep

	commit := func() {
		if current != nil {
			deps = append(deps, *current)
			current = nil
		}
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "package: "):
			commit()

			dep, err := parsePackageLine(line)
			if err != nil {
				return nil, err
			}
			current = dep

		case strings.HasPrefix(line, "  unresolved deps:"):
			continue

		case strings.HasPrefix(line, "    "):
			if current == nil {
				return nil, fmt.Errorf("dnfoutput: unrecognised output from repoclosure: four-space line with no open record: %q", line)
			}
			current.Broken = append(current.Broken, strings.TrimSpace(line))

		default:
			continue
		}
	}

	commit()

	return deps, nil
}

// parsePackageLine parses "package: <NEVRA> from <repo>" — exactly four
// whitespace-separated fields.
func parsePackageLine(line string) (*BrokenDep, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return nil, fmt.Errorf("dnfoutput: failed to parse line from repoclosure output: %q", line)
	}

	n, err := nevra.Parse(fields[1])
	if err != nil {
		return nil, fmt.Errorf("dnfoutput: %w", err)
	}

	return &BrokenDep{
		Package: n.Name,
		Epoch:   n.Epoch,
		Version: n.Version,
		Release: n.Release,
		Arch:    n.Arch,
		Repo:    fields[3],
		Broken:  nil,
	}, nil
}
