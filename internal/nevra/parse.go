// Package nevra parses packaged artifact names of the shape N-[E:]V-R.A into
// their five fields: name, epoch, version, release, arch.
package nevra

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// NEVRA is the five-tuple Name, Epoch, Version, Release, Arch.
type NEVRA struct {
	Name    string
	Epoch   string
	Version string
	Release string
	Arch    string
}

// cacheSize bounds the process-global parse cache. Parsing is a pure function
// of its input, so entries never need invalidating.
const cacheSize = 8192

var cache *lru.Cache[string, NEVRA]

func init() {
	c, err := lru.New[string, NEVRA](cacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which cacheSize never is.
		panic(err)
	}
	cache = c
}

// Parse splits a string of the form N-[E:]V-R.A into its five fields.
//
// The split is from the right: the architecture is peeled off after the last
// '.', then release and epoch-version are peeled off the remainder after the
// last two '-'. A colon in the middle field separates epoch from version; its
// absence means epoch "0".
func Parse(s string) (NEVRA, error) {
	if v, ok := cache.Get(s); ok {
		return v, nil
	}

	v, err := parse(s)
	if err != nil {
		return NEVRA{}, err
	}

	cache.Add(s, v)
	return v, nil
}

func parse(s string) (NEVRA, error) {
	dot := strings.LastIndexByte(s, '.')
	if dot < 0 {
		return NEVRA{}, fmt.Errorf("nevra: failed to parse arch from %q", s)
	}
	arch := s[dot+1:]
	nevr := s[:dot]

	// rsplit nevr into exactly 3 parts on '-': name, epoch-version, release.
	parts, ok := rSplitN(nevr, '-', 3)
	if !ok {
		return NEVRA{}, fmt.Errorf("nevra: failed to parse name/epoch/version/release from %q", nevr)
	}
	name, ev, release := parts[0], parts[1], parts[2]

	epoch, version := "0", ev
	if idx := strings.IndexByte(ev, ':'); idx >= 0 {
		epoch, version = ev[:idx], ev[idx+1:]
	}

	return NEVRA{
		Name:    name,
		Epoch:   epoch,
		Version: version,
		Release: release,
		Arch:    arch,
	}, nil
}

// Format renders a NEVRA back into N-[E:]V-R.A form.
func Format(name, epoch, version, release, arch string) string {
	ev := version
	if epoch != "" && epoch != "0" {
		ev = epoch + ":" + version
	}
	return fmt.Sprintf("%s-%s-%s.%s", name, ev, release, arch)
}

// rSplitN splits s on sep from the right into exactly n parts, in left-to-
// right order (unlike Rust's rsplitn, which returns reverse order). Returns
// ok=false unless splitting produces exactly n parts.
func rSplitN(s string, sep byte, n int) ([]string, bool) {
	parts := make([]string, 0, n)
	rest := s
	for i := 0; i < n-1; i++ {
		idx := strings.LastIndexByte(rest, sep)
		if idx < 0 {
			return nil, false
		}
		parts = append([]string{rest[idx+1:]}, parts...)
		rest = rest[:idx]
	}
	parts = append([]string{rest}, parts...)
	if len(parts) != n {
		return nil, false
	}
	return parts, true
}
