package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[repochecker]
interval = 6.0

[repos]
stable = ["fedora"]
updates = ["updates"]
testing = ["updates-testing"]
rawhide = ["rawhide"]

[[arch]]
name = "x86_64"
multiarch = ["i686"]

[[arch]]
name = "aarch64"
multiarch = []

[[release]]
name = "rawhide"
type = "rawhide"
arches = ["x86_64", "aarch64"]
archived = false

[[release]]
name = "41"
type = "prerelease"
arches = ["x86_64"]
archived = false

[[release]]
name = "40"
type = "stable"
arches = ["x86_64"]
archived = false

[maintainers]
admin_url = "https://admin.example.test"
roster_url = "https://roster.example.test"
timeout = 15.0
`

func writeConfig(t *testing.T, toml string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repochecker.toml"), []byte(toml), 0o644))
	return dir
}

func TestLoad_FindsFirstSearchPathEntry(t *testing.T) {
	dir := writeConfig(t, sampleTOML)
	orig := SearchPath
	defer func() { SearchPath = orig }()
	SearchPath = []string{dir, "/nonexistent-a", "/nonexistent-b"}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6.0, cfg.RepoChecker.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "none", cfg.Mirror.Backend)
}

func TestLoad_MissingFileIsError(t *testing.T) {
	orig := SearchPath
	defer func() { SearchPath = orig }()
	SearchPath = []string{t.TempDir()}

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidReleaseType(t *testing.T) {
	bad := `
[repochecker]
interval = 6.0
[repos]
stable = ["fedora"]
updates = []
testing = []
rawhide = []
[[arch]]
name = "x86_64"
multiarch = []
[[release]]
name = "40"
type = "nonsense"
arches = ["x86_64"]
archived = false

[maintainers]
admin_url = "https://admin.example.test"
roster_url = "https://roster.example.test"
`
	dir := writeConfig(t, bad)
	orig := SearchPath
	defer func() { SearchPath = orig }()
	SearchPath = []string{dir}

	_, err := Load()
	assert.Error(t, err)
}

func TestToMatrix_RawhidePrereleaseStable(t *testing.T) {
	dir := writeConfig(t, sampleTOML)
	orig := SearchPath
	defer func() { SearchPath = orig }()
	SearchPath = []string{dir}

	cfg, err := Load()
	require.NoError(t, err)

	matrix, err := cfg.ToMatrix()
	require.NoError(t, err)
	require.Len(t, matrix, 4) // rawhide(1) + prerelease(1) + stable(2)

	byKey := make(map[string]bool)
	for _, e := range matrix {
		byKey[e.Key()] = true
	}
	assert.True(t, byKey["rawhide"])
	assert.True(t, byKey["41"])
	assert.True(t, byKey["40"])
	assert.True(t, byKey["40-testing"])
}

func TestToMatrix_StableEntryRepoSets(t *testing.T) {
	dir := writeConfig(t, sampleTOML)
	orig := SearchPath
	defer func() { SearchPath = orig }()
	SearchPath = []string{dir}

	cfg, err := Load()
	require.NoError(t, err)
	matrix, err := cfg.ToMatrix()
	require.NoError(t, err)

	var stable, testing *stableEntries
	for i := range matrix {
		e := matrix[i]
		if e.Release != "40" {
			continue
		}
		if e.WithTesting {
			testing = &stableEntries{repos: e.Repos, check: e.Check}
		} else {
			stable = &stableEntries{repos: e.Repos, check: e.Check}
		}
	}
	require.NotNil(t, stable)
	require.NotNil(t, testing)
	assert.ElementsMatch(t, []string{"fedora", "updates"}, stable.repos)
	assert.ElementsMatch(t, []string{"fedora", "updates"}, stable.check)
	assert.ElementsMatch(t, []string{"fedora", "updates", "updates-testing"}, testing.repos)
	assert.ElementsMatch(t, []string{"updates-testing"}, testing.check)
}

type stableEntries struct {
	repos, check []string
}

func TestToMatrix_MissingMultiarchIsError(t *testing.T) {
	bad := `
[repochecker]
interval = 6.0
[repos]
stable = ["fedora"]
updates = []
testing = []
rawhide = []
[[arch]]
name = "x86_64"
multiarch = []
[[release]]
name = "40"
type = "stable"
arches = ["ppc64le"]
archived = false

[maintainers]
admin_url = "https://admin.example.test"
roster_url = "https://roster.example.test"
`
	dir := writeConfig(t, bad)
	orig := SearchPath
	defer func() { SearchPath = orig }()
	SearchPath = []string{dir}

	cfg, err := Load()
	require.NoError(t, err)

	_, err = cfg.ToMatrix()
	assert.Error(t, err)
}
