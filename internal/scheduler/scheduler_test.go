package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkowalski/repochecker/internal/dnfoutput"
	"github.com/mkowalski/repochecker/internal/model"
	"github.com/mkowalski/repochecker/internal/persistence"
	"github.com/mkowalski/repochecker/internal/snapshot"
)

type fakeDriver struct {
	contents map[string][]dnfoutput.Package
	broken   map[string][]dnfoutput.BrokenDep
}

func (f *fakeDriver) RefreshCache(ctx context.Context, release, arch string, repos []string) error {
	return nil
}

func (f *fakeDriver) EnumerateContents(ctx context.Context, release, arch string, repos []string) ([]dnfoutput.Package, error) {
	return f.contents[arch], nil
}

func (f *fakeDriver) ClosureCheck(ctx context.Context, release, arch string, repos, multiArch, check []string) ([]dnfoutput.BrokenDep, error) {
	return f.broken[arch], nil
}

type noopMirror struct{ upserted []string }

func (m *noopMirror) Upsert(ctx context.Context, key string, items []model.BrokenItem) error {
	m.upserted = append(m.upserted, key)
	return nil
}
func (m *noopMirror) Close() error { return nil }

type recordingSink struct{ notified []string }

func (r *recordingSink) Notify(key string) { r.notified = append(r.notified, key) }

func testEntry() model.MatrixEntry {
	return model.MatrixEntry{
		Release: "40",
		Arches:  []model.Arch{{Name: "x86_64"}},
		Repos:   []string{"fedora"},
		Check:   []string{"fedora"},
	}
}

func TestApplyContinuity_CarriesSinceForMatchingRecords(t *testing.T) {
	oldSince := time.Now().Add(-48 * time.Hour)
	previous := []model.BrokenItem{
		{Package: "bash", Repo: "fedora", RepoArch: "x86_64", Since: &oldSince},
	}
	now := time.Now()
	fresh := []model.BrokenItem{
		{Package: "bash", Repo: "fedora", RepoArch: "x86_64"},
	}

	out := applyContinuity(fresh, previous, now)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Since)
	assert.True(t, out[0].Since.Equal(oldSince))
}

func TestApplyContinuity_NewRecordGetsCycleStart(t *testing.T) {
	now := time.Now()
	fresh := []model.BrokenItem{{Package: "newpkg", Repo: "fedora", RepoArch: "x86_64"}}

	out := applyContinuity(fresh, nil, now)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Since)
	assert.True(t, out[0].Since.Equal(now))
}

func TestRunWorker_PublishesPersistsMirrorsAndNotifies(t *testing.T) {
	d := &fakeDriver{
		contents: map[string][]dnfoutput.Package{
			"x86_64": {{Name: "bash", SourceName: "bash", Arch: "x86_64"}},
		},
		broken: map[string][]dnfoutput.BrokenDep{
			"x86_64": {{Package: "bash", Arch: "x86_64", Repo: "fedora", Broken: []string{"cap"}}},
		},
	}
	mir := &noopMirror{}
	sink := &recordingSink{}

	snap := snapshot.New()
	snap.SetOverrides(nil)

	s := New(snap, &persistence.Store{BaseDir: t.TempDir()}, mir, d, nil, sink)

	s.runWorker(context.Background(), "test-cycle", testEntry())

	items, ok := snap.Get("40")
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "bash", items[0].Source)
	assert.NotNil(t, items[0].Since)

	assert.Contains(t, mir.upserted, "40")
	assert.Contains(t, sink.notified, "40")
}

func TestRunWorker_ArchivedSkipsLiveGenerationWhenCached(t *testing.T) {
	persist := &persistence.Store{BaseDir: t.TempDir()}
	cached := []model.BrokenItem{{Source: "old", Package: "old", Repo: "fedora", Broken: []string{"cap"}}}
	require.NoError(t, persist.Save("40", cached))

	d := &fakeDriver{
		contents: map[string][]dnfoutput.Package{
			"x86_64": {{Name: "fresh", SourceName: "fresh", Arch: "x86_64"}},
		},
		broken: map[string][]dnfoutput.BrokenDep{
			"x86_64": {{Package: "fresh", Arch: "x86_64", Repo: "fedora", Broken: []string{"cap"}}},
		},
	}

	snap := snapshot.New()
	s := New(snap, persist, &noopMirror{}, d, nil, nil)

	entry := testEntry()
	entry.Archived = true
	s.runWorker(context.Background(), "test-cycle", entry)

	items, ok := snap.Get("40")
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "old", items[0].Source, "archived release must serve the cached snapshot, not run live generation")
}

func TestRunWorker_FreshEntryWithNoCacheRunsLiveGeneration(t *testing.T) {
	d := &fakeDriver{
		contents: map[string][]dnfoutput.Package{
			"x86_64": {{Name: "fresh", SourceName: "fresh", Arch: "x86_64"}},
		},
		broken: map[string][]dnfoutput.BrokenDep{
			"x86_64": {{Package: "fresh", Arch: "x86_64", Repo: "fedora", Broken: []string{"cap"}}},
		},
	}

	snap := snapshot.New()
	s := New(snap, &persistence.Store{BaseDir: t.TempDir()}, &noopMirror{}, d, nil, nil)

	entry := testEntry()
	entry.Archived = true
	s.runWorker(context.Background(), "test-cycle", entry)

	items, ok := snap.Get("40")
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].Source, "no cache on disk means live generation still runs even for archived releases")
}
