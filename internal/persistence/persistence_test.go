package persistence

import (
	"testing"
	"time"

	"github.com/mkowalski/repochecker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := &Store{BaseDir: t.TempDir()}
	now := time.Now().UTC().Truncate(time.Second)

	items := []model.BrokenItem{
		{
			Source:      "java-websocket",
			Package:     "java-websocket",
			Epoch:       "0",
			Version:     "1.5.3",
			Release:     "1.fc40",
			Arch:        "noarch",
			Admin:       "alice",
			Maintainers: []string{"alice", "bob"},
			Repo:        "fedora",
			RepoArch:    "x86_64",
			Broken:      []string{"libfoo.so.1()(64bit)"},
			Since:       &now,
		},
	}

	require.NoError(t, s.Save("f40", items))

	loaded, ok, err := s.Load("f40")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded, 1)
	assert.Equal(t, items[0].Package, loaded[0].Package)
	assert.Equal(t, items[0].Since.Unix(), loaded[0].Since.Unix())
}

func TestLoad_MissingFileIsNotError(t *testing.T) {
	s := &Store{BaseDir: t.TempDir()}
	items, ok, err := s.Load("f40-testing")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, items)
}

func TestSave_ReplacesExistingFile(t *testing.T) {
	s := &Store{BaseDir: t.TempDir()}
	require.NoError(t, s.Save("f40", []model.BrokenItem{{Package: "a"}}))
	require.NoError(t, s.Save("f40", []model.BrokenItem{{Package: "b"}}))

	loaded, ok, err := s.Load("f40")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded, 1)
	assert.Equal(t, "b", loaded[0].Package)
}
