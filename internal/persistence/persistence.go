// Package persistence reads and writes the per-key published BrokenItem
// arrays under data/, used both for cold-start fallback and to give the
// HTTP surface a file to serve independent of the in-memory snapshot.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkowalski/repochecker/internal/model"
)

const dirName = "data"

// Store resolves filenames under BaseDir (default "data").
type Store struct {
	BaseDir string
}

// New returns a Store rooted at "data/".
func New() *Store {
	return &Store{BaseDir: dirName}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.BaseDir, key+".json")
}

// Load reads and parses the published array for key. A missing file is not
// an error: it returns (nil, false, nil).
func (s *Store) Load(key string) ([]model.BrokenItem, bool, error) {
	raw, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("persistence: reading %s: %w", key, err)
	}

	var items []model.BrokenItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("persistence: parsing %s: %w", key, err)
	}
	return items, true, nil
}

// Save writes the published array for key as pretty JSON, creating BaseDir
// on demand and replacing any existing file. Callers log (not abort) on
// error, per the worker's fault-tolerance contract.
func (s *Store) Save(key string, items []model.BrokenItem) error {
	if err := os.MkdirAll(s.BaseDir, 0o755); err != nil {
		return fmt.Errorf("persistence: creating %s: %w", s.BaseDir, err)
	}

	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: encoding %s: %w", key, err)
	}

	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("persistence: writing %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("persistence: replacing %s: %w", key, err)
	}
	return nil
}
