package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #region file-backend

// FileBackend stores preferences as a small pretty-printed JSON file.
type FileBackend struct {
	path string
}

// fileFormat is the on-disk layout. The tier is kept as a string so an
// unknown value still decodes and can be replaced on load.
type fileFormat struct {
	Enabled      bool   `json:"enabled"`
	SelectedType string `json:"selectedType"`
}

// NewFileBackend returns a backend reading and writing path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Load reads the file. A missing file yields Defaults.
func (f *FileBackend) Load() (Preferences, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("read preferences %s: %w", f.path, err)
	}

	ff := fileFormat{SelectedType: string(tier.Default().ID)}
	if err := json.Unmarshal(data, &ff); err != nil {
		return Preferences{}, fmt.Errorf("parse preferences %s: %w", f.path, err)
	}
	return Preferences{Enabled: ff.Enabled, Tier: tier.ID(ff.SelectedType)}, nil
}

// Save writes p, creating the parent directory if needed.
func (f *FileBackend) Save(p Preferences) error {
	data, err := json.MarshalIndent(fileFormat{Enabled: p.Enabled, SelectedType: string(p.Tier)}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write preferences %s: %w", f.path, err)
	}
	return nil
}

// #endregion file-backend
