// Package project persists sheet catalogues and saved jobs as JSON files.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/cutplan/internal/model"
)

// DefaultDir returns ~/.cutplan, falling back to the working directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cutplan")
}

// DefaultCataloguePath returns the default catalogue file path.
func DefaultCataloguePath() string {
	return filepath.Join(DefaultDir(), "catalogue.json")
}

// SaveCatalogue writes the catalogue to path, creating parent directories.
func SaveCatalogue(path string, c model.Catalogue) error {
	return writeJSON(path, c)
}

// LoadCatalogue reads the catalogue at path. A missing file is seeded with
// the default catalogue, which is saved and returned.
func LoadCatalogue(path string) (model.Catalogue, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		c := model.DefaultCatalogue()
		return c, SaveCatalogue(path, c)
	}
	if err != nil {
		return model.Catalogue{}, err
	}
	var c model.Catalogue
	if err := json.Unmarshal(data, &c); err != nil {
		return model.Catalogue{}, fmt.Errorf("parse catalogue %s: %w", path, err)
	}
	if c.Sheets == nil {
		c.Sheets = []model.SheetPreset{}
	}
	return c, nil
}

// ImportCatalogue merges the presets in path into existing, skipping known IDs.
// It returns the merged catalogue and the number of presets added.
func ImportCatalogue(path string, existing model.Catalogue) (model.Catalogue, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return existing, 0, err
	}
	var imported model.Catalogue
	if err := json.Unmarshal(data, &imported); err != nil {
		return existing, 0, fmt.Errorf("parse catalogue %s: %w", path, err)
	}
	added := existing.Merge(imported)
	return existing, added, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
