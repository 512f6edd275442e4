// Package rules loads and stores generation-rules documents on disk.
package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmrzaf/fwgen/internal/domain"
	"gopkg.in/yaml.v3"
)

// Load reads a rules document, decoding by extension: .json as JSON,
// .yaml/.yml as YAML.
func Load(path string) (*domain.RulesDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var doc domain.RulesDocument
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode rules file %s: %w", path, err)
	}
	return &doc, nil
}

// Save writes a document as indented JSON, creating parent directories.
func Save(path string, doc *domain.RulesDocument) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// List returns every rules file directly under dir.
func List(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".json", ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}
