package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tableFile is the on-disk layout of a breakpoint table.
type tableFile struct {
	Version  string    `yaml:"version"`
	Segments []Segment `yaml:"segments"`
}

// WriteTable stores a table as YAML.
func WriteTable(t Table, path string) error {
	data, err := yaml.Marshal(tableFile{Version: "1.0", Segments: t})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadTable loads and validates a YAML table.
func ReadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse table %s: %w", path, err)
	}

	t := Table(f.Segments)
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("table %s: %w", path, err)
	}
	return t, nil
}
