package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlLevelFile is the top-level YAML structure for level files.
type yamlLevelFile struct {
	Level yamlLevel `yaml:"level"`
}

type yamlLevel struct {
	ID     string    `yaml:"id"`
	Name   string    `yaml:"name"`
	FloorY int       `yaml:"floor_y"`
	MinY   int       `yaml:"min_y"`
	MaxY   int       `yaml:"max_y"`
	Boxes  []yamlBox `yaml:"boxes"`
}

type yamlBox struct {
	Block string `yaml:"block"`
	Min   Pos    `yaml:"min"`
	Max   Pos    `yaml:"max"`
}

// LoadLevelFromBytes parses and validates a level from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the level schema.
// Postcondition: Returns a validated Level or a non-nil error.
func LoadLevelFromBytes(data []byte) (*Level, error) {
	var file yamlLevelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing level YAML: %w", err)
	}

	y := file.Level
	lvl := NewFlatLevel(y.ID, y.FloorY, y.MinY, y.MaxY)
	if y.Name != "" {
		lvl.Name = y.Name
	}
	for i, yb := range y.Boxes {
		b, err := ParseBlock(yb.Block)
		if err != nil {
			return nil, fmt.Errorf("level %q: box %d: %w", y.ID, i, err)
		}
		lvl.Boxes = append(lvl.Boxes, Box{Min: yb.Min, Max: yb.Max, Block: b})
	}
	if err := lvl.Validate(); err != nil {
		return nil, fmt.Errorf("validating level: %w", err)
	}
	return lvl, nil
}

// LoadLevelsFromDir loads all YAML files in a directory as levels.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated levels or the first error encountered.
func LoadLevelsFromDir(dir string) ([]*Level, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading level dir %s: %w", dir, err)
	}

	var levels []*Level
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading level file %s: %w", path, err)
		}
		lvl, err := LoadLevelFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		levels = append(levels, lvl)
	}
	return levels, nil
}
