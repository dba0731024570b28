package descriptor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OverlayFile is the YAML document shape for overlay side configuration.
type OverlayFile struct {
	Version  string         `yaml:"version"`
	Overlays []OverlayEntry `yaml:"overlays"`
}

// OverlayEntry is one overlay block in the YAML document.
type OverlayEntry struct {
	Target     string             `yaml:"target"`
	MapperName string             `yaml:"mapper_name"`
	Package    string             `yaml:"package"`
	Fields     []OverlayFieldYAML `yaml:"fields"`
}

// OverlayFieldYAML is one field mapping line.
type OverlayFieldYAML struct {
	Name      string `yaml:"name"`
	Field     string `yaml:"field"`
	Key       string `yaml:"key"`
	Ignore    bool   `yaml:"ignore"`
	Converter string `yaml:"converter"`
}

// LoadOverlayFile loads and parses a YAML overlay file from disk.
func LoadOverlayFile(path string) ([]OverlayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay file %s: %w", path, err)
	}

	return ParseOverlays(data)
}

// ParseOverlays parses YAML overlay data into OverlayConfig values.
func ParseOverlays(data []byte) ([]OverlayConfig, error) {
	var file OverlayFile

	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse overlay YAML: %w", err)
	}

	configs := make([]OverlayConfig, 0, len(file.Overlays))

	for i, entry := range file.Overlays {
		if entry.Target == "" {
			return nil, fmt.Errorf("overlay %d: target is required", i)
		}

		cfg := OverlayConfig{
			Target:   entry.Target,
			Artifact: entry.MapperName,
			Package:  entry.Package,
		}

		for j, f := range entry.Fields {
			if f.Name == "" {
				return nil, fmt.Errorf("overlay %s: field %d: name is required", entry.Target, j)
			}

			cfg.Fields = append(cfg.Fields, OverlayField{
				Name:        f.Name,
				TargetField: f.Field,
				MapKey:      f.Key,
				Ignore:      f.Ignore,
				Converter:   f.Converter,
			})
		}

		configs = append(configs, cfg)
	}

	return configs, nil
}
