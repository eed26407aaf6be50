package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlModel mirrors the on-disk model file layout.
type yamlModel struct {
	Name     string     `yaml:"name"`
	Mixtures int        `yaml:"mixtures"`
	Parts    []yamlPart `yaml:"parts"`
}

type yamlPart struct {
	Name    string      `yaml:"name"`
	Parent  string      `yaml:"parent"` // empty for the root
	Anchor  Anchor      `yaml:"anchor"`
	Springs []Spring    `yaml:"springs"`
	Bias    [][]float32 `yaml:"bias"`
	Filters []Filter    `yaml:"filters"`
}

// Load reads and validates a model file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("model file %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a YAML model document, resolves parent names to position
// indices, builds the child index columns and validates the result.
func Parse(data []byte) (*Model, error) {
	var doc yamlModel
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}

	m := &Model{Name: doc.Name, NMixtures: doc.Mixtures}
	byName := make(map[string]int, len(doc.Parts))
	for i, yp := range doc.Parts {
		if yp.Name == "" {
			return nil, fmt.Errorf("part %d has no name", i)
		}
		if _, dup := byName[yp.Name]; dup {
			return nil, fmt.Errorf("duplicate part name %q", yp.Name)
		}
		byName[yp.Name] = i
		m.Parts = append(m.Parts, Part{
			Name:    yp.Name,
			Pos:     i,
			Parent:  -1,
			Anchor:  yp.Anchor,
			Springs: yp.Springs,
			Bias:    yp.Bias,
			Filters: yp.Filters,
		})
	}

	for i, yp := range doc.Parts {
		if yp.Parent == "" {
			continue
		}
		pi, ok := byName[yp.Parent]
		if !ok {
			return nil, fmt.Errorf("part %q: unknown parent %q", yp.Name, yp.Parent)
		}
		m.Parts[i].Parent = pi
		m.Parts[pi].Children = append(m.Parts[pi].Children, i)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
