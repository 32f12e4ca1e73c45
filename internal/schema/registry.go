package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Registry serves the validated schema, split per category. It is safe for
// concurrent use because nothing mutates it after construction.
type Registry struct {
	config SchemaConfig
}

// NewRegistry validates cfg and wraps a private copy of it.
func NewRegistry(cfg SchemaConfig) (*Registry, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &Registry{config: cfg.Clone()}, nil
}

// DefaultRegistry returns a registry over the built-in schema.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Default())
	if err != nil {
		panic(fmt.Sprintf("built-in schema is invalid: %v", err))
	}
	return r
}

// LoadFile reads a YAML schema file. Keys absent from the file keep their
// built-in values; a sheets list in the file replaces the built-in sheets.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a YAML schema document. Unknown keys are rejected.
func Parse(data []byte) (*Registry, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	return NewRegistry(cfg)
}

// Dump writes cfg as YAML.
func Dump(w io.Writer, cfg SchemaConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return enc.Close()
}

// Config returns a copy of the whole schema.
func (r *Registry) Config() SchemaConfig {
	return r.config.Clone()
}

// For returns a copy of the schema restricted to one category.
func (r *Registry) For(category Category) (SchemaConfig, error) {
	out := r.config.Clone()
	out.Sheets = out.Sheets[:0]
	for _, s := range r.config.Sheets {
		if s.Category == category {
			out.Sheets = append(out.Sheets, s.clone())
		}
	}
	if len(out.Sheets) == 0 {
		return SchemaConfig{}, fmt.Errorf("no sheets declared for category %q", category)
	}
	return out, nil
}
