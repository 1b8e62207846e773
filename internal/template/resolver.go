// Package template resolves material-type POL skeletons.
package template

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"polgen/internal/domain"
)

// Resolver maps material types (and their aliases) to immutable templates.
// It is built once and only read afterwards, so it needs no locking.
type Resolver struct {
	templates map[string]*domain.Template
	aliases   map[string]string
}

// NewResolver returns a Resolver holding the built-in templates.
func NewResolver() *Resolver {
	r := &Resolver{
		templates: make(map[string]*domain.Template, len(builtins)),
		aliases:   make(map[string]string),
	}
	for name, b := range builtins {
		r.register(name, b.aliases, b.fields)
	}
	return r
}

// LoadFile returns a Resolver with the built-ins plus the templates in a YAML
// file. File entries replace built-ins of the same name.
func LoadFile(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template.LoadFile: %w", err)
	}
	r := NewResolver()
	if err := r.loadYAML(data); err != nil {
		return nil, fmt.Errorf("template.LoadFile %s: %w", path, err)
	}
	return r, nil
}

// templateFile is the on-disk schema.
type templateFile struct {
	Templates map[string]struct {
		Aliases []string                    `yaml:"aliases"`
		Fields  map[string]domain.FieldSpec `yaml:"fields"`
	} `yaml:"templates"`
}

func (r *Resolver) loadYAML(data []byte) error {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}
	for name, t := range f.Templates {
		if len(t.Fields) == 0 {
			return fmt.Errorf("template %q defines no fields", name)
		}
		fields := make(map[string]domain.FieldSpec, len(t.Fields))
		for k, v := range t.Fields {
			fields[strings.ToLower(strings.TrimSpace(k))] = v
		}
		r.register(name, t.Aliases, fields)
	}
	return nil
}

func (r *Resolver) register(name string, aliases []string, fields map[string]domain.FieldSpec) {
	key := normalize(name)
	r.templates[key] = domain.NewTemplate(key, fields)
	for _, a := range aliases {
		r.aliases[normalize(a)] = key
	}
}

// Resolve returns the template for materialType. Lookup is case-insensitive
// and accepts aliases.
func (r *Resolver) Resolve(materialType string) (*domain.Template, error) {
	key := normalize(materialType)
	if t, ok := r.templates[key]; ok {
		return t, nil
	}
	if target, ok := r.aliases[key]; ok {
		if t, ok := r.templates[target]; ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMaterialType, materialType)
}

// List returns all templates sorted by material type.
func (r *Resolver) List() []*domain.Template {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*domain.Template, len(names))
	for i, name := range names {
		out[i] = r.templates[name]
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
