package domain

import "sort"

// FieldSpec describes one field of a material-type template.
type FieldSpec struct {
	Required bool   `json:"required" yaml:"required"`
	Default  string `json:"default,omitempty" yaml:"default"`
}

// Template is the skeleton of a POL for one material type. It is immutable:
// accessors return copies.
type Template struct {
	materialType string
	fields       map[string]FieldSpec
}

// NewTemplate creates a Template, copying fields.
func NewTemplate(materialType string, fields map[string]FieldSpec) *Template {
	copied := make(map[string]FieldSpec, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &Template{materialType: materialType, fields: copied}
}

// MaterialType returns the canonical material type name.
func (t *Template) MaterialType() string {
	return t.materialType
}

// Field returns the spec for name.
func (t *Template) Field(name string) (FieldSpec, bool) {
	f, ok := t.fields[name]
	return f, ok
}

// Fields returns a copy of every field spec.
func (t *Template) Fields() map[string]FieldSpec {
	out := make(map[string]FieldSpec, len(t.fields))
	for k, v := range t.fields {
		out[k] = v
	}
	return out
}

// FieldNames returns all field names sorted.
func (t *Template) FieldNames() []string {
	names := make([]string, 0, len(t.fields))
	for k := range t.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Required returns the required field names sorted.
func (t *Template) Required() []string {
	var names []string
	for k, v := range t.fields {
		if v.Required {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Defaults returns the non-empty default values keyed by field.
func (t *Template) Defaults() map[string]string {
	out := make(map[string]string)
	for k, v := range t.fields {
		if v.Default != "" {
			out[k] = v.Default
		}
	}
	return out
}
