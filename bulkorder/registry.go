package bulkorder

import (
	"fmt"
	"strconv"
	"strings"
)

// Registry is an immutable catalog of templates, built once and shared.
type Registry struct {
	templates map[string]*Template
	order     []string
}

// NewRegistry validates templates and builds a registry. Duplicate ids are rejected.
func NewRegistry(templates ...*Template) (*Registry, error) {
	r := &Registry{templates: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.templates[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template %s", t.ID)
		}
		r.templates[t.ID] = t.clone()
		r.order = append(r.order, t.ID)
	}
	return r, nil
}

// DefaultRegistry holds commercial_blinds_v1 and office_renovation_v1.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(CommercialBlinds(), OfficeRenovation())
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns a copy of the template with the given id.
func (r *Registry) Get(id string) (*Template, bool) {
	t, ok := r.templates[id]
	if !ok {
		return nil, false
	}
	return t.clone(), true
}

// List returns copies of every template in registration order.
func (r *Registry) List() []*Template {
	out := make([]*Template, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.templates[id].clone())
	}
	return out
}

// template returns the shared template without copying, for the engine.
func (r *Registry) template(id string) (*Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return t, nil
}

// RenderSample returns the starter CSV for a template: a comment block
// describing it, the header row and one example row.
func (r *Registry) RenderSample(id string) (string, error) {
	t, err := r.template(id)
	if err != nil {
		return "", err
	}

	columns := t.Columns()
	values := make([]string, len(columns))
	for i, col := range columns {
		values[i] = quoteField(t.Sample[col])
	}

	var b strings.Builder
	for _, line := range []string{
		"# Commercial Blinds Bulk Order Template",
		"# Template: " + t.Name,
		"# Description: " + t.Description,
		"# Minimum Quantity: " + strconv.Itoa(t.MinQuantity) + " blinds",
		"# Maximum Quantity: " + strconv.Itoa(t.MaxQuantity) + " blinds",
		"# ",
		"# Required Fields: " + strings.Join(t.RequiredColumns, ", "),
		"# Optional Fields: " + strings.Join(t.OptionalColumns, ", "),
		"# ",
		"# Instructions:",
		"# 1. Fill in all required fields",
		"# 2. Delete this comment section before uploading",
		"# 3. Ensure total quantity is at least " + strconv.Itoa(t.MinQuantity) + " blinds",
		"# 4. Use exact values for enum fields as specified",
		"# ",
		"# Sample Data Row (replace with your data):",
	} {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(strings.Join(columns, ","))
	b.WriteByte('\n')
	b.WriteString(strings.Join(values, ","))
	return b.String(), nil
}

// quoteField quotes a CSV value containing a comma, quote or line break and
// doubles its quotes.
func quoteField(v string) string {
	if !strings.ContainsAny(v, ",\"\r\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
