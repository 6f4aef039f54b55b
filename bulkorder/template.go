// Package bulkorder validates commercial bulk-order spreadsheets against a
// catalog of immutable templates.
//
// A Registry holds the templates; an Engine parses an uploaded CSV, checks
// each row against the template's field rules, evaluates the business rules
// over the whole table and returns an Upload record. Records are persisted
// through a Store.
package bulkorder

import (
	"errors"
	"fmt"
	"slices"
)

// ErrTemplateNotFound is returned for an unknown template id.
var ErrTemplateNotFound = errors.New("bulk order template not found")

// ColumnRule binds a FieldRule to a column.
type ColumnRule struct {
	Column string
	Rule   FieldRule
}

// Template is the schema of one kind of bulk order. Templates are built once
// and never modified; the Registry hands out copies.
type Template struct {
	ID              string         `json:"templateId"`
	Name            string         `json:"templateName"`
	Description     string         `json:"description"`
	RequiredColumns []string       `json:"requiredColumns"`
	OptionalColumns []string       `json:"optionalColumns"`
	FieldRules      []ColumnRule   `json:"-"`
	BusinessRules   []BusinessRule `json:"businessRules"`
	MinQuantity     int            `json:"minQuantity"`
	MaxQuantity     int            `json:"maxQuantity"`

	// QuantityColumn is summed over valid rows for the quantity rules.
	QuantityColumn string `json:"quantityColumn"`

	// Sample is the example row written by RenderSample.
	Sample map[string]string `json:"-"`
}

// Columns returns the required columns followed by the optional ones.
func (t *Template) Columns() []string {
	return slices.Concat(t.RequiredColumns, t.OptionalColumns)
}

// Rule returns the field rule of column.
func (t *Template) Rule(column string) (FieldRule, bool) {
	for _, cr := range t.FieldRules {
		if cr.Column == column {
			return cr.Rule, true
		}
	}
	return nil, false
}

// Validate checks the template for internal consistency.
func (t *Template) Validate() error {
	if t.ID == "" {
		return errors.New("template: empty id")
	}
	if len(t.RequiredColumns) == 0 {
		return fmt.Errorf("template %s: no required columns", t.ID)
	}

	seen := make(map[string]bool)
	for _, col := range t.Columns() {
		if col == "" {
			return fmt.Errorf("template %s: empty column name", t.ID)
		}
		if seen[col] {
			return fmt.Errorf("template %s: column %q listed twice", t.ID, col)
		}
		seen[col] = true
	}

	ruled := make(map[string]bool)
	for _, cr := range t.FieldRules {
		if !seen[cr.Column] {
			return fmt.Errorf("template %s: rule for unknown column %q", t.ID, cr.Column)
		}
		if ruled[cr.Column] {
			return fmt.Errorf("template %s: column %q has two rules", t.ID, cr.Column)
		}
		if cr.Rule == nil {
			return fmt.Errorf("template %s: nil rule for %q", t.ID, cr.Column)
		}
		ruled[cr.Column] = true
	}

	if t.QuantityColumn != "" && !seen[t.QuantityColumn] {
		return fmt.Errorf("template %s: quantity column %q is not a column", t.ID, t.QuantityColumn)
	}
	if t.MinQuantity < 0 || (t.MaxQuantity > 0 && t.MaxQuantity < t.MinQuantity) {
		return fmt.Errorf("template %s: invalid quantity range %d..%d", t.ID, t.MinQuantity, t.MaxQuantity)
	}
	for _, br := range t.BusinessRules {
		if br.Name == "" || br.Check == nil {
			return fmt.Errorf("template %s: incomplete business rule %q", t.ID, br.Name)
		}
		if br.Severity != SeverityError && br.Severity != SeverityWarning {
			return fmt.Errorf("template %s: rule %s has severity %q", t.ID, br.Name, br.Severity)
		}
	}
	for _, col := range t.RequiredColumns {
		if _, ok := t.Sample[col]; !ok {
			return fmt.Errorf("template %s: sample row lacks required column %q", t.ID, col)
		}
	}
	return nil
}

func (t *Template) clone() *Template {
	c := *t
	c.RequiredColumns = slices.Clone(t.RequiredColumns)
	c.OptionalColumns = slices.Clone(t.OptionalColumns)
	c.FieldRules = make([]ColumnRule, len(t.FieldRules))
	for i, cr := range t.FieldRules {
		c.FieldRules[i] = ColumnRule{Column: cr.Column, Rule: cloneRule(cr.Rule)}
	}
	c.BusinessRules = slices.Clone(t.BusinessRules)
	c.Sample = make(map[string]string, len(t.Sample))
	for k, v := range t.Sample {
		c.Sample[k] = v
	}
	return &c
}

// cloneRule copies the slices a rule holds. Compiled patterns are safe to share.
func cloneRule(r FieldRule) FieldRule {
	switch r := r.(type) {
	case EnumRule:
		r.Allowed = slices.Clone(r.Allowed)
		return r
	default:
		return r
	}
}
