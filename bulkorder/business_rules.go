package bulkorder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Severity decides whether a business rule finding blocks the upload.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one business rule violation. It is reported at row 0.
type Finding struct {
	Field   string
	Value   string
	Message string
}

// CheckFunc evaluates a rule over a whole parsed table.
type CheckFunc func(t *Template, table *Table) []Finding

// BusinessRule is a named predicate over the whole table.
type BusinessRule struct {
	Name        string    `json:"rule"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Check       CheckFunc `json:"-"`
}

// Table is the parsed upload as seen by business rules.
type Table struct {
	Header []string
	Rows   []Row

	// TotalQuantity sums the quantity column over valid rows only.
	TotalQuantity int

	// Now is the evaluation time.
	Now time.Time
}

// Row is one data row. Number counts from 1 at the header.
type Row struct {
	Number int
	Values map[string]string
	Valid  bool
}

// Get returns the trimmed value of column, or "" when the column is absent.
func (r Row) Get(column string) string {
	return r.Values[column]
}

// TotalQuantityMinimum fails when the valid-row quantity total is below the
// template minimum.
func TotalQuantityMinimum(name, description string, severity Severity) BusinessRule {
	return BusinessRule{
		Name:        name,
		Description: description,
		Severity:    severity,
		Check: func(t *Template, table *Table) []Finding {
			if table.TotalQuantity >= t.MinQuantity {
				return nil
			}
			return []Finding{{
				Field:   t.QuantityColumn,
				Value:   strconv.Itoa(table.TotalQuantity),
				Message: fmt.Sprintf("Total quantity (%d) is below minimum requirement (%d)", table.TotalQuantity, t.MinQuantity),
			}}
		},
	}
}

// TotalQuantityMaximum fails when the valid-row quantity total exceeds the
// template maximum. A zero maximum is not checked.
func TotalQuantityMaximum(name, description string, severity Severity) BusinessRule {
	return BusinessRule{
		Name:        name,
		Description: description,
		Severity:    severity,
		Check: func(t *Template, table *Table) []Finding {
			if t.MaxQuantity <= 0 || table.TotalQuantity <= t.MaxQuantity {
				return nil
			}
			return []Finding{{
				Field:   t.QuantityColumn,
				Value:   strconv.Itoa(table.TotalQuantity),
				Message: fmt.Sprintf("Total quantity (%d) exceeds maximum allowed (%d)", table.TotalQuantity, t.MaxQuantity),
			}}
		},
	}
}

// UniqueColumn fails when two rows share a non-empty value in column. label
// names the values in the message, e.g. "room identifiers".
func UniqueColumn(name, column, label, description string, severity Severity) BusinessRule {
	return BusinessRule{
		Name:        name,
		Description: description,
		Severity:    severity,
		Check: func(_ *Template, table *Table) []Finding {
			seen := make(map[string]int, len(table.Rows))
			var dups []string
			for _, row := range table.Rows {
				v := row.Get(column)
				if v == "" {
					continue
				}
				seen[v]++
				if seen[v] == 2 {
					dups = append(dups, v)
				}
			}
			if len(dups) == 0 {
				return nil
			}
			list := strings.Join(dups, ", ")
			return []Finding{{
				Field:   column,
				Value:   list,
				Message: fmt.Sprintf("Duplicate %s found: %s", label, list),
			}}
		},
	}
}

// DateLeadTime fails when a row's date in column is fewer than days ahead of
// the evaluation date. Unparseable dates are left to the field rules.
func DateLeadTime(name, column string, days int, description string, severity Severity) BusinessRule {
	return BusinessRule{
		Name:        name,
		Description: description,
		Severity:    severity,
		Check: func(_ *Template, table *Table) []Finding {
			y, m, d := table.Now.UTC().Date()
			earliest := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)

			var rows []string
			for _, row := range table.Rows {
				date, ok := parseDate(row.Get(column))
				if !ok {
					continue
				}
				dy, dm, dd := date.Date()
				if time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC).Before(earliest) {
					rows = append(rows, strconv.Itoa(row.Number))
				}
			}
			if len(rows) == 0 {
				return nil
			}
			return []Finding{{
				Field:   column,
				Value:   strings.Join(rows, ", "),
				Message: fmt.Sprintf("%s should be at least %d days in the future (rows %s)", column, days, strings.Join(rows, ", ")),
			}}
		},
	}
}

// SizeLimit fails when any of columns exceeds limit in a row.
func SizeLimit(name string, limit float64, description string, severity Severity, columns ...string) BusinessRule {
	return BusinessRule{
		Name:        name,
		Description: description,
		Severity:    severity,
		Check: func(_ *Template, table *Table) []Finding {
			var rows []string
			for _, row := range table.Rows {
				for _, col := range columns {
					if n, ok := parseNumber(row.Get(col)); ok && n > limit {
						rows = append(rows, strconv.Itoa(row.Number))
						break
					}
				}
			}
			if len(rows) == 0 {
				return nil
			}
			return []Finding{{
				Field:   strings.Join(columns, ", "),
				Value:   strings.Join(rows, ", "),
				Message: fmt.Sprintf("%s (rows %s)", description, strings.Join(rows, ", ")),
			}}
		},
	}
}
