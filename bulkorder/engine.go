package bulkorder

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gobeaver/intake/dedup"
	"github.com/gobeaver/intake/filevalidator"
)

var bulkUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "intake_bulk_uploads_total",
	Help: "Bulk order uploads by template and final status.",
}, []string{"template", "status"})

// maxEchoLength bounds offending values echoed back in issues, in characters.
const maxEchoLength = 100

// Engine validates bulk order CSV files against a Registry. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	registry  *Registry
	sanitizer *bluemonday.Policy
	now       func() time.Time
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock sets the time source used for ids, timestamps and date rules.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over registry.
func NewEngine(registry *Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:  registry,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "bulkorder")
	return e
}

// Registry returns the template registry.
func (e *Engine) Registry() *Registry { return e.registry }

// NewUpload creates a record in status uploaded with a fresh id
// (bulk_<owner>_<unix ms>_<8 hex>) and the SHA-256 of data.
func (e *Engine) NewUpload(ownerID, templateID, fileName string, data []byte) *Upload {
	now := e.now().UTC()
	return &Upload{
		UploadID:   fmt.Sprintf("bulk_%s_%d_%s", ownerID, now.UnixMilli(), uuid.NewString()[:8]),
		OwnerID:    ownerID,
		TemplateID: templateID,
		FileName:   fileName,
		FileHash:   dedup.Sum(data).Hex(),
		Status:     StatusUploaded,
		Errors:     []Issue{},
		Warnings:   []Issue{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Reject records a file that was refused before template validation, for
// example by the security scan. The record ends in status rejected with the
// given issues as its errors.
func (e *Engine) Reject(ownerID, templateID, fileName string, data []byte, issues []Issue) (*Upload, error) {
	if _, err := e.registry.template(templateID); err != nil {
		return nil, err
	}
	u := e.NewUpload(ownerID, templateID, fileName, data)
	u.Errors = append(u.Errors, issues...)
	for _, to := range []Status{StatusValidating, StatusInvalid, StatusRejected} {
		if err := u.Transition(to, e.now().UTC()); err != nil {
			return nil, err
		}
	}
	bulkUploadsTotal.WithLabelValues(templateID, string(u.Status)).Inc()
	return u, nil
}

// Validate parses data as a CSV for the template and returns the record in
// status valid or invalid. Only an unknown template or a cancelled context
// is a Go error; everything wrong with the file is reported in the record.
func (e *Engine) Validate(ctx context.Context, ownerID, templateID, fileName string, data []byte) (*Upload, error) {
	t, err := e.registry.template(templateID)
	if err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, errors.New("bulk upload: owner id is required")
	}

	u := e.NewUpload(ownerID, templateID, fileName, data)
	if err := u.Transition(StatusValidating, e.now().UTC()); err != nil {
		return nil, err
	}

	if err := e.evaluate(ctx, t, u, data); err != nil {
		return nil, err
	}

	final := StatusValid
	if len(u.Errors) > 0 {
		final = StatusInvalid
	}
	if err := u.Transition(final, e.now().UTC()); err != nil {
		return nil, err
	}

	bulkUploadsTotal.WithLabelValues(templateID, string(final)).Inc()
	e.logger.InfoContext(ctx, "bulk upload validated",
		slog.String("upload_id", u.UploadID),
		slog.String("template", templateID),
		slog.String("status", string(final)),
		slog.Int("rows", u.RowCount),
		slog.Int("errors", len(u.Errors)),
		slog.Int("warnings", len(u.Warnings)),
	)
	return u, nil
}

func (e *Engine) evaluate(ctx context.Context, t *Template, u *Upload, data []byte) error {
	header, records, err := parseCSV(data)
	if err != nil {
		u.Errors = append(u.Errors, schemaIssue(0, "", "Malformed CSV: "+err.Error()))
		return nil
	}
	if header == nil || len(records) == 0 {
		u.Errors = append(u.Errors, schemaIssue(0, "", "CSV must contain header and at least one data row"))
		return nil
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range t.RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		u.Errors = append(u.Errors, schemaIssue(1, strings.Join(missing, ", "),
			"Missing required columns: "+strings.Join(missing, ", ")))
		return nil
	}

	table := &Table{Header: header, Rows: make([]Row, 0, len(records)), Now: e.now()}
	for i, rec := range records {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		row := Row{Number: i + 2, Values: make(map[string]string, len(header))}
		for j, h := range header {
			if j < len(rec) {
				row.Values[h] = rec[j]
			} else {
				row.Values[h] = ""
			}
		}

		issues := e.checkRow(t, row)
		row.Valid = len(issues) == 0
		if row.Valid {
			u.ValidRows++
			if t.QuantityColumn != "" {
				if n, ok := parseNumber(row.Get(t.QuantityColumn)); ok {
					table.TotalQuantity += int(n)
				}
			}
		}
		u.Errors = append(u.Errors, issues...)
		table.Rows = append(table.Rows, row)
	}
	u.RowCount = len(table.Rows)
	u.InvalidRows = u.RowCount - u.ValidRows
	u.TotalQuantity = table.TotalQuantity

	for _, rule := range t.BusinessRules {
		for _, f := range rule.Check(t, table) {
			issue := Issue{
				Row:      0,
				Field:    f.Field,
				Value:    e.echo(f.Value),
				Message:  f.Message,
				Severity: rule.Severity,
				Type:     filevalidator.ErrorTypeBusinessRule,
			}
			if rule.Severity == SeverityError {
				u.Errors = append(u.Errors, issue)
			} else {
				u.Warnings = append(u.Warnings, issue)
			}
		}
	}
	return nil
}

// checkRow applies every field rule to a row. A required-but-empty field is
// reported once and its other checks are skipped.
func (e *Engine) checkRow(t *Template, row Row) []Issue {
	var issues []Issue
	for _, cr := range t.FieldRules {
		value := row.Get(cr.Column)
		if value == "" {
			if cr.Rule.IsRequired() {
				issues = append(issues, e.fieldIssue(row.Number, cr.Column, value,
					fmt.Sprintf("Required field '%s' is missing or empty", cr.Column)))
			}
			continue
		}
		for _, msg := range cr.Rule.check(cr.Column, value) {
			issues = append(issues, e.fieldIssue(row.Number, cr.Column, value, msg))
		}
	}
	return issues
}

func (e *Engine) fieldIssue(row int, field, value, msg string) Issue {
	return Issue{
		Row:      row,
		Field:    field,
		Value:    e.echo(value),
		Message:  msg,
		Severity: SeverityError,
		Type:     filevalidator.ErrorTypeField,
	}
}

func schemaIssue(row int, field, msg string) Issue {
	return Issue{
		Row:      row,
		Field:    field,
		Message:  msg,
		Severity: SeverityError,
		Type:     filevalidator.ErrorTypeSchema,
	}
}

// echo makes an uploaded value safe to show back: it is truncated and
// stripped of markup.
func (e *Engine) echo(v string) string {
	if utf8.RuneCountInString(v) > maxEchoLength {
		v = string([]rune(v)[:maxEchoLength]) + "…"
	}
	return e.sanitizer.Sanitize(v)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseCSV returns the header and the data records. Lines starting with '#'
// are comments; blank lines are skipped; fields are trimmed.
func parseCSV(data []byte) (header []string, records [][]string, err error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, nil, fmt.Errorf("line %d: %w", perr.Line, perr.Err)
			}
			return nil, nil, err
		}

		blank := true
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
			if rec[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		if header == nil {
			header = rec
			continue
		}
		records = append(records, rec)
	}
	return header, records, nil
}
