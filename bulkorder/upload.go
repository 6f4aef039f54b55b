package bulkorder

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gobeaver/intake/filevalidator"
)

var (
	// ErrUploadNotFound is returned by a Store for an unknown upload id.
	ErrUploadNotFound = errors.New("bulk upload not found")

	// ErrUploadExists is returned by Store.Save for a reused upload id.
	ErrUploadExists = errors.New("bulk upload already exists")

	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid bulk upload status transition")
)

// Status is the lifecycle state of a bulk upload.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusValidating Status = "validating"
	StatusValid      Status = "valid"
	StatusInvalid    Status = "invalid"
	StatusProcessed  Status = "processed"
	StatusRejected   Status = "rejected"
)

var transitions = map[Status][]Status{
	StatusUploaded:   {StatusValidating},
	StatusValidating: {StatusValid, StatusInvalid},
	StatusValid:      {StatusProcessed, StatusRejected},
	StatusInvalid:    {StatusRejected},
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusUploaded, StatusValidating, StatusValid, StatusInvalid, StatusProcessed, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown bulk upload status %q", s)
}

// CanTransition reports whether a record may move from one status to another.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// predecessors returns the statuses from which to is reachable.
func predecessors(to Status) []Status {
	var out []Status
	for from, next := range transitions {
		if slices.Contains(next, to) {
			out = append(out, from)
		}
	}
	slices.Sort(out)
	return out
}

// Issue is one row-level or table-level finding. Row 0 is the whole table;
// row 1 is the header.
type Issue struct {
	Row      int                               `json:"row"`
	Field    string                            `json:"field"`
	Value    string                            `json:"value"`
	Message  string                            `json:"message"`
	Severity Severity                          `json:"severity"`
	Type     filevalidator.ValidationErrorType `json:"type"`
}

// Upload is the validation record of one bulk order file. UploadID and
// FileHash never change after creation.
type Upload struct {
	UploadID      string    `json:"uploadId"`
	OwnerID       string    `json:"ownerId"`
	TemplateID    string    `json:"templateId"`
	FileName      string    `json:"fileName"`
	FileHash      string    `json:"fileHash"`
	RowCount      int       `json:"rowCount"`
	ValidRows     int       `json:"validRows"`
	InvalidRows   int       `json:"invalidRows"`
	TotalQuantity int       `json:"totalQuantity"`
	Status        Status    `json:"status"`
	Errors        []Issue   `json:"errors"`
	Warnings      []Issue   `json:"warnings"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Transition moves the record to status to, or returns ErrInvalidTransition.
func (u *Upload) Transition(to Status, at time.Time) error {
	if !CanTransition(u.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, u.Status, to)
	}
	u.Status = to
	u.UpdatedAt = at
	return nil
}

// HasErrorOfType reports whether any error has the given type.
func (u *Upload) HasErrorOfType(t filevalidator.ValidationErrorType) bool {
	return slices.ContainsFunc(u.Errors, func(i Issue) bool { return i.Type == t })
}

// Clone returns a deep copy.
func (u *Upload) Clone() *Upload {
	c := *u
	c.Errors = slices.Clone(u.Errors)
	c.Warnings = slices.Clone(u.Warnings)
	return &c
}
