package filevalidator

import (
	"fmt"
	"slices"
	"strings"
)

// Size constants for easier file size configuration
const (
	KB = int64(1024)
	MB = KB * 1024
	GB = MB * 1024
)

// OwnerKind identifies who is uploading.
type OwnerKind string

const (
	OwnerVendor   OwnerKind = "vendor"
	OwnerCustomer OwnerKind = "customer"
)

// ParseOwnerKind validates an owner kind string.
func ParseOwnerKind(s string) (OwnerKind, error) {
	switch k := OwnerKind(strings.ToLower(strings.TrimSpace(s))); k {
	case OwnerVendor, OwnerCustomer:
		return k, nil
	default:
		return "", fmt.Errorf("unknown owner kind %q", s)
	}
}

// Category names what an upload is for.
type Category string

const (
	CategoryProductImage     Category = "product-image"
	CategoryProductVideo     Category = "product-video"
	CategoryAvatar           Category = "avatar"
	CategoryRoomPhoto        Category = "room-photo"
	CategoryBulkCSV          Category = "bulk-csv"
	CategoryBusinessDocument Category = "business-document"
)

var categoryKinds = map[Category]Kind{
	CategoryProductImage:     KindImage,
	CategoryProductVideo:     KindVideo,
	CategoryAvatar:           KindImage,
	CategoryRoomPhoto:        KindImage,
	CategoryBulkCSV:          KindSpreadsheet,
	CategoryBusinessDocument: KindDocument,
}

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := categoryKinds[c]; !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Kind returns the kind of content the category carries.
func (c Category) Kind() Kind {
	return categoryKinds[c]
}

// PolicyKey identifies a policy in a PolicyTable.
type PolicyKey struct {
	Owner    OwnerKind
	Category Category
}

func (k PolicyKey) String() string {
	return string(k.Owner) + "/" + string(k.Category)
}

// Policy defines the limits applied to uploads of one owner kind and category.
// A zero limit means the limit is not enforced.
type Policy struct {
	Owner    OwnerKind
	Category Category

	// MaxFiles is the maximum number of files accepted in one request.
	MaxFiles int

	// MaxFileSize is the maximum allowed file size in bytes.
	// Use the provided constants for readable configuration, e.g. 2 * MB.
	MaxFileSize int64

	// Formats is the set of accepted detected formats.
	Formats []Format

	// MinDimensions and MaxDimensions bound the declared pixel geometry.
	// They are only checked when the container states its dimensions.
	MinDimensions *Dimensions
	MaxDimensions *Dimensions

	// MaxDurationSeconds bounds video duration.
	MaxDurationSeconds float64

	// MaxRows bounds the number of spreadsheet data rows.
	MaxRows int
}

// Key returns the table key of the policy.
func (p Policy) Key() PolicyKey {
	return PolicyKey{Owner: p.Owner, Category: p.Category}
}

// Allows reports whether f is in the accepted format set.
func (p Policy) Allows(f Format) bool {
	return slices.Contains(p.Formats, f)
}

// FormatNames returns the accepted formats as names, for messages.
func (p Policy) FormatNames() []string {
	names := make([]string, len(p.Formats))
	for i, f := range p.Formats {
		names[i] = f.String()
	}
	return names
}

// Validate checks a policy for internal consistency.
func (p Policy) Validate() error {
	if _, err := ParseOwnerKind(string(p.Owner)); err != nil {
		return err
	}
	if _, err := ParseCategory(string(p.Category)); err != nil {
		return err
	}
	if p.MaxFiles < 0 || p.MaxFileSize < 0 || p.MaxRows < 0 || p.MaxDurationSeconds < 0 {
		return fmt.Errorf("policy %s: negative limit", p.Key())
	}
	if len(p.Formats) == 0 {
		return fmt.Errorf("policy %s: no accepted formats", p.Key())
	}
	for _, f := range p.Formats {
		if f == FormatUnknown || f >= formatCount {
			return fmt.Errorf("policy %s: invalid format %d", p.Key(), f)
		}
	}
	if p.MinDimensions != nil && p.MaxDimensions != nil &&
		(p.MinDimensions.Width > p.MaxDimensions.Width || p.MinDimensions.Height > p.MaxDimensions.Height) {
		return fmt.Errorf("policy %s: minimum dimensions exceed maximum", p.Key())
	}
	return nil
}

func (p Policy) clone() Policy {
	p.Formats = slices.Clone(p.Formats)
	if p.MinDimensions != nil {
		d := *p.MinDimensions
		p.MinDimensions = &d
	}
	if p.MaxDimensions != nil {
		d := *p.MaxDimensions
		p.MaxDimensions = &d
	}
	return p
}

// File is one complete upload presented for validation.
type File struct {
	// Name is the client-supplied file name. Optional.
	Name string

	// DeclaredMIME is the client-supplied content type. Advisory only.
	DeclaredMIME string

	// DeclaredSize is the size the client announced, or 0 when unknown.
	DeclaredSize int64

	// Data holds the complete byte sequence.
	Data []byte
}

// Size returns the declared size, or the received size when none was declared.
func (f File) Size() int64 {
	if f.DeclaredSize > 0 {
		return f.DeclaredSize
	}
	return int64(len(f.Data))
}
