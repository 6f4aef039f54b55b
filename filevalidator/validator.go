package filevalidator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxNameLength is the longest accepted file name.
const MaxNameLength = 255

// Characters and sequences that are never accepted in a file name.
var dangerousNameChars = []string{"..", "/", "\\", "\x00", ";", "|", "&", "$", "`", "<", ">"}

// Enforcer applies upload policies. It holds only immutable configuration
// and is safe for concurrent use.
type Enforcer struct {
	table       *PolicyTable
	scanner     *ContentScanner
	concurrency int
}

// EnforcerOption configures an Enforcer.
type EnforcerOption func(*Enforcer)

// WithScanner replaces the default content scanner.
func WithScanner(s *ContentScanner) EnforcerOption {
	return func(e *Enforcer) {
		if s != nil {
			e.scanner = s
		}
	}
}

// WithConcurrency bounds how many files CheckBatch validates at once.
func WithConcurrency(n int) EnforcerOption {
	return func(e *Enforcer) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEnforcer creates an enforcer over table.
func NewEnforcer(table *PolicyTable, opts ...EnforcerOption) *Enforcer {
	e := &Enforcer{
		table:       table,
		scanner:     DefaultContentScanner(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the policy table the enforcer was built with.
func (e *Enforcer) Table() *PolicyTable {
	return e.table
}

// Scanner returns the content scanner in use.
func (e *Enforcer) Scanner() *ContentScanner {
	return e.scanner
}

// Enforce selects the policy for owner and category and checks the request's
// file count against it. It runs before any per-file work.
func (e *Enforcer) Enforce(owner OwnerKind, category Category, fileCount int) (Policy, error) {
	policy, ok := e.table.Lookup(owner, category)
	if !ok {
		return Policy{}, fmt.Errorf("%w: %s", ErrUnknownPolicy, PolicyKey{Owner: owner, Category: category})
	}
	if fileCount <= 0 {
		return Policy{}, NewValidationError(ErrorTypeCount, "no files submitted")
	}
	if policy.MaxFiles > 0 && fileCount > policy.MaxFiles {
		return Policy{}, NewValidationError(ErrorTypeCount,
			fmt.Sprintf("too many files: %d submitted, maximum is %d", fileCount, policy.MaxFiles))
	}
	return policy, nil
}

// CheckBatch enforces the count and then checks every file concurrently.
// It returns one result per file, in input order. A count violation rejects
// the batch as a whole and no file is inspected.
func (e *Enforcer) CheckBatch(ctx context.Context, owner OwnerKind, category Category, files []File) ([]*ValidationResult, error) {
	policy, err := e.Enforce(owner, category, len(files))
	if err != nil {
		return nil, err
	}

	results := make([]*ValidationResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.CheckFile(files[i], policy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CheckFile runs every per-file check of policy against file and collects all
// violations. A panic inside any check is reported as a single format error.
func (e *Enforcer) CheckFile(file File, policy Policy) (result *ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = QuickResult(file.Name, file.Size(),
				NewValidationError(ErrorTypeFormat, fmt.Sprintf("file could not be inspected: %v", r)))
		}
	}()
	return e.checkFile(file, policy)
}

func (e *Enforcer) checkFile(file File, policy Policy) *ValidationResult {
	b := NewResultBuilder(file.Name, file.Size()).SetDeclaredMIME(file.DeclaredMIME)

	run := func(name string, fn func() string) {
		start := time.Now()
		before := len(b.result.Errors)
		msg := fn()
		passed := len(b.result.Errors) == before
		if msg == "" {
			msg = "ok"
			if !passed {
				msg = b.result.Errors[len(b.result.Errors)-1].Message
			}
		}
		b.AddCheckWithDetails(name, passed, msg, "", time.Since(start))
	}

	if file.Name != "" {
		run("filename", func() string {
			if err := validateFileName(file.Name); err != nil {
				b.AddError(err.Type, err.Message)
			}
			return ""
		})
	}

	run("size", func() string {
		e.checkSize(b, file, policy)
		return ""
	})

	format, detected := DetectFormat(file.Data)
	b.SetFormat(format)

	run("format", func() string {
		switch {
		case !detected:
			b.AddErrorf(ErrorTypeFormat, "unrecognized file format (content looks like %s); allowed formats: %s",
				DescribeContent(file.Data), strings.Join(policy.FormatNames(), ", "))
		case !policy.Allows(format):
			b.AddErrorf(ErrorTypeFormat, "file format %s is not allowed; allowed formats: %s",
				format, strings.Join(policy.FormatNames(), ", "))
		}
		if declared, ok := declaredFormat(file.DeclaredMIME); ok && detected && declared != format {
			b.AddWarning(fmt.Sprintf("declared type %s does not match detected format %s", file.DeclaredMIME, format))
		}
		if format == FormatPDF {
			if err := pdfStructure(file.Data); err != nil {
				b.AddError(ErrorTypeFormat, "truncated or corrupt PDF document")
			}
		}
		return format.String()
	})

	if detected {
		run("dimensions", func() string {
			e.checkGeometry(b, file.Data, format, policy)
			return ""
		})
	}

	if format == FormatCSV && policy.MaxRows > 0 {
		run("rows", func() string {
			if rows := CountDataRows(file.Data); rows > policy.MaxRows {
				b.AddErrorf(ErrorTypeSize, "spreadsheet has %d data rows, maximum is %d", rows, policy.MaxRows)
			}
			return ""
		})
	}

	run("security", func() string {
		kind := policy.Category.Kind()
		if detected {
			kind = format.Kind()
		}
		b.merge(e.scanner.Scan(file.Data, kind))
		return ""
	})

	return b.Build()
}

func (e *Enforcer) checkSize(b *ResultBuilder, file File, policy Policy) {
	received := int64(len(file.Data))
	if received == 0 {
		b.AddError(ErrorTypeSize, "file is empty")
		return
	}
	if file.DeclaredSize > 0 && file.DeclaredSize != received {
		b.AddErrorf(ErrorTypeSize, "incomplete upload: declared %d bytes, received %d", file.DeclaredSize, received)
	}
	if size := file.Size(); policy.MaxFileSize > 0 && size > policy.MaxFileSize {
		b.AddErrorf(ErrorTypeSize, "file size %s exceeds maximum of %s",
			FormatSizeReadable(size), FormatSizeReadable(policy.MaxFileSize))
	}
}

func (e *Enforcer) checkGeometry(b *ResultBuilder, data []byte, format Format, policy Policy) {
	if format.Kind() == KindImage || format.Kind() == KindVideo {
		dims, err := DimensionsOf(data, format)
		switch {
		case errors.Is(err, ErrNoDimensions):
			if policy.MinDimensions != nil || policy.MaxDimensions != nil {
				b.AddWarning(fmt.Sprintf("dimensions not available for this %s variant; dimension limits not checked", format))
			}
		case err != nil:
			b.AddErrorf(ErrorTypeFormat, "corrupt or truncated %s header", format)
		default:
			b.SetDimensions(dims)
			checkBounds(b, dims, policy)
		}
	}

	if format.Kind() == KindVideo {
		seconds, ok := DurationOf(data, format)
		if !ok {
			return
		}
		b.SetDuration(seconds)
		if policy.MaxDurationSeconds > 0 && seconds > policy.MaxDurationSeconds {
			b.AddErrorf(ErrorTypeDimension, "video duration %.1fs exceeds maximum of %gs", seconds, policy.MaxDurationSeconds)
		}
	}
}

func checkBounds(b *ResultBuilder, dims Dimensions, policy Policy) {
	if lo := policy.MinDimensions; lo != nil && (dims.Width < lo.Width || dims.Height < lo.Height) {
		b.AddErrorf(ErrorTypeDimension, "dimensions %s are below minimum %s", dims, *lo)
	}
	if hi := policy.MaxDimensions; hi != nil && (dims.Width > hi.Width || dims.Height > hi.Height) {
		b.AddErrorf(ErrorTypeDimension, "dimensions %s exceed maximum %s", dims, *hi)
	}
}

// validateFileName checks a client-supplied file name
func validateFileName(filename string) *ValidationError {
	if len(filename) > MaxNameLength {
		return NewValidationError(
			ErrorTypeFileName,
			fmt.Sprintf("filename exceeds maximum length of %d characters", MaxNameLength),
		)
	}

	for _, char := range dangerousNameChars {
		if strings.Contains(filename, char) {
			return NewValidationError(
				ErrorTypeFileName,
				fmt.Sprintf("filename contains invalid character: %q", char),
			)
		}
	}

	// check every extension so "invoice.exe.pdf" is caught too
	name := filename
	for ext := filepath.Ext(name); ext != ""; ext = filepath.Ext(name) {
		if IsBlockedExtension(ext) {
			return NewValidationError(
				ErrorTypeFileName,
				fmt.Sprintf("file extension %s is blocked", strings.ToLower(ext)),
			)
		}
		name = strings.TrimSuffix(name, ext)
	}

	return nil
}
