package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gobeaver/intake/bulkorder"
	"github.com/gobeaver/intake/dedup"
	"github.com/gobeaver/intake/filevalidator"
)

var filesValidatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "intake_files_validated_total",
	Help: "Uploaded files by category and verdict.",
}, []string{"category", "verdict"})

// Verdict is the outcome for one file of a batch.
type Verdict string

const (
	VerdictAccepted  Verdict = "accepted"
	VerdictRejected  Verdict = "rejected"
	VerdictDuplicate Verdict = "duplicate"
)

// Owner identifies who uploads: the kind selects the policy and the id
// scopes deduplication.
type Owner struct {
	Kind filevalidator.OwnerKind `json:"ownerKind"`
	ID   string                  `json:"ownerId"`
}

// FileVerdict is the outcome for one file of a batch.
type FileVerdict struct {
	Verdict Verdict                         `json:"verdict"`
	Result  *filevalidator.ValidationResult `json:"result"`

	// FileHash is the SHA-256 of the bytes, set for files that passed validation.
	FileHash string `json:"fileHash,omitempty"`

	// FileID identifies the accepted file, or the earlier file a duplicate matches.
	FileID string `json:"fileId,omitempty"`

	// Existing is the earlier upload a duplicate matches.
	Existing *dedup.Ref `json:"existing,omitempty"`

	// StoragePath is where an accepted file was written, when storage is configured.
	StoragePath string `json:"storagePath,omitempty"`
}

// BatchResult is the outcome of ValidateBatch.
type BatchResult struct {
	Owner      Owner                  `json:"owner"`
	Category   filevalidator.Category `json:"category"`
	Files      []FileVerdict          `json:"files"`
	Accepted   int                    `json:"accepted"`
	Rejected   int                    `json:"rejected"`
	Duplicates int                    `json:"duplicates"`
}

// Service ties the validation core to deduplication, bulk order handling and
// optional storage of accepted files.
type Service struct {
	enforcer *filevalidator.Enforcer
	dedup    *dedup.Deduplicator
	engine   *bulkorder.Engine
	bulk     bulkorder.Store
	storage  FileSystem
	logger   *slog.Logger
	now      func() time.Time
	closers  []func() error
	checkers []ReadinessChecker
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEnforcer sets the policy enforcer.
func WithEnforcer(e *filevalidator.Enforcer) ServiceOption {
	return func(s *Service) { s.enforcer = e }
}

// WithDeduplicator sets the deduplicator.
func WithDeduplicator(d *dedup.Deduplicator) ServiceOption {
	return func(s *Service) { s.dedup = d }
}

// WithEngine sets the bulk order engine.
func WithEngine(e *bulkorder.Engine) ServiceOption {
	return func(s *Service) { s.engine = e }
}

// WithBulkStore sets where bulk upload records are kept.
func WithBulkStore(store bulkorder.Store) ServiceOption {
	return func(s *Service) { s.bulk = store }
}

// WithStorage writes accepted files to fs.
func WithStorage(fs FileSystem) ServiceOption {
	return func(s *Service) { s.storage = fs }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithReadiness adds dependency checks reported by Readiness.
func WithReadiness(checkers ...ReadinessChecker) ServiceOption {
	return func(s *Service) { s.checkers = append(s.checkers, checkers...) }
}

// NewService creates a service. Unset parts default to the built-in policy
// table, an in-memory dedup repository, the default bulk templates and an
// in-memory record store. Storage is off unless WithStorage is given.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.enforcer == nil {
		s.enforcer = filevalidator.NewEnforcer(filevalidator.DefaultPolicyTable())
	}
	if s.dedup == nil {
		s.dedup = dedup.New(dedup.NewMemoryRepository(), dedup.WithLogger(s.logger))
	}
	if s.engine == nil {
		s.engine = bulkorder.NewEngine(bulkorder.DefaultRegistry(),
			bulkorder.WithClock(s.now), bulkorder.WithLogger(s.logger))
	}
	s.logger = s.logger.With("component", "intake")
	if s.bulk == nil {
		s.bulk = bulkorder.NewMemoryStore()
	}
	return s
}

// Enforcer returns the policy enforcer.
func (s *Service) Enforcer() *filevalidator.Enforcer { return s.enforcer }

// Templates returns the bulk order template registry.
func (s *Service) Templates() *bulkorder.Registry { return s.engine.Registry() }

// Readiness returns the dependency checks of the service.
func (s *Service) Readiness() []ReadinessChecker { return s.checkers }

// Close releases connections opened by Open.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// ValidateBatch checks a batch of files uploaded together by owner under
// category.
//
// The file count is enforced first; a count violation or an unknown policy
// rejects the whole batch with an error. Every file is then checked
// concurrently. Each valid file is fingerprinted and reserved in the dedup
// repository; a file whose content the owner already uploaded under the same
// category gets a duplicate verdict that points at the earlier upload. When
// storage is configured, accepted files are written and their SHA-256 is
// verified; a failed write releases the reservation and aborts the batch.
func (s *Service) ValidateBatch(ctx context.Context, owner Owner, category filevalidator.Category, files []filevalidator.File) (*BatchResult, error) {
	if owner.ID == "" {
		return nil, errors.New("owner id is required")
	}

	results, err := s.enforcer.CheckBatch(ctx, owner.Kind, category, files)
	if err != nil {
		return nil, err
	}

	out := &BatchResult{
		Owner:    owner,
		Category: category,
		Files:    make([]FileVerdict, len(files)),
	}
	for i, res := range results {
		v, err := s.settle(ctx, owner, category, files[i], res)
		if err != nil {
			return nil, err
		}
		out.Files[i] = v

		switch v.Verdict {
		case VerdictAccepted:
			out.Accepted++
		case VerdictDuplicate:
			out.Duplicates++
		default:
			out.Rejected++
		}
		filesValidatedTotal.WithLabelValues(string(category), string(v.Verdict)).Inc()
	}

	s.logger.InfoContext(ctx, "batch validated",
		slog.String("owner_kind", string(owner.Kind)),
		slog.String("owner_id", owner.ID),
		slog.String("category", string(category)),
		slog.Int("files", len(files)),
		slog.Int("accepted", out.Accepted),
		slog.Int("rejected", out.Rejected),
		slog.Int("duplicates", out.Duplicates),
	)
	return out, nil
}

func (s *Service) settle(ctx context.Context, owner Owner, category filevalidator.Category, file filevalidator.File, res *filevalidator.ValidationResult) (FileVerdict, error) {
	if !res.Valid {
		return FileVerdict{Verdict: VerdictRejected, Result: res}, nil
	}

	ref := dedup.Ref{
		OwnerKind: string(owner.Kind),
		OwnerID:   owner.ID,
		Category:  string(category),
		Hash:      s.dedup.Fingerprint(file.Data),
		FileID:    uuid.NewString(),
		FileName:  file.Name,
		Size:      file.Size(),
		CreatedAt: s.now().UTC(),
	}
	v := FileVerdict{Result: res, FileHash: ref.Hash.Hex()}

	existing, duplicate, err := s.dedup.Reserve(ctx, ref)
	if err != nil {
		return v, fmt.Errorf("reserve %s: %w", file.Name, err)
	}
	if duplicate {
		v.Verdict = VerdictDuplicate
		v.FileID = existing.FileID
		v.Existing = &existing
		return v, nil
	}

	v.Verdict = VerdictAccepted
	v.FileID = ref.FileID
	if s.storage == nil {
		return v, nil
	}

	target := storagePath(owner, category, ref.FileID, res.Format)
	if _, err := s.storage.Write(ctx, target, bytes.NewReader(file.Data),
		WithContentType(res.Format.MIME()),
		WithChecksum(ChecksumSHA256, v.FileHash),
		WithMetadata(map[string]string{"original-name": file.Name}),
	); err != nil {
		if rerr := s.dedup.Release(context.WithoutCancel(ctx), ref.Key()); rerr != nil {
			s.logger.ErrorContext(ctx, "release reservation after failed write",
				slog.String("file_id", ref.FileID),
				slog.Any("error", rerr),
			)
		}
		return v, fmt.Errorf("store %s: %w", file.Name, err)
	}
	v.StoragePath = target
	return v, nil
}

// storagePath lays accepted files out as <kind>/<owner>/<category>/<id>.<ext>.
func storagePath(owner Owner, category filevalidator.Category, fileID string, format filevalidator.Format) string {
	name := fileID
	if exts := format.Extensions(); len(exts) > 0 {
		name += exts[0]
	}
	return path.Join(string(owner.Kind), owner.ID, string(category), name)
}

// ValidateBulkOrder checks a bulk order spreadsheet and keeps its record.
//
// The file first goes through the customer bulk-csv policy: size, row limit
// and the spreadsheet security scan. A file failing that is recorded as
// rejected and the template rules are not run. Otherwise the engine
// validates it against the template and the record ends valid or invalid.
func (s *Service) ValidateBulkOrder(ctx context.Context, ownerID, templateID, fileName string, data []byte) (*bulkorder.Upload, error) {
	policy, err := s.enforcer.Enforce(filevalidator.OwnerCustomer, filevalidator.CategoryBulkCSV, 1)
	if err != nil {
		return nil, err
	}

	res := s.enforcer.CheckFile(filevalidator.File{
		Name:         fileName,
		DeclaredMIME: "text/csv",
		Data:         data,
	}, policy)

	var u *bulkorder.Upload
	if res.Valid {
		u, err = s.engine.Validate(ctx, ownerID, templateID, fileName, data)
	} else {
		issues := make([]bulkorder.Issue, 0, len(res.Errors))
		for _, e := range res.Errors {
			issues = append(issues, bulkorder.Issue{
				Message:  e.Message,
				Severity: bulkorder.SeverityError,
				Type:     e.Type,
			})
		}
		u, err = s.engine.Reject(ownerID, templateID, fileName, data, issues)
	}
	if err != nil {
		return nil, err
	}

	if err := s.bulk.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("save bulk upload: %w", err)
	}
	return u, nil
}

// BulkUpload returns a stored bulk upload record.
func (s *Service) BulkUpload(ctx context.Context, uploadID string) (*bulkorder.Upload, error) {
	return s.bulk.Get(ctx, uploadID)
}

// BulkUploads returns an owner's bulk upload records, newest first.
func (s *Service) BulkUploads(ctx context.Context, ownerID string, limit int) ([]*bulkorder.Upload, error) {
	return s.bulk.ListByOwner(ctx, ownerID, limit)
}

// SetBulkStatus moves a bulk upload record along its lifecycle, for example
// to processed once the order was placed.
func (s *Service) SetBulkStatus(ctx context.Context, uploadID string, to bulkorder.Status) (*bulkorder.Upload, error) {
	u, err := s.bulk.UpdateStatus(ctx, uploadID, to)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "bulk upload status changed",
		slog.String("upload_id", uploadID),
		slog.String("status", string(to)),
	)
	return u, nil
}
