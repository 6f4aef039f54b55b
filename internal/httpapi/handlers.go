package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gobeaver/intake"
	"github.com/gobeaver/intake/bulkorder"
	"github.com/gobeaver/intake/filevalidator"
	"github.com/gobeaver/intake/internal/logger"
)

const (
	// maxMemory is the part of a multipart body kept in memory; the rest
	// spills to temporary files.
	maxMemory = 32 << 20

	// multipartOverhead is added to the policy limits for headers and boundaries.
	multipartOverhead = 1 << 20

	defaultListLimit = 50
)

// Handler serves the upload, template and bulk order endpoints.
type Handler struct {
	svc *intake.Service
}

// NewHandler creates a handler over svc.
func NewHandler(svc *intake.Service) *Handler {
	return &Handler{svc: svc}
}

// Upload validates the files of the multipart field "files" as one batch.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	kind, err := filevalidator.ParseOwnerKind(chi.URLParam(r, "ownerKind"))
	if err != nil {
		ValidationError(w, err.Error())
		return
	}
	category, err := filevalidator.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		ValidationError(w, err.Error())
		return
	}
	owner := intake.Owner{Kind: kind, ID: chi.URLParam(r, "ownerID")}
	if owner.ID == "" {
		ValidationError(w, "owner id is required")
		return
	}

	policy, ok := h.svc.Enforcer().Table().Lookup(kind, category)
	if !ok {
		NotFound(w, fmt.Sprintf("no upload policy for %s/%s", kind, category))
		return
	}

	files, err := readFiles(w, r, "files", bodyLimit(policy))
	if err != nil {
		writeReadError(w, err)
		return
	}

	res, err := h.svc.ValidateBatch(r.Context(), owner, category, files)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type fieldSummary struct {
	Column   string `json:"column"`
	Kind     string `json:"kind"`
	Required bool   `json:"required"`
}

type templateDetail struct {
	*bulkorder.Template
	Fields []fieldSummary `json:"fields"`
}

// ListTemplates returns every bulk order template.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": h.svc.Templates().List()})
}

// GetTemplate returns one template with the kind of each field rule.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")
	t, ok := h.svc.Templates().Get(id)
	if !ok {
		NotFound(w, fmt.Sprintf("template %s not found", id))
		return
	}

	detail := templateDetail{Template: t}
	for _, col := range t.Columns() {
		if rule, ok := t.Rule(col); ok {
			detail.Fields = append(detail.Fields, fieldSummary{Column: col, Kind: rule.Kind(), Required: rule.IsRequired()})
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// TemplateSample returns the starter CSV of a template as an attachment.
func (h *Handler) TemplateSample(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")
	sample, err := h.svc.Templates().RenderSample(id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_sample.csv"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, sample)
}

// CreateBulkOrder validates the spreadsheet in the multipart field "file"
// and stores its record.
func (h *Handler) CreateBulkOrder(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "id")
	templateID := chi.URLParam(r, "templateID")
	if _, ok := h.svc.Templates().Get(templateID); !ok {
		NotFound(w, fmt.Sprintf("template %s not found", templateID))
		return
	}

	var limit int64
	if policy, ok := h.svc.Enforcer().Table().Lookup(filevalidator.OwnerCustomer, filevalidator.CategoryBulkCSV); ok {
		limit = bodyLimit(policy)
	}
	files, err := readFiles(w, r, "file", limit)
	if err != nil {
		writeReadError(w, err)
		return
	}
	if len(files) != 1 {
		ValidationError(w, "exactly one file is required in field \"file\"")
		return
	}

	u, err := h.svc.ValidateBulkOrder(r.Context(), ownerID, templateID, files[0].Name, files[0].Data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// GetBulkOrder returns a bulk upload record.
func (h *Handler) GetBulkOrder(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.BulkUpload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ListBulkOrders returns the records of the owner given in ?owner=, newest
// first, at most ?limit= of them.
func (h *Handler) ListBulkOrders(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner")
	if ownerID == "" {
		ValidationError(w, "query parameter owner is required")
		return
	}
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			ValidationError(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	uploads, err := h.svc.BulkUploads(r.Context(), ownerID, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if uploads == nil {
		uploads = []*bulkorder.Upload{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": uploads})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateBulkStatus moves a record to the status in the JSON body.
func (h *Handler) UpdateBulkStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		ValidationError(w, "invalid JSON body")
		return
	}
	to, err := bulkorder.ParseStatus(req.Status)
	if err != nil {
		ValidationError(w, err.Error())
		return
	}

	u, err := h.svc.SetBulkStatus(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// bodyLimit is the largest request body a policy can legitimately need.
func bodyLimit(p filevalidator.Policy) int64 {
	if p.MaxFileSize <= 0 {
		return 0
	}
	return p.MaxFileSize*int64(max(p.MaxFiles, 1)) + multipartOverhead
}

// readFiles reads every part of field completely. A part is never handed to
// validation unless its announced size arrived.
func readFiles(w http.ResponseWriter, r *http.Request, field string, limit int64) ([]filevalidator.File, error) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[field]
	files := make([]filevalidator.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := intake.ReadExpected(f, fh.Size, 0)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		files = append(files, filevalidator.File{
			Name:         fh.Filename,
			DeclaredMIME: fh.Header.Get("Content-Type"),
			DeclaredSize: fh.Size,
			Data:         data,
		})
	}
	return files, nil
}

func writeReadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		TooLarge(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, intake.ErrIncomplete):
		ValidationError(w, err.Error())
	default:
		ValidationError(w, "invalid multipart form: "+err.Error())
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *filevalidator.ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationError(w, verr.Message)
	case errors.Is(err, filevalidator.ErrUnknownPolicy),
		errors.Is(err, bulkorder.ErrTemplateNotFound),
		errors.Is(err, bulkorder.ErrUploadNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, bulkorder.ErrInvalidTransition):
		Conflict(w, err.Error())
	default:
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", slog.Any("error", err))
		InternalError(w)
	}
}
