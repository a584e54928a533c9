package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/centavoapp/centavo/internal/api/middleware"
	"github.com/centavoapp/centavo/internal/importer"
	"github.com/centavoapp/centavo/internal/jobs"
)

// maxImportBody caps uploaded statements at 5 MiB.
const maxImportBody = 5 << 20

// ImportsHandler accepts CSV statements and tracks their import jobs.
type ImportsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	log       zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(publisher jobs.Publisher, store jobs.JobStore, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{
		publisher: publisher,
		store:     store,
		log:       log,
	}
}

// Create handles POST /api/imports. The request body is the CSV statement;
// parsing is synchronous so malformed files fail fast, posting is queued.
func (h *ImportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerID(r.Context())

	rows, err := importer.Parse(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(rows) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "statement has no data rows")
		return
	}

	job := &jobs.ImportStatementJob{
		JobID:      uuid.NewString(),
		OwnerID:    owner,
		Filename:   r.Header.Get("X-Filename"),
		Rows:       rows,
		Status:     jobs.JobStatusPending,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: 3,
	}
	if err := h.publisher.PublishImport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("job_id", job.JobID).Msg("publish import job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "import queue is full, retry later")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.JobID,
		"status": job.Status,
		"rows":   len(rows),
	})
}

// Get handles GET /api/imports/{jobID}.
func (h *ImportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	// Jobs are owner-scoped like everything else.
	if job.OwnerID != middleware.OwnerID(r.Context()) {
		middleware.WriteError(w, http.StatusNotFound, "resource not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/imports.
func (h *ImportsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := jobs.JobFilter{
		OwnerID: middleware.OwnerID(r.Context()),
		Status:  jobs.JobStatus(r.URL.Query().Get("status")),
		Limit:   50,
	}
	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}
