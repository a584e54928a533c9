package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/centavoapp/centavo/internal/api/middleware"
	"github.com/centavoapp/centavo/internal/dashboard"
	"github.com/centavoapp/centavo/internal/scheduler"
)

// DashboardHandler handles the aggregated dashboard endpoint.
type DashboardHandler struct {
	dashboard *dashboard.Service
	log       zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(svc *dashboard.Service, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: svc, log: log}
}

// Get handles GET /api/dashboard. The optional currency query parameter
// overrides the owner's primary currency for this response.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerID(r.Context())
	primary := h.dashboard.PrimaryCurrency(r.Context(), owner, r.URL.Query().Get("currency"))

	snap, err := h.dashboard.Snapshot(r.Context(), owner, primary)
	if err != nil {
		h.log.Error().Err(err).Msg("dashboard snapshot")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, snap)
}

// SchedulerHandler exposes scheduler introspection and manual runs.
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	log       zerolog.Logger
}

// NewSchedulerHandler creates a new scheduler handler.
func NewSchedulerHandler(s *scheduler.Scheduler, log zerolog.Logger) *SchedulerHandler {
	return &SchedulerHandler{scheduler: s, log: log}
}

// Status handles GET /api/scheduler/status.
func (h *SchedulerHandler) Status(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.scheduler.Status())
}

// RunNow handles POST /api/scheduler/run. A pass already in flight answers
// 409 rather than queueing a second one.
func (h *SchedulerHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	summary, err := h.scheduler.RunNow(r.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrPassInProgress) {
			middleware.WriteError(w, http.StatusConflict, "a scheduler pass is already running")
			return
		}
		h.log.Error().Err(err).Msg("manual scheduler run")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}
