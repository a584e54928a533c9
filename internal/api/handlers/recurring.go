package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/centavoapp/centavo/internal/api/middleware"
	"github.com/centavoapp/centavo/internal/ledger"
)

// RecurringHandler handles recurring transaction definition endpoints.
type RecurringHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewRecurringHandler creates a new recurring definitions handler.
func NewRecurringHandler(svc *ledger.Service, log zerolog.Logger) *RecurringHandler {
	return &RecurringHandler{ledger: svc, log: log}
}

// Create handles POST /api/recurring.
func (h *RecurringHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ledger.RecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := h.ledger.CreateRecurring(r.Context(), middleware.OwnerID(r.Context()), req)
	if err != nil {
		h.log.Debug().Err(err).Msg("create recurring rejected")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, def)
}

// List handles GET /api/recurring.
func (h *RecurringHandler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.ledger.ListRecurring(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"recurring": defs,
		"count":     len(defs),
	})
}

// Get handles GET /api/recurring/{id}.
func (h *RecurringHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	def, err := h.ledger.GetRecurring(r.Context(), middleware.OwnerID(r.Context()), id)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, def)
}

// Update handles PUT /api/recurring/{id}.
func (h *RecurringHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ledger.RecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := h.ledger.UpdateRecurring(r.Context(), middleware.OwnerID(r.Context()), id, req)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, def)
}

// Pause handles POST /api/recurring/{id}/pause.
func (h *RecurringHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// Resume handles POST /api/recurring/{id}/resume.
func (h *RecurringHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *RecurringHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	def, err := h.ledger.SetRecurringActive(r.Context(), middleware.OwnerID(r.Context()), id, active)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, def)
}

// Delete handles DELETE /api/recurring/{id}. Posted transactions survive the
// definition.
func (h *RecurringHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.ledger.DeleteRecurring(r.Context(), middleware.OwnerID(r.Context()), id); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}
