// Package handlers exposes the tracker over HTTP. Handlers stay thin:
// request decoding and status mapping here, domain rules in the ledger,
// dashboard and scheduler packages.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/centavoapp/centavo/internal/api/middleware"
)

// pathID parses the {id} route parameter. It writes a 400 and returns false
// when the segment is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
