package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/centavoapp/centavo/internal/api/middleware"
	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/store"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	store store.CategoryStore
	log   zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(st store.CategoryStore, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{store: st, log: log}
}

type categoryRequest struct {
	Name string              `json:"name"`
	Kind domain.CategoryKind `json:"kind"`
}

func (req *categoryRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return domain.Invalid("name", "is required")
	}
	if !req.Kind.Valid() {
		return domain.Invalid("kind", "must be income or expense")
	}
	return nil
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	c := &domain.Category{
		ID:      uuid.New(),
		OwnerID: middleware.OwnerID(r.Context()),
		Name:    req.Name,
		Kind:    req.Kind,
	}
	if err := h.store.CreateCategory(r.Context(), c); err != nil {
		h.log.Error().Err(err).Msg("create category")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, c)
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// Get handles GET /api/categories/{id}.
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.store.GetCategory(r.Context(), middleware.OwnerID(r.Context()), id)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// Update handles PUT /api/categories/{id}. The kind is fixed at creation so
// historical aggregations keep their meaning; only the name can change.
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerID(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		middleware.WriteDomainError(w, domain.Invalid("name", "is required"))
		return
	}

	c, err := h.store.GetCategory(r.Context(), owner, id)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	c.Name = req.Name
	if err := h.store.UpdateCategory(r.Context(), c); err != nil {
		h.log.Error().Err(err).Msg("update category")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/categories/{id}. Transactions keep their rows
// and lose the label.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteCategory(r.Context(), middleware.OwnerID(r.Context()), id); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}
