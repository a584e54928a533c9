package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/centavoapp/centavo/internal/api/middleware"
	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/ledger"
	"github.com/centavoapp/centavo/internal/store"
)

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *ledger.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{ledger: svc, log: log}
}

// Create handles POST /api/transactions.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ledger.PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.ledger.Post(r.Context(), middleware.OwnerID(r.Context()), req)
	if err != nil {
		h.log.Debug().Err(err).Msg("post transaction rejected")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, t)
}

// List handles GET /api/transactions. Supported query parameters: year,
// month, account_id, category_id, kind, limit.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	transactions, err := h.ledger.List(r.Context(), middleware.OwnerID(r.Context()), filter)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// Get handles GET /api/transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.ledger.Get(r.Context(), middleware.OwnerID(r.Context()), id)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, t)
}

// Update handles PUT /api/transactions/{id}.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ledger.PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.ledger.Update(r.Context(), middleware.OwnerID(r.Context()), id, req)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/transactions/{id}.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Delete(r.Context(), middleware.OwnerID(r.Context()), id); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}

func parseTransactionFilter(r *http.Request) (store.TransactionFilter, error) {
	var f store.TransactionFilter
	q := r.URL.Query()

	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return f, domain.Invalid("year", "must be an integer")
		}
		f.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return f, domain.Invalid("month", "must be 1-12")
		}
		f.Month = time.Month(month)
	}
	if (f.Year != 0) != (f.Month != 0) {
		return f, domain.Invalid("month", "year and month must be given together")
	}
	if v := q.Get("account_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, domain.Invalid("account_id", "must be a valid UUID")
		}
		f.AccountID = &id
	}
	if v := q.Get("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, domain.Invalid("category_id", "must be a valid UUID")
		}
		f.CategoryID = &id
	}
	if v := q.Get("kind"); v != "" {
		kind := domain.TransactionKind(v)
		if !kind.Valid() {
			return f, domain.Invalid("kind", "must be income, expense or transfer")
		}
		f.Kind = kind
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return f, domain.Invalid("limit", "must be a non-negative integer")
		}
		f.Limit = limit
	}
	return f, nil
}
