package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/api/middleware"
	"github.com/centavoapp/centavo/internal/currency"
	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/store"
)

// AccountsHandler handles account and account-type endpoints.
type AccountsHandler struct {
	store store.Store
	rates *currency.Table
	log   zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(st store.Store, rates *currency.Table, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{store: st, rates: rates, log: log}
}

type accountRequest struct {
	Name           string                 `json:"name"`
	TypeID         *uuid.UUID             `json:"type_id,omitempty"`
	Category       domain.AccountCategory `json:"category"`
	Currency       string                 `json:"currency"`
	InitialBalance decimal.Decimal        `json:"initial_balance"`
}

func (req *accountRequest) validate(rates *currency.Table) error {
	if strings.TrimSpace(req.Name) == "" {
		return domain.Invalid("name", "is required")
	}
	if !req.Category.Valid() {
		return domain.Invalid("category", "must be asset or liability")
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if !rates.Supports(req.Currency) {
		return currency.UnsupportedError(req.Currency)
	}
	return nil
}

// Create handles POST /api/accounts.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerID(r.Context())

	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(h.rates); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}

	account := &domain.Account{
		ID:             uuid.New(),
		OwnerID:        owner,
		Name:           req.Name,
		TypeID:         req.TypeID,
		Category:       req.Category,
		Currency:       req.Currency,
		InitialBalance: req.InitialBalance,
		CurrentBalance: req.InitialBalance,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.store.CreateAccount(r.Context(), account); err != nil {
		h.log.Error().Err(err).Msg("create account")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, account)
}

// List handles GET /api/accounts.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		h.log.Error().Err(err).Msg("list accounts")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// Get handles GET /api/accounts/{id}.
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	account, err := h.store.GetAccount(r.Context(), middleware.OwnerID(r.Context()), id)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, account)
}

// Update handles PUT /api/accounts/{id}. Currency and balances are fixed at
// creation; only the metadata fields can change.
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerID(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name     string                 `json:"name"`
		TypeID   *uuid.UUID             `json:"type_id,omitempty"`
		Category domain.AccountCategory `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.store.GetAccount(r.Context(), owner, id)
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) != "" {
		account.Name = req.Name
	}
	if req.TypeID != nil {
		account.TypeID = req.TypeID
	}
	if req.Category != "" {
		if !req.Category.Valid() {
			middleware.WriteDomainError(w, domain.Invalid("category", "must be asset or liability"))
			return
		}
		account.Category = req.Category
	}
	if err := h.store.UpdateAccount(r.Context(), account); err != nil {
		h.log.Error().Err(err).Msg("update account")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, account)
}

// Delete handles DELETE /api/accounts/{id}. Transactions referencing the
// account go with it.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteAccount(r.Context(), middleware.OwnerID(r.Context()), id); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}

// CreateType handles POST /api/account-types.
func (h *AccountsHandler) CreateType(w http.ResponseWriter, r *http.Request) {
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

	t := &domain.AccountType{
		ID:      uuid.New(),
		OwnerID: middleware.OwnerID(r.Context()),
		Name:    req.Name,
	}
	if err := h.store.CreateAccountType(r.Context(), t); err != nil {
		h.log.Error().Err(err).Msg("create account type")
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, t)
}

// ListTypes handles GET /api/account-types.
func (h *AccountsHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.store.ListAccountTypes(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"account_types": types,
		"count":         len(types),
	})
}

// DeleteType handles DELETE /api/account-types/{id}.
func (h *AccountsHandler) DeleteType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteAccountType(r.Context(), middleware.OwnerID(r.Context()), id); err != nil {
		middleware.WriteDomainError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}
