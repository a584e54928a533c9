// Package ledger is the transaction poster: it validates postings against
// the owner's accounts and categories and applies them through the store's
// atomic operations. Balance mutation itself lives behind the store
// interface, so the increment/decrement model could be swapped for an
// append-only entries table without touching this contract.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/store"
)

// Service validates and posts transactions and manages recurring
// transaction definitions.
type Service struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a poster service on top of a store.
func NewService(st store.Store, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		log:   log.With().Str("component", "ledger").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the service clock; tests use it to pin "today".
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// PostRequest is the caller input for posting or updating a transaction.
type PostRequest struct {
	Kind          domain.TransactionKind `json:"kind"`
	Amount        decimal.Decimal        `json:"amount"`
	Date          time.Time              `json:"transaction_date"`
	CategoryID    *uuid.UUID             `json:"category_id,omitempty"`
	FromAccountID *uuid.UUID             `json:"from_account_id,omitempty"`
	ToAccountID   *uuid.UUID             `json:"to_account_id,omitempty"`
	Description   string                 `json:"description,omitempty"`
}

// resolve validates the request against the owner's accounts and categories
// and returns the transaction ready for posting. The transaction currency is
// taken from the referenced accounts, which must agree for transfers.
func (s *Service) resolve(ctx context.Context, owner uuid.UUID, req PostRequest) (*domain.Transaction, error) {
	t := &domain.Transaction{
		OwnerID:       owner,
		Kind:          req.Kind,
		Amount:        req.Amount,
		Date:          req.Date,
		CategoryID:    req.CategoryID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Description:   req.Description,
	}
	if t.Date.IsZero() {
		t.Date = s.now()
	}
	if err := t.ValidateShape(); err != nil {
		return nil, err
	}

	var from, to *domain.Account
	var err error
	if t.FromAccountID != nil {
		if from, err = s.store.GetAccount(ctx, owner, *t.FromAccountID); err != nil {
			return nil, fmt.Errorf("from account: %w", err)
		}
	}
	if t.ToAccountID != nil {
		if to, err = s.store.GetAccount(ctx, owner, *t.ToAccountID); err != nil {
			return nil, fmt.Errorf("to account: %w", err)
		}
	}
	switch {
	case from != nil && to != nil:
		if from.Currency != to.Currency {
			return nil, domain.Invalid("to_account_id", "transfer accounts must share a currency")
		}
		t.Currency = from.Currency
	case from != nil:
		t.Currency = from.Currency
	case to != nil:
		t.Currency = to.Currency
	}

	if t.CategoryID != nil {
		if t.Kind == domain.KindTransfer {
			return nil, domain.Invalid("category_id", "transfers take no category")
		}
		cat, err := s.store.GetCategory(ctx, owner, *t.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("category: %w", err)
		}
		if (t.Kind == domain.KindIncome && cat.Kind != domain.CategoryIncome) ||
			(t.Kind == domain.KindExpense && cat.Kind != domain.CategoryExpense) {
			return nil, domain.Invalid("category_id", "category kind does not match transaction kind")
		}
	}
	return t, nil
}

// Post validates and posts a transaction. Failure anywhere leaves every
// balance unchanged.
func (s *Service) Post(ctx context.Context, owner uuid.UUID, req PostRequest) (*domain.Transaction, error) {
	t, err := s.resolve(ctx, owner, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.PostTransaction(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("transaction_id", t.ID.String()).
		Str("kind", string(t.Kind)).
		Str("amount", t.Amount.String()).
		Str("currency", t.Currency).
		Msg("transaction posted")
	return t, nil
}

// Update replaces an existing transaction. The stored effect is reversed and
// the new effect applied inside one database transaction, so concurrent
// edits to the same account cannot observe a half-updated balance.
func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, req PostRequest) (*domain.Transaction, error) {
	if _, err := s.store.GetTransaction(ctx, owner, id); err != nil {
		return nil, err
	}
	t, err := s.resolve(ctx, owner, req)
	if err != nil {
		return nil, err
	}
	t.ID = id
	if err := s.store.ReplaceTransaction(ctx, t); err != nil {
		return nil, err
	}
	s.log.Info().Str("transaction_id", id.String()).Msg("transaction updated")
	return t, nil
}

// Delete reverses and removes a transaction.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if err := s.store.RemoveTransaction(ctx, owner, id); err != nil {
		return err
	}
	s.log.Info().Str("transaction_id", id.String()).Msg("transaction deleted")
	return nil
}

// Get returns one transaction.
func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (*domain.Transaction, error) {
	return s.store.GetTransaction(ctx, owner, id)
}

// List returns the owner's transactions, optionally filtered.
func (s *Service) List(ctx context.Context, owner uuid.UUID, f store.TransactionFilter) ([]*domain.Transaction, error) {
	return s.store.ListTransactions(ctx, owner, f)
}
