package ledger

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/recurrence"
)

// RecurringRequest is the caller input for creating or updating a recurring
// transaction definition.
type RecurringRequest struct {
	Kind          domain.TransactionKind `json:"kind"`
	Amount        decimal.Decimal        `json:"amount"`
	CategoryID    *uuid.UUID             `json:"category_id,omitempty"`
	FromAccountID *uuid.UUID             `json:"from_account_id,omitempty"`
	ToAccountID   *uuid.UUID             `json:"to_account_id,omitempty"`
	Description   string                 `json:"description,omitempty"`
	Frequency     domain.Frequency       `json:"frequency"`
	StartDate     civil.Date             `json:"start_date"`
	StartHour     int                    `json:"start_hour"`
	EndDate       *civil.Date            `json:"end_date,omitempty"`
	EndHour       *int                   `json:"end_hour,omitempty"`
}

// resolveRecurring validates the request and returns the definition with its
// next execution computed. Account and category checks reuse the posting
// rules: the produced transactions must be postable.
func (s *Service) resolveRecurring(ctx context.Context, owner uuid.UUID, req RecurringRequest) (*domain.RecurringTransaction, error) {
	endHour := 23
	if req.EndHour != nil {
		endHour = *req.EndHour
	}
	r := &domain.RecurringTransaction{
		OwnerID:       owner,
		Kind:          req.Kind,
		Amount:        req.Amount,
		CategoryID:    req.CategoryID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Description:   req.Description,
		Frequency:     req.Frequency,
		StartDate:     req.StartDate,
		StartHour:     req.StartHour,
		EndDate:       req.EndDate,
		EndHour:       endHour,
		IsActive:      true,
	}
	if err := r.ValidateShape(); err != nil {
		return nil, err
	}

	// Validate references by resolving a throwaway template posting.
	probe := r.Template(s.now())
	if _, err := s.resolve(ctx, owner, PostRequest{
		Kind:          probe.Kind,
		Amount:        probe.Amount,
		Date:          probe.Date,
		CategoryID:    probe.CategoryID,
		FromAccountID: probe.FromAccountID,
		ToAccountID:   probe.ToAccountID,
		Description:   probe.Description,
	}); err != nil {
		return nil, err
	}
	if r.FromAccountID != nil {
		a, err := s.store.GetAccount(ctx, owner, *r.FromAccountID)
		if err != nil {
			return nil, err
		}
		r.Currency = a.Currency
	} else {
		a, err := s.store.GetAccount(ctx, owner, *r.ToAccountID)
		if err != nil {
			return nil, err
		}
		r.Currency = a.Currency
	}

	next, ok := recurrence.FromDefinition(r).Upcoming(s.now())
	if !ok {
		return nil, domain.Invalid("end_date", "schedule has no upcoming occurrence")
	}
	r.NextExecutionAt = &next
	return r, nil
}

// CreateRecurring validates and stores a new definition.
func (s *Service) CreateRecurring(ctx context.Context, owner uuid.UUID, req RecurringRequest) (*domain.RecurringTransaction, error) {
	r, err := s.resolveRecurring(ctx, owner, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateRecurring(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("definition_id", r.ID.String()).
		Str("frequency", string(r.Frequency)).
		Time("next_execution_at", *r.NextExecutionAt).
		Msg("recurring definition created")
	return r, nil
}

// UpdateRecurring rewrites a definition and recomputes its next execution
// from now forward, so edits never replay occurrences that predate them.
func (s *Service) UpdateRecurring(ctx context.Context, owner, id uuid.UUID, req RecurringRequest) (*domain.RecurringTransaction, error) {
	existing, err := s.store.GetRecurring(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	r, err := s.resolveRecurring(ctx, owner, req)
	if err != nil {
		return nil, err
	}
	r.ID = id
	r.IsActive = existing.IsActive
	if err := s.store.UpdateRecurring(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// SetRecurringActive pauses or resumes a definition. Resuming recomputes the
// next execution from now so paused time is not replayed.
func (s *Service) SetRecurringActive(ctx context.Context, owner, id uuid.UUID, active bool) (*domain.RecurringTransaction, error) {
	r, err := s.store.GetRecurring(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	var next *time.Time
	if active {
		upcoming, ok := recurrence.FromDefinition(r).Upcoming(s.now())
		if !ok {
			return nil, domain.Invalid("end_date", "schedule already ended")
		}
		next = &upcoming
	}
	if err := s.store.SetRecurringActive(ctx, owner, id, active, next); err != nil {
		return nil, err
	}
	return s.store.GetRecurring(ctx, owner, id)
}

// DeleteRecurring removes a definition; already-produced transactions keep
// their history.
func (s *Service) DeleteRecurring(ctx context.Context, owner, id uuid.UUID) error {
	return s.store.DeleteRecurring(ctx, owner, id)
}

// GetRecurring returns one definition.
func (s *Service) GetRecurring(ctx context.Context, owner, id uuid.UUID) (*domain.RecurringTransaction, error) {
	return s.store.GetRecurring(ctx, owner, id)
}

// ListRecurring returns the owner's definitions.
func (s *Service) ListRecurring(ctx context.Context, owner uuid.UUID) ([]*domain.RecurringTransaction, error) {
	return s.store.ListRecurring(ctx, owner)
}
