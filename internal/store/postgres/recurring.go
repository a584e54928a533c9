package postgres

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/centavoapp/centavo/internal/domain"
)

const recurringColumns = `id, owner_id, kind, amount, currency, category_id, from_account_id,
	to_account_id, description, frequency, start_date, start_hour, end_date, end_hour,
	is_active, next_execution_at, created_at`

func civilToTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

func civilPtrToTime(d *civil.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.In(time.UTC)
	return &t
}

func scanRecurring(row interface{ Scan(dest ...any) error }) (*domain.RecurringTransaction, error) {
	var r domain.RecurringTransaction
	var startDate time.Time
	var endDate *time.Time
	err := row.Scan(&r.ID, &r.OwnerID, &r.Kind, &r.Amount, &r.Currency, &r.CategoryID,
		&r.FromAccountID, &r.ToAccountID, &r.Description, &r.Frequency,
		&startDate, &r.StartHour, &endDate, &r.EndHour,
		&r.IsActive, &r.NextExecutionAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.StartDate = civil.DateOf(startDate)
	if endDate != nil {
		d := civil.DateOf(*endDate)
		r.EndDate = &d
	}
	return &r, nil
}

func (s *Store) CreateRecurring(ctx context.Context, r *domain.RecurringTransaction) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO recurring_transactions (id, owner_id, kind, amount, currency, category_id,
			from_account_id, to_account_id, description, frequency, start_date, start_hour,
			end_date, end_hour, is_active, next_execution_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at`,
		r.ID, r.OwnerID, r.Kind, r.Amount, r.Currency, r.CategoryID,
		r.FromAccountID, r.ToAccountID, r.Description, r.Frequency,
		civilToTime(r.StartDate), r.StartHour, civilPtrToTime(r.EndDate), r.EndHour,
		r.IsActive, r.NextExecutionAt,
	).Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: creating recurring definition: %w", err)
	}
	return nil
}

func (s *Store) GetRecurring(ctx context.Context, owner, id uuid.UUID) (*domain.RecurringTransaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = $1 AND owner_id = $2`, id, owner)
	r, err := scanRecurring(row)
	if err != nil {
		return nil, asNotFound(err)
	}
	return r, nil
}

func (s *Store) ListRecurring(ctx context.Context, owner uuid.UUID) ([]*domain.RecurringTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE owner_id = $1 ORDER BY created_at`, owner)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing recurring definitions: %w", err)
	}
	defer rows.Close()

	var out []*domain.RecurringTransaction
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning recurring definition: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRecurring(ctx context.Context, r *domain.RecurringTransaction) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE recurring_transactions SET kind = $1, amount = $2, currency = $3, category_id = $4,
			from_account_id = $5, to_account_id = $6, description = $7, frequency = $8,
			start_date = $9, start_hour = $10, end_date = $11, end_hour = $12,
			is_active = $13, next_execution_at = $14
		WHERE id = $15 AND owner_id = $16`,
		r.Kind, r.Amount, r.Currency, r.CategoryID,
		r.FromAccountID, r.ToAccountID, r.Description, r.Frequency,
		civilToTime(r.StartDate), r.StartHour, civilPtrToTime(r.EndDate), r.EndHour,
		r.IsActive, r.NextExecutionAt,
		r.ID, r.OwnerID)
	if err != nil {
		return fmt.Errorf("postgres: updating recurring definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) SetRecurringActive(ctx context.Context, owner, id uuid.UUID, active bool, next *time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE recurring_transactions
		SET is_active = $1, next_execution_at = COALESCE($2, next_execution_at)
		WHERE id = $3 AND owner_id = $4`,
		active, next, id, owner)
	if err != nil {
		return fmt.Errorf("postgres: toggling recurring definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteRecurring(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM recurring_transactions WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("postgres: deleting recurring definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListDue(ctx context.Context, now time.Time) ([]*domain.RecurringTransaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+recurringColumns+` FROM recurring_transactions
		WHERE is_active AND next_execution_at IS NOT NULL AND next_execution_at <= $1
		ORDER BY next_execution_at`, now)
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning due definitions: %w", err)
	}
	defer rows.Close()

	var out []*domain.RecurringTransaction
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning due definition: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) FireRecurring(ctx context.Context, def *domain.RecurringTransaction, produced *domain.Transaction, next *time.Time, active bool) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		// Guarded advance first: it both locks the definition row and
		// detects a racing pass that already fired this occurrence.
		tag, err := tx.Exec(ctx, `
			UPDATE recurring_transactions
			SET next_execution_at = $1, is_active = $2
			WHERE id = $3 AND owner_id = $4 AND is_active AND next_execution_at = $5`,
			next, active, def.ID, def.OwnerID, def.NextExecutionAt)
		if err != nil {
			return fmt.Errorf("postgres: advancing recurring definition: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrConflict
		}
		if err := lockAndApplyDeltas(ctx, tx, produced.OwnerID, produced.Deltas()); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, produced)
	})
}
