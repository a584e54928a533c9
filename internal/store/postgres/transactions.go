package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/store"
)

// lockAndApplyDeltas locks every referenced account row in a deterministic
// order, verifies ownership, then applies the signed balance changes. Called
// inside a transaction; if any account is missing or foreign the whole unit
// rolls back with domain.ErrNotFound.
func lockAndApplyDeltas(ctx context.Context, tx pgx.Tx, owner uuid.UUID, deltas []domain.Delta) error {
	ids := make([]uuid.UUID, 0, len(deltas))
	seen := make(map[uuid.UUID]bool, len(deltas))
	for _, d := range deltas {
		if !seen[d.AccountID] {
			seen[d.AccountID] = true
			ids = append(ids, d.AccountID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	rows, err := tx.Query(ctx, `
		SELECT id FROM accounts
		WHERE id = ANY($1) AND owner_id = $2
		ORDER BY id
		FOR UPDATE`, ids, owner)
	if err != nil {
		return fmt.Errorf("postgres: locking accounts: %w", err)
	}
	locked := 0
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("postgres: scanning locked account: %w", err)
		}
		locked++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if locked != len(ids) {
		return domain.ErrNotFound
	}

	for _, d := range deltas {
		if _, err := tx.Exec(ctx, `
			UPDATE accounts SET current_balance = current_balance + $1 WHERE id = $2`,
			d.Amount, d.AccountID); err != nil {
			return fmt.Errorf("postgres: applying balance delta: %w", err)
		}
	}
	return nil
}

const transactionColumns = `id, owner_id, kind, amount, currency, transaction_date,
	category_id, from_account_id, to_account_id, description, recurring_id, created_at`

func insertTransaction(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (id, owner_id, kind, amount, currency, transaction_date,
			category_id, from_account_id, to_account_id, description, recurring_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`,
		t.ID, t.OwnerID, t.Kind, t.Amount, t.Currency, t.Date,
		t.CategoryID, t.FromAccountID, t.ToAccountID, t.Description, t.RecurringID,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: inserting transaction: %w", err)
	}
	return nil
}

func scanTransaction(row interface{ Scan(dest ...any) error }) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.OwnerID, &t.Kind, &t.Amount, &t.Currency, &t.Date,
		&t.CategoryID, &t.FromAccountID, &t.ToAccountID, &t.Description, &t.RecurringID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) PostTransaction(ctx context.Context, t *domain.Transaction) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockAndApplyDeltas(ctx, tx, t.OwnerID, t.Deltas()); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, t)
	})
}

func (s *Store) GetTransaction(ctx context.Context, owner, id uuid.UUID) (*domain.Transaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND owner_id = $2`, id, owner)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, asNotFound(err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, owner uuid.UUID, f store.TransactionFilter) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = $1`
	args := []any{owner}
	if f.Year != 0 {
		args = append(args, f.Year, int(f.Month))
		query += fmt.Sprintf(" AND EXTRACT(YEAR FROM transaction_date) = $%d AND EXTRACT(MONTH FROM transaction_date) = $%d",
			len(args)-1, len(args))
	}
	if f.Kind != "" {
		args = append(args, f.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if f.AccountID != nil {
		args = append(args, *f.AccountID)
		query += fmt.Sprintf(" AND (from_account_id = $%d OR to_account_id = $%d)", len(args), len(args))
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	query += " ORDER BY transaction_date DESC, created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing transactions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ReplaceTransaction(ctx context.Context, updated *domain.Transaction) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND owner_id = $2 FOR UPDATE`,
			updated.ID, updated.OwnerID)
		old, err := scanTransaction(row)
		if err != nil {
			return asNotFound(err)
		}
		// Reverse the stored effect, then apply the new one, inside the same
		// transaction: a crash between the two cannot be observed.
		if err := lockAndApplyDeltas(ctx, tx, old.OwnerID, old.ReverseDeltas()); err != nil {
			return err
		}
		if err := lockAndApplyDeltas(ctx, tx, updated.OwnerID, updated.Deltas()); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE transactions SET kind = $1, amount = $2, currency = $3, transaction_date = $4,
				category_id = $5, from_account_id = $6, to_account_id = $7, description = $8
			WHERE id = $9 AND owner_id = $10`,
			updated.Kind, updated.Amount, updated.Currency, updated.Date,
			updated.CategoryID, updated.FromAccountID, updated.ToAccountID, updated.Description,
			updated.ID, updated.OwnerID)
		if err != nil {
			return fmt.Errorf("postgres: rewriting transaction: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		updated.CreatedAt = old.CreatedAt
		updated.RecurringID = old.RecurringID
		return nil
	})
}

func (s *Store) RemoveTransaction(ctx context.Context, owner, id uuid.UUID) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND owner_id = $2 FOR UPDATE`,
			id, owner)
		old, err := scanTransaction(row)
		if err != nil {
			return asNotFound(err)
		}
		if err := lockAndApplyDeltas(ctx, tx, owner, old.ReverseDeltas()); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id); err != nil {
			return fmt.Errorf("postgres: deleting transaction: %w", err)
		}
		return nil
	})
}

func (s *Store) MonthlySums(ctx context.Context, owner uuid.UUID, year int, month time.Month) (income, expense []store.CurrencySum, err error) {
	rows, err := s.pool.Query(ctx, `
		SELECT kind, currency, COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE owner_id = $1
		  AND kind IN ('income', 'expense')
		  AND EXTRACT(YEAR FROM transaction_date) = $2
		  AND EXTRACT(MONTH FROM transaction_date) = $3
		GROUP BY kind, currency
		ORDER BY currency`, owner, year, int(month))
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: monthly sums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind domain.TransactionKind
		var cs store.CurrencySum
		if err := rows.Scan(&kind, &cs.Currency, &cs.Sum); err != nil {
			return nil, nil, fmt.Errorf("postgres: scanning monthly sum: %w", err)
		}
		switch kind {
		case domain.KindIncome:
			income = append(income, cs)
		case domain.KindExpense:
			expense = append(expense, cs)
		}
	}
	return income, expense, rows.Err()
}

func (s *Store) ExpensesByCategory(ctx context.Context, owner uuid.UUID, year int, month time.Month) ([]store.CategorySum, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(t.category_id, '00000000-0000-0000-0000-000000000000'::uuid),
		       COALESCE(c.name, ''), t.currency, COALESCE(SUM(t.amount), 0)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.owner_id = $1
		  AND t.kind = 'expense'
		  AND EXTRACT(YEAR FROM t.transaction_date) = $2
		  AND EXTRACT(MONTH FROM t.transaction_date) = $3
		GROUP BY t.category_id, c.name, t.currency
		ORDER BY c.name NULLS LAST, t.currency`, owner, year, int(month))
	if err != nil {
		return nil, fmt.Errorf("postgres: expenses by category: %w", err)
	}
	defer rows.Close()

	var out []store.CategorySum
	for rows.Next() {
		var cs store.CategorySum
		if err := rows.Scan(&cs.CategoryID, &cs.CategoryName, &cs.Currency, &cs.Sum); err != nil {
			return nil, fmt.Errorf("postgres: scanning category sum: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}
