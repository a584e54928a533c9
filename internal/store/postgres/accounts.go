package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/store"
)

func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CurrentBalance = a.InitialBalance
	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, owner_id, name, type_id, category, currency, initial_balance, current_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING created_at`,
		a.ID, a.OwnerID, a.Name, a.TypeID, a.Category, a.Currency, a.InitialBalance,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: creating account: %w", err)
	}
	return nil
}

const accountColumns = `id, owner_id, name, type_id, category, currency, initial_balance, current_balance, created_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.TypeID, &a.Category,
		&a.Currency, &a.InitialBalance, &a.CurrentBalance, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetAccount(ctx context.Context, owner, id uuid.UUID) (*domain.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND owner_id = $2`, id, owner)
	a, err := scanAccount(row)
	if err != nil {
		return nil, asNotFound(err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, owner uuid.UUID) ([]*domain.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1 ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing accounts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, a *domain.Account) error {
	// Balances are posting-controlled; only descriptive fields change here.
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET name = $1, type_id = $2, category = $3
		WHERE id = $4 AND owner_id = $5`,
		a.Name, a.TypeID, a.Category, a.ID, a.OwnerID)
	if err != nil {
		return fmt.Errorf("postgres: updating account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, owner, id uuid.UUID) error {
	// ON DELETE CASCADE on transactions.from_account_id/to_account_id drops
	// the account's transactions with it.
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM accounts WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("postgres: deleting account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) BalancesByCategory(ctx context.Context, owner uuid.UUID) ([]store.CategoryBalance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category, currency, COALESCE(SUM(current_balance), 0)
		FROM accounts
		WHERE owner_id = $1
		GROUP BY category, currency
		ORDER BY category, currency`, owner)
	if err != nil {
		return nil, fmt.Errorf("postgres: summing balances: %w", err)
	}
	defer rows.Close()

	var out []store.CategoryBalance
	for rows.Next() {
		var b store.CategoryBalance
		if err := rows.Scan(&b.Category, &b.Currency, &b.Sum); err != nil {
			return nil, fmt.Errorf("postgres: scanning balance sum: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpsertUser(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, primary_currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, primary_currency = EXCLUDED.primary_currency`,
		u.ID, u.Name, u.PrimaryCurrency)
	if err != nil {
		return fmt.Errorf("postgres: upserting user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, primary_currency FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.PrimaryCurrency)
	if err != nil {
		return nil, asNotFound(err)
	}
	return &u, nil
}

// LoadRates reads the persisted exchange-rate table keyed by currency code.
func (s *Store) LoadRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx, `SELECT currency_code, rate_to_reference FROM exchange_rates`)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading rates: %w", err)
	}
	defer rows.Close()

	rates := make(map[string]decimal.Decimal)
	for rows.Next() {
		var code string
		var rate decimal.Decimal
		if err := rows.Scan(&code, &rate); err != nil {
			return nil, fmt.Errorf("postgres: scanning rate: %w", err)
		}
		rates[code] = rate
	}
	return rates, rows.Err()
}
