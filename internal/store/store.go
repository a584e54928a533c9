// Package store defines the persistence interfaces of the tracker. Two
// implementations exist: store/postgres (pgx, production) and store/memory
// (tests and single-process dev mode). Operations that must be atomic —
// posting, replacing and removing transactions, firing a recurring
// definition — are single interface methods so each backend can wrap them in
// its own transactional unit.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/domain"
)

// TransactionFilter narrows List results. Zero values mean "no constraint".
type TransactionFilter struct {
	Year       int
	Month      time.Month
	AccountID  *uuid.UUID
	CategoryID *uuid.UUID
	Kind       domain.TransactionKind
	Limit      int
}

// CurrencySum is an aggregate amount in a single currency.
type CurrencySum struct {
	Currency string
	Sum      decimal.Decimal
}

// CategorySum is an aggregate amount for one spending category and currency.
type CategorySum struct {
	CategoryID   uuid.UUID
	CategoryName string
	Currency     string
	Sum          decimal.Decimal
}

// CategoryBalance is the summed balance of an account category (asset or
// liability) in a single currency.
type CategoryBalance struct {
	Category domain.AccountCategory
	Currency string
	Sum      decimal.Decimal
}

// AccountStore persists accounts. Balance columns are only mutated through
// TransactionStore/RecurringStore postings, never directly.
type AccountStore interface {
	CreateAccount(ctx context.Context, a *domain.Account) error
	GetAccount(ctx context.Context, owner, id uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context, owner uuid.UUID) ([]*domain.Account, error)
	UpdateAccount(ctx context.Context, a *domain.Account) error
	// DeleteAccount removes the account and cascades to its transactions.
	DeleteAccount(ctx context.Context, owner, id uuid.UUID) error
	// BalancesByCategory sums current balances per account category and
	// currency for the dashboard.
	BalancesByCategory(ctx context.Context, owner uuid.UUID) ([]CategoryBalance, error)
}

// TransactionStore persists transactions and applies their balance effects.
type TransactionStore interface {
	// PostTransaction applies the transaction's deltas to the referenced
	// accounts and inserts the row, all-or-nothing. Unknown or cross-owner
	// accounts fail with domain.ErrNotFound and no balance change.
	PostTransaction(ctx context.Context, t *domain.Transaction) error
	GetTransaction(ctx context.Context, owner, id uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, owner uuid.UUID, f TransactionFilter) ([]*domain.Transaction, error)
	// ReplaceTransaction reverses the stored row's balance effect, applies
	// the updated transaction's effect and rewrites the row in one unit.
	ReplaceTransaction(ctx context.Context, updated *domain.Transaction) error
	// RemoveTransaction reverses the stored row's balance effect and deletes
	// the row in one unit.
	RemoveTransaction(ctx context.Context, owner, id uuid.UUID) error
	// MonthlySums returns income and expense totals per currency for one
	// calendar month.
	MonthlySums(ctx context.Context, owner uuid.UUID, year int, month time.Month) (income, expense []CurrencySum, err error)
	// ExpensesByCategory breaks one month's expenses down per category and
	// currency. Uncategorized expenses come back with a zero category id.
	ExpensesByCategory(ctx context.Context, owner uuid.UUID, year int, month time.Month) ([]CategorySum, error)
}

// RecurringStore persists recurring transaction definitions.
type RecurringStore interface {
	CreateRecurring(ctx context.Context, r *domain.RecurringTransaction) error
	GetRecurring(ctx context.Context, owner, id uuid.UUID) (*domain.RecurringTransaction, error)
	ListRecurring(ctx context.Context, owner uuid.UUID) ([]*domain.RecurringTransaction, error)
	UpdateRecurring(ctx context.Context, r *domain.RecurringTransaction) error
	// SetRecurringActive pauses or resumes a definition; next is the
	// recomputed execution instant on resume, nil to leave it unchanged.
	SetRecurringActive(ctx context.Context, owner, id uuid.UUID, active bool, next *time.Time) error
	DeleteRecurring(ctx context.Context, owner, id uuid.UUID) error
	// ListDue returns active definitions with next_execution_at <= now,
	// ordered by next_execution_at, across all owners.
	ListDue(ctx context.Context, now time.Time) ([]*domain.RecurringTransaction, error)
	// FireRecurring posts the produced transaction and advances the
	// definition (next execution, active flag) in one unit. It only fires if
	// the definition is still active with the expected next_execution_at;
	// otherwise it returns domain.ErrConflict, which protects against a
	// racing pass firing the same occurrence twice.
	FireRecurring(ctx context.Context, def *domain.RecurringTransaction, produced *domain.Transaction, next *time.Time, active bool) error
}

// CategoryStore persists spending/income categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, c *domain.Category) error
	GetCategory(ctx context.Context, owner, id uuid.UUID) (*domain.Category, error)
	ListCategories(ctx context.Context, owner uuid.UUID) ([]*domain.Category, error)
	UpdateCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, owner, id uuid.UUID) error
}

// AccountTypeStore persists user-defined account type labels.
type AccountTypeStore interface {
	CreateAccountType(ctx context.Context, t *domain.AccountType) error
	ListAccountTypes(ctx context.Context, owner uuid.UUID) ([]*domain.AccountType, error)
	DeleteAccountType(ctx context.Context, owner, id uuid.UUID) error
}

// UserStore persists per-user settings.
type UserStore interface {
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// RateStore reads the persisted exchange-rate table.
type RateStore interface {
	LoadRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// Store is the full persistence surface; both backends implement it.
type Store interface {
	AccountStore
	TransactionStore
	RecurringStore
	CategoryStore
	AccountTypeStore
	UserStore
}
