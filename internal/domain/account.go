package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountCategory splits accounts into assets and liabilities. Liability
// balances are conventionally stored negative (debt = negative balance).
type AccountCategory string

const (
	AccountAsset     AccountCategory = "asset"
	AccountLiability AccountCategory = "liability"
)

// Valid reports whether c is a known account category.
func (c AccountCategory) Valid() bool {
	return c == AccountAsset || c == AccountLiability
}

// Account is a ledger account in a fixed currency. CurrentBalance is only
// ever mutated through transaction postings; at any point it equals
// InitialBalance plus the signed sum of all postings affecting this account.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	Name           string          `json:"name"`
	TypeID         *uuid.UUID      `json:"type_id,omitempty"`
	Category       AccountCategory `json:"category"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AccountType is a user-defined label ("Cash", "Credit Card", ...).
type AccountType struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Name    string    `json:"name"`
}

// User carries per-user settings; PrimaryCurrency is the display and
// aggregation currency for the dashboard.
type User struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	PrimaryCurrency string    `json:"primary_currency"`
}
