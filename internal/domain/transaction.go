package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind is the kind of a posted transaction.
type TransactionKind string

const (
	KindIncome   TransactionKind = "income"
	KindExpense  TransactionKind = "expense"
	KindTransfer TransactionKind = "transfer"
)

// Valid reports whether k is a known transaction kind.
func (k TransactionKind) Valid() bool {
	return k == KindIncome || k == KindExpense || k == KindTransfer
}

// CategoryKind labels categories as income or expense buckets.
type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
)

// Valid reports whether k is a known category kind.
func (k CategoryKind) Valid() bool {
	return k == CategoryIncome || k == CategoryExpense
}

// Category is used for labeling and aggregation only, never balance math.
type Category struct {
	ID      uuid.UUID    `json:"id"`
	OwnerID uuid.UUID    `json:"owner_id"`
	Name    string       `json:"name"`
	Kind    CategoryKind `json:"kind"`
}

// Transaction is one posted ledger movement. Exactly one of FromAccountID /
// ToAccountID is set for income and expense; both (distinct) for transfer.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	Kind          TransactionKind `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Date          time.Time       `json:"transaction_date"`
	CategoryID    *uuid.UUID      `json:"category_id,omitempty"`
	FromAccountID *uuid.UUID      `json:"from_account_id,omitempty"`
	ToAccountID   *uuid.UUID      `json:"to_account_id,omitempty"`
	Description   string          `json:"description,omitempty"`
	RecurringID   *uuid.UUID      `json:"recurring_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ValidateShape checks the kind-dependent rules shared by interactive posts
// and recurring definitions: positive amount and the right account sides.
func (t *Transaction) ValidateShape() error {
	if !t.Kind.Valid() {
		return Invalid("kind", "must be income, expense or transfer")
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return Invalid("amount", "must be positive")
	}
	switch t.Kind {
	case KindExpense:
		if t.FromAccountID == nil {
			return Invalid("from_account_id", "required for expense")
		}
		if t.ToAccountID != nil {
			return Invalid("to_account_id", "must be absent for expense")
		}
	case KindIncome:
		if t.ToAccountID == nil {
			return Invalid("to_account_id", "required for income")
		}
		if t.FromAccountID != nil {
			return Invalid("from_account_id", "must be absent for income")
		}
	case KindTransfer:
		if t.FromAccountID == nil || t.ToAccountID == nil {
			return Invalid("from_account_id", "transfer requires both accounts")
		}
		if *t.FromAccountID == *t.ToAccountID {
			return Invalid("to_account_id", "transfer accounts must be distinct")
		}
	}
	return nil
}

// Delta is one signed balance change to apply to an account.
type Delta struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
}

// Deltas derives the signed balance changes this transaction applies:
// expense debits the source, income credits the destination, transfer both.
func (t *Transaction) Deltas() []Delta {
	switch t.Kind {
	case KindExpense:
		return []Delta{{AccountID: *t.FromAccountID, Amount: t.Amount.Neg()}}
	case KindIncome:
		return []Delta{{AccountID: *t.ToAccountID, Amount: t.Amount}}
	case KindTransfer:
		return []Delta{
			{AccountID: *t.FromAccountID, Amount: t.Amount.Neg()},
			{AccountID: *t.ToAccountID, Amount: t.Amount},
		}
	}
	return nil
}

// ReverseDeltas returns the deltas that undo this transaction's effect,
// used by update and delete flows.
func (t *Transaction) ReverseDeltas() []Delta {
	deltas := t.Deltas()
	reversed := make([]Delta, len(deltas))
	for i, d := range deltas {
		reversed[i] = Delta{AccountID: d.AccountID, Amount: d.Amount.Neg()}
	}
	return reversed
}
