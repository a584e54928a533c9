package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is how often a recurring definition fires.
type Frequency string

const (
	FreqOnce    Frequency = "once"
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FreqOnce, FreqDaily, FreqWeekly, FreqMonthly:
		return true
	}
	return false
}

// RecurringTransaction is a definition that produces one concrete Transaction
// per due occurrence. NextExecutionAt is derived from the schedule fields and
// advanced after each firing; an inactive definition never fires.
type RecurringTransaction struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	Kind          TransactionKind `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CategoryID    *uuid.UUID      `json:"category_id,omitempty"`
	FromAccountID *uuid.UUID      `json:"from_account_id,omitempty"`
	ToAccountID   *uuid.UUID      `json:"to_account_id,omitempty"`
	Description   string          `json:"description,omitempty"`

	Frequency       Frequency   `json:"frequency"`
	StartDate       civil.Date  `json:"start_date"`
	StartHour       int         `json:"start_hour"`
	EndDate         *civil.Date `json:"end_date,omitempty"`
	EndHour         int         `json:"end_hour"`
	IsActive        bool        `json:"is_active"`
	NextExecutionAt *time.Time  `json:"next_execution_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Template builds the concrete transaction a firing of this definition posts.
// dueAt becomes the transaction date so catch-up runs backdate correctly.
func (r *RecurringTransaction) Template(dueAt time.Time) *Transaction {
	id := r.ID
	return &Transaction{
		OwnerID:       r.OwnerID,
		Kind:          r.Kind,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Date:          dueAt,
		CategoryID:    r.CategoryID,
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
		Description:   r.Description,
		RecurringID:   &id,
	}
}

// ValidateShape applies the transaction shape rules plus schedule rules.
func (r *RecurringTransaction) ValidateShape() error {
	t := Transaction{
		Kind:          r.Kind,
		Amount:        r.Amount,
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
	}
	if err := t.ValidateShape(); err != nil {
		return err
	}
	if !r.Frequency.Valid() {
		return Invalid("frequency", "must be once, daily, weekly or monthly")
	}
	if !r.StartDate.IsValid() {
		return Invalid("start_date", "required")
	}
	if r.StartHour < 0 || r.StartHour > 23 {
		return Invalid("start_hour", "must be 0-23")
	}
	if r.EndHour < 0 || r.EndHour > 23 {
		return Invalid("end_hour", "must be 0-23")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return Invalid("end_date", "must not precede start_date")
	}
	return nil
}
