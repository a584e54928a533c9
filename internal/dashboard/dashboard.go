// Package dashboard builds the read-only aggregate view: balances per
// account category, current-month income/expense totals and the month's
// expense breakdown per category, all converted into one display currency.
package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/currency"
	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/store"
)

// Snapshot is the aggregate state for one owner in one currency. A user with
// no accounts or transactions gets a zero-valued snapshot, never an error.
type Snapshot struct {
	Currency          string            `json:"currency"`
	TotalAssets       decimal.Decimal   `json:"total_assets"`
	TotalLiability    decimal.Decimal   `json:"total_liabilities"`
	NetWorth          decimal.Decimal   `json:"net_worth"`
	MonthIncome       decimal.Decimal   `json:"month_income"`
	MonthExpenses     decimal.Decimal   `json:"month_expenses"`
	ExpenseByCategory []CategoryExpense `json:"expenses_by_category"`
	Month             string            `json:"month"`
}

// CategoryExpense is one category's share of the month's spending.
type CategoryExpense struct {
	CategoryID   uuid.UUID       `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
}

type reader interface {
	store.AccountStore
	store.TransactionStore
	store.UserStore
}

// Service aggregates dashboard data.
type Service struct {
	store reader
	rates *currency.Table
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a dashboard service.
func NewService(st reader, rates *currency.Table, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		rates: rates,
		log:   log.With().Str("component", "dashboard").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the service clock; tests use it to pin "this month".
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// PrimaryCurrency resolves the display currency: the explicit override when
// given, otherwise the owner's setting, otherwise the reference currency.
func (s *Service) PrimaryCurrency(ctx context.Context, owner uuid.UUID, override string) string {
	if override != "" {
		return override
	}
	if u, err := s.store.GetUser(ctx, owner); err == nil && u.PrimaryCurrency != "" {
		return u.PrimaryCurrency
	}
	return s.rates.Reference()
}

// Snapshot computes the owner's dashboard in the given currency. Every
// per-currency sum converts through the rate table before summing, so mixed
// currency accounts aggregate correctly.
func (s *Service) Snapshot(ctx context.Context, owner uuid.UUID, primary string) (*Snapshot, error) {
	if !s.rates.Supports(primary) {
		return nil, currency.UnsupportedError(primary)
	}

	now := s.now()
	snap := &Snapshot{Currency: primary, Month: now.Format("2006-01")}

	balances, err := s.store.BalancesByCategory(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, b := range balances {
		converted, err := s.rates.Convert(b.Sum, b.Currency, primary)
		if err != nil {
			return nil, err
		}
		switch b.Category {
		case domain.AccountAsset:
			snap.TotalAssets = snap.TotalAssets.Add(converted)
		case domain.AccountLiability:
			snap.TotalLiability = snap.TotalLiability.Add(converted)
		}
	}
	snap.NetWorth = snap.TotalAssets.Add(snap.TotalLiability)

	income, expense, err := s.store.MonthlySums(ctx, owner, now.Year(), now.Month())
	if err != nil {
		return nil, err
	}
	if snap.MonthIncome, err = s.sumConverted(income, primary); err != nil {
		return nil, err
	}
	if snap.MonthExpenses, err = s.sumConverted(expense, primary); err != nil {
		return nil, err
	}

	byCat, err := s.store.ExpensesByCategory(ctx, owner, now.Year(), now.Month())
	if err != nil {
		return nil, err
	}
	// Per-currency rows for the same category fold into one converted total.
	totals := make(map[uuid.UUID]*CategoryExpense)
	var order []uuid.UUID
	for _, row := range byCat {
		converted, err := s.rates.Convert(row.Sum, row.Currency, primary)
		if err != nil {
			return nil, err
		}
		ce, ok := totals[row.CategoryID]
		if !ok {
			ce = &CategoryExpense{CategoryID: row.CategoryID, CategoryName: row.CategoryName}
			totals[row.CategoryID] = ce
			order = append(order, row.CategoryID)
		}
		ce.Total = ce.Total.Add(converted)
	}
	snap.ExpenseByCategory = make([]CategoryExpense, 0, len(order))
	for _, id := range order {
		snap.ExpenseByCategory = append(snap.ExpenseByCategory, *totals[id])
	}
	return snap, nil
}

func (s *Service) sumConverted(sums []store.CurrencySum, primary string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, cs := range sums {
		converted, err := s.rates.Convert(cs.Sum, cs.Currency, primary)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(converted)
	}
	return total, nil
}
