package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/store"
)

func newAccount(owner uuid.UUID, name, currency string, balance int64) *domain.Account {
	b := decimal.NewFromInt(balance)
	return &domain.Account{
		ID:             uuid.New(),
		OwnerID:        owner,
		Name:           name,
		Category:       domain.AccountAsset,
		Currency:       currency,
		InitialBalance: b,
		CurrentBalance: b,
		CreatedAt:      time.Now().UTC(),
	}
}

func mustBalance(t *testing.T, s *Store, owner, id uuid.UUID, want int64) {
	t.Helper()
	a, err := s.GetAccount(context.Background(), owner, id)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !a.CurrentBalance.Equal(decimal.NewFromInt(want)) {
		t.Errorf("%s balance = %s, want %d", a.Name, a.CurrentBalance, want)
	}
}

func TestPostTransactionAppliesDeltas(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := uuid.New()

	checking := newAccount(owner, "Checking", "NIO", 1000)
	savings := newAccount(owner, "Savings", "NIO", 0)
	if err := s.CreateAccount(ctx, checking); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAccount(ctx, savings); err != nil {
		t.Fatal(err)
	}

	transfer := &domain.Transaction{
		OwnerID:       owner,
		Kind:          domain.KindTransfer,
		Amount:        decimal.NewFromInt(200),
		Currency:      "NIO",
		Date:          time.Now().UTC(),
		FromAccountID: &checking.ID,
		ToAccountID:   &savings.ID,
	}
	if err := s.PostTransaction(ctx, transfer); err != nil {
		t.Fatalf("PostTransaction: %v", err)
	}
	mustBalance(t, s, owner, checking.ID, 800)
	mustBalance(t, s, owner, savings.ID, 200)

	expense := &domain.Transaction{
		OwnerID:       owner,
		Kind:          domain.KindExpense,
		Amount:        decimal.NewFromInt(50),
		Currency:      "NIO",
		Date:          time.Now().UTC(),
		FromAccountID: &savings.ID,
	}
	if err := s.PostTransaction(ctx, expense); err != nil {
		t.Fatalf("PostTransaction: %v", err)
	}
	mustBalance(t, s, owner, checking.ID, 800)
	mustBalance(t, s, owner, savings.ID, 150)
}

func TestPostTransactionUnknownAccountLeavesBalancesUntouched(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := uuid.New()

	checking := newAccount(owner, "Checking", "NIO", 1000)
	if err := s.CreateAccount(ctx, checking); err != nil {
		t.Fatal(err)
	}
	ghost := uuid.New()

	transfer := &domain.Transaction{
		OwnerID:       owner,
		Kind:          domain.KindTransfer,
		Amount:        decimal.NewFromInt(200),
		Currency:      "NIO",
		Date:          time.Now().UTC(),
		FromAccountID: &checking.ID,
		ToAccountID:   &ghost,
	}
	err := s.PostTransaction(ctx, transfer)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// The source must not have been debited.
	mustBalance(t, s, owner, checking.ID, 1000)

	if list, _ := s.ListTransactions(ctx, owner, store.TransactionFilter{}); len(list) != 0 {
		t.Errorf("failed post left %d transactions behind", len(list))
	}
}

func TestPostTransactionCrossOwnerAccount(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := uuid.New()
	other := uuid.New()

	mine := newAccount(owner, "Mine", "USD", 100)
	theirs := newAccount(other, "Theirs", "USD", 100)
	if err := s.CreateAccount(ctx, mine); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAccount(ctx, theirs); err != nil {
		t.Fatal(err)
	}

	transfer := &domain.Transaction{
		OwnerID:       owner,
		Kind:          domain.KindTransfer,
		Amount:        decimal.NewFromInt(10),
		Currency:      "USD",
		Date:          time.Now().UTC(),
		FromAccountID: &mine.ID,
		ToAccountID:   &theirs.ID,
	}
	if err := s.PostTransaction(ctx, transfer); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cross-owner transfer: expected ErrNotFound, got %v", err)
	}
	mustBalance(t, s, owner, mine.ID, 100)
	mustBalance(t, s, other, theirs.ID, 100)
}

func TestReplaceTransactionReversesOldEffect(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := uuid.New()

	checking := newAccount(owner, "Checking", "NIO", 1000)
	if err := s.CreateAccount(ctx, checking); err != nil {
		t.Fatal(err)
	}

	expense := &domain.Transaction{
		OwnerID:       owner,
		Kind:          domain.KindExpense,
		Amount:        decimal.NewFromInt(100),
		Currency:      "NIO",
		Date:          time.Now().UTC(),
		FromAccountID: &checking.ID,
	}
	if err := s.PostTransaction(ctx, expense); err != nil {
		t.Fatal(err)
	}
	mustBalance(t, s, owner, checking.ID, 900)

	updated := *expense
	updated.Amount = decimal.NewFromInt(30)
	if err := s.ReplaceTransaction(ctx, &updated); err != nil {
		t.Fatalf("ReplaceTransaction: %v", err)
	}
	mustBalance(t, s, owner, checking.ID, 970)

	if err := s.RemoveTransaction(ctx, owner, expense.ID); err != nil {
		t.Fatalf("RemoveTransaction: %v", err)
	}
	mustBalance(t, s, owner, checking.ID, 1000)
}

func TestDeleteAccountCascadesTransactions(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := uuid.New()

	checking := newAccount(owner, "Checking", "NIO", 500)
	if err := s.CreateAccount(ctx, checking); err != nil {
		t.Fatal(err)
	}
	expense := &domain.Transaction{
		OwnerID:       owner,
		Kind:          domain.KindExpense,
		Amount:        decimal.NewFromInt(20),
		Currency:      "NIO",
		Date:          time.Now().UTC(),
		FromAccountID: &checking.ID,
	}
	if err := s.PostTransaction(ctx, expense); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteAccount(ctx, owner, checking.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := s.GetTransaction(ctx, owner, expense.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("transaction survived the account deletion: %v", err)
	}
}

func TestFireRecurringConflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := uuid.New()

	checking := newAccount(owner, "Checking", "NIO", 1000)
	if err := s.CreateAccount(ctx, checking); err != nil {
		t.Fatal(err)
	}

	next := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
	def := &domain.RecurringTransaction{
		ID:              uuid.New(),
		OwnerID:         owner,
		Kind:            domain.KindExpense,
		Amount:          decimal.NewFromInt(10),
		Currency:        "NIO",
		FromAccountID:   &checking.ID,
		Frequency:       domain.FreqDaily,
		StartDate:       civil.Date{Year: 2026, Month: time.June, Day: 1},
		StartHour:       9,
		IsActive:        true,
		NextExecutionAt: &next,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.CreateRecurring(ctx, def); err != nil {
		t.Fatal(err)
	}

	after := next.Add(24 * time.Hour)
	if err := s.FireRecurring(ctx, def, def.Template(next), &after, true); err != nil {
		t.Fatalf("first fire: %v", err)
	}
	mustBalance(t, s, owner, checking.ID, 990)

	// A second fire against the stale expected instant must conflict and
	// leave the balance alone.
	err := s.FireRecurring(ctx, def, def.Template(next), &after, true)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	mustBalance(t, s, owner, checking.ID, 990)

	// A paused definition conflicts too.
	if err := s.SetRecurringActive(ctx, owner, def.ID, false, nil); err != nil {
		t.Fatal(err)
	}
	stored, err := s.GetRecurring(ctx, owner, def.ID)
	if err != nil {
		t.Fatal(err)
	}
	err = s.FireRecurring(ctx, stored, stored.Template(after), nil, false)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("paused fire: expected ErrConflict, got %v", err)
	}
}

func TestListDueOrdersAndFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := uuid.New()
	now := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)

	mk := func(next time.Time, active bool) *domain.RecurringTransaction {
		acct := uuid.New()
		n := next
		def := &domain.RecurringTransaction{
			ID:              uuid.New(),
			OwnerID:         owner,
			Kind:            domain.KindExpense,
			Amount:          decimal.NewFromInt(1),
			Currency:        "NIO",
			FromAccountID:   &acct,
			Frequency:       domain.FreqDaily,
			StartDate:       civil.Date{Year: 2026, Month: time.June, Day: 1},
			StartHour:       9,
			IsActive:        active,
			NextExecutionAt: &n,
			CreatedAt:       time.Now().UTC(),
		}
		if err := s.CreateRecurring(ctx, def); err != nil {
			t.Fatal(err)
		}
		return def
	}

	late := mk(now.Add(-time.Hour), true)
	early := mk(now.Add(-48*time.Hour), true)
	mk(now.Add(time.Hour), true)   // future
	mk(now.Add(-time.Hour), false) // paused

	due, err := s.ListDue(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 2 {
		t.Fatalf("due = %d definitions, want 2", len(due))
	}
	if due[0].ID != early.ID || due[1].ID != late.ID {
		t.Error("due definitions not ordered by next execution")
	}
}

func TestMonthlySumsAndExpensesByCategory(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := uuid.New()

	nio := newAccount(owner, "Cash NIO", "NIO", 1000)
	usd := newAccount(owner, "Cash USD", "USD", 1000)
	for _, a := range []*domain.Account{nio, usd} {
		if err := s.CreateAccount(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	groceries := &domain.Category{ID: uuid.New(), OwnerID: owner, Name: "Groceries", Kind: domain.CategoryExpense}
	if err := s.CreateCategory(ctx, groceries); err != nil {
		t.Fatal(err)
	}

	june := time.Date(2026, time.June, 5, 10, 0, 0, 0, time.UTC)
	post := func(kind domain.TransactionKind, amount int64, currency string, acct *domain.Account, cat *uuid.UUID, when time.Time) {
		tx := &domain.Transaction{
			OwnerID:    owner,
			Kind:       kind,
			Amount:     decimal.NewFromInt(amount),
			Currency:   currency,
			Date:       when,
			CategoryID: cat,
		}
		if kind == domain.KindIncome {
			tx.ToAccountID = &acct.ID
		} else {
			tx.FromAccountID = &acct.ID
		}
		if err := s.PostTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	post(domain.KindIncome, 500, "NIO", nio, nil, june)
	post(domain.KindExpense, 120, "NIO", nio, &groceries.ID, june)
	post(domain.KindExpense, 30, "NIO", nio, nil, june)
	post(domain.KindExpense, 40, "USD", usd, &groceries.ID, june)
	// Outside the queried month.
	post(domain.KindExpense, 999, "NIO", nio, nil, june.AddDate(0, 1, 0))

	income, expense, err := s.MonthlySums(ctx, owner, 2026, time.June)
	if err != nil {
		t.Fatal(err)
	}
	if len(income) != 1 || income[0].Currency != "NIO" || !income[0].Sum.Equal(decimal.NewFromInt(500)) {
		t.Errorf("income sums = %+v", income)
	}
	if len(expense) != 2 {
		t.Fatalf("expense sums = %+v, want NIO and USD entries", expense)
	}

	byCat, err := s.ExpensesByCategory(ctx, owner, 2026, time.June)
	if err != nil {
		t.Fatal(err)
	}
	var sawGroceriesNIO, sawUncategorized bool
	for _, c := range byCat {
		if c.CategoryID == groceries.ID && c.Currency == "NIO" {
			sawGroceriesNIO = c.Sum.Equal(decimal.NewFromInt(120))
		}
		if c.CategoryID == uuid.Nil && c.Currency == "NIO" {
			sawUncategorized = c.Sum.Equal(decimal.NewFromInt(30))
		}
	}
	if !sawGroceriesNIO || !sawUncategorized {
		t.Errorf("category breakdown = %+v", byCat)
	}
}
