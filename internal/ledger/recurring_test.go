package ledger

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/domain"
)

func pinned(f *fixture, at time.Time) *Service {
	return f.svc.WithNow(func() time.Time { return at })
}

func TestCreateRecurringComputesNextExecution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	svc := pinned(f, now)

	def, err := svc.CreateRecurring(ctx, f.owner, RecurringRequest{
		Kind:          domain.KindExpense,
		Amount:        decimal.NewFromInt(25),
		FromAccountID: &f.checking.ID,
		Frequency:     domain.FreqMonthly,
		StartDate:     civil.Date{Year: 2026, Month: time.January, Day: 31},
		StartHour:     9,
	})
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}
	if def.Currency != "NIO" {
		t.Errorf("currency = %q, want NIO", def.Currency)
	}
	if !def.IsActive {
		t.Error("new definition should be active")
	}
	// Past occurrences are not replayed: the next execution is the first
	// anchor-clamped date after "now".
	want := time.Date(2026, time.June, 30, 9, 0, 0, 0, time.UTC)
	if def.NextExecutionAt == nil || !def.NextExecutionAt.Equal(want) {
		t.Errorf("next execution = %v, want %v", def.NextExecutionAt, want)
	}
}

func TestCreateRecurringValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	svc := pinned(f, now)

	base := RecurringRequest{
		Kind:          domain.KindExpense,
		Amount:        decimal.NewFromInt(25),
		FromAccountID: &f.checking.ID,
		Frequency:     domain.FreqDaily,
		StartDate:     civil.Date{Year: 2026, Month: time.June, Day: 1},
		StartHour:     9,
	}

	t.Run("bad frequency", func(t *testing.T) {
		req := base
		req.Frequency = "hourly"
		if _, err := svc.CreateRecurring(ctx, f.owner, req); !domain.IsValidation(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("start hour out of range", func(t *testing.T) {
		req := base
		req.StartHour = 24
		if _, err := svc.CreateRecurring(ctx, f.owner, req); !domain.IsValidation(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("end before start", func(t *testing.T) {
		req := base
		end := civil.Date{Year: 2026, Month: time.May, Day: 1}
		req.EndDate = &end
		if _, err := svc.CreateRecurring(ctx, f.owner, req); !domain.IsValidation(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("schedule entirely in the past", func(t *testing.T) {
		req := base
		end := civil.Date{Year: 2026, Month: time.June, Day: 10}
		req.EndDate = &end
		if _, err := svc.CreateRecurring(ctx, f.owner, req); !domain.IsValidation(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("cross-currency transfer", func(t *testing.T) {
		req := base
		req.Kind = domain.KindTransfer
		req.ToAccountID = &f.usd.ID
		if _, err := svc.CreateRecurring(ctx, f.owner, req); !domain.IsValidation(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestUpdateRecurringRecomputesWithoutReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)
	svc := pinned(f, created)

	def, err := svc.CreateRecurring(ctx, f.owner, RecurringRequest{
		Kind:          domain.KindExpense,
		Amount:        decimal.NewFromInt(25),
		FromAccountID: &f.checking.ID,
		Frequency:     domain.FreqDaily,
		StartDate:     civil.Date{Year: 2026, Month: time.June, Day: 1},
		StartHour:     9,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Days later, the amount is edited. The next execution moves forward
	// from the edit instant; the skipped days are not replayed.
	later := time.Date(2026, time.June, 20, 18, 0, 0, 0, time.UTC)
	svc = pinned(f, later)
	updated, err := svc.UpdateRecurring(ctx, f.owner, def.ID, RecurringRequest{
		Kind:          domain.KindExpense,
		Amount:        decimal.NewFromInt(40),
		FromAccountID: &f.checking.ID,
		Frequency:     domain.FreqDaily,
		StartDate:     civil.Date{Year: 2026, Month: time.June, Day: 1},
		StartHour:     9,
	})
	if err != nil {
		t.Fatalf("UpdateRecurring: %v", err)
	}
	want := time.Date(2026, time.June, 21, 9, 0, 0, 0, time.UTC)
	if updated.NextExecutionAt == nil || !updated.NextExecutionAt.Equal(want) {
		t.Errorf("next execution = %v, want %v", updated.NextExecutionAt, want)
	}
}

func TestPauseResumeRecurring(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)
	svc := pinned(f, now)

	def, err := svc.CreateRecurring(ctx, f.owner, RecurringRequest{
		Kind:          domain.KindExpense,
		Amount:        decimal.NewFromInt(25),
		FromAccountID: &f.checking.ID,
		Frequency:     domain.FreqWeekly,
		StartDate:     civil.Date{Year: 2026, Month: time.June, Day: 1},
		StartHour:     9,
	})
	if err != nil {
		t.Fatal(err)
	}

	paused, err := svc.SetRecurringActive(ctx, f.owner, def.ID, false)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.IsActive {
		t.Error("definition still active after pause")
	}

	// Resume a month later: next execution lands after the resume instant,
	// not on a missed week.
	later := time.Date(2026, time.July, 1, 8, 0, 0, 0, time.UTC)
	svc = pinned(f, later)
	resumed, err := svc.SetRecurringActive(ctx, f.owner, def.ID, true)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !resumed.IsActive {
		t.Error("definition inactive after resume")
	}
	want := time.Date(2026, time.July, 6, 9, 0, 0, 0, time.UTC)
	if resumed.NextExecutionAt == nil || !resumed.NextExecutionAt.Equal(want) {
		t.Errorf("next execution = %v, want %v", resumed.NextExecutionAt, want)
	}
}

func TestResumeEndedScheduleFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)
	svc := pinned(f, now)

	end := civil.Date{Year: 2026, Month: time.June, Day: 10}
	def, err := svc.CreateRecurring(ctx, f.owner, RecurringRequest{
		Kind:          domain.KindExpense,
		Amount:        decimal.NewFromInt(25),
		FromAccountID: &f.checking.ID,
		Frequency:     domain.FreqDaily,
		StartDate:     civil.Date{Year: 2026, Month: time.June, Day: 1},
		StartHour:     9,
		EndDate:       &end,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetRecurringActive(ctx, f.owner, def.ID, false); err != nil {
		t.Fatal(err)
	}

	// Past the end date there is nothing left to resume.
	later := time.Date(2026, time.July, 1, 8, 0, 0, 0, time.UTC)
	svc = pinned(f, later)
	if _, err := svc.SetRecurringActive(ctx, f.owner, def.ID, true); !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
