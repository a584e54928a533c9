package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/jobs"
	"github.com/centavoapp/centavo/internal/ledger"
	"github.com/centavoapp/centavo/internal/store/memory"
)

func TestParse(t *testing.T) {
	csv := `date,kind,amount,account,to_account,category,description
2026-06-01,expense,50.25,Checking,,Groceries,weekly shop
2026-06-02,income,1200,Checking,,Salary,
2026-06-03,transfer,200,Checking,Savings,,move to savings
`
	rows, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	first := rows[0]
	if first.Kind != domain.KindExpense ||
		!first.Amount.Equal(decimal.RequireFromString("50.25")) ||
		first.Account != "Checking" ||
		first.Category != "Groceries" ||
		first.Description != "weekly shop" {
		t.Errorf("first row = %+v", first)
	}
	if !first.Date.Equal(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first row date = %v", first.Date)
	}
	if rows[2].ToAccount != "Savings" {
		t.Errorf("transfer row to_account = %q", rows[2].ToAccount)
	}
}

func TestParseHeaderOrderIrrelevant(t *testing.T) {
	csv := `amount,account,kind,date
10,Checking,expense,2026-06-01
`
	rows, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 1 || rows[0].Account != "Checking" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{
			name: "missing required column",
			csv:  "date,kind,amount\n2026-06-01,expense,10\n",
			want: "missing column",
		},
		{
			name: "no data rows",
			csv:  "date,kind,amount,account\n",
			want: "no data rows",
		},
		{
			name: "bad date",
			csv:  "date,kind,amount,account\n01/06/2026,expense,10,Checking\n",
			want: "line 2",
		},
		{
			name: "bad kind",
			csv:  "date,kind,amount,account\n2026-06-01,loan,10,Checking\n",
			want: "bad kind",
		},
		{
			name: "bad amount",
			csv:  "date,kind,amount,account\n2026-06-01,expense,ten,Checking\n",
			want: "bad amount",
		},
		{
			name: "empty account",
			csv:  "date,kind,amount,account\n2026-06-01,expense,10,\n",
			want: "account is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.csv))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestWorkerHandlerPostsRowsAndRecordsFailures(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	owner := uuid.New()

	checking := &domain.Account{
		ID:             uuid.New(),
		OwnerID:        owner,
		Name:           "Checking",
		Category:       domain.AccountAsset,
		Currency:       "NIO",
		InitialBalance: decimal.NewFromInt(1000),
		CurrentBalance: decimal.NewFromInt(1000),
		CreatedAt:      time.Now().UTC(),
	}
	if err := st.CreateAccount(ctx, checking); err != nil {
		t.Fatal(err)
	}
	groceries := &domain.Category{ID: uuid.New(), OwnerID: owner, Name: "Groceries", Kind: domain.CategoryExpense}
	if err := st.CreateCategory(ctx, groceries); err != nil {
		t.Fatal(err)
	}

	worker := NewWorker(ledger.NewService(st, zerolog.Nop()), st, zerolog.Nop())
	job := &jobs.ImportStatementJob{
		JobID:   uuid.NewString(),
		OwnerID: owner,
		Rows: []jobs.ImportRow{
			{
				Date:     time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
				Kind:     domain.KindExpense,
				Amount:   decimal.NewFromInt(50),
				Account:  "checking", // matched case-insensitively
				Category: "Groceries",
			},
			{
				Date:    time.Date(2026, time.June, 2, 0, 0, 0, 0, time.UTC),
				Kind:    domain.KindExpense,
				Amount:  decimal.NewFromInt(10),
				Account: "Nonexistent",
			},
		},
	}

	if err := worker.Handler()(ctx, job); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if job.Posted != 1 {
		t.Errorf("posted = %d, want 1", job.Posted)
	}
	if len(job.RowErrors) != 1 || !strings.Contains(job.RowErrors[0], "row 2") {
		t.Errorf("row errors = %v", job.RowErrors)
	}

	a, err := st.GetAccount(ctx, owner, checking.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !a.CurrentBalance.Equal(decimal.NewFromInt(950)) {
		t.Errorf("balance = %s, want 950", a.CurrentBalance)
	}
}
