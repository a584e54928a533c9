// Package importer turns CSV statement uploads into posted transactions.
// Parsing is synchronous (the upload fails fast on a malformed file); the
// posting itself runs asynchronously through the job queue.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/domain"
	"github.com/centavoapp/centavo/internal/jobs"
	"github.com/centavoapp/centavo/internal/ledger"
	"github.com/centavoapp/centavo/internal/store"
)

// Required CSV columns; to_account, category and description are optional.
var requiredColumns = []string{"date", "kind", "amount", "account"}

const dateLayout = "2006-01-02"

// Parse reads a statement CSV into import rows. The header row names the
// columns; order does not matter. Row-level value errors fail the parse:
// a bad file should be rejected at upload, not half-imported later.
func Parse(r io.Reader) ([]jobs.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("importer: reading csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("importer: no data rows")
	}

	colMap := make(map[string]int)
	for i, h := range records[0] {
		colMap[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("importer: missing column %q", col)
		}
	}
	field := func(record []string, name string) string {
		idx, ok := colMap[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	rows := make([]jobs.ImportRow, 0, len(records)-1)
	for i, record := range records[1:] {
		line := i + 2 // 1-based, after header
		date, err := time.Parse(dateLayout, field(record, "date"))
		if err != nil {
			return nil, fmt.Errorf("importer: line %d: bad date: %w", line, err)
		}
		kind := domain.TransactionKind(strings.ToLower(field(record, "kind")))
		if !kind.Valid() {
			return nil, fmt.Errorf("importer: line %d: bad kind %q", line, field(record, "kind"))
		}
		amount, err := decimal.NewFromString(field(record, "amount"))
		if err != nil {
			return nil, fmt.Errorf("importer: line %d: bad amount: %w", line, err)
		}
		account := field(record, "account")
		if account == "" {
			return nil, fmt.Errorf("importer: line %d: account is required", line)
		}
		rows = append(rows, jobs.ImportRow{
			Date:        date.UTC(),
			Kind:        kind,
			Amount:      amount,
			Account:     account,
			ToAccount:   field(record, "to_account"),
			Category:    field(record, "category"),
			Description: field(record, "description"),
		})
	}
	return rows, nil
}

// Worker posts parsed import rows through the transaction poster.
type Worker struct {
	ledger *ledger.Service
	store  store.Store
	log    zerolog.Logger
}

// NewWorker creates an import worker.
func NewWorker(svc *ledger.Service, st store.Store, log zerolog.Logger) *Worker {
	return &Worker{
		ledger: svc,
		store:  st,
		log:    log.With().Str("component", "importer").Logger(),
	}
}

// Handler returns the job handler the queue consumer runs. Row failures are
// recorded on the job and do not fail it; only a job-level problem (wrong
// job type) errors out.
func (w *Worker) Handler() jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		importJob, ok := job.(*jobs.ImportStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}
		w.log.Info().
			Str("job_id", importJob.JobID).
			Str("filename", importJob.Filename).
			Int("rows", len(importJob.Rows)).
			Msg("processing import")

		for i, row := range importJob.Rows {
			if err := w.postRow(ctx, importJob.OwnerID, row); err != nil {
				importJob.RowErrors = append(importJob.RowErrors,
					fmt.Sprintf("row %d: %v", i+1, err))
				continue
			}
			importJob.Posted++
		}

		w.log.Info().
			Str("job_id", importJob.JobID).
			Int("posted", importJob.Posted).
			Int("failed_rows", len(importJob.RowErrors)).
			Msg("import finished")
		return nil
	}
}

func (w *Worker) postRow(ctx context.Context, owner uuid.UUID, row jobs.ImportRow) error {
	req := ledger.PostRequest{
		Kind:        row.Kind,
		Amount:      row.Amount,
		Date:        row.Date,
		Description: row.Description,
	}

	account, err := w.findAccount(ctx, owner, row.Account)
	if err != nil {
		return err
	}
	switch row.Kind {
	case domain.KindIncome:
		req.ToAccountID = &account.ID
	case domain.KindExpense:
		req.FromAccountID = &account.ID
	case domain.KindTransfer:
		if row.ToAccount == "" {
			return fmt.Errorf("transfer requires to_account")
		}
		to, err := w.findAccount(ctx, owner, row.ToAccount)
		if err != nil {
			return err
		}
		req.FromAccountID = &account.ID
		req.ToAccountID = &to.ID
	}

	if row.Category != "" && row.Kind != domain.KindTransfer {
		cat, err := w.findCategory(ctx, owner, row.Category, row.Kind)
		if err != nil {
			return err
		}
		req.CategoryID = &cat.ID
	}

	_, err = w.ledger.Post(ctx, owner, req)
	return err
}

func (w *Worker) findAccount(ctx context.Context, owner uuid.UUID, name string) (*domain.Account, error) {
	accounts, err := w.store.ListAccounts(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("unknown account %q", name)
}

func (w *Worker) findCategory(ctx context.Context, owner uuid.UUID, name string, kind domain.TransactionKind) (*domain.Category, error) {
	want := domain.CategoryExpense
	if kind == domain.KindIncome {
		want = domain.CategoryIncome
	}
	categories, err := w.store.ListCategories(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) && c.Kind == want {
			return c, nil
		}
	}
	return nil, fmt.Errorf("unknown %s category %q", want, name)
}
