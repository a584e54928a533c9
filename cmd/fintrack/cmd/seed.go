package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/centavoapp/centavo/internal/domain"
)

var seedOwner string

// seedCmd loads a small demo dataset: one owner with two córdoba accounts,
// a pair of categories and a USD/NIO/EUR rate table.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo owner with accounts, categories and exchange rates",
	Run:   runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedOwner, "owner", "", "owner UUID to seed (default: a fresh one)")
}

func runSeed(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	_, pg, err := connect(ctx)
	exitOnError(err, "failed to connect")
	defer pg.Close()

	ownerID := uuid.New()
	if seedOwner != "" {
		ownerID, err = uuid.Parse(seedOwner)
		exitOnError(err, "invalid --owner UUID")
	}

	err = pg.UpsertUser(ctx, &domain.User{
		ID:              ownerID,
		Name:            "Demo Owner",
		PrimaryCurrency: "NIO",
	})
	exitOnError(err, "failed to seed user")

	rates := map[string]string{
		"USD": "1",
		"NIO": "0.027322",
		"EUR": "1.087",
	}
	for code, rate := range rates {
		_, err = pg.Pool().Exec(ctx,
			`INSERT INTO exchange_rates (currency_code, rate_to_reference) VALUES ($1, $2)
			 ON CONFLICT (currency_code) DO UPDATE SET rate_to_reference = EXCLUDED.rate_to_reference`,
			code, rate)
		exitOnError(err, "failed to seed exchange rate "+code)
	}

	accounts := []*domain.Account{
		{
			ID:             uuid.New(),
			OwnerID:        ownerID,
			Name:           "Checking",
			Category:       domain.AccountAsset,
			Currency:       "NIO",
			InitialBalance: decimal.NewFromInt(1000),
			CurrentBalance: decimal.NewFromInt(1000),
			CreatedAt:      time.Now().UTC(),
		},
		{
			ID:             uuid.New(),
			OwnerID:        ownerID,
			Name:           "Savings",
			Category:       domain.AccountAsset,
			Currency:       "NIO",
			InitialBalance: decimal.Zero,
			CurrentBalance: decimal.Zero,
			CreatedAt:      time.Now().UTC(),
		},
	}
	for _, a := range accounts {
		exitOnError(pg.CreateAccount(ctx, a), "failed to seed account "+a.Name)
	}

	categories := []*domain.Category{
		{ID: uuid.New(), OwnerID: ownerID, Name: "Salary", Kind: domain.CategoryIncome},
		{ID: uuid.New(), OwnerID: ownerID, Name: "Groceries", Kind: domain.CategoryExpense},
		{ID: uuid.New(), OwnerID: ownerID, Name: "Rent", Kind: domain.CategoryExpense},
	}
	for _, c := range categories {
		exitOnError(pg.CreateCategory(ctx, c), "failed to seed category "+c.Name)
	}

	log.Info().Str("owner_id", ownerID.String()).Msg("Demo data seeded")
	fmt.Printf("Seeded owner %s (use this as X-Owner-ID)\n", ownerID)
}
