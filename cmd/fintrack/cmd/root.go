// Package cmd provides the fintrack CLI commands: schema migration, demo
// seeding and manual scheduler passes.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/centavoapp/centavo/internal/config"
	"github.com/centavoapp/centavo/internal/logger"
	"github.com/centavoapp/centavo/internal/store/postgres"
)

var (
	envFile string
	log     zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fintrack",
	Short: "Operations CLI for the finance tracker",
	Long: `fintrack is the operations companion to the API server.

It supports:
- Applying the database schema
- Seeding a demo owner with accounts, categories and exchange rates
- Running one recurring-transaction scheduler pass by hand

Example:
  fintrack migrate
  fintrack seed
  fintrack run-scheduler`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logger.New("fintrack")
	},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file (default is ./.env)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(runSchedulerCmd)
}

// connect loads configuration and opens the Postgres store. The CLI always
// works against a real database.
func connect(ctx context.Context) (*config.Config, *postgres.Store, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("fintrack requires DATABASE_URL")
	}
	pg, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pg, nil
}

func exitOnError(err error, msg string) {
	if err != nil {
		log.Error().Err(err).Msg(msg)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
