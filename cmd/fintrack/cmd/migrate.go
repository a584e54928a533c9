package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var schemaFile string

// migrateCmd applies the SQL schema. Statements are idempotent
// (CREATE ... IF NOT EXISTS) so re-running is safe.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Run:   runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&schemaFile, "schema", "migrations/schema.sql", "path to the schema file")
}

func runMigrate(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	_, pg, err := connect(ctx)
	exitOnError(err, "failed to connect")
	defer pg.Close()

	schema, err := os.ReadFile(schemaFile)
	exitOnError(err, "failed to read schema file")

	_, err = pg.Pool().Exec(ctx, string(schema))
	exitOnError(err, "failed to apply schema")

	log.Info().Str("schema", schemaFile).Msg("Schema applied")
}
