package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/centavoapp/centavo/internal/scheduler"
)

// runSchedulerCmd executes a single due-scan pass. Useful after downtime:
// the pass fires every occurrence whose window was missed.
var runSchedulerCmd = &cobra.Command{
	Use:   "run-scheduler",
	Short: "Run one recurring-transaction scheduler pass",
	Run:   runScheduler,
}

func runScheduler(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	_, pg, err := connect(ctx)
	exitOnError(err, "failed to connect")
	defer pg.Close()

	sched := scheduler.New(pg, log)
	summary, err := sched.RunNow(ctx)
	exitOnError(err, "scheduler pass failed")

	fmt.Printf("due=%d fired=%d completed=%d failed=%d skipped=%d\n",
		summary.Due, summary.Fired, summary.Completed, summary.Failed, summary.Skipped)
}
