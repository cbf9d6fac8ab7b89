package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-retriever/internal/db"
	"github.com/jonathan/resume-retriever/internal/observability"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scrape attempts",
	Long:  "Lists the most recent scrape attempts from the PostgreSQL ledger (DATABASE_URL or database_url in the config file).",
	RunE:  runHistory,
}

var (
	historyLimit   int
	historyOutcome string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", db.DefaultListLimit, "Number of attempts to show")
	historyCmd.Flags().StringVar(&historyOutcome, "outcome", "", "Only show attempts with this outcome (success, blocked, not_found, failure)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd, nil)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or database_url config is required")
	}
	if err := validOutcomeFilter(historyOutcome); err != nil {
		return err
	}

	ctx := context.Background()
	database, err := openLedger(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	attempts, err := database.ListAttempts(ctx, db.AttemptFilter{Outcome: historyOutcome, Limit: historyLimit})
	if err != nil {
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintAttempts(attempts)
	return nil
}

func validOutcomeFilter(outcome string) error {
	switch outcome {
	case "", db.OutcomeSuccess, db.OutcomeBlocked, db.OutcomeNotFound, db.OutcomeFailure:
		return nil
	default:
		return fmt.Errorf("invalid --outcome %q", outcome)
	}
}
