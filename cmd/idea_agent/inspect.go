package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/observability"
	"github.com/camila/ideaforge/internal/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Pretty-print pipeline state from the database",
}

var inspectIdeaCmd = &cobra.Command{
	Use:   "idea <id>",
	Short: "Show an idea and its revision ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspectIdea,
}

var inspectBucketsCmd = &cobra.Command{
	Use:   "buckets <stage>",
	Short: "Show the bucket rotation for a stage",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspectBuckets,
}

var inspectRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show one job execution record",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspectRun,
}

func init() {
	inspectCmd.AddCommand(inspectIdeaCmd, inspectBucketsCmd, inspectRunCmd)
	rootCmd.AddCommand(inspectCmd)
}

// connectDB opens a database connection for read-only inspection.
func connectDB(ctx context.Context) (*db.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

func runInspectIdea(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid idea id %q: %w", args[0], err)
	}

	ctx := context.Background()
	database, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	idea, err := database.GetIdea(ctx, id)
	if err != nil {
		return err
	}
	entries, err := database.ListRevisions(ctx, id)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintIdea(idea)
	printer.PrintLedger(entries, idea.StageTransitions)
	return nil
}

func runInspectBuckets(_ *cobra.Command, args []string) error {
	stage := types.Stage(args[0])
	if !stage.Valid() {
		return fmt.Errorf("invalid stage %q", args[0])
	}

	ctx := context.Background()
	database, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	list, err := database.ListBuckets(ctx, stage, false)
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintBuckets(stage, list)
	return nil
}

func runInspectRun(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	ctx := context.Background()
	database, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	run, err := database.GetJobRun(ctx, id)
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintJobRun(run)
	return nil
}
