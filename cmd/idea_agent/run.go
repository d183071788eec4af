package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/types"
)

var (
	runIdeaID     string
	runBucketID   string
	runCategoryID string
	runNotes      string
	runStage      string
)

var runCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Trigger a pipeline job and wait for it to finish",
	Long: `Trigger one job by name and block until the queue drains, including any
jobs the run chains into. Job names match GET /jobs on the API server.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runIdeaID, "idea", "", "Idea ID the job should act on")
	runCmd.Flags().StringVar(&runBucketID, "bucket", "", "Bucket ID override")
	runCmd.Flags().StringVar(&runCategoryID, "category", "", "Category ID to target")
	runCmd.Flags().StringVar(&runNotes, "notes", "", "Operator notes for refinement jobs")
	runCmd.Flags().StringVar(&runStage, "stage", "", "Stage for refinement jobs")
	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	payload := events.Payload{Notes: runNotes}
	for _, field := range []struct {
		raw  string
		dst  **uuid.UUID
		name string
	}{
		{runIdeaID, &payload.IdeaID, "--idea"},
		{runBucketID, &payload.BucketID, "--bucket"},
		{runCategoryID, &payload.CategoryID, "--category"},
	} {
		if field.raw == "" {
			continue
		}
		id, err := uuid.Parse(field.raw)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", field.name, field.raw, err)
		}
		*field.dst = &id
	}
	if runStage != "" {
		stage := types.Stage(runStage)
		if !stage.Valid() {
			return fmt.Errorf("invalid --stage value %q", runStage)
		}
		payload.Stage = stage
	}

	ctx := context.Background()
	application, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer application.Close()

	eventID, err := application.registry.Trigger(ctx, args[0], payload)
	if err != nil {
		return err
	}
	fmt.Printf("Triggered %s (event %s), waiting for completion...\n", args[0], eventID)

	// Close drains the dispatcher queues, so by the time it returns the
	// triggered job and anything it chained into have finished.
	application.Close()
	fmt.Println("Done")
	return nil
}
