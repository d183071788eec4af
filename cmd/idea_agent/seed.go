package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Apply migrations and seed buckets, categories and brand config",
	Long: `Apply the database schema and load the seed file. Seeding is idempotent:
buckets and categories are upserted by name, so re-running with an edited
file updates prompts and targets in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedFile is the JSON shape of a seed file.
type seedFile struct {
	Brand *struct {
		Name       string   `json:"name"`
		Voice      string   `json:"voice"`
		Audience   string   `json:"audience,omitempty"`
		Exclusions []string `json:"exclusions,omitempty"`
	} `json:"brand,omitempty"`
	Categories []struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		TargetCount int    `json:"target_count"`
	} `json:"categories,omitempty"`
	Buckets []struct {
		Stage     string `json:"stage"`
		Name      string `json:"name"`
		Prompt    string `json:"prompt"`
		SortOrder int    `json:"sort_order,omitempty"`
	} `json:"buckets,omitempty"`
}

func runSeed(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	for _, b := range seed.Buckets {
		if !types.Stage(b.Stage).Valid() {
			return fmt.Errorf("seed bucket %q has invalid stage %q", b.Name, b.Stage)
		}
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, c := range seed.Categories {
		if _, err := database.CreateCategory(ctx, c.Name, c.Description, c.TargetCount); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", c.Name, err)
		}
		fmt.Printf("Seeded category %q (target %d)\n", c.Name, c.TargetCount)
	}
	for _, b := range seed.Buckets {
		if _, err := database.CreateBucket(ctx, types.Stage(b.Stage), b.Name, b.Prompt, b.SortOrder); err != nil {
			return fmt.Errorf("failed to seed bucket %q: %w", b.Name, err)
		}
		fmt.Printf("Seeded %s bucket %q\n", b.Stage, b.Name)
	}
	if seed.Brand != nil {
		_, err := database.UpsertBrandConfig(ctx, types.BrandConfig{
			Name:       seed.Brand.Name,
			Voice:      seed.Brand.Voice,
			Audience:   seed.Brand.Audience,
			Exclusions: seed.Brand.Exclusions,
		})
		if err != nil {
			return fmt.Errorf("failed to seed brand config: %w", err)
		}
		fmt.Printf("Seeded brand config %q\n", seed.Brand.Name)
	}
	return nil
}
