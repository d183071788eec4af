package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/camila/ideaforge/internal/server"
)

var (
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for reviewing ideas, acting on them, and triggering pipeline jobs.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}

	ctx := context.Background()
	application, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer application.Close()

	srv := server.New(server.Config{Addr: cfg.ListenAddr}, application.db, application.gateway, application.registry)
	return srv.Start()
}
