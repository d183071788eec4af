package main

import (
	"context"
	"fmt"

	"github.com/camila/ideaforge/internal/admin"
	"github.com/camila/ideaforge/internal/buckets"
	"github.com/camila/ideaforge/internal/config"
	"github.com/camila/ideaforge/internal/db"
	"github.com/camila/ideaforge/internal/events"
	"github.com/camila/ideaforge/internal/imagen"
	"github.com/camila/ideaforge/internal/llm"
	"github.com/camila/ideaforge/internal/pipeline"
	"github.com/camila/ideaforge/internal/printful"
	"github.com/camila/ideaforge/internal/shopify"
)

// app bundles the wired components shared by the serve and run commands.
type app struct {
	cfg        config.Config
	db         *db.DB
	text       llm.Client
	dispatcher *events.Dispatcher
	registry   *pipeline.Registry
	gateway    *admin.Gateway
}

// buildApp connects the database and wires the dispatcher, job executors
// and the admin gateway.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	llmConfig := llm.DefaultConfig()
	if cfg.LLMProvider == string(llm.ProviderOpenAI) {
		llmConfig = llm.DefaultOpenAIConfig()
	}
	text, err := llm.NewClient(ctx, llmConfig, cfg.LLMAPIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	dispatcher := events.NewDispatcher(ctx)
	bucketRegistry := buckets.NewRegistry(database)

	deps := pipeline.Deps{
		Store:        database,
		Text:         text,
		Images:       imagen.NewClient(cfg.ImagenURL, cfg.ImagenKey),
		Fulfillment:  printful.NewClient("", cfg.PrintfulAPIKey),
		Storefront:   shopify.NewClient("", cfg.ShopifyDomain, cfg.ShopifyAccessToken),
		Buckets:      bucketRegistry,
		Emitter:      dispatcher,
		BatchSize:    cfg.BatchSize,
		CollectionID: cfg.ShopifyCollection,
	}

	runner := pipeline.NewRunner(database, database)
	registry := pipeline.NewRegistry(runner, dispatcher)
	registry.Register(pipeline.NewGenerateIdeasJob(deps), events.TopicGenerateIdeas)
	registry.Register(pipeline.NewCreateDesignJob(deps), events.TopicCreateDesign)
	registry.Register(pipeline.NewConfigureProductJob(deps), events.TopicConfigureProduct)
	registry.Register(pipeline.NewConfigureListingJob(deps), events.TopicConfigureListing)
	registry.Register(pipeline.NewCreatePrintfulJob(deps), events.TopicCreatePrintful)
	registry.Register(pipeline.NewPublishShopifyJob(deps), events.TopicPublishShopify, events.TopicPrintfulCreated)
	registry.Register(pipeline.NewAnalyzeCategoriesJob(deps), events.TopicAnalyzeCategories)

	gateway := admin.NewGateway(database, bucketRegistry, dispatcher)
	registry.Register(admin.NewRefineIdeaJob(gateway), events.TopicRefineIdea)

	return &app{
		cfg:        cfg,
		db:         database,
		text:       text,
		dispatcher: dispatcher,
		registry:   registry,
		gateway:    gateway,
	}, nil
}

// Close drains queued jobs and releases connections.
func (a *app) Close() {
	a.dispatcher.Close()
	_ = a.text.Close()
	a.db.Close()
}
