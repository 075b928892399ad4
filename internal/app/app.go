// Package app assembles the repositories, services and background workers
// shared by the HTTP server and the command line tool.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"bakery_backend/internal/config"
	"bakery_backend/internal/database"
	"bakery_backend/internal/events"
	"bakery_backend/internal/llm"
	"bakery_backend/internal/repositories"
	"bakery_backend/internal/services"
	"bakery_backend/internal/storage"
	"bakery_backend/pkg/utils"
)

// App holds the wired services over one database.
type App struct {
	DB     *sql.DB
	Broker *events.Broker

	Auth        services.AuthService
	Ingredients services.IngredientService
	Recipes     services.RecipeService
	Sales       services.SaleService
	Reorder     services.ReorderService
	Data        services.DataService
}

// New opens and migrates the database and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	dialect, err := repositories.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		db.Close()
		return nil, err
	}

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	broker := events.NewBroker()
	tx := repositories.NewTxRunner(db, dialect, cfg.TxMaxRetries)
	authRepo := repositories.NewAuthRepository()
	ingredientRepo := repositories.NewIngredientRepository(dialect)
	recipeRepo := repositories.NewRecipeRepository(dialect)
	saleRepo := repositories.NewSaleRepository()

	reorderCfg := services.ReorderServiceConfig{WindowDays: cfg.SalesWindowDays}
	if advisor := newAdvisor(cfg); advisor != nil {
		reorderCfg.Suggester = advisor
		reorderCfg.Predictor = advisor
	}

	a := &App{
		DB:          db,
		Broker:      broker,
		Auth:        services.NewAuthService(authRepo, tx, cfg.JWTSecret, cfg.TokenTTL),
		Ingredients: services.NewIngredientService(tx, ingredientRepo, recipeRepo, broker),
		Recipes:     services.NewRecipeService(tx, recipeRepo, saleRepo, broker, cfg.RecipeDeleteGuard),
		Sales:       services.NewSaleService(tx, ingredientRepo, recipeRepo, saleRepo, broker),
		Reorder:     services.NewReorderService(db, ingredientRepo, recipeRepo, saleRepo, broker, reorderCfg),
		Data:        services.NewDataService(tx, ingredientRepo, recipeRepo, saleRepo, broker, uploader),
	}
	return a, nil
}

// newAdvisor returns nil when no AI provider is configured.
func newAdvisor(cfg *config.Config) *llm.Advisor {
	var client llm.Client
	switch cfg.LLMProvider {
	case "gemini":
		client = llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, llm.WithHTTPTimeout(cfg.LLMTimeout))
	case "openai":
		client = llm.NewChatClient(cfg.OpenAIEndpoint, cfg.OpenAIAPIKey, cfg.OpenAIModel, llm.WithHTTPTimeout(cfg.LLMTimeout))
	default:
		return nil
	}
	utils.LogInfo("AI advisor enabled", map[string]interface{}{"provider": cfg.LLMProvider})
	return llm.NewAdvisor(client, cfg.LLMTimeout)
}

// newUploader returns a nil Uploader when backups are not configured.
func newUploader(ctx context.Context, cfg *config.Config) (services.Uploader, error) {
	if !cfg.BackupEnabled() {
		return nil, nil
	}
	client, err := storage.NewR2Client(ctx, storage.R2Options{
		Endpoint:      cfg.R2Endpoint,
		AccessKey:     cfg.R2AccessKey,
		SecretKey:     cfg.R2SecretKey,
		Bucket:        cfg.R2Bucket,
		PublicBaseURL: cfg.R2PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring backup storage: %w", err)
	}
	return client, nil
}

// Feeds are the collections the readiness barrier waits for.
func Feeds() []string {
	return []string{events.CollectionIngredients, events.CollectionRecipes, events.CollectionSales}
}

// Close stops background work and releases the database.
func (a *App) Close() error {
	a.Reorder.Stop()
	a.Broker.Close()
	return a.DB.Close()
}
