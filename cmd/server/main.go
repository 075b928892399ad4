package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bakery_backend/internal/app"
	"bakery_backend/internal/config"
	"bakery_backend/internal/events"
	"bakery_backend/internal/router"
	"bakery_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize Logger
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	if cfg.JWTSecret == "" {
		utils.LogWarn("JWT_SECRET_KEY is empty, tokens are signed with an empty key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		utils.LogError(err, "Failed to initialize application")
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer a.Close()
	utils.LogInfo("Database initialized", map[string]interface{}{"driver": cfg.DBDriver})

	if err := a.Auth.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPass); err != nil {
		utils.LogError(err, "Failed to create the initial admin account")
		log.Fatalf("Failed to create the initial admin account: %v", err)
	}

	readiness := events.NewReadiness(app.Feeds(), cfg.ReadinessTimeout)
	a.Reorder.Start(ctx, readiness)

	engine := gin.New()
	engine.Use(gin.Recovery())
	// Add GinLogger middleware for request logging
	engine.Use(utils.GinLogger())

	router.Setup(engine, router.Dependencies{
		AuthService:       a.Auth,
		IngredientService: a.Ingredients,
		RecipeService:     a.Recipes,
		SaleService:       a.Sales,
		ReorderService:    a.Reorder,
		DataService:       a.Data,
		Readiness:         readiness,
		JWTSecret:         []byte(cfg.JWTSecret),
		CORSOrigins:       cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port, "api": "/api/v1"})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError(err, "Failed to start server")
			stop()
		}
	}()

	<-ctx.Done()
	utils.LogInfo("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError(err, "Server shutdown failed")
	}
}
