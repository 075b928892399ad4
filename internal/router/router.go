package router

import (
	"time"

	"bakery_backend/internal/events"
	"bakery_backend/internal/handlers"
	"bakery_backend/internal/middleware"
	"bakery_backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services the HTTP API is built on.
type Dependencies struct {
	AuthService       services.AuthService
	IngredientService services.IngredientService
	RecipeService     services.RecipeService
	SaleService       services.SaleService
	ReorderService    services.ReorderService
	DataService       services.DataService
	Readiness         *events.Readiness
	JWTSecret         []byte
	CORSOrigins       []string
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, deps Dependencies) {
	if len(deps.CORSOrigins) > 0 {
		engine.Use(cors.New(corsConfig(deps.CORSOrigins)))
	}

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	ingredientHandler := handlers.NewIngredientHandler(deps.IngredientService)
	recipeHandler := handlers.NewRecipeHandler(deps.RecipeService)
	saleHandler := handlers.NewSaleHandler(deps.SaleService)
	reorderHandler := handlers.NewReorderHandler(deps.ReorderService)
	reportHandler := handlers.NewReportHandler(deps.ReorderService)
	dataHandler := handlers.NewDataHandler(deps.DataService)
	healthHandler := handlers.NewHealthHandler(deps.Readiness)

	engine.GET("/ping", healthHandler.Ping)
	engine.GET("/readyz", healthHandler.Ready)

	apiV1 := engine.Group("/api/v1")
	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware(deps.JWTSecret))
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupIngredientRoutes(authenticated, ingredientHandler)
		SetupRecipeRoutes(authenticated, recipeHandler)
		SetupSaleRoutes(authenticated, saleHandler)
		SetupReorderRoutes(authenticated, reorderHandler)
		SetupDashboardRoutes(authenticated, reportHandler)
		SetupDataRoutes(authenticated, dataHandler)
	}
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	if len(origins) == 1 && origins[0] == "*" {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.ExposeHeaders = []string{"Content-Disposition"}
	config.MaxAge = 12 * time.Hour
	return config
}
