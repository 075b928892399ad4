package router

import (
	"bakery_backend/internal/handlers"
	"bakery_backend/internal/middleware"
	"bakery_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupPublicAuthRoutes sets up the routes reachable without a token.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/login", authHandler.LoginUser)
}

// SetupAuthenticatedAuthRoutes sets up the authentication routes that need a token.
func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.GET("/me", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff), authHandler.GetCurrentUser)
	group.POST("/register", middleware.RoleAuthMiddleware(models.RoleAdmin), authHandler.RegisterUser)
}

// SetupIngredientRoutes sets up the ingredient routes.
// Deletion is admin only.
func SetupIngredientRoutes(authenticatedGroup *gin.RouterGroup, ingredientHandler *handlers.IngredientHandler) {
	ingredientRoutes := authenticatedGroup.Group("/ingredients")
	ingredientRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		ingredientRoutes.POST("", ingredientHandler.CreateIngredient)
		ingredientRoutes.GET("", ingredientHandler.GetIngredients)
		ingredientRoutes.GET("/:id", ingredientHandler.GetIngredientByID)
		ingredientRoutes.PUT("/:id", ingredientHandler.UpdateIngredient)
		ingredientRoutes.POST("/:id/restock", ingredientHandler.RestockIngredient)
		ingredientRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), ingredientHandler.DeleteIngredient)
	}
}

// SetupRecipeRoutes sets up the recipe routes.
func SetupRecipeRoutes(authenticatedGroup *gin.RouterGroup, recipeHandler *handlers.RecipeHandler) {
	recipeRoutes := authenticatedGroup.Group("/recipes")
	recipeRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		recipeRoutes.POST("", recipeHandler.CreateRecipe)
		recipeRoutes.GET("", recipeHandler.GetRecipes)
		recipeRoutes.GET("/:id", recipeHandler.GetRecipeByID)
		recipeRoutes.PUT("/:id", recipeHandler.UpdateRecipe)
		recipeRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), recipeHandler.DeleteRecipe)
	}
}

// SetupSaleRoutes sets up the sale routes. Sales are append only.
func SetupSaleRoutes(authenticatedGroup *gin.RouterGroup, saleHandler *handlers.SaleHandler) {
	saleRoutes := authenticatedGroup.Group("/sales")
	saleRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		saleRoutes.POST("", saleHandler.RecordSale)
		saleRoutes.GET("", saleHandler.GetSales)
		saleRoutes.GET("/:id", saleHandler.GetSaleByID)
	}
}

// SetupReorderRoutes sets up the purchase list and stock prediction routes.
func SetupReorderRoutes(authenticatedGroup *gin.RouterGroup, reorderHandler *handlers.ReorderHandler) {
	reorderRoutes := authenticatedGroup.Group("")
	reorderRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		reorderRoutes.GET("/purchase-list", reorderHandler.GetPurchaseList)
		reorderRoutes.GET("/purchase-list/cached", reorderHandler.GetCachedPurchaseList)
		reorderRoutes.GET("/stock-prediction", reorderHandler.GetStockPrediction)
	}
}

// SetupDashboardRoutes sets up the dashboard routes.
func SetupDashboardRoutes(authenticatedGroup *gin.RouterGroup, reportHandler *handlers.ReportHandler) {
	dashboardRoutes := authenticatedGroup.Group("/dashboard")
	dashboardRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleStaff))
	{
		dashboardRoutes.GET("/summary", reportHandler.GetDashboardSummary)
	}
}

// SetupDataRoutes sets up export, import and backup. Admin only.
func SetupDataRoutes(authenticatedGroup *gin.RouterGroup, dataHandler *handlers.DataHandler) {
	dataRoutes := authenticatedGroup.Group("/data")
	dataRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		dataRoutes.GET("/export", dataHandler.ExportData)
		dataRoutes.POST("/import", dataHandler.ImportData)
		dataRoutes.POST("/backup", dataHandler.BackupData)
	}
}
