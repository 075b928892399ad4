package handlers

import (
	"net/http"

	"bakery_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// RecipeHandler holds the recipe service.
type RecipeHandler struct {
	recipeService services.RecipeService
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(rs services.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipeService: rs}
}

// CreateRecipe handles adding a recipe with its ingredient lines.
func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req services.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "CreateRecipe")
		return
	}

	recipe, err := h.recipeService.CreateRecipe(c.Request.Context(), req)
	if err != nil {
		logServiceError(err, "CreateRecipe: Error from recipeService.CreateRecipe", map[string]interface{}{"name": req.Name})
		respondServiceError(c, err, "create recipe")
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) GetRecipes(c *gin.Context) {
	recipes, err := h.recipeService.GetRecipes(c.Request.Context())
	if err != nil {
		logServiceError(err, "GetRecipes: Error from recipeService.GetRecipes", map[string]interface{}{})
		respondServiceError(c, err, "fetch recipes")
		return
	}
	c.JSON(http.StatusOK, recipes)
}

func (h *RecipeHandler) GetRecipeByID(c *gin.Context) {
	id := c.Param("id")
	recipe, err := h.recipeService.GetRecipeByID(c.Request.Context(), id)
	if err != nil {
		logServiceError(err, "GetRecipeByID: Error from recipeService.GetRecipeByID", map[string]interface{}{"recipe_id": id})
		respondServiceError(c, err, "fetch recipe")
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// UpdateRecipe replaces the name and every line of a recipe.
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id := c.Param("id")
	var req services.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateRecipe")
		return
	}

	recipe, err := h.recipeService.UpdateRecipe(c.Request.Context(), id, req)
	if err != nil {
		logServiceError(err, "UpdateRecipe: Error from recipeService.UpdateRecipe", map[string]interface{}{"recipe_id": id})
		respondServiceError(c, err, "update recipe")
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id := c.Param("id")
	if err := h.recipeService.DeleteRecipe(c.Request.Context(), id); err != nil {
		logServiceError(err, "DeleteRecipe: Error from recipeService.DeleteRecipe", map[string]interface{}{"recipe_id": id})
		respondServiceError(c, err, "delete recipe")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted successfully"})
}
