package handlers

import (
	"net/http"

	"bakery_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// IngredientHandler holds the ingredient service.
type IngredientHandler struct {
	ingredientService services.IngredientService
}

// NewIngredientHandler creates a new IngredientHandler.
func NewIngredientHandler(is services.IngredientService) *IngredientHandler {
	return &IngredientHandler{ingredientService: is}
}

// CreateIngredient handles adding a new ingredient.
func (h *IngredientHandler) CreateIngredient(c *gin.Context) {
	var req services.CreateIngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "CreateIngredient")
		return
	}

	ing, err := h.ingredientService.CreateIngredient(c.Request.Context(), req)
	if err != nil {
		logServiceError(err, "CreateIngredient: Error from ingredientService.CreateIngredient", map[string]interface{}{"name": req.Name})
		respondServiceError(c, err, "create ingredient")
		return
	}
	c.JSON(http.StatusCreated, ing)
}

// GetIngredients lists all ingredients by name.
func (h *IngredientHandler) GetIngredients(c *gin.Context) {
	ingredients, err := h.ingredientService.GetIngredients(c.Request.Context())
	if err != nil {
		logServiceError(err, "GetIngredients: Error from ingredientService.GetIngredients", map[string]interface{}{})
		respondServiceError(c, err, "fetch ingredients")
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

// GetIngredientByID fetches a single ingredient.
func (h *IngredientHandler) GetIngredientByID(c *gin.Context) {
	id := c.Param("id")
	ing, err := h.ingredientService.GetIngredientByID(c.Request.Context(), id)
	if err != nil {
		logServiceError(err, "GetIngredientByID: Error from ingredientService.GetIngredientByID", map[string]interface{}{"ingredient_id": id})
		respondServiceError(c, err, "fetch ingredient")
		return
	}
	c.JSON(http.StatusOK, ing)
}

// UpdateIngredient applies a partial update.
func (h *IngredientHandler) UpdateIngredient(c *gin.Context) {
	id := c.Param("id")
	var req services.UpdateIngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateIngredient")
		return
	}

	ing, err := h.ingredientService.UpdateIngredient(c.Request.Context(), id, req)
	if err != nil {
		logServiceError(err, "UpdateIngredient: Error from ingredientService.UpdateIngredient", map[string]interface{}{"ingredient_id": id})
		respondServiceError(c, err, "update ingredient")
		return
	}
	c.JSON(http.StatusOK, ing)
}

// RestockIngredient adds purchased stock to an ingredient.
func (h *IngredientHandler) RestockIngredient(c *gin.Context) {
	id := c.Param("id")
	var req services.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "RestockIngredient")
		return
	}

	ing, err := h.ingredientService.Restock(c.Request.Context(), id, *req.Quantity)
	if err != nil {
		logServiceError(err, "RestockIngredient: Error from ingredientService.Restock", map[string]interface{}{"ingredient_id": id})
		respondServiceError(c, err, "restock ingredient")
		return
	}
	c.JSON(http.StatusOK, ing)
}

// DeleteIngredient removes an ingredient no recipe uses.
func (h *IngredientHandler) DeleteIngredient(c *gin.Context) {
	id := c.Param("id")
	if err := h.ingredientService.DeleteIngredient(c.Request.Context(), id); err != nil {
		logServiceError(err, "DeleteIngredient: Error from ingredientService.DeleteIngredient", map[string]interface{}{"ingredient_id": id})
		respondServiceError(c, err, "delete ingredient")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ingredient deleted successfully"})
}
