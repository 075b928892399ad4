package services

import (
	"time"

	"bakery_backend/internal/models"

	"github.com/shopspring/decimal"
)

// SeedBundle returns the starter inventory and recipes of a new bakery.
func SeedBundle(now time.Time) *models.DataBundle {
	now = now.UTC().Truncate(time.Microsecond)
	ing := func(id, name string, stock int64, unit string, reorderPoint int64) models.Ingredient {
		return models.Ingredient{
			ID:           id,
			Name:         name,
			Stock:        decimal.NewFromInt(stock),
			Unit:         unit,
			ReorderPoint: decimal.NewFromInt(reorderPoint),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	line := func(id string, qty int64) models.RecipeIngredient {
		return models.RecipeIngredient{IngredientID: id, Quantity: decimal.NewFromInt(qty)}
	}

	return &models.DataBundle{
		Ingredients: []models.Ingredient{
			ing("1", "Harina", 5000, "g", 1000),
			ing("2", "Azúcar", 3000, "g", 500),
			ing("3", "Huevos", 60, "unidades", 12),
			ing("4", "Leche", 4000, "ml", 1000),
			ing("5", "Mantequilla", 1000, "g", 250),
			ing("6", "Chocolate", 800, "g", 200),
		},
		Recipes: []models.Recipe{
			{
				ID:   "1",
				Name: "Pastel de Chocolate",
				Ingredients: []models.RecipeIngredient{
					line("1", 300), line("2", 200), line("3", 4), line("4", 200), line("5", 150), line("6", 100),
				},
				CreatedAt: now,
				UpdatedAt: now,
			},
			{
				ID:   "2",
				Name: "Galletas de Mantequilla",
				Ingredients: []models.RecipeIngredient{
					line("1", 250), line("2", 100), line("3", 1), line("5", 150),
				},
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
		Sales: []models.Sale{},
	}
}
