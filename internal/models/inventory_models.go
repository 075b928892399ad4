package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Quantities travel as plain JSON numbers in the export file.
	decimal.MarshalJSONWithoutQuotes = true
}

// Ingredient is a stocked raw material such as flour or eggs.
type Ingredient struct {
	ID           string          `json:"id" db:"id" yaml:"id"`
	Name         string          `json:"name" db:"name" yaml:"name"`
	Stock        decimal.Decimal `json:"stock" db:"stock" yaml:"stock"`
	Unit         string          `json:"unit" db:"unit" yaml:"unit"`
	ReorderPoint decimal.Decimal `json:"reorderPoint" db:"reorder_point" yaml:"reorderPoint"`
	CreatedAt    time.Time       `json:"createdAt,omitempty" db:"created_at" yaml:"createdAt,omitempty"`
	UpdatedAt    time.Time       `json:"updatedAt,omitempty" db:"updated_at" yaml:"updatedAt,omitempty"`
}

// NeedsReorder reports whether stock is at or below the reorder point.
func (i Ingredient) NeedsReorder() bool {
	return i.Stock.LessThanOrEqual(i.ReorderPoint)
}

// RecipeIngredient is one line of a recipe's bill of materials.
type RecipeIngredient struct {
	IngredientID string          `json:"ingredientId" db:"ingredient_id" yaml:"ingredientId"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity" yaml:"quantity"`
}

// Recipe lists the ingredient quantities consumed by one unit sold.
type Recipe struct {
	ID          string             `json:"id" db:"id" yaml:"id"`
	Name        string             `json:"name" db:"name" yaml:"name"`
	Ingredients []RecipeIngredient `json:"ingredients" yaml:"ingredients"`
	CreatedAt   time.Time          `json:"createdAt,omitempty" db:"created_at" yaml:"createdAt,omitempty"`
	UpdatedAt   time.Time          `json:"updatedAt,omitempty" db:"updated_at" yaml:"updatedAt,omitempty"`
}

// Sale is an immutable ledger entry.
type Sale struct {
	ID       string          `json:"id" db:"id" yaml:"id"`
	RecipeID string          `json:"recipeId" db:"recipe_id" yaml:"recipeId"`
	Quantity decimal.Decimal `json:"quantity" db:"quantity" yaml:"quantity"`
	Date     time.Time       `json:"date" db:"sale_date" yaml:"date"`
}

// SaleFilters narrows a sales listing.
type SaleFilters struct {
	RecipeID *string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// DataBundle is the export/import document.
type DataBundle struct {
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`
	Recipes     []Recipe     `json:"recipes" yaml:"recipes"`
	Sales       []Sale       `json:"sales" yaml:"sales"`
}
