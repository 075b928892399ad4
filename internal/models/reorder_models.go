package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase list sources.
const (
	SourceRules = "rules"
	SourceAI    = "ai"
)

// PurchaseListItem is a derived restock recommendation. It is never stored.
type PurchaseListItem struct {
	IngredientID   string          `json:"ingredientId" yaml:"ingredientId"`
	IngredientName string          `json:"ingredientName" yaml:"ingredientName"`
	QuantityToBuy  decimal.Decimal `json:"quantityToBuy" yaml:"quantityToBuy"`
	Reason         string          `json:"reason" yaml:"reason"`
	Unit           string          `json:"unit" yaml:"unit"`
}

// PurchaseList wraps the items with where they came from.
type PurchaseList struct {
	Items       []PurchaseListItem `json:"items" yaml:"items"`
	Source      string             `json:"source" yaml:"source"`
	GeneratedAt time.Time          `json:"generatedAt" yaml:"generatedAt"`
}

// DepletionPrediction maps ingredient names to the four stock projections.
type DepletionPrediction struct {
	IngredientDepletionEstimates  map[string]decimal.Decimal `json:"ingredientDepletionEstimates" yaml:"ingredientDepletionEstimates"`
	PurchaseList                  map[string]decimal.Decimal `json:"purchaseList" yaml:"purchaseList"`
	LowStockIngredients           map[string]decimal.Decimal `json:"lowStockIngredients" yaml:"lowStockIngredients"`
	SuggestedIngredientQuantities map[string]decimal.Decimal `json:"suggestedIngredientQuantities" yaml:"suggestedIngredientQuantities"`
	Source                        string                     `json:"source" yaml:"source"`
	GeneratedAt                   time.Time                  `json:"generatedAt" yaml:"generatedAt"`
}

// StockShortage describes one ingredient a sale could not cover.
type StockShortage struct {
	IngredientID string          `json:"ingredientId"`
	Name         string          `json:"name"`
	Required     decimal.Decimal `json:"required"`
	Available    decimal.Decimal `json:"available"`
	Unit         string          `json:"unit"`
}

// DashboardSummary feeds the back-office landing page.
type DashboardSummary struct {
	IngredientCount int             `json:"ingredientCount"`
	RecipeCount     int             `json:"recipeCount"`
	LowStockCount   int             `json:"lowStockCount"`
	SalesInWindow   int             `json:"salesInWindow"`
	UnitsSold       decimal.Decimal `json:"unitsSold"`
	WindowDays      int             `json:"windowDays"`
	LastSale        *Sale           `json:"lastSale,omitempty"`
}
