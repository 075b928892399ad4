package reorder

import (
	"context"
	"strings"

	"bakery_backend/internal/models"
	"bakery_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

// Suggestion is one line proposed by an external advisor. Names are free text.
type Suggestion struct {
	IngredientName string
	QuantityToBuy  decimal.Decimal
	Reason         string
}

// SuggestionRequest is what an advisor sees: current stock, average daily usage
// per ingredient id and units sold per recipe name over the window.
type SuggestionRequest struct {
	Ingredients  []models.Ingredient
	DailyUsage   map[string]decimal.Decimal
	SalesSummary map[string]decimal.Decimal
	WindowDays   int
}

// Suggester proposes purchase quantities. Implementations may be slow or wrong.
type Suggester interface {
	SuggestPurchases(ctx context.Context, req SuggestionRequest) ([]Suggestion, error)
}

// ApplySuggestions overlays suggestions on the rule-based list. Only ingredients
// already on the list can be changed, negative quantities are ignored, and names
// are matched after normalisation and case folding. It returns the merged list and
// how many items a suggestion changed.
func ApplySuggestions(base []models.PurchaseListItem, suggestions []Suggestion) ([]models.PurchaseListItem, int) {
	byName := make(map[string]Suggestion, len(suggestions))
	for _, s := range suggestions {
		key := utils.FoldName(s.IngredientName)
		if key == "" || s.QuantityToBuy.IsNegative() {
			continue
		}
		if _, seen := byName[key]; !seen {
			byName[key] = s
		}
	}

	merged := make([]models.PurchaseListItem, len(base))
	applied := 0
	for i, item := range base {
		merged[i] = item
		s, ok := byName[utils.FoldName(item.IngredientName)]
		if !ok {
			continue
		}
		merged[i].QuantityToBuy = s.QuantityToBuy
		if reason := strings.TrimSpace(s.Reason); reason != "" {
			merged[i].Reason = reason
		}
		applied++
	}
	return merged, applied
}

// SummarizeSales totals units sold per recipe name. Sales of unknown recipes are keyed by recipe id.
func SummarizeSales(sales []models.Sale, recipes []models.Recipe) map[string]decimal.Decimal {
	names := make(map[string]string, len(recipes))
	for _, r := range recipes {
		names[r.ID] = r.Name
	}
	summary := make(map[string]decimal.Decimal)
	for _, sale := range sales {
		key, ok := names[sale.RecipeID]
		if !ok {
			key = sale.RecipeID
		}
		summary[key] = summary[key].Add(sale.Quantity)
	}
	return summary
}
