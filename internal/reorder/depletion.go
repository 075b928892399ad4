package reorder

import (
	"context"
	"time"

	"bakery_backend/internal/models"
	"bakery_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

// ProjectionDays is the horizon of the suggested quantities.
const ProjectionDays = 7

// DepletionRequest carries the state a depletion estimate is computed from.
type DepletionRequest struct {
	Ingredients []models.Ingredient
	Recipes     []models.Recipe
	Sales       []models.Sale // sales inside the window
	WindowDays  int
	Now         time.Time
}

// Predictor produces a depletion prediction. The rule-based estimate and AI advisors both implement it.
type Predictor interface {
	PredictDepletion(ctx context.Context, req DepletionRequest) (*models.DepletionPrediction, error)
}

// EstimateDepletion averages ingredient usage over the window and projects it forward.
// Ingredients that were not used in the window have no depletion estimate and no suggestion.
func EstimateDepletion(req DepletionRequest) *models.DepletionPrediction {
	usage := IngredientUsage(req.Recipes, req.Sales)
	windowDays := req.WindowDays
	if windowDays <= 0 {
		windowDays = 1
	}
	days := decimal.NewFromInt(int64(windowDays))
	horizon := decimal.NewFromInt(ProjectionDays)

	p := &models.DepletionPrediction{
		IngredientDepletionEstimates:  map[string]decimal.Decimal{},
		PurchaseList:                  map[string]decimal.Decimal{},
		LowStockIngredients:           map[string]decimal.Decimal{},
		SuggestedIngredientQuantities: map[string]decimal.Decimal{},
		Source:                        models.SourceRules,
		GeneratedAt:                   req.Now.UTC(),
	}

	for _, ing := range req.Ingredients {
		if ing.NeedsReorder() {
			p.LowStockIngredients[ing.Name] = ing.Stock
			p.PurchaseList[ing.Name] = QuantityToBuy(ing)
		}
		used, ok := usage[ing.ID]
		if !ok || !used.IsPositive() {
			continue
		}
		daily := used.Div(days)
		p.IngredientDepletionEstimates[ing.Name] = ing.Stock.Div(daily).Round(1)
		p.SuggestedIngredientQuantities[ing.Name] = daily.Mul(horizon).Round(2)
	}
	return p
}

// IngredientUsage totals how much of each ingredient id the given sales consumed.
func IngredientUsage(recipes []models.Recipe, sales []models.Sale) map[string]decimal.Decimal {
	lines := make(map[string][]models.RecipeIngredient, len(recipes))
	for _, r := range recipes {
		lines[r.ID] = r.Ingredients
	}
	usage := make(map[string]decimal.Decimal)
	for _, sale := range sales {
		for _, line := range lines[sale.RecipeID] {
			usage[line.IngredientID] = usage[line.IngredientID].Add(line.Quantity.Mul(sale.Quantity))
		}
	}
	return usage
}

// RulePredictor adapts EstimateDepletion to the Predictor interface.
type RulePredictor struct{}

// PredictDepletion never fails.
func (RulePredictor) PredictDepletion(_ context.Context, req DepletionRequest) (*models.DepletionPrediction, error) {
	return EstimateDepletion(req), nil
}

// DailyUsage averages IngredientUsage over windowDays.
func DailyUsage(recipes []models.Recipe, sales []models.Sale, windowDays int) map[string]decimal.Decimal {
	if windowDays <= 0 {
		windowDays = 1
	}
	days := decimal.NewFromInt(int64(windowDays))
	usage := IngredientUsage(recipes, sales)
	for id, used := range usage {
		usage[id] = used.Div(days)
	}
	return usage
}

// SanitizePrediction keeps only what an advisor is allowed to say: names are mapped
// back to known ingredients, negative values are dropped, and the purchase and low
// stock maps are limited to ingredients at or below their reorder point. Low stock
// values always report the actual stock.
func SanitizePrediction(p *models.DepletionPrediction, ingredients []models.Ingredient) *models.DepletionPrediction {
	known := make(map[string]models.Ingredient, len(ingredients))
	for _, ing := range ingredients {
		known[utils.FoldName(ing.Name)] = ing
	}

	clean := func(in map[string]decimal.Decimal, eligibleOnly bool) map[string]decimal.Decimal {
		out := map[string]decimal.Decimal{}
		for name, value := range in {
			ing, ok := known[utils.FoldName(name)]
			if !ok || value.IsNegative() {
				continue
			}
			if eligibleOnly && !ing.NeedsReorder() {
				continue
			}
			out[ing.Name] = value
		}
		return out
	}

	out := &models.DepletionPrediction{
		IngredientDepletionEstimates:  clean(p.IngredientDepletionEstimates, false),
		PurchaseList:                  clean(p.PurchaseList, true),
		LowStockIngredients:           map[string]decimal.Decimal{},
		SuggestedIngredientQuantities: clean(p.SuggestedIngredientQuantities, false),
		Source:                        p.Source,
		GeneratedAt:                   p.GeneratedAt,
	}
	for name := range clean(p.LowStockIngredients, true) {
		out.LowStockIngredients[name] = known[utils.FoldName(name)].Stock
	}
	return out
}

// Empty reports whether a prediction carries no values at all.
func Empty(p *models.DepletionPrediction) bool {
	return p == nil || len(p.IngredientDepletionEstimates)+len(p.PurchaseList)+
		len(p.LowStockIngredients)+len(p.SuggestedIngredientQuantities) == 0
}
