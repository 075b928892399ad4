package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bakery_backend/internal/models"
	"bakery_backend/internal/reorder"
	"bakery_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

// Advisor adapts a text-generation Client to the reorder Suggester and Predictor interfaces.
type Advisor struct {
	client  Client
	timeout time.Duration
}

// NewAdvisor wraps client. Each call is bounded by timeout on top of the caller's context.
func NewAdvisor(client Client, timeout time.Duration) *Advisor {
	return &Advisor{client: client, timeout: timeout}
}

func (a *Advisor) generate(ctx context.Context, prompt string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := a.client.Generate(ctx, prompt)
	utils.LogDebug("LLM call finished", map[string]interface{}{"latency": time.Since(start).String(), "ok": err == nil})
	return text, err
}

// SuggestPurchases implements reorder.Suggester.
func (a *Advisor) SuggestPurchases(ctx context.Context, req reorder.SuggestionRequest) ([]reorder.Suggestion, error) {
	lines := make([]PurchaseLine, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		lines = append(lines, PurchaseLine{
			Name:         ing.Name,
			Stock:        ing.Stock.String(),
			Unit:         ing.Unit,
			DailyUsage:   req.DailyUsage[ing.ID].Round(2).String(),
			ReorderPoint: ing.ReorderPoint.String(),
		})
	}
	salesJSON, err := json.Marshal(req.SalesSummary)
	if err != nil {
		return nil, fmt.Errorf("encoding sales summary: %w", err)
	}

	text, err := a.generate(ctx, BuildPurchaseListPrompt(lines, string(salesJSON), req.WindowDays))
	if err != nil {
		return nil, err
	}
	return ParsePurchaseList(text)
}

type recipeLine struct {
	IngredientName string          `json:"ingredientName"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
}

type stockLine struct {
	Stock        decimal.Decimal `json:"stock"`
	Unit         string          `json:"unit"`
	ReorderPoint decimal.Decimal `json:"reorderPoint"`
}

// PredictDepletion implements reorder.Predictor.
func (a *Advisor) PredictDepletion(ctx context.Context, req reorder.DepletionRequest) (*models.DepletionPrediction, error) {
	byID := make(map[string]models.Ingredient, len(req.Ingredients))
	stock := make(map[string]stockLine, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		byID[ing.ID] = ing
		stock[ing.Name] = stockLine{Stock: ing.Stock, Unit: ing.Unit, ReorderPoint: ing.ReorderPoint}
	}

	recipes := make(map[string][]recipeLine, len(req.Recipes))
	for _, r := range req.Recipes {
		lines := make([]recipeLine, 0, len(r.Ingredients))
		for _, l := range r.Ingredients {
			ing, ok := byID[l.IngredientID]
			if !ok {
				continue
			}
			lines = append(lines, recipeLine{IngredientName: ing.Name, Quantity: l.Quantity, Unit: ing.Unit})
		}
		recipes[r.Name] = lines
	}

	salesJSON, err := json.Marshal(reorder.SummarizeSales(req.Sales, req.Recipes))
	if err != nil {
		return nil, fmt.Errorf("encoding sales summary: %w", err)
	}
	recipesJSON, err := json.Marshal(recipes)
	if err != nil {
		return nil, fmt.Errorf("encoding recipes: %w", err)
	}
	stockJSON, err := json.Marshal(stock)
	if err != nil {
		return nil, fmt.Errorf("encoding stock: %w", err)
	}

	text, err := a.generate(ctx, BuildDepletionPrompt(string(salesJSON), string(recipesJSON), string(stockJSON), req.WindowDays))
	if err != nil {
		return nil, err
	}
	p, err := ParseDepletion(text)
	if err != nil {
		return nil, err
	}
	p.GeneratedAt = req.Now.UTC()
	return p, nil
}
