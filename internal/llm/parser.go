package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"bakery_backend/internal/models"
	"bakery_backend/internal/reorder"

	"github.com/shopspring/decimal"
)

// extractJSON returns the outermost {...} span of text. Models like to wrap
// their answer in prose or markdown fences.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("%w: no JSON object found", ErrUnparseable)
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("%w: invalid JSON", ErrUnparseable)
	}
	return candidate, nil
}

// ParsePurchaseList reads {"purchaseList":[...]} from a model answer.
// Lines with a missing name or a quantity that is not a number are skipped.
func ParsePurchaseList(text string) ([]reorder.Suggestion, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		PurchaseList []struct {
			IngredientName string          `json:"ingredientName"`
			Quantity       json.RawMessage `json:"quantity"`
			QuantityToBuy  json.RawMessage `json:"quantityToBuy"`
			Reason         string          `json:"reason"`
		} `json:"purchaseList"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	suggestions := make([]reorder.Suggestion, 0, len(parsed.PurchaseList))
	for _, line := range parsed.PurchaseList {
		if strings.TrimSpace(line.IngredientName) == "" {
			continue
		}
		qtyRaw := line.Quantity
		if len(qtyRaw) == 0 {
			qtyRaw = line.QuantityToBuy
		}
		qty, ok := parseNumber(qtyRaw)
		if !ok {
			continue
		}
		suggestions = append(suggestions, reorder.Suggestion{
			IngredientName: line.IngredientName,
			QuantityToBuy:  qty,
			Reason:         line.Reason,
		})
	}
	return suggestions, nil
}

// ParseDepletion reads the four depletion maps. Each map may arrive as a JSON
// object or as a string holding a JSON object.
func ParseDepletion(text string) (*models.DepletionPrediction, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		IngredientDepletionEstimates  json.RawMessage `json:"ingredientDepletionEstimates"`
		PurchaseList                  json.RawMessage `json:"purchaseList"`
		LowStockIngredients           json.RawMessage `json:"lowStockIngredients"`
		SuggestedIngredientQuantities json.RawMessage `json:"suggestedIngredientQuantities"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	p := &models.DepletionPrediction{
		IngredientDepletionEstimates:  parseNumberMap(parsed.IngredientDepletionEstimates),
		PurchaseList:                  parseNumberMap(parsed.PurchaseList),
		LowStockIngredients:           parseNumberMap(parsed.LowStockIngredients),
		SuggestedIngredientQuantities: parseNumberMap(parsed.SuggestedIngredientQuantities),
		Source:                        models.SourceAI,
	}
	if reorder.Empty(p) {
		return nil, fmt.Errorf("%w: prediction has no values", ErrUnparseable)
	}
	return p, nil
}

func parseNumberMap(raw json.RawMessage) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	if len(raw) == 0 {
		return out
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		inner, err := extractJSON(encoded)
		if err != nil {
			return out
		}
		raw = json.RawMessage(inner)
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return out
	}
	for name, v := range values {
		if n, ok := parseNumber(v); ok {
			out[name] = n
		}
	}
	return out
}

// parseNumber accepts a JSON number or a string holding a number, optionally
// followed by a unit ("1500 g").
func parseNumber(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 {
		return decimal.Decimal{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(fields[0])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
