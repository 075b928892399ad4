package llm

import (
	"fmt"
	"strings"
)

// PurchaseLine is one ingredient as shown to the model.
type PurchaseLine struct {
	Name         string
	Stock        string
	Unit         string
	DailyUsage   string
	ReorderPoint string
}

// BuildPurchaseListPrompt asks for a purchase list over the given ingredients.
func BuildPurchaseListPrompt(lines []PurchaseLine, salesJSON string, windowDays int) string {
	var sb strings.Builder
	sb.WriteString(`You are a purchasing assistant for a bakery. Based on the current stock levels,
daily depletion rates and reorder points of the following ingredients, generate a purchase list.

Rules:
- Order enough to bring stock up to a reasonable level above the reorder point.
- Do not recommend ingredients that are above their reorder point.
- Quantities are plain non-negative numbers in the ingredient's unit.
- Output MUST be valid JSON and contain ONLY JSON. No markdown, no comments.

Required JSON schema:
{
  "purchaseList": [
    {"ingredientName": "string", "quantity": number, "reason": "string"}
  ]
}

`)
	fmt.Fprintf(&sb, "Units sold per recipe over the last %d days: %s\n\nIngredients:\n", windowDays, salesJSON)
	for _, l := range lines {
		fmt.Fprintf(&sb, "- Name: %s, Stock: %s %s, Depletion Rate: %s %s/day, Reorder Point: %s %s\n",
			l.Name, l.Stock, l.Unit, l.DailyUsage, l.Unit, l.ReorderPoint, l.Unit)
	}
	return sb.String()
}

// BuildDepletionPrompt asks for the four depletion maps. Inputs are JSON documents.
func BuildDepletionPrompt(salesJSON, recipesJSON, stockJSON string, windowDays int) string {
	return fmt.Sprintf(`You are an assistant helping a bakery manage its stock levels.
Analyze the sales data (units sold per recipe over the last %d days), the recipes and
the current stock to predict when ingredients will run out.

Sales Data: %s
Recipes: %s
Current Stock: %s

Answer with a single JSON object with exactly these keys. Each value is an object
whose keys are ingredient names and whose values are numbers:
1. ingredientDepletionEstimates: days until each ingredient runs out.
2. purchaseList: amount of each ingredient to purchase.
3. lowStockIngredients: amount remaining of each ingredient that is running low.
4. suggestedIngredientQuantities: suggested amounts to keep for the next %d days.

Output MUST be valid JSON and contain ONLY JSON.`, windowDays, salesJSON, recipesJSON, stockJSON, 7)
}
