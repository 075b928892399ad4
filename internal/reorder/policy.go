// Package reorder turns ingredient stock into restock recommendations.
// Everything here is pure: callers load state and pass it in.
package reorder

import (
	"fmt"
	"sort"

	"bakery_backend/internal/models"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// ComputePurchaseList selects every ingredient whose stock is at or below its
// reorder point and proposes buying back up to twice the reorder point.
// Items come out in name order.
func ComputePurchaseList(ingredients []models.Ingredient) []models.PurchaseListItem {
	items := []models.PurchaseListItem{}
	for _, ing := range ingredients {
		if !ing.NeedsReorder() {
			continue
		}
		items = append(items, models.PurchaseListItem{
			IngredientID:   ing.ID,
			IngredientName: ing.Name,
			QuantityToBuy:  QuantityToBuy(ing),
			Reason:         Reason(ing),
			Unit:           ing.Unit,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IngredientName != items[j].IngredientName {
			return items[i].IngredientName < items[j].IngredientName
		}
		return items[i].IngredientID < items[j].IngredientID
	})
	return items
}

// QuantityToBuy is max(0, 2*reorderPoint - stock) rounded half away from zero to a whole unit.
func QuantityToBuy(ing models.Ingredient) decimal.Decimal {
	qty := ing.ReorderPoint.Mul(two).Sub(ing.Stock)
	if qty.IsNegative() {
		return decimal.Zero
	}
	return qty.Round(0)
}

// Reason explains why an ingredient is on the list.
func Reason(ing models.Ingredient) string {
	return fmt.Sprintf("Stock %s %s is at or below the reorder point of %s %s",
		ing.Stock.String(), ing.Unit, ing.ReorderPoint.String(), ing.Unit)
}
