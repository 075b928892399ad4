package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bakery_backend/internal/events"
	"bakery_backend/internal/models"
	"bakery_backend/internal/repositories"
	"bakery_backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordSaleRequest DTO
type RecordSaleRequest struct {
	RecipeID string           `json:"recipeId" binding:"required"`
	Quantity *decimal.Decimal `json:"quantity" binding:"required"`
}

// SaleService records sales and reads the ledger.
type SaleService interface {
	RecordSale(ctx context.Context, recipeID string, quantity decimal.Decimal) (*models.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*models.Sale, error)
	GetSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, int, error)
}

type saleService struct {
	tx             *repositories.TxRunner
	ingredientRepo repositories.IngredientRepository
	recipeRepo     repositories.RecipeRepository
	saleRepo       repositories.SaleRepository
	publisher      events.Publisher
}

// NewSaleService creates a new instance of SaleService.
func NewSaleService(tx *repositories.TxRunner, ingredientRepo repositories.IngredientRepository, recipeRepo repositories.RecipeRepository, saleRepo repositories.SaleRepository, publisher events.Publisher) SaleService {
	return &saleService{
		tx:             tx,
		ingredientRepo: ingredientRepo,
		recipeRepo:     recipeRepo,
		saleRepo:       saleRepo,
		publisher:      publisher,
	}
}

type requirement struct {
	ingredientID string
	amount       decimal.Decimal
}

// requirements multiplies each recipe line by quantity. Lines naming the same
// ingredient are summed; the result keeps first-appearance order.
func requirements(recipe *models.Recipe, quantity decimal.Decimal) []requirement {
	index := make(map[string]int, len(recipe.Ingredients))
	reqs := make([]requirement, 0, len(recipe.Ingredients))
	for _, line := range recipe.Ingredients {
		amount := line.Quantity.Mul(quantity)
		if i, ok := index[line.IngredientID]; ok {
			reqs[i].amount = reqs[i].amount.Add(amount)
			continue
		}
		index[line.IngredientID] = len(reqs)
		reqs = append(reqs, requirement{ingredientID: line.IngredientID, amount: amount})
	}
	return reqs
}

// RecordSale checks and decrements every ingredient of the recipe and appends the
// sale in one transaction. Either all of it commits or none of it does.
func (s *saleService) RecordSale(ctx context.Context, recipeID string, quantity decimal.Decimal) (*models.Sale, error) {
	if recipeID == "" {
		return nil, validationError("recipeId is required")
	}
	if !quantity.IsPositive() {
		return nil, validationError("sale quantity must be positive")
	}

	var sale *models.Sale
	var touched []string
	err := s.tx.Run(ctx, func(tx *sql.Tx) error {
		recipe, err := s.recipeRepo.GetRecipeForShare(ctx, tx, recipeID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrRecipeNotFound
			}
			return err
		}

		reqs := requirements(recipe, quantity)
		ids := make([]string, len(reqs))
		for i, r := range reqs {
			ids[i] = r.ingredientID
		}

		stock, err := s.ingredientRepo.GetIngredientsForUpdate(ctx, tx, ids)
		if err != nil {
			return err
		}

		var shortages []models.StockShortage
		for _, r := range reqs {
			ing, ok := stock[r.ingredientID]
			if !ok {
				return fmt.Errorf("%w: recipe references missing ingredient %s", ErrIngredientNotFound, r.ingredientID)
			}
			if ing.Stock.LessThan(r.amount) {
				shortages = append(shortages, models.StockShortage{
					IngredientID: ing.ID,
					Name:         ing.Name,
					Required:     r.amount,
					Available:    ing.Stock,
					Unit:         ing.Unit,
				})
			}
		}
		if len(shortages) > 0 {
			return &InsufficientStockError{Shortages: shortages}
		}

		now := nowUTC()
		for _, r := range reqs {
			remaining := stock[r.ingredientID].Stock.Sub(r.amount)
			if err := s.ingredientRepo.SetStock(ctx, tx, r.ingredientID, remaining, now); err != nil {
				return err
			}
		}

		sale = &models.Sale{ID: uuid.NewString(), RecipeID: recipeID, Quantity: quantity, Date: now}
		if err := s.saleRepo.CreateSale(ctx, tx, sale); err != nil {
			return err
		}
		touched = ids
		return nil
	})
	if err != nil {
		var shortage *InsufficientStockError
		if errors.As(err, &shortage) {
			utils.LogInfo("Sale rejected for insufficient stock", map[string]interface{}{
				"recipe_id": recipeID, "quantity": quantity.String(), "shortages": len(shortage.Shortages),
			})
			return nil, err
		}
		return nil, storageError(err, "recording sale")
	}

	s.publisher.Publish(events.Change{Collection: events.CollectionIngredients, Op: events.OpUpdate, IDs: touched})
	s.publisher.Publish(events.Change{Collection: events.CollectionSales, Op: events.OpCreate, IDs: []string{sale.ID}})
	utils.LogInfo("Sale recorded", map[string]interface{}{
		"sale_id": sale.ID, "recipe_id": recipeID, "quantity": quantity.String(), "ingredients": len(touched),
	})
	return sale, nil
}

func (s *saleService) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	sale, err := s.saleRepo.GetSaleByID(ctx, s.tx.DB(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, storageError(err, "retrieving sale")
	}
	return sale, nil
}

func (s *saleService) GetSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, int, error) {
	if filters.From != nil && filters.To != nil && filters.To.Before(*filters.From) {
		return nil, 0, validationError("'to' must not be before 'from'")
	}
	sales, total, err := s.saleRepo.GetSales(ctx, s.tx.DB(), filters)
	if err != nil {
		return nil, 0, storageError(err, "listing sales")
	}
	return sales, total, nil
}
