package services

import (
	"context"
	"database/sql"
	"errors"

	"bakery_backend/internal/events"
	"bakery_backend/internal/models"
	"bakery_backend/internal/repositories"
	"bakery_backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Data Transfer Objects (DTOs) ---

// CreateIngredientRequest DTO
type CreateIngredientRequest struct {
	Name         string           `json:"name" binding:"required"`
	Stock        *decimal.Decimal `json:"stock" binding:"required"`
	Unit         string           `json:"unit" binding:"required"`
	ReorderPoint *decimal.Decimal `json:"reorderPoint" binding:"required"`
}

// UpdateIngredientRequest DTO. Nil fields are left unchanged.
type UpdateIngredientRequest struct {
	Name         *string          `json:"name"`
	Stock        *decimal.Decimal `json:"stock"`
	Unit         *string          `json:"unit"`
	ReorderPoint *decimal.Decimal `json:"reorderPoint"`
}

// RestockRequest DTO
type RestockRequest struct {
	Quantity *decimal.Decimal `json:"quantity" binding:"required"`
}

// IngredientService manages the ingredient inventory.
type IngredientService interface {
	CreateIngredient(ctx context.Context, req CreateIngredientRequest) (*models.Ingredient, error)
	GetIngredientByID(ctx context.Context, id string) (*models.Ingredient, error)
	GetIngredients(ctx context.Context) ([]models.Ingredient, error)
	UpdateIngredient(ctx context.Context, id string, req UpdateIngredientRequest) (*models.Ingredient, error)
	Restock(ctx context.Context, id string, quantity decimal.Decimal) (*models.Ingredient, error)
	DeleteIngredient(ctx context.Context, id string) error
}

type ingredientService struct {
	tx             *repositories.TxRunner
	ingredientRepo repositories.IngredientRepository
	recipeRepo     repositories.RecipeRepository
	publisher      events.Publisher
}

// NewIngredientService creates a new instance of IngredientService.
func NewIngredientService(tx *repositories.TxRunner, ingredientRepo repositories.IngredientRepository, recipeRepo repositories.RecipeRepository, publisher events.Publisher) IngredientService {
	return &ingredientService{tx: tx, ingredientRepo: ingredientRepo, recipeRepo: recipeRepo, publisher: publisher}
}

func validateIngredient(ing *models.Ingredient) error {
	if ing.Name == "" {
		return validationError("ingredient name is required")
	}
	if ing.Unit == "" {
		return validationError("unit is required for ingredient %q", ing.Name)
	}
	if ing.Stock.IsNegative() {
		return validationError("stock of %q must not be negative", ing.Name)
	}
	if ing.ReorderPoint.IsNegative() {
		return validationError("reorder point of %q must not be negative", ing.Name)
	}
	return nil
}

func (s *ingredientService) CreateIngredient(ctx context.Context, req CreateIngredientRequest) (*models.Ingredient, error) {
	if req.Stock == nil || req.ReorderPoint == nil {
		return nil, validationError("stock and reorderPoint are required")
	}
	now := nowUTC()
	ing := &models.Ingredient{
		ID:           uuid.NewString(),
		Name:         utils.NormalizeName(req.Name),
		Stock:        *req.Stock,
		Unit:         utils.NormalizeName(req.Unit),
		ReorderPoint: *req.ReorderPoint,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := validateIngredient(ing); err != nil {
		return nil, err
	}

	if err := s.ingredientRepo.CreateIngredient(ctx, s.tx.DB(), ing); err != nil {
		return nil, storageError(err, "creating ingredient")
	}
	s.publish(events.OpCreate, ing.ID)
	utils.LogInfo("Ingredient created", map[string]interface{}{"ingredient_id": ing.ID, "name": ing.Name})
	return ing, nil
}

func (s *ingredientService) GetIngredientByID(ctx context.Context, id string) (*models.Ingredient, error) {
	ing, err := s.ingredientRepo.GetIngredientByID(ctx, s.tx.DB(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrIngredientNotFound
		}
		return nil, storageError(err, "retrieving ingredient")
	}
	return ing, nil
}

func (s *ingredientService) GetIngredients(ctx context.Context) ([]models.Ingredient, error) {
	ingredients, err := s.ingredientRepo.GetIngredients(ctx, s.tx.DB())
	if err != nil {
		return nil, storageError(err, "listing ingredients")
	}
	return ingredients, nil
}

// UpdateIngredient writes every column back, so the row is read under the lock a sale takes.
func (s *ingredientService) UpdateIngredient(ctx context.Context, id string, req UpdateIngredientRequest) (*models.Ingredient, error) {
	var updated *models.Ingredient
	err := s.tx.Run(ctx, func(tx *sql.Tx) error {
		locked, err := s.ingredientRepo.GetIngredientsForUpdate(ctx, tx, []string{id})
		if err != nil {
			return err
		}
		current, ok := locked[id]
		if !ok {
			return ErrIngredientNotFound
		}
		ing := &current
		if req.Name != nil {
			ing.Name = utils.NormalizeName(*req.Name)
		}
		if req.Unit != nil {
			ing.Unit = utils.NormalizeName(*req.Unit)
		}
		if req.Stock != nil {
			ing.Stock = *req.Stock
		}
		if req.ReorderPoint != nil {
			ing.ReorderPoint = *req.ReorderPoint
		}
		if err := validateIngredient(ing); err != nil {
			return err
		}
		ing.UpdatedAt = nowUTC()
		if err := s.ingredientRepo.UpdateIngredient(ctx, tx, ing); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrIngredientNotFound
			}
			return err
		}
		updated = ing
		return nil
	})
	if err != nil {
		return nil, storageError(err, "updating ingredient")
	}
	s.publish(events.OpUpdate, id)
	return updated, nil
}

// Restock adds quantity to the stock under a row lock so it cannot interleave with a sale.
func (s *ingredientService) Restock(ctx context.Context, id string, quantity decimal.Decimal) (*models.Ingredient, error) {
	if !quantity.IsPositive() {
		return nil, validationError("restock quantity must be positive")
	}

	var restocked models.Ingredient
	err := s.tx.Run(ctx, func(tx *sql.Tx) error {
		locked, err := s.ingredientRepo.GetIngredientsForUpdate(ctx, tx, []string{id})
		if err != nil {
			return err
		}
		ing, ok := locked[id]
		if !ok {
			return ErrIngredientNotFound
		}
		ing.Stock = ing.Stock.Add(quantity)
		ing.UpdatedAt = nowUTC()
		if err := s.ingredientRepo.SetStock(ctx, tx, id, ing.Stock, ing.UpdatedAt); err != nil {
			return err
		}
		restocked = ing
		return nil
	})
	if err != nil {
		return nil, storageError(err, "restocking ingredient")
	}
	s.publish(events.OpUpdate, id)
	utils.LogInfo("Ingredient restocked", map[string]interface{}{
		"ingredient_id": id, "added": quantity.String(), "stock": restocked.Stock.String(),
	})
	return &restocked, nil
}

// DeleteIngredient refuses to delete an ingredient any recipe still uses.
func (s *ingredientService) DeleteIngredient(ctx context.Context, id string) error {
	err := s.tx.Run(ctx, func(tx *sql.Tx) error {
		count, err := s.recipeRepo.CountRecipesUsingIngredient(ctx, tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return referencedError("ingredient is used by %d recipe(s)", count)
		}
		rowsAffected, err := s.ingredientRepo.DeleteIngredient(ctx, tx, id)
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return ErrIngredientNotFound
		}
		return nil
	})
	if err != nil {
		return storageError(err, "deleting ingredient")
	}
	s.publish(events.OpDelete, id)
	utils.LogInfo("Ingredient deleted", map[string]interface{}{"ingredient_id": id})
	return nil
}

func (s *ingredientService) publish(op string, ids ...string) {
	s.publisher.Publish(events.Change{Collection: events.CollectionIngredients, Op: op, IDs: ids})
}
