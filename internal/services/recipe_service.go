package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"bakery_backend/internal/events"
	"bakery_backend/internal/models"
	"bakery_backend/internal/repositories"
	"bakery_backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecipeLineRequest DTO
type RecipeLineRequest struct {
	IngredientID string           `json:"ingredientId" binding:"required"`
	Quantity     *decimal.Decimal `json:"quantity" binding:"required"`
}

// RecipeRequest DTO, used for both create and full update.
type RecipeRequest struct {
	Name        string              `json:"name" binding:"required"`
	Ingredients []RecipeLineRequest `json:"ingredients" binding:"required,dive"`
}

// RecipeService manages recipes and their ingredient lines.
type RecipeService interface {
	CreateRecipe(ctx context.Context, req RecipeRequest) (*models.Recipe, error)
	GetRecipeByID(ctx context.Context, id string) (*models.Recipe, error)
	GetRecipes(ctx context.Context) ([]models.Recipe, error)
	UpdateRecipe(ctx context.Context, id string, req RecipeRequest) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
}

type recipeService struct {
	tx          *repositories.TxRunner
	recipeRepo  repositories.RecipeRepository
	saleRepo    repositories.SaleRepository
	publisher   events.Publisher
	deleteGuard bool
}

// NewRecipeService creates a new instance of RecipeService. With deleteGuard set,
// recipes that appear in the sale ledger cannot be deleted.
func NewRecipeService(tx *repositories.TxRunner, recipeRepo repositories.RecipeRepository, saleRepo repositories.SaleRepository, publisher events.Publisher, deleteGuard bool) RecipeService {
	return &recipeService{tx: tx, recipeRepo: recipeRepo, saleRepo: saleRepo, publisher: publisher, deleteGuard: deleteGuard}
}

func recipeLines(req RecipeRequest) ([]models.RecipeIngredient, error) {
	if len(req.Ingredients) == 0 {
		return nil, validationError("a recipe needs at least one ingredient")
	}
	lines := make([]models.RecipeIngredient, 0, len(req.Ingredients))
	for i, line := range req.Ingredients {
		id := strings.TrimSpace(line.IngredientID)
		if id == "" {
			return nil, validationError("line %d: ingredientId is required", i+1)
		}
		if line.Quantity == nil || !line.Quantity.IsPositive() {
			return nil, validationError("line %d: quantity must be positive", i+1)
		}
		lines = append(lines, models.RecipeIngredient{IngredientID: id, Quantity: *line.Quantity})
	}
	return lines, nil
}

func (s *recipeService) CreateRecipe(ctx context.Context, req RecipeRequest) (*models.Recipe, error) {
	name := utils.NormalizeName(req.Name)
	if name == "" {
		return nil, validationError("recipe name is required")
	}
	lines, err := recipeLines(req)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	recipe := &models.Recipe{ID: uuid.NewString(), Name: name, Ingredients: lines, CreatedAt: now, UpdatedAt: now}
	err = s.tx.Run(ctx, func(tx *sql.Tx) error {
		return s.recipeRepo.CreateRecipe(ctx, tx, recipe)
	})
	if err != nil {
		return nil, storageError(err, "creating recipe")
	}
	s.publish(events.OpCreate, recipe.ID)
	utils.LogInfo("Recipe created", map[string]interface{}{"recipe_id": recipe.ID, "name": recipe.Name, "lines": len(lines)})
	return recipe, nil
}

func (s *recipeService) GetRecipeByID(ctx context.Context, id string) (*models.Recipe, error) {
	recipe, err := s.recipeRepo.GetRecipeByID(ctx, s.tx.DB(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, storageError(err, "retrieving recipe")
	}
	return recipe, nil
}

func (s *recipeService) GetRecipes(ctx context.Context) ([]models.Recipe, error) {
	recipes, err := s.recipeRepo.GetRecipes(ctx, s.tx.DB())
	if err != nil {
		return nil, storageError(err, "listing recipes")
	}
	return recipes, nil
}

func (s *recipeService) UpdateRecipe(ctx context.Context, id string, req RecipeRequest) (*models.Recipe, error) {
	name := utils.NormalizeName(req.Name)
	if name == "" {
		return nil, validationError("recipe name is required")
	}
	lines, err := recipeLines(req)
	if err != nil {
		return nil, err
	}

	var updated *models.Recipe
	err = s.tx.Run(ctx, func(tx *sql.Tx) error {
		recipe, err := s.recipeRepo.GetRecipeByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrRecipeNotFound
			}
			return err
		}
		recipe.Name = name
		recipe.Ingredients = lines
		recipe.UpdatedAt = nowUTC()
		if err := s.recipeRepo.UpdateRecipe(ctx, tx, recipe); err != nil {
			return err
		}
		updated = recipe
		return nil
	})
	if err != nil {
		return nil, storageError(err, "updating recipe")
	}
	s.publish(events.OpUpdate, id)
	return updated, nil
}

func (s *recipeService) DeleteRecipe(ctx context.Context, id string) error {
	err := s.tx.Run(ctx, func(tx *sql.Tx) error {
		// Locked first so a sale still holding the recipe finishes before the count.
		if err := s.recipeRepo.LockRecipe(ctx, tx, id); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrRecipeNotFound
			}
			return err
		}
		if s.deleteGuard {
			count, err := s.saleRepo.CountSalesForRecipe(ctx, tx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return referencedError("recipe has %d recorded sale(s)", count)
			}
		}
		rowsAffected, err := s.recipeRepo.DeleteRecipe(ctx, tx, id)
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return ErrRecipeNotFound
		}
		return nil
	})
	if err != nil {
		return storageError(err, "deleting recipe")
	}
	s.publish(events.OpDelete, id)
	utils.LogInfo("Recipe deleted", map[string]interface{}{"recipe_id": id})
	return nil
}

func (s *recipeService) publish(op string, ids ...string) {
	s.publisher.Publish(events.Change{Collection: events.CollectionRecipes, Op: op, IDs: ids})
}
