package repositories

import (
	"context"
	"database/sql"
	"errors"

	"bakery_backend/internal/models"
)

// RecipeRepository defines the interface for recipe persistence. Recipe lines keep their order.
type RecipeRepository interface {
	CreateRecipe(ctx context.Context, executor SQLExecutor, recipe *models.Recipe) error
	GetRecipeByID(ctx context.Context, executor SQLExecutor, id string) (*models.Recipe, error)
	GetRecipeForShare(ctx context.Context, executor SQLExecutor, id string) (*models.Recipe, error)
	LockRecipe(ctx context.Context, executor SQLExecutor, id string) error
	GetRecipes(ctx context.Context, executor SQLExecutor) ([]models.Recipe, error)
	UpdateRecipe(ctx context.Context, executor SQLExecutor, recipe *models.Recipe) error
	DeleteRecipe(ctx context.Context, executor SQLExecutor, id string) (int64, error)
	CountRecipesUsingIngredient(ctx context.Context, executor SQLExecutor, ingredientID string) (int, error)
	DeleteAllRecipes(ctx context.Context, executor SQLExecutor) error
}

type recipeRepository struct {
	dialect Dialect
}

// NewRecipeRepository creates a new instance of RecipeRepository.
func NewRecipeRepository(dialect Dialect) RecipeRepository {
	return &recipeRepository{dialect: dialect}
}

func (r *recipeRepository) CreateRecipe(ctx context.Context, executor SQLExecutor, recipe *models.Recipe) error {
	query := `INSERT INTO recipes (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`
	if _, err := executor.ExecContext(ctx, query, recipe.ID, recipe.Name, recipe.CreatedAt, recipe.UpdatedAt); err != nil {
		return wrapDBError(err, "creating recipe %s", recipe.Name)
	}
	return r.insertLines(ctx, executor, recipe)
}

func (r *recipeRepository) insertLines(ctx context.Context, executor SQLExecutor, recipe *models.Recipe) error {
	query := `INSERT INTO recipe_ingredients (recipe_id, position, ingredient_id, quantity) VALUES ($1, $2, $3, $4)`
	for i, line := range recipe.Ingredients {
		if _, err := executor.ExecContext(ctx, query, recipe.ID, i, line.IngredientID, line.Quantity); err != nil {
			return wrapDBError(err, "adding line %d to recipe %s", i, recipe.ID)
		}
	}
	return nil
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, executor SQLExecutor, id string) (*models.Recipe, error) {
	return r.getRecipe(ctx, executor, id, "")
}

// GetRecipeForShare reads a recipe inside a sale transaction. On PostgreSQL the row
// stays share-locked until commit, so a concurrent delete waits for the sale.
func (r *recipeRepository) GetRecipeForShare(ctx context.Context, executor SQLExecutor, id string) (*models.Recipe, error) {
	return r.getRecipe(ctx, executor, id, r.dialect.shareLockClause())
}

// LockRecipe takes the row lock a delete needs before it checks for sales.
func (r *recipeRepository) LockRecipe(ctx context.Context, executor SQLExecutor, id string) error {
	var locked string
	query := `SELECT id FROM recipes WHERE id = $1` + r.dialect.lockClause()
	if err := executor.QueryRowContext(ctx, query, id).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return wrapDBError(err, "locking recipe %s", id)
	}
	return nil
}

func (r *recipeRepository) getRecipe(ctx context.Context, executor SQLExecutor, id, lock string) (*models.Recipe, error) {
	recipe := &models.Recipe{}
	query := `SELECT id, name, created_at, updated_at FROM recipes WHERE id = $1` + lock
	err := executor.QueryRowContext(ctx, query, id).Scan(&recipe.ID, &recipe.Name, &recipe.CreatedAt, &recipe.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapDBError(err, "getting recipe by ID %s", id)
	}
	recipe.CreatedAt = recipe.CreatedAt.UTC()
	recipe.UpdatedAt = recipe.UpdatedAt.UTC()

	lines, err := r.loadLines(ctx, executor, `WHERE recipe_id = $1`, id)
	if err != nil {
		return nil, err
	}
	recipe.Ingredients = lines[id]
	if recipe.Ingredients == nil {
		recipe.Ingredients = []models.RecipeIngredient{}
	}
	return recipe, nil
}

func (r *recipeRepository) GetRecipes(ctx context.Context, executor SQLExecutor) ([]models.Recipe, error) {
	rows, err := executor.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM recipes ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, wrapDBError(err, "listing recipes")
	}
	recipes := []models.Recipe{}
	for rows.Next() {
		var recipe models.Recipe
		if err := rows.Scan(&recipe.ID, &recipe.Name, &recipe.CreatedAt, &recipe.UpdatedAt); err != nil {
			rows.Close()
			return nil, wrapDBError(err, "scanning recipe")
		}
		recipe.CreatedAt = recipe.CreatedAt.UTC()
		recipe.UpdatedAt = recipe.UpdatedAt.UTC()
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrapDBError(err, "iterating recipes")
	}
	// Close before the second query: SQLite runs on a single connection.
	rows.Close()

	lines, err := r.loadLines(ctx, executor, "")
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		recipes[i].Ingredients = lines[recipes[i].ID]
		if recipes[i].Ingredients == nil {
			recipes[i].Ingredients = []models.RecipeIngredient{}
		}
	}
	return recipes, nil
}

func (r *recipeRepository) loadLines(ctx context.Context, executor SQLExecutor, where string, args ...interface{}) (map[string][]models.RecipeIngredient, error) {
	query := `SELECT recipe_id, ingredient_id, quantity FROM recipe_ingredients ` + where + ` ORDER BY recipe_id, position`
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "loading recipe lines")
	}
	defer rows.Close()

	lines := make(map[string][]models.RecipeIngredient)
	for rows.Next() {
		var recipeID string
		var line models.RecipeIngredient
		if err := rows.Scan(&recipeID, &line.IngredientID, &line.Quantity); err != nil {
			return nil, wrapDBError(err, "scanning recipe line")
		}
		lines[recipeID] = append(lines[recipeID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating recipe lines")
	}
	return lines, nil
}

// UpdateRecipe renames the recipe and replaces all of its lines.
func (r *recipeRepository) UpdateRecipe(ctx context.Context, executor SQLExecutor, recipe *models.Recipe) error {
	res, err := executor.ExecContext(ctx, `UPDATE recipes SET name = $1, updated_at = $2 WHERE id = $3`,
		recipe.Name, recipe.UpdatedAt, recipe.ID)
	if err != nil {
		return wrapDBError(err, "updating recipe %s", recipe.ID)
	}
	if err := requireAffected(res, "recipe"); err != nil {
		return err
	}
	if _, err := executor.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, recipe.ID); err != nil {
		return wrapDBError(err, "clearing lines of recipe %s", recipe.ID)
	}
	return r.insertLines(ctx, executor, recipe)
}

func (r *recipeRepository) DeleteRecipe(ctx context.Context, executor SQLExecutor, id string) (int64, error) {
	// Lines go with the recipe through ON DELETE CASCADE; delete them explicitly as well
	// so that the result does not depend on the foreign_keys pragma.
	if _, err := executor.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = $1`, id); err != nil {
		return 0, wrapDBError(err, "deleting lines of recipe %s", id)
	}
	res, err := executor.ExecContext(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return 0, wrapDBError(err, "deleting recipe %s", id)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDBError(err, "getting rows affected for recipe deletion")
	}
	return rowsAffected, nil
}

func (r *recipeRepository) CountRecipesUsingIngredient(ctx context.Context, executor SQLExecutor, ingredientID string) (int, error) {
	var count int
	query := `SELECT COUNT(DISTINCT recipe_id) FROM recipe_ingredients WHERE ingredient_id = $1`
	if err := executor.QueryRowContext(ctx, query, ingredientID).Scan(&count); err != nil {
		return 0, wrapDBError(err, "counting recipes using ingredient %s", ingredientID)
	}
	return count, nil
}

func (r *recipeRepository) DeleteAllRecipes(ctx context.Context, executor SQLExecutor) error {
	if _, err := executor.ExecContext(ctx, `DELETE FROM recipe_ingredients`); err != nil {
		return wrapDBError(err, "clearing recipe lines")
	}
	if _, err := executor.ExecContext(ctx, `DELETE FROM recipes`); err != nil {
		return wrapDBError(err, "clearing recipes")
	}
	return nil
}
