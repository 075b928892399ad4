package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bakery_backend/internal/models"

	"github.com/shopspring/decimal"
)

// IngredientRepository defines the interface for ingredient persistence.
type IngredientRepository interface {
	CreateIngredient(ctx context.Context, executor SQLExecutor, ingredient *models.Ingredient) error
	GetIngredientByID(ctx context.Context, executor SQLExecutor, id string) (*models.Ingredient, error)
	GetIngredients(ctx context.Context, executor SQLExecutor) ([]models.Ingredient, error)
	// GetIngredientsForUpdate reads and locks the given rows in id order. Missing ids are simply absent from the result.
	GetIngredientsForUpdate(ctx context.Context, executor SQLExecutor, ids []string) (map[string]models.Ingredient, error)
	UpdateIngredient(ctx context.Context, executor SQLExecutor, ingredient *models.Ingredient) error
	SetStock(ctx context.Context, executor SQLExecutor, id string, stock decimal.Decimal, updatedAt time.Time) error
	DeleteIngredient(ctx context.Context, executor SQLExecutor, id string) (int64, error)
	DeleteAllIngredients(ctx context.Context, executor SQLExecutor) error
}

type ingredientRepository struct {
	dialect Dialect
}

// NewIngredientRepository creates a new instance of IngredientRepository.
func NewIngredientRepository(dialect Dialect) IngredientRepository {
	return &ingredientRepository{dialect: dialect}
}

const ingredientColumns = `id, name, stock, unit, reorder_point, created_at, updated_at`

func scanIngredient(row scanner) (*models.Ingredient, error) {
	ing := &models.Ingredient{}
	err := row.Scan(&ing.ID, &ing.Name, &ing.Stock, &ing.Unit, &ing.ReorderPoint, &ing.CreatedAt, &ing.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ing.CreatedAt = ing.CreatedAt.UTC()
	ing.UpdatedAt = ing.UpdatedAt.UTC()
	return ing, nil
}

func (r *ingredientRepository) CreateIngredient(ctx context.Context, executor SQLExecutor, ing *models.Ingredient) error {
	query := `INSERT INTO ingredients (` + ingredientColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := executor.ExecContext(ctx, query,
		ing.ID, ing.Name, ing.Stock, ing.Unit, ing.ReorderPoint, ing.CreatedAt, ing.UpdatedAt)
	if err != nil {
		return wrapDBError(err, "creating ingredient %s", ing.Name)
	}
	return nil
}

func (r *ingredientRepository) GetIngredientByID(ctx context.Context, executor SQLExecutor, id string) (*models.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1`
	ing, err := scanIngredient(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapDBError(err, "getting ingredient by ID %s", id)
	}
	return ing, nil
}

func (r *ingredientRepository) GetIngredients(ctx context.Context, executor SQLExecutor) ([]models.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients ORDER BY name ASC, id ASC`
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapDBError(err, "listing ingredients")
	}
	defer rows.Close()

	ingredients := []models.Ingredient{}
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, wrapDBError(err, "scanning ingredient")
		}
		ingredients = append(ingredients, *ing)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating ingredients")
	}
	return ingredients, nil
}

func (r *ingredientRepository) GetIngredientsForUpdate(ctx context.Context, executor SQLExecutor, ids []string) (map[string]models.Ingredient, error) {
	result := make(map[string]models.Ingredient, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	// Locking in id order keeps concurrent sales from deadlocking on each other.
	query := `SELECT ` + ingredientColumns + ` FROM ingredients
	          WHERE id IN (` + placeholders(1, len(ids)) + `)
	          ORDER BY id` + r.dialect.lockClause()

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError(err, "locking ingredients")
	}
	defer rows.Close()

	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, wrapDBError(err, "scanning locked ingredient")
		}
		result[ing.ID] = *ing
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating locked ingredients")
	}
	return result, nil
}

func (r *ingredientRepository) UpdateIngredient(ctx context.Context, executor SQLExecutor, ing *models.Ingredient) error {
	query := `UPDATE ingredients
	          SET name = $1, stock = $2, unit = $3, reorder_point = $4, updated_at = $5
	          WHERE id = $6`
	res, err := executor.ExecContext(ctx, query,
		ing.Name, ing.Stock, ing.Unit, ing.ReorderPoint, ing.UpdatedAt, ing.ID)
	if err != nil {
		return wrapDBError(err, "updating ingredient %s", ing.ID)
	}
	return requireAffected(res, "ingredient")
}

func (r *ingredientRepository) SetStock(ctx context.Context, executor SQLExecutor, id string, stock decimal.Decimal, updatedAt time.Time) error {
	query := `UPDATE ingredients SET stock = $1, updated_at = $2 WHERE id = $3`
	res, err := executor.ExecContext(ctx, query, stock, updatedAt, id)
	if err != nil {
		return wrapDBError(err, "setting stock of ingredient %s", id)
	}
	return requireAffected(res, "ingredient")
}

func (r *ingredientRepository) DeleteIngredient(ctx context.Context, executor SQLExecutor, id string) (int64, error) {
	res, err := executor.ExecContext(ctx, `DELETE FROM ingredients WHERE id = $1`, id)
	if err != nil {
		return 0, wrapDBError(err, "deleting ingredient %s", id)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDBError(err, "getting rows affected for ingredient deletion")
	}
	return rowsAffected, nil
}

func (r *ingredientRepository) DeleteAllIngredients(ctx context.Context, executor SQLExecutor) error {
	if _, err := executor.ExecContext(ctx, `DELETE FROM ingredients`); err != nil {
		return wrapDBError(err, "clearing ingredients")
	}
	return nil
}

func requireAffected(res sql.Result, entity string) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return wrapDBError(err, "getting rows affected for %s", entity)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
