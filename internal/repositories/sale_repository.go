package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakery_backend/internal/models"
)

// SaleRepository defines the interface for the append-only sale ledger.
type SaleRepository interface {
	CreateSale(ctx context.Context, executor SQLExecutor, sale *models.Sale) error
	GetSaleByID(ctx context.Context, executor SQLExecutor, id string) (*models.Sale, error)
	GetSales(ctx context.Context, executor SQLExecutor, filters models.SaleFilters) ([]models.Sale, int, error) // sales, total count, error
	GetSalesSince(ctx context.Context, executor SQLExecutor, since time.Time) ([]models.Sale, error)
	GetLatestSale(ctx context.Context, executor SQLExecutor) (*models.Sale, error)
	CountSalesForRecipe(ctx context.Context, executor SQLExecutor, recipeID string) (int, error)
	DeleteAllSales(ctx context.Context, executor SQLExecutor) error
}

type saleRepository struct{}

// NewSaleRepository creates a new instance of SaleRepository.
func NewSaleRepository() SaleRepository {
	return &saleRepository{}
}

const saleColumns = `id, recipe_id, quantity, sale_date`

func scanSale(row scanner, extra ...interface{}) (*models.Sale, error) {
	sale := &models.Sale{}
	dest := append([]interface{}{&sale.ID, &sale.RecipeID, &sale.Quantity, &sale.Date}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	sale.Date = sale.Date.UTC()
	return sale, nil
}

func (r *saleRepository) CreateSale(ctx context.Context, executor SQLExecutor, sale *models.Sale) error {
	query := `INSERT INTO sales (` + saleColumns + `) VALUES ($1, $2, $3, $4)`
	if _, err := executor.ExecContext(ctx, query, sale.ID, sale.RecipeID, sale.Quantity, sale.Date); err != nil {
		return wrapDBError(err, "creating sale for recipe %s", sale.RecipeID)
	}
	return nil
}

func (r *saleRepository) GetSaleByID(ctx context.Context, executor SQLExecutor, id string) (*models.Sale, error) {
	sale, err := scanSale(executor.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapDBError(err, "getting sale by ID %s", id)
	}
	return sale, nil
}

func (r *saleRepository) GetSales(ctx context.Context, executor SQLExecutor, filters models.SaleFilters) ([]models.Sale, int, error) {
	sales := []models.Sale{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + saleColumns + `, COUNT(*) OVER() AS total_count FROM sales`)

	var conditions []string
	var args []interface{}
	argCounter := 1

	if filters.RecipeID != nil && *filters.RecipeID != "" {
		conditions = append(conditions, fmt.Sprintf("recipe_id = $%d", argCounter))
		args = append(args, *filters.RecipeID)
		argCounter++
	}
	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("sale_date >= $%d", argCounter))
		args = append(args, filters.From.UTC())
		argCounter++
	}
	if filters.To != nil {
		conditions = append(conditions, fmt.Sprintf("sale_date < $%d", argCounter))
		args = append(args, filters.To.UTC())
		argCounter++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY sale_date DESC, id DESC")

	if filters.PageSize > 0 {
		page := filters.Page
		if page < 1 {
			page = 1
		}
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1))
		args = append(args, filters.PageSize, (page-1)*filters.PageSize)
	}

	rows, err := executor.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, wrapDBError(err, "listing sales")
	}
	defer rows.Close()

	for rows.Next() {
		sale, err := scanSale(rows, &totalCount)
		if err != nil {
			return nil, 0, wrapDBError(err, "scanning sale")
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapDBError(err, "iterating sales")
	}
	return sales, totalCount, nil
}

func (r *saleRepository) GetSalesSince(ctx context.Context, executor SQLExecutor, since time.Time) ([]models.Sale, error) {
	rows, err := executor.QueryContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE sale_date >= $1 ORDER BY sale_date ASC, id ASC`, since.UTC())
	if err != nil {
		return nil, wrapDBError(err, "listing sales since %s", since.Format(time.RFC3339))
	}
	defer rows.Close()

	sales := []models.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, wrapDBError(err, "scanning sale")
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating sales")
	}
	return sales, nil
}

func (r *saleRepository) GetLatestSale(ctx context.Context, executor SQLExecutor) (*models.Sale, error) {
	sale, err := scanSale(executor.QueryRowContext(ctx,
		`SELECT `+saleColumns+` FROM sales ORDER BY sale_date DESC, id DESC LIMIT 1`))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, wrapDBError(err, "getting latest sale")
	}
	return sale, nil
}

func (r *saleRepository) CountSalesForRecipe(ctx context.Context, executor SQLExecutor, recipeID string) (int, error) {
	var count int
	if err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales WHERE recipe_id = $1`, recipeID).Scan(&count); err != nil {
		return 0, wrapDBError(err, "counting sales for recipe %s", recipeID)
	}
	return count, nil
}

func (r *saleRepository) DeleteAllSales(ctx context.Context, executor SQLExecutor) error {
	if _, err := executor.ExecContext(ctx, `DELETE FROM sales`); err != nil {
		return wrapDBError(err, "clearing sales")
	}
	return nil
}
