package services

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"bakery_backend/internal/config"
	"bakery_backend/internal/database"
	"bakery_backend/internal/events"
	"bakery_backend/internal/models"
	"bakery_backend/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db          *sql.DB
	broker      *events.Broker
	tx          *repositories.TxRunner
	ingredients IngredientService
	recipes     RecipeService
	sales       SaleService
	ingRepo     repositories.IngredientRepository
	recipeRepo  repositories.RecipeRepository
	saleRepo    repositories.SaleRepository
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithGuard(t, true)
}

func newTestEnvWithGuard(t *testing.T, recipeDeleteGuard bool) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverSQLite, config.SQLiteDSN(filepath.Join(t.TempDir(), "bakery.db")))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite))
	return buildTestEnv(t, db, repositories.SQLite, recipeDeleteGuard)
}

// newPostgresTestEnv runs against the PostgreSQL database named by
// BAKERY_TEST_POSTGRES_DSN and skips the test when it is unset. The tables are emptied first.
func newPostgresTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := os.Getenv("BAKERY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BAKERY_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverPostgres, dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db, database.DriverPostgres))

	env := buildTestEnv(t, db, repositories.Postgres, true)
	require.NoError(t, env.saleRepo.DeleteAllSales(ctx, db))
	require.NoError(t, env.recipeRepo.DeleteAllRecipes(ctx, db))
	require.NoError(t, env.ingRepo.DeleteAllIngredients(ctx, db))
	return env
}

func buildTestEnv(t *testing.T, db *sql.DB, dialect repositories.Dialect, recipeDeleteGuard bool) *testEnv {
	broker := events.NewBroker()
	t.Cleanup(func() {
		broker.Close()
		db.Close()
	})

	tx := repositories.NewTxRunner(db, dialect, 3)
	ingRepo := repositories.NewIngredientRepository(dialect)
	recipeRepo := repositories.NewRecipeRepository(dialect)
	saleRepo := repositories.NewSaleRepository()

	return &testEnv{
		db:          db,
		broker:      broker,
		tx:          tx,
		ingredients: NewIngredientService(tx, ingRepo, recipeRepo, broker),
		recipes:     NewRecipeService(tx, recipeRepo, saleRepo, broker, recipeDeleteGuard),
		sales:       NewSaleService(tx, ingRepo, recipeRepo, saleRepo, broker),
		ingRepo:     ingRepo,
		recipeRepo:  recipeRepo,
		saleRepo:    saleRepo,
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func (e *testEnv) addIngredient(t *testing.T, name, stock, reorderPoint, unit string) *models.Ingredient {
	t.Helper()
	ing, err := e.ingredients.CreateIngredient(context.Background(), CreateIngredientRequest{
		Name: name, Stock: dp(stock), Unit: unit, ReorderPoint: dp(reorderPoint),
	})
	require.NoError(t, err)
	return ing
}

func (e *testEnv) addRecipe(t *testing.T, name string, lines ...RecipeLineRequest) *models.Recipe {
	t.Helper()
	recipe, err := e.recipes.CreateRecipe(context.Background(), RecipeRequest{Name: name, Ingredients: lines})
	require.NoError(t, err)
	return recipe
}

func line(ingredientID, qty string) RecipeLineRequest {
	return RecipeLineRequest{IngredientID: ingredientID, Quantity: dp(qty)}
}

func (e *testEnv) stockOf(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	ing, err := e.ingredients.GetIngredientByID(context.Background(), id)
	require.NoError(t, err)
	return ing.Stock
}

func (e *testEnv) saleCount(t *testing.T) int {
	t.Helper()
	_, total, err := e.sales.GetSales(context.Background(), models.SaleFilters{})
	require.NoError(t, err)
	return total
}

// recordingIngredientRepo notes how ingredient rows were read.
type recordingIngredientRepo struct {
	repositories.IngredientRepository
	mu         sync.Mutex
	locked     []string
	plainReads int
}

func (r *recordingIngredientRepo) GetIngredientByID(ctx context.Context, executor repositories.SQLExecutor, id string) (*models.Ingredient, error) {
	r.mu.Lock()
	r.plainReads++
	r.mu.Unlock()
	return r.IngredientRepository.GetIngredientByID(ctx, executor, id)
}

func (r *recordingIngredientRepo) GetIngredientsForUpdate(ctx context.Context, executor repositories.SQLExecutor, ids []string) (map[string]models.Ingredient, error) {
	r.mu.Lock()
	r.locked = append(r.locked, ids...)
	r.mu.Unlock()
	return r.IngredientRepository.GetIngredientsForUpdate(ctx, executor, ids)
}

// recordingRecipeRepo notes which recipe reads and locks were taken.
type recordingRecipeRepo struct {
	repositories.RecipeRepository
	mu    sync.Mutex
	calls []string
}

func (r *recordingRecipeRepo) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recordingRecipeRepo) GetRecipeByID(ctx context.Context, executor repositories.SQLExecutor, id string) (*models.Recipe, error) {
	r.record("get")
	return r.RecipeRepository.GetRecipeByID(ctx, executor, id)
}

func (r *recordingRecipeRepo) GetRecipeForShare(ctx context.Context, executor repositories.SQLExecutor, id string) (*models.Recipe, error) {
	r.record("share")
	return r.RecipeRepository.GetRecipeForShare(ctx, executor, id)
}

func (r *recordingRecipeRepo) LockRecipe(ctx context.Context, executor repositories.SQLExecutor, id string) error {
	r.record("lock")
	return r.RecipeRepository.LockRecipe(ctx, executor, id)
}
