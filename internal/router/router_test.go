package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bakery_backend/internal/config"
	"bakery_backend/internal/database"
	"bakery_backend/internal/events"
	"bakery_backend/internal/repositories"
	"bakery_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "router-test-secret"

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := database.Open(ctx, database.DriverSQLite, config.SQLiteDSN(filepath.Join(t.TempDir(), "api.db")))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite))
	broker := events.NewBroker()

	tx := repositories.NewTxRunner(db, repositories.SQLite, 3)
	ingredientRepo := repositories.NewIngredientRepository(repositories.SQLite)
	recipeRepo := repositories.NewRecipeRepository(repositories.SQLite)
	saleRepo := repositories.NewSaleRepository()

	authService := services.NewAuthService(repositories.NewAuthRepository(), tx, jwtSecret, time.Hour)
	require.NoError(t, authService.EnsureAdmin(ctx, "admin", "admin-password"))
	_, err = authService.RegisterUser(ctx, services.RegisterUserRequest{Username: "clerk", Password: "clerk-password"})
	require.NoError(t, err)

	reorderService := services.NewReorderService(db, ingredientRepo, recipeRepo, saleRepo, broker, services.ReorderServiceConfig{})
	readiness := events.NewReadiness([]string{events.CollectionIngredients, events.CollectionRecipes, events.CollectionSales}, 5*time.Second)
	reorderService.Start(ctx, readiness)
	t.Cleanup(func() {
		reorderService.Stop()
		broker.Close()
		db.Close()
	})
	require.NoError(t, readiness.Wait(ctx))

	engine := gin.New()
	Setup(engine, Dependencies{
		AuthService:       authService,
		IngredientService: services.NewIngredientService(tx, ingredientRepo, recipeRepo, broker),
		RecipeService:     services.NewRecipeService(tx, recipeRepo, saleRepo, broker, true),
		SaleService:       services.NewSaleService(tx, ingredientRepo, recipeRepo, saleRepo, broker),
		ReorderService:    reorderService,
		DataService:       services.NewDataService(tx, ingredientRepo, recipeRepo, saleRepo, broker, nil),
		Readiness:         readiness,
		JWTSecret:         []byte(jwtSecret),
		CORSOrigins:       []string{"http://localhost:3000"},
	})
	return &api{t: t, engine: engine}
}

func (a *api) login(username, password string) string {
	w := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func (a *api) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())

	w = a.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)
}

func TestAuthRoutes(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/v1/ingredients", "", nil).Code)

	w := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "admin", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	admin := a.login("admin", "admin-password")
	clerk := a.login("clerk", "clerk-password")

	w = a.do(http.MethodGet, "/api/v1/auth/me", clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"clerk"`)
	assert.NotContains(t, w.Body.String(), "password")

	newUser := map[string]string{"username": "baker", "password": "baker-password"}
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/v1/auth/register", clerk, newUser).Code)
	assert.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/v1/auth/register", admin, newUser).Code)
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/api/v1/auth/register", admin, newUser).Code)
}

func TestBakeryWorkflow(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin", "admin-password")
	clerk := a.login("clerk", "clerk-password")

	w := a.do(http.MethodPost, "/api/v1/ingredients", clerk, `{"name":"Flour","stock":5000,"unit":"g","reorderPoint":1000}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var flour struct {
		ID    string  `json:"id"`
		Stock float64 `json:"stock"`
	}
	decodeInto(t, w, &flour)

	w = a.do(http.MethodPost, "/api/v1/ingredients", clerk, `{"name":"Flour","stock":-1,"unit":"g","reorderPoint":1000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(http.MethodPost, "/api/v1/ingredients", clerk, `{"name":"Flour"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/v1/recipes", clerk, map[string]interface{}{
		"name":        "Cake",
		"ingredients": []map[string]interface{}{{"ingredientId": flour.ID, "quantity": 300}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cake struct {
		ID string `json:"id"`
	}
	decodeInto(t, w, &cake)

	sale := map[string]interface{}{"recipeId": cake.ID, "quantity": 10}
	w = a.do(http.MethodPost, "/api/v1/sales", clerk, sale)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/api/v1/ingredients/"+flour.ID, clerk, nil)
	decodeInto(t, w, &flour)
	assert.Equal(t, 2000.0, flour.Stock)

	w = a.do(http.MethodPost, "/api/v1/sales", clerk, sale)
	require.Equal(t, http.StatusConflict, w.Code)
	var rejected struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Shortages []struct {
			Name      string  `json:"name"`
			Required  float64 `json:"required"`
			Available float64 `json:"available"`
		} `json:"shortages"`
	}
	decodeInto(t, w, &rejected)
	assert.Equal(t, "INSUFFICIENT_STOCK", rejected.Error.Code)
	require.Len(t, rejected.Shortages, 1)
	assert.Equal(t, 3000.0, rejected.Shortages[0].Required)
	assert.Equal(t, 2000.0, rejected.Shortages[0].Available)

	w = a.do(http.MethodPost, "/api/v1/sales", clerk, map[string]interface{}{"recipeId": "missing", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/api/v1/sales?page_size=10", clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ledger struct {
		Data  []map[string]interface{} `json:"data"`
		Total int                      `json:"total"`
	}
	decodeInto(t, w, &ledger)
	assert.Equal(t, 1, ledger.Total)
	assert.Len(t, ledger.Data, 1)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/v1/sales?from=soon", clerk, nil).Code)

	// Flour at 2000 is above its reorder point, so nothing to buy yet.
	w = a.do(http.MethodGet, "/api/v1/purchase-list", clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)

	w = a.do(http.MethodPost, "/api/v1/sales", clerk, map[string]interface{}{"recipeId": cake.ID, "quantity": 4})
	require.Equal(t, http.StatusCreated, w.Code)
	w = a.do(http.MethodGet, "/api/v1/purchase-list", clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []struct {
			IngredientName string  `json:"ingredientName"`
			QuantityToBuy  float64 `json:"quantityToBuy"`
		} `json:"items"`
		Source string `json:"source"`
	}
	decodeInto(t, w, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1200.0, list.Items[0].QuantityToBuy)
	assert.Equal(t, "rules", list.Source)

	assert.Eventually(t, func() bool {
		w := a.do(http.MethodGet, "/api/v1/purchase-list/cached", clerk, nil)
		return w.Code == http.StatusOK && strings.Contains(w.Body.String(), `"quantityToBuy":1200`)
	}, 3*time.Second, 20*time.Millisecond)

	// No advisor is configured: ai=true degrades, ai=required fails.
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/purchase-list?ai=true", clerk, nil).Code)
	assert.Equal(t, http.StatusBadGateway, a.do(http.MethodGet, "/api/v1/purchase-list?ai=required", clerk, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/v1/purchase-list?ai=perhaps", clerk, nil).Code)

	w = a.do(http.MethodGet, "/api/v1/stock-prediction", clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"lowStockIngredients":{"Flour":800}`)

	w = a.do(http.MethodPost, "/api/v1/ingredients/"+flour.ID+"/restock", clerk, `{"quantity":1200}`)
	require.Equal(t, http.StatusOK, w.Code)
	decodeInto(t, w, &flour)
	assert.Equal(t, 2000.0, flour.Stock)

	w = a.do(http.MethodGet, "/api/v1/dashboard/summary", clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"salesInWindow":2`)

	// Deletes are admin only and guarded by references.
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodDelete, "/api/v1/ingredients/"+flour.ID, clerk, nil).Code)
	w = a.do(http.MethodDelete, "/api/v1/ingredients/"+flour.ID, admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "REFERENTIAL_INTEGRITY")
	assert.Equal(t, http.StatusConflict, a.do(http.MethodDelete, "/api/v1/recipes/"+cake.ID, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/api/v1/recipes/missing", admin, nil).Code)
}

func TestDataRoutes(t *testing.T) {
	a := newAPI(t)
	admin := a.login("admin", "admin-password")
	clerk := a.login("clerk", "clerk-password")

	seed, err := services.EncodeBundle(services.SeedBundle(time.Now()), services.FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/v1/data/import", clerk, string(seed)).Code)
	w := a.do(http.MethodPost, "/api/v1/data/import", admin, string(seed))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ingredients":6,"recipes":2,"sales":0}`, w.Body.String())

	w = a.do(http.MethodPost, "/api/v1/data/import", admin, `{"ingredients":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/v1/data/export", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bakery-export.json")
	var bundle struct {
		Ingredients []interface{} `json:"ingredients"`
		Recipes     []interface{} `json:"recipes"`
		Sales       []interface{} `json:"sales"`
	}
	decodeInto(t, w, &bundle)
	assert.Len(t, bundle.Ingredients, 6)
	assert.Len(t, bundle.Recipes, 2)
	assert.Empty(t, bundle.Sales)

	w = a.do(http.MethodGet, "/api/v1/data/export?format=yaml", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ingredients:")

	w = a.do(http.MethodPost, "/api/v1/data/backup", admin, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
