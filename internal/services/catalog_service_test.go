package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredientLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	flour := env.addIngredient(t, "  Flour   Type 0 ", "5000", "1000", "g")
	assert.Equal(t, "Flour Type 0", flour.Name)
	assert.NotEmpty(t, flour.ID)

	name := "Flour"
	rp := dp("1500")
	updated, err := env.ingredients.UpdateIngredient(ctx, flour.ID, UpdateIngredientRequest{Name: &name, ReorderPoint: rp})
	require.NoError(t, err)
	assert.Equal(t, "Flour", updated.Name)
	assert.True(t, updated.ReorderPoint.Equal(d("1500")))
	assert.True(t, updated.Stock.Equal(d("5000")))

	restocked, err := env.ingredients.Restock(ctx, flour.ID, d("250.5"))
	require.NoError(t, err)
	assert.True(t, restocked.Stock.Equal(d("5250.5")))
	assert.True(t, env.stockOf(t, flour.ID).Equal(d("5250.5")))

	list, err := env.ingredients.GetIngredients(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, env.ingredients.DeleteIngredient(ctx, flour.ID))
	_, err = env.ingredients.GetIngredientByID(ctx, flour.ID)
	assert.ErrorIs(t, err, ErrIngredientNotFound)
	assert.ErrorIs(t, env.ingredients.DeleteIngredient(ctx, flour.ID), ErrNotFound)
}

func TestIngredientValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cases := []CreateIngredientRequest{
		{Name: "", Stock: dp("1"), Unit: "g", ReorderPoint: dp("1")},
		{Name: "Flour", Stock: dp("1"), Unit: "", ReorderPoint: dp("1")},
		{Name: "Flour", Stock: dp("-1"), Unit: "g", ReorderPoint: dp("1")},
		{Name: "Flour", Stock: dp("1"), Unit: "g", ReorderPoint: dp("-0.5")},
		{Name: "Flour", Unit: "g", ReorderPoint: dp("1")},
	}
	for _, req := range cases {
		_, err := env.ingredients.CreateIngredient(ctx, req)
		assert.ErrorIs(t, err, ErrValidation, "request %+v", req)
	}

	flour := env.addIngredient(t, "Flour", "10", "1", "g")
	negative := dp("-3")
	_, err := env.ingredients.UpdateIngredient(ctx, flour.ID, UpdateIngredientRequest{Stock: negative})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.ingredients.UpdateIngredient(ctx, "missing", UpdateIngredientRequest{Stock: dp("1")})
	assert.ErrorIs(t, err, ErrIngredientNotFound)

	_, err = env.ingredients.Restock(ctx, flour.ID, d("0"))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.ingredients.Restock(ctx, "missing", d("1"))
	assert.ErrorIs(t, err, ErrIngredientNotFound)
	assert.True(t, env.stockOf(t, flour.ID).Equal(d("10")))
}

func TestDeleteIngredientUsedByRecipeIsRefused(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	flour := env.addIngredient(t, "Flour", "5000", "1000", "g")
	cake := env.addRecipe(t, "Cake", line(flour.ID, "300"))

	err := env.ingredients.DeleteIngredient(ctx, flour.ID)
	assert.ErrorIs(t, err, ErrReferentialIntegrity)
	_, err = env.ingredients.GetIngredientByID(ctx, flour.ID)
	require.NoError(t, err)

	require.NoError(t, env.recipes.DeleteRecipe(ctx, cake.ID))
	require.NoError(t, env.ingredients.DeleteIngredient(ctx, flour.ID))
}

func TestRecipeLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	flour := env.addIngredient(t, "Flour", "5000", "1000", "g")
	sugar := env.addIngredient(t, "Sugar", "3000", "500", "g")

	cake := env.addRecipe(t, "Cake", line(flour.ID, "300"), line(sugar.ID, "200"))
	got, err := env.recipes.GetRecipeByID(ctx, cake.ID)
	require.NoError(t, err)
	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, flour.ID, got.Ingredients[0].IngredientID)
	assert.Equal(t, sugar.ID, got.Ingredients[1].IngredientID)

	updated, err := env.recipes.UpdateRecipe(ctx, cake.ID, RecipeRequest{
		Name:        "Sponge Cake",
		Ingredients: []RecipeLineRequest{line(sugar.ID, "150")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sponge Cake", updated.Name)

	got, err = env.recipes.GetRecipeByID(ctx, cake.ID)
	require.NoError(t, err)
	require.Len(t, got.Ingredients, 1)
	assert.True(t, got.Ingredients[0].Quantity.Equal(d("150")))

	all, err := env.recipes.GetRecipes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = env.recipes.UpdateRecipe(ctx, "missing", RecipeRequest{Name: "X", Ingredients: []RecipeLineRequest{line(sugar.ID, "1")}})
	assert.ErrorIs(t, err, ErrRecipeNotFound)
	_, err = env.recipes.GetRecipeByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}

func TestRecipeValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cases := []RecipeRequest{
		{Name: "", Ingredients: []RecipeLineRequest{line("a", "1")}},
		{Name: "Cake"},
		{Name: "Cake", Ingredients: []RecipeLineRequest{line("", "1")}},
		{Name: "Cake", Ingredients: []RecipeLineRequest{line("a", "0")}},
		{Name: "Cake", Ingredients: []RecipeLineRequest{{IngredientID: "a"}}},
	}
	for _, req := range cases {
		_, err := env.recipes.CreateRecipe(ctx, req)
		assert.ErrorIs(t, err, ErrValidation, "request %+v", req)
	}
}

func TestDeleteRecipeWithSales(t *testing.T) {
	ctx := context.Background()

	t.Run("guarded", func(t *testing.T) {
		env := newTestEnvWithGuard(t, true)
		flour := env.addIngredient(t, "Flour", "5000", "1000", "g")
		cake := env.addRecipe(t, "Cake", line(flour.ID, "300"))
		_, err := env.sales.RecordSale(ctx, cake.ID, d("1"))
		require.NoError(t, err)

		assert.ErrorIs(t, env.recipes.DeleteRecipe(ctx, cake.ID), ErrReferentialIntegrity)
		_, err = env.recipes.GetRecipeByID(ctx, cake.ID)
		assert.NoError(t, err)
	})

	t.Run("unguarded keeps sale history", func(t *testing.T) {
		env := newTestEnvWithGuard(t, false)
		flour := env.addIngredient(t, "Flour", "5000", "1000", "g")
		cake := env.addRecipe(t, "Cake", line(flour.ID, "300"))
		sale, err := env.sales.RecordSale(ctx, cake.ID, d("1"))
		require.NoError(t, err)

		require.NoError(t, env.recipes.DeleteRecipe(ctx, cake.ID))
		_, err = env.recipes.GetRecipeByID(ctx, cake.ID)
		assert.ErrorIs(t, err, ErrRecipeNotFound)

		kept, err := env.sales.GetSaleByID(ctx, sale.ID)
		require.NoError(t, err)
		assert.Equal(t, cake.ID, kept.RecipeID)

		_, err = env.sales.RecordSale(ctx, cake.ID, d("1"))
		assert.ErrorIs(t, err, ErrRecipeNotFound)
	})

	t.Run("missing", func(t *testing.T) {
		env := newTestEnv(t)
		assert.ErrorIs(t, env.recipes.DeleteRecipe(ctx, "missing"), ErrRecipeNotFound)
	})
}

func TestUpdateIngredientReadsUnderRowLock(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	flour := env.addIngredient(t, "Flour", "5000", "1000", "g")
	cake := env.addRecipe(t, "Cake", line(flour.ID, "300"))

	repo := &recordingIngredientRepo{IngredientRepository: env.ingRepo}
	svc := NewIngredientService(env.tx, repo, env.recipeRepo, env.broker)

	_, err := env.sales.RecordSale(ctx, cake.ID, d("10"))
	require.NoError(t, err)

	name := "Bread flour"
	updated, err := svc.UpdateIngredient(ctx, flour.ID, UpdateIngredientRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, []string{flour.ID}, repo.locked)
	assert.Zero(t, repo.plainReads)
	assert.True(t, updated.Stock.Equal(d("2000")), "a name change keeps the stock the sale left")
	assert.True(t, env.stockOf(t, flour.ID).Equal(d("2000")))

	_, err = svc.UpdateIngredient(ctx, "missing", UpdateIngredientRequest{Name: &name})
	assert.ErrorIs(t, err, ErrIngredientNotFound)
}

func TestRenamesDoNotLoseConcurrentSales(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	flour := env.addIngredient(t, "Flour", "5000", "1000", "g")
	roll := env.addRecipe(t, "Roll", line(flour.ID, "100"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := env.sales.RecordSale(ctx, roll.ID, d("1"))
			assert.NoError(t, err)
		}()
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("Flour %d", i)
			_, err := env.ingredients.UpdateIngredient(ctx, flour.ID, UpdateIngredientRequest{Name: &name})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.True(t, env.stockOf(t, flour.ID).Equal(d("4000")))
	assert.Equal(t, 10, env.saleCount(t))
}

func TestDeleteRecipeLocksRowBeforeCheckingSales(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	flour := env.addIngredient(t, "Flour", "5000", "1000", "g")
	cake := env.addRecipe(t, "Cake", line(flour.ID, "300"))

	repo := &recordingRecipeRepo{RecipeRepository: env.recipeRepo}
	svc := NewRecipeService(env.tx, repo, env.saleRepo, env.broker, true)

	_, err := env.sales.RecordSale(ctx, cake.ID, d("1"))
	require.NoError(t, err)

	err = svc.DeleteRecipe(ctx, cake.ID)
	assert.ErrorIs(t, err, ErrReferentialIntegrity)
	assert.Equal(t, []string{"lock"}, repo.calls)

	err = svc.DeleteRecipe(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}
