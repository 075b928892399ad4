package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bakery_backend/internal/models"
	"bakery_backend/internal/reorder"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	reply  string
	err    error
	prompt string
}

func (s *stubClient) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func TestExtractJSON(t *testing.T) {
	got, err := extractJSON("Sure! ```json\n{\"a\": {\"b\": 1}}\n``` hope this helps")
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	_, err = extractJSON("no json here")
	assert.ErrorIs(t, err, ErrUnparseable)

	_, err = extractJSON("{broken")
	assert.ErrorIs(t, err, ErrUnparseable)

	_, err = extractJSON("{\"a\": } trailing }")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestParsePurchaseList(t *testing.T) {
	text := `Here you go:
{"purchaseList": [
  {"ingredientName": "Harina", "quantity": 1500, "reason": "Below reorder point"},
  {"ingredientName": "Azúcar", "quantity": "600 g", "reason": "Low"},
  {"ingredientName": "Huevos", "quantity": "lots", "reason": "bad number"},
  {"ingredientName": "", "quantity": 3},
  {"ingredientName": "Leche", "quantityToBuy": 2000}
]}`
	suggestions, err := ParsePurchaseList(text)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	assert.Equal(t, "Harina", suggestions[0].IngredientName)
	assert.True(t, suggestions[0].QuantityToBuy.Equal(decimal.NewFromInt(1500)))
	assert.True(t, suggestions[1].QuantityToBuy.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, "Leche", suggestions[2].IngredientName)

	_, err = ParsePurchaseList("I cannot help with that")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestParseDepletionAcceptsStringEncodedMaps(t *testing.T) {
	text := `{
  "ingredientDepletionEstimates": "{\"Harina\": 12.5}",
  "purchaseList": {"Harina": 1500},
  "lowStockIngredients": "not json",
  "suggestedIngredientQuantities": "{\"Harina\": \"700\"}"
}`
	p, err := ParseDepletion(text)
	require.NoError(t, err)
	assert.Equal(t, models.SourceAI, p.Source)
	assert.Equal(t, "12.5", p.IngredientDepletionEstimates["Harina"].String())
	assert.Equal(t, "1500", p.PurchaseList["Harina"].String())
	assert.Empty(t, p.LowStockIngredients)
	assert.Equal(t, "700", p.SuggestedIngredientQuantities["Harina"].String())

	_, err = ParseDepletion(`{"purchaseList": {}}`)
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestGeminiClientGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"ok\":"},{"text":"true}"}]}}]}`)
	}))
	defer srv.Close()

	client := NewGeminiClient("secret", "gemini-test", WithBaseURL(srv.URL), WithHTTPTimeout(time.Second))
	out, err := client.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "/models/gemini-test:generateContent", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Contains(t, gotBody, "contents")
}

func TestGeminiClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "empty") {
			_, _ = io.WriteString(w, `{"candidates":[]}`)
			return
		}
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewGeminiClient("", "m").Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewGeminiClient("k", "limited", WithBaseURL(srv.URL)).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = NewGeminiClient("k", "empty", WithBaseURL(srv.URL)).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestChatClientGenerate(t *testing.T) {
	var auth string
	var payload chatPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"purchaseList\":[]}"}}]}`)
	}))
	defer srv.Close()

	client := NewChatClient(srv.URL, "sk-test", "gpt-test", WithTemperature(0), WithMaxTokens(100))
	out, err := client.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"purchaseList":[]}`, out)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-test", payload.Model)
	assert.Equal(t, 100, payload.MaxTokens)
	require.Len(t, payload.Messages, 2)
	assert.Equal(t, RoleSystem, payload.Messages[0].Role)
	assert.Equal(t, "prompt", payload.Messages[1].Content)
}

func TestChatClientHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	advisor := NewAdvisor(NewChatClient(srv.URL, "k", "m"), 20*time.Millisecond)
	_, err := advisor.SuggestPurchases(context.Background(), reorder.SuggestionRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"))
}

func TestAdvisorSuggestPurchases(t *testing.T) {
	stub := &stubClient{reply: `{"purchaseList":[{"ingredientName":"Harina","quantity":1800,"reason":"Busy week"}]}`}
	advisor := NewAdvisor(stub, time.Second)

	suggestions, err := advisor.SuggestPurchases(context.Background(), reorder.SuggestionRequest{
		Ingredients: []models.Ingredient{{
			ID: "flour", Name: "Harina", Stock: decimal.NewFromInt(500), Unit: "g", ReorderPoint: decimal.NewFromInt(1000),
		}},
		DailyUsage:   map[string]decimal.Decimal{"flour": decimal.NewFromInt(100)},
		SalesSummary: map[string]decimal.Decimal{"Pastel": decimal.NewFromInt(10)},
		WindowDays:   30,
	})
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Contains(t, stub.prompt, "Name: Harina, Stock: 500 g, Depletion Rate: 100 g/day, Reorder Point: 1000 g")
	assert.Contains(t, stub.prompt, `{"Pastel":10}`)
}

func TestAdvisorPredictDepletion(t *testing.T) {
	stub := &stubClient{reply: `{"ingredientDepletionEstimates":{"Harina":20},"purchaseList":{},"lowStockIngredients":{},"suggestedIngredientQuantities":{}}`}
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	p, err := NewAdvisor(stub, 0).PredictDepletion(context.Background(), reorder.DepletionRequest{
		Ingredients: []models.Ingredient{{ID: "flour", Name: "Harina", Stock: decimal.NewFromInt(2000), Unit: "g"}},
		Recipes: []models.Recipe{{ID: "cake", Name: "Pastel", Ingredients: []models.RecipeIngredient{
			{IngredientID: "flour", Quantity: decimal.NewFromInt(300)},
		}}},
		Sales:      []models.Sale{{RecipeID: "cake", Quantity: decimal.NewFromInt(10)}},
		WindowDays: 30,
		Now:        now,
	})
	require.NoError(t, err)
	assert.Equal(t, now, p.GeneratedAt)
	assert.Equal(t, "20", p.IngredientDepletionEstimates["Harina"].String())
	assert.Contains(t, stub.prompt, `"Pastel":[{"ingredientName":"Harina","quantity":300,"unit":"g"}]`)

	stub.err = errors.New("provider down")
	_, err = NewAdvisor(stub, 0).PredictDepletion(context.Background(), reorder.DepletionRequest{})
	assert.Error(t, err)
}
