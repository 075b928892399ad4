package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"bakery_backend/internal/events"
	"bakery_backend/internal/models"
	"bakery_backend/internal/reorder"
	"bakery_backend/internal/repositories"
	"bakery_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

// AdviceOptions selects between the rule-based result and the AI advisor.
type AdviceOptions struct {
	UseAI     bool // ask the advisor, fall back to rules on any failure
	RequireAI bool // ask the advisor and fail with ErrExternalService instead of falling back
}

func (o AdviceOptions) wantsAI() bool {
	return o.UseAI || o.RequireAI
}

// ReorderService derives purchase lists, depletion predictions and the dashboard from current state.
type ReorderService interface {
	ComputePurchaseList(ctx context.Context) (*models.PurchaseList, error)
	GeneratePurchaseList(ctx context.Context, opts AdviceOptions) (*models.PurchaseList, error)
	CachedPurchaseList(ctx context.Context) (*models.PurchaseList, error)
	PredictDepletion(ctx context.Context, opts AdviceOptions) (*models.DepletionPrediction, error)
	DashboardSummary(ctx context.Context) (*models.DashboardSummary, error)
	Start(ctx context.Context, readiness *events.Readiness)
	Stop()
}

type reorderService struct {
	db             *sql.DB
	ingredientRepo repositories.IngredientRepository
	recipeRepo     repositories.RecipeRepository
	saleRepo       repositories.SaleRepository
	subscriber     events.Subscriber
	suggester      reorder.Suggester // nil when no advisor is configured
	predictor      reorder.Predictor // nil when no advisor is configured
	windowDays     int

	mu         sync.RWMutex
	cached     *models.PurchaseList
	cachedGen  uint64        // generation the cached list was read at
	generation atomic.Uint64 // bumped on every ingredient change notification

	dirty       chan struct{}
	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// ReorderServiceConfig bundles the optional parts of the reorder service.
type ReorderServiceConfig struct {
	Suggester  reorder.Suggester
	Predictor  reorder.Predictor
	WindowDays int
}

// NewReorderService creates a new instance of ReorderService.
func NewReorderService(db *sql.DB, ingredientRepo repositories.IngredientRepository, recipeRepo repositories.RecipeRepository, saleRepo repositories.SaleRepository, subscriber events.Subscriber, cfg ReorderServiceConfig) ReorderService {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	return &reorderService{
		db:             db,
		ingredientRepo: ingredientRepo,
		recipeRepo:     recipeRepo,
		saleRepo:       saleRepo,
		subscriber:     subscriber,
		suggester:      cfg.Suggester,
		predictor:      cfg.Predictor,
		windowDays:     cfg.WindowDays,
		dirty:          make(chan struct{}, 1),
	}
}

func (s *reorderService) ComputePurchaseList(ctx context.Context) (*models.PurchaseList, error) {
	ingredients, err := s.ingredientRepo.GetIngredients(ctx, s.db)
	if err != nil {
		return nil, storageError(err, "loading ingredients")
	}
	return &models.PurchaseList{
		Items:       reorder.ComputePurchaseList(ingredients),
		Source:      models.SourceRules,
		GeneratedAt: nowUTC(),
	}, nil
}

// window loads the recipes and the sales of the rolling window.
func (s *reorderService) window(ctx context.Context, now time.Time) ([]models.Recipe, []models.Sale, error) {
	recipes, err := s.recipeRepo.GetRecipes(ctx, s.db)
	if err != nil {
		return nil, nil, storageError(err, "loading recipes")
	}
	sales, err := s.saleRepo.GetSalesSince(ctx, s.db, now.AddDate(0, 0, -s.windowDays))
	if err != nil {
		return nil, nil, storageError(err, "loading sales")
	}
	return recipes, sales, nil
}

// GeneratePurchaseList returns the rule-based list, optionally refined by the advisor.
// Advisor output can only change quantities and reasons of items already on the list.
func (s *reorderService) GeneratePurchaseList(ctx context.Context, opts AdviceOptions) (*models.PurchaseList, error) {
	now := nowUTC()
	ingredients, err := s.ingredientRepo.GetIngredients(ctx, s.db)
	if err != nil {
		return nil, storageError(err, "loading ingredients")
	}
	list := &models.PurchaseList{Items: reorder.ComputePurchaseList(ingredients), Source: models.SourceRules, GeneratedAt: now}
	if !opts.wantsAI() || len(list.Items) == 0 {
		return list, nil
	}

	fallback := func(cause error) (*models.PurchaseList, error) {
		if opts.RequireAI {
			return nil, fmt.Errorf("%w: %v", ErrExternalService, cause)
		}
		utils.LogWarn("AI purchase list unavailable, using reorder rules", map[string]interface{}{"cause": cause.Error()})
		return list, nil
	}

	if s.suggester == nil {
		return fallback(errors.New("no AI provider configured"))
	}

	recipes, sales, err := s.window(ctx, now)
	if err != nil {
		return nil, err
	}
	suggestions, err := s.suggester.SuggestPurchases(ctx, reorder.SuggestionRequest{
		Ingredients:  ingredients,
		DailyUsage:   reorder.DailyUsage(recipes, sales, s.windowDays),
		SalesSummary: reorder.SummarizeSales(sales, recipes),
		WindowDays:   s.windowDays,
	})
	if err != nil {
		return fallback(err)
	}

	merged, applied := reorder.ApplySuggestions(list.Items, suggestions)
	if applied == 0 {
		return fallback(errors.New("advisor returned no usable suggestions"))
	}
	list.Items = merged
	list.Source = models.SourceAI
	return list, nil
}

// CachedPurchaseList returns the list maintained from ingredient change notifications.
// It is computed on demand when the cache has not been filled yet.
func (s *reorderService) CachedPurchaseList(ctx context.Context) (*models.PurchaseList, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return s.refresh(ctx)
}

// refresh recomputes the list and caches it unless a refresh that started after a
// newer change notification has already stored its result.
func (s *reorderService) refresh(ctx context.Context) (*models.PurchaseList, error) {
	gen := s.generation.Load()
	list, err := s.ComputePurchaseList(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && gen < s.cachedGen {
		return s.cached, nil
	}
	s.cached = list
	s.cachedGen = gen
	return list, nil
}

// PredictDepletion estimates days until each ingredient runs out. The advisor's
// answer is sanitised and replaced by the rule-based estimate when it fails or is empty.
func (s *reorderService) PredictDepletion(ctx context.Context, opts AdviceOptions) (*models.DepletionPrediction, error) {
	now := nowUTC()
	ingredients, err := s.ingredientRepo.GetIngredients(ctx, s.db)
	if err != nil {
		return nil, storageError(err, "loading ingredients")
	}
	recipes, sales, err := s.window(ctx, now)
	if err != nil {
		return nil, err
	}
	req := reorder.DepletionRequest{
		Ingredients: ingredients,
		Recipes:     recipes,
		Sales:       sales,
		WindowDays:  s.windowDays,
		Now:         now,
	}
	rules := reorder.EstimateDepletion(req)
	if !opts.wantsAI() {
		return rules, nil
	}

	fallback := func(cause error) (*models.DepletionPrediction, error) {
		if opts.RequireAI {
			return nil, fmt.Errorf("%w: %v", ErrExternalService, cause)
		}
		utils.LogWarn("AI depletion prediction unavailable, using usage averages", map[string]interface{}{"cause": cause.Error()})
		return rules, nil
	}

	if s.predictor == nil {
		return fallback(errors.New("no AI provider configured"))
	}
	predicted, err := s.predictor.PredictDepletion(ctx, req)
	if err != nil {
		return fallback(err)
	}
	clean := reorder.SanitizePrediction(predicted, ingredients)
	if reorder.Empty(clean) {
		return fallback(errors.New("advisor returned no usable values"))
	}
	clean.Source = models.SourceAI
	clean.GeneratedAt = now
	return clean, nil
}

func (s *reorderService) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	now := nowUTC()
	ingredients, err := s.ingredientRepo.GetIngredients(ctx, s.db)
	if err != nil {
		return nil, storageError(err, "loading ingredients")
	}
	recipes, sales, err := s.window(ctx, now)
	if err != nil {
		return nil, err
	}

	summary := &models.DashboardSummary{
		IngredientCount: len(ingredients),
		RecipeCount:     len(recipes),
		SalesInWindow:   len(sales),
		UnitsSold:       decimal.Zero,
		WindowDays:      s.windowDays,
	}
	for _, ing := range ingredients {
		if ing.NeedsReorder() {
			summary.LowStockCount++
		}
	}
	for _, sale := range sales {
		summary.UnitsSold = summary.UnitsSold.Add(sale.Quantity)
	}

	latest, err := s.saleRepo.GetLatestSale(ctx, s.db)
	switch {
	case err == nil:
		summary.LastSale = latest
	case errors.Is(err, repositories.ErrNotFound):
	default:
		return nil, storageError(err, "loading latest sale")
	}
	return summary, nil
}

// Start loads the initial snapshot of each collection, reporting to readiness as
// each one arrives, and keeps the cached purchase list current from ingredient changes.
func (s *reorderService) Start(ctx context.Context, readiness *events.Readiness) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.unsubscribe = s.subscriber.Subscribe(events.CollectionIngredients, func(events.Change) {
		s.generation.Add(1)
		select {
		case s.dirty <- struct{}{}:
		default: // a recompute is already pending
		}
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()

	snapshot := func(feed string, load func(context.Context) error) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := load(ctx); err != nil {
				utils.LogError(err, "Initial snapshot failed", map[string]interface{}{"feed": feed})
				return
			}
			if readiness != nil {
				readiness.Report(feed)
			}
		}()
	}

	snapshot(events.CollectionIngredients, func(ctx context.Context) error {
		_, err := s.refresh(ctx)
		return err
	})
	snapshot(events.CollectionRecipes, func(ctx context.Context) error {
		_, err := s.recipeRepo.GetRecipes(ctx, s.db)
		return err
	})
	snapshot(events.CollectionSales, func(ctx context.Context) error {
		_, err := s.saleRepo.GetSalesSince(ctx, s.db, nowUTC().AddDate(0, 0, -s.windowDays))
		return err
	})
}

func (s *reorderService) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.dirty:
			refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			list, err := s.refresh(refreshCtx)
			cancel()
			if err != nil {
				utils.LogError(err, "Failed to recompute purchase list")
				continue
			}
			utils.LogDebug("Purchase list recomputed", map[string]interface{}{"items": len(list.Items)})
		}
	}
}

// Stop detaches from the broker and waits for background work to finish.
func (s *reorderService) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
