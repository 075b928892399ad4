package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"bakery_backend/internal/events"
	"bakery_backend/internal/models"
	"bakery_backend/internal/repositories"
	"bakery_backend/internal/storage"
	"bakery_backend/pkg/utils"

	"gopkg.in/yaml.v3"
)

// Bundle formats understood by DecodeBundle and EncodeBundle.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var bundleKeys = []string{"ingredients", "recipes", "sales"}

// Uploader stores a backup object and returns where it can be found.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// ImportResult reports how many records an import wrote.
type ImportResult struct {
	Ingredients int `json:"ingredients"`
	Recipes     int `json:"recipes"`
	Sales       int `json:"sales"`
}

// BackupResult reports where a backup went.
type BackupResult struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	Bytes    int    `json:"bytes"`
}

// DataService exports, imports and backs up the three stores.
type DataService interface {
	Export(ctx context.Context) (*models.DataBundle, error)
	Import(ctx context.Context, bundle *models.DataBundle) (*ImportResult, error)
	Backup(ctx context.Context) (*BackupResult, error)
}

type dataService struct {
	tx             *repositories.TxRunner
	ingredientRepo repositories.IngredientRepository
	recipeRepo     repositories.RecipeRepository
	saleRepo       repositories.SaleRepository
	publisher      events.Publisher
	uploader       Uploader // nil when backups are disabled
}

// NewDataService creates a new instance of DataService.
func NewDataService(tx *repositories.TxRunner, ingredientRepo repositories.IngredientRepository, recipeRepo repositories.RecipeRepository, saleRepo repositories.SaleRepository, publisher events.Publisher, uploader Uploader) DataService {
	return &dataService{
		tx:             tx,
		ingredientRepo: ingredientRepo,
		recipeRepo:     recipeRepo,
		saleRepo:       saleRepo,
		publisher:      publisher,
		uploader:       uploader,
	}
}

// Export reads all three stores in one transaction so the bundle is consistent.
func (s *dataService) Export(ctx context.Context) (*models.DataBundle, error) {
	bundle := &models.DataBundle{}
	err := s.tx.Run(ctx, func(tx *sql.Tx) error {
		var err error
		if bundle.Ingredients, err = s.ingredientRepo.GetIngredients(ctx, tx); err != nil {
			return err
		}
		if bundle.Recipes, err = s.recipeRepo.GetRecipes(ctx, tx); err != nil {
			return err
		}
		bundle.Sales, _, err = s.saleRepo.GetSales(ctx, tx, models.SaleFilters{})
		return err
	})
	if err != nil {
		return nil, storageError(err, "exporting data")
	}
	return bundle, nil
}

// Import validates the bundle and replaces every store with its contents in one transaction.
func (s *dataService) Import(ctx context.Context, bundle *models.DataBundle) (*ImportResult, error) {
	if err := ValidateBundle(bundle); err != nil {
		return nil, err
	}

	now := nowUTC()
	err := s.tx.Run(ctx, func(tx *sql.Tx) error {
		if err := s.saleRepo.DeleteAllSales(ctx, tx); err != nil {
			return err
		}
		if err := s.recipeRepo.DeleteAllRecipes(ctx, tx); err != nil {
			return err
		}
		if err := s.ingredientRepo.DeleteAllIngredients(ctx, tx); err != nil {
			return err
		}

		for i := range bundle.Ingredients {
			ing := bundle.Ingredients[i]
			fillTimestamps(&ing.CreatedAt, &ing.UpdatedAt, now)
			if err := s.ingredientRepo.CreateIngredient(ctx, tx, &ing); err != nil {
				return err
			}
		}
		for i := range bundle.Recipes {
			recipe := bundle.Recipes[i]
			fillTimestamps(&recipe.CreatedAt, &recipe.UpdatedAt, now)
			if err := s.recipeRepo.CreateRecipe(ctx, tx, &recipe); err != nil {
				return err
			}
		}
		for i := range bundle.Sales {
			sale := bundle.Sales[i]
			sale.Date = sale.Date.UTC()
			if err := s.saleRepo.CreateSale(ctx, tx, &sale); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err, "importing data")
	}

	for _, collection := range bundleKeys {
		s.publisher.Publish(events.Change{Collection: collection, Op: events.OpReplace})
	}
	result := &ImportResult{Ingredients: len(bundle.Ingredients), Recipes: len(bundle.Recipes), Sales: len(bundle.Sales)}
	utils.LogInfo("Data imported", map[string]interface{}{
		"ingredients": result.Ingredients, "recipes": result.Recipes, "sales": result.Sales,
	})
	return result, nil
}

func fillTimestamps(created, updated *time.Time, now time.Time) {
	for _, t := range []*time.Time{created, updated} {
		if t.IsZero() {
			*t = now
		} else {
			*t = t.UTC().Truncate(time.Microsecond)
		}
	}
}

// Backup uploads a JSON export to object storage.
func (s *dataService) Backup(ctx context.Context) (*BackupResult, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, storage.ErrBackupDisabled)
	}
	bundle, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	data, err := EncodeBundle(bundle, FormatJSON)
	if err != nil {
		return nil, err
	}

	key := storage.BackupKey(nowUTC())
	location, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	utils.LogInfo("Backup uploaded", map[string]interface{}{"key": key, "bytes": len(data)})
	return &BackupResult{Key: key, Location: location, Bytes: len(data)}, nil
}

// ValidateBundle checks every entity before anything is written.
func ValidateBundle(b *models.DataBundle) error {
	if b == nil {
		return validationError("empty data bundle")
	}

	ingredientIDs := make(map[string]struct{}, len(b.Ingredients))
	for i := range b.Ingredients {
		ing := &b.Ingredients[i]
		ing.Name = utils.NormalizeName(ing.Name)
		ing.Unit = utils.NormalizeName(ing.Unit)
		if ing.ID == "" {
			return validationError("ingredients[%d]: id is required", i)
		}
		if _, dup := ingredientIDs[ing.ID]; dup {
			return validationError("ingredients[%d]: duplicate id %s", i, ing.ID)
		}
		ingredientIDs[ing.ID] = struct{}{}
		if err := validateIngredient(ing); err != nil {
			return fmt.Errorf("ingredients[%d]: %w", i, err)
		}
	}

	recipeIDs := make(map[string]struct{}, len(b.Recipes))
	for i := range b.Recipes {
		recipe := &b.Recipes[i]
		recipe.Name = utils.NormalizeName(recipe.Name)
		if recipe.ID == "" {
			return validationError("recipes[%d]: id is required", i)
		}
		if _, dup := recipeIDs[recipe.ID]; dup {
			return validationError("recipes[%d]: duplicate id %s", i, recipe.ID)
		}
		recipeIDs[recipe.ID] = struct{}{}
		if recipe.Name == "" {
			return validationError("recipes[%d]: name is required", i)
		}
		if len(recipe.Ingredients) == 0 {
			return validationError("recipes[%d]: at least one ingredient is required", i)
		}
		for j, line := range recipe.Ingredients {
			if utils.IsEmpty(line.IngredientID) {
				return validationError("recipes[%d].ingredients[%d]: ingredientId is required", i, j)
			}
			if !line.Quantity.IsPositive() {
				return validationError("recipes[%d].ingredients[%d]: quantity must be positive", i, j)
			}
		}
	}

	saleIDs := make(map[string]struct{}, len(b.Sales))
	for i, sale := range b.Sales {
		if sale.ID == "" || sale.RecipeID == "" {
			return validationError("sales[%d]: id and recipeId are required", i)
		}
		if _, dup := saleIDs[sale.ID]; dup {
			return validationError("sales[%d]: duplicate id %s", i, sale.ID)
		}
		saleIDs[sale.ID] = struct{}{}
		if !sale.Quantity.IsPositive() {
			return validationError("sales[%d]: quantity must be positive", i)
		}
		if sale.Date.IsZero() {
			return validationError("sales[%d]: date is required", i)
		}
	}
	return nil
}

// DecodeBundle parses an export document. The three top-level keys must all be present.
func DecodeBundle(data []byte, format string) (*models.DataBundle, error) {
	var keys map[string]interface{}
	var bundle models.DataBundle

	switch format {
	case FormatJSON:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, validationError("invalid JSON document: %v", err)
		}
		keys = make(map[string]interface{}, len(raw))
		for k, v := range raw {
			keys[k] = v
		}
		if err := json.Unmarshal(data, &bundle); err != nil {
			return nil, validationError("invalid data bundle: %v", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &keys); err != nil {
			return nil, validationError("invalid YAML document: %v", err)
		}
		if err := yaml.Unmarshal(data, &bundle); err != nil {
			return nil, validationError("invalid data bundle: %v", err)
		}
	default:
		return nil, validationError("unsupported format %q", format)
	}

	var missing []string
	for _, k := range bundleKeys {
		if _, ok := keys[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, validationError("missing top-level keys: %s", strings.Join(missing, ", "))
	}
	if bundle.Ingredients == nil {
		bundle.Ingredients = []models.Ingredient{}
	}
	if bundle.Recipes == nil {
		bundle.Recipes = []models.Recipe{}
	}
	if bundle.Sales == nil {
		bundle.Sales = []models.Sale{}
	}
	return &bundle, nil
}

// EncodeBundle renders a bundle as indented JSON or YAML.
func EncodeBundle(b *models.DataBundle, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding bundle: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return nil, fmt.Errorf("encoding bundle: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding bundle: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, validationError("unsupported format %q", format)
}
