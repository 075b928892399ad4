package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bakery_backend/internal/models"
	"bakery_backend/internal/repositories"
)

// --- Custom Service Errors ---
var (
	ErrNotFound           = errors.New("not found")
	ErrIngredientNotFound = fmt.Errorf("ingredient %w", ErrNotFound)
	ErrRecipeNotFound     = fmt.Errorf("recipe %w", ErrNotFound)
	ErrSaleNotFound       = fmt.Errorf("sale %w", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)

	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrReferentialIntegrity = errors.New("record is still referenced")
	ErrTransactionFailed    = errors.New("transaction failed")
	ErrValidation           = errors.New("validation failed")
	ErrExternalService      = errors.New("external service unavailable")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

// InsufficientStockError lists every ingredient a sale could not cover.
type InsufficientStockError struct {
	Shortages []models.StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (required %s %s, available %s %s)",
			s.Name, s.Required.String(), s.Unit, s.Available.String(), s.Unit))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// validationError wraps ErrValidation with a message.
func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storageError turns repository conflicts into ErrTransactionFailed and wraps everything else.
func storageError(err error, op string) error {
	if errors.Is(err, repositories.ErrTxConflict) {
		return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// referencedError wraps ErrReferentialIntegrity with a message.
func referencedError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrReferentialIntegrity, fmt.Sprintf(format, args...))
}
