package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bakery_backend/internal/models"
	"bakery_backend/internal/services"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	dateLayout      = "2006-01-02"
)

// parsePagination reads page and page_size, defaulting to the first page.
func parsePagination(pageStr, pageSizeStr string) (page, pageSize int, err error) {
	page, pageSize = 1, defaultPageSize
	if pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
	}
	if pageSizeStr != "" {
		pageSize, err = strconv.Atoi(pageSizeStr)
		if err != nil || pageSize < 1 || pageSize > maxPageSize {
			return 0, 0, fmt.Errorf("page_size must be between 1 and %d", maxPageSize)
		}
	}
	return page, pageSize, nil
}

// parseTimeBound accepts RFC 3339 timestamps or plain dates. A plain date used
// as an upper bound covers the whole day.
func parseTimeBound(value string, upper bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD or RFC 3339", value)
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

// parseSaleFilters builds ledger filters from the query string.
func parseSaleFilters(query func(string) string) (models.SaleFilters, error) {
	var filters models.SaleFilters
	var err error
	if recipeID := strings.TrimSpace(query("recipe_id")); recipeID != "" {
		filters.RecipeID = &recipeID
	}
	if filters.From, err = parseTimeBound(query("from"), false); err != nil {
		return filters, err
	}
	if filters.To, err = parseTimeBound(query("to"), true); err != nil {
		return filters, err
	}
	filters.Page, filters.PageSize, err = parsePagination(query("page"), query("page_size"))
	return filters, err
}

// parseAdviceOptions reads the ai query parameter: empty or false for rules only,
// true to let the advisor refine the result, required to fail when it cannot.
func parseAdviceOptions(value string) (services.AdviceOptions, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "false", "0":
		return services.AdviceOptions{}, nil
	case "true", "1":
		return services.AdviceOptions{UseAI: true}, nil
	case "required":
		return services.AdviceOptions{RequireAI: true}, nil
	}
	return services.AdviceOptions{}, fmt.Errorf("ai must be true, false or required")
}
