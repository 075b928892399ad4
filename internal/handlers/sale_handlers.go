package handlers

import (
	"net/http"

	"bakery_backend/internal/models"
	"bakery_backend/internal/services"
	"bakery_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// SaleHandler holds the sale service.
type SaleHandler struct {
	saleService services.SaleService
}

// NewSaleHandler creates a new SaleHandler.
func NewSaleHandler(ss services.SaleService) *SaleHandler {
	return &SaleHandler{saleService: ss}
}

// RecordSale sells a quantity of a recipe, consuming its ingredients.
// A sale that cannot be covered answers 409 with every shortage listed.
func (h *SaleHandler) RecordSale(c *gin.Context) {
	var req services.RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "RecordSale")
		return
	}

	sale, err := h.saleService.RecordSale(c.Request.Context(), req.RecipeID, *req.Quantity)
	if err != nil {
		logServiceError(err, "RecordSale: Error from saleService.RecordSale", map[string]interface{}{
			"recipe_id": req.RecipeID, "quantity": req.Quantity.String(),
		})
		respondServiceError(c, err, "record sale")
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// GetSales lists the ledger newest first. Supports recipe_id, from, to, page and page_size.
func (h *SaleHandler) GetSales(c *gin.Context) {
	filters, err := parseSaleFilters(c.Query)
	if err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	sales, totalCount, err := h.saleService.GetSales(c.Request.Context(), filters)
	if err != nil {
		logServiceError(err, "GetSales: Error from saleService.GetSales", map[string]interface{}{})
		respondServiceError(c, err, "fetch sales")
		return
	}
	if sales == nil {
		sales = []models.Sale{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      sales,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

func (h *SaleHandler) GetSaleByID(c *gin.Context) {
	id := c.Param("id")
	sale, err := h.saleService.GetSaleByID(c.Request.Context(), id)
	if err != nil {
		logServiceError(err, "GetSaleByID: Error from saleService.GetSaleByID", map[string]interface{}{"sale_id": id})
		respondServiceError(c, err, "fetch sale")
		return
	}
	c.JSON(http.StatusOK, sale)
}
