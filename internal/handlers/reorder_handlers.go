package handlers

import (
	"net/http"

	"bakery_backend/internal/services"
	"bakery_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ReorderHandler serves purchase lists and stock predictions.
type ReorderHandler struct {
	reorderService services.ReorderService
}

// NewReorderHandler creates a new ReorderHandler.
func NewReorderHandler(rs services.ReorderService) *ReorderHandler {
	return &ReorderHandler{reorderService: rs}
}

// GetPurchaseList computes the list from current stock. ?ai=true lets the
// advisor refine it, ?ai=required fails with 502 when the advisor cannot.
func (h *ReorderHandler) GetPurchaseList(c *gin.Context) {
	opts, err := parseAdviceOptions(c.Query("ai"))
	if err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	list, err := h.reorderService.GeneratePurchaseList(c.Request.Context(), opts)
	if err != nil {
		logServiceError(err, "GetPurchaseList: Error from reorderService.GeneratePurchaseList", map[string]interface{}{"ai": c.Query("ai")})
		respondServiceError(c, err, "generate purchase list")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetCachedPurchaseList returns the list kept current from stock change notifications.
func (h *ReorderHandler) GetCachedPurchaseList(c *gin.Context) {
	list, err := h.reorderService.CachedPurchaseList(c.Request.Context())
	if err != nil {
		logServiceError(err, "GetCachedPurchaseList: Error from reorderService.CachedPurchaseList", map[string]interface{}{})
		respondServiceError(c, err, "fetch purchase list")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetStockPrediction estimates days until each ingredient runs out.
func (h *ReorderHandler) GetStockPrediction(c *gin.Context) {
	opts, err := parseAdviceOptions(c.Query("ai"))
	if err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	prediction, err := h.reorderService.PredictDepletion(c.Request.Context(), opts)
	if err != nil {
		logServiceError(err, "GetStockPrediction: Error from reorderService.PredictDepletion", map[string]interface{}{"ai": c.Query("ai")})
		respondServiceError(c, err, "predict stock depletion")
		return
	}
	c.JSON(http.StatusOK, prediction)
}
