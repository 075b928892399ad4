package handlers

import (
	"errors"
	"net/http"

	"bakery_backend/internal/services"
	"bakery_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps a service error onto the API error envelope.
// action completes the sentence "Failed to ..." for unexpected errors.
func respondServiceError(c *gin.Context, err error, action string) {
	var shortage *services.InsufficientStockError
	if errors.As(err, &shortage) {
		apiErr := utils.NewAPIError(http.StatusConflict, utils.ErrCodeInsufficientStock, "Insufficient stock.", err.Error())
		c.JSON(apiErr.StatusCode, gin.H{"error": apiErr, "shortages": shortage.Shortages})
		c.Abort()
		return
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		utils.RespondValidationFailed(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Resource not found.", err.Error()))
	case errors.Is(err, services.ErrReferentialIntegrity):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeReferenced, "Resource is still referenced.", err.Error()))
	case errors.Is(err, services.ErrUsernameExists):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Username already exists.", err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid username or password.", err.Error()))
	case errors.Is(err, services.ErrTransactionFailed):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusServiceUnavailable, utils.ErrCodeTransactionFailed, "The operation could not be completed, please retry.", err.Error()))
	case errors.Is(err, services.ErrExternalService):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadGateway, utils.ErrCodeExternalService, "External service unavailable.", err.Error()))
	default:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to "+action+".", "Internal error"))
	}
}

// logServiceError logs at warn level for client errors and at error level otherwise.
func logServiceError(err error, msg string, fields map[string]interface{}) {
	if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, services.ErrInsufficientStock) || errors.Is(err, services.ErrReferentialIntegrity) ||
		errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrUsernameExists) {
		fields["error"] = err.Error()
		utils.LogWarn(msg, fields)
		return
	}
	utils.LogError(err, msg, fields)
}

func respondBindError(c *gin.Context, err error, handler string) {
	utils.LogWarn(handler+": Failed to bind JSON", map[string]interface{}{"error": err.Error()})
	utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
}
