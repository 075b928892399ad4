package handlers

import (
	"net/http"
	"strings"

	"bakery_backend/internal/events"
	"bakery_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	readiness *events.Readiness
}

// NewHealthHandler creates a new HealthHandler. A nil readiness is always ready.
func NewHealthHandler(readiness *events.Readiness) *HealthHandler {
	return &HealthHandler{readiness: readiness}
}

func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Ready reports 200 once every data feed delivered its first snapshot or the
// startup timeout passed, and 503 before that.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.readiness == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	select {
	case <-h.readiness.Done():
	default:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusServiceUnavailable, utils.ErrCodeNotReady,
			"Service is loading its initial data.", "waiting for: "+strings.Join(h.readiness.Pending(), ", ")))
		return
	}

	status := "ready"
	if h.readiness.TimedOut() {
		status = "ready_after_timeout"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "pending": h.readiness.Pending()})
}
