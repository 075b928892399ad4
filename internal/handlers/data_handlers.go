package handlers

import (
	"io"
	"net/http"
	"strings"

	"bakery_backend/internal/services"
	"bakery_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const maxImportBytes = 32 << 20

// DataHandler serves export, import and backup of the whole data set.
type DataHandler struct {
	dataService services.DataService
}

// NewDataHandler creates a new DataHandler.
func NewDataHandler(ds services.DataService) *DataHandler {
	return &DataHandler{dataService: ds}
}

// bundleFormat picks YAML when asked for explicitly, JSON otherwise.
func bundleFormat(explicit, contentType string) string {
	if strings.EqualFold(explicit, services.FormatYAML) || strings.Contains(contentType, "yaml") {
		return services.FormatYAML
	}
	return services.FormatJSON
}

// ExportData downloads ingredients, recipes and sales as one document. ?format=yaml is accepted.
func (h *DataHandler) ExportData(c *gin.Context) {
	format := bundleFormat(c.Query("format"), "")
	bundle, err := h.dataService.Export(c.Request.Context())
	if err != nil {
		logServiceError(err, "ExportData: Error from dataService.Export", map[string]interface{}{})
		respondServiceError(c, err, "export data")
		return
	}
	data, err := services.EncodeBundle(bundle, format)
	if err != nil {
		logServiceError(err, "ExportData: Failed to encode bundle", map[string]interface{}{"format": format})
		respondServiceError(c, err, "export data")
		return
	}

	contentType := "application/json"
	if format == services.FormatYAML {
		contentType = "application/yaml"
	}
	c.Header("Content-Disposition", `attachment; filename="bakery-export.`+format+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// ImportData replaces every store with the uploaded document.
func (h *DataHandler) ImportData(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Could not read request body.", err.Error()))
		return
	}

	bundle, err := services.DecodeBundle(body, bundleFormat(c.Query("format"), c.ContentType()))
	if err != nil {
		logServiceError(err, "ImportData: Failed to decode bundle", map[string]interface{}{"bytes": len(body)})
		respondServiceError(c, err, "import data")
		return
	}

	result, err := h.dataService.Import(c.Request.Context(), bundle)
	if err != nil {
		logServiceError(err, "ImportData: Error from dataService.Import", map[string]interface{}{})
		respondServiceError(c, err, "import data")
		return
	}
	c.JSON(http.StatusOK, result)
}

// BackupData uploads a JSON export to object storage.
func (h *DataHandler) BackupData(c *gin.Context) {
	result, err := h.dataService.Backup(c.Request.Context())
	if err != nil {
		logServiceError(err, "BackupData: Error from dataService.Backup", map[string]interface{}{})
		respondServiceError(c, err, "back up data")
		return
	}
	c.JSON(http.StatusCreated, result)
}
