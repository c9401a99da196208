package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/payroll-preview/internal/application/port"
	"github.com/garyjia/payroll-preview/internal/application/service"
	"github.com/garyjia/payroll-preview/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	previewService service.PreviewService
	exporter       port.PreviewExporter
	logger         Logger
}

// NewHandlers creates a new Handlers instance.
// exporter may be nil, in which case the export route answers 503.
func NewHandlers(
	previewService service.PreviewService,
	exporter port.PreviewExporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		previewService: previewService,
		exporter:       exporter,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// PreviewResponse is the month preview payload
type PreviewResponse struct {
	Month     string                  `json:"month"`
	Employees []entity.EmployeeRecord `json:"employees"`
	Total     int                     `json:"total"`
	FromCache bool                    `json:"fromCache"`
}

// DetailStatusResponse reports the detail state of one employee row
type DetailStatusResponse struct {
	EmployeeID     string `json:"employeeId"`
	Month          string `json:"month"`
	HasFullDetail  bool   `json:"hasFullDetail"`
	LoadingDetails bool   `json:"loadingDetails"`
}

// ExportResponse is returned after a spreadsheet export
type ExportResponse struct {
	Month     string `json:"month"`
	FilePath  string `json:"filePath"`
	Employees int    `json:"employees"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// GetPreview handles GET /api/preview/:month
func (h *Handlers) GetPreview(c *gin.Context) {
	month := c.Param("month")
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	result, err := h.previewService.LoadPreview(c.Request.Context(), month, refresh)
	if err != nil {
		h.logger.Error("Failed to load preview", "month", month, "error", err)
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: PreviewResponse{
			Month:     month,
			Employees: result.Employees,
			Total:     result.Total,
			FromCache: result.FromCache,
		},
	})
}

// GetEmployeeDetail handles GET /api/preview/:month/employees/:id
func (h *Handlers) GetEmployeeDetail(c *gin.Context) {
	month := c.Param("month")
	id := c.Param("id")

	if _, ok := h.loadMonth(c, month); !ok {
		return
	}

	record, err := h.previewService.LoadEmployeeDetail(c.Request.Context(), month, id)
	if err != nil {
		h.logger.Error("Failed to load employee detail", "month", month, "employee_id", id, "error", err)
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    record,
	})
}

// GetDetailStatus handles GET /api/preview/:month/employees/:id/status
func (h *Handlers) GetDetailStatus(c *gin.Context) {
	month := c.Param("month")
	id := c.Param("id")

	if _, ok := h.loadMonth(c, month); !ok {
		return
	}

	status, found := h.previewService.DetailStatus(month, id)
	if !found {
		h.writeError(c, entity.ErrEmployeeNotFound)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: DetailStatusResponse{
			EmployeeID:     id,
			Month:          month,
			HasFullDetail:  status.HasFullDetail,
			LoadingDetails: status.Loading,
		},
	})
}

// ExportPreview handles POST /api/preview/:month/export
func (h *Handlers) ExportPreview(c *gin.Context) {
	month := c.Param("month")
	if h.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, Response{
			Success: false,
			Error:   "export is not configured",
		})
		return
	}

	result, ok := h.loadMonth(c, month)
	if !ok {
		return
	}

	path, err := h.exporter.Export(c.Request.Context(), month, result.Employees)
	if err != nil {
		h.logger.Error("Export failed", "month", month, "error", err)
		h.writeError(c, err)
		return
	}

	h.logger.Info("Preview exported", "month", month, "path", path)
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ExportResponse{
			Month:     month,
			FilePath:  path,
			Employees: len(result.Employees),
		},
	})
}

// loadMonth loads month through the cache so its entry exists for the
// month-scoped routes. It writes the error response and returns false on failure.
func (h *Handlers) loadMonth(c *gin.Context, month string) (*entity.PreviewResult, bool) {
	result, err := h.previewService.LoadPreview(c.Request.Context(), month, false)
	if err != nil {
		h.logger.Error("Failed to load month", "month", month, "error", err)
		h.writeError(c, err)
		return nil, false
	}
	return result, true
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), Response{
		Success: false,
		Error:   err.Error(),
	})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrInvalidMonth):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrEmployeeNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrSuperseded):
		return http.StatusConflict
	case entity.IsTransportError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
