package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/models"
	"github.com/billdesk/bill-audit/internal/service"
)

// AuditRunner triggers a full audit run.
type AuditRunner interface {
	Run(ctx context.Context) (*service.RunResult, error)
}

// ExtractRunner triggers the extraction pipeline.
type ExtractRunner interface {
	Run(ctx context.Context) error
}

// RunStore reads persisted audit run artifacts.
type RunStore interface {
	GroupsByRun(runID int64) ([]models.DecisionGroup, error)
	RunDecision(runID int64) (string, error)
}

// EmployeeStore manages employee reference records.
type EmployeeStore interface {
	Upsert(ref *models.EmployeeReference) error
	List() ([]models.EmployeeReference, error)
}

// Handlers contains all HTTP request handlers.
type Handlers struct {
	audits    AuditRunner
	extractor ExtractRunner
	runs      RunStore
	employees EmployeeStore
	logger    *zap.Logger
}

// NewHandlers creates a Handlers instance.
func NewHandlers(audits AuditRunner, extractor ExtractRunner, runs RunStore, employees EmployeeStore, logger *zap.Logger) *Handlers {
	return &Handlers{
		audits:    audits,
		extractor: extractor,
		runs:      runs,
		employees: employees,
		logger:    logger,
	}
}

// Response is the standard JSON envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// TriggerExtraction handles POST /api/v1/extractions. Extraction is
// synchronous: the response arrives when every folder is processed.
func (h *Handlers) TriggerExtraction(c *gin.Context) {
	if err := h.extractor.Run(c.Request.Context()); err != nil {
		h.logger.Error("Extraction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// TriggerAudit handles POST /api/v1/audits.
func (h *Handlers) TriggerAudit(c *gin.Context) {
	result, err := h.audits.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("Audit run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// GetRunGroups handles GET /api/v1/audits/:id/groups.
func (h *Handlers) GetRunGroups(c *gin.Context) {
	runID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid run id"})
		return
	}

	groups, err := h.runs.GroupsByRun(runID)
	if err != nil {
		h.logger.Error("Failed to load groups", zap.Int64("run_id", runID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: groups})
}

// GetRunDecision handles GET /api/v1/audits/:id/decision.
func (h *Handlers) GetRunDecision(c *gin.Context) {
	runID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid run id"})
		return
	}

	decision, err := h.runs.RunDecision(runID)
	if err != nil {
		h.logger.Error("Failed to load decision", zap.Int64("run_id", runID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"run_id": runID, "decision": decision}})
}

// ListEmployees handles GET /api/v1/employees.
func (h *Handlers) ListEmployees(c *gin.Context) {
	employees, err := h.employees.List()
	if err != nil {
		h.logger.Error("Failed to list employees", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: employees})
}

// UpsertEmployee handles PUT /api/v1/employees/:id. The id in the path
// wins over any id in the body.
func (h *Handlers) UpsertEmployee(c *gin.Context) {
	var ref models.EmployeeReference
	if err := c.ShouldBindJSON(&ref); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	ref.EmployeeID = c.Param("id")

	if err := ref.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	if err := h.employees.Upsert(&ref); err != nil {
		h.logger.Error("Failed to upsert employee", zap.String("emp_id", ref.EmployeeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ref})
}
