// Package api exposes the verdict pipeline over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/selimozcann/qrlens/internal/logger"
	"github.com/selimozcann/qrlens/internal/model"
	"github.com/selimozcann/qrlens/internal/output"
)

// MaxBatch caps the number of URLs in one batch request.
const MaxBatch = 100

// Analyzer runs the verdict pipeline for one URL.
type Analyzer interface {
	Analyze(ctx context.Context, url string) model.Report
}

// BatchRunner analyses many URLs, keeping input order.
type BatchRunner interface {
	Run(ctx context.Context, targets []string) ([]model.Report, error)
}

// Status describes optional components for the health endpoint.
type Status struct {
	ModelLoaded       bool   `json:"model_loaded"`
	ModelVersion      string `json:"model_version,omitempty"`
	ReputationEnabled bool   `json:"reputation_enabled"`
}

// Handler handles HTTP requests for the qrlens API.
type Handler struct {
	analyzer Analyzer
	runner   BatchRunner
	status   Status
	logger   logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(a Analyzer, r BatchRunner, status Status, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{analyzer: a, runner: r, status: status, logger: log}
}

// CheckRequest is the body of POST /api/v1/check.
type CheckRequest struct {
	URL string `json:"url" binding:"required"`
}

// BatchCheckRequest is the body of POST /api/v1/check/batch.
type BatchCheckRequest struct {
	URLs []string `json:"urls" binding:"required,min=1,max=100,dive,required"`
}

// BatchCheckResponse summarises a batch.
type BatchCheckResponse struct {
	Reports []model.Report `json:"reports"`
	Total   int            `json:"total"`
	Risky   int            `json:"risky"`
	Error   string         `json:"error,omitempty"`
}

// Check handles POST /api/v1/check. With ?format=text the report is
// rendered as plain text.
func (h *Handler) Check(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid check request", logger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rep := h.analyzer.Analyze(c.Request.Context(), req.URL)
	if c.Query("format") == "text" {
		c.String(http.StatusOK, output.FormatText(rep))
		return
	}
	c.JSON(http.StatusOK, rep)
}

// CheckBatch handles POST /api/v1/check/batch.
func (h *Handler) CheckBatch(c *gin.Context) {
	var req BatchCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid batch request", logger.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reports, err := h.runner.Run(c.Request.Context(), req.URLs)
	resp := BatchCheckResponse{
		Reports: reports,
		Total:   len(reports),
		Risky:   output.BuildSummary(reports).Risky(),
	}
	if err != nil {
		h.logger.Error("batch check interrupted", logger.Int("done", len(reports)), logger.Error(err))
		resp.Error = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"model_loaded":       h.status.ModelLoaded,
		"model_version":      h.status.ModelVersion,
		"reputation_enabled": h.status.ReputationEnabled,
	})
}
