package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	predictor     Predictor
	artefactsPath string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(predictor Predictor, artefactsPath string) *HealthHandler {
	return &HealthHandler{
		predictor:     predictor,
		artefactsPath: artefactsPath,
	}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string `json:"status"`
	Artefacts string `json:"artefacts"`
	NumLabels int    `json:"n_labels"`
}

// Health handles GET /health. It is unhealthy until a model with at least
// one label is loaded.
func (h *HealthHandler) Health(c *gin.Context) {
	status := HealthStatus{Status: "healthy", Artefacts: h.artefactsPath}
	if h.predictor != nil {
		status.NumLabels = len(h.predictor.LabelList())
	}

	httpStatus := http.StatusOK
	if status.NumLabels == 0 {
		status.Status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, status)
}
