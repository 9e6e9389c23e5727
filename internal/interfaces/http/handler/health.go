package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/stocktake/backend/internal/infrastructure/persistence"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	BaseHandler
	db      *persistence.Database
	version string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *persistence.Database, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// RegisterRoutes registers health routes on the API group
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// HealthResponse reports service liveness and its dependencies
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// Health reports whether the service and its database are reachable
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Version: h.version, Database: "ok"}
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
		}
	}
	h.Success(c, resp)
}
