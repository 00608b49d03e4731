package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
)

// HealthHandler handles health and info endpoints
type HealthHandler struct {
	version    string
	startTime  time.Time
	getManager func() types.ManagerInfo
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, startTime time.Time, getManager func() types.ManagerInfo) *HealthHandler {
	return &HealthHandler{
		version:    version,
		startTime:  startTime,
		getManager: getManager,
	}
}

// Root provides API welcome/discovery
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "keybusfwd API",
		"version": h.version,
		"endpoints": gin.H{
			"health":  "/api/health",
			"info":    "/api/info",
			"status":  "/api/v1/status",
			"lines":   "/api/v1/lines",
			"metrics": "/api/v1/metrics",
			"logs":    "/api/v1/logs",
			"events":  "/api/v1/events (SSE), /api/v1/events/ws (WebSocket)",
		},
	})
}

// Health returns health status
func (h *HealthHandler) Health(c *gin.Context) {
	uptime := time.Since(h.startTime)

	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    uptime.Round(time.Second).String(),
		Timestamp: time.Now(),
	})
}

// Info returns detailed runtime information
func (h *HealthHandler) Info(c *gin.Context) {
	response := types.InfoResponse{}
	if h.getManager != nil {
		if m := h.getManager(); m != nil {
			response = m.Info()
		}
	}

	response.Version = h.version
	response.GoVersion = runtime.Version()
	response.Platform = runtime.GOOS + "/" + runtime.GOARCH
	response.StartTime = h.startTime
	response.Uptime = time.Since(h.startTime).Round(time.Second).String()
	response.APIEnabled = true

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    response,
		Meta: &types.MetaInfo{
			Timestamp: time.Now(),
		},
	})
}
