package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
)

const (
	defaultLineLimit = 100
	maxLineLimit     = 1000
)

// BridgeHandler serves bridge status, recent lines and counters
type BridgeHandler struct {
	state     types.StateReader
	metrics   types.MetricsProvider
	startTime time.Time
}

// NewBridgeHandler creates a new bridge handler
func NewBridgeHandler(state types.StateReader, metrics types.MetricsProvider, startTime time.Time) *BridgeHandler {
	return &BridgeHandler{
		state:     state,
		metrics:   metrics,
		startTime: startTime,
	}
}

// Status returns bus and session state with a one line summary
func (h *BridgeHandler) Status(c *gin.Context) {
	if h.state == nil {
		c.JSON(http.StatusServiceUnavailable, types.NotReady("State store"))
		return
	}

	summary := h.state.GetSummary()
	resp := types.StatusResponse{
		BusConnected: summary.BusConnected,
		Session:      summary.Session,
		Summary:      summary,
	}

	switch {
	case !summary.BusConnected:
		resp.Status = "bus-down"
		resp.Message = "Keybus is not connected"
	case summary.Session != nil:
		resp.Status = "attached"
		resp.Message = "Client " + summary.Session.RemoteAddr + " attached"
	default:
		resp.Status = "waiting"
		resp.Message = "Keybus connected, waiting for a client"
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    resp,
		Meta: &types.MetaInfo{
			Timestamp: time.Now(),
		},
	})
}

// Lines returns recent bus lines, oldest first
func (h *BridgeHandler) Lines(c *gin.Context) {
	if h.state == nil {
		c.JSON(http.StatusServiceUnavailable, types.NotReady("State store"))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLineLimit)))
	if err != nil || limit < 1 {
		limit = defaultLineLimit
	}
	if limit > maxLineLimit {
		limit = maxLineLimit
	}

	lines := h.state.GetLines(limit)
	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    types.LinesResponse{Lines: lines},
		Meta: &types.MetaInfo{
			Count:     len(lines),
			Timestamp: time.Now(),
		},
	})
}

// Metrics returns counters, rates and recent rate history
func (h *BridgeHandler) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, types.NotReady("Metrics provider"))
		return
	}

	history, err := strconv.Atoi(c.DefaultQuery("history", "0"))
	if err != nil || history < 0 {
		history = 0
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data: types.MetricsResponse{
			Counters: h.metrics.Snapshot(),
			History:  h.metrics.GetHistory(history),
			Uptime:   time.Since(h.startTime).Round(time.Second).String(),
		},
		Meta: &types.MetaInfo{
			Timestamp: time.Now(),
		},
	})
}
