package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
)

// LogsHandler handles the system log buffer endpoints
type LogsHandler struct {
	getBuffer func() types.LogBufferProvider
}

// NewLogsHandler creates a new logs handler
func NewLogsHandler(getBuffer func() types.LogBufferProvider) *LogsHandler {
	return &LogsHandler{
		getBuffer: getBuffer,
	}
}

func (h *LogsHandler) buffer() types.LogBufferProvider {
	if h.getBuffer == nil {
		return nil
	}
	return h.getBuffer()
}

// Recent returns recent log entries, most recent first
func (h *LogsHandler) Recent(c *gin.Context) {
	buf := h.buffer()
	if buf == nil {
		c.JSON(http.StatusServiceUnavailable, types.NotReady("Log buffer"))
		return
	}

	count, err := strconv.Atoi(c.DefaultQuery("count", "100"))
	if err != nil || count < 1 {
		count = 100
	}
	if count > 1000 {
		count = 1000
	}

	level := c.Query("level")
	entries := buf.GetLast(count)
	logs := make([]types.LogBufferEntry, 0, len(entries))
	for _, e := range entries {
		if level != "" && e.Level != level {
			continue
		}
		logs = append(logs, e)
	}

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    types.LogsResponse{Logs: logs},
		Meta: &types.MetaInfo{
			Count:     len(logs),
			Timestamp: time.Now(),
		},
	})
}

// Clear empties the log buffer
func (h *LogsHandler) Clear(c *gin.Context) {
	buf := h.buffer()
	if buf == nil {
		c.JSON(http.StatusServiceUnavailable, types.NotReady("Log buffer"))
		return
	}

	cleared := buf.Count()
	buf.Clear()

	c.JSON(http.StatusOK, types.Response{
		Success: true,
		Data:    gin.H{"cleared": cleared},
		Meta: &types.MetaInfo{
			Timestamp: time.Now(),
		},
	})
}
