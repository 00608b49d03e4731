package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
	"github.com/txn2/keybusfwd/pkg/fwdtui/events"
)

const wsWriteTimeout = 5 * time.Second

// EventsHandler handles event streaming endpoints
type EventsHandler struct {
	streamer  types.EventStreamer
	keepalive time.Duration
	upgrader  websocket.Upgrader
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(streamer types.EventStreamer) *EventsHandler {
	return &EventsHandler{
		streamer:  streamer,
		keepalive: 30 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// read-only monitoring stream, same policy as the CORS middleware
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// subscribe honours the optional ?type= filter
func (h *EventsHandler) subscribe(c *gin.Context) (<-chan events.Event, func(), bool) {
	if filter := c.Query("type"); filter != "" {
		eventType, ok := parseEventType(filter)
		if !ok {
			c.JSON(http.StatusBadRequest, types.Response{
				Success: false,
				Error: &types.ErrorInfo{
					Code:    "BAD_EVENT_TYPE",
					Message: "Unknown event type " + filter,
				},
			})
			return nil, nil, false
		}
		ch, cancel := h.streamer.SubscribeType(eventType)
		return ch, cancel, true
	}
	ch, cancel := h.streamer.Subscribe()
	return ch, cancel, true
}

// Stream provides Server-Sent Events for real-time event updates
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.streamer == nil {
		c.JSON(http.StatusServiceUnavailable, types.NotReady("Event streamer"))
		return
	}

	eventCh, cancel, ok := h.subscribe(c)
	if !ok {
		return
	}
	defer cancel()

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering

	// Send initial comment to flush headers and confirm connection
	_, _ = c.Writer.WriteString(": connected\n\n")
	c.Writer.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-eventCh:
			if !ok {
				return false
			}
			jsonData, err := json.Marshal(mapEventToResponse(event))
			if err != nil {
				return true // Skip malformed events
			}
			_, _ = fmt.Fprintf(w, "event: %s\n", event.Type.String())
			_, _ = fmt.Fprintf(w, "data: %s\n\n", jsonData)
			return true

		case <-keepalive.C:
			_, _ = fmt.Fprintf(w, ": keepalive\n\n")
			return true

		case <-c.Request.Context().Done():
			return false
		}
	})
}

// WebSocket streams the same events as JSON text messages
func (h *EventsHandler) WebSocket(c *gin.Context) {
	if h.streamer == nil {
		c.JSON(http.StatusServiceUnavailable, types.NotReady("Event streamer"))
		return
	}

	eventCh, cancel, ok := h.subscribe(c)
	if !ok {
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debugf("WebSocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()
	log.Debugf("WebSocket client connected: %s", c.Request.RemoteAddr)

	// The client never sends anything useful; reading detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-eventCh:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(mapEventToResponse(event)); err != nil {
				return
			}
		case <-keepalive.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-gone:
			log.Debugf("WebSocket client disconnected: %s", c.Request.RemoteAddr)
			return
		}
	}
}

// mapEventToResponse converts an event to an API response
func mapEventToResponse(e events.Event) types.EventResponse {
	data := map[string]interface{}{}

	switch {
	case e.Type.IsBus():
		data["line"] = e.Line
		data["elapsedMs"] = e.Elapsed.Milliseconds()
		if e.Binary != "" {
			data["binary"] = e.Binary
		}
		if e.Command != "" {
			data["command"] = e.Command
		}
		if e.Message != "" {
			data["message"] = e.Message
		}
		if e.Type == events.BusConnectionChanged {
			data["connected"] = e.Connected
		}
	case e.Type == events.LogMessage:
		data["level"] = e.LogLevel.String()
		data["message"] = e.LogMessage
	}

	if e.SessionID != "" {
		data["sessionId"] = e.SessionID
	}
	if e.RemoteAddr != "" {
		data["remoteAddr"] = e.RemoteAddr
	}
	if e.Type == events.KeystrokeInjected {
		data["key"] = string([]byte{e.Key})
	}

	return types.EventResponse{
		Type:      e.Type.String(),
		Timestamp: e.Timestamp,
		Data:      data,
	}
}

// parseEventType converts a string to an EventType
func parseEventType(s string) (events.EventType, bool) {
	for t := events.PanelEvent; t <= events.ShutdownStarted; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}
