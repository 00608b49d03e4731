package fwdapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/txn2/keybusfwd/pkg/fwdapi/handlers"
	"github.com/txn2/keybusfwd/pkg/fwdapi/middleware"
	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
)

// setupRouter creates and configures the Gin router with all routes
// URL structure:
//   - /api          - discovery
//   - /api/health   - liveness
//   - /api/info     - runtime information
//   - /api/v1/...   - bridge state, lines, metrics, logs and event streams
func (m *Manager) setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.NoCache())
	r.Use(middleware.ErrorHandler())

	// unknown paths get the same JSON envelope as handler errors
	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(errors.Errorf("no route for %s %s", c.Request.Method, c.Request.URL.Path))
		c.Status(http.StatusNotFound)
	})

	getManager := func() types.ManagerInfo { return m }

	api := r.Group("/api")
	{
		healthHandler := handlers.NewHealthHandler(m.cfg.Version, m.startTime, getManager)
		api.GET("", healthHandler.Root)
		api.GET("/health", healthHandler.Health)
		api.GET("/info", healthHandler.Info)

		v1 := api.Group("/v1")
		{
			bridgeHandler := handlers.NewBridgeHandler(m.stateReader, m.metricsProvider, m.startTime)
			v1.GET("/status", bridgeHandler.Status)
			v1.GET("/lines", bridgeHandler.Lines)
			v1.GET("/metrics", bridgeHandler.Metrics)

			logsHandler := handlers.NewLogsHandler(GetLogBufferProvider)
			v1.GET("/logs", logsHandler.Recent)
			v1.DELETE("/logs", logsHandler.Clear)

			eventsHandler := handlers.NewEventsHandler(m.eventStreamer)
			v1.GET("/events", eventsHandler.Stream)
			v1.GET("/events/ws", eventsHandler.WebSocket)
		}
	}

	return r
}
