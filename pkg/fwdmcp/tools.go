package fwdmcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
)

const (
	defaultLineLimit = 50
	maxLineLimit     = 1000
	defaultLogCount  = 50
	maxLogCount      = 500
	maxHistory       = 60
)

// Tool input types

type GetRecentLinesInput struct {
	Limit int    `json:"limit,omitempty" jsonschema:"Number of bus lines to return, oldest first (default: 50, max: 1000)"`
	Kind  string `json:"kind,omitempty" jsonschema:"Filter by line kind: panel, module, connection, overflow, or all"`
}

type GetMetricsInput struct {
	History int `json:"history,omitempty" jsonschema:"Number of per-second rate samples to include (default: 0, max: 60)"`
}

type GetLogsInput struct {
	Count  int    `json:"count,omitempty" jsonschema:"Number of log entries to return (default: 50, max: 500)"`
	Level  string `json:"level,omitempty" jsonschema:"Filter by log level: debug, info, warning, error, or all"`
	Search string `json:"search,omitempty" jsonschema:"Search term to filter log messages"`
}

var lineKinds = map[string]bool{"panel": true, "module": true, "connection": true, "overflow": true}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_status",
		Description: "Get the bridge state: whether the Keybus is connected, whether a telnet client is attached (and who), and event counters.",
	}, s.handleGetStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_recent_lines",
		Description: "Get recent decoded Keybus lines exactly as the telnet client sees them: timestamp, binary frame, command and message. Filter by kind.",
	}, s.handleGetRecentLines)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_metrics",
		Description: "Get bridge counters (lines, bytes, keystrokes, overflows, sessions) and per-second rates, optionally with rate history.",
	}, s.handleGetMetrics)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_logs",
		Description: "Get recent keybusfwd log entries, most recent first. Filter by level or search text.",
	}, s.handleGetLogs)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_info",
		Description: "Get keybusfwd runtime information: version, telnet listen address, decoder source and decoder options.",
	}, s.handleGetInfo)
}

func (s *Server) requireAPI() (BridgeAPI, error) {
	api := s.getAPI()
	if api == nil {
		return nil, NewAPIUnavailableError(s.apiURL, nil)
	}
	return api, nil
}

func textResult(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

func (s *Server) handleGetStatus(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	api, err := s.requireAPI()
	if err != nil {
		return nil, nil, err
	}

	status, err := api.Status(ctx)
	if err != nil {
		return nil, nil, ClassifyError(err, s.apiURL, "get_status")
	}

	result := map[string]interface{}{
		"status":         status.Status,
		"busConnected":   status.BusConnected,
		"panelEvents":    status.Summary.PanelEvents,
		"moduleEvents":   status.Summary.ModuleEvents,
		"overflows":      status.Summary.Overflows,
		"keystrokes":     status.Summary.Keystrokes,
		"sessionsOpened": status.Summary.SessionsOpened,
	}
	if status.Session != nil {
		result["session"] = map[string]interface{}{
			"id":          status.Session.ID,
			"remoteAddr":  status.Session.RemoteAddr,
			"connectedAt": status.Session.ConnectedAt,
			"attachedFor": time.Since(status.Session.ConnectedAt).Round(time.Second).String(),
			"keystrokes":  status.Session.Keystrokes,
		}
	}

	return textResult("keybusfwd %s: %s", status.Status, status.Message), result, nil
}

func (s *Server) handleGetRecentLines(ctx context.Context, req *mcp.CallToolRequest, input GetRecentLinesInput) (*mcp.CallToolResult, any, error) {
	kind := strings.ToLower(input.Kind)
	if kind != "" && kind != "all" && !lineKinds[kind] {
		return nil, nil, NewInvalidInputError("kind", input.Kind, "one of panel, module, connection, overflow, all")
	}

	api, err := s.requireAPI()
	if err != nil {
		return nil, nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultLineLimit
	}
	if limit > maxLineLimit {
		limit = maxLineLimit
	}

	lines, err := api.Lines(ctx, limit)
	if err != nil {
		return nil, nil, ClassifyError(err, s.apiURL, "get_recent_lines")
	}

	filtered := make([]state.LineEntry, 0, len(lines))
	var text strings.Builder
	for _, l := range lines {
		if kind != "" && kind != "all" && l.Kind != kind {
			continue
		}
		filtered = append(filtered, l)
		text.WriteString(l.Line)
		text.WriteByte('\n')
	}

	result := map[string]interface{}{
		"lines": filtered,
		"count": len(filtered),
	}
	if len(filtered) == 0 {
		return textResult("No bus lines recorded yet"), result, nil
	}
	return textResult("%d bus lines:\n%s", len(filtered), text.String()), result, nil
}

func (s *Server) handleGetMetrics(ctx context.Context, req *mcp.CallToolRequest, input GetMetricsInput) (*mcp.CallToolResult, any, error) {
	if input.History < 0 {
		return nil, nil, NewInvalidInputError("history", fmt.Sprint(input.History), "zero or a positive number of samples")
	}

	api, err := s.requireAPI()
	if err != nil {
		return nil, nil, err
	}

	history := input.History
	if history > maxHistory {
		history = maxHistory
	}

	metrics, err := api.Metrics(ctx, history)
	if err != nil {
		return nil, nil, ClassifyError(err, s.apiURL, "get_metrics")
	}

	c := metrics.Counters
	return textResult("%d lines out (%.1f/s), %d keystrokes, %d overflows, %d sessions accepted, %d refused",
		c.LinesOut, c.LineRate, c.Keystrokes, c.Overflows, c.SessionsAccepted, c.SessionsRejected), metrics, nil
}

func (s *Server) handleGetLogs(ctx context.Context, req *mcp.CallToolRequest, input GetLogsInput) (*mcp.CallToolResult, any, error) {
	api, err := s.requireAPI()
	if err != nil {
		return nil, nil, err
	}

	count := input.Count
	if count <= 0 {
		count = defaultLogCount
	}
	if count > maxLogCount {
		count = maxLogCount
	}

	level := strings.ToLower(input.Level)
	if level == "all" {
		level = ""
	}
	if level == "warn" {
		level = "warning"
	}

	entries, err := api.Logs(ctx, count, level)
	if err != nil {
		return nil, nil, ClassifyError(err, s.apiURL, "get_logs")
	}

	search := strings.ToLower(input.Search)
	var filtered []map[string]interface{}
	for _, e := range entries {
		if search != "" && !strings.Contains(strings.ToLower(e.Message), search) {
			continue
		}
		entry := map[string]interface{}{
			"timestamp": e.Timestamp,
			"level":     e.Level,
			"message":   e.Message,
		}
		if len(e.Fields) > 0 {
			entry["fields"] = e.Fields
		}
		filtered = append(filtered, entry)
	}

	result := map[string]interface{}{
		"logs":  filtered,
		"count": len(filtered),
	}
	return textResult("Retrieved %d log entries", len(filtered)), result, nil
}

func (s *Server) handleGetInfo(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	api, err := s.requireAPI()
	if err != nil {
		return nil, nil, err
	}

	info, err := api.Info(ctx)
	if err != nil {
		return nil, nil, ClassifyError(err, s.apiURL, "get_info")
	}

	return textResult("keybusfwd %s on %s, decoder %s, up %s",
		info.Version, info.ListenAddr, info.DecoderKind, info.Uptime), info, nil
}
