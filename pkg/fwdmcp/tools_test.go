package fwdmcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
)

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if r == nil || len(r.Content) != 1 {
		t.Fatalf("Expected one content item, got %+v", r)
	}
	text, ok := r.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", r.Content[0])
	}
	return text.Text
}

func newToolServer() (*Server, *mockAPI) {
	s := NewServer("1.0.0", "http://127.0.0.1:8080/api")
	api := newMockAPI()
	s.SetAPI(api)
	return s, api
}

func TestHandleGetStatus(t *testing.T) {
	s, _ := newToolServer()

	res, data, err := s.handleGetStatus(context.Background(), nil, struct{}{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "attached") {
		t.Errorf("Unexpected text %q", text)
	}

	m := data.(map[string]interface{})
	if m["busConnected"] != true || m["panelEvents"] != uint64(12) {
		t.Errorf("Unexpected status data %v", m)
	}
	session, ok := m["session"].(map[string]interface{})
	if !ok || session["remoteAddr"] != "192.0.2.7:5100" {
		t.Errorf("Expected session details, got %v", m["session"])
	}
}

func TestHandleGetStatus_NoSession(t *testing.T) {
	s, api := newToolServer()
	api.status.Session = nil
	api.status.Status = "waiting"

	_, data, err := s.handleGetStatus(context.Background(), nil, struct{}{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := data.(map[string]interface{})["session"]; ok {
		t.Error("Expected no session key")
	}
}

func TestHandleGetRecentLines(t *testing.T) {
	tests := []struct {
		name      string
		input     GetRecentLinesInput
		wantLimit int
		wantCount int
	}{
		{"defaults", GetRecentLinesInput{}, defaultLineLimit, 4},
		{"capped", GetRecentLinesInput{Limit: 100000}, maxLineLimit, 4},
		{"panel only", GetRecentLinesInput{Limit: 10, Kind: "panel"}, 10, 1},
		{"kind case", GetRecentLinesInput{Kind: "Overflow"}, defaultLineLimit, 1},
		{"all", GetRecentLinesInput{Kind: "all"}, defaultLineLimit, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, api := newToolServer()
			res, data, err := s.handleGetRecentLines(context.Background(), nil, tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if api.lastLimit != tt.wantLimit {
				t.Errorf("Expected limit %d, got %d", tt.wantLimit, api.lastLimit)
			}
			m := data.(map[string]interface{})
			if m["count"] != tt.wantCount {
				t.Errorf("Expected %d lines, got %v", tt.wantCount, m["count"])
			}
			if lines := m["lines"].([]state.LineEntry); len(lines) > 0 {
				if !strings.Contains(resultText(t, res), lines[0].Line) {
					t.Error("Expected lines in text result")
				}
			}
		})
	}
}

func TestHandleGetRecentLines_BadKind(t *testing.T) {
	s, _ := newToolServer()
	_, _, err := s.handleGetRecentLines(context.Background(), nil, GetRecentLinesInput{Kind: "zones"})

	var mcpErr *MCPError
	if !errors.As(err, &mcpErr) || mcpErr.Code != ErrCodeInvalidInput {
		t.Errorf("Expected invalid input error, got %v", err)
	}
}

func TestHandleGetRecentLines_Empty(t *testing.T) {
	s, api := newToolServer()
	api.lines = nil

	res, _, err := s.handleGetRecentLines(context.Background(), nil, GetRecentLinesInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text := resultText(t, res); text != "No bus lines recorded yet" {
		t.Errorf("Unexpected text %q", text)
	}
}

func TestHandleGetMetrics(t *testing.T) {
	s, api := newToolServer()

	res, data, err := s.handleGetMetrics(context.Background(), nil, GetMetricsInput{History: 500})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if api.lastHistory != maxHistory {
		t.Errorf("Expected history capped at %d, got %d", maxHistory, api.lastHistory)
	}
	if data.(*types.MetricsResponse).Counters.LinesOut != 40 {
		t.Errorf("Unexpected metrics %+v", data)
	}
	if text := resultText(t, res); !strings.Contains(text, "40 lines out") || !strings.Contains(text, "1 refused") {
		t.Errorf("Unexpected text %q", text)
	}

	if _, _, err := s.handleGetMetrics(context.Background(), nil, GetMetricsInput{History: -1}); err == nil {
		t.Error("Expected error for negative history")
	}
}

func TestHandleGetLogs(t *testing.T) {
	tests := []struct {
		name      string
		input     GetLogsInput
		wantCount int
		wantLevel string
		wantAsked int
	}{
		{"defaults", GetLogsInput{}, 3, "", defaultLogCount},
		{"capped", GetLogsInput{Count: 9999}, 3, "", maxLogCount},
		{"level", GetLogsInput{Level: "info"}, 2, "info", defaultLogCount},
		{"warn alias", GetLogsInput{Level: "warn"}, 1, "warning", defaultLogCount},
		{"all", GetLogsInput{Level: "all"}, 3, "", defaultLogCount},
		{"search", GetLogsInput{Search: "ATTACHED"}, 1, "", defaultLogCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, api := newToolServer()
			_, data, err := s.handleGetLogs(context.Background(), nil, tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if api.lastLevel != tt.wantLevel || api.lastCount != tt.wantAsked {
				t.Errorf("Expected API asked for %d/%q, got %d/%q", tt.wantAsked, tt.wantLevel, api.lastCount, api.lastLevel)
			}
			if got := data.(map[string]interface{})["count"]; got != tt.wantCount {
				t.Errorf("Expected %d entries, got %v", tt.wantCount, got)
			}
		})
	}
}

func TestHandleGetInfo(t *testing.T) {
	s, _ := newToolServer()

	res, data, err := s.handleGetInfo(context.Background(), nil, struct{}{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if data.(*types.InfoResponse).DecoderKind != "replay" {
		t.Errorf("Unexpected info %+v", data)
	}
	if text := resultText(t, res); !strings.Contains(text, ":4025") {
		t.Errorf("Unexpected text %q", text)
	}
}

func TestTools_APIErrorsClassified(t *testing.T) {
	s, api := newToolServer()
	api.err = errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")

	calls := map[string]func() error{
		"get_status": func() error {
			_, _, err := s.handleGetStatus(context.Background(), nil, struct{}{})
			return err
		},
		"get_recent_lines": func() error {
			_, _, err := s.handleGetRecentLines(context.Background(), nil, GetRecentLinesInput{})
			return err
		},
		"get_metrics": func() error {
			_, _, err := s.handleGetMetrics(context.Background(), nil, GetMetricsInput{})
			return err
		},
		"get_logs": func() error {
			_, _, err := s.handleGetLogs(context.Background(), nil, GetLogsInput{})
			return err
		},
		"get_info": func() error {
			_, _, err := s.handleGetInfo(context.Background(), nil, struct{}{})
			return err
		},
	}

	for name, call := range calls {
		var mcpErr *MCPError
		if err := call(); !errors.As(err, &mcpErr) || mcpErr.Code != ErrCodeAPIUnavailable {
			t.Errorf("%s: expected api_unavailable, got %v", name, err)
		}
	}
}

func TestTools_NoAPI(t *testing.T) {
	s := NewServer("1.0.0", "http://127.0.0.1:8080/api")
	if _, _, err := s.handleGetStatus(context.Background(), nil, struct{}{}); err == nil {
		t.Error("Expected error without an API client")
	}
	if _, _, err := s.handleGetLogs(context.Background(), nil, GetLogsInput{}); err == nil {
		t.Error("Expected error without an API client")
	}
}
