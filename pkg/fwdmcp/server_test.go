package fwdmcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
	"github.com/txn2/keybusfwd/pkg/fwdmetrics"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
)

// mockAPI is an in-memory BridgeAPI
type mockAPI struct {
	info    types.InfoResponse
	status  types.StatusResponse
	lines   []state.LineEntry
	metrics types.MetricsResponse
	logs    []types.LogBufferEntry
	err     error

	lastLimit   int
	lastHistory int
	lastCount   int
	lastLevel   string
}

func (m *mockAPI) Info(ctx context.Context) (*types.InfoResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.info, nil
}

func (m *mockAPI) Status(ctx context.Context) (*types.StatusResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.status, nil
}

func (m *mockAPI) Lines(ctx context.Context, limit int) ([]state.LineEntry, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.lines, nil
}

func (m *mockAPI) Metrics(ctx context.Context, history int) (*types.MetricsResponse, error) {
	m.lastHistory = history
	if m.err != nil {
		return nil, m.err
	}
	return &m.metrics, nil
}

func (m *mockAPI) Logs(ctx context.Context, count int, level string) ([]types.LogBufferEntry, error) {
	m.lastCount = count
	m.lastLevel = level
	if m.err != nil {
		return nil, m.err
	}
	var out []types.LogBufferEntry
	for _, e := range m.logs {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out, nil
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		info: types.InfoResponse{Version: "1.2.3", ListenAddr: ":4025", DecoderKind: "replay", Uptime: "5m0s"},
		status: types.StatusResponse{
			Status:       "attached",
			BusConnected: true,
			Message:      "Client 192.0.2.7:5100 attached",
			Session: &state.SessionSnapshot{
				ID:          "4b0c",
				RemoteAddr:  "192.0.2.7:5100",
				ConnectedAt: time.Now().Add(-time.Minute),
				Keystrokes:  4,
			},
			Summary: state.SummaryStats{BusConnected: true, PanelEvents: 12, Keystrokes: 4, SessionsOpened: 1},
		},
		lines: []state.LineEntry{
			{Kind: "connection", Line: "    0.00: Keybus connected"},
			{Kind: "panel", Line: "    0.12: 00000101 [0x05] Status lights"},
			{Kind: "module", Line: "    0.20: 11111111 Keypad"},
			{Kind: "overflow", Line: "    3.00: Buffer overflow"},
		},
		metrics: types.MetricsResponse{
			Counters: fwdmetrics.Snapshot{LinesOut: 40, Keystrokes: 4, SessionsAccepted: 2, SessionsRejected: 1},
		},
		logs: []types.LogBufferEntry{
			{Level: "warning", Message: "Session write failed", Fields: map[string]string{"session": "4b0c"}},
			{Level: "info", Message: "Client attached"},
			{Level: "info", Message: "Listening on :4025"},
		},
	}
}

func TestNewServer(t *testing.T) {
	s := NewServer("1.0.0", "http://127.0.0.1:8080/api")
	if s.MCPServer() == nil {
		t.Fatal("Expected underlying MCP server")
	}
	if s.getAPI() != nil {
		t.Error("Expected no API before SetAPI")
	}

	api := newMockAPI()
	s.SetAPI(api)
	if s.getAPI() != api {
		t.Error("Expected SetAPI to store the client")
	}
}

func TestServer_RunStops(t *testing.T) {
	s := NewServer("1.0.0", "")
	_, serverTransport := mcp.NewInMemoryTransports()

	errCh := make(chan error, 1)
	go func() { errCh <- s.RunTransport(context.Background(), serverTransport) }()

	time.Sleep(20 * time.Millisecond)
	s.Stop()
	s.Stop()

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not stop")
	}
	<-errCh
}

func TestRequireAPI_Unavailable(t *testing.T) {
	s := NewServer("1.0.0", "http://127.0.0.1:9/api")
	_, err := s.requireAPI()

	var mcpErr *MCPError
	if !errors.As(err, &mcpErr) {
		t.Fatalf("Expected MCPError, got %v", err)
	}
	if mcpErr.Code != ErrCodeAPIUnavailable {
		t.Errorf("Expected %s, got %s", ErrCodeAPIUnavailable, mcpErr.Code)
	}
	if mcpErr.Context["api_url"] != "http://127.0.0.1:9/api" {
		t.Errorf("Expected api_url in context, got %v", mcpErr.Context)
	}
}
