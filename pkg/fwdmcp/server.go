// Package fwdmcp provides an MCP (Model Context Protocol) server for
// keybusfwd. It runs as its own process on stdio and reads bridge state
// from a running keybusfwd through the REST API, so assistants can watch
// the bus without attaching to the single telnet session.
package fwdmcp

import (
	"context"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/keybusfwd/pkg/fwdapi/types"
	"github.com/txn2/keybusfwd/pkg/fwdtui/state"
)

// BridgeAPI is the read-only view of a running bridge the tools work from
type BridgeAPI interface {
	Info(ctx context.Context) (*types.InfoResponse, error)
	Status(ctx context.Context) (*types.StatusResponse, error)
	Lines(ctx context.Context, limit int) ([]state.LineEntry, error)
	Metrics(ctx context.Context, history int) (*types.MetricsResponse, error)
	Logs(ctx context.Context, count int, level string) ([]types.LogBufferEntry, error)
}

// Server manages the MCP server lifecycle
type Server struct {
	mcpServer *mcp.Server
	version   string
	apiURL    string

	api BridgeAPI

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
	mu       sync.RWMutex
}

// NewServer creates the MCP server with every tool, resource and prompt
// registered. Tools report a helpful error until SetAPI is called.
func NewServer(version, apiURL string) *Server {
	s := &Server{
		version: version,
		apiURL:  apiURL,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "keybusfwd",
		Version: version,
	}, nil)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// SetAPI sets the bridge API client
func (s *Server) SetAPI(api BridgeAPI) {
	s.mu.Lock()
	s.api = api
	s.mu.Unlock()
}

func (s *Server) getAPI() BridgeAPI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api
}

// MCPServer exposes the underlying server, mainly for in-memory transports
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Run serves MCP on stdio until ctx is cancelled, Stop is called or the
// client goes away.
func (s *Server) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves MCP on the given transport
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	defer close(s.doneCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	return s.mcpServer.Run(runCtx, t)
}

// Stop signals the server to stop
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Done returns a channel that closes when the server stops
func (s *Server) Done() <-chan struct{} {
	return s.doneCh
}
