package fwdmcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
)

// registerResources registers all MCP resources
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "keybusfwd://status",
		Name:        "Bridge Status",
		Description: "Keybus connection state, the attached telnet client and event counters",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "keybusfwd://lines",
		Name:        "Recent Bus Lines",
		Description: "The most recent decoded Keybus lines as plain text, oldest first",
		MIMEType:    "text/plain",
	}, s.handleLinesResource)
}

func (s *Server) handleStatusResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	api, err := s.requireAPI()
	if err != nil {
		return nil, err
	}

	status, err := api.Status(ctx)
	if err != nil {
		return nil, ClassifyError(err, s.apiURL, "read status")
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal status")
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleLinesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	api, err := s.requireAPI()
	if err != nil {
		return nil, err
	}

	lines, err := api.Lines(ctx, defaultLineLimit*2)
	if err != nil {
		return nil, ClassifyError(err, s.apiURL, "read lines")
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.Line)
		b.WriteByte('\n')
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     b.String(),
		}},
	}, nil
}
