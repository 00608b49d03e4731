package fwdmcp

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func promptText(t *testing.T, r *mcp.GetPromptResult) string {
	t.Helper()
	if r == nil || len(r.Messages) != 1 {
		t.Fatalf("Expected one message, got %+v", r)
	}
	if r.Messages[0].Role != "user" {
		t.Errorf("Expected user role, got %s", r.Messages[0].Role)
	}
	return r.Messages[0].Content.(*mcp.TextContent).Text
}

func TestHandleExplainStatusPrompt(t *testing.T) {
	s := NewServer("1.0.0", "")
	res, err := s.handleExplainStatusPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "explain_status"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text := promptText(t, res); !strings.Contains(text, "get_status") {
		t.Error("Expected prompt to reference get_status")
	}
}

func TestHandleTroubleshootBusPrompt(t *testing.T) {
	s := NewServer("1.0.0", "")

	res, err := s.handleTroubleshootBusPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "troubleshoot_bus"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	text := promptText(t, res)
	if strings.Contains(text, "reported symptom") {
		t.Error("Expected no symptom section without an argument")
	}
	for _, tool := range []string{"get_status", "get_recent_lines", "get_metrics", "get_logs"} {
		if !strings.Contains(text, tool) {
			t.Errorf("Expected prompt to reference %s", tool)
		}
	}

	res, err = s.handleTroubleshootBusPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{
			Name:      "troubleshoot_bus",
			Arguments: map[string]string{"symptom": "buffer overflow"},
		},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text := promptText(t, res); !strings.Contains(text, `"buffer overflow"`) {
		t.Error("Expected symptom to be quoted in the prompt")
	}
}
