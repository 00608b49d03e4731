package fwdmcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts registers all MCP prompt templates
func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "explain_status",
		Description: "Explain in plain language what the alarm panel bridge is doing right now",
		Arguments:   []*mcp.PromptArgument{},
	}, s.handleExplainStatusPrompt)

	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "troubleshoot_bus",
		Description: "A systematic guide for diagnosing a silent, noisy or disconnected Keybus",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "symptom",
				Description: "What is wrong (e.g., 'no lines', 'buffer overflow', 'client refused')",
				Required:    false,
			},
		},
	}, s.handleTroubleshootBusPrompt)
}

func userPrompt(description, content string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: content},
			},
		},
	}
}

func (s *Server) handleExplainStatusPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	content := `You are explaining what keybusfwd is doing to someone who owns an alarm panel but is not an engineer.

First, call 'get_status' and 'get_recent_lines' with a limit of 20.

Then explain:

1. **Is the bridge hearing the panel?**
   - "Keybus connected" means the bridge is receiving the panel's data line
   - If it is not connected, nothing the panel does will show up

2. **Is anyone watching?**
   - Only one telnet client can be attached at a time
   - Say who is attached and for how long, or that the bridge is waiting

3. **What has the panel been saying?**
   - Summarize the recent lines; panel lines carry a command in brackets
   - Mention any "Buffer overflow" lines, they mean some data was lost

Keep it short and friendly.`

	return userPrompt("Plain language explanation of bridge status", content), nil
}

func (s *Server) handleTroubleshootBusPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	symptom := ""
	if req != nil && req.Params != nil {
		symptom = req.Params.Arguments["symptom"]
	}

	focus := ""
	if symptom != "" {
		focus = fmt.Sprintf("\nThe reported symptom is: %q. Start with the step that best explains it.\n", symptom)
	}

	content := fmt.Sprintf(`You are troubleshooting a keybusfwd bridge between an alarm panel's Keybus and a telnet client.
%s
Work through these steps, calling the tools named:

1. 'get_status': is the bus connected? If not, the decoder sees no clock; check wiring or the capture being replayed.
2. 'get_recent_lines' with kind=connection: repeated connected/disconnected lines mean a flapping bus.
3. 'get_recent_lines' with kind=overflow: overflows mean the decoder queue filled; the client or loop is too slow.
4. 'get_metrics' with history=30: a zero line rate with a connected bus means the panel is idle or frames are being filtered.
   Compare sessionsRejected with sessionsAccepted; refusals mean someone tried to attach while another client was connected.
5. 'get_logs' with level=warning: look for session write failures and listener errors.

Report the most likely cause first, then the evidence.`, focus)

	return userPrompt("Keybus bridge troubleshooting guide", content), nil
}
