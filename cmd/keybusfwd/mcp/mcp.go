// Package mcp provides the MCP (Model Context Protocol) subcommand for
// keybusfwd. It starts an MCP server on stdio that reads a running
// bridge through its REST API, so an assistant can watch the bus without
// taking the single telnet session.
package mcp

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/txn2/keybusfwd/pkg/fwdmcp"
)

const verifyTimeout = 5 * time.Second

var (
	apiURL  string
	verbose bool
)

// Version is set by the main package
var Version string

func init() {
	Cmd.Flags().StringVar(&apiURL, "api-url", "http://127.0.0.1:8080/api", "URL of the keybusfwd REST API")
	Cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// Cmd is the MCP subcommand
var Cmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (connects to the keybusfwd REST API)",
	Long: `Start an MCP (Model Context Protocol) server that connects to a running
keybusfwd bridge via its REST API.

Architecture:
  ┌─────────────┐    stdio     ┌───────────────┐    HTTP      ┌─────────────┐
  │  AI Client  │ ←──────────→ │ keybusfwd mcp │ ←──────────→ │  keybusfwd  │
  │ (Claude,etc)│   MCP proto  │   (bridge)    │ REST API     │   --api     │
  └─────────────┘              └───────────────┘              └─────────────┘

The bridge serves exactly one telnet client. Reading through the API lets
an assistant follow the bus without taking that session.

Prerequisites:
  1. Start keybusfwd with the API enabled:
     keybusfwd --replay panel.cbor.zst --api

  2. Configure your MCP client:
     {
       "mcpServers": {
         "keybusfwd": {
           "command": "keybusfwd",
           "args": ["mcp"]
         }
       }
     }

The MCP server provides read-only tools for:
  - Bridge status (bus connection, attached client)
  - Recent bus lines, with an optional filter
  - Traffic counters and rate history
  - Recent bridge logs`,
	Example: `  # Start MCP server (connects to http://127.0.0.1:8080/api)
  keybusfwd mcp

  # Connect to a custom API URL
  keybusfwd mcp --api-url http://192.168.1.20:8080/api

  # With verbose logging (logs go to stderr, not interfering with stdio MCP)
  keybusfwd mcp --verbose`,
	Run: runMCP,
}

func runMCP(_ *cobra.Command, _ []string) {
	// stdout carries the MCP stdio transport
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	log.Infof("Starting keybusfwd MCP server (version %s)", Version)
	log.Infof("Connecting to REST API at: %s", apiURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tools are registered before the API check so clients can discover them
	server := fwdmcp.NewServer(Version, apiURL)

	if err := verifyAPIConnection(ctx, apiURL); err != nil {
		log.Warnf("Cannot connect to keybusfwd API at %s: %v", apiURL, err)
		log.Warn("MCP server will start but tools require keybusfwd to be running.")
		log.Warn("Start the bridge in another terminal with: keybusfwd --api")
	} else {
		log.Info("API connection verified")
		server.SetAPI(fwdmcp.NewHTTPClient(apiURL))
	}

	log.Info("MCP server initialized, starting stdio transport...")

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("MCP server error: %v", err)
		os.Exit(1)
	}

	log.Info("MCP server stopped")
}

// verifyAPIConnection checks if the keybusfwd API is reachable
func verifyAPIConnection(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	if err := fwdmcp.NewHTTPClient(baseURL).Ping(ctx); err != nil {
		return errors.Wrap(err, "health check failed")
	}
	return nil
}
