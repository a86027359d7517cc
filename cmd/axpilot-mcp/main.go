// Copyright 2025 Joseph Cumines
//
// MCP server for axpilot - element path resolution and menu navigation
// over JSON-RPC 2.0 on stdio or HTTP/SSE

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/joeycumines/axpilot/internal/axbridge"
	"github.com/joeycumines/axpilot/internal/config"
	"github.com/joeycumines/axpilot/internal/server"
	"github.com/joeycumines/axpilot/internal/transport"
)

// Version is set at build time.
var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "axpilot-mcp",
		Usage:   "Accessibility automation MCP server",
		Version: Version,
		Description: `axpilot-mcp resolves element paths against the host accessibility
tree and navigates application menus, exposed as MCP tools.

Examples:
  axpilot-mcp serve
  axpilot-mcp serve --transport sse --http-address :8080
  AXPILOT_BRIDGE_SOCKET=/tmp/bridge.sock axpilot-mcp serve`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "bridge-socket",
				Usage:   "Unix socket of the accessibility bridge daemon",
				EnvVars: []string{"AXPILOT_BRIDGE_SOCKET"},
			},
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Usage:   "MCP transport (stdio, sse)",
				EnvVars: []string{"AXPILOT_TRANSPORT"},
			},
			&cli.StringFlag{
				Name:    "http-address",
				Usage:   "Listen address for the sse transport",
				EnvVars: []string{"AXPILOT_HTTP_ADDRESS"},
			},
			&cli.StringFlag{
				Name:    "audit-log",
				Usage:   "Append JSON audit records of tool calls to this file",
				EnvVars: []string{"AXPILOT_AUDIT_LOG"},
			},
			&cli.DurationFlag{
				Name:  "settle-interval",
				Usage: "Wait after activating a menu before reading its items",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the MCP server",
				Action: runServe,
			},
		},
		// Bare invocation serves, matching what MCP clients expect when
		// they exec the binary directly.
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cfg, c)

	bridge, err := axbridge.Dial(axbridge.Config{
		SocketPath:     cfg.BridgeSocket,
		DialTimeout:    cfg.BridgeDialTimeout,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}
	defer bridge.Close()

	mcpServer, err := server.NewMCPServer(cfg, server.Ports{
		Tree:        bridge,
		Windows:     bridge,
		Lifecycle:   bridge,
		Permissions: bridge,
		Screenshots: bridge,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	errChan := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		var serveErr error
		switch cfg.Transport {
		case config.TransportHTTP:
			serveErr = runHTTPTransport(cfg, mcpServer)
		default:
			serveErr = runStdioTransport(mcpServer)
		}
		if serveErr != nil {
			errChan <- serveErr
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		mcpServer.Shutdown()
	case err := <-errChan:
		log.Printf("Server error: %v", err)
		mcpServer.Shutdown()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Server shutdown complete")
	case <-sigChan:
		log.Println("Forced shutdown")
	}
	return nil
}

// applyFlags overlays explicitly set command-line flags onto the loaded
// configuration; flags win over file and environment.
func applyFlags(cfg *config.Config, c *cli.Context) {
	if v := c.String("bridge-socket"); v != "" {
		cfg.BridgeSocket = v
	}
	if v := c.String("transport"); v != "" {
		cfg.Transport = config.TransportType(v)
	}
	if v := c.String("http-address"); v != "" {
		cfg.HTTPAddress = v
	}
	if v := c.String("audit-log"); v != "" {
		cfg.AuditLogPath = v
	}
	if v := c.Duration("settle-interval"); v > 0 {
		cfg.SettleInterval = v
	}
}

func runStdioTransport(mcpServer *server.MCPServer) error {
	tr := transport.NewStdioTransport(os.Stdin, os.Stdout)
	return mcpServer.Serve(tr)
}

func runHTTPTransport(cfg *config.Config, mcpServer *server.MCPServer) error {
	tr := transport.NewHTTPTransport(&transport.HTTPTransportConfig{
		Address:           cfg.HTTPAddress,
		SocketPath:        cfg.HTTPSocketPath,
		HeartbeatInterval: cfg.HeartbeatInterval,
		CORSOrigin:        cfg.CORSOrigin,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		RateLimit:         cfg.RateLimit,
	})
	return mcpServer.ServeHTTP(tr)
}
