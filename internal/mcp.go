package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes the video tools over the Model Context Protocol
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewMCPServer creates a new MCP server instance. Tools are registered
// unbound, so every video tool takes an explicit videoId.
func NewMCPServer(app *App, version string) *MCPServer {
	mcpServer := server.NewMCPServer(
		AppName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
		logger:    app.Logger().With(slog.String("component", "mcp")),
	}
	s.registerTools(app.Tools(""))
	return s
}

func (s *MCPServer) registerTools(registry *ToolRegistry) {
	for _, tool := range registry.Tools() {
		s.mcpServer.AddTool(tool.Definition, s.handler(registry, tool.Definition.Name))
	}
}

func (s *MCPServer) handler(registry *ToolRegistry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := registry.CallArgs(ctx, name, request.GetArguments())
		if err != nil {
			s.logger.Warn("tool failed", slog.String("tool", name), slog.Any("error", err))
			return mcp.NewToolResultErrorFromErr(toolErrorMessage(name, err), err), nil
		}

		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encoding %s result: %w", name, err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func toolErrorMessage(name string, err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid arguments for " + name
	case errors.Is(err, ErrUnauthenticated):
		return "no user configured; set TUBEAGENT_USER_ID"
	case errors.Is(err, ErrNotFound):
		return name + " found nothing"
	default:
		return name + " failed"
	}
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)

		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.Start(addr) }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return httpServer.Shutdown(context.Background())
		}
	}

	return server.ServeStdio(s.mcpServer)
}

// GetServer returns the underlying MCP server for advanced configuration
func (s *MCPServer) GetServer() *server.MCPServer {
	return s.mcpServer
}
