// Package mcp exposes a graft tool registry as an MCP server, so any MCP
// client can call the same tools a graph's dispatch node does.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// Tools is the registry surface the server needs: enumeration for
// advertisement plus execution.
type Tools interface {
	ports.ToolExecutor
	List() []domain.Tool
}

// Server wraps a tool registry and exposes it over MCP.
type Server struct {
	tools     Tools
	cfg       domain.RunConfig
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithRunConfig sets the ambient configuration handed to every tool call
// made through this server.
func WithRunConfig(cfg domain.RunConfig) ServerOption {
	return func(s *Server) { s.cfg = cfg }
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an MCP server advertising every registered tool.
func NewServer(tools Tools, version string, opts ...ServerOption) *Server {
	s := &Server{
		tools:     tools,
		logger:    slog.Default(),
		mcpServer: server.NewMCPServer("graft", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	for _, tool := range s.tools.List() {
		s.mcpServer.AddTool(s.declareTool(tool), s.handlerFor(tool))
	}
}

func (s *Server) declareTool(tool domain.Tool) mcp.Tool {
	if len(tool.Parameters) > 0 {
		if raw, err := json.Marshal(tool.Parameters); err == nil {
			return mcp.NewToolWithRawSchema(tool.Name, tool.Description, raw)
		}
	}
	return mcp.NewTool(tool.Name, mcp.WithDescription(tool.Description))
}

func (s *Server) handlerFor(tool domain.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		call := domain.ToolCall{
			ID:   request.GetString("_call_id", ""),
			Name: tool.Name,
			Args: request.GetArguments(),
		}

		result, err := s.tools.Execute(ctx, call, s.cfg)
		if err != nil {
			s.logger.Warn("mcp tool call failed", "tool", tool.Name, "err", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		switch v := result.(type) {
		case string:
			return mcp.NewToolResultText(v), nil
		case domain.Command:
			return commandResult(v)
		case *domain.Command:
			return commandResult(*v)
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("result not serializable: %v", err)), nil
			}
			return mcp.NewToolResultText(string(raw)), nil
		}
	}
}

// commandResult serializes a Command-returning tool's state update, since
// an MCP client has no run to merge it into.
func commandResult(cmd domain.Command) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(cmd.Update)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("command not serializable: %v", err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}
