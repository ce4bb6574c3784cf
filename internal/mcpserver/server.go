package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nerrad567/robotctl/internal/ecovacs"
	"github.com/nerrad567/robotctl/internal/infrastructure/logging"
	"github.com/nerrad567/robotctl/internal/robot"
)

// DefaultName is the server name advertised during MCP initialisation.
const DefaultName = "RobotControl"

// Invoker runs a named tool. *robot.Service satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (ecovacs.Envelope, error)
}

// Server wraps an MCP server with the robot tools registered.
type Server struct {
	mcp     *server.MCPServer
	invoker Invoker
	logger  *logging.Logger
}

// New creates a Server and registers every catalogue tool.
//
// Parameters:
//   - name: Advertised server name (DefaultName when empty)
//   - version: Build version reported to clients
//   - invoker: Tool dispatcher
//   - logger: Logger for tool failures (stderr only)
func New(name, version string, invoker Invoker, logger *logging.Logger) *Server {
	if name == "" {
		name = DefaultName
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &Server{
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		invoker: invoker,
		logger:  logger,
	}

	for _, tool := range robot.Tools() {
		s.mcp.AddTool(toolDefinition(tool), s.handler(tool.Name))
	}

	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve runs the stdio transport until in reaches EOF or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(s.logger.StdLogger(slog.LevelError))

	s.logger.Info("mcp stdio server started", "tools", len(robot.Tools()))

	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("mcp stdio: %w", err)
	}

	s.logger.Info("mcp stdio server stopped")
	return nil
}

// handler adapts one tool to the MCP handler signature.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		env, err := s.invoker.Invoke(ctx, name, req.GetArguments())
		if err != nil {
			s.logger.Warn("tool call rejected", "tool", name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		body, err := json.Marshal(env)
		if err != nil {
			return nil, fmt.Errorf("encoding %s result: %w", name, err)
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

// toolDefinition builds the MCP schema for a catalogue entry.
func toolDefinition(tool robot.Tool) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(tool.Description),
		mcp.WithReadOnlyHintAnnotation(tool.ReadOnly),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	}

	for _, p := range tool.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		} else {
			props = append(props, mcp.DefaultString(p.Default))
		}
		if len(p.Enum) > 0 {
			props = append(props, mcp.Enum(p.Enum...))
		}
		opts = append(opts, mcp.WithString(p.Name, props...))
	}

	return mcp.NewTool(tool.Name, opts...)
}
