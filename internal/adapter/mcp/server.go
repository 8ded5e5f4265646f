package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"github.com/relscope/relscope/internal/core/port"
	"github.com/relscope/relscope/internal/core/service"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer with the catalog tools and logging hooks.
// tracer and inst may be nil.
func NewServer(version string, catalog *service.CatalogService, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, catalog, logger)

	return s
}
