package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/relscope/relscope/internal/core/association"
	"github.com/relscope/relscope/internal/core/domain"
	"github.com/relscope/relscope/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "relscope"

// Tool descriptions
const (
	descListSchemas = "List the schemas of the analyzed catalog with their table counts. " +
		"Call this first to discover what schemas exist before listing tables."

	descListTables = "List tables and views with schema, type, column count, comment and the number of " +
		"weak associations (inferred, undeclared relationships) that touch each table."

	descDescribeTable = "Describe a table's structure: columns with types, nullability, defaults and comments; " +
		"primary key; unique keys; declared foreign keys; and the weak associations inferred for it. " +
		"Weak associations are column pairs that look like foreign key references by naming convention " +
		"but have no declared constraint. Their kind tells how they were found: " +
		"exact-key (column name equals a key name), prefixed-key (a role prefix before the key name) " +
		"or extension (two tables share the same primary key name)."

	descListWeakAssociations = "List inferred weak associations, optionally restricted to one table, one schema " +
		"or one kind. Use these as JOIN paths when no foreign key is declared."

	descRefreshCatalog = "Reload the catalog from its source and recompute weak associations. " +
		"The previous snapshot stays in place if the refresh fails."

	descSchemaParam = "Schema name (optional, resolves automatically if omitted)"
)

func RegisterTools(s *server.MCPServer, catalog *service.CatalogService, logger *slog.Logger) {
	s.AddTool(
		mcp.NewTool("list_schemas",
			mcp.WithDescription(descListSchemas),
		),
		listSchemasHandler(catalog, logger),
	)

	s.AddTool(
		mcp.NewTool("list_tables",
			mcp.WithDescription(descListTables),
			mcp.WithString("schema",
				mcp.Description("Only list tables of this schema"),
			),
		),
		listTablesHandler(catalog, logger),
	)

	s.AddTool(
		mcp.NewTool("describe_table",
			mcp.WithDescription(descDescribeTable),
			mcp.WithString("table_name",
				mcp.Required(),
				mcp.Description("Name of the table to describe"),
			),
			mcp.WithString("schema",
				mcp.Description(descSchemaParam),
			),
		),
		describeTableHandler(catalog, logger),
	)

	s.AddTool(
		mcp.NewTool("list_weak_associations",
			mcp.WithDescription(descListWeakAssociations),
			mcp.WithString("table_name",
				mcp.Description("Only associations touching this table"),
			),
			mcp.WithString("schema",
				mcp.Description(descSchemaParam),
			),
			mcp.WithString("kind",
				mcp.Description("Only associations of this kind"),
				mcp.Enum("exact-key", "prefixed-key", "extension"),
			),
		),
		listWeakAssociationsHandler(catalog, logger),
	)

	s.AddTool(
		mcp.NewTool("refresh_catalog",
			mcp.WithDescription(descRefreshCatalog),
		),
		refreshCatalogHandler(catalog, logger),
	)
}

func listSchemasHandler(catalog *service.CatalogService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schemas, err := catalog.ListSchemas(ctx)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "list schemas")), nil
		}
		return jsonResult(schemas)
	}
}

func listTablesHandler(catalog *service.CatalogService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schema, _ := request.GetArguments()["schema"].(string)

		tables, err := catalog.ListTables(ctx, schema)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "list tables")), nil
		}
		return jsonResult(tables)
	}
}

func describeTableHandler(catalog *service.CatalogService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName, ok := request.GetArguments()["table_name"].(string)
		if !ok || tableName == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}

		schema, _ := request.GetArguments()["schema"].(string)

		detail, err := catalog.DescribeTable(ctx, schema, tableName)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "describe table")), nil
		}
		return jsonResult(detail)
	}
}

func listWeakAssociationsHandler(catalog *service.CatalogService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		tableName, _ := args["table_name"].(string)
		schema, _ := args["schema"].(string)

		var kind *association.Kind
		if s, _ := args["kind"].(string); s != "" {
			k, err := association.ParseKind(s)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			kind = &k
		}

		assocs, err := catalog.WeakAssociations(ctx, schema, tableName)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "list weak associations")), nil
		}
		if kind != nil {
			filtered := assocs[:0]
			for _, wa := range assocs {
				if wa.Kind == *kind {
					filtered = append(filtered, wa)
				}
			}
			assocs = filtered
		}
		return jsonResult(assocs)
	}
}

// refreshSummary is what refresh_catalog reports about the new snapshot.
type refreshSummary struct {
	RunID    string            `json:"run_id"`
	Source   string            `json:"source"`
	LoadedAt time.Time         `json:"loaded_at"`
	Stats    association.Stats `json:"stats"`
}

func refreshCatalogHandler(catalog *service.CatalogService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap, err := catalog.Refresh(ctx)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "refresh catalog")), nil
		}
		return jsonResult(refreshSummary{
			RunID:    snap.RunID,
			Source:   snap.Source,
			LoadedAt: snap.LoadedAt,
			Stats:    snap.Result.Stats,
		})
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// sanitizeError turns a service error into a message safe to show to the
// client. Lookup and input errors pass through; anything else is logged and
// replaced with a generic message.
func sanitizeError(logger *slog.Logger, err error, op string) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return err.Error()
	case errors.Is(err, service.ErrNoSnapshot):
		return "catalog not loaded yet, call refresh_catalog"
	case errors.Is(err, domain.ErrMalformedCatalog):
		return fmt.Sprintf("%s failed: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return op + " timed out"
	}
	logger.Error("tool failed", slog.String("op", op), slog.String("error", err.Error()))
	return fmt.Sprintf("%s failed: internal error (check server logs)", op)
}
