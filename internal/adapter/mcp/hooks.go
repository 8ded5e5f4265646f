package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/relscope/relscope/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// callState holds per-request timing and span data.
type callState struct {
	start time.Time
	span  trace.Span
}

// toolCalls tracks in-flight tool calls by request id.
type toolCalls struct {
	logger *slog.Logger
	tracer trace.Tracer
	inst   port.Instrumentation
	calls  sync.Map // id -> *callState
}

// ToolCallHooks creates MCP hooks that log every tool call and record its
// duration. Spans are only started when tracer is non-nil.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	tc := &toolCalls{logger: logger, tracer: tracer, inst: inst}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(tc.before)
	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
		var toolErr error
		if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
			toolErr = fmt.Errorf("tool %s returned error", req.Params.Name)
		}
		tc.finish(ctx, id, req.Params.Name, toolErr)
	})
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		req, ok := message.(*mcp.CallToolRequest)
		if !ok {
			return
		}
		tc.finish(ctx, id, req.Params.Name, err)
	})
	return hooks
}

func (tc *toolCalls) before(ctx context.Context, id any, req *mcp.CallToolRequest) {
	state := &callState{start: time.Now()}
	if tc.tracer != nil {
		_, state.span = tc.tracer.Start(ctx, "mcp.tool.call",
			trace.WithAttributes(attribute.String("mcp.tool", req.Params.Name)),
		)
	}
	tc.calls.Store(id, state)
}

func (tc *toolCalls) finish(ctx context.Context, id any, tool string, err error) {
	var duration time.Duration
	var span trace.Span
	if v, ok := tc.calls.LoadAndDelete(id); ok {
		state := v.(*callState)
		duration = time.Since(state.start)
		span = state.span
	}

	attrs := []slog.Attr{
		slog.String("rpc.method", "tools/call"),
		slog.String("mcp.tool", tool),
		slog.Duration("duration", duration),
		slog.Bool("error", err != nil),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("error.message", err.Error()))
	}
	tc.logger.LogAttrs(ctx, level, "tool call", attrs...)
	tc.inst.RecordToolDuration(ctx, float64(duration.Milliseconds()))

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
