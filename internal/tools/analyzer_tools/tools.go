package analyzer_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/emailzen/emailzen/internal/analyzer"
	"github.com/emailzen/emailzen/internal/gmail"
	"github.com/emailzen/emailzen/internal/instrumentation"
	"github.com/emailzen/emailzen/internal/logging"
	"github.com/emailzen/emailzen/internal/retry"
)

// Deps are the collaborators the analyzer tools operate on.
type Deps struct {
	Analyzer *analyzer.Analyzer
	Logger   *slog.Logger
	Metrics  *instrumentation.Metrics
}

// RegisterAnalyzerTools registers the analyzer tools with the MCP
// server.
func RegisterAnalyzerTools(s *mcpserver.MCPServer, deps Deps) error {
	runTool := mcp.NewTool("analyzer_run",
		mcp.WithDescription("Scan the unread inbox for frequent senders not covered by any rule and suggest rules for them. The scan is paced to stay within Gmail quota and may take a while"),
		mcp.WithNumber("minTotal",
			mcp.Description("Minimum total message count for a sender to qualify (default: 2)"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of suggestions (default: 20)"),
		),
	)
	s.AddTool(runTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return deps.handleRun(ctx, request)
	})

	getTool := mcp.NewTool("analyzer_get_suggestions",
		mcp.WithDescription("Get the suggestions cached by the last completed analysis"),
	)
	s.AddTool(getTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return deps.handleGetSuggestions(ctx, request)
	})

	clearTool := mcp.NewTool("analyzer_clear_suggestions",
		mcp.WithDescription("Discard the cached analysis suggestions"),
	)
	s.AddTool(clearTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return deps.handleClearSuggestions(ctx, request)
	})

	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (d Deps) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	opts := analyzer.Options{
		Progress: d.progressReporter(ctx),
	}
	if v, ok := args["minTotal"].(float64); ok && v > 0 {
		opts.MinTotal = int(v)
	}
	if v, ok := args["maxResults"].(float64); ok && v > 0 {
		opts.MaxResults = int(v)
	}

	// Rate limit bursts can outlast the per-call backoff; retry the
	// whole run a few times before reporting failure.
	policy := retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Retryable:   gmail.IsRetryable,
	}

	start := time.Now()
	var suggestions []analyzer.Suggestion
	err := policy.Do(ctx, func() error {
		var runErr error
		suggestions, runErr = d.Analyzer.Run(ctx, opts)
		return runErr
	})
	switch {
	case errors.Is(err, analyzer.ErrAborted):
		// A user-cancelled analysis is a neutral outcome, not an error.
		return jsonResult(map[string]string{"status": "cancelled"})
	case err != nil:
		d.Metrics.RecordCycle(ctx, instrumentation.OpAnalyze, instrumentation.StatusError, time.Since(start))
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	d.Metrics.RecordCycle(ctx, instrumentation.OpAnalyze, instrumentation.StatusSuccess, time.Since(start))
	d.Metrics.AddSuggestions(ctx, int64(len(suggestions)))
	if suggestions == nil {
		suggestions = []analyzer.Suggestion{}
	}
	return jsonResult(suggestions)
}

// progressReporter forwards scan progress to the client as MCP
// notifications when a server is attached to the context, and always
// tells the analyzer to keep going; cancellation arrives through the
// context.
func (d Deps) progressReporter(ctx context.Context) analyzer.Progress {
	srv := mcpserver.ServerFromContext(ctx)
	return func(processed, total int, stage string) bool {
		if d.Logger != nil {
			d.Logger.DebugContext(ctx, "analysis progress",
				slog.Int("processed", processed),
				slog.Int("total", total),
				logging.Stage(stage))
		}
		if srv != nil {
			_ = srv.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
				"processed": processed,
				"total":     total,
				"stage":     stage,
			})
		}
		return true
	}
}

func (d Deps) handleGetSuggestions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	suggestions, err := d.Analyzer.Cached()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load suggestions: %v", err)), nil
	}
	if suggestions == nil {
		suggestions = []analyzer.Suggestion{}
	}
	return jsonResult(suggestions)
}

func (d Deps) handleClearSuggestions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := d.Analyzer.Clear(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear suggestions: %v", err)), nil
	}
	return jsonResult(map[string]string{"status": "cleared"})
}
