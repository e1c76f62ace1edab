package organizer_tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/emailzen/emailzen/internal/engine"
	"github.com/emailzen/emailzen/internal/instrumentation"
	"github.com/emailzen/emailzen/internal/logging"
	"github.com/emailzen/emailzen/internal/rules"
	"github.com/emailzen/emailzen/internal/scheduler"
	"github.com/emailzen/emailzen/internal/storage"
)

// Deps are the collaborators the organizer tools operate on.
type Deps struct {
	Engine    *engine.Engine
	Scheduler *scheduler.Scheduler
	Rules     *rules.Store
	Stats     *storage.StatsRepo
	History   *storage.HistoryRepo
	Logger    *slog.Logger
	Metrics   *instrumentation.Metrics
}

type handler = mcpserver.ToolHandlerFunc

// instrument wraps a handler with per-tool logging and metrics.
func (d Deps) instrument(tool string, h handler) handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := h(ctx, request)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
		}
		d.Metrics.RecordToolInvocation(ctx, tool, status, time.Since(start))
		if d.Logger != nil {
			d.Logger.DebugContext(ctx, "tool invoked",
				slog.String(logging.KeyTool, tool),
				logging.Status(status),
				slog.Duration("duration", time.Since(start)))
		}
		return result, err
	}
}

// RegisterOrganizerTools registers all organizer tools with the MCP
// server.
func RegisterOrganizerTools(s *mcpserver.MCPServer, deps Deps) error {
	pingTool := mcp.NewTool("organizer_ping",
		mcp.WithDescription("Check that the organizer is alive and answering"),
	)
	s.AddTool(pingTool, deps.instrument("organizer_ping", deps.handlePing))

	processTool := mcp.NewTool("organizer_process_now",
		mcp.WithDescription("Run one inbox processing cycle immediately: apply all active rules to unread inbox messages"),
	)
	s.AddTool(processTool, deps.instrument("organizer_process_now", deps.handleProcessNow))

	sweepTool := mcp.NewTool("organizer_sweep_now",
		mcp.WithDescription("Run the retention sweep immediately: trash messages older than their rule's retention window"),
	)
	s.AddTool(sweepTool, deps.instrument("organizer_sweep_now", deps.handleSweepNow))

	runRuleTool := mcp.NewTool("organizer_run_rule",
		mcp.WithDescription("Run a single rule against the unread inbox"),
		mcp.WithString("ruleId",
			mcp.Required(),
			mcp.Description("ID of the rule to run; must exist and be active"),
		),
	)
	s.AddTool(runRuleTool, deps.instrument("organizer_run_rule", deps.handleRunRule))

	listRulesTool := mcp.NewTool("organizer_list_rules",
		mcp.WithDescription("List all organization rules in creation order"),
	)
	s.AddTool(listRulesTool, deps.instrument("organizer_list_rules", deps.handleListRules))

	saveRuleTool := mcp.NewTool("organizer_save_rule",
		mcp.WithDescription("Create or update an organization rule. Pass the rule as JSON; omit the id to create"),
		mcp.WithString("rule",
			mcp.Required(),
			mcp.Description(`Rule JSON, e.g. {"nome":"Shopping","condicoes":{"remetente":["@shop.com"]},"acoes":{"label":"Shop","marcarLido":true},"ativa":true}`),
		),
	)
	s.AddTool(saveRuleTool, deps.instrument("organizer_save_rule", deps.handleSaveRule))

	deleteRuleTool := mcp.NewTool("organizer_delete_rule",
		mcp.WithDescription("Delete an organization rule"),
		mcp.WithString("ruleId",
			mcp.Required(),
			mcp.Description("ID of the rule to delete"),
		),
	)
	s.AddTool(deleteRuleTool, deps.instrument("organizer_delete_rule", deps.handleDeleteRule))

	toggleRuleTool := mcp.NewTool("organizer_toggle_rule",
		mcp.WithDescription("Activate or deactivate an organization rule"),
		mcp.WithString("ruleId",
			mcp.Required(),
			mcp.Description("ID of the rule to toggle"),
		),
		mcp.WithBoolean("active",
			mcp.Required(),
			mcp.Description("Desired active state"),
		),
	)
	s.AddTool(toggleRuleTool, deps.instrument("organizer_toggle_rule", deps.handleToggleRule))

	statsTool := mcp.NewTool("organizer_get_stats",
		mcp.WithDescription("Get lifetime processing statistics"),
	)
	s.AddTool(statsTool, deps.instrument("organizer_get_stats", deps.handleGetStats))

	historyTool := mcp.NewTool("organizer_get_history",
		mcp.WithDescription("Get recent processing history (trailing 7 days), newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries to return (default: 50)"),
		),
	)
	s.AddTool(historyTool, deps.instrument("organizer_get_history", deps.handleGetHistory))

	labelCountTool := mcp.NewTool("organizer_label_count",
		mcp.WithDescription("Estimate how many messages carry a label"),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Label name"),
		),
	)
	s.AddTool(labelCountTool, deps.instrument("organizer_label_count", deps.handleLabelCount))

	scheduleTool := mcp.NewTool("organizer_configure_schedule",
		mcp.WithDescription("Configure the periodic processing schedule"),
		mcp.WithBoolean("enabled",
			mcp.Required(),
			mcp.Description("Whether periodic processing is enabled"),
		),
		mcp.WithNumber("intervalMinutes",
			mcp.Description("Processing interval in minutes, clamped to 1-1440 (default: 5)"),
		),
	)
	s.AddTool(scheduleTool, deps.instrument("organizer_configure_schedule", deps.handleConfigureSchedule))

	return nil
}
