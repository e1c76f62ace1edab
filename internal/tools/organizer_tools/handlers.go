package organizer_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/emailzen/emailzen/internal/engine"
	"github.com/emailzen/emailzen/internal/instrumentation"
	"github.com/emailzen/emailzen/internal/rules"
)

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(request mcp.CallToolRequest, key string) (string, bool) {
	value, ok := request.GetArguments()[key].(string)
	return value, ok && value != ""
}

func (d Deps) handlePing(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]string{"status": "ok"})
}

func (d Deps) handleProcessNow(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	report, err := d.Engine.ProcessInbox(ctx)
	if err != nil {
		d.Metrics.RecordCycle(ctx, instrumentation.OpProcess, instrumentation.StatusError, time.Since(start))
		return mcp.NewToolResultError(fmt.Sprintf("processing failed: %v", err)), nil
	}
	d.Metrics.RecordCycle(ctx, instrumentation.OpProcess, instrumentation.StatusSuccess, time.Since(start))
	d.Metrics.AddProcessed(ctx, int64(report.Processed))
	return jsonResult(report)
}

func (d Deps) handleSweepNow(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	report, err := d.Engine.RetentionSweep(ctx)
	if err != nil {
		d.Metrics.RecordCycle(ctx, instrumentation.OpSweep, instrumentation.StatusError, time.Since(start))
		return mcp.NewToolResultError(fmt.Sprintf("retention sweep failed: %v", err)), nil
	}
	d.Metrics.RecordCycle(ctx, instrumentation.OpSweep, instrumentation.StatusSuccess, time.Since(start))
	d.Metrics.AddTrashed(ctx, int64(report.Trashed), report.BytesFreed)
	return jsonResult(report)
}

func (d Deps) handleRunRule(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ruleID, ok := stringArg(request, "ruleId")
	if !ok {
		return mcp.NewToolResultError("ruleId is required"), nil
	}

	start := time.Now()
	report, err := d.Engine.ProcessSingleRule(ctx, ruleID)
	switch {
	case errors.Is(err, engine.ErrUnknownRule), errors.Is(err, engine.ErrRuleInactive):
		return mcp.NewToolResultError(err.Error()), nil
	case err != nil:
		d.Metrics.RecordCycle(ctx, instrumentation.OpRule, instrumentation.StatusError, time.Since(start))
		return mcp.NewToolResultError(fmt.Sprintf("rule execution failed: %v", err)), nil
	}
	d.Metrics.RecordCycle(ctx, instrumentation.OpRule, instrumentation.StatusSuccess, time.Since(start))
	d.Metrics.AddProcessed(ctx, int64(report.Processed))
	return jsonResult(report)
}

func (d Deps) handleListRules(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := d.Rules.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list rules: %v", err)), nil
	}
	return jsonResult(list)
}

func (d Deps) handleSaveRule(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := stringArg(request, "rule")
	if !ok {
		return mcp.NewToolResultError("rule is required"), nil
	}

	var rule rules.Rule
	if err := json.Unmarshal([]byte(raw), &rule); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid rule JSON: %v", err)), nil
	}
	if rule.Name == "" {
		return mcp.NewToolResultError("rule name (nome) is required"), nil
	}

	saved, err := d.Rules.Save(rule)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save rule: %v", err)), nil
	}
	return jsonResult(saved)
}

func (d Deps) handleDeleteRule(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ruleID, ok := stringArg(request, "ruleId")
	if !ok {
		return mcp.NewToolResultError("ruleId is required"), nil
	}
	if err := d.Rules.Delete(ruleID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete rule: %v", err)), nil
	}
	return jsonResult(map[string]any{"deleted": ruleID})
}

func (d Deps) handleToggleRule(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ruleID, ok := stringArg(request, "ruleId")
	if !ok {
		return mcp.NewToolResultError("ruleId is required"), nil
	}
	active, ok := request.GetArguments()["active"].(bool)
	if !ok {
		return mcp.NewToolResultError("active is required"), nil
	}

	if err := d.Rules.Toggle(ruleID, active); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to toggle rule: %v", err)), nil
	}
	return jsonResult(map[string]any{"id": ruleID, "ativa": active})
}

func (d Deps) handleGetStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := d.Stats.Get()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load statistics: %v", err)), nil
	}
	return jsonResult(stats)
}

func (d Deps) handleGetHistory(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 50
	if v, ok := request.GetArguments()["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	entries, err := d.History.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load history: %v", err)), nil
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return jsonResult(entries)
}

func (d Deps) handleLabelCount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, ok := stringArg(request, "label")
	if !ok {
		return mcp.NewToolResultError("label is required"), nil
	}

	count, err := d.Engine.LabelMessageCount(ctx, label)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to count messages: %v", err)), nil
	}
	return jsonResult(map[string]any{"label": label, "count": count})
}

func (d Deps) handleConfigureSchedule(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	enabled, ok := args["enabled"].(bool)
	if !ok {
		return mcp.NewToolResultError("enabled is required"), nil
	}
	minutes := 0
	if v, ok := args["intervalMinutes"].(float64); ok {
		minutes = int(v)
	}

	cfg, err := d.Scheduler.Reconfigure(enabled, minutes)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to configure schedule: %v", err)), nil
	}
	return jsonResult(cfg)
}
