package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emailzen/emailzen/internal/logging"
	"github.com/emailzen/emailzen/internal/storage"
)

// sweepPageSize bounds how many messages a single rule sweeps per
// cycle. The daily cadence works through larger backlogs over time.
const sweepPageSize = 100

const dayMillis = 24 * 60 * 60 * 1000

// SweepReport summarizes a retention sweep.
type SweepReport struct {
	RulesSwept int   `json:"rulesSwept"`
	Trashed    int   `json:"trashed"`
	BytesFreed int64 `json:"bytesFreed"`
	Failures   int   `json:"failures"`
}

// RetentionSweep trashes messages older than their rule's retention
// window. Rules without a label or retention setting are skipped, as
// are labels that no longer resolve. Per-message failures are logged
// and counted but never abort the sweep.
func (e *Engine) RetentionSweep(ctx context.Context) (SweepReport, error) {
	e.logger.InfoContext(ctx, "retention sweep started")

	all, err := e.rules.List()
	if err != nil {
		return SweepReport{}, fmt.Errorf("failed to load rules: %w", err)
	}

	var report SweepReport
	for _, rule := range all {
		if !rule.Sweepable() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := e.sweepRule(ctx, rule.ID, &report); err != nil {
			// Rule-level failures (label listing, message listing) are
			// logged and the sweep moves on to the next rule.
			e.logger.WarnContext(ctx, "failed to sweep rule",
				logging.RuleID(rule.ID), logging.Err(err))
			report.Failures++
		}
	}

	if report.Trashed > 0 {
		if _, err := e.stats.Increment(storage.StatsDelta{
			Deleted:    int64(report.Trashed),
			BytesSaved: report.BytesFreed,
		}); err != nil {
			e.logger.WarnContext(ctx, "failed to update statistics", logging.Err(err))
		}
	}

	e.logger.InfoContext(ctx, "retention sweep finished",
		slog.Int("rules_swept", report.RulesSwept),
		slog.Int("trashed", report.Trashed),
		slog.Int("failures", report.Failures))

	return report, nil
}

func (e *Engine) sweepRule(ctx context.Context, ruleID string, report *SweepReport) error {
	rule, ok, err := e.rules.Get(ruleID)
	if err != nil {
		return err
	}
	if !ok || !rule.Sweepable() {
		return nil
	}

	if _, found, err := e.labels.Lookup(ctx, rule.Actions.Label); err != nil {
		return err
	} else if !found {
		e.logger.DebugContext(ctx, "label not resolved, skipping rule",
			logging.Label(rule.Actions.Label), logging.RuleID(rule.ID))
		return nil
	}

	page, err := e.svc.ListMessages(ctx, labelQuery(rule.Actions.Label), "", sweepPageSize)
	if err != nil {
		return err
	}
	if len(page.IDs) == 0 {
		return nil
	}

	report.RulesSwept++
	now := e.now().UnixMilli()

	for _, id := range page.IDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.sweepMessage(ctx, id, rule.ID, rule.Name, rule.Actions.RetentionDays, now, report); err != nil {
			e.logger.WarnContext(ctx, "failed to check message for retention",
				logging.MessageID(id), logging.Err(err))
			report.Failures++
		}
	}
	return nil
}

func (e *Engine) sweepMessage(ctx context.Context, id, ruleID, ruleName string, retentionDays int, now int64, report *SweepReport) error {
	msg, err := e.svc.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if msg.InternalDate <= 0 {
		return nil
	}

	ageDays := float64(now-msg.InternalDate) / float64(dayMillis)
	if ageDays < float64(retentionDays) {
		return nil
	}

	if err := e.svc.Trash(ctx, id); err != nil {
		return err
	}

	report.Trashed++
	report.BytesFreed += msg.SizeEstimate

	if err := e.history.Append(storage.HistoryEntry{
		Action:        storage.ActionDeleted,
		MessageID:     id,
		RuleID:        ruleID,
		RuleName:      ruleName,
		RetentionDays: retentionDays,
	}); err != nil {
		e.logger.WarnContext(ctx, "failed to append history", logging.Err(err))
	}

	e.logger.DebugContext(ctx, "message trashed",
		logging.MessageID(id),
		logging.RuleID(ruleID),
		slog.Int("retention_days", retentionDays))

	return nil
}
