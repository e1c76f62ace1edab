package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/emailzen/emailzen/internal/batch"
	"github.com/emailzen/emailzen/internal/gmail"
	"github.com/emailzen/emailzen/internal/logging"
	"github.com/emailzen/emailzen/internal/retry"
	"github.com/emailzen/emailzen/internal/rules"
	"github.com/emailzen/emailzen/internal/storage"
)

// Rule execution failures that callers branch on.
var (
	ErrUnknownRule  = errors.New("unknown rule")
	ErrRuleInactive = errors.New("rule is inactive")
)

const (
	unreadInboxQuery = "in:inbox is:unread"

	// inboxPageSize bounds a scheduled processing cycle.
	inboxPageSize = 50
	// singleRulePageSize is larger: single-rule runs are explicit user
	// actions and may work through more backlog.
	singleRulePageSize = 100

	subBatchSize  = 10
	subBatchPause = 100 * time.Millisecond
)

// Engine runs organization rules against the mailbox.
type Engine struct {
	svc     gmail.Service
	rules   *rules.Store
	labels  *LabelCache
	stats   *storage.StatsRepo
	history *storage.HistoryRepo
	logger  *slog.Logger
	now     func() time.Time
}

// New wires an Engine from its collaborators.
func New(svc gmail.Service, ruleStore *rules.Store, labels *LabelCache, stats *storage.StatsRepo, history *storage.HistoryRepo, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		svc:     svc,
		rules:   ruleStore,
		labels:  labels,
		stats:   stats,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// Outcome reports what happened to one message.
type Outcome struct {
	Processed     bool
	RuleID        string
	RuleName      string
	RetentionDays int
}

// Report summarizes a processing run.
type Report struct {
	Total     int            `json:"total"`
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Results   []batch.Result `json:"results,omitempty"`
}

// ProcessMessage fetches a message and applies the first matching rule
// from candidates, in list order. A message matching no rule is left
// untouched and reported as not processed.
func (e *Engine) ProcessMessage(ctx context.Context, id string, candidates []rules.Rule) (Outcome, error) {
	msg, err := e.svc.GetMessage(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to fetch message: %w", err)
	}

	headers := rules.MessageHeaders{From: msg.From, Subject: msg.Subject}
	var matched *rules.Rule
	for i := range candidates {
		if rules.Matches(headers, candidates[i]) {
			matched = &candidates[i]
			break
		}
	}
	if matched == nil {
		return Outcome{}, nil
	}

	var spec gmail.ModifySpec
	if matched.Actions.Label != "" {
		labelID, err := e.labels.ResolveOrCreate(ctx, matched.Actions.Label)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to resolve label %q: %w", matched.Actions.Label, err)
		}
		spec.Add = append(spec.Add, labelID)
	}
	if matched.Actions.MarkRead {
		spec.Remove = append(spec.Remove, "UNREAD")
	}
	if matched.Actions.Archive {
		spec.Remove = append(spec.Remove, "INBOX")
	}

	if !spec.Empty() {
		if err := e.svc.Modify(ctx, id, spec); err != nil {
			return Outcome{}, fmt.Errorf("failed to modify message: %w", err)
		}
	}

	if err := e.history.Append(storage.HistoryEntry{
		Action:    storage.ActionProcessed,
		MessageID: id,
		RuleID:    matched.ID,
		RuleName:  matched.Name,
	}); err != nil {
		e.logger.WarnContext(ctx, "failed to append history", logging.Err(err))
	}

	e.logger.DebugContext(ctx, "message processed",
		logging.MessageID(id),
		logging.Rule(matched.Name),
		logging.RuleID(matched.ID))

	return Outcome{
		Processed:     true,
		RuleID:        matched.ID,
		RuleName:      matched.Name,
		RetentionDays: matched.Actions.RetentionDays,
	}, nil
}

// ProcessInbox runs one processing cycle: active rules against the
// unread inbox, batched, with the processed count folded into the
// stored statistics.
func (e *Engine) ProcessInbox(ctx context.Context) (Report, error) {
	e.logger.InfoContext(ctx, "processing cycle started", logging.Stage("loading_rules"))

	active, err := e.rules.ListActive()
	if err != nil {
		return Report{}, fmt.Errorf("failed to load rules: %w", err)
	}
	if len(active) == 0 {
		e.logger.InfoContext(ctx, "no active rules, skipping cycle", logging.Status(logging.StatusSkipped))
		return Report{}, nil
	}

	if err := e.labels.EnsureInitialized(ctx); err != nil {
		return Report{}, fmt.Errorf("failed to initialize label cache: %w", err)
	}

	e.logger.DebugContext(ctx, "fetching messages", logging.Stage("fetching_messages"), logging.Query(unreadInboxQuery))
	page, err := e.svc.ListMessages(ctx, unreadInboxQuery, "", inboxPageSize)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list messages: %w", err)
	}
	if len(page.IDs) == 0 {
		e.logger.InfoContext(ctx, "no new messages to process")
		return Report{}, nil
	}

	var processed atomic.Int64
	results, runErr := batch.Run(ctx, page.IDs, func(ctx context.Context, id string) error {
		outcome, err := e.ProcessMessage(ctx, id, active)
		if err != nil {
			return err
		}
		if outcome.Processed {
			processed.Add(1)
		}
		return nil
	}, batch.Options{})

	report := e.report(results, int(processed.Load()))
	if n := processed.Load(); n > 0 {
		if _, err := e.stats.Increment(storage.StatsDelta{Processed: n}); err != nil {
			e.logger.WarnContext(ctx, "failed to update statistics", logging.Err(err))
		}
	}

	e.logger.InfoContext(ctx, "processing cycle finished",
		logging.Count(report.Total),
		slog.Int("processed", report.Processed),
		slog.Int("failed", report.Failed),
		logging.Status(logging.StatusSuccess))

	return report, runErr
}

// ProcessSingleRule runs exactly one rule over the unread inbox. The
// rule must exist and be active. Messages are handled one at a time in
// small paced groups so a long backlog stays responsive.
func (e *Engine) ProcessSingleRule(ctx context.Context, ruleID string) (Report, error) {
	rule, ok, err := e.rules.Get(ruleID)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load rules: %w", err)
	}
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownRule, ruleID)
	}
	if !rule.Active {
		return Report{}, fmt.Errorf("%w: %s", ErrRuleInactive, ruleID)
	}

	if err := e.labels.EnsureInitialized(ctx); err != nil {
		return Report{}, fmt.Errorf("failed to initialize label cache: %w", err)
	}

	page, err := e.svc.ListMessages(ctx, unreadInboxQuery, "", singleRulePageSize)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list messages: %w", err)
	}

	candidates := []rules.Rule{rule}
	results := make([]batch.Result, 0, len(page.IDs))
	processed := 0

	for start := 0; start < len(page.IDs); start += subBatchSize {
		if err := ctx.Err(); err != nil {
			return e.report(results, processed), err
		}

		end := min(start+subBatchSize, len(page.IDs))
		for _, id := range page.IDs[start:end] {
			outcome, err := e.ProcessMessage(ctx, id, candidates)
			res := batch.Result{ID: id, Status: "success"}
			if err != nil {
				res.Status = "error"
				res.Error = err.Error()
				e.logger.WarnContext(ctx, "failed to process message",
					logging.MessageID(id), logging.Err(err))
			} else if outcome.Processed {
				processed++
			}
			results = append(results, res)
		}

		if end < len(page.IDs) {
			if err := retry.Sleep(ctx, subBatchPause); err != nil {
				return e.report(results, processed), err
			}
		}
	}

	if processed > 0 {
		if _, err := e.stats.Increment(storage.StatsDelta{Processed: int64(processed)}); err != nil {
			e.logger.WarnContext(ctx, "failed to update statistics", logging.Err(err))
		}
	}

	e.logger.InfoContext(ctx, "rule executed",
		logging.Rule(rule.Name),
		logging.RuleID(rule.ID),
		slog.Int("processed", processed))

	return e.report(results, processed), nil
}

// LabelMessageCount estimates how many messages carry a label, without
// fetching them. Unknown labels count zero.
func (e *Engine) LabelMessageCount(ctx context.Context, name string) (int64, error) {
	if err := e.labels.EnsureInitialized(ctx); err != nil {
		return 0, err
	}
	if _, ok, err := e.labels.Lookup(ctx, name); err != nil {
		return 0, err
	} else if !ok {
		return 0, nil
	}

	page, err := e.svc.ListMessages(ctx, labelQuery(name), "", 1)
	if err != nil {
		return 0, err
	}
	return page.SizeEstimate, nil
}

func (e *Engine) report(results []batch.Result, processed int) Report {
	summary := batch.Summarize(results)
	return Report{
		Total:     summary.Total,
		Processed: processed,
		Failed:    summary.Failed,
		Results:   results,
	}
}

// labelQuery builds a Gmail search clause for a label name, quoting
// names that contain spaces.
func labelQuery(name string) string {
	for _, r := range name {
		if r == ' ' {
			return fmt.Sprintf("label:%q", name)
		}
	}
	return "label:" + name
}
