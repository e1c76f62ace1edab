package organizer_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emailzen/emailzen/internal/engine"
	"github.com/emailzen/emailzen/internal/gmail"
	"github.com/emailzen/emailzen/internal/rules"
	"github.com/emailzen/emailzen/internal/scheduler"
	"github.com/emailzen/emailzen/internal/storage"
)

type fakeGmail struct {
	mu       sync.Mutex
	labels   []gmail.Label
	messages map[string]gmail.Message
	queries  map[string][]string
	sizes    map[string]int64
	modified map[string]gmail.ModifySpec
}

func newFakeGmail() *fakeGmail {
	return &fakeGmail{
		messages: make(map[string]gmail.Message),
		queries:  make(map[string][]string),
		sizes:    make(map[string]int64),
		modified: make(map[string]gmail.ModifySpec),
	}
}

func (f *fakeGmail) ListLabels(context.Context) ([]gmail.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gmail.Label(nil), f.labels...), nil
}

func (f *fakeGmail) CreateLabel(_ context.Context, name string) (gmail.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	label := gmail.Label{ID: fmt.Sprintf("Label_%d", len(f.labels)+1), Name: name}
	f.labels = append(f.labels, label)
	return label, nil
}

func (f *fakeGmail) ListMessages(_ context.Context, query, _ string, _ int64) (gmail.ListPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return gmail.ListPage{IDs: f.queries[query], SizeEstimate: f.sizes[query]}, nil
}

func (f *fakeGmail) GetMessage(_ context.Context, id string) (gmail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return gmail.Message{}, fmt.Errorf("no such message %s", id)
	}
	return msg, nil
}

func (f *fakeGmail) Modify(_ context.Context, id string, spec gmail.ModifySpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modified[id] = spec
	return nil
}

func (f *fakeGmail) Trash(context.Context, string) error { return nil }

type fixture struct {
	deps  Deps
	gmail *fakeGmail
	store *storage.MemStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	svc := newFakeGmail()
	store := storage.NewMemStore()
	logger := slog.New(slog.DiscardHandler)

	ruleStore := rules.NewStore(store)
	stats := storage.NewStatsRepo(store)
	history := storage.NewHistoryRepo(store)
	labels := engine.NewLabelCache(svc, store, logger)
	eng := engine.New(svc, ruleStore, labels, stats, history, logger)
	sched := scheduler.New(eng, store, logger)
	t.Cleanup(sched.Stop)

	return &fixture{
		deps: Deps{
			Engine:    eng,
			Scheduler: sched,
			Rules:     ruleStore,
			Stats:     stats,
			History:   history,
			Logger:    logger,
		},
		gmail: svc,
		store: store,
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var request mcp.CallToolRequest
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestHandlePing(t *testing.T) {
	f := newFixture(t)

	result, err := f.deps.handlePing(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"status":"ok"}`, resultText(t, result))
}

func TestHandleProcessNow(t *testing.T) {
	f := newFixture(t)

	_, err := f.deps.Rules.Save(rules.Rule{
		Name:       "Shopping",
		Conditions: rules.Conditions{Senders: []string{"@shop.com"}},
		Actions:    rules.Actions{Label: "Shop", MarkRead: true},
		Active:     true,
	})
	require.NoError(t, err)

	f.gmail.messages["m1"] = gmail.Message{ID: "m1", From: "Deals <deals@shop.com>", Subject: "Sale"}
	f.gmail.queries["in:inbox is:unread"] = []string{"m1"}

	result, err := f.deps.handleProcessNow(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var report engine.Report
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &report))
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Processed)
	assert.Contains(t, f.gmail.modified, "m1")
}

func TestHandleRunRuleMissingID(t *testing.T) {
	f := newFixture(t)

	result, err := f.deps.handleRunRule(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRunRuleUnknown(t *testing.T) {
	f := newFixture(t)

	result, err := f.deps.handleRunRule(context.Background(), callRequest(map[string]any{"ruleId": "regra_nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "regra_nope")
}

func TestHandleSaveRule(t *testing.T) {
	f := newFixture(t)

	ruleJSON := `{"nome":"News","condicoes":{"remetente":["@news.com"]},"acoes":{"label":"News","arquivar":true},"ativa":true}`
	result, err := f.deps.handleSaveRule(context.Background(), callRequest(map[string]any{"rule": ruleJSON}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var saved rules.Rule
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &saved))
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "News", saved.Name)

	list, err := f.deps.Rules.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestHandleSaveRuleOmittedActiveDefaultsTrue(t *testing.T) {
	f := newFixture(t)

	ruleJSON := `{"nome":"Shopping","condicoes":{"remetente":["@shop.com"]},"acoes":{"label":"Shop"}}`
	result, err := f.deps.handleSaveRule(context.Background(), callRequest(map[string]any{"rule": ruleJSON}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var saved rules.Rule
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &saved))
	assert.True(t, saved.Active)

	active, err := f.deps.Rules.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, saved.ID, active[0].ID)
}

func TestHandleSaveRuleInvalidJSON(t *testing.T) {
	f := newFixture(t)

	result, err := f.deps.handleSaveRule(context.Background(), callRequest(map[string]any{"rule": "{not json"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleSaveRuleMissingName(t *testing.T) {
	f := newFixture(t)

	result, err := f.deps.handleSaveRule(context.Background(), callRequest(map[string]any{"rule": `{"ativa":true}`}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "nome")
}

func TestHandleToggleRule(t *testing.T) {
	f := newFixture(t)

	saved, err := f.deps.Rules.Save(rules.Rule{Name: "News", Active: true})
	require.NoError(t, err)

	result, err := f.deps.handleToggleRule(context.Background(), callRequest(map[string]any{
		"ruleId": saved.ID,
		"active": false,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	got, found, err := f.deps.Rules.Get(saved.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, got.Active)
}

func TestHandleDeleteRule(t *testing.T) {
	f := newFixture(t)

	saved, err := f.deps.Rules.Save(rules.Rule{Name: "News", Active: true})
	require.NoError(t, err)

	result, err := f.deps.handleDeleteRule(context.Background(), callRequest(map[string]any{"ruleId": saved.ID}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	list, err := f.deps.Rules.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHandleGetHistoryLimit(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.deps.History.Append(storage.HistoryEntry{
			MessageID: fmt.Sprintf("m%d", i),
			RuleName:  "News",
			Action:    storage.ActionProcessed,
		}))
	}

	result, err := f.deps.handleGetHistory(context.Background(), callRequest(map[string]any{"limit": float64(3)}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var entries []storage.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &entries))
	assert.Len(t, entries, 3)
}

func TestHandleLabelCount(t *testing.T) {
	f := newFixture(t)

	f.gmail.labels = []gmail.Label{{ID: "Label_1", Name: "Shop"}}
	f.gmail.sizes[`label:Shop`] = 42

	result, err := f.deps.handleLabelCount(context.Background(), callRequest(map[string]any{"label": "Shop"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.JSONEq(t, `{"label":"Shop","count":42}`, resultText(t, result))
}

func TestHandleConfigureSchedule(t *testing.T) {
	f := newFixture(t)

	result, err := f.deps.handleConfigureSchedule(context.Background(), callRequest(map[string]any{
		"enabled":         true,
		"intervalMinutes": float64(15),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var cfg storage.ScheduleConfig
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &cfg))
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 15, cfg.IntervalMinutes)
}

func TestHandleConfigureScheduleMissingEnabled(t *testing.T) {
	f := newFixture(t)

	result, err := f.deps.handleConfigureSchedule(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
