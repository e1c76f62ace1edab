package storage

import (
	"sort"
	"time"
)

// History actions recorded by the engine.
const (
	ActionProcessed = "processado"
	ActionDeleted   = "excluido"
)

// historyWindow is how far back entries are kept; older entries are
// pruned on every append.
const historyWindow = 7 * 24 * time.Hour

// HistoryEntry is one append-only log record. Rule id and name are
// copied at append time, not referenced, so later rule edits do not
// rewrite history.
type HistoryEntry struct {
	Action        string `json:"acao"`
	MessageID     string `json:"messageId"`
	RuleID        string `json:"regraId"`
	RuleName      string `json:"regraNome"`
	RetentionDays int    `json:"diasRetencao,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// HistoryRepo appends and lists processing history.
type HistoryRepo struct {
	store Store
	now   func() time.Time
}

// NewHistoryRepo returns a repo over the given store.
func NewHistoryRepo(store Store) *HistoryRepo {
	return &HistoryRepo{store: store, now: time.Now}
}

// Append records an entry, stamping it and pruning everything older than
// the trailing 7-day window.
func (r *HistoryRepo) Append(entry HistoryEntry) error {
	var entries []HistoryEntry
	if _, err := r.store.Get(KeyHistory, &entries); err != nil {
		return err
	}

	entry.Timestamp = r.now().UnixMilli()
	entries = append(entries, entry)

	cutoff := r.now().Add(-historyWindow).UnixMilli()
	kept := entries[:0]
	for _, e := range entries {
		if e.Timestamp > cutoff {
			kept = append(kept, e)
		}
	}

	return r.store.Set(KeyHistory, kept)
}

// List returns history entries, newest first.
func (r *HistoryRepo) List() ([]HistoryEntry, error) {
	var entries []HistoryEntry
	if _, err := r.store.Get(KeyHistory, &entries); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}
