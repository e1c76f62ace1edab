package storage

import (
	"sync"
	"time"
)

// Statistics holds the lifetime processing counters. Field names match
// the extension's stored schema.
type Statistics struct {
	EmailsProcessed int64 `json:"emailsProcessados"`
	EmailsDeleted   int64 `json:"emailsExcluidos"`
	BytesSaved      int64 `json:"espacoEconomizado"`
	UpdatedAt       int64 `json:"ultimaAtualizacao"`
}

// StatsDelta is a set of increments to apply to the counters. Callers
// always pass deltas, never pre-summed totals.
type StatsDelta struct {
	Processed  int64
	Deleted    int64
	BytesSaved int64
}

// StatsRepo reads and increments Statistics. Increments are serialized
// through a mutex so overlapping triggers (alarm tick plus a manual
// "process now") cannot lose updates in the read-modify-write.
type StatsRepo struct {
	store Store
	mu    sync.Mutex
	now   func() time.Time
}

// NewStatsRepo returns a repo over the given store.
func NewStatsRepo(store Store) *StatsRepo {
	return &StatsRepo{store: store, now: time.Now}
}

// Get returns the current statistics, zero-valued when none were saved.
func (r *StatsRepo) Get() (Statistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *StatsRepo) load() (Statistics, error) {
	var stats Statistics
	if _, err := r.store.Get(KeyStatistics, &stats); err != nil {
		return Statistics{}, err
	}
	return stats, nil
}

// Increment applies a delta to the stored counters.
func (r *StatsRepo) Increment(delta StatsDelta) (Statistics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, err := r.load()
	if err != nil {
		return Statistics{}, err
	}

	stats.EmailsProcessed += delta.Processed
	stats.EmailsDeleted += delta.Deleted
	stats.BytesSaved += delta.BytesSaved
	stats.UpdatedAt = r.now().UnixMilli()

	if err := r.store.Set(KeyStatistics, stats); err != nil {
		return Statistics{}, err
	}
	return stats, nil
}
