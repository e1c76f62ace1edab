package scheduler

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/emailzen/emailzen/internal/engine"
	"github.com/emailzen/emailzen/internal/gmail"
	"github.com/emailzen/emailzen/internal/instrumentation"
	"github.com/emailzen/emailzen/internal/rules"
	"github.com/emailzen/emailzen/internal/storage"
)

type idleService struct{}

func (idleService) ListLabels(context.Context) ([]gmail.Label, error) { return nil, nil }
func (idleService) CreateLabel(_ context.Context, name string) (gmail.Label, error) {
	return gmail.Label{ID: "Label_1", Name: name}, nil
}
func (idleService) ListMessages(context.Context, string, string, int64) (gmail.ListPage, error) {
	return gmail.ListPage{}, nil
}
func (idleService) GetMessage(_ context.Context, id string) (gmail.Message, error) {
	return gmail.Message{ID: id}, nil
}
func (idleService) Modify(context.Context, string, gmail.ModifySpec) error { return nil }
func (idleService) Trash(context.Context, string) error                    { return nil }

func newTestScheduler(t *testing.T) (*Scheduler, storage.Store) {
	t.Helper()
	store := storage.NewMemStore()
	logger := slog.New(slog.DiscardHandler)
	svc := idleService{}
	eng := engine.New(svc, rules.NewStore(store), engine.NewLabelCache(svc, store, logger),
		storage.NewStatsRepo(store), storage.NewHistoryRepo(store), logger)
	return New(eng, store, logger), store
}

func TestReconfigurePersistsAndClamps(t *testing.T) {
	s, store := newTestScheduler(t)

	cfg, err := s.Reconfigure(true, 10000)
	require.NoError(t, err)
	assert.Equal(t, storage.MaxIntervalMinutes, cfg.IntervalMinutes)

	loaded, err := storage.LoadSchedule(store)
	require.NoError(t, err)
	assert.True(t, loaded.Enabled)
	assert.Equal(t, storage.MaxIntervalMinutes, loaded.IntervalMinutes)
}

func TestStartStop(t *testing.T) {
	s, _ := newTestScheduler(t)

	require.NoError(t, s.Start(context.Background()))
	// Second Start while running is a no-op.
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	// Stop after stop is safe.
	s.Stop()
}

func TestReconfigureWhileRunning(t *testing.T) {
	s, _ := newTestScheduler(t)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	_, err := s.Reconfigure(false, 30)
	require.NoError(t, err)

	// A second reconfigure before the loop drains the first must not
	// block.
	_, err = s.Reconfigure(true, 15)
	require.NoError(t, err)
}

func TestProcessNowRunsImmediately(t *testing.T) {
	s, _ := newTestScheduler(t)

	report, err := s.ProcessNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Total)

	sweep, err := s.SweepNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sweep.Trashed)
}

func TestCyclesRecordMetrics(t *testing.T) {
	s, _ := newTestScheduler(t)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := instrumentation.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)
	s.SetMetrics(m)

	_, err = s.ProcessNow(context.Background())
	require.NoError(t, err)
	_, err = s.SweepNow(context.Background())
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			names = append(names, metric.Name)
		}
	}
	assert.Contains(t, names, "organizer_cycles_total")
	assert.Contains(t, names, "organizer_cycle_duration_seconds")
}
