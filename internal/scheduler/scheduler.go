// Package scheduler drives the background cadence: inbox processing at
// the user-configured interval and a daily retention sweep. Cycle
// errors are logged and swallowed so one bad cycle never stops the
// loop; the next tick retries naturally.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/emailzen/emailzen/internal/engine"
	"github.com/emailzen/emailzen/internal/instrumentation"
	"github.com/emailzen/emailzen/internal/logging"
	"github.com/emailzen/emailzen/internal/storage"
)

const sweepInterval = 24 * time.Hour

// Scheduler owns the processing and sweep loops.
type Scheduler struct {
	engine  *engine.Engine
	store   storage.Store
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu       sync.Mutex
	cancel   context.CancelFunc
	reconfig chan storage.ScheduleConfig
	wg       sync.WaitGroup
}

// New builds a stopped Scheduler.
func New(eng *engine.Engine, store storage.Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		engine:   eng,
		store:    store,
		logger:   logger,
		reconfig: make(chan storage.ScheduleConfig, 1),
	}
}

// SetMetrics attaches cycle metrics. Leaving them unset is fine; a nil
// Metrics records nothing.
func (s *Scheduler) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// Start launches the loops with the persisted schedule config. It
// returns immediately; Stop shuts the loops down.
func (s *Scheduler) Start(ctx context.Context) error {
	cfg, err := storage.LoadSchedule(s.store)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.processingLoop(loopCtx, cfg)
	go s.sweepLoop(loopCtx)

	s.logger.Info("scheduler started",
		slog.Bool("enabled", cfg.Enabled),
		slog.Int("interval_minutes", cfg.IntervalMinutes))
	return nil
}

// Stop cancels the loops and waits for in-flight cycles to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Reconfigure persists a new schedule and resets the processing timer.
func (s *Scheduler) Reconfigure(enabled bool, intervalMinutes int) (storage.ScheduleConfig, error) {
	cfg, err := storage.SaveSchedule(s.store, storage.ScheduleConfig{
		Enabled:         enabled,
		IntervalMinutes: intervalMinutes,
	})
	if err != nil {
		return storage.ScheduleConfig{}, err
	}

	// Replace any pending reconfiguration with the latest one.
	select {
	case <-s.reconfig:
	default:
	}
	s.reconfig <- cfg

	s.logger.Info("schedule reconfigured",
		slog.Bool("enabled", cfg.Enabled),
		slog.Int("interval_minutes", cfg.IntervalMinutes))
	return cfg, nil
}

// ProcessNow runs one processing cycle immediately.
func (s *Scheduler) ProcessNow(ctx context.Context) (engine.Report, error) {
	return s.runProcess(ctx)
}

// SweepNow runs one retention sweep immediately.
func (s *Scheduler) SweepNow(ctx context.Context) (engine.SweepReport, error) {
	return s.runSweep(ctx)
}

// runProcess executes one processing cycle and records its metrics, so
// timer-driven and manual cycles are observed the same way.
func (s *Scheduler) runProcess(ctx context.Context) (engine.Report, error) {
	start := time.Now()
	report, err := s.engine.ProcessInbox(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	s.metrics.RecordCycle(ctx, instrumentation.OpProcess, status, time.Since(start))
	if err == nil {
		s.metrics.AddProcessed(ctx, int64(report.Processed))
	}
	return report, err
}

func (s *Scheduler) runSweep(ctx context.Context) (engine.SweepReport, error) {
	start := time.Now()
	report, err := s.engine.RetentionSweep(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	s.metrics.RecordCycle(ctx, instrumentation.OpSweep, status, time.Since(start))
	if err == nil {
		s.metrics.AddTrashed(ctx, int64(report.Trashed), report.BytesFreed)
	}
	return report, err
}

func (s *Scheduler) processingLoop(ctx context.Context, cfg storage.ScheduleConfig) {
	defer s.wg.Done()

	timer := time.NewTimer(nextTick(cfg))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case newCfg := <-s.reconfig:
			cfg = newCfg
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(nextTick(cfg))

		case <-timer.C:
			if cfg.Enabled {
				if _, err := s.runProcess(ctx); err != nil && ctx.Err() == nil {
					s.logger.Warn("processing cycle failed", logging.Err(err))
				}
			}
			timer.Reset(nextTick(cfg))
		}
	}
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.runSweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("retention sweep failed", logging.Err(err))
			}
		}
	}
}

// nextTick returns the wait before the next processing attempt. A
// disabled schedule still wakes periodically to pick up a re-enable
// that arrives without a reconfigure signal.
func nextTick(cfg storage.ScheduleConfig) time.Duration {
	if !cfg.Enabled {
		return time.Minute
	}
	return cfg.Interval()
}
