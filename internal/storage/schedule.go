package storage

import "time"

// Schedule bounds for the periodic inbox check.
const (
	DefaultIntervalMinutes = 5
	MinIntervalMinutes     = 1
	MaxIntervalMinutes     = 1440
)

// ScheduleConfig controls the periodic inbox verification.
type ScheduleConfig struct {
	Enabled         bool  `json:"ativa"`
	IntervalMinutes int   `json:"intervaloMinutos"`
	UpdatedAt       int64 `json:"atualizadoEm,omitempty"`
}

// Interval returns the configured interval as a duration.
func (c ScheduleConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// ClampInterval forces minutes into the allowed 1-1440 range.
func ClampInterval(minutes int) int {
	if minutes < MinIntervalMinutes {
		return DefaultIntervalMinutes
	}
	if minutes > MaxIntervalMinutes {
		return MaxIntervalMinutes
	}
	return minutes
}

// LoadSchedule returns the stored schedule config, falling back to the
// defaults (enabled, 5 minutes) when none was saved.
func LoadSchedule(store Store) (ScheduleConfig, error) {
	cfg := ScheduleConfig{Enabled: true, IntervalMinutes: DefaultIntervalMinutes}
	ok, err := store.Get(KeySchedule, &cfg)
	if err != nil {
		return ScheduleConfig{}, err
	}
	if !ok {
		return cfg, nil
	}
	cfg.IntervalMinutes = ClampInterval(cfg.IntervalMinutes)
	return cfg, nil
}

// SaveSchedule persists the schedule config, clamping the interval.
func SaveSchedule(store Store, cfg ScheduleConfig) (ScheduleConfig, error) {
	cfg.IntervalMinutes = ClampInterval(cfg.IntervalMinutes)
	cfg.UpdatedAt = time.Now().UnixMilli()
	if err := store.Set(KeySchedule, cfg); err != nil {
		return ScheduleConfig{}, err
	}
	return cfg, nil
}
