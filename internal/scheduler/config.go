package scheduler

import "time"

// Config controls sweep cadence and per-run bounds.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	LockTTL     time.Duration
	// BatchSize caps variant ids per fetch; the API rejects batches over 250.
	BatchSize int
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 5 * time.Minute,
		JobTimeout:  2 * time.Minute,
		LockTTL:     3 * time.Minute,
		BatchSize:   250,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.BatchSize <= 0 || c.BatchSize > defaults.BatchSize {
		c.BatchSize = defaults.BatchSize
	}
	return c
}
