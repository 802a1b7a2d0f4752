package config

import "time"

// SyncConfig holds synchronization configuration
type SyncConfig struct {
	// Intervals of zero leave the corresponding recurring job unscheduled.
	FullInterval         time.Duration
	IncrementalInterval  time.Duration
	HistoryLimit         int
	SSEHeartbeatInterval time.Duration
	SSEMaxLifetime       time.Duration
	HealthTimeout        time.Duration
	ShutdownTimeout      time.Duration
	Retention            RetentionConfig
	Batch                BatchConfig
}

// BatchConfig holds batch processing configuration
type BatchConfig struct {
	Size       int
	MaxRetries int
	BatchDelay time.Duration
}

// RetentionConfig holds the cleanup defaults
type RetentionConfig struct {
	SyncHistoryDays int
	TicketDays      int
}

// DefaultSyncConfig returns the default sync configuration
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		HistoryLimit:         10,
		SSEHeartbeatInterval: 15 * time.Second,
		SSEMaxLifetime:       30 * time.Minute,
		HealthTimeout:        5 * time.Second,
		ShutdownTimeout:      30 * time.Second,
		Retention: RetentionConfig{
			SyncHistoryDays: 30,
			TicketDays:      90,
		},
		Batch: BatchConfig{
			Size:       100,
			MaxRetries: 0,
			BatchDelay: 0,
		},
	}
}
