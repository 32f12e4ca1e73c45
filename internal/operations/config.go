package operations

import (
	"time"
)

// Config represents the operation execution configuration
type Config struct {
	// Whole-run timeout used when the schema sets none
	DefaultTimeout time.Duration `json:"default_timeout"`

	// Number of uploads that may wait behind the running one
	QueueDepth int `json:"queue_depth"`

	// How long finished snapshots and jobs are kept
	SnapshotRetention time.Duration `json:"snapshot_retention"`
	JobRetention      time.Duration `json:"job_retention"`
}

// NewConfig returns the default operation configuration
func NewConfig() *Config {
	return &Config{
		DefaultTimeout:    DefaultProcessingTimeout,
		QueueDepth:        4,
		SnapshotRetention: time.Hour,
		JobRetention:      24 * time.Hour,
	}
}

// RunTimeout picks the schema timeout when set
func (c *Config) RunTimeout(schemaTimeout time.Duration) time.Duration {
	if schemaTimeout > 0 {
		return schemaTimeout
	}
	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}
	return DefaultProcessingTimeout
}

// ConfigBuilder provides a fluent interface for building operation configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: NewConfig(),
	}
}

// WithQueueDepth sets the number of uploads that may wait
func (b *ConfigBuilder) WithQueueDepth(depth int) *ConfigBuilder {
	if depth > 0 {
		b.config.QueueDepth = depth
	}
	return b
}

// WithRetention sets how long finished snapshots and jobs are kept
func (b *ConfigBuilder) WithRetention(snapshots, jobs time.Duration) *ConfigBuilder {
	if snapshots > 0 {
		b.config.SnapshotRetention = snapshots
	}
	if jobs > 0 {
		b.config.JobRetention = jobs
	}
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
