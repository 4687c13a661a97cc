package config

import "time"

// Config is the root configuration for rtcell stress.
type Config struct {
	Stress  StressSection  `koanf:"stress"`
	Metrics MetricsSection `koanf:"metrics"`
	Log     LogSection     `koanf:"log"`
}

// StressSection configures the worker pool and the shared map.
type StressSection struct {
	// Workers is the number of concurrent goroutines borrowing cells.
	Workers int `koanf:"workers"`

	// Duration bounds the run. Zero means run until cancelled.
	Duration time.Duration `koanf:"duration"`

	// Cells is the number of keys in the shared map.
	Cells int `koanf:"cells"`

	// Shards is the shard count of the shared map (power of two).
	Shards int `koanf:"shards"`

	// Reads is the fraction of operations that take a shared borrow (0..1).
	Reads float64 `koanf:"reads"`

	// Rate limits operations per worker per second. Zero disables limiting.
	Rate int `koanf:"rate"`

	// Hold is how long a writer keeps its exclusive borrow between the
	// two halves of a write. Widens the window for torn reads.
	Hold time.Duration `koanf:"hold"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
