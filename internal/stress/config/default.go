package config

import "time"

// Default configuration values.
const (
	DefaultWorkers  = 8
	DefaultDuration = 10 * time.Second
	DefaultCells    = 64
	DefaultShards   = 16
	DefaultReads    = 0.8
	DefaultRate     = 0
	DefaultHold     = 0

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Stress: StressSection{
			Workers:  DefaultWorkers,
			Duration: DefaultDuration,
			Cells:    DefaultCells,
			Shards:   DefaultShards,
			Reads:    DefaultReads,
			Rate:     DefaultRate,
			Hold:     DefaultHold,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
