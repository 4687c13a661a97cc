package config

import (
	"errors"
	"fmt"
	"math/bits"
	"net"
)

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"json": true, "text": true, "console": true}
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := verifyStress(&cfg.Stress); err != nil {
		return err
	}
	if err := verifyMetrics(&cfg.Metrics); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyStress(cfg *StressSection) error {
	if cfg.Workers < 1 {
		return errors.New("stress.workers must be at least 1")
	}
	if cfg.Cells < 1 {
		return errors.New("stress.cells must be at least 1")
	}
	if cfg.Shards < 1 || bits.OnesCount(uint(cfg.Shards)) != 1 {
		return fmt.Errorf("stress.shards must be a power of two, got %d", cfg.Shards)
	}
	if cfg.Reads < 0 || cfg.Reads > 1 {
		return fmt.Errorf("stress.reads must be within [0, 1], got %v", cfg.Reads)
	}
	if cfg.Duration < 0 {
		return errors.New("stress.duration must not be negative")
	}
	if cfg.Rate < 0 {
		return errors.New("stress.rate must not be negative")
	}
	if cfg.Hold < 0 {
		return errors.New("stress.hold must not be negative")
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("metrics.addr: %w", err)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !validLevels[cfg.Level] {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	if !validFormats[cfg.Format] {
		return fmt.Errorf("log.format %q is not one of json, text, console", cfg.Format)
	}
	return nil
}
