package config

import (
	"fmt"

	"github.com/yndnr/rtcell-go/internal/infra/confloader"
)

// Load builds a Config from defaults, the optional YAML file at path,
// RTCELL_ environment variables and overrides, in increasing priority.
// The result is verified.
func Load(path string, overrides map[string]any) (*Config, error) {
	cfg := Default()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("verify config: %w", err)
	}
	return cfg, nil
}
