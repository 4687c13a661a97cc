// Package config defines the configuration of the borrow stress harness.
//
//   - spec.go: Config struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation
//   - load.go: Layered loading through internal/infra/confloader
//
// Keys are single words per level (stress.workers, log.level) so they map
// one-to-one onto RTCELL_ environment variables.
package config
