// Package command defines the rtcell CLI on top of urfave/cli/v2.
//
// Commands:
//
//   - stress: run the borrow stress harness and print its report
//   - config show|validate: inspect layered configuration
//   - version: build information
//
// Flags that are set explicitly override the configuration file and
// RTCELL_ environment variables.
package command
