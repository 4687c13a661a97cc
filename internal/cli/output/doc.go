// Package output renders command results for the rtcell CLI.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: Aligned key/value and row tables
//   - json.go, yaml.go: Machine-readable output
//   - progress.go: Progress bar for bounded runs
//   - spinner.go: Activity indicator for unbounded runs
//
// Results go to stdout; progress and spinners go to stderr so piping
// json or yaml output stays clean.
package output
