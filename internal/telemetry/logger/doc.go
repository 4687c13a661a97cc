// Package logger provides structured logging for rtcell tools.
//
//   - logger.go: Logger interface over log/slog, handler selection
//   - context.go: Context-aware logging with run IDs
//
// Features:
//
//   - JSON, text and colored console output formats
//   - Log level filtering, adjustable at run time
//   - Context propagation for stress run correlation
//
// The rtref and rtmap packages never log; only the tools built on them do.
package logger
