package command

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rtcell-go/internal/cli/output"
	"github.com/yndnr/rtcell-go/internal/infra/buildinfo"
	"github.com/yndnr/rtcell-go/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "rtcell",
		Usage:   "Exercise and inspect run-time borrow-checked cells",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			StressCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error (overrides config)",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: console, text, json (overrides config)",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colors in console logs",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Output    string
	LogLevel  string
	LogFormat string
	NoColor   bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Output:    c.String("output"),
		LogLevel:  c.String("log-level"),
		LogFormat: c.String("log-format"),
		NoColor:   c.Bool("no-color"),
	}
}

// overrides turns explicitly set flags into confloader overrides.
// keys maps flag names to configuration keys.
func overrides(c *cli.Context, keys map[string]string) map[string]any {
	values := make(map[string]any)
	for flag, key := range keys {
		if c.IsSet(flag) {
			values[key] = c.Value(flag)
		}
	}
	return values
}

// logOverrides are the global flags that map onto configuration keys.
var logOverrides = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
}

// printResult writes data to the app writer in the format chosen by --output.
func printResult(c *cli.Context, data any) error {
	format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

// newLogger builds the process logger and installs it as the default.
func newLogger(c *cli.Context, level, format string, w io.Writer) (logger.Logger, error) {
	l, err := logger.New(logger.Config{
		Level:   level,
		Format:  format,
		Output:  w,
		NoColor: ParseGlobalFlags(c).NoColor,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(l)
	return l, nil
}
