package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rtcell-go/internal/cli/output"
	"github.com/yndnr/rtcell-go/internal/infra/confloader"
	"github.com/yndnr/rtcell-go/internal/infra/shutdown"
	"github.com/yndnr/rtcell-go/internal/stress"
	"github.com/yndnr/rtcell-go/internal/stress/config"
	"github.com/yndnr/rtcell-go/internal/telemetry/logger"
	"github.com/yndnr/rtcell-go/internal/telemetry/metric"
)

// shutdownTimeout bounds metrics server and watcher teardown.
const shutdownTimeout = 5 * time.Second

// stressOverrides maps stress flags onto configuration keys.
var stressOverrides = map[string]string{
	"workers":      "stress.workers",
	"duration":     "stress.duration",
	"cells":        "stress.cells",
	"shards":       "stress.shards",
	"reads":        "stress.reads",
	"rate":         "stress.rate",
	"hold":         "stress.hold",
	"metrics-addr": "metrics.addr",
}

// StressCommand returns the stress command.
func StressCommand() *cli.Command {
	return &cli.Command{
		Name:  "stress",
		Usage: "Hammer a shared map of cells and check borrow invariants",
		Description: "Workers take shared and exclusive borrows of random cells. The run fails\n" +
			"if any reader observes a half-written value, two holders alias one cell,\n" +
			"or the final values disagree with the number of completed writes.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"RTCELL_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of concurrent workers",
			},
			&cli.DurationFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "Run length, 0 runs until interrupted",
			},
			&cli.IntFlag{
				Name:  "cells",
				Usage: "Number of cells in the shared map",
			},
			&cli.IntFlag{
				Name:  "shards",
				Usage: "Shard count of the shared map (power of two)",
			},
			&cli.Float64Flag{
				Name:  "reads",
				Usage: "Fraction of operations that borrow shared (0..1)",
			},
			&cli.IntFlag{
				Name:  "rate",
				Usage: "Operations per second per worker, 0 is unlimited",
			},
			&cli.DurationFlag{
				Name:  "hold",
				Usage: "Pause inside each exclusive borrow",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9100)",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Seed for the workers' random choices",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reload log.level when the config file changes",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Do not draw progress",
			},
		},
		Action: runStress,
	}
}

func runStress(c *cli.Context) error {
	path := c.String("config")
	values := overrides(c, stressOverrides)
	for k, v := range overrides(c, logOverrides) {
		values[k] = v
	}

	cfg, err := config.Load(path, values)
	if err != nil {
		return err
	}
	if _, err := output.ParseFormat(ParseGlobalFlags(c).Output); err != nil {
		return err
	}

	log, err := newLogger(c, cfg.Log.Level, cfg.Log.Format, c.App.ErrWriter)
	if err != nil {
		return err
	}

	h := shutdown.NewHandler(shutdownTimeout)
	ctx, stop := h.Context(c.Context)
	defer stop()

	reg := metric.NewRegistry()
	opts := []stress.Option{
		stress.WithLogger(log),
		stress.WithMetrics(reg),
	}
	if c.IsSet("seed") {
		opts = append(opts, stress.WithSeed(c.Uint64("seed")))
	}

	var finishProgress func(ok bool)
	if !c.Bool("quiet") {
		var opt stress.Option
		opt, finishProgress = progressOption(c.App.ErrWriter, cfg.Stress.Duration)
		opts = append(opts, opt)
	}

	runner := stress.New(cfg.Stress, opts...)
	if err := reg.Register(metric.NewCollector("stress", runner.Map())); err != nil {
		return fmt.Errorf("register map collector: %w", err)
	}

	if cfg.Metrics.Addr != "" {
		if err := serveMetrics(h, cfg.Metrics.Addr, reg, log); err != nil {
			return err
		}
	}

	if path != "" && c.Bool("watch") {
		if err := watchLogLevel(h, path, values, log); err != nil {
			return err
		}
	}

	report, runErr := runner.Run(ctx)
	if finishProgress != nil {
		finishProgress(runErr == nil)
	}

	if err := h.Shutdown(); err != nil {
		log.Warn("shutdown incomplete", "error", err)
	}

	if report != nil {
		if err := printReport(c, report); err != nil {
			return err
		}
	}
	return runErr
}

func printReport(c *cli.Context, report *stress.Report) error {
	format, _ := output.ParseFormat(ParseGlobalFlags(c).Output)
	if format == output.FormatTable {
		return reportTable(report).Render(c.App.Writer)
	}
	return output.NewFormatter(format).Format(c.App.Writer, report)
}

// reportTable lays out a report for humans.
func reportTable(r *stress.Report) *output.Table {
	status := "ok"
	if !r.OK() {
		status = "FAILED"
	}

	t := &output.Table{}
	t.SetHeaders("FIELD", "VALUE")
	t.AddRow("run_id", r.RunID)
	t.AddRow("status", status)
	t.AddRow("elapsed", r.Elapsed.Round(time.Millisecond).String())
	t.AddRow("workers", fmt.Sprint(r.Workers))
	t.AddRow("cells", fmt.Sprint(r.Cells))
	t.AddRow("ops", fmt.Sprint(r.Ops))
	t.AddRow("ops_per_sec", fmt.Sprintf("%.0f", r.OpsPerSecond()))
	t.AddRow("reads", fmt.Sprint(r.Reads))
	t.AddRow("writes", fmt.Sprint(r.Writes))
	t.AddRow("conflicts.shared", fmt.Sprint(r.Conflicts.Shared))
	t.AddRow("conflicts.exclusive", fmt.Sprint(r.Conflicts.Exclusive))
	t.AddRow("violations", fmt.Sprint(r.Violations.Total()))
	t.AddRow("violations.torn_reads", fmt.Sprint(r.Violations.TornReads))
	t.AddRow("violations.aliased_readers", fmt.Sprint(r.Violations.AliasedReaders))
	t.AddRow("violations.aliased_writers", fmt.Sprint(r.Violations.AliasedWriters))
	t.AddRow("violations.lost_updates", fmt.Sprint(r.Violations.LostUpdates))
	t.AddRow("violations.leaked_borrows", fmt.Sprint(r.Violations.LeakedBorrows))
	return t
}

// progressOption draws a bar for bounded runs and a spinner otherwise.
// The returned func ends the display; ok reports whether the run passed.
func progressOption(w io.Writer, total time.Duration) (stress.Option, func(ok bool)) {
	if total > 0 {
		bar := output.NewProgressBar(w, "stress", output.UnitDuration)
		opt := stress.WithProgress(func(p stress.Progress) {
			bar.SetSuffix(fmt.Sprintf("%d ops", p.Ops))
			bar.Update(int64(p.Elapsed), int64(p.Total))
		}, 0)
		return opt, func(bool) { bar.Finish() }
	}

	spinner := output.NewSpinner(w, "stress: starting")
	spinner.Start()
	opt := stress.WithProgress(func(p stress.Progress) {
		spinner.SetMessage(fmt.Sprintf("stress: %s, %d ops (ctrl-c to stop)",
			p.Elapsed.Round(time.Second), p.Ops))
	}, 0)
	return opt, func(ok bool) {
		if ok {
			spinner.Success("stress: finished")
			return
		}
		spinner.Fail("stress: failed")
	}
}

func serveMetrics(h *shutdown.Handler, addr string, reg *metric.Registry, log logger.Logger) error {
	srv, err := metric.NewServer(addr, reg.Handler(), logger.Slog(log))
	if err != nil {
		return fmt.Errorf("metrics endpoint: %w", err)
	}
	go func() {
		if err := srv.Serve(); err != nil {
			log.Error("metrics endpoint failed", "error", err)
		}
	}()
	h.OnShutdown(srv.Shutdown)
	return nil
}

// watchLogLevel re-reads the configuration on change and applies log.level.
// Flag overrides keep winning over the file.
func watchLogLevel(h *shutdown.Handler, path string, values map[string]any, log logger.Logger) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger.Slog(log)))
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	w.OnChange(func(string) {
		cfg, err := config.Load(path, values)
		if err != nil {
			log.Warn("ignoring invalid config change", "path", path, "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()

	h.OnShutdown(func(context.Context) error {
		return w.Stop()
	})
	return nil
}
