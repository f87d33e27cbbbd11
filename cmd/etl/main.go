package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"csvetl/internal/config"
	"csvetl/internal/etl"
	"csvetl/internal/logging"
	"csvetl/internal/schedule"

	// register the storage backends with the storage factory.
	_ "csvetl/internal/storage/all"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1 // the run failed
	exitUsage  = 2 // bad flags or configuration
)

// main is the entry point for the load job. It resolves the configuration,
// sets up logging and metrics, and runs the job once or on a schedule.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	code := run(ctx, os.Args[1:], os.Stderr, hup)
	stop()
	os.Exit(code)
}

// options holds the parsed command line.
type options struct {
	cfgPath     string
	writeConfig string
	validate    bool
	verbose     bool
}

// run is main without the process globals. hup delivers manual triggers in
// scheduled mode; it may be nil.
func run(ctx context.Context, args []string, stderr io.Writer, hup <-chan os.Signal) int {
	p, opt, err := resolve(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "etl: %v\n", err)
		return exitUsage
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "etl: configuration is invalid\n")
		return exitUsage
	}

	if opt.writeConfig != "" {
		if err := config.Save(opt.writeConfig, p); err != nil {
			fmt.Fprintf(stderr, "etl: %v\n", err)
			return exitFailed
		}
		fmt.Fprintf(stderr, "etl: configuration written to %s\n", opt.writeConfig)
		return exitOK
	}
	if opt.validate {
		fmt.Fprintf(stderr, "etl: configuration is valid\n")
		return exitOK
	}

	logFile, err := logging.Setup(logging.Options{Path: p.Log.Path, Level: p.Log.Level, Stderr: opt.verbose})
	if err != nil {
		fmt.Fprintf(stderr, "etl: %v\n", err)
		return exitUsage
	}
	defer logFile.Close()

	closeMetrics, err := setupMetrics(p)
	if err != nil {
		slog.Error("metrics: setup failed", "err", err)
		return exitUsage
	}
	defer closeMetrics()

	if every := p.Schedule.Every.Std(); every > 0 {
		return runScheduled(ctx, p, every, hup)
	}

	if res := etl.Run(ctx, p); !res.OK() {
		return exitFailed
	}
	return exitOK
}

// resolve builds the configuration: defaults, config file, environment,
// then any flag given on the command line.
func resolve(args []string, stderr io.Writer) (config.Pipeline, options, error) {
	var (
		opt options

		csvPath, dbPath, table   string
		logPath, logLevel, every string
		backend, gwURL, ddAddr   string
		verify                   bool
	)

	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opt.cfgPath, "config", "", "JSONC config file (default "+config.DefaultFile+" when present)")
	fs.StringVar(&csvPath, "csv", "", "CSV file to load (default "+config.DefaultCSVPath+")")
	fs.StringVar(&dbPath, "db", "", "SQLite database file (default "+config.DefaultDBPath+")")
	fs.StringVar(&table, "table", "", "destination table, replaced on every run (default "+config.DefaultTable+")")
	fs.StringVar(&logPath, "log-file", "", "append-only log file (default "+config.DefaultLogPath+")")
	fs.StringVar(&logLevel, "log-level", "", "debug, info, warn, or error")
	fs.StringVar(&every, "every", "", "run repeatedly at this interval, e.g. 10m")
	fs.StringVar(&backend, "metrics-backend", "", "metrics backend: none, pushgateway, or datadog")
	fs.StringVar(&gwURL, "pushgateway-url", "", "Pushgateway base URL")
	fs.StringVar(&ddAddr, "dogstatsd-addr", "", "DogStatsD address, e.g. 127.0.0.1:8125")
	fs.BoolVar(&verify, "verify", false, "read the table back after writing and compare")
	fs.BoolVar(&opt.validate, "validate", false, "validate the configuration and exit")
	fs.StringVar(&opt.writeConfig, "write-config", "", "write the resolved configuration to this file and exit")
	fs.BoolVarP(&opt.verbose, "verbose", "v", false, "mirror logs to stderr")

	if err := fs.Parse(args); err != nil {
		return config.Pipeline{}, opt, err
	}
	if fs.NArg() > 0 {
		return config.Pipeline{}, opt, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	p, err := config.Load(opt.cfgPath)
	if err != nil {
		return config.Pipeline{}, opt, err
	}

	for _, f := range []struct {
		name string
		src  string
		dst  *string
	}{
		{"csv", csvPath, &p.Source.Path},
		{"db", dbPath, &p.Storage.Path},
		{"table", table, &p.Storage.Table},
		{"log-file", logPath, &p.Log.Path},
		{"log-level", logLevel, &p.Log.Level},
		{"metrics-backend", backend, &p.Metrics.Backend},
		{"pushgateway-url", gwURL, &p.Metrics.PushgatewayURL},
		{"dogstatsd-addr", ddAddr, &p.Metrics.DogStatsDAddr},
	} {
		if fs.Changed(f.name) {
			*f.dst = f.src
		}
	}
	if fs.Changed("every") {
		d, err := time.ParseDuration(every)
		if err != nil {
			return config.Pipeline{}, opt, fmt.Errorf("--every: %w", err)
		}
		p.Schedule.Every = config.Duration(d)
	}
	if fs.Changed("verify") {
		p.Storage.Verify = verify
	}
	return p, opt, nil
}

// runScheduled runs the job every interval until ctx is canceled. SIGHUP
// starts a run immediately.
func runScheduled(ctx context.Context, p config.Pipeline, every time.Duration, hup <-chan os.Signal) int {
	s, err := schedule.New(every, func(ctx context.Context) error {
		return etl.Run(ctx, p).Err
	})
	if err != nil {
		slog.Error(err.Error())
		return exitUsage
	}

	if hup != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-hup:
					slog.Info("SIGHUP received; triggering run")
					s.Trigger()
				}
			}
		}()
	}

	s.Start(ctx)
	return exitOK
}
