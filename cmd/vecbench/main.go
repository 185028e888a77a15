// vecbench replays a randomized editing workload against a vec.Vec[byte]
// text buffer and prints timing and allocator statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pavanmanishd/vec"
	"github.com/pavanmanishd/vec/internal/workload"
)

const configFileOption = "config.file"

type mainFlags struct {
	configFile string
	logLevel   string
}

func (mf *mainFlags) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(&mf.configFile, configFileOption, "", "YAML workload file to load.")
	fs.StringVar(&mf.logLevel, "log.level", "info", "Only log messages with the given severity or above. Valid levels: [debug, info, warn, error]")
}

func main() {
	var (
		cfg workload.Config
		mf  mainFlags
	)
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	mf.registerFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	// Flags given on the command line win over the config file.
	if mf.configFile != "" {
		if err := workload.LoadConfig(mf.configFile, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "error loading config from %s: %v\n", mf.configFile, err)
			os.Exit(1)
		}
		if err := fs.Parse(os.Args[1:]); err != nil {
			os.Exit(2)
		}
	}

	logger, err := newLogger(mf.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	vec.SetLogger(logger)

	runner, err := workload.NewRunner(cfg, logger, prometheus.NewRegistry())
	if err != nil {
		level.Error(logger).Log("msg", "error validating config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("Vec Workload Benchmark")
	fmt.Println("======================")
	fmt.Printf("Allocator:  %s\n", cfg.Allocator)
	fmt.Printf("Steps:      %s\n", humanize.Comma(int64(cfg.Steps)))
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Println()

	rep, err := runner.Run(ctx)
	if err != nil {
		level.Error(logger).Log("msg", "workload failed", "step", rep.Steps, "err", err)
		os.Exit(1)
	}
	printReport(rep)
}

func newLogger(lvl string) (log.Logger, error) {
	var opt level.Option
	switch lvl {
	case "debug":
		opt = level.AllowDebug()
	case "info":
		opt = level.AllowInfo()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		return nil, fmt.Errorf("unrecognized log level %q", lvl)
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, opt)
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}

func printReport(rep workload.Report) {
	perOp := time.Duration(0)
	if rep.Steps > 0 {
		perOp = rep.Duration / time.Duration(rep.Steps)
	}
	fmt.Printf("%-14s %v (%v/edit)\n", "Duration:", rep.Duration.Round(time.Microsecond), perOp)
	for op := workload.OpInsert; op <= workload.OpShrink; op++ {
		fmt.Printf("  %-12s %s\n", op.String()+":", humanize.Comma(int64(rep.Count(op))))
	}
	fmt.Printf("%-14s %s\n", "Length:", humanize.IBytes(uint64(rep.Len)))
	fmt.Printf("%-14s %s\n", "Capacity:", humanize.IBytes(uint64(rep.Cap)))
	fmt.Printf("%-14s %s\n", "Allocator:", rep.Allocator)
	if rep.Arena != nil {
		fmt.Printf("%-14s %s\n", "Arena:", rep.Arena)
	}
}
