package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"marketscan/internal/app"
	"marketscan/internal/config"
	"marketscan/internal/logger"
	"marketscan/internal/scan/macro"
	"marketscan/internal/scheduler"
	"marketscan/internal/synth"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("marketscan: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("marketscan", flag.ExitOnError)
	cfgPath := fs.String("config", "configs/config.yaml", "config file path")
	testFlag := fs.Bool("test", false, "send a connectivity test alert and exit")
	dryRun := fs.Bool("dry-run", false, "run the full pipeline without delivering alerts")
	importPath := fs.String("import", "", "macro mode: catalyst JSON file, or - for stdin")
	research := fs.String("research", "", "macro mode: 'list', or a results JSON file / - for stdin")
	interval := fs.String("interval", "", "market mode: keep scanning on this interval (e.g. 5m, 1h)")
	fs.Usage = usage(fs)

	args := os.Args[1:]
	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("missing mode")
	}
	mode := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if err := logger.Setup(cfg.App.LogLevel, cfg.App.LogPath); err != nil {
		return fmt.Errorf("initializing log output failed: %w", err)
	}
	if cfg.App.AILogPath != "" {
		f, err := os.OpenFile(cfg.App.AILogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("initializing AI log failed: %w", err)
		}
		defer f.Close()
		logger.SetAIWriter(f)
	}
	logger.EnableAIPayloadDump(cfg.App.AIDump)

	a, err := app.Build(cfg, app.Options{DryRun: *dryRun})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if *testFlag {
		return a.Notifier.Test(ctx)
	}

	switch mode {
	case "market":
		if *interval != "" {
			return runMarketLoop(ctx, a, *interval)
		}
		return runMarketCycle(ctx, a)
	case "macro":
		return runMacro(ctx, a, *importPath, *research)
	default:
		fs.Usage()
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func runMarketCycle(ctx context.Context, a *app.App) error {
	stats, err := a.Monitor.Run(ctx)
	if err != nil {
		return err
	}
	logger.Infof("[main] market cycle done: %d observed, %d signals, %d alerts, %d ideas, %d resolved",
		stats.Observed, stats.Signals, stats.Alerts, stats.Ideas, stats.Resolved)
	return nil
}

// runMarketLoop repeats market cycles on interval boundaries until
// interrupted. Cycle errors are logged, not fatal.
func runMarketLoop(ctx context.Context, a *app.App, interval string) error {
	d, ok := scheduler.ParseIntervalDuration(interval)
	if !ok {
		return fmt.Errorf("invalid interval %q", interval)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewAlignedScheduler(ctx, d, 0)
	sched.RunImmediately = true
	sched.Start(func() {
		if err := runMarketCycle(ctx, a); err != nil {
			logger.Errorf("[main] market cycle failed: %v", err)
		}
	})
	return nil
}

func runMacro(ctx context.Context, a *app.App, importPath, research string) error {
	if research == "list" {
		return a.Macro.ListResearch()
	}
	if research != "" {
		r, closeFn, err := openInput(research)
		if err != nil {
			return err
		}
		defer closeFn()
		n, err := a.Macro.CompleteResearch(ctx, r)
		if err != nil {
			return err
		}
		logger.Infof("[main] completed %d research items", n)
		return nil
	}

	cats, err := readCatalysts(importPath)
	if err != nil {
		return err
	}
	stats, err := a.Macro.Run(ctx, cats)
	if err != nil {
		return err
	}
	logger.Infof("[main] macro scan done: %d catalysts, %d queued, %d ideas, %d resolved",
		stats.Catalysts, stats.Queued, stats.Ideas, stats.Resolved)
	return nil
}

func readCatalysts(path string) ([]synth.Catalyst, error) {
	if path == "" {
		return nil, nil
	}
	r, closeFn, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return macro.ReadCatalysts(r)
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintln(os.Stderr, "usage: marketscan <market|macro> [flags]")
		fs.PrintDefaults()
	}
}
