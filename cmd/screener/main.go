package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"llm-stock-screener/internal/logger"
	"llm-stock-screener/internal/trace"

	"github.com/robfig/cron/v3"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	once := flag.Bool("once", false, "run a single analysis cycle and exit")
	limit := flag.Int("limit", 0, "restrict the universe to the first N symbols (0 = full universe)")
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	must(initializeSystem())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = trace.Shutdown(shutdownCtx)
		_ = logger.Shutdown(shutdownCtx)
	}()

	cfg, err := loadConfig(ctx, *configPath)
	must(err)

	eng, err := initializeEngine(ctx, cfg)
	must(err)

	runCycle := func() {
		path, err := eng.Run(ctx, *limit)
		if err != nil {
			logger.ErrorWithErr(ctx, "Analysis cycle failed", err)
			return
		}
		logger.Info(ctx, "Analysis cycle complete", "report", path)
	}

	if *once {
		logger.Info(ctx, "Running single cycle", "limit", *limit)
		if _, err := eng.Run(ctx, *limit); err != nil {
			logger.ErrorWithErr(ctx, "Analysis cycle failed", err)
			os.Exit(1)
		}
		return
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	scheduler := cron.New(cron.WithSeconds())
	if _, err := scheduler.AddFunc(cfg.Schedule.Cron, runCycle); err != nil {
		logger.ErrorWithErr(ctx, "Invalid cron schedule", err, "cron", cfg.Schedule.Cron)
		os.Exit(1)
	}

	if cfg.Schedule.RunOnStart {
		runCycle()
	}

	scheduler.Start()
	logger.Info(ctx, "Screener started", "schedule", cfg.Schedule.Cron)

	<-sigc
	logger.Info(ctx, "Shutting down...")
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
}
