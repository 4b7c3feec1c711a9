// Command server wires together every autopulse component (§5): config,
// the SQLite store, the configured triggers and targets, the webhook
// batcher, the filesystem watcher producers, the reconciliation loop, and
// the HTTP surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dan-online/autopulse-sub000/internal/anchor"
	"github.com/dan-online/autopulse-sub000/internal/api"
	"github.com/dan-online/autopulse-sub000/internal/bus"
	"github.com/dan-online/autopulse-sub000/internal/clock"
	"github.com/dan-online/autopulse-sub000/internal/config"
	"github.com/dan-online/autopulse-sub000/internal/db"
	"github.com/dan-online/autopulse-sub000/internal/ingest"
	"github.com/dan-online/autopulse-sub000/internal/logger"
	"github.com/dan-online/autopulse-sub000/internal/metrics"
	"github.com/dan-online/autopulse-sub000/internal/reconcile"
	"github.com/dan-online/autopulse-sub000/internal/targets"
	"github.com/dan-online/autopulse-sub000/internal/triggers"
	"github.com/dan-online/autopulse-sub000/internal/watcher"
	"github.com/dan-online/autopulse-sub000/internal/webhook"
)

const logSeparator = "========================================"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	configDir := flag.String("config-dir", ".", "Directory to read config.{json,yaml,toml} from")
	flag.Parse()

	if *showVersion {
		fmt.Printf("autopulse %s\n", config.Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogDir(), cfg.Opts.LogFile, cfg.Opts.LogFileRollover)
	logger.SetLevel("info")

	logger.Infof(logSeparator)
	logger.Infof("Starting autopulse %s...", config.Version)
	logger.Infof(logSeparator)
	logger.Infof("  Port: %s", cfg.App.Port)
	logger.Infof("  Data Directory: %s", cfg.App.DataDir)
	logger.Infof("  Base Path: %s", cfg.App.BasePath)
	logger.Infof("  Triggers: %d  Targets: %d  Webhooks: %d", len(cfg.Triggers), len(cfg.Targets), len(cfg.Webhooks))

	repo, err := db.NewRepository(cfg.DatabasePath())
	if err != nil {
		logger.Errorf("failed to initialize database: %v", err)
		os.Exit(1)
	}
	logger.Infof("database initialized at %s", cfg.DatabasePath())

	if backupPath, err := repo.Backup(cfg.DatabasePath()); err != nil {
		logger.Errorf("startup backup failed: %v", err)
	} else {
		logger.Infof("startup backup created: %s", backupPath)
	}

	triggerRegistry, err := triggers.Build(cfg.Triggers, int(cfg.Opts.DefaultTimerWait.Seconds()))
	if err != nil {
		logger.Errorf("failed to build triggers: %v", err)
		os.Exit(1)
	}

	targetRegistry, err := targets.Build(cfg.Targets)
	if err != nil {
		logger.Errorf("failed to build targets: %v", err)
		os.Exit(1)
	}

	sinks, err := webhook.BuildSinks(cfg.Webhooks)
	if err != nil {
		logger.Errorf("failed to build webhook sinks: %v", err)
		os.Exit(1)
	}
	batcher := webhook.New(0, sinks)

	eventBus := bus.New()
	anchors := anchor.NewGate(cfg.Anchors)

	intake := ingest.New(repo, batcher, eventBus)

	stopWatchers := startWatchers(cfg, intake)

	loopOpts := reconcile.Options{
		CheckPath:   cfg.Opts.CheckPath,
		MaxRetries:  cfg.Opts.MaxRetries,
		CleanupDays: cfg.Opts.CleanupDays,
	}
	loop := reconcile.New(repo, anchors, targetRegistry, triggerRegistry, batcher, eventBus, loopOpts, clock.NewRealClock())

	metricsService := metrics.New(eventBus)

	ctx, cancel := context.WithCancel(context.Background())

	go loop.Run(ctx)
	go metricsService.Run(ctx)
	go pollQueueDepth(ctx, repo, metricsService)
	go batcher.Run(ctx)

	scheduler := startScheduledMaintenance(repo, cfg.DatabasePath())

	httpServer := api.New(api.Deps{
		Config:   cfg,
		Store:    repo,
		Intake:   intake,
		Triggers: triggerRegistry,
		Metrics:  metricsService,
		Tick:     loop,
		Bus:      eventBus,
	})

	go func() {
		addr := ":" + cfg.App.Port
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("api server failed: %v", err)
			os.Exit(1)
		}
	}()

	logger.Infof(logSeparator)
	logger.Infof("autopulse listening on %s", cfg.App.Port)
	logger.Infof(logSeparator)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Infof("received signal %v, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	close(stopWatchers)
	scheduler.Stop()
	cancel() // batcher.Run flushes once more on ctx.Done before returning

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("api server shutdown error: %v", err)
	}

	if err := repo.Close(); err != nil {
		logger.Errorf("failed to close database: %v", err)
	}

	logger.Infof("autopulse shutdown complete")
}

// startWatchers launches one goroutine per configured notify trigger,
// funneling every debounced filesystem notification through intake (§4.5).
// The watcher already applied rewrite rules and stamped each notification
// with its ScheduleAt, so the intake call it drives carries no rewrite
// rules and only the time left until ScheduleAt as its timer.
func startWatchers(cfg *config.Config, intake *ingest.Intake) chan struct{} {
	stop := make(chan struct{})
	out := make(chan watcher.Notification, 256)

	for name, t := range cfg.Triggers {
		if t.Type != "notify" {
			continue
		}
		w, err := watcher.New(name, t, cfg.Opts.DefaultTimerWait, clock.NewRealClock())
		if err != nil {
			logger.Errorf("notify trigger %s: %v", name, err)
			continue
		}

		go func(name string, w *watcher.Watcher) {
			if err := w.Run(stop, out); err != nil {
				logger.Errorf("watcher %s stopped: %v", name, err)
			}
		}(name, w)
	}

	go func() {
		for {
			select {
			case <-stop:
				return
			case n := <-out:
				src := ingest.Source{Name: n.TriggerName, Timer: time.Until(n.ScheduleAt)}
				intake.Apply(context.Background(), src, []ingest.PathIntent{{Path: n.Path, ExpectPresent: true}})
			}
		}
	}()

	return stop
}

// pollQueueDepth keeps the queue-depth gauges current between ticks (the
// reconciliation loop itself only emits counters on transition, not gauges).
func pollQueueDepth(ctx context.Context, repo *db.Repository, m *metrics.Metrics) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if stats, err := repo.Stats(ctx); err == nil {
				m.RefreshQueueDepth(stats)
			}
		}
	}
}

// startScheduledMaintenance runs storage housekeeping nightly at 3 AM and
// a backup every 6 hours (§4.9's cleanup is the loop's own job; this is
// the storage-level maintenance/backup cadence layered on top, ambient to
// the reconciliation semantics).
func startScheduledMaintenance(repo *db.Repository, dbPath string) *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("0 3 * * *", func() {
		if err := repo.RunMaintenance(); err != nil {
			logger.Errorf("scheduled maintenance failed: %v", err)
		}
	})
	if err != nil {
		logger.Errorf("failed to schedule maintenance: %v", err)
	}

	_, err = c.AddFunc("0 */6 * * *", func() {
		if _, err := repo.Backup(dbPath); err != nil {
			logger.Errorf("scheduled backup failed: %v", err)
		}
	})
	if err != nil {
		logger.Errorf("failed to schedule backup: %v", err)
	}

	c.Start()
	return c
}
