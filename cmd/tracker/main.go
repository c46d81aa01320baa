// Package main contains the entrypoint for the attendance tracker service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noviciado/attendance-tracker/internal/config"
	"github.com/noviciado/attendance-tracker/internal/database"
	"github.com/noviciado/attendance-tracker/internal/ingest"
	"github.com/noviciado/attendance-tracker/internal/logger"
	"github.com/noviciado/attendance-tracker/internal/scheduler"
	"github.com/noviciado/attendance-tracker/internal/server"
	"github.com/noviciado/attendance-tracker/internal/tasks"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// store, ingestion service, HTTP server, scheduler), handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path, cfg.Database.BusyTimeout)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)

	store := database.NewStore(db, cfg.Attendance.Location, log)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = store.Ping(pingCtx)
	cancel()
	if err != nil {
		log.Error("Database ping failed", "error", err)
		return 1
	}

	ingester := ingest.NewService(log, store, cfg.Database.OperationTimeout)
	srv := server.New(log, &cfg.Server, store, ingester)

	taskDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
	}
	sched, err := scheduler.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(taskDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	log.Info("Starting attendance tracker...",
		"listen_addr", cfg.Server.ListenAddr,
		"timezone", cfg.Attendance.Timezone)

	runErr := runComponents(ctx, log, srv, sched)
	log.Info("Run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Service stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Service stopped gracefully.")
	return 0
}

// runComponents runs the HTTP server and the scheduler until the context is
// cancelled or one of them fails.
func runComponents(ctx context.Context, log *slog.Logger, srv *server.Server, sched *scheduler.Scheduler) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gCtx)
	})

	g.Go(func() error {
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		log.Info("Shutdown signal received, stopping scheduler...")

		if err := sched.Stop(); err != nil {
			log.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	return g.Wait()
}
