package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"jamf_metrics/internal/config"
	"jamf_metrics/internal/publisher"
	"jamf_metrics/internal/reporter"
	"jamf_metrics/internal/scheduler"
	"jamf_metrics/internal/service"
	"jamf_metrics/internal/source/jamf"
	"jamf_metrics/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single report and exit")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	// Initialize Jamf Pro client
	jamfClient, err := jamf.New(jamf.Config{
		BaseURL:      cfg.Jamf.BaseURL,
		Token:        cfg.Jamf.Token,
		Format:       cfg.Jamf.Format,
		Timeout:      cfg.Jamf.Timeout,
		PageSize:     cfg.Jamf.PageSize,
		LogEndpoints: cfg.Jamf.LogEndpoints,
	}, logger)
	if err != nil {
		logger.Error("failed to configure jamf client", "error", err)
		os.Exit(1)
	}

	// Initialize stores when a database is configured; the reporter runs
	// print-only without one.
	var (
		snapshots *postgres.SnapshotStore
		runState  *postgres.RunStateStore
		txManager *postgres.TransactionManager
	)
	if cfg.Database.Enabled() {
		db, err := sqlx.Connect("postgres", cfg.Database.DSN())
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database")

		snapshots = postgres.NewSnapshotStore(db)
		runState = postgres.NewRunStateStore(db)
		txManager = postgres.NewTransactionManager(db)
	}

	// Initialize RabbitMQ publisher when enabled
	var pub *publisher.RabbitMQ
	if cfg.RabbitMQ.Enabled {
		pub, err = publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
	}

	console := reporter.NewConsole(os.Stdout)

	reportService := newReportService(jamfClient, snapshots, runState, txManager, pub, console, logger, cfg.Report)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *once {
		if _, err := reportService.Run(ctx); err != nil {
			logger.Error("report run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("starting jamf metrics reporter",
		"source", jamfClient.Name(),
		"interval", cfg.Report.Interval,
		"groups", len(cfg.Report.GroupIDs),
	)

	sched := scheduler.NewScheduler(reportService, cfg.Report.Interval, logger)
	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

// newReportService keeps the nil-interface wiring in one place: a nil
// *postgres.SnapshotStore must become a nil service.SnapshotStore, not a
// typed non-nil interface.
func newReportService(
	src *jamf.Client,
	snapshots *postgres.SnapshotStore,
	runState *postgres.RunStateStore,
	txManager *postgres.TransactionManager,
	pub *publisher.RabbitMQ,
	console *reporter.Console,
	logger *slog.Logger,
	cfg config.ReportConfig,
) *service.ReportService {
	var (
		snapshotStore service.SnapshotStore
		runStateStore service.RunStateStore
		txMgr         service.TransactionManager
		p             service.Publisher
	)
	if snapshots != nil {
		snapshotStore = snapshots
	}
	if runState != nil {
		runStateStore = runState
	}
	if txManager != nil {
		txMgr = txManager
	}
	if pub != nil {
		p = pub
	}

	return service.NewReportService(src, snapshotStore, runStateStore, txMgr, p, console, logger, cfg)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
