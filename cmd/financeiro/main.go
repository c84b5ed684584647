// Package main is the entry point for the financeiro personal-finance
// ingestion system. It pulls bank statement files and the Open-Finance feed
// into a single normalized transaction store, categorizes every movement,
// and renders monthly spending reports.
//
// The application follows clean architecture principles:
// - Domain layer is pure (no infrastructure dependencies)
// - Repository pattern for data access
// - Pipeline orchestrates the ingestion stages
// - HTTP handlers expose a read-only API
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lutivix/financeiro/internal/categorize"
	"github.com/lutivix/financeiro/internal/config"
	"github.com/lutivix/financeiro/internal/database"
	"github.com/lutivix/financeiro/internal/dedup"
	"github.com/lutivix/financeiro/internal/openfinance"
	"github.com/lutivix/financeiro/internal/parsers"
	"github.com/lutivix/financeiro/internal/pipeline"
	"github.com/lutivix/financeiro/internal/reliability"
	"github.com/lutivix/financeiro/internal/report"
	"github.com/lutivix/financeiro/internal/scheduler"
	"github.com/lutivix/financeiro/internal/server"
	"github.com/lutivix/financeiro/internal/store"
	"github.com/lutivix/financeiro/pkg/logger"
)

// Exit codes. Zero is a clean run; an empty input window, an accumulated
// but non-fatal error set, and fatal failures are distinguishable for cron
// wrappers.
const (
	exitOK       = 0
	exitNoInputs = 2
	exitPartial  = 3
	exitFatal    = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	command := "run"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		command = args[0]
		args = args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Error().Err(err).Msg("Failed to load configuration")
		return exitFatal
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	switch command {
	case "run":
		return runIngest(cfg, log, args)
	case "serve":
		return runServe(cfg, log, args)
	case "schedule":
		return runSchedule(cfg, log, args)
	case "backup":
		return runBackup(cfg, log)
	default:
		log.Error().Str("command", command).Msg("Unknown command (expected run, serve, schedule or backup)")
		return exitFatal
	}
}

// app bundles the wired services shared by every command.
type app struct {
	db       *database.DB
	txRepo   *store.TransactionRepository
	rules    *store.LearnedRuleRepository
	staging  *openfinance.StagingRepository
	pipeline *pipeline.Pipeline
	reports  *report.Generator
	log      zerolog.Logger
}

// wire opens the database and builds the service graph.
func wire(cfg *config.Config, log zerolog.Logger) (*app, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath,
		Profile: database.ProfileLedger,
		Name:    "financeiro",
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := store.EnsureSchema(db.Conn()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	txRepo := store.NewTransactionRepository(db.Conn(), log)
	rules := store.NewLearnedRuleRepository(db.Conn(), log)

	staging := openfinance.NewStagingRepository(db.Conn(), log)
	if err := staging.EnsureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring staging schema: %w", err)
	}

	// The HTTP client for the Open-Finance provider is deployed separately
	// and materializes records into the staging table; runs read from there.
	var provider openfinance.Provider
	if !cfg.EnableOpenFinance {
		staging = nil
	}

	a := &app{
		db:      db,
		txRepo:  txRepo,
		rules:   rules,
		staging: staging,
		reports: report.New(txRepo, filepath.Join(cfg.DataDir, "reports"), log),
		log:     log,
	}
	a.pipeline = pipeline.New(
		cfg.DataDir,
		cfg.Profiles(),
		txRepo,
		dedup.New(txRepo, cfg.EnableDeduplication, log),
		categorize.New(rules, cfg.DefaultCategory, log),
		parsers.NewOpenFinanceParser(nil, nil, log),
		provider,
		staging,
		log,
	)
	return a, nil
}

// runIngest executes one pipeline pass and regenerates the report.
func runIngest(cfg *config.Config, log zerolog.Logger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	monthsBack := fs.Int("months-back", cfg.MonthsBack, "How many billing months of files to process")
	skipOF := fs.Bool("skip-open-finance", false, "Skip the Open-Finance feed for this run")
	dryRun := fs.Bool("no-persist", false, "Parse and categorize without writing")
	noExcel := fs.Bool("no-excel", false, "Skip the report workbook")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	a, err := wire(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return exitFatal
	}
	defer a.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := a.pipeline.Run(ctx, pipeline.Options{
		MonthsBack:      *monthsBack,
		SkipOpenFinance: *skipOF,
		DryRun:          *dryRun,
	})
	if err != nil {
		log.Error().Err(err).Msg("Run failed")
		return exitFatal
	}

	if !*dryRun && !*noExcel {
		if _, rerr := a.reports.Generate(); rerr != nil {
			log.Error().Err(rerr).Msg("Report generation failed")
			stats.AddError("report: %v", rerr)
		}
	}

	log.Info().Str("summary", stats.Summary()).Msg("Done")
	for _, w := range stats.Warnings {
		log.Warn().Msg(w)
	}
	if len(stats.Errors) > 0 {
		for _, e := range stats.Errors {
			log.Error().Msg(e)
		}
		return exitPartial
	}
	if stats.FilesProcessed == 0 && stats.RecordsParsed == 0 {
		log.Warn().Msg("No input files or records for the requested window")
		return exitNoInputs
	}
	return exitOK
}

// runServe starts the read-only HTTP API and blocks until a signal.
func runServe(cfg *config.Config, log zerolog.Logger, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", cfg.Port, "HTTP listen port")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	a, err := wire(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return exitFatal
	}
	defer a.db.Close()

	srv := server.New(server.Config{
		Log:      log,
		DB:       a.db,
		TxRepo:   a.txRepo,
		Pipeline: a.pipeline,
		Port:     *port,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	return exitOK
}

// runSchedule runs ingestion and maintenance on the configured cron specs
// until a signal arrives.
func runSchedule(cfg *config.Config, log zerolog.Logger, args []string) int {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	cronSpec := fs.String("cron", cfg.CronSpec, "Ingestion cron expression")
	if err := fs.Parse(args); err != nil {
		return exitFatal
	}

	a, err := wire(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return exitFatal
	}
	defer a.db.Close()

	sched := scheduler.New(log)
	ingest := &scheduler.IngestJob{
		Pipeline: a.pipeline,
		Options:  pipeline.Options{MonthsBack: cfg.MonthsBack},
	}
	if err := sched.AddJob(*cronSpec, ingest); err != nil {
		log.Error().Err(err).Msg("Invalid cron spec")
		return exitFatal
	}
	if err := sched.AddJob(*cronSpec, &scheduler.ReportJob{Generator: a.reports}); err != nil {
		log.Error().Err(err).Msg("Invalid cron spec")
		return exitFatal
	}
	// Sunday 5 AM, after the week's last ingests.
	maintenance := reliability.NewWeeklyMaintenanceJob(a.db, a.rules, log)
	if err := sched.AddJob("0 5 * * 0", maintenance); err != nil {
		log.Error().Err(err).Msg("Invalid maintenance spec")
		return exitFatal
	}

	sched.Start()
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info().Msg("Shutting down scheduler")
	return exitOK
}

// runBackup archives the database, uploading when a bucket is configured.
func runBackup(cfg *config.Config, log zerolog.Logger) int {
	a, err := wire(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return exitFatal
	}
	defer a.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var remote *reliability.S3Client
	if cfg.Backup.Bucket != "" {
		remote, err = reliability.NewS3Client(ctx, cfg.Backup, log)
		if err != nil {
			log.Error().Err(err).Msg("Backup storage configuration invalid")
			return exitFatal
		}
	}

	svc := newBackupService(a, cfg, remote, log)
	path, err := svc.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Backup failed")
		return exitFatal
	}
	log.Info().Str("archive", path).Msg("Backup complete")
	return exitOK
}

// newBackupService keeps the nil-interface trap out of runBackup: a typed
// nil *S3Client must not become a non-nil remoteStore.
func newBackupService(a *app, cfg *config.Config, remote *reliability.S3Client, log zerolog.Logger) *reliability.BackupService {
	if remote == nil {
		return reliability.NewBackupService(a.db, a.db.Path(), cfg.Backup.LocalDir, cfg.Backup.Retention, nil, log)
	}
	return reliability.NewBackupService(a.db, a.db.Path(), cfg.Backup.LocalDir, cfg.Backup.Retention, remote, log)
}
