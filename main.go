package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/config"
	"github.com/sigepol/sigepol-engine/pkg/database"
	"github.com/sigepol/sigepol-engine/pkg/handlers"
	"github.com/sigepol/sigepol-engine/pkg/logging"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
	"github.com/sigepol/sigepol-engine/pkg/services"
	"github.com/sigepol/sigepol-engine/pkg/services/rules"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Log startup configuration
	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", cfg.Env)
	log.Printf("  Database: %s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	log.Printf("  Uploads dir: %s (batch size %d)", cfg.Uploads.Dir, cfg.Uploads.BatchSize)
	log.Printf("  SMTP notifications: %v", cfg.SMTP.Enabled())

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Migrations run over a stdlib handle borrowed from the pgx pool.
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	// Repositories
	clientRepo := repositories.NewClientRepository(db)
	policyRepo := repositories.NewPolicyRepository(db)
	uploadRepo := repositories.NewUploadRepository(db)
	freshnessRepo := repositories.NewFreshnessRepository(db)
	alertRepo := repositories.NewAlertRepository(db)
	ruleRepo := repositories.NewRuleRepository(db)
	collectionRepo := repositories.NewCollectionRepository(db)
	datasetRepo := repositories.NewDatasetRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Services
	var notifier services.Notifier = services.NopNotifier{}
	if cfg.SMTP.Enabled() {
		notifier = services.NewSMTPNotifier(cfg.SMTP, logger)
	}
	freshnessService := services.NewFreshnessService(freshnessRepo, logger)
	alertService := services.NewAlertService(alertRepo, policyRepo, freshnessService, notifier, logger)
	auditService := services.NewAuditService(auditRepo, logger)
	collectionService := services.NewCollectionService(collectionRepo, logger)
	datasetService := services.NewDatasetService(datasetRepo, cfg.Uploads.DatasetDir, logger)
	reportService := services.NewReportService(policyRepo, alertService, logger)
	uploadService := services.NewUploadService(
		db, uploadRepo, clientRepo, policyRepo, alertService, auditService, cfg.Uploads, logger)

	// Post-commit side effects of a successful upload, in execution order.
	uploadService.SetPostCommitHooks([]services.PostCommitHook{
		{
			Name: "freshness",
			Run: func(ctx context.Context, result *services.ProcessResult) error {
				records := result.Inserted + result.Updated
				for _, rut := range result.TouchedClients {
					if _, err := freshnessService.RegisterLoad(ctx, rut, result.UploadedBy, records); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Name: "automatic_alerts",
			Run: func(ctx context.Context, result *services.ProcessResult) error {
				return alertService.RunAutomaticChecks(ctx)
			},
		},
		{
			Name: "collections",
			Run: func(ctx context.Context, result *services.ProcessResult) error {
				_, err := collectionService.SweepFromETL(ctx)
				return err
			},
		},
		{
			Name: "dataset",
			Run: func(ctx context.Context, result *services.ProcessResult) error {
				_, err := datasetService.Regenerate(ctx)
				return err
			},
		},
	})

	// Rules engine
	registry := rules.NewRegistry()
	rules.RegisterBuiltins(registry, policyRepo, alertService, logger)
	if err := rules.SeedFromFile(ctx, cfg.RulesPath, ruleRepo, logger); err != nil {
		logger.Fatal("Failed to seed rules", zap.Error(err))
	}
	executor := rules.NewExecutor(db, ruleRepo, registry, logger)

	mux := http.NewServeMux()

	// Register handlers
	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	uploadHandler := handlers.NewUploadHandler(uploadService, logger)
	uploadHandler.RegisterRoutes(mux)

	alertHandler := handlers.NewAlertHandler(alertService, logger)
	alertHandler.RegisterRoutes(mux)

	ruleHandler := handlers.NewRuleHandler(ruleRepo, executor, logger)
	ruleHandler.RegisterRoutes(mux)

	reportHandler := handlers.NewReportHandler(reportService, logger)
	reportHandler.RegisterRoutes(mux)

	freshnessHandler := handlers.NewFreshnessHandler(freshnessService, logger)
	freshnessHandler.RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	log.Printf("Starting sigepol-engine on %s (version: %s)", addr, cfg.Version)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
