// Kestrel - Merchant compliance passports that deploy in 60 seconds.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/alerts"
	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/assessment"
	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/metrics"
	"github.com/opensource-finance/kestrel/internal/passport"
	"github.com/opensource-finance/kestrel/internal/registry"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/scoring"
	"github.com/opensource-finance/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KESTREL_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	if path := os.Getenv("KESTREL_CONFIG"); path != "" {
		cfg.EngineConfigPath = path
	}

	// The signing secret is read once here and injected into the issuer.
	// Nothing downstream touches the environment.
	cfg.Signing.Secret = os.Getenv("KESTREL_SIGNING_KEY")
	if cfg.Signing.Secret == "" {
		cfg.Signing.Secret = "kestrel-dev-secret"
		slog.Warn("KESTREL_SIGNING_KEY not set, using development signing key")
	}
	if keyID := os.Getenv("KESTREL_SIGNING_KEY_ID"); keyID != "" {
		cfg.Signing.KeyID = keyID
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"key_id", cfg.Signing.KeyID,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load engine configuration (built-in tables plus optional YAML overlay)
	engineCfg, err := config.Load(cfg.EngineConfigPath)
	if err != nil {
		slog.Error("failed to load engine configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("engine configuration loaded",
		"features", len(engineCfg.Features),
		"markets", len(engineCfg.Markets),
		"default_market", engineCfg.DefaultMarket,
	)

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Feature Registry
	reg, err := registry.New(engineCfg.Features)
	if err != nil {
		slog.Error("failed to initialize feature registry", "error", err)
		os.Exit(1)
	}
	slog.Info("feature registry initialized", "questions", reg.Count())

	// Initialize Scoring Engine
	scorer := scoring.NewEngine(engineCfg)
	slog.Info("scoring engine initialized", "strategies", scorer.Strategies().Count())

	// Initialize Alert Engine (compiles CEL guard rules)
	alerter, err := alerts.NewEngine(engineCfg)
	if err != nil {
		slog.Error("failed to initialize alert engine", "error", err)
		os.Exit(1)
	}
	slog.Info("alert engine initialized", "guard_rules", alerter.GuardCount())

	// Initialize Passport Issuer
	issuer, err := passport.NewIssuer([]byte(cfg.Signing.Secret), cfg.Signing.KeyID, engineCfg.PassportValidity)
	if err != nil {
		slog.Error("failed to initialize passport issuer", "error", err)
		os.Exit(1)
	}
	slog.Info("passport issuer initialized",
		"key_id", cfg.Signing.KeyID,
		"validity_days", int(engineCfg.PassportValidity.Hours()/24),
	)

	// Initialize Metrics
	m := metrics.New()

	// Wire the assessment pipeline
	service := assessment.NewService(reg, scorer, alerter, issuer).
		WithRepository(repo).
		WithCache(cacheImpl).
		WithBus(busImpl).
		WithMetrics(m)
	slog.Info("assessment service initialized")

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("KESTREL_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, service)

		// Get tenant IDs to process (from environment or default)
		tenantIDs := []string{}
		if envTenants := os.Getenv("KESTREL_TENANTS"); envTenants != "" {
			// Could parse comma-separated list here
			tenantIDs = []string{envTenants}
		}

		workerCfg := worker.Config{
			TenantIDs:   tenantIDs,
			WorkerCount: 5,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, service, reg, engineCfg, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🪶 KESTREL                  ║")
	fmt.Println("  ║    Merchant Compliance Passport Engine    ║")
	fmt.Println("  ║      Every merchant, cleared to fly.      ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /assessments                - Score a questionnaire submission")
	fmt.Println("    GET  /assessments/{id}           - Get assessment by ID")
	fmt.Println("    GET  /subjects/{id}/assessments  - List a subject's assessments")
	fmt.Println("    GET  /passports/{id}             - Get an issued passport")
	fmt.Println("    GET  /passports/{id}/token       - Export passport as JWT")
	fmt.Println("    POST /passports/verify           - Verify a presented passport")
	fmt.Println("    GET  /markets                    - List configured markets")
	fmt.Println("    GET  /features                   - List question definitions")
	fmt.Println("    GET  /health                     - Health check")
	fmt.Println("    GET  /metrics                    - Prometheus metrics")
	fmt.Println()
}
