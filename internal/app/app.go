package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"outreach-engine-go/internal/cadence"
	"outreach-engine-go/internal/collab"
	"outreach-engine-go/internal/config"
	"outreach-engine-go/internal/db"
	"outreach-engine-go/internal/dispatch"
	"outreach-engine-go/internal/handlers"
	"outreach-engine-go/internal/inbound"
	"outreach-engine-go/internal/ledger"
	"outreach-engine-go/internal/mailer"
	"outreach-engine-go/internal/metrics"
	"outreach-engine-go/internal/reconcile"
	"outreach-engine-go/internal/repository"
	"outreach-engine-go/internal/scheduler"
	"outreach-engine-go/internal/selector"
	"outreach-engine-go/internal/server"
	"outreach-engine-go/internal/tracking"
	"outreach-engine-go/internal/warmup"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Outreach Engine")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := db.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.NewMetrics()
	repo := repository.New(dbConn)

	policy := warmup.NewPolicy()
	led := ledger.New(repo, policy, cfg.Warmup.CacheTTL)
	sel := selector.New(led)
	cad := cadence.New(cadence.DefaultDelays)
	embedder := tracking.NewEmbedder(cfg.Tracking.BaseURL, repo)

	transport, err := mailer.NewGmailTransport(&cfg.Mailer)
	if err != nil {
		return fmt.Errorf("failed to create mail transport: %w", err)
	}

	executor := dispatch.NewExecutor(repo, sel, led, cad, embedder,
		&selector.SignatureExtractor{}, transport, m, tracking.Options{
			TrackOpens:  cfg.Tracking.TrackOpens,
			TrackClicks: cfg.Tracking.TrackClicks,
		})

	var crm reconcile.CRMSyncer
	if cfg.Collaborators.CRMBaseURL != "" {
		crm = collab.NewHTTPCRMSyncer(cfg.Collaborators.CRMBaseURL)
	}
	reconciler := reconcile.New(repo, &collab.TemplateDrafts{}, &collab.KeywordClassifier{},
		&collab.StaticBooking{URL: cfg.Collaborators.BookingURL}, crm, m)

	var fetcher inbound.Fetcher
	if cfg.IMAP.Enabled {
		fetcher, err = inbound.NewIMAPFetcher(&cfg.IMAP)
		if err != nil {
			return fmt.Errorf("failed to create IMAP fetcher: %w", err)
		}
		logrus.Info("Inbound IMAP poller enabled")
	}

	sched := scheduler.NewScheduler(&cfg.Scheduler, repo, executor, fetcher, reconciler, m)

	h := handlers.NewHandlers(dbConn, repo, led, policy, reconciler, sched, embedder, m)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if fetcher != nil {
		if err := fetcher.Close(); err != nil {
			logrus.Errorf("Failed to close IMAP fetcher: %v", err)
		}
	}
	if err := transport.Close(); err != nil {
		logrus.Errorf("Failed to close mail transport: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
