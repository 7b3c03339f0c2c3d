package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amaumene/streamscout/internal/clients"
	"github.com/amaumene/streamscout/internal/config"
	"github.com/amaumene/streamscout/internal/domain"
	"github.com/amaumene/streamscout/internal/handler"
	"github.com/amaumene/streamscout/internal/service"
	"github.com/amaumene/streamscout/internal/storage"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const (
	shutdownTimeout = 30 * time.Second
)

type App struct {
	cfg          *config.Config
	server       *fiber.App
	store        domain.SubjectStore
	jobs         *Jobs
	orchestrator *Orchestrator
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := ConfigureLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	delivery, err := newDelivery(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initializing delivery: %w", err)
	}

	app := &App{
		cfg:   cfg,
		store: store,
	}
	if err := app.wireServices(delivery); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("wiring services: %w", err)
	}
	return app, nil
}

// openStore is the single place the subject store is opened. Every
// component shares the returned handle.
func openStore(ctx context.Context, cfg *config.Config) (domain.SubjectStore, error) {
	if cfg.StoreDriver == config.StoreDriverMongo {
		store, err := storage.OpenMongo(ctx, cfg.MongoURL, cfg.MongoDatabase, cfg.MongoConnectTimeout)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := storage.OpenBolt(cfg.DBPath(), cfg.DBFilePermissions)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newDelivery(ctx context.Context, cfg *config.Config) (domain.DeliveryProvider, error) {
	if cfg.DryRun() {
		log.WithField("component", "delivery").Warn("push delivery in dry-run mode, messages are only logged")
		return clients.NewLogDelivery(), nil
	}
	fcm, err := clients.NewFCMClient(ctx, cfg.FCMCredentialsFile, cfg.HTTPTimeout, clients.FCMOptions{
		Endpoint:    cfg.FCMEndpoint,
		ProjectID:   cfg.FCMProjectID,
		RatePerSec:  cfg.DeliveryRatePerSec,
		Parallelism: cfg.DeliveryParallelism,
	})
	if err != nil {
		return nil, err
	}
	return fcm, nil
}

func (a *App) wireServices(delivery domain.DeliveryProvider) error {
	resolver := service.NewAudienceResolver(a.store, service.WithStaleness(a.cfg.StaleAfter, a.cfg.StaleSampleSize))
	metadata := clients.NewTMDBClient(a.cfg.TMDBBaseURL, a.cfg.TMDBAPIKey, a.cfg.HTTPTimeout)
	tokens := service.NewTokenCollector(a.store, a.cfg.ProfileParallelism)
	dispatcher := service.NewDispatcher(delivery)

	a.jobs = NewJobs(NewRunner(a.cfg.RunTimeout), resolver, metadata, tokens, dispatcher)

	orchestrator, err := NewOrchestrator(a.cfg, a.jobs)
	if err != nil {
		return err
	}
	a.orchestrator = orchestrator

	a.setupHTTPServer()
	return nil
}

func (a *App) setupHTTPServer() {
	a.server = fiber.New(fiber.Config{
		AppName:               "streamscout",
		DisableStartupMessage: true,
		ReadTimeout:           a.cfg.HTTPTimeout,
	})
	handler.NewHTTPHandler(a.jobs).RegisterRoutes(a.server)
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.orchestrator.Start(ctx); err != nil {
		return err
	}

	go a.startServer()

	return a.waitForShutdown(ctx, cancel)
}

func (a *App) startServer() {
	log.WithFields(log.Fields{
		"component": "server",
		"address":   a.cfg.ServerPort,
	}).Info("http server listening")

	if err := a.server.Listen(a.cfg.ServerPort); err != nil {
		log.WithFields(log.Fields{
			"component": "server",
			"error":     err,
		}).Fatal("http server failed to start")
	}
}

func (a *App) waitForShutdown(ctx context.Context, cancel context.CancelFunc) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		log.WithField("reason", "context_cancelled").Info("initiating graceful shutdown")
	case sig := <-sigChan:
		log.WithField("signal", sig).Info("received shutdown signal")
	}

	cancel()
	return a.shutdown()
}

func (a *App) shutdown() error {
	log.Info("graceful shutdown started")

	a.orchestrator.Stop(shutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithFields(log.Fields{
			"component": "server",
			"error":     err,
		}).Error("http server shutdown failed")
	}

	if err := a.store.Close(); err != nil {
		log.WithFields(log.Fields{
			"component": "database",
			"error":     err,
		}).Error("database connection close failed")
		return err
	}

	log.Info("graceful shutdown completed")
	return nil
}
