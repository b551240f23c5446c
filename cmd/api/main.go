package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/incident-service/internal/api/http"
	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/config"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/persistence"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/repository/memory"
	"github.com/spec-kit/incident-service/internal/sequence"
	"github.com/spec-kit/incident-service/internal/service"
	"github.com/spec-kit/incident-service/internal/sla"
	"github.com/spec-kit/incident-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	calendars, err := sla.LoadCalendars(cfg.SLA)
	if err != nil {
		logger.Fatal("failed to load business calendars", zap.Error(err))
	}

	var store repository.Store
	if pg.Enabled() {
		store = repository.NewPostgresStore(pg.Pool)
	} else {
		store = memory.NewStore()
	}

	metrics := observability.NewMetrics()
	reporter := service.NewLoggingReporter(logger, metrics)
	dispatcher := events.NewInMemoryDispatcher()

	var feed service.FeedSink
	if rdb.Enabled() {
		feed = service.NewRedisFeed(rdb.Client, cfg.Activity.FeedLength)
	} else {
		feed = service.NewLogFeed(logger)
	}
	worker.StartActivityWorker(service.NewActivityService(dispatcher, feed, logger))

	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Reporter:   reporter,
		Logger:     logger,
	})
	incidents := service.NewIncidentService(service.IncidentDependencies{
		Store:      store,
		Numbers:    sequence.NewNumberer(ticketAllocator(cfg.Ticket, pg, rdb, logger), cfg.Ticket.Prefix),
		Calendars:  calendars,
		Dispatcher: dispatcher,
		Assigner:   assignment,
		AutoAssign: cfg.Workflow.AutoAssign,
		Reporter:   reporter,
		Metrics:    metrics,
		Logger:     logger,
	})
	duplicates := service.NewDuplicateService(service.DuplicateDependencies{
		Store:        store,
		Dispatcher:   dispatcher,
		Reporter:     reporter,
		Logger:       logger,
		Window:       cfg.Duplicate.Window,
		DefaultLimit: cfg.Duplicate.DefaultLimit,
		MaxLimit:     cfg.Duplicate.MaxLimit,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    rdb,
		}),
		Incidents:      handlers.NewIncidentsHandler(incidents, duplicates),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// ticketAllocator honours TICKET_SEQUENCE_BACKEND when that backend is
// connected and otherwise falls back to whatever is available.
func ticketAllocator(cfg config.TicketConfig, pg *persistence.Postgres, rdb *persistence.Redis, logger *zap.Logger) sequence.Allocator {
	switch {
	case cfg.SequenceBackend == "redis" && rdb.Enabled():
		return sequence.NewRedisAllocator(rdb.Client)
	case pg.Enabled():
		return sequence.NewPostgresAllocator(pg.Pool)
	case rdb.Enabled():
		return sequence.NewRedisAllocator(rdb.Client)
	default:
		logger.Warn("no durable ticket sequence backend; numbers restart with the process")
		return sequence.NewMemoryAllocator()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
