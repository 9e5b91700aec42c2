package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/bootstrap"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/ticketid"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.App.IsProduction() && cfg.Auth.JWTSecret == "dev-secret" {
		logger.Fatal("AUTH_JWT_SECRET must be set in production")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := bootstrap.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer storage.Close()

	metrics := observability.NewMetrics()
	reportEventFailure := func(event events.Event, err error) {
		metrics.EventFailed(string(event.Type))
		logger.Warn("event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
	dispatcher := events.NewInMemoryDispatcher(reportEventFailure)

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	var sink *events.KafkaSink
	if len(cfg.Events.KafkaBrokers) > 0 {
		sink = events.NewKafkaSink(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, reportEventFailure)
		worker.StartEventForwarder(dispatcher, sink)
		logger.Info("kafka event sink enabled", zap.Strings("brokers", cfg.Events.KafkaBrokers), zap.String("topic", cfg.Events.KafkaTopic))
	}

	accessPolicy := policy.New(policy.ParseNoteAccess(cfg.Tickets.NoteAccess))
	ticketDeps := service.TicketDependencies{
		TicketRepo: storage.Tickets,
		Policy:     accessPolicy,
		IDs:        ticketid.NewGenerator(cfg.Tickets.IDPrefix, storage.Counter, logger),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	}

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: storage.Users,
		Policy:   accessPolicy,
		Logger:   logger,
	})
	ticketService := service.NewTicketService(ticketDeps)
	noteService := service.NewNoteService(ticketDeps)
	directoryService := service.NewDirectoryService(storage.Tickets, accessPolicy)
	dashboardService := service.NewDashboardService(storage.Tickets, storage.Users, accessPolicy)

	probes := map[string]handlers.Pinger{}
	for name, p := range storage.Probes() {
		probes[name] = p
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.IsProduction(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, probes),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, noteService, directoryService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		Metrics:        metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("helpdesk service started",
		zap.String("addr", cfg.App.Addr()),
		zap.String("note_access", string(accessPolicy.NoteAccess())),
		zap.Bool("postgres", storage.Postgres.Enabled()))

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			logger.Warn("kafka sink close", zap.Error(err))
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
