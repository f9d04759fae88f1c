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

	httptransport "github.com/spec-kit/ticket-bot/internal/api/http"
	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/archive"
	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/bot"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/platform/discord"
	"github.com/spec-kit/ticket-bot/internal/render"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/schedule"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/internal/worker"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	sched := schedule.New()
	defer sched.Stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	store := archive.NewStore(pg.Pool, logger)
	if store.Enabled() {
		if err := store.Init(ctx); err != nil {
			logger.Fatal("failed to init closure archive", zap.Error(err))
		}
	}

	registry := repository.NewTicketRegistry()

	// The counter's lazy seed scans channels through the bootstrap, which in
	// turn needs the counter; the indirection breaks the construction cycle.
	var bootstrap *service.Bootstrap
	counter := repository.NewTicketCounter(func(ctx context.Context, communityID string) (int, error) {
		return bootstrap.SeedFunc()(ctx, communityID)
	})

	windows := map[repository.Action]time.Duration{
		repository.ActionCreateTicket: cfg.Ticket.CreateCooldown(),
		repository.ActionCloseTicket:  cfg.Ticket.CloseCooldown(),
	}
	var limiter repository.RateLimiter
	if cfg.Redis.Addr != "" {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		limiter = repository.NewRedisRateLimiter(redis.Client, windows, logger)
	} else {
		limiter = repository.NewMemoryRateLimiter(windows, sched)
	}

	dispatcher := events.NewInMemoryDispatcher(func(ev events.Event, err error) {
		logger.Error("event handler failed",
			zap.String("event_type", string(ev.Type)),
			zap.Error(err))
	})

	renderer := render.New(cfg.Ticket.PanelThumbnailURL, cfg.Ticket.ReasonMinLen, cfg.Ticket.ReasonMaxLen)
	checker := auth.NewChecker(cfg.Ticket)

	session, err := discord.NewSession(cfg.Bot.Token)
	if err != nil {
		logger.Fatal("failed to build gateway session", zap.Error(err))
	}
	client := discord.NewClient(session)
	bootstrap = service.NewBootstrap(cfg.Ticket, logger, client, registry, counter)

	lifecycle := service.NewLifecycle(cfg.Ticket, logger, service.LifecycleDependencies{
		Registry:   registry,
		Counter:    counter,
		Limiter:    limiter,
		Client:     client,
		Checker:    checker,
		Renderer:   renderer,
		Dispatcher: dispatcher,
		Scheduler:  sched,
	})

	router := bot.NewRouter(*cfg, logger, bot.RouterDependencies{
		Metrics:   metrics,
		Lifecycle: lifecycle,
		Client:    client,
		Checker:   checker,
		Renderer:  renderer,
		Scheduler: sched,
	})

	gateway := discord.New(*cfg, logger, session, router, bootstrap)

	logSink := service.NewCloseLogSink(cfg.Ticket, logger, client, renderer)
	notifier := service.NewNotificationService(logger, client, renderer)
	worker.RegisterSinks(dispatcher, logSink, notifier, store, metrics)

	if cfg.Bot.Token != "" {
		if err := gateway.Open(); err != nil {
			logger.Fatal("failed to open gateway", zap.Error(err))
		}
		defer gateway.Close() //nolint:errcheck
	} else {
		logger.Warn("BOT_TOKEN not provided; serving status endpoints only")
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger)
	statusHandler := handlers.NewStatusHandler(cfg.App.Name, cfg.App.Version, metrics, registry, gateway)
	httptransport.RegisterRoutes(app, statusHandler)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
