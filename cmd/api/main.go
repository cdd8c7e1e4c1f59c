package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/ticket-desk/internal/api/http"
	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/cache"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/persistence"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/internal/service"
	"github.com/spec-kit/ticket-desk/internal/web"
	"github.com/spec-kit/ticket-desk/internal/worker"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	queue := worker.NewQueue(dispatcher, 256, logger)
	notifications := service.NewNotificationService(queue, logger, cfg.Notification)
	worker.StartNotificationWorker(notifications)

	loc := cfg.App.Location()
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repository.NewTicketRepository(pool),
		CommentRepo: repository.NewCommentRepository(pool),
		HistoryRepo: repository.NewTicketHistoryRepository(pool),
		UserRepo:    userRepo,
		Cache:       cache.NewResolutionCache(redis.Client, cfg.Redis.ResolutionCacheTTL()),
		Dispatcher:  queue,
		Location:    loc,
		Logger:      logger,
	})
	authService := service.NewAuthService(*cfg, userRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	renderer, err := web.NewRenderer(cfg.App.Name, loc)
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	readiness := map[string]handlers.Pinger{"postgres": pg}
	if redis.Configured() {
		readiness["redis"] = redis
	}
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, renderer),
		AuthMiddleware: authMiddleware.Handle,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return queue.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("timezone", loc.String()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
	}
}
