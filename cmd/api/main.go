package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roombook/internal/api"
	"roombook/internal/catalog"
	"roombook/internal/config"
	"roombook/internal/database"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/google"
	"roombook/internal/logging"
	"roombook/internal/metrics"
	"roombook/internal/repository"
	"roombook/internal/service"
	"roombook/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	resyncSheets := flag.Bool("resync-sheets", false, "rewrite the reservations sheet from the database on start")
	flag.Parse()

	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	location, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogSvc := service.NewCatalogService(db, &logger)
	userSvc := service.NewUserService(db, cfg.Users.DefaultRole, &logger)

	if err := seedCatalog(ctx, cfg, catalogSvc, userSvc, &logger); err != nil {
		return err
	}

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	bus := events.NewEventBus()
	bus.OnError(func(event *events.Event, err error) {
		logger.Warn().Err(err).Str("event_type", event.Type).Msg("event handler failed")
	})
	startTelegram(ctx, cfg, bus, &logger)

	// A nil *SheetsWorker must not reach the service as a non-nil interface.
	var syncWorker domain.SyncWorker
	if w := initSheetsWorker(ctx, cfg, db, redisClient, *resyncSheets, &logger); w != nil {
		syncWorker = w
		go w.Start(ctx)
	}

	booking := service.NewBookingService(db, bus, syncWorker, service.SystemClock, location, &logger)

	go database.NewBackupService(db, cfg.Backup, &logger).Start(ctx)

	svc := api.Services{
		Booking: booking,
		Catalog: catalogSvc,
		Users:   userSvc,
		Quota:   initQuotaStore(ctx, redisClient, &logger),
		Checks: map[string]func(context.Context) error{
			"database": db.PingContext,
		},
	}
	if redisClient != nil {
		svc.Checks["redis"] = func(ctx context.Context) error { return repository.Ping(ctx, redisClient) }
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	auth := api.NewAuthenticator(cfg.API, userSvc)
	httpServer := api.NewHTTPServer(cfg.API, svc, auth, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, svc, auth, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := *logging.Component(baseLogger, "api-main")

	return cfg, logger, closer, nil
}

func seedCatalog(ctx context.Context, cfg *config.Config, rooms *service.CatalogService, users *service.UserService, logger *zerolog.Logger) error {
	if cfg.Catalog.Path == "" {
		return nil
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", cfg.Catalog.Path).Msg("load catalog")
		return err
	}
	res, err := catalog.Apply(ctx, cat, rooms, users, logger)
	if err != nil {
		return fmt.Errorf("apply catalog: %w", err)
	}
	logger.Info().Str("result", res.String()).Msg("catalog seeded")
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initQuotaStore prefers redis and falls back to process memory while redis
// is unreachable.
func initQuotaStore(ctx context.Context, client *redis.Client, logger *zerolog.Logger) domain.RateLimitStore {
	memory := repository.NewMemoryRateLimitStore()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				memory.Cleanup()
			}
		}
	}()

	if client == nil {
		return memory
	}
	return repository.NewFailoverRateLimitStore(repository.NewRedisRateLimitStore(client), memory, logger)
}

func startTelegram(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if !cfg.Telegram.Enabled() {
		return
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}
	bot.Debug = cfg.Telegram.Debug

	notifier := service.NewTelegramService(bot, cfg.Telegram.ChatID, logger)
	notifier.Subscribe(bus)
	go notifier.Start(ctx)
	logger.Info().Str("bot", bot.Self.UserName).Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram notifications enabled")
}

func initSheetsWorker(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	resync bool,
	logger *zerolog.Logger,
) *worker.SheetsWorker {
	if !cfg.Google.Enabled() {
		return nil
	}

	sheet, err := google.NewReservationsSheet(ctx, cfg.Google, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheet.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, tasks will be retried")
	}

	if resync {
		list, err := db.GetAllReservations(ctx)
		if err == nil {
			err = sheet.ReplaceAll(ctx, list)
		}
		if err != nil {
			logger.Error().Err(err).Msg("sheets resync failed")
		}
	}
	go sheet.StartCacheRefresh(ctx, time.Hour)

	if failed, err := db.GetFailedSyncTasks(ctx); err == nil && len(failed) > 0 {
		logger.Warn().Int("count", len(failed)).Msg("sheets sync has failed tasks")
	}

	logger.Info().Str("sheet", cfg.Google.ReservationsSheetName).Msg("google sheets connected")
	return worker.NewSheetsWorker(db, sheet, redisClient, worker.RetryPolicyFromConfig(cfg.Worker), cfg.Worker.PollInterval, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	event := logger.Info().Int("http_port", cfg.API.HTTP.Port)
	if grpcServer != nil {
		event = event.Str("grpc_addr", grpcServer.Addr())
	}
	event.Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
