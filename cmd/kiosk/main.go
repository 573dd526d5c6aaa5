package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duetmenu/internal/api"
	"duetmenu/internal/config"
	"duetmenu/internal/domain"
	"duetmenu/internal/events"
	"duetmenu/internal/export"
	"duetmenu/internal/images"
	"duetmenu/internal/logging"
	"duetmenu/internal/metrics"
	"duetmenu/internal/models"
	"duetmenu/internal/notifier"
	"duetmenu/internal/service"
	"duetmenu/internal/sheets"
	"duetmenu/internal/store"
	"duetmenu/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	seed, err := loadMenuSeed(cfg, &logger)
	if err != nil {
		return err
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	st, err := initStore(cfg, redisClient, &logger)
	if err != nil {
		return err
	}
	defer st.Close()

	bus := events.NewEventBus()
	notices := events.NewNoticeLog(models.DefaultNoticeLimit)
	bindNotices(bus, notices)

	sender := initNotifier(cfg, &logger)

	catalog := service.NewCatalogService(st, seed, bus, &logger)
	history := service.NewHistoryService(st, bus, &logger)
	cart := service.NewCartService(st, catalog, history, sender, bus, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := catalog.Load(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if err := history.Load(ctx); err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if err := cart.Load(ctx); err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	imageStore, err := images.NewDiskStore(cfg.Images.Path, cfg.Images.URLPrefix, &logger)
	if err != nil {
		return fmt.Errorf("init image store: %w", err)
	}

	exporter := export.NewXLSXExporter(history, cfg.Exports.Path, &logger)

	startLedgerWorker(ctx, cfg, history, redisClient, bus, &logger)
	startBackups(ctx, cfg, &logger)
	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.API, catalog, cart, history, notices, imageStore, imageStore.Dir(), exporter, &logger)
	return startServer(ctx, httpServer, &logger)
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
	logger := baseLogger.With().Str("component", "kiosk-main").Logger()

	return cfg, logger, closer, nil
}

// loadMenuSeed reads the first-run menu from a yaml file when configured,
// falling back to the built-in household menu.
func loadMenuSeed(cfg *config.Config, logger *zerolog.Logger) ([]models.Dish, error) {
	menuPath := os.Getenv("MENU_PATH")
	if menuPath == "" {
		menuPath = cfg.MenuPath
	}
	if menuPath == "" {
		return models.DefaultMenu(), nil
	}

	menuData, err := os.ReadFile(menuPath)
	if err != nil {
		logger.Error().Err(err).Str("menu_path", menuPath).Msg("read menu seed")
		return nil, err
	}

	var menuConfig struct {
		Dishes []models.Dish `yaml:"dishes"`
	}
	if err := yaml.Unmarshal(menuData, &menuConfig); err != nil {
		logger.Error().Err(err).Str("menu_path", menuPath).Msg("parse menu seed")
		return nil, err
	}

	return menuConfig.Dishes, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := store.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initStore(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) (domain.Store, error) {
	var primary domain.Store
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		primary = store.NewMemoryStore()
	case config.StorageRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis storage backend requires a reachable redis")
		}
		primary = store.NewRedisStore(redisClient)
	case config.StorageSQLite:
		s, err := store.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.Storage.Path).Msg("init sqlite store")
			return nil, err
		}
		primary = s
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}

	if cfg.Storage.Failover {
		return store.NewFailoverStore(primary, store.NewMemoryStore(), logger), nil
	}
	return primary, nil
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) domain.NotificationSender {
	switch cfg.Notify.Backend {
	case config.NotifyServerChan:
		return notifier.NewServerChanSender(cfg.Notify.ServerChan, nil, logger)
	case config.NotifyTelegram:
		sender, err := notifier.NewTelegramSender(cfg.Notify.Telegram, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, notifications disabled")
			return notifier.NoopSender{}
		}
		return sender
	default:
		return notifier.NoopSender{}
	}
}

// bindNotices translates order lifecycle events into on-screen messages.
func bindNotices(bus *events.EventBus, notices *events.NoticeLog) {
	bus.Subscribe(events.EventCartLineAdded, func(event *events.Event) error {
		var payload events.DishEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		notices.Add(fmt.Sprintf("已添加 %s 到餐车", payload.Name))
		return nil
	})
	bus.Subscribe(events.EventOrderSubmitted, func(event *events.Event) error {
		var payload events.OrderEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		notices.Add(fmt.Sprintf("订单 #%s 已提交，合计 ¥%.2f", shortID(payload.OrderID), payload.Total))
		return nil
	})
	bus.Subscribe(events.EventNotificationFailed, func(event *events.Event) error {
		var payload events.OrderEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return err
		}
		notices.Add(fmt.Sprintf("订单 #%s 的微信提醒发送失败", shortID(payload.OrderID)))
		return nil
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func startLedgerWorker(
	ctx context.Context,
	cfg *config.Config,
	history domain.HistoryService,
	redisClient *redis.Client,
	bus *events.EventBus,
	logger *zerolog.Logger,
) {
	if cfg.Google.CredentialsFile == "" || cfg.Google.LedgerSpreadsheetID == "" {
		return
	}

	ledger, err := sheets.NewLedgerService(cfg.Google.CredentialsFile, cfg.Google.LedgerSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("ledger init failed, continuing without ledger sync")
		return
	}

	if err := ledger.TestConnection(ctx); err != nil {
		// The most common cause is the sheet not being shared with the
		// service account, so surface its email in the log.
		email, emailErr := ledger.GetServiceAccountEmail(cfg.Google.CredentialsFile)
		if emailErr != nil {
			email = "unknown"
		}
		logger.Error().Err(err).Str("service_account", email).
			Msg("ledger connection test failed, continuing without ledger sync")
		return
	}

	w := worker.NewLedgerWorker(ledger, history, redisClient, worker.RetryPolicy{}, logger)
	if err := w.Reconcile(ctx); err != nil {
		logger.Warn().Err(err).Msg("ledger reconcile failed, sync continues from live events")
	}
	w.BindEvents(bus)
	go w.Start(ctx)
	logger.Info().Msg("ledger sync connected")
}

func startBackups(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if cfg.Storage.Backend != config.StorageSQLite || !cfg.Storage.Backup.Enabled {
		return
	}
	backup := store.NewBackupService(cfg.Storage.Path, cfg.Storage.Backup, logger)
	go backup.Start(ctx)
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

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("kiosk stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
