package dependencies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"Vigil/internal/backend/events"
	"Vigil/internal/backend/metrics"
	"Vigil/internal/backend/services"
	"Vigil/internal/backend/storage"
	"Vigil/internal/config"
	"Vigil/internal/engine/checker"
	"Vigil/internal/engine/maintenance"
	"Vigil/internal/engine/notification"
	"Vigil/internal/engine/oauth"
	runner "Vigil/internal/engine/runners"
	"Vigil/internal/engine/scheduler"

	"code.cloudfoundry.org/clock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Container контейнер зависимостей
type Container struct {
	// Config
	Config *config.Config

	// Logger
	Logger *slog.Logger
	Clock  clock.Clock

	// Storage
	MonitorStore      storage.MonitorStore
	HeartbeatStore    storage.HeartbeatStore
	MaintenanceStore  storage.MaintenanceStore
	NotificationStore storage.NotificationStore
	Events            storage.EventPublisher

	// Engine
	Hub        *events.Hub
	Metrics    *metrics.Metrics
	TokenCache *oauth.Cache
	PushRunner *runner.PushRunner
	Probers    *runner.Factory
	Dispatcher *notification.Dispatcher
	Checker    *checker.Checker
	Scheduler  *scheduler.Scheduler

	// Services
	MonitorService      *services.MonitorService
	MaintenanceService  *services.MaintenanceService
	NotificationService *services.NotificationService
	PushService         *services.PushService
	Importer            *services.Importer
	Retention           *services.RetentionJob

	// Database connections
	DB    *pgxpool.Pool
	Redis *redis.Client
}

// NewContainer создает и инициализирует контейнер зависимостей
func NewContainer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Container, error) {
	container := &Container{
		Config: cfg,
		Logger: log,
		Clock:  clock.NewClock(),
	}

	// Инициализация зависимостей
	if err := container.initStorage(ctx); err != nil {
		return nil, err
	}

	if err := container.initRedis(); err != nil {
		container.Close()
		return nil, err
	}

	container.initEngine()
	container.initServices()

	log.Info("Dependency container initialized successfully",
		"driver", cfg.Database.Driver,
		"redis", cfg.Redis.Enabled,
	)
	return container, nil
}

func (c *Container) initStorage(ctx context.Context) error {
	if c.Config.Database.Driver == config.DriverMemory {
		memory := storage.NewMemory()
		c.MonitorStore = memory.Monitors
		c.HeartbeatStore = memory.Heartbeats
		c.MaintenanceStore = memory.Maintenance
		c.NotificationStore = memory.Notifications
		c.Logger.Warn("using in-memory storage, data is lost on restart")
		return nil
	}

	db, err := storage.NewPostgres(ctx, &c.Config.Database, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	c.DB = db
	c.MonitorStore = storage.NewMonitorStore(db)
	c.HeartbeatStore = storage.NewHeartbeatStore(db)
	c.MaintenanceStore = storage.NewMaintenanceStore(db)
	c.NotificationStore = storage.NewNotificationStore(db)
	return nil
}

func (c *Container) initRedis() error {
	if !c.Config.Redis.Enabled {
		return nil
	}

	client, err := storage.NewRedisClient(&c.Config.Redis, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.Redis = client
	c.Events = storage.NewRedisPublisher(client, c.Logger)
	return nil
}

func (c *Container) initEngine() {
	logger := c.Logger

	c.Hub = events.NewHub(logger)
	c.Metrics = metrics.New()

	c.TokenCache = oauth.NewCache(
		oauth.NewClientCredentials(&http.Client{Timeout: c.Config.OAuth.FetchTimeout}, c.Clock),
		c.Clock,
		oauth.Config{
			ExpirySkew:   c.Config.OAuth.ExpirySkew,
			FetchTimeout: c.Config.OAuth.FetchTimeout,
		},
		logger.With("component", "oauth"),
	)

	c.PushRunner = runner.NewPushRunner(c.Clock)
	c.Probers = runner.NewFactory(
		runner.NewHTTPRunner(c.TokenCache, c.Config.App.Name+"/"+c.Config.App.Version),
		runner.NewTCPRunner(),
		runner.NewPingRunner(),
		runner.NewDNSRunner(),
		runner.NewMQTTRunner(),
		runner.NewRadiusRunner(),
		c.PushRunner,
	)

	providers := []notification.Provider{
		notification.NewWebhookProvider(notification.WebhookConfig{
			Timeout: c.Config.Notification.Timeout,
			Retries: c.Config.Notification.Retries,
		}, logger),
	}
	if c.Events != nil {
		providers = append(providers, notification.NewRedisProvider(c.Events))
	}
	c.Dispatcher = notification.NewDispatcher(c.NotificationStore, c.Config.Notification.Timeout, logger, providers...)

	channel := c.Config.Redis.Channel
	if channel == "" {
		channel = storage.HeartbeatChannel
	}
	deps := checker.Dependencies{
		Maintenance: maintenance.NewEvaluator(c.MaintenanceStore, logger.With("component", "maintenance")),
		Probers:     c.Probers,
		Heartbeats:  c.HeartbeatStore,
		Notifier:    c.Dispatcher,
		Hub:         c.Hub,
		Channel:     channel,
		Metrics:     c.Metrics,
		Clock:       c.Clock,
	}
	if c.Events != nil {
		deps.Events = c.Events
	}
	c.Checker = checker.New(deps, logger)

	c.Scheduler = scheduler.New(c.Checker, c.Clock, scheduler.Config{
		MaxJitter:    c.Config.Scheduler.MaxJitter,
		BaseTick:     c.Config.Scheduler.BaseTick,
		TimeoutRatio: c.Config.Scheduler.TimeoutRatio,
	}, c.Metrics, logger)
}

func (c *Container) initServices() {
	logger := c.Logger

	c.PushService = services.NewPushService(c.MonitorStore, c.PushRunner, logger.With("service", "push"))

	c.MonitorService = services.NewMonitorService(
		c.MonitorStore,
		c.HeartbeatStore,
		c.NotificationStore,
		c.Scheduler,
		logger.With("service", "monitor"),
		c.PushService,
		c.Metrics,
	)

	c.MaintenanceService = services.NewMaintenanceService(c.MaintenanceStore, c.Clock, logger.With("service", "maintenance"))
	c.NotificationService = services.NewNotificationService(c.NotificationStore, c.Dispatcher, logger.With("service", "notification"))
	c.Importer = services.NewImporter(c.MonitorService, c.MaintenanceService, c.NotificationService, logger.With("service", "import"))

	c.Retention = services.NewRetentionJob(
		c.HeartbeatStore,
		c.Config.Scheduler.Retention,
		c.Config.Scheduler.RetentionInterval,
		c.Clock,
		logger.With("service", "retention"),
	)
}

// Bootstrap импортирует файл определений (если задан), запускает мониторы и очистку
func (c *Container) Bootstrap(ctx context.Context) error {
	if path := c.Config.Definitions.Path; path != "" {
		defs, err := config.LoadDefinitions(path)
		if err != nil {
			return fmt.Errorf("failed to load definitions: %w", err)
		}
		if err := c.Importer.Import(ctx, defs); err != nil {
			return fmt.Errorf("failed to import definitions: %w", err)
		}
	}

	if _, err := c.MonitorService.StartAll(ctx); err != nil {
		return err
	}
	c.Retention.Start()
	return nil
}

// Close останавливает мониторы и закрывает все соединения
func (c *Container) Close() error {
	var errs []error

	if c.Scheduler != nil {
		c.Scheduler.StopAll()
	}

	if c.Retention != nil && c.Retention.Running() {
		c.Retention.Stop()
	}

	if c.Events != nil {
		if err := c.Events.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %w", errors.Join(errs...))
	}

	return nil
}

// Ready проверяет доступность внешних хранилищ
func (c *Container) Ready(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := map[string]string{"database": "memory"}
	if c.DB != nil {
		status["database"] = "connected"
		if err := c.DB.Ping(ctx); err != nil {
			status["database"] = "error: " + err.Error()
		}
	}
	if c.Redis != nil {
		status["redis"] = "connected"
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			status["redis"] = "error: " + err.Error()
		}
	}
	return status
}
