package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"posservice/internal/catalog"
	"posservice/internal/config"
	"posservice/internal/inventory"
	"posservice/internal/kiosk"
	"posservice/internal/platform/database"
	"posservice/internal/platform/kafka"
	"posservice/internal/platform/observability"
	"posservice/internal/recipe"
	"posservice/internal/settlement"
	"posservice/internal/terminal"
)

// Container holds expensive-to-create singleton resources and dependencies
type Container struct {
	config    *config.Config
	logger    *zap.Logger
	tracer    observability.Tracer
	telemetry *observability.Telemetry

	db      *sql.DB
	dialect database.Dialect
	redis   redis.UniversalClient

	catalog     catalog.Store
	inventory   inventory.Store
	coordinator *settlement.Coordinator
	registry    *terminal.Registry

	httpServer      *http.Server
	messageConsumer kafka.Consumer
	messageProducer kafka.Producer
	consumerService kiosk.ConsumerService
}

// NewContainer loads configuration from the environment and builds every component.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewContainerWithConfig(ctx, cfg)
}

// NewContainerWithConfig builds every component from cfg. On failure anything
// already opened is released.
func NewContainerWithConfig(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{config: cfg}

	steps := []func(context.Context) error{
		c.setupLogger,
		c.setupObservability,
		c.setupDatabase,
		c.setupSettlement,
		c.setupHTTP,
		c.setupKafka,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			c.Shutdown(ctx)
			return nil, err
		}
	}
	return c, nil
}

func (c *Container) setupLogger(context.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

func (c *Container) setupObservability(ctx context.Context) error {
	telemetry, err := observability.SetupTelemetry(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry", zap.Error(err))
	}
	if telemetry == nil {
		return err
	}
	c.telemetry = telemetry

	c.reinitializeLoggerWithOTel()
	c.tracer = otel.Tracer(config.ServiceName)
	return nil
}

// reinitializeLoggerWithOTel tees console output into the OTel log bridge.
func (c *Container) reinitializeLoggerWithOTel() {
	otelZapCore := otelzap.NewCore("pos-service.manual",
		otelzap.WithLoggerProvider(global.GetLoggerProvider()),
	)

	consoleEncoderConfig := zap.NewProductionEncoderConfig()
	consoleEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(consoleEncoderConfig),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)

	c.logger = zap.New(zapcore.NewTee(otelZapCore, consoleCore),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", config.ServiceName)),
	)
	c.logger.Info("Logger re-initialized with OpenTelemetry bridge",
		zap.Bool("exporting", c.telemetry.Exporting))
}

func (c *Container) setupDatabase(ctx context.Context) error {
	db, dialect, err := database.Open(ctx, database.Options{
		URL:    c.config.DatabaseURL,
		Driver: c.config.DatabaseDriver,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	c.db, c.dialect = db, dialect
	c.logger.Info("🗄️ Database connected", zap.String("dialect", dialect.Name()))

	if c.config.DatabaseMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		c.logger.Info("Database schema ensured")
	}

	if c.config.SeedFile != "" {
		seed, err := database.LoadSeedFile(c.config.SeedFile)
		if err != nil {
			return err
		}
		if err := seed.Apply(ctx, db, dialect); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
		c.logger.Info("🌱 Seed data applied", zap.String("file", c.config.SeedFile))
	}
	return nil
}

func (c *Container) setupSettlement(ctx context.Context) error {
	policy, err := settlement.ParseUnresolvedPolicy(c.config.UnresolvedPolicy)
	if err != nil {
		return err
	}

	categories := catalog.Categories{Entree: c.config.EntreeCategoryID, Base: c.config.BaseCategoryID}
	var store catalog.Store = catalog.NewSQLStore(c.db, c.dialect, categories)

	if c.config.RedisAddr != "" {
		c.redis = redis.NewClient(&redis.Options{Addr: c.config.RedisAddr})
		if err := c.redis.Ping(ctx).Err(); err != nil {
			c.logger.Warn("⚠️ Redis unreachable, catalog reads fall through to the database",
				zap.String("addr", c.config.RedisAddr), zap.Error(err))
		}
		store = catalog.NewCachedStore(store,
			catalog.NewRedisCache(c.redis, config.CatalogCachePrefix),
			c.config.CatalogCacheTTL, c.logger)
	}
	c.catalog = store
	c.inventory = inventory.NewSQLStore(c.db, c.dialect)

	c.coordinator = settlement.NewCoordinator(recipe.NewResolver(c.catalog), c.inventory, settlement.Options{
		UnresolvedPolicy:   policy,
		AllowNegativeStock: c.config.AllowNegativeStock,
		ResolveConcurrency: c.config.ResolveConcurrency,
	}, c.logger, c.tracer)
	c.registry = terminal.NewRegistry(c.catalog, c.coordinator, c.logger)
	return nil
}

func (c *Container) setupHTTP(context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	if len(c.config.CORSOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins: c.config.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "DELETE"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "traceparent"},
			MaxAge:       12 * time.Hour,
		}))
	}

	terminal.NewHandler(c.registry, c.catalog, c.logger).Register(engine)

	c.httpServer = &http.Server{
		Addr: c.config.HTTPAddr,
		Handler: otelhttp.NewHandler(engine, "pos-http",
			otelhttp.WithTracerProvider(c.telemetry.TracerProvider),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

func (c *Container) setupKafka(context.Context) error {
	if c.config.KafkaBroker == "" {
		c.logger.Info("KAFKA_BROKER not set, kiosk order consumer disabled")
		return nil
	}

	tp := c.telemetry.TracerProvider
	consumer, err := kafka.NewTracedReader(kafka.ReaderConfig{
		Broker:  c.config.KafkaBroker,
		Topic:   config.KioskOrderTopic,
		GroupID: config.GroupID,
	}, tp)
	if err != nil {
		return fmt.Errorf("failed to create kafka reader: %w", err)
	}
	c.messageConsumer = consumer

	producer, err := kafka.NewTracedWriter(kafka.WriterConfig{
		Broker:       c.config.KafkaBroker,
		Topic:        config.OrderSettledTopic,
		ClientID:     config.ServiceName,
		BatchTimeout: config.BatchTimeout,
		BatchSize:    config.BatchSize,
	}, tp)
	if err != nil {
		return fmt.Errorf("failed to create kafka writer: %w", err)
	}
	c.messageProducer = producer

	service := kiosk.NewService(c.catalog, c.coordinator, c.config.KioskTaxRate, c.logger, c.tracer)
	handler := kiosk.NewMessageHandler(service, c.messageProducer, c.logger)
	c.consumerService = kiosk.NewConsumerService(c.messageConsumer, handler, c.logger)
	return nil
}

// Shutdown gracefully shuts down all infrastructure components
func (c *Container) Shutdown(ctx context.Context) {
	if c.logger == nil {
		return
	}
	c.logger.Info("Shutting down infrastructure...")

	if c.messageConsumer != nil {
		if err := c.messageConsumer.Close(); err != nil {
			c.logger.Error("Failed to close message consumer", zap.Error(err))
		}
	}
	if c.messageProducer != nil {
		if err := c.messageProducer.Close(); err != nil {
			c.logger.Error("Failed to close message producer", zap.Error(err))
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
		}
	}
	if c.telemetry != nil {
		if err := c.telemetry.Shutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}

	c.logger.Info("Infrastructure shutdown complete")
	if err := c.logger.Sync(); err != nil {
		fmt.Printf("Failed to sync logger: %v\n", err)
	}
}

func (c *Container) Logger() observability.Logger           { return c.logger }
func (c *Container) HTTPServer() *http.Server               { return c.httpServer }
func (c *Container) ConsumerService() kiosk.ConsumerService { return c.consumerService }
func (c *Container) Coordinator() *settlement.Coordinator   { return c.coordinator }
