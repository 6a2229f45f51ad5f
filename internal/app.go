package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lego-filestore/config"
	"lego-filestore/internal/application/ports"
	"lego-filestore/internal/application/services"
	"lego-filestore/internal/infrastructure/db/postgres"
	"lego-filestore/internal/infrastructure/db/postgres/file_association"
	"lego-filestore/internal/infrastructure/db/postgres/stored_file"
	"lego-filestore/internal/infrastructure/logger"
	"lego-filestore/internal/infrastructure/metrics"
	"lego-filestore/internal/infrastructure/minio"
	"lego-filestore/internal/infrastructure/mq"
	"lego-filestore/internal/infrastructure/s3"
	"lego-filestore/internal/interface/api/rest"
	"lego-filestore/internal/interface/api/rest/middleware"
	"lego-filestore/pkg/rmqconsumer"
)

type App struct {
	logger   *zap.Logger
	cfg      config.Config
	db       *pgxpool.Pool
	httpSrv  *http.Server
	router   *gin.Engine
	mCounter *prometheus.CounterVec
	cron     *cron.Cron

	// mq and mqConsumer stay nil when RABBITMQ_HOST is empty.
	mq         ports.RabbitMQ
	mqConsumer ports.RMQConsumer
	publisher  ports.EventPublisher

	gateway      ports.StorageGateway
	storedFiles  ports.StoredFileService
	associations ports.FileAssociationService
	sweeper      ports.Sweeper
}

// LoadConfig reads .env when present and then the environment.
func LoadConfig() (config.Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := config.Load()
	if err := cfg.Storage.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func NewLogger(cfg config.Config) (*zap.Logger, error) {
	l, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize zap logger: %w", err)
	}
	return l.With(zap.String("service", cfg.App.Name)), nil
}

// Migrate applies the embedded schema migrations.
func Migrate(cfg config.Config, logger *zap.Logger) error {
	dsn, err := cfg.DBDSN()
	if err != nil {
		return fmt.Errorf("DB config error: %w", err)
	}
	return postgres.Migrate(logger, dsn)
}

// NewObjectStore picks the backend named by STORAGE_DRIVER.
func NewObjectStore(ctx context.Context, logger *zap.Logger, cfg config.Storage) (ports.ObjectStore, error) {
	switch cfg.Driver {
	case config.StorageDriverMinio:
		c, err := minio.New(logger, cfg)
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return c, nil
	case config.StorageDriverS3:
		c, err := s3.New(ctx, logger, cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// NewGateway builds the storage gateway alone, for commands that never touch
// the database.
func NewGateway(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	mCounter *prometheus.CounterVec,
) (ports.StorageGateway, error) {
	store, err := NewObjectStore(ctx, logger, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return services.NewStorageGateway(store, cfg.Storage, logger, mCounter), nil
}

// checkStorage fails when the backend cannot be reached. With auto-create on
// it also bootstraps the bucket; otherwise a missing bucket is only reported.
func checkStorage(ctx context.Context, gateway ports.StorageGateway, cfg config.Storage, logger *zap.Logger) error {
	if cfg.AutoCreateBucket {
		if err := gateway.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
		return nil
	}

	ok, err := gateway.BucketExists(ctx)
	if err != nil {
		return fmt.Errorf("storage check: %w", err)
	}
	if !ok {
		logger.Warn("bucket does not exist, run `filestore bucket init`", zap.String("bucket", cfg.Bucket))
	}
	return nil
}

func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	// metrics
	mCounter := metrics.NewCounter()

	// router
	switch cfg.App.Env {
	case gin.ReleaseMode, "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogGin(logger, mCounter))
	if cfg.Storage.MaxFileSize > 0 {
		// multipart overhead on top of the largest accepted file
		limit := cfg.Storage.MaxFileSize + 1<<20
		r.MaxMultipartMemory = limit
		r.Use(middleware.LimitMultipart(limit))
	}

	// httpServer
	httpSrv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// db
	dbDsn, err := cfg.DBDSN()
	if err != nil {
		return nil, fmt.Errorf("DB config error: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err = postgres.Migrate(logger, dbDsn); err != nil {
			return nil, err
		}
	}
	dbPool, err := postgres.New(ctx, logger, dbDsn, cfg.App.Name, cfg.DB.MaxConns)
	if err != nil {
		return nil, err
	}

	// storage
	gateway, err := NewGateway(ctx, cfg, logger, mCounter)
	if err != nil {
		dbPool.Close()
		return nil, err
	}
	if err = checkStorage(ctx, gateway, cfg.Storage, logger); err != nil {
		dbPool.Close()
		return nil, err
	}

	a := &App{
		logger:    logger,
		cfg:       cfg,
		db:        dbPool,
		httpSrv:   httpSrv,
		router:    r,
		mCounter:  mCounter,
		gateway:   gateway,
		publisher: mq.Discard{},
	}

	// rabbitMQ
	if cfg.MQEnabled() {
		if err = a.initMQ(ctx); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		logger.Info("rabbitmq disabled, events are discarded")
	}

	// repos
	storedFileRepo := stored_file.NewRepository(dbPool)
	assocRepo := file_association.NewRepository(dbPool)

	// services
	a.storedFiles = services.NewStoredFileService(gateway, storedFileRepo, a.publisher, logger, mCounter)
	a.associations = services.NewFileAssociationService(
		assocRepo, storedFileRepo, a.storedFiles, gateway, a.publisher, logger, mCounter,
	)
	a.sweeper = services.NewSweeper(assocRepo, storedFileRepo, a.associations, gateway, cfg.Sweep, logger)

	return a, nil
}

func (a *App) initMQ(ctx context.Context) error {
	rabbitDsn, err := a.cfg.AMQPDSN()
	if err != nil {
		return fmt.Errorf("RabbitMQ config error: %w", err)
	}
	rbMQ := mq.New(a.cfg.MQ, a.logger)
	if err = rbMQ.Connect(ctx, rabbitDsn); err != nil {
		return fmt.Errorf("failed to connect to rabbitMQ: %w", err)
	}
	a.mq = rbMQ
	a.publisher = rbMQ
	if err = rbMQ.Init(); err != nil {
		return fmt.Errorf("failed init rabbitMQ: %w", err)
	}

	// rmqConsumer
	rmqConsumer := rmqconsumer.New(a.cfg.MQ, a.logger, rbMQ.GetConn())
	if err = rmqConsumer.Connect(rabbitDsn); err != nil {
		return fmt.Errorf("failed to connect rabbitMQ consumer: %w", err)
	}
	if err = rmqConsumer.Init(); err != nil {
		return fmt.Errorf("failed to init rabbitMQ consumer: %w", err)
	}
	a.mqConsumer = rmqConsumer

	return nil
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.mq != nil && a.mq.GetConn() != nil {
		_ = a.mq.GetConn().Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// Run - The central place to launch and manage our application and
// parallel processes through a single context.
func (a *App) Run(ctx context.Context) error {
	// context with os signals cancel chan
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer stop()

	if err := a.scheduleSweep(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting "+a.cfg.App.Name, zap.String("addr", a.cfg.App.Host+":"+a.cfg.App.Port))
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server "+a.cfg.App.Name+" error: %w", err)
		}

		return nil
	})

	if a.mq != nil {
		g.Go(func() error {
			a.mq.PublisherWorker(ctx)
			return nil
		})
		g.Go(func() error {
			a.mqConsumer.DeliveryWorker(ctx)
			return nil
		})
	}

	<-ctx.Done()

	a.logger.Info("shutting down " + a.cfg.App.Name + " gracefully...")
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if a.httpSrv != nil {
		if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown "+a.cfg.App.Name+" error", zap.Error(err))
			return err
		}
	}

	if err := g.Wait(); err != nil {
		a.logger.Error(a.cfg.App.Name+" returning an error", zap.Error(err))
		return err
	}

	a.logger.Info(a.cfg.App.Name + " gracefully stopped")

	return nil
}

// scheduleSweep starts the consistency sweep on SWEEP_SCHEDULE. An empty
// schedule leaves it to the "sweep" command.
func (a *App) scheduleSweep(ctx context.Context) error {
	if a.cfg.Sweep.Schedule == "" {
		return nil
	}

	a.cron = cron.New()
	if _, err := a.cron.AddFunc(a.cfg.Sweep.Schedule, func() {
		if _, err := a.sweeper.Sweep(ctx); err != nil {
			a.logger.Error("scheduled sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("sweep schedule %q: %w", a.cfg.Sweep.Schedule, err)
	}
	a.cron.Start()
	a.logger.Info("sweep scheduled", zap.String("schedule", a.cfg.Sweep.Schedule))

	return nil
}

func (a *App) InitControllers() {
	rest.NewStoredFileController(a.router, a.storedFiles, a.logger)
	rest.NewStorageController(a.router, a.gateway, a.logger)
	rest.NewFileAssociationController(a.router, a.associations, a.logger)

	// ops
	a.router.GET(rest.RouteHealth, a.health)
	a.router.GET(rest.RouteMetrics, gin.WrapH(promhttp.Handler()))
}

// health pings the database and checks the bucket.
func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
		return
	}
	if ok, err := a.gateway.BucketExists(ctx); err != nil || !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *App) Logger() *zap.Logger { return a.logger }

func (a *App) Gateway() ports.StorageGateway { return a.gateway }

func (a *App) Sweeper() ports.Sweeper { return a.sweeper }
