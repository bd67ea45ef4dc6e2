package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/hollis-dev/snip/config"
	appcache "github.com/hollis-dev/snip/internal/app/cache"
	appmodel "github.com/hollis-dev/snip/internal/app/model"
	apprepository "github.com/hollis-dev/snip/internal/app/repository"
	appsequence "github.com/hollis-dev/snip/internal/app/sequence"
	appserver "github.com/hollis-dev/snip/internal/app/server"
	appservice "github.com/hollis-dev/snip/internal/app/service"
	"github.com/hollis-dev/snip/internal/infra/logger"
	infraNATS "github.com/hollis-dev/snip/internal/infra/nats"
	infraPostgres "github.com/hollis-dev/snip/internal/infra/postgres"
	infraPrometheus "github.com/hollis-dev/snip/internal/infra/prometheus"
	infraRedis "github.com/hollis-dev/snip/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustNew(logger.Options{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("base_url", cfg.App.BaseURL),
		zap.String("code_strategy", cfg.App.CodeStrategy),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.ShortLink{}, &appmodel.AccessEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	allocator, err := appsequence.NewAllocator(ctx, pool, cfg.App.SequenceBlock)
	if err != nil {
		log.Fatal("Failed to prepare id allocator", zap.Error(err))
	}

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	linkRepo := apprepository.NewLinkRepository(gormDB)
	eventRepo := apprepository.NewAccessEventRepository(gormDB)

	linkCache := appcache.New(redisClient, appcache.Options{
		TTL:         config.Duration(cfg.Cache.TTL, 0),
		NegativeTTL: config.Duration(cfg.Cache.NegativeTTL, 0),
		BloomItems:  cfg.Cache.BloomItems,
		BloomFPRate: cfg.Cache.BloomFPRate,
	})

	// Arm the membership filter with every known code; until this runs
	// the filter answers "maybe" and never vetoes a lookup.
	codes, err := linkRepo.AllCodes(ctx)
	if err != nil {
		log.Fatal("Failed to load codes for the membership filter", zap.Error(err))
	}
	linkCache.Warm(codes)
	log.Info("Membership filter warmed", zap.Int("codes", len(codes)))

	linkService := appservice.NewLinkService(linkRepo, allocator, linkCache, appservice.Options{
		Strategy:         cfg.App.CodeStrategy,
		RandomCodeLength: cfg.App.RandomCodeLength,
		MaxAttempts:      cfg.App.MaxCodeAttempts,
	})
	resolver := appservice.NewResolver(log, linkRepo, linkCache)
	publisher := appservice.NewAccessPublisher(js)

	consumer := appservice.NewAccessConsumer(js, log, eventRepo)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start access event consumer", zap.Error(err))
	}

	sweeper := appservice.NewExpirySweeper(log, linkRepo, linkCache,
		config.Duration(cfg.App.SweepInterval, 0))
	sweeper.Start()
	defer sweeper.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:      log,
		Redis:       redisClient,
		LinkService: linkService,
		Resolver:    resolver,
		Publisher:   publisher,
		BaseURL:     cfg.App.BaseURL,
	})

	if err := server.Listen(cfg.App.Listen); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
