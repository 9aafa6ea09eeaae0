package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"grifttracker/internal/classifier"
	"grifttracker/internal/config"
	cronrunner "grifttracker/internal/cron"
	"grifttracker/internal/db"
	"grifttracker/internal/dedup"
	"grifttracker/internal/fetch"
	"grifttracker/internal/handler"
	"grifttracker/internal/logger"
	"grifttracker/internal/notify"
	"grifttracker/internal/perf"
	"grifttracker/internal/pipeline"
	gormrepository "grifttracker/internal/repository/gorm"
	"grifttracker/internal/resolve"
	signalengine "grifttracker/internal/signal"
	"grifttracker/internal/suggest"
)

func main() {
	cfgPath := os.Getenv("GT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("GT_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	var cache fetch.Cache
	var dedupStore dedup.Store
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("redis url invalid", zap.Error(err))
		}
		client := redis.NewClient(opts)
		cache = fetch.NewRedisCache(client)
		dedupStore = dedup.NewRedisStore(client)
		logger.Info("redis cache and dedup enabled")
	} else {
		cache = fetch.NewMemoryCache()
		dedupStore = dedup.NewMemoryStore()
		logger.Info("in-process cache and dedup (no redis configured)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver := resolve.New(store, cfg.Resolver, logger)
	if err := resolver.Load(ctx); err != nil {
		logger.Fatal("resolver load failed", zap.Error(err))
	}

	ruleset := signalengine.FromConfig(cfg.Rules)
	fetcher := fetch.New(cfg.Fetch, cache, logger)
	canon := pipeline.NewCanonicalizer(resolver, logger)
	pipe := pipeline.New(store, fetcher, canon, dedupStore, resolver, ruleset, cfg.Sources, logger)

	if err := pipeline.SeedSources(ctx, store, cfg.Sources, logger); err != nil {
		logger.Fatal("source seeding failed", zap.Error(err))
	}

	var clf *classifier.Client
	if cfg.Classifier.Enabled && cfg.Classifier.BaseURL != "" {
		clf = classifier.New(cfg.Classifier)
		logger.Info("external classifier enabled", zap.String("base_url", cfg.Classifier.BaseURL))
	}
	notifier := notify.NewLogNotifier(logger)
	aggregator := suggest.NewAggregator(store, ruleset, cfg.Aggregator, notifier, clf, logger)
	tracker := perf.NewTracker(store, cfg.Perf, logger)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	ingestHandler := &handler.IngestHandler{Pipeline: pipe, Repo: store}
	ingestHandler.Register(engine)
	suggestionHandler := &handler.SuggestionHandler{Repo: store, Aggregator: aggregator}
	suggestionHandler.Register(engine)
	signalHandler := &handler.SignalHandler{Repo: store}
	signalHandler.Register(engine)
	performanceHandler := &handler.PerformanceHandler{Repo: store, Tracker: tracker}
	performanceHandler.Register(engine)
	sourceHandler := &handler.SourceHandler{Repo: store}
	sourceHandler.Register(engine)
	identityHandler := &handler.IdentityHandler{Repo: store, Resolver: resolver}
	identityHandler.Register(engine)

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.Ingest, func(ctx context.Context) {
			result, err := pipe.Run(ctx)
			if err != nil {
				logger.Warn("cron ingestion sweep failed", zap.Error(err))
				return
			}
			logger.Info("cron ingestion sweep ok",
				zap.Int("sources", result.Sources),
				zap.Int("events", result.Events),
				zap.Int("signals", result.Signals))
		})
		if err != nil {
			logger.Warn("cron register ingest failed", zap.Error(err))
		}

		_, err = cronRunner.Add(cfg.Cron.Aggregate, func(ctx context.Context) {
			generated, err := aggregator.RunAll(ctx, time.Now().UTC())
			if err != nil {
				logger.Warn("cron aggregation failed", zap.Error(err))
				return
			}
			logger.Info("cron aggregation ok", zap.Int("suggestions", generated))
		})
		if err != nil {
			logger.Warn("cron register aggregate failed", zap.Error(err))
		}

		_, err = cronRunner.Add(cfg.Cron.PerfCheck, func(ctx context.Context) {
			graded, err := tracker.RunAll(ctx, time.Now().UTC())
			if err != nil {
				logger.Warn("cron performance check failed", zap.Error(err))
				return
			}
			logger.Info("cron performance check ok", zap.Int("graded", graded))
		})
		if err != nil {
			logger.Warn("cron register perf check failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
