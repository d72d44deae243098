package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/directory/internal/config"
	dbRedis "github.com/kailas-cloud/directory/internal/db/redis"
	domfilter "github.com/kailas-cloud/directory/internal/domain/filter"
	"github.com/kailas-cloud/directory/internal/jobs"
	logpkg "github.com/kailas-cloud/directory/internal/logger"
	"github.com/kailas-cloud/directory/internal/metrics"
	businessrepo "github.com/kailas-cloud/directory/internal/repository/business"
	"github.com/kailas-cloud/directory/internal/repository/resultcache"
	chiTransport "github.com/kailas-cloud/directory/internal/transport/chi"
	minioTransport "github.com/kailas-cloud/directory/internal/transport/minio"
	sesTransport "github.com/kailas-cloud/directory/internal/transport/ses"
	businessuc "github.com/kailas-cloud/directory/internal/usecase/business"
	filteruc "github.com/kailas-cloud/directory/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/directory/internal/usecase/health"
	mediauc "github.com/kailas-cloud/directory/internal/usecase/media"
	"github.com/kailas-cloud/directory/internal/version"
)

const geoReindexJob = "geo-reindex"

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{Level: cfg.Logging.Level, Version: version.Version})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting directory API server",
		zap.String("build", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	ctx := context.Background()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open record store", zap.Error(err))
	}
	defer store.Close()

	postalTable, err := loadPostalTable(cfg.Filter.PostalDataset)
	if err != nil {
		logger.Fatal("Failed to load postal table", zap.Error(err))
	}
	logger.Info("Postal table loaded", zap.Int("codes", postalTable.Len()))

	var redisStore *dbRedis.Store
	if len(cfg.Redis.Addrs) > 0 {
		redisStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create redis client", zap.Error(err))
		}
		defer redisStore.Close()
		if err := redisStore.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		logger.Info("Connected to redis")
	}

	metrics.RegisterFilterMetrics()

	scheduler, err := jobs.New(cfg.Jobs.Workers, logger)
	if err != nil {
		logger.Fatal("Failed to create job scheduler", zap.Error(err))
	}

	// Filter engine: record store, optionally with proximity answered by
	// the Redis geo index and results cached in Redis.
	geoKey := cfg.Redis.KeyPrefix + "geo"
	var filterStore domfilter.Store = store
	repo := businessrepo.New(store, logger)
	if cfg.Redis.GeoIndex {
		filterStore = businessrepo.NewIndexedStore(store, redisStore, geoKey)
		repo.WithGeoIndex(redisStore, geoKey)
	}

	var executor businessuc.Executor = filteruc.New(filterStore)
	var cache *resultcache.CachedExecutor
	if cfg.CacheEnabled() {
		cache = resultcache.New(executor, redisStore, cfg.Redis.KeyPrefix,
			time.Duration(cfg.Filter.CacheTTLSec)*time.Second, metrics.ResultCacheTotal, logger)
		executor = cache
	}

	parser := domfilter.NewParser(postalTable).
		WithPageSize(cfg.Filter.DefaultPageSize, cfg.Filter.MaxPageSize).
		WithDefaultRadius(cfg.Filter.DefaultRadiusMeters)

	storage, err := minioTransport.New(minioTransport.Config{
		Endpoint:  cfg.Media.Endpoint,
		AccessKey: cfg.Media.AccessKey,
		SecretKey: cfg.Media.SecretKey,
		Bucket:    cfg.Media.Bucket,
		Region:    cfg.Media.Region,
		UseSSL:    cfg.Media.UseSSL,
	})
	if err != nil {
		logger.Fatal("Failed to create object storage client", zap.Error(err))
	}
	if storage.Enabled() {
		if err := storage.EnsureBucket(ctx); err != nil {
			logger.Warn("Object storage bucket unavailable", zap.Error(err))
		}
	} else {
		logger.Info("Object storage disabled, image uploads are rejected")
	}

	businessSvc := businessuc.New(repo, executor, parser, postalTable, logger).WithObjects(storage)
	mediaSvc := mediauc.New(repo, storage, scheduler, logger).
		WithCleanupDelay(time.Duration(cfg.Media.CleanupDelaySec) * time.Second).
		WithMaxSize(cfg.Media.MaxImageBytes)
	// Pass nil interface (not typed nil pointer!) when the cache is off.
	if cache != nil {
		businessSvc.WithInvalidator(cache)
		mediaSvc.WithInvalidator(cache)
	}
	if cfg.Mail.From != "" {
		mailer, err := sesTransport.New(ctx, sesTransport.Config{Region: cfg.Mail.Region, From: cfg.Mail.From}, logger)
		if err != nil {
			logger.Fatal("Failed to create mailer", zap.Error(err))
		}
		businessSvc.WithMailer(mailer)
	}

	healthSvc := healthuc.New(store).With(healthuc.ComponentStorage, storage)
	if redisStore != nil {
		healthSvc.With(healthuc.ComponentRedis, redisStore)
	}

	if cfg.Redis.GeoIndex {
		scheduleReindex(scheduler, repo, time.Duration(cfg.Jobs.ReindexIntervalSec)*time.Second, logger)
	}

	server := chiTransport.NewServer(businessSvc, mediaSvc, healthSvc, logger).
		WithMaxUploadBytes(cfg.Media.MaxImageBytes)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "route not found")
	})
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error("Jobs did not finish before shutdown deadline", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// scheduleReindex rebuilds the geo index once at startup and then every
// interval, when interval is positive.
func scheduleReindex(s *jobs.Scheduler, repo *businessrepo.Repo, interval time.Duration, logger *zap.Logger) {
	reindex := func(ctx context.Context) error {
		n, err := repo.Reindex(ctx)
		if err != nil {
			return fmt.Errorf("reindex geo index: %w", err)
		}
		logger.Info("Geo index rebuilt", zap.Int("locations", n))
		return nil
	}
	if err := s.Schedule(geoReindexJob, 0, reindex); err != nil {
		logger.Error("Failed to schedule geo reindex", zap.Error(err))
	}
	if interval > 0 {
		if err := s.Every(geoReindexJob, interval, reindex); err != nil {
			logger.Error("Failed to schedule periodic geo reindex", zap.Error(err))
		}
	}
}
