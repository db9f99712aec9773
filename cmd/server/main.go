package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookcourier/config"
	"bookcourier/internal/api"
	"bookcourier/internal/auth"
	"bookcourier/internal/backend"
	"bookcourier/internal/broker"
	"bookcourier/internal/cache"
	"bookcourier/internal/httpclient"
	"bookcourier/internal/imagehost"
	"bookcourier/internal/mutation"
	"bookcourier/internal/redisclient"
	"bookcourier/internal/service"
	"bookcourier/internal/session"
	"bookcourier/internal/store"
	"bookcourier/internal/util"
	"bookcourier/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	replicaID := uuid.New().String()
	logger.Info("Starting bookcourier", zap.String("replica_id", replicaID), zap.String("api", cfg.Backend.URL))

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	resourceCache := cache.New()
	defer resourceCache.Dispose()

	public := backend.NewClient(httpclient.New(cfg.Backend.URL, cfg.Backend.Timeout))
	provider := auth.NewFirebaseProvider(cfg.Auth.URL, cfg.Auth.TokenURL, cfg.Auth.APIKey, cfg.Server.PublicURL)
	images := imagehost.NewClient(cfg.Image.URL, cfg.Image.APIKey)

	var readiness []func(h *api.Handler)

	var sessions store.SessionStore
	if cfg.Database.URL != "" {
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Migrate(context.Background()); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		sessions = db
		readiness = append(readiness, func(h *api.Handler) {
			h.AddReadinessCheck("database", db.GetDB().PingContext)
		})
		logger.Info("Database connected")
	} else {
		sessions = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, sessions are kept in memory")
	}

	var execOpts []mutation.Option

	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		execOpts = append(execOpts, mutation.WithGuard(mutation.NewRedisGuard(redisClient, cfg.Redis.LockTTL, logger)))
		readiness = append(readiness, func(h *api.Handler) {
			h.AddReadinessCheck("redis", func(ctx context.Context) error {
				return redisClient.GetClient().Ping(ctx).Err()
			})
		})
		logger.Info("Redis connected, mutations are guarded across replicas")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var invalidationWorker *worker.InvalidationWorker
	if cfg.KafkaEnabled() {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicInvalidation)
		defer producer.Close()
		execOpts = append(execOpts, mutation.WithPublisher(broker.NewInvalidationPublisher(producer, replicaID)))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicInvalidation, "bookcourier-"+replicaID)
		invalidationWorker = worker.NewInvalidationWorker(consumer, resourceCache, replicaID)
		go func() {
			if err := invalidationWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
				logger.Error("Invalidation worker error", zap.Error(err))
			}
		}()
		logger.Info("Kafka invalidation bus enabled", zap.String("brokers", strings.Join(cfg.Kafka.Brokers, ",")))
	}

	exec := mutation.NewExecutor(resourceCache, execOpts...)
	manager := session.NewManager(cfg.Session.TTL, provider, public, resourceCache, sessions)

	janitor := worker.NewSessionJanitor(manager, cfg.Session.SweepInterval)
	go func() {
		if err := janitor.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Session janitor error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(manager, resourceCache, api.Services{
		Accounts:  service.NewAccountService(images),
		Catalog:   service.NewCatalogService(public, resourceCache),
		Books:     service.NewBookService(public, resourceCache, exec),
		Customer:  service.NewCustomerService(resourceCache, exec),
		Librarian: service.NewLibrarianService(resourceCache, exec, images),
		Admin:     service.NewAdminService(resourceCache, exec),
		Profile:   service.NewProfileService(exec, images),
	}, api.CookieConfig{
		Name:   cfg.Session.CookieName,
		MaxAge: cfg.Session.TTL,
		Secure: cfg.Server.Env == "production",
	})
	for _, register := range readiness {
		register(handler)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if invalidationWorker != nil {
		if err := invalidationWorker.Stop(); err != nil {
			logger.Warn("Error stopping invalidation worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
