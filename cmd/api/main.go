package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shelfsync-api/internal/cache"
	"shelfsync-api/internal/config"
	"shelfsync-api/internal/handler"
	"shelfsync-api/internal/platform"
	"shelfsync-api/internal/repository"
	"shelfsync-api/internal/router"
	"shelfsync-api/internal/service"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting shelfsync-api...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// State database (SQLite): cached tokens, store config, sync queue
	stateDB, err := repository.OpenStateDB(cfg.StateDB.Path)
	if err != nil {
		log.Fatalf("Failed to initialize state database: %v", err)
	}
	defer stateDB.Close()

	tokenRepo := repository.NewSQLiteTokenRepository(stateDB)
	configRepo := repository.NewSQLiteConfigRepository(stateDB)
	queueRepo := repository.NewSQLiteQueueRepository(stateDB)

	// Admin application database (MySQL): products, requests, users
	appDB, err := sql.Open("mysql", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open MySQL: %v", err)
	}
	appDB.SetMaxOpenConns(10)
	appDB.SetMaxIdleConns(5)
	appDB.SetConnMaxLifetime(5 * time.Minute)
	defer appDB.Close()

	if err := appDB.Ping(); err != nil {
		log.Printf("Warning: MySQL ping failed: %v (continuing, will retry per query)", err)
	} else {
		log.Println("MySQL repository initialized")
	}

	productRepo := repository.NewMySQLProductRepository(appDB)
	requestRepo := repository.NewMySQLRequestRepository(appDB)
	accountRepo := repository.NewMySQLAccountRepository(appDB)

	// Cache: Redis when configured and reachable, memory otherwise
	var appCache cache.Cache
	var redisClient *redis.Client
	if cfg.Cache.Type == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed: %v, falling back to memory cache", err)
			redisClient = nil
		} else {
			appCache = cache.NewRedisCache(redisClient)
			log.Println("Redis cache initialized")
		}
		cancel()
	}
	if appCache == nil {
		memCache := cache.NewMemoryCache()
		defer memCache.Close()
		appCache = memCache
		log.Println("Memory cache initialized")
	}

	// Platform client and the reliability services
	platformClient := platform.NewClient(cfg.Platform)
	tokenManager := service.NewTokenManager(tokenRepo, platformClient, cfg.Platform)
	platformClient.SetTokenSource(tokenManager)

	storeResolver := service.NewStoreResolver(configRepo, platformClient, appCache, cfg.Cache.TTL)
	queueService := service.NewQueueService(queueRepo, productRepo, tokenManager, storeResolver, platformClient, cfg.Queue)
	ingestor := service.NewWebhookIngestor(productRepo, requestRepo, accountRepo,
		platformClient, storeResolver, appCache, cfg.Webhook.DedupWindow)

	// Built-in queue trigger (optional; external cron otherwise)
	var scheduler *service.QueueScheduler
	if cfg.Queue.SchedulerInterval > 0 {
		scheduler = service.NewQueueScheduler(queueService, cfg.Queue.SchedulerInterval, cfg.Queue.BatchLimit)
		scheduler.Start()
	}

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version, map[string]handler.CheckFunc{
		"state_db": func(ctx context.Context) error { return stateDB.PingContext(ctx) },
		"mysql":    func(ctx context.Context) error { return appDB.PingContext(ctx) },
		"redis": func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Ping(ctx).Err()
		},
	})
	webhookHandler := handler.NewWebhookHandler(ingestor)
	queueHandler := handler.NewQueueHandler(queueService)
	adminHandler := handler.NewAdminHandler(queueService)

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		WebhookHandler: webhookHandler,
		QueueHandler:   queueHandler,
		AdminHandler:   adminHandler,
		TriggerKey:     cfg.Queue.TriggerKey,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
