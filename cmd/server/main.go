package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpdesk_chat/internal/config"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/internal/handler"
	"helpdesk_chat/internal/middleware"
	"helpdesk_chat/internal/presence"
	"helpdesk_chat/internal/repository"
	"helpdesk_chat/internal/service"
	"helpdesk_chat/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	// Подключение к Redis (необязательно)
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			appLogger.Fatal("Failed to connect to Redis", "error", err)
		}
		appLogger.Info("Redis connection established")
	}

	checks := map[string]handler.HealthCheck{}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Хранилище
	var repos *repository.Repositories
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := repository.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			appLogger.Fatal("Failed to open sqlite database", "error", err)
		}
		defer db.Close()
		appLogger.Info("SQLite database opened", "path", cfg.Database.SQLitePath)

		checks["database"] = func(ctx context.Context) error { return db.PingContext(ctx) }
		repos = repository.NewSQLiteRepositories(db, rdb, cfg.Chat.DirectoryCacheTTL, appLogger)

	default:
		dbPool, err := openPostgres(cfg.Database)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", "error", err)
		}
		defer dbPool.Close()
		appLogger.Info("Database connection established")

		if err := repository.MigratePostgres(context.Background(), dbPool); err != nil {
			appLogger.Fatal("Failed to migrate database", "error", err)
		}

		checks["database"] = func(ctx context.Context) error { return dbPool.Ping(ctx) }
		repos = repository.NewPostgresRepositories(dbPool, rdb, cfg.Chat.DirectoryCacheTTL, appLogger)
	}

	// Реестр присутствия живет столько же, сколько процесс
	registry := presence.NewRegistry()

	// Инициализация сервисов
	services := service.NewServices(repos, registry, cfg, appLogger)

	// Инициализация middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, cfg.Chat.HTTPRateLimit, cfg.Chat.HTTPRateWindow, appLogger)

	// Инициализация handlers
	handlers := handler.NewHandlers(services, registry, checks, cfg, appLogger)

	// Настройка роутера
	router := handler.NewRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	// Запуск HTTP сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown не ждет захваченные websocket-соединения: закрываем их сами
	for _, role := range []domain.Role{domain.RoleRequester, domain.RoleResponder} {
		for _, member := range registry.Members(role) {
			member.Conn.Close()
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func openPostgres(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, err
	}

	// Проверка подключения к БД
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
