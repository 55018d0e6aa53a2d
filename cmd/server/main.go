package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Infrastructure
	redisCache "github.com/dreschagin/analytics-validator/internal/infrastructure/cache/redis"
	natsInfra "github.com/dreschagin/analytics-validator/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/analytics-validator/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/analytics-validator/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/analytics-validator/internal/infrastructure/perfstats"
	"github.com/dreschagin/analytics-validator/internal/infrastructure/persistence/postgres"
	"github.com/dreschagin/analytics-validator/internal/infrastructure/tracker"

	// Application
	"github.com/dreschagin/analytics-validator/internal/application/port"
	"github.com/dreschagin/analytics-validator/internal/validation"

	// Interfaces
	httpInterface "github.com/dreschagin/analytics-validator/internal/interfaces/http"
	"github.com/dreschagin/analytics-validator/internal/interfaces/http/handler"
	"github.com/dreschagin/analytics-validator/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/analytics-validator/pkg/config"
	"github.com/dreschagin/analytics-validator/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting Analytics Validator")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Dependency Injection - Infrastructure Layer

	// Источники метрик
	sessionTracker := tracker.NewSessionTracker(log)

	perfCollector, err := perfstats.NewCollector()
	if err != nil {
		log.Fatal("Failed to initialize performance collector", err)
	}

	// Event sink (CloudWatch Logs)
	var eventSink port.ValidationEventSink
	var cwEventSink *cloudwatch.EventSink
	if cfg.CloudWatch.Enabled {
		cwEventSink, err = cloudwatch.NewEventSink(ctx, cloudwatch.EventSinkConfig{
			LogGroupName:    cfg.CloudWatch.LogGroupName,
			LogStreamName:   cfg.CloudWatch.LogStreamName,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			AutoCreate:      true,
		})
		if err != nil {
			log.Fatal("Failed to initialize CloudWatch event sink", err)
		}
		eventSink = cwEventSink
		log.Info("CloudWatch event sink enabled", "log_group", cfg.CloudWatch.LogGroupName)
	} else {
		log.Warn("CloudWatch is disabled, validation events stay local")
	}

	// 4. Движок валидации

	engine, err := validation.NewEngine(validation.Config{
		Interval:          cfg.Validation.Interval,
		VarianceThreshold: cfg.Validation.VarianceThreshold,
		SyncDelayMax:      cfg.Validation.SyncDelayMax,
		SyncSettleDelay:   cfg.Validation.SyncSettleDelay,
		MemoryLimitBytes:  uint64(cfg.Validation.MemoryLimitMB) * 1024 * 1024,
		ResponseTimeMaxMs: cfg.Validation.ResponseTimeMaxMs,
		SpikeSigma:        cfg.Validation.SpikeSigma,
		TrendWindow:       cfg.Validation.TrendWindow,
		HistoryLimit:      cfg.Validation.HistoryLimit,
		KnownUserTypes:    cfg.Validation.KnownUserTypes,
		ServiceName:       cfg.Validation.ServiceName,
	}, sessionTracker, perfCollector, eventSink, log)
	if err != nil {
		log.Fatal("Failed to create validation engine", err)
	}

	engine.Initialize(ctx)

	// 5. Слушатели результатов

	hub := wsInfra.NewHub(log)
	listeners := []validation.CycleListener{hub}

	if cfg.Redis.Enabled {
		cache, err := redisCache.NewRedisCache(redisCache.Options{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			TTL:          cfg.Redis.TTL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", err)
		}
		defer cache.Close()

		listeners = append(listeners, redisCache.NewResultStore(cache, log))
		log.Info("Redis result store enabled")
	}

	if cfg.NATS.Enabled {
		natsPublisher, err := natsInfra.NewNATSPublisher(natsInfra.Config{
			URL:     cfg.NATS.URL,
			Stream:  cfg.NATS.Stream,
			Subject: cfg.NATS.Subject,
		}, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", err)
		}
		defer natsPublisher.Close()

		listeners = append(listeners, natsInfra.NewResultPublisher(natsPublisher, cfg.NATS.Subject, log))
		log.Info("NATS result publisher enabled", "subject", cfg.NATS.Subject)
	}

	if cfg.Database.Enabled {
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			log.Fatal("Failed to connect to database", err)
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

		if err := db.Ping(); err != nil {
			log.Fatal("Failed to ping database", err)
		}

		archive, err := postgres.NewResultArchive(ctx, db)
		if err != nil {
			log.Fatal("Failed to initialize result archive", err)
		}

		listeners = append(listeners, postgres.NewArchiveListener(archive, log))
		log.Info("PostgreSQL result archive enabled")
	}

	var scorePublisher *cloudwatch.ScorePublisher
	if cfg.CloudWatch.Enabled {
		scorePublisher, err = cloudwatch.NewScorePublisher(ctx, cloudwatch.ScorePublisherConfig{
			Namespace:       cfg.CloudWatch.Namespace,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			DefaultDimensions: map[string]string{
				"Service": cfg.Validation.ServiceName,
			},
		})
		if err != nil {
			log.Fatal("Failed to initialize CloudWatch score publisher", err)
		}

		listeners = append(listeners, scorePublisher)
		log.Info("CloudWatch score publisher enabled", "namespace", cfg.CloudWatch.Namespace)
	}

	runner := validation.NewRunner(engine, log, listeners...)

	// 6. Dependency Injection - Interfaces Layer (HTTP Handlers)

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}

	validationAPIHandler := handler.NewValidationAPIHandler(engine, runner, log)
	sessionAPIHandler := handler.NewSessionAPIHandler(sessionTracker, log)
	websocketHandler := handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, log)

	router := httpInterface.NewRouter(
		validationAPIHandler,
		sessionAPIHandler,
		websocketHandler,
		runner,
		cfg.Security,
		cfg.Ingest,
		perfCollector,
		log,
	)

	// 7. Запускаем фоновые процессы

	go hub.Run()

	go runner.Start(ctx)
	log.Info("Validation runner started", "interval", cfg.Validation.Interval.String())

	// 8. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Запускаем сервер в отдельной goroutine
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 9. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	// Останавливаем цикл валидации
	cancel()

	// Даем время на завершение текущих операций
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Сбрасываем буферы observability перед выходом
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()

	if scorePublisher != nil {
		if err := scorePublisher.Close(flushCtx); err != nil {
			log.Error("Score publisher close error", err)
		}
	}
	if cwEventSink != nil {
		if err := cwEventSink.Close(flushCtx); err != nil {
			log.Error("Event sink close error", err)
		}
	}

	engine.Dispose()

	log.Info("Server stopped gracefully")
}
