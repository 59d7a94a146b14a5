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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Application
	"github.com/dreschagin/self-configuration/internal/application/conversation"
	"github.com/dreschagin/self-configuration/internal/application/optimization"
	applicationPort "github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/dreschagin/self-configuration/internal/application/usecase"

	// Domain
	"github.com/dreschagin/self-configuration/internal/domain/repository"
	"github.com/dreschagin/self-configuration/internal/domain/service"

	// Infrastructure
	memoryCache "github.com/dreschagin/self-configuration/internal/infrastructure/cache/memory"
	redisInfra "github.com/dreschagin/self-configuration/internal/infrastructure/cache/redis"
	"github.com/dreschagin/self-configuration/internal/infrastructure/collector"
	natsInfra "github.com/dreschagin/self-configuration/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/self-configuration/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/self-configuration/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/self-configuration/internal/infrastructure/observability/metrics"
	dynamodbRepo "github.com/dreschagin/self-configuration/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/self-configuration/internal/infrastructure/persistence/memory"
	"github.com/dreschagin/self-configuration/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/self-configuration/internal/infrastructure/storage/s3"
	"github.com/dreschagin/self-configuration/internal/infrastructure/telemetry"
	"github.com/dreschagin/self-configuration/internal/infrastructure/vault"

	// Interfaces
	httpInterface "github.com/dreschagin/self-configuration/internal/interfaces/http"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/handler"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/self-configuration/pkg/config"
	"github.com/dreschagin/self-configuration/pkg/logger"

	_ "github.com/lib/pq"
)

const memoryProfileCapacity = 500

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting Self-Configuration Assistant", "source", cfg.Source.Kind)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. CloudWatch Logs подключаем первым, чтобы не терять записи старта
	var logsPublisher applicationPort.LogPublisher
	if cfg.CloudWatch.LogsEnabled {
		publisherImpl, initErr := cloudwatch.NewLogsPublisher(ctx, cloudwatch.LogsPublisherConfig{
			LogGroupName:    cfg.CloudWatch.LogGroupName,
			LogStreamName:   cfg.CloudWatch.LogStreamName,
			Service:         "selfconfig-api",
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			BufferSize:      cfg.CloudWatch.LogsBufferSize,
			FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
			AutoCreate:      true,
		})
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", initErr)
			os.Exit(1)
		}
		logsPublisher = publisherImpl
		log.SetLogPublisher(logsPublisher)
		log.Info("CloudWatch logs publisher initialized")
	} else {
		log.Warn("CloudWatch logs publishing is disabled")
	}

	// 4. Хранилище профилей: Postgres или память процесса
	var db *sql.DB
	var profileRepository repository.ProfileRepository
	if cfg.Database.Enabled {
		db, err = sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			log.Error("Failed to connect to database", err)
			os.Exit(1)
		}
		defer db.Close()

		// Настраиваем connection pool
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

		if err := db.PingContext(ctx); err != nil {
			log.Error("Failed to ping database", err)
			os.Exit(1)
		}
		profileRepository = postgres.NewPostgresProfileRepository(db)
		log.Info("Database connected successfully")
	} else {
		profileRepository = memory.NewProfileRepository(memoryProfileCapacity)
		log.Warn("Database is disabled, profiles are kept in memory")
	}

	// 5. Vault и кеш рассказов: Redis или память процесса
	var secureVault applicationPort.Vault = vault.NewMemoryVault()
	var insightsCache applicationPort.Cache
	var cacheHits applicationPort.HitCounter
	if cfg.Redis.Enabled {
		redisClient, initErr := redisInfra.Connect(ctx, redisInfra.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if initErr != nil {
			log.Error("Failed to connect to Redis", initErr)
			os.Exit(1)
		}
		defer redisClient.Close()

		secureVault = vault.NewRedisVault(redisClient, cfg.Redis.VaultPrefix, cfg.Redis.VaultTTL)
		redisCache := redisInfra.NewRedisCache(redisClient, cfg.Redis.CachePrefix, cfg.Redis.CacheTTL)
		insightsCache, cacheHits = redisCache, redisCache
		log.Info("Redis vault and insights cache initialized")
	} else {
		localCache := memoryCache.NewCache(cfg.Redis.CacheTTL)
		insightsCache, cacheHits = localCache, localCache
		log.Warn("Redis is disabled, using in-memory vault and insights cache")
	}

	// 6. Телеметрия и источник метрик
	recorder := telemetry.NewRecorder(0)
	metricsSource, err := collector.NewSource(collector.SourceOptions{
		Kind:         cfg.Source.Kind,
		SnapshotPath: cfg.Source.SnapshotPath,
		Seed:         cfg.Source.Seed,
		Recorder:     recorder,
		Hits:         collector.CombineHits(secureVault, cacheHits),
		Logger:       log,
	})
	if err != nil {
		log.Error("Failed to initialize metrics source", err)
		os.Exit(1)
	}

	// 7. CloudWatch Metrics
	var metricsPublisher applicationPort.MetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		publisherImpl, initErr := cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			Namespace:         cfg.CloudWatch.MetricsNamespace,
			Region:            cfg.CloudWatch.Region,
			Endpoint:          cfg.CloudWatch.Endpoint,
			AccessKeyID:       cfg.CloudWatch.AccessKeyID,
			SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
			DefaultDimensions: cfg.CloudWatch.MetricsDimensions,
			BufferSize:        cfg.CloudWatch.MetricsBufferSize,
			FlushInterval:     cfg.CloudWatch.MetricsFlushInterval,
			StorageResolution: cfg.CloudWatch.MetricsStorageResolution,
		}, log)
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", initErr)
			os.Exit(1)
		}
		metricsPublisher = publisherImpl
		log.Info("CloudWatch metrics publisher initialized")
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	// 8. NATS Event Publisher
	var eventPublisher applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisherImpl, initErr := natsInfra.NewNATSPublisher(natsInfra.Options{
			URL:          cfg.NATS.URL,
			Stream:       cfg.NATS.Stream,
			Subjects:     []string{"selfconfig.>"},
			FlushTimeout: cfg.NATS.FlushTimeout,
		}, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			eventPublisher = publisherImpl
			defer eventPublisher.Close()
			log.Info("NATS event publisher initialized", "url", cfg.NATS.URL)
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	// 9. Prometheus
	var promMetrics *metrics.Metrics
	var observer applicationPort.ProfileObserver
	if cfg.Server.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		promMetrics = metrics.New(registry)
		observer = promMetrics
	}

	// 10. Report archive (S3) и индекс (DynamoDB)
	var reportArchive applicationPort.ReportArchive
	if cfg.S3.Enabled {
		archiveImpl, initErr := s3storage.NewReportArchive(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if initErr != nil {
			log.Error("Failed to initialize report archive", initErr)
			os.Exit(1)
		}
		reportArchive = archiveImpl
	} else {
		log.Warn("S3 report archive is disabled")
	}

	var reportIndex applicationPort.ReportIndex
	if cfg.Dynamo.Enabled {
		indexImpl, initErr := dynamodbRepo.NewReportIndex(ctx, dynamodbRepo.Config{
			TableName:       cfg.Dynamo.TableReportIndex,
			Region:          cfg.Dynamo.Region,
			Endpoint:        cfg.Dynamo.Endpoint,
			AccessKeyID:     cfg.Dynamo.AccessKeyID,
			SecretAccessKey: cfg.Dynamo.SecretAccessKey,
			StrongReads:     cfg.Dynamo.StrongReads,
		})
		if initErr != nil {
			log.Error("Failed to initialize report index", initErr)
			os.Exit(1)
		}
		reportIndex = indexImpl
		log.Info("Report index initialized", "provider", "dynamodb")
	} else {
		log.Warn("DynamoDB report index is disabled, using S3 listing mode")
	}

	// 11. WebSocket Hub
	hub := wsInfra.NewHub(log)

	// 12. Dependency Injection - Application Layer (Use Cases)
	engine := service.NewRecommendationEngine()
	synthesizer := service.NewNarrativeSynthesizer(engine, nil, nil)
	applier := optimization.NewApplier(optimization.DefaultRegistry(), nil, log)

	analyzeUC := usecase.NewAnalyzePerformanceUseCase(usecase.AnalyzeDependencies{
		Source:     metricsSource,
		Engine:     engine,
		Repository: profileRepository,
		Vault:      secureVault,
		Events:     eventPublisher,   // Can be nil if NATS disabled
		Metrics:    metricsPublisher, // Can be nil if CloudWatch disabled
		Observer:   observer,
		Notifier:   hub,
	}, log)
	insightsUC := usecase.NewGetInsightsUseCase(analyzeUC, profileRepository, synthesizer, insightsCache, log)
	applyUC := usecase.NewApplyOptimizationsUseCase(analyzeUC, applier, profileRepository, synthesizer, eventPublisher, observer, log)
	archiveUC := usecase.NewArchiveReportUseCase(insightsUC, profileRepository, reportArchive, reportIndex, eventPublisher,
		usecase.ArchiveReportConfig{
			KeyPrefix:     cfg.Reports.KeyPrefix,
			HistoryWindow: cfg.Reports.HistoryWindow,
			Retention:     cfg.Reports.Retention,
		}, log)
	listReportsUC := usecase.NewListReportsUseCase(reportArchive, reportIndex, usecase.ListReportsConfig{
		KeyPrefix:                cfg.Reports.KeyPrefix,
		DefaultLimit:             cfg.Reports.DefaultLimit,
		MaxLimit:                 cfg.Reports.MaxLimit,
		FallbackToArchiveOnError: cfg.Reports.FallbackToArchive,
	}, log)

	chatEngine := conversation.NewEngine(analyzeUC, applyUC, insightsUC, recorder, applier.Tuning().Settings, log)

	// 13. Dependency Injection - Interfaces Layer (HTTP Handlers)
	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}

	handlers := httpInterface.Handlers{
		Page:      handler.NewInsightsPageHandler(insightsUC, log),
		Profile:   handler.NewProfileAPIHandler(analyzeUC, insightsUC, log),
		Optimize:  handler.NewOptimizeAPIHandler(applyUC, engine, log),
		Chat:      handler.NewChatAPIHandler(chatEngine, log),
		Auth:      handler.NewAuthAPIHandler(authConfig, chatEngine, cfg.Security.SessionMaxAge, log),
		WebSocket: handler.NewWebSocketHandler(hub, chatEngine, cfg.Security.AllowedOrigins, authConfig, log),
	}
	if reportArchive != nil {
		handlers.Reports = handler.NewReportAPIHandler(archiveUC, listReportsUC, cfg.Reports.MaxLimit, cfg.Reports.ArchivePerMinute, log)
	}
	handlers.Vault = handler.NewVaultAPIHandler(usecase.NewManageVaultUseCase(secureVault, insightsCache, log), log)
	if cfg.Cycle.BaseURL != "" {
		handlers.Cycle = handler.NewCycleAPIHandler(cfg.Cycle.BaseURL, cfg.Cycle.RequestTimeout, log)
	}

	options := httpInterface.Options{
		Metrics:     promMetrics,
		Recorder:    recorder,
		Compression: cfg.Server.Compression,
	}
	if cfg.Security.RateLimitRPS > 0 {
		options.RateLimiter = middleware.NewIPRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
	}
	if db != nil {
		options.Ready = db.PingContext
	}

	router := httpInterface.NewRouter(handlers, cfg.Security, options, log)

	// 14. Запускаем фоновые процессы

	// Запускаем WebSocket hub
	go hub.Run(ctx)

	// Периодический анализ рассылает профиль подключенным клиентам
	go func() {
		ticker := time.NewTicker(cfg.Source.AnalysisInterval)
		defer ticker.Stop()

		log.Info("Periodic analysis started", "interval", cfg.Source.AnalysisInterval.String())

		for {
			select {
			case <-ticker.C:
				if _, err := analyzeUC.Execute(ctx); err != nil {
					log.Error("Periodic analysis failed", err)
				}
			case <-ctx.Done():
				log.Info("Periodic analysis stopped")
				return
			}
		}
	}()

	// 15. Настраиваем HTTP сервер
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

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		log.Info("Assistant available at http://localhost:" + cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 16. Ожидаем сигнал для graceful shutdown
	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	// Останавливаем hub и периодический анализ
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Flush CloudWatch buffers before exit
	if metricsPublisher != nil {
		log.Info("Flushing CloudWatch metrics buffer...")
		if err := metricsPublisher.Flush(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	log.Info("Server stopped gracefully")

	if logsPublisher != nil {
		if err := logsPublisher.Flush(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush CloudWatch logs: %v\n", err)
		}
	}
}
