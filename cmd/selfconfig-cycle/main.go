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

	"github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/dreschagin/self-configuration/internal/application/usecase"
	"github.com/dreschagin/self-configuration/internal/cycle"
	"github.com/dreschagin/self-configuration/internal/domain/repository"
	redisInfra "github.com/dreschagin/self-configuration/internal/infrastructure/cache/redis"
	"github.com/dreschagin/self-configuration/internal/infrastructure/collector"
	"github.com/dreschagin/self-configuration/internal/infrastructure/persistence/memory"
	"github.com/dreschagin/self-configuration/internal/infrastructure/persistence/postgres"
	"github.com/dreschagin/self-configuration/internal/infrastructure/vault"
	"github.com/dreschagin/self-configuration/pkg/config"
	"github.com/dreschagin/self-configuration/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	cycleCfg := cycle.Config{
		Port:      baseCfg.Cycle.Port,
		Interval:  baseCfg.Cycle.Interval,
		Timeout:   baseCfg.Cycle.Timeout,
		Retention: baseCfg.Cycle.Retention,
	}
	if err := cycleCfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid cycle config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info(
		"Starting analysis cycle",
		"interval", cycleCfg.Interval.String(),
		"port", cycleCfg.Port,
		"source", baseCfg.Source.Kind,
	)

	var profileRepository repository.ProfileRepository
	var pruner cycle.Pruner
	if baseCfg.Database.Enabled {
		db, err := sql.Open("postgres", baseCfg.Database.DSN())
		if err != nil {
			log.Error("Failed to connect to database", err)
			os.Exit(1)
		}
		defer db.Close()

		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(10 * time.Minute)

		if err := db.Ping(); err != nil {
			log.Error("Failed to ping database", err)
			os.Exit(1)
		}

		postgresRepo := postgres.NewPostgresProfileRepository(db)
		profileRepository = postgresRepo
		pruner = postgresRepo
	} else {
		profileRepository = memory.NewProfileRepository(100)
		log.Warn("Database is disabled, cycle history is kept in memory and never pruned")
	}

	source, err := collector.NewSource(collector.SourceOptions{
		Kind:         baseCfg.Source.Kind,
		SnapshotPath: baseCfg.Source.SnapshotPath,
		Seed:         baseCfg.Source.Seed,
		Logger:       log,
	})
	if err != nil {
		log.Error("Failed to initialize metrics source", err)
		os.Exit(1)
	}

	// С Redis API читает профиль, записанный циклом, из общего vault
	var profileVault port.Vault = vault.NewMemoryVault()
	if baseCfg.Redis.Enabled {
		redisClient, err := redisInfra.Connect(context.Background(), redisInfra.Options{
			Host:     baseCfg.Redis.Host,
			Port:     baseCfg.Redis.Port,
			Password: baseCfg.Redis.Password,
			DB:       baseCfg.Redis.DB,
			PoolSize: 2,
		})
		if err != nil {
			log.Error("Failed to connect to Redis", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		profileVault = vault.NewRedisVault(redisClient, baseCfg.Redis.VaultPrefix, baseCfg.Redis.VaultTTL)
	}

	analyzeUC := usecase.NewAnalyzePerformanceUseCase(usecase.AnalyzeDependencies{
		Source:     source,
		Repository: profileRepository,
		Vault:      profileVault,
	}, log)

	service := cycle.NewService(analyzeUC, pruner, cycleCfg.Retention)
	runner := cycle.NewRunner(service, log, cycleCfg.Interval, cycleCfg.Timeout)
	handler := cycle.NewHandler(runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := runner.RunOnce(ctx); err != nil {
		log.Error("Initial analysis cycle failed", err)
	}

	go runner.Start(ctx)

	server := &http.Server{
		Addr:         ":" + cycleCfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cycleCfg.Timeout + 5*time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		log.Info("Analysis cycle HTTP server started", "port", cycleCfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Analysis cycle HTTP server failed", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Analysis cycle HTTP server shutdown failed", err)
	}

	log.Info("Analysis cycle stopped")
}
