//go:build integration
// +build integration

package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dreschagin/self-configuration/internal/application/conversation"
	"github.com/dreschagin/self-configuration/internal/application/dto"
	"github.com/dreschagin/self-configuration/internal/application/optimization"
	"github.com/dreschagin/self-configuration/internal/application/usecase"
	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/service"
	"github.com/dreschagin/self-configuration/internal/infrastructure/collector"
	wsInfra "github.com/dreschagin/self-configuration/internal/infrastructure/notification/websocket"
	dynamodbRepo "github.com/dreschagin/self-configuration/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/self-configuration/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/self-configuration/internal/infrastructure/storage/s3"
	"github.com/dreschagin/self-configuration/internal/infrastructure/vault"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/handler"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/middleware"
	"github.com/dreschagin/self-configuration/pkg/config"
	"github.com/dreschagin/self-configuration/pkg/logger"
	_ "github.com/lib/pq"
)

const (
	integrationToken = "integration-token"
)

type integrationEnv struct {
	postgresDSN     string
	s3Endpoint      string
	s3Region        string
	s3AccessKey     string
	s3SecretKey     string
	s3Bucket        string
	s3UsePathStyle  bool
	dynamoEndpoint  string
	dynamoRegion    string
	dynamoAccessKey string
	dynamoSecretKey string
	dynamoTable     string
}

func loadIntegrationEnv() integrationEnv {
	return integrationEnv{
		postgresDSN:     getenv("INTEGRATION_POSTGRES_DSN", "host=localhost port=5432 user=postgres password=postgres dbname=selfconfig sslmode=disable"),
		s3Endpoint:      getenv("INTEGRATION_S3_ENDPOINT", "http://localhost:9000"),
		s3Region:        getenv("INTEGRATION_S3_REGION", "us-east-1"),
		s3AccessKey:     getenv("INTEGRATION_S3_ACCESS_KEY", "minioadmin"),
		s3SecretKey:     getenv("INTEGRATION_S3_SECRET_KEY", "minioadmin"),
		s3Bucket:        getenv("INTEGRATION_S3_BUCKET", "selfconfig-reports-e2e"),
		s3UsePathStyle:  true,
		dynamoEndpoint:  getenv("INTEGRATION_DYNAMO_ENDPOINT", "http://localhost:8000"),
		dynamoRegion:    getenv("INTEGRATION_DYNAMO_REGION", "us-east-1"),
		dynamoAccessKey: getenv("INTEGRATION_DYNAMO_ACCESS_KEY", "dynamo"),
		dynamoSecretKey: getenv("INTEGRATION_DYNAMO_SECRET_KEY", "dynamo"),
		dynamoTable:     getenv("INTEGRATION_DYNAMO_TABLE", "selfconfig_report_index_e2e"),
	}
}

func TestE2EIntegrationProfileHistory(t *testing.T) {
	env := loadIntegrationEnv()

	db := connectPostgres(t, env.postgresDSN)
	t.Cleanup(func() { _ = db.Close() })
	applyMigrations(t, db)
	cleanupProfiles(t, db)

	repo := postgres.NewPostgresProfileRepository(db)
	server := integrationServer(t, repo, nil, nil, db)
	client := server.Client()
	headers := map[string]string{"Authorization": "Bearer " + integrationToken}

	for i := 0; i < 2; i++ {
		resp := doRequest(t, client, http.MethodPost, server.URL+"/api/v1/analyze", nil, headers)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 for analyze, got %d", resp.StatusCode)
		}
	}

	recent, err := repo.FindRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("find recent profiles: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 stored profiles, got %d", len(recent))
	}

	optimizeResp := doRequest(t, client, http.MethodPost, server.URL+"/api/v1/optimize", nil, headers)
	var result struct {
		Profile *dto.ProfileDTO `json:"profile"`
		Applied []string        `json:"applied"`
	}
	decodeJSON(t, optimizeResp, &result)

	stored, err := repo.FindByID(context.Background(), result.Profile.ID)
	if err != nil {
		t.Fatalf("find optimized profile: %v", err)
	}
	if len(stored.AppliedOptimizations()) != len(result.Applied) {
		t.Fatalf("expected %d applied optimizations in postgres, got %d", len(result.Applied), len(stored.AppliedOptimizations()))
	}

	deleted, err := repo.DeleteOlderThan(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("delete older profiles: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted profiles, got %d", deleted)
	}

	readyResp := doRequest(t, client, http.MethodGet, server.URL+"/readyz", nil, nil)
	readyResp.Body.Close()
	if readyResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for readyz, got %d", readyResp.StatusCode)
	}
}

func TestE2EIntegrationReports(t *testing.T) {
	env := loadIntegrationEnv()
	ctx := context.Background()

	db := connectPostgres(t, env.postgresDSN)
	t.Cleanup(func() { _ = db.Close() })
	applyMigrations(t, db)
	cleanupProfiles(t, db)

	ensureS3Bucket(t, ctx, env)
	ensureDynamoTable(t, ctx, env)

	repo := postgres.NewPostgresProfileRepository(db)
	server := integrationServer(t, repo, buildReportArchive(t, env), buildReportIndex(t, env), db)
	client := server.Client()
	headers := map[string]string{"Authorization": "Bearer " + integrationToken}

	createResp := doRequest(t, client, http.MethodPost, server.URL+"/api/v1/reports", nil, headers)
	var report dto.ReportDTO
	decodeJSON(t, createResp, &report)
	if report.ReportID == "" || report.URL == "" {
		t.Fatalf("unexpected report: %+v", report)
	}

	reportResp, err := http.Get(report.URL)
	if err != nil {
		t.Fatalf("download report: %v", err)
	}
	body, _ := io.ReadAll(reportResp.Body)
	reportResp.Body.Close()
	if !strings.Contains(string(body), "# System health report") {
		t.Fatalf("unexpected report body: %s", body)
	}

	from := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	listResp := doRequest(t, client, http.MethodGet, server.URL+"/api/v1/reports?limit=10&from="+from, nil, headers)
	var list dto.ReportListDTO
	decodeJSON(t, listResp, &list)

	found := false
	for _, item := range list.Items {
		if item.ReportID == report.ReportID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected report %s in dynamodb index, got %+v", report.ReportID, list.Items)
	}
}

func integrationServer(
	t *testing.T,
	repo *postgres.PostgresProfileRepository,
	archive *s3storage.ReportArchive,
	index *dynamodbRepo.ReportIndex,
	db *sql.DB,
) *httptest.Server {
	t.Helper()
	log := logger.New("error")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := wsInfra.NewHub(log)
	go hub.Run(ctx)

	engine := service.NewRecommendationEngine()
	synthesizer := service.NewNarrativeSynthesizer(engine, nil, nil)

	analyzeUC := usecase.NewAnalyzePerformanceUseCase(usecase.AnalyzeDependencies{
		Source:     collector.NewStaticSource(entity.MustSnapshot(250, 2500, 0.85, 0.005, 0.92)),
		Engine:     engine,
		Repository: repo,
		Vault:      vault.NewMemoryVault(),
		Notifier:   hub,
	}, log)
	insightsUC := usecase.NewGetInsightsUseCase(analyzeUC, repo, synthesizer, nil, log)
	applier := optimization.NewApplier(nil, nil, log)
	applyUC := usecase.NewApplyOptimizationsUseCase(analyzeUC, applier, repo, synthesizer, nil, nil, log)
	chat := conversation.NewEngine(analyzeUC, applyUC, insightsUC, nil, applier.Tuning().Settings, log)

	authConfig := middleware.AuthConfig{Enabled: true, BearerToken: integrationToken}
	handlers := Handlers{
		Page:      handler.NewInsightsPageHandler(insightsUC, log),
		Profile:   handler.NewProfileAPIHandler(analyzeUC, insightsUC, log),
		Optimize:  handler.NewOptimizeAPIHandler(applyUC, engine, log),
		Chat:      handler.NewChatAPIHandler(chat, log),
		Auth:      handler.NewAuthAPIHandler(authConfig, chat, time.Hour, log),
		WebSocket: handler.NewWebSocketHandler(hub, chat, []string{"http://localhost:8080"}, authConfig, log),
	}
	if archive != nil && index != nil {
		reportConfig := usecase.ArchiveReportConfig{KeyPrefix: "reports-e2e", Retention: 24 * time.Hour}
		archiveUC := usecase.NewArchiveReportUseCase(insightsUC, repo, archive, index, nil, reportConfig, log)
		listUC := usecase.NewListReportsUseCase(archive, index, usecase.ListReportsConfig{
			KeyPrefix:                "reports-e2e",
			FallbackToArchiveOnError: true,
		}, log)
		handlers.Reports = handler.NewReportAPIHandler(archiveUC, listUC, 100, 100, log)
	}

	router := NewRouter(
		handlers,
		config.SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			AuthEnabled:    true,
			AuthToken:      integrationToken,
		},
		Options{Ready: db.PingContext},
		log,
	)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return server
}

func cleanupProfiles(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec("DELETE FROM optimization_profiles"); err != nil {
		t.Fatalf("cleanup profiles: %v", err)
	}
}

func buildReportArchive(t *testing.T, env integrationEnv) *s3storage.ReportArchive {
	t.Helper()
	archive, err := s3storage.NewReportArchive(context.Background(), s3storage.Config{
		Bucket:          env.s3Bucket,
		Region:          env.s3Region,
		Endpoint:        env.s3Endpoint,
		AccessKeyID:     env.s3AccessKey,
		SecretAccessKey: env.s3SecretKey,
		UsePathStyle:    env.s3UsePathStyle,
		URLMode:         s3storage.URLModePresigned,
		PresignedTTL:    2 * time.Minute,
	})
	if err != nil {
		t.Fatalf("init s3 report archive: %v", err)
	}
	return archive
}

func buildReportIndex(t *testing.T, env integrationEnv) *dynamodbRepo.ReportIndex {
	t.Helper()
	index, err := dynamodbRepo.NewReportIndex(context.Background(), dynamodbRepo.Config{
		TableName:       env.dynamoTable,
		Region:          env.dynamoRegion,
		Endpoint:        env.dynamoEndpoint,
		AccessKeyID:     env.dynamoAccessKey,
		SecretAccessKey: env.dynamoSecretKey,
		StrongReads:     true,
	})
	if err != nil {
		t.Fatalf("init dynamodb report index: %v", err)
	}
	return index
}

func connectPostgres(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	return db
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	paths := []string{
		filepath.Join("..", "..", "infrastructure", "persistence", "postgres", "migrations", "001_init.sql"),
		filepath.Join("..", "..", "infrastructure", "persistence", "postgres", "migrations", "002_indexes.sql"),
	}
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read migration %s: %v", path, err)
		}
		sqlText := stripGooseDirectives(string(raw))
		if strings.TrimSpace(sqlText) == "" {
			continue
		}
		if _, err := db.Exec(sqlText); err != nil {
			t.Fatalf("apply migration %s: %v", path, err)
		}
	}
}

func stripGooseDirectives(raw string) string {
	lines := strings.Split(raw, "\n")
	filtered := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-- +goose") {
			continue
		}
		filtered = append(filtered, line)
	}
	return strings.Join(filtered, "\n")
}

func ensureS3Bucket(t *testing.T, ctx context.Context, env integrationEnv) {
	t.Helper()
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(env.s3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			env.s3AccessKey,
			env.s3SecretKey,
			"",
		)),
	)
	if err != nil {
		t.Fatalf("load aws config: %v", err)
	}
	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		options.BaseEndpoint = &env.s3Endpoint
		options.UsePathStyle = env.s3UsePathStyle
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: &env.s3Bucket,
	})
	if err != nil && !isBucketExistsError(err) {
		t.Fatalf("create bucket: %v", err)
	}
}

func isBucketExistsError(err error) bool {
	var alreadyOwned *s3.BucketAlreadyOwnedByYou
	var alreadyExists *s3.BucketAlreadyExists
	if errors.As(err, &alreadyOwned) || errors.As(err, &alreadyExists) {
		return true
	}
	if strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") || strings.Contains(err.Error(), "BucketAlreadyExists") {
		return true
	}
	return false
}

func ensureDynamoTable(t *testing.T, ctx context.Context, env integrationEnv) {
	t.Helper()
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(env.dynamoRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			env.dynamoAccessKey,
			env.dynamoSecretKey,
			"",
		)),
	)
	if err != nil {
		t.Fatalf("load dynamo config: %v", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		options.BaseEndpoint = &env.dynamoEndpoint
	})

	_, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: &env.dynamoTable,
	})
	if err == nil {
		return
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: &env.dynamoTable,
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{AttributeName: stringPtr("PK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: stringPtr("SK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: stringPtr("GSI1PK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: stringPtr("GSI1SK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: stringPtr("PK"), KeyType: ddbtypes.KeyTypeHash},
			{AttributeName: stringPtr("SK"), KeyType: ddbtypes.KeyTypeRange},
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
		GlobalSecondaryIndexes: []ddbtypes.GlobalSecondaryIndex{
			{
				IndexName: stringPtr("GSI1"),
				KeySchema: []ddbtypes.KeySchemaElement{
					{AttributeName: stringPtr("GSI1PK"), KeyType: ddbtypes.KeyTypeHash},
					{AttributeName: stringPtr("GSI1SK"), KeyType: ddbtypes.KeyTypeRange},
				},
				Projection: &ddbtypes.Projection{ProjectionType: ddbtypes.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		t.Fatalf("create dynamodb table: %v", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: &env.dynamoTable}, 30*time.Second); err != nil {
		t.Fatalf("wait for table: %v", err)
	}
}

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func stringPtr(value string) *string {
	return &value
}
