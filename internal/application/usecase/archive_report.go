package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/dto"
	"github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/repository"
	"github.com/dreschagin/self-configuration/internal/domain/service"
	"github.com/dreschagin/self-configuration/pkg/logger"
	"github.com/google/uuid"
)

const reportContentType = "text/markdown; charset=utf-8"

// ErrArchiveNotConfigured возвращается, когда архив отчетов не подключен
var ErrArchiveNotConfigured = errors.New("report archive is not configured")

type ArchiveReportConfig struct {
	KeyPrefix     string
	HistoryWindow int
	Retention     time.Duration
}

// ArchiveReportUseCase формирует markdown-отчет по последнему профилю и складывает его в архив
type ArchiveReportUseCase struct {
	insights   *GetInsightsUseCase
	repository repository.ProfileRepository
	aggregator *service.ProfileAggregator
	engine     *service.RecommendationEngine
	archive    port.ReportArchive
	index      port.ReportIndex
	events     port.EventPublisher
	config     ArchiveReportConfig
	logger     *logger.Logger
}

func NewArchiveReportUseCase(
	insights *GetInsightsUseCase,
	repository repository.ProfileRepository,
	archive port.ReportArchive,
	index port.ReportIndex,
	events port.EventPublisher,
	config ArchiveReportConfig,
	log *logger.Logger,
) *ArchiveReportUseCase {
	if config.HistoryWindow <= 0 {
		config.HistoryWindow = 24
	}
	return &ArchiveReportUseCase{
		insights:   insights,
		repository: repository,
		aggregator: service.NewProfileAggregator(),
		engine:     service.NewRecommendationEngine(),
		archive:    archive,
		index:      index,
		events:     events,
		config:     config,
		logger:     log,
	}
}

func (uc *ArchiveReportUseCase) Execute(ctx context.Context) (*dto.ReportDTO, error) {
	if uc.archive == nil {
		return nil, ErrArchiveNotConfigured
	}

	profile, err := uc.insights.LatestProfile(ctx)
	if err != nil {
		return nil, err
	}

	insight, err := uc.insights.ForProfile(ctx, profile)
	if err != nil {
		return nil, err
	}

	history := uc.loadHistory(ctx, profile)
	body := uc.render(insight, history)

	createdAt := time.Now().UTC()
	reportID := uuid.New().String()
	key := uc.buildS3Key(createdAt, reportID)

	url, err := uc.archive.PutObject(ctx, key, reportContentType, []byte(body))
	if err != nil {
		uc.logger.Error("Failed to upload report", err, "report_id", reportID)
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}

	if uc.index != nil {
		record := port.ReportMetadata{
			ReportID:        reportID,
			ProfileID:       profile.ID(),
			S3Key:           key,
			URL:             url,
			ContentType:     reportContentType,
			SizeBytes:       int64(len(body)),
			HealthScore:     insight.HealthScore,
			HealthBand:      insight.HealthBand,
			Recommendations: len(insight.Recommendations),
			CreatedAt:       createdAt,
		}
		if uc.config.Retention > 0 {
			record.ExpiresAt = createdAt.Add(uc.config.Retention)
		}
		if err := uc.index.Put(ctx, record); err != nil {
			// Отчет уже в архиве и доступен через fallback-листинг
			uc.logger.Warn("Failed to index report", "report_id", reportID, "error", err.Error())
		}
	}

	if uc.events != nil {
		event := dto.ReportArchivedEvent{ReportID: reportID, ProfileID: profile.ID(), S3Key: key, Timestamp: createdAt}
		if err := uc.events.PublishEvent(ctx, port.SubjectReportArchived, event); err != nil {
			uc.logger.Warn("Failed to publish report event", "report_id", reportID, "error", err.Error())
		}
	}

	uc.logger.Info("Report archived", "report_id", reportID, "key", key)

	return &dto.ReportDTO{
		ReportID:    reportID,
		ProfileID:   profile.ID(),
		S3Key:       key,
		URL:         url,
		HealthScore: insight.HealthScore,
		HealthBand:  insight.HealthBand,
		CreatedAt:   createdAt,
	}, nil
}

func (uc *ArchiveReportUseCase) loadHistory(ctx context.Context, latest *entity.OptimizationProfile) []*entity.OptimizationProfile {
	if uc.repository == nil {
		return []*entity.OptimizationProfile{latest}
	}

	profiles, err := uc.repository.FindRecent(ctx, uc.config.HistoryWindow)
	if err != nil || len(profiles) == 0 {
		if err != nil {
			uc.logger.Warn("Failed to load profile history", "error", err.Error())
		}
		return []*entity.OptimizationProfile{latest}
	}
	return profiles
}

func (uc *ArchiveReportUseCase) render(insight *dto.InsightDTO, history []*entity.OptimizationProfile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# System health report\n\n")
	fmt.Fprintf(&b, "- Profile: `%s`\n", insight.ProfileID)
	fmt.Fprintf(&b, "- Generated: %s\n", insight.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Health score: %s %d/100 (%s)\n\n", insight.Emoji, insight.HealthScore, insight.HealthBand)

	b.WriteString("## Summary\n\n")
	b.WriteString(insight.Narrative)
	b.WriteString("\n\n")

	if len(insight.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		for i, rec := range insight.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
		b.WriteString("\n")
	}

	summaries, err := uc.aggregator.Summarize(uc.aggregator.SortByTime(history, false))
	if err != nil {
		return b.String()
	}
	breaches := uc.aggregator.BreachCounts(uc.engine, history)

	fmt.Fprintf(&b, "## History (last %d analyses)\n\n", len(history))
	b.WriteString("| metric | avg | min | max | p95 | breaches |\n|---|---|---|---|---|---|\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "| %s | %.3f | %.3f | %.3f | %.3f | %d |\n", s.Metric, s.Average, s.Min, s.Max, s.P95, breaches[s.Metric])
	}

	return b.String()
}

func (uc *ArchiveReportUseCase) buildS3Key(createdAt time.Time, reportID string) string {
	prefix := strings.Trim(uc.config.KeyPrefix, "/")
	if prefix == "" {
		prefix = "reports"
	}

	timestamp := createdAt.Format("20060102T150405Z")
	datePrefix := createdAt.Format("2006/01/02")

	return fmt.Sprintf("%s/%s/%s_%s.md", prefix, datePrefix, timestamp, reportID)
}
