package usecase

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/dto"
	"github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

type ListReportsCommand struct {
	Limit  int
	Cursor string
	From   time.Time
	To     time.Time
}

type ListReportsConfig struct {
	KeyPrefix                string
	DefaultLimit             int
	MaxLimit                 int
	FallbackToArchiveOnError bool
}

// ListReportsUseCase возвращает архивные отчеты: из индекса, либо листингом архива
type ListReportsUseCase struct {
	archive port.ReportArchive
	index   port.ReportIndex
	config  ListReportsConfig
	logger  *logger.Logger
}

func NewListReportsUseCase(
	archive port.ReportArchive,
	index port.ReportIndex,
	config ListReportsConfig,
	log *logger.Logger,
) *ListReportsUseCase {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 24
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = 100
	}
	return &ListReportsUseCase{
		archive: archive,
		index:   index,
		config:  config,
		logger:  log,
	}
}

func (uc *ListReportsUseCase) Execute(ctx context.Context, cmd ListReportsCommand) (*dto.ReportListDTO, error) {
	limit := cmd.Limit
	if limit <= 0 {
		limit = uc.config.DefaultLimit
	}
	if limit > uc.config.MaxLimit {
		limit = uc.config.MaxLimit
	}

	if !cmd.From.IsZero() && !cmd.To.IsZero() && cmd.From.After(cmd.To) {
		return nil, fmt.Errorf("from must be less than or equal to to")
	}

	query := port.ReportListQuery{
		Limit:  limit,
		Cursor: strings.TrimSpace(cmd.Cursor),
		From:   cmd.From.UTC(),
		To:     cmd.To.UTC(),
	}

	if uc.index != nil {
		page, err := uc.index.List(ctx, query)
		if err == nil {
			return uc.mapIndexPage(ctx, page), nil
		}

		if !uc.config.FallbackToArchiveOnError {
			return nil, fmt.Errorf("failed to list reports via index: %w", err)
		}

		if uc.logger != nil {
			uc.logger.Warn("Report index is unavailable, using archive fallback", "error", err.Error())
		}
	}

	return uc.listFromArchive(ctx, query)
}

func (uc *ListReportsUseCase) mapIndexPage(ctx context.Context, page port.ReportListPage) *dto.ReportListDTO {
	items := make([]dto.ReportDTO, 0, len(page.Items))
	for _, record := range page.Items {
		url := record.URL
		if uc.archive != nil {
			if generatedURL, err := uc.archive.GetObjectURL(ctx, record.S3Key); err == nil {
				url = generatedURL
			}
		}

		items = append(items, dto.ReportDTO{
			ReportID:    record.ReportID,
			ProfileID:   record.ProfileID,
			S3Key:       record.S3Key,
			URL:         url,
			HealthScore: record.HealthScore,
			HealthBand:  record.HealthBand,
			CreatedAt:   record.CreatedAt.UTC(),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	return &dto.ReportListDTO{Items: items, NextCursor: page.NextCursor}
}

func (uc *ListReportsUseCase) listFromArchive(ctx context.Context, query port.ReportListQuery) (*dto.ReportListDTO, error) {
	if uc.archive == nil {
		return nil, ErrArchiveNotConfigured
	}
	if query.Cursor != "" {
		return nil, fmt.Errorf("cursor pagination requires report index")
	}

	prefix := strings.Trim(uc.config.KeyPrefix, "/")
	if prefix == "" {
		prefix = "reports"
	}

	objects, err := uc.archive.ListObjects(ctx, prefix+"/", query.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	items := make([]dto.ReportDTO, 0, len(objects))
	for _, object := range objects {
		createdAt, reportID := parseReportKey(object.Key)
		if createdAt.IsZero() {
			createdAt = object.LastModified.UTC()
		}
		if !query.From.IsZero() && createdAt.Before(query.From) {
			continue
		}
		if !query.To.IsZero() && createdAt.After(query.To) {
			continue
		}

		items = append(items, dto.ReportDTO{
			ReportID:  reportID,
			S3Key:     object.Key,
			URL:       object.URL,
			CreatedAt: createdAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if len(items) > query.Limit {
		items = items[:query.Limit]
	}

	return &dto.ReportListDTO{Items: items}, nil
}

// parseReportKey разбирает имя объекта вида 20060102T150405Z_<report-id>.md
func parseReportKey(key string) (time.Time, string) {
	filename := path.Base(strings.TrimSpace(key))
	if filename == "" || filename == "." || !strings.HasSuffix(filename, ".md") {
		return time.Time{}, ""
	}

	withoutExt := strings.TrimSuffix(filename, ".md")
	underscore := strings.IndexRune(withoutExt, '_')
	if underscore <= 0 || underscore == len(withoutExt)-1 {
		return time.Time{}, ""
	}

	createdAt, err := time.Parse("20060102T150405Z", withoutExt[:underscore])
	if err != nil {
		return time.Time{}, withoutExt[underscore+1:]
	}
	return createdAt.UTC(), withoutExt[underscore+1:]
}
