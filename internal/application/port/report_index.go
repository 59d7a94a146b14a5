package port

import (
	"context"
	"time"
)

// ReportMetadata представляет метаданные архивного отчета.
type ReportMetadata struct {
	ReportID        string
	ProfileID       string
	S3Key           string
	URL             string
	ContentType     string
	SizeBytes       int64
	HealthScore     int
	HealthBand      string
	Recommendations int
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// ReportListQuery определяет параметры выборки списка отчетов.
type ReportListQuery struct {
	Limit  int
	Cursor string
	From   time.Time
	To     time.Time
}

// ReportListPage содержит результат выборки и курсор следующей страницы.
type ReportListPage struct {
	Items      []ReportMetadata
	NextCursor string
}

// ReportIndex определяет интерфейс хранения метаданных отчетов.
type ReportIndex interface {
	Put(ctx context.Context, record ReportMetadata) error
	List(ctx context.Context, query ReportListQuery) (ReportListPage, error)
}
