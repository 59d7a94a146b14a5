package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

func defaultListConfig(fallback bool) ListReportsConfig {
	return ListReportsConfig{
		KeyPrefix:                "reports",
		DefaultLimit:             24,
		MaxLimit:                 100,
		FallbackToArchiveOnError: fallback,
	}
}

func TestListReportsUseCase_FromArchive(t *testing.T) {
	archive := &mockReportArchive{
		objectsByPrefix: map[string][]port.ReportObject{
			"reports/": {
				{
					Key:          "reports/2026/02/08/20260208T090400Z_r-1.md",
					URL:          "https://example.com/1",
					LastModified: time.Date(2026, 2, 8, 9, 4, 1, 0, time.UTC),
				},
				{
					Key:          "reports/2026/02/08/20260208T090500Z_r-2.md",
					URL:          "https://example.com/2",
					LastModified: time.Date(2026, 2, 8, 9, 5, 1, 0, time.UTC),
				},
			},
		},
	}

	uc := NewListReportsUseCase(archive, nil, defaultListConfig(true), logger.New("error"))
	res, err := uc.Execute(context.Background(), ListReportsCommand{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if archive.lastPrefix != "reports/" || archive.lastLimit != 24 {
		t.Fatalf("unexpected listing call: %s %d", archive.lastPrefix, archive.lastLimit)
	}
	if len(res.Items) != 2 || res.Items[0].ReportID != "r-2" {
		t.Fatalf("expected newest report first, got %+v", res.Items)
	}
	if !res.Items[0].CreatedAt.Equal(time.Date(2026, 2, 8, 9, 5, 0, 0, time.UTC)) {
		t.Errorf("created_at should be parsed from key, got %s", res.Items[0].CreatedAt)
	}
}

func TestListReportsUseCase_ValidationAndLimit(t *testing.T) {
	archive := &mockReportArchive{}
	uc := NewListReportsUseCase(archive, nil, ListReportsConfig{DefaultLimit: 10, MaxLimit: 50}, logger.New("error"))

	_, err := uc.Execute(context.Background(), ListReportsCommand{
		From: time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC),
	})
	if err == nil || !strings.Contains(err.Error(), "from must be") {
		t.Fatalf("expected range error, got %v", err)
	}

	if _, err := uc.Execute(context.Background(), ListReportsCommand{Limit: 500}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if archive.lastLimit != 50 {
		t.Fatalf("expected clamped limit 50, got %d", archive.lastLimit)
	}

	if _, err := uc.Execute(context.Background(), ListReportsCommand{Cursor: "abc"}); err == nil {
		t.Fatal("cursor without index should fail")
	}
}

func TestListReportsUseCase_IndexPrimary(t *testing.T) {
	index := &mockReportIndex{
		page: port.ReportListPage{
			Items: []port.ReportMetadata{
				{ReportID: "r-1", ProfileID: "p-1", S3Key: "reports/a.md", HealthScore: 80, HealthBand: "good", CreatedAt: time.Date(2026, 2, 8, 9, 0, 0, 0, time.UTC)},
			},
			NextCursor: "next-page",
		},
	}

	uc := NewListReportsUseCase(&mockReportArchive{}, index, defaultListConfig(true), logger.New("error"))
	res, err := uc.Execute(context.Background(), ListReportsCommand{Limit: 10, Cursor: "cursor"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.NextCursor != "next-page" || len(res.Items) != 1 {
		t.Fatalf("unexpected page: %+v", res)
	}
	if !strings.HasPrefix(res.Items[0].URL, "https://signed.example.com/") {
		t.Errorf("expected signed URL, got %s", res.Items[0].URL)
	}
	if index.lastQuery.Cursor != "cursor" || index.lastQuery.Limit != 10 {
		t.Errorf("query not forwarded: %+v", index.lastQuery)
	}
}

func TestListReportsUseCase_IndexFallback(t *testing.T) {
	index := &mockReportIndex{listErr: errBoom}

	uc := NewListReportsUseCase(&mockReportArchive{}, index, defaultListConfig(true), logger.New("error"))
	if _, err := uc.Execute(context.Background(), ListReportsCommand{}); err != nil {
		t.Fatalf("fallback expected, got %v", err)
	}

	uc = NewListReportsUseCase(&mockReportArchive{}, index, defaultListConfig(false), logger.New("error"))
	if _, err := uc.Execute(context.Background(), ListReportsCommand{}); err == nil || !strings.Contains(err.Error(), "via index") {
		t.Fatalf("expected index error, got %v", err)
	}
}

func TestParseReportKey(t *testing.T) {
	created, id := parseReportKey("reports/2026/02/08/20260208T090500Z_abc-def.md")
	if id != "abc-def" || !created.Equal(time.Date(2026, 2, 8, 9, 5, 0, 0, time.UTC)) {
		t.Fatalf("unexpected parse: %s %s", created, id)
	}
	if created, id := parseReportKey("reports/readme.txt"); !created.IsZero() || id != "" {
		t.Fatalf("expected empty parse, got %s %s", created, id)
	}
}
