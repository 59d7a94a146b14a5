package view

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.977 generate -f insights.templ

import (
	"fmt"
	"strings"

	"github.com/dreschagin/self-configuration/internal/application/dto"
)

// snapshotRow описывает одну строку таблицы метрик
type snapshotRow struct {
	label string
	value string
}

// paragraphs делит рассказ на абзацы по пустой строке
func paragraphs(narrative string) []string {
	var out []string
	for _, paragraph := range strings.Split(narrative, "\n\n") {
		if strings.TrimSpace(paragraph) == "" {
			continue
		}
		out = append(out, paragraph)
	}
	return out
}

func snapshotRows(snapshot *dto.SnapshotDTO) []snapshotRow {
	return []snapshotRow{
		{"Response time", formatValue(snapshot.ResponseTimeMs, "%.1f ms")},
		{"Memory usage", formatValue(snapshot.MemoryUsageMb, "%.0f MB")},
		{"Cache hit rate", formatPercent(snapshot.CacheHitRate)},
		{"Error rate", formatPercent(snapshot.ErrorRate)},
		{"User satisfaction", formatPercent(snapshot.UserSatisfaction)},
	}
}

func generatedAt(insight *dto.InsightDTO) string {
	return insight.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")
}

func formatValue(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func formatPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}
