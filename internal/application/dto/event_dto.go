package dto

import "time"

// ProfileAnalyzedEvent публикуется после каждого анализа
type ProfileAnalyzedEvent struct {
	ProfileID       string    `json:"profile_id"`
	Timestamp       time.Time `json:"timestamp"`
	HealthScore     int       `json:"health_score"`
	HealthBand      string    `json:"health_band"`
	BreachedMetrics []string  `json:"breached_metrics"`
	Recommendations []string  `json:"recommendations"`
}

// OptimizationEvent публикуется для каждой примененной или отклоненной оптимизации
type OptimizationEvent struct {
	ProfileID    string    `json:"profile_id"`
	Optimization string    `json:"optimization"`
	Description  string    `json:"description"`
	Success      bool      `json:"success"`
	Reason       string    `json:"reason,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ReportArchivedEvent публикуется после архивации отчета
type ReportArchivedEvent struct {
	ReportID  string    `json:"report_id"`
	ProfileID string    `json:"profile_id"`
	S3Key     string    `json:"s3_key"`
	Timestamp time.Time `json:"timestamp"`
}
