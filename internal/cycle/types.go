package cycle

import "time"

type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type MetricAssessment struct {
	Metric   string
	Value    float64
	Unit     string
	Target   float64
	Severity Severity
}

type CycleSummary struct {
	GeneratedAt         time.Time
	ProfileID           string
	HealthScore         int
	HealthBand          string
	RecommendationCount int
	CriticalCount       int
	WarningCount        int
	PrunedProfiles      int64
	Assessments         []MetricAssessment
}

type Snapshot struct {
	StartedAt   time.Time
	Interval    time.Duration
	LastRunAt   time.Time
	LastError   string
	Runs        int
	Failures    int
	LastSummary *CycleSummary
}
