package port

import (
	"context"
)

// Subjects for profile lifecycle events
const (
	SubjectProfileAnalyzed     = "selfconfig.profile.analyzed"
	SubjectOptimizationApplied = "selfconfig.optimization.applied"
	SubjectOptimizationFailed  = "selfconfig.optimization.failed"
	SubjectReportArchived      = "selfconfig.report.archived"
)

// EventPublisher defines the interface for publishing events to a message broker
type EventPublisher interface {
	// PublishEvent publishes an event to the specified subject
	PublishEvent(ctx context.Context, subject string, event interface{}) error

	// Close closes the connection to the message broker
	Close() error
}
