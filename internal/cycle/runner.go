package cycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/self-configuration/pkg/logger"
)

type Runner struct {
	service  *Service
	log      *logger.Logger
	interval time.Duration
	timeout  time.Duration

	runMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastRunAt   time.Time
	lastError   string
	runs        int
	failures    int
	lastSummary *CycleSummary
}

func NewRunner(service *Service, log *logger.Logger, interval, timeout time.Duration) *Runner {
	return &Runner{
		service:   service,
		log:       log,
		interval:  interval,
		timeout:   timeout,
		startedAt: time.Now(),
	}
}

func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// RunOnce сохраняет ошибку и логирует ее
			_, _ = r.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) RunOnce(ctx context.Context) (*CycleSummary, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	summary, err := r.service.RunCycle(runCtx)
	runAt := time.Now()

	if err != nil {
		wrappedErr := fmt.Errorf("analysis cycle failed: %w", err)
		r.updateFailure(runAt, wrappedErr)
		r.log.Error("Analysis cycle failed", wrappedErr)
		return nil, wrappedErr
	}

	r.updateSuccess(runAt, summary)

	r.log.Info(
		"Analysis cycle completed",
		"profile_id", summary.ProfileID,
		"health_score", summary.HealthScore,
		"critical_count", summary.CriticalCount,
		"warning_count", summary.WarningCount,
		"pruned_profiles", summary.PrunedProfiles,
	)

	return summary, nil
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := Snapshot{
		StartedAt: r.startedAt,
		Interval:  r.interval,
		LastRunAt: r.lastRunAt,
		LastError: r.lastError,
		Runs:      r.runs,
		Failures:  r.failures,
	}

	if r.lastSummary != nil {
		copiedSummary := *r.lastSummary
		copiedSummary.Assessments = append([]MetricAssessment(nil), r.lastSummary.Assessments...)
		snapshot.LastSummary = &copiedSummary
	}

	return snapshot
}

func (r *Runner) updateFailure(runAt time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = runAt
	r.lastError = err.Error()
	r.runs++
	r.failures++
}

func (r *Runner) updateSuccess(runAt time.Time, summary *CycleSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = runAt
	r.lastError = ""
	r.runs++
	r.lastSummary = summary
}
