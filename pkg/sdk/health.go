package dbas

import (
	"context"

	healthuc "github.com/somunicate/dbas/internal/usecase/health"
)

// HealthStatus represents the aggregated engine health.
type HealthStatus struct {
	Status   string            // "ok", "degraded", "error"
	Checks   map[string]string // component → "ok"/"error"/"unavailable"
	Entries  int               // sounds in the loaded catalog
	Snapshot string            // version of the reference data in use
}

// Health checks the loaded reference data and the optional result cache.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	report := e.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status:   string(report.Status),
		Checks:   checks,
		Entries:  report.Entries,
		Snapshot: report.Snapshot,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
