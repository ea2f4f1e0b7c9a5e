package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckUnavailable indicates a loaded component that cannot serve.
	CheckUnavailable CheckResult = "unavailable"
)

// Check names.
const (
	CheckCatalog     = "catalog"
	CheckMahalanobis = "mahalanobis"
	CheckCache       = "cache"
)

// cachePingTimeout bounds the cache check so a hung store cannot stall the health endpoint.
const cachePingTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status   Status
	Checks   map[string]CheckResult
	Entries  int
	Snapshot string // version of the published snapshot, empty before the first load
}

// Service coordinates health checks.
type Service struct {
	snapshots SnapshotProvider
	cache     CachePinger
}

// New creates a Service. cache can be nil.
func New(snapshots SnapshotProvider, cache CachePinger) *Service {
	return &Service{snapshots: snapshots, cache: cache}
}

// Check runs health checks against all components.
// Without a catalog the service is unhealthy. A missing Mahalanobis model or
// an unreachable cache only degrade it.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, 3)}

	if snap, err := s.snapshots.Current(); err != nil {
		r.Checks[CheckCatalog] = CheckError
		r.Status = Unhealthy
	} else {
		r.Checks[CheckCatalog] = CheckOK
		r.Entries = snap.Catalog.Len()
		r.Snapshot = snap.Version.String()
		if snap.MahalanobisAvailable() {
			r.Checks[CheckMahalanobis] = CheckOK
		} else {
			r.Checks[CheckMahalanobis] = CheckUnavailable
			r.degrade()
		}
	}

	if s.cache != nil {
		pingCtx, cancel := context.WithTimeout(ctx, cachePingTimeout)
		defer cancel()
		if err := s.cache.Ping(pingCtx); err != nil {
			r.Checks[CheckCache] = CheckError
			r.degrade()
		} else {
			r.Checks[CheckCache] = CheckOK
		}
	}
	return r
}

// degrade lowers a healthy report to degraded. Unhealthy stays unhealthy.
func (r *Report) degrade() {
	if r.Status == Healthy {
		r.Status = Degraded
	}
}
