package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the service cannot answer queries.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks. A missing or empty catalog snapshot
// is Unhealthy; a failing encoder or cache store only degrades, since
// cached vectors still serve queries.
type Service struct {
	snaps   SnapshotSource
	encoder EncoderChecker
	store   StorePinger
}

// New creates a Service. encoder and store can be nil.
func New(snaps SnapshotSource, encoder EncoderChecker, store StorePinger) *Service {
	return &Service{snaps: snaps, encoder: encoder, store: store}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	snap := s.snaps.Current()
	catalogOK := snap != nil && snap.Len() > 0
	if catalogOK {
		checks["catalog"] = CheckOK
	} else {
		checks["catalog"] = CheckError
	}

	if s.encoder != nil {
		if err := s.encoder.HealthCheck(ctx); err != nil {
			checks["encoder"] = CheckError
		} else {
			checks["encoder"] = CheckOK
		}
	}

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["cache_store"] = CheckError
		} else {
			checks["cache_store"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if !catalogOK {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
