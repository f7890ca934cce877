package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks over the corpus indices, the
// ledger store and the optional external collaborators.
type Service struct {
	indices   map[string]CorpusIndex
	ledger    LedgerCounter
	cache     CachePinger
	embedding EmbeddingChecker
}

// New creates a Service. cache and embedding can be nil.
func New(
	indices map[string]CorpusIndex,
	ledger LedgerCounter,
	cache CachePinger,
	embedding EmbeddingChecker,
) *Service {
	return &Service{indices: indices, ledger: ledger, cache: cache, embedding: embedding}
}

// Check runs health checks against all components. An index is healthy
// once it carries a built snapshot with at least one chunk.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	for name, ix := range s.indices {
		if ix.Manifest().ChunkCount > 0 {
			checks["index_"+name] = CheckOK
		} else {
			checks["index_"+name] = CheckError
		}
	}

	if s.ledger != nil {
		if n, err := s.ledger.Count(ctx); err != nil || n == 0 {
			checks["ledger"] = CheckError
		} else {
			checks["ledger"] = CheckOK
		}
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
