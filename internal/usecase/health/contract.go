package health

import (
	"context"

	"github.com/scranton-labs/auditdex/internal/domain"
)

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusIndex exposes the built manifest of one corpus index.
type CorpusIndex interface {
	Manifest() domain.IndexManifest
}

// LedgerCounter reports the number of loaded ledger rows.
type LedgerCounter interface {
	Count(ctx context.Context) (int, error)
}
