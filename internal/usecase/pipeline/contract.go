package pipeline

import (
	"context"

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/usecase/evidence"
)

// Classifier routes a query into a type and extracts mentioned entities.
type Classifier interface {
	Classify(ctx context.Context, query string) (domain.Classification, error)
}

// PolicySearcher retrieves policy chunks for a query.
type PolicySearcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}

// EmailSearcher retrieves emails semantically or filtered by entity.
type EmailSearcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.Email, error)
	SearchByEntity(ctx context.Context, query, entity string, k int) ([]domain.Email, error)
}

// Ledger reads the transaction corpus.
type Ledger interface {
	All(ctx context.Context, limit int) ([]domain.Transaction, error)
	ByEmployee(ctx context.Context, name string) ([]domain.Transaction, error)
	HighValue(ctx context.Context, threshold float64) ([]domain.Transaction, error)
}

// RuleEngine evaluates compliance rules over transactions.
type RuleEngine interface {
	EvaluateAll(txs []domain.Transaction) []domain.TransactionResult
	DetectSmurfing(txs []domain.Transaction, employee, date string, threshold float64) map[string][]domain.ComplianceViolation
}

// Generator produces the final prose answer from the evidence payload.
type Generator interface {
	Generate(ctx context.Context, payload evidence.Payload) (string, error)
}

// ProgressKind labels a progress event.
type ProgressKind string

const (
	StageStarted  ProgressKind = "stage_started"
	StageFinished ProgressKind = "stage_finished"
	StageFailed   ProgressKind = "stage_failed"
)

// ProgressEvent reports pipeline progress to an optional listener.
type ProgressEvent struct {
	Stage string       `json:"stage"`
	Kind  ProgressKind `json:"kind"`
	Err   string       `json:"error,omitempty"`
}

// ProgressFunc consumes progress events. A nil ProgressFunc is valid
// and disables reporting; computation never depends on a listener.
type ProgressFunc func(ProgressEvent)
