package pipeline

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/usecase/evidence"
	"github.com/scranton-labs/auditdex/internal/usecase/rules"
)

type mockClassifier struct {
	result domain.Classification
	err    error
}

func (m *mockClassifier) Classify(_ context.Context, _ string) (domain.Classification, error) {
	return m.result, m.err
}

type mockPolicy struct {
	results map[string][]domain.ScoredChunk // keyed by query
	err     error
	queries []string
}

func (m *mockPolicy) Search(_ context.Context, query string, _ int) ([]domain.ScoredChunk, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.results[query], nil
}

type mockEmail struct {
	searchResults []domain.Email
	entityResults map[string][]domain.Email
	err           error
}

func (m *mockEmail) Search(_ context.Context, _ string, _ int) ([]domain.Email, error) {
	return m.searchResults, m.err
}

func (m *mockEmail) SearchByEntity(_ context.Context, _, entity string, _ int) ([]domain.Email, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entityResults[entity], nil
}

type mockLedger struct {
	byEmployee map[string][]domain.Transaction
	highValue  []domain.Transaction
	all        []domain.Transaction
	err        error
}

func (m *mockLedger) All(_ context.Context, limit int) ([]domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.all) > limit {
		return m.all[:limit], nil
	}
	return m.all, nil
}

func (m *mockLedger) ByEmployee(_ context.Context, name string) ([]domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byEmployee[name], nil
}

func (m *mockLedger) HighValue(_ context.Context, _ float64) ([]domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.highValue, nil
}

type mockGenerator struct {
	answer   string
	err      error
	payloads []evidence.Payload
}

func (m *mockGenerator) Generate(_ context.Context, p evidence.Payload) (string, error) {
	m.payloads = append(m.payloads, p)
	return m.answer, m.err
}

type testDeps struct {
	classifier *mockClassifier
	policy     *mockPolicy
	email      *mockEmail
	ledger     *mockLedger
	generator  *mockGenerator
}

func newTestService(t *testing.T, deps testDeps) *Service {
	t.Helper()
	if deps.classifier == nil {
		deps.classifier = &mockClassifier{result: domain.Classification{QueryType: domain.QueryGeneral}}
	}
	if deps.policy == nil {
		deps.policy = &mockPolicy{}
	}
	if deps.email == nil {
		deps.email = &mockEmail{}
	}
	if deps.ledger == nil {
		deps.ledger = &mockLedger{}
	}
	if deps.generator == nil {
		deps.generator = &mockGenerator{answer: "generated answer"}
	}
	return New(
		deps.classifier, deps.policy, deps.email, deps.ledger,
		rules.New(), deps.generator,
		Config{PolicyTopK: 3, EmailTopK: 5, StageTimeout: time.Second},
		zap.NewNop(),
	)
}
