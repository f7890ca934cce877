package health

import (
	"context"
	"errors"
	"testing"

	"github.com/scranton-labs/auditdex/internal/domain"
)

// --- Mocks ---

type mockIndex struct {
	chunks int
}

func (m *mockIndex) Manifest() domain.IndexManifest {
	return domain.IndexManifest{ChunkCount: m.chunks}
}

type mockLedger struct {
	count int
	err   error
}

func (m *mockLedger) Count(_ context.Context) (int, error) { return m.count, m.err }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(
		map[string]CorpusIndex{"policy": &mockIndex{chunks: 12}, "email": &mockIndex{chunks: 40}},
		&mockLedger{count: 30},
		&mockPinger{},
		&mockEmbeddingChecker{},
	)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"index_policy", "index_email", "ledger", "cache", "embedding"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_EmptyIndexDegrades(t *testing.T) {
	svc := New(map[string]CorpusIndex{"policy": &mockIndex{chunks: 0}}, &mockLedger{count: 30}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["index_policy"] != CheckError {
		t.Errorf("expected index_policy %q, got %q", CheckError, r.Checks["index_policy"])
	}
}

func TestCheck_LedgerErrorDegrades(t *testing.T) {
	svc := New(
		map[string]CorpusIndex{"policy": &mockIndex{chunks: 1}},
		&mockLedger{err: errors.New("closed")},
		nil, nil,
	)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
}

func TestCheck_NilOptionalCheckersSkipped(t *testing.T) {
	svc := New(map[string]CorpusIndex{"policy": &mockIndex{chunks: 1}}, &mockLedger{count: 1}, nil, nil)
	r := svc.Check(context.Background())

	if _, ok := r.Checks["cache"]; ok {
		t.Error("cache check should be absent when no cache is configured")
	}
	if _, ok := r.Checks["embedding"]; ok {
		t.Error("embedding check should be absent when no checker is configured")
	}
}
