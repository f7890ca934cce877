package policy

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/domain"
)

type mockIndex struct {
	chunks      []domain.Chunk
	searchFn    func(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
	searchCalls int
}

func (m *mockIndex) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	m.searchCalls++
	if m.searchFn != nil {
		return m.searchFn(ctx, query, k)
	}
	return nil, nil
}

func (m *mockIndex) Chunks() []domain.Chunk {
	return m.chunks
}

func policyChunk(id, text string) domain.Chunk {
	return domain.Chunk{ID: id, Text: text, Corpus: domain.CorpusPolicy}
}

func TestSearch_KeywordMatchSkipsSemantic(t *testing.T) {
	mi := &mockIndex{chunks: []domain.Chunk{
		policyChunk("policy_0_0", "Purchases above the approval limit require sign-off."),
		policyChunk("policy_1_0", "Travel reimbursement is handled by accounting."),
	}}
	repo := New(mi, zap.NewNop())

	results, err := repo.Search(context.Background(), "approval limit for purchases", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected keyword results")
	}
	if results[0].ID != "policy_0_0" {
		t.Errorf("expected policy_0_0 first, got %s", results[0].ID)
	}
	if mi.searchCalls != 0 {
		t.Errorf("expected semantic search not to run, got %d calls", mi.searchCalls)
	}
}

func TestSearch_PhraseBonusDominatesTokenMatches(t *testing.T) {
	mi := &mockIndex{chunks: []domain.Chunk{
		// Matches several individual query tokens but not the phrase.
		policyChunk("policy_0_0", "Spending reports and spending reviews cover every spending type."),
		// Matches the category phrase only.
		policyChunk("policy_1_0", "Category B covers office equipment."),
	}}
	repo := New(mi, zap.NewNop())

	results, err := repo.Search(context.Background(), "what spending falls under category b", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "policy_1_0" {
		t.Errorf("expected phrase match ranked first, got %s", results[0].ID)
	}
}

func TestSearch_TiesKeepChunkOrder(t *testing.T) {
	mi := &mockIndex{chunks: []domain.Chunk{
		policyChunk("policy_0_0", "vendor payments"),
		policyChunk("policy_1_0", "vendor contracts"),
		policyChunk("policy_2_0", "vendor onboarding"),
	}}
	repo := New(mi, zap.NewNop())

	results, err := repo.Search(context.Background(), "vendor", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"policy_0_0", "policy_1_0", "policy_2_0"}
	for i, id := range want {
		if results[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, results[i].ID)
		}
	}
}

func TestSearch_SemanticFallbackOnZeroKeywordScore(t *testing.T) {
	mi := &mockIndex{chunks: []domain.Chunk{
		policyChunk("policy_0_0", "Purchases above the approval limit require sign-off."),
	}}
	mi.searchFn = func(_ context.Context, _ string, _ int) ([]domain.ScoredChunk, error) {
		return []domain.ScoredChunk{
			{Chunk: policyChunk("policy_0_0", "semantic hit"), Score: 0.8},
		}, nil
	}
	repo := New(mi, zap.NewNop())

	results, err := repo.Search(context.Background(), "unrelated gibberish zzzqqq", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mi.searchCalls != 1 {
		t.Fatalf("expected semantic fallback, got %d calls", mi.searchCalls)
	}
	if len(results) != 1 || results[0].Score != 0.8 {
		t.Errorf("expected semantic results passed through, got %+v", results)
	}
}

func TestSearch_SemanticErrorWrapped(t *testing.T) {
	mi := &mockIndex{}
	mi.searchFn = func(_ context.Context, _ string, _ int) ([]domain.ScoredChunk, error) {
		return nil, errors.New("index not loaded")
	}
	repo := New(mi, zap.NewNop())

	_, err := repo.Search(context.Background(), "zzzqqq", 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrRetrievalFailed) {
		t.Errorf("expected ErrRetrievalFailed, got %v", err)
	}
}

func TestSearch_TopKCap(t *testing.T) {
	mi := &mockIndex{chunks: []domain.Chunk{
		policyChunk("policy_0_0", "expense"),
		policyChunk("policy_1_0", "expense"),
		policyChunk("policy_2_0", "expense"),
	}}
	repo := New(mi, zap.NewNop())

	results, err := repo.Search(context.Background(), "expense", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestQueryTerms_DropsStopwordsAndShortTokens(t *testing.T) {
	terms := queryTerms("What is the limit for a PO?")

	want := map[string]bool{"limit": true}
	for _, term := range terms {
		if !want[term] {
			t.Errorf("unexpected term %q", term)
		}
		delete(want, term)
	}
	for term := range want {
		t.Errorf("missing term %q", term)
	}
}
