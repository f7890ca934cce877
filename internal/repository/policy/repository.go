// Package policy implements hybrid retrieval over the compliance policy
// corpus. Keyword scoring runs first and wins whenever it matches
// anything; semantic nearest-neighbor search is a fallback for queries
// whose terminology does not appear verbatim in the policy text.
package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/metrics"
)

// Query words carrying no signal for keyword scoring.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "can": {},
	"what": {}, "which": {}, "when": {}, "where": {}, "who": {}, "how": {},
	"does": {}, "did": {}, "this": {}, "that": {}, "with": {}, "from": {},
	"about": {}, "into": {}, "any": {}, "all": {}, "has": {}, "have": {},
	"our": {}, "their": {}, "been": {}, "will": {}, "would": {}, "should": {},
}

// Spending-category labels score far above single-token matches, so a
// query naming a category always ranks chunks about that category first.
var compositePhrases = []string{"category a", "category b", "category c"}

const phraseBonus = 10

const minTokenLen = 3

// searcher is the consumer interface onto the vector index.
type searcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
	Chunks() []domain.Chunk
}

// Repository answers policy retrieval queries.
type Repository struct {
	index  searcher
	logger *zap.Logger
}

// New creates a policy repository over a loaded index.
func New(index searcher, logger *zap.Logger) *Repository {
	return &Repository{index: index, logger: logger}
}

// Search returns the top-k policy chunks for the query, keyword-first.
func (r *Repository) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if matched := r.keywordSearch(query, k); len(matched) > 0 {
		metrics.RetrievalSearchesTotal.WithLabelValues(string(domain.CorpusPolicy), "keyword").Inc()
		return matched, nil
	}

	results, err := r.index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: policy semantic search: %w", domain.ErrRetrievalFailed, err)
	}
	return results, nil
}

// keywordSearch scores every chunk by query-token matches. Returns nil
// when nothing matches at all.
func (r *Repository) keywordSearch(query string, k int) []domain.ScoredChunk {
	terms := queryTerms(query)
	phrases := matchedPhrases(query)
	if len(terms) == 0 && len(phrases) == 0 {
		return nil
	}

	var scored []domain.ScoredChunk
	for _, chunk := range r.index.Chunks() {
		text := strings.ToLower(chunk.Text)

		score := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				score++
			}
		}
		for _, phrase := range phrases {
			if strings.Contains(text, phrase) {
				score += phraseBonus
			}
		}

		if score > 0 {
			scored = append(scored, domain.ScoredChunk{Chunk: chunk, Score: float64(score)})
		}
	}

	// Stable sort keeps original chunk order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// queryTerms tokenizes the query, dropping stopwords and short tokens.
func queryTerms(query string) []string {
	var terms []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if len(tok) < minTokenLen {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		terms = append(terms, tok)
	}
	return terms
}

func matchedPhrases(query string) []string {
	lower := strings.ToLower(query)
	var out []string
	for _, p := range compositePhrases {
		if strings.Contains(lower, p) {
			out = append(out, p)
		}
	}
	return out
}
