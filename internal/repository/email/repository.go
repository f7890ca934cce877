// Package email implements entity-filtered retrieval over the corporate
// email corpus. Each indexed chunk is one rendered message; the parsed
// header fields ride along as chunk tags so results convert back to
// structured emails without re-parsing.
package email

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/index"
	"github.com/scranton-labs/auditdex/internal/parse"
)

// searcher is the consumer interface onto the vector index.
type searcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
	Chunks() []domain.Chunk
}

// Repository answers email retrieval queries.
type Repository struct {
	index         searcher
	candidatePool int
	logger        *zap.Logger
}

// New creates an email repository over a loaded index. candidatePool is
// how many semantic candidates are scanned before entity filtering.
func New(index searcher, candidatePool int, logger *zap.Logger) *Repository {
	if candidatePool <= 0 {
		candidatePool = 2000
	}
	return &Repository{index: index, candidatePool: candidatePool, logger: logger}
}

// Chunker returns the chunking function for the email corpus. One chunk
// per parsed message, header fields as tags.
func Chunker() index.ChunkFunc {
	return func(content string) []domain.Chunk {
		emails := parse.Emails(content)
		chunks := make([]domain.Chunk, len(emails))
		for i, e := range emails {
			chunks[i] = EmailToChunk(e, i)
		}
		return chunks
	}
}

// EmailToChunk converts a parsed email into its indexed form.
func EmailToChunk(e domain.Email, seq int) domain.Chunk {
	return domain.Chunk{
		ID:           fmt.Sprintf("email_%d", seq),
		Text:         parse.RenderEmail(e),
		SectionTitle: e.Subject,
		Corpus:       domain.CorpusEmail,
		Seq:          seq,
		Tags: map[string]string{
			domain.TagFrom:    e.From,
			domain.TagTo:      e.To,
			domain.TagDate:    e.Date,
			domain.TagSubject: e.Subject,
			domain.TagLine:    strconv.Itoa(e.SourceLine),
		},
	}
}

// ChunkToEmail reverses EmailToChunk using the chunk tags.
func ChunkToEmail(c domain.Chunk) domain.Email {
	line, _ := strconv.Atoi(c.Tags[domain.TagLine])
	body := c.Text
	if idx := strings.Index(body, "\n\n"); idx >= 0 {
		body = body[idx+2:]
	}
	return domain.Email{
		From:       c.Tags[domain.TagFrom],
		To:         c.Tags[domain.TagTo],
		Date:       c.Tags[domain.TagDate],
		Subject:    c.Tags[domain.TagSubject],
		Body:       body,
		SourceLine: line,
	}
}

// Search runs plain semantic search over the email corpus.
func (r *Repository) Search(ctx context.Context, query string, k int) ([]domain.Email, error) {
	results, err := r.index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: email search: %w", domain.ErrRetrievalFailed, err)
	}
	return toEmails(results), nil
}

// SearchByEntity finds messages involving the named person or vendor.
// The query is widened with the entity name, scanned over a large
// candidate pool, then filtered to messages whose sender, recipient or
// body mentions the entity.
func (r *Repository) SearchByEntity(ctx context.Context, query, entity string, k int) ([]domain.Email, error) {
	widened := strings.TrimSpace(query + " " + entity)

	candidates, err := r.index.Search(ctx, widened, r.candidatePool)
	if err != nil {
		return nil, fmt.Errorf("%w: email entity search: %w", domain.ErrRetrievalFailed, err)
	}

	needle := strings.ToLower(entity)
	var out []domain.Email
	for _, c := range candidates {
		if !mentionsEntity(c.Chunk, needle) {
			continue
		}
		out = append(out, ChunkToEmail(c.Chunk))
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func mentionsEntity(c domain.Chunk, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Tags[domain.TagFrom]), needle) ||
		strings.Contains(strings.ToLower(c.Tags[domain.TagTo]), needle) ||
		strings.Contains(strings.ToLower(c.Text), needle)
}

func toEmails(chunks []domain.ScoredChunk) []domain.Email {
	out := make([]domain.Email, len(chunks))
	for i, c := range chunks {
		out[i] = ChunkToEmail(c.Chunk)
	}
	return out
}
