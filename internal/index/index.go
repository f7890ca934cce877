// Package index implements the persistent, content-addressed vector
// index behind each corpus. One Index instance is built per corpus and
// shared across queries: reads go through an atomic snapshot pointer,
// rebuilds are exclusive and swap the snapshot in whole, so a reader
// never observes a half-written index.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/metrics"
)

// ChunkFunc turns raw corpus content into chunks. Provided by the
// corpus repository; must be pure.
type ChunkFunc func(content string) []domain.Chunk

// Snapshot is one immutable generation of the index.
type Snapshot struct {
	Manifest domain.IndexManifest
	Chunks   []domain.Chunk
	Vectors  [][]float32 // unit-normalized, aligned with Chunks
}

// Index is a per-corpus chunk store with nearest-neighbor search.
type Index struct {
	corpus     domain.Corpus
	sourcePath string
	dir        string
	chunk      ChunkFunc
	embed      domain.Embedder
	logger     *zap.Logger

	current   atomic.Pointer[Snapshot]
	rebuildMu sync.Mutex
}

// New creates an index for one corpus. Call Load before searching.
// Each corpus owns a subdirectory of dir, so indices sharing a data
// dir never clobber each other's files.
func New(
	corpus domain.Corpus, sourcePath, dir string,
	chunk ChunkFunc, embed domain.Embedder, logger *zap.Logger,
) *Index {
	return &Index{
		corpus:     corpus,
		sourcePath: sourcePath,
		dir:        filepath.Join(dir, string(corpus)),
		chunk:      chunk,
		embed:      embed,
		logger:     logger.With(zap.String("corpus", string(corpus))),
	}
}

// Load reads the source file, and either loads the persisted index
// (when the stored manifest hash matches the current content hash,
// with no re-embedding) or rebuilds it from scratch.
func (ix *Index) Load(ctx context.Context) error {
	content, hash, err := ix.readSource()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	if snap, ok := ix.loadPersisted(hash); ok {
		ix.current.Store(snap)
		ix.logger.Info("Index loaded from cache",
			zap.Int("chunks", snap.Manifest.ChunkCount),
			zap.String("content_hash", snap.Manifest.ContentHash),
		)
		return nil
	}

	return ix.rebuild(ctx, content, hash)
}

// Refresh re-hashes the source file and rebuilds only when the content
// changed. Used by the corpus watcher and the scheduled reindex.
func (ix *Index) Refresh(ctx context.Context) error {
	content, hash, err := ix.readSource()
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	if snap := ix.current.Load(); snap != nil && snap.Manifest.ContentHash == hash {
		return nil
	}
	return ix.rebuild(ctx, content, hash)
}

// Rebuild unconditionally re-chunks, re-embeds and persists the index.
func (ix *Index) Rebuild(ctx context.Context) error {
	content, hash, err := ix.readSource()
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	return ix.rebuild(ctx, content, hash)
}

func (ix *Index) rebuild(ctx context.Context, content, hash string) error {
	// One rebuild at a time; readers keep the previous snapshot.
	ix.rebuildMu.Lock()
	defer ix.rebuildMu.Unlock()

	if snap := ix.current.Load(); snap != nil && snap.Manifest.ContentHash == hash {
		return nil
	}

	start := time.Now()
	chunks := ix.chunk(content)

	vectors := make([][]float32, len(chunks))
	dims := 0
	for i, c := range chunks {
		res, err := ix.embed.Embed(ctx, c.Text)
		if err != nil {
			metrics.IndexRebuildsTotal.WithLabelValues(string(ix.corpus), "error").Inc()
			return fmt.Errorf("embed chunk %s: %w", c.ID, err)
		}
		vectors[i] = normalize(res.Embedding)
		dims = len(res.Embedding)
	}

	snap := &Snapshot{
		Manifest: domain.IndexManifest{
			Corpus:      ix.corpus,
			ContentHash: hash,
			ChunkCount:  len(chunks),
			Dimensions:  dims,
			BuiltAt:     time.Now().UnixMilli(),
		},
		Chunks:  chunks,
		Vectors: vectors,
	}

	if err := ix.persist(snap); err != nil {
		metrics.IndexRebuildsTotal.WithLabelValues(string(ix.corpus), "error").Inc()
		return fmt.Errorf("persist index: %w", err)
	}

	ix.current.Store(snap)
	metrics.IndexRebuildsTotal.WithLabelValues(string(ix.corpus), "success").Inc()
	ix.logger.Info("Index rebuilt",
		zap.Int("chunks", len(chunks)),
		zap.Int("dimensions", dims),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Search embeds the query and returns the top-k chunks by cosine
// similarity over the current snapshot.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	snap := ix.current.Load()
	if snap == nil {
		return nil, fmt.Errorf("%w: index %s not loaded", domain.ErrRetrievalFailed, ix.corpus)
	}

	res, err := ix.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	metrics.RetrievalSearchesTotal.WithLabelValues(string(ix.corpus), "semantic").Inc()
	return topK(snap, normalize(res.Embedding), k), nil
}

// Chunks returns the current snapshot's chunk list in index order.
func (ix *Index) Chunks() []domain.Chunk {
	if snap := ix.current.Load(); snap != nil {
		return snap.Chunks
	}
	return nil
}

// Manifest returns the current manifest, or the zero value if the
// index is not loaded.
func (ix *Index) Manifest() domain.IndexManifest {
	if snap := ix.current.Load(); snap != nil {
		return snap.Manifest
	}
	return domain.IndexManifest{}
}

func (ix *Index) readSource() (content, hash string, err error) {
	data, err := os.ReadFile(ix.sourcePath)
	if err != nil {
		return "", "", fmt.Errorf("read corpus %s: %w", ix.sourcePath, err)
	}
	sum := sha256.Sum256(data)
	return string(data), hex.EncodeToString(sum[:]), nil
}
