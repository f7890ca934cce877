package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/config"
	dbRedis "github.com/scranton-labs/auditdex/internal/db/redis"
	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/index"
	logpkg "github.com/scranton-labs/auditdex/internal/logger"
	"github.com/scranton-labs/auditdex/internal/metrics"
	"github.com/scranton-labs/auditdex/internal/repository/embcache"
	emailrepo "github.com/scranton-labs/auditdex/internal/repository/email"
	ledgerrepo "github.com/scranton-labs/auditdex/internal/repository/ledger"
	policyrepo "github.com/scranton-labs/auditdex/internal/repository/policy"
	openaiT "github.com/scranton-labs/auditdex/internal/transport/openai"
	healthuc "github.com/scranton-labs/auditdex/internal/usecase/health"
	"github.com/scranton-labs/auditdex/internal/usecase/pipeline"
	"github.com/scranton-labs/auditdex/internal/usecase/rules"
)

// app holds the assembled service graph. buildApp is the composition
// root shared by serve, query and reindex.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	store     *dbRedis.Store // nil when the cache is disabled
	policyIdx *index.Index
	emailIdx  *index.Index
	ledger    *ledgerrepo.Repository

	pipeline *pipeline.Service
	health   *healthuc.Service
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(rootFlags.env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(rootFlags.env, firstNonEmpty(rootFlags.logLevel, cfg.Logging.Level))
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	a := &app{cfg: cfg, logger: logger}

	// Optional embedding cache
	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		a.store = store
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Embedder chain: OpenAI -> cached -> truncating
	base := openaiT.NewEmbedder(&openaiT.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	var embedder domain.Embedder = base
	if a.store != nil {
		ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
		embedder = embcache.New(base, a.store, ttl, metrics.EmbeddingCacheTotal, logger)
	}
	embedder = domain.NewTruncatingEmbedder(embedder, cfg.Embedding.MaxChars)

	// Corpus indices
	a.policyIdx = index.New(
		domain.CorpusPolicy, cfg.Corpus.PolicyPath, cfg.Corpus.IndexDir,
		policyrepo.Chunker(policyrepo.ChunkingParams{
			MaxChars:     cfg.Chunking.MaxChars,
			OverlapChars: cfg.Chunking.OverlapChars,
			MinChars:     cfg.Chunking.MinChars,
		}),
		embedder, logger,
	)
	a.emailIdx = index.New(
		domain.CorpusEmail, cfg.Corpus.EmailPath, cfg.Corpus.IndexDir,
		emailrepo.Chunker(), embedder, logger,
	)
	for corpus, ix := range map[string]*index.Index{"policy": a.policyIdx, "email": a.emailIdx} {
		if err := ix.Load(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("load %s index: %w", corpus, err)
		}
	}

	// Transaction ledger
	ledger, err := ledgerrepo.Open(cfg.Corpus.LedgerPath, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	a.ledger = ledger

	// Pipeline
	classifier := openaiT.NewClassifier(&openaiT.Config{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Logger:  logger,
	}, cfg.Pipeline.CompletionModel)
	generator := openaiT.NewGenerator(&openaiT.Config{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Logger:  logger,
	}, cfg.Pipeline.CompletionModel)

	a.pipeline = pipeline.New(
		classifier,
		policyrepo.New(a.policyIdx, logger),
		emailrepo.New(a.emailIdx, cfg.Retrieval.CandidatePool, logger),
		ledger,
		rules.New(),
		generator,
		pipeline.Config{
			PolicyTopK:   cfg.Retrieval.PolicyTopK,
			EmailTopK:    cfg.Retrieval.EmailTopK,
			StageTimeout: time.Duration(cfg.Pipeline.StageTimeoutSec) * time.Second,
		},
		logger,
	)

	// Health. Pass nil interface (not typed nil pointer) when the cache
	// is disabled.
	var cachePinger healthuc.CachePinger
	if a.store != nil {
		cachePinger = a.store
	}
	a.health = healthuc.New(
		map[string]healthuc.CorpusIndex{"policy": a.policyIdx, "email": a.emailIdx},
		ledger,
		cachePinger,
		base,
	)

	return a, nil
}

// Close releases the app's resources. Safe to call on a partially
// built app.
func (a *app) Close() {
	if a.ledger != nil {
		_ = a.ledger.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
