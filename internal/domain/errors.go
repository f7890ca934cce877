package domain

import "errors"

var (
	// ErrClassificationFailed signals classifier errors or unparsable classifier output.
	ErrClassificationFailed = errors.New("classification failed")
	// ErrRetrievalFailed signals an unreachable or corrupted index.
	ErrRetrievalFailed = errors.New("retrieval failed")
	// ErrNarrativeFailed signals malformed or empty generator output.
	ErrNarrativeFailed = errors.New("narrative generation failed")
	// ErrRuleEvaluation signals an unparsable transaction field.
	ErrRuleEvaluation = errors.New("rule evaluation error")
	// ErrConfiguration signals a missing corpus file at startup. Fatal:
	// the service must refuse queries until resolved.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
