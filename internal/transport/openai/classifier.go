package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/domain"
)

const classifierSystemPrompt = `You classify audit queries for a corporate compliance system.

Categories:
- "fraud": investigations of fraud, irregularities, smurfing, conflicts of interest, cross-referencing data to find problems
- "transaction": questions about financial transactions, spending, purchases, payments, reimbursements, amounts
- "email": questions about communications, emails, messages
- "policy": questions about rules, policies, limits, compliance, what is allowed or prohibited
- "general": anything else

Also extract entities: names of people, monetary amounts, dates.

Respond with a JSON object only: {"query_type": "...", "entities": ["..."]}`

// Classifier routes queries via a chat completion with a strict JSON
// contract. Malformed model output is an error, never silently
// accepted; the pipeline degrades to general on failure.
type Classifier struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewClassifier creates the query classifier.
func NewClassifier(cfg *Config, model string) *Classifier {
	return &Classifier{
		client: newClient(cfg.APIKey, cfg.BaseURL),
		model:  model,
		logger: cfg.Logger,
	}
}

// Classify implements the classifier collaborator contract.
func (c *Classifier) Classify(ctx context.Context, query string) (domain.Classification, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Temperature: 0,
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: %w", domain.ErrClassificationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return domain.Classification{}, fmt.Errorf("%w: empty completion", domain.ErrClassificationFailed)
	}

	return decodeClassification(resp.Choices[0].Message.Content)
}

// decodeClassification strictly decodes the model output. Unknown
// fields and trailing data are rejected.
func decodeClassification(raw string) (domain.Classification, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var cls domain.Classification
	if err := dec.Decode(&cls); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: decode output: %w", domain.ErrClassificationFailed, err)
	}
	if dec.More() {
		return domain.Classification{}, fmt.Errorf("%w: trailing data after JSON object", domain.ErrClassificationFailed)
	}
	if !cls.QueryType.Valid() {
		return domain.Classification{}, fmt.Errorf("%w: unknown query type %q", domain.ErrClassificationFailed, cls.QueryType)
	}
	return cls, nil
}
