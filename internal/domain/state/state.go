// Package state holds the per-query accumulator threaded through the
// audit pipeline and its merge semantics.
package state

import "github.com/scranton-labs/auditdex/internal/domain"

// SharedState is the mutable record a single query accumulates while
// traversing the orchestration graph. Scalar fields are last-write-wins;
// list fields are append-only: once an element enters a list it is never
// removed or reordered for the lifetime of the query.
type SharedState struct {
	Query     string           `json:"query"`
	QueryType domain.QueryType `json:"query_type"`
	Entities  []string         `json:"entities,omitempty"`

	PolicyContext      []domain.ScoredChunk       `json:"policy_context,omitempty"`
	EmailResults       []domain.Email             `json:"email_results,omitempty"`
	TransactionResults []domain.TransactionResult `json:"transaction_results,omitempty"`
	FraudAlerts        []domain.FraudAlert        `json:"fraud_alerts,omitempty"`

	FinalAnswer     string `json:"final_answer,omitempty"`
	EvidenceSummary string `json:"evidence_summary,omitempty"`

	NodesVisited []string `json:"nodes_visited,omitempty"`
	Err          string   `json:"error,omitempty"`
}

// Update is a partial record produced by one stage. Zero-valued fields
// contribute nothing; Entities uses a presence flag because an empty
// entity list is a meaningful classifier result.
type Update struct {
	QueryType   domain.QueryType
	Entities    []string
	SetEntities bool

	PolicyContext      []domain.ScoredChunk
	EmailResults       []domain.Email
	TransactionResults []domain.TransactionResult
	FraudAlerts        []domain.FraudAlert

	FinalAnswer     string
	EvidenceSummary string

	NodesVisited []string
	Err          string
}

// New creates the initial state for a query.
func New(query string) SharedState {
	return SharedState{Query: query}
}

// Apply merges a stage's partial update into the state. The merge rule
// per field is fixed: appends for list fields, last-write-wins for
// scalars. Applying updates in the graph's execution order reproduces
// the same final state on retry.
func Apply(s SharedState, u Update) SharedState {
	if u.QueryType != "" {
		s.QueryType = u.QueryType
	}
	if u.SetEntities {
		s.Entities = u.Entities
	}

	s.PolicyContext = append(s.PolicyContext, u.PolicyContext...)
	s.EmailResults = append(s.EmailResults, u.EmailResults...)
	s.TransactionResults = append(s.TransactionResults, u.TransactionResults...)
	s.FraudAlerts = append(s.FraudAlerts, u.FraudAlerts...)

	if u.FinalAnswer != "" {
		s.FinalAnswer = u.FinalAnswer
	}
	if u.EvidenceSummary != "" {
		s.EvidenceSummary = u.EvidenceSummary
	}

	s.NodesVisited = append(s.NodesVisited, u.NodesVisited...)
	if u.Err != "" {
		s.Err = u.Err
	}
	return s
}
