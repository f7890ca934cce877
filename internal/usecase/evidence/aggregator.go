// Package evidence assembles the bounded evidence set behind an answer.
// Selection is always the first N items in arrival order per category,
// so the same state produces the same payload on every call.
package evidence

import (
	"fmt"
	"strings"

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/domain/state"
)

// Per-category caps on evidence handed to narrative generation.
const (
	MaxFraudAlerts   = 5
	MaxViolatedTxs   = 5
	MaxEmails        = 3
	MaxPolicyChunks  = 2
	PolicySnippetLen = 250
)

// Stats counts the full (uncapped) evidence collected for a query.
type Stats struct {
	PolicyChunks int `json:"policy_chunks"`
	Emails       int `json:"emails"`
	Transactions int `json:"transactions"`
	ViolatedTxs  int `json:"violated_transactions"`
	FraudAlerts  int `json:"fraud_alerts"`
}

// Payload is the structured evidence handed to the narrative generator.
type Payload struct {
	Query          string                     `json:"query"`
	QueryType      domain.QueryType           `json:"query_type"`
	PolicySnippets []string                   `json:"policy_snippets"`
	Emails         []domain.Email             `json:"emails"`
	ViolatedTxs    []domain.TransactionResult `json:"violated_transactions"`
	FraudAlerts    []domain.FraudAlert        `json:"fraud_alerts"`
	Stats          Stats                      `json:"stats"`
}

// Build selects the bounded evidence payload from a finished (or
// partially finished) query state.
func Build(s state.SharedState) Payload {
	violated := violatedTransactions(s.TransactionResults)

	p := Payload{
		Query:       s.Query,
		QueryType:   s.QueryType,
		FraudAlerts: prefix(s.FraudAlerts, MaxFraudAlerts),
		Emails:      prefix(s.EmailResults, MaxEmails),
		ViolatedTxs: prefix(violated, MaxViolatedTxs),
		Stats: Stats{
			PolicyChunks: len(s.PolicyContext),
			Emails:       len(s.EmailResults),
			Transactions: len(s.TransactionResults),
			ViolatedTxs:  len(violated),
			FraudAlerts:  len(s.FraudAlerts),
		},
	}

	for _, chunk := range s.PolicyContext {
		if len(p.PolicySnippets) >= MaxPolicyChunks {
			break
		}
		p.PolicySnippets = append(p.PolicySnippets, snippet(chunk.Text, PolicySnippetLen))
	}

	return p
}

// Summary renders the plain evidence summary: counts per category, the
// ordered stage trace, and the recorded error if any. It stands alone
// as the answer when narrative generation fails.
func Summary(s state.SharedState) string {
	var parts []string

	if len(s.NodesVisited) > 0 {
		parts = append(parts, "Sources consulted: "+strings.Join(s.NodesVisited, ", "))
	}

	var stats []string
	if n := len(s.PolicyContext); n > 0 {
		stats = append(stats, fmt.Sprintf("%d policy sections", n))
	}
	if n := len(s.EmailResults); n > 0 {
		stats = append(stats, fmt.Sprintf("%d emails", n))
	}
	if n := len(s.TransactionResults); n > 0 {
		stats = append(stats, fmt.Sprintf("%d transactions", n))
	}
	if n := len(s.FraudAlerts); n > 0 {
		stats = append(stats, fmt.Sprintf("%d fraud alerts", n))
	}
	if len(stats) > 0 {
		parts = append(parts, "Evidence collected: "+strings.Join(stats, ", "))
	} else {
		parts = append(parts, "Evidence collected: none")
	}

	if s.Err != "" {
		parts = append(parts, "Warning: "+s.Err)
	}

	return strings.Join(parts, "\n")
}

// FallbackAnswer renders a templated answer from the evidence alone,
// used when the narrative generator fails or returns nothing usable.
func FallbackAnswer(s state.SharedState) string {
	var b strings.Builder
	b.WriteString("## Audit Findings\n\n")
	b.WriteString("Query: " + s.Query + "\n")

	if len(s.FraudAlerts) > 0 {
		fmt.Fprintf(&b, "\n### Fraud Alerts (%d)\n", len(s.FraudAlerts))
		for _, a := range prefix(s.FraudAlerts, MaxFraudAlerts) {
			fmt.Fprintf(&b, "- %s - %s: %s ($%.2f)\n", a.Kind, a.Employee, a.Description, a.TotalAmount)
		}
	}

	violated := violatedTransactions(s.TransactionResults)
	if len(violated) > 0 {
		fmt.Fprintf(&b, "\n### Transactions with Violations (%d)\n", len(violated))
		for _, t := range prefix(violated, MaxViolatedTxs) {
			fmt.Fprintf(&b, "- %s - %s: $%.2f - %s\n",
				t.ID, t.Employee, t.Amount, t.Description)
		}
	}

	if len(violated) == 0 && len(s.FraudAlerts) == 0 {
		b.WriteString("\nNo violations or fraud alerts found for this query.\n")
	}

	b.WriteString("\n---\n")
	b.WriteString(Summary(s))
	return b.String()
}

func violatedTransactions(results []domain.TransactionResult) []domain.TransactionResult {
	var out []domain.TransactionResult
	for _, r := range results {
		if r.Flagged() {
			out = append(out, r)
		}
	}
	return out
}

func prefix[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func snippet(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut] + "..."
}
