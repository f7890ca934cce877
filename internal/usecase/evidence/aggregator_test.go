package evidence

import (
	"fmt"
	"strings"
	"testing"

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/domain/state"
)

func violation() domain.ComplianceViolation {
	return domain.ComplianceViolation{
		Kind: "limit_exceeded", RuleRef: "Section 1.3",
		Description: "amount above approval limit", Severity: domain.SeverityHigh,
	}
}

func TestBuild_CapsAreAppliedInArrivalOrder(t *testing.T) {
	s := state.New("who committed fraud?")
	for i := 0; i < 8; i++ {
		s.FraudAlerts = append(s.FraudAlerts, domain.FraudAlert{
			Kind: "smurfing", Employee: fmt.Sprintf("employee_%d", i),
		})
		s.TransactionResults = append(s.TransactionResults, domain.TransactionResult{
			Transaction: domain.Transaction{ID: fmt.Sprintf("TX%03d", i)},
			Violations:  []domain.ComplianceViolation{violation()},
		})
		s.EmailResults = append(s.EmailResults, domain.Email{Subject: fmt.Sprintf("mail %d", i)})
		s.PolicyContext = append(s.PolicyContext, domain.ScoredChunk{
			Chunk: domain.Chunk{Text: fmt.Sprintf("policy section %d", i)},
		})
	}

	p := Build(s)

	if len(p.FraudAlerts) != MaxFraudAlerts {
		t.Errorf("expected %d fraud alerts, got %d", MaxFraudAlerts, len(p.FraudAlerts))
	}
	if len(p.ViolatedTxs) != MaxViolatedTxs {
		t.Errorf("expected %d violated transactions, got %d", MaxViolatedTxs, len(p.ViolatedTxs))
	}
	if len(p.Emails) != MaxEmails {
		t.Errorf("expected %d emails, got %d", MaxEmails, len(p.Emails))
	}
	if len(p.PolicySnippets) != MaxPolicyChunks {
		t.Errorf("expected %d policy snippets, got %d", MaxPolicyChunks, len(p.PolicySnippets))
	}

	// First-N selection, never sampled.
	if p.FraudAlerts[0].Employee != "employee_0" || p.FraudAlerts[4].Employee != "employee_4" {
		t.Errorf("expected first-N fraud alerts, got %s..%s",
			p.FraudAlerts[0].Employee, p.FraudAlerts[4].Employee)
	}
	if p.ViolatedTxs[0].ID != "TX000" {
		t.Errorf("expected TX000 first, got %s", p.ViolatedTxs[0].ID)
	}

	// Stats reflect the uncapped totals.
	if p.Stats.FraudAlerts != 8 || p.Stats.Emails != 8 || p.Stats.ViolatedTxs != 8 {
		t.Errorf("expected uncapped stats, got %+v", p.Stats)
	}
}

func TestBuild_OnlyFlaggedTransactionsIncluded(t *testing.T) {
	s := state.New("any violations?")
	s.TransactionResults = []domain.TransactionResult{
		{Transaction: domain.Transaction{ID: "TX001"}},
		{Transaction: domain.Transaction{ID: "TX002"},
			Violations: []domain.ComplianceViolation{violation()}},
		{Transaction: domain.Transaction{ID: "TX003"}},
	}

	p := Build(s)

	if len(p.ViolatedTxs) != 1 || p.ViolatedTxs[0].ID != "TX002" {
		t.Fatalf("expected only TX002, got %+v", p.ViolatedTxs)
	}
	if p.Stats.Transactions != 3 || p.Stats.ViolatedTxs != 1 {
		t.Errorf("unexpected stats: %+v", p.Stats)
	}
}

func TestBuild_PolicySnippetsTruncated(t *testing.T) {
	s := state.New("q")
	s.PolicyContext = []domain.ScoredChunk{
		{Chunk: domain.Chunk{Text: strings.Repeat("x", 400)}},
	}

	p := Build(s)

	if len(p.PolicySnippets) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(p.PolicySnippets))
	}
	if len(p.PolicySnippets[0]) != PolicySnippetLen+len("...") {
		t.Errorf("expected truncated snippet, got %d chars", len(p.PolicySnippets[0]))
	}
}

func TestSummary_EmptyStateSaysNoEvidence(t *testing.T) {
	s := state.New("anything?")

	got := Summary(s)

	if !strings.Contains(got, "none") {
		t.Errorf("expected explicit no-evidence summary, got %q", got)
	}
}

func TestSummary_CountsTraceAndError(t *testing.T) {
	s := state.New("q")
	s.NodesVisited = []string{"router", "policy_retrieval", "synthesis"}
	s.PolicyContext = []domain.ScoredChunk{{}, {}}
	s.EmailResults = []domain.Email{{}}
	s.Err = "retrieval failed: index not loaded"

	got := Summary(s)

	for _, want := range []string{
		"router, policy_retrieval, synthesis",
		"2 policy sections",
		"1 emails",
		"Warning: retrieval failed: index not loaded",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestSummary_Deterministic(t *testing.T) {
	s := state.New("q")
	s.NodesVisited = []string{"router", "synthesis"}
	s.FraudAlerts = []domain.FraudAlert{{Kind: "smurfing"}}

	if Summary(s) != Summary(s) {
		t.Fatal("expected identical summaries for identical state")
	}
}

func TestFallbackAnswer_ListsEvidence(t *testing.T) {
	s := state.New("what did Ryan buy?")
	s.FraudAlerts = []domain.FraudAlert{{
		Kind: "smurfing", Employee: "Ryan Howard",
		Description: "3 same-day transactions totaling $600.00", TotalAmount: 600,
	}}
	s.TransactionResults = []domain.TransactionResult{{
		Transaction: domain.Transaction{
			ID: "TX002", Employee: "Ryan Howard",
			Description: "WUPHF subscription", Amount: 700,
		},
		Violations: []domain.ComplianceViolation{violation()},
	}}

	got := FallbackAnswer(s)

	for _, want := range []string{"Ryan Howard", "TX002", "$700.00", "smurfing"} {
		if !strings.Contains(got, want) {
			t.Errorf("fallback answer missing %q:\n%s", want, got)
		}
	}
}

func TestFallbackAnswer_EmptyEvidence(t *testing.T) {
	s := state.New("anything?")

	got := FallbackAnswer(s)

	if !strings.Contains(got, "No violations or fraud alerts found") {
		t.Errorf("expected explicit empty note, got:\n%s", got)
	}
}
