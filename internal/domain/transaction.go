package domain

// Transaction is one parsed row of the transaction ledger.
type Transaction struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Employee    string  `json:"employee"`
	Role        string  `json:"role"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Department  string  `json:"department"`
}

// Severity grades a compliance finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ComplianceViolation is one rule finding against a transaction.
type ComplianceViolation struct {
	Kind        string   `json:"kind"`
	RuleRef     string   `json:"rule_ref"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// TransactionResult pairs a transaction with the violations found on it.
type TransactionResult struct {
	Transaction
	Violations []ComplianceViolation `json:"violations,omitempty"`
}

// Flagged reports whether any violation was recorded.
func (r TransactionResult) Flagged() bool {
	return len(r.Violations) > 0
}

// FraudAlert is a cross-record finding produced by the fraud
// correlation stage, with evidence references into both corpora.
type FraudAlert struct {
	Kind                   string   `json:"kind"`
	Severity               Severity `json:"severity"`
	Employee               string   `json:"employee"`
	Description            string   `json:"description"`
	EvidenceTransactionIDs []string `json:"evidence_transaction_ids,omitempty"`
	EvidenceEmailLines     []int    `json:"evidence_email_lines,omitempty"`
	TotalAmount            float64  `json:"total_amount"`
	RuleRef                string   `json:"rule_ref"`
}
