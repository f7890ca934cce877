// Package rules implements the deterministic compliance rule engine
// applied to ledger transactions. Evaluation is a pure function of the
// transaction fields and the static rule set.
package rules

import (
	"fmt"
	"strings"

	"github.com/scranton-labs/auditdex/internal/domain"
)

// Approval thresholds from the expense policy, Section 1.
const (
	// EmployeeAutonomyLimit is the amount an employee may spend without approval.
	EmployeeAutonomyLimit = 50.00
	// PurchaseOrderLimit is the amount above which a CFO-approved
	// purchase order is required.
	PurchaseOrderLimit = 500.00
	// MiscellaneousFloor is the largest amount acceptable under the
	// catch-all category.
	MiscellaneousFloor = 5.00
	// SmurfingThreshold is the default same-day aggregate that flags
	// split transactions.
	SmurfingThreshold = 500.00
)

// bannedRule maps a description keyword to the policy section it violates.
type bannedRule struct {
	ruleRef string
	reason  string
}

// Keyword table from the banned-items list, Section 3. Matching is
// case-insensitive substring over the transaction description.
var bannedItems = map[string]bannedRule{
	"magic":        {"Section 3.1", "Magic or entertainment kit is not a valid expense"},
	"handcuffs":    {"Section 3.1", "Entertainment equipment is prohibited"},
	"houdini":      {"Section 3.1", "Entertainment equipment is prohibited"},
	"karaoke":      {"Section 3.1", "Entertainment equipment is prohibited"},
	"toy":          {"Section 3.1", "Toys are not a valid expense"},
	"helicopter":   {"Section 3.1", "Toys are not a valid expense"},
	"weapon":       {"Section 3.2", "Weaponry is prohibited"},
	"airsoft":      {"Section 3.2", "Weaponry is prohibited"},
	"ninja":        {"Section 3.2", "Weaponry is prohibited"},
	"nunchaku":     {"Section 3.2", "Weaponry is prohibited"},
	"mantrap":      {"Section 3.2", "Traps are prohibited"},
	"surveillance": {"Section 3.2", "Unauthorized surveillance equipment"},
	"binoculars":   {"Section 3.2", "Surveillance equipment"},
	"night vision": {"Section 3.2", "Tactical equipment is prohibited"},
	"wuphf":        {"Section 3.3", "Investment in a personal side business"},
	"startup":      {"Section 3.3", "Investment in a personal startup"},
	"candle":       {"Section 3.3", "Spouse or relative product - conflict of interest"},
	"serenity":     {"Section 3.3", "Spouse product - Serenity by Jan"},
	"beet":         {"Section 3.3", "Agritourism and farm products are prohibited"},
}

// bannedItemOrder fixes keyword evaluation order; map iteration order
// would make Evaluate non-deterministic.
var bannedItemOrder = []string{
	"magic", "handcuffs", "houdini", "karaoke", "toy", "helicopter",
	"weapon", "airsoft", "ninja", "nunchaku", "mantrap",
	"surveillance", "binoculars", "night vision",
	"wuphf", "startup", "candle", "serenity", "beet",
}

// conflictOfInterestSection elevates severity for the designated
// conflict-of-interest rule section.
const conflictOfInterestSection = "Section 3.3"

// Venue denylist for meal expenses, Section 2.1.
var bannedVenues = []string{"hooters"}

// Vendor denylist, Section 3.3.
var suspectVendors = map[string]string{
	"wcs supplies":   "Unregistered vendor - possible fraud",
	"tech solutions": "Possible front for a personal expense",
	"a. sparkles":    "Personal veterinary expense",
	"sprinkles":      "Personal veterinary expense",
}

var suspectVendorOrder = []string{"wcs supplies", "tech solutions", "a. sparkles", "sprinkles"}

// Engine evaluates transactions against the static rule set.
// It is stateless and safe for concurrent use.
type Engine struct{}

// New creates a rule engine.
func New() *Engine { return &Engine{} }

// Evaluate applies every per-record rule to a single transaction in
// fixed order and returns the violations found. Calling it twice on an
// identical record yields an identical list.
func (e *Engine) Evaluate(tx domain.Transaction) []domain.ComplianceViolation {
	var out []domain.ComplianceViolation
	out = append(out, checkValueThreshold(tx)...)
	out = append(out, checkBannedItems(tx)...)
	out = append(out, checkBannedVenues(tx)...)
	out = append(out, checkSuspectVendors(tx)...)
	out = append(out, checkCategoryMisuse(tx)...)
	return out
}

// EvaluateAll evaluates every transaction in caller order, never
// reordering or deduplicating the input.
func (e *Engine) EvaluateAll(txs []domain.Transaction) []domain.TransactionResult {
	results := make([]domain.TransactionResult, len(txs))
	for i, tx := range txs {
		results[i] = domain.TransactionResult{Transaction: tx, Violations: e.Evaluate(tx)}
	}
	return results
}

// checkValueThreshold flags amounts above the purchase-order limit
// unless the role carries a manager designation. The mid band between
// the autonomy limit and the PO limit is deliberately not flagged:
// manager approval cannot be verified from ledger data alone.
func checkValueThreshold(tx domain.Transaction) []domain.ComplianceViolation {
	if tx.Amount <= PurchaseOrderLimit {
		return nil
	}
	if strings.Contains(strings.ToLower(tx.Role), "manager") {
		return nil
	}
	return []domain.ComplianceViolation{{
		Kind:    "limit_exceeded",
		RuleRef: "Section 1.3",
		Description: fmt.Sprintf(
			"Amount $%.2f exceeds the $%.2f limit and requires a CFO-approved purchase order",
			tx.Amount, PurchaseOrderLimit),
		Severity: domain.SeverityHigh,
	}}
}

func checkBannedItems(tx domain.Transaction) []domain.ComplianceViolation {
	desc := strings.ToLower(tx.Description)
	var out []domain.ComplianceViolation
	for _, keyword := range bannedItemOrder {
		if !strings.Contains(desc, keyword) {
			continue
		}
		rule := bannedItems[keyword]
		severity := domain.SeverityMedium
		if rule.ruleRef == conflictOfInterestSection {
			severity = domain.SeverityHigh
		}
		out = append(out, domain.ComplianceViolation{
			Kind:        "banned_item",
			RuleRef:     rule.ruleRef,
			Description: fmt.Sprintf("%s. Description: %q", rule.reason, tx.Description),
			Severity:    severity,
		})
	}
	return out
}

func checkBannedVenues(tx domain.Transaction) []domain.ComplianceViolation {
	desc := strings.ToLower(tx.Description)
	var out []domain.ComplianceViolation
	for _, venue := range bannedVenues {
		if strings.Contains(desc, venue) {
			out = append(out, domain.ComplianceViolation{
				Kind:        "banned_venue",
				RuleRef:     "Section 2.1",
				Description: fmt.Sprintf("Venue %q is on the banned venue list", venue),
				Severity:    domain.SeverityMedium,
			})
		}
	}
	return out
}

func checkSuspectVendors(tx domain.Transaction) []domain.ComplianceViolation {
	desc := strings.ToLower(tx.Description)
	var out []domain.ComplianceViolation
	for _, vendor := range suspectVendorOrder {
		if strings.Contains(desc, vendor) {
			out = append(out, domain.ComplianceViolation{
				Kind:        "suspect_vendor",
				RuleRef:     "Section 3.3",
				Description: fmt.Sprintf("%s. Vendor: %q", suspectVendors[vendor], vendor),
				Severity:    domain.SeverityHigh,
			})
		}
	}
	return out
}

func checkCategoryMisuse(tx domain.Transaction) []domain.ComplianceViolation {
	if !strings.EqualFold(tx.Category, "miscellaneous") || tx.Amount <= MiscellaneousFloor {
		return nil
	}
	return []domain.ComplianceViolation{{
		Kind:    "category_misuse",
		RuleRef: "Section 2",
		Description: fmt.Sprintf(
			"Category %q is not acceptable for amounts above $%.2f (amount $%.2f)",
			tx.Category, MiscellaneousFloor, tx.Amount),
		Severity: domain.SeverityLow,
	}}
}

// DetectSmurfing finds split transactions: if the employee has more
// than one transaction on the given date and the group sum exceeds
// threshold, every transaction in the group gets a critical smurfing
// violation citing the group total and count. This is the only
// cross-record rule; all others are per-record.
func (e *Engine) DetectSmurfing(
	txs []domain.Transaction, employee, date string, threshold float64,
) map[string][]domain.ComplianceViolation {
	needle := strings.ToLower(employee)

	var group []domain.Transaction
	var total float64
	for _, tx := range txs {
		if tx.Date != date || !strings.Contains(strings.ToLower(tx.Employee), needle) {
			continue
		}
		group = append(group, tx)
		total += tx.Amount
	}

	if len(group) <= 1 || total <= threshold {
		return nil
	}

	violation := domain.ComplianceViolation{
		Kind:    "smurfing",
		RuleRef: "Section 1.3",
		Description: fmt.Sprintf(
			"Possible split transactions: %d transactions on %s totaling $%.2f",
			len(group), date, total),
		Severity: domain.SeverityCritical,
	}

	out := make(map[string][]domain.ComplianceViolation, len(group))
	for _, tx := range group {
		out[tx.ID] = append(out[tx.ID], violation)
	}
	return out
}

// SmurfingDates returns the distinct dates on which the employee has
// transactions, in first-seen order, for scanning a full ledger slice.
func SmurfingDates(txs []domain.Transaction, employee string) []string {
	needle := strings.ToLower(employee)
	seen := make(map[string]bool)
	var dates []string
	for _, tx := range txs {
		if !strings.Contains(strings.ToLower(tx.Employee), needle) {
			continue
		}
		if !seen[tx.Date] {
			seen[tx.Date] = true
			dates = append(dates, tx.Date)
		}
	}
	return dates
}
