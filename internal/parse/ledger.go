package parse

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/scranton-labs/auditdex/internal/domain"
)

// ledgerColumns is the fixed CSV header of the transaction ledger.
var ledgerColumns = []string{"id", "date", "employee", "role", "description", "amount", "category", "department"}

// RowError reports a single ledger row that could not be coerced.
// The row is skipped; the rest of the ledger is still parsed.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("ledger row %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return domain.ErrRuleEvaluation }

// Ledger parses the transaction ledger CSV. Malformed rows (wrong
// field count, unparsable amount) are returned as RowErrors alongside
// the successfully parsed transactions, never as a hard failure.
func Ledger(content string) ([]domain.Transaction, []RowError) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, []RowError{{Line: 0, Err: err}}
	}
	if len(records) == 0 {
		return nil, nil
	}

	start := 0
	if isLedgerHeader(records[0]) {
		start = 1
	}

	var txs []domain.Transaction
	var rowErrs []RowError

	for i, rec := range records[start:] {
		line := start + i + 1
		tx, err := parseLedgerRow(rec)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		txs = append(txs, tx)
	}

	return txs, rowErrs
}

func isLedgerHeader(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), ledgerColumns[0])
}

func parseLedgerRow(rec []string) (domain.Transaction, error) {
	if len(rec) != len(ledgerColumns) {
		return domain.Transaction{}, fmt.Errorf("expected %d fields, got %d", len(ledgerColumns), len(rec))
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(rec[5]), 64)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("amount %q: %w", rec[5], err)
	}

	date := strings.TrimSpace(rec[1])
	if _, err := parseLedgerDate(date); err != nil {
		return domain.Transaction{}, fmt.Errorf("date %q: %w", rec[1], err)
	}

	return domain.Transaction{
		ID:          strings.TrimSpace(rec[0]),
		Date:        date,
		Employee:    strings.TrimSpace(rec[2]),
		Role:        strings.TrimSpace(rec[3]),
		Description: strings.TrimSpace(rec[4]),
		Amount:      amount,
		Category:    strings.TrimSpace(rec[6]),
		Department:  strings.TrimSpace(rec[7]),
	}, nil
}

func parseLedgerDate(s string) (string, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return "", fmt.Errorf("want YYYY-MM-DD")
	}
	for i, c := range s {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return "", fmt.Errorf("want YYYY-MM-DD")
		}
	}
	return s, nil
}

// EncodeLedger serializes transactions back to ledger CSV, header
// included. Ledger(EncodeLedger(txs)) round-trips.
func EncodeLedger(txs []domain.Transaction) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write(ledgerColumns); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txs {
		rec := []string{
			tx.ID, tx.Date, tx.Employee, tx.Role, tx.Description,
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			tx.Category, tx.Department,
		}
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("write row %s: %w", tx.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush: %w", err)
	}
	return b.String(), nil
}
