package parse

import (
	"reflect"
	"testing"

	"github.com/scranton-labs/auditdex/internal/domain"
)

const sampleLedger = `id,date,employee,role,description,amount,category,department
TX001,2024-01-10,Michael Scott,Regional Manager,Magic kit for office party,89.99,Supplies,Management
TX002,2024-01-12,Ryan Howard,Temp,WUPHF subscription,700.00,Software,Sales
TX003,2024-01-12,Dwight Schrute,Assistant Regional Manager,Beet farm supplies from Schrute Farms,45.50,Miscellaneous,Sales
`

func TestLedger_ParsesRows(t *testing.T) {
	txs, rowErrs := Ledger(sampleLedger)

	if len(rowErrs) != 0 {
		t.Fatalf("unexpected row errors: %v", rowErrs)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}

	want := domain.Transaction{
		ID: "TX002", Date: "2024-01-12", Employee: "Ryan Howard", Role: "Temp",
		Description: "WUPHF subscription", Amount: 700.00, Category: "Software", Department: "Sales",
	}
	if !reflect.DeepEqual(txs[1], want) {
		t.Errorf("tx = %+v, want %+v", txs[1], want)
	}
}

func TestLedger_SkipsMalformedRowsAndKeepsRest(t *testing.T) {
	bad := "id,date,employee,role,description,amount,category,department\n" +
		"TX001,2024-01-10,Michael Scott,Regional Manager,Paper,12.00,Supplies,Management\n" +
		"TX002,2024-01-11,Jim Halpert,Salesman,Stapler in jello,not-a-number,Supplies,Sales\n" +
		"TX003,January 12,Pam Beesly,Receptionist,Art supplies,30.00,Supplies,Reception\n" +
		"TX004,2024-01-13,Stanley Hudson,Salesman,Crossword books,9.50,Supplies,Sales\n"

	txs, rowErrs := Ledger(bad)

	if len(txs) != 2 {
		t.Fatalf("expected 2 good rows, got %d", len(txs))
	}
	if txs[0].ID != "TX001" || txs[1].ID != "TX004" {
		t.Errorf("wrong surviving rows: %v", txs)
	}
	if len(rowErrs) != 2 {
		t.Fatalf("expected 2 row errors, got %d: %v", len(rowErrs), rowErrs)
	}
	for _, re := range rowErrs {
		if re.Line == 0 {
			t.Errorf("row error without line: %v", re)
		}
	}
}

func TestLedger_RoundTrip(t *testing.T) {
	txs, rowErrs := Ledger(sampleLedger)
	if len(rowErrs) != 0 {
		t.Fatalf("unexpected row errors: %v", rowErrs)
	}

	encoded, err := EncodeLedger(txs)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, rowErrs := Ledger(encoded)
	if len(rowErrs) != 0 {
		t.Fatalf("round-trip row errors: %v", rowErrs)
	}
	if !reflect.DeepEqual(decoded, txs) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, txs)
	}
}
