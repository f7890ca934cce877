// Package ledger stores the transaction corpus in an embedded SQLite
// database loaded from the CSV dump at startup. Queries from the
// pipeline are simple filters; SQL keeps them declarative and gives
// indexed lookups on employee and date for free.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/parse"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	date        TEXT NOT NULL,
	employee    TEXT NOT NULL,
	role        TEXT NOT NULL,
	description TEXT NOT NULL,
	amount      REAL NOT NULL,
	category    TEXT NOT NULL,
	department  TEXT NOT NULL,
	seq         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tx_employee ON transactions(employee COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_tx_date ON transactions(date);
`

// Repository is the SQL-backed transaction store.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates an in-memory transaction store and loads the ledger CSV
// into it. Malformed rows were already dropped by the parser.
func Open(csvPath string, logger *zap.Logger) (*Repository, error) {
	data, err := os.ReadFile(csvPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read ledger %s: %w", domain.ErrConfiguration, csvPath, err)
	}

	txs, rowErrs := parse.Ledger(string(data))
	for _, re := range rowErrs {
		logger.Warn("Skipping malformed ledger row", zap.Int("line", re.Line), zap.Error(re.Err))
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	db.SetMaxOpenConns(1) // single in-memory connection holds the data

	r := &Repository{db: db, logger: logger}
	if err := r.load(txs); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Ledger loaded",
		zap.Int("transactions", len(txs)),
		zap.Int("skipped_rows", len(rowErrs)),
	)
	return r, nil
}

// Close releases the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) load(txs []domain.Transaction) error {
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin ledger load: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO transactions
		(id, date, employee, role, description, amount, category, department, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range txs {
		if _, err := stmt.Exec(
			t.ID, t.Date, t.Employee, t.Role, t.Description,
			t.Amount, t.Category, t.Department, i,
		); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// All returns transactions in file order, up to limit (0 = no limit).
func (r *Repository) All(ctx context.Context, limit int) ([]domain.Transaction, error) {
	q := `SELECT id, date, employee, role, description, amount, category, department
		FROM transactions ORDER BY seq`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.query(ctx, q, args...)
}

// ByEmployee returns transactions whose employee name contains the
// given name, case-insensitive, in file order.
func (r *Repository) ByEmployee(ctx context.Context, name string) ([]domain.Transaction, error) {
	return r.query(ctx, `SELECT id, date, employee, role, description, amount, category, department
		FROM transactions
		WHERE instr(lower(employee), lower(?)) > 0
		ORDER BY seq`, name)
}

// ByEmployeeAndDate returns one employee's transactions on one day.
func (r *Repository) ByEmployeeAndDate(ctx context.Context, name, date string) ([]domain.Transaction, error) {
	return r.query(ctx, `SELECT id, date, employee, role, description, amount, category, department
		FROM transactions
		WHERE instr(lower(employee), lower(?)) > 0 AND date = ?
		ORDER BY seq`, name, date)
}

// HighValue returns transactions with amount strictly above the
// threshold, largest first.
func (r *Repository) HighValue(ctx context.Context, threshold float64) ([]domain.Transaction, error) {
	return r.query(ctx, `SELECT id, date, employee, role, description, amount, category, department
		FROM transactions
		WHERE amount > ?
		ORDER BY amount DESC, seq`, threshold)
}

// Count returns the number of loaded transactions.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.Date, &t.Employee, &t.Role, &t.Description,
			&t.Amount, &t.Category, &t.Department); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
