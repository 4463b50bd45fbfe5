package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

const dateLayout = "2006-01-02"

// SQLiteStore is the persistent Store implementation. Amounts are
// stored as decimal strings so no precision is lost round-tripping.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) CreateTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	tx.ID = uuid.New().String()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, kind, amount, currency, category, description, occurred_on, created_at, raw_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, string(tx.Kind), tx.Amount.String(), tx.Currency, tx.Category,
		tx.Description, tx.OccurredOn.Format(dateLayout), tx.CreatedAt.Format(time.RFC3339Nano), tx.RawText)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, amount, currency, category, description, occurred_on, created_at, raw_text
		 FROM transactions WHERE id = ?`, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, f Filter) ([]domain.Transaction, error) {
	query := `SELECT id, kind, amount, currency, category, description, occurred_on, created_at, raw_text
	          FROM transactions WHERE 1=1`
	var args []interface{}

	if !f.From.IsZero() {
		query += " AND occurred_on >= ?"
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		query += " AND occurred_on <= ?"
		args = append(args, f.To.Format(dateLayout))
	}
	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		query += " AND lower(category) LIKE ?"
		args = append(args, "%"+strings.ToLower(f.Category)+"%")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpsertBalance(ctx context.Context, b domain.AssetBalance) error {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO asset_balances (account_name, balance, currency, category, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(account_name) DO UPDATE SET
		   balance = excluded.balance,
		   currency = excluded.currency,
		   category = excluded.category,
		   updated_at = excluded.updated_at`,
		b.AccountName, b.Balance.String(), b.Currency, b.Category, b.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListBalances(ctx context.Context) ([]domain.AssetBalance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_name, balance, currency, category, updated_at
		 FROM asset_balances ORDER BY account_name`)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var out []domain.AssetBalance
	for rows.Next() {
		var b domain.AssetBalance
		var balance, updatedAt string
		if err := rows.Scan(&b.AccountName, &balance, &b.Currency, &b.Category, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		if b.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parse balance %q: %w", balance, err)
		}
		if b.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var tx domain.Transaction
	var kind, amount, occurredOn, createdAt string

	err := row.Scan(&tx.ID, &kind, &amount, &tx.Currency, &tx.Category,
		&tx.Description, &occurredOn, &createdAt, &tx.RawText)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx.Kind = domain.Kind(kind)
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if tx.OccurredOn, err = time.Parse(dateLayout, occurredOn); err != nil {
		return domain.Transaction{}, fmt.Errorf("parse occurred_on %q: %w", occurredOn, err)
	}
	if tx.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.Transaction{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return tx, nil
}
