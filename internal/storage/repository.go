// Package storage persists expense records in SQLite. Dates are stored as
// YYYY-MM-DD text and timestamps as RFC 3339 text, so lexicographic order
// matches chronological order.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"khoroch/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no expense exists with the requested ID.
var ErrNotFound = errors.New("expense not found")

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations. Pass ":memory:" for an ephemeral database.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// A single connection keeps :memory: databases intact and sidesteps
	// SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateExpense inserts a new record and returns it with its assigned ID
// and timestamps. The expense must already be validated.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (title, amount_cents, date, category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Title, e.Amount.Cents, e.Date.String(), string(e.Category),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("last insert id: %w", err)
	}

	e.ID = id
	e.CreatedAt = now
	e.UpdatedAt = now

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"title", e.Title,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)

	return e, nil
}

// GetExpense returns the expense with the given ID, or ErrNotFound.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, amount_cents, date, category, created_at, updated_at
		 FROM expenses WHERE id = ?`, id)
	return scanExpense(row)
}

// UpdateExpense replaces the mutable fields of an existing record and
// returns the updated row. Returns ErrNotFound when the ID does not exist.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id int64, e core.Expense) (core.Expense, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET title = ?, amount_cents = ?, date = ?, category = ?, updated_at = ?
		 WHERE id = ?`,
		e.Title, e.Amount.Cents, e.Date.String(), string(e.Category),
		now.Format(time.RFC3339Nano), id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.Expense{}, ErrNotFound
	}

	return r.GetExpense(ctx, id)
}

// DeleteExpense removes the record with the given ID and returns it as it
// was before deletion. Returns ErrNotFound when the ID does not exist.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) (core.Expense, error) {
	deleted, err := r.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id, "title", deleted.Title)
	return deleted, nil
}

// ListExpenses returns all records, newest date first. Records sharing a
// date come back newest insertion first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, amount_cents, date, category, created_at, updated_at
		 FROM expenses ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	return expenses, nil
}

// RecordEvent appends a row to the audit trail.
func (r *SQLiteRepository) RecordEvent(ctx context.Context, expenseID int64, action string, occurredAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_events (expense_id, action, occurred_at, recorded_at)
		 VALUES (?, ?, ?, ?)`,
		expenseID, action,
		occurredAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// AuditEvent is one row of the audit trail.
type AuditEvent struct {
	ID         int64
	ExpenseID  int64
	Action     string
	OccurredAt time.Time
	RecordedAt time.Time
}

// ListEvents returns the most recent audit rows, newest first.
func (r *SQLiteRepository) ListEvents(ctx context.Context, limit int) ([]AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, expense_id, action, occurred_at, recorded_at
		 FROM expense_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]AuditEvent, 0)
	for rows.Next() {
		var ev AuditEvent
		var occurred, recorded string
		if err := rows.Scan(&ev.ID, &ev.ExpenseID, &ev.Action, &occurred, &recorded); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.OccurredAt, err = time.Parse(time.RFC3339Nano, occurred); err != nil {
			return nil, fmt.Errorf("parse occurred_at: %w", err)
		}
		if ev.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e        core.Expense
		category string
		date     string
		created  string
		updated  string
	)
	err := row.Scan(&e.ID, &e.Title, &e.Amount.Cents, &date, &category, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}

	e.Category = core.Category(category)
	if e.Date, err = core.ParseDate(date); err != nil {
		return core.Expense{}, fmt.Errorf("parse date: %w", err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return core.Expense{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return e, nil
}
