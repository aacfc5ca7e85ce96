// Package storage persists the export run ledger in SQLite: one row per
// pipeline run plus one row per exported order, as seen by the most recent
// run. The ledger feeds the API server; the export pipeline itself never
// reads from it.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for the export ledger.
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// StartRun records a new export run in the running state
func (s *Storage) StartRun(run *ExportRun) error {
	_, err := s.db.Exec(`
	INSERT INTO export_runs (id, started_at, status, itemized_path, pivot_path)
	VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, RunStatusRunning, run.ItemizedPath, run.PivotPath)
	return err
}

// FinishRun marks a run complete with its final status and counts
func (s *Storage) FinishRun(run *ExportRun) error {
	now := time.Now()
	run.FinishedAt = &now
	_, err := s.db.Exec(`
	UPDATE export_runs
	SET finished_at = ?, status = ?, error_message = ?,
	    order_count = ?, row_count = ?, warning_count = ?
	WHERE id = ?`,
		run.FinishedAt, run.Status, run.ErrorMessage,
		run.OrderCount, run.RowCount, run.WarningCount, run.ID)
	return err
}

// GetRun retrieves a run by ID; nil when absent
func (s *Storage) GetRun(id string) (*ExportRun, error) {
	run := &ExportRun{}
	var finishedAt sql.NullTime
	err := s.db.QueryRow(`
	SELECT id, started_at, finished_at, status, error_message,
	       order_count, row_count, warning_count, itemized_path, pivot_path
	FROM export_runs WHERE id = ?`, id).Scan(
		&run.ID, &run.StartedAt, &finishedAt, &run.Status, &run.ErrorMessage,
		&run.OrderCount, &run.RowCount, &run.WarningCount, &run.ItemizedPath, &run.PivotPath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first
func (s *Storage) ListRuns(limit int) ([]*ExportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
	SELECT id, started_at, finished_at, status, error_message,
	       order_count, row_count, warning_count, itemized_path, pivot_path
	FROM export_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*ExportRun
	for rows.Next() {
		run := &ExportRun{}
		var finishedAt sql.NullTime
		if err := rows.Scan(
			&run.ID, &run.StartedAt, &finishedAt, &run.Status, &run.ErrorMessage,
			&run.OrderCount, &run.RowCount, &run.WarningCount, &run.ItemizedPath, &run.PivotPath); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveOrderRecord upserts one exported order
func (s *Storage) SaveOrderRecord(record *OrderRecord) error {
	_, err := s.db.Exec(`
	INSERT OR REPLACE INTO order_records
	(order_id, run_id, order_date, store, item_count, person_count, items_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.OrderID, record.RunID, record.OrderDate, record.Store,
		record.ItemCount, record.PersonCount, record.ItemsJSON)
	return err
}

// GetOrderRecord retrieves one exported order by ID; nil when absent
func (s *Storage) GetOrderRecord(orderID string) (*OrderRecord, error) {
	record := &OrderRecord{}
	err := s.db.QueryRow(`
	SELECT order_id, run_id, order_date, store, item_count, person_count, items_json
	FROM order_records WHERE order_id = ?`, orderID).Scan(
		&record.OrderID, &record.RunID, &record.OrderDate, &record.Store,
		&record.ItemCount, &record.PersonCount, &record.ItemsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListOrderRecords returns exported orders, newest order date first
func (s *Storage) ListOrderRecords(limit, offset int) ([]*OrderRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
	SELECT order_id, run_id, order_date, store, item_count, person_count, items_json
	FROM order_records ORDER BY order_date DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*OrderRecord
	for rows.Next() {
		record := &OrderRecord{}
		if err := rows.Scan(
			&record.OrderID, &record.RunID, &record.OrderDate, &record.Store,
			&record.ItemCount, &record.PersonCount, &record.ItemsJSON); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// GetStats returns ledger-wide totals
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRow(`
	SELECT COUNT(*),
	       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(row_count), 0)
	FROM export_runs`, RunStatusSuccess, RunStatusError).Scan(
		&stats.TotalRuns, &stats.SuccessCount, &stats.ErrorCount, &stats.TotalRows)
	if err != nil {
		return nil, err
	}

	// MAX(started_at) would lose the column's declared type and come back
	// as a bare string, so fetch the latest row directly.
	var lastRun time.Time
	err = s.db.QueryRow(`
	SELECT started_at FROM export_runs ORDER BY started_at DESC LIMIT 1`).Scan(&lastRun)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		stats.LastRunAt = &lastRun
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM order_records`).Scan(&stats.TotalOrders); err != nil {
		return nil, err
	}
	return stats, nil
}
