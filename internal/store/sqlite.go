package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"plumsim/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bars (
		ticker    TEXT NOT NULL,
		period    TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		open      REAL NOT NULL,
		high      REAL NOT NULL,
		low       REAL NOT NULL,
		close     REAL NOT NULL,
		volume    INTEGER NOT NULL,
		PRIMARY KEY (ticker, period, timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_bars_lookup ON bars(ticker, period, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveBars upserts bars for one ticker and period.
func (s *SQLiteStore) SaveBars(ctx context.Context, ticker, period string, bars []models.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (ticker, period, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, ticker, period, b.Date.Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("inserting bar: %w", err)
		}
	}
	return tx.Commit()
}

// GetBars returns bars in [from, to] ascending. Zero bounds are open.
func (s *SQLiteStore) GetBars(ctx context.Context, ticker, period string, from, to time.Time) ([]models.Bar, error) {
	query := `SELECT timestamp, open, high, low, close, volume FROM bars
		WHERE ticker = ? AND period = ?`
	args := []interface{}{ticker, period}
	if !from.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, from.Unix())
	}
	if !to.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, to.Unix())
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var ts int64
		var b models.Bar
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scanning bar: %w", err)
		}
		b.Date = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// GetFreshness returns the newest stored timestamp for a series.
func (s *SQLiteStore) GetFreshness(ctx context.Context, ticker, period string) (time.Time, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(timestamp) FROM bars WHERE ticker = ? AND period = ?`,
		ticker, period).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("querying freshness: %w", err)
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
