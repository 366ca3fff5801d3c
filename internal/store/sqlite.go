package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/gossip/internal/constants"
	"github.com/nvandessel/gossip/internal/gossip"
	"github.com/nvandessel/gossip/internal/report"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteResultStore implements ResultStore using SQLite for persistence.
type SQLiteResultStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

var _ ResultStore = (*SQLiteResultStore)(nil)

// NewSQLiteResultStore opens (or creates) dataDir/gossip.db.
func NewSQLiteResultStore(dataDir string) (*SQLiteResultStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, constants.DatabaseFileName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteResultStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteResultStore) Path() string { return s.dbPath }

// Write stores rec, registering its batch on first use.
func (s *SQLiteResultStore) Write(ctx context.Context, rec report.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.BatchID == "" {
		return fmt.Errorf("batch ID is required")
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	ts := createdAt.UTC().Format(timeLayout)

	counts, err := json.Marshal(rec.FinalCounts)
	if err != nil {
		return fmt.Errorf("failed to encode final counts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO batches (id, created_at) VALUES (?, ?)`,
		rec.BatchID, ts); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO results (
			batch_id, trial, protocol, rounds_taken, average_contacts,
			total_messages_known, total_contacts, converged, final_counts, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BatchID, rec.Trial, string(rec.Protocol), rec.RoundsTaken, rec.AverageContactsPerAgent,
		rec.TotalMessagesKnown, rec.TotalContacts, boolToInt(rec.Converged), string(counts), ts,
	); err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}

	return tx.Commit()
}

// ListBatches returns all batches, newest first.
func (s *SQLiteResultStore) ListBatches(ctx context.Context) ([]BatchInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.created_at, COUNT(r.id)
		FROM batches b
		LEFT JOIN results r ON r.batch_id = b.id
		GROUP BY b.id, b.created_at
		ORDER BY b.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	batches := make([]BatchInfo, 0)
	for rows.Next() {
		var b BatchInfo
		var createdAt string
		if err := rows.Scan(&b.ID, &createdAt, &b.Records); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		b.CreatedAt = parseTime(createdAt)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Results returns the records of a batch in insertion order.
func (s *SQLiteResultStore) Results(ctx context.Context, batchID string) ([]report.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, trial, protocol, rounds_taken, average_contacts,
		       total_messages_known, total_contacts, converged, final_counts, created_at
		FROM results
		WHERE batch_id = ?
		ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	records := make([]report.Record, 0)
	for rows.Next() {
		var (
			rec       report.Record
			protocol  string
			converged int
			counts    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&rec.BatchID, &rec.Trial, &protocol, &rec.RoundsTaken, &rec.AverageContactsPerAgent,
			&rec.TotalMessagesKnown, &rec.TotalContacts, &converged, &counts, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.Protocol = gossip.Protocol(protocol)
		rec.Converged = converged != 0
		rec.CreatedAt = parseTime(createdAt)
		if counts.Valid && counts.String != "" && counts.String != "null" {
			if err := json.Unmarshal([]byte(counts.String), &rec.FinalCounts); err != nil {
				return nil, fmt.Errorf("failed to decode final counts: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *SQLiteResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timeLayout keeps every fraction digit so stored timestamps sort as text
// in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
