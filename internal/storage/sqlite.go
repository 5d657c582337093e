package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/shikibetsu/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteReportStore implements ReportStore using SQLite.
type SQLiteReportStore struct {
	db *sql.DB
}

// NewSQLiteReportStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteReportStore(dbPath string) (*SQLiteReportStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteReportStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS verification_reports (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		passed INTEGER NOT NULL,
		backends TEXT NOT NULL,
		gallery_labels INTEGER NOT NULL,
		target_label TEXT,
		warnings INTEGER NOT NULL,
		max_abs_diff REAL NOT NULL,
		body TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON verification_reports(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveReport inserts or replaces a report.
func (s *SQLiteReportStore) SaveReport(ctx context.Context, report *models.VerificationReport) error {
	if report.ID == "" {
		return fmt.Errorf("report has no id")
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	sum := Summarize(report)
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO verification_reports
		 (id, created_at, passed, backends, gallery_labels, target_label, warnings, max_abs_diff, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.CreatedAt, sum.Passed, strings.Join(sum.Backends, ","), sum.GalleryLabels,
		sum.TargetLabel, sum.Warnings, sum.MaxAbsDiff, string(body),
	)
	return err
}

// GetReport returns the full report by ID.
func (s *SQLiteReportStore) GetReport(ctx context.Context, id string) (*models.VerificationReport, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM verification_reports WHERE id = ?`, id,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var report models.VerificationReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", id, err)
	}
	return &report, nil
}

// ListReports returns report summaries, newest first.
func (s *SQLiteReportStore) ListReports(ctx context.Context, offset, limit int) ([]*ReportSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, passed, backends, gallery_labels, target_label, warnings, max_abs_diff
		 FROM verification_reports ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ReportSummary
	for rows.Next() {
		var sum ReportSummary
		var backends string
		var target sql.NullString
		if err := rows.Scan(&sum.ID, &sum.CreatedAt, &sum.Passed, &backends, &sum.GalleryLabels,
			&target, &sum.Warnings, &sum.MaxAbsDiff); err != nil {
			return nil, err
		}
		if backends != "" {
			sum.Backends = strings.Split(backends, ",")
		}
		sum.TargetLabel = target.String
		out = append(out, &sum)
	}
	return out, rows.Err()
}

// DeleteReport removes a report by ID.
func (s *SQLiteReportStore) DeleteReport(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM verification_reports WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return nil
}

// CountReports returns the number of stored reports.
func (s *SQLiteReportStore) CountReports(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verification_reports`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteReportStore) Close() error {
	return s.db.Close()
}
