// Package storage persists verification reports and measures model artifacts on disk.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/shikibetsu/internal/models"
)

// ErrReportNotFound is returned when no report has the requested ID.
var ErrReportNotFound = errors.New("report not found")

// ReportSummary is the indexed view of a stored verification report.
type ReportSummary struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Passed        bool      `json:"passed"`
	Backends      []string  `json:"backends"`
	GalleryLabels int       `json:"gallery_labels"`
	TargetLabel   string    `json:"target_label,omitempty"`
	Warnings      int       `json:"warnings"`
	// MaxAbsDiff is the largest cross-backend difference in the run, 0 for single-backend runs.
	MaxAbsDiff float64 `json:"max_abs_diff"`
}

// ReportStore defines verification report persistence operations.
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.VerificationReport) error
	GetReport(ctx context.Context, id string) (*models.VerificationReport, error)
	ListReports(ctx context.Context, offset, limit int) ([]*ReportSummary, error)
	DeleteReport(ctx context.Context, id string) error
	CountReports(ctx context.Context) (int64, error)

	Close() error
}

// Summarize builds the summary row for report.
func Summarize(report *models.VerificationReport) *ReportSummary {
	s := &ReportSummary{
		ID:            report.ID,
		CreatedAt:     report.CreatedAt,
		Passed:        report.Passed(),
		GalleryLabels: report.GalleryLabels,
		TargetLabel:   report.TargetLabel,
		Warnings:      len(report.Warnings),
		Backends:      make([]string, 0, len(report.Backends)),
	}
	for _, b := range report.Backends {
		s.Backends = append(s.Backends, b.Variant.Name)
	}
	for _, c := range report.Comparisons {
		if c.MaxAbsDiff > s.MaxAbsDiff {
			s.MaxAbsDiff = c.MaxAbsDiff
		}
	}
	return s
}
