// Package report builds the tracking report and renders it as a spreadsheet or PDF.
package report

import (
	"context"
	"fmt"

	"calibration-tracker/internal/store"
)

// Service assembles report rows from the store.
type Service struct {
	store store.Store
}

// NewService creates a report service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// Generate returns one row per matching incoming record, newest check-in first.
func (s *Service) Generate(ctx context.Context, f store.ReportFilter) ([]Row, error) {
	recs, err := s.store.Report(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	rows := make([]Row, 0, len(recs))
	for i := range recs {
		rows = append(rows, BuildRow(&recs[i]))
	}
	return rows, nil
}
