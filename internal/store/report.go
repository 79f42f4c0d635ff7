package store

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"calibration-tracker/internal/model"
)

// Report returns incoming records with every relation the report rows need, newest check-in first.
func (s *gormStore) Report(ctx context.Context, f ReportFilter) ([]model.IncomingRecord, error) {
	q := s.db.WithContext(ctx).
		Model(&model.IncomingRecord{}).
		Joins("LEFT JOIN equipment ON equipment.id = incoming_records.equipment_id").
		Preload("Equipment", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Technician").
		Preload("Location").
		Preload("EmployeeIn").
		Preload("EmployeeOut").
		Preload("Outgoing").
		Preload("Outgoing.EmployeeOut")

	q = applyReportFilter(q, f)

	var recs []model.IncomingRecord
	if err := q.
		Order("incoming_records.date_in DESC").
		Order("incoming_records.id DESC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func applyReportFilter(q *gorm.DB, f ReportFilter) *gorm.DB {
	if term := strings.TrimSpace(f.Search); term != "" {
		pat := likePattern(term)
		q = q.Where(
			"LOWER(incoming_records.recall_number) LIKE ? OR LOWER(incoming_records.description) LIKE ? OR "+
				"LOWER(equipment.serial_number) LIKE ? OR LOWER(equipment.description) LIKE ? OR "+
				"LOWER(equipment.model) LIKE ? OR LOWER(equipment.manufacturer) LIKE ?",
			pat, pat, pat, pat, pat, pat)
	}
	if name := strings.TrimSpace(f.EquipmentName); name != "" {
		q = q.Where("LOWER(equipment.description) LIKE ?", likePattern(name))
	}
	if recall := strings.TrimSpace(f.RecallNumber); recall != "" {
		q = q.Where("LOWER(incoming_records.recall_number) LIKE ?", likePattern(recall))
	}
	if f.Status != "" {
		q = q.Where("incoming_records.status = ?", f.Status)
	}
	if f.TechnicianID != nil {
		q = q.Where("incoming_records.technician_id = ?", *f.TechnicianID)
	}
	if f.LocationID != nil {
		q = q.Where("incoming_records.location_id = ?", *f.LocationID)
	}
	if f.DateFrom != nil {
		q = q.Where("incoming_records.date_in >= ?", f.DateFrom.UTC())
	}
	if f.DateTo != nil {
		q = q.Where("incoming_records.date_in <= ?", f.DateTo.UTC())
	}
	return q
}
