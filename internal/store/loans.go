package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"calibration-tracker/internal/model"
)

func (s *gormStore) TrackingRecallExists(ctx context.Context, recall string) (bool, error) {
	return exists(s.db.WithContext(ctx).Unscoped(), &model.TrackingRecord{}, "recall_number = ?", recall)
}

// FindOpenLoan returns the self-service row still waiting for its check-in.
func (s *gormStore) FindOpenLoan(ctx context.Context, equipmentID uint) (*model.TrackingRecord, error) {
	var rec model.TrackingRecord
	err := s.db.WithContext(ctx).
		Where("equipment_id = ? AND date_in IS NULL", equipmentID).
		Order("id DESC").
		First(&rec).Error
	if err != nil {
		if err = notFound(err); err == ErrNotFound {
			return nil, ErrNoOpenLoan
		}
		return nil, err
	}
	return &rec, nil
}

// OpenLoan inserts a new self-service row unless the equipment already has an open one.
func (s *gormStore) OpenLoan(ctx context.Context, rec *model.TrackingRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var eq model.Equipment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&eq, rec.EquipmentID).Error; err != nil {
			return notFound(err)
		}
		open, err := exists(tx, &model.TrackingRecord{}, "equipment_id = ? AND date_in IS NULL", rec.EquipmentID)
		if err != nil {
			return err
		}
		if open {
			return ErrOpenLoanExists
		}
		if err := tx.Create(rec).Error; errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrOpenLoanExists
		} else if err != nil {
			return fmt.Errorf("failed to open loan for equipment %d: %w", rec.EquipmentID, err)
		}
		return nil
	})
}

// CloseLoan stamps the check-in on an open row. A row closed concurrently yields ErrNoOpenLoan.
func (s *gormStore) CloseLoan(ctx context.Context, p CloseLoanParams) (*model.TrackingRecord, error) {
	var rec model.TrackingRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"date_in":        p.At,
			"employee_in_id": p.EmployeeInID,
			"location_id":    p.LocationID,
			"cycle_time":     p.CycleTime,
		}
		if p.Description != "" {
			updates["description"] = p.Description
		}
		res := tx.Model(&model.TrackingRecord{}).
			Where("id = ? AND date_in IS NULL", p.RecordID).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to close loan %d: %w", p.RecordID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNoOpenLoan
		}
		return tx.First(&rec, p.RecordID).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
