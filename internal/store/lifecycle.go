package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"calibration-tracker/internal/model"
)

func (s *gormStore) RecallExists(ctx context.Context, recall string) (bool, error) {
	return exists(s.db.WithContext(ctx).Unscoped(), &model.IncomingRecord{}, "recall_number = ?", recall)
}

// FindIncoming loads an incoming record with its location and outgoing row.
func (s *gormStore) FindIncoming(ctx context.Context, id uint) (*model.IncomingRecord, error) {
	var rec model.IncomingRecord
	if err := s.db.WithContext(ctx).
		Preload("Location").
		Preload("Outgoing").
		First(&rec, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// CheckIn optionally registers equipment and opens an incoming record in one transaction.
func (s *gormStore) CheckIn(ctx context.Context, p CheckInParams) (*model.Equipment, *model.IncomingRecord, error) {
	var eq *model.Equipment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.NewEquipment != nil {
			if err := createEquipment(tx, p.NewEquipment); err != nil {
				return err
			}
			eq = p.NewEquipment
			p.Record.EquipmentID = &eq.ID
		} else {
			if p.Record.EquipmentID == nil {
				return fmt.Errorf("check-in without equipment")
			}
			var existing model.Equipment
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing, *p.Record.EquipmentID).Error; err != nil {
				return notFound(err)
			}
			eq = &existing
		}

		if err := tx.Create(p.Record).Error; err != nil {
			return fmt.Errorf("failed to create incoming record: %w", err)
		}

		if err := tx.Model(eq).Update("status", model.EquipmentInCalibration).Error; err != nil {
			return fmt.Errorf("failed to mark equipment %d in calibration: %w", eq.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return eq, p.Record, nil
}

// CheckOut closes an incoming record, writes its outgoing row and opens the next cycle, atomically.
// The incoming row is locked and the date_out guard is re-checked inside the transaction.
func (s *gormStore) CheckOut(ctx context.Context, p CheckOutParams) (*CheckOutResult, error) {
	var res CheckOutResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.IncomingRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, p.IncomingID).Error; err != nil {
			return notFound(err)
		}
		if rec.DateOut != nil {
			return ErrAlreadyReleased
		}

		at := p.At
		updates := map[string]any{
			"date_out":        at,
			"employee_out_id": p.EmployeeOutID,
			"cycle_time":      p.CycleTime,
			"status":          model.IncomingReleased,
		}
		if p.Description != nil {
			updates["description"] = *p.Description
		}
		upd := tx.Model(&model.IncomingRecord{}).
			Where("id = ? AND date_out IS NULL", rec.ID).
			Updates(updates)
		if upd.Error != nil {
			return fmt.Errorf("failed to close incoming record %d: %w", rec.ID, upd.Error)
		}
		if upd.RowsAffected == 0 {
			return ErrAlreadyReleased
		}

		calDate := p.CalDate
		if calDate.IsZero() {
			calDate = dateOf(at)
		}
		out := &model.OutgoingRecord{
			IncomingID:    rec.ID,
			CalDate:       calDate,
			CalDueDate:    p.NextDueDate,
			DateOut:       at,
			EmployeeOutID: p.EmployeeOutID,
			CycleTime:     p.CycleTime,
			CTReqd:        p.CTReqd,
			CommitETC:     p.CommitETC,
			ActualETC:     p.ActualETC,
			Overdue:       p.CTReqd > 0 && p.CycleTime > p.CTReqd,
			Status:        model.OutgoingForPickup,
		}
		if err := tx.Create(out).Error; err != nil {
			return fmt.Errorf("failed to create outgoing record for incoming %d: %w", rec.ID, err)
		}

		recall := p.NextRecall
		next := &model.IncomingRecord{
			RecallNumber: &recall,
			EquipmentID:  rec.EquipmentID,
			TechnicianID: rec.TechnicianID,
			LocationID:   rec.LocationID,
			EmployeeInID: p.EmployeeOutID,
			CalDate:      calDate,
			CalDueDate:   p.NextDueDate,
			DateIn:       at,
			CycleTime:    0,
			Status:       model.IncomingReceived,
			SerialNumber: rec.SerialNumber,
			Model:        rec.Model,
			Manufacturer: rec.Manufacturer,
		}
		if err := tx.Create(next).Error; err != nil {
			return fmt.Errorf("failed to open next incoming record after %d: %w", rec.ID, err)
		}

		if rec.EquipmentID != nil {
			if err := tx.Model(&model.Equipment{}).Where("id = ?", *rec.EquipmentID).Updates(map[string]any{
				"status":                model.EquipmentActive,
				"last_calibration_date": calDate,
				"next_calibration_date": p.NextDueDate,
			}).Error; err != nil {
				return fmt.Errorf("failed to update equipment %d: %w", *rec.EquipmentID, err)
			}
		}

		if err := tx.First(&rec, rec.ID).Error; err != nil {
			return err
		}
		res = CheckOutResult{Closed: &rec, Outgoing: out, Next: next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// StartCalibration moves an open incoming record to in_calibration.
func (s *gormStore) StartCalibration(ctx context.Context, incomingID uint) error {
	res := s.db.WithContext(ctx).Model(&model.IncomingRecord{}).
		Where("id = ? AND date_out IS NULL", incomingID).
		Update("status", model.IncomingInCalibration)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyReleased
	}
	return nil
}

func (s *gormStore) FindOutgoing(ctx context.Context, id uint) (*model.OutgoingRecord, error) {
	var out model.OutgoingRecord
	if err := s.db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

// CompleteOutgoing marks a for_pickup outgoing record as completed.
func (s *gormStore) CompleteOutgoing(ctx context.Context, id uint) (*model.OutgoingRecord, error) {
	var out model.OutgoingRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.OutgoingRecord{}).
			Where("id = ? AND status = ?", id, model.OutgoingForPickup).
			Update("status", model.OutgoingCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.First(&out, id).Error; err != nil {
				return notFound(err)
			}
			return ErrAlreadyCompleted
		}
		return tx.First(&out, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// dateOf truncates t to midnight in its own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
