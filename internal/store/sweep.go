package store

import (
	"context"
	"time"

	"calibration-tracker/internal/model"
)

// FlagDueEquipment marks active equipment due on or before cutoff as pending calibration.
func (s *gormStore) FlagDueEquipment(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Equipment{}).
		Where("status = ? AND next_calibration_date IS NOT NULL AND next_calibration_date <= ?", model.EquipmentActive, cutoff).
		Update("status", model.EquipmentPendingCalibration)
	return res.RowsAffected, res.Error
}

// FlagOverdueOutgoing flags for_pickup records whose committed completion date has passed.
func (s *gormStore) FlagOverdueOutgoing(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.OutgoingRecord{}).
		Where("status = ? AND overdue = ? AND commit_etc IS NOT NULL AND commit_etc < ?", model.OutgoingForPickup, false, now).
		Update("overdue", true)
	return res.RowsAffected, res.Error
}
