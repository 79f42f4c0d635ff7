package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"calibration-tracker/internal/model"
)

func (s *gormStore) CreateEquipment(ctx context.Context, e *model.Equipment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createEquipment(tx, e)
	})
}

// createEquipment inserts e after checking the serial against every row, archived ones included.
func createEquipment(tx *gorm.DB, e *model.Equipment) error {
	taken, err := exists(tx.Unscoped(), &model.Equipment{}, "serial_number = ?", e.SerialNumber)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateSerial
	}
	if e.Status == "" {
		e.Status = model.EquipmentActive
	}
	// A concurrent insert can still win the unique index after the check above.
	if err := tx.Create(e).Error; errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSerial
	} else if err != nil {
		return fmt.Errorf("failed to create equipment %q: %w", e.SerialNumber, err)
	}
	return nil
}

func (s *gormStore) FindEquipment(ctx context.Context, id uint, withArchived bool) (*model.Equipment, error) {
	q := s.db.WithContext(ctx)
	if withArchived {
		q = q.Unscoped()
	}
	var e model.Equipment
	if err := q.Preload("AssignedUser").First(&e, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *gormStore) ListEquipment(ctx context.Context, q EquipmentQuery) ([]model.Equipment, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 50
	}

	tx := s.db.WithContext(ctx).Model(&model.Equipment{})
	if q.WithArchived {
		tx = tx.Unscoped()
	}
	if term := strings.TrimSpace(q.Q); term != "" {
		pat := likePattern(term)
		tx = tx.Where("LOWER(serial_number) LIKE ? OR LOWER(description) LIKE ? OR LOWER(model) LIKE ? OR LOWER(manufacturer) LIKE ?",
			pat, pat, pat, pat)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []model.Equipment
	if err := tx.
		Order("created_at DESC").Order("id DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *gormStore) UpdateEquipment(ctx context.Context, id uint, fields map[string]any) (*model.Equipment, error) {
	var e model.Equipment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&e, id).Error; err != nil {
			return notFound(err)
		}
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(&e).Updates(fields).Error; err != nil {
			return fmt.Errorf("failed to update equipment %d: %w", id, err)
		}
		return tx.First(&e, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *gormStore) ArchiveEquipment(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Equipment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) RestoreEquipment(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Unscoped().Model(&model.Equipment{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) SerialExists(ctx context.Context, serial string) (bool, error) {
	return exists(s.db.WithContext(ctx).Unscoped(), &model.Equipment{}, "serial_number = ?", strings.TrimSpace(serial))
}
