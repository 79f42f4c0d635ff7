package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"calibration-tracker/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	ListDepartments(ctx context.Context) ([]model.Department, error)
	CreateDepartment(ctx context.Context, d *model.Department) error
	ListLocations(ctx context.Context) ([]model.Location, error)
	CreateLocation(ctx context.Context, l *model.Location) error
	FindLocation(ctx context.Context, id uint) (*model.Location, error)

	CreateUser(ctx context.Context, u *model.User) error
	FindUser(ctx context.Context, id uint) (*model.User, error)
	FindUserByEmployeeID(ctx context.Context, employeeID string) (*model.User, error)

	CreateEquipment(ctx context.Context, e *model.Equipment) error
	FindEquipment(ctx context.Context, id uint, withArchived bool) (*model.Equipment, error)
	ListEquipment(ctx context.Context, q EquipmentQuery) ([]model.Equipment, int64, error)
	UpdateEquipment(ctx context.Context, id uint, fields map[string]any) (*model.Equipment, error)
	ArchiveEquipment(ctx context.Context, id uint) error
	RestoreEquipment(ctx context.Context, id uint) error
	SerialExists(ctx context.Context, serial string) (bool, error)

	RecallExists(ctx context.Context, recall string) (bool, error)
	FindIncoming(ctx context.Context, id uint) (*model.IncomingRecord, error)
	CheckIn(ctx context.Context, p CheckInParams) (*model.Equipment, *model.IncomingRecord, error)
	CheckOut(ctx context.Context, p CheckOutParams) (*CheckOutResult, error)
	StartCalibration(ctx context.Context, incomingID uint) error
	FindOutgoing(ctx context.Context, id uint) (*model.OutgoingRecord, error)
	CompleteOutgoing(ctx context.Context, id uint) (*model.OutgoingRecord, error)

	Report(ctx context.Context, f ReportFilter) ([]model.IncomingRecord, error)

	TrackingRecallExists(ctx context.Context, recall string) (bool, error)
	FindOpenLoan(ctx context.Context, equipmentID uint) (*model.TrackingRecord, error)
	OpenLoan(ctx context.Context, rec *model.TrackingRecord) error
	CloseLoan(ctx context.Context, p CloseLoanParams) (*model.TrackingRecord, error)

	FlagDueEquipment(ctx context.Context, cutoff time.Time) (int64, error)
	FlagOverdueOutgoing(ctx context.Context, now time.Time) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for handlers that work on plain tables.
func (s *gormStore) DB() *gorm.DB { return s.db }

func (s *gormStore) ListDepartments(ctx context.Context) ([]model.Department, error) {
	var ds []model.Department
	err := s.db.WithContext(ctx).Order("name").Find(&ds).Error
	return ds, err
}

func (s *gormStore) CreateDepartment(ctx context.Context, d *model.Department) error {
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *gormStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	var ls []model.Location
	err := s.db.WithContext(ctx).Preload("Department").Order("name").Find(&ls).Error
	return ls, err
}

func (s *gormStore) CreateLocation(ctx context.Context, l *model.Location) error {
	return s.db.WithContext(ctx).Create(l).Error
}

func (s *gormStore) FindLocation(ctx context.Context, id uint) (*model.Location, error) {
	var l model.Location
	if err := s.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *gormStore) FindUser(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *gormStore) FindUserByEmployeeID(ctx context.Context, employeeID string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("employee_id = ?", strings.TrimSpace(employeeID)).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// notFound maps gorm's sentinel onto ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

func exists(tx *gorm.DB, m any, where string, args ...any) (bool, error) {
	var n int64
	if err := tx.Model(m).Where(where, args...).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count: %w", err)
	}
	return n > 0, nil
}
