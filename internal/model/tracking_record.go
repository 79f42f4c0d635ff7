package model

import (
	"time"

	"gorm.io/gorm"
)

// TrackingRecord is the single-row loan record used by employee self-service.
// A row is opened by a check-out (DateOut set) and closed by the matching check-in (DateIn set).
type TrackingRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RecallNumber string     `gorm:"uniqueIndex;size:40;not null" json:"recall_number"`
	EquipmentID  uint       `gorm:"index;not null" json:"equipment_id"`
	Equipment    *Equipment `json:"equipment,omitempty"`
	LocationID   *uint      `json:"location_id"`

	EmployeeInID  *uint      `json:"employee_id_in"`
	EmployeeOutID *uint      `json:"employee_id_out"`
	DateIn        *time.Time `json:"date_in"`
	DateOut       *time.Time `gorm:"index" json:"date_out"`
	CycleTime     int        `gorm:"not null;default:0" json:"cycle_time"`
	Description   string     `gorm:"type:text" json:"description"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Open reports whether the loan still waits for its check-in.
func (t *TrackingRecord) Open() bool { return t.DateIn == nil }

// TrackingRecordFromIncoming projects an incoming record onto the single-row shape.
func TrackingRecordFromIncoming(in *IncomingRecord) TrackingRecord {
	dateIn := in.DateIn
	rec := TrackingRecord{
		ID:            in.ID,
		RecallNumber:  in.Recall(),
		LocationID:    &in.LocationID,
		EmployeeInID:  &in.EmployeeInID,
		EmployeeOutID: in.EmployeeOutID,
		DateIn:        &dateIn,
		DateOut:       in.DateOut,
		CycleTime:     in.CycleTime,
		Description:   in.Description,
		Equipment:     in.Equipment,
		CreatedAt:     in.CreatedAt,
		UpdatedAt:     in.UpdatedAt,
	}
	if in.EquipmentID != nil {
		rec.EquipmentID = *in.EquipmentID
	}
	return rec
}
