package model

import (
	"time"

	"gorm.io/gorm"
)

// Incoming record statuses.
const (
	IncomingReceived      = "received"
	IncomingInCalibration = "in_calibration"
	IncomingReleased      = "released"
)

// IncomingRecord is one check-in of a piece of equipment for calibration.
// DateOut, EmployeeOutID and CycleTime stay empty until the record is checked out.
type IncomingRecord struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	RecallNumber *string `gorm:"uniqueIndex;size:40" json:"recall_number"`

	EquipmentID  *uint      `gorm:"index" json:"equipment_id"`
	Equipment    *Equipment `json:"equipment,omitempty"`
	TechnicianID uint       `gorm:"index;not null" json:"technician_id"`
	Technician   *User      `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	LocationID   uint       `gorm:"index;not null" json:"location_id"`
	Location     *Location  `json:"location,omitempty"`

	EmployeeInID  uint  `gorm:"not null" json:"employee_id_in"`
	EmployeeIn    *User `gorm:"foreignKey:EmployeeInID" json:"employee_in,omitempty"`
	EmployeeOutID *uint `json:"employee_id_out"`
	EmployeeOut   *User `gorm:"foreignKey:EmployeeOutID" json:"employee_out,omitempty"`

	CalDate    time.Time  `gorm:"not null" json:"cal_date"`
	CalDueDate time.Time  `gorm:"not null" json:"cal_due_date"`
	DateIn     time.Time  `gorm:"not null;index" json:"date_in"`
	DateOut    *time.Time `json:"date_out"`
	CycleTime  int        `gorm:"not null;default:0" json:"cycle_time"`
	Status     string     `gorm:"size:32;not null;default:'received';index" json:"status"`

	Description string `gorm:"type:text" json:"description"`

	// Record-level equipment snapshot used when no Equipment row is linked.
	SerialNumber string `gorm:"size:120" json:"serial_number,omitempty"`
	Model        string `gorm:"size:120" json:"model,omitempty"`
	Manufacturer string `gorm:"size:120" json:"manufacturer,omitempty"`

	Outgoing *OutgoingRecord `gorm:"foreignKey:IncomingID" json:"outgoing,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Released reports whether the record has been checked out.
func (r *IncomingRecord) Released() bool { return r.DateOut != nil }

// Stage derives the lifecycle stage from the stored fields.
func (r *IncomingRecord) Stage() string {
	switch {
	case r.Released():
		return IncomingReleased
	case r.Status == IncomingInCalibration:
		return IncomingInCalibration
	default:
		return IncomingReceived
	}
}

// Recall returns the recall number or an empty string for legacy rows.
func (r *IncomingRecord) Recall() string {
	if r.RecallNumber == nil {
		return ""
	}
	return *r.RecallNumber
}
