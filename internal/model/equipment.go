package model

import (
	"time"

	"gorm.io/gorm"

	"calibration-tracker/internal/parse"
)

// Equipment lifecycle statuses.
const (
	EquipmentActive             = "active"
	EquipmentInactive           = "inactive"
	EquipmentPendingCalibration = "pending_calibration"
	EquipmentInCalibration      = "in_calibration"
	EquipmentRetired            = "retired"
)

// EquipmentStatuses lists every accepted equipment status.
var EquipmentStatuses = []string{
	EquipmentActive, EquipmentInactive, EquipmentPendingCalibration, EquipmentInCalibration, EquipmentRetired,
}

// Equipment is a calibrated instrument. Rows are archived (soft-deleted), never hard-deleted.
type Equipment struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	SerialNumber   string `gorm:"uniqueIndex;size:120;not null" json:"serial_number"`
	Description    string `gorm:"size:255;not null" json:"description"`
	Model          string `gorm:"size:120" json:"model"`
	Manufacturer   string `gorm:"size:120" json:"manufacturer"`
	AssignedUserID *uint  `gorm:"index" json:"assigned_user_id,omitempty"`
	AssignedUser   *User  `gorm:"foreignKey:AssignedUserID" json:"assigned_user,omitempty"`
	Plant          string `gorm:"size:120" json:"plant"`
	DepartmentID   *uint  `gorm:"index" json:"department_id,omitempty"`
	LocationID     *uint  `gorm:"index" json:"location_id,omitempty"`
	Status         string `gorm:"size:32;not null;default:'active';index" json:"status"`

	LastCalibrationDate *time.Time `json:"last_calibration_date,omitempty"`
	NextCalibrationDate *time.Time `gorm:"index" json:"next_calibration_date,omitempty"`

	// Stored as "start - end".
	ProcessReqRange string `gorm:"size:120" json:"process_req_range"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Equipment) TableName() string { return "equipment" }

// ProcessReqStart returns the lower bound of the process requirement range.
func (e *Equipment) ProcessReqStart() string { return parse.ParseRange(e.ProcessReqRange).Start }

// ProcessReqEnd returns the upper bound of the process requirement range.
func (e *Equipment) ProcessReqEnd() string { return parse.ParseRange(e.ProcessReqRange).End }

// SetProcessReq stores start and end in the combined range column.
func (e *Equipment) SetProcessReq(start, end string) {
	e.ProcessReqRange = parse.FormatRange(start, end)
}
