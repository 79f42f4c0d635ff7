package tracking

import (
	"time"

	"calibration-tracker/internal/model"
)

// NewEquipmentInput registers equipment as part of a check-in.
type NewEquipmentInput struct {
	SerialNumber string `json:"serial_number" validate:"required,max=120"`
	Description  string `json:"description" validate:"required,max=255"`
	Model        string `json:"model" validate:"max=120"`
	Manufacturer string `json:"manufacturer" validate:"max=120"`
	Plant        string `json:"plant" validate:"max=120"`
}

// CheckInInput opens an incoming record. Exactly one of EquipmentID and NewEquipment is used;
// EquipmentID wins when both are set.
type CheckInInput struct {
	EquipmentID  *uint              `json:"equipment_id" validate:"required_without=NewEquipment"`
	NewEquipment *NewEquipmentInput `json:"new_equipment" validate:"required_without=EquipmentID"`
	TechnicianID uint               `json:"technician_id" validate:"required"`
	LocationID   uint               `json:"location_id" validate:"required"`
	DepartmentID uint               `json:"department_id" validate:"required"`
	CalDate      time.Time          `json:"cal_date" validate:"required"`
	CalDueDate   time.Time          `json:"cal_due_date" validate:"required,gtefield=CalDate"`
	Description  string             `json:"description" validate:"max=2000"`
	RecallNumber string             `json:"recall_number" validate:"omitempty,min=7,max=10,uppercase,alphanum"`
}

// CheckOutInput closes an incoming record and schedules the next cycle.
type CheckOutInput struct {
	NextDueDate  time.Time  `json:"next_due_date" validate:"required"`
	Description  string     `json:"description" validate:"max=2000"`
	RecallNumber string     `json:"recall_number" validate:"omitempty,min=7,max=10,uppercase,alphanum"`
	CTReqd       int        `json:"ct_reqd" validate:"min=0"`
	CommitETC    *time.Time `json:"commit_etc"`
	ActualETC    *time.Time `json:"actual_etc"`
}

// SelfCheckOutInput is an employee taking their own equipment out.
type SelfCheckOutInput struct {
	EquipmentID uint   `json:"equipment_id" validate:"required"`
	PIN         string `json:"pin" validate:"required,numeric,min=4,max=12"`
	Description string `json:"description" validate:"max=2000"`
}

// SelfCheckInInput is an employee bringing their own equipment back.
type SelfCheckInInput struct {
	EquipmentID uint   `json:"equipment_id" validate:"required"`
	LocationID  uint   `json:"location_id" validate:"required"`
	PIN         string `json:"pin" validate:"required,numeric,min=4,max=12"`
	Description string `json:"description" validate:"max=2000"`
}

// CheckInResult is the equipment and the incoming record a check-in produced.
type CheckInResult struct {
	Equipment *model.Equipment      `json:"equipment"`
	Incoming  *model.IncomingRecord `json:"incoming"`
}

// CheckOutResult is the closed record, its outgoing row and the next open cycle.
type CheckOutResult struct {
	Closed         *model.IncomingRecord `json:"closed"`
	Outgoing       *model.OutgoingRecord `json:"outgoing"`
	Next           *model.IncomingRecord `json:"next"`
	CycleTimeHours int                   `json:"cycle_time_hours"`
}
