package store

import (
	"errors"
	"time"

	"calibration-tracker/internal/model"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyReleased is returned when an incoming record already has a date_out.
	ErrAlreadyReleased = errors.New("incoming record already released")
	// ErrDuplicateSerial is returned when a serial number is already registered.
	ErrDuplicateSerial = errors.New("serial number already registered")
	// ErrOpenLoanExists is returned when equipment already has an open self-service loan.
	ErrOpenLoanExists = errors.New("equipment already has an open loan")
	// ErrNoOpenLoan is returned when there is no open self-service loan to close.
	ErrNoOpenLoan = errors.New("equipment has no open loan")
	// ErrAlreadyCompleted is returned when an outgoing record was already picked up.
	ErrAlreadyCompleted = errors.New("outgoing record already completed")
)

// ReportFilter narrows the tracking report. Zero values disable a predicate.
type ReportFilter struct {
	Search        string
	EquipmentName string
	RecallNumber  string
	Status        string
	TechnicianID  *uint
	LocationID    *uint
	DateFrom      *time.Time
	DateTo        *time.Time
}

// EquipmentQuery narrows the equipment list.
type EquipmentQuery struct {
	Q            string
	Status       string
	WithArchived bool
	Page         int
	Size         int
}

// CheckInParams carries a validated check-in into the transaction.
// NewEquipment is created first when set; otherwise Record.EquipmentID must point at an existing row.
type CheckInParams struct {
	NewEquipment *model.Equipment
	Record       *model.IncomingRecord
}

// CheckOutParams carries a validated check-out into the transaction.
type CheckOutParams struct {
	IncomingID uint
	At         time.Time
	// CalDate is the calibration day; zero means the day of At.
	CalDate       time.Time
	EmployeeOutID uint
	CycleTime     int
	Description   *string
	NextDueDate   time.Time
	NextRecall    string
	CTReqd        int
	CommitETC     *time.Time
	ActualETC     *time.Time
}

// CheckOutResult is everything a check-out wrote.
type CheckOutResult struct {
	Closed   *model.IncomingRecord
	Outgoing *model.OutgoingRecord
	Next     *model.IncomingRecord
}

// CloseLoanParams closes an open self-service loan.
type CloseLoanParams struct {
	RecordID     uint
	LocationID   uint
	EmployeeInID uint
	At           time.Time
	CycleTime    int
	Description  string
}
