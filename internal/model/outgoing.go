package model

import (
	"time"

	"gorm.io/gorm"
)

// Outgoing record statuses.
const (
	OutgoingForPickup = "for_pickup"
	OutgoingCompleted = "completed"
)

// OutgoingRecord closes exactly one IncomingRecord.
type OutgoingRecord struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	IncomingID uint `gorm:"uniqueIndex;not null" json:"incoming_id"`

	CalDate       time.Time `gorm:"not null" json:"cal_date"`
	CalDueDate    time.Time `gorm:"not null" json:"cal_due_date"`
	DateOut       time.Time `gorm:"not null;index" json:"date_out"`
	EmployeeOutID uint      `gorm:"not null" json:"employee_id_out"`
	EmployeeOut   *User     `gorm:"foreignKey:EmployeeOutID" json:"employee_out,omitempty"`

	// Hours between check-in and check-out, frozen at close time.
	CycleTime int `gorm:"not null" json:"cycle_time"`
	// Contractual cycle-time requirement in hours. Zero means none.
	CTReqd    int        `gorm:"column:ct_reqd;not null;default:0" json:"ct_reqd"`
	CommitETC *time.Time `gorm:"column:commit_etc" json:"commit_etc,omitempty"`
	ActualETC *time.Time `gorm:"column:actual_etc" json:"actual_etc,omitempty"`
	Overdue   bool       `gorm:"not null;default:false" json:"overdue"`
	Status    string     `gorm:"size:32;not null;default:'for_pickup';index" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
