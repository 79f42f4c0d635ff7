package model

import "time"

// Department groups locations and the users working in them.
type Department struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Location is a physical place equipment is received at. It always belongs to one department.
type Location struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Name         string      `gorm:"size:128;not null" json:"name"`
	DepartmentID uint        `gorm:"index;not null" json:"department_id"`
	Department   *Department `gorm:"constraint:OnDelete:RESTRICT" json:"department,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
