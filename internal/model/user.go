package model

import "time"

// User roles.
const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
	RoleEmployee   = "employee"
)

// User is an employee of the plant. Technicians, receivers and releasers are all users.
type User struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Name         string      `gorm:"size:128;not null" json:"name"`
	EmployeeID   string      `gorm:"uniqueIndex;size:64;not null" json:"employee_id"`
	Role         string      `gorm:"size:20;not null;default:'employee'" json:"role"`
	DepartmentID uint        `gorm:"index;not null" json:"department_id"`
	Department   *Department `json:"department,omitempty"`
	PasswordHash string      `gorm:"size:255" json:"-"`
	PinHash      string      `gorm:"size:255" json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
