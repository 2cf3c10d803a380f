package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole represents the fixed set of roles a user can hold
type UserRole string

const (
	RoleFarmer   UserRole = "farmer"
	RoleAgent    UserRole = "agent"
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

// IsValid reports whether the role is one of the known roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleFarmer, RoleAgent, RoleCustomer, RoleAdmin:
		return true
	}
	return false
}

// Registerable reports whether the role may be chosen at signup.
// Admin accounts are provisioned directly, never self-registered.
func (r UserRole) Registerable() bool {
	return r.IsValid() && r != RoleAdmin
}

// User represents a user in the system (farmer, agent, customer or admin)
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	AuthID     string         `gorm:"uniqueIndex;not null" json:"auth_id"` // auth provider user ID (from 'sub' claim)
	Name       string         `gorm:"not null" json:"name"`
	Phone      string         `gorm:"uniqueIndex;not null" json:"phone"`
	Role       UserRole       `gorm:"not null;default:'customer'" json:"role"` // immutable after creation
	DistrictID *uint          `gorm:"index" json:"district_id"`                // nullable, admins have no district
	District   *District      `gorm:"foreignKey:DistrictID" json:"district,omitempty"`
	IsActive   bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
