package models

import (
	"time"

	"gorm.io/gorm"
)

// District represents a geographic district that users and products belong to
type District struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the District model
func (District) TableName() string {
	return "districts"
}
