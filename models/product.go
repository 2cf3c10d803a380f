package models

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a farm product listed for sale by a farmer
type Product struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	FarmerID          uint           `gorm:"not null;index" json:"farmer_id"` // foreign key to users table
	Farmer            User           `gorm:"foreignKey:FarmerID" json:"farmer"`
	DistrictID        uint           `gorm:"not null;index" json:"district_id"`
	District          District       `gorm:"foreignKey:DistrictID" json:"district"`
	Name              string         `gorm:"not null" json:"name"`
	Description       string         `json:"description"`
	Price             float64        `gorm:"not null;check:price > 0" json:"price"` // price per unit
	AvailableQuantity float64        `gorm:"not null;check:available_quantity >= 0" json:"available_quantity"`
	Unit              string         `gorm:"not null;default:'kg'" json:"unit"` // kg, litre, dozen, piece
	ImageS3Key        *string        `json:"image_s3_key"`                      // nullable, S3 key for product image
	ImageURL          *string        `gorm:"-" json:"image_url,omitempty"`      // computed field, public URL for image
	IsActive          bool           `gorm:"not null;default:true" json:"is_active"` // listing visibility toggle
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
