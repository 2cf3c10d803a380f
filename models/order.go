package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents the state of an order in its lifecycle
type OrderStatus string

const (
	StatusBooked    OrderStatus = "booked"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPicked    OrderStatus = "picked"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// orderTransitions defines the allowed next statuses for each status.
// delivered and cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusBooked:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPicked, StatusCancelled},
	StatusPicked:    {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// IsValid reports whether the status is one of the known statuses
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are allowed from the status
func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether the status may move directly to target
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Order represents a customer's order for a farm product
type Order struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CustomerID      uint           `gorm:"not null;index" json:"customer_id"` // foreign key to users table
	Customer        User           `gorm:"foreignKey:CustomerID" json:"customer"`
	ProductID       uint           `gorm:"not null;index" json:"product_id"` // foreign key to products table
	Product         Product        `gorm:"foreignKey:ProductID" json:"product"`
	AgentID         *uint          `gorm:"index" json:"agent_id"` // nullable, delivery agent in the product's district
	Agent           *User          `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	Quantity        float64        `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice       float64        `gorm:"not null" json:"unit_price"` // price snapshot taken at creation
	TotalPrice      float64        `gorm:"not null" json:"total_price"`
	CommissionRate  float64        `gorm:"not null;default:0" json:"commission_rate"` // percentage
	Commission      float64        `gorm:"not null;default:0" json:"commission"`      // non-zero only when an agent is assigned
	Status          OrderStatus    `gorm:"not null;default:'booked'" json:"status"`
	DeliveryAddress string         `gorm:"not null" json:"delivery_address"`
	CustomerNotes   *string        `json:"customer_notes"` // nullable, free text from the customer
	AgentNotes      *string        `json:"agent_notes"`    // nullable, free text from the agent
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}
