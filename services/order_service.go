package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/agrilink/agrilink-api/models"
)

// PlatformCommissionRate is the fixed commission percentage credited to the
// assigned agent, applied to the order's total price
const PlatformCommissionRate = 5.0

// OrderService owns the order lifecycle: creation with stock decrement,
// status transitions, agent assignment, and role-scoped reads
type OrderService struct {
	db *gorm.DB
}

// NewOrderService creates an order service bound to the given database
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// CreateOrderInput carries the fields needed to place an order
type CreateOrderInput struct {
	ProductID       uint
	Quantity        float64
	AgentID         *uint
	DeliveryAddress string
	CustomerNotes   *string
	OnBehalfOfID    uint // admin only: the customer the order is placed for
}

// ListOrdersInput carries the optional filters for listing orders
type ListOrdersInput struct {
	Status string // optional status filter
	Page   int
	Limit  int
}

// OrderPage is one page of orders with pagination metadata
type OrderPage struct {
	Orders     []models.Order
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// Create places a new order against an active product.
// The unit price is snapshotted from the product at creation time and the
// commission is computed only when an agent is attached. The stock decrement
// and the order insert run in one transaction; the decrement is conditional
// on sufficient stock so concurrent orders cannot oversell a product.
func (s *OrderService) Create(caller *models.User, input CreateOrderInput) (*models.Order, error) {
	if caller.Role != models.RoleCustomer && caller.Role != models.RoleAdmin {
		return nil, NewPermissionDenied("Only customers can place orders")
	}

	if input.Quantity <= 0 {
		return nil, NewValidationError("Quantity must be greater than zero")
	}

	// Admins place orders on behalf of a customer
	customerID := caller.ID
	if caller.Role == models.RoleAdmin {
		if input.OnBehalfOfID == 0 {
			return nil, NewValidationError("customer_id is required when an admin places an order")
		}
		var customer models.User
		err := s.db.Where("id = ? AND role = ?", input.OnBehalfOfID, models.RoleCustomer).First(&customer).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewNotFound("Customer not found")
			}
			return nil, NewStoreError(err)
		}
		customerID = customer.ID
	}

	var product models.Product
	if err := s.db.First(&product, input.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("Product not found")
		}
		return nil, NewStoreError(err)
	}
	if !product.IsActive {
		return nil, NewNotFound("Product not found")
	}

	if product.AvailableQuantity < input.Quantity {
		return nil, NewInsufficientStock(fmt.Sprintf("Only %g %s of %s available", product.AvailableQuantity, product.Unit, product.Name))
	}

	var agent *models.User
	if input.AgentID != nil {
		var err error
		agent, err = s.validAgentForDistrict(*input.AgentID, product.DistrictID)
		if err != nil {
			return nil, err
		}
	}

	order := models.Order{
		CustomerID:      customerID,
		ProductID:       product.ID,
		Quantity:        input.Quantity,
		UnitPrice:       product.Price,
		TotalPrice:      product.Price * input.Quantity,
		CommissionRate:  PlatformCommissionRate,
		Status:          models.StatusBooked,
		DeliveryAddress: input.DeliveryAddress,
		CustomerNotes:   input.CustomerNotes,
	}
	if agent != nil {
		order.AgentID = &agent.ID
		order.Commission = order.TotalPrice * PlatformCommissionRate / 100
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Conditional decrement: zero rows affected means a concurrent order
		// consumed the stock after our check above
		result := tx.Model(&models.Product{}).
			Where("id = ? AND available_quantity >= ?", product.ID, input.Quantity).
			Update("available_quantity", gorm.Expr("available_quantity - ?", input.Quantity))
		if result.Error != nil {
			return NewStoreError(result.Error)
		}
		if result.RowsAffected == 0 {
			return NewInsufficientStock(fmt.Sprintf("Only %g %s of %s available", product.AvailableQuantity, product.Unit, product.Name))
		}

		return tx.Create(&order).Error
	})
	if err != nil {
		if _, ok := AsServiceError(err); ok {
			return nil, err
		}
		return nil, NewStoreError(err)
	}

	return s.loadOrder(order.ID)
}

// UpdateStatus moves an order along the status state machine.
// booked -> confirmed/cancelled, confirmed -> picked/cancelled,
// picked -> delivered/cancelled; delivered and cancelled are terminal.
// Only an admin, the assigned agent, or the farmer owning the order's
// product may transition status.
func (s *OrderService) UpdateStatus(caller *models.User, orderID uint, target models.OrderStatus, agentNotes *string) (*models.Order, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}

	allowed := false
	switch caller.Role {
	case models.RoleAdmin:
		allowed = true
	case models.RoleAgent:
		allowed = order.AgentID != nil && *order.AgentID == caller.ID
	case models.RoleFarmer:
		allowed = order.Product.FarmerID == caller.ID
	default:
		return nil, NewPermissionDenied("Customers cannot change order status")
	}
	if !allowed {
		return nil, NewAccessDenied("You are not a party to this order")
	}

	if !order.Status.CanTransitionTo(target) {
		return nil, NewInvalidTransition(order.Status, target)
	}

	updates := map[string]interface{}{"status": target}
	if agentNotes != nil {
		updates["agent_notes"] = *agentNotes
	}
	if err := s.db.Model(order).Updates(updates).Error; err != nil {
		return nil, NewStoreError(err)
	}

	return s.loadOrder(orderID)
}

// AssignAgent attaches a delivery agent to an order and recomputes the
// commission. The agent must be active and serve the product's district.
// Reassignment is allowed at any status and overwrites the previous agent;
// no assignment history is kept.
func (s *OrderService) AssignAgent(caller *models.User, orderID uint, agentID uint) (*models.Order, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case models.RoleAdmin:
	case models.RoleCustomer:
		if order.CustomerID != caller.ID {
			return nil, NewAccessDenied("You are not a party to this order")
		}
	default:
		return nil, NewPermissionDenied("Only the order's customer or an admin can assign agents")
	}

	agent, err := s.validAgentForDistrict(agentID, order.Product.DistrictID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"agent_id":        agent.ID,
		"commission":      order.TotalPrice * PlatformCommissionRate / 100,
		"commission_rate": PlatformCommissionRate,
	}
	if err := s.db.Model(order).Updates(updates).Error; err != nil {
		return nil, NewStoreError(err)
	}

	return s.loadOrder(orderID)
}

// List returns the page of orders visible to the caller.
// The role-based base predicate is applied before any user-supplied filter:
// customers see their own orders, agents see orders assigned to them,
// farmers see orders against their products, admins see everything.
func (s *OrderService) List(caller *models.User, input ListOrdersInput) (*OrderPage, error) {
	query := s.db.Model(&models.Order{})

	switch caller.Role {
	case models.RoleCustomer:
		query = query.Where("orders.customer_id = ?", caller.ID)
	case models.RoleAgent:
		query = query.Where("orders.agent_id = ?", caller.ID)
	case models.RoleFarmer:
		query = query.Joins("JOIN products ON products.id = orders.product_id").
			Where("products.farmer_id = ?", caller.ID)
	case models.RoleAdmin:
		// unrestricted
	default:
		return nil, NewPermissionDenied("Role cannot list orders")
	}

	if input.Status != "" {
		query = query.Where("orders.status = ?", input.Status)
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit < 1 {
		limit = 10
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, NewStoreError(err)
	}

	var orders []models.Order
	err := query.
		Preload("Customer").
		Preload("Agent").
		Preload("Product", unscopedPreload).
		Preload("Product.District").
		Preload("Product.Farmer").
		Order("orders.created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, NewStoreError(err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &OrderPage{
		Orders:     orders,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// Get returns a single order if the caller is a party to it: its customer,
// its assigned agent, the farmer owning its product, or an admin
func (s *OrderService) Get(caller *models.User, orderID uint) (*models.Order, error) {
	order, err := s.loadOrder(orderID)
	if err != nil {
		return nil, err
	}

	if !s.isParty(caller, order) {
		return nil, NewAccessDenied("You do not have access to this order")
	}

	return order, nil
}

// AvailableAgents returns the active agents serving a district
func (s *OrderService) AvailableAgents(districtID uint) ([]models.User, error) {
	var agents []models.User
	err := s.db.
		Where("role = ? AND is_active = ? AND district_id = ?", models.RoleAgent, true, districtID).
		Order("name ASC").
		Find(&agents).Error
	if err != nil {
		return nil, NewStoreError(err)
	}
	return agents, nil
}

// Purge hard-deletes an order. Admin only; normal users never delete orders.
// Fails with a store error if referential constraints block the delete.
func (s *OrderService) Purge(caller *models.User, orderID uint) error {
	if caller.Role != models.RoleAdmin {
		return NewPermissionDenied("Only admins can purge orders")
	}

	var order models.Order
	if err := s.db.Unscoped().First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFound("Order not found")
		}
		return NewStoreError(err)
	}

	// Conversation rows reference the order, so they go first
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("order_id = ?", order.ID).Delete(&models.Message{}).Error; err != nil {
			return NewStoreError(err)
		}
		if err := tx.Unscoped().Delete(&order).Error; err != nil {
			return NewStoreError(err)
		}
		return nil
	})
}

// isParty reports whether the caller has a stake in the order
func (s *OrderService) isParty(caller *models.User, order *models.Order) bool {
	switch caller.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return order.CustomerID == caller.ID
	case models.RoleAgent:
		return order.AgentID != nil && *order.AgentID == caller.ID
	case models.RoleFarmer:
		return order.Product.FarmerID == caller.ID
	}
	return false
}

// validAgentForDistrict loads an agent and checks it may serve a district.
// Missing, inactive, or non-agent users all surface as NotFound; a district
// mismatch is its own error so clients can distinguish it.
func (s *OrderService) validAgentForDistrict(agentID, districtID uint) (*models.User, error) {
	var agent models.User
	if err := s.db.First(&agent, agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("Agent not found")
		}
		return nil, NewStoreError(err)
	}
	if agent.Role != models.RoleAgent || !agent.IsActive {
		return nil, NewNotFound("Agent not found")
	}
	if agent.DistrictID == nil || *agent.DistrictID != districtID {
		return nil, NewDistrictMismatch("Agent does not serve the product's district")
	}
	return &agent, nil
}

// unscopedPreload keeps soft-deleted products visible on existing orders:
// a delisted product must not break lifecycle checks or order payloads
func unscopedPreload(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// loadOrder fetches an order with the relationships API responses include
func (s *OrderService) loadOrder(id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.
		Preload("Customer").
		Preload("Agent").
		Preload("Product", unscopedPreload).
		Preload("Product.District").
		Preload("Product.Farmer").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("Order not found")
		}
		return nil, NewStoreError(err)
	}
	return &order, nil
}
