package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/models"
	"github.com/agrilink/agrilink-api/services"
)

// CreateOrderRequest represents the request body for placing an order
type CreateOrderRequest struct {
	ProductID       uint    `json:"product_id" binding:"required"`
	Quantity        float64 `json:"quantity" binding:"required,gt=0"`
	AgentID         *uint   `json:"agent_id" binding:"omitempty"`
	DeliveryAddress string  `json:"delivery_address" binding:"required"`
	CustomerNotes   *string `json:"customer_notes" binding:"omitempty"`
	CustomerID      *uint   `json:"customer_id" binding:"omitempty"` // admins ordering on behalf of a customer
}

// UpdateOrderStatusRequest represents the request body for a status
// transition
type UpdateOrderStatusRequest struct {
	Status     string  `json:"status" binding:"required"`
	AgentNotes *string `json:"agent_notes" binding:"omitempty"`
}

// AssignAgentRequest represents the request body for attaching a delivery
// agent to an order
type AssignAgentRequest struct {
	AgentID uint `json:"agent_id" binding:"required"`
}

// CreateOrder handles POST /api/v1/orders - places a new order
func CreateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	input := services.CreateOrderInput{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		AgentID:         req.AgentID,
		DeliveryAddress: req.DeliveryAddress,
		CustomerNotes:   req.CustomerNotes,
	}
	if req.CustomerID != nil {
		input.OnBehalfOfID = *req.CustomerID
	}

	orderService := services.NewOrderService(config.GetDB())
	order, err := orderService.Create(user, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Order created successfully",
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - lists the orders visible to the
// caller, scoped by role
func ListOrders(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	page, limit := parsePagination(c)

	orderService := services.NewOrderService(config.GetDB())
	result, err := orderService.List(user, services.ListOrdersInput{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Orders fetched successfully",
		"data":       result.Orders,
		"pagination": paginationPayload(result.Page, result.Limit, result.Total, result.TotalPages),
	})
}

// GetOrder handles GET /api/v1/orders/:id - fetches a single order the
// caller is a party to
func GetOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "order")
	if !ok {
		return
	}

	orderService := services.NewOrderService(config.GetDB())
	order, err := orderService.Get(user, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order fetched successfully",
		"data":    order,
	})
}

// UpdateOrderStatus handles PUT /api/v1/orders/:id/status - moves an order
// along its lifecycle
func UpdateOrderStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "order")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	orderService := services.NewOrderService(config.GetDB())
	order, err := orderService.UpdateStatus(user, id, models.OrderStatus(req.Status), req.AgentNotes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order status updated successfully",
		"data":    order,
	})
}

// AssignAgent handles PUT /api/v1/orders/:id/assign-agent - attaches a
// delivery agent to an order
func AssignAgent(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "order")
	if !ok {
		return
	}

	var req AssignAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	orderService := services.NewOrderService(config.GetDB())
	order, err := orderService.AssignAgent(user, id, req.AgentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Agent assigned successfully",
		"data":    order,
	})
}

// GetAvailableAgents handles GET /api/v1/orders/agents/available - lists the
// active agents serving a district
func GetAvailableAgents(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	districtID, err := strconv.ParseUint(c.Query("district_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "district_id query parameter is required",
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	orderService := services.NewOrderService(config.GetDB())
	agents, err := orderService.AvailableAgents(uint(districtID))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Available agents fetched successfully",
		"data":    agents,
	})
}
