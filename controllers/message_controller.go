package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/models"
	"github.com/agrilink/agrilink-api/services"
)

// SendMessageRequest represents the request body for posting to an order
// conversation
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage handles POST /api/v1/orders/:id/messages - posts a message to
// an order's conversation. Only parties to the order (the customer, the
// owning farmer, the assigned agent, or an admin) may post.
func SendMessage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "order")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	orderService := services.NewOrderService(db)
	order, err := orderService.Get(user, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := models.Message{
		OrderID:  order.ID,
		SenderID: user.ID,
		Text:     req.Text,
	}
	if err := db.Create(&message).Error; err != nil {
		respondServiceError(c, services.NewStoreError(err))
		return
	}

	// Reload with the sender so the client can render it without a second
	// request
	if err := db.Preload("Sender").First(&message, message.ID).Error; err != nil {
		respondServiceError(c, services.NewStoreError(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Message sent successfully",
		"data":    message,
	})
}

// ListMessages handles GET /api/v1/orders/:id/messages - returns an order's
// conversation in chronological order
func ListMessages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "order")
	if !ok {
		return
	}

	db := config.GetDB()
	orderService := services.NewOrderService(db)
	order, err := orderService.Get(user, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var messages []models.Message
	err = db.
		Preload("Sender").
		Where("order_id = ?", order.ID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		respondServiceError(c, services.NewStoreError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Messages fetched successfully",
		"data":    messages,
	})
}
