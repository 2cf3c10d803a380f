package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/models"
	"github.com/agrilink/agrilink-api/services"
)

// SetUserActiveRequest represents the request body for toggling an account.
// A pointer keeps "is_active": false from being rejected as missing.
type SetUserActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ListUsers handles GET /api/v1/admin/users - lists user accounts with
// optional filters (admins only)
func ListUsers(c *gin.Context) {
	db := config.GetDB()

	query := db.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if districtID := c.Query("district_id"); districtID != "" {
		query = query.Where("district_id = ?", districtID)
	}
	if active := c.Query("is_active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	page, limit := parsePagination(c)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to count users",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	var users []models.User
	if err := query.
		Preload("District").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load users",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Users fetched successfully",
		"data":       users,
		"pagination": paginationPayload(page, limit, total, totalPages),
	})
}

// SetUserActive handles PUT /api/v1/admin/users/:id/active - activates or
// deactivates an account (admins only). Roles stay immutable.
func SetUserActive(c *gin.Context) {
	id, ok := parseIDParam(c, "user")
	if !ok {
		return
	}

	var req SetUserActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "User not found",
			"code":    "NOT_FOUND",
		})
		return
	}

	if err := db.Model(&user).Update("is_active", *req.IsActive).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to update user",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	if err := db.Preload("District").First(&user, user.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load user",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User updated successfully",
		"data":    user,
	})
}

// PurgeOrder handles DELETE /api/v1/admin/orders/:id - permanently removes
// an order (admins only)
func PurgeOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "order")
	if !ok {
		return
	}

	orderService := services.NewOrderService(config.GetDB())
	if err := orderService.Purge(user, id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted successfully",
	})
}

// GetStats handles GET /api/v1/admin/stats - marketplace aggregates
// (admins only)
func GetStats(c *gin.Context) {
	db := config.GetDB()

	var userTotal int64
	if err := db.Model(&models.User{}).Count(&userTotal).Error; err != nil {
		respondStatsError(c)
		return
	}

	var roleCounts []struct {
		Role  string
		Count int64
	}
	if err := db.Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&roleCounts).Error; err != nil {
		respondStatsError(c)
		return
	}
	usersByRole := make(map[string]int64, len(roleCounts))
	for _, rc := range roleCounts {
		usersByRole[rc.Role] = rc.Count
	}

	var productTotal, productActive int64
	if err := db.Model(&models.Product{}).Count(&productTotal).Error; err != nil {
		respondStatsError(c)
		return
	}
	if err := db.Model(&models.Product{}).Where("is_active = ?", true).Count(&productActive).Error; err != nil {
		respondStatsError(c)
		return
	}

	var orderTotal int64
	if err := db.Model(&models.Order{}).Count(&orderTotal).Error; err != nil {
		respondStatsError(c)
		return
	}

	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		respondStatsError(c)
		return
	}
	ordersByStatus := make(map[string]int64, len(statusCounts))
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	// Revenue counts only completed business
	var revenue struct {
		Revenue    float64
		Commission float64
	}
	if err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total_price), 0) AS revenue, COALESCE(SUM(commission), 0) AS commission").
		Where("status = ?", models.StatusDelivered).
		Scan(&revenue).Error; err != nil {
		respondStatsError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Stats fetched successfully",
		"data": gin.H{
			"users": gin.H{
				"total":   userTotal,
				"by_role": usersByRole,
			},
			"products": gin.H{
				"total":  productTotal,
				"active": productActive,
			},
			"orders": gin.H{
				"total":     orderTotal,
				"by_status": ordersByStatus,
			},
			"revenue": gin.H{
				"delivered_total":  revenue.Revenue,
				"commission_total": revenue.Commission,
			},
		},
	})
}

func respondStatsError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "Failed to compute stats",
		"code":    "DATABASE_ERROR",
	})
}
