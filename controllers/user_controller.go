package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/models"
)

// UpdateUserRequest represents the request body for updating a user profile.
// Phone and role are immutable; only the display name and home district can
// change.
type UpdateUserRequest struct {
	Name       string `json:"name" binding:"omitempty"`
	DistrictID *uint  `json:"district_id" binding:"omitempty"`
}

// GetMyProfile handles GET /api/v1/users/me - gets the current user's profile
func GetMyProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	db := config.GetDB()
	if err := db.Preload("District").First(user, user.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load user profile",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile fetched successfully",
		"data":    user,
	})
}

// UpdateMyProfile handles PUT /api/v1/users/me - updates the current user's
// profile
func UpdateMyProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.DistrictID != nil {
		var district models.District
		if err := db.First(&district, *req.DistrictID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "District not found",
				"code":    "NOT_FOUND",
			})
			return
		}
		updates["district_id"] = *req.DistrictID
	}

	// If no fields to update, return the current profile
	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Profile updated successfully",
			"data":    user,
		})
		return
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to update user profile",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	// Fetch the updated profile to return
	if err := db.Preload("District").First(user, user.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load user profile",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile updated successfully",
		"data":    user,
	})
}
