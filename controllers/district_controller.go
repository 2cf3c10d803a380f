package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/models"
)

// DistrictRequest represents the request body for creating or renaming a
// district
type DistrictRequest struct {
	Name string `json:"name" binding:"required"`
}

// GetDistricts handles GET /api/v1/districts - lists all districts
func GetDistricts(c *gin.Context) {
	db := config.GetDB()

	var districts []models.District
	if err := db.Order("name ASC").Find(&districts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load districts",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Districts fetched successfully",
		"data":    districts,
	})
}

// CreateDistrict handles POST /api/v1/admin/districts - creates a district
// (admins only)
func CreateDistrict(c *gin.Context) {
	var req DistrictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	district := models.District{Name: req.Name}

	db := config.GetDB()
	if err := db.Create(&district).Error; err != nil {
		// Check for a duplicate name (works with both PostgreSQL and SQLite)
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "duplicate") ||
			strings.Contains(errMsg, "unique constraint") ||
			strings.Contains(errMsg, "unique") {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "A district with this name already exists",
				"code":    "DISTRICT_EXISTS",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create district",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "District created successfully",
		"data":    district,
	})
}

// UpdateDistrict handles PUT /api/v1/admin/districts/:id - renames a district
// (admins only)
func UpdateDistrict(c *gin.Context) {
	id, ok := parseIDParam(c, "district")
	if !ok {
		return
	}

	var req DistrictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var district models.District
	if err := db.First(&district, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "District not found",
			"code":    "NOT_FOUND",
		})
		return
	}

	if err := db.Model(&district).Update("name", req.Name).Error; err != nil {
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "duplicate") ||
			strings.Contains(errMsg, "unique constraint") ||
			strings.Contains(errMsg, "unique") {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "A district with this name already exists",
				"code":    "DISTRICT_EXISTS",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to update district",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "District updated successfully",
		"data":    district,
	})
}

// DeleteDistrict handles DELETE /api/v1/admin/districts/:id - removes a
// district that nothing references (admins only)
func DeleteDistrict(c *gin.Context) {
	id, ok := parseIDParam(c, "district")
	if !ok {
		return
	}

	db := config.GetDB()
	var district models.District
	if err := db.First(&district, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "District not found",
			"code":    "NOT_FOUND",
		})
		return
	}

	var userCount, productCount int64
	db.Model(&models.User{}).Where("district_id = ?", id).Count(&userCount)
	db.Model(&models.Product{}).Where("district_id = ?", id).Count(&productCount)
	if userCount > 0 || productCount > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": "District is still referenced by users or products",
			"code":    "DISTRICT_IN_USE",
		})
		return
	}

	if err := db.Delete(&district).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to delete district",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "District deleted successfully",
	})
}
