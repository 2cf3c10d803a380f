package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/middleware"
	"github.com/agrilink/agrilink-api/models"
	"github.com/agrilink/agrilink-api/services"
)

// currentUser resolves the authenticated caller's profile. RequireRole caches
// the profile on the context; handlers behind EnsureValidToken alone fall back
// to a lookup by token subject. Writes the error response itself when the
// profile cannot be resolved.
func currentUser(c *gin.Context) (*models.User, bool) {
	if cached, exists := c.Get("current_user"); exists {
		if user, ok := cached.(*models.User); ok {
			return user, true
		}
	}

	subject, err := middleware.GetAuthSubject(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Could not extract user information",
			"code":    "UNAUTHORIZED",
		})
		return nil, false
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("auth_id = ?", subject).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "User profile not found. Please verify your phone number first.",
			"code":    "USER_NOT_FOUND",
		})
		return nil, false
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Your account has been deactivated",
			"code":    "ACCOUNT_DISABLED",
		})
		return nil, false
	}

	c.Set("current_user", &user)
	return &user, true
}

// respondServiceError maps a service failure onto the response envelope.
func respondServiceError(c *gin.Context, err error) {
	if svcErr, ok := services.AsServiceError(err); ok {
		c.JSON(svcErr.Status, gin.H{
			"success": false,
			"message": svcErr.Message,
			"code":    svcErr.Code,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "An unexpected error occurred",
		"code":    "INTERNAL_ERROR",
	})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request data",
		"code":    "VALIDATION_ERROR",
		"details": err.Error(),
	})
}

// parseIDParam reads the :id route parameter as an unsigned integer.
func parseIDParam(c *gin.Context, label string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid " + label + " ID",
			"code":    "VALIDATION_ERROR",
		})
		return 0, false
	}
	return uint(value), true
}

// parsePagination reads page/limit query parameters with the conventional
// defaults. Out-of-range values fall back to the defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	return page, limit
}

func paginationPayload(page, limit int, total int64, totalPages int) gin.H {
	return gin.H{
		"page":       page,
		"limit":      limit,
		"total":      total,
		"totalPages": totalPages,
	}
}
