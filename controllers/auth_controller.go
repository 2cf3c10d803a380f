package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/models"
	"github.com/agrilink/agrilink-api/services"
)

// SendOTPRequest represents the request body for requesting a login code
type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
}

// VerifyOTPRequest represents the request body for exchanging a code for a
// session. Name, role and district are only consulted when the phone number
// has never been verified before and a profile must be created.
type VerifyOTPRequest struct {
	Phone      string `json:"phone" binding:"required,e164"`
	Code       string `json:"code" binding:"required"`
	Name       string `json:"name" binding:"omitempty"`
	Role       string `json:"role" binding:"omitempty"`
	DistrictID *uint  `json:"district_id" binding:"omitempty"`
}

// RefreshTokenRequest represents the request body for refreshing a session
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SendOTP handles POST /api/v1/auth/otp/send - asks the auth provider to
// deliver a one-time code to the given phone number
func SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	authService := services.NewAuthService(config.GetConfig())
	if err := authService.SendOTP(req.Phone); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "Failed to send verification code",
			"code":    "AUTH_PROVIDER_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP sent successfully",
	})
}

// VerifyOTP handles POST /api/v1/auth/otp/verify - exchanges a one-time code
// for a session. The first successful verification for an unseen identity
// also creates the user profile; later verifications just sign in.
func VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	authService := services.NewAuthService(config.GetConfig())
	session, err := authService.VerifyOTP(req.Phone, req.Code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Invalid or expired verification code",
			"code":    "INVALID_OTP",
		})
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Preload("District").Where("auth_id = ?", session.User.ID).First(&user).Error; err == nil {
		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Your account has been deactivated",
				"code":    "ACCOUNT_DISABLED",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Signed in successfully",
			"data": gin.H{
				"user":    user,
				"session": session,
			},
		})
		return
	}

	// First verification for this identity: create the profile
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Name is required to create a profile",
			"code":    "MISSING_NAME",
		})
		return
	}

	role := models.RoleCustomer
	if req.Role != "" {
		role = models.UserRole(req.Role)
		if !role.Registerable() {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Role must be one of: farmer, agent, customer",
				"code":    "INVALID_ROLE",
			})
			return
		}
	}

	if role == models.RoleAgent && req.DistrictID == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Agents must register with a district",
			"code":    "MISSING_DISTRICT",
		})
		return
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
	}

	// Prefer the provider's record of the verified number
	phone := session.User.Phone
	if phone == "" {
		phone = req.Phone
	}

	user = models.User{
		AuthID:     session.User.ID,
		Name:       req.Name,
		Phone:      phone,
		Role:       role,
		DistrictID: req.DistrictID,
	}

	if err := db.Create(&user).Error; err != nil {
		// Check for a duplicate phone (works with both PostgreSQL and SQLite)
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "duplicate") ||
			strings.Contains(errMsg, "unique constraint") ||
			strings.Contains(errMsg, "unique") {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "A user with this phone number already exists",
				"code":    "USER_EXISTS",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create user profile",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	if err := db.Preload("District").First(&user, user.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load user profile",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Profile created successfully",
		"data": gin.H{
			"user":    user,
			"session": session,
		},
	})
}

// RefreshToken handles POST /api/v1/auth/refresh - exchanges a refresh token
// for a new session
func RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	authService := services.NewAuthService(config.GetConfig())
	session, err := authService.RefreshSession(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Invalid or expired refresh token",
			"code":    "INVALID_REFRESH_TOKEN",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Token refreshed successfully",
		"data":    gin.H{"session": session},
	})
}
