package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/middleware"
	"github.com/agrilink/agrilink-api/models"
)

// itoa renders a record ID for use in request paths
func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Auto-migrate all models
	if err := db.AutoMigrate(&models.District{}, &models.User{}, &models.Product{}, &models.Order{}, &models.Message{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware simulates the JWT middleware for testing.
// It sets up the context exactly as the real EnsureValidToken middleware does.
func mockAuthMiddleware(authID, phone string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Set the subject (provider user ID from the 'sub' claim)
		c.Set("auth_subject", authID)

		// Set the raw access token
		c.Set("access_token", "mock-token")

		// Store claims the same way the real middleware does
		c.Set("validated_claims", &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{
				Subject: authID,
			},
			CustomClaims: &middleware.CustomClaims{
				Phone: phone,
			},
		})

		c.Next()
	}
}

func TestGetMyProfile(t *testing.T) {
	// Setup
	db := setupTestDB(t)
	config.SetDB(db)

	district := models.District{Name: "Khulna"}
	db.Create(&district)

	user := models.User{
		AuthID:     "prov|farmer1",
		Name:       "Farmer One",
		Phone:      "+8801711000001",
		Role:       models.RoleFarmer,
		DistrictID: &district.ID,
		IsActive:   true,
	}
	db.Create(&user)

	suspended := models.User{
		AuthID:   "prov|suspended",
		Name:     "Suspended User",
		Phone:    "+8801711000002",
		Role:     models.RoleCustomer,
		IsActive: false,
	}
	db.Create(&suspended)

	tests := []struct {
		name           string
		authID         string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Successfully fetch own profile",
			authID:         user.AuthID,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Fail with unknown subject",
			authID:         "prov|nonexistent",
			expectedStatus: http.StatusNotFound,
			expectedCode:   "USER_NOT_FOUND",
		},
		{
			name:           "Fail with deactivated account",
			authID:         suspended.AuthID,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "ACCOUNT_DISABLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.GET("/auth/me", mockAuthMiddleware(tt.authID, "+8801711000001"), GetMyProfile)

			req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			assert.NoError(t, err)

			if tt.expectedCode != "" {
				assert.False(t, response["success"].(bool))
				assert.Equal(t, tt.expectedCode, response["code"])
				return
			}

			assert.True(t, response["success"].(bool))
			data := response["data"].(map[string]interface{})
			assert.Equal(t, "Farmer One", data["name"])
			assert.Equal(t, "farmer", data["role"])

			// District relationship should be loaded
			districtData := data["district"].(map[string]interface{})
			assert.Equal(t, "Khulna", districtData["name"])
		})
	}
}

func TestUpdateMyProfile(t *testing.T) {
	// Setup
	db := setupTestDB(t)
	config.SetDB(db)

	khulna := models.District{Name: "Khulna"}
	rajshahi := models.District{Name: "Rajshahi"}
	db.Create(&khulna)
	db.Create(&rajshahi)

	user := models.User{
		AuthID:     "prov|customer1",
		Name:       "Customer One",
		Phone:      "+8801711000001",
		Role:       models.RoleCustomer,
		DistrictID: &khulna.ID,
		IsActive:   true,
	}
	db.Create(&user)

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedCode   string
		checkResponse  func(t *testing.T, data map[string]interface{})
	}{
		{
			name: "Update name",
			requestBody: map[string]interface{}{
				"name": "Customer Renamed",
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "Customer Renamed", data["name"])
			},
		},
		{
			name: "Update district",
			requestBody: map[string]interface{}{
				"district_id": rajshahi.ID,
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				districtData := data["district"].(map[string]interface{})
				assert.Equal(t, "Rajshahi", districtData["name"])
			},
		},
		{
			name: "Fail with unknown district",
			requestBody: map[string]interface{}{
				"district_id": 9999,
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name:           "Empty update returns current profile",
			requestBody:    map[string]interface{}{},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "customer", data["role"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.PUT("/auth/me", mockAuthMiddleware(user.AuthID, user.Phone), UpdateMyProfile)

			body, _ := json.Marshal(tt.requestBody)
			req, _ := http.NewRequest(http.MethodPut, "/auth/me", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			assert.NoError(t, err)

			if tt.expectedCode != "" {
				assert.False(t, response["success"].(bool))
				assert.Equal(t, tt.expectedCode, response["code"])
				return
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, response["data"].(map[string]interface{}))
			}
		})
	}
}

func TestUpdateMyProfile_RoleAndPhoneImmutable(t *testing.T) {
	// Setup
	db := setupTestDB(t)
	config.SetDB(db)

	user := models.User{
		AuthID:   "prov|customer1",
		Name:     "Customer One",
		Phone:    "+8801711000001",
		Role:     models.RoleCustomer,
		IsActive: true,
	}
	db.Create(&user)

	router := setupTestRouter()
	router.PUT("/auth/me", mockAuthMiddleware(user.AuthID, user.Phone), UpdateMyProfile)

	// Unknown fields are ignored by the binder
	body, _ := json.Marshal(map[string]interface{}{
		"role":  "admin",
		"phone": "+8801799999999",
		"name":  "Still Customer",
	})
	req, _ := http.NewRequest(http.MethodPut, "/auth/me", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	db.First(&stored, user.ID)
	assert.Equal(t, models.RoleCustomer, stored.Role)
	assert.Equal(t, "+8801711000001", stored.Phone)
	assert.Equal(t, "Still Customer", stored.Name)
}
