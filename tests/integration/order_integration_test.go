package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/controllers"
	"github.com/agrilink/agrilink-api/middleware"
	"github.com/agrilink/agrilink-api/models"
	"github.com/agrilink/agrilink-api/tests/testutil"
)

// OrderIntegrationTestSuite drives the order lifecycle through the real
// token middleware, controllers, and service layer
type OrderIntegrationTestSuite struct {
	suite.Suite
	router *gin.Engine
	db     *gorm.DB
	cfg    *config.Config

	khulna    models.District
	rajshahi  models.District
	farmer    models.User
	customer  models.User
	customer2 models.User
	agent     models.User
	agent2    models.User
	admin     models.User
	rice      models.Product
}

// SetupSuite runs once before all tests
func (suite *OrderIntegrationTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	testutil.SetTestEnvironment()

	cfg, err := config.Load()
	suite.NoError(err)
	suite.cfg = cfg
	config.SetConfig(cfg)
}

// SetupTest runs before each test
func (suite *OrderIntegrationTestSuite) SetupTest() {
	// Create in-memory database for testing
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.NoError(err)
	suite.db = db

	err = db.AutoMigrate(&models.District{}, &models.User{}, &models.Product{}, &models.Order{})
	suite.NoError(err)

	config.SetDB(db)

	suite.seedMarketplace()

	// Mount the order routes behind the real token middleware
	suite.router = gin.New()
	v1 := suite.router.Group("/api/v1")
	authed := v1.Group("")
	authed.Use(middleware.EnsureValidToken(suite.cfg))
	{
		authed.POST("/orders", controllers.CreateOrder)
		authed.GET("/orders", controllers.ListOrders)
		authed.GET("/orders/agents/available", controllers.GetAvailableAgents)
		authed.GET("/orders/:id", controllers.GetOrder)
		authed.PUT("/orders/:id/status", controllers.UpdateOrderStatus)
		authed.PUT("/orders/:id/assign-agent", controllers.AssignAgent)
	}
}

// TearDownTest runs after each test
func (suite *OrderIntegrationTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

// seedMarketplace creates the districts, users, and product the tests order against
func (suite *OrderIntegrationTestSuite) seedMarketplace() {
	suite.khulna = models.District{Name: "Khulna"}
	suite.rajshahi = models.District{Name: "Rajshahi"}
	suite.NoError(suite.db.Create(&suite.khulna).Error)
	suite.NoError(suite.db.Create(&suite.rajshahi).Error)

	suite.farmer = models.User{AuthID: "prov|int-farmer", Name: "Integration Farmer", Phone: "+8801722000001", Role: models.RoleFarmer, DistrictID: &suite.khulna.ID, IsActive: true}
	suite.customer = models.User{AuthID: "prov|int-customer", Name: "Integration Customer", Phone: "+8801722000002", Role: models.RoleCustomer, IsActive: true}
	suite.customer2 = models.User{AuthID: "prov|int-customer2", Name: "Second Customer", Phone: "+8801722000003", Role: models.RoleCustomer, IsActive: true}
	suite.agent = models.User{AuthID: "prov|int-agent", Name: "Khulna Agent", Phone: "+8801722000004", Role: models.RoleAgent, DistrictID: &suite.khulna.ID, IsActive: true}
	suite.agent2 = models.User{AuthID: "prov|int-agent2", Name: "Rajshahi Agent", Phone: "+8801722000005", Role: models.RoleAgent, DistrictID: &suite.rajshahi.ID, IsActive: true}
	suite.admin = models.User{AuthID: "prov|int-admin", Name: "Integration Admin", Phone: "+8801722000006", Role: models.RoleAdmin, IsActive: true}
	for _, u := range []*models.User{&suite.farmer, &suite.customer, &suite.customer2, &suite.agent, &suite.agent2, &suite.admin} {
		suite.NoError(suite.db.Create(u).Error)
	}

	suite.rice = models.Product{
		FarmerID:          suite.farmer.ID,
		DistrictID:        suite.khulna.ID,
		Name:              "Boro Rice",
		Price:             45.00,
		AvailableQuantity: 100,
		Unit:              "kg",
		IsActive:          true,
	}
	suite.NoError(suite.db.Create(&suite.rice).Error)
}

// request sends an authenticated JSON request through the router and decodes
// the response envelope
func (suite *OrderIntegrationTestSuite) request(user models.User, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		suite.NoError(err)
		reader = bytes.NewReader(bodyJSON)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := testutil.MintAccessToken(suite.cfg, user.AuthID, user.Phone, time.Hour)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	suite.NoError(err)

	return w, response
}

// TestOrderLifecycle_BookedToDelivered walks one order through its whole life
func (suite *OrderIntegrationTestSuite) TestOrderLifecycle_BookedToDelivered() {
	// Step 1: Customer books 4 kg of rice
	w, response := suite.request(suite.customer, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"product_id":       suite.rice.ID,
		"quantity":         4,
		"delivery_address": "House 7, Sonadanga, Khulna",
		"customer_notes":   "Call before delivery",
	})
	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.True(suite.T(), response["success"].(bool))

	data := response["data"].(map[string]interface{})
	orderID := uint(data["id"].(float64))
	assert.Equal(suite.T(), "booked", data["status"])
	assert.Equal(suite.T(), 45.00, data["unit_price"])
	assert.Equal(suite.T(), 180.00, data["total_price"])
	assert.Equal(suite.T(), 0.0, data["commission"])

	// Stock was decremented
	var product models.Product
	suite.NoError(suite.db.First(&product, suite.rice.ID).Error)
	assert.Equal(suite.T(), 96.0, product.AvailableQuantity)

	// Step 2: Farmer confirms the order
	w, response = suite.request(suite.farmer, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/status", orderID), map[string]interface{}{
		"status": "confirmed",
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "confirmed", response["data"].(map[string]interface{})["status"])

	// Step 3: Customer picks a delivery agent from the product's district
	w, response = suite.request(suite.customer, http.MethodGet, fmt.Sprintf("/api/v1/orders/agents/available?district_id=%d", suite.khulna.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	agents := response["data"].([]interface{})
	assert.Len(suite.T(), agents, 1)

	w, response = suite.request(suite.customer, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/assign-agent", orderID), map[string]interface{}{
		"agent_id": suite.agent.ID,
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	data = response["data"].(map[string]interface{})
	assert.Equal(suite.T(), float64(suite.agent.ID), data["agent_id"])
	assert.Equal(suite.T(), 9.00, data["commission"]) // 180.00 * 5%

	// Step 4: Agent picks up the order
	w, response = suite.request(suite.agent, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/status", orderID), map[string]interface{}{
		"status":      "picked",
		"agent_notes": "Collected from the farm",
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "picked", response["data"].(map[string]interface{})["status"])

	// Step 5: Agent delivers
	w, response = suite.request(suite.agent, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/status", orderID), map[string]interface{}{
		"status": "delivered",
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "delivered", response["data"].(map[string]interface{})["status"])

	// Step 6: Customer reviews the finished order
	w, response = suite.request(suite.customer, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", orderID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	data = response["data"].(map[string]interface{})
	assert.Equal(suite.T(), "delivered", data["status"])
	assert.Equal(suite.T(), "Collected from the farm", data["agent_notes"])
	assert.Equal(suite.T(), "Call before delivery", data["customer_notes"])
}

// TestOrderLifecycle_CancelledOrderIsTerminal verifies cancellation ends the lifecycle
func (suite *OrderIntegrationTestSuite) TestOrderLifecycle_CancelledOrderIsTerminal() {
	// Customer books an order
	w, response := suite.request(suite.customer, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"product_id":       suite.rice.ID,
		"quantity":         2,
		"delivery_address": "House 7, Sonadanga, Khulna",
	})
	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	orderID := uint(response["data"].(map[string]interface{})["id"].(float64))

	// Farmer cancels it
	w, response = suite.request(suite.farmer, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/status", orderID), map[string]interface{}{
		"status": "cancelled",
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "cancelled", response["data"].(map[string]interface{})["status"])

	// No transition leaves a cancelled order
	w, response = suite.request(suite.farmer, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/status", orderID), map[string]interface{}{
		"status": "confirmed",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "INVALID_TRANSITION", response["code"])
}

// TestOrderCreation_InsufficientStock verifies overselling is rejected
func (suite *OrderIntegrationTestSuite) TestOrderCreation_InsufficientStock() {
	w, response := suite.request(suite.customer, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"product_id":       suite.rice.ID,
		"quantity":         500,
		"delivery_address": "House 7, Sonadanga, Khulna",
	})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "INSUFFICIENT_STOCK", response["code"])

	// Nothing was persisted and stock is untouched
	var count int64
	suite.db.Model(&models.Order{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)

	var product models.Product
	suite.NoError(suite.db.First(&product, suite.rice.ID).Error)
	assert.Equal(suite.T(), 100.0, product.AvailableQuantity)
}

// TestOrderVisibility_ScopedByRole verifies each role sees its own slice
func (suite *OrderIntegrationTestSuite) TestOrderVisibility_ScopedByRole() {
	// One order placed by the first customer
	w, _ := suite.request(suite.customer, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"product_id":       suite.rice.ID,
		"quantity":         1,
		"delivery_address": "House 7, Sonadanga, Khulna",
	})
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	// The customer sees it
	w, response := suite.request(suite.customer, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), response["data"].([]interface{}), 1)

	// Another customer sees nothing
	w, response = suite.request(suite.customer2, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), response["data"].([]interface{}), 0)

	// The farmer sees the order against their product
	w, response = suite.request(suite.farmer, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), response["data"].([]interface{}), 1)

	// An unassigned agent sees nothing
	w, response = suite.request(suite.agent, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), response["data"].([]interface{}), 0)

	// The admin sees everything
	w, response = suite.request(suite.admin, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), response["data"].([]interface{}), 1)
}

// TestAvailableAgents_DistrictScoped verifies the agent directory honors districts
func (suite *OrderIntegrationTestSuite) TestAvailableAgents_DistrictScoped() {
	w, response := suite.request(suite.customer, http.MethodGet, fmt.Sprintf("/api/v1/orders/agents/available?district_id=%d", suite.khulna.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	agents := response["data"].([]interface{})
	assert.Len(suite.T(), agents, 1)
	assert.Equal(suite.T(), "Khulna Agent", agents[0].(map[string]interface{})["name"])

	w, response = suite.request(suite.customer, http.MethodGet, fmt.Sprintf("/api/v1/orders/agents/available?district_id=%d", suite.rajshahi.ID), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	agents = response["data"].([]interface{})
	assert.Len(suite.T(), agents, 1)
	assert.Equal(suite.T(), "Rajshahi Agent", agents[0].(map[string]interface{})["name"])
}

// TestOrderIntegrationTestSuite runs the test suite
func TestOrderIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(OrderIntegrationTestSuite))
}
