package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/controllers"
	"github.com/agrilink/agrilink-api/middleware"
	"github.com/agrilink/agrilink-api/models"
	"github.com/agrilink/agrilink-api/services"
)

func main() {
	log.Println("Starting AgriLink API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.SetConfig(cfg)

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(&models.District{}, &models.User{}, &models.Product{}, &models.Order{}, &models.Message{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Redis backs the OTP rate limiter; the API runs without it
	if err := config.ConnectRedis(cfg); err != nil {
		log.Printf("Redis unavailable, OTP rate limiting disabled: %v", err)
	}

	// S3 backs product image storage; uploads are disabled without a bucket
	if cfg.AWSS3Bucket != "" {
		s3Service, err := services.InitS3Service()
		if err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
		services.InitImageService(s3Service)
		log.Println("Image storage initialized")
	} else {
		log.Println("AWS_S3_BUCKET not set, image uploads disabled")
	}

	router := setupRouter(cfg)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter wires middleware and all API routes onto a gin engine
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	otpLimit := middleware.OTPRateLimit(
		config.GetRedis(),
		cfg.OTPRateLimit,
		time.Duration(cfg.OTPRateWindowSec)*time.Second,
	)

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Public auth endpoints
		auth := v1.Group("/auth")
		{
			auth.POST("/otp/send", otpLimit, controllers.SendOTP)
			auth.POST("/otp/verify", otpLimit, controllers.VerifyOTP)
			auth.POST("/refresh", controllers.RefreshToken)
		}

		// Public catalog endpoints
		v1.GET("/districts", controllers.GetDistricts)
		v1.GET("/products", controllers.GetProducts)
		v1.GET("/products/:id", controllers.GetProduct)

		// Authenticated endpoints
		authed := v1.Group("")
		authed.Use(middleware.EnsureValidToken(cfg))
		{
			authed.GET("/auth/me", controllers.GetMyProfile)
			authed.PUT("/auth/me", controllers.UpdateMyProfile)

			authed.POST("/orders", controllers.CreateOrder)
			authed.GET("/orders", controllers.ListOrders)
			authed.GET("/orders/agents/available", controllers.GetAvailableAgents)
			authed.GET("/orders/:id", controllers.GetOrder)
			authed.PUT("/orders/:id/status", controllers.UpdateOrderStatus)
			authed.PUT("/orders/:id/assign-agent", controllers.AssignAgent)
			authed.GET("/orders/:id/messages", controllers.ListMessages)
			authed.POST("/orders/:id/messages", controllers.SendMessage)

			authed.GET("/products/mine", controllers.GetMyProducts)
			authed.POST("/products", controllers.CreateProduct)
			authed.PUT("/products/:id", controllers.UpdateProduct)
			authed.DELETE("/products/:id", controllers.DeleteProduct)
			authed.POST("/products/:id/image", controllers.UploadProductImage)
		}

		// Admin endpoints
		admin := v1.Group("/admin")
		admin.Use(middleware.EnsureValidToken(cfg), middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/users", controllers.ListUsers)
			admin.PUT("/users/:id/active", controllers.SetUserActive)
			admin.DELETE("/orders/:id", controllers.PurgeOrder)
			admin.GET("/stats", controllers.GetStats)

			admin.POST("/districts", controllers.CreateDistrict)
			admin.PUT("/districts/:id", controllers.UpdateDistrict)
			admin.DELETE("/districts/:id", controllers.DeleteDistrict)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "AgriLink API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get database instance",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Database connection failed",
			"code":    "DATABASE_CONNECTION_ERROR",
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to query tables",
			"code":    "DATABASE_QUERY_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
