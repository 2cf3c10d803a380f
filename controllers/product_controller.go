package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-api/config"
	"github.com/agrilink/agrilink-api/models"
	"github.com/agrilink/agrilink-api/services"
	"github.com/agrilink/agrilink-api/utils"
)

// CreateProductRequest represents the request body for listing a product
type CreateProductRequest struct {
	Name              string  `json:"name" binding:"required"`
	Description       string  `json:"description" binding:"omitempty"`
	Price             float64 `json:"price" binding:"required,gt=0"`
	AvailableQuantity float64 `json:"available_quantity" binding:"required,gte=0"`
	Unit              string  `json:"unit" binding:"omitempty"`
	DistrictID        uint    `json:"district_id" binding:"required"`
	FarmerID          *uint   `json:"farmer_id" binding:"omitempty"` // admins listing on behalf of a farmer
}

// UpdateProductRequest represents the request body for updating a product.
// Pointer fields distinguish "not provided" from zero values.
type UpdateProductRequest struct {
	Name              string   `json:"name" binding:"omitempty"`
	Description       *string  `json:"description" binding:"omitempty"`
	Price             *float64 `json:"price" binding:"omitempty,gt=0"`
	AvailableQuantity *float64 `json:"available_quantity" binding:"omitempty,gte=0"`
	Unit              string   `json:"unit" binding:"omitempty"`
	DistrictID        *uint    `json:"district_id" binding:"omitempty"`
	IsActive          *bool    `json:"is_active" binding:"omitempty"`
}

// attachImageURL resolves the public URL for a product's stored image
func attachImageURL(product *models.Product) {
	if product.ImageS3Key == nil || *product.ImageS3Key == "" {
		return
	}

	imageService := services.GetImageService()
	if imageService == nil {
		return
	}

	if url, err := imageService.GetImageURL(*product.ImageS3Key); err == nil && url != "" {
		product.ImageURL = &url
	}
}

// GetProducts handles GET /api/v1/products - lists active products with
// optional filters (public)
func GetProducts(c *gin.Context) {
	db := config.GetDB()

	query := db.Model(&models.Product{}).Where("is_active = ?", true)
	if districtID := c.Query("district_id"); districtID != "" {
		query = query.Where("district_id = ?", districtID)
	}
	if farmerID := c.Query("farmer_id"); farmerID != "" {
		query = query.Where("farmer_id = ?", farmerID)
	}
	if minPrice := c.Query("min_price"); minPrice != "" {
		query = query.Where("price >= ?", minPrice)
	}
	if maxPrice := c.Query("max_price"); maxPrice != "" {
		query = query.Where("price <= ?", maxPrice)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	page, limit := parsePagination(c)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to count products",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	var products []models.Product
	if err := query.
		Preload("Farmer").
		Preload("District").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load products",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	for i := range products {
		attachImageURL(&products[i])
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Products fetched successfully",
		"data":       products,
		"pagination": paginationPayload(page, limit, total, totalPages),
	})
}

// GetProduct handles GET /api/v1/products/:id - fetches a single active
// product (public)
func GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.Preload("Farmer").Preload("District").First(&product, id).Error; err != nil || !product.IsActive {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Product not found",
			"code":    "NOT_FOUND",
		})
		return
	}

	attachImageURL(&product)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product fetched successfully",
		"data":    product,
	})
}

// GetMyProducts handles GET /api/v1/products/mine - lists the calling
// farmer's products, including inactive ones
func GetMyProducts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if user.Role != models.RoleFarmer {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Only farmers have product listings",
			"code":    "PERMISSION_DENIED",
		})
		return
	}

	db := config.GetDB()
	query := db.Model(&models.Product{}).Where("farmer_id = ?", user.ID)

	page, limit := parsePagination(c)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to count products",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	var products []models.Product
	if err := query.
		Preload("District").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load products",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	for i := range products {
		attachImageURL(&products[i])
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Products fetched successfully",
		"data":       products,
		"pagination": paginationPayload(page, limit, total, totalPages),
	})
}

// CreateProduct handles POST /api/v1/products - lists a new product
// (farmers, or admins on behalf of a farmer)
func CreateProduct(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if user.Role != models.RoleFarmer && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Only farmers can list products",
			"code":    "PERMISSION_DENIED",
		})
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()

	farmerID := user.ID
	if user.Role == models.RoleAdmin {
		if req.FarmerID == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "farmer_id is required when an admin lists a product",
				"code":    "VALIDATION_ERROR",
			})
			return
		}

		var farmer models.User
		if err := db.Where("id = ? AND role = ?", *req.FarmerID, models.RoleFarmer).First(&farmer).Error; err != nil || !farmer.IsActive {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Farmer not found",
				"code":    "NOT_FOUND",
			})
			return
		}
		farmerID = farmer.ID
	}

	var district models.District
	if err := db.First(&district, req.DistrictID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "District not found",
			"code":    "NOT_FOUND",
		})
		return
	}

	product := models.Product{
		FarmerID:          farmerID,
		DistrictID:        req.DistrictID,
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		AvailableQuantity: req.AvailableQuantity,
		Unit:              req.Unit,
		IsActive:          true,
	}
	if product.Unit == "" {
		product.Unit = "kg"
	}

	if err := db.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create product",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	if err := db.Preload("Farmer").Preload("District").First(&product, product.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load product",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Product created successfully",
		"data":    product,
	})
}

// UpdateProduct handles PUT /api/v1/products/:id - updates a product
// (the owning farmer or an admin)
func UpdateProduct(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Product not found",
			"code":    "NOT_FOUND",
		})
		return
	}

	if user.Role != models.RoleAdmin && product.FarmerID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You can only manage your own products",
			"code":    "ACCESS_DENIED",
		})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.AvailableQuantity != nil {
		updates["available_quantity"] = *req.AvailableQuantity
	}
	if req.Unit != "" {
		updates["unit"] = req.Unit
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
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

	if len(updates) > 0 {
		if err := db.Model(&product).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to update product",
				"code":    "DATABASE_ERROR",
			})
			return
		}
	}

	if err := db.Preload("Farmer").Preload("District").First(&product, product.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load product",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	attachImageURL(&product)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product updated successfully",
		"data":    product,
	})
}

// DeleteProduct handles DELETE /api/v1/products/:id - removes a product
// listing (the owning farmer or an admin). Existing orders keep their
// snapshot of the listing.
func DeleteProduct(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Product not found",
			"code":    "NOT_FOUND",
		})
		return
	}

	if user.Role != models.RoleAdmin && product.FarmerID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You can only manage your own products",
			"code":    "ACCESS_DENIED",
		})
		return
	}

	if err := db.Delete(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to delete product",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product deleted successfully",
	})
}

// UploadProductImage handles POST /api/v1/products/:id/image - uploads a
// product photo (the owning farmer or an admin)
func UploadProductImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, ok := parseIDParam(c, "product")
	if !ok {
		return
	}

	db := config.GetDB()
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Product not found",
			"code":    "NOT_FOUND",
		})
		return
	}

	if user.Role != models.RoleAdmin && product.FarmerID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You can only manage your own products",
			"code":    "ACCESS_DENIED",
		})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Image file is required",
			"code":    "MISSING_FILE",
		})
		return
	}

	imageService := services.GetImageService()
	if imageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": "Image storage is not configured",
			"code":    "STORAGE_UNAVAILABLE",
		})
		return
	}

	s3Key, err := imageService.UploadImage(fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": uploadErr.Message,
				"code":    uploadErr.Code,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to upload image",
			"code":    "UPLOAD_FAILED",
		})
		return
	}

	// Replace any previous image, best effort
	if product.ImageS3Key != nil && *product.ImageS3Key != "" {
		_ = imageService.DeleteImage(*product.ImageS3Key)
	}

	if err := db.Model(&product).Update("image_s3_key", s3Key).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to save image reference",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	if err := db.Preload("Farmer").Preload("District").First(&product, product.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load product",
			"code":    "DATABASE_ERROR",
		})
		return
	}

	attachImageURL(&product)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Image uploaded successfully",
		"data":    product,
	})
}
