package productcontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/models"
)

// GET /admin/api/products?category_id=&search=
// Unlike the storefront this includes unavailable products.
func GetProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Preload("Category").Order("products.id")

		if cid := c.Query("category_id"); cid != "" {
			query = query.Where("products.category_id = ?", cid)
		}
		if search := c.Query("search"); search != "" {
			like := "%" + search + "%"
			query = query.Where("LOWER(products.name) LIKE LOWER(?) OR LOWER(products.slug) LIKE LOWER(?)", like, like)
		}

		var products []models.Product
		if err := query.Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// GET /admin/api/products/:id
func GetProductByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var product models.Product
		if err := db.WithContext(c.Request.Context()).Preload("Category").First(&product, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
