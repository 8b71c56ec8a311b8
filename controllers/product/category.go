package productcontroller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/models"
)

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

// writeSaveError maps SaveProduct/SaveCategory errors to a JSON response.
func writeSaveError(c *gin.Context, err error) {
	var fieldErr *FieldError
	switch {
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": fieldErr.Error(), "field": fieldErr.Field})
	case errors.Is(err, ErrCategoryNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category does not exist"})
	case errors.Is(err, ErrSlugTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Slug already exists"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save"})
	}
}

// POST /admin/api/categories
func CreateCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := models.Category{
			Name:        c.PostForm("name"),
			Slug:        c.PostForm("slug"),
			Description: c.PostForm("description"),
		}
		if err := SaveCategory(c.Request.Context(), db, &category); err != nil {
			writeSaveError(c, err)
			return
		}
		c.JSON(http.StatusCreated, category)
	}
}

// GET /admin/api/categories
func GetAllCategories(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := allCategories(c.Request.Context(), db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

// GET /admin/api/categories/:id
func GetCategoryByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var category models.Category
		if err := db.WithContext(c.Request.Context()).Preload("Products").First(&category, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusOK, category)
	}
}

// PUT /admin/api/categories/:id
func UpdateCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var category models.Category
		if err := db.WithContext(c.Request.Context()).First(&category, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}

		if v, ok := c.GetPostForm("name"); ok {
			category.Name = v
		}
		if v, ok := c.GetPostForm("slug"); ok {
			category.Slug = v
		}
		if v, ok := c.GetPostForm("description"); ok {
			category.Description = v
		}

		if err := SaveCategory(c.Request.Context(), db, &category); err != nil {
			writeSaveError(c, err)
			return
		}
		c.JSON(http.StatusOK, category)
	}
}

// DELETE /admin/api/categories/:id
func DeleteCategoryHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		err := DeleteCategory(c.Request.Context(), db, id)
		switch {
		case errors.Is(err, ErrCategoryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		case errors.Is(err, ErrCategoryInUse):
			c.JSON(http.StatusConflict, gin.H{"error": "Category still has products"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		default:
			c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
		}
	}
}
