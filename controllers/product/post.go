package productcontroller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/storage"
)

const productImageDir = "products"

// postFormGetter exposes the submitted form fields to ParseProductInput.
func postFormGetter(c *gin.Context) func(string) (string, bool) {
	return func(key string) (string, bool) {
		return c.GetPostForm(key)
	}
}

// saveUploadedImage stores the optional "image" file and returns its key,
// or "" when none was sent.
func saveUploadedImage(c *gin.Context, disk storage.Disk) (string, error) {
	file, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return storage.SaveImage(c.Request.Context(), disk, productImageDir, file)
}

// POST /admin/api/products
//
// multipart/form-data: category_id, name, new_price required; slug,
// description, old_price, stock, available and an image file optional.
func CreateProduct(db *gorm.DB, disk storage.Disk, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, err := ParseProductInput(postFormGetter(c))
		if err != nil {
			writeSaveError(c, err)
			return
		}
		if in.CategoryID == nil || in.Name == nil || in.NewPrice == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category_id, name and new_price are required"})
			return
		}

		product := models.Product{Available: true}
		in.Apply(&product)

		key, err := saveUploadedImage(c, disk)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to save image: " + err.Error()})
			return
		}
		if key != "" {
			product.Image = key
		}

		if err := SaveProduct(c.Request.Context(), db, &product); err != nil {
			if key != "" {
				_ = disk.Delete(c.Request.Context(), key)
			}
			writeSaveError(c, err)
			return
		}

		log.WithFields(logrus.Fields{"product_id": product.ID, "slug": product.Slug}).Info("product created")
		c.JSON(http.StatusCreated, product)
	}
}
