package productcontroller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/storage"
)

// PUT /admin/api/products/:id
// Accepts the same fields as CreateProduct; only the ones sent change.
func UpdateProduct(db *gorm.DB, disk storage.Disk, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		var product models.Product
		if err := db.WithContext(ctx).First(&product, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		in, err := ParseProductInput(postFormGetter(c))
		if err != nil {
			writeSaveError(c, err)
			return
		}
		in.Apply(&product)

		oldImage := product.Image
		key, err := saveUploadedImage(c, disk)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to save image: " + err.Error()})
			return
		}
		if key != "" {
			product.Image = key
		}

		if err := SaveProduct(ctx, db, &product); err != nil {
			if key != "" {
				_ = disk.Delete(ctx, key)
			}
			writeSaveError(c, err)
			return
		}

		// old file is only dropped once the new one is referenced
		if key != "" && oldImage != "" && oldImage != key {
			if err := disk.Delete(ctx, oldImage); err != nil {
				log.WithError(err).WithField("key", oldImage).Warn("failed to delete replaced product image")
			}
		}
		c.JSON(http.StatusOK, product)
	}
}
