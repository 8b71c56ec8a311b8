package ratingControllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/junaidrashid-git/eshop/forms"
	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/session"
	"github.com/junaidrashid-git/eshop/templates"
)

var ErrNotPurchased = errors.New("product was not purchased")

type RatingForm struct {
	Rating  int    `form:"rating" binding:"required,min=1,max=5"`
	Comment string `form:"comment" binding:"max=2000"`
}

// HasPurchased reports whether the user has a paid order containing the product.
func HasPurchased(ctx context.Context, db *gorm.DB, userID, productID uint) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.paid = ? AND order_items.product_id = ?", userID, true, productID).
		Count(&count).Error
	return count > 0, err
}

// SaveRating creates the user's rating for a product or replaces it.
func SaveRating(ctx context.Context, db *gorm.DB, userID, productID uint, form RatingForm) (*models.Rating, error) {
	ok, err := HasPurchased(ctx, db, userID, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotPurchased
	}

	rating := &models.Rating{
		UserID:    userID,
		ProductID: productID,
		Rating:    form.Rating,
		Comment:   strings.TrimSpace(form.Comment),
	}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "comment", "updated_at"}),
	}).Create(rating).Error
	if err != nil {
		return nil, err
	}
	return rating, nil
}

// loadRatable finds the product and checks the current user bought it. It
// writes the response itself when the second return is false.
func loadRatable(c *gin.Context, db *gorm.DB, log *logrus.Logger) (*models.Product, bool) {
	id, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		templates.NotFound(c)
		return nil, false
	}
	ctx := c.Request.Context()

	var product models.Product
	if err := db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			templates.NotFound(c)
		} else {
			log.WithError(err).Error("failed to load product")
			c.AbortWithStatus(http.StatusInternalServerError)
		}
		return nil, false
	}

	user := middleware.CurrentUser(c)
	bought, err := HasPurchased(ctx, db, user.ID, product.ID)
	if err != nil {
		log.WithError(err).Error("purchase check failed")
		c.AbortWithStatus(http.StatusInternalServerError)
		return nil, false
	}
	if !bought {
		session.FromContext(c).Flash(session.LevelError, "You can only rate products you have purchased.")
		c.Redirect(http.StatusFound, "/product/"+product.Slug+"/")
		return nil, false
	}
	return &product, true
}

// GET /rate/:product_id/
func RatePage(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, ok := loadRatable(c, db, log)
		if !ok {
			return
		}

		form := RatingForm{Rating: models.MaxRating}
		var existing models.Rating
		err := db.WithContext(c.Request.Context()).
			Where("user_id = ? AND product_id = ?", middleware.CurrentUser(c).ID, product.ID).
			First(&existing).Error
		switch {
		case err == nil:
			form = RatingForm{Rating: existing.Rating, Comment: existing.Comment}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			log.WithError(err).Error("failed to load rating")
		}

		templates.Render(c, http.StatusOK, "rate_product.html", gin.H{
			"Title":   "Rate " + product.Name,
			"Product": product,
			"Form":    form,
			"Errors":  map[string]string{},
		})
	}
}

// POST /rate/:product_id/
func Rate(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	forms.Setup()
	return func(c *gin.Context) {
		product, ok := loadRatable(c, db, log)
		if !ok {
			return
		}
		user := middleware.CurrentUser(c)
		sess := session.FromContext(c)

		var form RatingForm
		if err := c.ShouldBind(&form); err != nil {
			templates.Render(c, http.StatusOK, "rate_product.html", gin.H{
				"Title":   "Rate " + product.Name,
				"Product": product,
				"Form":    form,
				"Errors":  forms.Errors(err),
			})
			return
		}

		if _, err := SaveRating(c.Request.Context(), db, user.ID, product.ID, form); err != nil {
			log.WithError(err).WithFields(logrus.Fields{"user_id": user.ID, "product_id": product.ID}).Error("save rating failed")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		log.WithFields(logrus.Fields{"user_id": user.ID, "product_id": product.ID, "rating": form.Rating}).Info("product rated")
		sess.Flash(session.LevelSuccess, "Your review has been submitted.")
		c.Redirect(http.StatusFound, "/product/"+product.Slug+"/")
	}
}
