package userControllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/database"
	"github.com/junaidrashid-git/eshop/forms"
	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/session"
	"github.com/junaidrashid-git/eshop/storage"
	"github.com/junaidrashid-git/eshop/templates"
)

const profilePictureDir = "profile_pics"

var ErrEmailTaken = errors.New("email already exists")

// OrderSummary is what the profile page shows about a user's orders.
type OrderSummary struct {
	Orders          []models.Order
	CompletedOrders int
	TotalSpent      decimal.Decimal
}

// SummarizeOrders loads the user's orders newest first. Completed orders are
// the delivered ones; total spent counts every paid order.
func SummarizeOrders(ctx context.Context, db *gorm.DB, userID uint) (*OrderSummary, error) {
	var orders []models.Order
	err := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	summary := &OrderSummary{Orders: orders, TotalSpent: decimal.Zero}
	for _, o := range orders {
		if o.Status == models.OrderStatusDelivered {
			summary.CompletedOrders++
		}
		if o.Paid {
			summary.TotalSpent = summary.TotalSpent.Add(o.TotalCost())
		}
	}
	return summary, nil
}

// GET /profile/
func Profile(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)

		summary, err := SummarizeOrders(c.Request.Context(), db, user.ID)
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("failed to load orders")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		templates.Render(c, http.StatusOK, "profile.html", gin.H{
			"Title":              "Profile",
			"Profile":            user,
			"Orders":             summary.Orders,
			"OrderHistoryActive": c.Query("tab") == "orders",
			"CompletedOrders":    summary.CompletedOrders,
			"TotalSpent":         summary.TotalSpent,
		})
	}
}

type ProfileForm struct {
	FullName string `form:"full_name" binding:"required,max=300"`
	Username string `form:"username" binding:"max=150"`
	Email    string `form:"email" binding:"required,email,max=254"`
}

// UpdateProfile applies the form to the user. The email stays unique.
func UpdateProfile(ctx context.Context, db *gorm.DB, user *models.User, form ProfileForm, picture string) error {
	email := models.NormalizeEmail(form.Email)

	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}

	user.SetFullName(form.FullName)
	user.Username = strings.TrimSpace(form.Username)
	user.Email = email
	updates := map[string]any{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"username":   user.Username,
		"email":      user.Email,
	}
	if picture != "" {
		user.ProfilePicture = picture
		updates["profile_picture"] = picture
	}

	err := db.WithContext(ctx).Model(user).Updates(updates).Error
	if database.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func renderProfileForm(c *gin.Context, form ProfileForm, errs map[string]string) {
	templates.Render(c, http.StatusOK, "profile_update.html", gin.H{
		"Title":  "Edit profile",
		"Form":   form,
		"Errors": errs,
	})
}

// GET /profile/update/
func ProfileUpdatePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		renderProfileForm(c, ProfileForm{
			FullName: user.FullName(),
			Username: user.Username,
			Email:    user.Email,
		}, map[string]string{})
	}
}

// POST /profile/update/ (multipart; profile_picture optional)
func ProfileUpdate(db *gorm.DB, disk storage.Disk, log *logrus.Logger) gin.HandlerFunc {
	forms.Setup()
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user := middleware.CurrentUser(c)
		sess := session.FromContext(c)

		var form ProfileForm
		if err := c.ShouldBind(&form); err != nil {
			renderProfileForm(c, form, forms.Errors(err))
			return
		}

		var picture string
		if fh, err := c.FormFile("profile_picture"); err == nil {
			picture, err = storage.SaveImage(ctx, disk, profilePictureDir, fh)
			if err != nil {
				msg := "Could not save the picture."
				if errors.Is(err, storage.ErrUnsupportedImage) {
					msg = "Upload a valid image."
				}
				renderProfileForm(c, form, map[string]string{"profile_picture": msg})
				return
			}
		}

		oldPicture := user.ProfilePicture
		if err := UpdateProfile(ctx, db, user, form, picture); err != nil {
			if picture != "" {
				_ = disk.Delete(ctx, picture)
			}
			if errors.Is(err, ErrEmailTaken) {
				renderProfileForm(c, form, map[string]string{"email": "Email already exists."})
				return
			}
			log.WithError(err).WithField("user_id", user.ID).Error("profile update failed")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		// pictures from Google sign-in are absolute URLs, not stored files
		if picture != "" && oldPicture != "" && !strings.Contains(oldPicture, "://") {
			if err := disk.Delete(ctx, oldPicture); err != nil {
				log.WithError(err).WithField("key", oldPicture).Warn("failed to delete old profile picture")
			}
		}

		sess.Flash(session.LevelSuccess, "Profile updated successfully.")
		c.Redirect(http.StatusFound, "/profile/")
	}
}
