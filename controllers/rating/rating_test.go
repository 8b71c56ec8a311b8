package ratingControllers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/database"
	"github.com/junaidrashid-git/eshop/logger"
	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/webtest"
)

func placeOrder(t *testing.T, db *gorm.DB, user *models.User, product *models.Product, paid bool) {
	t.Helper()
	order := &models.Order{
		UserID:     user.ID,
		FirstName:  "Test",
		LastName:   "Buyer",
		Email:      user.Email,
		Address:    "1 Main St",
		City:       "Dhaka",
		PostalCode: "1200",
		Paid:       paid,
		OrderRef:   fmt.Sprintf("ref-%d-%d-%t", user.ID, product.ID, paid),
		Items: []models.OrderItem{
			{ProductID: product.ID, ProductName: product.Name, Price: product.NewPrice, Quantity: 1},
		},
	}
	if paid {
		order.Status = models.OrderStatusProcessing
	}
	require.NoError(t, db.Create(order).Error)
}

func newRatingApp(t *testing.T) (*gorm.DB, *webtest.Browser) {
	t.Helper()
	db := database.OpenTest(t)
	log := logger.Discard()

	r := webtest.NewEngine(t, db)
	r.GET("/product/:slug/", func(c *gin.Context) {
		c.String(http.StatusOK, "product page")
	})
	g := r.Group("/rate", middleware.RequireLogin())
	g.GET("/:product_id/", RatePage(db, log))
	g.POST("/:product_id/", Rate(db, log))
	return db, webtest.NewBrowser(r)
}

func TestSaveRatingRequiresPaidOrder(t *testing.T) {
	db := database.OpenTest(t)
	ctx := context.Background()
	cat := webtest.CreateCategory(t, db, "Shirts")
	product := webtest.CreateProduct(t, db, cat, "Linen Shirt", "20.00", 5)
	user := webtest.CreateUser(t, db, "a@example.com")

	_, err := SaveRating(ctx, db, user.ID, product.ID, RatingForm{Rating: 5})
	assert.ErrorIs(t, err, ErrNotPurchased)

	placeOrder(t, db, user, product, false)
	_, err = SaveRating(ctx, db, user.ID, product.ID, RatingForm{Rating: 5})
	assert.ErrorIs(t, err, ErrNotPurchased, "unpaid orders do not count")

	placeOrder(t, db, user, product, true)
	_, err = SaveRating(ctx, db, user.ID, product.ID, RatingForm{Rating: 5, Comment: " great "})
	require.NoError(t, err)
	_, err = SaveRating(ctx, db, user.ID, product.ID, RatingForm{Rating: 3})
	require.NoError(t, err)

	var ratings []models.Rating
	require.NoError(t, db.Where("user_id = ? AND product_id = ?", user.ID, product.ID).Find(&ratings).Error)
	require.Len(t, ratings, 1, "one rating per user and product")
	assert.Equal(t, 3, ratings[0].Rating)
	assert.Empty(t, ratings[0].Comment)
}

func TestRateRedirectsWhenNotPurchased(t *testing.T) {
	db, browser := newRatingApp(t)
	cat := webtest.CreateCategory(t, db, "Shirts")
	product := webtest.CreateProduct(t, db, cat, "Linen Shirt", "20.00", 5)
	user := webtest.CreateUser(t, db, "a@example.com")
	path := fmt.Sprintf("/rate/%d/", product.ID)

	w := browser.Get(path)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/login/")

	browser.LoginAs(user.ID)
	w = browser.PostForm(path, url.Values{"rating": {"5"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/product/linen-shirt/", w.Header().Get("Location"))

	var count int64
	db.Model(&models.Rating{}).Count(&count)
	assert.Zero(t, count)

	assert.Equal(t, http.StatusNotFound, browser.Get("/rate/999/").Code)
}

func TestRateFlow(t *testing.T) {
	db, browser := newRatingApp(t)
	cat := webtest.CreateCategory(t, db, "Shirts")
	product := webtest.CreateProduct(t, db, cat, "Linen Shirt", "20.00", 5)
	user := webtest.CreateUser(t, db, "a@example.com")
	placeOrder(t, db, user, product, true)
	browser.LoginAs(user.ID)
	path := fmt.Sprintf("/rate/%d/", product.ID)

	w := browser.Get(path)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Rate Linen Shirt")

	w = browser.PostForm(path, url.Values{"rating": {"9"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `class="error"`)

	w = browser.PostForm(path, url.Values{"rating": {"4"}, "comment": {"Nice fabric"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/product/linen-shirt/", w.Header().Get("Location"))

	var rating models.Rating
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&rating).Error)
	assert.Equal(t, 4, rating.Rating)
	assert.Equal(t, "Nice fabric", rating.Comment)

	assert.Contains(t, browser.Get(path).Body.String(), "Nice fabric", "form is prefilled with the existing review")
}
