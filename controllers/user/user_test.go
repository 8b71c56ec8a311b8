package userControllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/database"
	"github.com/junaidrashid-git/eshop/logger"
	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/storage"
	"github.com/junaidrashid-git/eshop/webtest"
)

func createOrder(t *testing.T, db *gorm.DB, user *models.User, ref string, paid bool, status models.OrderStatus, price string, qty int) *models.Order {
	t.Helper()
	var product models.Product
	if err := db.First(&product).Error; err != nil {
		product = *webtest.CreateProduct(t, db, webtest.CreateCategory(t, db, "Shirts"), "Shirt", "1.00", 100)
	}
	order := &models.Order{
		UserID:     user.ID,
		FirstName:  "Test",
		LastName:   "Buyer",
		Email:      user.Email,
		Address:    "1 Main St",
		City:       "Dhaka",
		PostalCode: "1200",
		Paid:       paid,
		Status:     status,
		OrderRef:   ref,
		Items: []models.OrderItem{
			{ProductID: product.ID, ProductName: product.Name, Price: decimal.RequireFromString(price), Quantity: qty},
		},
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestSummarizeOrders(t *testing.T) {
	db := database.OpenTest(t)
	user := webtest.CreateUser(t, db, "a@example.com")
	other := webtest.CreateUser(t, db, "b@example.com")

	createOrder(t, db, user, "r1", true, models.OrderStatusDelivered, "10.00", 2)
	createOrder(t, db, user, "r2", true, models.OrderStatusProcessing, "5.50", 1)
	latest := createOrder(t, db, user, "r3", false, models.OrderStatusCanceled, "99.00", 1)
	createOrder(t, db, other, "r4", true, models.OrderStatusDelivered, "1.00", 1)

	summary, err := SummarizeOrders(context.Background(), db, user.ID)
	require.NoError(t, err)
	require.Len(t, summary.Orders, 3)
	assert.Equal(t, latest.ID, summary.Orders[0].ID, "newest first")
	assert.Equal(t, 1, summary.CompletedOrders)
	assert.Equal(t, "25.50", summary.TotalSpent.StringFixed(2), "only paid orders count")
}

func newProfileApp(t *testing.T) (*gorm.DB, *webtest.Browser, *storage.LocalDisk) {
	t.Helper()
	db := database.OpenTest(t)
	log := logger.Discard()
	disk := storage.NewLocalDisk(t.TempDir(), "/media/")

	r := webtest.NewEngine(t, db)
	g := r.Group("/profile", middleware.RequireLogin())
	g.GET("/", Profile(db, log))
	g.GET("/update/", ProfileUpdatePage())
	g.POST("/update/", ProfileUpdate(db, disk, log))
	return db, webtest.NewBrowser(r), disk
}

func TestProfilePage(t *testing.T) {
	db, browser, _ := newProfileApp(t)
	user := webtest.CreateUser(t, db, "a@example.com")
	createOrder(t, db, user, "r1", true, models.OrderStatusDelivered, "10.00", 2)

	w := browser.Get("/profile/")
	assert.Equal(t, http.StatusFound, w.Code)

	browser.LoginAs(user.ID)
	body := browser.Get("/profile/").Body.String()
	assert.Contains(t, body, "Completed orders: 1")
	assert.Contains(t, body, "Total spent: 20.00")
	assert.NotContains(t, body, "<table>")

	body = browser.Get("/profile/?tab=orders").Body.String()
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "delivered")
}

func TestProfileUpdate(t *testing.T) {
	db, browser, _ := newProfileApp(t)
	user := webtest.CreateUser(t, db, "a@example.com")
	webtest.CreateUser(t, db, "taken@example.com")
	browser.LoginAs(user.ID)

	page := browser.Get("/profile/update/").Body.String()
	assert.Contains(t, page, `value="a@example.com"`)

	w := browser.PostForm("/profile/update/", url.Values{
		"full_name": {"Jane"},
		"email":     {"TAKEN@example.com"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Email already exists.")

	w = browser.PostForm("/profile/update/", url.Values{"full_name": {"Jane"}, "email": {"not-an-email"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Enter a valid email address.")

	w = browser.PostForm("/profile/update/", url.Values{
		"full_name": {"Jane van Dyke"},
		"username":  {"jane"},
		"email":     {"Jane@Example.com"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile/", w.Header().Get("Location"))

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, "Jane", stored.FirstName)
	assert.Equal(t, "van Dyke", stored.LastName)
	assert.Equal(t, "jane", stored.Username)
	assert.Equal(t, "jane@example.com", stored.Email)
}

func TestProfileUpdateWithPicture(t *testing.T) {
	db, browser, disk := newProfileApp(t)
	user := webtest.CreateUser(t, db, "a@example.com")
	browser.LoginAs(user.ID)

	upload := func(name string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("full_name", "Jane Doe"))
		require.NoError(t, mw.WriteField("email", "a@example.com"))
		part, err := mw.CreateFormFile("profile_picture", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("img"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/profile/update/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return browser.Do(req)
	}

	w := upload("script.exe")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Upload a valid image.")

	w = upload("me.jpg")
	require.Equal(t, http.StatusFound, w.Code)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.True(t, strings.HasPrefix(stored.ProfilePicture, profilePictureDir+"/"))
	assert.FileExists(t, disk.Root()+"/"+stored.ProfilePicture)
}

func TestAdminUsers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := database.OpenTest(t)
	user := webtest.CreateUser(t, db, "a@example.com")
	createOrder(t, db, user, "r1", true, models.OrderStatusDelivered, "10.00", 1)

	r := gin.New()
	r.GET("/admin/api/users", GetAllUsers(db))
	r.GET("/admin/api/users/:user_id", GetUserByID(db))
	r.PUT("/admin/api/users/:user_id", UpdateUserFlags(db))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/api/users", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@example.com")
	assert.NotContains(t, w.Body.String(), "password")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/admin/api/users/%d", user.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		CompletedOrders int `json:"completed_orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.CompletedOrders)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/admin/api/users/%d", user.ID), strings.NewReader(`{"is_active":false}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.False(t, stored.IsActive)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/api/users/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
