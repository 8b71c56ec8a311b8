package productcontroller

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/database"
	"github.com/junaidrashid-git/eshop/logger"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/storage"
	"github.com/junaidrashid-git/eshop/webtest"
)

func rate(t *testing.T, db *gorm.DB, product *models.Product, email string, stars int) {
	t.Helper()
	user := webtest.CreateUser(t, db, email)
	require.NoError(t, db.Create(&models.Rating{UserID: user.ID, ProductID: product.ID, Rating: stars}).Error)
}

func names(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func TestFilterProducts(t *testing.T) {
	db := database.OpenTest(t)
	ctx := context.Background()
	shirts := webtest.CreateCategory(t, db, "Shirts")
	shoes := webtest.CreateCategory(t, db, "Shoes")

	linen := webtest.CreateProduct(t, db, shirts, "Linen Shirt", "25.00", 5)
	oxford := webtest.CreateProduct(t, db, shirts, "Oxford Shirt", "40.00", 5)
	webtest.CreateProduct(t, db, shoes, "Trail Runner", "90.00", 5)
	hidden := webtest.CreateProduct(t, db, shoes, "Hidden Boot", "10.00", 5)
	require.NoError(t, db.Model(hidden).Update("available", false).Error)

	rate(t, db, linen, "a@example.com", 5)
	rate(t, db, linen, "b@example.com", 4)
	rate(t, db, oxford, "c@example.com", 2)

	all, err := FilterProducts(ctx, db, 0, Filters{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Linen Shirt", "Oxford Shirt", "Trail Runner"}, names(all))

	got, err := FilterProducts(ctx, db, shirts.ID, Filters{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Linen Shirt", "Oxford Shirt"}, names(got))

	got, err = FilterProducts(ctx, db, 0, Filters{MinPrice: "30", MaxPrice: "90"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Oxford Shirt", "Trail Runner"}, names(got))

	got, err = FilterProducts(ctx, db, 0, Filters{Rating: "4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Linen Shirt"}, names(got))

	got, err = FilterProducts(ctx, db, 0, Filters{Search: "SHOES"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Trail Runner"}, names(got), "search matches the category name")

	got, err = FilterProducts(ctx, db, 0, Filters{Search: "shirt", MaxPrice: "30"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Linen Shirt"}, names(got), "filters combine")

	got, err = FilterProducts(ctx, db, 0, Filters{MinPrice: "cheap", Rating: "lots"})
	require.NoError(t, err)
	assert.Len(t, got, 3, "unparseable filters are ignored")
}

func TestProductPriceBounds(t *testing.T) {
	db := database.OpenTest(t)
	ctx := context.Background()
	shirts := webtest.CreateCategory(t, db, "Shirts")
	shoes := webtest.CreateCategory(t, db, "Shoes")
	empty := webtest.CreateCategory(t, db, "Hats")
	webtest.CreateProduct(t, db, shirts, "Linen Shirt", "25.00", 5)
	webtest.CreateProduct(t, db, shirts, "Oxford Shirt", "40.50", 5)
	webtest.CreateProduct(t, db, shoes, "Trail Runner", "90.00", 5)

	bounds, err := ProductPriceBounds(ctx, db, shirts.ID)
	require.NoError(t, err)
	require.True(t, bounds.MinPrice.Valid)
	assert.True(t, decimal.RequireFromString("25").Equal(bounds.MinPrice.Decimal))
	assert.True(t, decimal.RequireFromString("40.5").Equal(bounds.MaxPrice.Decimal))

	bounds, err = ProductPriceBounds(ctx, db, 0)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("90").Equal(bounds.MaxPrice.Decimal))

	bounds, err = ProductPriceBounds(ctx, db, empty.ID)
	require.NoError(t, err)
	assert.False(t, bounds.MinPrice.Valid)
}

func TestFeaturedProductsNewestFirst(t *testing.T) {
	db := database.OpenTest(t)
	cat := webtest.CreateCategory(t, db, "Shirts")
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		webtest.CreateProduct(t, db, cat, "Shirt "+name, "10.00", 1)
	}

	got, err := FeaturedProducts(context.Background(), db, featuredCount)
	require.NoError(t, err)
	require.Len(t, got, featuredCount)
	assert.Equal(t, "Shirt G", got[0].Name)
}

func newCatalogApp(t *testing.T) (*gorm.DB, *webtest.Browser) {
	t.Helper()
	db := database.OpenTest(t)
	log := logger.Discard()

	r := webtest.NewEngine(t, db)
	r.GET("/", Home(db, log))
	r.GET("/products/", ProductList(db, log))
	r.GET("/products/:category_slug/", ProductList(db, log))
	r.GET("/product/:slug/", ProductDetail(db, log))
	return db, webtest.NewBrowser(r)
}

func TestCatalogPages(t *testing.T) {
	db, browser := newCatalogApp(t)
	shirts := webtest.CreateCategory(t, db, "Shirts")
	linen := webtest.CreateProduct(t, db, shirts, "Linen Shirt", "25.00", 5)
	webtest.CreateProduct(t, db, shirts, "Oxford Shirt", "40.00", 0)

	w := browser.Get("/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Linen Shirt")
	assert.Contains(t, w.Body.String(), "/products/shirts/")

	w = browser.Get("/products/shirts/?max_price=30")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Linen Shirt")
	assert.NotContains(t, w.Body.String(), "<h3>Oxford Shirt</h3>")
	assert.Contains(t, w.Body.String(), "Prices from 25.00 to 40.00")

	assert.Equal(t, http.StatusNotFound, browser.Get("/products/nope/").Code)

	w = browser.Get("/product/linen-shirt/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Add to cart")
	assert.Contains(t, w.Body.String(), "/product/oxford-shirt/", "related products of the same category")
	assert.NotContains(t, w.Body.String(), "Rate this product", "anonymous visitors cannot rate")

	require.NoError(t, db.Model(linen).Update("available", false).Error)
	assert.Equal(t, http.StatusNotFound, browser.Get("/product/linen-shirt/").Code)
	assert.Contains(t, browser.Get("/product/oxford-shirt/").Body.String(), "Out of stock")
}

func TestProductDetailShowsOwnRating(t *testing.T) {
	db, browser := newCatalogApp(t)
	cat := webtest.CreateCategory(t, db, "Shirts")
	product := webtest.CreateProduct(t, db, cat, "Linen Shirt", "25.00", 5)
	user := webtest.CreateUser(t, db, "a@example.com")

	browser.LoginAs(user.ID)
	assert.Contains(t, browser.Get("/product/linen-shirt/").Body.String(), "Rate this product")

	require.NoError(t, db.Create(&models.Rating{UserID: user.ID, ProductID: product.ID, Rating: 4, Comment: "Soft"}).Error)
	body := browser.Get("/product/linen-shirt/").Body.String()
	assert.Contains(t, body, "Your rating: 4 / 5")
	assert.Contains(t, body, "Rated 4.0 / 5 (1)")
}

func TestParseProductInput(t *testing.T) {
	form := map[string]string{"name": " Shirt ", "new_price": "19.999", "stock": "3", "available": "false"}
	get := func(k string) (string, bool) {
		v, ok := form[k]
		return v, ok
	}

	in, err := ParseProductInput(get)
	require.NoError(t, err)
	assert.Equal(t, "Shirt", *in.Name)
	assert.Equal(t, "20", in.NewPrice.String())
	assert.Equal(t, 3, *in.Stock)
	assert.False(t, *in.Available)
	assert.Nil(t, in.OldPrice)
	assert.Nil(t, in.CategoryID)

	for key, bad := range map[string]string{"new_price": "-1", "stock": "-2", "category_id": "x", "available": "maybe"} {
		_, err := ParseProductInput(func(k string) (string, bool) {
			if k == key {
				return bad, true
			}
			return "", false
		})
		var fieldErr *FieldError
		require.ErrorAs(t, err, &fieldErr, key)
		assert.Equal(t, key, fieldErr.Field)
	}
}

func TestSaveProductAndCategory(t *testing.T) {
	db := database.OpenTest(t)
	ctx := context.Background()

	cat := &models.Category{Name: "Summer Shirts"}
	require.NoError(t, SaveCategory(ctx, db, cat))
	assert.Equal(t, "summer-shirts", cat.Slug)
	assert.ErrorIs(t, SaveCategory(ctx, db, &models.Category{Name: "Summer shirts"}), ErrSlugTaken)

	p := &models.Product{CategoryID: cat.ID, Name: "Linen Shirt", NewPrice: decimal.NewFromInt(20)}
	require.NoError(t, SaveProduct(ctx, db, p))
	assert.Equal(t, "linen-shirt", p.Slug)

	dup := &models.Product{CategoryID: cat.ID, Name: "Linen shirt", NewPrice: decimal.NewFromInt(20)}
	assert.ErrorIs(t, SaveProduct(ctx, db, dup), ErrSlugTaken)
	assert.ErrorIs(t, SaveProduct(ctx, db, &models.Product{CategoryID: 999, Name: "X"}), ErrCategoryNotFound)

	var fieldErr *FieldError
	assert.ErrorAs(t, SaveProduct(ctx, db, &models.Product{CategoryID: cat.ID}), &fieldErr)

	assert.ErrorIs(t, DeleteCategory(ctx, db, cat.ID), ErrCategoryInUse)
	require.NoError(t, db.Delete(p).Error)
	assert.ErrorIs(t, DeleteCategory(ctx, db, cat.ID), ErrCategoryInUse, "soft-deleted products still reference it")
	assert.ErrorIs(t, DeleteCategory(ctx, db, 999), ErrCategoryNotFound)

	empty := &models.Category{Name: "Hats"}
	require.NoError(t, SaveCategory(ctx, db, empty))
	require.NoError(t, DeleteCategory(ctx, db, empty.ID))
}

func newAdminApp(t *testing.T) (*gorm.DB, http.Handler, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := database.OpenTest(t)
	log := logger.Discard()
	root := t.TempDir()
	disk := storage.NewLocalDisk(root, "/media/")

	r := gin.New()
	api := r.Group("/admin/api")
	api.GET("/products", GetProducts(db))
	api.GET("/products/export", ExportProductsToExcel(db, log))
	api.POST("/products/import", ImportProductsFromExcel(db, log))
	api.GET("/products/:id", GetProductByID(db))
	api.POST("/products", CreateProduct(db, disk, log))
	api.PUT("/products/:id", UpdateProduct(db, disk, log))
	api.DELETE("/products/:id", DeleteProduct(db))
	api.GET("/categories", GetAllCategories(db))
	api.POST("/categories", CreateCategory(db))
	api.GET("/categories/:id", GetCategoryByID(db))
	api.PUT("/categories/:id", UpdateCategory(db))
	api.DELETE("/categories/:id", DeleteCategoryHandler(db))
	return db, r, root
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, fileField, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func xlsxBook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	require.NoError(t, err)
	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))
	return buf.Bytes()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAdminProductCRUD(t *testing.T) {
	db, h, root := newAdminApp(t)
	cat := webtest.CreateCategory(t, db, "Shirts")
	catID := jsonID(cat.ID)

	w := serve(h, multipartRequest(t, http.MethodPost, "/admin/api/products",
		map[string]string{"category_id": catID, "name": "Linen Shirt", "new_price": "19.99", "stock": "4"},
		"image", "linen.png", []byte("png")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "linen-shirt", created.Slug)
	assert.True(t, created.Available)
	require.NotEmpty(t, created.Image)
	_, err := os.Stat(filepath.Join(root, created.Image))
	assert.NoError(t, err)

	w = serve(h, multipartRequest(t, http.MethodPost, "/admin/api/products",
		map[string]string{"category_id": catID, "name": "Linen Shirt", "new_price": "5"}, "", "", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(h, multipartRequest(t, http.MethodPost, "/admin/api/products",
		map[string]string{"category_id": catID, "name": "Bad", "new_price": "-5"}, "", "", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(h, multipartRequest(t, http.MethodPost, "/admin/api/products",
		map[string]string{"category_id": catID, "name": "Exe", "new_price": "5"}, "image", "run.exe", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := "/admin/api/products/" + jsonID(created.ID)
	w = serve(h, multipartRequest(t, http.MethodPut, path,
		map[string]string{"stock": "9", "old_price": "25"}, "", "", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Product
	require.NoError(t, db.First(&stored, created.ID).Error)
	assert.Equal(t, 9, stored.Stock)
	assert.Equal(t, "Linen Shirt", stored.Name, "fields not sent are kept")
	assert.True(t, stored.OnSale())

	w = serve(h, httptest.NewRequest(http.MethodGet, "/admin/api/products?search=linen", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "linen-shirt")

	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodDelete, path, nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(h, httptest.NewRequest(http.MethodGet, path, nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(h, httptest.NewRequest(http.MethodDelete, path, nil)).Code)

	var count int64
	db.Unscoped().Model(&models.Product{}).Where("id = ?", created.ID).Count(&count)
	assert.Equal(t, int64(1), count, "products are soft-deleted")
}

func TestAdminCategoryCRUD(t *testing.T) {
	db, h, _ := newAdminApp(t)

	w := serve(h, multipartRequest(t, http.MethodPost, "/admin/api/categories", map[string]string{"name": "Hats"}, "", "", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	var cat models.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cat))
	assert.Equal(t, "hats", cat.Slug)

	path := "/admin/api/categories/" + jsonID(cat.ID)
	w = serve(h, multipartRequest(t, http.MethodPut, path, map[string]string{"name": "Caps", "slug": "caps"}, "", "", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"caps"`)

	webtest.CreateProduct(t, db, &cat, "Wool Cap", "12.00", 1)
	assert.Equal(t, http.StatusConflict, serve(h, httptest.NewRequest(http.MethodDelete, path, nil)).Code)
	assert.Equal(t, http.StatusBadRequest, serve(h, httptest.NewRequest(http.MethodGet, "/admin/api/categories/x", nil)).Code)
}

func TestSpreadsheetRoundTrip(t *testing.T) {
	db := database.OpenTest(t)
	ctx := context.Background()
	cat := webtest.CreateCategory(t, db, "Shirts")
	linen := webtest.CreateProduct(t, db, cat, "Linen Shirt", "25.00", 5)
	webtest.CreateProduct(t, db, cat, "Oxford Shirt", "40.00", 2)

	var buf bytes.Buffer
	require.NoError(t, WriteProductsXLSX(ctx, db, &buf))

	// change a price so the import has something to restore
	require.NoError(t, db.Model(linen).Update("new_price", decimal.NewFromInt(1)).Error)

	result, err := ImportProducts(ctx, db, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 0, result.Created)
	assert.Empty(t, result.Errors)

	var stored models.Product
	require.NoError(t, db.First(&stored, linen.ID).Error)
	assert.True(t, decimal.NewFromInt(25).Equal(stored.NewPrice))
	assert.Equal(t, 5, stored.Stock)
}

func TestImportProductsCreatesAndReportsBadRows(t *testing.T) {
	db, h, _ := newAdminApp(t)
	webtest.CreateCategory(t, db, "Shirts")

	book := xlsxBook(t, [][]string{
		{"Name", "Category", "New_Price", "Stock"},
		{"Polo Shirt", "shirts", "15.50", "3"},
		{"Mystery", "hats", "1", "1"},
		{"Broken", "shirts", "abc", "1"},
		{"No Price", "shirts", "", "1"},
		{"", "", "", ""},
	})

	w := serve(h, multipartRequest(t, http.MethodPost, "/admin/api/products/import", nil, "file", "products.xlsx", book))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Created int      `json:"created_count"`
		Skipped int      `json:"skipped_count"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Created)
	assert.Equal(t, 3, resp.Skipped)
	require.Len(t, resp.Errors, 3)
	assert.Contains(t, resp.Errors[0], "row 3")

	var polo models.Product
	require.NoError(t, db.Where("slug = ?", "polo-shirt").First(&polo).Error)
	assert.Equal(t, 3, polo.Stock)
	assert.True(t, polo.Available)

	w = serve(h, httptest.NewRequest(http.MethodGet, "/admin/api/products/export", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "products.xlsx")
}
