package productcontroller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/templates"
)

const featuredCount = 6

var ErrProductNotFound = errors.New("product not found")

// Filters are the product list query parameters, kept as typed so the form
// can echo them back. Values that do not parse are ignored.
type Filters struct {
	MinPrice string
	MaxPrice string
	Rating   string
	Search   string
}

func FiltersFromQuery(c *gin.Context) Filters {
	return Filters{
		MinPrice: strings.TrimSpace(c.Query("min_price")),
		MaxPrice: strings.TrimSpace(c.Query("max_price")),
		Rating:   strings.TrimSpace(c.Query("rating")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
}

// PriceBounds is the cheapest and dearest current price in a product set.
type PriceBounds struct {
	MinPrice decimal.NullDecimal
	MaxPrice decimal.NullDecimal
}

func availableProducts(ctx context.Context, db *gorm.DB, categoryID uint) *gorm.DB {
	q := db.WithContext(ctx).Model(&models.Product{}).Where("products.available = ?", true)
	if categoryID != 0 {
		q = q.Where("products.category_id = ?", categoryID)
	}
	return q
}

// FeaturedProducts returns the newest available products.
func FeaturedProducts(ctx context.Context, db *gorm.DB, limit int) ([]models.Product, error) {
	var products []models.Product
	err := availableProducts(ctx, db, 0).
		Order("products.created_at DESC, products.id DESC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

// FilterProducts applies the list filters conjunctively to the available
// products, optionally within one category.
func FilterProducts(ctx context.Context, db *gorm.DB, categoryID uint, f Filters) ([]models.Product, error) {
	q := availableProducts(ctx, db, categoryID)

	if lo, err := decimal.NewFromString(f.MinPrice); err == nil {
		q = q.Where("products.new_price >= ?", lo)
	}
	if hi, err := decimal.NewFromString(f.MaxPrice); err == nil {
		q = q.Where("products.new_price <= ?", hi)
	}
	if rating, err := strconv.ParseFloat(f.Rating, 64); err == nil {
		q = q.Where("(SELECT AVG(ratings.rating) FROM ratings WHERE ratings.product_id = products.id) >= ?", rating)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Joins("JOIN categories ON categories.id = products.category_id").
			Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ? OR LOWER(categories.name) LIKE ?",
				like, like, like)
	}

	var products []models.Product
	err := q.Order("products.created_at DESC, products.id DESC").Find(&products).Error
	return products, err
}

// ProductPriceBounds reports the price range before any filter is applied.
func ProductPriceBounds(ctx context.Context, db *gorm.DB, categoryID uint) (PriceBounds, error) {
	var bounds PriceBounds
	err := availableProducts(ctx, db, categoryID).
		Select("MIN(products.new_price) AS min_price, MAX(products.new_price) AS max_price").
		Scan(&bounds).Error
	return bounds, err
}

// FindAvailableProduct looks a product up by slug with its category.
func FindAvailableProduct(ctx context.Context, db *gorm.DB, slug string) (*models.Product, error) {
	var product models.Product
	err := db.WithContext(ctx).Preload("Category").
		Where("slug = ? AND available = ?", slug, true).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func RelatedProducts(ctx context.Context, db *gorm.DB, product *models.Product) ([]models.Product, error) {
	var related []models.Product
	err := availableProducts(ctx, db, product.CategoryID).
		Where("products.id <> ?", product.ID).
		Order("products.created_at DESC, products.id DESC").
		Find(&related).Error
	return related, err
}

// RatingSummary returns the average rating and how many ratings a product has.
func RatingSummary(ctx context.Context, db *gorm.DB, productID uint) (float64, int64, error) {
	var row struct {
		Average float64
		Count   int64
	}
	err := db.WithContext(ctx).Model(&models.Rating{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&row).Error
	return row.Average, row.Count, err
}

func allCategories(ctx context.Context, db *gorm.DB) ([]models.Category, error) {
	var categories []models.Category
	err := db.WithContext(ctx).Order("name").Find(&categories).Error
	return categories, err
}

// GET /
func Home(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		products, err := FeaturedProducts(ctx, db, featuredCount)
		if err != nil {
			log.WithError(err).Error("failed to load featured products")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		categories, err := allCategories(ctx, db)
		if err != nil {
			log.WithError(err).Error("failed to load categories")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		templates.Render(c, http.StatusOK, "home.html", gin.H{
			"Title":      "Home",
			"Products":   products,
			"Categories": categories,
		})
	}
}

// GET /products/ and /products/:category_slug/
func ProductList(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var category *models.Category
		if slug := c.Param("category_slug"); slug != "" {
			category = &models.Category{}
			err := db.WithContext(ctx).Where("slug = ?", slug).First(category).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				templates.NotFound(c)
				return
			}
			if err != nil {
				log.WithError(err).Error("failed to load category")
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}
		var categoryID uint
		if category != nil {
			categoryID = category.ID
		}

		filters := FiltersFromQuery(c)
		products, err := FilterProducts(ctx, db, categoryID, filters)
		if err != nil {
			log.WithError(err).Error("failed to filter products")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		bounds, err := ProductPriceBounds(ctx, db, categoryID)
		if err != nil {
			log.WithError(err).Error("failed to load price bounds")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		categories, err := allCategories(ctx, db)
		if err != nil {
			log.WithError(err).Error("failed to load categories")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		title := "Products"
		if category != nil {
			title = category.Name
		}
		templates.Render(c, http.StatusOK, "product_list.html", gin.H{
			"Title":      title,
			"Category":   category,
			"Categories": categories,
			"Products":   products,
			"MinPrice":   bounds.MinPrice,
			"MaxPrice":   bounds.MaxPrice,
			"Filters":    filters,
		})
	}
}

// GET /product/:slug/
func ProductDetail(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		product, err := FindAvailableProduct(ctx, db, c.Param("slug"))
		if errors.Is(err, ErrProductNotFound) {
			templates.NotFound(c)
			return
		}
		if err != nil {
			log.WithError(err).Error("failed to load product")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		related, err := RelatedProducts(ctx, db, product)
		if err != nil {
			log.WithError(err).Error("failed to load related products")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		average, count, err := RatingSummary(ctx, db, product.ID)
		if err != nil {
			log.WithError(err).Error("failed to load ratings")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		var userRating *models.Rating
		if user := middleware.CurrentUser(c); user != nil {
			var rating models.Rating
			err := db.WithContext(ctx).Where("user_id = ? AND product_id = ?", user.ID, product.ID).First(&rating).Error
			switch {
			case err == nil:
				userRating = &rating
			case !errors.Is(err, gorm.ErrRecordNotFound):
				log.WithError(err).Error("failed to load user rating")
			}
		}

		templates.Render(c, http.StatusOK, "product_detail.html", gin.H{
			"Title":         product.Name,
			"Product":       product,
			"Related":       related,
			"UserRating":    userRating,
			"AverageRating": average,
			"RatingCount":   count,
		})
	}
}
