package webtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/models"
)

// CreateUser inserts an active, verified customer.
func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Username: email, IsActive: true, IsVerified: true}
	require.NoError(t, u.SetPassword("password123"))
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: models.Slugify(name)}
	require.NoError(t, db.Create(c).Error)
	return c
}

// CreateProduct inserts an available product priced at price (a decimal
// string such as "19.99").
func CreateProduct(t *testing.T, db *gorm.DB, category *models.Category, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		CategoryID: category.ID,
		Name:       name,
		Slug:       models.Slugify(name),
		NewPrice:   decimal.RequireFromString(price),
		Stock:      stock,
		Available:  true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
