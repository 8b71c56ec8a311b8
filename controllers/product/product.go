package productcontroller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/database"
	"github.com/junaidrashid-git/eshop/models"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrSlugTaken        = errors.New("slug already exists")
	ErrCategoryInUse    = errors.New("category still has products")
)

// FieldError reports a product field that could not be parsed.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ProductInput is a partial product: nil fields are left unchanged.
type ProductInput struct {
	CategoryID  *uint
	Name        *string
	Slug        *string
	Description *string
	Image       *string
	OldPrice    *decimal.Decimal
	NewPrice    *decimal.Decimal
	Stock       *int
	Available   *bool
}

// ParseProductInput reads the fields get reports as present. Admin forms
// and spreadsheet rows share it.
func ParseProductInput(get func(key string) (string, bool)) (ProductInput, error) {
	var in ProductInput

	str := func(key string) *string {
		if v, ok := get(key); ok {
			v = strings.TrimSpace(v)
			return &v
		}
		return nil
	}
	in.Name = str("name")
	in.Slug = str("slug")
	in.Description = str("description")
	in.Image = str("image")

	if v, ok := get("category_id"); ok {
		id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return in, &FieldError{"category_id", err}
		}
		cid := uint(id)
		in.CategoryID = &cid
	}
	for key, dst := range map[string]**decimal.Decimal{"old_price": &in.OldPrice, "new_price": &in.NewPrice} {
		v, ok := get(key)
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return in, &FieldError{key, err}
		}
		if d.IsNegative() {
			return in, &FieldError{key, errors.New("must not be negative")}
		}
		d = d.Round(2)
		*dst = &d
	}
	if v, ok := get("stock"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return in, &FieldError{"stock", err}
		}
		if n < 0 {
			return in, &FieldError{"stock", errors.New("must not be negative")}
		}
		in.Stock = &n
	}
	if v, ok := get("available"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return in, &FieldError{"available", err}
		}
		in.Available = &b
	}
	return in, nil
}

func (in ProductInput) Apply(p *models.Product) {
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Slug != nil {
		p.Slug = *in.Slug
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.OldPrice != nil {
		p.OldPrice = *in.OldPrice
	}
	if in.NewPrice != nil {
		p.NewPrice = *in.NewPrice
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Available != nil {
		p.Available = *in.Available
	}
}

// SaveProduct validates and inserts or updates p. An empty slug is
// derived from the name.
func SaveProduct(ctx context.Context, db *gorm.DB, p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return &FieldError{"name", errors.New("is required")}
	}
	if p.Slug == "" {
		p.Slug = models.Slugify(p.Name)
	} else {
		p.Slug = models.Slugify(p.Slug)
	}
	if p.Slug == "" {
		return &FieldError{"slug", errors.New("is empty")}
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", p.CategoryID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrCategoryNotFound
	}

	if err := db.WithContext(ctx).Save(p).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

// SaveCategory inserts or updates c, deriving the slug from the name.
func SaveCategory(ctx context.Context, db *gorm.DB, c *models.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return &FieldError{"name", errors.New("is required")}
	}
	if c.Slug == "" {
		c.Slug = models.Slugify(c.Name)
	} else {
		c.Slug = models.Slugify(c.Slug)
	}
	if c.Slug == "" {
		return &FieldError{"slug", errors.New("is empty")}
	}
	if err := db.WithContext(ctx).Save(c).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

// DeleteCategory refuses while any product, deleted ones included, still
// points at the category.
func DeleteCategory(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		if err := tx.First(&cat, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCategoryNotFound
			}
			return err
		}
		var count int64
		if err := tx.Unscoped().Model(&models.Product{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrCategoryInUse
		}
		return tx.Delete(&cat).Error
	})
}
