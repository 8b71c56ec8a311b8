package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/database"
	"github.com/junaidrashid-git/eshop/models"
)

// eshop migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := boot()
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}

// eshop seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a small demo catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := boot()
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		created, err := Seed(cmd.Context(), db)
		if err != nil {
			return err
		}
		log.WithField("products", created).Info("demo catalog seeded")
		return nil
	},
}

type seedProduct struct {
	name, price, oldPrice string
	stock                 int
}

var demoCatalog = []struct {
	category string
	products []seedProduct
}{
	{"Shirts", []seedProduct{
		{"Linen Shirt", "25.00", "30.00", 40},
		{"Oxford Shirt", "32.50", "", 25},
	}},
	{"Shoes", []seedProduct{
		{"Trail Runner", "89.99", "", 12},
		{"Canvas Sneaker", "45.00", "55.00", 30},
	}},
	{"Accessories", []seedProduct{
		{"Leather Belt", "19.00", "", 50},
	}},
}

// Seed inserts the demo catalog. Existing slugs are left alone, so running
// it twice is harmless. It returns the number of products created.
func Seed(ctx context.Context, db *gorm.DB) (int, error) {
	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, group := range demoCatalog {
			cat := models.Category{Name: group.category, Slug: models.Slugify(group.category)}
			if err := tx.Where("slug = ?", cat.Slug).FirstOrCreate(&cat).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", cat.Slug, err)
			}

			for _, sp := range group.products {
				slug := models.Slugify(sp.name)
				var existing models.Product
				err := tx.Unscoped().Where("slug = ?", slug).First(&existing).Error
				if err == nil {
					continue
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}

				p := models.Product{
					CategoryID: cat.ID,
					Name:       sp.name,
					Slug:       slug,
					NewPrice:   decimal.RequireFromString(sp.price),
					Stock:      sp.stock,
					Available:  true,
				}
				if sp.oldPrice != "" {
					p.OldPrice = decimal.RequireFromString(sp.oldPrice)
				}
				if err := tx.Create(&p).Error; err != nil {
					return fmt.Errorf("seed product %s: %w", slug, err)
				}
				created++
			}
		}
		return nil
	})
	return created, err
}
