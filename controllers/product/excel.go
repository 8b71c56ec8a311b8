package productcontroller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/models"
)

// Spreadsheet columns, matched by header name in any order.
var sheetColumns = []string{
	"id", "name", "slug", "category", "description",
	"old_price", "new_price", "stock", "available", "image",
}

type ImportResult struct {
	Created int      `json:"created_count"`
	Updated int      `json:"updated_count"`
	Skipped int      `json:"skipped_count"`
	Errors  []string `json:"errors,omitempty"`
}

func (r *ImportResult) skip(row int, err error) {
	r.Skipped++
	r.Errors = append(r.Errors, fmt.Sprintf("row %d: %v", row, err))
}

// ImportProducts reads the first sheet of an xlsx workbook. A row updates the
// product named by its id (or, without one, by slug) and creates one
// otherwise. Blank cells leave the existing value alone. Each row is saved on
// its own; bad rows are skipped and reported.
func ImportProducts(ctx context.Context, db *gorm.DB, r io.ReaderAt, size int64) (*ImportResult, error) {
	wb, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, fmt.Errorf("parse workbook: %w", err)
	}
	if len(wb.Sheets) == 0 || len(wb.Sheets[0].Rows) < 2 {
		return nil, errors.New("workbook is empty or missing header row")
	}
	sheet := wb.Sheets[0]

	cols := map[string]int{}
	for i, cell := range sheet.Rows[0].Cells {
		cols[strings.ToLower(strings.TrimSpace(cell.String()))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, errors.New(`header row has no "name" column`)
	}

	var categories []models.Category
	if err := db.WithContext(ctx).Find(&categories).Error; err != nil {
		return nil, err
	}
	categoryIDs := make(map[string]uint, len(categories))
	for _, c := range categories {
		categoryIDs[c.Slug] = c.ID
	}

	result := &ImportResult{}
	for i, row := range sheet.Rows[1:] {
		rowNum := i + 2
		if row == nil {
			continue
		}
		cell := func(key string) string {
			idx, ok := cols[key]
			if !ok || idx >= len(row.Cells) {
				return ""
			}
			return strings.TrimSpace(row.Cells[idx].String())
		}

		blank := true
		for _, key := range sheetColumns {
			if cell(key) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}

		var catErr error
		in, err := ParseProductInput(func(key string) (string, bool) {
			if key == "category_id" {
				slug := cell("category")
				if slug == "" {
					return "", false
				}
				id, ok := categoryIDs[models.Slugify(slug)]
				if !ok {
					catErr = fmt.Errorf("unknown category %q", slug)
					return "", false
				}
				return strconv.FormatUint(uint64(id), 10), true
			}
			v := cell(key)
			return v, v != ""
		})
		if err == nil {
			err = catErr
		}
		if err != nil {
			result.skip(rowNum, err)
			continue
		}

		var product models.Product
		found := false
		if idStr := cell("id"); idStr != "" {
			id, err := strconv.ParseUint(idStr, 10, 64)
			if err != nil {
				result.skip(rowNum, &FieldError{"id", err})
				continue
			}
			if err := db.WithContext(ctx).First(&product, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					result.skip(rowNum, fmt.Errorf("product %d not found", id))
					continue
				}
				return result, err
			}
			found = true
		} else if in.Slug != nil {
			err := db.WithContext(ctx).Where("slug = ?", models.Slugify(*in.Slug)).First(&product).Error
			switch {
			case err == nil:
				found = true
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return result, err
			}
		}

		if !found {
			if in.CategoryID == nil || in.NewPrice == nil {
				result.skip(rowNum, errors.New("category and new_price are required for new products"))
				continue
			}
			product = models.Product{Available: true}
		}
		in.Apply(&product)

		if err := SaveProduct(ctx, db, &product); err != nil {
			result.skip(rowNum, err)
			continue
		}
		if found {
			result.Updated++
		} else {
			result.Created++
		}
	}
	return result, nil
}

// POST /admin/api/products/import (multipart field "file")
func ImportProductsFromExcel(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is required"})
			return
		}
		file, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open Excel file"})
			return
		}
		defer file.Close()

		result, err := ImportProducts(c.Request.Context(), db, file, fh.Size)
		if err != nil {
			log.WithError(err).Warn("product import failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		log.WithFields(logrus.Fields{
			"created": result.Created,
			"updated": result.Updated,
			"skipped": result.Skipped,
		}).Info("products imported")
		c.JSON(http.StatusOK, gin.H{
			"message":       "Import completed",
			"created_count": result.Created,
			"updated_count": result.Updated,
			"skipped_count": result.Skipped,
			"errors":        result.Errors,
		})
	}
}
