package productcontroller

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/models"
)

// WriteProductsXLSX writes every live product in the layout ImportProducts
// reads back.
func WriteProductsXLSX(ctx context.Context, db *gorm.DB, w io.Writer) error {
	var products []models.Product
	if err := db.WithContext(ctx).Preload("Category").Order("id").Find(&products).Error; err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return err
	}

	header := sheet.AddRow()
	for _, h := range sheetColumns {
		header.AddCell().SetString(h)
	}
	for _, p := range products {
		row := sheet.AddRow()
		for _, v := range []string{
			strconv.FormatUint(uint64(p.ID), 10),
			p.Name,
			p.Slug,
			p.Category.Slug,
			p.Description,
			p.OldPrice.StringFixed(2),
			p.NewPrice.StringFixed(2),
			strconv.Itoa(p.Stock),
			strconv.FormatBool(p.Available),
			p.Image,
		} {
			row.AddCell().SetString(v)
		}
	}
	return file.Write(w)
}

// GET /admin/api/products/export
func ExportProductsToExcel(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var buf bytes.Buffer
		if err := WriteProductsXLSX(c.Request.Context(), db, &buf); err != nil {
			log.WithError(err).Error("product export failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=products.xlsx")
		c.Header("Expires", "0")
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}
