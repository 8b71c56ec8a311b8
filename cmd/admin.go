package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	orderControllers "github.com/junaidrashid-git/eshop/controllers/order"
	productcontroller "github.com/junaidrashid-git/eshop/controllers/product"
	"github.com/junaidrashid-git/eshop/models"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Staff tasks: accounts, catalog spreadsheets, orders",
}

var staffPassword string

func init() {
	createStaffCmd.Flags().StringVar(&staffPassword, "password", "", "password for a new account (min 8 characters)")

	adminCmd.AddCommand(createStaffCmd)
	adminCmd.AddCommand(importProductsCmd)
	adminCmd.AddCommand(exportProductsCmd)
	adminCmd.AddCommand(orderStatusCmd)
}

// eshop admin create-staff <email> --password ...
var createStaffCmd = &cobra.Command{
	Use:   "create-staff <email>",
	Short: "Create a staff account, or promote an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := boot()
		if err != nil {
			return err
		}
		defer closeDB(db)

		user, created, err := CreateStaff(cmd.Context(), db, args[0], staffPassword)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"user_id": user.ID, "created": created}).Info("staff account ready")
		return nil
	},
}

// CreateStaff promotes the user with email to staff, creating a verified
// account when none exists. A password is only required for new accounts.
func CreateStaff(ctx context.Context, db *gorm.DB, email, password string) (*models.User, bool, error) {
	email = models.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, false, fmt.Errorf("invalid email %q", email)
	}

	var user models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		err = db.WithContext(ctx).Model(&user).Updates(map[string]any{
			"is_staff":    true,
			"is_active":   true,
			"is_verified": true,
		}).Error
		return &user, false, err
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}

	if len(password) < 8 {
		return nil, false, errors.New("--password of at least 8 characters is required for a new account")
	}
	user = models.User{
		Email:      email,
		Username:   strings.SplitN(email, "@", 2)[0],
		Provider:   "email",
		IsStaff:    true,
		IsActive:   true,
		IsVerified: true,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, false, err
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

// eshop admin import-products <file.xlsx>
var importProductsCmd = &cobra.Command{
	Use:   "import-products <file.xlsx>",
	Short: "Create or update products from a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := boot()
		if err != nil {
			return err
		}
		defer closeDB(db)

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}

		result, err := productcontroller.ImportProducts(cmd.Context(), db, f, info.Size())
		if err != nil {
			return err
		}
		for _, msg := range result.Errors {
			fmt.Fprintln(cmd.ErrOrStderr(), msg)
		}
		log.WithFields(logrus.Fields{
			"created": result.Created,
			"updated": result.Updated,
			"skipped": result.Skipped,
		}).Info("products imported")
		return nil
	},
}

// eshop admin export-products <file.xlsx>
var exportProductsCmd = &cobra.Command{
	Use:   "export-products <file.xlsx>",
	Short: "Write every product to a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := boot()
		if err != nil {
			return err
		}
		defer closeDB(db)

		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		if err := productcontroller.WriteProductsXLSX(cmd.Context(), db, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.WithField("file", args[0]).Info("products exported")
		return nil
	},
}

// eshop admin order-status <order-id> <status>
var orderStatusCmd = &cobra.Command{
	Use:   "order-status <order-id> <pending|processing|delivered|canceled>",
	Short: "Move an order to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q", args[0])
		}
		status, err := models.ParseOrderStatus(args[1])
		if err != nil {
			return err
		}

		_, log, db, err := boot()
		if err != nil {
			return err
		}
		defer closeDB(db)

		order, err := orderControllers.UpdateOrderStatus(cmd.Context(), db, uint(id), status)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"order_id": order.ID, "status": order.Status}).Info("order status updated")
		return nil
	},
}
