package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/junaidrashid-git/eshop/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// VerificationEmail asks a new user to confirm their address.
func VerificationEmail(user models.User, verifyURL string) Message {
	name := user.FullName()
	if name == "" {
		name = user.Email
	}
	return Message{
		To:      []string{user.Email},
		Subject: "Verify Your Email Address",
		Text: fmt.Sprintf("Hi %s,\n\nPlease verify your email by clicking the link below:\n%s\n\nThank you!",
			name, verifyURL),
	}
}

// OrderConfirmationEmail expects order.Items to be loaded. It goes to the
// account's address, falling back to the checkout address when order.User
// is not loaded.
func OrderConfirmationEmail(order models.Order) (Message, error) {
	to := order.User.Email
	if to == "" {
		to = order.Email
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "order_confirmation.html", map[string]interface{}{
		"Order": order,
	}); err != nil {
		return Message{}, fmt.Errorf("mail: render order confirmation: %w", err)
	}
	return Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Order Confirmation - Order #%d", order.ID),
		Text: fmt.Sprintf("Thank you for your order #%d. Total: %s",
			order.ID, order.TotalCost().StringFixed(2)),
		HTML: buf.String(),
	}, nil
}
