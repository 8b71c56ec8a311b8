package paymentControllers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/eshop/config"
	orderControllers "github.com/junaidrashid-git/eshop/controllers/order"
	"github.com/junaidrashid-git/eshop/mail"
	"github.com/junaidrashid-git/eshop/metrics"
	"github.com/junaidrashid-git/eshop/middleware"
	"github.com/junaidrashid-git/eshop/models"
	"github.com/junaidrashid-git/eshop/payment"
	"github.com/junaidrashid-git/eshop/session"
	"github.com/junaidrashid-git/eshop/templates"
)

// Outcomes carried to the completion page.
const (
	outcomeSuccess  = "success"
	outcomeFailed   = "failed"
	outcomeCanceled = "canceled"
	outcomeRejected = "rejected"
)

// Payments drives an order through the hosted gateway.
type Payments struct {
	DB      *gorm.DB
	Gateway payment.Gateway
	Mailer  mail.Mailer
	Config  *config.Config
	Hub     *orderControllers.Hub
	Metrics *metrics.Metrics
	Log     *logrus.Logger
}

func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("order_id"), 10, 64)
	return uint(id), err == nil
}

// callbackOrder finds the order named in a gateway return URL. The gateway
// posts back cross-site, so the session cookie may be missing; when a user
// is logged in the order must be theirs.
func (p *Payments) callbackOrder(c *gin.Context) (*models.Order, bool) {
	id, ok := orderIDParam(c)
	if !ok {
		templates.NotFound(c)
		return nil, false
	}
	var userID uint
	if user := middleware.CurrentUser(c); user != nil {
		userID = user.ID
	}

	order, err := orderControllers.FindUserOrder(c.Request.Context(), p.DB, id, userID)
	if errors.Is(err, orderControllers.ErrOrderNotFound) {
		templates.NotFound(c)
		return nil, false
	}
	if err != nil {
		p.Log.WithError(err).WithField("order_id", id).Error("failed to load order")
		c.AbortWithStatus(http.StatusInternalServerError)
		return nil, false
	}
	return order, true
}

// complete sends the browser to the same-site page that shows the outcome.
// 303 turns the gateway's POST into a GET that carries the session cookie.
func complete(c *gin.Context, order *models.Order, outcome string) {
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/payment/complete/%d/?outcome=%s", order.ID, outcome))
}

// verify checks a callback against the gateway and the order it claims to pay.
func (p *Payments) verify(ctx context.Context, order *models.Order, form url.Values) (payment.Validation, error) {
	v, err := payment.Confirm(ctx, p.Gateway, p.Config.Payment.StorePassword, form)
	if err != nil {
		return v, err
	}
	if v.TranID != order.OrderRef {
		return v, fmt.Errorf("%w: tran_id %q does not belong to order %d", payment.ErrValidationFailed, v.TranID, order.ID)
	}
	if total := order.TotalCost(); !v.Amount.Equal(total) {
		return v, fmt.Errorf("%w: amount %s, order total %s", payment.ErrValidationFailed, v.Amount, total)
	}
	return v, nil
}

// fulfill marks the order paid and, the first time only, sends the
// confirmation email and notifies staff.
func (p *Payments) fulfill(ctx context.Context, order *models.Order, v payment.Validation) error {
	transactionID := v.BankTranID
	if transactionID == "" {
		transactionID = v.ValID
	}

	paid, fulfilled, err := orderControllers.FulfillOrder(ctx, p.DB, order.ID, transactionID)
	if err != nil {
		return err
	}
	if !fulfilled {
		return nil
	}

	p.Log.WithFields(logrus.Fields{
		"order_id":       paid.ID,
		"order_ref":      paid.OrderRef,
		"transaction_id": transactionID,
	}).Info("payment verified")
	p.Metrics.PaymentOutcome(metrics.PaymentSuccess)
	p.Hub.Broadcast(orderControllers.EventOrderPaid, *paid)

	msg, err := mail.OrderConfirmationEmail(*paid)
	if err == nil {
		err = p.Mailer.Send(ctx, msg)
	}
	if err != nil {
		p.Log.WithError(err).WithField("order_id", paid.ID).Error("order confirmation email failed")
	}
	return nil
}

func (p *Payments) cancel(ctx context.Context, order *models.Order, outcome string) error {
	canceled, err := orderControllers.CancelOrder(ctx, p.DB, order.ID)
	if err != nil {
		return err
	}
	if canceled {
		p.Log.WithFields(logrus.Fields{"order_id": order.ID, "outcome": outcome}).Info("order canceled")
		if outcome == outcomeFailed {
			p.Metrics.PaymentOutcome(metrics.PaymentFailed)
		} else {
			p.Metrics.PaymentOutcome(metrics.PaymentCanceled)
		}
	}
	return nil
}

// GET /payment/process/
func (p *Payments) Process() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user := middleware.CurrentUser(c)
		sess := session.FromContext(c)

		orderID := sess.OrderID()
		if orderID == 0 {
			sess.Flash(session.LevelError, "No order found.")
			c.Redirect(http.StatusFound, "/")
			return
		}

		order, err := orderControllers.FindUserOrder(ctx, p.DB, orderID, user.ID)
		if errors.Is(err, orderControllers.ErrOrderNotFound) {
			templates.NotFound(c)
			return
		}
		if err != nil {
			p.Log.WithError(err).WithField("order_id", orderID).Error("failed to load order")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if order.Paid {
			sess.Flash(session.LevelInfo, "This order has already been paid.")
			c.Redirect(http.StatusFound, "/profile/")
			return
		}
		if order.Status == models.OrderStatusCanceled {
			sess.SetOrderID(0)
			sess.Flash(session.LevelError, "This order was canceled. Please check out again.")
			c.Redirect(http.StatusFound, "/cart/")
			return
		}

		names := make([]string, 0, len(order.Items))
		for _, item := range order.Items {
			names = append(names, item.ProductName)
		}
		callback := func(kind string) string {
			return p.Config.AbsoluteURL(c.Request, fmt.Sprintf("/payment/%s/%d/", kind, order.ID))
		}

		resp, err := p.Gateway.Initiate(ctx, payment.InitRequest{
			TranID:        order.OrderRef,
			Amount:        order.TotalCost(),
			SuccessURL:    callback("success"),
			FailURL:       callback("fail"),
			CancelURL:     callback("cancel"),
			IPNURL:        p.Config.AbsoluteURL(c.Request, "/payment/ipn/"),
			CustomerName:  order.FullName(),
			CustomerEmail: order.Email,
			Address:       order.Address,
			City:          order.City,
			Postcode:      order.PostalCode,
			Phone:         user.Address.Mobile,
			ProductName:   strings.Join(names, ", "),
			NumItems:      len(order.Items),
		})
		if err == nil && resp.GatewayURL == "" {
			err = fmt.Errorf("%w: no gateway url", payment.ErrInitFailed)
		}
		if err != nil {
			p.Log.WithError(err).WithFields(logrus.Fields{
				"order_id": order.ID,
				"reason":   resp.FailedReason,
			}).Error("payment initiation failed")
			sess.Flash(session.LevelError, "Payment initiation failed. Please try again.")
			c.Redirect(http.StatusFound, "/checkout/")
			return
		}

		p.Log.WithFields(logrus.Fields{"order_id": order.ID, "order_ref": order.OrderRef}).Info("payment session opened")
		c.Redirect(http.StatusFound, resp.GatewayURL)
	}
}

// GET|POST /payment/success/:order_id/
func (p *Payments) Success() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := p.callbackOrder(c)
		if !ok {
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse form"})
			return
		}

		ctx := c.Request.Context()
		v, err := p.verify(ctx, order, c.Request.Form)
		if err != nil {
			p.Log.WithError(err).WithFields(logrus.Fields{
				"order_id": order.ID,
				"ip":       c.ClientIP(),
			}).Warn("payment callback rejected")
			p.Metrics.PaymentOutcome(metrics.PaymentRejected)
			complete(c, order, outcomeRejected)
			return
		}

		if err := p.fulfill(ctx, order, v); err != nil {
			p.Log.WithError(err).WithField("order_id", order.ID).Error("order fulfilment failed")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		complete(c, order, outcomeSuccess)
	}
}

// GET|POST /payment/fail/:order_id/
func (p *Payments) Fail() gin.HandlerFunc {
	return p.abandon(outcomeFailed)
}

// GET|POST /payment/cancel/:order_id/
func (p *Payments) Cancel() gin.HandlerFunc {
	return p.abandon(outcomeCanceled)
}

func (p *Payments) abandon(outcome string) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, ok := p.callbackOrder(c)
		if !ok {
			return
		}
		// without a session only the gateway knows the order ref
		if middleware.CurrentUser(c) == nil {
			tranID := c.PostForm("tran_id")
			if tranID == "" {
				tranID = c.Query("tran_id")
			}
			if tranID == "" || subtle.ConstantTimeCompare([]byte(tranID), []byte(order.OrderRef)) != 1 {
				p.Log.WithFields(logrus.Fields{"order_id": order.ID, "ip": c.ClientIP()}).Warn("anonymous cancel without matching tran_id")
				templates.NotFound(c)
				return
			}
		}
		if err := p.cancel(c.Request.Context(), order, outcome); err != nil {
			p.Log.WithError(err).WithField("order_id", order.ID).Error("order cancel failed")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		complete(c, order, outcome)
	}
}

// GET /payment/complete/:order_id/
func (p *Payments) Complete() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := orderIDParam(c)
		if !ok {
			templates.NotFound(c)
			return
		}
		user := middleware.CurrentUser(c)
		if _, err := orderControllers.FindUserOrder(c.Request.Context(), p.DB, id, user.ID); err != nil {
			templates.NotFound(c)
			return
		}

		sess := session.FromContext(c)
		switch c.Query("outcome") {
		case outcomeSuccess:
			sess.SetOrderID(0)
			sess.Flash(session.LevelSuccess, "Payment successful. Your order is being processed.")
			c.Redirect(http.StatusFound, "/profile/")
		case outcomeFailed:
			sess.Flash(session.LevelError, "Payment failed. Please try again.")
			c.Redirect(http.StatusFound, "/checkout/")
		case outcomeCanceled:
			sess.Flash(session.LevelInfo, "Your order has been canceled.")
			c.Redirect(http.StatusFound, "/cart/")
		default:
			sess.Flash(session.LevelError, "We could not verify your payment. If you were charged, please contact us.")
			c.Redirect(http.StatusFound, "/profile/?tab=orders")
		}
	}
}

// POST /payment/ipn/
//
// Server-to-server notification. The route is behind the gateway
// signature middleware; a VALID status is still confirmed with the
// validation API before the order is touched.
func (p *Payments) IPN() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		form := c.Request.PostForm
		tranID := form.Get("tran_id")

		var full models.Order
		err := p.DB.WithContext(ctx).Preload("Items").Where("order_ref = ?", tranID).First(&full).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || tranID == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown tran_id"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
			return
		}

		log := p.Log.WithFields(logrus.Fields{"order_id": full.ID, "status": form.Get("status")})
		switch strings.ToUpper(form.Get("status")) {
		case "VALID", "VALIDATED":
			v, err := p.verify(ctx, &full, form)
			if err != nil {
				log.WithError(err).Warn("ipn rejected")
				p.Metrics.PaymentOutcome(metrics.PaymentRejected)
				c.JSON(http.StatusBadRequest, gin.H{"error": "payment could not be validated"})
				return
			}
			if err := p.fulfill(ctx, &full, v); err != nil {
				log.WithError(err).Error("order fulfilment failed")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "fulfilment failed"})
				return
			}
		case "FAILED":
			err = p.cancel(ctx, &full, outcomeFailed)
		case "CANCELLED", "UNATTEMPTED", "EXPIRED":
			err = p.cancel(ctx, &full, outcomeCanceled)
		default:
			log.Warn("ipn with unknown status")
		}
		if err != nil {
			log.WithError(err).Error("order cancel failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "IPN processed"})
	}
}
