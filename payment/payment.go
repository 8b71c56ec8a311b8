// Package payment talks to the SSLCommerz hosted payment gateway: it opens
// a payment session for an order and verifies the gateway's callbacks.
package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/junaidrashid-git/eshop/config"
)

var (
	ErrNotConfigured    = errors.New("payment gateway is not configured")
	ErrInitFailed       = errors.New("payment initiation failed")
	ErrInvalidSignature = errors.New("invalid gateway signature")
	ErrValidationFailed = errors.New("payment validation failed")
)

// Gateway is the part of SSLCommerz the shop depends on.
type Gateway interface {
	Initiate(ctx context.Context, req InitRequest) (InitResponse, error)
	Validate(ctx context.Context, valID string) (Validation, error)
}

type InitRequest struct {
	TranID     string
	Amount     decimal.Decimal
	SuccessURL string
	FailURL    string
	CancelURL  string
	IPNURL     string

	CustomerName  string
	CustomerEmail string
	Address       string
	City          string
	Postcode      string
	Phone         string
	ProductName   string
	NumItems      int
}

type InitResponse struct {
	Status       string
	GatewayURL   string
	SessionKey   string
	FailedReason string
}

// Validation is the gateway's server-side view of a transaction.
type Validation struct {
	Status     string
	TranID     string
	ValID      string
	Amount     decimal.Decimal
	Currency   string
	BankTranID string
}

// Valid reports whether the gateway considers the payment complete.
// VALIDATED means the same val_id was already checked once.
func (v Validation) Valid() bool {
	return v.Status == "VALID" || v.Status == "VALIDATED"
}

type Client struct {
	cfg  config.PaymentConfig
	http *http.Client
}

func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Initiate opens a hosted payment session. A response whose status is not
// SUCCESS is returned together with ErrInitFailed.
func (c *Client) Initiate(ctx context.Context, req InitRequest) (InitResponse, error) {
	if c.cfg.StoreID == "" || c.cfg.StorePassword == "" {
		return InitResponse{}, ErrNotConfigured
	}

	phone := req.Phone
	if phone == "" {
		phone = "N/A"
	}
	numItems := req.NumItems
	if numItems < 1 {
		numItems = 1
	}

	form := url.Values{
		"store_id":         {c.cfg.StoreID},
		"store_passwd":     {c.cfg.StorePassword},
		"total_amount":     {req.Amount.StringFixed(2)},
		"currency":         {c.cfg.Currency},
		"tran_id":          {req.TranID},
		"success_url":      {req.SuccessURL},
		"fail_url":         {req.FailURL},
		"cancel_url":       {req.CancelURL},
		"cus_name":         {req.CustomerName},
		"cus_email":        {req.CustomerEmail},
		"cus_add1":         {req.Address},
		"cus_city":         {req.City},
		"cus_postcode":     {req.Postcode},
		"cus_country":      {c.cfg.Country},
		"cus_phone":        {phone},
		"shipping_method":  {"NO"},
		"num_of_item":      {fmt.Sprint(numItems)},
		"product_name":     {req.ProductName},
		"product_category": {"General"},
		"product_profile":  {"general"},
	}
	if req.IPNURL != "" {
		form.Set("ipn_url", req.IPNURL)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.PaymentURL, strings.NewReader(form.Encode()))
	if err != nil {
		return InitResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	body, err := c.do(httpReq)
	if err != nil {
		return InitResponse{}, err
	}

	res := gjson.ParseBytes(body)
	out := InitResponse{
		Status:       res.Get("status").String(),
		GatewayURL:   res.Get("GatewayPageURL").String(),
		SessionKey:   res.Get("sessionkey").String(),
		FailedReason: res.Get("failedreason").String(),
	}
	if !strings.EqualFold(out.Status, "SUCCESS") || out.GatewayURL == "" {
		return out, fmt.Errorf("%w: %s", ErrInitFailed, out.FailedReason)
	}
	return out, nil
}

// Validate asks the validation API about a val_id received in a callback.
func (c *Client) Validate(ctx context.Context, valID string) (Validation, error) {
	if c.cfg.StoreID == "" || c.cfg.StorePassword == "" {
		return Validation{}, ErrNotConfigured
	}

	q := url.Values{
		"val_id":       {valID},
		"store_id":     {c.cfg.StoreID},
		"store_passwd": {c.cfg.StorePassword},
		"v":            {"1"},
		"format":       {"json"},
	}
	u := c.cfg.ValidationURL
	if strings.Contains(u, "?") {
		u += "&" + q.Encode()
	} else {
		u += "?" + q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Validation{}, err
	}
	httpReq.Header.Set("Accept", "application/json")

	body, err := c.do(httpReq)
	if err != nil {
		return Validation{}, err
	}

	res := gjson.ParseBytes(body)
	amount, err := decimal.NewFromString(res.Get("amount").String())
	if err != nil {
		amount = decimal.Zero
	}
	return Validation{
		Status:     res.Get("status").String(),
		TranID:     res.Get("tran_id").String(),
		ValID:      res.Get("val_id").String(),
		Amount:     amount,
		Currency:   res.Get("currency").String(),
		BankTranID: res.Get("bank_tran_id").String(),
	}, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway error (%d): %s", resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("payment gateway returned invalid JSON")
	}
	return body, nil
}
