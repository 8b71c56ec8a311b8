package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junaidrashid-git/eshop/config"
)

func testConfig(base string) config.PaymentConfig {
	return config.PaymentConfig{
		StoreID:       "store1",
		StorePassword: "secret",
		PaymentURL:    base + "/gwprocess/v4/api.php",
		ValidationURL: base + "/validator/api/validationserverAPI.php",
		Currency:      "BDT",
		Country:       "Bangladesh",
		Timeout:       2 * time.Second,
	}
}

func TestInitiateSuccess(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		fmt.Fprint(w, `{"status":"SUCCESS","sessionkey":"abc","GatewayPageURL":"https://pay.example/abc"}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	res, err := c.Initiate(context.Background(), InitRequest{
		TranID:     "ref-1",
		Amount:     decimal.RequireFromString("25"),
		SuccessURL: "http://shop/payment/success/1/",
		FailURL:    "http://shop/payment/fail/1/",
		CancelURL:  "http://shop/payment/cancel/1/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", res.GatewayURL)
	assert.Equal(t, "abc", res.SessionKey)

	assert.Equal(t, "store1", got.Get("store_id"))
	assert.Equal(t, "25.00", got.Get("total_amount"))
	assert.Equal(t, "ref-1", got.Get("tran_id"))
	assert.Equal(t, "BDT", got.Get("currency"))
	assert.Equal(t, "NO", got.Get("shipping_method"))
	assert.Equal(t, "1", got.Get("num_of_item"))
}

func TestInitiateFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"FAILED","failedreason":"Store Credential Error"}`)
	}))
	defer srv.Close()

	res, err := NewClient(testConfig(srv.URL)).Initiate(context.Background(), InitRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInitFailed)
	assert.Equal(t, "Store Credential Error", res.FailedReason)
}

func TestInitiateHTTPErrorAndTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slow") != "" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).Initiate(context.Background(), InitRequest{})
	assert.Error(t, err)

	cfg := testConfig(srv.URL)
	cfg.PaymentURL += "?slow=1"
	cfg.Timeout = 20 * time.Millisecond
	_, err = NewClient(cfg).Initiate(context.Background(), InitRequest{})
	assert.Error(t, err)
}

func TestInitiateNotConfigured(t *testing.T) {
	_, err := NewClient(config.PaymentConfig{}).Initiate(context.Background(), InitRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "val-9", q.Get("val_id"))
		assert.Equal(t, "store1", q.Get("store_id"))
		assert.Equal(t, "json", q.Get("format"))
		fmt.Fprint(w, `{"status":"VALID","tran_id":"ref-1","val_id":"val-9","amount":"25.00","currency":"BDT","bank_tran_id":"b1"}`)
	}))
	defer srv.Close()

	v, err := NewClient(testConfig(srv.URL)).Validate(context.Background(), "val-9")
	require.NoError(t, err)
	assert.True(t, v.Valid())
	assert.Equal(t, "ref-1", v.TranID)
	assert.True(t, v.Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "b1", v.BankTranID)
}

func signedForm(password string) url.Values {
	form := url.Values{
		"tran_id":    {"ref-1"},
		"val_id":     {"val-9"},
		"amount":     {"25.00"},
		"status":     {"VALID"},
		"verify_key": {"amount,status,tran_id,val_id"},
	}
	form.Set("verify_sign", Sign(form, password))
	return form
}

func TestSignMatchesGatewayScheme(t *testing.T) {
	form := url.Values{
		"verify_key": {"tran_id,amount"},
		"tran_id":    {"ref-1"},
		"amount":     {"25.00"},
	}
	want := md5Hex("amount=25.00&store_passwd=" + md5Hex("secret") + "&tran_id=ref-1")
	assert.Equal(t, want, Sign(form, "secret"))
}

func TestVerifySignature(t *testing.T) {
	form := signedForm("secret")
	assert.NoError(t, VerifySignature(form, "secret"))
	assert.ErrorIs(t, VerifySignature(form, "wrong"), ErrInvalidSignature)

	tampered := signedForm("secret")
	tampered.Set("amount", "1.00")
	assert.ErrorIs(t, VerifySignature(tampered, "secret"), ErrInvalidSignature)

	assert.ErrorIs(t, VerifySignature(url.Values{"tran_id": {"ref-1"}}, "secret"), ErrInvalidSignature)
}

func TestConfirm(t *testing.T) {
	gw := &FakeGateway{Validations: map[string]Validation{
		"val-9": {Status: "VALID", TranID: "ref-1", Amount: decimal.NewFromInt(25)},
	}}

	v, err := Confirm(context.Background(), gw, "secret", signedForm("secret"))
	require.NoError(t, err)
	assert.Equal(t, "ref-1", v.TranID)

	_, err = Confirm(context.Background(), gw, "other", signedForm("secret"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	gw.Validations["val-9"] = Validation{Status: "INVALID_TRANSACTION"}
	_, err = Confirm(context.Background(), gw, "secret", signedForm("secret"))
	assert.ErrorIs(t, err, ErrValidationFailed)

	gw.Validations["val-9"] = Validation{Status: "VALID", TranID: "someone-else"}
	_, err = Confirm(context.Background(), gw, "secret", signedForm("secret"))
	assert.ErrorIs(t, err, ErrValidationFailed)

	gw.ValidateErr = errors.New("down")
	_, err = Confirm(context.Background(), gw, "secret", signedForm("secret"))
	assert.ErrorIs(t, err, ErrValidationFailed)
}
