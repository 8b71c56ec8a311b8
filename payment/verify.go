package payment

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Sign computes verify_sign for the fields listed in verify_key, the way
// the gateway does: the listed fields plus store_passwd=md5(password),
// sorted by key and joined as k=v&k=v.
func Sign(form url.Values, storePassword string) string {
	fields := map[string]string{"store_passwd": md5Hex(storePassword)}
	for _, key := range strings.Split(form.Get("verify_key"), ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		fields[key] = form.Get(key)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	return md5Hex(strings.Join(parts, "&"))
}

// VerifySignature checks verify_sign on a gateway callback.
func VerifySignature(form url.Values, storePassword string) error {
	provided := strings.ToLower(form.Get("verify_sign"))
	if provided == "" || form.Get("verify_key") == "" {
		return fmt.Errorf("%w: missing verify_sign", ErrInvalidSignature)
	}
	calculated := Sign(form, storePassword)
	if subtle.ConstantTimeCompare([]byte(calculated), []byte(provided)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

// Confirm verifies a success or IPN callback: the signature must match and
// the gateway must report the val_id as valid. The caller still checks the
// returned tran_id and amount against its order.
func Confirm(ctx context.Context, gw Gateway, storePassword string, form url.Values) (Validation, error) {
	if err := VerifySignature(form, storePassword); err != nil {
		return Validation{}, err
	}
	valID := form.Get("val_id")
	if valID == "" {
		return Validation{}, fmt.Errorf("%w: missing val_id", ErrValidationFailed)
	}

	v, err := gw.Validate(ctx, valID)
	if err != nil {
		return Validation{}, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if !v.Valid() {
		return v, fmt.Errorf("%w: status %s", ErrValidationFailed, v.Status)
	}
	if tranID := form.Get("tran_id"); tranID != "" && v.TranID != tranID {
		return v, fmt.Errorf("%w: tran_id mismatch", ErrValidationFailed)
	}
	return v, nil
}
