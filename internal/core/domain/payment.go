package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PaymentSuccessCode is the provider result code for a completed payment.
const PaymentSuccessCode = "00"

// MaxOrderCode is the largest order code the provider accepts (2^53 - 1).
const MaxOrderCode int64 = 1<<53 - 1

// PaymentWebhook is the inbound provider callback. Data is kept raw because
// the signature is computed over its exact fields.
type PaymentWebhook struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// HasData reports whether the callback carries a data object.
func (w PaymentWebhook) HasData() bool {
	d := bytes.TrimSpace(w.Data)
	return len(d) > 0 && d[0] == '{'
}

// PaymentData is the subset of the callback data object the service reads.
type PaymentData struct {
	OrderCode     OrderCode `json:"orderCode"`
	Amount        int64     `json:"amount"`
	Description   string    `json:"description"`
	Reference     string    `json:"reference"`
	PaymentLinkID string    `json:"paymentLinkId"`
}

// OrderCode decodes from either a JSON number or a numeric string.
type OrderCode int64

var errInvalidOrderCode = errors.New("invalid order code")

func (c *OrderCode) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		return fmt.Errorf("%w: missing", errInvalidOrderCode)
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("%w: %v", errInvalidOrderCode, err)
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Accept integral floats such as 123.0.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return fmt.Errorf("%w: %q", errInvalidOrderCode, s)
		}
		n = int64(f)
	}
	if n <= 0 || n > MaxOrderCode {
		return fmt.Errorf("%w: %d out of range", errInvalidOrderCode, n)
	}
	*c = OrderCode(n)
	return nil
}

// PaymentRequest describes a checkout session to create.
type PaymentRequest struct {
	OrderCode   int64
	Amount      int64
	Description string
	CancelURL   string
	ReturnURL   string
	BuyerName   string
	BuyerEmail  string
	BuyerPhone  string
}

// PaymentLink is the provider's answer to a PaymentRequest.
type PaymentLink struct {
	OrderCode     int64
	PaymentLinkID string
	CheckoutURL   string
	Status        string
}
