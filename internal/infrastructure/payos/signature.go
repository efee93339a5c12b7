package payos

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

func sign(key, payload string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// paymentRequestPayload is the canonical string signed when creating a link.
// The field order is fixed by the provider, not sorted at runtime.
func paymentRequestPayload(amount, orderCode int64, description, cancelURL, returnURL string) string {
	return "amount=" + strconv.FormatInt(amount, 10) +
		"&cancelUrl=" + cancelURL +
		"&description=" + description +
		"&orderCode=" + strconv.FormatInt(orderCode, 10) +
		"&returnUrl=" + returnURL
}

// dataPayload flattens a webhook data object into sorted key=value pairs.
func dataPayload(data json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return "", fmt.Errorf("decode webhook data: %w", err)
	}
	if fields == nil {
		return "", fmt.Errorf("decode webhook data: not an object")
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := fieldValue(fields[k])
		if err != nil {
			return "", fmt.Errorf("field %s: %w", k, err)
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, "&"), nil
}

func fieldValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		if t == "null" || t == "undefined" {
			return "", nil
		}
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		// Nested objects and arrays are signed in their JSON form; map keys
		// marshal sorted.
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// VerifyWebhookData checks signature against the data object of a callback.
func (c *Client) VerifyWebhookData(data json.RawMessage, signature string) error {
	if c.checksumKey == "" {
		return fmt.Errorf("payos checksum key: %w", domain.ErrNotConfigured)
	}
	payload, err := dataPayload(data)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	want := sign(c.checksumKey, payload)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return domain.ErrInvalidSignature
	}
	return nil
}
