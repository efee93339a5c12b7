package payos

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

const testKey = "checksum-key"

const webhookData = `{
	"orderCode": 123456,
	"amount": 10000,
	"description": "KICHHOAT 912345678",
	"accountNumber": "12345678",
	"reference": "FT123",
	"paymentLinkId": "pl_1",
	"currency": "VND",
	"virtualAccountName": null,
	"desc": "success"
}`

const webhookSignature = "03f6fec3bc41c0ff553ddd2dc12eb0206f6d1dff3f8114597c6ceab727ece2ef"

func TestPaymentRequestSignature(t *testing.T) {
	payload := paymentRequestPayload(10000, 123456, "KICHHOAT 912345678",
		"https://travelog.vn/payment-fail", "https://travelog.vn/payment-success")

	want := "765201635705b9114e36d1b3ebc3f66d07fb6dd5062e574d1a7fd4a040ffbee0"
	if got := sign(testKey, payload); got != want {
		t.Fatalf("unexpected signature %s", got)
	}
}

func TestVerifyWebhookData(t *testing.T) {
	c := NewClient(Config{ChecksumKey: testKey})

	if err := c.VerifyWebhookData(json.RawMessage(webhookData), webhookSignature); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if err := c.VerifyWebhookData(json.RawMessage(webhookData), "  "+"03F6FEC3BC41C0FF553DDD2DC12EB0206F6D1DFF3F8114597C6CEAB727ECE2EF"); err != nil {
		t.Fatalf("expected case-insensitive match, got %v", err)
	}

	tampered := `{"orderCode":123456,"amount":1,"description":"KICHHOAT 912345678","accountNumber":"12345678","reference":"FT123","paymentLinkId":"pl_1","currency":"VND","virtualAccountName":null,"desc":"success"}`
	if err := c.VerifyWebhookData(json.RawMessage(tampered), webhookSignature); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for tampered amount, got %v", err)
	}
	if err := c.VerifyWebhookData(json.RawMessage(`[1,2]`), webhookSignature); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for non-object, got %v", err)
	}
}

func TestVerifyWebhookData_NotConfigured(t *testing.T) {
	c := NewClient(Config{})
	if err := c.VerifyWebhookData(json.RawMessage(webhookData), webhookSignature); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestDataPayload_Normalisation(t *testing.T) {
	got, err := dataPayload(json.RawMessage(`{"b":"undefined","a":"null","d":{"y":1,"x":true},"c":[1,"two"],"e":12.50}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `a=&b=&c=[1,"two"]&d={"x":true,"y":1}&e=12.50`
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
