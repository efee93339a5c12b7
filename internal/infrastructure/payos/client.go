// Package payos is the PayOS payment-link client: link creation and
// cancellation over the merchant API, and webhook signature checks.
package payos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

const (
	DefaultBaseURL = "https://api-merchant.payos.vn"
	defaultTimeout = 15 * time.Second
	maxBody        = 1 << 20
)

type Config struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
	Timeout     time.Duration
}

// Client implements ports.PaymentLinkProvider and ports.WebhookVerifier.
// Missing credentials surface as ErrNotConfigured on first use.
type Client struct {
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
	http        *http.Client
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:     base,
		clientID:    cfg.ClientID,
		apiKey:      cfg.APIKey,
		checksumKey: cfg.ChecksumKey,
		http:        &http.Client{Timeout: timeout},
	}
}

type createLinkRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	BuyerName   string `json:"buyerName,omitempty"`
	BuyerEmail  string `json:"buyerEmail,omitempty"`
	BuyerPhone  string `json:"buyerPhone,omitempty"`
	CancelURL   string `json:"cancelUrl"`
	ReturnURL   string `json:"returnUrl"`
	Signature   string `json:"signature"`
}

type envelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

type linkData struct {
	OrderCode     int64  `json:"orderCode"`
	PaymentLinkID string `json:"paymentLinkId"`
	CheckoutURL   string `json:"checkoutUrl"`
	Status        string `json:"status"`
}

// APIError is a non-success answer from the provider.
type APIError struct {
	HTTPStatus int
	Code       string
	Desc       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payos: http %d code %s: %s", e.HTTPStatus, e.Code, e.Desc)
}

func (c *Client) configured() error {
	if c.clientID == "" || c.apiKey == "" || c.checksumKey == "" {
		return fmt.Errorf("payos credentials: %w", domain.ErrNotConfigured)
	}
	return nil
}

func (c *Client) CreatePaymentLink(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentLink, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	if req.OrderCode <= 0 || req.OrderCode > domain.MaxOrderCode {
		return nil, fmt.Errorf("payos: order code %d out of range", req.OrderCode)
	}

	body := createLinkRequest{
		OrderCode:   req.OrderCode,
		Amount:      req.Amount,
		Description: req.Description,
		BuyerName:   req.BuyerName,
		BuyerEmail:  req.BuyerEmail,
		BuyerPhone:  req.BuyerPhone,
		CancelURL:   req.CancelURL,
		ReturnURL:   req.ReturnURL,
		Signature: sign(c.checksumKey, paymentRequestPayload(
			req.Amount, req.OrderCode, req.Description, req.CancelURL, req.ReturnURL)),
	}

	var data linkData
	if err := c.do(ctx, "/v2/payment-requests", body, &data); err != nil {
		return nil, fmt.Errorf("create payment link: %w", err)
	}
	if data.CheckoutURL == "" {
		return nil, fmt.Errorf("create payment link: empty checkout url")
	}

	return &domain.PaymentLink{
		OrderCode:     req.OrderCode,
		PaymentLinkID: data.PaymentLinkID,
		CheckoutURL:   data.CheckoutURL,
		Status:        data.Status,
	}, nil
}

func (c *Client) CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error {
	if err := c.configured(); err != nil {
		return err
	}
	path := "/v2/payment-requests/" + strconv.FormatInt(orderCode, 10) + "/cancel"
	body := map[string]string{"cancellationReason": reason}
	if err := c.do(ctx, path, body, nil); err != nil {
		return fmt.Errorf("cancel payment link %d: %w", orderCode, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, in any, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.clientID)
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{HTTPStatus: resp.StatusCode, Desc: "unreadable response"}
	}
	if resp.StatusCode != http.StatusOK || env.Code != domain.PaymentSuccessCode {
		return &APIError{HTTPStatus: resp.StatusCode, Code: env.Code, Desc: env.Desc}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
