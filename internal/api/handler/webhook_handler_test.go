package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

type stubWebhookService struct {
	body    []byte
	outcome ports.WebhookOutcome
	err     error
}

func (s *stubWebhookService) HandlePayment(_ context.Context, body []byte) (ports.WebhookOutcome, error) {
	s.body = body
	return s.outcome, s.err
}

func postWebhook(t *testing.T, svc ports.WebhookService, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payosWebhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := NewWebhookHandler(svc, zerolog.Nop()).Payment(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestWebhookHandler_AlwaysOK(t *testing.T) {
	cases := []struct {
		name    string
		outcome ports.WebhookOutcome
		err     error
		want    string
	}{
		{"activated", ports.WebhookActivated, nil, `{"success":true}`},
		{"unmatched", ports.WebhookUnmatched, nil, `{"success":true}`},
		{"malformed", ports.WebhookMalformed, nil, `{"success":true}`},
		{"store failure", ports.WebhookError, errors.New("mongo down"), `{"success":false}`},
		{"not configured", ports.WebhookError, domain.ErrNotConfigured, `{"success":false}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postWebhook(t, &stubWebhookService{outcome: tc.outcome, err: tc.err}, `{"code":"00"}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestWebhookHandler_PassesRawBody(t *testing.T) {
	svc := &stubWebhookService{outcome: ports.WebhookActivated}
	raw := `{"code":"00","data":{"orderCode":1, "amount":10000},"signature":"abc"}`
	postWebhook(t, svc, raw)

	if string(svc.body) != raw {
		t.Fatalf("body altered: %s", svc.body)
	}
}
