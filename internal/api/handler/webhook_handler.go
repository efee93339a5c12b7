package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives payment provider callbacks.
type WebhookHandler struct {
	svc ports.WebhookService
	log zerolog.Logger
}

func NewWebhookHandler(svc ports.WebhookService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, log: log}
}

type webhookResponse struct {
	Success bool `json:"success"`
}

// Payment handles POST /payosWebhook. It always answers 200: the provider
// retries on HTTP status, so the outcome travels in the body only.
//
// @Summary      PayOS payment webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        body  body      object  true  "Signed PayOS webhook payload"
// @Success      200   {object}  webhookResponse
// @Router       /payosWebhook [post]
func (h *WebhookHandler) Payment(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		h.log.Warn().Err(err).Msg("webhook body unreadable")
		return c.JSON(http.StatusOK, webhookResponse{Success: true})
	}

	outcome, err := h.svc.HandlePayment(c.Request().Context(), body)
	if err != nil {
		h.log.Error().Err(err).Str("outcome", string(outcome)).Msg("webhook processing failed")
		return c.JSON(http.StatusOK, webhookResponse{Success: false})
	}
	return c.JSON(http.StatusOK, webhookResponse{Success: true})
}
