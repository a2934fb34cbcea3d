package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	websvc "github.com/tailhaven/billing/internal/app/service/webhook"
	"github.com/tailhaven/billing/pkg/config"
	"github.com/tailhaven/billing/pkg/logctx"
	"github.com/tailhaven/billing/pkg/response"
)

// Stripe signs payloads over the exact bytes; cap the body well above any
// event Stripe actually sends.
const maxWebhookBodyBytes = int64(1 << 16)

// @Summary      Stripe Webhook
// @Description  Handles Stripe billing events. The request must carry a valid Stripe-Signature header.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/webhook/stripe [post]
// ApiStripeWebhook verifies and dispatches Stripe events.
func ApiStripeWebhook(cfg *config.Config, dispatcher *websvc.Dispatcher, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logctx.FromGin(c, log).Warnw("webhook_stripe_body_read_failed", "error", err.Error())
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "failed to read body"))
			return
		}

		// Newer provider API versions than the pinned SDK version are fine:
		// payloads are decoded field-by-field, not through the SDK structs.
		event, err := webhook.ConstructEventWithOptions(
			payload,
			c.GetHeader("Stripe-Signature"),
			cfg.Stripe.WebhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
		)
		if err != nil {
			logctx.FromGin(c, log).Warnw("webhook_stripe_verify_failed", "error", err.Error())
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid signature"))
			return
		}

		logctx.FromGin(c, log).Infow("webhook_stripe_received", "event_id", event.ID, "event_type", event.Type)

		if err := dispatcher.Dispatch(c.Request.Context(), &event, c.GetString("traceID")); err != nil {
			logctx.FromGin(c, log).Errorw("webhook_stripe_handle_error", "event_id", event.ID, "error", err.Error())
			// Non-2xx so the provider redelivers the event.
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterBillingWebhookRoutes(r gin.IRouter, cfg *config.Config, dispatcher *websvc.Dispatcher, log *zap.SugaredLogger) {
	r.POST("/stripe", ApiStripeWebhook(cfg, dispatcher, log))
}
