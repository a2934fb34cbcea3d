package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tailhaven/billing/pkg/config"
)

func signStripePayload(secret string, payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestApiStripeWebhook_RejectsBadSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Stripe: config.StripeConfig{WebhookSecret: "whsec_test"}}

	r := gin.New()
	r.POST("/webhook/stripe", ApiStripeWebhook(cfg, nil, zap.NewNop().Sugar()))

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApiStripeWebhook_RejectsMissingSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Stripe: config.StripeConfig{WebhookSecret: "whsec_test"}}

	r := gin.New()
	r.POST("/webhook/stripe", ApiStripeWebhook(cfg, nil, zap.NewNop().Sugar()))

	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(`{"id":"evt_1"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApiStripeWebhook_RejectsStaleSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Stripe: config.StripeConfig{WebhookSecret: "whsec_test"}}

	r := gin.New()
	r.POST("/webhook/stripe", ApiStripeWebhook(cfg, nil, zap.NewNop().Sugar()))

	payload := []byte(`{"id":"evt_1","type":"customer.created","data":{"object":{}}}`)
	// Valid signature but outside the default tolerance window.
	sig := signStripePayload("whsec_test", payload, time.Now().Add(-time.Hour))
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", sig)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
