package handlers

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tailhaven/billing/internal/app/service/notification"
)

func TestRegisterBillingRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/billing")
	hub := notification.NewHub(zap.NewNop().Sugar())
	RegisterBillingRoutes(g, nil, hub, zap.NewNop().Sugar())

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("GET /api/v1/billing/profile"))
	require.True(t, contains("GET /api/v1/billing/payments"))
	require.True(t, contains("GET /api/v1/billing/notifications/ws"))
}

func TestRegisterAdminBillingRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/admin")
	RegisterAdminBillingRoutes(g, nil, nil, nil)

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/admin/scan_payments"))
	require.True(t, contains("POST /api/v1/admin/scan_subscriptions"))
	require.True(t, contains("POST /api/v1/admin/scan_event_logs"))
	require.True(t, contains("POST /api/v1/admin/get_billing_statistic"))
	require.True(t, contains("POST /api/v1/admin/snapshot_subscriptions"))
}
