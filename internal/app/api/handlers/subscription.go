package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tailhaven/billing/internal/app/service/notification"
	subsvc "github.com/tailhaven/billing/internal/app/service/subscription"
	"github.com/tailhaven/billing/pkg/logctx"
	"github.com/tailhaven/billing/pkg/response"
)

// @Summary      Get Billing Profile
// @Description  Returns the user's current plan, token balance and subscription record.
// @Tags         Billing
// @Produce      json
// @Param        user_id query string true "User ID"
// @Success      200  {object}  handlers.RespBillingProfile
// @Router       /api/v1/billing/profile [get]
func ApiGetBillingProfile(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		profile, err := svc.GetBillingProfile(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(profile))
	}
}

// @Summary      List User Payments
// @Description  Returns the user's payment history, newest first.
// @Tags         Billing
// @Produce      json
// @Param        user_id query string true "User ID"
// @Param        limit query int false "Max rows (default 20)"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/payments [get]
func ApiListUserPayments(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		limit := 20
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		rows, err := svc.ListUserPayments(c.Request.Context(), userID, limit)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Billing Notifications WebSocket
// @Description  Upgrades to a WebSocket pushing billing state changes for the user.
// @Tags         Billing
// @Param        user_id query string true "User ID"
// @Router       /api/v1/billing/notifications/ws [get]
func ApiNotificationsWS(hub *notification.Hub, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		if err := hub.Serve(c.Writer, c.Request, userID); err != nil {
			logctx.FromGin(c, log).Warnw("notification_ws_upgrade_failed", "user_id", userID, "error", err.Error())
		}
	}
}

func RegisterBillingRoutes(r gin.IRouter, svc *subsvc.Service, hub *notification.Hub, log *zap.SugaredLogger) {
	r.GET("/profile", ApiGetBillingProfile(svc))
	r.GET("/payments", ApiListUserPayments(svc))
	r.GET("/notifications/ws", ApiNotificationsWS(hub, log))
}
