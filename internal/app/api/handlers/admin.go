package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tailhaven/billing/internal/app/service/eventlog"
	"github.com/tailhaven/billing/internal/app/service/stats"
	subsvc "github.com/tailhaven/billing/internal/app/service/subscription"
	"github.com/tailhaven/billing/pkg/response"
)

// @Summary      List Payments (Admin)
// @Description  Retrieves a paginated and filterable list of payments.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body subscription.ScanPaymentsRequest true "Scan request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespScanPayments
// @Router       /api/v1/admin/scan_payments [post]
func ApiScanPayments(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subsvc.ScanPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanPayments(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List Subscriptions (Admin)
// @Description  Retrieves a paginated and filterable list of subscriptions.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body subscription.ScanSubscriptionsRequest true "Scan request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespScanSubscriptions
// @Router       /api/v1/admin/scan_subscriptions [post]
func ApiScanSubscriptions(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subsvc.ScanSubscriptionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanSubscriptions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List Webhook Event Logs (Admin)
// @Description  Retrieves webhook event logs for troubleshooting redeliveries.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body eventlog.ScanRequest true "Scan request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/scan_event_logs [post]
func ApiScanEventLogs(svc *eventlog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req eventlog.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.Scan(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Billing Statistics (Admin)
// @Description  Retrieves daily billing statistics.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body stats.StatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespBillingStatistic
// @Router       /api/v1/admin/get_billing_statistic [post]
func ApiGetBillingStatistic(svc *stats.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stats.StatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetStatistics(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Trigger Subscription Snapshot (Admin)
// @Description  Captures today's subscription base for the analytics tables. Idempotent per day.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/snapshot_subscriptions [post]
func ApiSnapshotSubscriptions(svc *stats.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.SnapshotAllSubscriptions(c.Request.Context(), time.Now()); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterAdminBillingRoutes(r gin.IRouter, sub *subsvc.Service, logs *eventlog.Service, statsSvc *stats.Service) {
	r.POST("/scan_payments", ApiScanPayments(sub))
	r.POST("/scan_subscriptions", ApiScanSubscriptions(sub))
	r.POST("/scan_event_logs", ApiScanEventLogs(logs))
	r.POST("/get_billing_statistic", ApiGetBillingStatistic(statsSvc))
	r.POST("/snapshot_subscriptions", ApiSnapshotSubscriptions(statsSvc))
}
