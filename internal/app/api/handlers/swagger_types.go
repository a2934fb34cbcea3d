package handlers

import (
	"github.com/tailhaven/billing/internal/app/service/stats"
	subsvc "github.com/tailhaven/billing/internal/app/service/subscription"
	"github.com/tailhaven/billing/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespBillingProfile wraps BillingProfile in the standard envelope.
type RespBillingProfile struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    subsvc.BillingProfile    `json:"data"`
}

// RespScanPayments wraps ScanPaymentsResponse in the standard envelope.
type RespScanPayments struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    subsvc.ScanPaymentsResponse `json:"data"`
}

// RespScanSubscriptions wraps ScanSubscriptionsResponse in the standard envelope.
type RespScanSubscriptions struct {
	Code    response.APIResponseCode         `json:"code"`
	Message string                           `json:"message"`
	Data    subsvc.ScanSubscriptionsResponse `json:"data"`
}

// RespBillingStatistic wraps StatisticResponse in the standard envelope.
type RespBillingStatistic struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    stats.StatisticResponse  `json:"data"`
}
