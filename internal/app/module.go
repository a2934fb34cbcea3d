package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/tailhaven/billing/internal/app/api/server"
	"github.com/tailhaven/billing/internal/app/service/entitlement"
	"github.com/tailhaven/billing/internal/app/service/eventlog"
	"github.com/tailhaven/billing/internal/app/service/notification"
	"github.com/tailhaven/billing/internal/app/service/stats"
	"github.com/tailhaven/billing/internal/app/service/subscription"
	"github.com/tailhaven/billing/internal/app/service/webhook"
	"github.com/tailhaven/billing/internal/platform/db"
	"github.com/tailhaven/billing/internal/platform/stripeapi"
	"github.com/tailhaven/billing/pkg/config"
	"github.com/tailhaven/billing/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	stripeapi.Module,
	server.Module,
	entitlement.Module,
	subscription.Module,
	eventlog.Module,
	webhook.Module,
	notification.Module,
	stats.Module,
)
