package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tailhaven/billing/docs"
	"github.com/tailhaven/billing/internal/app/api/handlers"
	mw "github.com/tailhaven/billing/internal/app/api/middleware"
	"github.com/tailhaven/billing/internal/app/service/eventlog"
	"github.com/tailhaven/billing/internal/app/service/notification"
	"github.com/tailhaven/billing/internal/app/service/stats"
	subsvc "github.com/tailhaven/billing/internal/app/service/subscription"
	websvc "github.com/tailhaven/billing/internal/app/service/webhook"
	cfgpkg "github.com/tailhaven/billing/pkg/config"
	metrics "github.com/tailhaven/billing/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(
	r *gin.Engine,
	log *zap.SugaredLogger,
	cfg *cfgpkg.Config,
	dispatcher *websvc.Dispatcher,
	sub *subsvc.Service,
	hub *notification.Hub,
	logs *eventlog.Service,
	statsSvc *stats.Service,
) {
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Provider webhook: signature verification is the auth.
	webhookGroup := r.Group("/api/v1/webhook")
	webhookGroup.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterBillingWebhookRoutes(webhookGroup, cfg, dispatcher, log)

	// User-facing billing reads and the notification socket.
	billingGroup := r.Group("/api/v1/billing")
	billingGroup.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterBillingRoutes(billingGroup, sub, hub, log)

	// Admin console APIs behind JWT auth.
	adminGroup := r.Group("/api/v1/admin")
	adminGroup.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.AdminAuthMiddleware(cfg))
	handlers.RegisterAdminBillingRoutes(adminGroup, sub, logs, statsSvc)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
