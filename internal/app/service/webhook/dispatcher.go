package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tailhaven/billing/internal/app/service/entitlement"
	"github.com/tailhaven/billing/internal/app/service/eventlog"
	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/pkg/logctx"
	"github.com/tailhaven/billing/pkg/types"
)

var eventCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Provider webhook events by type and outcome.",
	},
	[]string{"type", "outcome"},
)

func init() {
	prometheus.MustRegister(eventCounter)
}

// Reconciler is the slice of the entitlement service the dispatcher needs.
type Reconciler interface {
	HandleCheckoutCompleted(ctx context.Context, ev *entitlement.CheckoutSessionEvent) error
	HandleSubscriptionUpdated(ctx context.Context, ev *entitlement.SubscriptionEvent) error
	HandleSubscriptionDeleted(ctx context.Context, ev *entitlement.SubscriptionEvent) error
	HandleInvoicePaid(ctx context.Context, ev *entitlement.InvoiceEvent) error
	HandleInvoicePaymentFailed(ctx context.Context, ev *entitlement.InvoiceEvent) error
}

// EventRecorder is the slice of the event log service the dispatcher needs.
type EventRecorder interface {
	Save(ctx context.Context, row *models.WebhookEventLog)
}

// Dispatcher routes verified provider events to the entitlement handlers and
// records every event in the webhook event log.
type Dispatcher struct {
	reconciler Reconciler
	eventLog   EventRecorder
	log        *zap.SugaredLogger
}

func NewDispatcher(svc *entitlement.Service, eventLog *eventlog.Service, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{reconciler: svc, eventLog: eventLog, log: log}
}

// Dispatch handles one verified event. A returned error means the event should
// be redelivered by the provider; a nil return covers both handled and
// deliberately ignored events.
func (d *Dispatcher) Dispatch(ctx context.Context, event *stripe.Event, traceID string) (resErr error) {
	log := logctx.FromCtx(ctx, d.log)
	eventType := string(event.Type)

	var userID string
	eventTime := time.Unix(event.Created, 0)

	d.eventLog.Save(ctx, &models.WebhookEventLog{
		ProviderID: string(types.PaymentProviderStripe),
		EventID:    event.ID,
		EventType:  eventType,
		TraceID:    traceID,
		EventTime:  eventTime,
		Data:       datatypes.JSON(event.Data.Raw),
		Status:     models.WebhookEventLogStatusReceived,
	})

	handled := true
	defer func() {
		status := models.WebhookEventLogStatusHandled
		outcome := "handled"
		switch {
		case resErr != nil:
			status = models.WebhookEventLogStatusHandleFailed
			outcome = "failed"
		case !handled:
			status = models.WebhookEventLogStatusIgnored
			outcome = "ignored"
		}
		eventCounter.WithLabelValues(eventType, outcome).Inc()

		resMap := map[string]any{}
		if resErr != nil {
			resMap["error"] = resErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		d.eventLog.Save(ctx, &models.WebhookEventLog{
			ProviderID: string(types.PaymentProviderStripe),
			EventID:    event.ID,
			EventType:  eventType,
			UserID: func() *string {
				if userID == "" {
					return nil
				}
				return lo.ToPtr(userID)
			}(),
			TraceID:   traceID,
			EventTime: eventTime,
			Data:      datatypes.JSON(event.Data.Raw),
			Result:    func() *datatypes.JSON { j := datatypes.JSON(resBytes); return &j }(),
			Status:    status,
		})
	}()

	switch event.Type {
	case "checkout.session.completed":
		ev, err := parseCheckoutSession(event)
		if err != nil {
			return err
		}
		userID = ev.UserID
		return d.reconciler.HandleCheckoutCompleted(ctx, ev)
	case "customer.subscription.updated":
		ev, err := parseSubscription(event)
		if err != nil {
			return err
		}
		return d.reconciler.HandleSubscriptionUpdated(ctx, ev)
	case "customer.subscription.deleted":
		ev, err := parseSubscription(event)
		if err != nil {
			return err
		}
		return d.reconciler.HandleSubscriptionDeleted(ctx, ev)
	case "invoice.paid":
		ev, err := parseInvoice(event)
		if err != nil {
			return err
		}
		return d.reconciler.HandleInvoicePaid(ctx, ev)
	case "invoice.payment_failed":
		ev, err := parseInvoice(event)
		if err != nil {
			return err
		}
		return d.reconciler.HandleInvoicePaymentFailed(ctx, ev)
	default:
		handled = false
		log.Infow("webhook_event_ignored", "event_type", eventType, "event_id", event.ID)
		return nil
	}
}
