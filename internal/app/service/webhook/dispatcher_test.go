package webhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tailhaven/billing/internal/app/service/entitlement"
	"github.com/tailhaven/billing/internal/models"
)

type fakeReconciler struct {
	checkout []*entitlement.CheckoutSessionEvent
	updated  []*entitlement.SubscriptionEvent
	deleted  []*entitlement.SubscriptionEvent
	paid     []*entitlement.InvoiceEvent
	failed   []*entitlement.InvoiceEvent
}

func (f *fakeReconciler) HandleCheckoutCompleted(_ context.Context, ev *entitlement.CheckoutSessionEvent) error {
	f.checkout = append(f.checkout, ev)
	return nil
}
func (f *fakeReconciler) HandleSubscriptionUpdated(_ context.Context, ev *entitlement.SubscriptionEvent) error {
	f.updated = append(f.updated, ev)
	return nil
}
func (f *fakeReconciler) HandleSubscriptionDeleted(_ context.Context, ev *entitlement.SubscriptionEvent) error {
	f.deleted = append(f.deleted, ev)
	return nil
}
func (f *fakeReconciler) HandleInvoicePaid(_ context.Context, ev *entitlement.InvoiceEvent) error {
	f.paid = append(f.paid, ev)
	return nil
}
func (f *fakeReconciler) HandleInvoicePaymentFailed(_ context.Context, ev *entitlement.InvoiceEvent) error {
	f.failed = append(f.failed, ev)
	return nil
}

type fakeRecorder struct {
	rows []*models.WebhookEventLog
}

func (f *fakeRecorder) Save(_ context.Context, row *models.WebhookEventLog) {
	f.rows = append(f.rows, row)
}

func newTestDispatcher() (*Dispatcher, *fakeReconciler, *fakeRecorder) {
	rec := &fakeReconciler{}
	logRec := &fakeRecorder{}
	d := &Dispatcher{
		reconciler: rec,
		eventLog:   logRec,
		log:        zap.NewNop().Sugar(),
	}
	return d, rec, logRec
}

func TestDispatch_RoutesByEventType(t *testing.T) {
	d, rec, _ := newTestDispatcher()
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, eventWithRaw(t, "checkout.session.completed",
		`{"id":"cs_1","client_reference_id":"u-1","subscription":"sub_1"}`), "trace-1"))
	require.NoError(t, d.Dispatch(ctx, eventWithRaw(t, "customer.subscription.updated",
		`{"id":"sub_1","status":"active"}`), "trace-2"))
	require.NoError(t, d.Dispatch(ctx, eventWithRaw(t, "customer.subscription.deleted",
		`{"id":"sub_1","status":"canceled"}`), "trace-3"))
	require.NoError(t, d.Dispatch(ctx, eventWithRaw(t, "invoice.paid",
		`{"id":"in_1","subscription":"sub_1"}`), "trace-4"))
	require.NoError(t, d.Dispatch(ctx, eventWithRaw(t, "invoice.payment_failed",
		`{"id":"in_1","subscription":"sub_1"}`), "trace-5"))

	require.Len(t, rec.checkout, 1)
	require.Len(t, rec.updated, 1)
	require.Len(t, rec.deleted, 1)
	require.Len(t, rec.paid, 1)
	require.Len(t, rec.failed, 1)
}

func TestDispatch_UnknownTypeIsIgnored(t *testing.T) {
	d, rec, logRec := newTestDispatcher()

	err := d.Dispatch(context.Background(), eventWithRaw(t, "customer.created", `{}`), "trace-1")
	require.NoError(t, err)

	require.Empty(t, rec.checkout)
	require.Empty(t, rec.updated)
	// Received row plus the ignored result row.
	require.Len(t, logRec.rows, 2)
	require.Equal(t, models.WebhookEventLogStatusReceived, logRec.rows[0].Status)
	require.Equal(t, models.WebhookEventLogStatusIgnored, logRec.rows[1].Status)
}

func TestDispatch_ParseFailureIsRecorded(t *testing.T) {
	d, _, logRec := newTestDispatcher()

	err := d.Dispatch(context.Background(), eventWithRaw(t, "invoice.paid", `{not json`), "trace-1")
	require.Error(t, err)

	require.Len(t, logRec.rows, 2)
	require.Equal(t, models.WebhookEventLogStatusHandleFailed, logRec.rows[1].Status)
	require.NotNil(t, logRec.rows[1].Result)
}

func TestDispatch_HandledEventLogsResult(t *testing.T) {
	d, _, logRec := newTestDispatcher()

	err := d.Dispatch(context.Background(), eventWithRaw(t, "checkout.session.completed",
		`{"id":"cs_1","client_reference_id":"u-1","subscription":"sub_1"}`), "trace-1")
	require.NoError(t, err)

	require.Len(t, logRec.rows, 2)
	require.Equal(t, models.WebhookEventLogStatusHandled, logRec.rows[1].Status)
	require.NotNil(t, logRec.rows[1].UserID)
	require.Equal(t, "u-1", *logRec.rows[1].UserID)
	require.Equal(t, "trace-1", logRec.rows[1].TraceID)
}
