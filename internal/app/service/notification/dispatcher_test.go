package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/pkg/types"
)

type sentEmail struct {
	userID string
	email  string
	typ    types.NotificationType
}

type fakeEmailSender struct {
	sent []sentEmail
}

func (f *fakeEmailSender) Send(ctx context.Context, userID, email string, typ types.NotificationType, payload map[string]any) error {
	f.sent = append(f.sent, sentEmail{userID: userID, email: email, typ: typ})
	return nil
}

func testDispatcher(email EmailSender) *Dispatcher {
	log := zap.NewNop().Sugar()
	return &Dispatcher{
		hub:   NewHub(log),
		email: email,
		log:   log,
		now:   time.Now,
	}
}

func TestBuildMessage(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	boundary := now.Add(10 * 24 * time.Hour)

	msg := buildMessage(&models.NotificationOutbox{
		UserID:           "u-1",
		Type:             types.NotificationTypeUpgrade,
		PlanName:         "comfort",
		CurrentPeriodEnd: &boundary,
	}, now)

	require.True(t, msg.Success)
	require.Equal(t, types.NotificationTypeUpgrade, msg.Type)
	require.Equal(t, "comfort", msg.PlanName)
	require.Equal(t, &boundary, msg.CurrentPeriodEnd)
	require.Equal(t, now, msg.Timestamp)
}

func TestBuildMessage_PaymentFailedIsNotSuccess(t *testing.T) {
	msg := buildMessage(&models.NotificationOutbox{
		Type: types.NotificationTypePaymentFailed,
	}, time.Now())
	require.False(t, msg.Success)
}

func TestSend_EmailsBillingOutcomes(t *testing.T) {
	for _, typ := range []types.NotificationType{
		types.NotificationTypePaymentFailed,
		types.NotificationTypePaymentSucceeded,
		types.NotificationTypeUpgrade,
		types.NotificationTypeDowngrade,
	} {
		t.Run(string(typ), func(t *testing.T) {
			email := &fakeEmailSender{}
			d := testDispatcher(email)

			err := d.send(context.Background(), &models.NotificationOutbox{
				UserID:  "u-1",
				Type:    typ,
				Payload: datatypes.JSON([]byte(`{"email":"pet@owner.dev"}`)),
			})

			require.NoError(t, err)
			require.Len(t, email.sent, 1)
			require.Equal(t, "u-1", email.sent[0].userID)
			require.Equal(t, "pet@owner.dev", email.sent[0].email)
			require.Equal(t, typ, email.sent[0].typ)
		})
	}
}

func TestSend_InAppOnlyTypesSkipEmail(t *testing.T) {
	for _, typ := range []types.NotificationType{
		types.NotificationTypeReactivation,
		types.NotificationTypeCancellation,
	} {
		t.Run(string(typ), func(t *testing.T) {
			email := &fakeEmailSender{}
			d := testDispatcher(email)

			err := d.send(context.Background(), &models.NotificationOutbox{
				UserID: "u-1",
				Type:   typ,
			})

			require.NoError(t, err)
			require.Empty(t, email.sent)
		})
	}
}
