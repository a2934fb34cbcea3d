package entitlement

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/tailhaven/billing/internal/models"
	"github.com/tailhaven/billing/pkg/types"
)

func TestTerminalizeSubscription(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	boundary := now.Add(10 * 24 * time.Hour)
	sub := &models.Subscription{
		ID:                "sub-row-1",
		UserID:            "u-1",
		Plan:              types.PlanComfort,
		Status:            types.SubscriptionStatusActive,
		PlanPrice:         999,
		TokensIncluded:    12000,
		CurrentPeriodEnd:  &boundary,
		CancelAtPeriodEnd: true,
		SubscriptionID:    lo.ToPtr("sub_1"),
	}

	terminalizeSubscription(sub, now)

	require.Equal(t, types.SubscriptionStatusCanceled, sub.Status)
	require.Equal(t, types.PlanFree, sub.Plan)
	require.Zero(t, sub.PlanPrice)
	require.Zero(t, sub.TokensIncluded)
	require.Equal(t, &now, sub.CanceledAt)
	require.False(t, sub.CancelAtPeriodEnd)
	// The external id must be released so a later checkout can rebind.
	require.Nil(t, sub.SubscriptionID)
	// Identity is untouched.
	require.Equal(t, "sub-row-1", sub.ID)
	require.Equal(t, "u-1", sub.UserID)
}
