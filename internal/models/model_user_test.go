package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tailhaven/billing/pkg/types"
)

func TestUserSetPlan_ExactlyOneFlag(t *testing.T) {
	cases := []struct {
		plan types.PlanTier
		role string
	}{
		{types.PlanFree, "FREE"},
		{types.PlanComfort, "COMFORT"},
		{types.PlanLegacy, "LEGACY"},
	}

	for _, c := range cases {
		t.Run(string(c.plan), func(t *testing.T) {
			u := &User{ID: "u-1", IsComfortUser: true, IsLegacyUser: true}
			u.SetPlan(c.plan)

			require.Equal(t, c.role, u.Role)
			flags := 0
			for _, f := range []bool{u.IsFreeUser, u.IsComfortUser, u.IsLegacyUser} {
				if f {
					flags++
				}
			}
			require.Equal(t, 1, flags)
		})
	}
}

func TestUserSetPlan_PreservesTokens(t *testing.T) {
	u := &User{ID: "u-1", Tokens: 500, TokensUsed: 120}
	u.SetPlan(types.PlanComfort)
	u.SetPlan(types.PlanFree)

	require.Equal(t, int64(500), u.Tokens)
	require.Equal(t, int64(120), u.TokensUsed)
}
