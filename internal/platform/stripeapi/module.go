package stripeapi

import "go.uber.org/fx"

// Module exposes the Stripe API client via Fx.
var Module = fx.Options(
	fx.Provide(NewClient),
)
