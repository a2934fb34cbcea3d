package notification

import (
	"context"

	"go.uber.org/fx"
)

func runDispatcher(lc fx.Lifecycle, d *Dispatcher) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go d.Run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Stop()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewHub),
	fx.Provide(NewLogEmailSender),
	fx.Provide(NewDispatcher),
	fx.Invoke(runDispatcher),
)
