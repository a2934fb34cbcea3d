package stats

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const snapshotInterval = 6 * time.Hour

// runSnapshotJob periodically captures the subscription base. The write is
// idempotent per (user, date) so overlapping runs are harmless.
func runSnapshotJob(lc fx.Lifecycle, s *Service, log *zap.SugaredLogger) {
	stop := make(chan struct{})
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(snapshotInterval)
				defer ticker.Stop()
				for {
					select {
					case <-stop:
						return
					case <-ticker.C:
						if err := s.SnapshotAllSubscriptions(context.Background(), time.Now()); err != nil {
							log.Errorf("failed to snapshot subscriptions: %v", err)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			<-done
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(runSnapshotJob),
)
