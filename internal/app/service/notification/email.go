package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/tailhaven/billing/pkg/types"
)

// EmailSender delivers billing emails. The concrete transport lives outside
// this service; the default implementation only logs the intent.
type EmailSender interface {
	Send(ctx context.Context, userID, email string, typ types.NotificationType, payload map[string]any) error
}

type logEmailSender struct {
	log *zap.SugaredLogger
}

func NewLogEmailSender(log *zap.SugaredLogger) EmailSender {
	return &logEmailSender{log: log}
}

func (s *logEmailSender) Send(ctx context.Context, userID, email string, typ types.NotificationType, payload map[string]any) error {
	s.log.Infow("email_intent",
		"user_id", userID,
		"email", email,
		"type", typ,
		"payload", payload,
	)
	return nil
}
