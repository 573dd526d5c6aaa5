package notifier

import (
	"context"

	"duetmenu/internal/models"
)

// NoopSender is used when notifications are disabled in config.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, record *models.OrderRecord) error {
	return nil
}
