package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/render"
)

// NotificationService direct-messages the owner when their ticket closes.
// DMs may be disabled by the recipient; failure is logged and swallowed.
type NotificationService struct {
	logger   *zap.Logger
	client   platform.Client
	renderer *render.Renderer
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, client platform.Client, renderer *render.Renderer) *NotificationService {
	return &NotificationService{
		logger:   logger,
		client:   client,
		renderer: renderer,
	}
}

// HandleTicketClosed consumes a ticket_closed event.
func (n *NotificationService) HandleTicketClosed(ctx context.Context, event events.Event) error {
	record, ok := event.Payload.(events.TicketClosedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}
	if err := n.client.DirectMessage(ctx, record.OwnerID, n.renderer.OwnerNotice(record)); err != nil {
		n.logger.Debug("could not DM ticket owner",
			zap.String("owner", record.OwnerTag),
			zap.Int("ticket", record.Number),
			zap.Error(err))
	}
	return nil
}
