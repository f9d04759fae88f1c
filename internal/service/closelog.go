package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/render"
)

// CloseLogSink appends one closure record to the community's log channel per
// ticket_closed event. Delivery is best effort: a missing log channel or a
// failed send never unwinds the closure.
type CloseLogSink struct {
	cfg      config.TicketConfig
	logger   *zap.Logger
	client   platform.Client
	renderer *render.Renderer
}

// NewCloseLogSink constructs the sink.
func NewCloseLogSink(cfg config.TicketConfig, logger *zap.Logger, client platform.Client, renderer *render.Renderer) *CloseLogSink {
	return &CloseLogSink{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		renderer: renderer,
	}
}

// Handle consumes a ticket_closed event.
func (s *CloseLogSink) Handle(ctx context.Context, event events.Event) error {
	record, ok := event.Payload.(events.TicketClosedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}

	channels, err := s.client.Channels(ctx, event.CommunityID)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Category || ch.Name != s.cfg.LogChannelName {
			continue
		}
		if _, err := s.client.SendMessage(ctx, ch.ID, s.renderer.ClosureLog(record)); err != nil {
			return fmt.Errorf("send closure log: %w", err)
		}
		return nil
	}

	s.logger.Debug("no log channel configured for community",
		zap.String("community", event.CommunityID))
	return nil
}
