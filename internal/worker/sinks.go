// Package worker wires event subscribers at startup.
package worker

import (
	"context"

	"github.com/spec-kit/ticket-bot/internal/archive"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/service"
)

// RegisterSinks subscribes the closure sinks and metric counters to the
// dispatcher. Every ticket_closed event fans out to the log channel, the
// owner DM, and the archive when enabled.
func RegisterSinks(dispatcher events.Dispatcher, logSink *service.CloseLogSink, notifier *service.NotificationService, store *archive.Store, metrics *observability.Metrics) {
	if logSink != nil {
		dispatcher.Subscribe(events.EventTicketClosed, logSink.Handle)
	}
	if notifier != nil {
		dispatcher.Subscribe(events.EventTicketClosed, notifier.HandleTicketClosed)
	}
	if store != nil && store.Enabled() {
		dispatcher.Subscribe(events.EventTicketClosed, store.HandleTicketClosed)
	}
	if metrics != nil {
		dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
			metrics.RecordTicketOpened()
			return nil
		})
		dispatcher.Subscribe(events.EventTicketClosed, func(context.Context, events.Event) error {
			metrics.RecordTicketClosed()
			return nil
		})
	}
}
