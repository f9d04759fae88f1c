package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to every subscriber of the type", func(t *testing.T) {
		dispatcher := NewInMemoryDispatcher(nil)
		var first, second, other int
		dispatcher.Subscribe(EventTicketClosed, func(context.Context, Event) error {
			first++
			return nil
		})
		dispatcher.Subscribe(EventTicketClosed, func(context.Context, Event) error {
			second++
			return nil
		})
		dispatcher.Subscribe(EventTicketCreated, func(context.Context, Event) error {
			other++
			return nil
		})

		require.NoError(t, dispatcher.Publish(ctx, Event{Type: EventTicketClosed}))
		assert.Equal(t, 1, first)
		assert.Equal(t, 1, second)
		assert.Equal(t, 0, other)
	})

	t.Run("handler errors reach onError and never the publisher", func(t *testing.T) {
		var observed []error
		dispatcher := NewInMemoryDispatcher(func(_ Event, err error) {
			observed = append(observed, err)
		})
		dispatcher.Subscribe(EventTicketClosed, func(context.Context, Event) error {
			return errors.New("sink offline")
		})
		var delivered bool
		dispatcher.Subscribe(EventTicketClosed, func(context.Context, Event) error {
			delivered = true
			return nil
		})

		require.NoError(t, dispatcher.Publish(ctx, Event{Type: EventTicketClosed}))
		require.Len(t, observed, 1)
		assert.True(t, delivered)
	})

	t.Run("no subscribers is fine", func(t *testing.T) {
		dispatcher := NewInMemoryDispatcher(nil)
		assert.NoError(t, dispatcher.Publish(ctx, Event{Type: EventTicketCreated}))
	})
}
