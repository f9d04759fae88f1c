package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/domain"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

func newTicketInput(number int, owner, channel string) CreateInput {
	return CreateInput{
		Number:      number,
		OwnerID:     owner,
		OwnerTag:    owner + "#0001",
		ChannelRef:  channel,
		CommunityID: "guild-1",
		RequestText: "printer on fire",
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTicketRegistryCreate(t *testing.T) {
	t.Run("inserts an open ticket", func(t *testing.T) {
		reg := NewTicketRegistry()

		ticket, err := reg.Create(newTicketInput(4, "user-1", "chan-1"))
		require.NoError(t, err)
		assert.Equal(t, 4, ticket.Number)
		assert.Equal(t, domain.TicketStateOpen, ticket.State)
		assert.Equal(t, 1, reg.Count())

		got, ok := reg.GetActive("user-1")
		require.True(t, ok)
		assert.Equal(t, "chan-1", got.ChannelRef)
	})

	t.Run("rejects a second ticket for the same owner", func(t *testing.T) {
		reg := NewTicketRegistry()
		_, err := reg.Create(newTicketInput(4, "user-1", "chan-1"))
		require.NoError(t, err)

		_, err = reg.Create(newTicketInput(5, "user-1", "chan-2"))
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyActive))

		domainErr := apperrors.ToDomainError(err)
		assert.Equal(t, "chan-1", domainErr.Details["channel_ref"])
		assert.Equal(t, 4, domainErr.Details["number"])
		assert.Equal(t, 1, reg.Count())
	})

	t.Run("different owners are independent", func(t *testing.T) {
		reg := NewTicketRegistry()
		_, err := reg.Create(newTicketInput(1, "user-1", "chan-1"))
		require.NoError(t, err)
		_, err = reg.Create(newTicketInput(2, "user-2", "chan-2"))
		require.NoError(t, err)
		assert.Equal(t, 2, reg.Count())
	})
}

func TestTicketRegistryFindByChannel(t *testing.T) {
	reg := NewTicketRegistry()
	_, err := reg.Create(newTicketInput(9, "user-1", "chan-9"))
	require.NoError(t, err)

	ticket, ok := reg.FindByChannel("chan-9")
	require.True(t, ok)
	assert.Equal(t, "user-1", ticket.OwnerID)

	_, ok = reg.FindByChannel("chan-404")
	assert.False(t, ok)
}

func TestTicketRegistryCloseRequest(t *testing.T) {
	t.Run("moves the ticket to close requested with the reason", func(t *testing.T) {
		reg := NewTicketRegistry()
		_, err := reg.Create(newTicketInput(2, "user-1", "chan-2"))
		require.NoError(t, err)

		ticket, err := reg.RequestClose("chan-2", "resolved")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStateCloseRequested, ticket.State)
		assert.Equal(t, "resolved", ticket.CloseReason)
		assert.True(t, ticket.Active())
	})

	t.Run("re-request replaces the pending reason", func(t *testing.T) {
		reg := NewTicketRegistry()
		_, err := reg.Create(newTicketInput(2, "user-1", "chan-2"))
		require.NoError(t, err)

		_, err = reg.RequestClose("chan-2", "first")
		require.NoError(t, err)
		ticket, err := reg.RequestClose("chan-2", "second")
		require.NoError(t, err)
		assert.Equal(t, "second", ticket.CloseReason)
	})

	t.Run("unknown channel is not a ticket channel", func(t *testing.T) {
		reg := NewTicketRegistry()
		_, err := reg.RequestClose("chan-404", "why")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotATicketChannel))
	})

	t.Run("cancel returns the ticket to open and clears the reason", func(t *testing.T) {
		reg := NewTicketRegistry()
		_, err := reg.Create(newTicketInput(2, "user-1", "chan-2"))
		require.NoError(t, err)
		_, err = reg.RequestClose("chan-2", "resolved")
		require.NoError(t, err)

		ticket, ok := reg.CancelClose("chan-2")
		require.True(t, ok)
		assert.Equal(t, domain.TicketStateOpen, ticket.State)
		assert.Empty(t, ticket.CloseReason)

		_, ok = reg.CancelClose("chan-404")
		assert.False(t, ok)
	})
}

func TestTicketRegistryRemove(t *testing.T) {
	reg := NewTicketRegistry()
	_, err := reg.Create(newTicketInput(3, "user-1", "chan-3"))
	require.NoError(t, err)

	removed, ok := reg.Remove("user-1")
	require.True(t, ok)
	assert.Equal(t, domain.TicketStateClosed, removed.State)
	assert.Equal(t, 0, reg.Count())

	// The second remove reports absent, which is what makes closure
	// side effects run at most once.
	_, ok = reg.Remove("user-1")
	assert.False(t, ok)
}
