package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
)

type bootstrapFixture struct {
	bootstrap *Bootstrap
	client    *fakeClient
	registry  repository.TicketRegistry
	counter   repository.TicketCounter
}

func newBootstrapFixture(t *testing.T) *bootstrapFixture {
	t.Helper()
	client := newFakeClient()
	registry := repository.NewTicketRegistry()
	counter := repository.NewTicketCounter(nil)
	return &bootstrapFixture{
		bootstrap: NewBootstrap(testTicketConfig(), zap.NewNop(), client, registry, counter),
		client:    client,
		registry:  registry,
		counter:   counter,
	}
}

func TestReconstruct(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds the counter past the highest ticket number", func(t *testing.T) {
		fx := newBootstrapFixture(t)
		fx.client.members = []platform.Member{
			{ID: "user-1", Username: "alice", Tag: "alice#1001"},
			{ID: "user-2", Username: "bob", Tag: "bob#2002"},
		}
		fx.client.addChannel(platform.Channel{ID: "c1", CommunityID: "guild-1", Name: "ticket-3-alice"})
		fx.client.addChannel(platform.Channel{ID: "c2", CommunityID: "guild-1", Name: "ticket-7-bob"})
		fx.client.addChannel(platform.Channel{ID: "c3", CommunityID: "guild-1", Name: "closed-5"})
		fx.client.addChannel(platform.Channel{ID: "c4", CommunityID: "guild-1", Name: "general"})

		recovered, err := fx.bootstrap.Reconstruct(ctx, "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 2, recovered)

		n, err := fx.counter.Next(ctx, "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 8, n)
	})

	t.Run("re-registers active tickets but not archived ones", func(t *testing.T) {
		fx := newBootstrapFixture(t)
		fx.client.members = []platform.Member{{ID: "user-1", Username: "alice", Tag: "alice#1001"}}
		fx.client.addChannel(platform.Channel{ID: "c1", CommunityID: "guild-1", Name: "ticket-3-alice"})
		fx.client.addChannel(platform.Channel{ID: "c3", CommunityID: "guild-1", Name: "closed-5"})

		_, err := fx.bootstrap.Reconstruct(ctx, "guild-1")
		require.NoError(t, err)

		ticket, ok := fx.registry.GetActive("user-1")
		require.True(t, ok)
		assert.Equal(t, 3, ticket.Number)
		assert.Equal(t, "c1", ticket.ChannelRef)
		assert.Equal(t, 1, fx.registry.Count())
	})

	t.Run("prefers the owner identity embedded in the topic", func(t *testing.T) {
		fx := newBootstrapFixture(t)
		fx.client.members = []platform.Member{
			{ID: "user-1", Username: "alice", Tag: "alice#1001"},
			{ID: "user-2", Username: "alice", Tag: "alice#2002"},
		}
		fx.client.addChannel(platform.Channel{
			ID: "c1", CommunityID: "guild-1", Name: "ticket-4-alice",
			Topic: ChannelTopic(4, "user-2"),
		})

		_, err := fx.bootstrap.Reconstruct(ctx, "guild-1")
		require.NoError(t, err)

		ticket, ok := fx.registry.GetActive("user-2")
		require.True(t, ok)
		assert.Equal(t, "alice#2002", ticket.OwnerTag)
	})

	t.Run("topic identity survives the owner leaving", func(t *testing.T) {
		fx := newBootstrapFixture(t)
		fx.client.addChannel(platform.Channel{
			ID: "c1", CommunityID: "guild-1", Name: "ticket-4-ghost",
			Topic: ChannelTopic(4, "user-gone"),
		})

		recovered, err := fx.bootstrap.Reconstruct(ctx, "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 1, recovered)

		_, ok := fx.registry.GetActive("user-gone")
		assert.True(t, ok)
	})

	t.Run("username fallback is case-insensitive", func(t *testing.T) {
		fx := newBootstrapFixture(t)
		fx.client.members = []platform.Member{{ID: "user-1", Username: "Alice", Tag: "Alice#1001"}}
		fx.client.addChannel(platform.Channel{ID: "c1", CommunityID: "guild-1", Name: "ticket-2-alice"})

		recovered, err := fx.bootstrap.Reconstruct(ctx, "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 1, recovered)

		_, ok := fx.registry.GetActive("user-1")
		assert.True(t, ok)
	})

	t.Run("unresolvable owner is skipped, counter still seeded", func(t *testing.T) {
		fx := newBootstrapFixture(t)
		fx.client.addChannel(platform.Channel{ID: "c1", CommunityID: "guild-1", Name: "ticket-6-nobody"})

		recovered, err := fx.bootstrap.Reconstruct(ctx, "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 0, recovered)

		n, err := fx.counter.Next(ctx, "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("empty community starts at 1", func(t *testing.T) {
		fx := newBootstrapFixture(t)
		recovered, err := fx.bootstrap.Reconstruct(ctx, "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 0, recovered)

		n, err := fx.counter.Next(ctx, "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestSeedFunc(t *testing.T) {
	fx := newBootstrapFixture(t)
	fx.client.addChannel(platform.Channel{ID: "c1", CommunityID: "guild-2", Name: "ticket-11-carol"})

	counter := repository.NewTicketCounter(fx.bootstrap.SeedFunc())
	n, err := counter.Next(context.Background(), "guild-2")
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}
