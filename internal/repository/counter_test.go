package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketCounterNext(t *testing.T) {
	t.Run("unseeded community starts at 1", func(t *testing.T) {
		counter := NewTicketCounter(nil)

		n, err := counter.Next(context.Background(), "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = counter.Next(context.Background(), "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("communities count independently", func(t *testing.T) {
		counter := NewTicketCounter(nil)
		counter.Seed("guild-1", 10)

		n, err := counter.Next(context.Background(), "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 10, n)

		n, err = counter.Next(context.Background(), "guild-2")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("lazy seed runs once per community", func(t *testing.T) {
		calls := 0
		counter := NewTicketCounter(func(_ context.Context, _ string) (int, error) {
			calls++
			return 7, nil
		})

		n, err := counter.Next(context.Background(), "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 7, n)

		n, err = counter.Next(context.Background(), "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 8, n)
		assert.Equal(t, 1, calls)
	})

	t.Run("seed failure surfaces and allocates nothing", func(t *testing.T) {
		counter := NewTicketCounter(func(_ context.Context, _ string) (int, error) {
			return 0, errors.New("channel list unavailable")
		})

		_, err := counter.Next(context.Background(), "guild-1")
		require.Error(t, err)
	})
}

func TestTicketCounterSeed(t *testing.T) {
	t.Run("never moves backwards", func(t *testing.T) {
		counter := NewTicketCounter(nil)
		counter.Seed("guild-1", 8)
		counter.Seed("guild-1", 3)

		n, err := counter.Next(context.Background(), "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 8, n)
	})

	t.Run("floor is 1", func(t *testing.T) {
		counter := NewTicketCounter(nil)
		counter.Seed("guild-1", 0)

		n, err := counter.Next(context.Background(), "guild-1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("numbers are never reissued concurrently", func(t *testing.T) {
		counter := NewTicketCounter(nil)
		seen := make(chan int, 50)
		for i := 0; i < 50; i++ {
			go func() {
				n, err := counter.Next(context.Background(), "guild-1")
				assert.NoError(t, err)
				seen <- n
			}()
		}

		unique := make(map[int]bool)
		for i := 0; i < 50; i++ {
			n := <-seen
			assert.False(t, unique[n], "number %d issued twice", n)
			unique[n] = true
		}
	})
}
