package repository

import (
	"context"
	"sync"
)

// SeedFunc derives the next ticket number for a community that has no
// counter state yet, typically by scanning existing channel names.
type SeedFunc func(ctx context.Context, communityID string) (int, error)

// TicketCounter issues per-community monotonically increasing ticket
// numbers. Numbers are never reassigned; a failed creation burns its number.
type TicketCounter interface {
	Next(ctx context.Context, communityID string) (int, error)
	Seed(communityID string, next int)
}

type ticketCounter struct {
	mu   sync.Mutex
	next map[string]int
	seed SeedFunc
}

// NewTicketCounter returns a counter that lazily seeds unknown communities
// via seed. A nil seed falls back to starting at 1.
func NewTicketCounter(seed SeedFunc) TicketCounter {
	return &ticketCounter{
		next: make(map[string]int),
		seed: seed,
	}
}

// Seed sets the next number for a community. Later seeds never move the
// counter backwards.
func (c *ticketCounter) Seed(communityID string, next int) {
	if next < 1 {
		next = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.next[communityID]; ok && current >= next {
		return
	}
	c.next[communityID] = next
}

// Next returns the current number for the community and advances it by one.
// The read-increment pair holds the lock with no suspension inside, so
// back-to-back requests in one community can never observe a duplicate.
func (c *ticketCounter) Next(ctx context.Context, communityID string) (int, error) {
	c.mu.Lock()
	if n, ok := c.next[communityID]; ok {
		c.next[communityID] = n + 1
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()

	seeded := 1
	if c.seed != nil {
		n, err := c.seed(ctx, communityID)
		if err != nil {
			return 0, err
		}
		if n > seeded {
			seeded = n
		}
	}

	// Re-check under the lock: a concurrent Next may have seeded meanwhile.
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.next[communityID]; ok {
		c.next[communityID] = n + 1
		return n, nil
	}
	c.next[communityID] = seeded + 1
	return seeded, nil
}
