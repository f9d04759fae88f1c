// Package archive persists closure records to Postgres, as a durable
// complement to the log channel. The active registry itself stays in memory.
package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS ticket_closures (
    id            BIGSERIAL PRIMARY KEY,
    community_id  TEXT        NOT NULL,
    ticket_number INTEGER     NOT NULL,
    owner_id      TEXT        NOT NULL,
    owner_tag     TEXT        NOT NULL,
    closer_id     TEXT        NOT NULL,
    closer_tag    TEXT        NOT NULL,
    request_text  TEXT        NOT NULL,
    close_reason  TEXT        NOT NULL,
    opened_at     TIMESTAMPTZ NOT NULL,
    closed_at     TIMESTAMPTZ NOT NULL
)`

// Store writes closure records. A nil pool disables it.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStore constructs the archive store.
func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Enabled reports whether a backing pool is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.pool != nil
}

// Init creates the closure table when the archive is enabled.
func (s *Store) Init(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init closure archive: %w", err)
	}
	return nil
}

// HandleTicketClosed consumes a ticket_closed event and appends one row.
func (s *Store) HandleTicketClosed(ctx context.Context, event events.Event) error {
	if !s.Enabled() {
		return nil
	}
	record, ok := event.Payload.(events.TicketClosedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", event.Payload)
	}

	const query = `
        INSERT INTO ticket_closures (community_id, ticket_number, owner_id, owner_tag, closer_id, closer_tag, request_text, close_reason, opened_at, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := s.pool.Exec(ctx, query,
		record.CommunityID,
		record.Number,
		record.OwnerID,
		record.OwnerTag,
		record.CloserID,
		record.CloserTag,
		record.RequestText,
		record.CloseReason,
		record.OpenedAt,
		record.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("archive closure: %w", err)
	}
	s.logger.Debug("archived ticket closure",
		zap.Int("ticket", record.Number),
		zap.String("community", record.CommunityID))
	return nil
}
