package events

import (
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated        EventType = "ticket_created"
	EventTicketCloseRequested EventType = "ticket_close_requested"
	EventTicketCloseCancelled EventType = "ticket_close_cancelled"
	EventTicketClosed         EventType = "ticket_closed"
)

// Actor identifies who triggered an event.
type Actor struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`
}

// Event represents a domain event emitted by the lifecycle.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	CommunityID string      `json:"community_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number      int    `json:"number"`
	OwnerID     string `json:"owner_id"`
	OwnerTag    string `json:"owner_tag"`
	ChannelRef  string `json:"channel_ref"`
	RequestText string `json:"request_text"`
}

// TicketCloseRequestedPayload payload.
type TicketCloseRequestedPayload struct {
	Number     int    `json:"number"`
	ChannelRef string `json:"channel_ref"`
	Reason     string `json:"reason"`
}

// TicketCloseCancelledPayload payload.
type TicketCloseCancelledPayload struct {
	Number     int    `json:"number"`
	ChannelRef string `json:"channel_ref"`
}

// TicketClosedPayload is the closure record. Exactly one of these is
// published per confirmed close; the log-channel sink, the owner DM notifier
// and the optional archive all consume the same event.
type TicketClosedPayload struct {
	Number      int       `json:"number"`
	CommunityID string    `json:"community_id"`
	OwnerID     string    `json:"owner_id"`
	OwnerTag    string    `json:"owner_tag"`
	CloserID    string    `json:"closer_id"`
	CloserTag   string    `json:"closer_tag"`
	ChannelRef  string    `json:"channel_ref"`
	RequestText string    `json:"request_text"`
	CloseReason string    `json:"close_reason"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at"`
}

// ClosedPayloadFromTicket builds the closure record for a removed ticket.
func ClosedPayloadFromTicket(t domain.Ticket, closer Actor, reason string, closedAt time.Time) TicketClosedPayload {
	return TicketClosedPayload{
		Number:      t.Number,
		CommunityID: t.CommunityID,
		OwnerID:     t.OwnerID,
		OwnerTag:    t.OwnerTag,
		CloserID:    closer.ID,
		CloserTag:   closer.Tag,
		ChannelRef:  t.ChannelRef,
		RequestText: t.RequestText,
		CloseReason: reason,
		OpenedAt:    t.CreatedAt,
		ClosedAt:    closedAt,
	}
}
