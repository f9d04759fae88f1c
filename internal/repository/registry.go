package repository

import (
	"sync"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// CreateInput describes a ticket to insert. Number is allocated by the
// caller before the backing channel is provisioned, because the channel name
// embeds it; insertion happens only once the channel exists.
type CreateInput struct {
	Number      int
	OwnerID     string
	OwnerTag    string
	ChannelRef  string
	CommunityID string
	RequestText string
	CreatedAt   time.Time
}

// TicketRegistry maps an owner to their single active ticket record.
type TicketRegistry interface {
	GetActive(ownerID string) (domain.Ticket, bool)
	Create(in CreateInput) (domain.Ticket, error)
	FindByChannel(channelRef string) (domain.Ticket, bool)
	RequestClose(channelRef, reason string) (domain.Ticket, error)
	CancelClose(channelRef string) (domain.Ticket, bool)
	Remove(ownerID string) (domain.Ticket, bool)
	Count() int
}

type ticketRegistry struct {
	mu     sync.RWMutex
	active map[string]domain.Ticket
	nowFn  func() time.Time
}

// NewTicketRegistry returns an empty in-memory registry.
func NewTicketRegistry() TicketRegistry {
	return &ticketRegistry{
		active: make(map[string]domain.Ticket),
		nowFn:  time.Now,
	}
}

// GetActive returns the owner's active ticket, if any.
func (r *ticketRegistry) GetActive(ownerID string) (domain.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.active[ownerID]
	return ticket, ok
}

// Create inserts a new Open ticket keyed by owner. Fails with ALREADY_ACTIVE
// when the owner already has an active ticket; the existing channel ref is
// carried in the error details so callers can redirect the user there.
func (r *ticketRegistry) Create(in CreateInput) (domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.active[in.OwnerID]; ok {
		return domain.Ticket{}, apperrors.NewAlreadyActive(
			"you already have an active ticket",
			map[string]any{"channel_ref": existing.ChannelRef, "number": existing.Number},
		)
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.nowFn()
	}
	ticket := domain.Ticket{
		Number:      in.Number,
		OwnerID:     in.OwnerID,
		OwnerTag:    in.OwnerTag,
		ChannelRef:  in.ChannelRef,
		CommunityID: in.CommunityID,
		CreatedAt:   createdAt,
		RequestText: in.RequestText,
		State:       domain.TicketStateOpen,
	}
	r.active[in.OwnerID] = ticket
	return ticket, nil
}

// FindByChannel scans active tickets for the one backed by channelRef.
// Interaction events carry only the channel, not the owner.
func (r *ticketRegistry) FindByChannel(channelRef string) (domain.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ticket := range r.active {
		if ticket.ChannelRef == channelRef {
			return ticket, true
		}
	}
	return domain.Ticket{}, false
}

// RequestClose transitions the ticket backing channelRef to CloseRequested
// and records the pending close reason. Re-requesting replaces the reason.
func (r *ticketRegistry) RequestClose(channelRef, reason string) (domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for owner, ticket := range r.active {
		if ticket.ChannelRef != channelRef {
			continue
		}
		ticket.State = domain.TicketStateCloseRequested
		ticket.CloseReason = reason
		r.active[owner] = ticket
		return ticket, nil
	}
	return domain.Ticket{}, apperrors.NewNotATicketChannel("this is not an active ticket channel")
}

// CancelClose returns a CloseRequested ticket to Open and clears the pending
// reason. Returns false when the channel backs no active ticket.
func (r *ticketRegistry) CancelClose(channelRef string) (domain.Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for owner, ticket := range r.active {
		if ticket.ChannelRef != channelRef {
			continue
		}
		ticket.State = domain.TicketStateOpen
		ticket.CloseReason = ""
		r.active[owner] = ticket
		return ticket, true
	}
	return domain.Ticket{}, false
}

// Remove deletes and returns the owner's active ticket. A second remove for
// the same owner reports absent, which is the at-most-once gate for closure.
func (r *ticketRegistry) Remove(ownerID string) (domain.Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.active[ownerID]
	if !ok {
		return domain.Ticket{}, false
	}
	delete(r.active, ownerID)
	ticket.State = domain.TicketStateClosed
	return ticket, true
}

// Count returns the number of active tickets across all communities.
func (r *ticketRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}
