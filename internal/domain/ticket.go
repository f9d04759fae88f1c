package domain

import "time"

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateOpen           TicketState = "OPEN"
	TicketStateCloseRequested TicketState = "CLOSE_REQUESTED"
	TicketStateClosed         TicketState = "CLOSED"
)

// Ticket is one open or recently-closed support request. A ticket lives in
// the active registry while its state is Open or CloseRequested; Closed is
// terminal and coincides with removal from the registry.
type Ticket struct {
	Number      int
	OwnerID     string
	OwnerTag    string
	ChannelRef  string
	CommunityID string
	CreatedAt   time.Time
	RequestText string
	State       TicketState
	// CloseReason holds the operator-supplied reason while the ticket is in
	// CloseRequested, so confirmation does not depend on message history.
	CloseReason string
}

// Active reports whether the ticket counts against its owner's
// one-active-ticket limit.
func (t Ticket) Active() bool {
	return t.State == TicketStateOpen || t.State == TicketStateCloseRequested
}
