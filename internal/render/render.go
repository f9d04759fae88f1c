// Package render builds message, embed and modal payloads for the ticket
// workflow. The lifecycle hands it plain data; nothing here touches the
// platform client.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Interactive component identifiers.
const (
	ComponentCreateTicket = "create_ticket"
	ComponentCloseTicket  = "close_ticket"
	ComponentConfirmClose = "confirm_close"
	ComponentCancelClose  = "cancel_close"

	ModalCreateTicket = "create_ticket_modal"
	ModalCloseReason  = "close_reason_modal"

	InputTicketReason = "ticket_reason"
	InputCloseReason  = "close_reason"
)

// Embed colors.
const (
	ColorPrimary = 0x5865F2
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
	ColorError   = 0xED4245
	ColorInfo    = 0x3498DB
)

const logRequestPreviewLen = 100

// Renderer carries the few presentation settings that vary by deployment.
type Renderer struct {
	thumbnailURL string
	reasonMinLen int
	reasonMaxLen int
}

// New constructs a renderer.
func New(thumbnailURL string, reasonMinLen, reasonMaxLen int) *Renderer {
	return &Renderer{
		thumbnailURL: thumbnailURL,
		reasonMinLen: reasonMinLen,
		reasonMaxLen: reasonMaxLen,
	}
}

// SetupPanel is the message admins post so users can open tickets.
func (r *Renderer) SetupPanel(communityName string) platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       "Support Ticket System",
			Description: "Click the button below to open a new ticket",
			Color:       ColorPrimary,
			Thumbnail:   r.thumbnailURL,
			Fields: []platform.EmbedField{
				{Name: "How it works", Value: "1. Click \"Open Ticket\"\n2. Describe your request\n3. Wait for an operator to respond"},
				{Name: "Rules", Value: "• Be specific about what you need\n• Be patient while waiting\n• Do not spam"},
			},
			Footer: communityName + " Support System",
		},
		Buttons: []platform.Button{
			{ID: ComponentCreateTicket, Label: "Open Ticket", Style: platform.ButtonPrimary},
		},
	}
}

// LogChannelCreated announces a freshly provisioned log channel.
func (r *Renderer) LogChannelCreated() platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       "Ticket Log Channel",
			Description: "Closed tickets are recorded here",
			Color:       ColorSuccess,
			Thumbnail:   r.thumbnailURL,
			Footer:      "Ticket Log System",
		},
	}
}

// Welcome is the first message in a new ticket channel.
func (r *Renderer) Welcome(t domain.Ticket) platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       fmt.Sprintf("Ticket #%d", t.Number),
			Description: fmt.Sprintf("Hello <@%s>, thanks for opening a ticket!", t.OwnerID),
			Color:       ColorPrimary,
			Thumbnail:   r.thumbnailURL,
			Fields: []platform.EmbedField{
				{Name: "Request", Value: t.RequestText},
				{Name: "Opened by", Value: t.OwnerTag, Inline: true},
				{Name: "Opened at", Value: t.CreatedAt.UTC().Format(time.RFC1123), Inline: true},
			},
			Footer: "An operator will respond shortly",
		},
		Buttons: []platform.Button{
			{ID: ComponentCloseTicket, Label: "Close Ticket", Style: platform.ButtonDanger},
		},
	}
}

// ConfirmClose asks the operator to confirm or cancel a pending close.
func (r *Renderer) ConfirmClose(t domain.Ticket, reason string, elapsed time.Duration, operatorID string) platform.Message {
	return platform.Message{
		Content: fmt.Sprintf("<@%s>", operatorID),
		Embed: &platform.Embed{
			Title:       "Confirm Ticket Closure",
			Description: fmt.Sprintf("You are about to close **Ticket #%d**", t.Number),
			Color:       ColorWarning,
			Thumbnail:   r.thumbnailURL,
			Fields: []platform.EmbedField{
				{Name: "Opened by", Value: t.OwnerTag},
				{Name: "Close reason", Value: reason},
				{Name: "Duration", Value: FormatDuration(elapsed)},
			},
			Footer: "Confirm ticket closure",
		},
		Buttons: []platform.Button{
			{ID: ComponentConfirmClose, Label: "Yes, close it", Style: platform.ButtonDanger},
			{ID: ComponentCancelClose, Label: "Cancel", Style: platform.ButtonSecondary},
		},
	}
}

// Closed is the closure notice posted into the ticket channel.
func (r *Renderer) Closed(rec events.TicketClosedPayload) platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       "Ticket Closed",
			Description: fmt.Sprintf("**Ticket #%d** has been closed", rec.Number),
			Color:       ColorWarning,
			Thumbnail:   r.thumbnailURL,
			Fields: []platform.EmbedField{
				{Name: "Closed by", Value: rec.CloserTag, Inline: true},
				{Name: "Opened by", Value: rec.OwnerTag, Inline: true},
				{Name: "Reason", Value: rec.CloseReason},
			},
			Footer: fmt.Sprintf("ID: #%d", rec.Number),
		},
	}
}

// ClosureLog is the structured record appended to the log channel.
func (r *Renderer) ClosureLog(rec events.TicketClosedPayload) platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       "Ticket Closure Log",
			Description: fmt.Sprintf("**Ticket #%d** has been closed", rec.Number),
			Color:       ColorWarning,
			Thumbnail:   r.thumbnailURL,
			Fields: []platform.EmbedField{
				{Name: "User", Value: rec.OwnerTag, Inline: true},
				{Name: "ID", Value: fmt.Sprintf("#%d", rec.Number), Inline: true},
				{Name: "Closed by", Value: rec.CloserTag, Inline: true},
				{Name: "Request", Value: Truncate(rec.RequestText, logRequestPreviewLen)},
				{Name: "Close reason", Value: rec.CloseReason},
			},
			Footer: "Closed at " + rec.ClosedAt.UTC().Format(time.RFC1123),
		},
	}
}

// OwnerNotice is the direct message sent to the ticket owner on closure.
func (r *Renderer) OwnerNotice(rec events.TicketClosedPayload) platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       "Your Ticket Has Been Closed",
			Description: fmt.Sprintf("Ticket #%d has been closed", rec.Number),
			Color:       ColorInfo,
			Thumbnail:   r.thumbnailURL,
			Fields: []platform.EmbedField{
				{Name: "Closed by", Value: rec.CloserTag},
				{Name: "Reason", Value: rec.CloseReason},
			},
			Footer: "Thank you for using our support",
		},
	}
}

// RecentLogs summarizes the latest closure records for the logs command.
func (r *Renderer) RecentLogs(count int, logChannelName string) platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       "Recent Ticket Logs",
			Description: fmt.Sprintf("Showing the %d most recent closure records", count),
			Color:       ColorInfo,
			Thumbnail:   r.thumbnailURL,
			Footer:      "Logs from #" + logChannelName,
		},
	}
}

// Help lists available commands; operators see the management set too.
func (r *Renderer) Help(prefix string, operator bool) platform.Message {
	embed := &platform.Embed{
		Title:       "Ticket System Help",
		Description: "Ticket system with buttons and automatic logging",
		Color:       ColorPrimary,
		Thumbnail:   r.thumbnailURL,
		Fields: []platform.EmbedField{
			{Name: "General commands", Value: "```" +
				prefix + "ticket [reason] - Open a new ticket\n" +
				prefix + "help            - Show this help\n" +
				prefix + "ping            - Check the bot" +
				"```"},
		},
	}
	if operator {
		embed.Fields = append(embed.Fields, platform.EmbedField{
			Name: "Operator commands",
			Value: "```" +
				prefix + "setup           - Post the ticket panel\n" +
				prefix + "close [reason]  - Close the current ticket\n" +
				prefix + "add @user       - Add a user to the ticket\n" +
				prefix + "remove @user    - Remove a user from the ticket\n" +
				prefix + "rename <name>   - Rename the ticket channel\n" +
				prefix + "logs            - Show recent closure logs\n" +
				prefix + "cleanup         - Delete old closed channels" +
				"```"})
	}
	embed.Fields = append(embed.Fields,
		platform.EmbedField{Name: "Notes", Value: "• Only operators can close tickets\n• Channels are deleted shortly after closing\n• Only closed tickets are logged"},
	)
	status := "User"
	if operator {
		status = "Operator"
	}
	embed.Footer = "Status: " + status
	return platform.Message{Embed: embed}
}

// CreateTicketModal prompts the user for their request.
func (r *Renderer) CreateTicketModal() platform.Modal {
	return platform.Modal{
		ID:    ModalCreateTicket,
		Title: "Open a Ticket",
		Inputs: []platform.TextInput{{
			ID:          InputTicketReason,
			Label:       "What do you need help with?",
			Placeholder: "Describe your request...",
			Paragraph:   true,
			Required:    true,
			MinLen:      r.reasonMinLen,
			MaxLen:      r.reasonMaxLen,
		}},
	}
}

// CloseReasonModal prompts the operator for a close reason.
func (r *Renderer) CloseReasonModal() platform.Modal {
	return platform.Modal{
		ID:    ModalCloseReason,
		Title: "Close Reason",
		Inputs: []platform.TextInput{{
			ID:          InputCloseReason,
			Label:       "Why is this ticket being closed?",
			Placeholder: "e.g. request completed",
			Paragraph:   true,
			Required:    true,
			MinLen:      r.reasonMinLen,
			MaxLen:      r.reasonMaxLen,
		}},
	}
}

// FormatDuration renders an elapsed time the way users read it.
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds())
	minutes := seconds / 60
	hours := minutes / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", seconds)
}

// Truncate shortens s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
