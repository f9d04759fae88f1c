// Package bot dispatches inbound platform events onto lifecycle operations.
// It is the top-level error boundary: every failure becomes a short
// user-facing message and the process never dies on a single event.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/render"
	"github.com/spec-kit/ticket-bot/internal/schedule"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// MessageEvent is an inbound text message.
type MessageEvent struct {
	CommunityID   string
	CommunityName string
	ChannelID     string
	MessageID     string
	Actor         platform.Member
	Content       string
	Mentions      []platform.Member
}

// ComponentEvent is a button press.
type ComponentEvent struct {
	CommunityID string
	ChannelID   string
	MessageID   string
	Actor       platform.Member
	ComponentID string
}

// ModalEvent is a submitted dialog.
type ModalEvent struct {
	CommunityID string
	ChannelID   string
	Actor       platform.Member
	ModalID     string
	Values      map[string]string
}

// Responder answers one interaction: ephemeral replies, modal prompts, and
// deletion of the message that carried the pressed component.
type Responder interface {
	ReplyEphemeral(ctx context.Context, content string) error
	OpenModal(ctx context.Context, modal platform.Modal) error
	DeleteSource(ctx context.Context) error
}

// Router maps commands and interactions to lifecycle operations.
type Router struct {
	cfg       config.Config
	logger    *zap.Logger
	metrics   *observability.Metrics
	lifecycle *service.Lifecycle
	client    platform.Client
	checker   *auth.Checker
	renderer  *render.Renderer
	sched     *schedule.Scheduler
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Metrics   *observability.Metrics
	Lifecycle *service.Lifecycle
	Client    platform.Client
	Checker   *auth.Checker
	Renderer  *render.Renderer
	Scheduler *schedule.Scheduler
}

// NewRouter constructs the router.
func NewRouter(cfg config.Config, logger *zap.Logger, deps RouterDependencies) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		metrics:   deps.Metrics,
		lifecycle: deps.Lifecycle,
		client:    deps.Client,
		checker:   deps.Checker,
		renderer:  deps.Renderer,
		sched:     deps.Scheduler,
	}
}

// HandleMessage dispatches a prefixed text command. Non-command messages are
// ignored.
func (r *Router) HandleMessage(ctx context.Context, ev MessageEvent) {
	defer r.recoverPanic("message")

	prefix := r.cfg.Bot.Prefix
	if !strings.HasPrefix(ev.Content, prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(ev.Content, prefix))
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]
	r.metrics.RecordCommand(command)

	var err error
	switch command {
	case "setup":
		err = r.handleSetup(ctx, ev)
	case "ticket":
		err = r.handleTicketCommand(ctx, ev, args)
	case "close":
		err = r.handleCloseCommand(ctx, ev, args)
	case "add":
		err = r.handleAdd(ctx, ev)
	case "remove":
		err = r.handleRemove(ctx, ev)
	case "rename":
		err = r.handleRename(ctx, ev, args)
	case "help":
		_, err = r.client.SendMessage(ctx, ev.ChannelID, r.renderer.Help(prefix, r.checker.IsOperator(ev.Actor)))
	case "ping":
		r.sendTemp(ctx, ev.ChannelID, "Pong!")
	case "logs":
		err = r.handleLogs(ctx, ev)
	case "cleanup":
		err = r.handleCleanup(ctx, ev)
	default:
		return
	}

	if err != nil {
		r.reportCommandError(ctx, ev.ChannelID, command, err)
	}
}

// HandleComponent dispatches a button press.
func (r *Router) HandleComponent(ctx context.Context, ev ComponentEvent, responder Responder) {
	defer r.recoverPanic("component")
	r.metrics.RecordCommand(ev.ComponentID)

	var err error
	switch ev.ComponentID {
	case render.ComponentCreateTicket:
		err = r.handleCreateButton(ctx, ev, responder)
	case render.ComponentCloseTicket:
		err = r.handleCloseButton(ctx, ev, responder)
	case render.ComponentConfirmClose:
		err = r.handleConfirmClose(ctx, ev, responder)
	case render.ComponentCancelClose:
		err = r.handleCancelClose(ctx, ev, responder)
	default:
		return
	}

	if err != nil {
		r.reportInteractionError(ctx, responder, ev.ComponentID, err)
	}
}

// HandleModal dispatches a modal submission.
func (r *Router) HandleModal(ctx context.Context, ev ModalEvent, responder Responder) {
	defer r.recoverPanic("modal")
	r.metrics.RecordCommand(ev.ModalID)

	var err error
	switch ev.ModalID {
	case render.ModalCreateTicket:
		err = r.handleCreateModal(ctx, ev, responder)
	case render.ModalCloseReason:
		err = r.handleCloseReasonModal(ctx, ev, responder)
	default:
		return
	}

	if err != nil {
		r.reportInteractionError(ctx, responder, ev.ModalID, err)
	}
}

func (r *Router) handleSetup(ctx context.Context, ev MessageEvent) error {
	if err := r.lifecycle.Setup(ctx, ev.Actor, ev.CommunityID, ev.ChannelID, ev.CommunityName); err != nil {
		return err
	}
	// The raw command clutters the panel channel.
	if err := r.client.DeleteMessage(ctx, ev.ChannelID, ev.MessageID); err != nil {
		r.logger.Debug("could not delete setup command message", zap.Error(err))
	}
	return nil
}

func (r *Router) handleTicketCommand(ctx context.Context, ev MessageEvent, args []string) error {
	if err := r.lifecycle.PrecheckCreate(ctx, ev.Actor); err != nil {
		return err
	}
	progress, err := r.client.SendMessage(ctx, ev.ChannelID, platform.Message{Content: "**Opening your ticket...**"})
	if err != nil {
		return apperrors.NewExternalCallFailed("failed to open the ticket, please try again", err)
	}

	ticket, err := r.lifecycle.CreateTicket(ctx, ev.CommunityID, ev.Actor, strings.Join(args, " "))
	if err != nil {
		editErr := r.client.EditMessageContent(ctx, ev.ChannelID, progress.ID, userMessage(err))
		if editErr != nil {
			r.logger.Debug("could not edit progress message", zap.Error(editErr))
		}
		r.metrics.RecordError("ticket", apperrors.ToDomainError(err).Code)
		return nil
	}

	done := fmt.Sprintf("**Ticket opened!**\nChannel: <#%s>\nID: #%d", ticket.ChannelRef, ticket.Number)
	if err := r.client.EditMessageContent(ctx, ev.ChannelID, progress.ID, done); err != nil {
		r.logger.Debug("could not edit progress message", zap.Error(err))
	}
	return nil
}

func (r *Router) handleCloseCommand(ctx context.Context, ev MessageEvent, args []string) error {
	record, err := r.lifecycle.CloseNow(ctx, ev.Actor, ev.ChannelID, strings.Join(args, " "))
	if err != nil {
		return err
	}
	r.sendTemp(ctx, ev.ChannelID, fmt.Sprintf("**Ticket #%d closed.**", record.Number))
	return nil
}

func (r *Router) handleAdd(ctx context.Context, ev MessageEvent) error {
	if len(ev.Mentions) == 0 {
		return apperrors.NewValidationError("mention the user to add", nil)
	}
	target := ev.Mentions[0]
	if err := r.lifecycle.AddUser(ctx, ev.Actor, ev.ChannelID, target.ID); err != nil {
		return err
	}
	_, err := r.client.SendMessage(ctx, ev.ChannelID, platform.Message{
		Content: fmt.Sprintf("<@%s> has been added to this ticket.", target.ID),
	})
	return err
}

func (r *Router) handleRemove(ctx context.Context, ev MessageEvent) error {
	if len(ev.Mentions) == 0 {
		return apperrors.NewValidationError("mention the user to remove", nil)
	}
	target := ev.Mentions[0]
	if err := r.lifecycle.RemoveUser(ctx, ev.Actor, ev.ChannelID, target.ID); err != nil {
		return err
	}
	_, err := r.client.SendMessage(ctx, ev.ChannelID, platform.Message{
		Content: fmt.Sprintf("<@%s> has been removed from this ticket.", target.ID),
	})
	return err
}

func (r *Router) handleRename(ctx context.Context, ev MessageEvent, args []string) error {
	applied, err := r.lifecycle.Rename(ctx, ev.Actor, ev.ChannelID, strings.Join(args, " "))
	if err != nil {
		return err
	}
	_, err = r.client.SendMessage(ctx, ev.ChannelID, platform.Message{
		Content: fmt.Sprintf("Channel renamed to `%s`.", applied),
	})
	return err
}

func (r *Router) handleLogs(ctx context.Context, ev MessageEvent) error {
	count, channelName, err := r.lifecycle.RecentLogs(ctx, ev.Actor, ev.CommunityID)
	if err != nil {
		return err
	}
	if count == 0 {
		r.sendTemp(ctx, ev.ChannelID, "No closed tickets have been logged yet.")
		return nil
	}
	_, err = r.client.SendMessage(ctx, ev.ChannelID, r.renderer.RecentLogs(count, channelName))
	return err
}

func (r *Router) handleCleanup(ctx context.Context, ev MessageEvent) error {
	cleaned, err := r.lifecycle.Cleanup(ctx, ev.Actor, ev.CommunityID)
	if err != nil {
		return err
	}
	_, err = r.client.SendMessage(ctx, ev.ChannelID, platform.Message{
		Content: fmt.Sprintf("Cleanup finished. %d channels deleted.", cleaned),
	})
	return err
}

func (r *Router) handleCreateButton(ctx context.Context, ev ComponentEvent, responder Responder) error {
	if err := r.lifecycle.PrecheckCreate(ctx, ev.Actor); err != nil {
		return err
	}
	return responder.OpenModal(ctx, r.renderer.CreateTicketModal())
}

func (r *Router) handleCreateModal(ctx context.Context, ev ModalEvent, responder Responder) error {
	ticket, err := r.lifecycle.CreateTicket(ctx, ev.CommunityID, ev.Actor, ev.Values[render.InputTicketReason])
	if err != nil {
		return err
	}
	return responder.ReplyEphemeral(ctx,
		fmt.Sprintf("**Ticket opened!**\nChannel: <#%s>\nID: #%d", ticket.ChannelRef, ticket.Number))
}

func (r *Router) handleCloseButton(ctx context.Context, ev ComponentEvent, responder Responder) error {
	if err := r.lifecycle.PrecheckClose(ctx, ev.Actor, ev.ChannelID); err != nil {
		return err
	}
	return responder.OpenModal(ctx, r.renderer.CloseReasonModal())
}

func (r *Router) handleCloseReasonModal(ctx context.Context, ev ModalEvent, responder Responder) error {
	if _, err := r.lifecycle.RequestClose(ctx, ev.Actor, ev.ChannelID, ev.Values[render.InputCloseReason]); err != nil {
		return err
	}
	return responder.ReplyEphemeral(ctx, "Close confirmation posted.")
}

func (r *Router) handleConfirmClose(ctx context.Context, ev ComponentEvent, responder Responder) error {
	record, err := r.lifecycle.ConfirmClose(ctx, ev.Actor, ev.ChannelID, "")
	if err != nil {
		return err
	}
	return responder.ReplyEphemeral(ctx, fmt.Sprintf("Ticket #%d closed.", record.Number))
}

func (r *Router) handleCancelClose(ctx context.Context, ev ComponentEvent, responder Responder) error {
	if err := r.lifecycle.CancelClose(ctx, ev.Actor, ev.ChannelID); err != nil {
		return err
	}
	if err := responder.DeleteSource(ctx); err != nil {
		r.logger.Debug("could not delete confirmation prompt", zap.Error(err))
	}
	return responder.ReplyEphemeral(ctx, "Ticket closure cancelled.")
}

// sendTemp posts a notice that cleans itself up after the configured TTL.
func (r *Router) sendTemp(ctx context.Context, channelID, content string) {
	msg, err := r.client.SendMessage(ctx, channelID, platform.Message{Content: content})
	if err != nil {
		r.logger.Debug("could not send temp message", zap.Error(err))
		return
	}
	messageID := msg.ID
	r.sched.After("temp-message:"+messageID, r.cfg.Ticket.TempMessageTTL(), func() {
		if err := r.client.DeleteMessage(context.Background(), channelID, messageID); err != nil {
			r.logger.Debug("could not delete temp message", zap.Error(err))
		}
	})
}

func (r *Router) reportCommandError(ctx context.Context, channelID, command string, err error) {
	domainErr := apperrors.ToDomainError(err)
	r.metrics.RecordError(command, domainErr.Code)
	if domainErr.Code == apperrors.CodeInternalError {
		r.logger.Error("command failed", zap.String("command", command), zap.Error(err))
	}
	r.sendTemp(ctx, channelID, userMessage(err))
}

func (r *Router) reportInteractionError(ctx context.Context, responder Responder, scope string, err error) {
	domainErr := apperrors.ToDomainError(err)
	r.metrics.RecordError(scope, domainErr.Code)
	if domainErr.Code == apperrors.CodeInternalError {
		r.logger.Error("interaction failed", zap.String("scope", scope), zap.Error(err))
	}
	if replyErr := responder.ReplyEphemeral(ctx, userMessage(err)); replyErr != nil {
		r.logger.Debug("could not report interaction error", zap.Error(replyErr))
	}
}

func (r *Router) recoverPanic(scope string) {
	if rec := recover(); rec != nil {
		r.metrics.RecordError(scope, "PANIC")
		r.logger.Error("panic recovered",
			zap.String("scope", scope),
			zap.Any("panic", rec),
			zap.ByteString("stack", debug.Stack()))
	}
}

// userMessage converts any error into the short text shown to the actor.
func userMessage(err error) string {
	return apperrors.ToDomainError(err).Message
}
