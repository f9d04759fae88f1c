package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/render"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/schedule"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

const noReasonGiven = "No reason provided"

var channelNameSanitizer = regexp.MustCompile(`[^a-z0-9-]`)

// Lifecycle drives tickets through creation, close request, confirmation and
// archival. Registry mutations follow a strict ordering: insertion only
// after the backing channel exists, removal before any platform call during
// closure, so a second confirm can never act on the same ticket.
type Lifecycle struct {
	cfg        config.TicketConfig
	logger     *zap.Logger
	registry   repository.TicketRegistry
	counter    repository.TicketCounter
	limiter    repository.RateLimiter
	client     platform.Client
	checker    *auth.Checker
	renderer   *render.Renderer
	dispatcher events.Dispatcher
	sched      *schedule.Scheduler
	nowFn      func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle.
type LifecycleDependencies struct {
	Registry   repository.TicketRegistry
	Counter    repository.TicketCounter
	Limiter    repository.RateLimiter
	Client     platform.Client
	Checker    *auth.Checker
	Renderer   *render.Renderer
	Dispatcher events.Dispatcher
	Scheduler  *schedule.Scheduler
}

// NewLifecycle constructs the service.
func NewLifecycle(cfg config.TicketConfig, logger *zap.Logger, deps LifecycleDependencies) *Lifecycle {
	return &Lifecycle{
		cfg:        cfg,
		logger:     logger,
		registry:   deps.Registry,
		counter:    deps.Counter,
		limiter:    deps.Limiter,
		client:     deps.Client,
		checker:    deps.Checker,
		renderer:   deps.Renderer,
		dispatcher: deps.Dispatcher,
		sched:      deps.Scheduler,
		nowFn:      time.Now,
	}
}

// PrecheckCreate runs the fail-fast gates for ticket creation: the creation
// cooldown and the one-active-ticket rule. An allowed call starts the
// cooldown window, matching the behavior of the interactive flow where the
// modal opens only after the gates pass.
func (s *Lifecycle) PrecheckCreate(ctx context.Context, owner platform.Member) error {
	if s.limiter.Check(ctx, owner.ID, repository.ActionCreateTicket) {
		return apperrors.NewRateLimited(
			fmt.Sprintf("please wait %d seconds before opening another ticket", int(s.cfg.CreateCooldown().Seconds())),
			nil)
	}
	if existing, ok := s.registry.GetActive(owner.ID); ok {
		return apperrors.NewAlreadyActive(
			fmt.Sprintf("you already have an active ticket: <#%s>", existing.ChannelRef),
			map[string]any{"channel_ref": existing.ChannelRef, "number": existing.Number})
	}
	return nil
}

// CreateTicket provisions a private channel for the owner and registers the
// ticket. The registry is touched only after the channel exists; a creation
// failure leaves no partial state.
func (s *Lifecycle) CreateTicket(ctx context.Context, communityID string, owner platform.Member, reason string) (domain.Ticket, error) {
	reason = strings.TrimSpace(reason)
	if err := s.validateReason(reason); err != nil {
		return domain.Ticket{}, err
	}
	if existing, ok := s.registry.GetActive(owner.ID); ok {
		return domain.Ticket{}, apperrors.NewAlreadyActive(
			fmt.Sprintf("you already have an active ticket: <#%s>", existing.ChannelRef),
			map[string]any{"channel_ref": existing.ChannelRef, "number": existing.Number})
	}

	number, err := s.counter.Next(ctx, communityID)
	if err != nil {
		return domain.Ticket{}, apperrors.NewExternalCallFailed("failed to open the ticket, please try again", err)
	}

	categoryID, err := s.ensureCategory(ctx, communityID)
	if err != nil {
		return domain.Ticket{}, apperrors.NewExternalCallFailed("failed to open the ticket, please try again", err)
	}

	channel, err := s.client.CreateChannel(ctx, platform.ChannelCreate{
		CommunityID:      communityID,
		Name:             s.channelName(number, owner.Username),
		Topic:            ChannelTopic(number, owner.ID),
		ParentID:         categoryID,
		HideFromEveryone: true,
		Grants: []platform.Grant{{
			PrincipalID:  owner.ID,
			Kind:         platform.PrincipalMember,
			ViewChannel:  true,
			SendMessages: true,
			ReadHistory:  true,
		}},
	})
	if err != nil {
		return domain.Ticket{}, apperrors.NewExternalCallFailed("failed to open the ticket, please try again", err)
	}

	s.grantStaffAccess(ctx, communityID, channel.ID)

	ticket, err := s.registry.Create(repository.CreateInput{
		Number:      number,
		OwnerID:     owner.ID,
		OwnerTag:    owner.Tag,
		ChannelRef:  channel.ID,
		CommunityID: communityID,
		RequestText: reason,
	})
	if err != nil {
		// Lost a race against a concurrent create by the same owner; the
		// fresh channel backs nothing, so drop it.
		if delErr := s.client.DeleteChannel(ctx, channel.ID); delErr != nil {
			s.logger.Warn("failed to delete orphaned ticket channel",
				zap.String("channel", channel.ID), zap.Error(delErr))
		}
		return domain.Ticket{}, err
	}

	if _, err := s.client.SendMessage(ctx, channel.ID, s.renderer.Welcome(ticket)); err != nil {
		s.logger.Warn("failed to post welcome message",
			zap.Int("ticket", ticket.Number), zap.Error(err))
	}

	s.publish(ctx, events.Event{
		Type:        events.EventTicketCreated,
		CommunityID: communityID,
		Actor:       events.Actor{ID: owner.ID, Tag: owner.Tag},
		Payload: events.TicketCreatedPayload{
			Number:      ticket.Number,
			OwnerID:     ticket.OwnerID,
			OwnerTag:    ticket.OwnerTag,
			ChannelRef:  ticket.ChannelRef,
			RequestText: ticket.RequestText,
		},
	})
	return ticket, nil
}

// PrecheckClose runs the fail-fast gates for closing: operator privilege,
// the close cooldown, and the channel actually backing an active ticket. No
// platform call is made before these pass.
func (s *Lifecycle) PrecheckClose(ctx context.Context, actor platform.Member, channelRef string) error {
	if !s.checker.IsOperator(actor) {
		return apperrors.NewNotAuthorized("only operators can close tickets")
	}
	if s.limiter.Check(ctx, actor.ID, repository.ActionCloseTicket) {
		return apperrors.NewRateLimited(
			fmt.Sprintf("please wait %d seconds before closing another ticket", int(s.cfg.CloseCooldown().Seconds())),
			nil)
	}
	if _, ok := s.registry.FindByChannel(channelRef); !ok {
		return apperrors.NewNotATicketChannel("this is not an active ticket channel")
	}
	return nil
}

// RequestClose records the pending close reason on the ticket and posts the
// confirmation prompt. The ticket moves to CloseRequested; cancellation
// moves it back.
func (s *Lifecycle) RequestClose(ctx context.Context, actor platform.Member, channelRef, reason string) (domain.Ticket, error) {
	if !s.checker.IsOperator(actor) {
		return domain.Ticket{}, apperrors.NewNotAuthorized("only operators can close tickets")
	}
	reason = strings.TrimSpace(reason)
	if err := s.validateReason(reason); err != nil {
		return domain.Ticket{}, err
	}

	ticket, err := s.registry.RequestClose(channelRef, reason)
	if err != nil {
		return domain.Ticket{}, err
	}

	prompt := s.renderer.ConfirmClose(ticket, reason, s.nowFn().Sub(ticket.CreatedAt), actor.ID)
	if _, err := s.client.SendMessage(ctx, channelRef, prompt); err != nil {
		// Without a visible prompt nobody can confirm; return to Open.
		s.registry.CancelClose(channelRef)
		return domain.Ticket{}, apperrors.NewExternalCallFailed("failed to post the close confirmation", err)
	}

	s.publish(ctx, events.Event{
		Type:        events.EventTicketCloseRequested,
		CommunityID: ticket.CommunityID,
		Actor:       events.Actor{ID: actor.ID, Tag: actor.Tag},
		Payload: events.TicketCloseRequestedPayload{
			Number:     ticket.Number,
			ChannelRef: channelRef,
			Reason:     reason,
		},
	})
	return ticket, nil
}

// ConfirmClose commits the closure. The registry entry is removed before any
// platform call, which makes a second confirm fail with NOT_FOUND and keeps
// every closure side effect exactly-once. Post-commit platform failures are
// logged, never unwound.
func (s *Lifecycle) ConfirmClose(ctx context.Context, actor platform.Member, channelRef, reason string) (events.TicketClosedPayload, error) {
	if !s.checker.IsOperator(actor) {
		return events.TicketClosedPayload{}, apperrors.NewNotAuthorized("only operators can close tickets")
	}

	ticket, ok := s.registry.FindByChannel(channelRef)
	if !ok {
		return events.TicketClosedPayload{}, apperrors.NewNotFound("ticket", map[string]any{"channel_ref": channelRef})
	}
	removed, ok := s.registry.Remove(ticket.OwnerID)
	if !ok || removed.ChannelRef != channelRef {
		// A concurrent confirm won the race.
		return events.TicketClosedPayload{}, apperrors.NewNotFound("ticket", map[string]any{"channel_ref": channelRef})
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = removed.CloseReason
	}
	if reason == "" {
		reason = noReasonGiven
	}

	return s.commitClose(ctx, removed, actor, reason), nil
}

// CloseNow is the operator text command: an immediate close with no
// confirmation round trip, sharing the committed-closure path.
func (s *Lifecycle) CloseNow(ctx context.Context, actor platform.Member, channelRef, reason string) (events.TicketClosedPayload, error) {
	if !s.checker.IsOperator(actor) {
		return events.TicketClosedPayload{}, apperrors.NewNotAuthorized("only operators can close tickets")
	}
	ticket, ok := s.registry.FindByChannel(channelRef)
	if !ok {
		return events.TicketClosedPayload{}, apperrors.NewNotATicketChannel("this is not an active ticket channel")
	}
	removed, ok := s.registry.Remove(ticket.OwnerID)
	if !ok || removed.ChannelRef != channelRef {
		return events.TicketClosedPayload{}, apperrors.NewNotFound("ticket", map[string]any{"channel_ref": channelRef})
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = noReasonGiven
	}
	return s.commitClose(ctx, removed, actor, reason), nil
}

// CancelClose discards a pending close; the ticket returns to Open.
func (s *Lifecycle) CancelClose(ctx context.Context, actor platform.Member, channelRef string) error {
	if !s.checker.IsOperator(actor) {
		return apperrors.NewNotAuthorized("only operators can cancel a closure")
	}
	ticket, ok := s.registry.CancelClose(channelRef)
	if !ok {
		return nil
	}
	s.publish(ctx, events.Event{
		Type:        events.EventTicketCloseCancelled,
		CommunityID: ticket.CommunityID,
		Actor:       events.Actor{ID: actor.ID, Tag: actor.Tag},
		Payload: events.TicketCloseCancelledPayload{
			Number:     ticket.Number,
			ChannelRef: channelRef,
		},
	})
	return nil
}

// commitClose performs the committed side of a closure: archive the channel,
// publish the single closure record, schedule deletion. Callers must have
// already removed the ticket from the registry.
func (s *Lifecycle) commitClose(ctx context.Context, ticket domain.Ticket, closer platform.Member, reason string) events.TicketClosedPayload {
	record := events.ClosedPayloadFromTicket(ticket, events.Actor{ID: closer.ID, Tag: closer.Tag}, reason, s.nowFn())

	s.stripComponents(ctx, ticket.ChannelRef)

	if _, err := s.client.SendMessage(ctx, ticket.ChannelRef, s.renderer.Closed(record)); err != nil {
		s.logger.Warn("failed to post closure notice",
			zap.Int("ticket", ticket.Number), zap.Error(err))
	}
	if err := s.client.RevokeSend(ctx, ticket.ChannelRef, ticket.OwnerID); err != nil {
		s.logger.Warn("failed to revoke owner send permission",
			zap.Int("ticket", ticket.Number), zap.Error(err))
	}
	archivedName := fmt.Sprintf("%s%d", s.cfg.ClosedPrefix, ticket.Number)
	if err := s.client.RenameChannel(ctx, ticket.ChannelRef, archivedName); err != nil {
		s.logger.Warn("failed to rename closed ticket channel",
			zap.Int("ticket", ticket.Number), zap.Error(err))
	}

	s.publish(ctx, events.Event{
		Type:        events.EventTicketClosed,
		CommunityID: ticket.CommunityID,
		Actor:       events.Actor{ID: closer.ID, Tag: closer.Tag},
		Payload:     record,
	})

	channelRef := ticket.ChannelRef
	s.sched.After("delete-channel:"+channelRef, s.cfg.DeleteGrace(), func() {
		if err := s.client.DeleteChannel(context.Background(), channelRef); err != nil {
			s.logger.Warn("failed to delete closed ticket channel",
				zap.String("channel", channelRef), zap.Error(err))
		}
	})

	return record
}

// validateReason enforces the configured reason length bounds.
func (s *Lifecycle) validateReason(reason string) error {
	length := len([]rune(reason))
	if length < s.cfg.ReasonMinLen || length > s.cfg.ReasonMaxLen {
		return apperrors.NewValidationError(
			fmt.Sprintf("the reason must be between %d and %d characters", s.cfg.ReasonMinLen, s.cfg.ReasonMaxLen),
			map[string]any{"length": length})
	}
	return nil
}

func (s *Lifecycle) channelName(number int, username string) string {
	name := strings.ToLower(fmt.Sprintf("%s%d-%s", s.cfg.NamePrefix, number, username))
	name = channelNameSanitizer.ReplaceAllString(name, "-")
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

// ensureCategory finds or creates the configured ticket category.
func (s *Lifecycle) ensureCategory(ctx context.Context, communityID string) (string, error) {
	channels, err := s.client.Channels(ctx, communityID)
	if err != nil {
		return "", err
	}
	for _, ch := range channels {
		if ch.Category && strings.EqualFold(ch.Name, s.cfg.CategoryName) {
			return ch.ID, nil
		}
	}
	category, err := s.client.CreateCategory(ctx, communityID, s.cfg.CategoryName)
	if err != nil {
		return "", err
	}
	return category.ID, nil
}

// grantStaffAccess opens the channel to the operator and support roles.
// Failures here degrade access, not correctness, so they are only logged.
func (s *Lifecycle) grantStaffAccess(ctx context.Context, communityID, channelID string) {
	roles, err := s.client.Roles(ctx, communityID)
	if err != nil {
		s.logger.Warn("failed to list roles for staff access", zap.Error(err))
		return
	}
	byName := make(map[string]string, len(roles))
	for _, role := range roles {
		byName[strings.ToLower(role.Name)] = role.ID
	}

	grant := func(roleName string, manage bool) {
		roleID, ok := byName[strings.ToLower(roleName)]
		if !ok {
			return
		}
		err := s.client.GrantChannel(ctx, channelID, platform.Grant{
			PrincipalID:    roleID,
			Kind:           platform.PrincipalRole,
			ViewChannel:    true,
			SendMessages:   true,
			ReadHistory:    true,
			ManageMessages: manage,
		})
		if err != nil {
			s.logger.Warn("failed to grant role access to ticket channel",
				zap.String("role", roleName), zap.Error(err))
		}
	}

	grant(s.checker.OperatorRole(), true)
	for _, roleName := range s.checker.SupportRoles() {
		grant(roleName, false)
	}
}

// stripComponents removes buttons from recent messages so stale prompts
// cannot be clicked after closure. Best effort.
func (s *Lifecycle) stripComponents(ctx context.Context, channelRef string) {
	messages, err := s.client.RecentMessages(ctx, channelRef, 10)
	if err != nil {
		return
	}
	for _, msg := range messages {
		if !msg.HasButtons {
			continue
		}
		if err := s.client.ClearComponents(ctx, channelRef, msg.ID); err != nil {
			s.logger.Debug("failed to clear message components",
				zap.String("message", msg.ID), zap.Error(err))
		}
	}
}

func (s *Lifecycle) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.nowFn()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// ChannelTopic renders the topic that embeds the owner's stable identity,
// which startup reconstruction reads back.
func ChannelTopic(number int, ownerID string) string {
	return fmt.Sprintf("Ticket #%d | owner:%s", number, ownerID)
}
