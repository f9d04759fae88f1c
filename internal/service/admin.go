package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/platform"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// Setup posts the ticket panel into the invoking channel and provisions the
// log channel when it does not exist yet. Administrator permission required.
func (s *Lifecycle) Setup(ctx context.Context, actor platform.Member, communityID, channelID, communityName string) error {
	if !s.checker.IsAdministrator(actor) {
		return apperrors.NewNotAuthorized("administrator permission is required for setup")
	}

	if _, err := s.client.SendMessage(ctx, channelID, s.renderer.SetupPanel(communityName)); err != nil {
		return apperrors.NewExternalCallFailed("failed to post the ticket panel", err)
	}

	if err := s.ensureLogChannel(ctx, communityID); err != nil {
		s.logger.Warn("failed to provision log channel", zap.Error(err))
	}
	return nil
}

// AddUser grants a member access to the ticket channel.
func (s *Lifecycle) AddUser(ctx context.Context, actor platform.Member, channelRef, userID string) error {
	if !s.checker.IsOperator(actor) {
		return apperrors.NewNotAuthorized("only operators can add users to tickets")
	}
	if _, ok := s.registry.FindByChannel(channelRef); !ok {
		return apperrors.NewNotATicketChannel("this is not an active ticket channel")
	}
	err := s.client.GrantChannel(ctx, channelRef, platform.Grant{
		PrincipalID:  userID,
		Kind:         platform.PrincipalMember,
		ViewChannel:  true,
		SendMessages: true,
		ReadHistory:  true,
	})
	if err != nil {
		return apperrors.NewExternalCallFailed("failed to add the user to this ticket", err)
	}
	return nil
}

// RemoveUser revokes a member's access to the ticket channel.
func (s *Lifecycle) RemoveUser(ctx context.Context, actor platform.Member, channelRef, userID string) error {
	if !s.checker.IsOperator(actor) {
		return apperrors.NewNotAuthorized("only operators can remove users from tickets")
	}
	if _, ok := s.registry.FindByChannel(channelRef); !ok {
		return apperrors.NewNotATicketChannel("this is not an active ticket channel")
	}
	if err := s.client.RemoveGrant(ctx, channelRef, userID); err != nil {
		return apperrors.NewExternalCallFailed("failed to remove the user from this ticket", err)
	}
	return nil
}

// Rename changes the channel name, sanitized to the platform's charset.
// Returns the applied name.
func (s *Lifecycle) Rename(ctx context.Context, actor platform.Member, channelRef, newName string) (string, error) {
	if !s.checker.IsOperator(actor) {
		return "", apperrors.NewNotAuthorized("only operators can rename tickets")
	}
	clean := channelNameSanitizer.ReplaceAllString(strings.ToLower(strings.TrimSpace(newName)), "-")
	if len(clean) > 100 {
		clean = clean[:100]
	}
	if len(clean) < 3 {
		return "", apperrors.NewValidationError("the new name must be at least 3 characters", nil)
	}
	if err := s.client.RenameChannel(ctx, channelRef, clean); err != nil {
		return "", apperrors.NewExternalCallFailed("failed to rename this ticket", err)
	}
	return clean, nil
}

// Cleanup deletes archived (closed-) channels, pausing between deletions to
// stay inside platform rate limits. Returns how many were removed.
func (s *Lifecycle) Cleanup(ctx context.Context, actor platform.Member, communityID string) (int, error) {
	if !s.checker.IsOperator(actor) {
		return 0, apperrors.NewNotAuthorized("only operators can run cleanup")
	}
	channels, err := s.client.Channels(ctx, communityID)
	if err != nil {
		return 0, apperrors.NewExternalCallFailed("failed to list channels", err)
	}

	cleaned := 0
	for _, ch := range channels {
		if ch.Category || !strings.HasPrefix(ch.Name, s.cfg.ClosedPrefix) {
			continue
		}
		if err := s.client.DeleteChannel(ctx, ch.ID); err != nil {
			s.logger.Warn("failed to delete closed channel during cleanup",
				zap.String("channel", ch.Name), zap.Error(err))
			continue
		}
		cleaned++
		select {
		case <-ctx.Done():
			return cleaned, nil
		case <-time.After(s.cfg.CleanupPause()):
		}
	}
	return cleaned, nil
}

// RecentLogs reports how many closure records sit in the log channel's
// recent history, for the logs command summary.
func (s *Lifecycle) RecentLogs(ctx context.Context, actor platform.Member, communityID string) (int, string, error) {
	if !s.checker.IsOperator(actor) {
		return 0, "", apperrors.NewNotAuthorized("only operators can view ticket logs")
	}
	logChannel, ok, err := s.findLogChannel(ctx, communityID)
	if err != nil {
		return 0, "", apperrors.NewExternalCallFailed("failed to list channels", err)
	}
	if !ok {
		return 0, "", apperrors.NewNotFound("log channel", nil)
	}
	messages, err := s.client.RecentMessages(ctx, logChannel.ID, 10)
	if err != nil {
		return 0, "", apperrors.NewExternalCallFailed("failed to fetch ticket logs", err)
	}
	count := 0
	for _, msg := range messages {
		if msg.EmbedTitle != "" {
			count++
		}
	}
	return count, logChannel.Name, nil
}

func (s *Lifecycle) findLogChannel(ctx context.Context, communityID string) (platform.Channel, bool, error) {
	channels, err := s.client.Channels(ctx, communityID)
	if err != nil {
		return platform.Channel{}, false, err
	}
	for _, ch := range channels {
		if !ch.Category && ch.Name == s.cfg.LogChannelName {
			return ch, true, nil
		}
	}
	return platform.Channel{}, false, nil
}

func (s *Lifecycle) ensureLogChannel(ctx context.Context, communityID string) error {
	if _, ok, err := s.findLogChannel(ctx, communityID); err != nil || ok {
		return err
	}
	channel, err := s.client.CreateChannel(ctx, platform.ChannelCreate{
		CommunityID:         communityID,
		Name:                s.cfg.LogChannelName,
		Topic:               "Closed ticket log",
		ReadOnlyForEveryone: true,
	})
	if err != nil {
		return fmt.Errorf("create log channel: %w", err)
	}
	if _, err := s.client.SendMessage(ctx, channel.ID, s.renderer.LogChannelCreated()); err != nil {
		s.logger.Warn("failed to announce log channel", zap.Error(err))
	}
	return nil
}
