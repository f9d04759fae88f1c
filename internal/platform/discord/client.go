// Package discord adapts the platform.Client boundary onto a discordgo
// session. All wire-format knowledge lives here.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Client implements platform.Client on a discordgo session.
type Client struct {
	session *discordgo.Session
}

// NewClient wraps an open or yet-to-open session.
func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

// CreateChannel provisions a text channel with the requested overwrites.
func (c *Client) CreateChannel(_ context.Context, create platform.ChannelCreate) (*platform.Channel, error) {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(create.Grants)+1)
	if create.HideFromEveryone {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:   create.CommunityID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		})
	} else if create.ReadOnlyForEveryone {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    create.CommunityID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel,
			Deny:  discordgo.PermissionSendMessages,
		})
	}
	for _, grant := range create.Grants {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    grant.PrincipalID,
			Type:  overwriteType(grant.Kind),
			Allow: grantBits(grant),
		})
	}

	channel, err := c.session.GuildChannelCreateComplex(create.CommunityID, discordgo.GuildChannelCreateData{
		Name:                 create.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                create.Topic,
		ParentID:             create.ParentID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	out := channelFromDiscord(channel)
	return &out, nil
}

// CreateCategory provisions a category hidden from the community at large.
func (c *Client) CreateCategory(_ context.Context, communityID, name string) (*platform.Channel, error) {
	channel, err := c.session.GuildChannelCreateComplex(communityID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{{
			ID:   communityID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	out := channelFromDiscord(channel)
	return &out, nil
}

// RenameChannel sets a channel's name.
func (c *Client) RenameChannel(_ context.Context, channelID, name string) error {
	_, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name})
	return err
}

// DeleteChannel removes a channel.
func (c *Client) DeleteChannel(_ context.Context, channelID string) error {
	_, err := c.session.ChannelDelete(channelID)
	return err
}

// GrantChannel sets the principal's permission overwrite on a channel.
func (c *Client) GrantChannel(_ context.Context, channelID string, grant platform.Grant) error {
	return c.session.ChannelPermissionSet(channelID, grant.PrincipalID, overwriteType(grant.Kind), grantBits(grant), 0)
}

// RevokeSend denies the member sending and reacting while preserving their
// other overwrite bits, so a closed ticket stays readable.
func (c *Client) RevokeSend(_ context.Context, channelID, memberID string) error {
	channel, err := c.session.Channel(channelID)
	if err != nil {
		return err
	}
	deny := int64(discordgo.PermissionSendMessages | discordgo.PermissionAddReactions)
	var allow int64
	for _, overwrite := range channel.PermissionOverwrites {
		if overwrite.ID == memberID && overwrite.Type == discordgo.PermissionOverwriteTypeMember {
			allow = overwrite.Allow &^ deny
			deny |= overwrite.Deny
			break
		}
	}
	return c.session.ChannelPermissionSet(channelID, memberID, discordgo.PermissionOverwriteTypeMember, allow, deny)
}

// RemoveGrant deletes the principal's permission overwrite.
func (c *Client) RemoveGrant(_ context.Context, channelID, principalID string) error {
	return c.session.ChannelPermissionDelete(channelID, principalID)
}

// SendMessage posts a message with optional embed and buttons.
func (c *Client) SendMessage(_ context.Context, channelID string, msg platform.Message) (*platform.PostedMessage, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, messageSend(msg))
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	out := postedFromDiscord(sent)
	return &out, nil
}

// EditMessageContent replaces a message's text content.
func (c *Client) EditMessageContent(_ context.Context, channelID, messageID, content string) error {
	_, err := c.session.ChannelMessageEdit(channelID, messageID, content)
	return err
}

// ClearComponents strips buttons from a message, leaving content and embeds.
func (c *Client) ClearComponents(_ context.Context, channelID, messageID string) error {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	edit.Components = &[]discordgo.MessageComponent{}
	_, err := c.session.ChannelMessageEditComplex(edit)
	return err
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(_ context.Context, channelID, messageID string) error {
	return c.session.ChannelMessageDelete(channelID, messageID)
}

// RecentMessages fetches up to limit of the channel's latest messages.
func (c *Client) RecentMessages(_ context.Context, channelID string, limit int) ([]platform.PostedMessage, error) {
	messages, err := c.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	out := make([]platform.PostedMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, postedFromDiscord(msg))
	}
	return out, nil
}

// DirectMessage opens (or reuses) the user's DM channel and sends there.
func (c *Client) DirectMessage(_ context.Context, userID string, msg platform.Message) error {
	dm, err := c.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("open dm channel: %w", err)
	}
	if _, err := c.session.ChannelMessageSendComplex(dm.ID, messageSend(msg)); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}

// Channels enumerates the community's channels.
func (c *Client) Channels(_ context.Context, communityID string) ([]platform.Channel, error) {
	channels, err := c.session.GuildChannels(communityID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	out := make([]platform.Channel, 0, len(channels))
	for _, ch := range channels {
		out = append(out, channelFromDiscord(ch))
	}
	return out, nil
}

// Roles enumerates the community's roles.
func (c *Client) Roles(_ context.Context, communityID string) ([]platform.Role, error) {
	roles, err := c.session.GuildRoles(communityID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	out := make([]platform.Role, 0, len(roles))
	for _, role := range roles {
		out = append(out, platform.Role{ID: role.ID, Name: role.Name})
	}
	return out, nil
}

// Members enumerates the community's members with resolved role names.
func (c *Client) Members(_ context.Context, communityID string) ([]platform.Member, error) {
	members, err := c.session.GuildMembers(communityID, "", 1000)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	roles, err := c.session.GuildRoles(communityID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	byID := make(map[string]*discordgo.Role, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
	}

	out := make([]platform.Member, 0, len(members))
	for _, member := range members {
		if member.User == nil {
			continue
		}
		names := make([]string, 0, len(member.Roles))
		admin := false
		for _, roleID := range member.Roles {
			role, ok := byID[roleID]
			if !ok {
				continue
			}
			names = append(names, role.Name)
			if role.Permissions&discordgo.PermissionAdministrator != 0 {
				admin = true
			}
		}
		out = append(out, platform.Member{
			ID:            member.User.ID,
			Username:      member.User.Username,
			Tag:           member.User.String(),
			RoleNames:     names,
			Administrator: admin,
		})
	}
	return out, nil
}

func overwriteType(kind platform.PrincipalKind) discordgo.PermissionOverwriteType {
	if kind == platform.PrincipalRole {
		return discordgo.PermissionOverwriteTypeRole
	}
	return discordgo.PermissionOverwriteTypeMember
}

func grantBits(grant platform.Grant) int64 {
	var bits int64
	if grant.ViewChannel {
		bits |= discordgo.PermissionViewChannel
	}
	if grant.SendMessages {
		bits |= discordgo.PermissionSendMessages
	}
	if grant.ReadHistory {
		bits |= discordgo.PermissionReadMessageHistory
	}
	if grant.ManageMessages {
		bits |= discordgo.PermissionManageMessages
	}
	return bits
}

func channelFromDiscord(ch *discordgo.Channel) platform.Channel {
	return platform.Channel{
		ID:          ch.ID,
		CommunityID: ch.GuildID,
		Name:        ch.Name,
		Topic:       ch.Topic,
		Category:    ch.Type == discordgo.ChannelTypeGuildCategory,
		ParentID:    ch.ParentID,
	}
}

func postedFromDiscord(msg *discordgo.Message) platform.PostedMessage {
	out := platform.PostedMessage{
		ID:         msg.ID,
		ChannelID:  msg.ChannelID,
		Content:    msg.Content,
		HasButtons: len(msg.Components) > 0,
	}
	if msg.Author != nil {
		out.AuthorID = msg.Author.ID
	}
	if len(msg.Embeds) > 0 {
		out.EmbedTitle = msg.Embeds[0].Title
	}
	return out
}

func messageSend(msg platform.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: msg.Content}
	if msg.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{embedFromPlatform(msg.Embed)}
	}
	if len(msg.Buttons) > 0 {
		send.Components = []discordgo.MessageComponent{buttonRow(msg.Buttons)}
	}
	return send
}

func embedFromPlatform(embed *platform.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
	}
	for _, field := range embed.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: field.Inline,
		})
	}
	if embed.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: embed.Footer}
	}
	if embed.Thumbnail != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: embed.Thumbnail}
	}
	return out
}

func buttonRow(buttons []platform.Button) discordgo.MessageComponent {
	row := discordgo.ActionsRow{}
	for _, button := range buttons {
		row.Components = append(row.Components, discordgo.Button{
			CustomID: button.ID,
			Label:    button.Label,
			Style:    buttonStyle(button.Style),
		})
	}
	return row
}

func buttonStyle(style platform.ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case platform.ButtonDanger:
		return discordgo.DangerButton
	case platform.ButtonSecondary:
		return discordgo.SecondaryButton
	default:
		return discordgo.PrimaryButton
	}
}
