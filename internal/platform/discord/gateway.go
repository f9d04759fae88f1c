package discord

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/bot"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/service"
)

// Bot owns the gateway session and feeds inbound events to the router.
type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	session   *discordgo.Session
	router    *bot.Router
	bootstrap *service.Bootstrap

	connected atomic.Bool
	seeded    sync.Map
}

// NewSession builds an unopened gateway session with the intents the
// workflow needs. The platform client can wrap it before the gateway opens.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("build session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent
	return session, nil
}

// New registers gateway handlers on the session. The session is not opened
// until Open is called.
func New(cfg config.Config, logger *zap.Logger, session *discordgo.Session, router *bot.Router, bootstrap *service.Bootstrap) *Bot {
	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		session:   session,
		router:    router,
		bootstrap: bootstrap,
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onDisconnect)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	return b
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	b.connected.Store(false)
	return b.session.Close()
}

// Connected reports whether the gateway session is live.
func (b *Bot) Connected() bool {
	return b.connected.Load()
}

// BotTag returns the logged-in account's tag, empty before ready.
func (b *Bot) BotTag() string {
	if b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.String()
}

// CommunityCount returns the number of joined communities.
func (b *Bot) CommunityCount() int {
	if b.session.State == nil {
		return 0
	}
	return len(b.session.State.Guilds)
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.connected.Store(true)
	b.logger.Info("gateway ready",
		zap.String("bot", r.User.String()),
		zap.Int("guilds", len(r.Guilds)))
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.connected.Store(false)
	b.logger.Warn("gateway disconnected")
}

// onGuildCreate rebuilds in-memory ticket state from channel names. A resumed
// session re-emits the event for every guild, so each guild is seeded once.
func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if _, done := b.seeded.LoadOrStore(g.ID, struct{}{}); done {
		return
	}
	recovered, err := b.bootstrap.Reconstruct(context.Background(), g.ID)
	if err != nil {
		b.logger.Error("ticket state reconstruction failed",
			zap.String("guild_id", g.ID), zap.Error(err))
		return
	}
	b.logger.Info("ticket state reconstructed",
		zap.String("guild", g.Name),
		zap.Int("recovered", recovered))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	ev := bot.MessageEvent{
		CommunityID:   m.GuildID,
		CommunityName: b.guildName(m.GuildID),
		ChannelID:     m.ChannelID,
		MessageID:     m.ID,
		Actor:         b.messageActor(s, m),
		Content:       m.Content,
	}
	for _, mention := range m.Mentions {
		ev.Mentions = append(ev.Mentions, platform.Member{
			ID:       mention.ID,
			Username: mention.Username,
			Tag:      mention.String(),
		})
	}
	b.router.HandleMessage(context.Background(), ev)
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return
	}
	actor := b.interactionActor(i)
	responder := &interactionResponder{session: b.session, interaction: i.Interaction}

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		ev := bot.ComponentEvent{
			CommunityID: i.GuildID,
			ChannelID:   i.ChannelID,
			Actor:       actor,
			ComponentID: data.CustomID,
		}
		if i.Message != nil {
			ev.MessageID = i.Message.ID
		}
		b.router.HandleComponent(context.Background(), ev, responder)
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		b.router.HandleModal(context.Background(), bot.ModalEvent{
			CommunityID: i.GuildID,
			ChannelID:   i.ChannelID,
			Actor:       actor,
			ModalID:     data.CustomID,
			Values:      modalValues(data),
		}, responder)
	}
}

// messageActor resolves the author into the role-name view the core expects.
// Message events carry a partial member, so roles come from gateway state.
func (b *Bot) messageActor(s *discordgo.Session, m *discordgo.MessageCreate) platform.Member {
	actor := platform.Member{
		ID:       m.Author.ID,
		Username: m.Author.Username,
		Tag:      m.Author.String(),
	}
	if m.Member == nil {
		return actor
	}
	guild, err := s.State.Guild(m.GuildID)
	if err == nil && guild.OwnerID == m.Author.ID {
		actor.Administrator = true
	}
	for _, roleID := range m.Member.Roles {
		role, err := s.State.Role(m.GuildID, roleID)
		if err != nil {
			continue
		}
		actor.RoleNames = append(actor.RoleNames, role.Name)
		if role.Permissions&discordgo.PermissionAdministrator != 0 {
			actor.Administrator = true
		}
	}
	return actor
}

// interactionActor uses the member payload on the interaction, which carries
// resolved permissions directly.
func (b *Bot) interactionActor(i *discordgo.InteractionCreate) platform.Member {
	member := i.Member
	actor := platform.Member{
		ID:            member.User.ID,
		Username:      member.User.Username,
		Tag:           member.User.String(),
		Administrator: member.Permissions&discordgo.PermissionAdministrator != 0,
	}
	for _, roleID := range member.Roles {
		role, err := b.session.State.Role(i.GuildID, roleID)
		if err != nil {
			continue
		}
		actor.RoleNames = append(actor.RoleNames, role.Name)
	}
	return actor
}

func (b *Bot) guildName(guildID string) string {
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		return ""
	}
	return guild.Name
}

func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, component := range data.Components {
		row, ok := component.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}

// interactionResponder answers exactly one interaction.
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (r *interactionResponder) ReplyEphemeral(_ context.Context, content string) error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func (r *interactionResponder) OpenModal(_ context.Context, modal platform.Modal) error {
	components := make([]discordgo.MessageComponent, 0, len(modal.Inputs))
	for _, input := range modal.Inputs {
		style := discordgo.TextInputShort
		if input.Paragraph {
			style = discordgo.TextInputParagraph
		}
		components = append(components, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{discordgo.TextInput{
				CustomID:    input.ID,
				Label:       input.Label,
				Style:       style,
				Placeholder: input.Placeholder,
				Required:    input.Required,
				MinLength:   input.MinLen,
				MaxLength:   input.MaxLen,
			}},
		})
	}
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   modal.ID,
			Title:      modal.Title,
			Components: components,
		},
	})
}

func (r *interactionResponder) DeleteSource(_ context.Context) error {
	if r.interaction.Message == nil {
		return nil
	}
	return r.session.ChannelMessageDelete(r.interaction.ChannelID, r.interaction.Message.ID)
}
