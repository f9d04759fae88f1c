package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
)

var topicOwnerPattern = regexp.MustCompile(`owner:(\S+)`)

// Bootstrap rebuilds in-memory state from the platform's channel naming
// scheme: ticket channels seed the per-community counter, and the ones not
// yet archived re-enter the active registry. All state is lost on restart;
// this is the recovery path.
type Bootstrap struct {
	cfg      config.TicketConfig
	logger   *zap.Logger
	client   platform.Client
	registry repository.TicketRegistry
	counter  repository.TicketCounter
	pattern  *regexp.Regexp
}

// NewBootstrap constructs the reconstructor.
func NewBootstrap(cfg config.TicketConfig, logger *zap.Logger, client platform.Client, registry repository.TicketRegistry, counter repository.TicketCounter) *Bootstrap {
	return &Bootstrap{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		registry: registry,
		counter:  counter,
		pattern:  regexp.MustCompile(`^` + regexp.QuoteMeta(cfg.NamePrefix) + `(\d+)-(.+)$`),
	}
}

// SeedFunc exposes the channel scan as the counter's lazy seed source, for
// communities the bot joins after startup.
func (b *Bootstrap) SeedFunc() repository.SeedFunc {
	return func(ctx context.Context, communityID string) (int, error) {
		channels, err := b.client.Channels(ctx, communityID)
		if err != nil {
			return 0, err
		}
		return b.nextNumber(channels), nil
	}
}

// Reconstruct seeds the community's counter and re-registers active tickets
// from existing channels. Returns how many tickets were recovered.
func (b *Bootstrap) Reconstruct(ctx context.Context, communityID string) (int, error) {
	channels, err := b.client.Channels(ctx, communityID)
	if err != nil {
		return 0, err
	}

	b.counter.Seed(communityID, b.nextNumber(channels))

	var members []platform.Member
	recovered := 0
	for _, ch := range channels {
		if ch.Category {
			continue
		}
		match := b.pattern.FindStringSubmatch(ch.Name)
		if match == nil {
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		owner, ok := b.resolveOwner(ctx, communityID, ch, match[2], &members)
		if !ok {
			b.logger.Warn("could not resolve owner for ticket channel",
				zap.String("channel", ch.Name))
			continue
		}

		_, err = b.registry.Create(repository.CreateInput{
			Number:      number,
			OwnerID:     owner.ID,
			OwnerTag:    owner.Tag,
			ChannelRef:  ch.ID,
			CommunityID: communityID,
			RequestText: "(recovered after restart)",
			CreatedAt:   time.Now(),
		})
		if err != nil {
			// The owner already has a recovered ticket; keep the first.
			b.logger.Warn("duplicate active ticket during reconstruction",
				zap.String("channel", ch.Name), zap.String("owner", owner.ID))
			continue
		}
		recovered++
	}

	b.logger.Info("reconstructed ticket state",
		zap.String("community", communityID),
		zap.Int("active_tickets", recovered))
	return recovered, nil
}

// nextNumber is max(number embedded in ticket channel names)+1, or 1 when
// none exist. Archived closed- channels no longer match the pattern.
func (b *Bootstrap) nextNumber(channels []platform.Channel) int {
	max := 0
	for _, ch := range channels {
		if ch.Category {
			continue
		}
		match := b.pattern.FindStringSubmatch(ch.Name)
		if match == nil {
			continue
		}
		if n, err := strconv.Atoi(match[1]); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

// resolveOwner prefers the stable identity embedded in the channel topic and
// falls back to a case-insensitive username match for channels created
// before the topic convention.
func (b *Bootstrap) resolveOwner(ctx context.Context, communityID string, ch platform.Channel, nameSuffix string, members *[]platform.Member) (platform.Member, bool) {
	if match := topicOwnerPattern.FindStringSubmatch(ch.Topic); match != nil {
		ownerID := match[1]
		if *members == nil {
			b.loadMembers(ctx, communityID, members)
		}
		for _, m := range *members {
			if m.ID == ownerID {
				return m, true
			}
		}
		// Owner left the community; keep the stable ID, tag best-effort.
		return platform.Member{ID: ownerID, Tag: nameSuffix}, true
	}

	if *members == nil {
		b.loadMembers(ctx, communityID, members)
	}
	for _, m := range *members {
		if strings.EqualFold(m.Username, nameSuffix) {
			return m, true
		}
	}
	return platform.Member{}, false
}

func (b *Bootstrap) loadMembers(ctx context.Context, communityID string, members *[]platform.Member) {
	loaded, err := b.client.Members(ctx, communityID)
	if err != nil {
		b.logger.Warn("failed to list members during reconstruction", zap.Error(err))
		*members = []platform.Member{}
		return
	}
	*members = loaded
}
