package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// fakeClient is an in-memory platform used by the service tests. It records
// every call so tests can assert on side effects and their absence.
type fakeClient struct {
	mu       sync.Mutex
	nextID   int
	channels []platform.Channel
	roles    []platform.Role
	members  []platform.Member
	messages map[string][]platform.PostedMessage
	dms      map[string][]platform.Message

	calls           []string
	deletedChannels []string
	renamed         map[string]string
	grants          map[string][]platform.Grant
	revokedSend     []string
	removedGrants   []string
	clearedMessages []string

	createChannelErr error
	sendMessageErr   error
	channelsErr      error
	dmErr            error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		messages: make(map[string][]platform.PostedMessage),
		dms:      make(map[string][]platform.Message),
		renamed:  make(map[string]string),
		grants:   make(map[string][]platform.Grant),
	}
}

func (f *fakeClient) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) addChannel(ch platform.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, ch)
}

func (f *fakeClient) channelNamed(name string) (platform.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return platform.Channel{}, false
}

func (f *fakeClient) sentTo(channelID string) []platform.PostedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.PostedMessage{}, f.messages[channelID]...)
}

func (f *fakeClient) CreateChannel(_ context.Context, create platform.ChannelCreate) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateChannel")
	if f.createChannelErr != nil {
		return nil, f.createChannelErr
	}
	f.nextID++
	ch := platform.Channel{
		ID:          fmt.Sprintf("chan-%d", f.nextID),
		CommunityID: create.CommunityID,
		Name:        create.Name,
		Topic:       create.Topic,
		ParentID:    create.ParentID,
	}
	f.channels = append(f.channels, ch)
	f.grants[ch.ID] = append(f.grants[ch.ID], create.Grants...)
	return &ch, nil
}

func (f *fakeClient) CreateCategory(_ context.Context, communityID, name string) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateCategory")
	f.nextID++
	ch := platform.Channel{
		ID:          fmt.Sprintf("cat-%d", f.nextID),
		CommunityID: communityID,
		Name:        name,
		Category:    true,
	}
	f.channels = append(f.channels, ch)
	return &ch, nil
}

func (f *fakeClient) RenameChannel(_ context.Context, channelID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RenameChannel")
	f.renamed[channelID] = name
	for i, ch := range f.channels {
		if ch.ID == channelID {
			f.channels[i].Name = name
		}
	}
	return nil
}

func (f *fakeClient) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteChannel")
	f.deletedChannels = append(f.deletedChannels, channelID)
	kept := f.channels[:0]
	for _, ch := range f.channels {
		if ch.ID != channelID {
			kept = append(kept, ch)
		}
	}
	f.channels = kept
	return nil
}

func (f *fakeClient) GrantChannel(_ context.Context, channelID string, grant platform.Grant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GrantChannel")
	f.grants[channelID] = append(f.grants[channelID], grant)
	return nil
}

func (f *fakeClient) RevokeSend(_ context.Context, channelID, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RevokeSend")
	f.revokedSend = append(f.revokedSend, channelID+":"+memberID)
	return nil
}

func (f *fakeClient) RemoveGrant(_ context.Context, channelID, principalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveGrant")
	f.removedGrants = append(f.removedGrants, channelID+":"+principalID)
	return nil
}

func (f *fakeClient) SendMessage(_ context.Context, channelID string, msg platform.Message) (*platform.PostedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SendMessage")
	if f.sendMessageErr != nil {
		return nil, f.sendMessageErr
	}
	f.nextID++
	posted := platform.PostedMessage{
		ID:         fmt.Sprintf("msg-%d", f.nextID),
		ChannelID:  channelID,
		Content:    msg.Content,
		HasButtons: len(msg.Buttons) > 0,
	}
	if msg.Embed != nil {
		posted.EmbedTitle = msg.Embed.Title
	}
	f.messages[channelID] = append(f.messages[channelID], posted)
	return &posted, nil
}

func (f *fakeClient) EditMessageContent(_ context.Context, channelID, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("EditMessageContent")
	for i, msg := range f.messages[channelID] {
		if msg.ID == messageID {
			f.messages[channelID][i].Content = content
		}
	}
	return nil
}

func (f *fakeClient) ClearComponents(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ClearComponents")
	f.clearedMessages = append(f.clearedMessages, messageID)
	for i, msg := range f.messages[channelID] {
		if msg.ID == messageID {
			f.messages[channelID][i].HasButtons = false
		}
	}
	return nil
}

func (f *fakeClient) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteMessage")
	kept := f.messages[channelID][:0]
	for _, msg := range f.messages[channelID] {
		if msg.ID != messageID {
			kept = append(kept, msg)
		}
	}
	f.messages[channelID] = kept
	return nil
}

func (f *fakeClient) RecentMessages(_ context.Context, channelID string, limit int) ([]platform.PostedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RecentMessages")
	msgs := f.messages[channelID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]platform.PostedMessage{}, msgs...), nil
}

func (f *fakeClient) DirectMessage(_ context.Context, userID string, msg platform.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DirectMessage")
	if f.dmErr != nil {
		return f.dmErr
	}
	f.dms[userID] = append(f.dms[userID], msg)
	return nil
}

func (f *fakeClient) Channels(_ context.Context, communityID string) ([]platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Channels")
	if f.channelsErr != nil {
		return nil, f.channelsErr
	}
	out := make([]platform.Channel, 0, len(f.channels))
	for _, ch := range f.channels {
		if ch.CommunityID == communityID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeClient) Roles(_ context.Context, _ string) ([]platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Roles")
	return append([]platform.Role{}, f.roles...), nil
}

func (f *fakeClient) Members(_ context.Context, _ string) ([]platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Members")
	return append([]platform.Member{}, f.members...), nil
}
