// Package platform defines the chat-platform collaborator boundary. The
// lifecycle and router speak only these plain-data types; rendering and wire
// details live in the adapter.
package platform

import "context"

// Channel is the platform's addressable conversation unit.
type Channel struct {
	ID          string
	CommunityID string
	Name        string
	Topic       string
	Category    bool
	ParentID    string
}

// Role is a community role.
type Role struct {
	ID   string
	Name string
}

// Member is a community member as seen by authorization checks. RoleNames
// are resolved by the adapter so the core never deals in role IDs.
type Member struct {
	ID            string
	Username      string
	Tag           string
	RoleNames     []string
	Administrator bool
}

// EmbedField is one name/value pair inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rendered rich message block.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
	Thumbnail   string
}

// ButtonStyle selects the platform's button rendering.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonDanger
)

// Button is one interactive component attached to a message.
type Button struct {
	ID    string
	Label string
	Style ButtonStyle
}

// Message is an outbound message payload.
type Message struct {
	Content string
	Embed   *Embed
	Buttons []Button
}

// PostedMessage is an inbound or previously sent message, reduced to the
// fields the workflow inspects.
type PostedMessage struct {
	ID         string
	ChannelID  string
	AuthorID   string
	Content    string
	EmbedTitle string
	HasButtons bool
}

// TextInput is one field of a modal prompt.
type TextInput struct {
	ID          string
	Label       string
	Placeholder string
	Paragraph   bool
	Required    bool
	MinLen      int
	MaxLen      int
}

// Modal is a dialog prompting the actor for input.
type Modal struct {
	ID     string
	Title  string
	Inputs []TextInput
}

// PrincipalKind distinguishes overwrite targets.
type PrincipalKind int

const (
	PrincipalMember PrincipalKind = iota
	PrincipalRole
)

// Grant describes one permission overwrite on a channel.
type Grant struct {
	PrincipalID    string
	Kind           PrincipalKind
	ViewChannel    bool
	SendMessages   bool
	ReadHistory    bool
	ManageMessages bool
}

// ChannelCreate describes a channel to provision. HideFromEveryone denies
// visibility for the community at large before Grants open it up;
// ReadOnlyForEveryone keeps the channel visible but not writable.
type ChannelCreate struct {
	CommunityID         string
	Name                string
	Topic               string
	ParentID            string
	HideFromEveryone    bool
	ReadOnlyForEveryone bool
	Grants              []Grant
}

// Client is the consumed chat-platform collaborator.
type Client interface {
	CreateChannel(ctx context.Context, create ChannelCreate) (*Channel, error)
	CreateCategory(ctx context.Context, communityID, name string) (*Channel, error)
	RenameChannel(ctx context.Context, channelID, name string) error
	DeleteChannel(ctx context.Context, channelID string) error

	GrantChannel(ctx context.Context, channelID string, grant Grant) error
	RevokeSend(ctx context.Context, channelID, memberID string) error
	RemoveGrant(ctx context.Context, channelID, principalID string) error

	SendMessage(ctx context.Context, channelID string, msg Message) (*PostedMessage, error)
	EditMessageContent(ctx context.Context, channelID, messageID, content string) error
	ClearComponents(ctx context.Context, channelID, messageID string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	RecentMessages(ctx context.Context, channelID string, limit int) ([]PostedMessage, error)

	DirectMessage(ctx context.Context, userID string, msg Message) error

	Channels(ctx context.Context, communityID string) ([]Channel, error)
	Roles(ctx context.Context, communityID string) ([]Role, error)
	Members(ctx context.Context, communityID string) ([]Member, error)
}
