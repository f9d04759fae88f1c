package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/events"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m"},
		{59 * time.Minute, "59m"},
		{time.Hour + 5*time.Minute, "1h 5m"},
		{26*time.Hour + 30*time.Minute, "26h 30m"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDuration(tc.in), "input %s", tc.in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 100))
	assert.Equal(t, "exact", Truncate("exact", 5))

	long := strings.Repeat("a", 150)
	got := Truncate(long, 100)
	assert.Len(t, []rune(got), 100)
	assert.True(t, strings.HasSuffix(got, "..."))

	// Multi-byte runes are cut on rune boundaries.
	assert.Equal(t, "ббб", Truncate("бббббб", 3))
}

func TestClosureLogTruncatesRequest(t *testing.T) {
	r := New("", 3, 200)
	msg := r.ClosureLog(events.TicketClosedPayload{
		Number:      7,
		OwnerTag:    "alice#1001",
		CloserTag:   "bob#2002",
		RequestText: strings.Repeat("x", 180),
		CloseReason: "resolved",
		ClosedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	})

	require.NotNil(t, msg.Embed)
	var request string
	for _, field := range msg.Embed.Fields {
		if field.Name == "Request" {
			request = field.Value
		}
	}
	assert.Len(t, []rune(request), 100)
	assert.True(t, strings.HasSuffix(request, "..."))
}

func TestModalsCarryReasonBounds(t *testing.T) {
	r := New("", 3, 200)

	create := r.CreateTicketModal()
	require.Len(t, create.Inputs, 1)
	assert.Equal(t, InputTicketReason, create.Inputs[0].ID)
	assert.Equal(t, 3, create.Inputs[0].MinLen)
	assert.Equal(t, 200, create.Inputs[0].MaxLen)

	closeModal := r.CloseReasonModal()
	require.Len(t, closeModal.Inputs, 1)
	assert.Equal(t, InputCloseReason, closeModal.Inputs[0].ID)
	assert.Equal(t, 3, closeModal.Inputs[0].MinLen)
}

func TestHelpScopesOperatorCommands(t *testing.T) {
	r := New("", 3, 200)

	user := r.Help("!", false)
	operator := r.Help("!", true)

	var userHasOps, operatorHasOps bool
	for _, field := range user.Embed.Fields {
		if field.Name == "Operator commands" {
			userHasOps = true
		}
	}
	for _, field := range operator.Embed.Fields {
		if field.Name == "Operator commands" {
			operatorHasOps = true
		}
	}
	assert.False(t, userHasOps)
	assert.True(t, operatorHasOps)
	assert.Equal(t, "Status: Operator", operator.Embed.Footer)
}
