package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func textMessage(chat ChatType, text string) *Message {
	return &Message{Chat: Chat{ID: 1, Type: chat}, Text: &text}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		msg     *Message
		want    Command
		wantErr error
	}{
		{"private start", textMessage(ChatPrivate, "/start"), CommandStart, nil},
		{"private start with payload", textMessage(ChatPrivate, "/start abc"), CommandStart, nil},
		{"private link", textMessage(ChatPrivate, "  /link "), CommandLinkDM, nil},
		{"private other text", textMessage(ChatPrivate, "hello"), 0, ErrBadCommand},
		{"private omi link", textMessage(ChatPrivate, "/omi link"), 0, ErrBadCommand},
		{"group omi link", textMessage(ChatGroup, "/omi link"), CommandLinkGroup, nil},
		{"supergroup omi link", textMessage(ChatSupergroup, "/omi   link"), CommandLinkGroup, nil},
		{"channel omi link", textMessage(ChatChannel, "/omi link"), CommandLinkGroup, nil},
		{"group omi alone", textMessage(ChatGroup, "/omi"), 0, ErrUnknownCommand},
		{"group omi unknown", textMessage(ChatGroup, "/omi unlink"), 0, ErrBadCommand},
		{"group omi link extra", textMessage(ChatGroup, "/omi link now"), 0, ErrBadCommand},
		{"group chatter", textMessage(ChatGroup, "lunch?"), 0, ErrUnknownCommand},
		{"group start", textMessage(ChatGroup, "/start"), 0, ErrUnknownCommand},
		{"blank", textMessage(ChatPrivate, "   "), 0, ErrUnknownCommand},
		{"no text", &Message{Chat: Chat{Type: ChatPrivate}}, 0, ErrUnsupportedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.msg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
