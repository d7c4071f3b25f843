package telegram

import (
	"errors"
	"strings"
)

// Command is a bot command the server acts on.
type Command int

const (
	CommandStart Command = iota + 1
	CommandLinkDM
	CommandLinkGroup
)

func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandLinkDM:
		return "link_dm"
	case CommandLinkGroup:
		return "link_group"
	}
	return "unknown"
}

var (
	// ErrUnknownCommand is text that is not addressed to the bot.
	ErrUnknownCommand = errors.New("unknown non-omi command")
	// ErrBadCommand is text addressed to the bot that it cannot parse.
	ErrBadCommand = errors.New("bad omi command")
	// ErrUnsupportedMessage is a message without text.
	ErrUnsupportedMessage = errors.New("unsupported message")
)

// ParseCommand reads the command in msg.
//
// In a private chat every message is addressed to the bot: "/start" and
// "/link" are understood and anything else is ErrBadCommand. In groups
// and channels only "/omi ..." is addressed to the bot, and the only
// subcommand is "link".
func ParseCommand(msg *Message) (Command, error) {
	if msg.Text == nil {
		return 0, ErrUnsupportedMessage
	}
	parts := strings.Fields(*msg.Text)
	if len(parts) == 0 {
		return 0, ErrUnknownCommand
	}

	if msg.Chat.Type == ChatPrivate {
		switch parts[0] {
		case "/start":
			return CommandStart, nil
		case "/link":
			return CommandLinkDM, nil
		}
		return 0, ErrBadCommand
	}

	if parts[0] != "/omi" || len(parts) < 2 {
		return 0, ErrUnknownCommand
	}
	if len(parts) == 2 && parts[1] == "link" {
		return CommandLinkGroup, nil
	}
	return 0, ErrBadCommand
}
