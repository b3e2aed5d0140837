package controller

import (
	"context"
	"strings"

	"philcali.me/chefbot/internal/action"
)

type EventKind int

const (
	// TextEvent is free text, treated as an ingredient list.
	TextEvent EventKind = iota + 1
	// CommandEvent is a slash command without its leading slash.
	CommandEvent
	// ActionEvent is a pressed button.
	ActionEvent
)

type Event struct {
	ConversationID int64
	UserID         int64
	Kind           EventKind
	Text           string
	Command        string
	Action         action.Action
}

func Text(conversationID, userID int64, text string) Event {
	return Event{ConversationID: conversationID, UserID: userID, Kind: TextEvent, Text: text}
}

func Command(conversationID, userID int64, command string) Event {
	return Event{ConversationID: conversationID, UserID: userID, Kind: CommandEvent, Command: strings.ToLower(command)}
}

func Pressed(conversationID, userID int64, a action.Action) Event {
	return Event{ConversationID: conversationID, UserID: userID, Kind: ActionEvent, Action: a}
}

// label is the low-cardinality name used for metrics.
func (e Event) label() string {
	switch e.Kind {
	case TextEvent:
		return "text"
	case CommandEvent:
		return "command"
	case ActionEvent:
		return e.Action.Kind.String()
	default:
		return "unknown"
	}
}

// Choice is one selectable button.
type Choice struct {
	Label  string
	Action action.Action
}

// View renders the controller's output back into the conversation the
// event came from.
type View interface {
	PresentChoices(ctx context.Context, text string, choices []Choice) error
	// PresentDetail sends a photo with a caption when photoURL is set,
	// plain text otherwise.
	PresentDetail(ctx context.Context, text string, photoURL *string, choices []Choice) error
	// Acknowledge sends a short notice. For a pressed button this answers
	// the press instead of posting a new message.
	Acknowledge(ctx context.Context, text string) error
	// DeleteMessage removes the message whose button produced the event.
	DeleteMessage(ctx context.Context) error
}
