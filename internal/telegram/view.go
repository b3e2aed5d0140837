// Package telegram adapts the Telegram Bot API to the controller: updates
// become events and views become outgoing messages.
package telegram

import (
	"context"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"philcali.me/chefbot/internal/controller"
	"philcali.me/chefbot/internal/logger"
)

const (
	// Telegram counts both limits in UTF-16 code units.
	MaxCaptionLength = 1024
	MaxMessageLength = 4096
)

// Sender is the subset of *tgbotapi.BotAPI used to talk back to a chat.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ChatView renders into one chat. When the event came from a button press,
// MessageID is the message carrying the button and CallbackID the press to
// answer.
type ChatView struct {
	Sender     Sender
	ChatID     int64
	MessageID  int
	CallbackID string

	answered bool
}

var _ controller.View = (*ChatView)(nil)

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

// Truncate cuts text to at most limit UTF-16 units, marking the cut with
// an ellipsis.
func Truncate(text string, limit int) string {
	total := 0
	for _, r := range text {
		total += utf16Len(r)
	}
	if total <= limit {
		return text
	}
	units := 0
	for i, r := range text {
		n := utf16Len(r)
		if units+n > limit-1 {
			return text[:i] + "…"
		}
		units += n
	}
	return text
}

func keyboard(choices []controller.Choice) *tgbotapi.InlineKeyboardMarkup {
	if len(choices) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, choice := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(choice.Label, choice.Action.Encode()),
		))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func (v *ChatView) textMessage(text string, choices []controller.Choice) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(v.ChatID, Truncate(text, MaxMessageLength))
	if markup := keyboard(choices); markup != nil {
		msg.ReplyMarkup = markup
	}
	return msg
}

func (v *ChatView) PresentChoices(ctx context.Context, text string, choices []controller.Choice) error {
	_, err := v.Sender.Send(v.textMessage(text, choices))
	return err
}

// PresentDetail falls back to a text message when Telegram rejects the
// photo, since provider image URLs are not always fetchable.
func (v *ChatView) PresentDetail(ctx context.Context, text string, photoURL *string, choices []controller.Choice) error {
	if photoURL != nil && *photoURL != "" {
		photo := tgbotapi.NewPhoto(v.ChatID, tgbotapi.FileURL(*photoURL))
		photo.Caption = Truncate(text, MaxCaptionLength)
		if markup := keyboard(choices); markup != nil {
			photo.ReplyMarkup = markup
		}
		_, err := v.Sender.Send(photo)
		if err == nil {
			return nil
		}
		logger.From(ctx).Warn().Err(err).Str("photo", *photoURL).Msg("photo rejected, sending text instead")
	}
	_, err := v.Sender.Send(v.textMessage(text, choices))
	return err
}

func (v *ChatView) Acknowledge(ctx context.Context, text string) error {
	if v.CallbackID != "" && !v.answered {
		v.answered = true
		_, err := v.Sender.Request(tgbotapi.NewCallback(v.CallbackID, text))
		return err
	}
	_, err := v.Sender.Send(v.textMessage(text, nil))
	return err
}

func (v *ChatView) DeleteMessage(ctx context.Context) error {
	if v.MessageID == 0 {
		return nil
	}
	_, err := v.Sender.Request(tgbotapi.NewDeleteMessage(v.ChatID, v.MessageID))
	return err
}

// Finish answers a button press that nothing acknowledged, which clears
// the client's loading indicator.
func (v *ChatView) Finish(ctx context.Context) error {
	if v.CallbackID == "" || v.answered {
		return nil
	}
	v.answered = true
	_, err := v.Sender.Request(tgbotapi.NewCallback(v.CallbackID, ""))
	return err
}
