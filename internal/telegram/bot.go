package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"philcali.me/chefbot/internal/action"
	"philcali.me/chefbot/internal/controller"
	"philcali.me/chefbot/internal/worker"
)

// ErrIgnored marks updates that carry nothing for the controller, such as
// stickers or edited messages.
var ErrIgnored = errors.New("update ignored")

// Handler processes one conversation event; *controller.Controller
// implements it.
type Handler interface {
	Handle(ctx context.Context, ev controller.Event, view controller.View) error
}

// Updater is the long polling half of *tgbotapi.BotAPI.
type Updater interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// EventFromUpdate translates an update into a controller event and the
// view that answers it. Callback data is parsed here and nowhere else.
func EventFromUpdate(sender Sender, update tgbotapi.Update) (controller.Event, *ChatView, error) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.From == nil {
			return controller.Event{}, nil, ErrIgnored
		}
		view := &ChatView{Sender: sender, ChatID: cb.From.ID, CallbackID: cb.ID}
		if cb.Message != nil && cb.Message.Chat != nil {
			view.ChatID = cb.Message.Chat.ID
			view.MessageID = cb.Message.MessageID
		}
		a, err := action.Parse(cb.Data)
		if err != nil {
			return controller.Event{}, view, err
		}
		return controller.Pressed(view.ChatID, cb.From.ID, a), view, nil
	}
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return controller.Event{}, nil, ErrIgnored
	}
	view := &ChatView{Sender: sender, ChatID: msg.Chat.ID}
	if msg.IsCommand() {
		return controller.Command(msg.Chat.ID, msg.From.ID, msg.Command()), view, nil
	}
	if msg.Text == "" {
		return controller.Event{}, nil, ErrIgnored
	}
	return controller.Text(msg.Chat.ID, msg.From.ID, msg.Text), view, nil
}

// ConversationID is the key updates are serialized on.
func ConversationID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	default:
		return 0
	}
}

type Bot struct {
	Sender  Sender
	Handler Handler
	Queue   *worker.KeyedQueue
}

func NewBot(sender Sender, handler Handler) *Bot {
	return &Bot{
		Sender:  sender,
		Handler: handler,
		Queue:   worker.NewKeyedQueue(),
	}
}

// Dispatch handles one update synchronously.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) error {
	ev, view, err := EventFromUpdate(b.Sender, update)
	if errors.Is(err, ErrIgnored) {
		log.Debug().Int("update", update.UpdateID).Msg("ignoring update")
		return nil
	}
	if err != nil {
		// Unknown button payloads are answered so the client stops waiting.
		log.Warn().Err(err).Int("update", update.UpdateID).Msg("rejecting update")
		if finishErr := view.Finish(ctx); finishErr != nil {
			return fmt.Errorf("answering rejected update: %w", finishErr)
		}
		return nil
	}
	handleErr := b.Handler.Handle(ctx, ev, view)
	if err := view.Finish(ctx); err != nil && handleErr == nil {
		handleErr = err
	}
	return handleErr
}

// Poll receives updates until ctx is done, running each conversation's
// updates in arrival order and different conversations concurrently.
func (b *Bot) Poll(ctx context.Context, updater Updater, timeout int) {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = timeout
	updates := updater.GetUpdatesChan(config)
	defer b.Queue.Wait()
	for {
		select {
		case <-ctx.Done():
			updater.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.Queue.Submit(ConversationID(update), func() {
				if err := b.Dispatch(ctx, update); err != nil {
					log.Error().Err(err).Int("update", update.UpdateID).Msg("failed to handle update")
				}
			})
		}
	}
}
