package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot runs the Telegram long-polling loop and renders Dialog replies.
type Bot struct {
	api    *tgbotapi.BotAPI
	dialog *Dialog
}

func New(token string, dialog *Dialog) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	slog.Info("Authorized on Telegram", "username", api.Self.UserName)
	return &Bot{api: api, dialog: dialog}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	var replies []Reply
	if msg.IsCommand() && msg.Command() == "start" {
		replies = b.dialog.Start(ctx, msg.From.ID, msg.From.UserName)
	} else {
		replies = b.dialog.Handle(ctx, msg.From.ID, msg.Text)
	}
	b.send(ctx, msg.Chat.ID, replies)
}

func (b *Bot) send(ctx context.Context, chatID int64, replies []Reply) {
	for _, r := range replies {
		var msg tgbotapi.Chattable
		if r.File != nil {
			doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
				Name:  r.File.Name,
				Bytes: r.File.Data,
			})
			msg = doc
		} else {
			text := tgbotapi.NewMessage(chatID, r.Text)
			if r.ShowMenu {
				text.ReplyMarkup = menuKeyboard()
			} else if r.HideKeyboard {
				text.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
			}
			msg = text
		}
		if _, err := b.api.Send(msg); err != nil {
			slog.ErrorContext(ctx, "Failed to send message", "chat_id", chatID, "error", err)
		}
	}
}

func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnAdd)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnReport)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnDelete)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnEdit)),
	)
	kb.ResizeKeyboard = true
	return kb
}
