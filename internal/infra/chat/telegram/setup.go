package telegram

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// BotConfig is one entry of the config's `bots` list.
type BotConfig struct {
	ID         string
	Token      string
	Polling    bool
	OpenAccess bool
}

// NewBot constructs a go-telegram/bot client for one configured bot and
// starts long-polling in the background if Polling is set. handlers may
// be nil for a notify-only bot with no inbound command surface.
func NewBot(ctx context.Context, cfg BotConfig, handlers ...tgbot.Option) (*tgbot.Bot, error) {
	b, err := tgbot.New(cfg.Token, handlers...)
	if err != nil {
		return nil, fmt.Errorf("telegram: constructing bot %q: %w", cfg.ID, err)
	}

	if _, err := b.GetMe(ctx); err != nil {
		return nil, fmt.Errorf("telegram: getMe for bot %q: %w", cfg.ID, err)
	}

	if cfg.Polling {
		go b.Start(ctx)
	}

	return b, nil
}

// SetCommands registers the bot's slash-command menu. Non-fatal on
// failure: a bot missing its command hints still delivers notifications.
func SetCommands(ctx context.Context, b *tgbot.Bot, commands []models.BotCommand) error {
	_, err := b.SetMyCommands(ctx, &tgbot.SetMyCommandsParams{Commands: commands})
	return err
}

// SendPhoto posts an image with an HTML caption, used for chart
// attachments (config's chart-base-url). Captions fall under C8's
// captioned-media limit (2048 chars); plain text and edits allow 4096.
func (t *Transport) SendPhoto(ctx context.Context, chatID, photoURL, caption string) error {
	_, err := t.bot.SendPhoto(ctx, &tgbot.SendPhotoParams{
		ChatID:    chatID,
		Photo:     &models.InputFileString{Data: photoURL},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return classify(err)
	}
	return nil
}
