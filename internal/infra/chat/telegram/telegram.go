// Package telegram implements C8's Chat interface against the Telegram
// Bot API. Every send/edit is HTML-formatted with link previews disabled,
// and rate-limit/unreachable-subscriber responses are translated into
// C8's typed transient/terminal errors.
package telegram

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/pkg/errkind"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const defaultRetryAfterSeconds = 3

// Transport is delivery.Chat's concrete Telegram implementation, one per
// configured bot.
type Transport struct {
	bot *tgbot.Bot
}

// New wraps an already-constructed go-telegram/bot client.
func New(bot *tgbot.Bot) *Transport {
	return &Transport{bot: bot}
}

func buildMarkup(buttons [][]domain.InlineButton) *models.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}

	rows := make([][]models.InlineKeyboardButton, len(buttons))
	for i, row := range buttons {
		btns := make([]models.InlineKeyboardButton, len(row))
		for j, b := range row {
			btns[j] = models.InlineKeyboardButton{Text: b.Text, URL: b.URL}
		}
		rows[i] = btns
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// SendMessage posts a new HTML message with disabled link previews and
// returns Telegram's message id (as a decimal string) for later editing.
func (t *Transport) SendMessage(ctx context.Context, chatID string, msg domain.RenderedMessage) (string, error) {
	sent, err := t.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        msg.Text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: buildMarkup(msg.Buttons),
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: boolPtr(true),
		},
	})
	if err != nil {
		return "", classify(err)
	}
	return strconv.Itoa(sent.ID), nil
}

// EditMessage rewrites a previously sent message in place.
func (t *Transport) EditMessage(ctx context.Context, chatID, messageID string, msg domain.RenderedMessage) error {
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return &errkind.DeliveryTerminalError{Err: err}
	}

	_, err = t.bot.EditMessageText(ctx, &tgbot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   id,
		Text:        msg.Text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: buildMarkup(msg.Buttons),
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: boolPtr(true),
		},
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }

var retryAfterPattern = regexp.MustCompile(`retry after (\d+)`)

// unreachableMarkers are substrings the Bot API puts in its description
// when a chat can no longer receive messages.
var unreachableMarkers = []string{
	"bot was blocked by the user",
	"user is deactivated",
	"chat not found",
	"bot was kicked",
	"CHAT_WRITE_FORBIDDEN",
}

// classify turns a go-telegram/bot error into a typed transient (rate
// limit, retry in place) or terminal (bad request, possibly unreachable)
// delivery error. The Bot API's 429 response embeds a "retry after N"
// phrase in its description; go-telegram/bot doesn't surface a
// dedicated retryable-error type, so this greps the message text.
func classify(err error) error {
	msg := err.Error()

	if m := retryAfterPattern.FindStringSubmatch(msg); m != nil {
		seconds, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			seconds = defaultRetryAfterSeconds
		}
		return &errkind.DeliveryTransientError{RetryAfterSeconds: seconds, Err: err}
	}

	lower := strings.ToLower(msg)
	for _, marker := range unreachableMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return &errkind.DeliveryTerminalError{SubscriberUnreachable: true, Err: err}
		}
	}

	return &errkind.DeliveryTerminalError{Err: err}
}
