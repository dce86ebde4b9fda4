package telegram

import (
	"context"
	"errors"
	"strconv"
	"time"

	"code.sztanpet.net/zvpsz/frame-text/internal/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"golang.org/x/time/rate"
)

// MaxSendDurr configures the limiter to send at most 1 message per MaxSendDurr
var MaxSendDurr = 500 * time.Millisecond

// ErrDisabled is returned by New when no token is configured
var ErrDisabled = errors.New("telegram: no token configured")

const maxMessageSize = 4096 // https://github.com/yagop/node-telegram-bot-api/issues/165

type Bot struct {
	ctx       context.Context
	channelID int64
	api       *tgbotapi.BotAPI
	limiter   *rate.Limiter
}

func New(ctx context.Context, cfg *config.Config) (*Bot, error) {
	if cfg.TelegramToken == "" {
		return nil, ErrDisabled
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}

	t := &Bot{
		ctx:       ctx,
		channelID: cfg.TelegramChannelID,
		api:       api,
		// limit message spam to once every MaxSendDurr
		limiter: rate.NewLimiter(rate.Every(MaxSendDurr), 1),
	}
	return t, nil
}

// Send sends a message to the channel, optionally sending notifications depending on disableNotification
// internally ratelimited to once every MaxSendDurr
func (t *Bot) Send(txt string, disableNotification bool) error {
	for _, part := range split(txt) {
		if err := t.limiter.Wait(t.ctx); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(t.channelID, part)
		msg.DisableNotification = disableNotification
		if _, err := t.api.Send(msg); err != nil {
			return err
		}
	}

	return nil
}

// split cuts txt into messages telegram accepts, numbering the parts
// with a " (i)" postfix when more than one is needed
func split(txt string) []string {
	if len(txt) <= maxMessageSize {
		return []string{txt}
	}

	const room = maxMessageSize - 16
	var parts []string
	r := []rune(txt)
	for i := 1; len(r) > 0; i++ {
		n := 0
		size := 0
		for n < len(r) && size+len(string(r[n])) <= room {
			size += len(string(r[n]))
			n++
		}
		parts = append(parts, string(r[:n])+" ("+strconv.Itoa(i)+")")
		r = r[n:]
	}

	return parts
}
