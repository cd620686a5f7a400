package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	kit "github.com/dudenheryana1994/deliverable-approval-submitted/internal/transport"
	logx "github.com/dudenheryana1994/deliverable-approval-submitted/pkg/logx"
)

type Config struct {
	Token string
	// APIURL overrides the Bot API endpoint (tests, local bot API servers).
	APIURL  string
	Timeout time.Duration

	// RatePerSec throttles outgoing messages client-side; burst is the same
	// value rounded up. 0 means 1 msg/s.
	RatePerSec float64

	ThreadID       int
	DisablePreview bool
}

// Adapter sends messages through the Bot API. It never polls for updates.
type Adapter struct {
	cfg     Config
	log     logx.Logger
	bot     *tele.Bot
	limiter *rate.Limiter
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		URL:   strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		Token: cfg.Token,
		// Offline skips getMe; this process only sends.
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	burst := int(rps)
	if float64(burst) < rps {
		burst++
	}
	return &Adapter{
		cfg:     cfg,
		log:     log,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), max(1, burst)),
	}, nil
}

// chatRecipient lets telebot address numeric ids and @channel names alike.
type chatRecipient string

func (r chatRecipient) Recipient() string { return string(r) }

const telegramTextLimit = 4000

// splitTelegramText splits long messages into chunks that are safe to send to Telegram.
// It prefers newline boundaries.
func splitTelegramText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}

		// Prefer splitting on a newline near the end of the window.
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid extremely small chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

// SendText performs a single delivery attempt. Long text is sent as several
// messages; the first message's ref is returned.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	chatID := strings.TrimSpace(to.ChatID)
	if chatID == "" {
		return kit.MessageRef{}, errors.New("telegram: empty chat id")
	}
	threadID := to.ThreadID
	if threadID == 0 {
		threadID = a.cfg.ThreadID
	}

	var first kit.MessageRef
	for i, chunk := range splitTelegramText(text, telegramTextLimit) {
		if err := a.limiter.Wait(ctx); err != nil {
			return first, err
		}

		msg, err := a.bot.Send(chatRecipient(chatID), chunk, &tele.SendOptions{
			ParseMode:             opt.ParseMode,
			DisableWebPagePreview: opt.DisablePreview || a.cfg.DisablePreview,
			ThreadID:              threadID,
		})
		if err != nil {
			return first, err
		}
		if i == 0 && msg != nil {
			first = kit.MessageRef{ChatID: chatID, ThreadID: threadID, MessageID: msg.ID}
		}
		a.log.Debug("telegram message sent", logx.String("chat_id", chatID), logx.Int("chunk", i))
	}
	return first, nil
}
