package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/walletbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const loggedKey = "update_logged"

// LoggerMiddleware builds the update's logging context and writes one sampled
// receipt line per update. It may wrap the same update more than once; only
// the first pass logs.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if logged, _ := c.Get(loggedKey).(bool); logged {
			return next(c)
		}
		c.Set(loggedKey, true)
		c.Set("update_start", time.Now())

		ctx := tghelpers.BuildContext(c)
		c.Set("rid", logger.RIDFrom(ctx))

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{slog.String("status", "ok")}
			if user := c.Sender(); user != nil && user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
			attrs = append(attrs, describeInput(c)...)
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
		}

		return next(c)
	}
}

// describeInput summarizes what the user sent. Free text may hold an email
// or a one-time code, so only commands are logged verbatim.
func describeInput(c tele.Context) []slog.Attr {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.Split(callbacks.Data(c))
		attrs := []slog.Attr{slog.String("cb_key", logger.SanitizeLimit(key, 64))}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 128)))
		}
		return attrs
	case upd.Message != nil:
		text := strings.TrimSpace(c.Text())
		if strings.HasPrefix(text, "/") {
			cmd, _, _ := strings.Cut(text, " ")
			return []slog.Attr{slog.String("command", logger.SanitizeLimit(cmd, 64))}
		}
		return []slog.Attr{slog.Int("text_len", len(text))}
	}
	return nil
}
