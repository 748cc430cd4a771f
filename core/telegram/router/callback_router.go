package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/walletbot/core/logger"
	tg "github.com/m3rciful/walletbot/core/telegram"
	"github.com/m3rciful/walletbot/core/telegram/callbacks"
	"github.com/m3rciful/walletbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute returns the single OnCallback route. Every inline button
// press is handed to handle, which owns answering the callback query.
func CallbackRoute(handle tele.HandlerFunc) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, payload := callbacks.Split(callbacks.Data(c))
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("action", logger.SanitizeLimit(key, 64))}
		if payload != "" {
			extras = append(extras, slog.String("payload", logger.SanitizeLimit(payload, 64)))
		}

		return handleWithSummary(c, name, start, "", "", func() error {
			return handle(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
