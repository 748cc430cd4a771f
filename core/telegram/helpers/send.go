package helpers

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendMD queues a Markdown message with optional reply markup to the current chat.
func SendMD(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup}
	err := sendAsync(c, "send.md", "sendMessage", func() error {
		return c.Send(text, opts)
	})
	if err == nil {
		noteReply(c, false, markup)
	}
	return err
}

// EditMD edits the message the callback came from. It runs synchronously so
// the caller can fall back to SendMD on failure. An unchanged message is not an error.
func EditMD(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	err := c.Edit(text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
	if err != nil && !IsNotModified(err) {
		return err
	}
	noteReply(c, true, markup)
	return nil
}

// Acknowledge answers the callback query behind c with an optional toast.
// Updates without a callback have nothing to answer.
func Acknowledge(c tele.Context, text string) error {
	if c.Callback() == nil {
		return nil
	}
	if err := c.Respond(&tele.CallbackResponse{Text: text}); err != nil {
		return err
	}
	noteAck(c)
	return nil
}

// IsNotModified reports Telegram's "message is not modified" rejection.
func IsNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
