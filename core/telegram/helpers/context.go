package helpers

import (
	"context"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "update_ctx"

// StoreContext caches ctx on c so every layer handling the update logs the same metadata.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context cached by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok
}

// BuildContext returns the logging context for the update behind c, building
// and caching it on first use. It carries the request id, update, user and
// chat identifiers, the chat type and, for button presses, the action name.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}

	upd := c.Update()
	var userID, chatID int64
	var chatType string
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
		chatType = string(chat.Type)
	}

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(upd.ID, chatID, userID)
	}

	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
	ctx = logger.WithChatType(ctx, chatType)
	if c.Callback() != nil {
		action, _ := callbacks.Split(callbacks.Data(c))
		ctx = logger.WithAction(ctx, action)
	}
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler records the handler name on the cached context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" || logger.HandlerFrom(ctx) == handler {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
