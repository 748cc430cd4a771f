// Package transport adapts telebot updates to the conversation core: it
// implements chat.Responder over tele.Context and binds commands, callbacks
// and free text to the dispatcher and the state machine.
package transport

import (
	"context"

	"github.com/bradenaw/juniper/xslices"

	"github.com/m3rciful/walletbot/core/telegram/helpers"
	"github.com/m3rciful/walletbot/core/telegram/keyboard"
	"github.com/m3rciful/walletbot/internal/chat"

	tele "gopkg.in/telebot.v4"
)

// Responder answers on the chat an update came from. Sends are queued on the
// outbound dispatcher; edits and acknowledgements are synchronous.
type Responder struct {
	c tele.Context
}

var _ chat.Responder = (*Responder)(nil)

// NewResponder wraps c.
func NewResponder(c tele.Context) *Responder {
	return &Responder{c: c}
}

func (r *Responder) Send(_ context.Context, text string, kb chat.Keyboard) error {
	return helpers.SendMD(r.c, text, Markup(kb))
}

// Edit replaces the message carrying the pressed button. Plain messages have
// nothing to edit and report chat.ErrNoMessage.
func (r *Responder) Edit(_ context.Context, text string, kb chat.Keyboard) error {
	cb := r.c.Callback()
	if cb == nil || cb.Message == nil {
		return chat.ErrNoMessage
	}
	return helpers.EditMD(r.c, text, Markup(kb))
}

// Acknowledge answers the callback query. It is a no-op for messages.
func (r *Responder) Acknowledge(_ context.Context, text string) error {
	return helpers.Acknowledge(r.c, text)
}

// Markup renders kb as an inline keyboard whose buttons carry raw action tokens.
func Markup(kb chat.Keyboard) *tele.ReplyMarkup {
	rows := xslices.Map(kb, func(row []chat.Button) []keyboard.InlineBtn {
		return xslices.Map(row, func(b chat.Button) keyboard.InlineBtn {
			return keyboard.InlineBtn{Text: b.Text, Data: b.Action}
		})
	})
	return keyboard.InlineButtonsRows(rows...)
}
