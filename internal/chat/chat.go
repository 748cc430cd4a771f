// Package chat defines the narrow transport surface the conversation core
// talks to: send a message, edit the triggering message, acknowledge a press.
package chat

import (
	"context"
	"errors"
)

// Button is an inline button carrying an action token.
type Button struct {
	Text   string
	Action string
}

// Keyboard is an inline keyboard laid out in rows.
type Keyboard [][]Button

// Row is a convenience constructor for a single keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Responder answers the user on the channel the current event came from.
type Responder interface {
	Send(ctx context.Context, text string, kb Keyboard) error
	// Edit replaces the message that carried the pressed button.
	Edit(ctx context.Context, text string, kb Keyboard) error
	// Acknowledge stops the client's loading indicator; text may be empty.
	Acknowledge(ctx context.Context, text string) error
}

// ErrNoMessage is returned by Edit when the event has no message to edit.
var ErrNoMessage = errors.New("chat: no message to edit")

// EditOrSend edits the triggering message and falls back to a new message.
func EditOrSend(ctx context.Context, r Responder, text string, kb Keyboard) error {
	if err := r.Edit(ctx, text, kb); err == nil {
		return nil
	}
	return r.Send(ctx, text, kb)
}
