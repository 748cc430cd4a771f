// Package chattest provides an in-memory chat.Responder for tests.
package chattest

import (
	"context"
	"sync"

	"github.com/m3rciful/walletbot/internal/chat"
)

// Message is one recorded Send or Edit.
type Message struct {
	Text     string
	Keyboard chat.Keyboard
	Edit     bool
}

// Recorder records every response. Set EditErr or SendErr to simulate transport failures.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
	Acks     []string

	EditErr error
	SendErr error
	AckErr  error
}

func (r *Recorder) Send(_ context.Context, text string, kb chat.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return r.SendErr
	}
	r.Messages = append(r.Messages, Message{Text: text, Keyboard: kb})
	return nil
}

func (r *Recorder) Edit(_ context.Context, text string, kb chat.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.EditErr != nil {
		return r.EditErr
	}
	r.Messages = append(r.Messages, Message{Text: text, Keyboard: kb, Edit: true})
	return nil
}

func (r *Recorder) Acknowledge(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Acks = append(r.Acks, text)
	return r.AckErr
}

// Last returns the most recent message, or the zero Message.
func (r *Recorder) Last() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}
	}
	return r.Messages[len(r.Messages)-1]
}

// AckCount reports how many acknowledgements were sent.
func (r *Recorder) AckCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Acks)
}

// Actions returns every action token in the last message's keyboard.
func (r *Recorder) Actions() []string {
	var out []string
	for _, row := range r.Last().Keyboard {
		for _, b := range row {
			out = append(out, b.Action)
		}
	}
	return out
}

// Reset drops recorded traffic, keeping the configured errors.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.Messages = nil
	r.Acks = nil
	r.mu.Unlock()
}
